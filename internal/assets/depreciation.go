package assets

import (
	"time"

	"github.com/shopspring/decimal"
)

// Depreciation is the straight-line position of one asset at AsOf.
type Depreciation struct {
	AssetID                 int             `json:"asset_id"`
	PurchasePrice           decimal.Decimal `json:"purchase_price"`
	SalvageValue            decimal.Decimal `json:"salvage_value"`
	UsefulLifeMonths        int             `json:"useful_life_months"`
	MonthsElapsed           int             `json:"months_elapsed"`
	MonthlyDepreciation     decimal.Decimal `json:"monthly_depreciation"`
	AccumulatedDepreciation decimal.Decimal `json:"accumulated_depreciation"`
	BookValue               decimal.Decimal `json:"book_value"`
	FullyDepreciated        bool            `json:"fully_depreciated"`
	AsOf                    time.Time       `json:"as_of"`
}

type ScheduleRow struct {
	Month                   int             `json:"month"`
	PeriodEnd               time.Time       `json:"period_end"`
	Depreciation            decimal.Decimal `json:"depreciation"`
	AccumulatedDepreciation decimal.Decimal `json:"accumulated_depreciation"`
	BookValue               decimal.Decimal `json:"book_value"`
}

// MonthsBetween counts whole calendar months from..to. A month is complete
// once the day of month of from is reached again.
func MonthsBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}

	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() && !isLastDayOfMonth(to) {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

func isLastDayOfMonth(t time.Time) bool {
	return t.AddDate(0, 0, 1).Month() != t.Month()
}

func depreciableBase(price, salvage decimal.Decimal) decimal.Decimal {
	base := price.Sub(salvage)
	if base.IsNegative() {
		return decimal.Zero
	}
	return base
}

// CalculateDepreciation applies straight-line depreciation. Accumulated
// depreciation never exceeds price minus salvage; all amounts are rounded to
// 2 decimals. Zero useful life means fully depreciated at purchase.
func CalculateDepreciation(price, salvage decimal.Decimal, lifeMonths int, purchased, asOf time.Time) Depreciation {
	base := depreciableBase(price, salvage)
	d := Depreciation{
		PurchasePrice:    price,
		SalvageValue:     salvage,
		UsefulLifeMonths: lifeMonths,
		MonthsElapsed:    MonthsBetween(purchased, asOf),
		AsOf:             asOf,
	}

	if lifeMonths <= 0 {
		d.MonthlyDepreciation = base.Round(2)
		d.AccumulatedDepreciation = base.Round(2)
		d.BookValue = price.Sub(base).Round(2)
		d.FullyDepreciated = true
		return d
	}

	monthly := base.Div(decimal.NewFromInt(int64(lifeMonths)))
	accumulated := monthly.Mul(decimal.NewFromInt(int64(d.MonthsElapsed)))
	if accumulated.GreaterThanOrEqual(base) {
		accumulated = base
		d.FullyDepreciated = true
	}

	d.MonthlyDepreciation = monthly.Round(2)
	d.AccumulatedDepreciation = accumulated.Round(2)
	d.BookValue = price.Sub(accumulated).Round(2)
	return d
}

// Schedule lists every month of the useful life. The last month absorbs
// rounding so the final book value equals the salvage value.
func Schedule(price, salvage decimal.Decimal, lifeMonths int, purchased time.Time) []ScheduleRow {
	if lifeMonths <= 0 {
		return []ScheduleRow{}
	}

	base := depreciableBase(price, salvage)
	monthly := base.Div(decimal.NewFromInt(int64(lifeMonths)))

	rows := make([]ScheduleRow, 0, lifeMonths)
	previous := decimal.Zero
	for m := 1; m <= lifeMonths; m++ {
		accumulated := monthly.Mul(decimal.NewFromInt(int64(m))).Round(2)
		if m == lifeMonths {
			accumulated = base.Round(2)
		}

		rows = append(rows, ScheduleRow{
			Month:                   m,
			PeriodEnd:               purchased.AddDate(0, m, 0),
			Depreciation:            accumulated.Sub(previous),
			AccumulatedDepreciation: accumulated,
			BookValue:               price.Sub(accumulated).Round(2),
		})
		previous = accumulated
	}

	return rows
}
