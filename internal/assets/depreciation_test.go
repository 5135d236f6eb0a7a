package assets

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestMonthsBetween(t *testing.T) {
	tests := []struct {
		name     string
		from, to time.Time
		want     int
	}{
		{"same day", date(2024, 1, 15), date(2024, 1, 15), 0},
		{"day before anniversary", date(2024, 1, 15), date(2025, 1, 14), 11},
		{"anniversary", date(2024, 1, 15), date(2025, 1, 15), 12},
		{"end of short month", date(2024, 1, 31), date(2024, 2, 29), 1},
		{"before purchase", date(2024, 5, 1), date(2024, 1, 1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MonthsBetween(tt.from, tt.to))
		})
	}
}

func TestCalculateDepreciation(t *testing.T) {
	tests := []struct {
		name        string
		price       string
		salvage     string
		life        int
		asOf        time.Time
		monthly     string
		accumulated string
		book        string
		fully       bool
	}{
		{"one year in", "12000000", "0", 36, date(2025, 1, 15), "333333.33", "4000000", "8000000", false},
		{"with salvage", "10000000", "1000000", 24, date(2024, 7, 15), "375000", "2250000", "7750000", false},
		{"past useful life", "12000000", "2000000", 36, date(2030, 1, 1), "277777.78", "10000000", "2000000", true},
		{"zero life", "5000000", "500000", 0, date(2024, 1, 15), "4500000", "4500000", "500000", true},
		{"salvage above price", "1000", "2000", 12, date(2025, 1, 15), "0", "0", "1000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CalculateDepreciation(dec(tt.price), dec(tt.salvage), tt.life, date(2024, 1, 15), tt.asOf)

			assert.True(t, dec(tt.monthly).Equal(d.MonthlyDepreciation), "monthly %s", d.MonthlyDepreciation)
			assert.True(t, dec(tt.accumulated).Equal(d.AccumulatedDepreciation), "accumulated %s", d.AccumulatedDepreciation)
			assert.True(t, dec(tt.book).Equal(d.BookValue), "book %s", d.BookValue)
			assert.Equal(t, tt.fully, d.FullyDepreciated)
		})
	}
}

func TestSchedule(t *testing.T) {
	rows := Schedule(dec("1000"), dec("0"), 3, date(2024, 1, 10))

	require.Len(t, rows, 3)
	assert.True(t, dec("333.33").Equal(rows[0].Depreciation))
	assert.True(t, dec("666.67").Equal(rows[1].AccumulatedDepreciation))
	assert.True(t, dec("1000").Equal(rows[2].AccumulatedDepreciation))
	assert.True(t, dec("0").Equal(rows[2].BookValue))
	assert.Equal(t, date(2024, 4, 10), rows[2].PeriodEnd)

	assert.Empty(t, Schedule(dec("1000"), dec("0"), 0, date(2024, 1, 10)))
}
