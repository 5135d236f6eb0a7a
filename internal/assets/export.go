package assets

import (
	"context"
	"time"

	"helpdesk/internal/reports"

	"github.com/shopspring/decimal"
)

type SheetPusher interface {
	Push(ctx context.Context, doc reports.Document) error
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

// RegisterDocument is the asset register: one row per asset.
func (s *AssetService) RegisterDocument(ctx context.Context, filter AssetFilter) (reports.Document, error) {
	assets, err := s.store.GetAllAssets(ctx, filter)
	if err != nil {
		return reports.Document{}, err
	}

	doc := reports.Document{
		Sheet:   "Assets",
		Headers: []string{"Code", "Name", "Category", "Location", "Brand", "Model", "Serial", "Purchase date", "Purchase price", "Status", "Condition", "Origin"},
		Rows:    make([][]interface{}, 0, len(assets)),
	}
	for _, a := range assets {
		location := ""
		if a.Location != nil {
			location = a.Location.Name
		}
		doc.Rows = append(doc.Rows, []interface{}{
			a.Code, a.Name, a.Category.Name, location,
			optional(a.Brand), optional(a.Model), optional(a.SerialNumber),
			formatDate(a.PurchaseDate), a.PurchasePrice.StringFixed(2),
			string(a.Status), string(a.Condition), a.Origin.Label(),
		})
	}

	return doc, nil
}

// DepreciationDocument values every asset with a purchase date at asOf.
func (s *AssetService) DepreciationDocument(ctx context.Context, filter AssetFilter, asOf time.Time) (reports.Document, error) {
	assets, err := s.store.GetAllAssets(ctx, filter)
	if err != nil {
		return reports.Document{}, err
	}

	doc := reports.Document{
		Sheet:   "Depreciation",
		Heading: []string{"Asset depreciation report", "As of " + asOf.Format(dateLayout)},
		Headers: []string{"Code", "Name", "Purchase date", "Price", "Salvage", "Life (months)", "Months elapsed", "Monthly", "Accumulated", "Book value"},
	}

	totalPrice, totalBook := decimal.Zero, decimal.Zero
	for _, a := range assets {
		if a.PurchaseDate == nil {
			continue
		}
		d := CalculateDepreciation(a.PurchasePrice, a.SalvageValue, a.UsefulLifeMonths, *a.PurchaseDate, asOf)
		totalPrice = totalPrice.Add(a.PurchasePrice)
		totalBook = totalBook.Add(d.BookValue)

		doc.Rows = append(doc.Rows, []interface{}{
			a.Code, a.Name, formatDate(a.PurchaseDate),
			a.PurchasePrice.StringFixed(2), a.SalvageValue.StringFixed(2),
			a.UsefulLifeMonths, d.MonthsElapsed,
			d.MonthlyDepreciation.StringFixed(2), d.AccumulatedDepreciation.StringFixed(2), d.BookValue.StringFixed(2),
		})
	}
	doc.Footer = []string{
		"Total purchase price: " + totalPrice.StringFixed(2),
		"Total book value: " + totalBook.StringFixed(2),
	}

	return doc, nil
}

func (s *AssetService) SyncRegister(ctx context.Context, sheets SheetPusher) (int, error) {
	doc, err := s.RegisterDocument(ctx, AssetFilter{})
	if err != nil {
		return 0, err
	}
	if err := sheets.Push(ctx, doc); err != nil {
		return 0, err
	}
	return len(doc.Rows), nil
}
