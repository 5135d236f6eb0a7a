package purchase

import (
	"context"
	"strings"

	"helpdesk/internal/reports"
)

func (s *Service) Document(ctx context.Context, id int) (reports.Document, string, error) {
	pr, err := s.store.GetPurchaseRequest(ctx, id)
	if err != nil {
		return reports.Document{}, "", err
	}

	supplier := ""
	if pr.Supplier != nil {
		supplier = *pr.Supplier
	}

	doc := reports.Document{
		Sheet: "Purchase Request",
		Heading: []string{
			"PENGAJUAN PEMBELIAN ATK",
			"Nomor: " + pr.Number,
			"Tanggal: " + pr.CreatedAt.Format("2006-01-02"),
			"Pemohon: " + pr.RequestedByName,
			"Pemasok: " + supplier,
		},
		Headers: []string{"No", "Kode", "Nama Barang", "Satuan", "Jumlah", "Harga Satuan", "Subtotal"},
		Rows:    make([][]interface{}, 0, len(pr.Items)),
		Footer:  []string{"Total: Rp " + pr.Total.StringFixed(2)},
	}
	for i, item := range pr.Items {
		doc.Rows = append(doc.Rows, []interface{}{
			i + 1, item.ItemCode, item.ItemName, item.Unit, item.Quantity,
			item.UnitPrice.StringFixed(2), item.Subtotal().StringFixed(2),
		})
	}

	return doc, strings.ReplaceAll(pr.Number, "/", "-") + ".xlsx", nil
}
