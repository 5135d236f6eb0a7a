package distribution

import (
	"context"
	"fmt"
	"strings"

	"helpdesk/internal/reports"
)

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Document renders the SBBK handover sheet of one distribution and returns
// it with a file name derived from the document number.
func (s *Service) Document(ctx context.Context, id int) (reports.Document, string, error) {
	d, err := s.store.GetDistribution(ctx, id)
	if err != nil {
		return reports.Document{}, "", err
	}

	doc := reports.Document{
		Sheet: "SBBK",
		Heading: []string{
			"SURAT BUKTI BARANG KELUAR",
			"Nomor: " + d.DocumentNumber,
			"Tanggal: " + d.DistributionDate.Format(dateLayout),
			"Dari: " + optional(d.FromLocationName),
			"Ke: " + d.ToLocationName,
			"Penerima: " + d.RecipientName,
		},
		Headers: []string{"No", "Kode Aset", "Nama Aset", "Serial", "Kondisi"},
		Rows:    make([][]interface{}, 0, len(d.Items)),
		Footer: []string{
			fmt.Sprintf("Jumlah aset: %d", len(d.Items)),
			"Diserahkan oleh: " + d.CreatedByName,
			"Diterima oleh: " + d.RecipientName,
		},
	}
	for i, item := range d.Items {
		doc.Rows = append(doc.Rows, []interface{}{
			i + 1, item.AssetCode, item.AssetName, optional(item.SerialNumber), item.Condition,
		})
	}

	return doc, strings.ReplaceAll(d.DocumentNumber, "/", "-") + ".xlsx", nil
}
