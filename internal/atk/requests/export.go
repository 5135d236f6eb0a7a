package requests

import (
	"context"
	"strings"

	"helpdesk/internal/reports"
)

// Document renders the SPB sheet. Approved quantities are blank until the
// request has been approved.
func (s *Service) Document(ctx context.Context, id int) (reports.Document, string, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return reports.Document{}, "", err
	}

	department := ""
	if req.Department != nil {
		department = *req.Department
	}

	doc := reports.Document{
		Sheet: "SPB",
		Heading: []string{
			"SURAT PERMINTAAN BARANG",
			"Nomor: " + req.Number,
			"Tanggal: " + req.CreatedAt.Format("2006-01-02"),
			"Pemohon: " + req.RequesterName,
			"Departemen: " + department,
			"Keperluan: " + req.Purpose,
		},
		Headers: []string{"No", "Kode", "Nama Barang", "Satuan", "Diminta", "Disetujui"},
		Rows:    make([][]interface{}, 0, len(req.Items)),
		Footer:  []string{"Status: " + string(req.Status)},
	}
	for i, line := range req.Items {
		var approved interface{} = ""
		if line.ApprovedQuantity != nil {
			approved = *line.ApprovedQuantity
		}
		doc.Rows = append(doc.Rows, []interface{}{i + 1, line.ItemCode, line.ItemName, line.Unit, line.Quantity, approved})
	}

	return doc, strings.ReplaceAll(req.Number, "/", "-") + ".xlsx", nil
}
