package dashboard

import "time"

// Summary is the landing page read model. It is cached as JSON, so every
// field needs a json tag.
type Summary struct {
	AssetsByStatus    map[string]int64 `json:"assets_by_status"`
	TotalAssets       int64            `json:"total_assets"`
	OpenTickets       int64            `json:"open_tickets"`
	InProgressTickets int64            `json:"in_progress_tickets"`
	UnassignedTickets int64            `json:"unassigned_tickets"`
	PendingBorrowings int64            `json:"pending_borrowings"`
	OverdueBorrowings int64            `json:"overdue_borrowings"`
	PendingRequests   int64            `json:"pending_requests"`
	PendingPurchases  int64            `json:"pending_purchases"`
	LowStockItems     int64            `json:"low_stock_items"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

type statusCount struct {
	Status string `db:"status"`
	Count  int64  `db:"count"`
}
