package dashboard

import (
	"context"
	"fmt"
	"time"

	"helpdesk/internal/atk/purchase"
	"helpdesk/internal/atk/requests"
	"helpdesk/internal/borrowing"
	"helpdesk/internal/repository"
	"helpdesk/internal/tickets"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

type DashboardRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *DashboardRepository {
	return &DashboardRepository{repository: r}
}

func (r *DashboardRepository) countByStatus(ctx context.Context, table string) (map[string]int64, error) {
	rows := []statusCount{}
	err := r.repository.GoquDBWrapper.From(table).
		Select(goqu.C("status"), goqu.COUNT("*").As("count")).
		GroupBy(goqu.C("status")).
		Executor().ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("unable to count %s by status: %w", table, err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *DashboardRepository) count(ctx context.Context, table string, where ...exp.Expression) (int64, error) {
	n, err := r.repository.GoquDBWrapper.From(table).Where(where...).CountContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("unable to count %s: %w", table, err)
	}
	return n, nil
}

func (r *DashboardRepository) GetSummary(ctx context.Context, today time.Time) (*Summary, error) {
	s := &Summary{}

	assets, err := r.countByStatus(ctx, "assets")
	if err != nil {
		return nil, err
	}
	s.AssetsByStatus = assets
	for _, n := range assets {
		s.TotalAssets += n
	}

	ticketCounts, err := r.countByStatus(ctx, "tickets")
	if err != nil {
		return nil, err
	}
	s.OpenTickets = ticketCounts[string(tickets.StatusOpen)]
	s.InProgressTickets = ticketCounts[string(tickets.StatusInProgress)]

	borrowings, err := r.countByStatus(ctx, "asset_borrowings")
	if err != nil {
		return nil, err
	}
	s.PendingBorrowings = borrowings[string(borrowing.StatusPending)]

	atkRequests, err := r.countByStatus(ctx, "atk_requests")
	if err != nil {
		return nil, err
	}
	s.PendingRequests = atkRequests[string(requests.StatusPending)]

	purchases, err := r.countByStatus(ctx, "atk_purchase_requests")
	if err != nil {
		return nil, err
	}
	s.PendingPurchases = purchases[string(purchase.StatusProcess)]

	if s.UnassignedTickets, err = r.count(ctx, "tickets",
		goqu.C("assignee_id").IsNull(),
		goqu.C("status").In(string(tickets.StatusOpen), string(tickets.StatusInProgress)),
	); err != nil {
		return nil, err
	}

	if s.OverdueBorrowings, err = r.count(ctx, "asset_borrowings",
		goqu.C("status").Eq(string(borrowing.StatusBorrowed)),
		goqu.C("due_date").Lt(today),
	); err != nil {
		return nil, err
	}

	if s.LowStockItems, err = r.count(ctx, "atk_items", goqu.C("stock").Lte(goqu.C("min_stock"))); err != nil {
		return nil, err
	}

	return s, nil
}
