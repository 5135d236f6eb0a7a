package tickets

import (
	"context"
	"fmt"
	"time"

	"helpdesk/internal/repository"
	custom_error "helpdesk/pkg/errors"

	"github.com/doug-martin/goqu/v9"
)

type TicketRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *TicketRepository {
	return &TicketRepository{repository: r}
}

var filterAliases = map[string]string{
	"status":      "t.status",
	"priority":    "t.priority",
	"category":    "t.category",
	"assignee_id": "t.assignee_id",
	"reporter_id": "t.reporter_id",
}

func (r *TicketRepository) prepareTicketQuery() *goqu.SelectDataset {
	return r.repository.GoquDBWrapper.
		From(goqu.T("tickets").As("t")).
		LeftJoin(goqu.T("profiles").As("rp"), goqu.On(goqu.Ex{"t.reporter_id": goqu.I("rp.id")})).
		LeftJoin(goqu.T("profiles").As("ap"), goqu.On(goqu.Ex{"t.assignee_id": goqu.I("ap.id")})).
		LeftJoin(goqu.T("assets").As("a"), goqu.On(goqu.Ex{"t.asset_id": goqu.I("a.id")})).
		Select(
			goqu.I("t.id"),
			goqu.I("t.number"),
			goqu.I("t.title"),
			goqu.I("t.description"),
			goqu.I("t.category"),
			goqu.I("t.priority"),
			goqu.I("t.status"),
			goqu.I("t.reporter_id"),
			goqu.I("rp.username").As("reporter_username"),
			goqu.I("rp.full_name").As("reporter_full_name"),
			goqu.I("rp.phone").As("reporter_phone"),
			goqu.I("t.assignee_id"),
			goqu.I("ap.username").As("assignee_username"),
			goqu.I("ap.full_name").As("assignee_full_name"),
			goqu.I("ap.phone").As("assignee_phone"),
			goqu.I("t.asset_id"),
			goqu.I("a.code").As("asset_code"),
			goqu.I("t.attachment_url"),
			goqu.I("t.resolved_at"),
			goqu.I("t.closed_at"),
			goqu.I("t.created_at"),
			goqu.I("t.updated_at"),
		)
}

func (r *TicketRepository) GetTickets(ctx context.Context, filter TicketFilter) ([]Ticket, int64, error) {
	query := r.prepareTicketQuery()

	qb := repository.NewQueryBuilder()
	qb.AddCondition("status", filter.Status)
	qb.AddCondition("priority", filter.Priority)
	qb.AddCondition("category", filter.Category)
	qb.AddCondition("assignee_id", filter.AssigneeID)
	qb.AddCondition("reporter_id", filter.ReporterID)
	if !qb.IsEmpty() {
		query = query.Where(qb.BuildConditions(filterAliases))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(goqu.Or(goqu.I("t.number").ILike(pattern), goqu.I("t.title").ILike(pattern)))
	}

	total, err := query.ClearSelect().CountContext(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to count tickets: %w", err)
	}

	var flat []FlatTicketRecord
	if err := filter.Page.Apply(query.Order(goqu.I("t.id").Desc())).Executor().ScanStructsContext(ctx, &flat); err != nil {
		return nil, 0, fmt.Errorf("unable to execute SQL: %w", err)
	}

	tickets := make([]Ticket, len(flat))
	for i := range flat {
		tickets[i] = flat[i].TransformToTicket()
	}
	return tickets, total, nil
}

func (r *TicketRepository) GetTicket(ctx context.Context, id int) (*Ticket, error) {
	var flat FlatTicketRecord
	found, err := r.prepareTicketQuery().Where(goqu.Ex{"t.id": id}).Executor().ScanStructContext(ctx, &flat)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}

	t := flat.TransformToTicket()
	return &t, nil
}

func (r *TicketRepository) LastNumber(ctx context.Context, base string) (string, error) {
	return repository.LastNumber(ctx, r.repository.GoquDBWrapper, "tickets", "number", base)
}

func (r *TicketRepository) PersistTicket(ctx context.Context, t *Ticket) error {
	row := goqu.Record{
		"number":      t.Number,
		"title":       t.Title,
		"description": t.Description,
		"category":    t.Category,
		"priority":    string(t.Priority),
		"status":      string(t.Status),
		"reporter_id": t.ReporterID(),
		"asset_id":    t.AssetID,
	}
	if t.Assignee != nil {
		row["assignee_id"] = t.Assignee.ID
	}

	query := r.repository.GoquDBWrapper.Insert("tickets").Rows(row).Returning("id")
	if _, err := query.Executor().ScanValContext(ctx, &t.ID); err != nil {
		return custom_error.WrapDBError("failed to insert ticket", err)
	}
	return nil
}

func (r *TicketRepository) UpdateTicket(ctx context.Context, t *Ticket) error {
	result, err := r.repository.GoquDBWrapper.Update("tickets").
		Set(goqu.Record{
			"title":       t.Title,
			"description": t.Description,
			"category":    t.Category,
			"priority":    string(t.Priority),
			"asset_id":    t.AssetID,
			"updated_at":  time.Now(),
		}).
		Where(goqu.Ex{"id": t.ID}).
		Executor().ExecContext(ctx)
	if err != nil {
		return custom_error.WrapDBError("failed to update ticket", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TicketRepository) UpdateAssignee(ctx context.Context, id int, assigneeID int) error {
	result, err := r.repository.GoquDBWrapper.Update("tickets").
		Set(goqu.Record{"assignee_id": assigneeID, "updated_at": time.Now()}).
		Where(goqu.Ex{"id": id}).
		Executor().ExecContext(ctx)
	if err != nil {
		return custom_error.WrapDBError("failed to assign ticket", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus changes the status only if it is still from. Resolving
// stamps resolved_at, closing stamps closed_at and reopening clears both.
func (r *TicketRepository) UpdateStatus(ctx context.Context, id int, from, to Status, at time.Time) error {
	record := goqu.Record{"status": string(to), "updated_at": at}
	switch to {
	case StatusResolved:
		record["resolved_at"] = at
	case StatusClosed:
		record["closed_at"] = at
	default:
		record["resolved_at"] = nil
		record["closed_at"] = nil
	}

	result, err := r.repository.GoquDBWrapper.Update("tickets").
		Set(record).
		Where(goqu.Ex{"id": id, "status": string(from)}).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to update ticket status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrStale
	}
	return nil
}

func (r *TicketRepository) UpdateAttachment(ctx context.Context, id int, url string) error {
	_, err := r.repository.GoquDBWrapper.Update("tickets").
		Set(goqu.Record{"attachment_url": url, "updated_at": time.Now()}).
		Where(goqu.Ex{"id": id}).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to update ticket attachment: %w", err)
	}
	return nil
}

func (r *TicketRepository) RemoveTicket(ctx context.Context, id int) error {
	return repository.WithTransaction(ctx, r.repository.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		if _, err := tx.Delete("ticket_comments").
			Where(goqu.Ex{"ticket_id": id}).
			Executor().ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to delete ticket comments: %w", err)
		}

		result, err := tx.Delete("tickets").Where(goqu.Ex{"id": id}).Executor().ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete ticket: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GetWorkload lists active technicians ordered by id with the number of
// their open and in-progress tickets.
func (r *TicketRepository) GetWorkload(ctx context.Context) ([]Workload, error) {
	open := make([]interface{}, len(OpenStatuses))
	for i, s := range OpenStatuses {
		open[i] = string(s)
	}

	query := r.repository.GoquDBWrapper.
		From(goqu.T("profiles").As("p")).
		LeftJoin(goqu.T("tickets").As("t"), goqu.On(
			goqu.Ex{"t.assignee_id": goqu.I("p.id")},
			goqu.I("t.status").In(open...),
		)).
		Select(
			goqu.I("p.id").As("technician_id"),
			goqu.I("p.full_name"),
			goqu.I("p.phone"),
			goqu.COUNT(goqu.I("t.id")).As("open_tickets"),
		).
		Where(goqu.Ex{"p.role": "technician", "p.is_active": true}).
		GroupBy(goqu.I("p.id"), goqu.I("p.full_name"), goqu.I("p.phone")).
		Order(goqu.I("p.id").Asc())

	load := []Workload{}
	if err := query.Executor().ScanStructsContext(ctx, &load); err != nil {
		return nil, fmt.Errorf("unable to load technician workload: %w", err)
	}
	return load, nil
}

func (r *TicketRepository) PersistComment(ctx context.Context, ticketID, userID int, content string) (int, error) {
	var id int
	_, err := r.repository.GoquDBWrapper.Insert("ticket_comments").
		Rows(goqu.Record{"ticket_id": ticketID, "user_id": userID, "content": content}).
		Returning("id").
		Executor().ScanValContext(ctx, &id)
	if err != nil {
		return 0, custom_error.WrapDBError("failed to insert comment", err)
	}
	return id, nil
}

func (r *TicketRepository) prepareCommentQuery() *goqu.SelectDataset {
	return r.repository.GoquDBWrapper.
		From(goqu.T("ticket_comments").As("tc")).
		LeftJoin(goqu.T("profiles").As("cu"), goqu.On(goqu.Ex{"tc.user_id": goqu.I("cu.id")})).
		Select(
			goqu.I("tc.id"),
			goqu.I("tc.ticket_id"),
			goqu.I("tc.content"),
			goqu.I("tc.user_id"),
			goqu.COALESCE(goqu.I("cu.username"), "").As("comment_user_username"),
			goqu.COALESCE(goqu.I("cu.full_name"), "").As("comment_user_full_name"),
			goqu.I("tc.created_at"),
		)
}

func (r *TicketRepository) GetComment(ctx context.Context, id int) (*Comment, error) {
	var flat FlatComment
	found, err := r.prepareCommentQuery().Where(goqu.Ex{"tc.id": id}).Executor().ScanStructContext(ctx, &flat)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("comment %d not found", id)
	}

	c := flat.TransformToComment()
	return &c, nil
}

func (r *TicketRepository) GetComments(ctx context.Context, ticketID int) ([]Comment, error) {
	var flat []FlatComment
	query := r.prepareCommentQuery().Where(goqu.Ex{"tc.ticket_id": ticketID}).Order(goqu.I("tc.id").Asc())
	if err := query.Executor().ScanStructsContext(ctx, &flat); err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}

	comments := make([]Comment, len(flat))
	for i := range flat {
		comments[i] = flat[i].TransformToComment()
	}
	return comments, nil
}
