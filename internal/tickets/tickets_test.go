package tickets

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"helpdesk/internal/auditlog"
	"helpdesk/internal/cache"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetTickets(ctx context.Context, filter TicketFilter) ([]Ticket, int64, error) {
	args := m.Called(filter)
	return args.Get(0).([]Ticket), int64(args.Int(1)), args.Error(2)
}

func (m *MockStore) GetTicket(ctx context.Context, id int) (*Ticket, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	t := *args.Get(0).(*Ticket)
	return &t, args.Error(1)
}

func (m *MockStore) LastNumber(ctx context.Context, base string) (string, error) {
	args := m.Called(base)
	return args.String(0), args.Error(1)
}

func (m *MockStore) PersistTicket(ctx context.Context, t *Ticket) error {
	args := m.Called(t)
	t.ID = 55
	return args.Error(0)
}

func (m *MockStore) UpdateTicket(ctx context.Context, t *Ticket) error {
	return m.Called(t).Error(0)
}

func (m *MockStore) UpdateAssignee(ctx context.Context, id int, assigneeID int) error {
	return m.Called(id, assigneeID).Error(0)
}

func (m *MockStore) UpdateStatus(ctx context.Context, id int, from, to Status, at time.Time) error {
	return m.Called(id, from, to, at).Error(0)
}

func (m *MockStore) UpdateAttachment(ctx context.Context, id int, url string) error {
	return m.Called(id, url).Error(0)
}

func (m *MockStore) RemoveTicket(ctx context.Context, id int) error {
	return m.Called(id).Error(0)
}

func (m *MockStore) GetWorkload(ctx context.Context) ([]Workload, error) {
	args := m.Called()
	return args.Get(0).([]Workload), args.Error(1)
}

func (m *MockStore) PersistComment(ctx context.Context, ticketID, userID int, content string) (int, error) {
	args := m.Called(ticketID, userID, content)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) GetComment(ctx context.Context, id int) (*Comment, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Comment), args.Error(1)
}

func (m *MockStore) GetComments(ctx context.Context, ticketID int) ([]Comment, error) {
	args := m.Called(ticketID)
	return args.Get(0).([]Comment), args.Error(1)
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent map[string][]string
}

func (r *recordingPublisher) Notify(phone string, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sent == nil {
		r.sent = map[string][]string{}
	}
	r.sent[phone] = append(r.sent[phone], message)
}

var now = time.Date(2026, 3, 7, 9, 15, 0, 0, time.UTC)

func newTestService(store Store, pub *recordingPublisher) *Service {
	s := NewService(store, nil, pub, auditlog.Discard{}, cache.NewInvalidator(cache.NewMemoryStore(), zap.NewNop()), zap.NewNop())
	s.now = func() time.Time { return now }
	return s
}

func phone(s string) *string { return &s }

func TestLeastBusy(t *testing.T) {
	tests := []struct {
		name string
		load []Workload
		want int
	}{
		{"empty", nil, 0},
		{"single", []Workload{{TechnicianID: 4, Open: 9}}, 4},
		{"lowest wins", []Workload{{TechnicianID: 1, Open: 3}, {TechnicianID: 2, Open: 1}, {TechnicianID: 3, Open: 2}}, 2},
		{"tie keeps first", []Workload{{TechnicianID: 1, Open: 2}, {TechnicianID: 2, Open: 0}, {TechnicianID: 3, Open: 0}}, 2},
		{"all idle", []Workload{{TechnicianID: 5}, {TechnicianID: 6}}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LeastBusy(tt.load)
			if tt.want == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.TechnicianID)
		})
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusOpen, StatusInProgress, true},
		{StatusOpen, StatusClosed, true},
		{StatusInProgress, StatusResolved, true},
		{StatusInProgress, StatusClosed, false},
		{StatusResolved, StatusInProgress, true},
		{StatusResolved, StatusClosed, true},
		{StatusClosed, StatusOpen, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestNewPriority(t *testing.T) {
	p, err := NewPriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, p)

	_, err = NewPriority("critical")
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestCreateAutoAssignsLeastBusy(t *testing.T) {
	store := new(MockStore)
	store.On("GetWorkload").Return([]Workload{
		{TechnicianID: 1, FullName: "Budi", Phone: phone("0811"), Open: 3},
		{TechnicianID: 2, FullName: "Sari", Phone: phone("0822"), Open: 1},
	}, nil)
	store.On("LastNumber", "TKT-20260307-").Return("TKT-20260307-0004", nil)
	store.On("PersistTicket", mock.MatchedBy(func(t *Ticket) bool {
		return t.Number == "TKT-20260307-0005" && t.AssigneeID() == 2 && t.ReporterID() == 8 &&
			t.Status == StatusOpen && t.Priority == PriorityMedium
	})).Return(nil)
	store.On("GetTicket", 55).Return(&Ticket{ID: 55, Number: "TKT-20260307-0005"}, nil)

	pub := &recordingPublisher{}
	req := CreateTicketRequest{Title: " Printer macet ", Description: "Lantai 2", Category: CategoryHardware}
	ticket, err := newTestService(store, pub).Create(context.Background(), req, 8, 8)

	require.NoError(t, err)
	assert.Equal(t, 55, ticket.ID)
	require.Len(t, pub.sent["0822"], 1)
	assert.Contains(t, pub.sent["0822"][0], "TKT-20260307-0005")
	store.AssertExpectations(t)
}

func TestCreateWithoutTechniciansStaysUnassigned(t *testing.T) {
	store := new(MockStore)
	store.On("GetWorkload").Return([]Workload{}, nil)
	store.On("LastNumber", "TKT-20260307-").Return("", nil)
	store.On("PersistTicket", mock.MatchedBy(func(t *Ticket) bool {
		return t.Assignee == nil && t.Number == "TKT-20260307-0001"
	})).Return(nil)
	store.On("GetTicket", 55).Return(&Ticket{ID: 55}, nil)

	pub := &recordingPublisher{}
	req := CreateTicketRequest{Title: "VPN", Description: "Tidak bisa login", Category: CategoryNetwork, Priority: "high"}
	_, err := newTestService(store, pub).Create(context.Background(), req, 8, 8)

	require.NoError(t, err)
	assert.Empty(t, pub.sent)
}

func TestCreateRejectsUnknownAssigneeAndCategory(t *testing.T) {
	store := new(MockStore)
	store.On("GetWorkload").Return([]Workload{{TechnicianID: 1}}, nil)
	s := newTestService(store, &recordingPublisher{})

	assignee := 9
	_, err := s.Create(context.Background(), CreateTicketRequest{Title: "x", Description: "y", Category: CategoryOther, AssigneeID: &assignee}, 8, 8)
	assert.ErrorIs(t, err, ErrNotTechnician)

	_, err = s.Create(context.Background(), CreateTicketRequest{Title: "x", Description: "y", Category: "coffee"}, 8, 8)
	assert.ErrorIs(t, err, ErrInvalidCategory)

	store.AssertNotCalled(t, "PersistTicket", mock.Anything)
}

func TestChangeStatusResolveNotifiesReporter(t *testing.T) {
	store := new(MockStore)
	store.On("GetTicket", 5).Return(&Ticket{ID: 5, Number: "TKT-20260307-0001", Status: StatusInProgress, reporterPhone: "0812"}, nil)
	store.On("UpdateStatus", 5, StatusInProgress, StatusResolved, now).Return(nil)

	pub := &recordingPublisher{}
	ticket, err := newTestService(store, pub).ChangeStatus(context.Background(), 5, "resolved", 2)

	require.NoError(t, err)
	assert.Equal(t, StatusResolved, ticket.Status)
	require.NotNil(t, ticket.ResolvedAt)
	require.Len(t, pub.sent["0812"], 1)
	assert.Contains(t, pub.sent["0812"][0], "diselesaikan")
}

func TestChangeStatusRejectsInvalidTransition(t *testing.T) {
	store := new(MockStore)
	store.On("GetTicket", 5).Return(&Ticket{ID: 5, Status: StatusClosed}, nil)

	_, err := newTestService(store, &recordingPublisher{}).ChangeStatus(context.Background(), 5, "open", 2)

	var te *TransitionError
	assert.ErrorAs(t, err, &te)
	store.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateOnlyByReporterWhileOpen(t *testing.T) {
	store := new(MockStore)
	store.On("GetTicket", 5).Return(&Ticket{ID: 5, Status: StatusInProgress, Reporter: &User{ID: 8}}, nil)
	s := newTestService(store, &recordingPublisher{})
	req := UpdateTicketRequest{Title: "a", Description: "b", Category: CategorySoftware}

	_, err := s.Update(context.Background(), 5, req, 8, false)
	assert.ErrorIs(t, err, ErrForbidden)

	store.On("UpdateTicket", mock.Anything).Return(nil)
	_, err = s.Update(context.Background(), 5, req, 2, true)
	assert.NoError(t, err)
}

func TestAddComment(t *testing.T) {
	store := new(MockStore)
	ticket := &Ticket{ID: 5, Number: "TKT-20260307-0001", Status: StatusOpen, Reporter: &User{ID: 8}, Assignee: &User{ID: 2}, reporterPhone: "0812", assigneePhone: "0822"}
	store.On("GetTicket", 5).Return(ticket, nil)
	store.On("PersistComment", 5, 8, "Masih error").Return(31, nil)
	store.On("GetComment", 31).Return(&Comment{ID: 31, Content: "Masih error"}, nil)

	pub := &recordingPublisher{}
	s := newTestService(store, pub)

	comment, err := s.AddComment(context.Background(), 5, "  Masih error ", 8, false)
	require.NoError(t, err)
	assert.Equal(t, 31, comment.ID)
	assert.Len(t, pub.sent["0822"], 1)

	_, err = s.AddComment(context.Background(), 5, "   ", 8, false)
	assert.ErrorIs(t, err, ErrEmptyComment)

	_, err = s.AddComment(context.Background(), 5, "halo", 9, false)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAddCommentOnClosedTicket(t *testing.T) {
	store := new(MockStore)
	store.On("GetTicket", 5).Return(&Ticket{ID: 5, Status: StatusClosed, Reporter: &User{ID: 8}}, nil)

	_, err := newTestService(store, &recordingPublisher{}).AddComment(context.Background(), 5, "halo", 8, false)

	assert.ErrorIs(t, err, ErrClosed)
}

func TestAssignRequiresTechnician(t *testing.T) {
	store := new(MockStore)
	store.On("GetTicket", 5).Return(&Ticket{ID: 5, Number: "TKT-20260307-0001", Status: StatusOpen}, nil)
	store.On("GetWorkload").Return([]Workload{{TechnicianID: 2, Phone: phone("0822")}}, nil)
	store.On("UpdateAssignee", 5, 2).Return(nil)

	pub := &recordingPublisher{}
	s := newTestService(store, pub)

	_, err := s.Assign(context.Background(), 5, 7, 1)
	assert.ErrorIs(t, err, ErrNotTechnician)

	_, err = s.Assign(context.Background(), 5, 2, 1)
	require.NoError(t, err)
	assert.Len(t, pub.sent["0822"], 1)
}

func TestGetTicketHandlerForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := new(MockStore)
	store.On("GetTicket", 5).Return(&Ticket{ID: 5, Reporter: &User{ID: 8}}, nil)
	handler := NewHandler(newTestService(store, &recordingPublisher{}), 1<<20)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("userID", "3")
	c.Set("role", "staff")
	c.Params = gin.Params{{Key: "id", Value: "5"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/tickets/5", nil)

	handler.GetTicket(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestChangeStatusHandlerBadStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(newTestService(new(MockStore), &recordingPublisher{}), 1<<20)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("userID", "2")
	c.Set("role", "technician")
	c.Params = gin.Params{{Key: "id", Value: "5"}}
	c.Request = httptest.NewRequest(http.MethodPatch, "/tickets/5/status", bytes.NewBufferString(`{"status":"done"}`))

	handler.ChangeStatus(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTicketsScopesStaff(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		userID interface{}
		code   int
	}{
		{"own records", "3", http.StatusOK},
		{"missing user id", nil, http.StatusUnauthorized},
		{"malformed user id", "abc", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			store.On("GetTickets", mock.MatchedBy(func(f TicketFilter) bool {
				return f.ReporterID == 3
			})).Return([]Ticket{}, 0, nil)
			handler := NewHandler(newTestService(store, &recordingPublisher{}), 1<<20)

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			if tt.userID != nil {
				c.Set("userID", tt.userID)
			}
			c.Set("role", "staff")
			c.Request = httptest.NewRequest(http.MethodGet, "/tickets", nil)

			handler.GetTickets(c)

			assert.Equal(t, tt.code, w.Code)
			if tt.code != http.StatusOK {
				store.AssertNotCalled(t, "GetTickets", mock.Anything)
			}
		})
	}
}
