package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-workflow/internal/domain"
	"github.com/spec-kit/support-workflow/internal/events"
	"github.com/spec-kit/support-workflow/internal/repository"
)

type fakeTicketRepo struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]domain.Ticket

	// failUpdates makes the next N Update calls report a version conflict
	// regardless of the stored version.
	failUpdates int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]domain.Ticket)}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	now := time.Now()
	ticket.ID = fmt.Sprintf("ticket-%d", r.seq)
	ticket.OpenedAt = now
	ticket.Version = 1
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := stored
	return &copied, nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdates > 0 {
		r.failUpdates--
		return repository.ErrVersionConflict
	}
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != ticket.Version {
		return repository.ErrVersionConflict
	}
	ticket.Version++
	ticket.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := r.matching(filter)

	offset := filter.Offset
	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r *fakeTicketRepo) CountWithFilter(_ context.Context, filter repository.TicketFilter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.matching(filter)), nil
}

func (r *fakeTicketRepo) ListResolvedBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.Status != domain.TicketStatusResolved || ticket.ResolvedAt == nil {
			continue
		}
		if ticket.ResolvedAt.Before(cutoff) {
			result = append(result, ticket)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ResolvedAt.Before(*result[j].ResolvedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *fakeTicketRepo) matching(filter repository.TicketFilter) []domain.Ticket {
	var matched []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.CustomerID != nil && ticket.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.AssignedAdminID != nil &&
			(ticket.AssignedAdminID == nil || *ticket.AssignedAdminID != *filter.AssignedAdminID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if len(filter.Categories) > 0 && !containsCategory(filter.Categories, ticket.Category) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
			continue
		}
		matched = append(matched, ticket)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].OpenedAt.After(matched[j].OpenedAt) })
	return matched
}

func containsStatus(list []domain.TicketStatus, v domain.TicketStatus) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsCategory(list []domain.TicketCategory, v domain.TicketCategory) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, v domain.TicketPriority) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	seq      int
	messages []domain.Message
}

func (r *fakeMessageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	msg.ID = fmt.Sprintf("msg-%d", r.seq)
	msg.CreatedAt = time.Now()
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *fakeMessageRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Message
	for _, msg := range r.messages {
		if msg.TicketID == ticketID {
			result = append(result, msg)
		}
	}
	return result, nil
}

type fakeAttachmentRepo struct {
	mu          sync.Mutex
	seq         int
	attachments []domain.Attachment
}

func (r *fakeAttachmentRepo) Create(_ context.Context, attachment *domain.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	attachment.ID = fmt.Sprintf("att-%d", r.seq)
	attachment.CreatedAt = time.Now()
	r.attachments = append(r.attachments, *attachment)
	return nil
}

func (r *fakeAttachmentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Attachment
	for _, att := range r.attachments {
		if att.TicketID != nil && *att.TicketID == ticketID {
			result = append(result, att)
		}
	}
	return result, nil
}

func (r *fakeAttachmentRepo) ListByMessage(_ context.Context, messageID string) ([]domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Attachment
	for _, att := range r.attachments {
		if att.MessageID != nil && *att.MessageID == messageID {
			result = append(result, att)
		}
	}
	return result, nil
}

type fakeTimelineRepo struct {
	mu     sync.Mutex
	seq    int
	events []domain.TimelineEvent

	// failures makes the next N Create calls fail.
	failures int
}

func (r *fakeTimelineRepo) Create(_ context.Context, event *domain.TimelineEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return errTimelineDown
	}
	r.seq++
	event.ID = fmt.Sprintf("tl-%d", r.seq)
	event.CreatedAt = time.Now()
	r.events = append(r.events, *event)
	return nil
}

func (r *fakeTimelineRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TimelineEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.TimelineEvent
	for _, event := range r.events {
		if event.TicketID == ticketID {
			result = append(result, event)
		}
	}
	return result, nil
}

var errTimelineDown = errors.New("timeline insert failed")

// fakeTxManager mirrors the transactional contract over the in-memory
// stores: the outermost WithinTx snapshots them and restores the snapshot
// when the function fails. Nested calls join the open transaction.
type fakeTxManager struct {
	tickets     *fakeTicketRepo
	messages    *fakeMessageRepo
	attachments *fakeAttachmentRepo
	timeline    *fakeTimelineRepo
	depth       int
}

type txSnapshot struct {
	tickets     map[string]domain.Ticket
	ticketSeq   int
	messages    []domain.Message
	messageSeq  int
	attachments []domain.Attachment
	attachSeq   int
	timeline    []domain.TimelineEvent
	timelineSeq int
}

func (m *fakeTxManager) WithinTx(ctx context.Context, fn func(context.Context) error) error {
	if m.depth > 0 {
		m.depth++
		err := fn(ctx)
		m.depth--
		return err
	}
	snap := m.snapshot()
	m.depth = 1
	err := fn(ctx)
	m.depth = 0
	if err != nil {
		m.restore(snap)
	}
	return err
}

func (m *fakeTxManager) snapshot() txSnapshot {
	tickets := make(map[string]domain.Ticket, len(m.tickets.tickets))
	for id, ticket := range m.tickets.tickets {
		tickets[id] = ticket
	}
	return txSnapshot{
		tickets:     tickets,
		ticketSeq:   m.tickets.seq,
		messages:    append([]domain.Message(nil), m.messages.messages...),
		messageSeq:  m.messages.seq,
		attachments: append([]domain.Attachment(nil), m.attachments.attachments...),
		attachSeq:   m.attachments.seq,
		timeline:    append([]domain.TimelineEvent(nil), m.timeline.events...),
		timelineSeq: m.timeline.seq,
	}
}

func (m *fakeTxManager) restore(snap txSnapshot) {
	m.tickets.tickets = snap.tickets
	m.tickets.seq = snap.ticketSeq
	m.messages.messages = snap.messages
	m.messages.seq = snap.messageSeq
	m.attachments.attachments = snap.attachments
	m.attachments.seq = snap.attachSeq
	m.timeline.events = snap.timeline
	m.timeline.seq = snap.timelineSeq
}

type fakeUserRepo struct {
	users map[string]domain.User
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}

type fixture struct {
	tickets     *fakeTicketRepo
	messages    *fakeMessageRepo
	attachments *fakeAttachmentRepo
	timeline    *fakeTimelineRepo
	users       *fakeUserRepo
	txm         *fakeTxManager
	dispatcher  *recordingDispatcher

	workflow    *WorkflowService
	messageSvc  *MessageService
	assignments *AssignmentService
}

func newFixture() *fixture {
	f := &fixture{
		tickets:     newFakeTicketRepo(),
		messages:    &fakeMessageRepo{},
		attachments: &fakeAttachmentRepo{},
		timeline:    &fakeTimelineRepo{},
		users: &fakeUserRepo{users: map[string]domain.User{
			"admin-1":    {ID: "admin-1", Name: "Ada", Role: domain.RoleAdmin},
			"admin-2":    {ID: "admin-2", Name: "Bo", Role: domain.RoleAdmin},
			"customer-1": {ID: "customer-1", Name: "Cleo", Role: domain.RoleCustomer},
			"customer-2": {ID: "customer-2", Name: "Dee", Role: domain.RoleCustomer},
		}},
		dispatcher: &recordingDispatcher{},
	}
	f.txm = &fakeTxManager{
		tickets:     f.tickets,
		messages:    f.messages,
		attachments: f.attachments,
		timeline:    f.timeline,
	}
	f.workflow = NewWorkflowService(WorkflowDependencies{
		TicketRepo:     f.tickets,
		MessageRepo:    f.messages,
		AttachmentRepo: f.attachments,
		TimelineRepo:   f.timeline,
		UserRepo:       f.users,
		TxManager:      f.txm,
		Dispatcher:     f.dispatcher,
	})
	f.messageSvc = NewMessageService(MessageDependencies{
		TicketRepo:     f.tickets,
		MessageRepo:    f.messages,
		AttachmentRepo: f.attachments,
		Workflow:       f.workflow,
		TxManager:      f.txm,
		Dispatcher:     f.dispatcher,
	})
	f.assignments = NewAssignmentService(f.workflow)
	return f
}

var (
	adminActor    = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin, Name: "Ada"}
	customerActor = domain.Actor{ID: "customer-1", Role: domain.RoleCustomer, Name: "Cleo"}
)

func (f *fixture) openTicket(ctx context.Context) *domain.Ticket {
	ticket, err := f.workflow.CreateTicket(ctx, customerActor, TicketCreateInput{
		Category:    domain.CategoryServiceQuality,
		Priority:    domain.PriorityNormal,
		Summary:     "cleaner arrived late",
		Description: "the cleaner showed up two hours after the booked slot",
	})
	if err != nil {
		panic(err)
	}
	return ticket
}

func (f *fixture) timelineFor(ticketID string) []domain.TimelineEvent {
	entries, _ := f.timeline.ListByTicket(context.Background(), ticketID)
	return entries
}

func statusPtr(s domain.TicketStatus) *domain.TicketStatus {
	return &s
}

func priorityPtr(p domain.TicketPriority) *domain.TicketPriority {
	return &p
}

func strPtr(s string) *string {
	return &s
}
