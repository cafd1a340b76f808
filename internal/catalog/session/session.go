// Package session implements the transactional unit of work that captures
// domain events emitted by file aggregates, dispatches them to registered
// handlers, and projects audit trail and event history rows in the same
// transaction as the business mutation.
package session

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/filecatalog/internal/audit/domain"
	"github.com/allisson/filecatalog/internal/catalog/domain"
	"github.com/allisson/filecatalog/internal/database"
	apperrors "github.com/allisson/filecatalog/internal/errors"
)

// State tracks a session's position in its lifecycle.
type State int

const (
	StateCapturing State = iota
	StateCommitting
	StateDispatching
	StateCleared
	StateRolledBack
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateCapturing:
		return "capturing"
	case StateCommitting:
		return "committing"
	case StateDispatching:
		return "dispatching"
	case StateCleared:
		return "cleared"
	case StateRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Handler reacts to a dispatched domain event. Handlers run inside the
// session's transaction, so any state they persist commits atomically with
// the business write.
type Handler func(ctx context.Context, event domain.Event) error

// AuditLogRepository persists audit trail entries.
type AuditLogRepository interface {
	Create(ctx context.Context, auditLog *auditDomain.AuditLog) error
}

// EventLogRepository persists event history entries.
type EventLogRepository interface {
	Create(ctx context.Context, eventLog *auditDomain.EventLog) error
}

// Request identifies the caller of a unit of work for audit attribution.
type Request struct {
	RequestID string
	Actor     string
}

// Interceptor builds sessions around the transaction manager. Handlers are
// registered once at wiring time; each Save call runs in its own session, so
// there is no shared mutable state between concurrent units of work.
type Interceptor struct {
	txManager database.TxManager
	auditRepo AuditLogRepository
	eventRepo EventLogRepository
	handlers  map[string][]Handler
}

// NewInterceptor creates an interceptor with no registered handlers.
func NewInterceptor(txManager database.TxManager, auditRepo AuditLogRepository, eventRepo EventLogRepository) *Interceptor {
	return &Interceptor{
		txManager: txManager,
		auditRepo: auditRepo,
		eventRepo: eventRepo,
		handlers:  make(map[string][]Handler),
	}
}

// Register adds a handler for an event type. Not safe for concurrent use;
// call during wiring, before the first Save.
func (i *Interceptor) Register(eventType string, handler Handler) {
	i.handlers[eventType] = append(i.handlers[eventType], handler)
}

// Save runs one unit of work. It bumps the version of every tracked
// aggregate, executes the business write, dispatches the captured events,
// and projects audit and event history rows, all inside one transaction.
// A failure at any point rolls the transaction back and restores the
// captured versions, so a rejected save leaves the aggregates untouched.
func (i *Interceptor) Save(ctx context.Context, req Request, work func(ctx context.Context) error, files ...*domain.File) error {
	session := &session{
		interceptor: i,
		request:     req,
		files:       files,
		state:       StateCapturing,
		dispatched:  make(map[uuid.UUID]struct{}),
	}
	return session.run(ctx, work)
}

// versionSnapshot remembers an aggregate's version before the speculative
// bump so a rollback can restore it.
type versionSnapshot struct {
	file    *domain.File
	version int64
}

// session is the per-unit-of-work state. It carries its own pending-event
// bookkeeping so nothing leaks between saves.
type session struct {
	interceptor *Interceptor
	request     Request
	files       []*domain.File
	state       State
	snapshots   []versionSnapshot
	dispatched  map[uuid.UUID]struct{}
}

func (s *session) run(ctx context.Context, work func(ctx context.Context) error) error {
	s.capture()

	s.state = StateCommitting
	err := s.interceptor.txManager.WithTx(ctx, func(txCtx context.Context) error {
		// A busy retry rolls back everything the previous attempt wrote, so
		// each attempt starts with fresh dispatch bookkeeping. The aggregates
		// still hold their pending events until clear runs after commit.
		s.dispatched = make(map[uuid.UUID]struct{})
		s.state = StateCommitting
		if err := work(txCtx); err != nil {
			return err
		}
		s.state = StateDispatching
		return s.dispatch(txCtx)
	})
	if err != nil {
		s.rollback()
		return err
	}

	s.clear()
	return nil
}

// capture snapshots current versions and applies the speculative bump. The
// bump only becomes durable if the whole pipeline commits.
func (s *session) capture() {
	for _, file := range s.files {
		s.snapshots = append(s.snapshots, versionSnapshot{file: file, version: file.Version})
		file.Version++
	}
}

// dispatch drains pending events from all tracked aggregates. Handlers may
// emit further events, so the loop repeats until a pass finds nothing new.
// Each event is dispatched at most once per save cycle.
func (s *session) dispatch(ctx context.Context) error {
	for {
		events := s.collectPending()
		if len(events) == 0 {
			return nil
		}

		for _, event := range events {
			if err := s.dispatchEvent(ctx, event); err != nil {
				return err
			}
		}
	}
}

// collectPending gathers events not yet dispatched in this save cycle.
func (s *session) collectPending() []domain.Event {
	var events []domain.Event
	for _, file := range s.files {
		for _, event := range file.PendingEvents() {
			if _, seen := s.dispatched[event.ID]; seen {
				continue
			}
			s.dispatched[event.ID] = struct{}{}
			events = append(events, event)
		}
	}
	return events
}

func (s *session) dispatchEvent(ctx context.Context, event domain.Event) error {
	for _, handler := range s.interceptor.handlers[event.Type] {
		if err := handler(ctx, event); err != nil {
			return apperrors.Wrapf(err, "event handler failed for %s", event.Type)
		}
	}

	if operation, ok := operationFor(event.Type); ok {
		auditLog := auditDomain.NewAuditLog(s.request.RequestID, event.FileID, operation, s.request.Actor, event.Payload)
		if err := s.interceptor.auditRepo.Create(ctx, auditLog); err != nil {
			return err
		}
	}

	eventLog := auditDomain.NewEventLog(event.ID, event.Type, event.FileID, event.Payload, event.OccurredAt)
	return s.interceptor.eventRepo.Create(ctx, eventLog)
}

// clear drains the event queues of all tracked aggregates after a successful
// commit.
func (s *session) clear() {
	for _, file := range s.files {
		file.ClearEvents()
	}
	s.state = StateCleared
}

// rollback restores the captured versions. The transaction rollback already
// discarded the speculative audit and event history rows.
func (s *session) rollback() {
	for _, snapshot := range s.snapshots {
		snapshot.file.Version = snapshot.version
	}
	s.state = StateRolledBack
	slog.Debug("unit of work rolled back", "request_id", s.request.RequestID, "files", len(s.files))
}

// operationFor maps a domain event type to the audit operation it represents.
// Unknown event types get an event history entry but no audit row.
func operationFor(eventType string) (auditDomain.Operation, bool) {
	switch eventType {
	case domain.EventFileCreated:
		return auditDomain.OperationCreate, true
	case domain.EventFileUpdated:
		return auditDomain.OperationUpdate, true
	case domain.EventFileDeleted:
		return auditDomain.OperationDelete, true
	case domain.EventFileImported:
		return auditDomain.OperationImport, true
	default:
		return "", false
	}
}
