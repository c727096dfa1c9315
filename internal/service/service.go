// Package service implements the registration engine: the business rules for
// users, events and registrations, applied over an owned repository.Store.
//
// Every operation runs to completion synchronously and either commits fully or
// returns an *Error without touching state. The engine is not safe for
// concurrent use; callers serving several goroutines serialise access.
package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/eventreg/internal/audit"
	"github.com/Shivanand-hulikatti/eventreg/internal/model"
	"github.com/Shivanand-hulikatti/eventreg/internal/repository"
)

const (
	// RegistrationBuffer treats events starting this soon as already past.
	RegistrationBuffer = 5 * time.Minute
	// CancellationWindow is how long before the start cancellation closes.
	CancellationWindow = time.Hour
)

// Audit table names.
const (
	TableUsers          = "users"
	TableEvents         = "events"
	TableRegistrations  = "registrations"
	TableUserWithEvents = "user_with_events"
	TableEventDetails   = "event_details"
	TableUpcomingEvents = "upcoming_events"
	TableEventStats     = "event_stats"
	TableSystemStats    = "system_stats"
)

const humanTime = "Jan 2, 2006 3:04 PM MST"

// Engine enforces the registration rules.
type Engine struct {
	store *repository.Store
	audit audit.Recorder
	now   func() time.Time
	loc   *time.Location
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's notion of now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone used for zone-less date-times and for the
// instants quoted in error messages. The default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// New constructs an Engine over store. A nil recorder discards audit records.
func New(store *repository.Store, rec audit.Recorder, opts ...Option) *Engine {
	if rec == nil {
		rec = audit.Discard{}
	}
	e := &Engine{
		store: store,
		audit: rec,
		now:   func() time.Time { return time.Now().UTC() },
		loc:   time.UTC,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ─── Users ───────────────────────────────────────────────────────────────────

// CreateUser validates and stores a new user. The name is trimmed and the
// email trimmed and lowercased.
func (e *Engine) CreateUser(name, email string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newError(KindValidation, "Name is required", nil)
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if !ValidEmail(email) {
		return nil, newError(KindValidation, "Valid email is required", nil)
	}

	if _, exists := e.store.UserByEmail(email); exists {
		return nil, errDuplicateEmail()
	}

	u, err := e.store.CreateUser(name, email, e.now())
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, errDuplicateEmail()
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	e.audit.Record(audit.OpInsert, TableUsers, u)
	return &u, nil
}

func errDuplicateEmail() *Error {
	return newError(KindDuplicateEmail, "User with this email already exists", nil)
}

// GetUsers returns every user ordered by id.
func (e *Engine) GetUsers() []model.User {
	users := e.store.ListUsers()
	e.audit.Record(audit.OpSelect, TableUsers, users)
	return users
}

// GetUserByID returns a user with the events they are registered for.
func (e *Engine) GetUserByID(id string) (*model.UserWithEvents, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, newError(KindUserNotFound, "User not found", nil)
	}
	u, err := e.store.UserByID(uid)
	if err != nil {
		return nil, newError(KindUserNotFound, "User not found", nil)
	}

	regs := e.store.RegistrationsForUser(u.ID)
	out := &model.UserWithEvents{
		User:             u,
		RegisteredEvents: make([]model.RegisteredEvent, 0, len(regs)),
	}
	for _, r := range regs {
		ev, err := e.store.EventByID(r.EventID)
		if err != nil {
			continue
		}
		out.RegisteredEvents = append(out.RegisteredEvents, model.RegisteredEvent{
			Event:        ev,
			RegisteredAt: r.RegisteredAt,
		})
	}

	e.audit.Record(audit.OpSelect, TableUserWithEvents, *out)
	return out, nil
}

// ─── Events ──────────────────────────────────────────────────────────────────

// CreateEvent validates every field of req, reporting all violations at
// once, and stores the normalized event.
func (e *Engine) CreateEvent(req model.CreateEventRequest) (*model.Event, error) {
	now := e.now()
	in, errs := validateEvent(req.Title, req.DateTime, req.Location, req.Capacity, now, e.loc)
	if len(errs) > 0 {
		return nil, newError(KindValidation, strings.Join(errs, ", "), ValidationDetail{Errors: errs})
	}

	ev := e.store.CreateEvent(model.Event{
		Title:     in.title,
		DateTime:  in.dateTime,
		Location:  in.location,
		Capacity:  in.capacity,
		CreatedAt: now,
	})

	e.audit.Record(audit.OpInsert, TableEvents, ev)
	return &ev, nil
}

// GetEventDetails returns an event with its registered users and occupancy.
func (e *Engine) GetEventDetails(id string) (*model.EventDetails, error) {
	ev, err := e.lookupEvent(id)
	if err != nil {
		return nil, err
	}

	regs := e.store.RegistrationsForEvent(ev.ID)
	out := &model.EventDetails{
		Event:           ev,
		Occupancy:       occupancy(ev.Capacity, len(regs)),
		RegisteredUsers: make([]model.RegisteredUser, 0, len(regs)),
	}
	for _, r := range regs {
		u, err := e.store.UserByID(r.UserID)
		if err != nil {
			continue
		}
		out.RegisteredUsers = append(out.RegisteredUsers, model.RegisteredUser{
			ID:           u.ID,
			Name:         u.Name,
			Email:        u.Email,
			RegisteredAt: r.RegisteredAt,
		})
	}

	e.audit.Record(audit.OpSelect, TableEventDetails, *out)
	return out, nil
}

// GetEvents returns every event ordered by id, annotated with occupancy.
func (e *Engine) GetEvents() []model.EventSummary {
	out := e.summaries(e.store.ListEvents())
	e.audit.Record(audit.OpSelect, TableEvents, out)
	return out
}

// GetUpcomingEvents returns events scheduled after now, earliest first.
// Events at the same instant are ordered by location.
func (e *Engine) GetUpcomingEvents() []model.EventSummary {
	now := e.now()
	var upcoming []model.Event
	for _, ev := range e.store.ListEvents() {
		if ev.DateTime.After(now) {
			upcoming = append(upcoming, ev)
		}
	}
	sortUpcoming(upcoming)

	out := e.summaries(upcoming)
	e.audit.Record(audit.OpSelect, TableUpcomingEvents, out)
	return out
}

func (e *Engine) summaries(events []model.Event) []model.EventSummary {
	out := make([]model.EventSummary, 0, len(events))
	for _, ev := range events {
		out = append(out, model.EventSummary{
			Event:     ev,
			Occupancy: occupancy(ev.Capacity, e.store.CountForEvent(ev.ID)),
		})
	}
	return out
}

func (e *Engine) lookupEvent(id string) (model.Event, error) {
	eid, ok := parseID(id)
	if !ok {
		return model.Event{}, newError(KindEventNotFound, "Event not found", nil)
	}
	ev, err := e.store.EventByID(eid)
	if err != nil {
		return model.Event{}, newError(KindEventNotFound, "Event not found", nil)
	}
	return ev, nil
}

// ─── Registrations ───────────────────────────────────────────────────────────

// resolve applies the shared input and resource checks of register and
// cancel, in order: both ids parse, the event exists, the user exists.
func (e *Engine) resolve(eventID, userID string) (model.Event, model.User, error) {
	eid, ok := parseID(eventID)
	if !ok {
		return model.Event{}, model.User{}, newError(KindInvalidInput, "Invalid event ID provided", nil)
	}
	uid, ok := parseID(userID)
	if !ok {
		return model.Event{}, model.User{}, newError(KindInvalidInput, "Invalid user ID provided", nil)
	}

	ev, err := e.store.EventByID(eid)
	if err != nil {
		return model.Event{}, model.User{}, newError(KindEventNotFound,
			fmt.Sprintf("Event with ID %d not found", eid), nil)
	}
	u, err := e.store.UserByID(uid)
	if err != nil {
		return model.Event{}, model.User{}, newError(KindUserNotFound,
			fmt.Sprintf("User with ID %d not found", uid), nil)
	}
	return ev, u, nil
}

// RegisterForEvent registers a user for an event. After the shared checks it
// rejects, in order: events starting within RegistrationBuffer, a second
// registration for the same pair, and events at capacity.
func (e *Engine) RegisterForEvent(eventID, userID string) (*model.RegistrationResult, error) {
	ev, u, err := e.resolve(eventID, userID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	if !ev.DateTime.After(now.Add(RegistrationBuffer)) {
		return nil, newError(KindPastEventRegistration,
			fmt.Sprintf("Cannot register for past events. Event %q was scheduled for %s",
				ev.Title, ev.DateTime.In(e.loc).Format(humanTime)),
			PastEventDetail{EventDate: ev.DateTime, CurrentTime: now})
	}

	reg, err := e.store.Book(ev.ID, u.ID, now)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyRegistered):
			existing, _ := e.store.Registration(ev.ID, u.ID)
			return nil, newError(KindDuplicateRegistration,
				fmt.Sprintf("User %q is already registered for event %q", u.Name, ev.Title),
				DuplicateDetail{RegistrationID: existing.ID, RegisteredAt: existing.RegisteredAt})
		case errors.Is(err, repository.ErrEventFull):
			count := e.store.CountForEvent(ev.ID)
			return nil, newError(KindEventFull,
				fmt.Sprintf("Event %q is at full capacity (%d/%d registered)", ev.Title, count, ev.Capacity),
				CapacityDetail{Capacity: ev.Capacity, CurrentRegistrations: count})
		default:
			return nil, fmt.Errorf("register for event: %w", err)
		}
	}

	e.audit.Record(audit.OpInsert, TableRegistrations, reg)

	return &model.RegistrationResult{
		Registration: reg,
		Message:      fmt.Sprintf("Successfully registered %s for %q", u.Name, ev.Title),
		Event:        e.eventRef(ev),
		User:         model.UserRef{UserID: u.ID, Name: u.Name, Email: u.Email},
	}, nil
}

// CancelRegistration removes a user's registration. Cancelling is allowed up
// to and including CancellationWindow before the event starts.
func (e *Engine) CancelRegistration(eventID, userID string) (*model.CancellationResult, error) {
	ev, u, err := e.resolve(eventID, userID)
	if err != nil {
		return nil, err
	}

	if _, ok := e.store.Registration(ev.ID, u.ID); !ok {
		return nil, newError(KindRegistrationNotFound,
			fmt.Sprintf("User %q is not registered for event %q", u.Name, ev.Title), nil)
	}

	now := e.now()
	deadline := ev.DateTime.Add(-CancellationWindow)
	if now.After(deadline) {
		return nil, newError(KindCancellationTooLate,
			fmt.Sprintf("Cannot cancel registration less than 1 hour before event start. Event %q starts at %s",
				ev.Title, ev.DateTime.In(e.loc).Format(humanTime)),
			DeadlineDetail{EventDate: ev.DateTime, CurrentTime: now, CancellationDeadline: deadline})
	}

	reg, err := e.store.Cancel(ev.ID, u.ID)
	if err != nil {
		return nil, fmt.Errorf("cancel registration: %w", err)
	}

	e.audit.Record(audit.OpDelete, TableRegistrations, reg)

	return &model.CancellationResult{
		Registration: reg,
		CancelledAt:  now,
		Message:      fmt.Sprintf("Successfully cancelled registration for %s from %q", u.Name, ev.Title),
		Event:        e.eventRef(ev),
	}, nil
}

func (e *Engine) eventRef(ev model.Event) model.EventRef {
	return model.EventRef{
		EventID:        ev.ID,
		Title:          ev.Title,
		DateTime:       ev.DateTime,
		RemainingSpots: ev.Capacity - e.store.CountForEvent(ev.ID),
		TotalCapacity:  ev.Capacity,
	}
}
