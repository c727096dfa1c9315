// Package repository implements the in-memory store behind the registration
// engine: three keyed collections plus their id counters.
//
// The store is not safe for concurrent use. Callers that serve several
// goroutines must serialise access themselves.
package repository

import (
	"cmp"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/eventreg/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrEventFull is returned when an event has no remaining capacity.
var ErrEventFull = errors.New("event is fully booked")

// ErrAlreadyRegistered is returned when the same user registers twice for one event.
var ErrAlreadyRegistered = errors.New("user already registered for this event")

// ErrEmailTaken is returned when a user with the same email already exists.
var ErrEmailTaken = errors.New("email already in use")

type pair struct {
	eventID int64
	userID  int64
}

// Store owns users, events and registrations. Identifiers are assigned from
// monotonic counters and never reused, including after deletes.
type Store struct {
	users         map[int64]model.User
	events        map[int64]model.Event
	registrations map[int64]model.Registration

	byEmail map[string]int64
	byPair  map[pair]int64

	nextUserID         int64
	nextEventID        int64
	nextRegistrationID int64
}

// NewStore returns an empty store with all counters starting at 1.
func NewStore() *Store {
	return &Store{
		users:              make(map[int64]model.User),
		events:             make(map[int64]model.Event),
		registrations:      make(map[int64]model.Registration),
		byEmail:            make(map[string]int64),
		byPair:             make(map[pair]int64),
		nextUserID:         1,
		nextEventID:        1,
		nextRegistrationID: 1,
	}
}

// ─── Users ───────────────────────────────────────────────────────────────────

// CreateUser stores a new user with the next user id. The email is compared
// case-insensitively against existing users.
func (s *Store) CreateUser(name, email string, createdAt time.Time) (model.User, error) {
	key := strings.ToLower(email)
	if _, taken := s.byEmail[key]; taken {
		return model.User{}, ErrEmailTaken
	}

	u := model.User{
		ID:        s.nextUserID,
		Name:      name,
		Email:     email,
		CreatedAt: createdAt,
	}
	s.nextUserID++
	s.users[u.ID] = u
	s.byEmail[key] = u.ID
	return u, nil
}

// UserByID returns a single user or ErrNotFound.
func (s *Store) UserByID(id int64) (model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

// UserByEmail looks a user up by email, ignoring case.
func (s *Store) UserByEmail(email string) (model.User, bool) {
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return model.User{}, false
	}
	return s.users[id], true
}

// ListUsers returns all users ordered by id.
func (s *Store) ListUsers() []model.User {
	return sortedValues(s.users, func(u model.User) int64 { return u.ID })
}

// ─── Events ──────────────────────────────────────────────────────────────────

// CreateEvent stores e under the next event id and returns the stored copy.
// Any ID already set on e is ignored.
func (s *Store) CreateEvent(e model.Event) model.Event {
	e.ID = s.nextEventID
	s.nextEventID++
	s.events[e.ID] = e
	return e
}

// EventByID returns a single event or ErrNotFound.
func (s *Store) EventByID(id int64) (model.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return model.Event{}, ErrNotFound
	}
	return e, nil
}

// ListEvents returns all events ordered by id.
func (s *Store) ListEvents() []model.Event {
	return sortedValues(s.events, func(e model.Event) int64 { return e.ID })
}

// ─── Registrations ───────────────────────────────────────────────────────────

// Book creates a registration for (eventID, userID). The duplicate check runs
// before the capacity check, so a registered user asking again on a full event
// gets ErrAlreadyRegistered rather than ErrEventFull.
func (s *Store) Book(eventID, userID int64, registeredAt time.Time) (model.Registration, error) {
	e, ok := s.events[eventID]
	if !ok {
		return model.Registration{}, ErrNotFound
	}
	if _, ok := s.users[userID]; !ok {
		return model.Registration{}, ErrNotFound
	}

	if _, dup := s.byPair[pair{eventID, userID}]; dup {
		return model.Registration{}, ErrAlreadyRegistered
	}

	if s.CountForEvent(eventID) >= e.Capacity {
		return model.Registration{}, ErrEventFull
	}

	reg := model.Registration{
		ID:           s.nextRegistrationID,
		EventID:      eventID,
		UserID:       userID,
		RegisteredAt: registeredAt,
	}
	s.nextRegistrationID++
	s.registrations[reg.ID] = reg
	s.byPair[pair{eventID, userID}] = reg.ID
	return reg, nil
}

// Registration returns the active registration for (eventID, userID).
func (s *Store) Registration(eventID, userID int64) (model.Registration, bool) {
	id, ok := s.byPair[pair{eventID, userID}]
	if !ok {
		return model.Registration{}, false
	}
	return s.registrations[id], true
}

// Cancel removes the registration for (eventID, userID) and returns it.
func (s *Store) Cancel(eventID, userID int64) (model.Registration, error) {
	key := pair{eventID, userID}
	id, ok := s.byPair[key]
	if !ok {
		return model.Registration{}, ErrNotFound
	}
	reg := s.registrations[id]
	delete(s.registrations, id)
	delete(s.byPair, key)
	return reg, nil
}

// ListRegistrations returns all registrations ordered by id.
func (s *Store) ListRegistrations() []model.Registration {
	return sortedValues(s.registrations, func(r model.Registration) int64 { return r.ID })
}

// RegistrationsForEvent returns the registrations of one event ordered by id.
func (s *Store) RegistrationsForEvent(eventID int64) []model.Registration {
	return s.filterRegistrations(func(r model.Registration) bool { return r.EventID == eventID })
}

// RegistrationsForUser returns the registrations of one user ordered by id.
func (s *Store) RegistrationsForUser(userID int64) []model.Registration {
	return s.filterRegistrations(func(r model.Registration) bool { return r.UserID == userID })
}

// CountForEvent returns the number of active registrations for an event.
func (s *Store) CountForEvent(eventID int64) int {
	n := 0
	for _, r := range s.registrations {
		if r.EventID == eventID {
			n++
		}
	}
	return n
}

// Counts returns the size of each collection.
func (s *Store) Counts() (users, events, registrations int) {
	return len(s.users), len(s.events), len(s.registrations)
}

func (s *Store) filterRegistrations(keep func(model.Registration) bool) []model.Registration {
	var out []model.Registration
	for _, r := range s.ListRegistrations() {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func sortedValues[V any](m map[int64]V, id func(V) int64) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b V) int { return cmp.Compare(id(a), id(b)) })
	return out
}
