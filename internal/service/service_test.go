package service

import (
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/eventreg/internal/audit"
	"github.com/Shivanand-hulikatti/eventreg/internal/model"
	"github.com/Shivanand-hulikatti/eventreg/internal/repository"
)

var t0 = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func newTestEngine(t *testing.T) (*Engine, *testClock, *audit.Log) {
	t.Helper()
	clk := &testClock{t: t0}
	log := audit.NewLog(audit.WithClock(clk.now))
	return New(repository.NewStore(), log, WithClock(clk.now)), clk, log
}

func id(n int64) string { return strconv.FormatInt(n, 10) }

func mustUser(t *testing.T, e *Engine, name, email string) *model.User {
	t.Helper()
	u, err := e.CreateUser(name, email)
	require.NoError(t, err)
	return u
}

func mustEvent(t *testing.T, e *Engine, at time.Time, location string, capacity int) *model.Event {
	t.Helper()
	ev, err := e.CreateEvent(model.CreateEventRequest{
		Title:    "Event at " + location,
		DateTime: at.Format(time.RFC3339Nano),
		Location: location,
		Capacity: strconv.Itoa(capacity),
	})
	require.NoError(t, err)
	return ev
}

func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
	e, ok := AsError(err)
	require.True(t, ok, "expected *service.Error, got %T", err)
	return e
}

// ─── Users ───────────────────────────────────────────────────────────────────

func TestCreateUser_Normalizes(t *testing.T) {
	e, _, _ := newTestEngine(t)

	u, err := e.CreateUser("  Ada Lovelace ", " Ada@Example.COM ")
	require.NoError(t, err)
	require.Equal(t, int64(1), u.ID)
	require.Equal(t, "Ada Lovelace", u.Name)
	require.Equal(t, "ada@example.com", u.Email)
	require.Equal(t, t0, u.CreatedAt)
}

func TestCreateUser_Validation(t *testing.T) {
	tests := []struct {
		name, user, email, msg string
	}{
		{"empty name", "", "a@b.co", "Name is required"},
		{"blank name", "   ", "a@b.co", "Name is required"},
		{"empty email", "A", "", "Valid email is required"},
		{"no at", "A", "ab.co", "Valid email is required"},
		{"no tld", "A", "a@b", "Valid email is required"},
		{"two ats", "A", "a@@b.co", "Valid email is required"},
		{"inner space", "A", "a b@c.co", "Valid email is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, _ := newTestEngine(t)
			_, err := e.CreateUser(tt.user, tt.email)
			fe := requireKind(t, err, KindValidation)
			require.Equal(t, tt.msg, fe.Message)
			require.Equal(t, http.StatusBadRequest, fe.Status())
			require.Empty(t, e.GetUsers())
		})
	}
}

func TestCreateUser_DuplicateEmailAnyCase(t *testing.T) {
	e, _, _ := newTestEngine(t)
	mustUser(t, e, "A", "same@example.com")

	_, err := e.CreateUser("Someone Else", "SAME@example.com")
	fe := requireKind(t, err, KindDuplicateEmail)
	require.Equal(t, "User with this email already exists", fe.Message)
	require.Equal(t, http.StatusConflict, fe.Status())
	require.Len(t, e.GetUsers(), 1)
}

func TestGetUserByID(t *testing.T) {
	e, _, _ := newTestEngine(t)
	u := mustUser(t, e, "A", "a@example.com")
	ev1 := mustEvent(t, e, t0.Add(48*time.Hour), "Hall", 10)
	ev2 := mustEvent(t, e, t0.Add(24*time.Hour), "Annex", 10)

	_, err := e.RegisterForEvent(id(ev2.ID), id(u.ID))
	require.NoError(t, err)
	_, err = e.RegisterForEvent(id(ev1.ID), id(u.ID))
	require.NoError(t, err)

	got, err := e.GetUserByID(id(u.ID))
	require.NoError(t, err)
	require.Equal(t, *u, got.User)
	require.Len(t, got.RegisteredEvents, 2)
	require.Equal(t, ev2.ID, got.RegisteredEvents[0].ID)
	require.Equal(t, t0, got.RegisteredEvents[0].RegisteredAt)

	_, err = e.GetUserByID("99")
	requireKind(t, err, KindUserNotFound)
	_, err = e.GetUserByID("abc")
	requireKind(t, err, KindUserNotFound)
}

// ─── Events ──────────────────────────────────────────────────────────────────

func TestCreateEvent_Normalizes(t *testing.T) {
	e, _, _ := newTestEngine(t)

	ev, err := e.CreateEvent(model.CreateEventRequest{
		Title:    "  Go Meetup ",
		DateTime: "2026-10-20T18:30:00.123456+02:00",
		Location: " Berlin  ",
		Capacity: " 25 ",
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), ev.ID)
	require.Equal(t, "Go Meetup", ev.Title)
	require.Equal(t, "Berlin", ev.Location)
	require.Equal(t, 25, ev.Capacity)
	require.Equal(t, time.Date(2026, 10, 20, 16, 30, 0, 123_000_000, time.UTC), ev.DateTime)
	require.Equal(t, t0, ev.CreatedAt)
}

func TestCreateEvent_ZonelessUsesEngineLocation(t *testing.T) {
	clk := &testClock{t: t0}
	loc := time.FixedZone("UTC+3", 3*60*60)
	e := New(repository.NewStore(), nil, WithClock(clk.now), WithLocation(loc))

	ev, err := e.CreateEvent(model.CreateEventRequest{
		Title: "T", DateTime: "2026-10-15T10:00", Location: "L", Capacity: "1",
	})
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC), ev.DateTime)
}

func TestCreateEvent_CollectsAllViolations(t *testing.T) {
	e, _, _ := newTestEngine(t)

	_, err := e.CreateEvent(model.CreateEventRequest{Title: " ", DateTime: "", Location: "", Capacity: "0"})
	fe := requireKind(t, err, KindValidation)
	require.Equal(t,
		"Title is required, Date and time is required, Location is required, Capacity must be a positive number between 1 and 1000",
		fe.Message)
	require.Len(t, fe.Detail.(ValidationDetail).Errors, 4)
	require.Empty(t, e.GetEvents())
}

func TestCreateEvent_DateRules(t *testing.T) {
	tests := []struct {
		name, dateTime, msg string
	}{
		{"past", "2020-01-01T10:00:00", "Event date must be in the future"},
		{"now", t0.Format(time.RFC3339), "Event date must be in the future"},
		{"garbage", "next tuesday", "Date and time must be a valid date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, _ := newTestEngine(t)
			_, err := e.CreateEvent(model.CreateEventRequest{
				Title: "T", DateTime: tt.dateTime, Location: "L", Capacity: "10",
			})
			fe := requireKind(t, err, KindValidation)
			require.Equal(t, tt.msg, fe.Message)
		})
	}
}

func TestCreateEvent_CapacityBounds(t *testing.T) {
	tests := []struct {
		capacity string
		ok       bool
	}{
		{"1", true},
		{"1000", true},
		{"0", false},
		{"-3", false},
		{"1001", false},
		{"ten", false},
		{"", false},
		{"2.5", false},
	}
	for _, tt := range tests {
		t.Run("capacity="+tt.capacity, func(t *testing.T) {
			e, _, _ := newTestEngine(t)
			_, err := e.CreateEvent(model.CreateEventRequest{
				Title: "T", DateTime: t0.Add(time.Hour).Format(time.RFC3339), Location: "L", Capacity: tt.capacity,
			})
			if tt.ok {
				require.NoError(t, err)
				return
			}
			fe := requireKind(t, err, KindValidation)
			require.Equal(t, "Capacity must be a positive number between 1 and 1000", fe.Message)
		})
	}
}

func TestGetEventDetails(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ev := mustEvent(t, e, t0.Add(48*time.Hour), "Hall", 3)
	a := mustUser(t, e, "A", "a@example.com")
	mustUser(t, e, "B", "b@example.com")

	_, err := e.RegisterForEvent(id(ev.ID), id(a.ID))
	require.NoError(t, err)

	d, err := e.GetEventDetails(id(ev.ID))
	require.NoError(t, err)
	require.Equal(t, *ev, d.Event)
	require.Equal(t, 1, d.RegistrationCount)
	require.Equal(t, 2, d.RemainingCapacity)
	require.Equal(t, 33.33, d.CapacityUsedPercentage)
	require.Equal(t, []model.RegisteredUser{{ID: a.ID, Name: "A", Email: "a@example.com", RegisteredAt: t0}}, d.RegisteredUsers)

	_, err = e.GetEventDetails("404")
	requireKind(t, err, KindEventNotFound)
}

func TestGetUpcomingEvents_FiltersAndSorts(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	mustEvent(t, e, t0.Add(time.Hour), "Soon", 10)
	late := t0.Add(72 * time.Hour)
	mustEvent(t, e, late, "Zeta", 10)
	mustEvent(t, e, t0.Add(24*time.Hour), "Mid", 10)
	mustEvent(t, e, late, "Alpha", 10)

	clk.t = t0.Add(2 * time.Hour)

	got := e.GetUpcomingEvents()
	require.Len(t, got, 3)
	var locations []string
	for _, ev := range got {
		locations = append(locations, ev.Location)
		require.True(t, ev.DateTime.After(clk.t))
	}
	require.Equal(t, []string{"Mid", "Alpha", "Zeta"}, locations)

	require.Len(t, e.GetEvents(), 4)
}

// ─── Registration ────────────────────────────────────────────────────────────

func TestRegisterForEvent_ValidationOrder(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ev := mustEvent(t, e, t0.Add(48*time.Hour), "Hall", 10)
	u := mustUser(t, e, "A", "a@example.com")

	tests := []struct {
		name            string
		eventID, userID string
		kind            Kind
		status          int
		msg             string
	}{
		{"bad event id", "x", id(u.ID), KindInvalidInput, 400, "Invalid event ID provided"},
		{"empty event id", "", "also bad", KindInvalidInput, 400, "Invalid event ID provided"},
		{"bad user id", id(ev.ID), "1.5", KindInvalidInput, 400, "Invalid user ID provided"},
		{"unknown event before unknown user", "77", "88", KindEventNotFound, 404, "Event with ID 77 not found"},
		{"unknown user", id(ev.ID), "88", KindUserNotFound, 404, "User with ID 88 not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.RegisterForEvent(tt.eventID, tt.userID)
			fe := requireKind(t, err, tt.kind)
			require.Equal(t, tt.status, fe.Status())
			require.Equal(t, tt.msg, fe.Message)
		})
	}
}

func TestRegisterForEvent_Success(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ev := mustEvent(t, e, t0.Add(48*time.Hour), "Hall", 2)
	u := mustUser(t, e, "Ada", "ada@example.com")

	res, err := e.RegisterForEvent(" "+id(ev.ID)+" ", id(u.ID))
	require.NoError(t, err)
	require.Equal(t, model.Registration{ID: 1, EventID: ev.ID, UserID: u.ID, RegisteredAt: t0}, res.Registration)
	require.Equal(t, 1, res.Event.RemainingSpots)
	require.Equal(t, 2, res.Event.TotalCapacity)
	require.Equal(t, ev.Title, res.Event.Title)
	require.Equal(t, model.UserRef{UserID: u.ID, Name: "Ada", Email: "ada@example.com"}, res.User)
	require.Equal(t, `Successfully registered Ada for "Event at Hall"`, res.Message)
}

func TestRegisterForEvent_BufferWindow(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	ev := mustEvent(t, e, t0.Add(time.Hour), "Hall", 10)
	u := mustUser(t, e, "A", "a@example.com")

	clk.t = ev.DateTime.Add(-RegistrationBuffer)
	_, err := e.RegisterForEvent(id(ev.ID), id(u.ID))
	fe := requireKind(t, err, KindPastEventRegistration)
	require.Equal(t, http.StatusUnprocessableEntity, fe.Status())
	require.Contains(t, fe.Message, "Cannot register for past events")
	require.Equal(t, PastEventDetail{EventDate: ev.DateTime, CurrentTime: clk.t}, fe.Detail)

	clk.t = ev.DateTime.Add(-RegistrationBuffer - time.Millisecond)
	_, err = e.RegisterForEvent(id(ev.ID), id(u.ID))
	require.NoError(t, err)
}

func TestRegisterForEvent_PastCheckPrecedesDuplicate(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	ev := mustEvent(t, e, t0.Add(time.Hour), "Hall", 10)
	u := mustUser(t, e, "A", "a@example.com")
	_, err := e.RegisterForEvent(id(ev.ID), id(u.ID))
	require.NoError(t, err)

	clk.t = ev.DateTime
	_, err = e.RegisterForEvent(id(ev.ID), id(u.ID))
	requireKind(t, err, KindPastEventRegistration)
}

func TestRegisterForEvent_Duplicate(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	ev := mustEvent(t, e, t0.Add(48*time.Hour), "Hall", 1)
	u := mustUser(t, e, "A", "a@example.com")
	first, err := e.RegisterForEvent(id(ev.ID), id(u.ID))
	require.NoError(t, err)

	clk.t = t0.Add(time.Minute)
	_, err = e.RegisterForEvent(id(ev.ID), id(u.ID))
	fe := requireKind(t, err, KindDuplicateRegistration)
	require.Equal(t, http.StatusConflict, fe.Status())
	require.Equal(t, DuplicateDetail{RegistrationID: first.Registration.ID, RegisteredAt: t0}, fe.Detail)

	d, err := e.GetEventDetails(id(ev.ID))
	require.NoError(t, err)
	require.Equal(t, 1, d.RegistrationCount)
}

func TestScenario_CapacityOneFreesAfterCancel(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ev := mustEvent(t, e, t0.Add(48*time.Hour), "Hall", 1)
	a := mustUser(t, e, "A", "a@example.com")
	b := mustUser(t, e, "B", "b@example.com")

	res, err := e.RegisterForEvent(id(ev.ID), id(a.ID))
	require.NoError(t, err)
	require.Equal(t, 0, res.Event.RemainingSpots)

	_, err = e.RegisterForEvent(id(ev.ID), id(b.ID))
	fe := requireKind(t, err, KindEventFull)
	require.Equal(t, CapacityDetail{Capacity: 1, CurrentRegistrations: 1}, fe.Detail)
	require.Equal(t, `Event "Event at Hall" is at full capacity (1/1 registered)`, fe.Message)

	cancelled, err := e.CancelRegistration(id(ev.ID), id(a.ID))
	require.NoError(t, err)
	require.Equal(t, res.Registration, cancelled.Registration)
	require.Equal(t, 1, cancelled.Event.RemainingSpots)

	res, err = e.RegisterForEvent(id(ev.ID), id(b.ID))
	require.NoError(t, err)
	require.Equal(t, int64(2), res.Registration.ID)
}

// ─── Cancellation ────────────────────────────────────────────────────────────

func TestCancelRegistration_NotRegistered(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ev := mustEvent(t, e, t0.Add(48*time.Hour), "Hall", 1)
	u := mustUser(t, e, "A", "a@example.com")

	_, err := e.CancelRegistration(id(ev.ID), id(u.ID))
	fe := requireKind(t, err, KindRegistrationNotFound)
	require.Equal(t, http.StatusNotFound, fe.Status())

	_, err = e.CancelRegistration("nope", id(u.ID))
	requireKind(t, err, KindInvalidInput)
	_, err = e.CancelRegistration(id(ev.ID), "5")
	requireKind(t, err, KindUserNotFound)
}

func TestCancelRegistration_DeadlineIsInclusive(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	ev := mustEvent(t, e, t0.Add(3*time.Hour), "Hall", 5)
	u := mustUser(t, e, "A", "a@example.com")
	deadline := ev.DateTime.Add(-CancellationWindow)

	_, err := e.RegisterForEvent(id(ev.ID), id(u.ID))
	require.NoError(t, err)

	clk.t = deadline.Add(time.Nanosecond)
	_, err = e.CancelRegistration(id(ev.ID), id(u.ID))
	fe := requireKind(t, err, KindCancellationTooLate)
	require.Equal(t, DeadlineDetail{EventDate: ev.DateTime, CurrentTime: clk.t, CancellationDeadline: deadline}, fe.Detail)
	require.Contains(t, fe.Message, "less than 1 hour before event start")

	clk.t = deadline
	res, err := e.CancelRegistration(id(ev.ID), id(u.ID))
	require.NoError(t, err)
	require.Equal(t, deadline, res.CancelledAt)
	require.Equal(t, 5, res.Event.RemainingSpots)
}

func TestLateCancellationScenario(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ev := mustEvent(t, e, t0.Add(30*time.Minute), "Near", 50)
	u := mustUser(t, e, "A", "a@example.com")

	_, err := e.RegisterForEvent(id(ev.ID), id(u.ID))
	require.NoError(t, err)

	_, err = e.CancelRegistration(id(ev.ID), id(u.ID))
	requireKind(t, err, KindCancellationTooLate)
}

// ─── Stats ───────────────────────────────────────────────────────────────────

func TestGetEventStats(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ev := mustEvent(t, e, t0.Add(48*time.Hour), "Hall", 3)

	s, err := e.GetEventStats(id(ev.ID))
	require.NoError(t, err)
	require.Equal(t, 0.0, s.CapacityUsedPercentage)
	require.False(t, s.IsFull)
	require.Equal(t, 3, s.RemainingCapacity)

	for i := 0; i < 3; i++ {
		u := mustUser(t, e, "U", "u"+strconv.Itoa(i)+"@example.com")
		_, err := e.RegisterForEvent(id(ev.ID), id(u.ID))
		require.NoError(t, err)
		s, err = e.GetEventStats(id(ev.ID))
		require.NoError(t, err)
		require.Equal(t, percentage(i+1, 3), s.CapacityUsedPercentage)
	}
	require.True(t, s.IsFull)
	require.Equal(t, 100.0, s.CapacityUsedPercentage)

	_, err = e.GetEventStats("0")
	requireKind(t, err, KindEventNotFound)
}

func TestGetSystemStats(t *testing.T) {
	e, clk, _ := newTestEngine(t)

	empty := e.GetSystemStats()
	require.Equal(t, model.SystemStats{}, empty)

	a := mustEvent(t, e, t0.Add(2*time.Hour), "A", 10)
	mustEvent(t, e, t0.Add(48*time.Hour), "B", 20)
	u := mustUser(t, e, "U", "u@example.com")
	v := mustUser(t, e, "V", "v@example.com")
	_, err := e.RegisterForEvent(id(a.ID), id(u.ID))
	require.NoError(t, err)
	_, err = e.RegisterForEvent(id(a.ID), id(v.ID))
	require.NoError(t, err)

	clk.t = t0.Add(3 * time.Hour)
	s := e.GetSystemStats()
	require.Equal(t, model.SystemStats{
		TotalEvents:                  2,
		UpcomingEvents:               1,
		PastEvents:                   1,
		TotalUsers:                   2,
		TotalRegistrations:           2,
		TotalCapacity:                30,
		OverallOccupancyRate:         6.67,
		AverageRegistrationsPerEvent: 1,
	}, s)
}

// ─── Audit ───────────────────────────────────────────────────────────────────

func TestAudit_RecordsSuccessfulOperationsOnly(t *testing.T) {
	e, _, log := newTestEngine(t)

	u := mustUser(t, e, "A", "a@example.com")
	_, err := e.CreateUser("", "x@example.com")
	require.Error(t, err)
	ev := mustEvent(t, e, t0.Add(48*time.Hour), "Hall", 1)
	_, err = e.RegisterForEvent(id(ev.ID), id(u.ID))
	require.NoError(t, err)
	_, err = e.RegisterForEvent(id(ev.ID), id(u.ID))
	require.Error(t, err)
	_, err = e.CancelRegistration(id(ev.ID), id(u.ID))
	require.NoError(t, err)
	e.GetUpcomingEvents()
	e.GetSystemStats()

	var got []string
	for _, entry := range log.Entries("") {
		got = append(got, string(entry.Operation)+" "+entry.Table)
	}
	require.Equal(t, []string{
		"INSERT users",
		"INSERT events",
		"INSERT registrations",
		"DELETE registrations",
		"SELECT upcoming_events",
		"SELECT system_stats",
	}, got)

	inserted := log.Entries(TableUsers)[0].Payload.(model.User)
	require.Equal(t, *u, inserted)
}

func TestError_IsAndAs(t *testing.T) {
	var err error = newError(KindEventFull, "full", nil)

	require.True(t, errors.Is(err, KindEventFull))
	require.False(t, errors.Is(err, KindDuplicateRegistration))

	wrapped := errors.Join(errors.New("context"), err)
	fe, ok := AsError(wrapped)
	require.True(t, ok)
	require.Equal(t, KindEventFull, fe.Kind)
	require.Equal(t, "full", err.Error())
	require.Equal(t, http.StatusInternalServerError, Kind("UNKNOWN").Status())
}
