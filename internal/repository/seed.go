package repository

import (
	"time"

	"github.com/Shivanand-hulikatti/eventreg/internal/model"
)

// Seed loads the demo data set: four users, three events and four
// registrations. Event dates are placed relative to now so the data stays
// registrable. Seeding goes straight to the store and skips engine validation.
func (s *Store) Seed(now time.Time) error {
	users := []struct{ name, email string }{
		{"John Doe", "john@example.com"},
		{"Jane Smith", "jane@example.com"},
		{"Alice Johnson", "alice@example.com"},
		{"Bob Wilson", "bob@example.com"},
	}
	for _, u := range users {
		if _, err := s.CreateUser(u.name, u.email, now); err != nil {
			return err
		}
	}

	day := func(n int, hour int) time.Time {
		d := now.AddDate(0, 0, n).UTC()
		return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.UTC)
	}
	events := []model.Event{
		{Title: "Tech Conference", DateTime: day(30, 10), Location: "Convention Center", Capacity: 100},
		{Title: "AI Workshop", DateTime: day(35, 14), Location: "Tech Hub", Capacity: 50},
		{Title: "Design Meetup", DateTime: day(20, 18), Location: "Creative Space", Capacity: 30},
	}
	for _, e := range events {
		e.CreatedAt = now
		s.CreateEvent(e)
	}

	for _, r := range []pair{{1, 1}, {1, 2}, {2, 1}, {3, 3}} {
		if _, err := s.Book(r.eventID, r.userID, now); err != nil {
			return err
		}
	}
	return nil
}
