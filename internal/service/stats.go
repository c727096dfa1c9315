package service

import (
	"math"
	"slices"
	"strings"

	"github.com/Shivanand-hulikatti/eventreg/internal/audit"
	"github.com/Shivanand-hulikatti/eventreg/internal/model"
)

// round2 rounds to two decimal places.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// percentage is round(100 * part / whole, 2). Capacity is at least 1 for every
// event created through the engine, so whole is never zero there.
func percentage(part, whole int) float64 {
	return round2(float64(part) / float64(whole) * 100)
}

func occupancy(capacity, registrations int) model.Occupancy {
	return model.Occupancy{
		RegistrationCount:      registrations,
		RemainingCapacity:      capacity - registrations,
		CapacityUsedPercentage: percentage(registrations, capacity),
	}
}

func sortUpcoming(events []model.Event) {
	slices.SortStableFunc(events, func(a, b model.Event) int {
		if c := a.DateTime.Compare(b.DateTime); c != 0 {
			return c
		}
		return strings.Compare(a.Location, b.Location)
	})
}

// GetEventStats returns the numeric rollup of one event.
func (e *Engine) GetEventStats(id string) (*model.EventStats, error) {
	ev, err := e.lookupEvent(id)
	if err != nil {
		return nil, err
	}

	n := e.store.CountForEvent(ev.ID)
	stats := &model.EventStats{
		EventID:                ev.ID,
		Title:                  ev.Title,
		TotalRegistrations:     n,
		RemainingCapacity:      ev.Capacity - n,
		CapacityUsedPercentage: percentage(n, ev.Capacity),
		Capacity:               ev.Capacity,
		IsFull:                 ev.Capacity-n <= 0,
		DateTime:               ev.DateTime,
		Location:               ev.Location,
	}

	e.audit.Record(audit.OpSelect, TableEventStats, *stats)
	return stats, nil
}

// GetSystemStats returns the rollup across all collections. Rates are zero
// when there is nothing to divide by.
func (e *Engine) GetSystemStats() model.SystemStats {
	now := e.now()
	users, events, registrations := e.store.Counts()

	var upcoming, capacity int
	for _, ev := range e.store.ListEvents() {
		if ev.DateTime.After(now) {
			upcoming++
		}
		capacity += ev.Capacity
	}

	stats := model.SystemStats{
		TotalEvents:        events,
		UpcomingEvents:     upcoming,
		PastEvents:         events - upcoming,
		TotalUsers:         users,
		TotalRegistrations: registrations,
		TotalCapacity:      capacity,
	}
	if capacity > 0 {
		stats.OverallOccupancyRate = percentage(registrations, capacity)
	}
	if events > 0 {
		stats.AverageRegistrationsPerEvent = round2(float64(registrations) / float64(events))
	}

	e.audit.Record(audit.OpSelect, TableSystemStats, stats)
	return stats
}
