// Package model defines the core domain types for the event registration engine.
package model

import "time"

// User is a person who can register for events.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is a scheduled, capacity-limited happening users register for.
type Event struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	DateTime  time.Time `json:"date_time"`
	Location  string    `json:"location"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
}

// Registration links one user to one event.
type Registration struct {
	ID           int64     `json:"id"`
	EventID      int64     `json:"event_id"`
	UserID       int64     `json:"user_id"`
	RegisteredAt time.Time `json:"registered_at"`
}

// CreateUserRequest is the payload for creating a new user.
type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CreateEventRequest carries raw form values; the engine parses and validates
// every field.
type CreateEventRequest struct {
	Title    string `json:"title"`
	DateTime string `json:"date_time"`
	Location string `json:"location"`
	Capacity string `json:"capacity"`
}

// Occupancy is the registration rollup shared by the event read models.
type Occupancy struct {
	RegistrationCount      int     `json:"registration_count"`
	RemainingCapacity      int     `json:"remaining_capacity"`
	CapacityUsedPercentage float64 `json:"capacity_used_percentage"`
}

// EventSummary is an event annotated with its occupancy.
type EventSummary struct {
	Event
	Occupancy
}

// RegisteredUser is a user as seen from one of their registrations.
type RegisteredUser struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}

// EventDetails is an event with everyone registered for it.
type EventDetails struct {
	Event
	Occupancy
	RegisteredUsers []RegisteredUser `json:"registered_users"`
}

// RegisteredEvent is an event as seen from one of a user's registrations.
type RegisteredEvent struct {
	Event
	RegisteredAt time.Time `json:"registered_at"`
}

// UserWithEvents is a user with every event they are registered for.
type UserWithEvents struct {
	User
	RegisteredEvents []RegisteredEvent `json:"registered_events"`
}

// EventRef is the denormalized event block returned by registration calls.
type EventRef struct {
	EventID        int64     `json:"event_id"`
	Title          string    `json:"event_title"`
	DateTime       time.Time `json:"event_date"`
	RemainingSpots int       `json:"remaining_spots"`
	TotalCapacity  int       `json:"total_capacity"`
}

// UserRef is the denormalized user block returned by registration calls.
type UserRef struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"user_name"`
	Email  string `json:"user_email"`
}

// RegistrationResult is the outcome of a successful registration.
type RegistrationResult struct {
	Registration Registration `json:"registration"`
	Message      string       `json:"message"`
	Event        EventRef     `json:"event_details"`
	User         UserRef      `json:"user_details"`
}

// CancellationResult is the outcome of a successful cancellation.
// Event.RemainingSpots is recomputed after the registration was removed.
type CancellationResult struct {
	Registration Registration `json:"cancelled_registration"`
	CancelledAt  time.Time    `json:"cancellation_date"`
	Message      string       `json:"message"`
	Event        EventRef     `json:"event_details"`
}

// EventStats is the numeric rollup for a single event.
type EventStats struct {
	EventID                int64     `json:"event_id"`
	Title                  string    `json:"event_title"`
	TotalRegistrations     int       `json:"total_registrations"`
	RemainingCapacity      int       `json:"remaining_capacity"`
	CapacityUsedPercentage float64   `json:"capacity_used_percentage"`
	Capacity               int       `json:"capacity"`
	IsFull                 bool      `json:"is_full"`
	DateTime               time.Time `json:"event_date"`
	Location               string    `json:"location"`
}

// SystemStats is the rollup across all collections.
type SystemStats struct {
	TotalEvents                  int     `json:"total_events"`
	UpcomingEvents               int     `json:"upcoming_events"`
	PastEvents                   int     `json:"past_events"`
	TotalUsers                   int     `json:"total_users"`
	TotalRegistrations           int     `json:"total_registrations"`
	TotalCapacity                int     `json:"total_capacity"`
	OverallOccupancyRate         float64 `json:"overall_occupancy_rate"`
	AverageRegistrationsPerEvent float64 `json:"average_registrations_per_event"`
}

// Response is the success envelope written by the HTTP layer.
type Response struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code"`
	Data       any    `json:"data,omitempty"`
	Message    string `json:"message,omitempty"`
}

// ErrorResponse is the failure envelope written by the HTTP layer.
type ErrorResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	ErrorType  string `json:"error_type,omitempty"`
	StatusCode int    `json:"status_code"`
	Details    any    `json:"details,omitempty"`
	Hint       string `json:"hint,omitempty"`
}
