package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	MinCapacity = 1
	MaxCapacity = 1000
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether email looks like local@domain.tld.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Zone-less layouts are interpreted in the engine's location.
var (
	zonedLayouts = []string{time.RFC3339}
	localLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

func parseDateTime(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func parseCapacity(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < MinCapacity || n > MaxCapacity {
		return 0, false
	}
	return n, true
}

type eventInput struct {
	title    string
	dateTime time.Time
	location string
	capacity int
}

// validateEvent checks every field and returns all violations in field order.
func validateEvent(title, dateTime, location, capacity string, now time.Time, loc *time.Location) (eventInput, []string) {
	var (
		in   eventInput
		errs []string
	)

	in.title = strings.TrimSpace(title)
	if in.title == "" {
		errs = append(errs, "Title is required")
	}

	if raw := strings.TrimSpace(dateTime); raw == "" {
		errs = append(errs, "Date and time is required")
	} else if t, ok := parseDateTime(raw, loc); !ok {
		errs = append(errs, "Date and time must be a valid date")
	} else if !t.After(now) {
		errs = append(errs, "Event date must be in the future")
	} else {
		in.dateTime = t.UTC().Truncate(time.Millisecond)
	}

	in.location = strings.TrimSpace(location)
	if in.location == "" {
		errs = append(errs, "Location is required")
	}

	if n, ok := parseCapacity(capacity); ok {
		in.capacity = n
	} else {
		errs = append(errs, "Capacity must be a positive number between 1 and 1000")
	}

	return in, errs
}
