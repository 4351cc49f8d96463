package models

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidTimestamp is returned when a timestamp matches none of the accepted layouts.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// zoneless layouts are emitted by the API for local date-times; they are read as UTC.
var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an ISO 8601 timestamp with or without a zone offset.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidTimestamp
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}

	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, ErrInvalidTimestamp
}

// minutesUntil floors the time remaining until t to whole minutes, clamped at zero.
func minutesUntil(t, now time.Time) int {
	diff := t.Sub(now)
	if diff <= 0 {
		return 0
	}
	return int(diff / time.Minute)
}
