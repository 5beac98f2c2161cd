package models

import (
	"errors"
	"strings"
)

var ErrInvalidReadingStatus = errors.New("invalid reading status")

// ReadingStatus is the per-title progress label in a library.
type ReadingStatus string

const (
	StatusReading    ReadingStatus = "Reading"
	StatusCompleted  ReadingStatus = "Completed"
	StatusPlanToRead ReadingStatus = "Plan to Read"
)

// ReadingStatuses lists the labels in cycle order.
var ReadingStatuses = []ReadingStatus{StatusReading, StatusCompleted, StatusPlanToRead}

// ParseReadingStatus accepts the display labels in any case as well as the
// slug forms reading, completed, plan_to_read and plan-to-read.
func ParseReadingStatus(raw string) (ReadingStatus, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	switch s {
	case "reading":
		return StatusReading, nil
	case "completed":
		return StatusCompleted, nil
	case "plan to read":
		return StatusPlanToRead, nil
	}
	return "", ErrInvalidReadingStatus
}

// Next returns the status a single click moves to. Unknown values start
// over at Reading.
func (s ReadingStatus) Next() ReadingStatus {
	switch s {
	case StatusReading:
		return StatusCompleted
	case StatusCompleted:
		return StatusPlanToRead
	default:
		return StatusReading
	}
}

// Valid reports whether s is one of the canonical labels.
func (s ReadingStatus) Valid() bool {
	c, err := ParseReadingStatus(string(s))
	return err == nil && c == s
}
