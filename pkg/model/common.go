// Package model defines the core data types of the resident scheduling engine.
package model

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel carries the fields shared by records that get persisted to run
// history (solve runs, notifications) rather than the scheduling domain
// objects themselves, which use natural keys (resident handle, shift code).
type BaseModel struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewBaseModel creates a freshly identified base model stamped at t.
func NewBaseModel(t time.Time) BaseModel {
	return BaseModel{ID: uuid.New(), CreatedAt: t}
}

// TimeRange is an inclusive-start, exclusive-end span of wall-clock time.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Duration returns the length of the range.
func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// Overlaps reports whether tr and other share any instant.
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return tr.Start.Before(other.End) && other.Start.Before(tr.End)
}

// GapHours returns the number of hours between tr's end and other's start,
// assuming tr ends before other starts. Negative if they overlap.
func (tr TimeRange) GapHours(other TimeRange) float64 {
	return other.Start.Sub(tr.End).Hours()
}
