// internal/domain/models/session.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Delivery assignment values for a scheduled session.
const (
	DeliveredByProvider   = "provider"
	DeliveredBySpecialist = "specialist"
	DeliveredBySEA        = "sea"
)

// ScheduleSession is one document in the schedule_sessions collection.
//
// The collection holds both recurring templates and concrete instances:
//   - A template has SessionDate == nil and describes a weekly commitment
//     (day of week + clock times, no calendar date).
//   - An instance has a concrete SessionDate and carries completion state
//     and notes for that one occurrence.
//
// There is no foreign key from instance to template. An instance belongs to
// the template matching its (student_id, day_of_week, start_time) slot, and
// deliberately survives template deletion so completed history is preserved.
type ScheduleSession struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StudentID  primitive.ObjectID `bson:"student_id" json:"student_id"`
	ProviderID primitive.ObjectID `bson:"provider_id" json:"provider_id"`

	// DayOfWeek is ISO: 1=Monday … 7=Sunday. Never zero, even on instances.
	DayOfWeek int `bson:"day_of_week" json:"day_of_week"`

	// StartTime/EndTime are clock times in "HH:MM" (24h).
	StartTime string `bson:"start_time" json:"start_time"`
	EndTime   string `bson:"end_time" json:"end_time"`

	ServiceType string `bson:"service_type" json:"service_type"`

	// DeliveredBy is one of the DeliveredBy* constants.
	DeliveredBy string `bson:"delivered_by" json:"delivered_by"`

	AssignedSpecialistID *primitive.ObjectID `bson:"assigned_specialist_id,omitempty" json:"assigned_specialist_id,omitempty"`
	AssignedSEAID        *primitive.ObjectID `bson:"assigned_sea_id,omitempty" json:"assigned_sea_id,omitempty"`

	// SessionDate is nil for templates. Stored as UTC midnight on instances.
	SessionDate *time.Time `bson:"session_date,omitempty" json:"session_date,omitempty"`

	CompletedAt  *time.Time          `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CompletedBy  *primitive.ObjectID `bson:"completed_by,omitempty" json:"completed_by,omitempty"`
	SessionNotes string              `bson:"session_notes,omitempty" json:"session_notes,omitempty"`

	// Group tag. A group has no document of its own; it exists as long as
	// at least one session carries its id.
	GroupID   string `bson:"group_id,omitempty" json:"group_id,omitempty"`
	GroupName string `bson:"group_name,omitempty" json:"group_name,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsTemplate reports whether this document is a recurring template.
func (s ScheduleSession) IsTemplate() bool { return s.SessionDate == nil }

// IsCompleted reports whether this instance has been marked complete.
func (s ScheduleSession) IsCompleted() bool { return s.CompletedAt != nil }

// SlotKey is the structural link between an instance and its template.
type SlotKey struct {
	StudentID primitive.ObjectID
	DayOfWeek int
	StartTime string
}

// Slot returns the session's structural slot key.
func (s ScheduleSession) Slot() SlotKey {
	return SlotKey{StudentID: s.StudentID, DayOfWeek: s.DayOfWeek, StartTime: s.StartTime}
}
