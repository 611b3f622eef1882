// internal/testutil/fixtures.go
//
// Package testutil provides fixture builders and HTTP helpers shared by the
// schedule and handler tests. Rows are built against the in-memory store, so
// tests run without a live MongoDB.
package testutil

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"spedhub/internal/app/schedule"
	"spedhub/internal/domain/models"
)

// Date returns UTC midnight for the given day, the canonical form for
// session_date values.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Template returns a recurring session row (nil session_date) for the given
// slot. Callers adjust DeliveredBy, assignment ids, or group fields as the
// test requires before storing it.
func Template(studentID, providerID primitive.ObjectID, dayOfWeek int, startTime, endTime string) models.ScheduleSession {
	now := time.Now().UTC()
	return models.ScheduleSession{
		ID:          primitive.NewObjectID(),
		StudentID:   studentID,
		ProviderID:  providerID,
		DayOfWeek:   dayOfWeek,
		StartTime:   startTime,
		EndTime:     endTime,
		ServiceType: "speech",
		DeliveredBy: models.DeliveredByProvider,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Instance returns a concrete dated row occupying the same slot a template
// with these fields would generate: day_of_week is derived from the date.
func Instance(studentID, providerID primitive.ObjectID, date time.Time, startTime, endTime string) models.ScheduleSession {
	row := Template(studentID, providerID, schedule.ISOWeekday(date), startTime, endTime)
	d := schedule.DateOnly(date)
	row.SessionDate = &d
	return row
}

// InstanceOf derives a dated row from an existing template, the same way the
// materializer expands one, but persisted.
func InstanceOf(tpl models.ScheduleSession, date time.Time) models.ScheduleSession {
	row := tpl
	row.ID = primitive.NewObjectID()
	d := schedule.DateOnly(date)
	row.SessionDate = &d
	row.DayOfWeek = schedule.ISOWeekday(d)
	return row
}

// Completed marks a row completed by the given user at the given time.
func Completed(row models.ScheduleSession, by primitive.ObjectID, at time.Time) models.ScheduleSession {
	row.CompletedAt = &at
	row.CompletedBy = &by
	return row
}
