// internal/app/schedule/store.go
package schedule

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"spedhub/internal/domain/models"
)

var (
	// ErrDuplicateSlot is returned by InsertInstance when a durable instance
	// already exists for the same (provider, date, start_time) slot. The
	// persister converts this into an update against the winning row.
	ErrDuplicateSlot = errors.New("an instance already exists for this provider, date and start time")

	// ErrNotFound is returned when a session row does not exist.
	ErrNotFound = errors.New("session not found")
)

// Viewer is the identity a read is scoped to. Role is normalized (trimmed,
// lowercased) by the materializer before it reaches a store.
type Viewer struct {
	UserID primitive.ObjectID
	Role   string
}

// InstanceMutation carries the only fields a durable instance may change
// through the persister. Structural fields (student, times, assignment) stay
// as copied from the template; moves go through a dedicated path.
type InstanceMutation struct {
	CompletedAt  *time.Time
	CompletedBy  *primitive.ObjectID
	SessionNotes string
}

// GroupTag is a group id/name pair. A nil tag clears the group.
type GroupTag struct {
	ID   string
	Name string
}

// Store is the durable backend for schedule sessions. The Mongo
// implementation lives in store/sessions; tests use the in-memory
// implementation in store/inmem.
type Store interface {
	// InstancesInRange returns durable instances with session_date in
	// [start, end], restricted to what the viewer may see.
	InstancesInRange(ctx context.Context, v Viewer, start, end time.Time) ([]models.ScheduleSession, error)

	// TemplatesOnWeekdays returns templates (session_date null) whose
	// day_of_week is in weekdays, restricted to what the viewer may see.
	TemplatesOnWeekdays(ctx context.Context, v Viewer, weekdays []int) ([]models.ScheduleSession, error)

	// GetSessions returns the named rows, templates or instances. Missing
	// ids are simply absent from the result.
	GetSessions(ctx context.Context, ids []primitive.ObjectID) ([]models.ScheduleSession, error)

	// InsertInstance stores a new instance row. Returns ErrDuplicateSlot if
	// the unique (provider, date, start_time) constraint is violated.
	InsertInstance(ctx context.Context, s models.ScheduleSession) (models.ScheduleSession, error)

	// UpdateInstance applies mut to the instance with the given id. The
	// update is constrained to rows with a non-null session_date, so a
	// template can never be mutated through this path. Returns ErrNotFound
	// if no such instance exists.
	UpdateInstance(ctx context.Context, id primitive.ObjectID, mut InstanceMutation) (models.ScheduleSession, error)

	// FindInstanceBySlot returns the durable instance occupying the unique
	// (provider, date, start_time) slot, or ErrNotFound.
	FindInstanceBySlot(ctx context.Context, providerID primitive.ObjectID, date time.Time, startTime string) (models.ScheduleSession, error)

	// SetGroupByIDs stamps (or, with a nil tag, clears) the group tag on the
	// named rows and returns them as updated.
	SetGroupByIDs(ctx context.Context, ids []primitive.ObjectID, tag *GroupTag) ([]models.ScheduleSession, error)

	// SetGroupBySlot stamps (or clears) the group tag on every durable
	// instance matching the slot. Returns the number of rows touched.
	SetGroupBySlot(ctx context.Context, slot models.SlotKey, tag *GroupTag) (int64, error)

	// DeleteInstances removes the named instance rows. Rows already gone are
	// not an error; the count of rows actually removed is returned.
	DeleteInstances(ctx context.Context, ids []primitive.ObjectID) (int64, error)

	// FutureIncompleteInstances returns durable instances dated on or after
	// the given day that are not completed, across all viewers. Used by the
	// periodic orphan sweep.
	FutureIncompleteInstances(ctx context.Context, from time.Time) ([]models.ScheduleSession, error)

	// AllTemplates returns every template row. Used by the periodic orphan
	// sweep.
	AllTemplates(ctx context.Context) ([]models.ScheduleSession, error)
}

// Janitor receives instance ids that materialization identified as orphaned.
// Implementations delete them asynchronously and must treat an already
// deleted row as success; the materializer re-detects survivors on the next
// read, so dropping ids under pressure is safe.
type Janitor interface {
	Discard(ids []primitive.ObjectID)
}
