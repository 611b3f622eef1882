// internal/app/schedule/materializer.go
package schedule

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"spedhub/internal/app/policy/schedulepolicy"
	"spedhub/internal/app/system/metrics"
	"spedhub/internal/domain/models"
)

// Instance is one calendar occurrence in a materialized range: either a
// durable row read from storage or a virtual occurrence expanded from a
// template. Ref distinguishes the two; SessionDate is always set.
type Instance struct {
	Ref InstanceRef
	models.ScheduleSession
}

// Materializer produces the complete session set for a date range, filling
// gaps with virtual instances and detecting stale ones.
type Materializer struct {
	store   Store
	janitor Janitor
	log     *zap.Logger
	now     func() time.Time
}

// NewMaterializer builds a Materializer. janitor may be nil, in which case
// orphaned rows are only excluded from results, never deleted; they will be
// re-detected on every subsequent read, which is safe.
func NewMaterializer(store Store, janitor Janitor, logger *zap.Logger) *Materializer {
	return &Materializer{store: store, janitor: janitor, log: logger, now: time.Now}
}

// occupancy key: one instance per structural slot per calendar day.
type slotDay struct {
	slot models.SlotKey
	day  string
}

// SessionsForDateRange returns every session the viewer should see for
// [start, end]: durable instances that still match a template (or are
// completed/past and kept as history), plus a virtual instance for every
// template × matching date with no stored row.
//
// The method never returns an error: a failed instance fetch degrades to an
// empty calendar and a failed template fetch degrades to stored instances
// only. Both are logged. Orphaned rows are handed to the janitor for
// asynchronous deletion; the result set is correct whether or not that
// deletion ever runs.
//
// Output order is unspecified; callers sort for display.
func (m *Materializer) SessionsForDateRange(ctx context.Context, viewer Viewer, start, end time.Time) []Instance {
	viewer.Role = schedulepolicy.NormalizeRole(viewer.Role)
	start, end = DateOnly(start), DateOnly(end)
	if start.After(end) {
		m.log.Warn("materialize: start after end",
			zap.Time("start", start), zap.Time("end", end))
		return []Instance{}
	}
	metrics.Materializations.Inc()

	instances, err := m.store.InstancesInRange(ctx, viewer, start, end)
	if err != nil {
		m.log.Error("materialize: instance fetch failed",
			zap.String("viewer", viewer.UserID.Hex()), zap.Error(err))
		return []Instance{}
	}

	templates, err := m.store.TemplatesOnWeekdays(ctx, viewer, WeekdaysInRange(start, end))
	if err != nil {
		// Degrade to instances only; orphan detection needs templates.
		m.log.Error("materialize: template fetch failed",
			zap.String("viewer", viewer.UserID.Hex()), zap.Error(err))
		out := make([]Instance, 0, len(instances))
		for _, s := range instances {
			out = append(out, Instance{Ref: DurableRef(s.ID), ScheduleSession: s})
		}
		return out
	}

	bySlot := make(map[models.SlotKey]models.ScheduleSession, len(templates))
	for _, t := range templates {
		bySlot[t.Slot()] = t
	}

	today := DateOnly(m.now())
	occupied := make(map[slotDay]struct{}, len(instances))
	out := make([]Instance, 0, len(instances))
	var orphans []primitive.ObjectID

	for _, s := range instances {
		date := DateOnly(*s.SessionDate)
		_, matched := bySlot[s.Slot()]
		// Completed and past instances are history: kept regardless of
		// whether their template still exists.
		if !matched && !s.IsCompleted() && !date.Before(today) {
			orphans = append(orphans, s.ID)
			metrics.OrphansDetected.Inc()
			continue
		}
		occupied[slotDay{slot: s.Slot(), day: date.Format("2006-01-02")}] = struct{}{}
		out = append(out, Instance{Ref: DurableRef(s.ID), ScheduleSession: s})
	}

	EachDate(start, end, func(date time.Time) {
		wd := ISOWeekday(date)
		for slot, t := range bySlot {
			if t.DayOfWeek != wd {
				continue
			}
			key := slotDay{slot: slot, day: date.Format("2006-01-02")}
			if _, ok := occupied[key]; ok {
				continue
			}
			occupied[key] = struct{}{}
			out = append(out, m.virtual(t, date))
			metrics.VirtualInstances.Inc()
		}
	})

	if len(orphans) > 0 {
		m.log.Info("materialize: orphaned instances excluded",
			zap.Int("count", len(orphans)),
			zap.String("viewer", viewer.UserID.Hex()))
		if m.janitor != nil {
			m.janitor.Discard(orphans)
		}
	}

	return out
}

// virtual synthesizes an ephemeral instance from a template for one date.
// All descriptive fields, including the group tag, are copied; completion
// and notes stay unset.
func (m *Materializer) virtual(t models.ScheduleSession, date time.Time) Instance {
	s := t
	s.ID = primitive.NilObjectID
	s.SessionDate = &date
	return Instance{Ref: EphemeralRef(t.ID, date), ScheduleSession: s}
}
