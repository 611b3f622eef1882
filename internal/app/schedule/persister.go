// internal/app/schedule/persister.go
package schedule

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"spedhub/internal/app/system/metrics"
)

// ErrNoSessionDate is returned when an instance save arrives without a
// concrete date. That shape is a template, and templates must never be
// written through the instance path; refusing here is a contract check, not
// a recoverable condition.
var ErrNoSessionDate = errors.New("refusing to persist a session instance without a date")

// Persister promotes virtual instances into durable rows and applies
// mutations to rows that already exist. It never touches template rows:
// ephemeral refs always insert, and durable updates are additionally
// constrained by the store to rows with a non-null session_date.
type Persister struct {
	store Store
	log   *zap.Logger
}

func NewPersister(store Store, logger *zap.Logger) *Persister {
	return &Persister{store: store, log: logger}
}

// SaveInstance persists inst and returns its durable form.
//
// For an ephemeral ref, a new row is inserted copying every template-derived
// field plus the current completion/notes/group values. Two concurrent saves
// of the same virtual instance race on the unique (provider, date,
// start_time) constraint; the loser's conflict is resolved internally by
// re-reading the winner's row and applying the mutation as an update, so
// both callers observe the same final row.
//
// For a durable ref, only the mutable fields (completed_at, completed_by,
// session_notes) are written. Structural fields are deliberately left alone
// so instances cannot drift from their template outside an explicit move.
func (p *Persister) SaveInstance(ctx context.Context, inst Instance) (Instance, error) {
	if inst.SessionDate == nil {
		p.log.Error("save instance: missing session date",
			zap.String("ref", inst.Ref.String()),
			zap.String("student", inst.StudentID.Hex()))
		return Instance{}, ErrNoSessionDate
	}

	if id, ok := inst.Ref.DurableID(); ok {
		updated, err := p.store.UpdateInstance(ctx, id, mutationOf(inst))
		if err != nil {
			p.log.Error("save instance: update failed",
				zap.String("id", id.Hex()), zap.Error(err))
			return Instance{}, err
		}
		return Instance{Ref: DurableRef(updated.ID), ScheduleSession: updated}, nil
	}

	row := inst.ScheduleSession
	date := DateOnly(*inst.SessionDate)
	row.SessionDate = &date
	now := time.Now().UTC()
	row.CreatedAt = now
	row.UpdatedAt = now

	created, err := p.store.InsertInstance(ctx, row)
	if err == nil {
		metrics.Promotions.WithLabelValues("inserted").Inc()
		return Instance{Ref: DurableRef(created.ID), ScheduleSession: created}, nil
	}
	if !errors.Is(err, ErrDuplicateSlot) {
		p.log.Error("save instance: insert failed",
			zap.String("ref", inst.Ref.String()),
			zap.String("student", inst.StudentID.Hex()),
			zap.Time("date", date),
			zap.Error(err))
		return Instance{}, err
	}

	// Another request promoted the same virtual instance first. Fall back to
	// updating the winner's row with our mutation.
	winner, err := p.store.FindInstanceBySlot(ctx, row.ProviderID, date, row.StartTime)
	if err != nil {
		p.log.Error("save instance: duplicate-slot winner lookup failed",
			zap.String("provider", row.ProviderID.Hex()),
			zap.Time("date", date),
			zap.String("start_time", row.StartTime),
			zap.Error(err))
		return Instance{}, err
	}
	updated, err := p.store.UpdateInstance(ctx, winner.ID, mutationOf(inst))
	if err != nil {
		p.log.Error("save instance: conflict-converted update failed",
			zap.String("id", winner.ID.Hex()), zap.Error(err))
		return Instance{}, err
	}
	metrics.Promotions.WithLabelValues("converted").Inc()
	return Instance{Ref: DurableRef(updated.ID), ScheduleSession: updated}, nil
}

func mutationOf(inst Instance) InstanceMutation {
	return InstanceMutation{
		CompletedAt:  inst.CompletedAt,
		CompletedBy:  inst.CompletedBy,
		SessionNotes: inst.SessionNotes,
	}
}
