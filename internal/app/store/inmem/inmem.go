// internal/app/store/inmem/inmem.go
//
// Package inmem is a mutex-guarded in-memory implementation of
// schedule.Store. It backs the schedule and handler tests and mirrors the
// Mongo store's semantics, including the unique (provider, date, start_time)
// slot constraint and the session_date guard on instance updates.
package inmem

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"spedhub/internal/app/policy/schedulepolicy"
	"spedhub/internal/app/schedule"
	"spedhub/internal/domain/models"
)

type Store struct {
	mu   sync.RWMutex
	rows map[primitive.ObjectID]models.ScheduleSession

	// Error injection for degrade-path tests. When set, the corresponding
	// read returns the error instead of data.
	failInstances error
	failTemplates error
}

func New() *Store {
	return &Store{rows: make(map[primitive.ObjectID]models.ScheduleSession)}
}

// Put stores a row as-is, assigning an id if missing. Test fixture helper.
func (s *Store) Put(row models.ScheduleSession) models.ScheduleSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row.ID.IsZero() {
		row.ID = primitive.NewObjectID()
	}
	s.rows[row.ID] = row
	return row
}

// Get returns a row by id for test assertions.
func (s *Store) Get(id primitive.ObjectID) (models.ScheduleSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[id]
	return row, ok
}

// Delete removes a row directly. Test fixture helper (e.g. deleting a
// template out from under its instances).
func (s *Store) Delete(id primitive.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
}

// Count returns the number of stored rows.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// FailInstanceReads makes InstancesInRange return err (nil restores reads).
func (s *Store) FailInstanceReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failInstances = err
}

// FailTemplateReads makes TemplatesOnWeekdays return err (nil restores reads).
func (s *Store) FailTemplateReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failTemplates = err
}

func (s *Store) InstancesInRange(_ context.Context, v schedule.Viewer, start, end time.Time) ([]models.ScheduleSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failInstances != nil {
		return nil, s.failInstances
	}
	var out []models.ScheduleSession
	for _, row := range s.rows {
		if row.IsTemplate() {
			continue
		}
		d := row.SessionDate.UTC()
		if d.Before(start) || d.After(end) {
			continue
		}
		if !schedulepolicy.CanView(v.UserID, v.Role, row) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *Store) TemplatesOnWeekdays(_ context.Context, v schedule.Viewer, weekdays []int) ([]models.ScheduleSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failTemplates != nil {
		return nil, s.failTemplates
	}
	days := make(map[int]struct{}, len(weekdays))
	for _, wd := range weekdays {
		days[wd] = struct{}{}
	}
	var out []models.ScheduleSession
	for _, row := range s.rows {
		if !row.IsTemplate() {
			continue
		}
		if _, ok := days[row.DayOfWeek]; !ok {
			continue
		}
		if !schedulepolicy.CanView(v.UserID, v.Role, row) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *Store) GetSessions(_ context.Context, ids []primitive.ObjectID) ([]models.ScheduleSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ScheduleSession, 0, len(ids))
	for _, id := range ids {
		if row, ok := s.rows[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *Store) InsertInstance(_ context.Context, row models.ScheduleSession) (models.ScheduleSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row.SessionDate == nil {
		return models.ScheduleSession{}, schedule.ErrNoSessionDate
	}
	for _, existing := range s.rows {
		if existing.IsTemplate() {
			continue
		}
		if existing.ProviderID == row.ProviderID &&
			existing.SessionDate.Equal(*row.SessionDate) &&
			existing.StartTime == row.StartTime {
			return models.ScheduleSession{}, schedule.ErrDuplicateSlot
		}
	}
	row.ID = primitive.NewObjectID()
	s.rows[row.ID] = row
	return row, nil
}

func (s *Store) UpdateInstance(_ context.Context, id primitive.ObjectID, mut schedule.InstanceMutation) (models.ScheduleSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	// The session_date guard mirrors the Mongo filter: a template can never
	// be reached through this path even if its id is passed in.
	if !ok || row.IsTemplate() {
		return models.ScheduleSession{}, schedule.ErrNotFound
	}
	row.CompletedAt = mut.CompletedAt
	row.CompletedBy = mut.CompletedBy
	row.SessionNotes = mut.SessionNotes
	row.UpdatedAt = time.Now().UTC()
	s.rows[id] = row
	return row, nil
}

func (s *Store) FindInstanceBySlot(_ context.Context, providerID primitive.ObjectID, date time.Time, startTime string) (models.ScheduleSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range s.rows {
		if row.IsTemplate() {
			continue
		}
		if row.ProviderID == providerID && row.SessionDate.Equal(date) && row.StartTime == startTime {
			return row, nil
		}
	}
	return models.ScheduleSession{}, schedule.ErrNotFound
}

func (s *Store) SetGroupByIDs(_ context.Context, ids []primitive.ObjectID, tag *schedule.GroupTag) ([]models.ScheduleSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	out := make([]models.ScheduleSession, 0, len(ids))
	for _, id := range ids {
		row, ok := s.rows[id]
		if !ok {
			continue
		}
		applyTag(&row, tag, now)
		s.rows[id] = row
		out = append(out, row)
	}
	return out, nil
}

func (s *Store) SetGroupBySlot(_ context.Context, slot models.SlotKey, tag *schedule.GroupTag) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var n int64
	for id, row := range s.rows {
		if row.IsTemplate() || row.Slot() != slot {
			continue
		}
		applyTag(&row, tag, now)
		s.rows[id] = row
		n++
	}
	return n, nil
}

func (s *Store) DeleteInstances(_ context.Context, ids []primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		row, ok := s.rows[id]
		if !ok || row.IsTemplate() {
			continue
		}
		delete(s.rows, id)
		n++
	}
	return n, nil
}

func (s *Store) FutureIncompleteInstances(_ context.Context, from time.Time) ([]models.ScheduleSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ScheduleSession
	for _, row := range s.rows {
		if row.IsTemplate() || row.IsCompleted() {
			continue
		}
		if row.SessionDate.Before(from) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *Store) AllTemplates(_ context.Context) ([]models.ScheduleSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ScheduleSession
	for _, row := range s.rows {
		if row.IsTemplate() {
			out = append(out, row)
		}
	}
	return out, nil
}

func applyTag(row *models.ScheduleSession, tag *schedule.GroupTag, now time.Time) {
	if tag == nil {
		row.GroupID, row.GroupName = "", ""
	} else {
		row.GroupID, row.GroupName = tag.ID, tag.Name
	}
	row.UpdatedAt = now
}
