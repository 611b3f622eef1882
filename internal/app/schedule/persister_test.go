// internal/app/schedule/persister_test.go
package schedule_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"spedhub/internal/app/schedule"
	"spedhub/internal/app/store/inmem"
	"spedhub/internal/testutil"
)

// virtualInstance expands a stored template into the virtual instance a
// client would send back for saving.
func virtualInstance(store *inmem.Store, tplID primitive.ObjectID, date time.Time) (schedule.Instance, error) {
	tpl, ok := store.Get(tplID)
	if !ok {
		return schedule.Instance{}, errors.New("template not found")
	}
	s := tpl
	s.ID = primitive.NilObjectID
	d := schedule.DateOnly(date)
	s.SessionDate = &d
	return schedule.Instance{Ref: schedule.EphemeralRef(tplID, date), ScheduleSession: s}, nil
}

func TestSaveInstance_RefusesMissingDate(t *testing.T) {
	p := schedule.NewPersister(inmem.New(), zap.NewNop())

	inst := schedule.Instance{
		Ref:             schedule.DurableRef(primitive.NewObjectID()),
		ScheduleSession: testutil.Template(primitive.NewObjectID(), primitive.NewObjectID(), 3, "09:00", "09:30"),
	}
	if _, err := p.SaveInstance(context.Background(), inst); !errors.Is(err, schedule.ErrNoSessionDate) {
		t.Errorf("err = %v, want ErrNoSessionDate", err)
	}
}

func TestSaveInstance_PromotesVirtual(t *testing.T) {
	store := inmem.New()
	provider := primitive.NewObjectID()
	wednesday := testutil.Date(2026, 9, 2)

	tpl := store.Put(testutil.Template(primitive.NewObjectID(), provider, schedule.ISOWeekday(wednesday), "09:00", "09:30"))

	inst, err := virtualInstance(store, tpl.ID, wednesday)
	if err != nil {
		t.Fatal(err)
	}
	completedAt := wednesday.Add(10 * time.Hour)
	inst.CompletedAt = &completedAt
	inst.CompletedBy = &provider
	inst.SessionNotes = "made good progress"

	p := schedule.NewPersister(store, zap.NewNop())
	saved, err := p.SaveInstance(context.Background(), inst)
	if err != nil {
		t.Fatalf("SaveInstance: %v", err)
	}

	id, ok := saved.Ref.DurableID()
	if !ok {
		t.Fatal("saved instance still ephemeral")
	}
	row, ok := store.Get(id)
	if !ok {
		t.Fatal("promoted row not in store")
	}
	if row.SessionDate == nil || !row.SessionDate.Equal(wednesday) {
		t.Errorf("session date = %v, want %v", row.SessionDate, wednesday)
	}
	if !row.IsCompleted() || row.SessionNotes != "made good progress" {
		t.Errorf("mutation not applied: completed=%v notes=%q", row.IsCompleted(), row.SessionNotes)
	}
	if row.StudentID != tpl.StudentID || row.StartTime != tpl.StartTime {
		t.Error("promoted row lost template-derived fields")
	}
	// One template plus one instance.
	if store.Count() != 2 {
		t.Errorf("store has %d rows, want 2", store.Count())
	}
}

func TestSaveInstance_DuplicateSlotConvergesOnWinner(t *testing.T) {
	store := inmem.New()
	provider := primitive.NewObjectID()
	wednesday := testutil.Date(2026, 9, 2)

	tpl := store.Put(testutil.Template(primitive.NewObjectID(), provider, schedule.ISOWeekday(wednesday), "09:00", "09:30"))
	p := schedule.NewPersister(store, zap.NewNop())

	first, err := virtualInstance(store, tpl.ID, wednesday)
	if err != nil {
		t.Fatal(err)
	}
	first.SessionNotes = "first save"
	winner, err := p.SaveInstance(context.Background(), first)
	if err != nil {
		t.Fatalf("first save: %v", err)
	}

	// A second save of the same virtual instance hits the slot constraint and
	// must land on the winner's row as an update.
	second, err := virtualInstance(store, tpl.ID, wednesday)
	if err != nil {
		t.Fatal(err)
	}
	second.SessionNotes = "second save"
	loser, err := p.SaveInstance(context.Background(), second)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}

	wid, _ := winner.Ref.DurableID()
	lid, _ := loser.Ref.DurableID()
	if wid != lid {
		t.Fatalf("saves diverged: %v vs %v", wid, lid)
	}
	row, _ := store.Get(wid)
	if row.SessionNotes != "second save" {
		t.Errorf("notes = %q, want %q", row.SessionNotes, "second save")
	}
	if store.Count() != 2 {
		t.Errorf("store has %d rows, want 2 (no duplicate instance)", store.Count())
	}
}

func TestSaveInstance_DurableUpdatesMutableFieldsOnly(t *testing.T) {
	store := inmem.New()
	provider := primitive.NewObjectID()
	wednesday := testutil.Date(2026, 9, 2)

	row := testutil.Instance(primitive.NewObjectID(), provider, wednesday, "09:00", "09:30")
	row.SessionNotes = "old notes"
	row = store.Put(row)

	inst := schedule.Instance{Ref: schedule.DurableRef(row.ID), ScheduleSession: row}
	completedAt := wednesday.Add(10 * time.Hour)
	inst.CompletedAt = &completedAt
	inst.CompletedBy = &provider
	inst.SessionNotes = "new notes"
	// Structural edits on the way in must not stick.
	inst.StartTime = "23:00"

	p := schedule.NewPersister(store, zap.NewNop())
	saved, err := p.SaveInstance(context.Background(), inst)
	if err != nil {
		t.Fatalf("SaveInstance: %v", err)
	}

	got, _ := store.Get(row.ID)
	if got.SessionNotes != "new notes" || !got.IsCompleted() {
		t.Errorf("mutation not applied: notes=%q completed=%v", got.SessionNotes, got.IsCompleted())
	}
	if got.StartTime != "09:00" {
		t.Errorf("start time = %q, structural field must not change", got.StartTime)
	}
	if id, _ := saved.Ref.DurableID(); id != row.ID {
		t.Errorf("saved ref = %v, want %v", id, row.ID)
	}
}

func TestSaveInstance_DurableRefToTemplateIsNotFound(t *testing.T) {
	store := inmem.New()
	tpl := store.Put(testutil.Template(primitive.NewObjectID(), primitive.NewObjectID(), 3, "09:00", "09:30"))

	d := testutil.Date(2026, 9, 2)
	inst := schedule.Instance{Ref: schedule.DurableRef(tpl.ID), ScheduleSession: tpl}
	inst.SessionDate = &d

	p := schedule.NewPersister(store, zap.NewNop())
	if _, err := p.SaveInstance(context.Background(), inst); !errors.Is(err, schedule.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound (templates unreachable from instance path)", err)
	}
}

func TestSaveInstance_Uncomplete(t *testing.T) {
	store := inmem.New()
	provider := primitive.NewObjectID()
	wednesday := testutil.Date(2026, 9, 2)

	row := testutil.Instance(primitive.NewObjectID(), provider, wednesday, "09:00", "09:30")
	row = testutil.Completed(row, provider, wednesday.Add(10*time.Hour))
	row = store.Put(row)

	inst := schedule.Instance{Ref: schedule.DurableRef(row.ID), ScheduleSession: row}
	inst.CompletedAt = nil
	inst.CompletedBy = nil

	p := schedule.NewPersister(store, zap.NewNop())
	if _, err := p.SaveInstance(context.Background(), inst); err != nil {
		t.Fatalf("SaveInstance: %v", err)
	}
	got, _ := store.Get(row.ID)
	if got.IsCompleted() {
		t.Error("completion was not cleared")
	}
}
