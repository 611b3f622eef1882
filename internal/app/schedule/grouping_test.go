// internal/app/schedule/grouping_test.go
package schedule_test

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"spedhub/internal/app/schedule"
	"spedhub/internal/app/store/inmem"
	"spedhub/internal/testutil"
)

func newCoordinator(store *inmem.Store) *schedule.Coordinator {
	return schedule.NewCoordinator(store, zap.NewNop())
}

func TestGroupSessions_Validation(t *testing.T) {
	store := inmem.New()
	requester := primitive.NewObjectID()
	tpl := store.Put(testutil.Template(primitive.NewObjectID(), requester, 3, "09:00", "09:30"))
	c := newCoordinator(store)

	var ve *schedule.ValidationError

	_, _, err := c.GroupSessions(context.Background(), requester, []primitive.ObjectID{tpl.ID}, "Reading", "")
	if !errors.As(err, &ve) {
		t.Errorf("one session: err = %v, want ValidationError", err)
	}

	other := store.Put(testutil.Template(primitive.NewObjectID(), requester, 3, "10:00", "10:30"))
	_, _, err = c.GroupSessions(context.Background(), requester, []primitive.ObjectID{tpl.ID, other.ID}, "   ", "")
	if !errors.As(err, &ve) {
		t.Errorf("blank name: err = %v, want ValidationError", err)
	}

	_, _, err = c.GroupSessions(context.Background(), requester, []primitive.ObjectID{tpl.ID, primitive.NewObjectID()}, "Reading", "")
	if !errors.As(err, &ve) {
		t.Errorf("unknown id: err = %v, want ValidationError", err)
	}
}

func TestGroupSessions_TagsRowsAndPropagates(t *testing.T) {
	store := inmem.New()
	requester := primitive.NewObjectID()
	wednesday := testutil.Date(2026, 9, 2)

	tplA := store.Put(testutil.Template(primitive.NewObjectID(), requester, schedule.ISOWeekday(wednesday), "09:00", "09:30"))
	tplB := store.Put(testutil.Template(primitive.NewObjectID(), requester, schedule.ISOWeekday(wednesday), "09:00", "09:45"))
	// A durable instance in template A's slot picks the tag up via propagation.
	instA := store.Put(testutil.InstanceOf(tplA, wednesday))
	// An instance in an unrelated slot stays untouched.
	unrelated := store.Put(testutil.Instance(primitive.NewObjectID(), requester, wednesday, "13:00", "13:30"))

	c := newCoordinator(store)
	groupID, updated, err := c.GroupSessions(context.Background(), requester, []primitive.ObjectID{tplA.ID, tplB.ID}, "Reading Group", "")
	if err != nil {
		t.Fatalf("GroupSessions: %v", err)
	}
	if groupID == "" {
		t.Fatal("generated group id is empty")
	}
	if len(updated) != 2 {
		t.Errorf("updated %d rows, want 2", len(updated))
	}

	for _, id := range []primitive.ObjectID{tplA.ID, tplB.ID, instA.ID} {
		row, _ := store.Get(id)
		if row.GroupID != groupID || row.GroupName != "Reading Group" {
			t.Errorf("row %v tag = %q/%q, want %q/%q", id, row.GroupID, row.GroupName, groupID, "Reading Group")
		}
	}
	if row, _ := store.Get(unrelated.ID); row.GroupID != "" {
		t.Errorf("unrelated instance picked up tag %q", row.GroupID)
	}
}

func TestGroupSessions_ReusesProvidedGroupID(t *testing.T) {
	store := inmem.New()
	requester := primitive.NewObjectID()
	tplA := store.Put(testutil.Template(primitive.NewObjectID(), requester, 3, "09:00", "09:30"))
	tplB := store.Put(testutil.Template(primitive.NewObjectID(), requester, 3, "10:00", "10:30"))

	const want = "7f0c7f9a-1111-4222-8333-444455556666"
	c := newCoordinator(store)
	groupID, _, err := c.GroupSessions(context.Background(), requester, []primitive.ObjectID{tplA.ID, tplB.ID}, "Reading", want)
	if err != nil {
		t.Fatalf("GroupSessions: %v", err)
	}
	if groupID != want {
		t.Errorf("group id = %q, want %q", groupID, want)
	}
}

func TestGroupSessions_AllOrNothingAuthorization(t *testing.T) {
	store := inmem.New()
	requester := primitive.NewObjectID()
	stranger := primitive.NewObjectID()

	mine := store.Put(testutil.Template(primitive.NewObjectID(), requester, 3, "09:00", "09:30"))
	theirs := store.Put(testutil.Template(primitive.NewObjectID(), stranger, 3, "10:00", "10:30"))

	c := newCoordinator(store)
	_, _, err := c.GroupSessions(context.Background(), requester, []primitive.ObjectID{mine.ID, theirs.ID}, "Reading", "")
	if !errors.Is(err, schedule.ErrNotAuthorized) {
		t.Fatalf("err = %v, want ErrNotAuthorized", err)
	}

	// No partial writes.
	for _, id := range []primitive.ObjectID{mine.ID, theirs.ID} {
		if row, _ := store.Get(id); row.GroupID != "" {
			t.Errorf("row %v was tagged despite authorization failure", id)
		}
	}
}

func TestGroupSessions_AssigneeMayGroup(t *testing.T) {
	store := inmem.New()
	owner := primitive.NewObjectID()
	specialist := primitive.NewObjectID()
	sea := primitive.NewObjectID()

	tplA := testutil.Template(primitive.NewObjectID(), owner, 3, "09:00", "09:30")
	tplA.AssignedSpecialistID = &specialist
	a := store.Put(tplA)

	tplB := testutil.Template(primitive.NewObjectID(), owner, 3, "10:00", "10:30")
	tplB.AssignedSpecialistID = &specialist
	tplB.AssignedSEAID = &sea
	b := store.Put(tplB)

	c := newCoordinator(store)
	if _, _, err := c.GroupSessions(context.Background(), specialist, []primitive.ObjectID{a.ID, b.ID}, "Speech Pair", ""); err != nil {
		t.Errorf("assigned specialist: %v", err)
	}
	// The SEA is only assigned to one of the two sessions.
	if _, _, err := c.GroupSessions(context.Background(), sea, []primitive.ObjectID{a.ID, b.ID}, "Speech Pair", ""); !errors.Is(err, schedule.ErrNotAuthorized) {
		t.Errorf("partially assigned sea: err = %v, want ErrNotAuthorized", err)
	}
}

func TestUngroupSessions_ClearsTagsAndPropagates(t *testing.T) {
	store := inmem.New()
	requester := primitive.NewObjectID()
	wednesday := testutil.Date(2026, 9, 2)

	tplA := store.Put(testutil.Template(primitive.NewObjectID(), requester, schedule.ISOWeekday(wednesday), "09:00", "09:30"))
	tplB := store.Put(testutil.Template(primitive.NewObjectID(), requester, schedule.ISOWeekday(wednesday), "10:00", "10:30"))
	instA := store.Put(testutil.InstanceOf(tplA, wednesday))

	c := newCoordinator(store)
	groupID, _, err := c.GroupSessions(context.Background(), requester, []primitive.ObjectID{tplA.ID, tplB.ID}, "Reading", "")
	if err != nil {
		t.Fatalf("GroupSessions: %v", err)
	}
	if row, _ := store.Get(instA.ID); row.GroupID != groupID {
		t.Fatal("setup: instance not tagged")
	}

	updated, err := c.UngroupSessions(context.Background(), requester, []primitive.ObjectID{tplA.ID, tplB.ID})
	if err != nil {
		t.Fatalf("UngroupSessions: %v", err)
	}
	if len(updated) != 2 {
		t.Errorf("updated %d rows, want 2", len(updated))
	}
	for _, id := range []primitive.ObjectID{tplA.ID, tplB.ID, instA.ID} {
		row, _ := store.Get(id)
		if row.GroupID != "" || row.GroupName != "" {
			t.Errorf("row %v still tagged %q/%q", id, row.GroupID, row.GroupName)
		}
	}
}

func TestUngroupSessions_Validation(t *testing.T) {
	c := newCoordinator(inmem.New())
	var ve *schedule.ValidationError
	if _, err := c.UngroupSessions(context.Background(), primitive.NewObjectID(), nil); !errors.As(err, &ve) {
		t.Errorf("err = %v, want ValidationError", err)
	}
}

func TestGroupSessions_RegroupLeavesNoResidue(t *testing.T) {
	store := inmem.New()
	requester := primitive.NewObjectID()

	tplA := store.Put(testutil.Template(primitive.NewObjectID(), requester, 3, "09:00", "09:30"))
	tplB := store.Put(testutil.Template(primitive.NewObjectID(), requester, 3, "10:00", "10:30"))

	c := newCoordinator(store)
	firstID, _, err := c.GroupSessions(context.Background(), requester, []primitive.ObjectID{tplA.ID, tplB.ID}, "First", "")
	if err != nil {
		t.Fatalf("first group: %v", err)
	}
	secondID, _, err := c.GroupSessions(context.Background(), requester, []primitive.ObjectID{tplA.ID, tplB.ID}, "Second", "")
	if err != nil {
		t.Fatalf("second group: %v", err)
	}
	if secondID == firstID {
		t.Fatal("regroup reused the old group id")
	}
	for _, id := range []primitive.ObjectID{tplA.ID, tplB.ID} {
		row, _ := store.Get(id)
		if row.GroupID != secondID || row.GroupName != "Second" {
			t.Errorf("row %v tag = %q/%q, want %q/%q", id, row.GroupID, row.GroupName, secondID, "Second")
		}
	}
}
