// internal/app/policy/schedulepolicy/schedulepolicy_test.go
package schedulepolicy_test

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"spedhub/internal/app/policy/schedulepolicy"
	"spedhub/internal/domain/models"
)

func TestNormalizeRole(t *testing.T) {
	if got := schedulepolicy.NormalizeRole("  Resource_Specialist "); got != "resource_specialist" {
		t.Errorf("NormalizeRole = %q, want %q", got, "resource_specialist")
	}
}

func TestIsSpecialistSource(t *testing.T) {
	for _, role := range []string{"specialist", "resource_specialist", "speech", "ot", "counseling"} {
		if !schedulepolicy.IsSpecialistSource(role) {
			t.Errorf("IsSpecialistSource(%q) = false, want true", role)
		}
	}
	for _, role := range []string{"sea", "provider", "teacher", "admin", ""} {
		if schedulepolicy.IsSpecialistSource(role) {
			t.Errorf("IsSpecialistSource(%q) = true, want false", role)
		}
	}
}

func TestCanView(t *testing.T) {
	owner := primitive.NewObjectID()
	specialist := primitive.NewObjectID()
	sea := primitive.NewObjectID()
	stranger := primitive.NewObjectID()

	s := models.ScheduleSession{
		ProviderID:           owner,
		AssignedSpecialistID: &specialist,
		AssignedSEAID:        &sea,
	}

	tests := []struct {
		name   string
		viewer primitive.ObjectID
		role   string
		want   bool
	}{
		{"owner any role", owner, "teacher", true},
		{"assigned specialist, specialist role", specialist, "speech", true},
		{"assigned specialist, plain role", specialist, "teacher", false},
		{"assigned sea, sea role", sea, "sea", true},
		{"assigned sea, specialist role", sea, "speech", false},
		{"stranger, specialist role", stranger, "speech", false},
		{"stranger, sea role", stranger, "sea", false},
		{"stranger, plain role", stranger, "teacher", false},
	}
	for _, tt := range tests {
		if got := schedulepolicy.CanView(tt.viewer, tt.role, s); got != tt.want {
			t.Errorf("%s: CanView = %v, want %v", tt.name, got, tt.want)
		}
	}

	bare := models.ScheduleSession{ProviderID: owner}
	if schedulepolicy.CanView(specialist, "speech", bare) {
		t.Error("specialist role with no assignment should not see foreign sessions")
	}
}

func TestCanDeliver(t *testing.T) {
	owner := primitive.NewObjectID()
	specialist := primitive.NewObjectID()
	sea := primitive.NewObjectID()
	stranger := primitive.NewObjectID()

	s := models.ScheduleSession{
		ProviderID:           owner,
		AssignedSpecialistID: &specialist,
		AssignedSEAID:        &sea,
	}

	for _, id := range []primitive.ObjectID{owner, specialist, sea} {
		if !schedulepolicy.CanDeliver(id, s) {
			t.Errorf("CanDeliver(%v) = false, want true", id)
		}
	}
	if schedulepolicy.CanDeliver(stranger, s) {
		t.Error("CanDeliver(stranger) = true, want false")
	}
	if !schedulepolicy.CanDeliver(owner, models.ScheduleSession{ProviderID: owner}) {
		t.Error("owner of an unassigned session must be able to deliver it")
	}
}
