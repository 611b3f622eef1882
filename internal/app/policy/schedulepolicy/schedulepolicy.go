// internal/app/policy/schedulepolicy/schedulepolicy.go
package schedulepolicy

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"spedhub/internal/domain/models"
)

// specialistSourceRoles are the staff roles whose calendars include sessions
// assigned to them as specialist, in addition to sessions they own.
var specialistSourceRoles = map[string]struct{}{
	"specialist":          {},
	"resource_specialist": {},
	"speech":              {},
	"ot":                  {},
	"counseling":          {},
}

// NormalizeRole trims and lowercases a role string. Roles arrive as free-form
// strings from the auth layer and every predicate here expects them folded.
func NormalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// IsSpecialistSource reports whether a (normalized) role sees sessions
// assigned to the viewer as specialist.
func IsSpecialistSource(role string) bool {
	_, ok := specialistSourceRoles[role]
	return ok
}

// IsSEA reports whether a (normalized) role sees sessions assigned to the
// viewer as SEA.
func IsSEA(role string) bool { return role == "sea" }

// CanView reports whether a viewer with the given (normalized) role may see
// the session:
//   - specialist-source roles: owned by the viewer OR assigned to the viewer
//     as specialist
//   - sea: owned by the viewer OR assigned to the viewer as SEA
//   - anything else: owned by the viewer only
func CanView(viewerID primitive.ObjectID, role string, s models.ScheduleSession) bool {
	if s.ProviderID == viewerID {
		return true
	}
	if IsSpecialistSource(role) {
		return s.AssignedSpecialistID != nil && *s.AssignedSpecialistID == viewerID
	}
	if IsSEA(role) {
		return s.AssignedSEAID != nil && *s.AssignedSEAID == viewerID
	}
	return false
}

// CanDeliver is the single authorization predicate for group and ungroup
// operations: the requester may modify a session if they own it, are its
// assigned specialist, or are its assigned SEA. Two variants of this check
// existed historically (owner-only vs. owner-or-assignee); the broader one
// is the pinned behavior, and changing product intent means changing exactly
// this function.
func CanDeliver(userID primitive.ObjectID, s models.ScheduleSession) bool {
	if s.ProviderID == userID {
		return true
	}
	if s.AssignedSpecialistID != nil && *s.AssignedSpecialistID == userID {
		return true
	}
	return s.AssignedSEAID != nil && *s.AssignedSEAID == userID
}
