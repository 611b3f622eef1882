// internal/app/features/sessions/types.go
package sessions

import (
	"spedhub/internal/app/schedule"
	"spedhub/internal/domain/models"
)

// instancePayload is the wire form of one calendar occurrence. The outer ID
// shadows the embedded row id: durable instances carry their row's hex id,
// virtual ones the "virtual:<templateID>:<date>" ref that HandleSave accepts
// back.
type instancePayload struct {
	ID      string `json:"id"`
	Virtual bool   `json:"virtual"`
	models.ScheduleSession
}

func toPayload(inst schedule.Instance) instancePayload {
	return instancePayload{
		ID:              inst.Ref.String(),
		Virtual:         inst.Ref.IsEphemeral(),
		ScheduleSession: inst.ScheduleSession,
	}
}

// calendarResponse is the body of GET /api/sessions.
type calendarResponse struct {
	Sessions []instancePayload `json:"sessions"`
}

// saveRequest is the body of POST /api/sessions/save.
type saveRequest struct {
	ID        string `json:"id" validate:"required"`
	Completed bool   `json:"completed"`
	Notes     string `json:"notes"`
}

// groupRequest is the body of POST /api/sessions/group.
type groupRequest struct {
	SessionIDs []string `json:"sessionIds" validate:"required,min=2,dive,required"`
	GroupName  string   `json:"groupName" validate:"required"`
	GroupID    string   `json:"groupId" validate:"omitempty,uuid4"`
}

// ungroupRequest is the body of POST /api/sessions/ungroup.
type ungroupRequest struct {
	SessionIDs []string `json:"sessionIds" validate:"required,min=1,dive,required"`
}

// groupResponse is the success body for group/ungroup. GroupID is empty for
// ungroup.
type groupResponse struct {
	Success  bool                     `json:"success"`
	GroupID  string                   `json:"groupId,omitempty"`
	Sessions []models.ScheduleSession `json:"sessions"`
}
