// internal/app/features/sessions/group.go
package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"spedhub/internal/app/schedule"
	"spedhub/internal/app/system/authz"
	"spedhub/internal/app/system/timeouts"
)

// HandleGroup handles POST /api/sessions/group.
//
// Validation and authorization failures return specific messages; storage
// failures return a generic one with detail only in server logs.
func (h *Handler) HandleGroup(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "sessionIds (at least two) and groupName are required")
		return
	}
	ids, err := parseObjectIDs(req.SessionIDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed session id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	groupID, updated, err := h.Coordinator.GroupSessions(ctx, uid, ids, req.GroupName, req.GroupID)
	if err != nil {
		h.respondGroupError(w, uid, err, "failed to group sessions")
		return
	}
	writeJSON(w, http.StatusOK, groupResponse{Success: true, GroupID: groupID, Sessions: updated})
}

// HandleUngroup handles POST /api/sessions/ungroup.
func (h *Handler) HandleUngroup(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ungroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "sessionIds (at least one) is required")
		return
	}
	ids, err := parseObjectIDs(req.SessionIDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed session id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	updated, err := h.Coordinator.UngroupSessions(ctx, uid, ids)
	if err != nil {
		h.respondGroupError(w, uid, err, "failed to ungroup sessions")
		return
	}
	writeJSON(w, http.StatusOK, groupResponse{Success: true, Sessions: updated})
}

// respondGroupError maps coordinator failures onto the API's error
// conventions: 400 for validation, 403 for authorization (generic message;
// rejected ids stay in server logs), 500 otherwise.
func (h *Handler) respondGroupError(w http.ResponseWriter, uid primitive.ObjectID, err error, generic string) {
	var ve *schedule.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Msg)
	case errors.Is(err, schedule.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, schedule.ErrNotAuthorized.Error())
	default:
		h.Log.Error("group operation failed",
			zap.String("requester", uid.Hex()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, generic)
	}
}

func parseObjectIDs(hexes []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(hexes))
	for _, hx := range hexes {
		id, err := primitive.ObjectIDFromHex(hx)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
