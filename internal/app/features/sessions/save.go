// internal/app/features/sessions/save.go
package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"spedhub/internal/app/policy/schedulepolicy"
	"spedhub/internal/app/schedule"
	"spedhub/internal/app/system/authz"
	"spedhub/internal/app/system/timeouts"
)

// HandleSave handles POST /api/sessions/save.
//
// The body names one instance — durable row id or virtual ref — plus the
// desired completion flag and notes. A virtual instance is promoted to a
// durable row on its first save; a durable one has only its mutable fields
// updated. Template rows are unreachable from this endpoint.
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	ref, err := schedule.ParseInstanceRef(req.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed session id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	inst, status, msg := h.resolveInstance(ctx, ref)
	if status != 0 {
		writeError(w, status, msg)
		return
	}
	if !schedulepolicy.CanDeliver(uid, inst.ScheduleSession) {
		writeError(w, http.StatusForbidden, "you do not deliver this session")
		return
	}

	if req.Completed {
		now := time.Now().UTC()
		inst.CompletedAt = &now
		inst.CompletedBy = &uid
	} else {
		inst.CompletedAt = nil
		inst.CompletedBy = nil
	}
	inst.SessionNotes = h.notes.Sanitize(req.Notes)

	saved, err := h.Persister.SaveInstance(ctx, inst)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, toPayload(saved))
	case errors.Is(err, schedule.ErrNoSessionDate):
		writeError(w, http.StatusBadRequest, "session has no date")
	case errors.Is(err, schedule.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	default:
		h.Log.Error("save session failed",
			zap.String("requester", uid.Hex()),
			zap.String("id", req.ID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save session")
	}
}

// resolveInstance loads the target of a save. For a durable ref that is the
// stored row; for an ephemeral ref the source template is re-read and
// expanded for the ref's date, so a stale client cannot save a virtual
// instance whose template is gone. Returns a non-zero status and message on
// failure.
func (h *Handler) resolveInstance(ctx context.Context, ref schedule.InstanceRef) (schedule.Instance, int, string) {
	if id, ok := ref.DurableID(); ok {
		rows, err := h.Store.GetSessions(ctx, []primitive.ObjectID{id})
		if err != nil {
			h.Log.Error("save: session lookup failed", zap.String("id", id.Hex()), zap.Error(err))
			return schedule.Instance{}, http.StatusInternalServerError, "failed to load session"
		}
		if len(rows) == 0 {
			return schedule.Instance{}, http.StatusNotFound, "session not found"
		}
		if rows[0].IsTemplate() {
			return schedule.Instance{}, http.StatusBadRequest, "session has no date"
		}
		return schedule.Instance{Ref: ref, ScheduleSession: rows[0]}, 0, ""
	}

	tid, date, _ := ref.Template()
	rows, err := h.Store.GetSessions(ctx, []primitive.ObjectID{tid})
	if err != nil {
		h.Log.Error("save: template lookup failed", zap.String("template_id", tid.Hex()), zap.Error(err))
		return schedule.Instance{}, http.StatusInternalServerError, "failed to load session"
	}
	if len(rows) == 0 || !rows[0].IsTemplate() {
		return schedule.Instance{}, http.StatusNotFound, "recurring session no longer exists"
	}
	s := rows[0]
	s.ID = primitive.NilObjectID
	s.SessionDate = &date
	return schedule.Instance{Ref: ref, ScheduleSession: s}, 0, ""
}
