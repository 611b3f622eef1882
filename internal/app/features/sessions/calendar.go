// internal/app/features/sessions/calendar.go
package sessions

import (
	"context"
	"net/http"
	"sort"
	"time"

	"spedhub/internal/app/schedule"
	"spedhub/internal/app/system/authz"
	"spedhub/internal/app/system/timeouts"
)

// ServeCalendar handles GET /api/sessions?start_date=...&end_date=...
//
// It returns the materialized session set for the requester's calendar:
// durable instances plus virtual occurrences expanded from templates, sorted
// by date then start time. Storage trouble degrades to a smaller (possibly
// empty) list rather than an error; see schedule.Materializer.
func (h *Handler) ServeCalendar(w http.ResponseWriter, r *http.Request) {
	role, _, uid, ok := authz.UserCtx(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	start, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("start_date"), time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("end_date"), time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
		return
	}
	if start.After(end) {
		writeError(w, http.StatusBadRequest, "start_date must not be after end_date")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	viewer := schedule.Viewer{UserID: uid, Role: role}
	instances := h.Materializer.SessionsForDateRange(ctx, viewer, start, end)

	sort.Slice(instances, func(i, j int) bool {
		di, dj := *instances[i].SessionDate, *instances[j].SessionDate
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return instances[i].StartTime < instances[j].StartTime
	})

	payload := make([]instancePayload, 0, len(instances))
	for _, inst := range instances {
		payload = append(payload, toPayload(inst))
	}
	writeJSON(w, http.StatusOK, calendarResponse{Sessions: payload})
}
