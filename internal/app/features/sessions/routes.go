// internal/app/features/sessions/routes.go
package sessions

import (
	"github.com/go-chi/chi/v5"

	"spedhub/internal/app/system/auth"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// Everything under /api/sessions requires an authenticated requester.
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		// CALENDAR (materialized date range)
		pr.Get("/", h.ServeCalendar)

		// SAVE (promote or update one instance)
		pr.Post("/save", h.HandleSave)

		// GROUP / UNGROUP
		pr.Post("/group", h.HandleGroup)
		pr.Post("/ungroup", h.HandleUngroup)
	})

	return r
}
