// internal/app/features/sessions/handler.go
package sessions

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"spedhub/internal/app/schedule"
)

// Handler is the shared dependency container for the sessions feature: the
// scheduling core services, the store (for save-path lookups), the request
// validator, and the notes sanitizer.
type Handler struct {
	Store        schedule.Store
	Materializer *schedule.Materializer
	Persister    *schedule.Persister
	Coordinator  *schedule.Coordinator
	Log          *zap.Logger

	validate *validator.Validate
	notes    *bluemonday.Policy
}

// NewHandler constructs a sessions Handler. It is typically called from the
// bootstrap BuildHandler function, where the store and core services are
// already initialized.
func NewHandler(store schedule.Store, mat *schedule.Materializer, pers *schedule.Persister, coord *schedule.Coordinator, logger *zap.Logger) *Handler {
	return &Handler{
		Store:        store,
		Materializer: mat,
		Persister:    pers,
		Coordinator:  coord,
		Log:          logger,
		validate:     validator.New(),
		// Session notes are stored and re-rendered verbatim; strip all
		// markup on the way in.
		notes: bluemonday.StrictPolicy(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
