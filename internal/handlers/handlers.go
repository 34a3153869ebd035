package handlers

import (
	"net/http"
	"time"

	"github.com/abrezinsky/galajudge/internal/auth"
	"github.com/abrezinsky/galajudge/internal/evaluation"
	"github.com/abrezinsky/galajudge/internal/logger"
	"github.com/abrezinsky/galajudge/internal/models"
	"github.com/abrezinsky/galajudge/internal/services"
)

// EventServer serves the realtime event stream. ServeAdminWs is mounted
// behind the admin session and sees every judge's events.
type EventServer interface {
	ServeWs(w http.ResponseWriter, r *http.Request)
	ServeAdminWs(w http.ResponseWriter, r *http.Request)
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Judging services.JudgingServicer
	Admin   services.AdminServicer
	Auth    *auth.Auth
	Events  EventServer
	Log     logger.Logger
	now     func() time.Time
	client  models.ClientSettings
}

// New creates a new Handlers instance with all dependencies. events may be
// nil, in which case the event stream routes are not mounted.
func New(
	judging services.JudgingServicer,
	admin services.AdminServicer,
	sessions *auth.Auth,
	events EventServer,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		Judging: judging,
		Admin:   admin,
		Auth:    sessions,
		Events:  events,
		Log:     log,
		now:     time.Now,
		client:  models.NewClientSettings(evaluation.DefaultDebounce, evaluation.DefaultBusyRetry),
	}
}

// SetClientSettings sets the save timings published to judge clients
func (h *Handlers) SetClientSettings(settings models.ClientSettings) {
	h.client = settings
}

// SetClock replaces the clock used for response timestamps
func (h *Handlers) SetClock(now func() time.Time) {
	h.now = now
}

func (h *Handlers) timestamp() string {
	return h.now().UTC().Format(time.RFC3339)
}
