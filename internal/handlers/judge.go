package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/galajudge/internal/auth"
	"github.com/abrezinsky/galajudge/internal/models"
)

// judgeScope builds the editing scope from the session and the path.
// Identifiers absent from the route stay zero.
func judgeScope(r *http.Request) (models.Scope, int, error) {
	judgeID, ok := auth.JudgeID(r.Context())
	if !ok {
		return models.Scope{}, 0, ErrUnauthorized
	}

	var params scopeParams
	ids := []struct {
		name string
		dst  **int
	}{
		{"galaID", &params.GalaID},
		{"categoryID", &params.CategoryID},
		{"participantID", &params.ParticipantID},
		{"questionID", &params.QuestionID},
	}
	for _, id := range ids {
		if chi.URLParam(r, id.name) == "" {
			continue
		}
		v, err := parseIntParam(r, id.name)
		if err != nil {
			return models.Scope{}, 0, err
		}
		*id.dst = &v
	}
	if err := validateStruct(params); err != nil {
		return models.Scope{}, 0, err
	}

	scope := models.Scope{
		JudgeID:       judgeID,
		GalaID:        deref(params.GalaID),
		CategoryID:    deref(params.CategoryID),
		ParticipantID: deref(params.ParticipantID),
	}
	return scope, deref(params.QuestionID), nil
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// handleJudgeMe returns the logged-in judge
func (h *Handlers) handleJudgeMe(w http.ResponseWriter, r *http.Request) {
	judgeID, _ := auth.JudgeID(r.Context())
	judge, err := h.Judging.GetJudge(r.Context(), judgeID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, JudgeLoginResponse{Judge: models.Judge{ID: judge.ID, Name: judge.Name}})
}

// handleClientSettings returns the save timings the judge's client should use
func (h *Handlers) handleClientSettings(w http.ResponseWriter, r *http.Request) {
	respondOK(w, h.client)
}

// handleListGalas lists the judge's galas with progress and status
func (h *Handlers) handleListGalas(w http.ResponseWriter, r *http.Request) {
	judgeID, _ := auth.JudgeID(r.Context())
	galas, err := h.Judging.ListAssignedGalas(r.Context(), judgeID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if galas == nil {
		galas = []models.GalaSummary{}
	}
	respondOK(w, models.GalaList{Galas: galas})
}

// handleCategoryParticipants returns a category's participants with progress
func (h *Handlers) handleCategoryParticipants(w http.ResponseWriter, r *http.Request) {
	scope, _, err := judgeScope(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	view, err := h.Judging.GetCategoryParticipants(r.Context(), scope.JudgeID, scope.GalaID, scope.CategoryID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, view)
}

// handleParticipantQuestions returns one participant's questions and notes
func (h *Handlers) handleParticipantQuestions(w http.ResponseWriter, r *http.Request) {
	scope, _, err := judgeScope(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	view, err := h.Judging.GetParticipantQuestions(r.Context(), scope)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, view)
}

// handleWriteNote applies a partial note. Absent fields are left unchanged,
// explicit nulls clear them.
func (h *Handlers) handleWriteNote(w http.ResponseWriter, r *http.Request) {
	scope, questionID, err := judgeScope(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var patch models.NotePatch
	if err := decodeJSON(r, &patch); err != nil {
		h.respondError(w, r, err)
		return
	}
	if patch.IsEmpty() {
		h.respondError(w, r, BadRequest("Request must set valeur or commentaire"))
		return
	}

	note, err := h.Judging.WriteNote(r.Context(), scope, questionID, patch)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, models.NoteWriteResult{Status: "ok", Note: *note, SavedAt: h.timestamp()})
}

// handleSetFavorite makes the participant the category favorite
func (h *Handlers) handleSetFavorite(w http.ResponseWriter, r *http.Request) {
	h.favorite(w, r, true)
}

// handleClearFavorite removes the participant as the category favorite
func (h *Handlers) handleClearFavorite(w http.ResponseWriter, r *http.Request) {
	h.favorite(w, r, false)
}

func (h *Handlers) favorite(w http.ResponseWriter, r *http.Request, set bool) {
	scope, _, err := judgeScope(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var state *models.FavoriteState
	if set {
		state, err = h.Judging.SetFavorite(r.Context(), scope)
	} else {
		state, err = h.Judging.ClearFavorite(r.Context(), scope)
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, models.FavoriteResult{Status: "ok", Favorite: *state})
}

// handleSubmit finalizes the judge's evaluations for a gala
func (h *Handlers) handleSubmit(w http.ResponseWriter, r *http.Request) {
	scope, _, err := judgeScope(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.Judging.SubmitEvaluations(r.Context(), scope.JudgeID, scope.GalaID); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, statusOK)
}
