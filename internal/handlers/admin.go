package handlers

import (
	"net/http"

	"github.com/abrezinsky/galajudge/internal/models"
)

const defaultLockedBy = "admin"

// ==================== Galas ====================

func (h *Handlers) handleAdminListGalas(w http.ResponseWriter, r *http.Request) {
	galas, err := h.Admin.ListGalas(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if galas == nil {
		galas = []models.Gala{}
	}
	respondOK(w, GalasResponse{Galas: galas})
}

// handleLockGala locks a gala. The body is optional.
func (h *Handlers) handleLockGala(w http.ResponseWriter, r *http.Request) {
	galaID, err := parseIntParam(r, "galaID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	req := LockRequest{By: defaultLockedBy}
	if r.ContentLength > 0 {
		if err := decodeAndValidate(r, &req); err != nil {
			h.respondError(w, r, err)
			return
		}
		if req.By == "" {
			req.By = defaultLockedBy
		}
	}

	gala, err := h.Admin.LockGala(r.Context(), galaID, req.By)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, GalaLockResponse{Gala: *gala})
}

func (h *Handlers) handleUnlockGala(w http.ResponseWriter, r *http.Request) {
	galaID, err := parseIntParam(r, "galaID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	gala, err := h.Admin.UnlockGala(r.Context(), galaID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, GalaLockResponse{Gala: *gala})
}

// ==================== Submissions ====================

func (h *Handlers) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	galaID, err := parseIntParam(r, "galaID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	subs, err := h.Admin.ListSubmissions(r.Context(), galaID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if subs == nil {
		subs = []models.Submission{}
	}
	respondOK(w, SubmissionsResponse{GalaID: galaID, Submissions: subs})
}

// handleResetSubmission reopens a judge's evaluations
func (h *Handlers) handleResetSubmission(w http.ResponseWriter, r *http.Request) {
	galaID, err := parseIntParam(r, "galaID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	judgeID, err := parseIntParam(r, "judgeID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.Admin.ResetSubmission(r.Context(), galaID, judgeID); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, statusOK)
}

// ==================== Judges ====================

func (h *Handlers) handleListJudges(w http.ResponseWriter, r *http.Request) {
	judges, err := h.Admin.ListJudges(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if judges == nil {
		judges = []models.Judge{}
	}
	respondOK(w, JudgesResponse{Judges: judges})
}

func (h *Handlers) handleRegenerateAccessCode(w http.ResponseWriter, r *http.Request) {
	judgeID, err := parseIntParam(r, "judgeID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	code, err := h.Admin.RegenerateAccessCode(r.Context(), judgeID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, AccessCodeResponse{JudgeID: judgeID, AccessCode: code})
}

// handleJudgeQR serves a PNG QR code that logs the judge in
func (h *Handlers) handleJudgeQR(w http.ResponseWriter, r *http.Request) {
	judgeID, err := parseIntParam(r, "judgeID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	png, err := h.Admin.JudgeQRImage(r.Context(), judgeID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

// ==================== Settings ====================

func (h *Handlers) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	baseURL, err := h.Admin.GetBaseURL(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, SettingsResponse{BaseURL: baseURL})
}

func (h *Handlers) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsUpdateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.Admin.SetBaseURL(r.Context(), req.BaseURL); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.handleGetSettings(w, r)
}

// ==================== Database Management ====================

func (h *Handlers) handleResetDatabase(w http.ResponseWriter, r *http.Request) {
	var req DatabaseResetRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	result, err := h.Admin.ResetTables(r.Context(), req.Tables)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, result)
}

// handleSeed fills an empty database with demo data
func (h *Handlers) handleSeed(w http.ResponseWriter, r *http.Request) {
	result, err := h.Admin.SeedDemo(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondCreated(w, result)
}
