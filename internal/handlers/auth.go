package handlers

import (
	"net/http"

	"github.com/abrezinsky/galajudge/internal/auth"
	"github.com/abrezinsky/galajudge/internal/errors"
	"github.com/abrezinsky/galajudge/internal/models"
)

var statusOK = models.StatusResult{Status: "ok"}

// handleLogin checks the administrator password and sets the session cookie
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req AdminLoginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	token, ok := h.Auth.Login(req.Password)
	if !ok {
		h.respondError(w, r, Unauthorized("Invalid password"))
		return
	}

	h.Auth.SetSessionCookie(w, token)
	respondOK(w, statusOK)
}

// handleLogout clears the administrator session
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		h.Auth.Logout(cookie.Value)
	}
	auth.ClearSessionCookie(w, auth.CookieName)
	respondOK(w, statusOK)
}

// handleJudgeLogin exchanges an access code for a judge session
func (h *Handlers) handleJudgeLogin(w http.ResponseWriter, r *http.Request) {
	var req JudgeLoginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	judge, err := h.Judging.Authenticate(r.Context(), req.Code)
	if errors.Is(err, errors.ErrForbidden) {
		h.respondError(w, r, Unauthorized("Invalid access code"))
		return
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.Auth.SetJudgeCookie(w, h.Auth.LoginJudge(judge.ID))
	respondOK(w, JudgeLoginResponse{Judge: models.Judge{ID: judge.ID, Name: judge.Name}})
}

// handleJudgeLogout clears the judge session
func (h *Handlers) handleJudgeLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.JudgeCookieName); err == nil {
		h.Auth.LogoutJudge(cookie.Value)
	}
	auth.ClearSessionCookie(w, auth.JudgeCookieName)
	respondOK(w, statusOK)
}

// handleHealth reports liveness
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, HealthResponse{Status: "ok", Time: h.timestamp()})
}
