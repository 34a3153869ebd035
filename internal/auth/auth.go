package auth

import (
	"context"
	"crypto/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	CookieName      = "galajudge_session"
	JudgeCookieName = "judge_session"
	SessionExpiry   = 24 * time.Hour
)

// Gala-themed words for password generation
var galaWords = []string{
	"trophee", "gala", "jury", "laureat", "prestige",
	"excellence", "podium", "soiree", "merite", "etoile",
	"bravo", "ovation", "lumiere", "audace", "elan",
	"fierte", "talent", "vision", "tapis",
}

// sessions maps tokens to a judge ID (0 for administrators) and an expiry
type sessions struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]session
	now     func() time.Time
}

type session struct {
	judgeID int
	expiry  time.Time
}

func newSessions(ttl time.Duration) *sessions {
	if ttl <= 0 {
		ttl = SessionExpiry
	}
	return &sessions{ttl: ttl, entries: make(map[string]session), now: time.Now}
}

func (s *sessions) create(judgeID int) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.entries[token] = session{judgeID: judgeID, expiry: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return token
}

func (s *sessions) lookup(token string) (int, bool) {
	s.mu.RLock()
	entry, exists := s.entries[token]
	s.mu.RUnlock()

	if !exists {
		return 0, false
	}
	if s.now().After(entry.expiry) {
		s.delete(token)
		return 0, false
	}
	return entry.judgeID, true
}

func (s *sessions) delete(token string) {
	s.mu.Lock()
	delete(s.entries, token)
	s.mu.Unlock()
}

// Auth handles administrator and judge authentication
type Auth struct {
	password string
	admins   *sessions
	judges   *sessions
}

// New creates a new Auth instance with the given admin password.
// A non-positive ttl uses SessionExpiry.
func New(password string, ttl time.Duration) *Auth {
	return &Auth{
		password: password,
		admins:   newSessions(ttl),
		judges:   newSessions(ttl),
	}
}

// TTL returns the session lifetime
func (a *Auth) TTL() time.Duration {
	return a.admins.ttl
}

// setClock replaces the time source of both session stores (for testing)
func (a *Auth) setClock(now func() time.Time) {
	a.admins.now = now
	a.judges.now = now
}

// GeneratePassword creates a random 3-word password
func GeneratePassword() string {
	words := make([]string, 3)
	for i := range words {
		idx := randomInt(len(galaWords))
		words[i] = galaWords[idx]
	}
	return strings.Join(words, "-")
}

// Login validates the password and returns a session token if valid
func (a *Auth) Login(password string) (string, bool) {
	if password != a.password {
		return "", false
	}
	return a.admins.create(0), true
}

// Logout invalidates an admin session token
func (a *Auth) Logout(token string) {
	a.admins.delete(token)
}

// ValidateSession checks if an admin session token is valid
func (a *Auth) ValidateSession(token string) bool {
	_, ok := a.admins.lookup(token)
	return ok
}

// GetSessionFromRequest extracts and validates the admin session from a request
func (a *Auth) GetSessionFromRequest(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	return a.ValidateSession(cookie.Value)
}

// LoginJudge opens a judge session and returns its token
func (a *Auth) LoginJudge(judgeID int) string {
	return a.judges.create(judgeID)
}

// LogoutJudge invalidates a judge session token
func (a *Auth) LogoutJudge(token string) {
	a.judges.delete(token)
}

// JudgeFromRequest returns the judge ID of the request's session
func (a *Auth) JudgeFromRequest(r *http.Request) (int, bool) {
	cookie, err := r.Cookie(JudgeCookieName)
	if err != nil {
		return 0, false
	}
	return a.judges.lookup(cookie.Value)
}

type judgeKey struct{}

// WithJudge returns a context carrying the authenticated judge ID
func WithJudge(ctx context.Context, judgeID int) context.Context {
	return context.WithValue(ctx, judgeKey{}, judgeID)
}

// JudgeID returns the authenticated judge ID stored by RequireJudgeAPI
func JudgeID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(judgeKey{}).(int)
	return id, ok
}

// RequireAuthAPI middleware for admin API endpoints (returns 401)
func (a *Auth) RequireAuthAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.GetSessionFromRequest(r) {
			next.ServeHTTP(w, r)
			return
		}
		unauthorized(w, "Unauthorized - please log in")
	})
}

// RequireJudgeAPI middleware for judge API endpoints. The judge ID is put in
// the request context.
func (a *Auth) RequireJudgeAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		judgeID, ok := a.JudgeFromRequest(r)
		if !ok {
			unauthorized(w, "Unauthorized - please log in with your access code")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithJudge(r.Context(), judgeID)))
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"code":"UNAUTHORIZED","error":"` + msg + `"}`))
}

// SetSessionCookie sets the admin session cookie on the response
func (a *Auth) SetSessionCookie(w http.ResponseWriter, token string) {
	setCookie(w, CookieName, token, int(a.TTL().Seconds()))
}

// SetJudgeCookie sets the judge session cookie on the response
func (a *Auth) SetJudgeCookie(w http.ResponseWriter, token string) {
	setCookie(w, JudgeCookieName, token, int(a.TTL().Seconds()))
}

// ClearSessionCookie removes the named session cookie
func ClearSessionCookie(w http.ResponseWriter, name string) {
	setCookie(w, name, "", -1)
}

func setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// randomInt returns a random int in [0, max)
func randomInt(max int) int {
	bytes := make([]byte, 1)
	rand.Read(bytes)
	return int(bytes[0]) % max
}
