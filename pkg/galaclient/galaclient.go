// Package galaclient provides a client for the gala judging note store.
package galaclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/abrezinsky/galajudge/internal/errors"
	"github.com/abrezinsky/galajudge/internal/evaluation"
	"github.com/abrezinsky/galajudge/internal/logger"
	"github.com/abrezinsky/galajudge/internal/models"
)

// Generic codes the server uses when an error has no narrower code
const (
	codeExclusivity  = "EXCLUSIVITY_VIOLATION"
	codeUnauthorized = "UNAUTHORIZED"
)

// LoginRequest is the judge login body
type LoginRequest struct {
	Code string `json:"code"`
}

// LoginResponse is the judge login response
type LoginResponse struct {
	Judge models.Judge `json:"judge"`
}

// APIError is the JSON error body returned by the server
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

// HTTPClient talks to the note store over its JSON API. The judge is
// identified by the session cookie obtained at login, so judgeID arguments
// are only used for logging.
type HTTPClient struct {
	mu         sync.Mutex
	baseURL    string
	httpClient *http.Client
	log        logger.Logger
	accessCode string
	judge      *models.Judge
}

// NewHTTPClient creates a new client with cookie support
func NewHTTPClient(baseURL string, log logger.Logger) *HTTPClient {
	jar, _ := cookiejar.New(nil)
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		log: log,
	}
}

// NewHTTPClientWithHTTPClient creates a new client with a custom http.Client
func NewHTTPClientWithHTTPClient(baseURL string, httpClient *http.Client, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		log:        log,
	}
}

// BaseURL returns the configured base URL
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// SetCredentials configures the access code used for automatic login
func (c *HTTPClient) SetCredentials(accessCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessCode = accessCode
	c.judge = nil
}

// Judge returns the logged-in judge, nil before Login
func (c *HTTPClient) Judge() *models.Judge {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.judge
}

// Login authenticates a judge with an access code and keeps it for
// re-authentication
func (c *HTTPClient) Login(ctx context.Context, accessCode string) (*models.Judge, error) {
	var resp LoginResponse
	if err := c.send(ctx, http.MethodPost, "/api/judge/login", LoginRequest{Code: accessCode}, &resp); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.accessCode = accessCode
	c.judge = &resp.Judge
	c.mu.Unlock()
	c.log.Debug("Judge logged in", "judge_id", resp.Judge.ID)
	return &resp.Judge, nil
}

// doRequest sends a request, logging in first when credentials are known and
// retrying once after an expired session.
func (c *HTTPClient) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
	c.mu.Lock()
	code, authenticated := c.accessCode, c.judge != nil
	c.mu.Unlock()

	if !authenticated && code != "" {
		c.log.Debug("Not authenticated, logging in before request")
		if _, err := c.Login(ctx, code); err != nil {
			return err
		}
	}

	err := c.send(ctx, method, path, body, out)
	if errors.CodeOf(err) == codeUnauthorized && code != "" {
		c.log.Debug("Session expired, re-authenticating")
		if _, err := c.Login(ctx, code); err != nil {
			return err
		}
		return c.send(ctx, method, path, body, out)
	}
	return err
}

func (c *HTTPClient) send(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.ErrValidation, "failed to encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	c.log.Debug("Store request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Transport(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Transport(err)
	}

	c.log.Debug("Store response", "status", resp.StatusCode, "path", path)

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to parse response")
	}
	return nil
}

// decodeError turns an error response into an *errors.Error, keeping the
// server's narrower code.
func decodeError(status int, body []byte) error {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}

	var e *errors.Error
	switch {
	case apiErr.Code == errors.CodeNotAllowed || apiErr.Code == codeExclusivity:
		e = errors.Exclusivity(apiErr.Message)
	case status == http.StatusNotFound:
		e = errors.NotFound(apiErr.Message)
	case status == http.StatusConflict:
		e = errors.Conflict(apiErr.Message)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e = errors.Forbidden(apiErr.Message)
	case status >= http.StatusInternalServerError:
		e = errors.Transportf("store returned status %d: %s", status, apiErr.Message)
	default:
		e = errors.Validation(apiErr.Message)
	}
	if apiErr.Code != "" {
		e = e.WithCode(apiErr.Code)
	}
	return e
}

func judgeGalaPath(galaID int) string {
	return fmt.Sprintf("/api/judge/galas/%d", galaID)
}

func participantPath(scope models.Scope) string {
	return fmt.Sprintf("/api/judge/galas/%d/categories/%d/participants/%d", scope.GalaID, scope.CategoryID, scope.ParticipantID)
}

// ListAssignedGalas returns the logged-in judge's galas with progress
func (c *HTTPClient) ListAssignedGalas(ctx context.Context, judgeID int) ([]models.GalaSummary, error) {
	var list models.GalaList
	if err := c.doRequest(ctx, http.MethodGet, "/api/judge/galas", nil, &list); err != nil {
		return nil, err
	}
	return list.Galas, nil
}

// GetCategoryParticipants returns a category's participants with progress
func (c *HTTPClient) GetCategoryParticipants(ctx context.Context, judgeID, galaID, categoryID int) (*models.CategoryView, error) {
	var view models.CategoryView
	path := fmt.Sprintf("%s/categories/%d/participants", judgeGalaPath(galaID), categoryID)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// GetParticipantQuestions returns a participant's questions with notes
func (c *HTTPClient) GetParticipantQuestions(ctx context.Context, scope models.Scope) (*models.ParticipantView, error) {
	var view models.ParticipantView
	if err := c.doRequest(ctx, http.MethodGet, participantPath(scope), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// WriteNote sends a partial note and returns the stored note
func (c *HTTPClient) WriteNote(ctx context.Context, scope models.Scope, questionID int, patch models.NotePatch) (*models.Note, error) {
	var result models.NoteWriteResult
	path := fmt.Sprintf("%s/questions/%d", participantPath(scope), questionID)
	if err := c.doRequest(ctx, http.MethodPatch, path, patch, &result); err != nil {
		c.log.Warn("Note write failed", "question_id", questionID, "participant_id", scope.ParticipantID, "error", err)
		return nil, err
	}
	note := result.Note
	note.JudgeID = scope.JudgeID
	note.QuestionID = questionID
	note.ParticipantID = note.TargetParticipantID
	if note.ParticipantID == 0 {
		note.ParticipantID = scope.ParticipantID
	}
	return &note, nil
}

// SetFavorite makes the participant in scope the category favorite
func (c *HTTPClient) SetFavorite(ctx context.Context, scope models.Scope) (*models.FavoriteState, error) {
	return c.favorite(ctx, http.MethodPost, scope)
}

// ClearFavorite removes the participant in scope as the category favorite
func (c *HTTPClient) ClearFavorite(ctx context.Context, scope models.Scope) (*models.FavoriteState, error) {
	return c.favorite(ctx, http.MethodDelete, scope)
}

func (c *HTTPClient) favorite(ctx context.Context, method string, scope models.Scope) (*models.FavoriteState, error) {
	var result models.FavoriteResult
	if err := c.doRequest(ctx, method, participantPath(scope)+"/favorite", nil, &result); err != nil {
		return nil, err
	}
	return &result.Favorite, nil
}

// SubmitEvaluations finalizes the judge's evaluations for a gala
func (c *HTTPClient) SubmitEvaluations(ctx context.Context, judgeID, galaID int) error {
	var result models.StatusResult
	if err := c.doRequest(ctx, http.MethodPost, judgeGalaPath(galaID)+"/submit", nil, &result); err != nil {
		return err
	}
	c.log.Info("Evaluations submitted", "judge_id", judgeID, "gala_id", galaID)
	return nil
}

// ClientSettings fetches the save timings configured on the server
func (c *HTTPClient) ClientSettings(ctx context.Context) (*models.ClientSettings, error) {
	var settings models.ClientSettings
	if err := c.doRequest(ctx, http.MethodGet, "/api/judge/settings", nil, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// NewSession logs in if needed and starts an evaluation session for the
// judge, using the server's save timings. Options given here win.
func (c *HTTPClient) NewSession(ctx context.Context, opts ...evaluation.Option) (*evaluation.Session, error) {
	settings, err := c.ClientSettings(ctx)
	if err != nil {
		return nil, err
	}
	judge := c.Judge()
	if judge == nil {
		return nil, errors.Validation("no judge logged in")
	}
	all := append([]evaluation.Option{
		evaluation.WithDebounce(settings.Debounce()),
		evaluation.WithBusyRetry(settings.BusyRetry()),
	}, opts...)
	c.log.Debug("Starting evaluation session", "judge_id", judge.ID, "debounce_ms", settings.DebounceMS)
	return evaluation.NewSession(c, judge.ID, all...), nil
}
