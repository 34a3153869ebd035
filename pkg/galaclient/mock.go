package galaclient

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/abrezinsky/galajudge/internal/errors"
	"github.com/abrezinsky/galajudge/internal/evaluation"
	"github.com/abrezinsky/galajudge/internal/models"
)

// MockCategory is one category of a mock gala with its questions and
// participants
type MockCategory struct {
	Category     models.Category
	Questions    []models.Question
	Participants []models.Participant
}

// MockGala is a gala served by MockClient
type MockGala struct {
	Gala       models.Gala
	Categories []MockCategory
}

type noteKey struct {
	participantID int
	questionID    int
}

type favoriteKey struct {
	galaID     int
	categoryID int
}

// MockClient is an in-memory note store for one judge. It enforces the
// same rules as the server: lock and submission gating, rating and comment
// validation, favorite exclusivity and submission completeness.
type MockClient struct {
	mu          sync.Mutex
	galas       []MockGala
	notes       map[noteKey]models.Note
	favorites   map[favoriteKey]int
	submitted   map[int]string
	writeErr    error
	failWrites  int
	fetchErr    error
	submitErr   error
	favoriteErr error
	writeHook   func(scope models.Scope, questionID int)
	writes      int
	now         func() time.Time
}

// MockOption configures the mock client
type MockOption func(*MockClient)

// WithGalas sets the galas to serve
func WithGalas(galas []MockGala) MockOption {
	return func(m *MockClient) {
		m.galas = galas
	}
}

// WithWriteError sets an error to return from every WriteNote
func WithWriteError(err error) MockOption {
	return func(m *MockClient) {
		m.writeErr = err
	}
}

// WithFailingWrites makes the next n writes fail with a transport error
func WithFailingWrites(n int) MockOption {
	return func(m *MockClient) {
		m.failWrites = n
	}
}

// WithFetchError sets an error to return from the read operations
func WithFetchError(err error) MockOption {
	return func(m *MockClient) {
		m.fetchErr = err
	}
}

// WithSubmitError sets an error to return from SubmitEvaluations
func WithSubmitError(err error) MockOption {
	return func(m *MockClient) {
		m.submitErr = err
	}
}

// WithFavoriteError sets an error to return from SetFavorite and ClearFavorite
func WithFavoriteError(err error) MockOption {
	return func(m *MockClient) {
		m.favoriteErr = err
	}
}

// WithWriteHook runs f inside every WriteNote before the note is stored
func WithWriteHook(f func(scope models.Scope, questionID int)) MockOption {
	return func(m *MockClient) {
		m.writeHook = f
	}
}

// WithClock sets the clock used for submission and lock timestamps
func WithClock(now func() time.Time) MockOption {
	return func(m *MockClient) {
		m.now = now
	}
}

// NewMockClient creates a new mock store
func NewMockClient(opts ...MockOption) *MockClient {
	m := &MockClient{
		galas:     DefaultMockGalas(),
		notes:     make(map[noteKey]models.Note),
		favorites: make(map[favoriteKey]int),
		submitted: make(map[int]string),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DefaultMockGalas returns one gala with a scored category and a narrative
// category holding a shared question for the same two companies
func DefaultMockGalas() []MockGala {
	return []MockGala{{
		Gala: models.Gala{ID: 1, Name: "Gala Excellence", Year: 2026},
		Categories: []MockCategory{
			{
				Category: models.Category{ID: 10, GalaID: 1, Name: "Innovation"},
				Questions: []models.Question{
					{ID: 1, CategoryID: 10, Text: "Originalité de la solution", Weight: 1},
					{ID: 2, CategoryID: 10, Text: "Impact sur le marché", Weight: 1},
				},
				Participants: []models.Participant{
					{ID: 100, CompanyID: 1, CategoryID: 10, Company: "Boulangerie Dupuis"},
					{ID: 101, CompanyID: 2, CategoryID: 10, Company: "Atelier Morin"},
				},
			},
			{
				Category: models.Category{ID: 11, GalaID: 1, Name: "Narratif"},
				Questions: []models.Question{
					{ID: 3, CategoryID: 11, Text: "Racontez votre histoire", Shared: true},
				},
				Participants: []models.Participant{
					{ID: 200, CompanyID: 1, CategoryID: 11, Company: "Boulangerie Dupuis"},
					{ID: 201, CompanyID: 2, CategoryID: 11, Company: "Atelier Morin"},
				},
			},
		},
	}}
}

// WriteCount returns the number of WriteNote calls received
func (m *MockClient) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Note returns the stored note for a participant and question
func (m *MockClient) Note(participantID, questionID int) (models.Note, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[noteKey{participantID, questionID}]
	return n, ok
}

// Rate stores a rating directly, bypassing the rules
func (m *MockClient) Rate(participantID, questionID, value int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := value
	key := noteKey{participantID, questionID}
	n := m.notes[key]
	n.ParticipantID, n.QuestionID, n.Value, n.TargetParticipantID = participantID, questionID, &v, participantID
	m.notes[key] = n
}

// SetLocked locks or unlocks a gala, as an administrator would
func (m *MockClient) SetLocked(galaID int, locked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g := m.findGala(galaID); g != nil {
		g.Gala.Locked = locked
		g.Gala.LockedAt = ""
		if locked {
			g.Gala.LockedAt = m.now().UTC().Format(time.RFC3339)
		}
	}
}

// ResetSubmission clears the judge's submission for a gala
func (m *MockClient) ResetSubmission(galaID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.submitted, galaID)
}

func (m *MockClient) findGala(galaID int) *MockGala {
	for i := range m.galas {
		if m.galas[i].Gala.ID == galaID {
			return &m.galas[i]
		}
	}
	return nil
}

func (g *MockGala) findCategory(categoryID int) *MockCategory {
	for i := range g.Categories {
		if g.Categories[i].Category.ID == categoryID {
			return &g.Categories[i]
		}
	}
	return nil
}

func (c *MockCategory) findParticipant(participantID int) *models.Participant {
	for i := range c.Participants {
		if c.Participants[i].ID == participantID {
			return &c.Participants[i]
		}
	}
	return nil
}

func (m *MockClient) gateErr(g *MockGala) error {
	if g.Gala.Locked {
		return errors.Conflict("gala is locked").WithCode(errors.CodeGalaLocked)
	}
	if _, ok := m.submitted[g.Gala.ID]; ok {
		return errors.Conflict("evaluations already submitted for this gala").WithCode(errors.CodeAlreadySubmitted)
	}
	return nil
}

// questionsFor lists the participant's own questions followed by shared
// questions surfaced from the other categories its company is entered in
func (m *MockClient) questionsFor(g *MockGala, c *MockCategory, p *models.Participant) []models.QuestionView {
	seen := make(map[int]bool)
	var out []models.QuestionView
	add := func(q models.Question, scopeParticipant int, source string) {
		if seen[q.ID] {
			return
		}
		seen[q.ID] = true
		view := models.QuestionView{
			Question:           q,
			Order:              len(out) + 1,
			Source:             source,
			ScopeParticipantID: scopeParticipant,
			CountsForProgress:  !q.Shared,
		}
		if n, ok := m.notes[noteKey{scopeParticipant, q.ID}]; ok {
			view.Value = n.Value
			view.Comment = n.Comment
		}
		out = append(out, view)
	}

	for _, q := range c.Questions {
		add(q, p.ID, "")
	}
	for i := range g.Categories {
		other := &g.Categories[i]
		if other.Category.ID == c.Category.ID {
			continue
		}
		for _, q := range other.Questions {
			if !q.Shared {
				continue
			}
			for _, op := range other.Participants {
				if op.CompanyID == p.CompanyID {
					add(q, op.ID, "narratif")
					break
				}
			}
		}
	}
	return out
}

func (m *MockClient) categoryProgress(g *MockGala, c *MockCategory) (models.CategoryProgress, []models.ParticipantProgress) {
	parts := make([]models.ParticipantProgress, 0, len(c.Participants))
	for i := range c.Participants {
		parts = append(parts, evaluation.ParticipantProgress(evaluation.QuestionStates(m.questionsFor(g, c, &c.Participants[i]))))
	}
	return evaluation.CategoryProgress(parts), parts
}

func (m *MockClient) narrativeProgress(g *MockGala) models.NarrativeProgress {
	var n models.NarrativeProgress
	for _, c := range g.Categories {
		for _, q := range c.Questions {
			if !q.Shared {
				continue
			}
			for _, p := range c.Participants {
				n.Total++
				if note, ok := m.notes[noteKey{p.ID, q.ID}]; ok && note.Answered() {
					n.Recorded++
				}
			}
		}
	}
	return n
}

func (m *MockClient) summary(g *MockGala) models.GalaSummary {
	submittedAt, submitted := m.submitted[g.Gala.ID]
	s := models.GalaSummary{Gala: g.Gala, Submitted: submitted, SubmittedAt: submittedAt}
	var cats []models.CategoryProgress
	for i := range g.Categories {
		c := &g.Categories[i]
		cp, _ := m.categoryProgress(g, c)
		cats = append(cats, cp)
		cat := c.Category
		cat.QuestionCount = len(c.Questions)
		cat.ParticipantCount = len(c.Participants)
		s.Categories = append(s.Categories, models.CategorySummary{
			Category: cat,
			Status:   evaluation.CategoryStatus(cp, g.Gala.Locked, submitted),
			Progress: cp,
		})
	}
	sort.Slice(s.Categories, func(i, j int) bool { return s.Categories[i].Name < s.Categories[j].Name })
	s.Progress = evaluation.GalaProgress(cats, m.narrativeProgress(g))
	s.Status = evaluation.GalaStatus(s.Progress, g.Gala.Locked, submitted)
	return s
}

// ListAssignedGalas returns every gala, newest year first
func (m *MockClient) ListAssignedGalas(ctx context.Context, judgeID int) ([]models.GalaSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	out := make([]models.GalaSummary, 0, len(m.galas))
	for i := range m.galas {
		out = append(out, m.summary(&m.galas[i]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *MockClient) lookup(galaID, categoryID int) (*MockGala, *MockCategory, error) {
	g := m.findGala(galaID)
	if g == nil {
		return nil, nil, errors.NotFoundf("gala %d not found", galaID)
	}
	c := g.findCategory(categoryID)
	if c == nil {
		return nil, nil, errors.NotFoundf("category %d not found", categoryID)
	}
	return g, c, nil
}

// GetCategoryParticipants returns a category's participants with progress
func (m *MockClient) GetCategoryParticipants(ctx context.Context, judgeID, galaID, categoryID int) (*models.CategoryView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	g, c, err := m.lookup(galaID, categoryID)
	if err != nil {
		return nil, err
	}
	_, submitted := m.submitted[galaID]
	cp, parts := m.categoryProgress(g, c)
	view := &models.CategoryView{
		Gala:      g.Gala,
		Category:  c.Category,
		Locked:    g.Gala.Locked,
		Submitted: submitted,
		Status:    evaluation.CategoryStatus(cp, g.Gala.Locked, submitted),
		Progress:  cp,
	}
	for i, p := range c.Participants {
		view.Participants = append(view.Participants, models.ParticipantSummary{
			Participant: p,
			Progress:    parts[i],
			Status:      evaluation.ParticipantStatus(parts[i], g.Gala.Locked, submitted),
		})
	}
	return view, nil
}

// GetParticipantQuestions returns a participant's questions with notes
func (m *MockClient) GetParticipantQuestions(ctx context.Context, scope models.Scope) (*models.ParticipantView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	g, c, err := m.lookup(scope.GalaID, scope.CategoryID)
	if err != nil {
		return nil, err
	}
	p := c.findParticipant(scope.ParticipantID)
	if p == nil {
		return nil, errors.NotFoundf("participant %d not found", scope.ParticipantID)
	}
	_, submitted := m.submitted[scope.GalaID]
	questions := m.questionsFor(g, c, p)
	progress := evaluation.ParticipantProgress(evaluation.QuestionStates(questions))
	return &models.ParticipantView{
		Gala:        g.Gala,
		Category:    c.Category,
		Participant: *p,
		Questions:   questions,
		Progress:    progress,
		Status:      evaluation.ParticipantStatus(progress, g.Gala.Locked, submitted),
		Locked:      g.Gala.Locked,
		Submitted:   submitted,
		Favorite:    m.favoriteLocked(scope, g.Gala.Locked, submitted),
	}, nil
}

func (m *MockClient) favoriteLocked(scope models.Scope, locked, submitted bool) *models.FavoriteState {
	state := evaluation.DefaultFavorite(locked, submitted)
	if id, ok := m.favorites[favoriteKey{scope.GalaID, scope.CategoryID}]; ok {
		state.ParticipantID = &id
		state.Selected = id == scope.ParticipantID
	}
	return &state
}

// WriteNote applies a partial note and returns the stored note
func (m *MockClient) WriteNote(ctx context.Context, scope models.Scope, questionID int, patch models.NotePatch) (*models.Note, error) {
	m.mu.Lock()
	m.writes++
	hook := m.writeHook
	if m.writeErr != nil {
		err := m.writeErr
		m.mu.Unlock()
		return nil, err
	}
	if m.failWrites > 0 {
		m.failWrites--
		m.mu.Unlock()
		return nil, errors.Transportf("connection reset")
	}
	m.mu.Unlock()

	if hook != nil {
		hook(scope, questionID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	g, c, err := m.lookup(scope.GalaID, scope.CategoryID)
	if err != nil {
		return nil, err
	}
	if err := m.gateErr(g); err != nil {
		return nil, err
	}
	p := c.findParticipant(scope.ParticipantID)
	if p == nil {
		return nil, errors.NotFoundf("participant %d not found", scope.ParticipantID)
	}
	patch = patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var question *models.QuestionView
	for _, q := range m.questionsFor(g, c, p) {
		if q.ID == questionID {
			q := q
			question = &q
			break
		}
	}
	if question == nil {
		return nil, errors.NotFoundf("question %d not found for participant %d", questionID, scope.ParticipantID)
	}
	target := question.ScopeParticipantID
	if patch.TargetParticipantID != nil && *patch.TargetParticipantID != target {
		return nil, errors.Validationf("question %d cannot be written for participant %d", questionID, *patch.TargetParticipantID)
	}

	key := noteKey{target, questionID}
	note := patch.Apply(m.notes[key])
	note.JudgeID = scope.JudgeID
	note.ParticipantID = target
	note.QuestionID = questionID
	note.TargetParticipantID = target
	if note.Empty() {
		delete(m.notes, key)
	} else {
		m.notes[key] = note
	}
	return &note, nil
}

// SetFavorite makes the participant in scope the category favorite
func (m *MockClient) SetFavorite(ctx context.Context, scope models.Scope) (*models.FavoriteState, error) {
	return m.toggleFavorite(scope, true)
}

// ClearFavorite removes the participant in scope as the category favorite
func (m *MockClient) ClearFavorite(ctx context.Context, scope models.Scope) (*models.FavoriteState, error) {
	return m.toggleFavorite(scope, false)
}

func (m *MockClient) toggleFavorite(scope models.Scope, set bool) (*models.FavoriteState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.favoriteErr != nil {
		return nil, m.favoriteErr
	}
	g, c, err := m.lookup(scope.GalaID, scope.CategoryID)
	if err != nil {
		return nil, err
	}
	if err := m.gateErr(g); err != nil {
		return nil, err
	}
	if c.findParticipant(scope.ParticipantID) == nil {
		return nil, errors.NotFoundf("participant %d not found", scope.ParticipantID)
	}

	key := favoriteKey{scope.GalaID, scope.CategoryID}
	if set {
		m.favorites[key] = scope.ParticipantID
	} else if id, ok := m.favorites[key]; ok && id == scope.ParticipantID {
		delete(m.favorites, key)
	}

	state := &models.FavoriteState{}
	if id, ok := m.favorites[key]; ok {
		state.ParticipantID = &id
		state.Selected = id == scope.ParticipantID
	}
	return state, nil
}

// SubmitEvaluations finalizes the gala when every required note is present
func (m *MockClient) SubmitEvaluations(ctx context.Context, judgeID, galaID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return m.submitErr
	}
	g := m.findGala(galaID)
	if g == nil {
		return errors.NotFoundf("gala %d not found", galaID)
	}
	if err := m.gateErr(g); err != nil {
		return err
	}
	if s := m.summary(g); !s.Progress.Complete() {
		return errors.Validationf("all questions must be rated before submitting (%d/%d)", s.Progress.Recorded, s.Progress.Total).
			WithCode(errors.CodeIncomplete)
	}
	m.submitted[galaID] = m.now().UTC().Format(time.RFC3339)
	return nil
}
