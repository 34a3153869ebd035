package evaluation

import (
	"context"
	"sync"

	"github.com/abrezinsky/galajudge/internal/errors"
	"github.com/abrezinsky/galajudge/internal/models"
)

const (
	testJudge    = 7
	testGala     = 1
	testCategory = 10
	testNarr     = 11
	partA        = 100
	partB        = 101
	qOne         = 1
	qTwo         = 2
	qShared      = 3
)

type noteKey struct {
	participant int
	question    int
}

type writeCall struct {
	scope      models.Scope
	questionID int
	patch      models.NotePatch
}

// fakeStore is an in-memory note store: two participants in one category,
// two own questions each, and one shared narrative question answered for
// the participant itself.
type fakeStore struct {
	mu        sync.Mutex
	locked    bool
	submitted bool
	notes     map[noteKey]models.Note
	favorite  map[int]*int
	writes    []writeCall
	submits   int

	// failWrite, when set, is consulted before every write
	failWrite func(call writeCall) error
	// onWrite runs inside WriteNote, after validation, before the note is stored
	onWrite func(call writeCall)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		notes:    make(map[noteKey]models.Note),
		favorite: make(map[int]*int),
	}
}

func (f *fakeStore) questions(participantID int) []models.QuestionView {
	qs := []models.QuestionView{
		{Question: models.Question{ID: qOne, CategoryID: testCategory, Text: "Vision"}, Order: 1, ScopeParticipantID: participantID, CountsForProgress: true},
		{Question: models.Question{ID: qTwo, CategoryID: testCategory, Text: "Impact"}, Order: 2, ScopeParticipantID: participantID, CountsForProgress: true},
		{Question: models.Question{ID: qShared, CategoryID: testNarr, Text: "Histoire", Shared: true}, Order: 3, Source: "narratif", ScopeParticipantID: participantID + 1000, CountsForProgress: false},
	}
	for i := range qs {
		n, ok := f.notes[noteKey{qs[i].ScopeParticipantID, qs[i].ID}]
		if ok {
			qs[i].Value = n.Value
			qs[i].Comment = n.Comment
		}
	}
	return qs
}

func (f *fakeStore) participantProgress(participantID int) models.ParticipantProgress {
	return ParticipantProgress(QuestionStates(f.questions(participantID)))
}

func (f *fakeStore) categoryProgress() models.CategoryProgress {
	return CategoryProgress([]models.ParticipantProgress{
		f.participantProgress(partA),
		f.participantProgress(partB),
	})
}

func (f *fakeStore) ListAssignedGalas(ctx context.Context, judgeID int) ([]models.GalaSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cat := f.categoryProgress()
	progress := GalaProgress([]models.CategoryProgress{cat}, models.NarrativeProgress{})
	g := models.GalaSummary{
		Gala:      models.Gala{ID: testGala, Name: "Gala 2026", Year: 2026, Locked: f.locked},
		Submitted: f.submitted,
		Status:    GalaStatus(progress, f.locked, f.submitted),
		Progress:  progress,
		Categories: []models.CategorySummary{{
			Category: models.Category{ID: testCategory, GalaID: testGala, Name: "Innovation"},
			Status:   CategoryStatus(cat, f.locked, f.submitted),
			Progress: cat,
		}},
	}
	if f.submitted {
		g.SubmittedAt = "2026-03-01T10:00:00Z"
	}
	return []models.GalaSummary{g}, nil
}

func (f *fakeStore) GetCategoryParticipants(ctx context.Context, judgeID, galaID, categoryID int) (*models.CategoryView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if categoryID != testCategory {
		return nil, errors.NotFound("category not found")
	}
	view := &models.CategoryView{
		Category:  models.Category{ID: testCategory, GalaID: testGala, Name: "Innovation"},
		Locked:    f.locked,
		Submitted: f.submitted,
		Progress:  f.categoryProgress(),
	}
	for _, id := range []int{partA, partB} {
		p := f.participantProgress(id)
		view.Participants = append(view.Participants, models.ParticipantSummary{
			Participant: models.Participant{ID: id, CategoryID: testCategory},
			Progress:    p,
			Status:      ParticipantStatus(p, f.locked, f.submitted),
		})
	}
	return view, nil
}

func (f *fakeStore) GetParticipantQuestions(ctx context.Context, scope models.Scope) (*models.ParticipantView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if scope.ParticipantID != partA && scope.ParticipantID != partB {
		return nil, errors.NotFound("participant not found")
	}
	allowed := !(f.locked || f.submitted)
	fav := &models.FavoriteState{ParticipantID: f.favorite[scope.CategoryID], Allowed: &allowed}
	fav.Selected = fav.ParticipantID != nil && *fav.ParticipantID == scope.ParticipantID
	p := f.participantProgress(scope.ParticipantID)
	return &models.ParticipantView{
		Participant: models.Participant{ID: scope.ParticipantID, CategoryID: scope.CategoryID},
		Questions:   f.questions(scope.ParticipantID),
		Progress:    p,
		Status:      ParticipantStatus(p, f.locked, f.submitted),
		Locked:      f.locked,
		Submitted:   f.submitted,
		Favorite:    fav,
	}, nil
}

func (f *fakeStore) gateErr() error {
	if f.locked {
		return errors.Conflict("gala is locked").WithCode(errors.CodeGalaLocked)
	}
	if f.submitted {
		return errors.Conflict("already submitted").WithCode(errors.CodeAlreadySubmitted)
	}
	return nil
}

func (f *fakeStore) WriteNote(ctx context.Context, scope models.Scope, questionID int, patch models.NotePatch) (*models.Note, error) {
	call := writeCall{scope: scope, questionID: questionID, patch: patch}
	f.mu.Lock()
	f.writes = append(f.writes, call)
	failWrite, onWrite := f.failWrite, f.onWrite
	f.mu.Unlock()

	if failWrite != nil {
		if err := failWrite(call); err != nil {
			return nil, err
		}
	}
	if onWrite != nil {
		onWrite(call)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gateErr(); err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	target := scope.ParticipantID
	if patch.TargetParticipantID != nil {
		target = *patch.TargetParticipantID
	}
	key := noteKey{target, questionID}
	note := patch.Apply(f.notes[key])
	note.JudgeID = scope.JudgeID
	note.ParticipantID = target
	note.QuestionID = questionID
	note.TargetParticipantID = target
	f.notes[key] = note
	return &note, nil
}

func (f *fakeStore) SetFavorite(ctx context.Context, scope models.Scope) (*models.FavoriteState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gateErr(); err != nil {
		return nil, err
	}
	id := scope.ParticipantID
	f.favorite[scope.CategoryID] = &id
	return &models.FavoriteState{Selected: true, ParticipantID: &id}, nil
}

func (f *fakeStore) ClearFavorite(ctx context.Context, scope models.Scope) (*models.FavoriteState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gateErr(); err != nil {
		return nil, err
	}
	cur := f.favorite[scope.CategoryID]
	if cur != nil && *cur == scope.ParticipantID {
		delete(f.favorite, scope.CategoryID)
		return &models.FavoriteState{Selected: false}, nil
	}
	return &models.FavoriteState{Selected: false, ParticipantID: cur}, nil
}

func (f *fakeStore) SubmitEvaluations(ctx context.Context, judgeID, galaID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	if err := f.gateErr(); err != nil {
		return err
	}
	if !GalaProgress([]models.CategoryProgress{f.categoryProgress()}, models.NarrativeProgress{}).Complete() {
		return errors.Validation("incomplete").WithCode(errors.CodeIncomplete)
	}
	f.submitted = true
	return nil
}

func (f *fakeStore) setLocked(v bool) {
	f.mu.Lock()
	f.locked = v
	f.mu.Unlock()
}

func (f *fakeStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeStore) writeLog() []writeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]writeCall(nil), f.writes...)
}

func (f *fakeStore) note(participant, question int) (models.Note, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[noteKey{participant, question}]
	return n, ok
}

// rate stores a rating directly, bypassing the engine
func (f *fakeStore) rate(participant, question, value int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := value
	f.notes[noteKey{participant, question}] = models.Note{
		JudgeID: testJudge, ParticipantID: participant, QuestionID: question, Value: &v,
	}
}

func (f *fakeStore) favoriteOf(category int) *int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.favorite[category]
}

var _ Store = (*fakeStore)(nil)
