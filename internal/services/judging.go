package services

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/abrezinsky/galajudge/internal/errors"
	"github.com/abrezinsky/galajudge/internal/evaluation"
	"github.com/abrezinsky/galajudge/internal/logger"
	"github.com/abrezinsky/galajudge/internal/models"
	"github.com/abrezinsky/galajudge/internal/repository"
)

// JudgingServiceRepository defines the repository methods needed by JudgingService
type JudgingServiceRepository interface {
	repository.GalaRepository
	repository.ParticipantRepository
	repository.QuestionRepository
	repository.NoteRepository
	GetJudge(ctx context.Context, judgeID int) (*models.Judge, error)
	GetJudgeByAccessCode(ctx context.Context, code string) (*models.Judge, error)
}

// JudgingService applies the judging rules on the server side. Progress and
// status are computed with the same aggregator and classifier the client
// engine uses, so both sides always agree.
type JudgingService struct {
	log         logger.Logger
	repo        JudgingServiceRepository
	broadcaster Broadcaster
	now         func() time.Time
}

// NewJudgingService creates a new JudgingService
func NewJudgingService(log logger.Logger, repo JudgingServiceRepository) *JudgingService {
	return &JudgingService{log: log, repo: repo, now: time.Now}
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *JudgingService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetClock replaces the time source (for testing)
func (s *JudgingService) SetClock(now func() time.Time) {
	s.now = now
}

// Authenticate resolves a judge from an access code
func (s *JudgingService) Authenticate(ctx context.Context, accessCode string) (*models.Judge, error) {
	judge, err := s.repo.GetJudgeByAccessCode(ctx, accessCode)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidAccessCode
	}
	if err != nil {
		return nil, storeErr(err, "judge", 0)
	}
	s.log.Info("Judge logged in", "judge_id", judge.ID)
	return judge, nil
}

// GetJudge returns a judge by ID
func (s *JudgingService) GetJudge(ctx context.Context, judgeID int) (*models.Judge, error) {
	judge, err := s.repo.GetJudge(ctx, judgeID)
	if err != nil {
		return nil, storeErr(err, "judge", judgeID)
	}
	return judge, nil
}

// galaState is the lock and submission state of one gala for one judge
type galaState struct {
	gala        models.Gala
	submitted   bool
	submittedAt string
}

func (g galaState) writeErr() error {
	if g.gala.Locked {
		return lockedErr()
	}
	if g.submitted {
		return submittedErr()
	}
	return nil
}

func (s *JudgingService) loadGala(ctx context.Context, judgeID, galaID int) (*galaState, error) {
	gala, err := s.repo.GetGala(ctx, galaID)
	if err != nil {
		return nil, storeErr(err, "gala", galaID)
	}
	state := &galaState{gala: *gala}
	sub, err := s.repo.GetSubmission(ctx, judgeID, galaID)
	switch {
	case err == nil:
		state.submitted = true
		state.submittedAt = sub.SubmittedAt
	case !stderrors.Is(err, repository.ErrNotFound):
		return nil, storeErr(err, "submission", galaID)
	}
	return state, nil
}

// loadCategory checks the category belongs to the gala and is assigned to the judge
func (s *JudgingService) loadCategory(ctx context.Context, judgeID, galaID, categoryID int) (*models.Category, error) {
	category, err := s.repo.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, storeErr(err, "category", categoryID)
	}
	if category.GalaID != galaID {
		return nil, errors.NotFoundf("category %d not found in gala %d", categoryID, galaID)
	}
	assigned, err := s.repo.IsAssigned(ctx, judgeID, categoryID)
	if err != nil {
		return nil, storeErr(err, "assignment", categoryID)
	}
	if !assigned {
		return nil, errors.Forbidden("category is not assigned to this judge")
	}
	return category, nil
}

// participantQuestions is everything needed to list one participant's
// questions: its own category questions and the shared ones surfaced from
// the other categories its company is entered in.
type participantQuestions struct {
	participant models.Participant
	shared      []repository.SharedQuestion
}

// scopeIDs returns the participant records whose notes the views read
func scopeIDs(entries []participantQuestions) []int {
	seen := make(map[int]bool)
	var ids []int
	add := func(id int) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, e := range entries {
		add(e.participant.ID)
		for _, q := range e.shared {
			add(q.ParticipantID)
		}
	}
	return ids
}

// buildQuestions lists own questions followed by surfaced shared ones,
// de-duplicated by question ID. Shared questions never count toward the
// category, including in their owning category.
func buildQuestions(own []models.Question, entry participantQuestions, notes map[int]map[int]models.Note, responses map[int]map[int]string) []models.QuestionView {
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
		if n, ok := notes[scopeParticipant][q.ID]; ok {
			view.Value = n.Value
			view.Comment = n.Comment
		}
		if text, ok := responses[scopeParticipant][q.ID]; ok {
			text := text
			view.Response = &text
		}
		out = append(out, view)
	}

	for _, q := range own {
		add(q, entry.participant.ID, "")
	}
	for _, q := range entry.shared {
		add(q.Question, q.ParticipantID, q.Source)
	}
	return out
}

// categoryState is the judge's progress over one category
type categoryState struct {
	category     models.Category
	participants []models.Participant
	progress     []models.ParticipantProgress
	total        models.CategoryProgress
	narrative    models.NarrativeProgress
}

func (s *JudgingService) loadCategoryState(ctx context.Context, judgeID, galaID int, category models.Category) (*categoryState, error) {
	questions, err := s.repo.ListQuestions(ctx, category.ID)
	if err != nil {
		return nil, storeErr(err, "questions", category.ID)
	}
	participants, err := s.repo.ListParticipants(ctx, category.ID)
	if err != nil {
		return nil, storeErr(err, "participants", category.ID)
	}

	entries := make([]participantQuestions, 0, len(participants))
	for _, p := range participants {
		shared, err := s.repo.ListSharedQuestions(ctx, galaID, p.CompanyID, category.ID)
		if err != nil {
			return nil, storeErr(err, "shared questions", p.ID)
		}
		entries = append(entries, participantQuestions{participant: p, shared: shared})
	}
	notes, err := s.repo.ListNotes(ctx, judgeID, scopeIDs(entries))
	if err != nil {
		return nil, storeErr(err, "notes", category.ID)
	}

	state := &categoryState{category: category, participants: participants}
	for _, e := range entries {
		views := buildQuestions(questions, e, notes, nil)
		state.progress = append(state.progress, evaluation.ParticipantProgress(evaluation.QuestionStates(views)))
	}
	state.total = evaluation.CategoryProgress(state.progress)

	// Shared questions owned by this category feed the gala's narrative count
	for _, q := range questions {
		if !q.Shared {
			continue
		}
		for _, p := range participants {
			state.narrative.Total++
			if n, ok := notes[p.ID][q.ID]; ok && n.Answered() {
				state.narrative.Recorded++
			}
		}
	}
	return state, nil
}

func (s *JudgingService) galaSummary(ctx context.Context, judgeID int, gala models.Gala) (*models.GalaSummary, error) {
	state, err := s.loadGala(ctx, judgeID, gala.ID)
	if err != nil {
		return nil, err
	}
	categories, err := s.repo.ListAssignedCategories(ctx, judgeID, gala.ID)
	if err != nil {
		return nil, storeErr(err, "categories", gala.ID)
	}

	summary := &models.GalaSummary{
		Gala:        state.gala,
		Submitted:   state.submitted,
		SubmittedAt: state.submittedAt,
		Categories:  []models.CategorySummary{},
	}
	var totals []models.CategoryProgress
	var narrative models.NarrativeProgress
	for _, c := range categories {
		cs, err := s.loadCategoryState(ctx, judgeID, gala.ID, c)
		if err != nil {
			return nil, err
		}
		totals = append(totals, cs.total)
		narrative.Recorded += cs.narrative.Recorded
		narrative.Total += cs.narrative.Total
		summary.Categories = append(summary.Categories, models.CategorySummary{
			Category: c,
			Status:   evaluation.CategoryStatus(cs.total, state.gala.Locked, state.submitted),
			Progress: cs.total,
		})
	}
	summary.Progress = evaluation.GalaProgress(totals, narrative)
	summary.Status = evaluation.GalaStatus(summary.Progress, state.gala.Locked, state.submitted)
	return summary, nil
}

// ListAssignedGalas returns the judge's galas, newest year first, each with
// its categories, progress and status
func (s *JudgingService) ListAssignedGalas(ctx context.Context, judgeID int) ([]models.GalaSummary, error) {
	galas, err := s.repo.ListGalasForJudge(ctx, judgeID)
	if err != nil {
		return nil, storeErr(err, "galas", judgeID)
	}
	out := make([]models.GalaSummary, 0, len(galas))
	for _, g := range galas {
		summary, err := s.galaSummary(ctx, judgeID, g)
		if err != nil {
			return nil, err
		}
		out = append(out, *summary)
	}
	return out, nil
}

// GetCategoryParticipants returns a category's participants with progress
func (s *JudgingService) GetCategoryParticipants(ctx context.Context, judgeID, galaID, categoryID int) (*models.CategoryView, error) {
	state, err := s.loadGala(ctx, judgeID, galaID)
	if err != nil {
		return nil, err
	}
	category, err := s.loadCategory(ctx, judgeID, galaID, categoryID)
	if err != nil {
		return nil, err
	}
	cs, err := s.loadCategoryState(ctx, judgeID, galaID, *category)
	if err != nil {
		return nil, err
	}

	locked, submitted := state.gala.Locked, state.submitted
	view := &models.CategoryView{
		Gala:         state.gala,
		Category:     *category,
		Locked:       locked,
		Submitted:    submitted,
		Status:       evaluation.CategoryStatus(cs.total, locked, submitted),
		Progress:     cs.total,
		Participants: make([]models.ParticipantSummary, 0, len(cs.participants)),
	}
	for i, p := range cs.participants {
		view.Participants = append(view.Participants, models.ParticipantSummary{
			Participant: p,
			Progress:    cs.progress[i],
			Status:      evaluation.ParticipantStatus(cs.progress[i], locked, submitted),
		})
	}
	return view, nil
}

// participantContext loads and checks everything a participant-level
// operation needs
type participantContext struct {
	gala        *galaState
	category    *models.Category
	participant *models.Participant
}

func (s *JudgingService) loadParticipant(ctx context.Context, scope models.Scope) (*participantContext, error) {
	state, err := s.loadGala(ctx, scope.JudgeID, scope.GalaID)
	if err != nil {
		return nil, err
	}
	category, err := s.loadCategory(ctx, scope.JudgeID, scope.GalaID, scope.CategoryID)
	if err != nil {
		return nil, err
	}
	participant, err := s.repo.GetParticipant(ctx, scope.ParticipantID)
	if err != nil {
		return nil, storeErr(err, "participant", scope.ParticipantID)
	}
	if participant.CategoryID != category.ID {
		return nil, errors.NotFoundf("participant %d not found in category %d", scope.ParticipantID, category.ID)
	}
	return &participantContext{gala: state, category: category, participant: participant}, nil
}

func (s *JudgingService) participantQuestions(ctx context.Context, pc *participantContext, judgeID int, withResponses bool) ([]models.QuestionView, error) {
	own, err := s.repo.ListQuestions(ctx, pc.category.ID)
	if err != nil {
		return nil, storeErr(err, "questions", pc.category.ID)
	}
	shared, err := s.repo.ListSharedQuestions(ctx, pc.gala.gala.ID, pc.participant.CompanyID, pc.category.ID)
	if err != nil {
		return nil, storeErr(err, "shared questions", pc.participant.ID)
	}
	entry := participantQuestions{participant: *pc.participant, shared: shared}
	ids := scopeIDs([]participantQuestions{entry})

	notes, err := s.repo.ListNotes(ctx, judgeID, ids)
	if err != nil {
		return nil, storeErr(err, "notes", pc.participant.ID)
	}
	var responses map[int]map[int]string
	if withResponses {
		responses = make(map[int]map[int]string, len(ids))
		for _, id := range ids {
			r, err := s.repo.GetResponses(ctx, id)
			if err != nil {
				return nil, storeErr(err, "responses", id)
			}
			responses[id] = r
		}
	}
	return buildQuestions(own, entry, notes, responses), nil
}

func (s *JudgingService) favoriteState(ctx context.Context, scope models.Scope, locked, submitted bool) (*models.FavoriteState, error) {
	state := evaluation.DefaultFavorite(locked, submitted)
	id, ok, err := s.repo.GetFavorite(ctx, scope.JudgeID, scope.CategoryID)
	if err != nil {
		return nil, storeErr(err, "favorite", scope.CategoryID)
	}
	if ok {
		state.ParticipantID = &id
		state.Selected = id == scope.ParticipantID
	}
	return &state, nil
}

// GetParticipantQuestions returns a participant's questions with the judge's
// notes, the participant's written responses and the category favorite
func (s *JudgingService) GetParticipantQuestions(ctx context.Context, scope models.Scope) (*models.ParticipantView, error) {
	pc, err := s.loadParticipant(ctx, scope)
	if err != nil {
		return nil, err
	}
	questions, err := s.participantQuestions(ctx, pc, scope.JudgeID, true)
	if err != nil {
		return nil, err
	}
	locked, submitted := pc.gala.gala.Locked, pc.gala.submitted
	favorite, err := s.favoriteState(ctx, scope, locked, submitted)
	if err != nil {
		return nil, err
	}

	progress := evaluation.ParticipantProgress(evaluation.QuestionStates(questions))
	return &models.ParticipantView{
		Gala:        pc.gala.gala,
		Category:    *pc.category,
		Participant: *pc.participant,
		Questions:   questions,
		Progress:    progress,
		Status:      evaluation.ParticipantStatus(progress, locked, submitted),
		Locked:      locked,
		Submitted:   submitted,
		Favorite:    favorite,
	}, nil
}

// WriteNote applies a partial note for one question. Shared questions are
// written against the company's participant record in the owning category.
func (s *JudgingService) WriteNote(ctx context.Context, scope models.Scope, questionID int, patch models.NotePatch) (*models.Note, error) {
	pc, err := s.loadParticipant(ctx, scope)
	if err != nil {
		return nil, err
	}
	if err := pc.gala.writeErr(); err != nil {
		return nil, err
	}
	patch = patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	questions, err := s.participantQuestions(ctx, pc, scope.JudgeID, false)
	if err != nil {
		return nil, err
	}
	var question *models.QuestionView
	for i := range questions {
		if questions[i].ID == questionID {
			question = &questions[i]
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

	note := patch.Apply(question.Note())
	note.JudgeID = scope.JudgeID
	note.GalaID = scope.GalaID
	note.ParticipantID = target
	note.QuestionID = questionID
	note.TargetParticipantID = target
	if err := s.repo.SaveNote(ctx, note); err != nil {
		if refused := closedErr(err); refused != nil {
			s.log.Debug("Note refused", "judge_id", scope.JudgeID, "gala_id", scope.GalaID, "error", err)
			return nil, refused
		}
		s.log.Error("Failed to save note", "judge_id", scope.JudgeID, "participant_id", target, "question_id", questionID, "error", err)
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to save note")
	}

	s.log.Debug("Note saved", "judge_id", scope.JudgeID, "participant_id", target, "question_id", questionID)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastNoteSaved(scope.JudgeID, scope.GalaID, target, questionID)
	}
	return &note, nil
}

// SetFavorite makes the participant in scope the judge's category favorite
func (s *JudgingService) SetFavorite(ctx context.Context, scope models.Scope) (*models.FavoriteState, error) {
	return s.toggleFavorite(ctx, scope, true)
}

// ClearFavorite removes the participant in scope as the category favorite.
// Clearing a participant that is not the favorite leaves the favorite in place.
func (s *JudgingService) ClearFavorite(ctx context.Context, scope models.Scope) (*models.FavoriteState, error) {
	return s.toggleFavorite(ctx, scope, false)
}

func (s *JudgingService) toggleFavorite(ctx context.Context, scope models.Scope, set bool) (*models.FavoriteState, error) {
	pc, err := s.loadParticipant(ctx, scope)
	if err != nil {
		return nil, err
	}
	if err := pc.gala.writeErr(); err != nil {
		return nil, err
	}

	if set {
		err = s.repo.SetFavorite(ctx, scope.JudgeID, scope.CategoryID, scope.ParticipantID)
	} else {
		err = s.repo.ClearFavorite(ctx, scope.JudgeID, scope.CategoryID, scope.ParticipantID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to update favorite")
	}

	state, err := s.favoriteState(ctx, scope, false, false)
	if err != nil {
		return nil, err
	}
	state.Allowed = nil
	s.log.Debug("Favorite updated", "judge_id", scope.JudgeID, "category_id", scope.CategoryID, "selected", state.Selected)
	return state, nil
}

// SubmitEvaluations finalizes the judge's evaluations for a gala. Every
// counted question of every assigned category must be rated.
func (s *JudgingService) SubmitEvaluations(ctx context.Context, judgeID, galaID int) error {
	gala, err := s.repo.GetGala(ctx, galaID)
	if err != nil {
		return storeErr(err, "gala", galaID)
	}
	summary, err := s.galaSummary(ctx, judgeID, *gala)
	if err != nil {
		return err
	}
	if len(summary.Categories) == 0 {
		return errors.Forbidden("gala is not assigned to this judge")
	}
	if gala.Locked {
		return lockedErr()
	}
	if summary.Submitted {
		return submittedErr()
	}
	if !summary.Progress.Complete() {
		return errors.Validationf("all questions must be rated before submitting (%d/%d)", summary.Progress.Recorded, summary.Progress.Total).
			WithCode(errors.CodeIncomplete)
	}

	at := s.now().UTC().Format(time.RFC3339)
	if err := s.repo.CreateSubmission(ctx, judgeID, galaID, at); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return submittedErr()
		}
		return errors.Wrap(err, errors.ErrInternal, "failed to record submission")
	}

	s.log.Info("Evaluations submitted", "judge_id", judgeID, "gala_id", galaID)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastSubmission(judgeID, galaID, true)
	}
	return nil
}
