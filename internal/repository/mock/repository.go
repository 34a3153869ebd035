package mock

import (
	"context"

	"github.com/abrezinsky/galajudge/internal/models"
	"github.com/abrezinsky/galajudge/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
// This provides a flexible way to test error paths without complex database manipulation.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.SaveNoteError = errors.New("database error")
//	svc := services.NewJudgingService(log, mockRepo, nil)
//	_, err := svc.WriteNote(ctx, scope, questionID, patch)
//	// err will now contain the injected error
type Repository struct {
	repository.FullRepository

	// ===== Gala Errors =====
	GetGalaError                error
	ListGalasForJudgeError      error
	SetGalaLockError            error
	CountGalasError             error
	CreateGalaError             error
	GetCategoryError            error
	ListAssignedCategoriesError error
	IsAssignedError             error

	// ===== Participant Errors =====
	GetParticipantError   error
	ListParticipantsError error

	// ===== Question Errors =====
	ListQuestionsError       error
	ListSharedQuestionsError error
	GetResponsesError        error

	// ===== Note Errors =====
	GetNoteError          error
	SaveNoteError         error
	ListNotesError        error
	GetFavoriteError      error
	SetFavoriteError      error
	ClearFavoriteError    error
	GetSubmissionError    error
	CreateSubmissionError error
	DeleteSubmissionError error
	ListSubmissionsError  error

	// ===== Judge Errors =====
	GetJudgeError             error
	GetJudgeByAccessCodeError error
	SetJudgeAccessCodeError   error

	// ===== Settings Errors =====
	GetSettingError error
	SetSettingError error
	ClearTableError error

	// BeforeSaveNote runs before a note reaches the wrapped repository
	BeforeSaveNote func(ctx context.Context, n models.Note)
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
	}
}

// ===== Gala Methods =====

func (m *Repository) GetGala(ctx context.Context, galaID int) (*models.Gala, error) {
	if m.GetGalaError != nil {
		return nil, m.GetGalaError
	}
	return m.FullRepository.GetGala(ctx, galaID)
}

func (m *Repository) ListGalasForJudge(ctx context.Context, judgeID int) ([]models.Gala, error) {
	if m.ListGalasForJudgeError != nil {
		return nil, m.ListGalasForJudgeError
	}
	return m.FullRepository.ListGalasForJudge(ctx, judgeID)
}

func (m *Repository) SetGalaLock(ctx context.Context, galaID int, locked bool, by string) error {
	if m.SetGalaLockError != nil {
		return m.SetGalaLockError
	}
	return m.FullRepository.SetGalaLock(ctx, galaID, locked, by)
}

func (m *Repository) CountGalas(ctx context.Context) (int, error) {
	if m.CountGalasError != nil {
		return 0, m.CountGalasError
	}
	return m.FullRepository.CountGalas(ctx)
}

func (m *Repository) CreateGala(ctx context.Context, name string, year int) (int64, error) {
	if m.CreateGalaError != nil {
		return 0, m.CreateGalaError
	}
	return m.FullRepository.CreateGala(ctx, name, year)
}

func (m *Repository) GetCategory(ctx context.Context, categoryID int) (*models.Category, error) {
	if m.GetCategoryError != nil {
		return nil, m.GetCategoryError
	}
	return m.FullRepository.GetCategory(ctx, categoryID)
}

func (m *Repository) ListAssignedCategories(ctx context.Context, judgeID, galaID int) ([]models.Category, error) {
	if m.ListAssignedCategoriesError != nil {
		return nil, m.ListAssignedCategoriesError
	}
	return m.FullRepository.ListAssignedCategories(ctx, judgeID, galaID)
}

func (m *Repository) IsAssigned(ctx context.Context, judgeID, categoryID int) (bool, error) {
	if m.IsAssignedError != nil {
		return false, m.IsAssignedError
	}
	return m.FullRepository.IsAssigned(ctx, judgeID, categoryID)
}

// ===== Participant Methods =====

func (m *Repository) GetParticipant(ctx context.Context, participantID int) (*models.Participant, error) {
	if m.GetParticipantError != nil {
		return nil, m.GetParticipantError
	}
	return m.FullRepository.GetParticipant(ctx, participantID)
}

func (m *Repository) ListParticipants(ctx context.Context, categoryID int) ([]models.Participant, error) {
	if m.ListParticipantsError != nil {
		return nil, m.ListParticipantsError
	}
	return m.FullRepository.ListParticipants(ctx, categoryID)
}

// ===== Question Methods =====

func (m *Repository) ListQuestions(ctx context.Context, categoryID int) ([]models.Question, error) {
	if m.ListQuestionsError != nil {
		return nil, m.ListQuestionsError
	}
	return m.FullRepository.ListQuestions(ctx, categoryID)
}

func (m *Repository) ListSharedQuestions(ctx context.Context, galaID, companyID, excludeCategoryID int) ([]repository.SharedQuestion, error) {
	if m.ListSharedQuestionsError != nil {
		return nil, m.ListSharedQuestionsError
	}
	return m.FullRepository.ListSharedQuestions(ctx, galaID, companyID, excludeCategoryID)
}

func (m *Repository) GetResponses(ctx context.Context, participantID int) (map[int]string, error) {
	if m.GetResponsesError != nil {
		return nil, m.GetResponsesError
	}
	return m.FullRepository.GetResponses(ctx, participantID)
}

// ===== Note Methods =====

func (m *Repository) GetNote(ctx context.Context, judgeID, participantID, questionID int) (*models.Note, error) {
	if m.GetNoteError != nil {
		return nil, m.GetNoteError
	}
	return m.FullRepository.GetNote(ctx, judgeID, participantID, questionID)
}

func (m *Repository) SaveNote(ctx context.Context, n models.Note) error {
	if m.SaveNoteError != nil {
		return m.SaveNoteError
	}
	if m.BeforeSaveNote != nil {
		m.BeforeSaveNote(ctx, n)
	}
	return m.FullRepository.SaveNote(ctx, n)
}

func (m *Repository) ListNotes(ctx context.Context, judgeID int, participantIDs []int) (map[int]map[int]models.Note, error) {
	if m.ListNotesError != nil {
		return nil, m.ListNotesError
	}
	return m.FullRepository.ListNotes(ctx, judgeID, participantIDs)
}

func (m *Repository) GetFavorite(ctx context.Context, judgeID, categoryID int) (int, bool, error) {
	if m.GetFavoriteError != nil {
		return 0, false, m.GetFavoriteError
	}
	return m.FullRepository.GetFavorite(ctx, judgeID, categoryID)
}

func (m *Repository) SetFavorite(ctx context.Context, judgeID, categoryID, participantID int) error {
	if m.SetFavoriteError != nil {
		return m.SetFavoriteError
	}
	return m.FullRepository.SetFavorite(ctx, judgeID, categoryID, participantID)
}

func (m *Repository) ClearFavorite(ctx context.Context, judgeID, categoryID, participantID int) error {
	if m.ClearFavoriteError != nil {
		return m.ClearFavoriteError
	}
	return m.FullRepository.ClearFavorite(ctx, judgeID, categoryID, participantID)
}

func (m *Repository) GetSubmission(ctx context.Context, judgeID, galaID int) (*models.Submission, error) {
	if m.GetSubmissionError != nil {
		return nil, m.GetSubmissionError
	}
	return m.FullRepository.GetSubmission(ctx, judgeID, galaID)
}

func (m *Repository) CreateSubmission(ctx context.Context, judgeID, galaID int, submittedAt string) error {
	if m.CreateSubmissionError != nil {
		return m.CreateSubmissionError
	}
	return m.FullRepository.CreateSubmission(ctx, judgeID, galaID, submittedAt)
}

func (m *Repository) DeleteSubmission(ctx context.Context, judgeID, galaID int) error {
	if m.DeleteSubmissionError != nil {
		return m.DeleteSubmissionError
	}
	return m.FullRepository.DeleteSubmission(ctx, judgeID, galaID)
}

func (m *Repository) ListSubmissions(ctx context.Context, galaID int) ([]models.Submission, error) {
	if m.ListSubmissionsError != nil {
		return nil, m.ListSubmissionsError
	}
	return m.FullRepository.ListSubmissions(ctx, galaID)
}

// ===== Judge Methods =====

func (m *Repository) GetJudge(ctx context.Context, judgeID int) (*models.Judge, error) {
	if m.GetJudgeError != nil {
		return nil, m.GetJudgeError
	}
	return m.FullRepository.GetJudge(ctx, judgeID)
}

func (m *Repository) GetJudgeByAccessCode(ctx context.Context, code string) (*models.Judge, error) {
	if m.GetJudgeByAccessCodeError != nil {
		return nil, m.GetJudgeByAccessCodeError
	}
	return m.FullRepository.GetJudgeByAccessCode(ctx, code)
}

func (m *Repository) SetJudgeAccessCode(ctx context.Context, judgeID int, code string) error {
	if m.SetJudgeAccessCodeError != nil {
		return m.SetJudgeAccessCodeError
	}
	return m.FullRepository.SetJudgeAccessCode(ctx, judgeID, code)
}

// ===== Settings Methods =====

func (m *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	if m.GetSettingError != nil {
		return "", m.GetSettingError
	}
	return m.FullRepository.GetSetting(ctx, key)
}

func (m *Repository) SetSetting(ctx context.Context, key, value string) error {
	if m.SetSettingError != nil {
		return m.SetSettingError
	}
	return m.FullRepository.SetSetting(ctx, key, value)
}

func (m *Repository) ClearTable(ctx context.Context, table string) error {
	if m.ClearTableError != nil {
		return m.ClearTableError
	}
	return m.FullRepository.ClearTable(ctx, table)
}
