package repository

import (
	"context"

	"github.com/abrezinsky/galajudge/internal/models"
)

// GalaRepository defines gala and category data operations
type GalaRepository interface {
	CreateGala(ctx context.Context, name string, year int) (int64, error)
	GetGala(ctx context.Context, galaID int) (*models.Gala, error)
	ListGalas(ctx context.Context) ([]models.Gala, error)
	ListGalasForJudge(ctx context.Context, judgeID int) ([]models.Gala, error)
	SetGalaLock(ctx context.Context, galaID int, locked bool, by string) error
	CountGalas(ctx context.Context) (int, error)
	CreateCategory(ctx context.Context, galaID int, name, segment string) (int64, error)
	GetCategory(ctx context.Context, categoryID int) (*models.Category, error)
	ListCategories(ctx context.Context, galaID int) ([]models.Category, error)
	ListAssignedCategories(ctx context.Context, judgeID, galaID int) ([]models.Category, error)
	AssignJudge(ctx context.Context, judgeID, categoryID int) error
	IsAssigned(ctx context.Context, judgeID, categoryID int) (bool, error)
}

// ParticipantRepository defines company and participant data operations
type ParticipantRepository interface {
	CreateCompany(ctx context.Context, c models.Participant) (int64, error)
	CreateParticipant(ctx context.Context, categoryID, companyID int) (int64, error)
	GetParticipant(ctx context.Context, participantID int) (*models.Participant, error)
	ListParticipants(ctx context.Context, categoryID int) ([]models.Participant, error)
}

// QuestionRepository defines question and response data operations
type QuestionRepository interface {
	CreateQuestion(ctx context.Context, q models.Question, order int) (int64, error)
	ListQuestions(ctx context.Context, categoryID int) ([]models.Question, error)
	ListSharedQuestions(ctx context.Context, galaID, companyID, excludeCategoryID int) ([]SharedQuestion, error)
	SetResponse(ctx context.Context, participantID, questionID int, text string) error
	GetResponses(ctx context.Context, participantID int) (map[int]string, error)
}

// NoteRepository defines note, favorite and submission data operations
type NoteRepository interface {
	GetNote(ctx context.Context, judgeID, participantID, questionID int) (*models.Note, error)
	SaveNote(ctx context.Context, n models.Note) error
	ListNotes(ctx context.Context, judgeID int, participantIDs []int) (map[int]map[int]models.Note, error)
	GetFavorite(ctx context.Context, judgeID, categoryID int) (int, bool, error)
	SetFavorite(ctx context.Context, judgeID, categoryID, participantID int) error
	ClearFavorite(ctx context.Context, judgeID, categoryID, participantID int) error
	GetSubmission(ctx context.Context, judgeID, galaID int) (*models.Submission, error)
	CreateSubmission(ctx context.Context, judgeID, galaID int, submittedAt string) error
	DeleteSubmission(ctx context.Context, judgeID, galaID int) error
	ListSubmissions(ctx context.Context, galaID int) ([]models.Submission, error)
}

// JudgeRepository defines judge data operations
type JudgeRepository interface {
	CreateJudge(ctx context.Context, name, accessCode string) (int64, error)
	GetJudge(ctx context.Context, judgeID int) (*models.Judge, error)
	GetJudgeByAccessCode(ctx context.Context, code string) (*models.Judge, error)
	ListJudges(ctx context.Context) ([]models.Judge, error)
	SetJudgeAccessCode(ctx context.Context, judgeID int, code string) error
}

// SettingsRepository defines settings data operations
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	ClearTable(ctx context.Context, table string) error
}

// FullRepository combines all repository interfaces
type FullRepository interface {
	GalaRepository
	ParticipantRepository
	QuestionRepository
	NoteRepository
	JudgeRepository
	SettingsRepository
}

// Ensure Repository implements FullRepository
var _ FullRepository = (*Repository)(nil)
