package services

import (
	"context"

	"github.com/abrezinsky/galajudge/internal/evaluation"
	"github.com/abrezinsky/galajudge/internal/models"
)

// Broadcaster defines the interface for pushing state changes to clients
type Broadcaster interface {
	BroadcastGalaLock(galaID int, locked bool)
	BroadcastSubmission(judgeID, galaID int, submitted bool)
	BroadcastNoteSaved(judgeID, galaID, participantID, questionID int)
}

// JudgingServicer defines the judge-facing operations. It is the note store
// the evaluation engine talks to, plus login.
type JudgingServicer interface {
	evaluation.Store
	Authenticate(ctx context.Context, accessCode string) (*models.Judge, error)
	GetJudge(ctx context.Context, judgeID int) (*models.Judge, error)
	SetBroadcaster(b Broadcaster)
}

// AdminServicer defines the administrator operations
type AdminServicer interface {
	ListGalas(ctx context.Context) ([]models.Gala, error)
	LockGala(ctx context.Context, galaID int, by string) (*models.Gala, error)
	UnlockGala(ctx context.Context, galaID int) (*models.Gala, error)
	ListSubmissions(ctx context.Context, galaID int) ([]models.Submission, error)
	ResetSubmission(ctx context.Context, galaID, judgeID int) error
	ListJudges(ctx context.Context) ([]models.Judge, error)
	RegenerateAccessCode(ctx context.Context, judgeID int) (string, error)
	JudgeQRImage(ctx context.Context, judgeID int) ([]byte, error)
	GetBaseURL(ctx context.Context) (string, error)
	SetBaseURL(ctx context.Context, url string) error
	ResetTables(ctx context.Context, tables []string) (*ResetTablesResult, error)
	SeedDemo(ctx context.Context) (*SeedResult, error)
	SetBroadcaster(b Broadcaster)
}

// Ensure concrete types implement interfaces
var (
	_ JudgingServicer  = (*JudgingService)(nil)
	_ AdminServicer    = (*AdminService)(nil)
	_ evaluation.Store = (*JudgingService)(nil)
)
