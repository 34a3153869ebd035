package services

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"io"
	"strings"

	"github.com/abrezinsky/galajudge/internal/auth"
	"github.com/abrezinsky/galajudge/internal/errors"
	"github.com/abrezinsky/galajudge/internal/logger"
	"github.com/abrezinsky/galajudge/internal/models"
	"github.com/abrezinsky/galajudge/internal/repository"
)

const settingBaseURL = "base_url"

// AdminService handles gala administration
type AdminService struct {
	log         logger.Logger
	repo        repository.FullRepository
	broadcaster Broadcaster
	randReader  io.Reader // for testing: defaults to crypto/rand.Reader
}

// NewAdminService creates a new AdminService
func NewAdminService(log logger.Logger, repo repository.FullRepository) *AdminService {
	return &AdminService{
		log:        log,
		repo:       repo,
		randReader: rand.Reader,
	}
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *AdminService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetRandReader sets a custom random reader (for testing)
func (s *AdminService) SetRandReader(reader io.Reader) {
	s.randReader = reader
}

// ListGalas returns every gala, newest year first
func (s *AdminService) ListGalas(ctx context.Context) ([]models.Gala, error) {
	galas, err := s.repo.ListGalas(ctx)
	if err != nil {
		return nil, storeErr(err, "galas", 0)
	}
	return galas, nil
}

// LockGala freezes every judge's evaluations for the gala
func (s *AdminService) LockGala(ctx context.Context, galaID int, by string) (*models.Gala, error) {
	return s.setLock(ctx, galaID, true, by)
}

// UnlockGala reopens the gala for judges who have not submitted
func (s *AdminService) UnlockGala(ctx context.Context, galaID int) (*models.Gala, error) {
	return s.setLock(ctx, galaID, false, "")
}

func (s *AdminService) setLock(ctx context.Context, galaID int, locked bool, by string) (*models.Gala, error) {
	if err := s.repo.SetGalaLock(ctx, galaID, locked, by); err != nil {
		return nil, storeErr(err, "gala", galaID)
	}
	gala, err := s.repo.GetGala(ctx, galaID)
	if err != nil {
		return nil, storeErr(err, "gala", galaID)
	}
	s.log.Info("Gala lock changed", "gala_id", galaID, "locked", locked, "by", by)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastGalaLock(galaID, locked)
	}
	return gala, nil
}

// ListSubmissions returns each judge of the gala with their submission state
func (s *AdminService) ListSubmissions(ctx context.Context, galaID int) ([]models.Submission, error) {
	if _, err := s.repo.GetGala(ctx, galaID); err != nil {
		return nil, storeErr(err, "gala", galaID)
	}
	submissions, err := s.repo.ListSubmissions(ctx, galaID)
	if err != nil {
		return nil, storeErr(err, "submissions", galaID)
	}
	if submissions == nil {
		submissions = []models.Submission{}
	}
	return submissions, nil
}

// ResetSubmission reopens a judge's evaluations after submission
func (s *AdminService) ResetSubmission(ctx context.Context, galaID, judgeID int) error {
	if err := s.repo.DeleteSubmission(ctx, judgeID, galaID); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NotFoundf("judge %d has not submitted gala %d", judgeID, galaID)
		}
		return storeErr(err, "submission", galaID)
	}
	s.log.Info("Submission reset", "gala_id", galaID, "judge_id", judgeID)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastSubmission(judgeID, galaID, false)
	}
	return nil
}

// ListJudges returns every judge with their access code
func (s *AdminService) ListJudges(ctx context.Context) ([]models.Judge, error) {
	judges, err := s.repo.ListJudges(ctx)
	if err != nil {
		return nil, storeErr(err, "judges", 0)
	}
	return judges, nil
}

// RegenerateAccessCode gives a judge a new access code. Existing sessions
// stay open until they expire.
func (s *AdminService) RegenerateAccessCode(ctx context.Context, judgeID int) (string, error) {
	code, err := auth.GenerateAccessCode(s.randReader)
	if err != nil {
		return "", errors.Internal(err)
	}
	if err := s.repo.SetJudgeAccessCode(ctx, judgeID, code); err != nil {
		return "", storeErr(err, "judge", judgeID)
	}
	s.log.Info("Access code regenerated", "judge_id", judgeID)
	return code, nil
}

// JudgeQRImage renders the judge's login link as a PNG QR code
func (s *AdminService) JudgeQRImage(ctx context.Context, judgeID int) ([]byte, error) {
	judge, err := s.repo.GetJudge(ctx, judgeID)
	if err != nil {
		return nil, storeErr(err, "judge", judgeID)
	}
	baseURL, err := s.GetBaseURL(ctx)
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		return nil, ErrBaseURLNotSet
	}
	png, err := auth.LoginQR(baseURL, judge.AccessCode)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to render QR code")
	}
	return png, nil
}

// GetBaseURL returns the public URL used in login links, empty when unset
func (s *AdminService) GetBaseURL(ctx context.Context) (string, error) {
	value, err := s.repo.GetSetting(ctx, settingBaseURL)
	if stderrors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", storeErr(err, "setting", 0)
	}
	return value, nil
}

// SetBaseURL stores the public URL used in login links
func (s *AdminService) SetBaseURL(ctx context.Context, url string) error {
	url = strings.TrimSuffix(strings.TrimSpace(url), "/")
	if url != "" && !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return errors.Validation("base_url must start with http:// or https://")
	}
	if err := s.repo.SetSetting(ctx, settingBaseURL, url); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to save setting")
	}
	return nil
}

// ResetTablesResult reports which tables were cleared
type ResetTablesResult struct {
	Cleared []string `json:"cleared"`
}

// ResetTables clears the given tables
func (s *AdminService) ResetTables(ctx context.Context, tables []string) (*ResetTablesResult, error) {
	if len(tables) == 0 {
		return nil, ErrNoTablesSpecified
	}
	result := &ResetTablesResult{Cleared: []string{}}
	for _, table := range tables {
		if err := s.repo.ClearTable(ctx, table); err != nil {
			if stderrors.Is(err, repository.ErrInvalidTable) {
				return result, errors.Wrap(&InvalidTableError{Table: table}, errors.ErrValidation, "cannot clear table")
			}
			return result, errors.Wrap(err, errors.ErrInternal, "failed to clear "+table)
		}
		result.Cleared = append(result.Cleared, table)
	}
	s.log.Info("Tables cleared", "tables", result.Cleared)
	return result, nil
}
