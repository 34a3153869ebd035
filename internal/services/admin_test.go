package services_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/abrezinsky/galajudge/internal/errors"
	"github.com/abrezinsky/galajudge/internal/logger"
	"github.com/abrezinsky/galajudge/internal/repository"
	"github.com/abrezinsky/galajudge/internal/repository/mock"
	"github.com/abrezinsky/galajudge/internal/services"
	"github.com/abrezinsky/galajudge/internal/testutil"
)

// setupAdminService creates an AdminService over a seeded in-memory database
func setupAdminService(t *testing.T) (*services.AdminService, *recordingBroadcaster, *repository.Repository, testutil.Fixture) {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	f := testutil.SeedGala(t, repo)
	svc := services.NewAdminService(logger.Discard(), repo)
	b := &recordingBroadcaster{}
	svc.SetBroadcaster(b)
	return svc, b, repo, f
}

func TestLockAndUnlockGala(t *testing.T) {
	svc, b, _, f := setupAdminService(t)
	ctx := context.Background()

	gala, err := svc.LockGala(ctx, f.GalaID, "admin")
	if err != nil {
		t.Fatalf("LockGala failed: %v", err)
	}
	if !gala.Locked || gala.LockedAt == "" {
		t.Errorf("expected locked gala with timestamp, got %+v", gala)
	}

	gala, err = svc.UnlockGala(ctx, f.GalaID)
	if err != nil {
		t.Fatalf("UnlockGala failed: %v", err)
	}
	if gala.Locked || gala.LockedAt != "" {
		t.Errorf("expected unlocked gala without timestamp, got %+v", gala)
	}
	if len(b.locks) != 2 || !b.locks[0] || b.locks[1] {
		t.Errorf("unexpected lock broadcasts %v", b.locks)
	}

	if _, err := svc.LockGala(ctx, 999, "admin"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

// TestResetSubmission tests that an administrator can reopen a judge's
// evaluations, and that the judge can write again afterwards
func TestResetSubmission(t *testing.T) {
	svc, b, repo, f := setupAdminService(t)
	ctx := context.Background()

	if err := svc.ResetSubmission(ctx, f.GalaID, f.JudgeID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected not found before submission, got %v", err)
	}

	judging := services.NewJudgingService(logger.Discard(), repo)
	rateAll(t, judging, f)
	if err := judging.SubmitEvaluations(ctx, f.JudgeID, f.GalaID); err != nil {
		t.Fatalf("SubmitEvaluations failed: %v", err)
	}

	subs, err := svc.ListSubmissions(ctx, f.GalaID)
	if err != nil {
		t.Fatalf("ListSubmissions failed: %v", err)
	}
	if len(subs) != 1 || !subs[0].Submitted || subs[0].JudgeName != "Claire Tremblay" {
		t.Errorf("unexpected submissions %+v", subs)
	}

	if err := svc.ResetSubmission(ctx, f.GalaID, f.JudgeID); err != nil {
		t.Fatalf("ResetSubmission failed: %v", err)
	}
	subs, _ = svc.ListSubmissions(ctx, f.GalaID)
	if subs[0].Submitted {
		t.Error("expected submission cleared")
	}
	if len(b.submissions) != 1 || b.submissions[0] {
		t.Errorf("expected one reset broadcast, got %v", b.submissions)
	}
	if err := judging.SubmitEvaluations(ctx, f.JudgeID, f.GalaID); err != nil {
		t.Errorf("resubmission failed: %v", err)
	}
}

func TestListSubmissions_UnknownGala(t *testing.T) {
	svc, _, _, _ := setupAdminService(t)
	if _, err := svc.ListSubmissions(context.Background(), 999); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRegenerateAccessCode(t *testing.T) {
	svc, _, repo, f := setupAdminService(t)
	ctx := context.Background()
	svc.SetRandReader(bytes.NewReader([]byte{0, 1, 2, 3, 4, 5, 6, 7}))

	code, err := svc.RegenerateAccessCode(ctx, f.JudgeID)
	if err != nil {
		t.Fatalf("RegenerateAccessCode failed: %v", err)
	}
	if code != "2345-6789" {
		t.Errorf("unexpected code %q", code)
	}
	judge, _ := repo.GetJudgeByAccessCode(ctx, code)
	if judge == nil || judge.ID != f.JudgeID {
		t.Error("new code does not resolve to the judge")
	}

	svc.SetRandReader(bytes.NewReader(nil))
	if _, err := svc.RegenerateAccessCode(ctx, f.JudgeID); !errors.Is(err, errors.ErrInternal) {
		t.Errorf("expected internal error on exhausted random source, got %v", err)
	}
}

func TestJudgeQRImage(t *testing.T) {
	svc, _, _, f := setupAdminService(t)
	ctx := context.Background()

	if _, err := svc.JudgeQRImage(ctx, f.JudgeID); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("expected validation error without base_url, got %v", err)
	}
	if err := svc.SetBaseURL(ctx, "gala.local"); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("expected validation error for a bare host, got %v", err)
	}
	if err := svc.SetBaseURL(ctx, "http://gala.local/"); err != nil {
		t.Fatalf("SetBaseURL failed: %v", err)
	}
	if url, _ := svc.GetBaseURL(ctx); url != "http://gala.local" {
		t.Errorf("expected trailing slash trimmed, got %q", url)
	}

	png, err := svc.JudgeQRImage(ctx, f.JudgeID)
	if err != nil {
		t.Fatalf("JudgeQRImage failed: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("expected PNG data")
	}
	if _, err := svc.JudgeQRImage(ctx, 999); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

// TestSeedDemo tests that seeding works once and that a seeded judge can
// see the gala
func TestSeedDemo(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewAdminService(logger.Discard(), repo)
	ctx := context.Background()

	result, err := svc.SeedDemo(ctx)
	if err != nil {
		t.Fatalf("SeedDemo failed: %v", err)
	}
	if result.Categories != 3 || result.Participants != 8 || len(result.Judges) != 2 {
		t.Errorf("unexpected seed result %+v", result)
	}
	if _, err := svc.SeedDemo(ctx); !errors.Is(err, errors.ErrConflict) {
		t.Errorf("expected conflict on second seed, got %v", err)
	}

	judging := services.NewJudgingService(logger.Discard(), repo)
	judge, err := judging.Authenticate(ctx, result.Judges[0].AccessCode)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	galas, err := judging.ListAssignedGalas(ctx, judge.ID)
	if err != nil {
		t.Fatalf("ListAssignedGalas failed: %v", err)
	}
	if len(galas) != 1 || galas[0].Progress.Total != 3*2+2*2 {
		t.Errorf("unexpected galas %+v", galas)
	}
}

func TestResetTables(t *testing.T) {
	svc, _, repo, f := setupAdminService(t)
	ctx := context.Background()

	if _, err := svc.ResetTables(ctx, nil); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	result, err := svc.ResetTables(ctx, []string{"submissions", "judges; DROP TABLE galas"})
	if !errors.Is(err, errors.ErrValidation) || !strings.Contains(err.Error(), "invalid table name") {
		t.Errorf("expected invalid table error, got %v", err)
	}
	if len(result.Cleared) != 1 {
		t.Errorf("expected the valid table cleared first, got %v", result.Cleared)
	}
	if _, err := repo.GetGala(ctx, f.GalaID); err != nil {
		t.Errorf("galas table touched: %v", err)
	}
}

func TestAdminService_RepositoryErrors(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	f := testutil.SeedGala(t, repo)
	mockRepo := mock.NewRepository(repo)
	svc := services.NewAdminService(logger.Discard(), mockRepo)
	ctx := context.Background()
	dbErr := stderrors.New("database is locked")

	mockRepo.SetGalaLockError = dbErr
	if _, err := svc.LockGala(ctx, f.GalaID, "admin"); !errors.Is(err, errors.ErrInternal) {
		t.Errorf("expected internal error, got %v", err)
	}
	mockRepo.GetSettingError = dbErr
	if _, err := svc.JudgeQRImage(ctx, f.JudgeID); !errors.Is(err, errors.ErrInternal) {
		t.Errorf("expected internal error, got %v", err)
	}
	mockRepo.CountGalasError = dbErr
	if _, err := svc.SeedDemo(ctx); !errors.Is(err, errors.ErrInternal) {
		t.Errorf("expected internal error, got %v", err)
	}
	mockRepo.ClearTableError = dbErr
	if _, err := svc.ResetTables(ctx, []string{"notes"}); !errors.Is(err, errors.ErrInternal) {
		t.Errorf("expected internal error, got %v", err)
	}
}
