package testutil

import (
	"context"
	"testing"

	"github.com/abrezinsky/galajudge/internal/models"
	"github.com/abrezinsky/galajudge/internal/repository"
)

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

// Fixture holds the IDs created by SeedGala
type Fixture struct {
	JudgeID     int
	AccessCode  string
	GalaID      int
	CategoryID  int // "Innovation": two questions, two participants
	NarrativeID int // "Narratif": one shared question
	QuestionIDs []int
	SharedID    int
	// Participants of CategoryID, in company name order
	Participants []int
	// NarrativeParticipant is the first company's record in NarrativeID
	NarrativeParticipant int
}

// SeedGala creates one judge assigned to an Innovation category and a
// Narratif category sharing one question with it.
func SeedGala(t *testing.T, repo repository.FullRepository) Fixture {
	t.Helper()
	ctx := context.Background()
	must := func(id int64, err error) int {
		t.Helper()
		if err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		return int(id)
	}

	f := Fixture{AccessCode: "JURY-0001"}
	f.JudgeID = must(repo.CreateJudge(ctx, "Claire Tremblay", f.AccessCode))
	f.GalaID = must(repo.CreateGala(ctx, "Gala Excellence", 2026))
	f.CategoryID = must(repo.CreateCategory(ctx, f.GalaID, "Innovation", "PME"))
	f.NarrativeID = must(repo.CreateCategory(ctx, f.GalaID, "Narratif", ""))

	alpha := must(repo.CreateCompany(ctx, models.Participant{Company: "Alpha Inc.", City: "Québec"}))
	beta := must(repo.CreateCompany(ctx, models.Participant{Company: "Beta Ltée", City: "Lévis"}))

	f.Participants = []int{
		must(repo.CreateParticipant(ctx, f.CategoryID, alpha)),
		must(repo.CreateParticipant(ctx, f.CategoryID, beta)),
	}
	f.NarrativeParticipant = must(repo.CreateParticipant(ctx, f.NarrativeID, alpha))

	f.QuestionIDs = []int{
		must(repo.CreateQuestion(ctx, models.Question{CategoryID: f.CategoryID, Text: "Originalité", Weight: 2}, 1)),
		must(repo.CreateQuestion(ctx, models.Question{CategoryID: f.CategoryID, Text: "Impact", Weight: 1}, 2)),
	}
	f.SharedID = must(repo.CreateQuestion(ctx, models.Question{CategoryID: f.NarrativeID, Text: "Votre histoire", Shared: true}, 1))

	for _, categoryID := range []int{f.CategoryID, f.NarrativeID} {
		if err := repo.AssignJudge(ctx, f.JudgeID, categoryID); err != nil {
			t.Fatalf("assign failed: %v", err)
		}
	}
	return f
}
