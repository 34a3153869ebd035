// Package evaluation computes judging progress and status, and mediates every
// judge write (notes, favorites, submission) to the remote note store.
//
// The components are leaves-first: the aggregator and classifier are pure;
// Gate, FavoriteSelector and Controller hold per-scope state and talk to the
// store through the Store interface; Session owns one of each for the
// judge's current selection.
package evaluation

import (
	"context"

	"github.com/abrezinsky/galajudge/internal/models"
)

// Store is the remote note store as seen by a judge client.
// Implementations must return *errors.Error values so callers can
// discriminate validation, conflict, exclusivity and transport failures.
type Store interface {
	ListAssignedGalas(ctx context.Context, judgeID int) ([]models.GalaSummary, error)
	GetCategoryParticipants(ctx context.Context, judgeID, galaID, categoryID int) (*models.CategoryView, error)
	GetParticipantQuestions(ctx context.Context, scope models.Scope) (*models.ParticipantView, error)
	WriteNote(ctx context.Context, scope models.Scope, questionID int, patch models.NotePatch) (*models.Note, error)
	SetFavorite(ctx context.Context, scope models.Scope) (*models.FavoriteState, error)
	ClearFavorite(ctx context.Context, scope models.Scope) (*models.FavoriteState, error)
	SubmitEvaluations(ctx context.Context, judgeID, galaID int) error
}
