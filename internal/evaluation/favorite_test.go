package evaluation

import (
	"context"
	"sync"
	"testing"

	"github.com/abrezinsky/galajudge/internal/errors"
	"github.com/abrezinsky/galajudge/internal/models"
)

func setupFavorites(t *testing.T) (*fakeStore, *Gate, *FavoriteSelector, *FavoriteSelector) {
	t.Helper()
	store := newFakeStore()
	gate := NewGate(store, testJudge, testGala, false, false)
	scopeA := models.Scope{JudgeID: testJudge, GalaID: testGala, CategoryID: testCategory, ParticipantID: partA}
	scopeB := scopeA
	scopeB.ParticipantID = partB
	return store, gate, NewFavoriteSelector(store, gate, scopeA, nil), NewFavoriteSelector(store, gate, scopeB, nil)
}

func TestFavorite_ToggleSetsAndClears(t *testing.T) {
	store, _, a, _ := setupFavorites(t)
	ctx := context.Background()

	state, err := a.Toggle(ctx)
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if !state.Selected || state.ParticipantID == nil || *state.ParticipantID != partA {
		t.Fatalf("expected participant %d selected, got %+v", partA, state)
	}
	if !a.IsFavorite() {
		t.Error("IsFavorite should be true")
	}

	state, err = a.Toggle(ctx)
	if err != nil {
		t.Fatalf("second Toggle failed: %v", err)
	}
	if state.Selected || state.ParticipantID != nil {
		t.Errorf("expected cleared favorite, got %+v", state)
	}
	if store.favoriteOf(testCategory) != nil {
		t.Error("store still holds a favorite")
	}
	if state.Allowed == nil || !*state.Allowed {
		t.Error("allowed flag should be kept")
	}
}

// TestFavorite_SelectingAnotherSupersedes tests that at most one participant
// per category is the favorite
func TestFavorite_SelectingAnotherSupersedes(t *testing.T) {
	store, _, a, b := setupFavorites(t)
	ctx := context.Background()

	_, _ = a.Toggle(ctx)
	state, err := b.Toggle(ctx)
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if *state.ParticipantID != partB {
		t.Errorf("expected %d to be favorite, got %d", partB, *state.ParticipantID)
	}
	if got := store.favoriteOf(testCategory); got == nil || *got != partB {
		t.Errorf("store favorite = %v", got)
	}
}

func TestFavorite_NotAllowed(t *testing.T) {
	store := newFakeStore()
	gate := NewGate(store, testJudge, testGala, false, false)
	denied := false
	scope := models.Scope{JudgeID: testJudge, GalaID: testGala, CategoryID: testCategory, ParticipantID: partA}
	sel := NewFavoriteSelector(store, gate, scope, &models.FavoriteState{Allowed: &denied})

	_, err := sel.Toggle(context.Background())
	if !errors.Is(err, errors.ErrExclusivity) || errors.CodeOf(err) != errors.CodeNotAllowed {
		t.Errorf("expected not-allowed refusal, got %v", err)
	}
}

// TestFavorite_DefaultWhenOmitted tests the fallback state for views
// without favorite data
func TestFavorite_DefaultWhenOmitted(t *testing.T) {
	got := DefaultFavorite(false, true)
	if got.Selected || got.ParticipantID != nil || got.Allowed == nil || *got.Allowed {
		t.Errorf("unexpected default %+v", got)
	}
	got = DefaultFavorite(false, false)
	if !*got.Allowed {
		t.Error("editable gala should allow a favorite")
	}
}

// TestFavorite_SubmittedRefused tests that a submitted gala refuses toggles
// with the submission code
func TestFavorite_SubmittedRefused(t *testing.T) {
	store := newFakeStore()
	gate := NewGate(store, testJudge, testGala, false, true)
	scope := models.Scope{JudgeID: testJudge, GalaID: testGala, CategoryID: testCategory, ParticipantID: partA}
	sel := NewFavoriteSelector(store, gate, scope, nil)

	_, err := sel.Toggle(context.Background())
	if errors.CodeOf(err) != errors.CodeAlreadySubmitted {
		t.Errorf("expected ALREADY_SUBMITTED, got %v", err)
	}
}

// TestFavorite_ConcurrentTogglesStayExclusive tests that rapid toggles from
// several participants leave at most one favorite and consistent state
func TestFavorite_ConcurrentTogglesStayExclusive(t *testing.T) {
	store, _, a, b := setupFavorites(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = a.Toggle(ctx)
		}()
		go func() {
			defer wg.Done()
			_, _ = b.Toggle(ctx)
		}()
	}
	wg.Wait()

	fav := store.favoriteOf(testCategory)
	if fav != nil && *fav != partA && *fav != partB {
		t.Fatalf("unexpected favorite %d", *fav)
	}

	// a fresh toggle adopts the store's confirmed state
	state, err := a.Toggle(ctx)
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if got := store.favoriteOf(testCategory); (got == nil) != (state.ParticipantID == nil) {
		t.Errorf("selector state %+v disagrees with store %v", state, got)
	}
}

// TestFavorite_AllowedFollowsGate tests that a refusal caused by a lock is
// lifted when the gate reopens, while an eligibility refusal is kept
func TestFavorite_AllowedFollowsGate(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	denied := false
	scope := models.Scope{JudgeID: testJudge, GalaID: testGala, CategoryID: testCategory, ParticipantID: partA}

	locked := NewGate(store, testJudge, testGala, true, false)
	sel := NewFavoriteSelector(store, locked, scope, &models.FavoriteState{Allowed: &denied})
	if st := sel.State(); st.Allowed == nil || *st.Allowed {
		t.Fatalf("expected not allowed while locked, got %+v", st)
	}
	locked.Refresh(false, false, "")
	if st := sel.State(); !*st.Allowed {
		t.Error("expected allowed once unlocked")
	}
	state, err := sel.Toggle(ctx)
	if err != nil || !state.Selected {
		t.Fatalf("expected toggle after unlock, got %+v, %v", state, err)
	}

	open := NewGate(store, testJudge, testGala, false, false)
	ineligible := NewFavoriteSelector(store, open, scope, &models.FavoriteState{Allowed: &denied})
	open.Refresh(false, false, "")
	if _, err := ineligible.Toggle(ctx); errors.CodeOf(err) != errors.CodeNotAllowed {
		t.Errorf("expected eligibility refusal kept, got %v", err)
	}
}
