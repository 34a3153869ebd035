package evaluation

import (
	"context"
	"sync"

	"github.com/abrezinsky/galajudge/internal/errors"
	"github.com/abrezinsky/galajudge/internal/models"
)

// DefaultFavorite is the favorite state assumed when the store omits it
func DefaultFavorite(locked, submitted bool) models.FavoriteState {
	allowed := !(locked || submitted)
	return models.FavoriteState{Selected: false, ParticipantID: nil, Allowed: &allowed}
}

// FavoriteSelector toggles the judge's coup-de-coeur within one category.
// The store enforces at most one favorite per (judge, category); the
// selector only ever adopts the state the store confirms.
//
// Allowed follows the gate: a refusal the store reported while the gala
// was editable is kept, one explained by a lock or submission is dropped
// once the gate reopens.
type FavoriteSelector struct {
	mu     sync.Mutex
	store  Store
	gate   *Gate
	scope  models.Scope
	state  models.FavoriteState
	denied bool
}

// NewFavoriteSelector creates a selector for the participant in scope.
// A nil initial state falls back to DefaultFavorite.
func NewFavoriteSelector(store Store, gate *Gate, scope models.Scope, initial *models.FavoriteState) *FavoriteSelector {
	var state models.FavoriteState
	if initial != nil {
		state = *initial
	} else {
		state = DefaultFavorite(gate.Locked(), gate.Submitted())
	}
	denied := state.Allowed != nil && !*state.Allowed && gate.State() == GateEditable
	state.Allowed = nil
	return &FavoriteSelector{store: store, gate: gate, scope: scope, state: state, denied: denied}
}

// State returns the last confirmed favorite state
func (f *FavoriteSelector) State() models.FavoriteState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateLocked()
}

func (f *FavoriteSelector) stateLocked() models.FavoriteState {
	state := f.state
	allowed := !f.denied && f.gate.State() == GateEditable
	state.Allowed = &allowed
	return state
}

// IsFavorite reports whether the participant in scope is the favorite
func (f *FavoriteSelector) IsFavorite() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isFavoriteLocked()
}

func (f *FavoriteSelector) isFavoriteLocked() bool {
	return f.state.ParticipantID != nil && *f.state.ParticipantID == f.scope.ParticipantID
}

// Toggle removes the favorite when the participant in scope already holds
// it, otherwise makes it the favorite, superseding any previous one.
// Toggles are serialized so each decision is taken on confirmed state.
func (f *FavoriteSelector) Toggle(ctx context.Context) (models.FavoriteState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.gate.CheckWritable(); err != nil {
		return f.stateLocked(), errors.Wrap(err, errors.ErrExclusivity, "favorite cannot change").WithCode(errors.CodeOf(err))
	}
	if f.denied {
		return f.stateLocked(), errors.Exclusivity("favorite selection is not allowed for this category").WithCode(errors.CodeNotAllowed)
	}

	var (
		result *models.FavoriteState
		err    error
	)
	if f.isFavoriteLocked() {
		result, err = f.store.ClearFavorite(ctx, f.scope)
	} else {
		result, err = f.store.SetFavorite(ctx, f.scope)
	}
	if err != nil {
		f.gate.Observe(err)
		return f.stateLocked(), err
	}

	f.state = models.FavoriteState{
		Selected:      result.Selected,
		ParticipantID: result.ParticipantID,
	}
	return f.stateLocked(), nil
}
