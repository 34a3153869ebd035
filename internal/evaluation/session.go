package evaluation

import (
	"context"
	"sync"

	"github.com/abrezinsky/galajudge/internal/errors"
	"github.com/abrezinsky/galajudge/internal/models"
)

// Session follows one judge's navigation (gala, category, participant) and
// owns the gate, editor and favorite selector for the current selection.
// Navigation calls are expected from a single goroutine; accessors are safe
// from listener callbacks.
type Session struct {
	mu      sync.Mutex
	store   Store
	judgeID int
	opts    []Option
	o       options

	galas    []models.GalaSummary
	gala     *models.GalaSummary
	gate     *Gate
	category *models.CategoryView
	view     *models.ParticipantView
	editor   *Controller
	favorite *FavoriteSelector
	// released editors whose queued writes may still be waiting for the slot
	released []*Controller
}

// NewSession creates a session for a judge. All controllers it creates
// share one write slot.
func NewSession(store Store, judgeID int, opts ...Option) *Session {
	o := buildOptions(opts)
	all := append(append([]Option{}, opts...), withWriteSlot(o.slot))
	return &Session{store: store, judgeID: judgeID, opts: all, o: o}
}

// JudgeID returns the judge the session acts for
func (s *Session) JudgeID() int {
	return s.judgeID
}

// Scope returns the current selection; unset levels are zero
func (s *Session) Scope() models.Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scopeLocked()
}

func (s *Session) scopeLocked() models.Scope {
	scope := models.Scope{JudgeID: s.judgeID}
	if s.gala != nil {
		scope.GalaID = s.gala.ID
	}
	if s.category != nil {
		scope.CategoryID = s.category.Category.ID
	}
	if s.view != nil {
		scope.ParticipantID = s.view.Participant.ID
	}
	return scope
}

// LoadGalas lists the judge's galas and re-syncs the gate of the selected one
func (s *Session) LoadGalas(ctx context.Context) ([]models.GalaSummary, error) {
	galas, err := s.store.ListAssignedGalas(ctx, s.judgeID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.galas = galas
	if s.gala != nil {
		for i := range galas {
			if galas[i].ID == s.gala.ID {
				g := galas[i]
				s.gala = &g
				s.gate.Refresh(g.Locked, g.Submitted, g.SubmittedAt)
				break
			}
		}
	}
	return galas, nil
}

// Galas returns the last listed galas
func (s *Session) Galas() []models.GalaSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.galas
}

// OpenGala selects a gala. Pending edits of the previous participant are
// flushed first; if that fails the selection does not change.
func (s *Session) OpenGala(ctx context.Context, galaID int) (*models.GalaSummary, error) {
	if err := s.releaseEditor(ctx); err != nil {
		return nil, err
	}
	galas, err := s.LoadGalas(ctx)
	if err != nil {
		return nil, err
	}
	var found *models.GalaSummary
	for i := range galas {
		if galas[i].ID == galaID {
			g := galas[i]
			found = &g
			break
		}
	}
	if found == nil {
		return nil, errors.NotFoundf("gala %d is not assigned to judge %d", galaID, s.judgeID)
	}

	gate := NewGate(s.store, s.judgeID, galaID, found.Locked, found.Submitted)
	gate.now = s.o.now
	gate.Refresh(found.Locked, found.Submitted, found.SubmittedAt)

	s.mu.Lock()
	s.gala = found
	s.gate = gate
	s.category = nil
	s.view = nil
	s.editor = nil
	s.favorite = nil
	s.mu.Unlock()
	return found, nil
}

// OpenCategory selects a category of the current gala
func (s *Session) OpenCategory(ctx context.Context, categoryID int) (*models.CategoryView, error) {
	s.mu.Lock()
	gala, gate := s.gala, s.gate
	s.mu.Unlock()
	if gala == nil {
		return nil, errors.Validation("no gala selected")
	}
	if err := s.releaseEditor(ctx); err != nil {
		return nil, err
	}
	view, err := s.store.GetCategoryParticipants(ctx, s.judgeID, gala.ID, categoryID)
	if err != nil {
		return nil, err
	}
	gate.Refresh(view.Locked, view.Submitted, gate.SubmittedAt())

	s.mu.Lock()
	s.category = view
	s.view = nil
	s.editor = nil
	s.favorite = nil
	s.mu.Unlock()
	return view, nil
}

// OpenParticipant selects a participant of the current category and creates
// its editor and favorite selector.
func (s *Session) OpenParticipant(ctx context.Context, participantID int) (*models.ParticipantView, error) {
	s.mu.Lock()
	category, gate := s.category, s.gate
	s.mu.Unlock()
	if category == nil {
		return nil, errors.Validation("no category selected")
	}
	if err := s.releaseEditor(ctx); err != nil {
		return nil, err
	}
	scope := models.Scope{
		JudgeID:       s.judgeID,
		GalaID:        gate.GalaID(),
		CategoryID:    category.Category.ID,
		ParticipantID: participantID,
	}
	view, err := s.store.GetParticipantQuestions(ctx, scope)
	if err != nil {
		return nil, err
	}
	gate.Refresh(view.Locked, view.Submitted, gate.SubmittedAt())

	editor := NewController(s.store, gate, scope, view, s.opts...)
	favorite := NewFavoriteSelector(s.store, gate, scope, view.Favorite)

	s.mu.Lock()
	s.view = view
	s.editor = editor
	s.favorite = favorite
	s.mu.Unlock()
	return view, nil
}

// Gala returns the selected gala summary, nil before OpenGala
func (s *Session) Gala() *models.GalaSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gala
}

// Gate returns the gate of the selected gala
func (s *Session) Gate() *Gate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate
}

// Editor returns the editor of the selected participant
func (s *Session) Editor() *Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor
}

// Favorite returns the favorite selector of the selected participant
func (s *Session) Favorite() *FavoriteSelector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favorite
}

// Status returns the gala status from the last listed progress
func (s *Session) Status() models.Status {
	s.mu.Lock()
	gala, gate := s.gala, s.gate
	s.mu.Unlock()
	if gala == nil {
		return models.StatusNonDisponible
	}
	return gate.Status(gala.Progress)
}

// Submit waits for every note write of the session to reach the store,
// reloads progress and submits the gala. A write that cannot be delivered
// aborts the submission.
func (s *Session) Submit(ctx context.Context, confirm Confirmer) error {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate == nil {
		return errors.Validation("no gala selected")
	}
	if err := s.settle(ctx); err != nil {
		return err
	}
	if _, err := s.LoadGalas(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	progress := s.gala.Progress
	s.mu.Unlock()
	if err := gate.Submit(ctx, progress, confirm); err != nil {
		return err
	}

	s.mu.Lock()
	s.gala.Submitted = true
	s.gala.SubmittedAt = gate.SubmittedAt()
	s.gala.Status = gate.Status(s.gala.Progress)
	s.mu.Unlock()
	return nil
}

// Refresh re-lists galas so an administrator lock or submission reset is
// picked up by the gate.
func (s *Session) Refresh(ctx context.Context) error {
	_, err := s.LoadGalas(ctx)
	return err
}

// Close flushes the current editor
func (s *Session) Close(ctx context.Context) error {
	return s.releaseEditor(ctx)
}

// settle drains the current editor and every released one still holding
// queued writes
func (s *Session) settle(ctx context.Context) error {
	s.mu.Lock()
	editors := append([]*Controller{}, s.released...)
	if s.editor != nil {
		editors = append(editors, s.editor)
	}
	s.mu.Unlock()

	for _, editor := range editors {
		if err := editor.Settle(ctx); err != nil {
			return err
		}
	}

	s.mu.Lock()
	kept := s.released[:0]
	for _, editor := range s.released {
		if editor.State() != EditorIdle {
			kept = append(kept, editor)
		}
	}
	s.released = kept
	s.mu.Unlock()
	return nil
}

func (s *Session) releaseEditor(ctx context.Context) error {
	s.mu.Lock()
	editor := s.editor
	s.mu.Unlock()
	if editor == nil {
		return nil
	}
	// Rejected writes are final; only undelivered ones hold the judge here.
	flushErr := editor.Flush(ctx)
	_, pending := editor.Pending()
	if len(editor.Unsent()) > 0 || !pending.IsEmpty() {
		if flushErr != nil {
			return flushErr
		}
		return errors.Transportf("unsent notes remain for participant %d", editor.Scope().ParticipantID)
	}
	err := editor.Release(ctx)
	if editor.State() != EditorIdle {
		s.mu.Lock()
		s.released = append(s.released, editor)
		s.mu.Unlock()
	}
	return err
}
