package evaluation

import (
	"context"
	"sync"
	"time"

	"github.com/abrezinsky/galajudge/internal/errors"
	"github.com/abrezinsky/galajudge/internal/models"
)

// GateState is the write-gating state of one (judge, gala) pair
type GateState string

const (
	GateEditable  GateState = "editable"
	GateSubmitted GateState = "submitted"
	GateLocked    GateState = "locked"
)

// ErrNotConfirmed is returned when the judge declines the final submission
var ErrNotConfirmed = errors.Validation("submission was not confirmed")

// Confirmer asks the judge to confirm an irreversible submission
type Confirmer func(ctx context.Context) bool

// Gate decides whether a judge may still write within a gala.
// Lock is an administrator override and does not touch the stored
// submitted flag.
type Gate struct {
	mu          sync.Mutex
	store       Store
	judgeID     int
	galaID      int
	locked      bool
	submitted   bool
	submittedAt string
	now         func() time.Time
}

// NewGate creates a gate for the judge and gala with the flags last seen
// from the store.
func NewGate(store Store, judgeID, galaID int, locked, submitted bool) *Gate {
	return &Gate{
		store:     store,
		judgeID:   judgeID,
		galaID:    galaID,
		locked:    locked,
		submitted: submitted,
		now:       time.Now,
	}
}

// GalaID returns the gala the gate guards
func (g *Gate) GalaID() int {
	return g.galaID
}

// State returns the current gate state; locked wins over submitted
func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateLocked()
}

func (g *Gate) stateLocked() GateState {
	switch {
	case g.locked:
		return GateLocked
	case g.submitted:
		return GateSubmitted
	default:
		return GateEditable
	}
}

// Locked and Submitted expose the raw flags
func (g *Gate) Locked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.locked
}

func (g *Gate) Submitted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submitted
}

// SubmittedAt returns the RFC 3339 submission time, empty when not submitted
func (g *Gate) SubmittedAt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submittedAt
}

// CheckWritable fails fast, without touching the store, when the judge may
// not create or modify notes or favorites.
func (g *Gate) CheckWritable() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.stateLocked() {
	case GateLocked:
		return errors.Conflict("gala is locked").WithCode(errors.CodeGalaLocked)
	case GateSubmitted:
		return errors.Conflict("evaluations already submitted for this gala").WithCode(errors.CodeAlreadySubmitted)
	}
	return nil
}

// Refresh adopts flags observed from the store, e.g. after an administrator
// locked the gala or reset the submission.
func (g *Gate) Refresh(locked, submitted bool, submittedAt string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.locked = locked
	g.submitted = submitted
	if submitted {
		g.submittedAt = submittedAt
	} else {
		g.submittedAt = ""
	}
}

// Observe re-syncs the gate from a store rejection. A conflict that says
// the gala is locked or already submitted is taken as the new truth.
func (g *Gate) Observe(err error) {
	switch errors.CodeOf(err) {
	case errors.CodeGalaLocked:
		g.mu.Lock()
		g.locked = true
		g.mu.Unlock()
	case errors.CodeAlreadySubmitted:
		g.mu.Lock()
		g.submitted = true
		g.mu.Unlock()
	}
}

// Status is the gala-level status the judge should see
func (g *Gate) Status(progress models.GalaProgress) models.Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return GalaStatus(progress, g.locked, g.submitted)
}

// CanSubmit reports whether the submit action should be offered at all
func (g *Gate) CanSubmit(progress models.GalaProgress) bool {
	return g.State() == GateEditable && progress.Complete()
}

// Submit finalizes the judge's evaluations for the gala. It requires every
// required note to be present and an explicit confirmation; nothing is sent
// to the store otherwise.
func (g *Gate) Submit(ctx context.Context, progress models.GalaProgress, confirm Confirmer) error {
	if err := g.CheckWritable(); err != nil {
		return err
	}
	if !progress.Complete() {
		return errors.Validationf("all questions must be rated before submitting (%d/%d)", progress.Recorded, progress.Total).
			WithCode(errors.CodeIncomplete)
	}
	if confirm == nil || !confirm(ctx) {
		return ErrNotConfirmed
	}

	if err := g.store.SubmitEvaluations(ctx, g.judgeID, g.galaID); err != nil {
		g.Observe(err)
		return err
	}

	g.mu.Lock()
	g.submitted = true
	g.submittedAt = g.now().UTC().Format(time.RFC3339)
	g.mu.Unlock()
	return nil
}
