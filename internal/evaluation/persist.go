package evaluation

import (
	"context"
	stderrors "errors"
	"sort"
	"sync"
	"time"

	"github.com/abrezinsky/galajudge/internal/errors"
	"github.com/abrezinsky/galajudge/internal/models"
)

// EditorState is the state of a question-editing context
type EditorState string

const (
	EditorIdle     EditorState = "idle"
	EditorPending  EditorState = "pending"
	EditorFlushing EditorState = "flushing"
)

// ErrReleased is returned by edits made after the context was released
var ErrReleased = errors.Internalf("editing context was released")

// Listener receives the outcome of every note write, including the ones
// triggered by the debounce timer.
type Listener interface {
	NoteSaved(questionID int, note models.Note, progress models.ParticipantProgress)
	NoteFailed(questionID int, err error)
}

// ListenerFuncs adapts plain functions to Listener; nil funcs are skipped
type ListenerFuncs struct {
	Saved  func(questionID int, note models.Note, progress models.ParticipantProgress)
	Failed func(questionID int, err error)
}

func (l ListenerFuncs) NoteSaved(questionID int, note models.Note, progress models.ParticipantProgress) {
	if l.Saved != nil {
		l.Saved(questionID, note, progress)
	}
}

func (l ListenerFuncs) NoteFailed(questionID int, err error) {
	if l.Failed != nil {
		l.Failed(questionID, err)
	}
}

// writeSlot admits one store write at a time across all editing contexts
// of a session.
type writeSlot struct {
	mu    sync.Mutex
	busy  bool
	freed chan struct{}
}

func (w *writeSlot) tryAcquire() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return false
	}
	w.busy = true
	return true
}

func (w *writeSlot) release() {
	w.mu.Lock()
	w.busy = false
	if w.freed != nil {
		close(w.freed)
		w.freed = nil
	}
	w.mu.Unlock()
}

// released returns a channel closed on the next release
func (w *writeSlot) released() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.freed == nil {
		w.freed = make(chan struct{})
	}
	return w.freed
}

type queuedWrite struct {
	ctx        context.Context
	questionID int
	patch      models.NotePatch
}

// Controller turns rapid note edits for one participant into an ordered,
// minimal sequence of store writes.
//
// Edits to the question being edited merge into one pending payload and are
// sent after a quiet period. Moving to another question sends the previous
// payload first. Writes leave through a FIFO queue, one at a time; a write
// that finds the slot busy waits for the busy-retry delay. The local note
// cache only ever takes the store's canonical note.
type Controller struct {
	mu        sync.Mutex
	store     Store
	gate      *Gate
	scope     models.Scope
	sched     Scheduler
	listener  Listener
	slot      *writeSlot
	debounce  time.Duration
	busyRetry time.Duration

	questions map[int]models.QuestionView
	order     []int
	progress  models.ParticipantProgress

	pendingQ int
	pending  models.NotePatch
	timer    Timer
	gen      int

	queue      []queuedWrite
	retryArmed bool
	flushing   bool
	settled    chan struct{}
	unsent     map[int]models.NotePatch
	closed     bool
}

// NewController creates the editing context for the participant view in scope
func NewController(store Store, gate *Gate, scope models.Scope, view *models.ParticipantView, opts ...Option) *Controller {
	o := buildOptions(opts)
	c := &Controller{
		store:     store,
		gate:      gate,
		scope:     scope,
		sched:     o.sched,
		listener:  o.listener,
		slot:      o.slot,
		debounce:  o.debounce,
		busyRetry: o.busyRetry,
		questions: make(map[int]models.QuestionView),
		unsent:    make(map[int]models.NotePatch),
	}
	if view != nil {
		for _, q := range view.Questions {
			c.questions[q.ID] = q
			c.order = append(c.order, q.ID)
		}
	}
	c.progress = ParticipantProgress(QuestionStates(c.questionsLocked()))
	return c
}

// Scope returns the judge, gala, category and participant being edited
func (c *Controller) Scope() models.Scope {
	return c.scope
}

// Edit records a field change for a question. Invalid values and edits
// while the gate is closed fail without reaching the store.
func (c *Controller) Edit(ctx context.Context, questionID int, patch models.NotePatch) error {
	if err := c.gate.CheckWritable(); err != nil {
		return err
	}
	patch = patch.Normalize()
	if err := patch.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrReleased
	}
	q, ok := c.questions[questionID]
	if !ok {
		c.mu.Unlock()
		return errors.NotFoundf("question %d is not part of this evaluation", questionID)
	}

	if c.pendingQ != 0 && c.pendingQ != questionID && !c.pending.IsEmpty() {
		prevQ, prev := c.takePendingLocked()
		c.mu.Unlock()
		// Failures reach the listener; the new edit is accepted regardless.
		_ = c.send(ctx, prevQ, prev)
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return ErrReleased
		}
	}

	var base models.NotePatch
	if c.pendingQ == questionID {
		base = c.pending
	} else if u, ok := c.unsent[questionID]; ok {
		base = u
		delete(c.unsent, questionID)
	}
	merged := base.Merge(patch)
	if target := q.ScopeParticipantID; target != 0 && target != c.scope.ParticipantID {
		merged.TargetParticipantID = &target
	}

	c.pendingQ = questionID
	c.pending = merged
	c.armLocked()
	c.mu.Unlock()
	return nil
}

// Flush sends the pending payload now instead of waiting for the timer.
// The write may still be queued behind one that is in flight.
func (c *Controller) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.pending.IsEmpty() {
		c.mu.Unlock()
		return nil
	}
	q, p := c.takePendingLocked()
	c.mu.Unlock()
	return c.send(ctx, q, p)
}

// Retry resends every payload kept after a transport failure, then the
// pending one.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	ids := make([]int, 0, len(c.unsent))
	for id := range c.unsent {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		c.queue = append(c.queue, queuedWrite{ctx: context.WithoutCancel(ctx), questionID: id, patch: c.unsent[id]})
		delete(c.unsent, id)
	}
	if !c.pending.IsEmpty() {
		q, p := c.takePendingLocked()
		c.queue = append(c.queue, queuedWrite{ctx: context.WithoutCancel(ctx), questionID: q, patch: p})
	}
	c.mu.Unlock()
	return c.drain()
}

// Release flushes the pending payload and closes the context. Writes still
// queued behind a busy slot are delivered later, never dropped.
func (c *Controller) Release(ctx context.Context) error {
	err := c.Flush(ctx)
	c.mu.Lock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	return err
}

// Settle sends the pending payload and waits until every queued write has
// reached the store. It fails with a transport error when a payload is left
// undelivered or ctx ends first; rejected writes are returned as is.
func (c *Controller) Settle(ctx context.Context) error {
	if err := c.Flush(ctx); err != nil {
		return err
	}
	for {
		c.mu.Lock()
		if len(c.unsent) > 0 || !c.pending.IsEmpty() {
			c.mu.Unlock()
			return errors.Transportf("unsent notes remain for participant %d", c.scope.ParticipantID)
		}
		if len(c.queue) == 0 && !c.flushing {
			c.mu.Unlock()
			return nil
		}
		wait := c.waitLocked()
		inFlight := c.flushing
		c.mu.Unlock()
		freed := c.slot.released()

		if !inFlight {
			if err := c.drain(); err != nil {
				return err
			}
			c.mu.Lock()
			stuck := len(c.queue) > 0 && !c.flushing
			c.mu.Unlock()
			if !stuck {
				continue
			}
		}
		// Another write holds the slot
		select {
		case <-wait:
		case <-freed:
		case <-ctx.Done():
			return errors.Transport(ctx.Err())
		}
	}
}

func (c *Controller) waitLocked() <-chan struct{} {
	if c.settled == nil {
		c.settled = make(chan struct{})
	}
	return c.settled
}

func (c *Controller) signalLocked() {
	if c.settled != nil {
		close(c.settled)
		c.settled = nil
	}
}

// State reports idle, pending or flushing
func (c *Controller) State() EditorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.flushing:
		return EditorFlushing
	case !c.pending.IsEmpty() || len(c.queue) > 0:
		return EditorPending
	default:
		return EditorIdle
	}
}

// Pending returns the question and payload waiting for the timer
func (c *Controller) Pending() (int, models.NotePatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingQ, c.pending
}

// Unsent returns payloads kept after a transport failure
func (c *Controller) Unsent() map[int]models.NotePatch {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int]models.NotePatch, len(c.unsent))
	for k, v := range c.unsent {
		out[k] = v
	}
	return out
}

// Note returns the last canonical note for a question
func (c *Controller) Note(questionID int) (models.Note, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.questions[questionID]
	if !ok {
		return models.Note{}, false
	}
	return q.Note(), true
}

// Questions returns the participant's questions with confirmed notes
func (c *Controller) Questions() []models.QuestionView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.questionsLocked()
}

// Progress returns participant progress over confirmed notes
func (c *Controller) Progress() models.ParticipantProgress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

func (c *Controller) questionsLocked() []models.QuestionView {
	out := make([]models.QuestionView, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.questions[id])
	}
	return out
}

func (c *Controller) takePendingLocked() (int, models.NotePatch) {
	q, p := c.pendingQ, c.pending
	c.pendingQ = 0
	c.pending = models.NotePatch{}
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	return q, p
}

func (c *Controller) armLocked() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.timer = c.sched.AfterFunc(c.debounce, func() { c.fire(gen) })
}

func (c *Controller) fire(gen int) {
	c.mu.Lock()
	if gen != c.gen || c.pending.IsEmpty() {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	q, p := c.takePendingLocked()
	c.mu.Unlock()
	_ = c.send(context.Background(), q, p)
}

func (c *Controller) send(ctx context.Context, questionID int, patch models.NotePatch) error {
	c.mu.Lock()
	c.queue = append(c.queue, queuedWrite{ctx: context.WithoutCancel(ctx), questionID: questionID, patch: patch})
	c.mu.Unlock()
	return c.drain()
}

// drain sends queued writes in order until the queue is empty or the slot
// is taken, in which case a busy retry is armed.
func (c *Controller) drain() error {
	var errs []error
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.mu.Unlock()
			break
		}
		if c.flushing || !c.slot.tryAcquire() {
			c.armRetryLocked()
			c.mu.Unlock()
			break
		}
		w := c.queue[0]
		c.queue = c.queue[1:]
		c.flushing = true
		c.mu.Unlock()

		note, err := c.store.WriteNote(w.ctx, c.scope, w.questionID, w.patch)
		c.slot.release()

		c.mu.Lock()
		c.flushing = false
		c.signalLocked()
		var progress models.ParticipantProgress
		if err != nil {
			c.keepUnsentLocked(w, err)
		} else {
			c.applyLocked(w.questionID, *note)
			progress = c.progress
		}
		c.mu.Unlock()

		if err != nil {
			c.gate.Observe(err)
			c.listener.NoteFailed(w.questionID, err)
			errs = append(errs, err)
			continue
		}
		c.listener.NoteSaved(w.questionID, *note, progress)
	}
	return stderrors.Join(errs...)
}

func (c *Controller) armRetryLocked() {
	if c.retryArmed {
		return
	}
	c.retryArmed = true
	c.sched.AfterFunc(c.busyRetry, func() {
		c.mu.Lock()
		c.retryArmed = false
		c.mu.Unlock()
		_ = c.drain()
	})
}

// keepUnsentLocked holds on to a payload the store never received so a later
// edit or Retry can deliver it. Rejections by the store are final.
func (c *Controller) keepUnsentLocked(w queuedWrite, err error) {
	switch errors.KindOf(err) {
	case errors.ErrTransport, errors.ErrInternal:
	default:
		return
	}
	if c.pendingQ == w.questionID {
		c.pending = w.patch.Merge(c.pending)
		return
	}
	c.unsent[w.questionID] = c.unsent[w.questionID].Merge(w.patch)
}

func (c *Controller) applyLocked(questionID int, note models.Note) {
	q, ok := c.questions[questionID]
	if !ok {
		return
	}
	q.Value = note.Value
	q.Comment = note.Comment
	c.questions[questionID] = q
	c.progress = ParticipantProgress(QuestionStates(c.questionsLocked()))
}
