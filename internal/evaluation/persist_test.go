package evaluation

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abrezinsky/galajudge/internal/errors"
	"github.com/abrezinsky/galajudge/internal/models"
)

type savedEvent struct {
	questionID int
	note       models.Note
	progress   models.ParticipantProgress
}

type failedEvent struct {
	questionID int
	err        error
}

// recorder is a Listener that keeps every event
type recorder struct {
	mu     sync.Mutex
	saved  []savedEvent
	failed []failedEvent
}

func (r *recorder) NoteSaved(questionID int, note models.Note, progress models.ParticipantProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, savedEvent{questionID, note, progress})
}

func (r *recorder) NoteFailed(questionID int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, failedEvent{questionID, err})
}

func (r *recorder) savedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saved)
}

func (r *recorder) lastFailure() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.failed) == 0 {
		return nil
	}
	return r.failed[len(r.failed)-1].err
}

type controllerFixture struct {
	store *fakeStore
	sched *ManualScheduler
	gate  *Gate
	rec   *recorder
	slot  *writeSlot
}

func setupFixture(t *testing.T) *controllerFixture {
	t.Helper()
	store := newFakeStore()
	return &controllerFixture{
		store: store,
		sched: NewManualScheduler(),
		gate:  NewGate(store, testJudge, testGala, false, false),
		rec:   &recorder{},
		slot:  &writeSlot{},
	}
}

func (f *controllerFixture) controller(t *testing.T, participantID int) *Controller {
	t.Helper()
	scope := models.Scope{JudgeID: testJudge, GalaID: testGala, CategoryID: testCategory, ParticipantID: participantID}
	view, err := f.store.GetParticipantQuestions(context.Background(), scope)
	if err != nil {
		t.Fatalf("GetParticipantQuestions failed: %v", err)
	}
	return NewController(f.store, f.gate, scope, view,
		WithScheduler(f.sched),
		WithListener(f.rec),
		withWriteSlot(f.slot),
	)
}

func setupController(t *testing.T) (*controllerFixture, *Controller) {
	t.Helper()
	f := setupFixture(t)
	return f, f.controller(t, partA)
}

// TestEdit_CoalescesRapidEdits tests that several edits inside the debounce
// window produce one write carrying the final value
func TestEdit_CoalescesRapidEdits(t *testing.T) {
	f, c := setupController(t)
	ctx := context.Background()

	for _, text := range []string{"a", "ab", "abc"} {
		if err := c.Edit(ctx, qOne, models.CommentPatch(models.StringPtr(text))); err != nil {
			t.Fatalf("Edit failed: %v", err)
		}
		f.sched.Advance(500 * time.Millisecond)
	}
	if n := f.store.writeCount(); n != 0 {
		t.Fatalf("expected no write inside the window, got %d", n)
	}

	f.sched.Advance(DefaultDebounce)
	writes := f.store.writeLog()
	if len(writes) != 1 {
		t.Fatalf("expected 1 write, got %d", len(writes))
	}
	if got := *writes[0].patch.Comment; got != "abc" {
		t.Errorf("expected final comment abc, got %q", got)
	}
	if writes[0].patch.HasValue {
		t.Error("rating should not be sent when only the comment changed")
	}
	if f.rec.savedCount() != 1 {
		t.Errorf("expected one saved event, got %d", f.rec.savedCount())
	}
}

// TestEdit_DebounceRestarts tests that each edit restarts the quiet period
func TestEdit_DebounceRestarts(t *testing.T) {
	f, c := setupController(t)
	ctx := context.Background()

	_ = c.Edit(ctx, qOne, models.ValuePatch(models.IntPtr(3)))
	f.sched.Advance(1900 * time.Millisecond)
	_ = c.Edit(ctx, qOne, models.ValuePatch(models.IntPtr(4)))
	f.sched.Advance(1900 * time.Millisecond)
	if n := f.store.writeCount(); n != 0 {
		t.Fatalf("expected no write yet, got %d", n)
	}
	f.sched.Advance(100 * time.Millisecond)
	if n := f.store.writeCount(); n != 1 {
		t.Fatalf("expected 1 write, got %d", n)
	}
	note, _ := f.store.note(partA, qOne)
	if note.Value == nil || *note.Value != 4 {
		t.Errorf("expected stored rating 4, got %v", note.Value)
	}
}

// TestEdit_MergesFieldsOfSameQuestion tests that a rating and a comment
// edited together leave in one payload
func TestEdit_MergesFieldsOfSameQuestion(t *testing.T) {
	f, c := setupController(t)
	ctx := context.Background()

	_ = c.Edit(ctx, qOne, models.ValuePatch(models.IntPtr(5)))
	_ = c.Edit(ctx, qOne, models.CommentPatch(models.StringPtr("  solide  ")))
	f.sched.Advance(DefaultDebounce)

	writes := f.store.writeLog()
	if len(writes) != 1 {
		t.Fatalf("expected 1 write, got %d", len(writes))
	}
	p := writes[0].patch
	if !p.HasValue || *p.Value != 5 || !p.HasComment || *p.Comment != "solide" {
		t.Errorf("unexpected payload %+v", p)
	}
}

// TestEdit_SwitchingQuestionFlushesPrevious tests that moving to another
// question sends the previous payload before the new one
func TestEdit_SwitchingQuestionFlushesPrevious(t *testing.T) {
	f, c := setupController(t)
	ctx := context.Background()

	_ = c.Edit(ctx, qOne, models.ValuePatch(models.IntPtr(4)))
	_ = c.Edit(ctx, qTwo, models.ValuePatch(models.IntPtr(2)))

	writes := f.store.writeLog()
	if len(writes) != 1 || writes[0].questionID != qOne {
		t.Fatalf("expected immediate write of question %d, got %+v", qOne, writes)
	}
	if q, _ := c.Pending(); q != qTwo {
		t.Errorf("expected question %d pending, got %d", qTwo, q)
	}

	f.sched.Advance(DefaultDebounce)
	writes = f.store.writeLog()
	if len(writes) != 2 || writes[1].questionID != qTwo {
		t.Fatalf("expected second write for question %d, got %+v", qTwo, writes)
	}
}

// TestFlush_BusySlotRetries tests that a write finding another one in flight
// is queued and retried after the busy delay
func TestFlush_BusySlotRetries(t *testing.T) {
	f := setupFixture(t)
	a := f.controller(t, partA)
	b := f.controller(t, partB)
	ctx := context.Background()

	_ = b.Edit(ctx, qOne, models.ValuePatch(models.IntPtr(6)))

	var once sync.Once
	var stateDuring EditorState
	f.store.onWrite = func(call writeCall) {
		once.Do(func() {
			stateDuring = a.State()
			if err := b.Flush(ctx); err != nil {
				t.Errorf("queued flush should not fail: %v", err)
			}
		})
	}

	_ = a.Edit(ctx, qOne, models.ValuePatch(models.IntPtr(3)))
	if err := a.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if stateDuring != EditorFlushing {
		t.Errorf("expected flushing state during write, got %q", stateDuring)
	}
	if n := f.store.writeCount(); n != 1 {
		t.Fatalf("expected only the first write, got %d", n)
	}
	if b.State() != EditorPending {
		t.Errorf("expected queued write to leave editor pending, got %q", b.State())
	}

	f.sched.Advance(DefaultBusyRetry)
	writes := f.store.writeLog()
	if len(writes) != 2 {
		t.Fatalf("expected retried write, got %d writes", len(writes))
	}
	if writes[0].scope.ParticipantID != partA || writes[1].scope.ParticipantID != partB {
		t.Errorf("writes out of order: %+v", writes)
	}
	if b.State() != EditorIdle {
		t.Errorf("expected idle after retry, got %q", b.State())
	}
}

// TestFlush_TransportFailureKeepsPayload tests that a payload the store never
// received is kept and delivered by Retry
func TestFlush_TransportFailureKeepsPayload(t *testing.T) {
	f, c := setupController(t)
	ctx := context.Background()

	down := true
	f.store.failWrite = func(writeCall) error {
		if down {
			return errors.Transport(stderrors.New("connection refused"))
		}
		return nil
	}

	_ = c.Edit(ctx, qOne, models.ValuePatch(models.IntPtr(5)))
	f.sched.Advance(DefaultDebounce)

	if err := f.rec.lastFailure(); !errors.Is(err, errors.ErrTransport) {
		t.Fatalf("expected transport failure reported, got %v", err)
	}
	if _, ok := c.Unsent()[qOne]; !ok {
		t.Fatal("payload should be kept after transport failure")
	}
	if _, ok := f.store.note(partA, qOne); ok {
		t.Fatal("store should not hold the note")
	}
	if f.gate.State() != GateEditable {
		t.Error("transport failure must not close the gate")
	}

	down = false
	if err := c.Retry(ctx); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	note, ok := f.store.note(partA, qOne)
	if !ok || *note.Value != 5 {
		t.Fatalf("expected rating 5 after retry, got %+v", note)
	}
	if len(c.Unsent()) != 0 {
		t.Error("unsent payloads should be empty after retry")
	}
}

// TestEdit_AfterTransportFailureMergesUnsent tests that a new edit of the
// same question carries the undelivered fields with it
func TestEdit_AfterTransportFailureMergesUnsent(t *testing.T) {
	f, c := setupController(t)
	ctx := context.Background()

	fails := 1
	f.store.failWrite = func(writeCall) error {
		if fails > 0 {
			fails--
			return errors.Transport(stderrors.New("timeout"))
		}
		return nil
	}

	_ = c.Edit(ctx, qOne, models.ValuePatch(models.IntPtr(2)))
	f.sched.Advance(DefaultDebounce)
	_ = c.Edit(ctx, qOne, models.CommentPatch(models.StringPtr("à revoir")))
	f.sched.Advance(DefaultDebounce)

	writes := f.store.writeLog()
	last := writes[len(writes)-1].patch
	if !last.HasValue || *last.Value != 2 || !last.HasComment {
		t.Errorf("expected merged payload, got %+v", last)
	}
	note, _ := f.store.note(partA, qOne)
	if note.Value == nil || *note.Value != 2 || note.Comment == nil || *note.Comment != "à revoir" {
		t.Errorf("unexpected stored note %+v", note)
	}
}

// TestFlush_ConflictDropsPayloadAndClosesGate tests that a lock discovered on
// write is adopted by the gate and the payload is not retried
func TestFlush_ConflictDropsPayloadAndClosesGate(t *testing.T) {
	f, c := setupController(t)
	ctx := context.Background()

	_ = c.Edit(ctx, qOne, models.ValuePatch(models.IntPtr(4)))
	f.store.setLocked(true)
	f.sched.Advance(DefaultDebounce)

	err := f.rec.lastFailure()
	if !errors.Is(err, errors.ErrConflict) || errors.CodeOf(err) != errors.CodeGalaLocked {
		t.Fatalf("expected locked conflict, got %v", err)
	}
	if f.gate.State() != GateLocked {
		t.Errorf("expected gate locked, got %q", f.gate.State())
	}
	if len(c.Unsent()) != 0 {
		t.Error("rejected payload must not be kept")
	}

	before := f.store.writeCount()
	err = c.Edit(ctx, qTwo, models.ValuePatch(models.IntPtr(1)))
	if errors.CodeOf(err) != errors.CodeGalaLocked {
		t.Fatalf("expected edit refused while locked, got %v", err)
	}
	f.sched.Advance(DefaultDebounce)
	if f.store.writeCount() != before {
		t.Error("refused edit reached the store")
	}
}

func TestEdit_RejectsInvalidLocally(t *testing.T) {
	_, c := setupController(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		patch models.NotePatch
	}{
		{"rating too high", models.ValuePatch(models.IntPtr(7))},
		{"rating too low", models.ValuePatch(models.IntPtr(0))},
		{"comment too long", models.CommentPatch(models.StringPtr(strings.Repeat("é", models.MaxCommentLength+1)))},
		{"empty payload", models.NotePatch{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Edit(ctx, qOne, tt.patch); !errors.Is(err, errors.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
	if q, p := c.Pending(); q != 0 || !p.IsEmpty() {
		t.Errorf("invalid edits should leave nothing pending, got %d %+v", q, p)
	}
}

func TestEdit_UnknownQuestion(t *testing.T) {
	_, c := setupController(t)
	err := c.Edit(context.Background(), 999, models.ValuePatch(models.IntPtr(3)))
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

// TestEdit_NullClearsRating tests that sending null removes a stored rating
// and completion drops accordingly
func TestEdit_NullClearsRating(t *testing.T) {
	f, c := setupController(t)
	ctx := context.Background()

	_ = c.Edit(ctx, qOne, models.ValuePatch(models.IntPtr(3)))
	_ = c.Flush(ctx)
	if c.Progress().Completed != 1 {
		t.Fatalf("expected 1 completed, got %+v", c.Progress())
	}

	_ = c.Edit(ctx, qOne, models.ValuePatch(nil))
	_ = c.Flush(ctx)
	note, _ := f.store.note(partA, qOne)
	if note.Value != nil {
		t.Errorf("expected cleared rating, got %v", *note.Value)
	}
	if c.Progress().Completed != 0 {
		t.Errorf("expected 0 completed after clearing, got %+v", c.Progress())
	}
}

// TestEdit_Idempotent tests that writing the same value twice gives the same note
func TestEdit_Idempotent(t *testing.T) {
	f, c := setupController(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_ = c.Edit(ctx, qOne, models.ValuePatch(models.IntPtr(4)))
		f.sched.Advance(DefaultDebounce)
	}
	if len(f.rec.saved) != 2 {
		t.Fatalf("expected 2 saved events, got %d", len(f.rec.saved))
	}
	first, second := f.rec.saved[0].note, f.rec.saved[1].note
	if *first.Value != *second.Value || first.QuestionID != second.QuestionID {
		t.Errorf("notes differ: %+v vs %+v", first, second)
	}
	if c.Progress().Completed != 1 {
		t.Errorf("expected 1 completed, got %+v", c.Progress())
	}
}

// TestEdit_SharedQuestionTargetsCompanyParticipant tests that a shared
// question is written against its own participant and only counts as extra
func TestEdit_SharedQuestionTargetsCompanyParticipant(t *testing.T) {
	f, c := setupController(t)
	ctx := context.Background()

	_ = c.Edit(ctx, qOne, models.ValuePatch(models.IntPtr(5)))
	_ = c.Edit(ctx, qTwo, models.ValuePatch(models.IntPtr(4)))
	_ = c.Flush(ctx)

	p := c.Progress()
	if p.Completed != 2 || p.Total != 2 || p.Percent != 100 || p.Extra != 0 {
		t.Fatalf("unexpected progress before shared answer %+v", p)
	}

	_ = c.Edit(ctx, qShared, models.ValuePatch(models.IntPtr(3)))
	_ = c.Flush(ctx)

	writes := f.store.writeLog()
	last := writes[len(writes)-1]
	if last.patch.TargetParticipantID == nil || *last.patch.TargetParticipantID != partA+1000 {
		t.Fatalf("expected target participant %d, got %v", partA+1000, last.patch.TargetParticipantID)
	}
	if _, ok := f.store.note(partA+1000, qShared); !ok {
		t.Error("shared note not stored against its participant")
	}

	p = c.Progress()
	if p.Completed != 2 || p.Total != 2 || p.Percent != 100 || p.Extra != 1 {
		t.Errorf("unexpected progress after shared answer %+v", p)
	}
	if s := ParticipantStatus(p, false, false); s != models.StatusTermine {
		t.Errorf("expected termine, got %q", s)
	}
}

// TestEdit_CommentOnlyDoesNotComplete tests that a comment without a rating
// leaves the question incomplete
func TestEdit_CommentOnlyDoesNotComplete(t *testing.T) {
	_, c := setupController(t)
	ctx := context.Background()

	_ = c.Edit(ctx, qOne, models.CommentPatch(models.StringPtr("note")))
	_ = c.Flush(ctx)
	if c.Progress().Completed != 0 {
		t.Errorf("comment-only note counted: %+v", c.Progress())
	}
	note, _ := c.Note(qOne)
	if note.Comment == nil || *note.Comment != "note" {
		t.Errorf("comment not cached: %+v", note)
	}
}

// TestRelease_FlushesAndCloses tests that releasing sends the pending payload
// and refuses further edits
func TestRelease_FlushesAndCloses(t *testing.T) {
	f, c := setupController(t)
	ctx := context.Background()

	_ = c.Edit(ctx, qTwo, models.ValuePatch(models.IntPtr(6)))
	if err := c.Release(ctx); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if n := f.store.writeCount(); n != 1 {
		t.Fatalf("expected pending payload written, got %d writes", n)
	}
	if err := c.Edit(ctx, qTwo, models.ValuePatch(models.IntPtr(5))); err != ErrReleased {
		t.Errorf("expected ErrReleased, got %v", err)
	}
	f.sched.Advance(DefaultDebounce)
	if n := f.store.writeCount(); n != 1 {
		t.Errorf("released controller kept writing: %d writes", n)
	}
}

// TestController_CustomTiming tests the debounce and retry options
func TestController_CustomTiming(t *testing.T) {
	f := setupFixture(t)
	scope := models.Scope{JudgeID: testJudge, GalaID: testGala, CategoryID: testCategory, ParticipantID: partA}
	view, _ := f.store.GetParticipantQuestions(context.Background(), scope)
	c := NewController(f.store, f.gate, scope, view, WithScheduler(f.sched), WithDebounce(300*time.Millisecond))

	_ = c.Edit(context.Background(), qOne, models.ValuePatch(models.IntPtr(2)))
	f.sched.Advance(300 * time.Millisecond)
	if n := f.store.writeCount(); n != 1 {
		t.Errorf("expected write after custom debounce, got %d", n)
	}
}
