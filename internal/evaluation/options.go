package evaluation

import "time"

// Default timing of the persistence controller
const (
	DefaultDebounce  = 2 * time.Second
	DefaultBusyRetry = 250 * time.Millisecond
)

type options struct {
	debounce  time.Duration
	busyRetry time.Duration
	sched     Scheduler
	listener  Listener
	slot      *writeSlot
	now       func() time.Time
}

// Option configures a Session or Controller
type Option func(*options)

// WithDebounce sets the quiet period after the last edit before a write
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithBusyRetry sets the delay before a queued write is retried while
// another write is in flight
func WithBusyRetry(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.busyRetry = d
		}
	}
}

// WithScheduler replaces the runtime timer, e.g. with a ManualScheduler
func WithScheduler(s Scheduler) Option {
	return func(o *options) {
		if s != nil {
			o.sched = s
		}
	}
}

// WithListener receives the outcome of every write
func WithListener(l Listener) Option {
	return func(o *options) {
		if l != nil {
			o.listener = l
		}
	}
}

// WithClock sets the clock used to stamp submissions
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func withWriteSlot(slot *writeSlot) Option {
	return func(o *options) {
		o.slot = slot
	}
}

func buildOptions(opts []Option) options {
	o := options{
		debounce:  DefaultDebounce,
		busyRetry: DefaultBusyRetry,
		sched:     RealScheduler{},
		listener:  ListenerFuncs{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.slot == nil {
		o.slot = &writeSlot{}
	}
	return o
}
