// Package loop is the single goroutine every piece of livedoc runs on.
//
// State, DOM and directive code all execute as loop tasks. Timers (render
// debounce, automation delays, completion settle windows) live in a heap owned
// by the loop, and network I/O runs on background goroutines whose
// continuations are posted back as tasks. A loop built with NewVirtual runs on
// a manual clock so tests can step time deterministically.
package loop

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrLoopRunning is returned when Run is called on a loop that is already running.
	ErrLoopRunning = errors.New("loop: already running")

	// ErrNotVirtual is returned by Advance on a real-time loop.
	ErrNotVirtual = errors.New("loop: not a virtual loop")
)

type Option func(*Loop)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(l *Loop) {
		l.log = log
	}
}

type Loop struct {
	mu     sync.Mutex
	tasks  []func()
	timers timerHeap
	seq    uint64

	clock  func() time.Time
	manual *manualClock

	wake     chan struct{}
	inflight atomic.Int64
	running  atomic.Bool

	log *zap.SugaredLogger
}

// New creates a loop driven by the wall clock. Call Run to process it.
func New(opts ...Option) *Loop {
	l := &Loop{
		clock: time.Now,
		wake:  make(chan struct{}, 1),
		log:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewVirtual creates a loop on a manual clock. Time only moves through Advance.
func NewVirtual(opts ...Option) *Loop {
	l := New(opts...)
	l.manual = &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l.clock = l.manual.Now
	return l
}

func (l *Loop) Now() time.Time {
	return l.clock()
}

func (l *Loop) IsVirtual() bool {
	return l.manual != nil
}

// Post enqueues fn. Safe to call from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()
	l.signal()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// AfterFunc runs fn on the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	if d < 0 {
		d = 0
	}
	l.mu.Lock()
	l.seq++
	t := &Timer{
		loop:  l,
		when:  l.clock().Add(d),
		seq:   l.seq,
		fn:    fn,
		index: -1,
	}
	heap.Push(&l.timers, t)
	l.mu.Unlock()
	l.signal()
	return t
}

// Go runs work on its own goroutine and posts the continuation it returns.
// The loop counts the work as in flight until the continuation has run.
func (l *Loop) Go(work func() func()) {
	l.inflight.Add(1)
	go func() {
		var cont func()
		defer func() {
			if r := recover(); r != nil {
				l.log.Errorw("background work panicked", "panic", r)
			}
			l.Post(func() {
				l.inflight.Add(-1)
				if cont != nil {
					cont()
				}
			})
		}()
		cont = work()
	}()
}

// Pending reports queued tasks, armed timers and in-flight background work.
func (l *Loop) Pending() (tasks, timers int, inflight int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks), len(l.timers), l.inflight.Load()
}

// Run processes tasks and timers in real time until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer l.running.Store(false)

	for {
		l.drain(l.clock())

		var (
			timer  *time.Timer
			timerC <-chan time.Time
		)
		if next, ok := l.nextDeadline(); ok {
			timer = time.NewTimer(next.Sub(l.clock()))
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case <-l.wake:
		case <-timerC:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// Advance moves a virtual loop forward by d, running every task and every
// timer that falls due on the way, in deadline order. Background work that is
// in flight is waited for before time moves.
func (l *Loop) Advance(d time.Duration) error {
	if l.manual == nil {
		return ErrNotVirtual
	}
	target := l.manual.Now().Add(d)
	for {
		l.runTasks()
		if l.inflight.Load() > 0 {
			<-l.wake
			continue
		}
		t := l.popDue(target)
		if t == nil {
			break
		}
		if t.when.After(l.manual.Now()) {
			l.manual.set(t.when)
		}
		l.call(t.fn)
	}
	l.manual.set(target)
	l.runTasks()
	return nil
}

// Flush runs everything that is due right now.
func (l *Loop) Flush() error {
	return l.Advance(0)
}

func (l *Loop) drain(now time.Time) {
	for {
		l.runTasks()
		t := l.popDue(now)
		if t == nil {
			return
		}
		l.call(t.fn)
	}
}

func (l *Loop) runTasks() {
	for {
		l.mu.Lock()
		tasks := l.tasks
		l.tasks = nil
		l.mu.Unlock()
		if len(tasks) == 0 {
			return
		}
		for _, task := range tasks {
			l.call(task)
		}
	}
}

func (l *Loop) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Errorw("loop task panicked", "panic", r)
		}
	}()
	fn()
}

func (l *Loop) popDue(now time.Time) *Timer {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.timers) == 0 || l.timers[0].when.After(now) {
		return nil
	}
	return heap.Pop(&l.timers).(*Timer)
}

func (l *Loop) nextDeadline() (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.timers) == 0 {
		return time.Time{}, false
	}
	return l.timers[0].when, true
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
