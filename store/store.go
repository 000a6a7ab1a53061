// Package store is the reactive state behind a livedoc document: a single
// keyed map whose writes run watchers synchronously and coalesce into one
// debounced render per burst of changes.
package store

import (
	"sort"
	"time"

	"github.com/delaneyj/livedoc/loop"
	"go.uber.org/zap"
)

const DefaultDebounce = 10 * time.Millisecond

type Option func(*Store)

func WithDebounce(d time.Duration) Option {
	return func(s *Store) {
		s.debounce = d
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Store) {
		s.log = log
	}
}

type Store struct {
	loop     *loop.Loop
	values   map[string]any
	previous map[string]any

	watchers map[string][]*subscription
	nextID   uint64
	disabled bool

	// set while watchers run; writes made meanwhile are stored without
	// interception
	applying bool

	debounce time.Duration
	pending  *loop.Timer
	flushers []func()
	renders  int

	log *zap.SugaredLogger
}

func New(l *loop.Loop, opts ...Option) *Store {
	s := &Store{
		loop:     l,
		values:   map[string]any{},
		previous: map[string]any{},
		watchers: map[string][]*subscription{},
		debounce: DefaultDebounce,
		log:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Wrap seeds the store without firing watchers or scheduling a render.
func (s *Store) Wrap(initial map[string]any) *Store {
	for k, v := range initial {
		s.values[k] = v
	}
	return s
}

func (s *Store) Get(key string) any {
	return s.values[key]
}

func (s *Store) Lookup(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *Store) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot is a shallow copy of the current values.
func (s *Store) Snapshot() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Previous is the value key held before its last observed change.
func (s *Store) Previous(key string) any {
	return s.previous[key]
}

// Set writes key and reports whether the write was treated as a change.
// Deeply equal values are stored silently. Otherwise watchers run in
// registration order before Set returns and a render is scheduled.
func (s *Store) Set(key string, v any) bool {
	old := s.values[key]
	if Equal(old, v) {
		s.values[key] = v
		return false
	}
	if s.applying {
		s.values[key] = v
		s.schedule()
		return true
	}

	s.previous[key] = snapshot(old)
	s.values[key] = v

	s.applying = true
	s.notify(key, v, old)
	s.applying = false

	s.schedule()
	return true
}

// Assign satisfies expr.Scope.
func (s *Store) Assign(key string, v any) {
	s.Set(key, v)
}

// Define stores v with no watchers and no render. Used for internal
// bookkeeping and auto-materialized variables.
func (s *Store) Define(key string, v any) {
	s.values[key] = v
}

func (s *Store) SetInternal(key string, v any) {
	s.Define(key, v)
}

func (s *Store) Delete(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	s.previous[key] = s.values[key]
	delete(s.values, key)
	s.schedule()
}

// Touch records an in-place mutation below key. Watchers key on top-level
// identity so only a render is scheduled.
func (s *Store) Touch(key string) {
	s.log.Debugw("nested mutation", "key", key)
	s.schedule()
}

// Watch subscribes fn to changes of key. The returned func unsubscribes.
func (s *Store) Watch(key string, fn WatchFunc, firing Firing) func() {
	if firing == nil {
		firing = Reactive{}
	}
	s.nextID++
	sub := &subscription{id: s.nextID, fn: fn, firing: firing}
	s.watchers[key] = append(s.watchers[key], sub)
	return func() {
		subs := s.watchers[key]
		for i, other := range subs {
			if other.id == sub.id {
				s.watchers[key] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) WatcherCount(key string) int {
	return len(s.watchers[key])
}

// EnableWatchers turns dispatch back on and re-arms every one-shot watcher.
func (s *Store) EnableWatchers() {
	s.disabled = false
	for _, subs := range s.watchers {
		for _, sub := range subs {
			if o, ok := sub.firing.(*OneShot); ok {
				o.fired = false
			}
		}
	}
}

func (s *Store) DisableWatchers() {
	s.disabled = true
}

func (s *Store) notify(key string, v, old any) {
	if s.disabled {
		return
	}
	subs := append([]*subscription(nil), s.watchers[key]...)
	for _, sub := range subs {
		if !sub.due() {
			continue
		}
		s.call(key, sub, v, old)
	}
}

func (s *Store) call(key string, sub *subscription, v, old any) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("watcher panicked", "key", key, "panic", r)
		}
	}()
	sub.fn(v, old)
}

// OnFlush registers fn to run when a scheduled render fires.
func (s *Store) OnFlush(fn func()) {
	s.flushers = append(s.flushers, fn)
}

// ScheduleRender (re)arms the debounce timer.
func (s *Store) ScheduleRender() {
	s.schedule()
}

func (s *Store) schedule() {
	if s.pending != nil {
		s.pending.Stop()
	}
	s.pending = s.loop.AfterFunc(s.debounce, s.flush)
}

func (s *Store) flush() {
	s.pending = nil
	s.applying = false
	s.renders++
	for _, fn := range s.flushers {
		s.runFlusher(fn)
	}
}

func (s *Store) runFlusher(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("render panicked", "panic", r)
		}
	}()
	fn()
}

// RenderPending reports whether a debounced render is armed.
func (s *Store) RenderPending() bool {
	return s.pending != nil
}

// RenderCount is the number of debounced renders that have fired.
func (s *Store) RenderCount() int {
	return s.renders
}
