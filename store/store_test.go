package store_test

import (
	"testing"
	"time"

	"github.com/delaneyj/livedoc/loop"
	"github.com/delaneyj/livedoc/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*loop.Loop, *store.Store) {
	t.Helper()
	l := loop.NewVirtual()
	return l, store.New(l)
}

func TestDeepEqualWriteIsSilent(t *testing.T) {
	l, s := newStore(t)
	s.Wrap(map[string]any{"user": map[string]any{"name": "ann", "tags": []any{"a"}}})

	calls := 0
	s.Watch("user", func(_, _ any) { calls++ }, store.Reactive{})

	changed := s.Set("user", map[string]any{"name": "ann", "tags": []any{"a"}})
	assert.False(t, changed)
	assert.False(t, s.RenderPending())

	require.NoError(t, l.Advance(time.Second))
	assert.Zero(t, calls)
	assert.Zero(t, s.RenderCount())
}

func TestWritesCoalesceIntoOneRender(t *testing.T) {
	l, s := newStore(t)
	for i := 0; i < 5; i++ {
		s.Set("n", float64(i+1))
		require.NoError(t, l.Advance(time.Millisecond))
	}
	assert.Zero(t, s.RenderCount())

	require.NoError(t, l.Advance(store.DefaultDebounce))
	assert.Equal(t, 1, s.RenderCount())
}

func TestWatchersRunSynchronouslyInOrder(t *testing.T) {
	_, s := newStore(t)
	var order []string
	s.Watch("n", func(v, prev any) {
		order = append(order, "first")
		assert.Equal(t, 2.0, v)
		assert.Nil(t, prev)
	}, nil)
	s.Watch("n", func(_, _ any) { order = append(order, "second") }, store.Reactive{})

	s.Set("n", 2.0)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestOneShotFiresOnceUntilReenabled(t *testing.T) {
	_, s := newStore(t)
	calls := 0
	once := &store.OneShot{}
	s.Watch("step", func(_, _ any) { calls++ }, once)

	s.Set("step", 1.0)
	s.Set("step", 2.0)
	s.Set("step", 3.0)
	assert.Equal(t, 1, calls)
	assert.True(t, once.Fired())

	s.EnableWatchers()
	assert.False(t, once.Fired())
	s.Set("step", 4.0)
	assert.Equal(t, 2, calls)
}

func TestDisabledWatchersStillStore(t *testing.T) {
	_, s := newStore(t)
	calls := 0
	s.Watch("x", func(_, _ any) { calls++ }, nil)

	s.DisableWatchers()
	assert.True(t, s.Set("x", "a"))
	assert.Equal(t, "a", s.Get("x"))
	assert.Zero(t, calls)

	s.EnableWatchers()
	s.Set("x", "b")
	assert.Equal(t, 1, calls)
}

func TestWritesDuringDispatchSkipWatchers(t *testing.T) {
	_, s := newStore(t)
	nested := 0
	s.Watch("a", func(v, _ any) { s.Set("b", v) }, nil)
	s.Watch("b", func(_, _ any) { nested++ }, nil)

	s.Set("a", 1.0)
	assert.Equal(t, 1.0, s.Get("b"))
	assert.Zero(t, nested)
	assert.True(t, s.RenderPending())
}

func TestEqualWriteDuringDispatchIsSilent(t *testing.T) {
	_, s := newStore(t)
	s.Set("b", map[string]any{"n": 1.0})
	var changed []bool
	s.Watch("a", func(_, _ any) {
		changed = append(changed, s.Set("b", map[string]any{"n": 1.0}))
		changed = append(changed, s.Set("c", 2.0))
	}, nil)

	s.Set("a", 1.0)
	assert.Equal(t, []bool{false, true}, changed)
	assert.Equal(t, 2.0, s.Get("c"))
}

func TestWatcherPanicDoesNotAbortOthers(t *testing.T) {
	_, s := newStore(t)
	ran := false
	s.Watch("x", func(_, _ any) { panic("boom") }, nil)
	s.Watch("x", func(_, _ any) { ran = true }, nil)

	assert.NotPanics(t, func() { s.Set("x", 1.0) })
	assert.True(t, ran)
}

func TestUnwatch(t *testing.T) {
	_, s := newStore(t)
	calls := 0
	stop := s.Watch("x", func(_, _ any) { calls++ }, nil)
	s.Set("x", 1.0)
	stop()
	s.Set("x", 2.0)
	assert.Equal(t, 1, calls)
	assert.Zero(t, s.WatcherCount("x"))
}

func TestPreviousIsDetached(t *testing.T) {
	_, s := newStore(t)
	list := []any{"a"}
	s.Set("list", list)
	s.Set("list", []any{"a", "b"})
	assert.Equal(t, []any{"a"}, s.Previous("list"))

	list[0] = "mutated"
	assert.Equal(t, []any{"a"}, s.Previous("list"))
}

func TestDefineAndTouch(t *testing.T) {
	l, s := newStore(t)
	calls := 0
	s.Watch("todos", func(_, _ any) { calls++ }, nil)

	s.Define("todos", []any{})
	assert.Zero(t, calls)
	assert.False(t, s.RenderPending())

	s.Touch("todos")
	assert.True(t, s.RenderPending())
	require.NoError(t, l.Advance(store.DefaultDebounce))
	assert.Equal(t, 1, s.RenderCount())
	assert.Zero(t, calls)
}

func TestOnFlushRunsRender(t *testing.T) {
	l, s := newStore(t)
	renders := 0
	s.OnFlush(func() { renders++ })
	s.OnFlush(func() { panic("render failed") })

	s.Set("x", 1.0)
	require.NoError(t, l.Advance(store.DefaultDebounce))
	assert.Equal(t, 1, renders)
	assert.Equal(t, []string{"x"}, s.Keys())
}

func TestEqualFallsBackToIdentity(t *testing.T) {
	type opaque struct{ hidden int }
	a := &opaque{hidden: 1}
	assert.True(t, store.Equal(a, a))
	assert.False(t, store.Equal(a, &opaque{hidden: 1}))
	assert.True(t, store.Equal(map[string]any{"n": 1.0}, map[string]any{"n": 1.0}))
	assert.False(t, store.Equal(1.0, "1"))
}
