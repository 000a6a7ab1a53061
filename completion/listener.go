// Package completion coordinates then/finally follow-ups for a rendered node.
//
// A Listener counts the tasks registered by a node's directives. It becomes
// done the first time every task has settled and the node's synchronous
// directives have all returned, then runs the then-queue, waits a settle delay
// and runs the finally-queue. A Listener is done at most once.
package completion

import (
	"time"

	"github.com/delaneyj/livedoc/loop"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultSettleDelay = 100 * time.Millisecond

// Exec runs a follow-up expression. last is the most recent value resolved by
// an async task, if any.
type Exec func(expr string, last any)

type Option func(*Listener)

func WithSettleDelay(d time.Duration) Option {
	return func(c *Listener) {
		c.settle = d
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Listener) {
		c.log = log
	}
}

type Listener struct {
	id     uuid.UUID
	loop   *loop.Loop
	exec   Exec
	settle time.Duration

	total     int
	completed int
	syncDone  bool
	done      bool
	last      any

	thens   []string
	finals  []string
	settled *loop.Timer

	log *zap.SugaredLogger
}

func New(l *loop.Loop, exec Exec, opts ...Option) *Listener {
	c := &Listener{
		id:     uuid.New(),
		loop:   l,
		exec:   exec,
		settle: DefaultSettleDelay,
		log:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("listener", c.id.String())
	return c
}

func (c *Listener) ID() uuid.UUID {
	return c.id
}

// AddTask counts p and completes it when p settles, successfully or not.
func (c *Listener) AddTask(p *loop.Promise) {
	if p == nil {
		return
	}
	c.total++
	p.Then(func(v any, err error) {
		if err == nil && v != nil {
			c.last = v
		}
		c.complete()
	})
}

// AddFunc starts fn and tracks the promise it returns.
func (c *Listener) AddFunc(fn func() *loop.Promise) {
	c.AddTask(fn())
}

// AddAsyncTask registers a task finished by calling the returned func.
// Later calls of the func are ignored.
func (c *Listener) AddAsyncTask() func(v any) {
	c.total++
	finished := false
	return func(v any) {
		if finished {
			return
		}
		finished = true
		if v != nil {
			c.last = v
		}
		c.complete()
	}
}

// MarkSyncDone records that the node's synchronous directives have returned.
func (c *Listener) MarkSyncDone() {
	if c.syncDone {
		return
	}
	c.syncDone = true
	c.check()
}

func (c *Listener) Then(expr string) {
	c.thens = append(c.thens, expr)
}

func (c *Listener) Finally(expr string) {
	c.finals = append(c.finals, expr)
}

func (c *Listener) Done() bool {
	return c.done
}

// Counts reports the completed and total task counters.
func (c *Listener) Counts() (completed, total int) {
	return c.completed, c.total
}

func (c *Listener) complete() {
	c.completed++
	c.check()
}

func (c *Listener) check() {
	if c.done || !c.syncDone || c.completed < c.total {
		return
	}
	c.done = true
	c.log.Debugw("completed", "tasks", c.total, "then", len(c.thens), "finally", len(c.finals))

	for _, e := range c.thens {
		c.run(e)
	}
	if len(c.finals) == 0 {
		return
	}
	c.settled = c.loop.AfterFunc(c.settle, func() {
		for _, e := range c.finals {
			c.run(e)
		}
	})
}

func (c *Listener) run(expr string) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorw("follow-up panicked", "expr", expr, "panic", r)
		}
	}()
	c.exec(expr, c.last)
}
