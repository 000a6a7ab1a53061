package directive

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/delaneyj/livedoc/completion"
	"github.com/delaneyj/livedoc/dom"
	"github.com/delaneyj/livedoc/expr"
	"github.com/delaneyj/livedoc/loop"
	"github.com/delaneyj/livedoc/store"
	"github.com/delaneyj/livedoc/tmpl"
)

var ErrNoAction = errors.New("watch needs a run or navigate action")

// edge is the trigger state of one watch directive in one loop iteration.
type edge struct {
	last     bool
	node     *tmpl.Node
	ctx      *expr.Context
	pending  *loop.Timer
	unwatch  []func()
	seen     int
	released bool
}

func (e *edge) release() {
	e.released = true
	if e.pending != nil {
		e.pending.Stop()
		e.pending = nil
	}
	for _, stop := range e.unwatch {
		stop()
	}
	e.unwatch = nil
}

// automation fires run or navigate when its watch condition turns true. It
// never fires while the condition merely stays true.
type automation struct {
	nop
	env   *Env
	edges map[uint64]*edge
}

func newAutomation(env *Env) *automation {
	return &automation{env: env, edges: map[uint64]*edge{}}
}

func edgeKey(nodeID int, ctxKey string) uint64 {
	d := xxhash.New()
	d.WriteString(strconv.Itoa(nodeID))
	d.WriteString("|")
	d.WriteString(ctxKey)
	return d.Sum64()
}

func (a *automation) Apply(node *tmpl.Node, ctx *expr.Context, _ *dom.Element, _ *completion.Listener) error {
	_, hasRun := node.Directive("run")
	_, hasNav := node.Directive("navigate")
	if !hasRun && !hasNav {
		return ErrNoAction
	}
	cond, _ := node.Directive("watch")

	key := edgeKey(node.ID, ctx.Key())
	e, ok := a.edges[key]
	if !ok {
		e = &edge{}
		a.edges[key] = e
		for _, dep := range expr.Dependencies(cond) {
			if ctx.Has(dep) {
				continue
			}
			stop := a.env.Store.Watch(dep, func(_, _ any) { a.evaluate(e) }, store.Reactive{})
			e.unwatch = append(e.unwatch, stop)
		}
	}
	e.node, e.ctx, e.seen = node, ctx, a.env.pass
	a.evaluate(e)
	return nil
}

// sweep releases every edge whose element was not rendered in pass.
func (a *automation) sweep(pass int) {
	for key, e := range a.edges {
		if e.seen != pass {
			e.release()
			delete(a.edges, key)
		}
	}
}

func (a *automation) evaluate(e *edge) {
	cond, _ := e.node.Directive("watch")
	a.transition(e, a.env.truthy(cond, e.ctx))
}

func (a *automation) transition(e *edge, now bool) {
	was := e.last
	e.last = now
	if !now {
		if e.pending != nil {
			e.pending.Stop()
			e.pending = nil
		}
		return
	}
	if was {
		return
	}

	delay, err := a.delay(e)
	if err != nil {
		a.env.Log.Warnw("invalid delay", "error", err)
	}
	if delay <= 0 {
		a.env.Loop.Post(func() { a.act(e) })
		return
	}
	e.pending = a.env.Loop.AfterFunc(delay, func() {
		e.pending = nil
		cond, _ := e.node.Directive("watch")
		if !a.env.truthy(cond, e.ctx) {
			e.last = false
			return
		}
		a.act(e)
	})
}

func (a *automation) delay(e *edge) (time.Duration, error) {
	src, ok := e.node.Directive("delay")
	if !ok {
		return 0, nil
	}
	return ParseDelay(src, func(s string) any { return a.env.Eval.Evaluate(s, e.ctx) })
}

// ParseDelay reads "500" as milliseconds, "1.5s" as a Go duration and
// anything else as an expression yielding milliseconds.
func ParseDelay(src string, eval func(string) any) (time.Duration, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseFloat(src, 64); err == nil {
		return time.Duration(ms * float64(time.Millisecond)), nil
	}
	if d, err := time.ParseDuration(src); err == nil {
		return d, nil
	}
	switch v := eval(src).(type) {
	case float64:
		return time.Duration(v * float64(time.Millisecond)), nil
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d, nil
		}
	}
	return 0, fmt.Errorf("delay %q is not a duration", src)
}

func (a *automation) act(e *edge) {
	if e.released {
		return
	}
	if src, ok := e.node.Directive("run"); ok {
		if _, err := a.env.Eval.Run(src, e.ctx); err != nil {
			a.env.Log.Warnw("automation failed", "run", src, "error", err)
		}
	}
	if src, ok := e.node.Directive("navigate"); ok && a.env.Navigate != nil {
		a.env.Navigate(a.env.text(src, e.ctx))
	}
}
