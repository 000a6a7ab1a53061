// Package render rebuilds the document from the template arena.
//
// Every pass recreates the mounted subtree from scratch: conditionals decide
// whether an element exists, loops fork the evaluation context per item, and
// the directive registry wires behaviour onto each new element. Focus, text
// selection and scroll offsets are carried across the replacement.
package render

import (
	"errors"
	"time"

	"github.com/delaneyj/livedoc/completion"
	"github.com/delaneyj/livedoc/directive"
	"github.com/delaneyj/livedoc/dom"
	"github.com/delaneyj/livedoc/expr"
	"github.com/delaneyj/livedoc/tmpl"
	"go.uber.org/zap"
)

var ErrNoTemplate = errors.New("render: no template set")

type Option func(*Renderer)

func WithSettleDelay(d time.Duration) Option {
	return func(r *Renderer) {
		r.settle = d
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(r *Renderer) {
		r.log = log
	}
}

type Renderer struct {
	env   *directive.Env
	reg   *directive.Registry
	mount *dom.Element
	tmpl  *tmpl.Template

	settle    time.Duration
	rendering bool
	passes    int
	dropped   int

	log *zap.SugaredLogger
}

func New(env *directive.Env, reg *directive.Registry, mount *dom.Element, opts ...Option) *Renderer {
	r := &Renderer{
		env:    env,
		reg:    reg,
		mount:  mount,
		settle: completion.DefaultSettleDelay,
		log:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) SetTemplate(t *tmpl.Template) {
	r.tmpl = t
}

func (r *Renderer) Template() *tmpl.Template {
	return r.tmpl
}

// Passes counts completed renders; Dropped counts re-entrant calls ignored.
func (r *Renderer) Passes() int  { return r.passes }
func (r *Renderer) Dropped() int { return r.dropped }

// Render replaces the mounted subtree. A call made while a render is running
// is dropped: the write that caused it has already scheduled the next pass.
func (r *Renderer) Render() error {
	if r.tmpl == nil {
		return ErrNoTemplate
	}
	if r.rendering {
		r.dropped++
		r.log.Debugw("render in progress, dropping request")
		return nil
	}
	r.rendering = true
	defer func() { r.rendering = false }()

	start := time.Now()
	r.reg.BeginPass()
	snap := r.capture()
	root := r.tmpl.RootNode()
	var nodes []*dom.Element
	for _, child := range r.tmpl.Children(root) {
		nodes = append(nodes, r.build(child, nil)...)
	}
	r.mount.ReplaceChildren(nodes...)
	r.reg.EndPass()
	r.restore(snap)
	r.passes++

	r.log.Debugw("rendered", "pass", r.passes, "nodes", len(nodes), "took", time.Since(start))
	return nil
}

func (r *Renderer) build(node *tmpl.Node, ctx *expr.Context) []*dom.Element {
	doc := r.env.Doc
	switch node.Kind {
	case tmpl.TextNode:
		s := node.Text
		if expr.HasInterpolation(s) {
			s = r.env.Eval.Interpolate(s, ctx)
		}
		return []*dom.Element{doc.CreateText(s)}
	case tmpl.RawNode:
		return []*dom.Element{doc.CreateRaw(node.Text)}
	}

	if name, ok := r.reg.Validate(node); !ok {
		r.log.Errorw("unknown directive", "directive", r.env.Prefix+name, "tag", node.Tag)
		return []*dom.Element{r.reg.Artifact(name)}
	}

	if !node.HasDirective("for") {
		return r.element(node, ctx)
	}
	its, err := r.env.Iterations(node, ctx)
	if err != nil {
		r.log.Warnw("iteration failed", "node", node.ID, "error", err)
		return []*dom.Element{directive.Banner(doc, r.env.Prefix+"for", err)}
	}
	var out []*dom.Element
	for _, it := range its {
		out = append(out, r.element(node, it.Context)...)
	}
	return out
}

// element builds node under ctx: the element itself followed by any error
// banners its directives produced. Suppressed nodes yield nothing.
func (r *Renderer) element(node *tmpl.Node, ctx *expr.Context) []*dom.Element {
	if !r.env.Creates(node, ctx) {
		return nil
	}
	doc := r.env.Doc
	el := doc.CreateElement(node.Tag)
	for _, a := range node.Attrs {
		v := a.Value
		if expr.HasInterpolation(v) {
			v = r.env.Eval.Interpolate(v, ctx)
		}
		el.SetAttr(a.Name, v)
	}

	var cl *completion.Listener
	if node.HasDirective("then") || node.HasDirective("finally") {
		cl = completion.New(r.env.Loop, r.followUp(ctx),
			completion.WithSettleDelay(r.settle),
			completion.WithLogger(r.log),
		)
	}

	if node.HasDirective("switch") {
		if branch := r.env.Branch(r.tmpl, node, ctx); branch != nil {
			el.AppendChild(r.build(branch, ctx)...)
		} else {
			el.AppendChild(doc.CreateComment("switch: no match"))
		}
	} else {
		for _, child := range r.tmpl.Children(node) {
			el.AppendChild(r.build(child, ctx)...)
		}
	}

	banners := r.reg.Dispatch(node, ctx, el, cl)
	if cl != nil {
		cl.MarkSyncDone()
	}
	return append([]*dom.Element{el}, banners...)
}

func (r *Renderer) followUp(ctx *expr.Context) completion.Exec {
	return func(src string, last any) {
		local := ctx.Fork("", map[string]any{"$result": last})
		if _, err := r.env.Eval.Run(src, local); err != nil {
			r.log.Warnw("follow-up failed", "expr", src, "error", err)
		}
	}
}
