// Package directive maps directive attribute names to the behaviour they
// install on a rendered element.
//
// A Registry is an ordered table of directives. Dispatch applies a node's
// directives in registry order and then offers each event-scoped
// sub-directive to the directive that owns its name. Failures never escape:
// they come back as inline banners for the renderer to place after the
// element.
package directive

import (
	"errors"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/delaneyj/livedoc/completion"
	"github.com/delaneyj/livedoc/dom"
	"github.com/delaneyj/livedoc/expr"
	"github.com/delaneyj/livedoc/fetch"
	"github.com/delaneyj/livedoc/loop"
	"github.com/delaneyj/livedoc/store"
	"github.com/delaneyj/livedoc/tmpl"
	"go.uber.org/zap"
)

var (
	ErrUnknownDirective = errors.New("unknown directive")
	ErrMissingEvent     = errors.New("directive needs an event: name:event")
)

const (
	BannerClass   = "livedoc-error"
	ArtifactClass = "livedoc-unknown-directive"
)

// Directive is the behaviour behind one directive name.
type Directive interface {
	Apply(node *tmpl.Node, ctx *expr.Context, el *dom.Element, cl *completion.Listener) error
	HandleSubDirective(node *tmpl.Node, ctx *expr.Context, el *dom.Element, event, src string, cl *completion.Listener) (bool, error)
}

// Env is the application context every directive works against.
type Env struct {
	Loop  *loop.Loop
	Store *store.Store
	Eval  *expr.Evaluator
	Fetch *fetch.Manager
	Doc   *dom.Document
	Log   *zap.SugaredLogger

	Prefix   string
	Navigate func(page string)

	pass int
}

// value evaluates src, creating a missing bare path first.
func (env *Env) value(src string, ctx *expr.Context) any {
	env.Eval.Materialize(src, ctx)
	return env.Eval.Evaluate(src, ctx)
}

func (env *Env) truthy(src string, ctx *expr.Context) bool {
	return expr.Truthy(env.value(src, ctx))
}

// text resolves src as an expression when it parses and resolves, and as
// literal text otherwise.
func (env *Env) text(src string, ctx *expr.Context) string {
	src = strings.TrimSpace(src)
	if expr.HasInterpolation(src) {
		return env.Eval.Interpolate(src, ctx)
	}
	v, err := env.Eval.Run(src, ctx)
	if err != nil {
		return src
	}
	return expr.ToString(v)
}

// report logs a failure raised after render and shows it next to el.
func (env *Env) report(el *dom.Element, name string, err error) {
	env.Log.Warnw("directive failed", "directive", env.Prefix+name, "error", err)
	el.InsertAfter(Banner(env.Doc, env.Prefix+name, err))
}

type entry struct {
	name  string
	usage string
	d     Directive
}

type Registry struct {
	env      *Env
	entries  []entry
	index    map[string]int
	excluded mapset.Set[string]
}

// composite attributes read by the directive they accompany
var compositeAttrs = []string{
	"method", "body", "headers", "into", "error", "delay", "run", "navigate", "case", "default", "key",
}

func NewRegistry(env *Env) *Registry {
	if env.Log == nil {
		env.Log = zap.NewNop().Sugar()
	}
	if env.Prefix == "" {
		env.Prefix = tmpl.DefaultPrefix
	}
	return &Registry{
		env:      env,
		index:    map[string]int{},
		excluded: mapset.NewThreadUnsafeSet(compositeAttrs...),
	}
}

// Register appends d under name. Registering a name twice panics.
func (r *Registry) Register(name, usage string, d Directive) {
	if _, ok := r.index[name]; ok {
		panic(fmt.Sprintf("directive %q registered twice", name))
	}
	if r.excluded.Contains(name) {
		panic(fmt.Sprintf("directive %q is a composite attribute", name))
	}
	r.index[name] = len(r.entries)
	r.entries = append(r.entries, entry{name: name, usage: usage, d: d})
}

func (r *Registry) Lookup(name string) (Directive, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.entries[i].d, true
}

// Names lists directives in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.name
	}
	return names
}

func (r *Registry) Usage(name string) string {
	if i, ok := r.index[name]; ok {
		return r.entries[i].usage
	}
	return ""
}

type sweeper interface {
	sweep(pass int)
}

// BeginPass opens a render pass. State that directives keep per rendered
// element is marked as it is applied during the pass.
func (r *Registry) BeginPass() {
	r.env.pass++
}

// EndPass releases the per-element state of everything the pass did not
// render, such as watch subscriptions of removed elements and iterations.
func (r *Registry) EndPass() {
	for _, e := range r.entries {
		if s, ok := e.d.(sweeper); ok {
			s.sweep(r.env.pass)
		}
	}
}

// Composite lists the attribute names that only qualify another directive.
func (r *Registry) Composite() []string {
	return append([]string(nil), compositeAttrs...)
}

func (r *Registry) Known(name string) bool {
	_, ok := r.index[name]
	return ok || r.excluded.Contains(name)
}

// Validate returns the first directive on node the registry does not know.
func (r *Registry) Validate(node *tmpl.Node) (string, bool) {
	for _, d := range node.Directives {
		if !r.Known(d.Name) {
			return d.Name, false
		}
	}
	for _, s := range node.SubDirectives {
		if _, ok := r.index[s.Name]; !ok {
			return s.Name + ":" + s.Event, false
		}
	}
	return "", true
}

// Dispatch applies node's directives to el. The returned banners describe
// directives that failed and belong directly after el.
func (r *Registry) Dispatch(node *tmpl.Node, ctx *expr.Context, el *dom.Element, cl *completion.Listener) []*dom.Element {
	var banners []*dom.Element
	for _, e := range r.entries {
		if !node.HasDirective(e.name) {
			continue
		}
		if err := r.apply(e, node, ctx, el, cl); err != nil {
			r.env.Log.Warnw("directive failed", "directive", r.env.Prefix+e.name, "node", node.ID, "error", err)
			banners = append(banners, Banner(r.env.Doc, r.env.Prefix+e.name, err))
		}
	}

	for _, s := range node.SubDirectives {
		i, ok := r.index[s.Name]
		if !ok {
			continue
		}
		e := r.entries[i]
		handled, err := r.handle(e, node, ctx, el, s, cl)
		if err != nil {
			r.env.Log.Warnw("sub-directive failed", "directive", r.env.Prefix+s.Name, "event", s.Event, "error", err)
			banners = append(banners, Banner(r.env.Doc, r.env.Prefix+s.Name+":"+s.Event, err))
			continue
		}
		if !handled {
			r.env.Log.Warnw("unhandled sub-directive", "directive", r.env.Prefix+s.Name, "event", s.Event)
		}
	}
	return banners
}

func (r *Registry) apply(e entry, node *tmpl.Node, ctx *expr.Context, el *dom.Element, cl *completion.Listener) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return e.d.Apply(node, ctx, el, cl)
}

func (r *Registry) handle(e entry, node *tmpl.Node, ctx *expr.Context, el *dom.Element, s tmpl.SubDirective, cl *completion.Listener) (handled bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			handled, err = true, fmt.Errorf("panic: %v", rec)
		}
	}()
	return e.d.HandleSubDirective(node, ctx, el, s.Event, s.Expr, cl)
}

// Banner is the inline error shown after an element whose directive failed.
func Banner(doc *dom.Document, name string, err error) *dom.Element {
	el := doc.CreateElement("div")
	el.SetAttr("class", BannerClass)
	el.SetAttr("role", "alert")
	el.SetAttr("data-directive", name)
	el.SetText(fmt.Sprintf("%s: %v", name, err))
	return el
}

// Artifact replaces the subtree of a node carrying an unknown directive.
func (r *Registry) Artifact(name string) *dom.Element {
	doc := r.env.Doc
	el := doc.CreateElement("div")
	el.SetAttr("class", BannerClass+" "+ArtifactClass)
	el.SetAttr("role", "alert")
	el.SetAttr("data-directive", r.env.Prefix+name)

	title := doc.CreateElement("strong")
	title.SetText(fmt.Sprintf("%s %q", ErrUnknownDirective, r.env.Prefix+name))
	help := doc.CreateElement("p")
	msg := "Known directives: " + r.env.Prefix + strings.Join(r.Names(), ", "+r.env.Prefix) + "."
	if guess := r.suggest(name); guess != "" {
		msg = fmt.Sprintf("Did you mean %s%s? %s", r.env.Prefix, guess, msg)
	}
	help.SetText(msg)
	el.AppendChild(title, help)
	return el
}

// suggest returns the registered name closest to name, if any is close.
func (r *Registry) suggest(name string) string {
	base, _, _ := strings.Cut(name, ":")
	best, bestDist := "", 3
	for _, e := range r.entries {
		if d := distance(base, e.name); d < bestDist {
			best, bestDist = e.name, d
		}
	}
	return best
}

func distance(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// nop is embedded by directives that have no sub-directive form.
type nop struct{}

func (nop) HandleSubDirective(*tmpl.Node, *expr.Context, *dom.Element, string, string, *completion.Listener) (bool, error) {
	return false, nil
}
