package directive

import (
	"strings"

	"github.com/delaneyj/livedoc/completion"
	"github.com/delaneyj/livedoc/dom"
	"github.com/delaneyj/livedoc/expr"
	"github.com/delaneyj/livedoc/tmpl"
)

const PageKey = "$page"

// structural directives are resolved by the renderer before an element
// exists; applying them is a no-op.
type structural struct{ nop }

func (structural) Apply(*tmpl.Node, *expr.Context, *dom.Element, *completion.Listener) error {
	return nil
}

// Creates reports whether the renderer should build node at all under ctx:
// if, unless and page all have to agree.
func (env *Env) Creates(node *tmpl.Node, ctx *expr.Context) bool {
	if src, ok := node.Directive("if"); ok && !env.truthy(src, ctx) {
		return false
	}
	if src, ok := node.Directive("unless"); ok && env.truthy(src, ctx) {
		return false
	}
	if src, ok := node.Directive("page"); ok && !env.OnPage(src, ctx) {
		return false
	}
	return true
}

// OnPage reports whether the current page is one of the comma separated
// pages in src.
func (env *Env) OnPage(src string, ctx *expr.Context) bool {
	current := expr.ToString(env.Store.Get(PageKey))
	for _, p := range strings.Split(src, ",") {
		if env.text(p, ctx) == current {
			return true
		}
	}
	return false
}

type display struct {
	nop
	env  *Env
	name string
	show bool
}

func (d *display) Apply(node *tmpl.Node, ctx *expr.Context, el *dom.Element, _ *completion.Listener) error {
	src, _ := node.Directive(d.name)
	if d.env.truthy(src, ctx) == d.show {
		el.Style.Display = ""
	} else {
		el.Style.Display = "none"
	}
	return nil
}
