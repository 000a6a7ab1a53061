package directive

import (
	"github.com/delaneyj/livedoc/expr"
	"github.com/delaneyj/livedoc/tmpl"
)

// Branch picks the child of a switch node to render: the first case whose
// value equals the switch value as a string, else the first default. nil
// means nothing matched.
func (env *Env) Branch(t *tmpl.Template, node *tmpl.Node, ctx *expr.Context) *tmpl.Node {
	src, _ := node.Directive("switch")
	want := expr.ToString(env.value(src, ctx))

	var fallback *tmpl.Node
	for _, child := range t.Children(node) {
		if c, ok := child.Directive("case"); ok {
			if env.text(c, ctx) == want {
				return child
			}
			continue
		}
		if fallback == nil && child.HasDirective("default") {
			fallback = child
		}
	}
	return fallback
}
