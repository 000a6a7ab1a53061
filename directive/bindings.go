package directive

import (
	"github.com/delaneyj/livedoc/completion"
	"github.com/delaneyj/livedoc/dom"
	"github.com/delaneyj/livedoc/expr"
	"github.com/delaneyj/livedoc/tmpl"
)

type text struct {
	nop
	env *Env
}

func (d *text) Apply(node *tmpl.Node, ctx *expr.Context, el *dom.Element, _ *completion.Listener) error {
	src, _ := node.Directive("text")
	el.SetText(expr.ToString(d.env.value(src, ctx)))
	return nil
}

type rawHTML struct {
	nop
	env *Env
}

func (d *rawHTML) Apply(node *tmpl.Node, ctx *expr.Context, el *dom.Element, _ *completion.Listener) error {
	src, _ := node.Directive("html")
	el.ReplaceChildren(d.env.Doc.CreateRaw(expr.ToString(d.env.value(src, ctx))))
	return nil
}

// bind sets an attribute from an expression: bind:href="url". false and
// null remove the attribute, true sets it empty.
type bind struct {
	env *Env
}

func (d *bind) Apply(*tmpl.Node, *expr.Context, *dom.Element, *completion.Listener) error {
	return ErrMissingEvent
}

func (d *bind) HandleSubDirective(_ *tmpl.Node, ctx *expr.Context, el *dom.Element, attr, src string, _ *completion.Listener) (bool, error) {
	switch v := d.env.Eval.Evaluate(src, ctx).(type) {
	case nil:
		el.RemoveAttr(attr)
	case bool:
		if v {
			el.SetAttr(attr, "")
		} else {
			el.RemoveAttr(attr)
		}
	default:
		el.SetAttr(attr, expr.ToString(v))
		if attr == "value" {
			el.Value = expr.ToString(v)
		}
	}
	return true, nil
}

// class toggles one class: class:done="todo.done".
type class struct {
	env *Env
}

func (d *class) Apply(*tmpl.Node, *expr.Context, *dom.Element, *completion.Listener) error {
	return ErrMissingEvent
}

func (d *class) HandleSubDirective(_ *tmpl.Node, ctx *expr.Context, el *dom.Element, name, src string, _ *completion.Listener) (bool, error) {
	el.ToggleClass(name, d.env.truthy(src, ctx))
	return true, nil
}

// followUp queues a then or finally expression on the node's listener.
type followUp struct {
	nop
	name string
}

func (d *followUp) Apply(node *tmpl.Node, _ *expr.Context, _ *dom.Element, cl *completion.Listener) error {
	if cl == nil {
		return nil
	}
	src, _ := node.Directive(d.name)
	if d.name == "finally" {
		cl.Finally(src)
	} else {
		cl.Then(src)
	}
	return nil
}
