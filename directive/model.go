package directive

import (
	"fmt"
	"strings"

	"github.com/delaneyj/livedoc/completion"
	"github.com/delaneyj/livedoc/dom"
	"github.com/delaneyj/livedoc/expr"
	"github.com/delaneyj/livedoc/tmpl"
)

// model binds a form control to a state path in both directions.
type model struct {
	nop
	env *Env
}

func (d *model) Apply(node *tmpl.Node, ctx *expr.Context, el *dom.Element, _ *completion.Listener) error {
	path, _ := node.Directive("model")
	path = strings.TrimSpace(path)
	if !expr.IsPath(path) {
		return fmt.Errorf("model needs a state path, got %q", path)
	}
	if !el.IsFormControl() {
		return fmt.Errorf("model on <%s>: not a form control", el.Tag)
	}

	if d.env.Eval.Materialize(path, ctx) && el.InputType() == "checkbox" {
		if err := d.env.Eval.AssignPath(path, false, ctx); err != nil {
			return err
		}
	}
	current := d.env.Eval.Evaluate(path, ctx)
	if coerced, changed := coerce(el, current); changed {
		if err := d.env.Eval.AssignPath(path, coerced, ctx); err != nil {
			return err
		}
		current = coerced
	}
	reflectValue(el, current)

	event := "input"
	switch el.InputType() {
	case "checkbox", "radio":
		event = "change"
	}
	if el.Tag == "select" {
		event = "change"
	}
	el.AddEventListener(event, func(*dom.Event) {
		if err := d.env.Eval.AssignPath(path, readControl(el), ctx); err != nil {
			d.env.report(el, "model", err)
		}
	})
	return nil
}

// coerce converts a bound value to the type its control produces.
func coerce(el *dom.Element, v any) (any, bool) {
	switch el.InputType() {
	case "checkbox":
		if _, ok := v.(bool); !ok {
			return expr.Truthy(v), true
		}
	case "number", "range":
		if _, ok := v.(float64); !ok && v != nil && v != "" {
			return expr.ToNumber(v), true
		}
	case "radio":
	default:
		switch v.(type) {
		case string, nil:
		case float64, bool:
			return expr.ToString(v), true
		}
	}
	return v, false
}

func reflectValue(el *dom.Element, v any) {
	switch el.InputType() {
	case "checkbox":
		el.Checked = expr.Truthy(v)
	case "radio":
		el.Checked = expr.ToString(v) == el.GetAttr("value")
	default:
		el.Value = expr.ToString(v)
	}
}

func readControl(el *dom.Element) any {
	switch el.InputType() {
	case "checkbox":
		return el.Checked
	case "radio":
		return el.GetAttr("value")
	case "number", "range":
		if strings.TrimSpace(el.Value) == "" {
			return nil
		}
		return expr.ToNumber(el.Value)
	}
	return el.Value
}
