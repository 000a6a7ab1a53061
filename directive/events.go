package directive

import (
	"fmt"

	"github.com/delaneyj/livedoc/completion"
	"github.com/delaneyj/livedoc/dom"
	"github.com/delaneyj/livedoc/expr"
	"github.com/delaneyj/livedoc/tmpl"
)

// domEvents maps event directive names to the DOM event they listen for.
var domEvents = map[string]string{
	"click":  "click",
	"focus":  "focus",
	"blur":   "blur",
	"change": "change",
	"input":  "input",
	"hover":  "mouseenter",
}

func domEvent(name string) string {
	if ev, ok := domEvents[name]; ok {
		return ev
	}
	return name
}

// listen runs src whenever el receives event. When the node has a completion
// listener the first run finishes an async task on it.
func (env *Env) listen(name string, ctx *expr.Context, el *dom.Element, event, src string, cl *completion.Listener) {
	var done func(any)
	if cl != nil {
		done = cl.AddAsyncTask()
	}
	el.AddEventListener(event, func(ev *dom.Event) {
		local := ctx.Fork("", map[string]any{
			"$event": map[string]any{"type": ev.Type, "value": ev.Target.Value, "checked": ev.Target.Checked},
			"$el":    el.Value,
		})
		v, err := env.Eval.Run(src, local)
		if err != nil {
			env.report(el, name, err)
		}
		if done != nil {
			done(v)
		}
	})
}

type eventHandler struct {
	nop
	env  *Env
	name string
}

func (d *eventHandler) Apply(node *tmpl.Node, ctx *expr.Context, el *dom.Element, cl *completion.Listener) error {
	src, _ := node.Directive(d.name)
	d.env.listen(d.name, ctx, el, domEvent(d.name), src, cl)
	return nil
}

// on handles on:<event> for any DOM event.
type on struct {
	env *Env
}

func (d *on) Apply(node *tmpl.Node, _ *expr.Context, _ *dom.Element, _ *completion.Listener) error {
	return fmt.Errorf("%w, e.g. %son:submit", ErrMissingEvent, d.env.Prefix)
}

func (d *on) HandleSubDirective(_ *tmpl.Node, ctx *expr.Context, el *dom.Element, event, src string, cl *completion.Listener) (bool, error) {
	d.env.listen("on:"+event, ctx, el, domEvent(event), src, cl)
	return true, nil
}
