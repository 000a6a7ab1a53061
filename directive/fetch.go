package directive

import (
	"github.com/delaneyj/livedoc/completion"
	"github.com/delaneyj/livedoc/dom"
	"github.com/delaneyj/livedoc/expr"
	"github.com/delaneyj/livedoc/fetch"
	"github.com/delaneyj/livedoc/tmpl"
)

// fetchResource loads a URL into state at render, or on an event with fetch:<event>.
type fetchResource struct {
	env *Env
}

func (d *fetchResource) request(node *tmpl.Node, src string, ctx *expr.Context, event string) fetch.Request {
	into, _ := node.Directive("into")
	siblings := map[string]string{}
	for _, name := range []string{"method", "body", "headers", "error"} {
		if v, ok := node.Directive(name); ok {
			siblings[name] = v
		}
	}
	return fetch.Request{URL: src, Into: into, Context: ctx, Event: event, Siblings: siblings}
}

func (d *fetchResource) Apply(node *tmpl.Node, ctx *expr.Context, _ *dom.Element, cl *completion.Listener) error {
	src, _ := node.Directive("fetch")
	p := d.env.Fetch.Request(d.request(node, src, ctx, ""))
	if cl != nil {
		cl.AddTask(p)
	}
	return nil
}

func (d *fetchResource) HandleSubDirective(node *tmpl.Node, ctx *expr.Context, el *dom.Element, event, src string, cl *completion.Listener) (bool, error) {
	var done func(any)
	if cl != nil {
		done = cl.AddAsyncTask()
	}
	el.AddEventListener(domEvent(event), func(*dom.Event) {
		p := d.env.Fetch.Request(d.request(node, src, ctx, event))
		p.Then(func(v any, _ error) {
			if done != nil {
				done(v)
			}
		})
	})
	return true, nil
}
