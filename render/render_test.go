package render_test

import (
	"testing"

	"github.com/delaneyj/livedoc/completion"
	"github.com/delaneyj/livedoc/directive"
	"github.com/delaneyj/livedoc/dom"
	"github.com/delaneyj/livedoc/expr"
	"github.com/delaneyj/livedoc/fetch"
	"github.com/delaneyj/livedoc/loop"
	"github.com/delaneyj/livedoc/render"
	"github.com/delaneyj/livedoc/store"
	"github.com/delaneyj/livedoc/tmpl"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type page struct {
	loop  *loop.Loop
	store *store.Store
	env   *directive.Env
	reg   *directive.Registry
	r     *render.Renderer
	doc   *dom.Document
}

func mount(t *testing.T, markup string, state map[string]any) *page {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()
	l := loop.NewVirtual()
	s := store.New(l).Wrap(state)
	e := expr.New(s)
	doc := dom.NewDocument()
	env := &directive.Env{Loop: l, Store: s, Eval: e, Fetch: fetch.New(l, s, e), Doc: doc, Log: log}
	reg := directive.Builtins(env)
	r := render.New(env, reg, doc.Body, render.WithLogger(log))

	tp, err := tmpl.Parse(markup, "")
	require.NoError(t, err)
	r.SetTemplate(tp)
	s.OnFlush(func() { require.NoError(t, r.Render()) })
	require.NoError(t, r.Render())
	return &page{loop: l, store: s, env: env, reg: reg, r: r, doc: doc}
}

func (p *page) settle(t *testing.T) {
	t.Helper()
	require.NoError(t, p.loop.Advance(store.DefaultDebounce))
}

func TestClickCounterScenario(t *testing.T) {
	p := mount(t, `<button l-click="count++">+</button><span l-text="count"></span>`, map[string]any{"count": 0.0})
	span := p.doc.Body.QuerySelector("span")
	assert.Equal(t, "0", span.TextContent())

	p.doc.Body.QuerySelector("button").Click()
	assert.Equal(t, 1.0, p.store.Get("count"))
	assert.Equal(t, "0", p.doc.Body.QuerySelector("span").TextContent(), "render is debounced")

	p.settle(t)
	assert.Equal(t, "1", p.doc.Body.QuerySelector("span").TextContent())
	assert.Equal(t, 2, p.r.Passes())
}

func TestLoopLeavesTemplateUntouched(t *testing.T) {
	const markup = `<ul><li l-for="i, todo in todos" l-class:done="todo.done" l-text="i + ': ' + todo.title"></li></ul>`
	p := mount(t, markup, map[string]any{"todos": []any{
		map[string]any{"title": "milk", "done": false},
		map[string]any{"title": "eggs", "done": true},
	}})
	items := p.doc.Body.QuerySelectorAll("li")
	require.Len(t, items, 2)
	assert.Equal(t, "0: milk", items[0].TextContent())
	assert.True(t, items[1].HasClass("done"))

	_, err := p.env.Eval.Run("todos.push({title: 'jam', done: false})", nil)
	require.NoError(t, err)
	p.settle(t)
	assert.Len(t, p.doc.Body.QuerySelectorAll("li"), 3)

	pristine, err := tmpl.Parse(markup, "")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(pristine, p.r.Template()))
}

func TestConditionalsAndSwitch(t *testing.T) {
	p := mount(t, `
<p id="a" l-if="open">open</p>
<p id="b" l-unless="open">closed</p>
<p id="c" l-page="home, about">pages</p>
<div id="d" l-switch="mode"><span l-case="edit">E</span><span l-default>V</span></div>
<div id="e" l-switch="mode"><span l-case="x">X</span></div>`,
		map[string]any{"open": false, "$page": "home", "mode": "edit"})

	assert.Nil(t, p.doc.GetElementByID("a"))
	assert.NotNil(t, p.doc.GetElementByID("b"))
	assert.NotNil(t, p.doc.GetElementByID("c"))
	assert.Equal(t, "E", p.doc.GetElementByID("d").TextContent())
	assert.Equal(t, dom.CommentNode, p.doc.GetElementByID("e").Children[0].Kind)

	p.store.Set("open", true)
	p.store.Set("$page", "contact")
	p.store.Set("mode", "view")
	p.settle(t)
	assert.NotNil(t, p.doc.GetElementByID("a"))
	assert.Nil(t, p.doc.GetElementByID("b"))
	assert.Nil(t, p.doc.GetElementByID("c"))
	assert.Equal(t, "V", p.doc.GetElementByID("d").TextContent())
}

func TestInterpolatedTextAndAttributes(t *testing.T) {
	p := mount(t, `<a href="/users/{id}" title="{{name}}">Hi {{name}}, [{count + 1}] new</a>`,
		map[string]any{"id": 5.0, "name": "ann", "count": 1.0})
	a := p.doc.Body.QuerySelector("a")
	assert.Equal(t, "/users/5", a.GetAttr("href"))
	assert.Equal(t, "ann", a.GetAttr("title"))
	assert.Equal(t, "Hi ann, 2 new", a.TextContent())
}

func TestUnknownDirectiveReplacesSubtree(t *testing.T) {
	p := mount(t, `<section><p l-shwo="x">hidden</p></section><p id="ok">fine</p>`, nil)
	section := p.doc.Body.QuerySelector("section")
	require.Len(t, section.Children, 1)
	assert.True(t, section.Children[0].HasClass(directive.ArtifactClass))
	assert.NotContains(t, section.TextContent(), "hidden")
	assert.NotNil(t, p.doc.GetElementByID("ok"))
}

type reenter struct {
	r *render.Renderer
}

func (d *reenter) Apply(*tmpl.Node, *expr.Context, *dom.Element, *completion.Listener) error {
	return d.r.Render()
}

func (d *reenter) HandleSubDirective(*tmpl.Node, *expr.Context, *dom.Element, string, string, *completion.Listener) (bool, error) {
	return false, nil
}

func TestReentrantRenderIsDropped(t *testing.T) {
	p := mount(t, `<p>static</p>`, nil)
	d := &reenter{r: p.r}
	p.reg.Register("reenter", "test only", d)

	tp, err := tmpl.Parse(`<p l-reenter>x</p>`, "")
	require.NoError(t, err)
	p.r.SetTemplate(tp)
	require.NoError(t, p.r.Render())
	assert.Equal(t, 2, p.r.Passes())
	assert.Equal(t, 1, p.r.Dropped())
}

func TestFocusAndSelectionSurviveRender(t *testing.T) {
	p := mount(t, `<input id="q" l-model="query"><div><input l-model="note"></div><p>{{query}}</p>`, nil)

	q := p.doc.GetElementByID("q")
	q.Focus()
	q.Input("hel")
	q.SelectionStart = 1
	p.settle(t)

	fresh := p.doc.GetElementByID("q")
	assert.NotSame(t, q, fresh)
	assert.Same(t, fresh, p.doc.Active)
	assert.Equal(t, "hel", fresh.Value)
	assert.Equal(t, 1, fresh.SelectionStart)
	assert.Equal(t, 3, fresh.SelectionEnd)
	assert.Equal(t, "hel", p.doc.Body.QuerySelector("p").TextContent())

	note := p.doc.Body.QuerySelector("div").Children[0]
	note.Focus()
	note.Input("x")
	p.settle(t)
	assert.Same(t, p.doc.Body.QuerySelector("div").Children[0], p.doc.Active)
}

func TestScrollSurvivesRender(t *testing.T) {
	p := mount(t, `<div id="log"><p l-for="line in lines">{{line}}</p></div>`, map[string]any{"lines": []any{"a"}})
	p.doc.GetElementByID("log").ScrollTop = 120

	p.store.Set("lines", []any{"a", "b"})
	p.settle(t)
	assert.Equal(t, 120, p.doc.GetElementByID("log").ScrollTop)
}

func TestThenRunsAfterRender(t *testing.T) {
	p := mount(t, `<div l-then="ready = true" l-finally="settled = true">x</div>`, map[string]any{"ready": false, "settled": false})
	assert.Equal(t, true, p.store.Get("ready"))
	assert.Equal(t, false, p.store.Get("settled"))

	require.NoError(t, p.loop.Advance(completion.DefaultSettleDelay))
	assert.Equal(t, true, p.store.Get("settled"))
}

func TestDirectiveFailureShowsBannerAfterElement(t *testing.T) {
	p := mount(t, `<ul><li l-for="x of 3">{{x}}</li></ul><div l-for="nope">y</div>`, nil)
	assert.Len(t, p.doc.Body.QuerySelectorAll("li"), 3)
	banner := p.doc.Body.QuerySelector("." + directive.BannerClass)
	require.NotNil(t, banner)
	assert.Equal(t, "l-for", banner.GetAttr("data-directive"))
}

func TestRenderWithoutTemplate(t *testing.T) {
	r := render.New(&directive.Env{Doc: dom.NewDocument()}, nil, nil)
	assert.ErrorIs(t, r.Render(), render.ErrNoTemplate)
}

func TestWatchUnderHiddenConditionalIsReleased(t *testing.T) {
	p := mount(t, `<div l-if="visible"><p l-watch="flag" l-run="hits++">w</p></div>`,
		map[string]any{"visible": true, "flag": false, "hits": 0.0})
	assert.Equal(t, 1, p.store.WatcherCount("flag"))

	p.store.Set("visible", false)
	p.settle(t)
	assert.Nil(t, p.doc.Body.QuerySelector("p"))
	assert.Zero(t, p.store.WatcherCount("flag"))

	p.store.Set("flag", true)
	p.settle(t)
	assert.Equal(t, 0.0, p.store.Get("hits"))

	p.store.Set("visible", true)
	p.settle(t)
	assert.Equal(t, 1, p.store.WatcherCount("flag"))
	assert.Equal(t, 1.0, p.store.Get("hits"), "a fresh element starts from false")
}

func TestKeyedLoopKeepsOneWatchPerRenderedRow(t *testing.T) {
	p := mount(t, `<ul><li l-for="row in rows" l-key="row.id" l-watch="flag" l-run="hits++">{{row.id}}</li></ul>`,
		map[string]any{"rows": []any{}, "flag": false, "hits": 0.0})

	for i := 0; i < 50; i++ {
		p.store.Set("rows", []any{map[string]any{"id": float64(i)}})
		p.settle(t)
	}
	require.Len(t, p.doc.Body.QuerySelectorAll("li"), 1)
	assert.Equal(t, 1, p.store.WatcherCount("flag"))

	p.store.Set("flag", true)
	p.settle(t)
	assert.Equal(t, 1.0, p.store.Get("hits"))
}

func TestHugeNumericLoopShowsBanner(t *testing.T) {
	p := mount(t, `<ul><li l-for="i in 1e12">{{i}}</li></ul>`, nil)
	assert.Empty(t, p.doc.Body.QuerySelectorAll("li"))
	banner := p.doc.Body.QuerySelector("." + directive.BannerClass)
	require.NotNil(t, banner)
	assert.Contains(t, banner.TextContent(), "loop count")
}
