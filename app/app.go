// Package app wires the runtime together: one loop, one store, one
// evaluator, one fetch manager, one directive registry and one renderer per
// application. There is no global instance.
package app

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/delaneyj/livedoc/directive"
	"github.com/delaneyj/livedoc/dom"
	"github.com/delaneyj/livedoc/expr"
	"github.com/delaneyj/livedoc/fetch"
	"github.com/delaneyj/livedoc/loop"
	"github.com/delaneyj/livedoc/render"
	"github.com/delaneyj/livedoc/store"
	"github.com/delaneyj/livedoc/tmpl"
	"go.uber.org/zap"
)

const (
	VersionKey = "$version"
	LocaleKey  = "$locale"
)

type Option func(*App)

func WithLoop(l *loop.Loop) Option {
	return func(a *App) {
		a.loop = l
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(a *App) {
		a.log = log
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(a *App) {
		a.client = c
	}
}

// WithFunc exposes a host function to every expression.
func WithFunc(name string, fn expr.Func) Option {
	return func(a *App) {
		a.funcs[name] = fn
	}
}

func WithSource(src ComponentSource) Option {
	return func(a *App) {
		a.source = src
	}
}

type App struct {
	cfg    Config
	loop   *loop.Loop
	store  *store.Store
	eval   *expr.Evaluator
	fetch  *fetch.Manager
	doc    *dom.Document
	env    *directive.Env
	reg    *directive.Registry
	render *render.Renderer
	router *Router
	source ComponentSource
	client *http.Client
	funcs  map[string]expr.Func
	log    *zap.SugaredLogger
}

func New(cfg Config, opts ...Option) *App {
	a := &App{
		cfg:   cfg,
		funcs: map[string]expr.Func{},
		log:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.loop == nil {
		a.loop = loop.New(loop.WithLogger(a.log.Named("loop")))
	}
	if a.client == nil {
		a.client = &http.Client{}
	}
	if a.source == nil {
		a.source = NewHTTPSource(a.client, cfg.ComponentCacheSize)
	}

	a.store = store.New(a.loop,
		store.WithDebounce(cfg.Debounce),
		store.WithLogger(a.log.Named("store")),
	)

	evalOpts := []expr.Option{
		expr.WithLogger(a.log.Named("expr")),
		expr.WithCacheSize(cfg.ExprCacheSize),
	}
	for name, fn := range a.funcs {
		evalOpts = append(evalOpts, expr.WithFunc(name, fn))
	}
	a.eval = expr.New(a.store, evalOpts...)

	fetchOpts := []fetch.Option{
		fetch.WithClient(a.client),
		fetch.WithTimeout(cfg.RequestTimeout),
		fetch.WithLogger(a.log.Named("fetch")),
	}
	if cfg.BaseURL != "" {
		fetchOpts = append(fetchOpts, fetch.WithBaseURL(cfg.BaseURL))
	}
	a.fetch = fetch.New(a.loop, a.store, a.eval, fetchOpts...)

	a.doc = dom.NewDocument()
	a.router = newRouter(a.store, cfg.StartPage)
	a.env = &directive.Env{
		Loop:     a.loop,
		Store:    a.store,
		Eval:     a.eval,
		Fetch:    a.fetch,
		Doc:      a.doc,
		Log:      a.log.Named("directive"),
		Prefix:   cfg.Prefix,
		Navigate: a.router.Navigate,
	}
	a.reg = directive.Builtins(a.env)
	a.render = render.New(a.env, a.reg, a.doc.Body,
		render.WithSettleDelay(cfg.SettleDelay),
		render.WithLogger(a.log.Named("render")),
	)
	a.store.OnFlush(func() {
		if err := a.render.Render(); err != nil {
			a.log.Warnw("render failed", "error", err)
		}
	})

	a.eval.Register("navigate", func(args ...any) (any, error) {
		if len(args) > 0 {
			a.router.Navigate(expr.ToString(args[0]))
		}
		return nil, nil
	})
	a.eval.Register("back", func(...any) (any, error) {
		return a.router.Back(), nil
	})
	a.eval.Register("forward", func(...any) (any, error) {
		return a.router.Forward(), nil
	})
	return a
}

var declaration = regexp.MustCompile(`(^|[;\n])\s*(?:let|const|var)\s+`)

// Mount parses markup, seeds the reserved keys, runs the init blocks and
// performs the first render.
func (a *App) Mount(markup string) error {
	t, err := tmpl.Parse(markup, a.cfg.Prefix)
	if err != nil {
		return fmt.Errorf("parsing document: %w", err)
	}

	a.seed(directive.ValidationKey, map[string]any{})
	a.seed(directive.PageKey, a.router.Current())
	a.seed(VersionKey, a.cfg.Version)
	a.seed(LocaleKey, a.cfg.Locale)

	for i, block := range t.InitBlocks {
		a.runInit(i, block)
	}

	a.render.SetTemplate(t)
	return a.render.Render()
}

func (a *App) seed(key string, v any) {
	if !a.store.Has(key) {
		a.store.SetInternal(key, v)
	}
}

func (a *App) runInit(block int, src string) {
	src = declaration.ReplaceAllString(src, "$1")
	for _, stmt := range expr.SplitStatements(src) {
		if _, err := a.eval.Run(stmt, nil); err != nil {
			a.log.Warnw("init statement failed", "block", block, "statement", stmt, "error", err)
		}
	}
}

// MountURL loads markup through the component source and mounts it.
func (a *App) MountURL(ctx context.Context, url string) error {
	markup, err := a.source.Load(ctx, url)
	if err != nil {
		return err
	}
	return a.Mount(markup)
}

// Run drives a wall-clock loop until ctx is done.
func (a *App) Run(ctx context.Context) error {
	return a.loop.Run(ctx)
}

func (a *App) HTML() string {
	return dom.InnerHTML(a.doc.Body)
}

func (a *App) Config() Config { return a.cfg }
func (a *App) Loop() *loop.Loop { return a.loop }
func (a *App) Store() *store.Store { return a.store }
func (a *App) Eval() *expr.Evaluator { return a.eval }
func (a *App) Fetch() *fetch.Manager { return a.fetch }
func (a *App) Document() *dom.Document { return a.doc }
func (a *App) Registry() *directive.Registry { return a.reg }
func (a *App) Renderer() *render.Renderer { return a.render }
func (a *App) Router() *Router { return a.router }
func (a *App) Source() ComponentSource { return a.source }
