package app_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/delaneyj/livedoc/app"
	"github.com/delaneyj/livedoc/loop"
	"github.com/delaneyj/livedoc/store"
	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newApp(t *testing.T, opts ...app.Option) *app.App {
	t.Helper()
	opts = append([]app.Option{
		app.WithLoop(loop.NewVirtual()),
		app.WithLogger(zaptest.NewLogger(t).Sugar()),
	}, opts...)
	return app.New(app.DefaultConfig(), opts...)
}

func settle(t *testing.T, a *app.App) {
	t.Helper()
	require.NoError(t, a.Loop().Advance(store.DefaultDebounce))
}

func TestCounter(t *testing.T) {
	a := newApp(t)
	require.NoError(t, a.Mount(`
<script type="text/init">let count = 0</script>
<button l-click="count++">+</button><span l-text="count"></span>`))

	body := a.Document().Body
	assert.Equal(t, "0", body.QuerySelector("span").TextContent())

	body.QuerySelector("button").Click()
	body.QuerySelector("button").Click()
	settle(t, a)
	assert.Equal(t, "2", body.QuerySelector("span").TextContent())
	assert.Contains(t, a.HTML(), "<span>2</span>")
}

func TestInitBlockFailureContinues(t *testing.T) {
	a := newApp(t)
	require.NoError(t, a.Mount(`
<script type="text/init">
  a = 1
  b = missing.deep
  c = a + 1
</script>
<p>{{c}}</p>`))
	assert.Equal(t, 1.0, a.Store().Get("a"))
	assert.False(t, a.Store().Has("b"))
	assert.Equal(t, 2.0, a.Store().Get("c"))
	assert.Equal(t, "2", a.Document().Body.QuerySelector("p").TextContent())
}

func TestReservedKeysSeeded(t *testing.T) {
	cfg := app.DefaultConfig()
	cfg.Version = "1.2.3"
	cfg.Locale = "de"
	a := app.New(cfg, app.WithLoop(loop.NewVirtual()))
	require.NoError(t, a.Mount(`<p>{{$version}} {{$locale}} {{$page}}</p>`))

	assert.Equal(t, "1.2.3 de home", a.Document().Body.QuerySelector("p").TextContent())
	assert.Equal(t, map[string]any{}, a.Store().Get("$validation"))
}

func TestRouterHistory(t *testing.T) {
	a := newApp(t)
	require.NoError(t, a.Mount(`
<p id="home" l-page="home">H</p>
<p id="about" l-page="about">A</p>
<button l-click="navigate('about')">go</button>`))
	doc := a.Document()
	r := a.Router()

	doc.Body.QuerySelector("button").Click()
	settle(t, a)
	assert.Equal(t, "about", r.Current())
	assert.Nil(t, doc.GetElementByID("home"))
	assert.NotNil(t, doc.GetElementByID("about"))

	require.True(t, r.Back())
	settle(t, a)
	assert.Equal(t, "home", a.Store().Get("$page"))
	assert.NotNil(t, doc.GetElementByID("home"))
	assert.False(t, r.Back())

	require.True(t, r.Forward())
	assert.Equal(t, "about", r.Current())
	assert.False(t, r.Forward())

	a.Store().Set("$page", "contact")
	assert.Equal(t, []string{"home", "about", "contact"}, r.History())

	r.Back()
	r.Navigate("faq")
	assert.Equal(t, []string{"home", "about", "faq"}, r.History(), "navigating drops forward history")
}

func TestWithFunc(t *testing.T) {
	a := newApp(t, app.WithFunc("shout", func(args ...any) (any, error) {
		return args[0].(string) + "!", nil
	}))
	require.NoError(t, a.Mount(`<p l-text="shout('hi')"></p>`))
	assert.Equal(t, "hi!", a.Document().Body.QuerySelector("p").TextContent())
}

func TestMountURL(t *testing.T) {
	defer gock.Off()
	const host = "http://components.livedoc.test"
	gock.New(host).Get("/card.html").Times(1).Reply(200).BodyString(`<div class="card">{{title}}</div>`)

	client := &http.Client{}
	gock.InterceptClient(client)
	defer gock.RestoreClient(client)

	src := app.NewHTTPSource(client, 4)
	a := newApp(t, app.WithSource(src))
	a.Store().Set("title", "hello")

	require.NoError(t, a.MountURL(context.Background(), host+"/card.html"))
	assert.Equal(t, "hello", a.Document().Body.QuerySelector(".card").TextContent())
	assert.True(t, src.Cached(host+"/card.html"))

	markup, err := src.Load(context.Background(), host+"/card.html")
	require.NoError(t, err, "second load is served from cache")
	assert.Contains(t, markup, "card")
	assert.True(t, gock.IsDone())
}

func TestMountURLError(t *testing.T) {
	defer gock.Off()
	const host = "http://components.livedoc.test"
	gock.New(host).Get("/gone.html").Reply(404)

	client := &http.Client{}
	gock.InterceptClient(client)
	defer gock.RestoreClient(client)

	a := newApp(t, app.WithHTTPClient(client))
	err := a.MountURL(context.Background(), host+"/gone.html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestSourceFunc(t *testing.T) {
	src := app.SourceFunc(func(_ context.Context, url string) (string, error) {
		return "<p>" + url + "</p>", nil
	})
	a := newApp(t, app.WithSource(src))
	require.NoError(t, a.MountURL(context.Background(), "inline"))
	assert.Equal(t, "<p>inline</p>", a.HTML())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "livedoc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
prefix: x-
debounce: 25ms
baseURL: http://api.example.test
logLevel: debug
`), 0o600))

	cfg, err := app.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "x-", cfg.Prefix)
	assert.Equal(t, 25*time.Millisecond, cfg.Debounce)
	assert.Equal(t, "http://api.example.test", cfg.BaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, app.DefaultConfig().SettleDelay, cfg.SettleDelay)

	_, err = app.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCustomPrefix(t *testing.T) {
	cfg := app.DefaultConfig()
	cfg.Prefix = "x-"
	a := app.New(cfg, app.WithLoop(loop.NewVirtual()))
	require.NoError(t, a.Mount(`<p x-text="'ok'"></p><p l-text="'ignored'">raw</p>`))
	ps := a.Document().Body.QuerySelectorAll("p")
	require.Len(t, ps, 2)
	assert.Equal(t, "ok", ps[0].TextContent())
	assert.Equal(t, "raw", ps[1].TextContent())
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"console", "json", ""} {
		log, err := app.NewLogger("debug", format)
		require.NoError(t, err, format)
		assert.True(t, log.Core().Enabled(-1))
	}

	_, err := app.NewLogger("loud", "console")
	assert.Error(t, err)
	_, err = app.NewLogger("info", "xml")
	assert.Error(t, err)
}
