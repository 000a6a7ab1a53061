package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/delaneyj/livedoc/app"
	"github.com/delaneyj/livedoc/loop"
	"github.com/delaneyj/livedoc/store"
	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
)

var (
	ww    = []int{1, 10, 100, 1_000}
	hh    = []int{1, 10, 100}
	iters = 100
)

func main() {
	profile := flag.String("cpuprofile", "", "write a cpu profile to this file")
	flag.Parse()

	if *profile != "" {
		f, err := os.Create(*profile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	log.Printf("warming up")
	benchmarkStore(false)
	benchmarkRender(false)

	benchmarkStore(true)
	benchmarkRender(true)
}

func newTable(title string) table.Writer {
	tbl := table.NewWriter()
	tbl.SetTitle(title)
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max", "renders"})
	return tbl
}

func appendCalc(tbl table.Writer, name string, tach *tachymeter.Tachymeter, renders int) {
	calc := tach.Calc()
	tbl.AppendRow(table.Row{
		name,
		calc.Time.Avg,
		calc.Time.Min,
		calc.Time.P75,
		calc.Time.P99,
		calc.Time.Max,
		humanize.Comma(int64(renders)),
	})
}

// benchmarkStore measures writes to w keys with h watchers each, followed by
// the debounced flush.
func benchmarkStore(shouldRender bool) {
	tbl := newTable("Store writes")

	for _, w := range ww {
		for _, h := range hh {
			tach := tachymeter.New(&tachymeter.Config{Size: iters})
			l := loop.NewVirtual()
			s := store.New(l)

			for i := 0; i < w; i++ {
				key := fmt.Sprintf("k%d", i)
				s.Set(key, 0)
				for j := 0; j < h; j++ {
					s.Watch(key, func(v, _ any) {}, nil)
				}
			}
			for i := 0; i < iters; i++ {
				start := time.Now()
				for k := 0; k < w; k++ {
					s.Set(fmt.Sprintf("k%d", k), i+1)
				}
				if err := l.Advance(store.DefaultDebounce); err != nil {
					log.Fatal(err)
				}
				tach.AddTime(time.Since(start))
			}
			appendCalc(tbl, fmt.Sprintf("propagate: %d * %d", w, h), tach, s.RenderCount())
		}
	}

	if shouldRender {
		tbl.Render()
	}
}

// benchmarkRender measures a click that updates a list of w rows, each row
// carrying h bound text nodes.
func benchmarkRender(shouldRender bool) {
	tbl := newTable("Render passes")

	for _, w := range ww {
		for _, h := range hh {
			tach := tachymeter.New(&tachymeter.Config{Size: iters})
			a := app.New(app.DefaultConfig(), app.WithLoop(loop.NewVirtual()))

			rows := make([]any, w)
			for i := range rows {
				rows[i] = map[string]any{"n": float64(i)}
			}
			a.Store().Set("rows", rows)
			a.Store().Set("tick", 0.0)

			var sb strings.Builder
			sb.WriteString(`<button l-click="tick++">+</button><ul><li l-for="row in rows">`)
			for j := 0; j < h; j++ {
				sb.WriteString(`<span>{{row.n + tick}}</span>`)
			}
			sb.WriteString(`</li></ul>`)
			if err := a.Mount(sb.String()); err != nil {
				log.Fatal(err)
			}

			for i := 0; i < iters; i++ {
				start := time.Now()
				a.Document().Body.QuerySelector("button").Click()
				if err := a.Loop().Advance(store.DefaultDebounce); err != nil {
					log.Fatal(err)
				}
				tach.AddTime(time.Since(start))
			}
			appendCalc(tbl, fmt.Sprintf("list: %d rows * %d bindings", w, h), tach, a.Renderer().Passes())
		}
	}

	if shouldRender {
		tbl.Render()
	}
}
