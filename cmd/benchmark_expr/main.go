package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/delaneyj/livedoc/expr"
	"github.com/delaneyj/livedoc/loop"
	"github.com/delaneyj/livedoc/store"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

type benchmarkTestConfig struct {
	name       string // friendly name for the test, should be unique
	src        string // expression evaluated each iteration
	iterations int64
	cacheSize  int // parsed expression cache, 1 forces a reparse whenever src alternates
}

func main() {
	log.Print("Starting expression benchmark, please wait...")
	defer log.Print("Finished expression benchmark")

	perfTestCfgs := []benchmarkTestConfig{
		{name: "literal", src: "42", iterations: 1_000_000, cacheSize: expr.DefaultCacheSize},
		{name: "path", src: "user.profile.name", iterations: 1_000_000, cacheSize: expr.DefaultCacheSize},
		{name: "arithmetic", src: "(count + 1) * 2 - count / 4", iterations: 500_000, cacheSize: expr.DefaultCacheSize},
		{name: "ternary", src: "count > 10 ? 'many' : 'few'", iterations: 500_000, cacheSize: expr.DefaultCacheSize},
		{name: "filter", src: "todos.filter(t => !t.done).length", iterations: 50_000, cacheSize: expr.DefaultCacheSize},
		{name: "map join", src: "todos.map(t => t.title).join(', ')", iterations: 50_000, cacheSize: expr.DefaultCacheSize},
		{name: "assignment", src: "count = count + 1", iterations: 200_000, cacheSize: expr.DefaultCacheSize},
		{name: "uncached", src: "(count + 1) * 2 - count / 4", iterations: 200_000, cacheSize: 1},
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"test", "expression", "nTimes", "time", "evalRate", "cache"})

	testRepeats := 5
	for _, cfg := range perfTestCfgs {
		log.Printf("Running '%s' config", cfg.name)
		e, l := newEvaluator(cfg.cacheSize)

		runOnce := func() {
			for i := int64(0); i < cfg.iterations; i++ {
				src := cfg.src
				if cfg.cacheSize == 1 && i%2 == 1 {
					src = "count"
				}
				if _, err := e.Run(src, nil); err != nil {
					log.Fatal(err)
				}
			}
			if err := l.Flush(); err != nil {
				log.Fatal(err)
			}
		}
		// run once to warm up
		runOnce()

		best := time.Hour
		for i := 0; i < testRepeats; i++ {
			start := time.Now()
			runOnce()
			if d := time.Since(start); d < best {
				best = d
			}
		}

		evalRate := float64(cfg.iterations) / (float64(best) / float64(time.Millisecond))
		table.Append([]string{
			cfg.name,
			cfg.src,
			humanize.Comma(cfg.iterations),
			fmt.Sprint(best),
			humanize.Comma(int64(evalRate)) + "/ms",
			humanize.Comma(int64(cfg.cacheSize)),
		})
	}
	table.Render()
}

func newEvaluator(cacheSize int) (*expr.Evaluator, *loop.Loop) {
	todos := make([]any, 100)
	for i := range todos {
		todos[i] = map[string]any{"title": fmt.Sprintf("todo %d", i), "done": i%3 == 0}
	}
	l := loop.NewVirtual()
	s := store.New(l).Wrap(map[string]any{
		"count": 0.0,
		"user":  map[string]any{"profile": map[string]any{"name": "ann"}},
		"todos": todos,
	})
	return expr.New(s, expr.WithCacheSize(cacheSize)), l
}
