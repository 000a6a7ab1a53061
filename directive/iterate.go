package directive

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/delaneyj/livedoc/expr"
	"github.com/delaneyj/livedoc/store"
	"github.com/delaneyj/livedoc/tmpl"
)

// ForClause is a parsed iteration: "item in expr" or "index, item in expr".
type ForClause struct {
	Item   string
	Index  string
	Source string
}

var forPattern = regexp.MustCompile(`^\s*\(?\s*([A-Za-z_$][\w$]*)\s*(?:,\s*([A-Za-z_$][\w$]*)\s*)?\)?\s+(?:in|of)\s+(.+?)\s*$`)

func ParseFor(src string) (ForClause, error) {
	m := forPattern.FindStringSubmatch(src)
	if m == nil {
		return ForClause{}, fmt.Errorf("invalid iteration %q: want \"item in list\" or \"index, item in list\"", src)
	}
	if m[2] != "" {
		return ForClause{Index: m[1], Item: m[2], Source: m[3]}, nil
	}
	return ForClause{Item: m[1], Source: m[3]}, nil
}

// Iteration is one pass of a loop body.
type Iteration struct {
	Key     string
	Context *expr.Context
}

// Iterations evaluates the loop source once and forks ctx per item. Each
// context key is the item's index in the unfiltered collection where that can
// be recovered, or its key directive value when the node has one.
func (env *Env) Iterations(node *tmpl.Node, ctx *expr.Context) ([]Iteration, error) {
	src, _ := node.Directive("for")
	clause, err := ParseFor(src)
	if err != nil {
		return nil, err
	}
	env.Eval.Materialize(clause.Source, ctx)
	raw, err := env.Eval.Run(clause.Source, ctx)
	if err != nil {
		return nil, err
	}

	items, ok := expr.Values(raw)
	if !ok {
		n, isNum := raw.(float64)
		if !isNum {
			return nil, fmt.Errorf("cannot iterate over %s", expr.TypeOf(raw))
		}
		if err := expr.CheckLength(n, "loop count"); err != nil {
			return nil, err
		}
		for i := 0; i < int(n); i++ {
			items = append(items, float64(i))
		}
	}

	var origin []any
	if base := baseCollection(clause.Source); base != "" && base != strings.TrimSpace(clause.Source) {
		if v, err := env.Eval.Run(base, ctx); err == nil {
			origin, _ = expr.Values(v)
		}
	}

	keySrc, keyed := node.Directive("key")
	used := make([]bool, len(origin))
	out := make([]Iteration, 0, len(items))
	for i, item := range items {
		original := i
		if origin != nil {
			if j := IterationIndex(origin, item, used); j >= 0 {
				original = j
			}
		}
		vars := map[string]any{
			clause.Item: item,
			"$index":    float64(original),
		}
		if clause.Index != "" {
			vars[clause.Index] = float64(i)
		}
		key := strconv.Itoa(original)
		if keyed {
			key = "k:" + expr.ToString(env.Eval.Evaluate(keySrc, ctx.Fork("", vars)))
		}
		out = append(out, Iteration{Key: key, Context: ctx.Fork(key, vars)})
	}
	return out, nil
}

var basePattern = regexp.MustCompile(`^\s*([A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)*?)\.(?:filter|slice|sort|reverse|concat|map)\(`)

// baseCollection extracts the collection a derived source starts from:
// "todos.filter(...)" yields "todos".
func baseCollection(src string) string {
	m := basePattern.FindStringSubmatch(src)
	if m == nil {
		return ""
	}
	return m[1]
}

// IterationIndex finds item in origin, preferring identity over deep
// equality and skipping positions already claimed. Duplicate values can be
// attributed to the wrong position; -1 means no match.
func IterationIndex(origin []any, item any, used []bool) int {
	for j, o := range origin {
		if j < len(used) && used[j] {
			continue
		}
		if expr.StrictEqual(o, item) {
			if j < len(used) {
				used[j] = true
			}
			return j
		}
	}
	for j, o := range origin {
		if j < len(used) && used[j] {
			continue
		}
		if store.Equal(o, item) {
			if j < len(used) {
				used[j] = true
			}
			return j
		}
	}
	return -1
}
