package expr_test

import (
	"testing"

	"github.com/delaneyj/livedoc/expr"
	"github.com/stretchr/testify/assert"
)

func TestDependencies(t *testing.T) {
	cases := []struct {
		src  string
		want []string
	}{
		{"count + 1", []string{"count"}},
		{"user.name + user.email", []string{"user"}},
		{"todos.filter(t => !t.done).length > limit", []string{"todos", "limit"}},
		{"{title: draft, done: false}", []string{"draft"}},
		{"Math.max(a, b) + a", []string{"a", "b"}},
		{"ok ? yes : no", []string{"ok", "yes", "no"}},
		{"'literal'", nil},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, expr.Dependencies(c.src), c.src)
	}
}

func TestSplitStatements(t *testing.T) {
	cases := []struct {
		src  string
		want []string
	}{
		{"a = 1", []string{"a = 1"}},
		{"a = 1; b = 2", []string{"a = 1", "b = 2"}},
		{"a = 1, b = 2", []string{"a = 1", "b = 2"}},
		{"a = 1 b = 2", []string{"a = 1", "b = 2"}},
		{"count++ total = count", []string{"count++", "total = count"}},
		{"msg = 'a; b, c'", []string{"msg = 'a; b, c'"}},
		{"x = f(a, b)", []string{"x = f(a, b)"}},
		{"list = items.map(i => i, 1); n = 2", []string{"list = items.map(i => i, 1)", "n = 2"}},
		{"user.name = 'x' user.age = 3", []string{"user.name = 'x'", "user.age = 3"}},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, expr.SplitStatements(c.src), c.src)
	}
	assert.True(t, expr.IsMultiStatement("a = 1 b = 2"))
	assert.False(t, expr.IsMultiStatement("a + b"))
}

func TestInterpolate(t *testing.T) {
	e := expr.New(newScope(map[string]any{"name": "ann", "n": 2.0, "nothing": nil}))
	assert.Equal(t, "hi ann!", e.Interpolate("hi {{name}}!", nil))
	assert.Equal(t, "n=2 n+1=3", e.Interpolate("n={n} n+1=[{n + 1}]", nil))
	assert.Equal(t, "<>", e.Interpolate("<{{nothing}}>", nil))
	assert.Equal(t, "plain", e.Interpolate("plain", nil))
}

func TestMaterialize(t *testing.T) {
	s := newScope(map[string]any{"form": map[string]any{}})
	e := expr.New(s)

	assert.True(t, e.Materialize("todos", nil))
	assert.Equal(t, []any{}, s.vals["todos"])
	assert.True(t, e.Materialize("isOpen", nil))
	assert.Equal(t, false, s.vals["isOpen"])
	assert.True(t, e.Materialize("form.name", nil))
	assert.Equal(t, "", s.vals["form"].(map[string]any)["name"])

	assert.False(t, e.Materialize("todos", nil))
	assert.False(t, e.Materialize("a + b", nil))
	assert.False(t, e.Materialize("item", expr.NewContext(map[string]any{"item": 1})))
	assert.Empty(t, s.assigns)
}

func TestDefaultFor(t *testing.T) {
	assert.Equal(t, []any{}, expr.DefaultFor("items"))
	assert.Equal(t, []any{}, expr.DefaultFor("todoList"))
	assert.Equal(t, false, expr.DefaultFor("hasErrors"))
	assert.Equal(t, 0.0, expr.DefaultFor("totalCount"))
	assert.Equal(t, "", expr.DefaultFor("status"))
	assert.Equal(t, "", expr.DefaultFor("name"))
}
