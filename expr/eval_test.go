package expr_test

import (
	"testing"

	"github.com/delaneyj/livedoc/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapScope struct {
	vals    map[string]any
	assigns []string
	touches []string
}

func newScope(vals map[string]any) *mapScope {
	if vals == nil {
		vals = map[string]any{}
	}
	return &mapScope{vals: vals}
}

func (s *mapScope) Lookup(name string) (any, bool) {
	v, ok := s.vals[name]
	return v, ok
}

func (s *mapScope) Assign(name string, v any) {
	s.vals[name] = v
	s.assigns = append(s.assigns, name)
}

func (s *mapScope) Define(name string, v any) {
	s.vals[name] = v
}

func (s *mapScope) Touch(name string) {
	s.touches = append(s.touches, name)
}

func TestFastPaths(t *testing.T) {
	e := expr.New(newScope(nil))
	assert.Equal(t, "hello", e.Evaluate(`'hello'`, nil))
	assert.Equal(t, "hi there", e.Evaluate(`"hi there"`, nil))
	assert.Equal(t, 42.0, e.Evaluate("42", nil))
	assert.Equal(t, -3.5, e.Evaluate("-3.5", nil))
	assert.Nil(t, e.Evaluate("", nil))
}

func TestArithmeticAndPrecedence(t *testing.T) {
	e := expr.New(newScope(map[string]any{"a": 2.0, "b": 3.0, "name": "bob"}))
	cases := map[string]any{
		"a + b * 2":           8.0,
		"(a + b) * 2":         10.0,
		"2 ** 3 ** 2":         512.0,
		"b % a":               1.0,
		"'hi ' + name":        "hi bob",
		"a + '1'":             "21",
		"a < b && b < 4":      true,
		"a > b || name":       "bob",
		"missing ?? 'dflt'":   "dflt",
		"a === 2":             true,
		"a == '2'":            true,
		"a === '2'":           false,
		"a != b":              true,
		"!a":                  false,
		"typeof name":         "string",
		"typeof nope":         "undefined",
		"a > 1 ? 'ok' : 'no'": "ok",
		"-a + +'5'":           3.0,
	}
	for src, want := range cases {
		got, err := e.Run(src, expr.NewContext(map[string]any{"missing": nil}))
		require.NoError(t, err, src)
		assert.Equal(t, want, got, src)
	}
}

func TestContextWinsOverState(t *testing.T) {
	e := expr.New(newScope(map[string]any{"item": "state"}))
	ctx := expr.NewContext(map[string]any{"item": "ctx"})
	assert.Equal(t, "ctx", e.Evaluate("item", ctx))
	assert.Equal(t, "state", e.Evaluate("item", nil))
}

func TestUndefinedIdentifierIsReferenceError(t *testing.T) {
	e := expr.New(newScope(nil))
	_, err := e.Run("nothing + 1", nil)
	var refErr *expr.ReferenceError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "nothing", refErr.Name)
	assert.Nil(t, e.Evaluate("nothing + 1", nil))
}

func TestMemberAccess(t *testing.T) {
	e := expr.New(newScope(map[string]any{
		"user":  map[string]any{"name": "ann", "tags": []any{"a", "b"}},
		"empty": nil,
	}))
	assert.Equal(t, "ann", e.Evaluate("user.name", nil))
	assert.Equal(t, "b", e.Evaluate("user.tags[1]", nil))
	assert.Equal(t, 2.0, e.Evaluate("user.tags.length", nil))
	assert.Equal(t, "ann", e.Evaluate("user['name']", nil))
	assert.Nil(t, e.Evaluate("empty?.name", nil))

	_, err := e.Run("empty.name", nil)
	assert.Error(t, err)
}

func TestAssignments(t *testing.T) {
	s := newScope(map[string]any{"count": 0.0, "user": map[string]any{"name": "ann"}})
	e := expr.New(s)

	_, err := e.Run("count++", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.vals["count"])

	v, err := e.Run("count += 4", nil)
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)

	_, err = e.Run("user.name = 'bo'", nil)
	require.NoError(t, err)
	assert.Equal(t, "bo", s.vals["user"].(map[string]any)["name"])
	assert.Equal(t, []string{"user"}, s.touches)

	_, err = e.Run("a = 1; b = 2", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.vals["a"])
	assert.Equal(t, 2.0, s.vals["b"])

	_, err = e.Run("c = 3 d = 4", nil)
	require.NoError(t, err)
	assert.Equal(t, 4.0, s.vals["d"])
}

func TestAssignToContextStaysEphemeral(t *testing.T) {
	s := newScope(nil)
	e := expr.New(s)
	ctx := expr.NewContext(map[string]any{"i": 1.0})
	_, err := e.Run("i = 5", ctx)
	require.NoError(t, err)
	v, _ := ctx.Lookup("i")
	assert.Equal(t, 5.0, v)
	assert.NotContains(t, s.vals, "i")
}

func TestMutatingArrayMethodsWriteBack(t *testing.T) {
	original := []any{3.0, 1.0}
	s := newScope(map[string]any{"todos": original})
	e := expr.New(s)

	n, err := e.Run("todos.push(2)", nil)
	require.NoError(t, err)
	assert.Equal(t, 3.0, n)
	assert.Equal(t, []any{3.0, 1.0, 2.0}, s.vals["todos"])
	assert.Equal(t, []any{3.0, 1.0}, original)

	_, err = e.Run("todos.sort()", nil)
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, s.vals["todos"])

	removed, err := e.Run("todos.splice(0, 1)", nil)
	require.NoError(t, err)
	assert.Equal(t, []any{1.0}, removed)
	assert.Equal(t, []any{2.0, 3.0}, s.vals["todos"])
	assert.Equal(t, []string{"todos", "todos", "todos"}, s.assigns)
}

func TestArrayCallbacks(t *testing.T) {
	e := expr.New(newScope(map[string]any{
		"todos": []any{
			map[string]any{"title": "a", "done": true},
			map[string]any{"title": "b", "done": false},
		},
	}))
	assert.Equal(t, 1.0, e.Evaluate("todos.filter(t => !t.done).length", nil))
	assert.Equal(t, []any{"a", "b"}, e.Evaluate("todos.map(t => t.title)", nil))
	assert.Equal(t, "a|b", e.Evaluate("todos.map(t => t.title).join('|')", nil))
	assert.Equal(t, 1.0, e.Evaluate("todos.findIndex((t, i) => i == 1)", nil))
	assert.Equal(t, 1.0, e.Evaluate("todos.reduce((n, t) => t.done ? n + 1 : n, 0)", nil))
	assert.Equal(t, true, e.Evaluate("todos.some(t => t.done)", nil))
}

func TestArrowsOnlyAsCallbacks(t *testing.T) {
	e := expr.New(newScope(nil))
	_, err := e.Run("f = x => x", nil)
	var synErr *expr.SyntaxError
	assert.ErrorAs(t, err, &synErr)
}

func TestCallsAreAllowListed(t *testing.T) {
	e := expr.New(newScope(map[string]any{"name": " Ann "}))
	assert.Equal(t, "ANN", e.Evaluate("name.trim().toUpperCase()", nil))
	assert.Equal(t, 7.0, e.Evaluate("Math.max(1, 7, 3)", nil))
	assert.Equal(t, `{"a":1}`, e.Evaluate("JSON.stringify({a: 1})", nil))
	assert.Equal(t, "3.14", e.Evaluate("Math.PI.toFixed(2)", nil))

	_, err := e.Run("name.constructor()", nil)
	assert.Error(t, err)
}

func TestHostFunctions(t *testing.T) {
	e := expr.New(newScope(nil), expr.WithFunc("double", func(args ...any) (any, error) {
		return expr.ToNumber(args[0]) * 2, nil
	}))
	assert.Equal(t, 8.0, e.Evaluate("double(4)", nil))
}

func TestObjectAndArrayLiterals(t *testing.T) {
	e := expr.New(newScope(map[string]any{"x": 1.0}))
	assert.Equal(t, map[string]any{"x": 1.0, "y": "z"}, e.Evaluate("{x, y: 'z'}", nil))
	assert.Equal(t, []any{1.0, 2.0}, e.Evaluate("[x, x + 1]", nil))
}

func TestAssignPathCreatesIntermediates(t *testing.T) {
	s := newScope(nil)
	e := expr.New(s)
	require.NoError(t, e.AssignPath("form.user.email", "a@b.c", nil))
	assert.Equal(t, map[string]any{"user": map[string]any{"email": "a@b.c"}}, s.vals["form"])
}

func TestToStringFormatsNumbers(t *testing.T) {
	assert.Equal(t, "1", expr.ToString(1.0))
	assert.Equal(t, "0.5", expr.ToString(0.5))
	assert.Equal(t, "", expr.ToString(nil))
	assert.Equal(t, "a,b", expr.ToString([]any{"a", "b"}))
	assert.Equal(t, "3", expr.ToString(3))
}

func TestSizedAllocationsAreBounded(t *testing.T) {
	s := newScope(map[string]any{"a": []any{}, "s": "ab"})
	e := expr.New(s)
	var rangeErr *expr.RangeError

	_, err := e.Run("a[1e9] = 1", nil)
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, []any{}, s.vals["a"])

	_, err = e.Run("a[2] = 1", nil)
	require.NoError(t, err)
	assert.Equal(t, []any{nil, nil, 1.0}, s.vals["a"])

	_, err = e.Run("s.repeat(1e9)", nil)
	assert.ErrorAs(t, err, &rangeErr)
	_, err = e.Run("s.padStart(1e12)", nil)
	assert.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, "abab", e.Evaluate("s.repeat(2)", nil))
}
