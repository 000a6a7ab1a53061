package expr

import (
	"regexp"
	"strings"
)

var (
	listLike    = regexp.MustCompile(`(?i)(list|items|array|collection|rows|entries)$|[^su]s$`)
	booleanLike = regexp.MustCompile(`^(is|has|show|can|should|enable|disable|visible|hidden|loading|open|active)([A-Z_]|$)`)
	counterLike = regexp.MustCompile(`(?i)(count|total|index|num|size|amount|sum|step)$`)
	dottedPath  = regexp.MustCompile(`^[A-Za-z_$][\w$]*(\.[A-Za-z_$][\w$]*)*$`)
)

// DefaultFor guesses a starting value from a variable name. It is a
// convenience only: names it cannot classify start as "".
func DefaultFor(name string) any {
	switch {
	case booleanLike.MatchString(name):
		return false
	case counterLike.MatchString(name):
		return 0.0
	case listLike.MatchString(name):
		return []any{}
	}
	return ""
}

// Materialize silently creates a missing bare identifier or dotted path in
// state so bindings have something to read and write. Anything that is not
// a plain path, or is already bound, is left alone.
func (e *Evaluator) Materialize(path string, ctx *Context) bool {
	path = strings.TrimSpace(path)
	if e.scope == nil || !dottedPath.MatchString(path) {
		return false
	}
	parts := strings.Split(path, ".")
	root := parts[0]
	if ctx.Has(root) || IsReserved(root) {
		return false
	}
	if _, ok := e.globals[root]; ok {
		return false
	}
	leaf := DefaultFor(parts[len(parts)-1])

	v, ok := e.scope.Lookup(root)
	if len(parts) == 1 {
		if ok {
			return false
		}
		e.scope.Define(root, leaf)
		return true
	}

	var obj map[string]any
	if !ok || v == nil {
		obj = map[string]any{}
		e.scope.Define(root, obj)
	} else if m, isMap := v.(map[string]any); isMap {
		obj = m
	} else {
		return false
	}

	created := !ok
	for _, p := range parts[1 : len(parts)-1] {
		next, exists := obj[p]
		if !exists || next == nil {
			m := map[string]any{}
			obj[p] = m
			obj = m
			created = true
			continue
		}
		m, isMap := next.(map[string]any)
		if !isMap {
			return false
		}
		obj = m
	}
	last := parts[len(parts)-1]
	if _, exists := obj[last]; !exists {
		obj[last] = leaf
		created = true
	}
	return created
}
