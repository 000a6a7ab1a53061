package store

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
	"github.com/tiendc/go-deepcopy"
)

// Equal is the deep comparison that decides whether a write is a change.
// Values go-cmp cannot handle fall back to reference identity.
func Equal(a, b any) (eq bool) {
	defer func() {
		if r := recover(); r != nil {
			eq = sameReference(a, b)
		}
	}()
	return cmp.Equal(a, b)
}

func sameReference(a, b any) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() {
		return va.IsValid() == vb.IsValid()
	}
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	}
	return a == b
}

// snapshot detaches collections so in-place edits after a write cannot
// rewrite history.
func snapshot(v any) any {
	switch x := v.(type) {
	case map[string]any:
		var out map[string]any
		if err := deepcopy.Copy(&out, &x); err == nil {
			return out
		}
	case []any:
		var out []any
		if err := deepcopy.Copy(&out, &x); err == nil {
			return out
		}
	}
	return v
}
