package expr

import (
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

var mutatingArrayMethods = map[string]bool{
	"push": true, "pop": true, "shift": true, "unshift": true,
	"splice": true, "sort": true, "reverse": true,
}

var arrayMethods = map[string]bool{
	"map": true, "filter": true, "find": true, "findIndex": true, "some": true,
	"every": true, "reduce": true, "forEach": true, "includes": true,
	"indexOf": true, "join": true, "slice": true, "concat": true, "at": true,
	"toString": true,
}

var stringMethods = map[string]bool{
	"toUpperCase": true, "toLowerCase": true, "trim": true, "trimStart": true,
	"trimEnd": true, "includes": true, "startsWith": true, "endsWith": true,
	"indexOf": true, "lastIndexOf": true, "split": true, "slice": true,
	"substring": true, "replace": true, "replaceAll": true, "padStart": true,
	"padEnd": true, "charAt": true, "concat": true, "repeat": true,
	"toString": true, "at": true,
}

var numberMethods = map[string]bool{
	"toFixed": true, "toString": true,
}

func getMember(obj any, key any) (any, error) {
	obj = normalize(obj)
	name := ToString(key)
	switch o := obj.(type) {
	case nil:
		return nil, typeErrorf("cannot read property %q of undefined", name)
	case map[string]any:
		if v, ok := o[name]; ok {
			return v, nil
		}
		if name == "hasOwnProperty" {
			return Func(func(args ...any) (any, error) {
				if len(args) == 0 {
					return false, nil
				}
				_, ok := o[ToString(args[0])]
				return ok, nil
			}), nil
		}
		return nil, nil
	case []any:
		if name == "length" {
			return float64(len(o)), nil
		}
		if i, ok := arrayIndex(key, len(o)); ok {
			return o[i], nil
		}
		if arrayMethods[name] || mutatingArrayMethods[name] {
			return boundMethod{recv: o, name: name}, nil
		}
		return nil, nil
	case string:
		if name == "length" {
			return float64(utf8.RuneCountInString(o)), nil
		}
		runes := []rune(o)
		if i, ok := arrayIndex(key, len(runes)); ok {
			return string(runes[i]), nil
		}
		if stringMethods[name] {
			return boundMethod{recv: o, name: name}, nil
		}
		return nil, nil
	case float64:
		if numberMethods[name] {
			return boundMethod{recv: o, name: name}, nil
		}
		return nil, nil
	}
	return nil, nil
}

func arrayIndex(key any, n int) (int, bool) {
	var f float64
	switch k := normalize(key).(type) {
	case float64:
		f = k
	case string:
		parsed, err := strconv.Atoi(k)
		if err != nil {
			return 0, false
		}
		f = float64(parsed)
	default:
		return 0, false
	}
	if f < 0 || f != math.Trunc(f) || int(f) >= n {
		return 0, false
	}
	return int(f), true
}

// relIndex resolves a possibly negative slice bound against n.
func relIndex(v any, n int, def int) int {
	if v == nil {
		return def
	}
	i := int(ToNumber(v))
	if i < 0 {
		i += n
	}
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func (e *Evaluator) callMethod(recv any, name string, args []any) (any, error) {
	switch r := recv.(type) {
	case []any:
		return e.arrayMethod(r, name, args)
	case string:
		return stringMethod(r, name, args)
	case float64:
		switch name {
		case "toFixed":
			digits := int(ToNumber(arg(args, 0)))
			return strconv.FormatFloat(r, 'f', digits, 64), nil
		case "toString":
			return formatNumber(r), nil
		}
	}
	return nil, typeErrorf("%s is not a function", name)
}

func (e *Evaluator) arrayMethod(s []any, name string, args []any) (any, error) {
	fn := arg(args, 0)
	each := func(visit func(i int, v, r any) (bool, error)) error {
		for i, v := range s {
			r, err := e.invoke(fn, []any{v, float64(i), s})
			if err != nil {
				return err
			}
			stop, err := visit(i, v, r)
			if err != nil || stop {
				return err
			}
		}
		return nil
	}

	switch name {
	case "map":
		out := make([]any, 0, len(s))
		err := each(func(_ int, _, r any) (bool, error) {
			out = append(out, r)
			return false, nil
		})
		return out, err
	case "filter":
		out := []any{}
		err := each(func(_ int, v, r any) (bool, error) {
			if Truthy(r) {
				out = append(out, v)
			}
			return false, nil
		})
		return out, err
	case "find":
		var found any
		err := each(func(_ int, v, r any) (bool, error) {
			if Truthy(r) {
				found = v
				return true, nil
			}
			return false, nil
		})
		return found, err
	case "findIndex":
		found := -1.0
		err := each(func(i int, _, r any) (bool, error) {
			if Truthy(r) {
				found = float64(i)
				return true, nil
			}
			return false, nil
		})
		return found, err
	case "some":
		found := false
		err := each(func(_ int, _, r any) (bool, error) {
			found = Truthy(r)
			return found, nil
		})
		return found, err
	case "every":
		all := true
		err := each(func(_ int, _, r any) (bool, error) {
			all = Truthy(r)
			return !all, nil
		})
		return all, err
	case "forEach":
		return nil, each(func(int, any, any) (bool, error) { return false, nil })
	case "reduce":
		var acc any
		start := 0
		if len(args) > 1 {
			acc = args[1]
		} else if len(s) > 0 {
			acc = s[0]
			start = 1
		}
		for i := start; i < len(s); i++ {
			r, err := e.invoke(fn, []any{acc, s[i], float64(i), s})
			if err != nil {
				return nil, err
			}
			acc = r
		}
		return acc, nil
	case "includes":
		for _, v := range s {
			if StrictEqual(v, fn) {
				return true, nil
			}
		}
		return false, nil
	case "indexOf":
		for i, v := range s {
			if StrictEqual(v, fn) {
				return float64(i), nil
			}
		}
		return -1.0, nil
	case "join":
		sep := ","
		if len(args) > 0 {
			sep = ToString(args[0])
		}
		parts := make([]string, len(s))
		for i, v := range s {
			parts[i] = ToString(v)
		}
		return strings.Join(parts, sep), nil
	case "slice":
		from := relIndex(arg(args, 0), len(s), 0)
		to := relIndex(arg(args, 1), len(s), len(s))
		if to < from {
			to = from
		}
		return append([]any{}, s[from:to]...), nil
	case "concat":
		out := append([]any{}, s...)
		for _, a := range args {
			if more, ok := a.([]any); ok {
				out = append(out, more...)
			} else {
				out = append(out, a)
			}
		}
		return out, nil
	case "at":
		i := int(ToNumber(fn))
		if i < 0 {
			i += len(s)
		}
		if i < 0 || i >= len(s) {
			return nil, nil
		}
		return s[i], nil
	case "toString":
		return ToString(s), nil
	}
	if mutatingArrayMethods[name] {
		result, _, err := e.mutateArray(s, name, args)
		return result, err
	}
	return nil, typeErrorf("%s is not a function", name)
}

// mutateArray returns the method result and a fresh slice holding the new
// contents; the receiver is never modified so snapshots stay intact.
func (e *Evaluator) mutateArray(s []any, name string, args []any) (result any, next []any, err error) {
	switch name {
	case "push":
		next = append(append(make([]any, 0, len(s)+len(args)), s...), args...)
		return float64(len(next)), next, nil
	case "pop":
		if len(s) == 0 {
			return nil, []any{}, nil
		}
		next = append([]any{}, s[:len(s)-1]...)
		return s[len(s)-1], next, nil
	case "shift":
		if len(s) == 0 {
			return nil, []any{}, nil
		}
		next = append([]any{}, s[1:]...)
		return s[0], next, nil
	case "unshift":
		next = append(append(make([]any, 0, len(s)+len(args)), args...), s...)
		return float64(len(next)), next, nil
	case "splice":
		start := relIndex(arg(args, 0), len(s), 0)
		count := len(s) - start
		if len(args) > 1 {
			count = int(ToNumber(args[1]))
		}
		if count < 0 {
			count = 0
		}
		if start+count > len(s) {
			count = len(s) - start
		}
		removed := append([]any{}, s[start:start+count]...)
		next = append([]any{}, s[:start]...)
		if len(args) > 2 {
			next = append(next, args[2:]...)
		}
		next = append(next, s[start+count:]...)
		return removed, next, nil
	case "sort":
		next = append([]any{}, s...)
		cmp := arg(args, 0)
		var sortErr error
		sort.SliceStable(next, func(i, j int) bool {
			if cmp == nil {
				return ToString(next[i]) < ToString(next[j])
			}
			r, err := e.invoke(cmp, []any{next[i], next[j]})
			if err != nil && sortErr == nil {
				sortErr = err
			}
			return ToNumber(r) < 0
		})
		return next, next, sortErr
	case "reverse":
		next = make([]any, len(s))
		for i, v := range s {
			next[len(s)-1-i] = v
		}
		return next, next, nil
	}
	return nil, s, typeErrorf("%s is not a function", name)
}

func stringMethod(s, name string, args []any) (any, error) {
	a0 := ToString(arg(args, 0))
	switch name {
	case "toUpperCase":
		return strings.ToUpper(s), nil
	case "toLowerCase":
		return strings.ToLower(s), nil
	case "trim":
		return strings.TrimSpace(s), nil
	case "trimStart":
		return strings.TrimLeft(s, " \t\n\r"), nil
	case "trimEnd":
		return strings.TrimRight(s, " \t\n\r"), nil
	case "includes":
		return strings.Contains(s, a0), nil
	case "startsWith":
		return strings.HasPrefix(s, a0), nil
	case "endsWith":
		return strings.HasSuffix(s, a0), nil
	case "indexOf":
		return float64(strings.Index(s, a0)), nil
	case "lastIndexOf":
		return float64(strings.LastIndex(s, a0)), nil
	case "split":
		var parts []string
		if len(args) == 0 {
			parts = []string{s}
		} else {
			parts = strings.Split(s, a0)
		}
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, nil
	case "slice", "substring":
		runes := []rune(s)
		from := relIndex(arg(args, 0), len(runes), 0)
		to := relIndex(arg(args, 1), len(runes), len(runes))
		if to < from {
			if name == "substring" {
				from, to = to, from
			} else {
				to = from
			}
		}
		return string(runes[from:to]), nil
	case "replace":
		return strings.Replace(s, a0, ToString(arg(args, 1)), 1), nil
	case "replaceAll":
		return strings.ReplaceAll(s, a0, ToString(arg(args, 1))), nil
	case "padStart", "padEnd":
		w := ToNumber(arg(args, 0))
		if math.IsNaN(w) {
			w = 0
		}
		if err := CheckLength(math.Max(w, 0), "pad width"); err != nil {
			return nil, err
		}
		width := int(w)
		pad := " "
		if len(args) > 1 {
			pad = ToString(args[1])
		}
		n := utf8.RuneCountInString(s)
		if pad == "" || n >= width {
			return s, nil
		}
		fill := strings.Repeat(pad, width-n)
		fill = string([]rune(fill)[:width-n])
		if name == "padStart" {
			return fill + s, nil
		}
		return s + fill, nil
	case "charAt", "at":
		runes := []rune(s)
		i := int(ToNumber(arg(args, 0)))
		if name == "at" && i < 0 {
			i += len(runes)
		}
		if i < 0 || i >= len(runes) {
			if name == "at" {
				return nil, nil
			}
			return "", nil
		}
		return string(runes[i]), nil
	case "concat":
		var sb strings.Builder
		sb.WriteString(s)
		for _, a := range args {
			sb.WriteString(ToString(a))
		}
		return sb.String(), nil
	case "repeat":
		n := ToNumber(arg(args, 0))
		if math.IsNaN(n) {
			n = 0
		}
		if err := CheckLength(n*float64(max(len(s), 1)), "repeat length"); err != nil {
			return nil, err
		}
		return strings.Repeat(s, int(n)), nil
	case "toString":
		return s, nil
	}
	return nil, typeErrorf("%s is not a function", name)
}

func mathFunc(f func(float64) float64) Func {
	return func(args ...any) (any, error) {
		return f(ToNumber(arg(args, 0))), nil
	}
}

func (e *Evaluator) installGlobals() {
	e.globals["Math"] = map[string]any{
		"PI":    math.Pi,
		"E":     math.E,
		"floor": mathFunc(math.Floor),
		"ceil":  mathFunc(math.Ceil),
		"round": mathFunc(func(f float64) float64 { return math.Floor(f + 0.5) }),
		"abs":   mathFunc(math.Abs),
		"sqrt":  mathFunc(math.Sqrt),
		"trunc": mathFunc(math.Trunc),
		"sign": mathFunc(func(f float64) float64 {
			switch {
			case f > 0:
				return 1
			case f < 0:
				return -1
			}
			return f
		}),
		"pow": Func(func(args ...any) (any, error) {
			return math.Pow(ToNumber(arg(args, 0)), ToNumber(arg(args, 1))), nil
		}),
		"random": Func(func(args ...any) (any, error) {
			return rand.Float64(), nil
		}),
		"max": Func(func(args ...any) (any, error) {
			out := math.Inf(-1)
			for _, a := range args {
				out = math.Max(out, ToNumber(a))
			}
			return out, nil
		}),
		"min": Func(func(args ...any) (any, error) {
			out := math.Inf(1)
			for _, a := range args {
				out = math.Min(out, ToNumber(a))
			}
			return out, nil
		}),
	}
	e.globals["JSON"] = map[string]any{
		"stringify": Func(func(args ...any) (any, error) {
			var (
				b   []byte
				err error
			)
			if indent := arg(args, 2); indent != nil {
				pad := ToString(indent)
				if n, ok := normalize(indent).(float64); ok {
					pad = strings.Repeat(" ", int(math.Max(0, math.Min(n, 10))))
				}
				b, err = json.MarshalIndent(arg(args, 0), "", pad)
			} else {
				b, err = json.Marshal(arg(args, 0))
			}
			if err != nil {
				return nil, err
			}
			return string(b), nil
		}),
		"parse": Func(func(args ...any) (any, error) {
			var out any
			if err := json.Unmarshal([]byte(ToString(arg(args, 0))), &out); err != nil {
				return nil, err
			}
			return out, nil
		}),
	}
	e.globals["Object"] = map[string]any{
		"keys": Func(func(args ...any) (any, error) {
			m, _ := arg(args, 0).(map[string]any)
			out := []any{}
			for _, k := range sortedKeys(m) {
				out = append(out, k)
			}
			return out, nil
		}),
		"values": Func(func(args ...any) (any, error) {
			vals, _ := Values(arg(args, 0))
			return append([]any{}, vals...), nil
		}),
		"entries": Func(func(args ...any) (any, error) {
			m, _ := arg(args, 0).(map[string]any)
			out := []any{}
			for _, k := range sortedKeys(m) {
				out = append(out, []any{k, m[k]})
			}
			return out, nil
		}),
		"assign": Func(func(args ...any) (any, error) {
			out := map[string]any{}
			for _, a := range args {
				if m, ok := a.(map[string]any); ok {
					for k, v := range m {
						out[k] = v
					}
				}
			}
			return out, nil
		}),
	}
	e.globals["Array"] = map[string]any{
		"isArray": Func(func(args ...any) (any, error) {
			_, ok := arg(args, 0).([]any)
			return ok, nil
		}),
	}
	e.globals["Date"] = map[string]any{
		"now": Func(func(args ...any) (any, error) {
			return float64(time.Now().UnixMilli()), nil
		}),
	}
	e.globals["String"] = Func(func(args ...any) (any, error) {
		return ToString(arg(args, 0)), nil
	})
	e.globals["Number"] = Func(func(args ...any) (any, error) {
		return ToNumber(arg(args, 0)), nil
	})
	e.globals["Boolean"] = Func(func(args ...any) (any, error) {
		return Truthy(arg(args, 0)), nil
	})
	e.globals["parseInt"] = Func(func(args ...any) (any, error) {
		s := strings.TrimSpace(ToString(arg(args, 0)))
		end := 0
		for end < len(s) && (isDigit(s[end]) || (end == 0 && (s[0] == '-' || s[0] == '+'))) {
			end++
		}
		n, err := strconv.ParseInt(s[:end], 10, 64)
		if err != nil {
			return math.NaN(), nil
		}
		return float64(n), nil
	})
	e.globals["parseFloat"] = Func(func(args ...any) (any, error) {
		return ToNumber(arg(args, 0)), nil
	})
	e.globals["isNaN"] = Func(func(args ...any) (any, error) {
		return math.IsNaN(ToNumber(arg(args, 0))), nil
	})
	e.globals["isFinite"] = Func(func(args ...any) (any, error) {
		f := ToNumber(arg(args, 0))
		return !math.IsNaN(f) && !math.IsInf(f, 0), nil
	})
	e.globals["Infinity"] = math.Inf(1)
	e.globals["NaN"] = math.NaN()
}
