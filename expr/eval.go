// Package expr is the restricted expression language behind every directive.
//
// Expressions are tokenized, parsed into an AST and walked. Identifiers
// resolve against the ephemeral Context first, then the reactive state
// (Scope), then the builtin globals; anything else is a ReferenceError.
// There is no host interpreter and no ambient scope.
package expr

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Scope is the state the evaluator reads and writes. The reactive store
// implements it.
type Scope interface {
	Lookup(name string) (any, bool)
	// Assign is an observed top-level write.
	Assign(name string, value any)
	// Define is a silent write that fires no watchers and schedules nothing.
	Define(name string, value any)
	// Touch reports an in-place mutation below name.
	Touch(name string)
}

const DefaultCacheSize = 1024

type Option func(*Evaluator)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(e *Evaluator) {
		e.log = log
	}
}

// WithFunc exposes a host function to expressions under name.
func WithFunc(name string, fn Func) Option {
	return func(e *Evaluator) {
		e.globals[name] = fn
	}
}

func WithCacheSize(n int) Option {
	return func(e *Evaluator) {
		e.cacheSize = n
	}
}

type Evaluator struct {
	scope     Scope
	globals   map[string]any
	cache     *lru.Cache[string, Node]
	cacheSize int
	log       *zap.SugaredLogger
}

func New(scope Scope, opts ...Option) *Evaluator {
	e := &Evaluator{
		scope:     scope,
		globals:   map[string]any{},
		cacheSize: DefaultCacheSize,
		log:       zap.NewNop().Sugar(),
	}
	e.installGlobals()
	for _, opt := range opts {
		opt(e)
	}
	cache, err := lru.New[string, Node](e.cacheSize)
	if err != nil {
		cache, _ = lru.New[string, Node](DefaultCacheSize)
	}
	e.cache = cache
	return e
}

// Register exposes fn under name after construction.
func (e *Evaluator) Register(name string, fn Func) {
	e.globals[name] = fn
}

var numericText = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// Evaluate never fails: errors are logged and yield nil.
func (e *Evaluator) Evaluate(src string, ctx *Context) any {
	v, err := e.Run(src, ctx)
	if err != nil {
		e.log.Warnw("expression failed", "expr", src, "error", err)
		return nil
	}
	return v
}

// Run evaluates src and reports failures to the caller.
func (e *Evaluator) Run(src string, ctx *Context) (v any, err error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, nil
	}
	if s, ok := quotedLiteral(src); ok {
		return s, nil
	}
	if numericText.MatchString(src) {
		return ToNumber(src), nil
	}
	n, err := e.parse(src)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("evaluating %q: %v", src, r)
		}
	}()
	return e.eval(n, ctx)
}

func (e *Evaluator) parse(src string) (Node, error) {
	if n, ok := e.cache.Get(src); ok {
		return n, nil
	}
	n, err := Parse(src)
	if err != nil {
		return nil, err
	}
	e.cache.Add(src, n)
	return n, nil
}

// quotedLiteral matches 'text' or "text" with no inner unescaped quote.
func quotedLiteral(src string) (string, bool) {
	if len(src) < 2 {
		return "", false
	}
	q := src[0]
	if (q != '\'' && q != '"' && q != '`') || src[len(src)-1] != q {
		return "", false
	}
	for i := 1; i < len(src)-1; i++ {
		if src[i] == '\\' {
			return "", false
		}
		if src[i] == q {
			return "", false
		}
	}
	return src[1 : len(src)-1], true
}

func (e *Evaluator) eval(n Node, ctx *Context) (any, error) {
	switch n := n.(type) {
	case *Literal:
		return n.Value, nil
	case *Ident:
		return e.lookup(n.Name, ctx)
	case *ArrayLit:
		out := make([]any, 0, len(n.Elems))
		for _, el := range n.Elems {
			v, err := e.eval(el, ctx)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case *ObjectLit:
		out := make(map[string]any, len(n.Keys))
		for i, k := range n.Keys {
			v, err := e.eval(n.Values[i], ctx)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case *Member:
		obj, err := e.eval(n.Object, ctx)
		if err != nil {
			return nil, err
		}
		if obj == nil && n.Optional {
			return nil, nil
		}
		key, err := e.memberKey(n, ctx)
		if err != nil {
			return nil, err
		}
		return getMember(obj, key)
	case *Call:
		return e.call(n, ctx)
	case *Unary:
		return e.unary(n, ctx)
	case *Binary:
		l, err := e.eval(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		r, err := e.eval(n.Right, ctx)
		if err != nil {
			return nil, err
		}
		return binaryOp(n.Op, l, r)
	case *Logical:
		l, err := e.eval(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case "&&":
			if !Truthy(l) {
				return l, nil
			}
		case "||":
			if Truthy(l) {
				return l, nil
			}
		case "??":
			if l != nil {
				return l, nil
			}
		}
		return e.eval(n.Right, ctx)
	case *Cond:
		t, err := e.eval(n.Test, ctx)
		if err != nil {
			return nil, err
		}
		if Truthy(t) {
			return e.eval(n.Then, ctx)
		}
		return e.eval(n.Else, ctx)
	case *Assign:
		return e.assign(n, ctx)
	case *Update:
		cur, err := e.eval(n.Target, ctx)
		if err != nil {
			return nil, err
		}
		old := ToNumber(cur)
		next := old + 1
		if n.Op == "--" {
			next = old - 1
		}
		if err := e.assignTo(n.Target, next, ctx); err != nil {
			return nil, err
		}
		if n.Prefix {
			return next, nil
		}
		return old, nil
	case *Arrow:
		return &closure{e: e, params: n.Params, body: n.Body, ctx: ctx}, nil
	case *Seq:
		var last any
		for _, s := range n.List {
			v, err := e.eval(s, ctx)
			if err != nil {
				return nil, err
			}
			last = v
		}
		return last, nil
	}
	return nil, typeErrorf("unsupported node %T", n)
}

func (e *Evaluator) lookup(name string, ctx *Context) (any, error) {
	if v, ok := ctx.Lookup(name); ok {
		return v, nil
	}
	if e.scope != nil {
		if v, ok := e.scope.Lookup(name); ok {
			return v, nil
		}
	}
	if v, ok := e.globals[name]; ok {
		return v, nil
	}
	return nil, &ReferenceError{Name: name}
}

func (e *Evaluator) memberKey(n *Member, ctx *Context) (any, error) {
	if n.Computed == nil {
		return n.Prop, nil
	}
	return e.eval(n.Computed, ctx)
}

func (e *Evaluator) unary(n *Unary, ctx *Context) (any, error) {
	x, err := e.eval(n.X, ctx)
	if err != nil {
		if _, ok := err.(*ReferenceError); ok && n.Op == "typeof" {
			return "undefined", nil
		}
		return nil, err
	}
	switch n.Op {
	case "!":
		return !Truthy(x), nil
	case "-":
		return -ToNumber(x), nil
	case "+":
		return ToNumber(x), nil
	case "typeof":
		return TypeOf(x), nil
	}
	return nil, typeErrorf("unknown unary operator %s", n.Op)
}

func binaryOp(op string, l, r any) (any, error) {
	l, r = normalize(l), normalize(r)
	switch op {
	case "+":
		_, ls := l.(string)
		_, rs := r.(string)
		if ls || rs || !isPrimitive(l) || !isPrimitive(r) {
			return ToString(l) + ToString(r), nil
		}
		return ToNumber(l) + ToNumber(r), nil
	case "-":
		return ToNumber(l) - ToNumber(r), nil
	case "*":
		return ToNumber(l) * ToNumber(r), nil
	case "/":
		return ToNumber(l) / ToNumber(r), nil
	case "%":
		return math.Mod(ToNumber(l), ToNumber(r)), nil
	case "**":
		return math.Pow(ToNumber(l), ToNumber(r)), nil
	case "==":
		return LooseEqual(l, r), nil
	case "!=":
		return !LooseEqual(l, r), nil
	case "===":
		return StrictEqual(l, r), nil
	case "!==":
		return !StrictEqual(l, r), nil
	case "<", ">", "<=", ">=":
		ls, lok := l.(string)
		rs, rok := r.(string)
		if lok && rok {
			return compareOrdered(op, strings.Compare(ls, rs)), nil
		}
		a, b := ToNumber(l), ToNumber(r)
		if math.IsNaN(a) || math.IsNaN(b) {
			return false, nil
		}
		switch {
		case a < b:
			return compareOrdered(op, -1), nil
		case a > b:
			return compareOrdered(op, 1), nil
		}
		return compareOrdered(op, 0), nil
	}
	return nil, typeErrorf("unknown operator %s", op)
}

func compareOrdered(op string, c int) bool {
	switch op {
	case "<":
		return c < 0
	case ">":
		return c > 0
	case "<=":
		return c <= 0
	default:
		return c >= 0
	}
}

func isPrimitive(v any) bool {
	switch v.(type) {
	case nil, bool, float64, string:
		return true
	}
	return false
}

func (e *Evaluator) assign(n *Assign, ctx *Context) (any, error) {
	v, err := e.eval(n.Value, ctx)
	if err != nil {
		return nil, err
	}
	if n.Op != "=" {
		cur, err := e.eval(n.Target, ctx)
		if err != nil {
			return nil, err
		}
		if v, err = binaryOp(strings.TrimSuffix(n.Op, "="), cur, v); err != nil {
			return nil, err
		}
	}
	if err := e.assignTo(n.Target, v, ctx); err != nil {
		return nil, err
	}
	return v, nil
}

// assignTo writes v to an identifier or member target. Context bindings are
// rebound in place; top-level state goes through Scope.Assign; nested writes
// mutate the collection and Touch the root.
func (e *Evaluator) assignTo(target Node, v any, ctx *Context) error {
	switch t := target.(type) {
	case *Ident:
		if ctx.set(t.Name, v) {
			return nil
		}
		if e.scope == nil {
			return &ReferenceError{Name: t.Name}
		}
		e.scope.Assign(t.Name, v)
		return nil
	case *Member:
		obj, err := e.eval(t.Object, ctx)
		if err != nil {
			return err
		}
		key, err := e.memberKey(t, ctx)
		if err != nil {
			return err
		}
		switch o := obj.(type) {
		case map[string]any:
			o[ToString(key)] = v
		case []any:
			idx := ToNumber(key)
			if math.IsNaN(idx) || idx < 0 || idx != math.Trunc(idx) {
				return typeErrorf("invalid index %v", key)
			}
			if idx >= float64(len(o)) {
				if err := CheckLength(idx+1, "array length"); err != nil {
					return err
				}
			}
			i := int(idx)
			switch {
			case i < len(o):
				o[i] = v
			default:
				grown := make([]any, i+1)
				copy(grown, o)
				grown[i] = v
				return e.assignTo(t.Object, grown, ctx)
			}
		case nil:
			return typeErrorf("cannot set property %v of undefined", key)
		default:
			return typeErrorf("cannot set property %v on %s", key, TypeOf(obj))
		}
		if root := rootName(t); root != "" && e.scope != nil && !ctx.Has(root) {
			e.scope.Touch(root)
		} else if e.scope != nil {
			e.scope.Touch("")
		}
		return nil
	}
	return typeErrorf("invalid assignment target")
}

func (e *Evaluator) call(n *Call, ctx *Context) (any, error) {
	args := make([]any, 0, len(n.Args))
	for _, a := range n.Args {
		v, err := e.eval(a, ctx)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	if m, ok := n.Callee.(*Member); ok {
		recv, err := e.eval(m.Object, ctx)
		if err != nil {
			return nil, err
		}
		if recv == nil && m.Optional {
			return nil, nil
		}
		key, err := e.memberKey(m, ctx)
		if err != nil {
			return nil, err
		}
		name := ToString(key)
		if s, ok := recv.([]any); ok && mutatingArrayMethods[name] {
			result, next, err := e.mutateArray(s, name, args)
			if err != nil {
				return nil, err
			}
			if isTarget(m.Object) {
				if err := e.assignTo(m.Object, next, ctx); err != nil {
					return nil, err
				}
			}
			return result, nil
		}
		fn, err := getMember(recv, name)
		if err != nil {
			return nil, err
		}
		if fn == nil {
			return nil, typeErrorf("%s is not a function", name)
		}
		return e.invoke(fn, args)
	}

	fn, err := e.eval(n.Callee, ctx)
	if err != nil {
		return nil, err
	}
	return e.invoke(fn, args)
}

func (e *Evaluator) invoke(fn any, args []any) (any, error) {
	switch f := fn.(type) {
	case Func:
		return f(args...)
	case func(args ...any) (any, error):
		return f(args...)
	case *closure:
		vars := make(map[string]any, len(f.params))
		for i, p := range f.params {
			if i < len(args) {
				vars[p] = args[i]
			} else {
				vars[p] = nil
			}
		}
		return f.e.eval(f.body, f.ctx.Fork("", vars))
	case boundMethod:
		return e.callMethod(f.recv, f.name, args)
	}
	return nil, typeErrorf("%s is not a function", TypeOf(fn))
}

var pathPattern = regexp.MustCompile(`^[A-Za-z_$][\w$]*(\.[A-Za-z_$][\w$]*|\[\d+\])*$`)

// IsPath reports whether src is a bare identifier or dotted path.
func IsPath(src string) bool {
	return pathPattern.MatchString(strings.TrimSpace(src))
}

// AssignPath writes value through a dotted path, creating missing
// intermediate objects.
func (e *Evaluator) AssignPath(path string, value any, ctx *Context) (err error) {
	n, err := e.parse(strings.TrimSpace(path))
	if err != nil {
		return err
	}
	if !isTarget(n) {
		return typeErrorf("%q is not assignable", path)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("assigning %q: %v", path, r)
		}
	}()
	if m, ok := n.(*Member); ok {
		if err := e.ensureObject(m.Object, ctx); err != nil {
			return err
		}
	}
	return e.assignTo(n, value, ctx)
}

func (e *Evaluator) ensureObject(n Node, ctx *Context) error {
	v, err := e.eval(n, ctx)
	if err != nil {
		if _, ok := err.(*ReferenceError); !ok {
			return err
		}
	}
	if v != nil {
		return nil
	}
	if m, ok := n.(*Member); ok {
		if err := e.ensureObject(m.Object, ctx); err != nil {
			return err
		}
	}
	return e.assignTo(n, map[string]any{}, ctx)
}
