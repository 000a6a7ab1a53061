package expr

import "fmt"

type SyntaxError struct {
	Expr string
	Pos  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d in %q: %s", e.Pos, e.Expr, e.Msg)
}

type ReferenceError struct {
	Name string
}

func (e *ReferenceError) Error() string {
	return e.Name + " is not defined"
}

type TypeError struct {
	Msg string
}

func (e *TypeError) Error() string {
	return "type error: " + e.Msg
}

func typeErrorf(format string, args ...any) error {
	return &TypeError{Msg: fmt.Sprintf(format, args...)}
}

// MaxLength bounds arrays and strings that an expression can size with a
// number: index writes, repeat, padding and numeric loop sources.
const MaxLength = 1 << 20

type RangeError struct {
	Msg string
}

func (e *RangeError) Error() string {
	return "range error: " + e.Msg
}

// CheckLength fails when n is negative or above MaxLength.
func CheckLength(n float64, what string) error {
	if n < 0 || n > MaxLength {
		return &RangeError{Msg: fmt.Sprintf("%s %v is outside 0..%d", what, n, MaxLength)}
	}
	return nil
}
