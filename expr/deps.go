package expr

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// identifiers that never name state
var denylist = mapset.NewThreadUnsafeSet(
	"true", "false", "null", "undefined", "typeof", "in", "of", "new", "this",
	"return", "let", "const", "var", "if", "else", "for", "while", "function",
	"Math", "JSON", "Object", "Array", "String", "Number", "Boolean", "Date",
	"parseInt", "parseFloat", "isNaN", "isFinite", "Infinity", "NaN",
	"window", "document", "console", "$event", "$el", "$result", "$index",
)

// IsReserved reports whether name belongs to the language or its globals.
func IsReserved(name string) bool {
	return denylist.Contains(name)
}

// Dependencies lists the root identifiers src reads, in first-seen order.
// Property names, object keys, arrow parameters and reserved names are
// skipped. Unlexable input yields whatever was scanned before the error.
func Dependencies(src string) []string {
	toks, _ := lex(src)
	params := arrowParamNames(toks)

	var (
		deps   []string
		seen   = mapset.NewThreadUnsafeSet[string]()
		braces []bool // true when the brace opens an object literal
	)
	for i, t := range toks {
		switch {
		case t.is("{"):
			braces = append(braces, true)
			continue
		case t.is("}"):
			if len(braces) > 0 {
				braces = braces[:len(braces)-1]
			}
			continue
		case t.kind != tIdent:
			continue
		}
		if i > 0 && (toks[i-1].is(".") || toks[i-1].is("?.")) {
			continue
		}
		inObject := len(braces) > 0 && braces[len(braces)-1]
		if inObject && i > 0 && (toks[i-1].is("{") || toks[i-1].is(",")) && i+1 < len(toks) && toks[i+1].is(":") {
			continue
		}
		if denylist.Contains(t.text) || params.Contains(t.text) {
			continue
		}
		if seen.Add(t.text) {
			deps = append(deps, t.text)
		}
	}
	return deps
}

func arrowParamNames(toks []token) mapset.Set[string] {
	params := mapset.NewThreadUnsafeSet[string]()
	for i, t := range toks {
		if !t.is("=>") || i == 0 {
			continue
		}
		prev := toks[i-1]
		if prev.kind == tIdent {
			params.Add(prev.text)
			continue
		}
		if !prev.is(")") {
			continue
		}
		for j := i - 2; j >= 0 && !toks[j].is("("); j-- {
			if toks[j].kind == tIdent {
				params.Add(toks[j].text)
			}
		}
	}
	return params
}

// IsMultiStatement reports whether src holds more than one statement.
func IsMultiStatement(src string) bool {
	return len(SplitStatements(src)) > 1
}

// SplitStatements cuts src at top-level ';' and ',' and between
// whitespace-separated assignments ("a = 1 b = 2"). Strings, brackets and
// arrow bodies are never split. Unlexable input is returned whole.
func SplitStatements(src string) []string {
	toks, err := lex(src)
	if err != nil {
		if s := strings.TrimSpace(src); s != "" {
			return []string{s}
		}
		return nil
	}

	var (
		out     []string
		depth   int
		inArrow bool
		start   = 0
	)
	cut := func(end, next int) {
		if s := strings.TrimSpace(src[start:end]); s != "" {
			out = append(out, s)
		}
		start = next
	}

	for i, t := range toks {
		if t.kind == tEOF {
			break
		}
		switch {
		case t.is("(") || t.is("[") || t.is("{"):
			depth++
			continue
		case t.is(")") || t.is("]") || t.is("}"):
			depth--
			continue
		}
		if depth != 0 {
			continue
		}
		switch {
		case t.is("=>"):
			inArrow = true
		case t.is(";"):
			inArrow = false
			cut(t.pos, t.end)
		case t.is(",") && !inArrow:
			cut(t.pos, t.end)
		case i > 0 && t.kind == tIdent && t.pos > start && endsOperand(toks[i-1]) && startsAssignment(toks, i):
			inArrow = false
			cut(t.pos, t.pos)
		}
	}
	cut(len(src), len(src))
	return out
}

func endsOperand(t token) bool {
	switch t.kind {
	case tNumber, tString:
		return true
	case tIdent:
		return t.text != "typeof"
	}
	return t.is(")") || t.is("]") || t.is("}") || t.is("++") || t.is("--")
}

// startsAssignment reports whether the member chain at i is followed by an
// assignment or update operator.
func startsAssignment(toks []token, i int) bool {
	j := i + 1
	for j < len(toks) {
		switch {
		case (toks[j].is(".") || toks[j].is("?.")) && j+1 < len(toks) && toks[j+1].kind == tIdent:
			j += 2
		case toks[j].is("["):
			depth := 0
			for ; j < len(toks); j++ {
				if toks[j].is("[") {
					depth++
				} else if toks[j].is("]") {
					depth--
					if depth == 0 {
						break
					}
				}
			}
			j++
		default:
			t := toks[j]
			return t.kind == tPunct && (assignOps[t.text] || t.text == "++" || t.text == "--")
		}
	}
	return false
}
