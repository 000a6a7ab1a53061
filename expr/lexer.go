package expr

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

type tokenKind uint8

const (
	tEOF tokenKind = iota
	tIdent
	tNumber
	tString
	tPunct
)

type token struct {
	kind tokenKind
	text string // identifier name, punctuator, or raw lexeme
	num  float64
	str  string // decoded string literal
	pos  int
	end  int
}

func (t token) is(punct string) bool {
	return t.kind == tPunct && t.text == punct
}

// longest first
var punctuators = []string{
	"===", "!==", "**=", "...",
	"==", "!=", "<=", ">=", "&&", "||", "??", "?.", "=>", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "**",
	"(", ")", "[", "]", "{", "}", ",", ".", ";", ":", "?",
	"+", "-", "*", "/", "%", "<", ">", "=", "!",
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			toks = append(toks, token{kind: tIdent, text: src[start:i], pos: start, end: i})
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			for i < len(src) && isDigit(src[i]) {
				i++
			}
			if i < len(src) && src[i] == '.' {
				i++
				for i < len(src) && isDigit(src[i]) {
					i++
				}
			}
			if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
				j := i + 1
				if j < len(src) && (src[j] == '+' || src[j] == '-') {
					j++
				}
				if j < len(src) && isDigit(src[j]) {
					i = j
					for i < len(src) && isDigit(src[i]) {
						i++
					}
				}
			}
			n, err := strconv.ParseFloat(src[start:i], 64)
			if err != nil {
				return toks, &SyntaxError{Expr: src, Pos: start, Msg: "invalid number " + src[start:i]}
			}
			toks = append(toks, token{kind: tNumber, text: src[start:i], num: n, pos: start, end: i})
		case c == '"' || c == '\'' || c == '`':
			s, end, err := lexString(src, i)
			if err != nil {
				return toks, err
			}
			toks = append(toks, token{kind: tString, text: src[i:end], str: s, pos: i, end: end})
			i = end
		default:
			matched := ""
			for _, p := range punctuators {
				if strings.HasPrefix(src[i:], p) {
					matched = p
					break
				}
			}
			// a?.5:1 is a ternary, not optional chaining
			if matched == "?." && i+2 < len(src) && isDigit(src[i+2]) {
				matched = "?"
			}
			if matched == "" {
				r, _ := utf8.DecodeRuneInString(src[i:])
				return toks, &SyntaxError{Expr: src, Pos: i, Msg: "unexpected character " + strconv.QuoteRune(r)}
			}
			toks = append(toks, token{kind: tPunct, text: matched, pos: i, end: i + len(matched)})
			i += len(matched)
		}
	}
	toks = append(toks, token{kind: tEOF, pos: len(src), end: len(src)})
	return toks, nil
}

func lexString(src string, start int) (string, int, error) {
	quote := src[start]
	var sb strings.Builder
	i := start + 1
	for i < len(src) {
		c := src[i]
		switch {
		case c == quote:
			return sb.String(), i + 1, nil
		case c == '\\' && i+1 < len(src):
			i++
			switch esc := src[i]; esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case 'u':
				if i+4 < len(src) {
					if r, err := strconv.ParseUint(src[i+1:i+5], 16, 32); err == nil {
						sb.WriteRune(rune(r))
						i += 4
						break
					}
				}
				sb.WriteByte('u')
			default:
				sb.WriteByte(esc)
			}
			i++
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return "", len(src), &SyntaxError{Expr: src, Pos: start, Msg: "unterminated string"}
}
