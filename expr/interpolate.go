package expr

import (
	"regexp"
	"strings"
)

// {{expr}}, [{expr}] and {expr}, tried in that order at each position
var interpolation = regexp.MustCompile(`\{\{\s*(.+?)\s*\}\}|\[\{\s*(.+?)\s*\}\]|\{\s*([^{}]+?)\s*\}`)

func HasInterpolation(text string) bool {
	return interpolation.MatchString(text)
}

// Interpolate substitutes every embedded expression in text.
func (e *Evaluator) Interpolate(text string, ctx *Context) string {
	matches := interpolation.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}
	var sb strings.Builder
	last := 0
	for _, m := range matches {
		sb.WriteString(text[last:m[0]])
		for g := 1; g <= 3; g++ {
			if m[2*g] >= 0 {
				sb.WriteString(ToString(e.Evaluate(text[m[2*g]:m[2*g+1]], ctx)))
				break
			}
		}
		last = m[1]
	}
	sb.WriteString(text[last:])
	return sb.String()
}
