package directive

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/delaneyj/livedoc/completion"
	"github.com/delaneyj/livedoc/dom"
	"github.com/delaneyj/livedoc/expr"
	"github.com/delaneyj/livedoc/tmpl"
)

const ValidationKey = "$validation"

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-().]{7,}$`)
)

// Rule checks one non-empty value.
type Rule struct {
	Name  string
	Check func(string) bool
}

// ParseRules reads a comma separated rule list. [pattern] and regex:pattern
// take a regular expression; regex: consumes the rest of the list.
func ParseRules(src string) ([]Rule, error) {
	var rules []Rule
	rest := strings.TrimSpace(src)
	for rest != "" {
		var tok string
		switch {
		case strings.HasPrefix(rest, "["):
			end := strings.LastIndex(rest, "]")
			if next := strings.Index(rest, "],"); next >= 0 {
				end = next
			}
			if end < 0 {
				return nil, fmt.Errorf("unterminated pattern in %q", src)
			}
			re, err := regexp.Compile(rest[1:end])
			if err != nil {
				return nil, fmt.Errorf("pattern %q: %w", rest[1:end], err)
			}
			rules = append(rules, Rule{Name: "pattern", Check: re.MatchString})
			rest = strings.TrimPrefix(strings.TrimSpace(rest[end+1:]), ",")
			rest = strings.TrimSpace(rest)
			continue
		case strings.HasPrefix(rest, "regex:"):
			tok, rest = rest, ""
		default:
			tok, rest, _ = strings.Cut(rest, ",")
			rest = strings.TrimSpace(rest)
		}
		r, err := parseRule(strings.TrimSpace(tok))
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func parseRule(tok string) (Rule, error) {
	name, arg, _ := strings.Cut(tok, ":")
	switch name {
	case "required":
		return Rule{Name: name, Check: func(s string) bool { return strings.TrimSpace(s) != "" }}, nil
	case "minLength", "maxLength":
		n, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil {
			return Rule{}, fmt.Errorf("%s needs a number: %w", name, err)
		}
		if name == "minLength" {
			return Rule{Name: name, Check: func(s string) bool { return len([]rune(s)) >= n }}, nil
		}
		return Rule{Name: name, Check: func(s string) bool { return len([]rune(s)) <= n }}, nil
	case "email":
		return Rule{Name: name, Check: emailPattern.MatchString}, nil
	case "phone":
		return Rule{Name: name, Check: phonePattern.MatchString}, nil
	case "password":
		return Rule{Name: name, Check: strongPassword}, nil
	case "regex":
		re, err := regexp.Compile(arg)
		if err != nil {
			return Rule{}, fmt.Errorf("regex %q: %w", arg, err)
		}
		return Rule{Name: name, Check: re.MatchString}, nil
	}
	return Rule{}, fmt.Errorf("unknown validation rule %q", name)
}

// strongPassword wants eight characters mixing letters and digits.
func strongPassword(s string) bool {
	var letter, digit bool
	for _, r := range s {
		letter = letter || unicode.IsLetter(r)
		digit = digit || unicode.IsDigit(r)
	}
	return len([]rune(s)) >= 8 && letter && digit
}

// Validate is the tri-state result for value: nil while empty, otherwise
// whether every rule passes.
func Validate(rules []Rule, value string) any {
	if value == "" {
		return nil
	}
	for _, r := range rules {
		if !r.Check(value) {
			return false
		}
	}
	return true
}

type validate struct {
	nop
	env *Env
}

func (d *validate) Apply(node *tmpl.Node, ctx *expr.Context, el *dom.Element, _ *completion.Listener) error {
	src, _ := node.Directive("validate")
	rules, err := ParseRules(src)
	if err != nil {
		return err
	}
	path, ok := node.Directive("model")
	if !ok {
		path = el.GetAttr("name")
	}
	path = strings.TrimSpace(path)
	if !expr.IsPath(path) {
		return fmt.Errorf("validate needs l-model or a name attribute")
	}
	target := ValidationKey + "." + path

	mark := func(result any) {
		el.ToggleClass("valid", result == true)
		el.ToggleClass("invalid", result == false)
	}
	mark(d.env.Eval.Evaluate(target, nil))

	check := func(*dom.Event) {
		result := Validate(rules, el.Value)
		if err := d.env.Eval.AssignPath(target, result, nil); err != nil {
			d.env.report(el, "validate", err)
			return
		}
		mark(result)
	}
	el.AddEventListener("input", check)
	el.AddEventListener("blur", check)
	return nil
}
