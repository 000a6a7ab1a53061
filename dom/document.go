package dom

import (
	"strings"
)

type Document struct {
	Body   *Element
	Active *Element
}

func NewDocument() *Document {
	d := &Document{}
	d.Body = d.CreateElement("body")
	return d
}

func (d *Document) CreateElement(tag string) *Element {
	return &Element{Kind: ElementNode, Tag: strings.ToLower(tag), doc: d}
}

func (d *Document) CreateText(s string) *Element {
	return &Element{Kind: TextNode, Data: s, doc: d}
}

func (d *Document) CreateComment(s string) *Element {
	return &Element{Kind: CommentNode, Data: s, doc: d}
}

// CreateRaw makes a leaf whose markup is emitted verbatim.
func (d *Document) CreateRaw(markup string) *Element {
	return &Element{Kind: RawNode, Data: markup, doc: d}
}

// Find follows a child-index path from the body. It returns nil when the path
// no longer exists.
func (d *Document) Find(path []int) *Element {
	n := d.Body
	for _, i := range path {
		if i < 0 || i >= len(n.Children) {
			return nil
		}
		n = n.Children[i]
	}
	return n
}

func (d *Document) GetElementByID(id string) *Element {
	return d.Body.QuerySelector("#" + id)
}

// QuerySelector supports single simple selectors: #id, tag, [attr] and
// [attr=value].
func (e *Element) QuerySelector(sel string) *Element {
	all := e.querySelector(sel, true)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

func (e *Element) QuerySelectorAll(sel string) []*Element {
	return e.querySelector(sel, false)
}

func (e *Element) querySelector(sel string, first bool) []*Element {
	match := compileSelector(strings.TrimSpace(sel))
	var out []*Element
	for _, c := range e.Children {
		c.Walk(func(n *Element) bool {
			if n.Kind == ElementNode && match(n) {
				out = append(out, n)
				return !first
			}
			return true
		})
		if first && len(out) > 0 {
			break
		}
	}
	return out
}

func compileSelector(sel string) func(*Element) bool {
	switch {
	case sel == "":
		return func(*Element) bool { return false }
	case strings.HasPrefix(sel, "#"):
		id := sel[1:]
		return func(n *Element) bool { return n.ID() == id }
	case strings.HasPrefix(sel, ".") && len(sel) > 1:
		class := sel[1:]
		return func(n *Element) bool { return n.HasClass(class) }
	case strings.HasPrefix(sel, "[") && strings.HasSuffix(sel, "]"):
		inner := sel[1 : len(sel)-1]
		name, value, hasValue := strings.Cut(inner, "=")
		value = strings.Trim(value, `"'`)
		return func(n *Element) bool {
			v, ok := n.Attr(name)
			return ok && (!hasValue || v == value)
		}
	default:
		tag := strings.ToLower(sel)
		return func(n *Element) bool { return n.Tag == tag }
	}
}
