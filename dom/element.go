// Package dom is the headless document livedoc renders into: a plain tree of
// elements with the handful of browser behaviours the runtime relies on
// (attributes, display, form values, selection, scroll, focus and events).
package dom

import (
	"slices"
	"strings"
)

type Kind uint8

const (
	ElementNode Kind = iota
	TextNode
	CommentNode
	RawNode
)

func (k Kind) String() string {
	switch k {
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	case RawNode:
		return "raw"
	default:
		return "unknown"
	}
}

type Attr struct {
	Name  string
	Value string
}

type Style struct {
	Display string
}

type Element struct {
	Kind Kind
	Tag  string
	// Data is the content of text, comment and raw nodes.
	Data string

	Style   Style
	Value   string
	Checked bool

	SelectionStart int
	SelectionEnd   int
	ScrollTop      int
	ScrollLeft     int

	Parent   *Element
	Children []*Element

	attrs     []Attr
	listeners map[string][]Listener
	doc       *Document
}

func (e *Element) Document() *Document {
	return e.doc
}

func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func (e *Element) GetAttr(name string) string {
	v, _ := e.Attr(name)
	return v
}

func (e *Element) HasAttr(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

func (e *Element) SetAttr(name, value string) {
	for i, a := range e.attrs {
		if a.Name == name {
			e.attrs[i].Value = value
			return
		}
	}
	e.attrs = append(e.attrs, Attr{Name: name, Value: value})
	if name == "value" && e.Value == "" {
		e.Value = value
	}
}

func (e *Element) RemoveAttr(name string) {
	e.attrs = slices.DeleteFunc(e.attrs, func(a Attr) bool { return a.Name == name })
}

// Attrs returns the attributes in insertion order.
func (e *Element) Attrs() []Attr {
	return slices.Clone(e.attrs)
}

func (e *Element) ID() string {
	return e.GetAttr("id")
}

func (e *Element) Classes() []string {
	return strings.Fields(e.GetAttr("class"))
}

func (e *Element) HasClass(name string) bool {
	return slices.Contains(e.Classes(), name)
}

func (e *Element) ToggleClass(name string, on bool) {
	classes := e.Classes()
	has := slices.Contains(classes, name)
	switch {
	case on && !has:
		classes = append(classes, name)
	case !on && has:
		classes = slices.DeleteFunc(classes, func(c string) bool { return c == name })
	default:
		return
	}
	if len(classes) == 0 {
		e.RemoveAttr("class")
		return
	}
	e.SetAttr("class", strings.Join(classes, " "))
}

// Hidden reports whether display is none on e or any ancestor.
func (e *Element) Hidden() bool {
	for n := e; n != nil; n = n.Parent {
		if n.Style.Display == "none" {
			return true
		}
	}
	return false
}

// IsFormControl reports whether e carries a value the user can edit.
func (e *Element) IsFormControl() bool {
	switch e.Tag {
	case "input", "textarea", "select":
		return true
	}
	return false
}

// InputType is the lowercased type attribute of an input, "text" by default.
func (e *Element) InputType() string {
	if e.Tag != "input" {
		return ""
	}
	t := strings.ToLower(e.GetAttr("type"))
	if t == "" {
		return "text"
	}
	return t
}

func (e *Element) AppendChild(children ...*Element) {
	for _, c := range children {
		if c == nil {
			continue
		}
		c.detach()
		c.Parent = e
		e.Children = append(e.Children, c)
	}
}

// InsertAfter places nodes directly after e in its parent.
func (e *Element) InsertAfter(nodes ...*Element) {
	if e.Parent == nil {
		return
	}
	p := e.Parent
	for _, n := range nodes {
		n.detach()
	}
	at := e.Index() + 1
	for i, n := range nodes {
		n.Parent = p
		p.Children = slices.Insert(p.Children, at+i, n)
	}
}

// ReplaceChildren drops the current children and adopts children.
func (e *Element) ReplaceChildren(children ...*Element) {
	for _, c := range e.Children {
		c.Parent = nil
	}
	e.Children = nil
	e.AppendChild(children...)
}

func (e *Element) Remove() {
	e.detach()
}

func (e *Element) detach() {
	if e.Parent == nil {
		return
	}
	p := e.Parent
	if i := e.Index(); i >= 0 {
		p.Children = slices.Delete(p.Children, i, i+1)
	}
	e.Parent = nil
}

// Index is e's position among its parent's children, -1 when detached.
func (e *Element) Index() int {
	if e.Parent == nil {
		return -1
	}
	return slices.Index(e.Parent.Children, e)
}

// Path is the child-index route from the document body to e.
func (e *Element) Path() []int {
	var path []int
	for n := e; n.Parent != nil; n = n.Parent {
		path = append(path, n.Index())
	}
	slices.Reverse(path)
	return path
}

// Contains reports whether other is e or one of its descendants.
func (e *Element) Contains(other *Element) bool {
	for n := other; n != nil; n = n.Parent {
		if n == e {
			return true
		}
	}
	return false
}

func (e *Element) TextContent() string {
	switch e.Kind {
	case TextNode, RawNode:
		return e.Data
	case CommentNode:
		return ""
	}
	var sb strings.Builder
	e.Walk(func(n *Element) bool {
		if n.Kind == TextNode {
			sb.WriteString(n.Data)
		}
		return true
	})
	return sb.String()
}

// SetText replaces the children of e with a single text node.
func (e *Element) SetText(s string) {
	if e.Kind == TextNode {
		e.Data = s
		return
	}
	e.ReplaceChildren(e.doc.CreateText(s))
}

// Walk visits e and its descendants depth first until fn returns false.
func (e *Element) Walk(fn func(*Element) bool) bool {
	if !fn(e) {
		return false
	}
	for _, c := range slices.Clone(e.Children) {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}
