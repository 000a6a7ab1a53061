// Package tmpl turns annotated markup into the immutable node arena the
// renderer walks. Directive attributes are split out of the plain attributes
// at parse time and node identity is an index into the arena, so per-render
// state never has to touch the template.
package tmpl

import (
	"slices"
	"strings"
)

const DefaultPrefix = "l-"

type Kind uint8

const (
	ElementNode Kind = iota
	TextNode
	RawNode
)

type Attr struct {
	Name  string
	Value string
}

// Directive is a node-level directive attribute, prefix stripped.
type Directive struct {
	Name string
	Expr string
}

// SubDirective is an event-scoped directive written as name:event.
type SubDirective struct {
	Name  string
	Event string
	Expr  string
}

type Node struct {
	ID   int
	Kind Kind
	Tag  string
	// Text holds text content or raw markup.
	Text string

	Attrs         []Attr
	Directives    []Directive
	SubDirectives []SubDirective
	Children      []int
}

func (n *Node) Directive(name string) (string, bool) {
	for _, d := range n.Directives {
		if d.Name == name {
			return d.Expr, true
		}
	}
	return "", false
}

func (n *Node) HasDirective(name string) bool {
	_, ok := n.Directive(name)
	return ok
}

// SubDirectivesFor returns the sub-directives named name in source order.
func (n *Node) SubDirectivesFor(name string) []SubDirective {
	var out []SubDirective
	for _, s := range n.SubDirectives {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// DirectiveMap copies the node-level directives into a map.
func (n *Node) DirectiveMap() map[string]string {
	m := make(map[string]string, len(n.Directives))
	for _, d := range n.Directives {
		m[d.Name] = d.Expr
	}
	return m
}

type Template struct {
	Prefix     string
	Nodes      []*Node
	Root       int
	InitBlocks []string
}

func (t *Template) Node(id int) *Node {
	if id < 0 || id >= len(t.Nodes) {
		return nil
	}
	return t.Nodes[id]
}

func (t *Template) RootNode() *Node {
	return t.Node(t.Root)
}

func (t *Template) Children(n *Node) []*Node {
	out := make([]*Node, 0, len(n.Children))
	for _, id := range n.Children {
		out = append(out, t.Nodes[id])
	}
	return out
}

// DirectiveNames lists every directive and sub-directive name used in the
// template, sorted and deduplicated.
func (t *Template) DirectiveNames() []string {
	var names []string
	for _, n := range t.Nodes {
		for _, d := range n.Directives {
			names = append(names, d.Name)
		}
		for _, s := range n.SubDirectives {
			names = append(names, s.Name)
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}

func (t *Template) add(n *Node) *Node {
	n.ID = len(t.Nodes)
	t.Nodes = append(t.Nodes, n)
	return n
}

// splitDirective classifies an attribute name. ok is false for plain
// attributes.
func splitDirective(prefix, attr string) (name, event string, ok bool) {
	if !strings.HasPrefix(attr, prefix) || len(attr) == len(prefix) {
		return "", "", false
	}
	rest := attr[len(prefix):]
	name, event, _ = strings.Cut(rest, ":")
	return name, event, name != ""
}
