package tmpl

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// InitScriptType marks script elements whose body seeds state.
const InitScriptType = "text/init"

// Parse reads an HTML fragment (or a whole document, whose body is used) and
// builds the node arena. Attributes starting with prefix become directives.
func Parse(markup string, prefix string) (*Template, error) {
	return ParseReader(strings.NewReader(markup), prefix)
}

func ParseReader(r io.Reader, prefix string) (*Template, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(r, body)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}

	t := &Template{Prefix: prefix}
	root := t.add(&Node{Kind: ElementNode})
	t.Root = root.ID
	for _, hn := range nodes {
		if err := t.build(root, hn); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Template) build(parent *Node, hn *html.Node) error {
	switch hn.Type {
	case html.TextNode:
		if strings.TrimSpace(hn.Data) == "" {
			return nil
		}
		n := t.add(&Node{Kind: TextNode, Text: hn.Data})
		parent.Children = append(parent.Children, n.ID)
		return nil

	case html.ElementNode:
		switch hn.DataAtom {
		case atom.Script:
			if strings.EqualFold(attr(hn, "type"), InitScriptType) {
				t.InitBlocks = append(t.InitBlocks, textOf(hn))
				return nil
			}
			return t.raw(parent, hn)
		case atom.Style:
			return t.raw(parent, hn)
		}
		n := t.add(&Node{Kind: ElementNode, Tag: hn.Data})
		parent.Children = append(parent.Children, n.ID)
		for _, a := range hn.Attr {
			if name, event, ok := splitDirective(t.Prefix, a.Key); ok {
				if event != "" {
					n.SubDirectives = append(n.SubDirectives, SubDirective{Name: name, Event: event, Expr: a.Val})
				} else {
					n.Directives = append(n.Directives, Directive{Name: name, Expr: a.Val})
				}
				continue
			}
			n.Attrs = append(n.Attrs, Attr{Name: a.Key, Value: a.Val})
		}
		for c := hn.FirstChild; c != nil; c = c.NextSibling {
			if err := t.build(n, c); err != nil {
				return err
			}
		}
		return nil

	case html.DocumentNode:
		for c := hn.FirstChild; c != nil; c = c.NextSibling {
			if err := t.build(parent, c); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Template) raw(parent *Node, hn *html.Node) error {
	var buf bytes.Buffer
	if err := html.Render(&buf, hn); err != nil {
		return fmt.Errorf("rendering raw <%s>: %w", hn.Data, err)
	}
	n := t.add(&Node{Kind: RawNode, Tag: hn.Data, Text: buf.String()})
	parent.Children = append(parent.Children, n.ID)
	return nil
}

func attr(hn *html.Node, key string) string {
	for _, a := range hn.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(hn *html.Node) string {
	var sb strings.Builder
	for c := hn.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(sb.String())
}
