package dom

import (
	"io"

	qt "github.com/valyala/quicktemplate"
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true, "img": true,
	"input": true, "link": true, "meta": true, "source": true, "track": true, "wbr": true,
}

// StreamHTML serialises n and its subtree, reflecting live display, value and
// checked state into attributes.
func StreamHTML(qw *qt.Writer, n *Element) {
	switch n.Kind {
	case TextNode:
		qw.E().S(n.Data)
	case RawNode:
		qw.N().S(n.Data)
	case CommentNode:
		qw.N().S(`<!--`)
		qw.N().S(n.Data)
		qw.N().S(`-->`)
	case ElementNode:
		streamElement(qw, n)
	}
}

func streamElement(qw *qt.Writer, n *Element) {
	qw.N().S(`<`)
	qw.N().S(n.Tag)

	hasStyle := false
	for _, a := range n.attrs {
		v := a.Value
		switch a.Name {
		case "style":
			hasStyle = true
			if n.Style.Display != "" {
				if v != "" {
					v += ";"
				}
				v += "display:" + n.Style.Display
			}
		case "value":
			if n.IsFormControl() {
				continue
			}
		case "checked":
			continue
		}
		streamAttr(qw, a.Name, v)
	}
	if !hasStyle && n.Style.Display != "" {
		streamAttr(qw, "style", "display:"+n.Style.Display)
	}
	if n.Tag == "input" {
		if n.Value != "" {
			streamAttr(qw, "value", n.Value)
		}
		if n.Checked {
			qw.N().S(` checked`)
		}
	}
	qw.N().S(`>`)

	if voidElements[n.Tag] {
		return
	}
	if n.Tag == "textarea" {
		qw.E().S(n.Value)
	} else {
		for _, c := range n.Children {
			StreamHTML(qw, c)
		}
	}
	qw.N().S(`</`)
	qw.N().S(n.Tag)
	qw.N().S(`>`)
}

func streamAttr(qw *qt.Writer, name, value string) {
	qw.N().S(` `)
	qw.N().S(name)
	qw.N().S(`="`)
	qw.E().S(value)
	qw.N().S(`"`)
}

func WriteHTML(w io.Writer, n *Element) {
	qw := qt.AcquireWriter(w)
	StreamHTML(qw, n)
	qt.ReleaseWriter(qw)
}

// HTML is the serialised markup of n.
func HTML(n *Element) string {
	bb := qt.AcquireByteBuffer()
	WriteHTML(bb, n)
	s := string(bb.B)
	qt.ReleaseByteBuffer(bb)
	return s
}

// InnerHTML serialises the children of n.
func InnerHTML(n *Element) string {
	bb := qt.AcquireByteBuffer()
	qw := qt.AcquireWriter(bb)
	for _, c := range n.Children {
		StreamHTML(qw, c)
	}
	qt.ReleaseWriter(qw)
	s := string(bb.B)
	qt.ReleaseByteBuffer(bb)
	return s
}
