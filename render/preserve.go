package render

import (
	"github.com/delaneyj/livedoc/dom"
)

// locator finds an element again after its subtree was rebuilt: by id when it
// has one, else by child-index path.
type locator struct {
	id   string
	path []int
	tag  string
}

func locate(el *dom.Element) locator {
	return locator{id: el.ID(), path: el.Path(), tag: el.Tag}
}

func (l locator) find(doc *dom.Document) *dom.Element {
	if l.id != "" {
		if el := doc.GetElementByID(l.id); el != nil {
			return el
		}
	}
	el := doc.Find(l.path)
	if el == nil || el.Kind != dom.ElementNode || el.Tag != l.tag {
		return nil
	}
	return el
}

type scroll struct {
	at        locator
	top, left int
}

type snapshot struct {
	focus    *locator
	selStart int
	selEnd   int
	scrolls  []scroll
}

func (r *Renderer) capture() snapshot {
	var snap snapshot
	doc := r.env.Doc
	if active := doc.Active; active != nil && r.mount.Contains(active) {
		at := locate(active)
		snap.focus = &at
		snap.selStart, snap.selEnd = active.SelectionStart, active.SelectionEnd
	}
	r.mount.Walk(func(n *dom.Element) bool {
		if n.Kind == dom.ElementNode && (n.ScrollTop != 0 || n.ScrollLeft != 0) {
			snap.scrolls = append(snap.scrolls, scroll{at: locate(n), top: n.ScrollTop, left: n.ScrollLeft})
		}
		return true
	})
	return snap
}

// restore re-applies a snapshot without firing focus or blur.
func (r *Renderer) restore(snap snapshot) {
	doc := r.env.Doc
	if snap.focus != nil {
		doc.Active = nil
		if el := snap.focus.find(doc); el != nil {
			doc.Active = el
			n := len(el.Value)
			el.SelectionStart = min(snap.selStart, n)
			el.SelectionEnd = min(snap.selEnd, n)
		}
	}
	for _, s := range snap.scrolls {
		if el := s.at.find(doc); el != nil {
			el.ScrollTop, el.ScrollLeft = s.top, s.left
		}
	}
}
