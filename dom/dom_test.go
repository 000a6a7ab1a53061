package dom_test

import (
	"testing"

	"github.com/delaneyj/livedoc/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T) (*dom.Document, *dom.Element, *dom.Element) {
	t.Helper()
	d := dom.NewDocument()
	list := d.CreateElement("ul")
	list.SetAttr("id", "todos")
	for _, s := range []string{"a", "b", "c"} {
		li := d.CreateElement("li")
		li.SetText(s)
		list.AppendChild(li)
	}
	input := d.CreateElement("input")
	input.SetAttr("name", "title")
	d.Body.AppendChild(list, input)
	return d, list, input
}

func TestTreeEditing(t *testing.T) {
	d, list, _ := sample(t)
	assert.Equal(t, "abc", list.TextContent())

	b := list.Children[1]
	assert.Equal(t, []int{0, 1}, b.Path())
	assert.Same(t, b, d.Find([]int{0, 1}))
	assert.Nil(t, d.Find([]int{0, 9}))

	banner := d.CreateElement("div")
	banner.SetText("oops")
	b.InsertAfter(banner)
	assert.Equal(t, "aboopsc", list.TextContent())
	assert.Equal(t, 2, banner.Index())

	banner.Remove()
	assert.Equal(t, -1, banner.Index())
	assert.Len(t, list.Children, 3)

	list.ReplaceChildren(d.CreateText("empty"))
	assert.Equal(t, "empty", list.TextContent())
	assert.Nil(t, b.Parent)
}

func TestQuerySelector(t *testing.T) {
	d, list, input := sample(t)
	input.ToggleClass("wide", true)

	assert.Same(t, list, d.GetElementByID("todos"))
	assert.Same(t, input, d.Body.QuerySelector("input"))
	assert.Same(t, input, d.Body.QuerySelector("[name=title]"))
	assert.Same(t, input, d.Body.QuerySelector(".wide"))
	assert.Len(t, d.Body.QuerySelectorAll("li"), 3)
	assert.Nil(t, d.Body.QuerySelector("#missing"))
}

func TestEventsBubbleAndFocus(t *testing.T) {
	d, list, input := sample(t)
	var seen []string
	list.AddEventListener("click", func(ev *dom.Event) { seen = append(seen, "list:"+ev.Target.TextContent()) })
	d.Body.AddEventListener("click", func(*dom.Event) { seen = append(seen, "body") })
	list.Children[0].Click()
	assert.Equal(t, []string{"list:a", "body"}, seen)

	var focus []string
	input.AddEventListener("focus", func(*dom.Event) { focus = append(focus, "focus") })
	input.AddEventListener("blur", func(*dom.Event) { focus = append(focus, "blur") })
	input.Focus()
	assert.Same(t, input, d.Active)
	list.Focus()
	assert.Equal(t, []string{"focus", "blur"}, focus)
}

func TestHTMLReflectsLiveState(t *testing.T) {
	d := dom.NewDocument()
	p := d.CreateElement("p")
	p.SetAttr("class", "note")
	p.SetText(`1 < 2 & "x"`)
	p.Style.Display = "none"

	box := d.CreateElement("input")
	box.SetAttr("type", "checkbox")
	box.Checked = true

	d.Body.AppendChild(p, box, d.CreateRaw("<b>raw</b>"), d.CreateComment("c"))
	out := dom.InnerHTML(d.Body)
	assert.Equal(t,
		`<p class="note" style="display:none">1 &lt; 2 &amp; &quot;x&quot;</p>`+
			`<input type="checkbox" checked><b>raw</b><!--c-->`,
		out)

	require.Equal(t, "<body>"+out+"</body>", dom.HTML(d.Body))
	assert.True(t, p.Hidden())
}

func TestToggleClass(t *testing.T) {
	d := dom.NewDocument()
	el := d.CreateElement("div")
	el.ToggleClass("a", true)
	el.ToggleClass("b", true)
	el.ToggleClass("a", false)
	assert.Equal(t, "b", el.GetAttr("class"))
	el.ToggleClass("b", false)
	assert.False(t, el.HasAttr("class"))
}
