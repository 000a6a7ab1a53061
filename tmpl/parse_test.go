package tmpl_test

import (
	"testing"

	"github.com/delaneyj/livedoc/tmpl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const todoMarkup = `
<script type="text/init">
  todos = []
  draft = ''
</script>
<style>.done { opacity: .5 }</style>
<form l-on:submit="add()">
  <input id="draft" l-model="draft" l-validate="required">
  <button l-click="todos.push(draft)" class="primary">Add {{draft}}</button>
</form>
<ul>
  <li l-for="todo in todos" l-class:done="todo.done">{todo.title}</li>
</ul>
`

func TestParseSplitsDirectives(t *testing.T) {
	tp, err := tmpl.Parse(todoMarkup, "")
	require.NoError(t, err)
	assert.Equal(t, tmpl.DefaultPrefix, tp.Prefix)
	assert.Equal(t, []string{"todos = []\n  draft = ''"}, tp.InitBlocks)

	root := tp.RootNode()
	kids := tp.Children(root)
	require.Len(t, kids, 3)
	assert.Equal(t, tmpl.RawNode, kids[0].Kind)
	assert.Contains(t, kids[0].Text, "<style>")

	form := kids[1]
	assert.Equal(t, "form", form.Tag)
	assert.Empty(t, form.Directives)
	assert.Equal(t, []tmpl.SubDirective{{Name: "on", Event: "submit", Expr: "add()"}}, form.SubDirectives)

	fields := tp.Children(form)
	require.Len(t, fields, 2)
	input := fields[0]
	assert.Equal(t, []tmpl.Attr{{Name: "id", Value: "draft"}}, input.Attrs)
	assert.Equal(t, []tmpl.Directive{
		{Name: "model", Expr: "draft"},
		{Name: "validate", Expr: "required"},
	}, input.Directives)

	button := fields[1]
	expr, ok := button.Directive("click")
	assert.True(t, ok)
	assert.Equal(t, "todos.push(draft)", expr)
	v, _ := button.Attr("class")
	assert.Equal(t, "primary", v)
	label := tp.Children(button)
	require.Len(t, label, 1)
	assert.Equal(t, tmpl.TextNode, label[0].Kind)
	assert.Equal(t, "Add {{draft}}", label[0].Text)

	li := tp.Children(kids[2])[0]
	assert.True(t, li.HasDirective("for"))
	assert.Len(t, li.SubDirectivesFor("class"), 1)
	assert.Equal(t, map[string]string{"for": "todo in todos"}, li.DirectiveMap())

	assert.Equal(t, []string{"class", "click", "for", "model", "on", "validate"}, tp.DirectiveNames())
}

func TestParseCustomPrefix(t *testing.T) {
	tp, err := tmpl.Parse(`<p x-text="msg" l-text="ignored">hi</p>`, "x-")
	require.NoError(t, err)
	p := tp.Children(tp.RootNode())[0]
	assert.Equal(t, []tmpl.Directive{{Name: "text", Expr: "msg"}}, p.Directives)
	assert.Equal(t, []tmpl.Attr{{Name: "l-text", Value: "ignored"}}, p.Attrs)
}

func TestParseWholeDocumentUsesBody(t *testing.T) {
	tp, err := tmpl.Parse(`<!doctype html><html><head><title>t</title></head><body><main l-if="ok">x</main></body></html>`, "l-")
	require.NoError(t, err)
	var tags []string
	for _, n := range tp.Nodes {
		if n.Kind == tmpl.ElementNode && n.Tag != "" {
			tags = append(tags, n.Tag)
		}
	}
	assert.Contains(t, tags, "main")
	assert.Nil(t, tp.Node(-1))
	assert.Nil(t, tp.Node(len(tp.Nodes)))
}
