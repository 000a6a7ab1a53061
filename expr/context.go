package expr

// Context is the ephemeral scope layered over state for one render subtree.
// Loop variables, $event and arrow parameters live here; nothing in a
// Context is ever persisted or observed.
type Context struct {
	parent *Context
	vars   map[string]any
	key    string
}

func NewContext(vars map[string]any) *Context {
	if vars == nil {
		vars = map[string]any{}
	}
	return &Context{vars: vars}
}

// Fork layers vars over c. A non-empty key extends the iteration identity.
func (c *Context) Fork(key string, vars map[string]any) *Context {
	if vars == nil {
		vars = map[string]any{}
	}
	child := &Context{parent: c, vars: vars}
	switch {
	case c == nil:
		child.key = key
	case key == "":
		child.key = c.key
	default:
		child.key = c.key + "/" + key
	}
	return child
}

// Key identifies the loop iteration this context belongs to.
func (c *Context) Key() string {
	if c == nil {
		return ""
	}
	return c.key
}

func (c *Context) Lookup(name string) (any, bool) {
	for f := c; f != nil; f = f.parent {
		if v, ok := f.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (c *Context) Has(name string) bool {
	_, ok := c.Lookup(name)
	return ok
}

// set rebinds name in the frame that owns it.
func (c *Context) set(name string, v any) bool {
	for f := c; f != nil; f = f.parent {
		if _, ok := f.vars[name]; ok {
			f.vars[name] = v
			return true
		}
	}
	return false
}

// Vars flattens the chain, inner frames winning.
func (c *Context) Vars() map[string]any {
	out := map[string]any{}
	var frames []*Context
	for f := c; f != nil; f = f.parent {
		frames = append(frames, f)
	}
	for i := len(frames) - 1; i >= 0; i-- {
		for k, v := range frames[i].vars {
			out[k] = v
		}
	}
	return out
}
