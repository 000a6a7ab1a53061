package expr

type Node interface {
	isNode()
}

type (
	Literal struct {
		Value any
	}

	Ident struct {
		Name string
	}

	// Member covers a.b, a?.b and a[b]. Computed is set for the bracket form.
	Member struct {
		Object   Node
		Prop     string
		Computed Node
		Optional bool
	}

	Call struct {
		Callee Node
		Args   []Node
	}

	Unary struct {
		Op string
		X  Node
	}

	Binary struct {
		Op          string
		Left, Right Node
	}

	// Logical short-circuits: &&, || and ??.
	Logical struct {
		Op          string
		Left, Right Node
	}

	Cond struct {
		Test, Then, Else Node
	}

	Assign struct {
		Op     string
		Target Node
		Value  Node
	}

	Update struct {
		Op     string
		Prefix bool
		Target Node
	}

	ArrayLit struct {
		Elems []Node
	}

	ObjectLit struct {
		Keys   []string
		Values []Node
	}

	Arrow struct {
		Params []string
		Body   Node
	}

	Seq struct {
		List []Node
	}
)

func (*Literal) isNode()   {}
func (*Ident) isNode()     {}
func (*Member) isNode()    {}
func (*Call) isNode()      {}
func (*Unary) isNode()     {}
func (*Binary) isNode()    {}
func (*Logical) isNode()   {}
func (*Cond) isNode()      {}
func (*Assign) isNode()    {}
func (*Update) isNode()    {}
func (*ArrayLit) isNode()  {}
func (*ObjectLit) isNode() {}
func (*Arrow) isNode()     {}
func (*Seq) isNode()       {}

func isTarget(n Node) bool {
	switch n.(type) {
	case *Ident, *Member:
		return true
	}
	return false
}

// rootName returns the identifier at the base of a member chain.
func rootName(n Node) string {
	for {
		switch x := n.(type) {
		case *Ident:
			return x.Name
		case *Member:
			n = x.Object
		case *Call:
			n = x.Callee
		default:
			return ""
		}
	}
}
