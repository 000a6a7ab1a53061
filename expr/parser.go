package expr

import "fmt"

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true, "**=": true,
}

var binaryPrec = map[string]int{
	"??": 1,
	"||": 2,
	"&&": 3,
	"==": 4, "!=": 4, "===": 4, "!==": 4,
	"<": 5, ">": 5, "<=": 5, ">=": 5,
	"+": 6, "-": 6,
	"*": 7, "/": 7, "%": 7,
	"**": 8,
}

type parser struct {
	src        string
	toks       []token
	pos        int
	allowArrow bool
}

// Parse turns src into an AST. Statements may be separated by ';', ',' or,
// after an assignment, plain whitespace.
func Parse(src string) (Node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	return p.parseProgram()
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(offset int) token {
	i := p.pos + offset
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Expr: p.src, Pos: p.peek().pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(punct string) error {
	if !p.peek().is(punct) {
		return p.errorf("expected %q, found %s", punct, describe(p.peek()))
	}
	p.next()
	return nil
}

func describe(t token) string {
	if t.kind == tEOF {
		return "end of expression"
	}
	return fmt.Sprintf("%q", t.text)
}

func (p *parser) parseProgram() (Node, error) {
	var list []Node
	for p.peek().kind != tEOF {
		if p.peek().is(";") || p.peek().is(",") {
			p.next()
			continue
		}
		n, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		list = append(list, n)

		t := p.peek()
		if t.kind == tEOF || t.is(";") || t.is(",") {
			continue
		}
		switch n.(type) {
		case *Assign, *Update, *Call:
			// "a = 1 b = 2" juxtaposes statements
		default:
			return nil, p.errorf("unexpected %s", describe(t))
		}
	}
	switch len(list) {
	case 0:
		return &Literal{}, nil
	case 1:
		return list[0], nil
	default:
		return &Seq{List: list}, nil
	}
}

func (p *parser) parseAssign() (Node, error) {
	allowArrow := p.allowArrow
	p.allowArrow = false

	if params, ok := p.arrowParams(); ok {
		if !allowArrow {
			return nil, p.errorf("arrow functions are only allowed as callback arguments")
		}
		return p.parseArrow(params)
	}

	left, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.kind == tPunct && assignOps[t.text] {
		if !isTarget(left) {
			return nil, p.errorf("invalid assignment target")
		}
		p.next()
		right, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		return &Assign{Op: t.text, Target: left, Value: right}, nil
	}
	return left, nil
}

// arrowParams looks ahead for `x =>` or `(a, b) =>` without consuming.
func (p *parser) arrowParams() ([]string, bool) {
	t := p.peek()
	if t.kind == tIdent && p.peekAt(1).is("=>") {
		return []string{t.text}, true
	}
	if !t.is("(") {
		return nil, false
	}
	var params []string
	i := 1
	for {
		tok := p.peekAt(i)
		if tok.is(")") {
			break
		}
		if tok.kind != tIdent {
			return nil, false
		}
		params = append(params, tok.text)
		i++
		if p.peekAt(i).is(",") {
			i++
			continue
		}
		if !p.peekAt(i).is(")") {
			return nil, false
		}
	}
	if !p.peekAt(i + 1).is("=>") {
		return nil, false
	}
	return params, true
}

func (p *parser) parseArrow(params []string) (Node, error) {
	for !p.peek().is("=>") {
		p.next()
	}
	p.next()
	if p.peek().is("{") {
		return nil, p.errorf("block arrow bodies are not supported")
	}
	body, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	return &Arrow{Params: params, Body: body}, nil
}

func (p *parser) parseConditional() (Node, error) {
	test, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if !p.peek().is("?") {
		return test, nil
	}
	p.next()
	then, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	els, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	return &Cond{Test: test, Then: then, Else: els}, nil
}

func (p *parser) parseBinary(minPrec int) (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tPunct {
			return left, nil
		}
		prec, ok := binaryPrec[t.text]
		if !ok || prec < minPrec {
			return left, nil
		}
		p.next()
		nextMin := prec + 1
		if t.text == "**" {
			nextMin = prec
		}
		right, err := p.parseBinary(nextMin)
		if err != nil {
			return nil, err
		}
		switch t.text {
		case "&&", "||", "??":
			left = &Logical{Op: t.text, Left: left, Right: right}
		default:
			left = &Binary{Op: t.text, Left: left, Right: right}
		}
	}
}

func (p *parser) parseUnary() (Node, error) {
	t := p.peek()
	switch {
	case t.is("!") || t.is("-") || t.is("+"):
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: t.text, X: x}, nil
	case t.kind == tIdent && t.text == "typeof":
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: "typeof", X: x}, nil
	case t.is("++") || t.is("--"):
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if !isTarget(x) {
			return nil, p.errorf("invalid %s operand", t.text)
		}
		return &Update{Op: t.text, Prefix: true, Target: x}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Node, error) {
	n, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		switch {
		case t.is("."):
			p.next()
			name := p.next()
			if name.kind != tIdent {
				return nil, p.errorf("expected property name after '.'")
			}
			n = &Member{Object: n, Prop: name.text}
		case t.is("?."):
			p.next()
			if p.peek().is("[") {
				p.next()
				idx, err := p.parseAssign()
				if err != nil {
					return nil, err
				}
				if err := p.expect("]"); err != nil {
					return nil, err
				}
				n = &Member{Object: n, Computed: idx, Optional: true}
				continue
			}
			name := p.next()
			if name.kind != tIdent {
				return nil, p.errorf("expected property name after '?.'")
			}
			n = &Member{Object: n, Prop: name.text, Optional: true}
		case t.is("["):
			p.next()
			idx, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			n = &Member{Object: n, Computed: idx}
		case t.is("("):
			p.next()
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			n = &Call{Callee: n, Args: args}
		case t.is("++") || t.is("--"):
			if !isTarget(n) {
				return nil, p.errorf("invalid %s operand", t.text)
			}
			p.next()
			return &Update{Op: t.text, Target: n}, nil
		default:
			return n, nil
		}
	}
}

func (p *parser) parseArgs() ([]Node, error) {
	var args []Node
	for !p.peek().is(")") {
		p.allowArrow = true
		arg, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.peek().is(",") {
			p.next()
			continue
		}
		if !p.peek().is(")") {
			return nil, p.errorf("expected ',' or ')' in arguments, found %s", describe(p.peek()))
		}
	}
	p.next()
	return args, nil
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.next()
	switch t.kind {
	case tNumber:
		return &Literal{Value: t.num}, nil
	case tString:
		return &Literal{Value: t.str}, nil
	case tIdent:
		switch t.text {
		case "true":
			return &Literal{Value: true}, nil
		case "false":
			return &Literal{Value: false}, nil
		case "null", "undefined":
			return &Literal{}, nil
		}
		return &Ident{Name: t.text}, nil
	case tEOF:
		return nil, &SyntaxError{Expr: p.src, Pos: t.pos, Msg: "unexpected end of expression"}
	}

	switch t.text {
	case "(":
		n, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return n, nil
	case "[":
		arr := &ArrayLit{}
		for !p.peek().is("]") {
			el, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			arr.Elems = append(arr.Elems, el)
			if p.peek().is(",") {
				p.next()
				continue
			}
			if !p.peek().is("]") {
				return nil, p.errorf("expected ',' or ']' in array, found %s", describe(p.peek()))
			}
		}
		p.next()
		return arr, nil
	case "{":
		return p.parseObject()
	}
	return nil, &SyntaxError{Expr: p.src, Pos: t.pos, Msg: "unexpected " + describe(t)}
}

func (p *parser) parseObject() (Node, error) {
	obj := &ObjectLit{}
	for !p.peek().is("}") {
		k := p.next()
		var key string
		switch k.kind {
		case tIdent:
			key = k.text
		case tString:
			key = k.str
		case tNumber:
			key = k.text
		default:
			return nil, p.errorf("invalid object key %s", describe(k))
		}
		var val Node
		if p.peek().is(":") {
			p.next()
			v, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			val = v
		} else if k.kind == tIdent {
			val = &Ident{Name: key}
		} else {
			return nil, p.errorf("expected ':' after object key")
		}
		obj.Keys = append(obj.Keys, key)
		obj.Values = append(obj.Values, val)
		if p.peek().is(",") {
			p.next()
			continue
		}
		if !p.peek().is("}") {
			return nil, p.errorf("expected ',' or '}' in object, found %s", describe(p.peek()))
		}
	}
	p.next()
	return obj, nil
}
