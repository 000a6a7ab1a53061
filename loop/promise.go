package loop

// Promise is a single-assignment result delivered on the loop. It must be
// settled from the loop goroutine; handlers always run as separate tasks.
type Promise struct {
	loop     *Loop
	settled  bool
	value    any
	err      error
	handlers []func(value any, err error)
}

func NewPromise(l *Loop) (p *Promise, resolve func(any), reject func(error)) {
	p = &Promise{loop: l}
	resolve = func(v any) { p.settle(v, nil) }
	reject = func(err error) { p.settle(nil, err) }
	return p, resolve, reject
}

func Resolved(l *Loop, v any) *Promise {
	p, resolve, _ := NewPromise(l)
	resolve(v)
	return p
}

func Rejected(l *Loop, err error) *Promise {
	p, _, reject := NewPromise(l)
	reject(err)
	return p
}

func (p *Promise) settle(v any, err error) {
	if p.settled {
		return
	}
	p.settled, p.value, p.err = true, v, err
	handlers := p.handlers
	p.handlers = nil
	for _, h := range handlers {
		p.dispatch(h)
	}
}

func (p *Promise) dispatch(h func(any, error)) {
	v, err := p.value, p.err
	p.loop.Post(func() { h(v, err) })
}

// Then registers fn to receive the outcome. Success and failure share the
// callback.
func (p *Promise) Then(fn func(value any, err error)) {
	if p.settled {
		p.dispatch(fn)
		return
	}
	p.handlers = append(p.handlers, fn)
}

func (p *Promise) Settled() bool {
	return p.settled
}

func (p *Promise) Result() (any, error) {
	return p.value, p.err
}
