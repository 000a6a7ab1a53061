package app

import (
	"github.com/delaneyj/livedoc/directive"
	"github.com/delaneyj/livedoc/expr"
	"github.com/delaneyj/livedoc/store"
)

// Router keeps $page and a linear history in step. Writes to $page made
// anywhere else are recorded as navigations too.
type Router struct {
	store   *store.Store
	history []string
	pos     int
	moving  bool
}

func newRouter(s *store.Store, start string) *Router {
	r := &Router{store: s, history: []string{start}}
	s.Watch(directive.PageKey, func(v, _ any) {
		if r.moving {
			return
		}
		page := expr.ToString(v)
		if page != r.Current() {
			r.push(page)
		}
	}, store.Reactive{})
	return r
}

func (r *Router) Current() string {
	return r.history[r.pos]
}

func (r *Router) History() []string {
	return append([]string(nil), r.history[:r.pos+1]...)
}

// Navigate pushes page and makes it current.
func (r *Router) Navigate(page string) {
	if page == "" || page == r.Current() {
		return
	}
	r.push(page)
	r.write()
}

func (r *Router) push(page string) {
	r.history = append(r.history[:r.pos+1], page)
	r.pos++
}

func (r *Router) Back() bool {
	if r.pos == 0 {
		return false
	}
	r.pos--
	r.write()
	return true
}

func (r *Router) Forward() bool {
	if r.pos+1 >= len(r.history) {
		return false
	}
	r.pos++
	r.write()
	return true
}

func (r *Router) write() {
	r.moving = true
	r.store.Set(directive.PageKey, r.Current())
	r.moving = false
}
