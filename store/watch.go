package store

// Firing is how often a watcher runs: Reactive{} on every real change, or
// &OneShot{} at most once until watchers are re-enabled.
type Firing interface {
	isFiring()
}

type Reactive struct{}

type OneShot struct {
	fired bool
}

func (Reactive) isFiring()  {}
func (*OneShot) isFiring()  {}
func (o *OneShot) Fired() bool { return o.fired }

// WatchFunc receives the new and previous value of a top-level key.
type WatchFunc func(value, previous any)

type subscription struct {
	id     uint64
	fn     WatchFunc
	firing Firing
}

// due reports whether the subscription should run now and records a one-shot
// firing.
func (s *subscription) due() bool {
	switch f := s.firing.(type) {
	case *OneShot:
		if f.fired {
			return false
		}
		f.fired = true
	}
	return true
}
