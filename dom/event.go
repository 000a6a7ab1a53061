package dom

type Event struct {
	Type   string
	Target *Element
	// Current is the element whose listener is running.
	Current *Element
	Data    any

	stopped bool
}

func (ev *Event) StopPropagation() {
	ev.stopped = true
}

type Listener func(*Event)

func (e *Element) AddEventListener(typ string, fn Listener) {
	if e.listeners == nil {
		e.listeners = map[string][]Listener{}
	}
	e.listeners[typ] = append(e.listeners[typ], fn)
}

func (e *Element) ListenerCount(typ string) int {
	return len(e.listeners[typ])
}

// Dispatch runs the listeners of e and then of each ancestor until one stops
// propagation. Focus and blur do not bubble.
func (e *Element) Dispatch(ev *Event) {
	if ev.Target == nil {
		ev.Target = e
	}
	for n := e; n != nil; n = n.Parent {
		ev.Current = n
		for _, fn := range append([]Listener(nil), n.listeners[ev.Type]...) {
			fn(ev)
		}
		if ev.stopped || ev.Type == "focus" || ev.Type == "blur" {
			return
		}
	}
}

// Focus makes e the active element, blurring the previous one.
func (e *Element) Focus() {
	if e.doc == nil || e.doc.Active == e {
		return
	}
	if prev := e.doc.Active; prev != nil {
		e.doc.Active = nil
		prev.Dispatch(&Event{Type: "blur"})
	}
	e.doc.Active = e
	e.Dispatch(&Event{Type: "focus"})
}

func (e *Element) Blur() {
	if e.doc == nil || e.doc.Active != e {
		return
	}
	e.doc.Active = nil
	e.Dispatch(&Event{Type: "blur"})
}

func (e *Element) Click() {
	e.Dispatch(&Event{Type: "click"})
}

// Input sets the control's value as a user would and fires input.
func (e *Element) Input(value string) {
	e.Value = value
	e.SelectionStart, e.SelectionEnd = len(value), len(value)
	e.Dispatch(&Event{Type: "input"})
}

// Change commits the current value and fires change.
func (e *Element) Change() {
	e.Dispatch(&Event{Type: "change"})
}

// SetChecked toggles a checkbox or radio and fires change.
func (e *Element) SetChecked(on bool) {
	e.Checked = on
	e.Dispatch(&Event{Type: "change"})
}

func (e *Element) Hover() {
	e.Dispatch(&Event{Type: "mouseenter"})
}
