package directive

// Builtins is a registry holding the full directive vocabulary. Registration
// order is application order.
func Builtins(env *Env) *Registry {
	r := NewRegistry(env)

	r.Register("if", "Render the element only while the expression is truthy.", structural{})
	r.Register("unless", "Render the element only while the expression is falsy.", structural{})
	r.Register("page", "Render only when $page matches one of the comma separated pages.", structural{})
	r.Register("for", `Repeat the element: "item in list" or "index, item in list". Optional key.`, structural{})
	r.Register("switch", "Render the first child whose case matches the value, else the default child.", structural{})

	r.Register("show", "Display the element while the expression is truthy.", &display{env: env, name: "show", show: true})
	r.Register("hide", "Hide the element while the expression is truthy.", &display{env: env, name: "hide", show: false})

	r.Register("model", "Two-way bind a form control to a state path.", &model{env: env})
	r.Register("validate", "Validate the bound value: required, minLength:n, maxLength:n, email, phone, password, regex:re, [re].", &validate{env: env})

	r.Register("text", "Replace the element's content with the expression as text.", &text{env: env})
	r.Register("html", "Replace the element's content with the expression as markup.", &rawHTML{env: env})
	r.Register("bind", "bind:<attr> sets an attribute from the expression.", &bind{env: env})
	r.Register("class", "class:<name> toggles a class while the expression is truthy.", &class{env: env})

	for _, name := range []string{"click", "focus", "blur", "change", "input", "hover"} {
		r.Register(name, "Run the expression on "+name+".", &eventHandler{env: env, name: name})
	}
	r.Register("on", "on:<event> runs the expression when the event fires.", &on{env: env})

	r.Register("fetch", "Load a URL into state; fetch:<event> loads on an event. Uses into, method, body, headers and error.", &fetchResource{env: env})
	r.Register("watch", "When the condition turns true, run an expression or navigate, after an optional delay.", newAutomation(env))

	r.Register("then", "Run once every directive on the element has finished; $result holds the last value.", &followUp{name: "then"})
	r.Register("finally", "Run after then, once the settle delay has passed.", &followUp{name: "finally"})
	return r
}
