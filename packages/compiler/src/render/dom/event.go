package dom

import (
	"strings"

	ep "sveltec-go/packages/compiler/src/expression_parser"
	"sveltec-go/packages/compiler/src/output"
	"sveltec-go/packages/compiler/src/scope"
	"sveltec-go/packages/compiler/src/template"
	"sveltec-go/packages/compiler/src/util"
)

type handlerKind int

const (
	// handlerDirect passes the expression as the listener.
	handlerDirect handlerKind = iota
	// handlerDynamic calls through a wrapper because the handler may be
	// replaced.
	handlerDynamic
	// handlerForward re-dispatches the event on the component.
	handlerForward
	// handlerHoisted is an arrow function that reads no instance state,
	// declared once at module level.
	handlerHoisted
	// handlerInstance is an arrow function declared in the instance and
	// read from the context.
	handlerInstance
)

var validModifiers = map[string]bool{
	"preventDefault":  true,
	"stopPropagation": true,
	"once":            true,
	"capture":         true,
	"passive":         true,
	"nonpassive":      true,
	"self":            true,
	"trusted":         true,
}

// listenerOptions are the modifiers passed to addEventListener. Order is
// fixed so that output is stable.
var listenerOptions = []string{"nonpassive", "passive", "once", "capture"}

// eventHandler is one on: directive of an element or component.
type eventHandler struct {
	r     *Renderer
	node  *template.EventHandler
	scope *scope.Scope
	kind  handlerKind
	// name is the instance or module function, when there is one.
	name string
	// contexts are the contextual names a handler declared in the instance
	// receives from the block, including each list and index aliases.
	contexts []string
}

func newEventHandler(r *Renderer, block *Block, node *template.EventHandler, component bool) (*eventHandler, error) {
	h := &eventHandler{r: r, node: node, scope: block.Scope}
	for _, m := range node.Modifiers {
		if !validModifiers[m] {
			return nil, util.Errorf(node.Span(), util.ErrInvalidAttribute,
				"Valid event modifiers are preventDefault, stopPropagation, capture, once, passive, nonpassive, self or trusted")
		}
		if component && m != "once" {
			return nil, util.Errorf(node.Span(), util.ErrInvalidAttribute, "Event modifiers other than 'once' can only be used on DOM elements")
		}
	}
	if h.has("passive") && (h.has("preventDefault") || h.has("nonpassive")) {
		return nil, util.Errorf(node.Span(), util.ErrInvalidAttribute, "The 'passive' modifier cannot be used with 'preventDefault' or 'nonpassive'")
	}

	base := util.SanitizeIdentifier(node.Name) + "_handler"
	switch expr := node.Expression.(type) {
	case nil:
		h.kind = handlerForward
		h.name = r.handler(base)
	case *ep.ArrowFunction:
		// The body runs later, so its reads do not make the block dynamic.
		res, err := r.resolver.Resolve(expr, block.Scope)
		if err != nil {
			return nil, err
		}
		h.contexts = handlerContexts(r, expr, block.Scope, res.UsedContexts.ToSlice())
		if len(h.contexts) == 0 && !readsInstance(expr, block.Scope) {
			h.kind = handlerHoisted
			h.name = r.names.UniqueName(base, false)
			break
		}
		h.kind = handlerInstance
		h.name = r.handler(base)
	default:
		res, err := r.resolveIn(block, expr)
		if err != nil {
			return nil, err
		}
		if res.Dependencies.Cardinality() > 0 {
			h.kind = handlerDynamic
		}
	}
	return h, nil
}

// handlerContexts adds the each list and index aliases that direct writes
// to contexts in expr need.
func handlerContexts(r *Renderer, expr ep.Expression, s *scope.Scope, used []string) []string {
	seen := make(map[string]bool, len(used))
	out := make([]string, 0, len(used))
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, name := range used {
		add(name)
	}
	for _, b := range directContextWrites(expr, s) {
		if list, idx := r.requireEachAliases(b.Owner); list != "" {
			add(list)
			add(idx)
		}
	}
	return out
}

// readsInstance reports whether expr uses a name that only exists inside
// the instance function.
func readsInstance(expr ep.Expression, s *scope.Scope) bool {
	for _, name := range freeNames(expr) {
		if b := s.Lookup(name); b != nil && b.Kind != scope.BindingModule {
			return true
		}
	}
	return false
}

func (h *eventHandler) has(modifier string) bool {
	for _, m := range h.node.Modifiers {
		if m == modifier {
			return true
		}
	}
	return false
}

// declare adds the module or instance function of the handler. It runs at
// render time, when context indices are known.
func (h *eventHandler) declare() {
	r := h.r
	switch h.kind {
	case handlerForward:
		r.instance = append(r.instance, declareFunction(h.name, params("event"),
			stmt(method(r.helper(Bubble), "call", ref("this"), ref("$$self"), ref("event")))))
	case handlerHoisted:
		r.hoisted = append(r.hoisted, constant(h.name, r.instanceSnippet(r.root, h.node.Expression)))
	case handlerInstance:
		fn := r.instanceSnippet(h.scope, h.node.Expression).(*output.ArrowFunctionExpr)
		if len(h.contexts) > 0 {
			fn.Params = append(params(r.sortedByIndex(h.contexts)...), fn.Params...)
		}
		r.instance = append(r.instance, constant(h.name, fn))
	}
}

// snippet is the listener expression inside block. Handlers that take
// contexts get a block-local trampoline passing the current values.
func (h *eventHandler) snippet(block *Block) output.OutputExpression {
	r := h.r
	h.declare()
	var out output.OutputExpression
	switch h.kind {
	case handlerForward:
		out = r.reference(h.name)
	case handlerHoisted:
		out = ref(h.name)
	case handlerInstance:
		if len(h.contexts) == 0 {
			out = r.reference(h.name)
			break
		}
		block.MaintainContext = true
		args := make([]output.OutputExpression, 0, len(h.contexts)+1)
		for _, name := range r.sortedByIndex(h.contexts) {
			args = append(args, r.reference(name))
		}
		var fnParams []*output.FnParam
		if fn := h.node.Expression.(*ep.ArrowFunction); len(fn.Params) > 0 {
			fnParams = []*output.FnParam{{Pattern: "...args"}}
			args = append(args, output.NewSpreadExpr(ref("args"), nil))
		}
		block.Init.Add(declareFunction(h.name, fnParams, ret(call(r.reference(h.name), args...))))
		out = ref(h.name)
	case handlerDynamic:
		block.MaintainContext = true
		snippet := r.snippet(block, h.node.Expression)
		out = function(nil, when(call(r.helper(IsFunction), snippet),
			stmt(method(snippet, "apply", ref("this"), ref("arguments")))))
	default:
		out = r.snippet(block, h.node.Expression)
	}

	for _, m := range []struct{ modifier, helper string }{
		{"preventDefault", PreventDefault},
		{"stopPropagation", StopPropagation},
		{"self", Self},
		{"trusted", Trusted},
	} {
		if h.has(m.modifier) {
			out = call(r.helper(m.helper), out)
		}
	}
	return out
}

// options is the third argument of listen, or nil.
func (h *eventHandler) options() output.OutputExpression {
	var opts []string
	for _, o := range listenerOptions {
		if h.has(o) {
			opts = append(opts, o)
		}
	}
	switch {
	case len(opts) == 0:
		return nil
	case len(opts) == 1 && opts[0] == "capture":
		return lit(true)
	}
	entries := make([]*output.LiteralMapEntry, 0, len(opts))
	for _, o := range opts {
		if o == "nonpassive" {
			entries = append(entries, entry("passive", lit(false)))
		} else {
			entries = append(entries, entry(o, lit(true)))
		}
	}
	return object(entries...)
}

// listen attaches the handler to a DOM node.
func (h *eventHandler) listen(block *Block, target output.OutputExpression) {
	args := []output.OutputExpression{target, lit(h.node.Name), h.snippet(block)}
	if opts := h.options(); opts != nil {
		args = append(args, opts)
	}
	block.AddEvent(call(h.r.helper(Listen), args...))
}

// dottedReference reads a possibly dotted directive name such as
// `use:tooltip.show` from block.
func dottedReference(r *Renderer, block *Block, name string) output.OutputExpression {
	parts := strings.Split(name, ".")
	out := r.snippet(block, &ep.Identifier{Name: parts[0]})
	for _, p := range parts[1:] {
		out = prop(out, p)
	}
	return out
}
