package dom

import (
	"sort"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	ep "sveltec-go/packages/compiler/src/expression_parser"
	"sveltec-go/packages/compiler/src/output"
	"sveltec-go/packages/compiler/src/scope"
	"sveltec-go/packages/compiler/src/template"
	"sveltec-go/packages/compiler/src/util"
)

// componentProp is one attribute passed to a component or exposed by a slot.
type componentProp struct {
	name string
	node *template.Attribute
	deps mapset.Set[string]
}

func newComponentProp(r *Renderer, block *Block, node *template.Attribute) (*componentProp, error) {
	p := &componentProp{name: node.Name, node: node, deps: mapset.NewSet[string]()}
	for _, chunk := range node.Chunks {
		if !chunk.IsExpression() {
			continue
		}
		res, err := r.resolveIn(block, chunk.Expression)
		if err != nil {
			return nil, err
		}
		p.deps = p.deps.Union(res.Dependencies)
	}
	return p, nil
}

func (p *componentProp) value(r *Renderer, block *Block) output.OutputExpression {
	if p.node.IsTrue {
		return lit(true)
	}
	return concatChunks(r, block, p.node.Chunks)
}

// componentBinding is `bind:prop` or `bind:this` on a component.
type componentBinding struct {
	node     *template.Binding
	scope    *scope.Scope
	deps     mapset.Set[string]
	handler  string
	contexts []string
	updating string
}

// inlineComponentWrapper renders a nested component instance. Its children
// become the default slot.
type inlineComponentWrapper struct {
	wrapperBase
	node     *template.InlineComponent
	props    []*componentProp
	events   []*eventHandler
	bindings []*componentBinding
	lets     []*template.Directive

	slot     *Block
	fragment *fragment
}

func newInlineComponent(r *Renderer, block *Block, parent Wrapper, node *template.InlineComponent, strip bool, next Wrapper) (*inlineComponentWrapper, error) {
	w := &inlineComponentWrapper{
		wrapperBase: wrapperBase{r: r, block: block, parent: parent, name: strings.ToLower(util.SanitizeIdentifier(node.Name))},
		node:        node,
	}
	block.register(w)
	if _, err := r.resolveIn(block, &ep.Identifier{Name: strings.Split(node.Name, ".")[0]}); err != nil {
		return nil, err
	}

	v := &componentAttributes{w: w, block: block}
	for _, attr := range node.Attributes {
		if err := attr.VisitAttribute(v); err != nil {
			return nil, err
		}
	}
	block.AddOutro(false)

	if isEmptyFragment(node.Children) {
		return w, nil
	}
	w.slot = block.Child(BlockOptions{
		Name:    "create_default_slot",
		Type:    BlockSlot,
		Comment: r.comment(node),
	})
	if len(w.lets) > 0 {
		s := block.Scope.Extend(w.slot.Name)
		for _, d := range w.lets {
			alias := scope.LetAlias(d)
			r.resolver.CheckShadowing(block.Scope, alias, d.Span())
			// A let value changes when the slot passes a new one, which the
			// slot reports through its own dirty bit.
			deps := mapset.NewSet[string](alias)
			s.Declare(&scope.Binding{Name: alias, Kind: scope.BindingContextual, Dependencies: deps})
			r.contextual(alias)
		}
		w.slot.Scope = s
	}
	var err error
	if w.fragment, err = newFragment(r, w.slot, w, node.Children, strip, next); err != nil {
		return nil, err
	}
	return w, nil
}

// componentAttributes sorts the attributes of a component.
type componentAttributes struct {
	w     *inlineComponentWrapper
	block *Block
}

func (v *componentAttributes) VisitAttribute(attr *template.Attribute) error {
	p, err := newComponentProp(v.w.r, v.block, attr)
	if err != nil {
		return err
	}
	v.w.props = append(v.w.props, p)
	return nil
}

func (v *componentAttributes) VisitEventHandler(handler *template.EventHandler) error {
	h, err := newEventHandler(v.w.r, v.block, handler, true)
	if err != nil {
		return err
	}
	v.w.events = append(v.w.events, h)
	return nil
}

func (v *componentAttributes) VisitBinding(binding *template.Binding) error {
	r := v.w.r
	if _, err := checkBindingTarget(v.block.Scope, r, binding); err != nil {
		return err
	}
	res, err := r.resolveIn(v.block, binding.Expression)
	if err != nil {
		return err
	}
	b := &componentBinding{node: binding, scope: v.block.Scope, deps: res.Dependencies}
	write := &ep.AssignmentExpression{Operator: "=", Target: binding.Expression, Value: &ep.Identifier{Name: "value"}}
	b.contexts = handlerContexts(r, write, v.block.Scope, res.UsedContexts.ToSlice())
	if binding.Name == "this" {
		b.handler = r.handler(v.w.name + "_binding")
	} else {
		b.handler = r.handler(v.w.name + "_" + util.SanitizeIdentifier(binding.Name) + "_binding")
	}
	v.w.bindings = append(v.w.bindings, b)
	return nil
}

func (v *componentAttributes) VisitTransition(t *template.Transition) error {
	return util.Errorf(t.Span(), util.ErrInvalidAttribute, "Transitions can only be applied to DOM elements, not components")
}

func (v *componentAttributes) VisitClass(c *template.Class) error {
	return util.Errorf(c.Span(), util.ErrInvalidAttribute, "Classes can only be applied to DOM elements, not components")
}

func (v *componentAttributes) VisitDirective(d *template.Directive) error {
	if d.Type != "let" {
		return util.Errorf(d.Span(), util.ErrInvalidAttribute, "'%s' directives can only be applied to DOM elements, not components", d.Type)
	}
	v.w.lets = append(v.w.lets, d)
	return nil
}

func (w *inlineComponentWrapper) IsDOMNode() bool { return false }

// letFunctions builds the slot definition entries that map slot props to
// context slots and slot prop changes to dirty bits.
func (w *inlineComponentWrapper) letFunctions() (context, changes output.OutputExpression) {
	r := w.r
	names := make([]string, 0, len(w.lets))
	fields := make([]string, 0, len(w.lets))
	for _, d := range w.lets {
		alias := scope.LetAlias(d)
		names = append(names, alias)
		if alias == d.Name {
			fields = append(fields, alias)
		} else {
			fields = append(fields, d.Name+": "+alias)
		}
	}
	param := []*output.FnParam{{Pattern: "{ " + strings.Join(fields, ", ") + " }"}}

	entries := make([]*output.LiteralMapEntry, len(names))
	for i, name := range names {
		entries[i] = entry(strconv.Itoa(r.member(name).Index), ref(name))
	}
	context = arrow(param, object(entries...))

	words := map[int]output.OutputExpression{}
	var order []int
	for _, name := range names {
		m := r.member(name)
		word := m.Index / bitsPerWord
		term := output.NewConditionalExpr(ref(name), lit(1<<(m.Index%bitsPerWord)), lit(0), nil)
		if _, ok := words[word]; !ok {
			order = append(order, word)
			words[word] = term
			continue
		}
		words[word] = binary(output.BinaryOperatorBitwiseOr, words[word], term)
	}
	sort.Ints(order)
	if !r.ContextOverflow() {
		return context, arrow(param, words[0])
	}
	n := (len(r.members) + bitsPerWord - 1) / bitsPerWord
	list := make([]output.OutputExpression, n)
	for i := range list {
		list[i] = lit(0)
	}
	for _, word := range order {
		list[word] = words[word]
	}
	return context, arrow(param, array(list...))
}

func (w *inlineComponentWrapper) Render(block *Block, parentNode, parentNodes string) {
	r := w.r
	name := w.name
	if w.slot != nil {
		nodes := ""
		if r.options.Hydratable {
			nodes = r.ids.Nodes
		}
		w.fragment.Render(w.slot, "", nodes)
	}

	entries := make([]*output.LiteralMapEntry, 0, len(w.props)+2)
	for _, p := range w.props {
		entries = append(entries, entry(p.name, p.value(r, block)))
	}
	if w.slot != nil {
		definition := []output.OutputExpression{ref(w.slot.Name)}
		if len(w.lets) > 0 {
			context, changes := w.letFunctions()
			definition = append(definition, context, changes)
		}
		entries = append(entries,
			entry("$$slots", object(entry("default", array(definition...)))),
			entry("$$scope", object(entry("ctx", ref(r.ids.Ctx)))))
	}

	var valueBindings []*componentBinding
	var thisBinding *componentBinding
	for _, b := range w.bindings {
		if b.node.Name == "this" {
			thisBinding = b
		} else {
			valueBindings = append(valueBindings, b)
		}
	}

	block.AddVariable(name, nil)
	var props output.OutputExpression = object(entries...)
	if len(valueBindings) > 0 {
		propsName := block.UniqueName(name + "_props")
		block.Init.Add(let(propsName, props))
		for _, b := range valueBindings {
			value := r.snippet(block, b.node.Expression)
			block.Init.Add(when(notIdentical(value, output.NewUnaryOperatorExpr(output.UnaryOperatorVoid, lit(0), nil)),
				stmt(assign(prop(ref(propsName), b.node.Name), value))))
		}
		props = ref(propsName)
	}
	for _, b := range valueBindings {
		w.renderBinding(block, b)
	}
	block.Init.Add(stmt(assign(ref(name), output.NewInstantiateExpr(
		dottedReference(r, block, w.node.Name),
		[]output.OutputExpression{object(entry("props", props))}, nil))))
	for _, b := range valueBindings {
		block.Init.AddExpr(method(r.helper(BindingCallbacks), "push", arrow(nil,
			call(r.helper(Bind), ref(name), lit(b.node.Name), ref(b.handler)))))
	}
	if thisBinding != nil {
		w.renderThis(block, thisBinding)
	}
	for _, h := range w.events {
		listener := h.snippet(block)
		if h.has("once") {
			listener = call(r.helper(Once), listener)
		}
		block.Init.AddExpr(method(ref(name), "$on", lit(h.node.Name), listener))
	}

	fragment := prop(prop(ref(name), "$$"), "fragment")
	block.Create.AddExpr(call(r.helper(CreateComponent), fragment))
	if parentNodes != "" {
		block.Claim.AddExpr(call(r.helper(ClaimComponent), fragment, ref(parentNodes)))
	}
	if parentNode != "" {
		block.Mount.AddExpr(call(r.helper(MountComponent), ref(name), ref(parentNode), null()))
	} else {
		block.Mount.AddExpr(call(r.helper(MountComponent), ref(name), ref(r.ids.Target), ref(r.ids.Anchor)))
	}

	w.renderUpdate(block, name, valueBindings)

	block.Intro.AddExpr(call(r.helper(TransitionIn), fragment, ref(r.ids.Local)))
	block.Outro.AddExpr(call(r.helper(TransitionOut), fragment, ref(r.ids.Local)))
	if parentNode != "" {
		block.Destroy.AddExpr(call(r.helper(DestroyComponent), ref(name)))
	} else {
		block.Destroy.AddExpr(call(r.helper(DestroyComponent), ref(name), ref(r.ids.Detaching)))
	}
}

// renderUpdate passes changed props with $set. Bound props are guarded by
// their updating flag so that a value the child just reported is not sent
// back to it.
func (w *inlineComponentWrapper) renderUpdate(block *Block, name string, bindings []*componentBinding) {
	r := w.r
	changes := block.UniqueName(name + "_changes")
	var body []output.OutputStatement
	for _, p := range w.props {
		if p.deps.Cardinality() == 0 {
			continue
		}
		body = append(body, when(r.dirtySet(p.deps), stmt(assign(prop(ref(changes), p.name), p.value(r, block)))))
	}
	if w.slot != nil {
		deps := mapset.NewSet[string]("$$scope")
		w.slot.Dependencies.Each(func(d string) bool {
			deps.Add(d)
			return false
		})
		body = append(body, when(r.dirtySet(deps), stmt(assign(prop(ref(changes), "$$scope"),
			object(entry("dirty", ref(r.ids.Dirty)), entry("ctx", ref(r.ids.Ctx)))))))
	}
	for _, b := range bindings {
		var guard output.OutputExpression = not(ref(b.updating))
		if b.deps.Cardinality() > 0 {
			guard = and(guard, r.dirtySet(b.deps))
		}
		body = append(body, when(guard,
			stmt(assign(ref(b.updating), lit(true))),
			stmt(assign(prop(ref(changes), b.node.Name), r.snippet(block, b.node.Expression))),
			stmt(call(r.helper(AddFlushCallback), arrow(nil, assign(ref(b.updating), lit(false)))))))
	}
	if len(body) == 0 {
		return
	}
	block.Update.Add(constant(changes, object()))
	block.Update.Add(body...)
	block.Update.AddExpr(method(ref(name), "$set", ref(changes)))
}

// renderBinding declares the instance callback that writes a bound prop
// back and the block function the child calls with the new value.
func (w *inlineComponentWrapper) renderBinding(block *Block, b *componentBinding) {
	r := w.r
	b.updating = block.UniqueName("updating_" + util.SanitizeIdentifier(b.node.Name))
	block.AddVariable(b.updating, nil)

	names := r.sortedByIndex(b.contexts)
	r.instance = append(r.instance, declareFunction(b.handler, params(append([]string{"value"}, names...)...),
		stmt(r.instanceAssign(b.scope, b.node.Expression, ref("value")))))

	args := []output.OutputExpression{ref("value")}
	for _, name := range names {
		args = append(args, r.reference(name))
	}
	if len(names) > 0 {
		block.MaintainContext = true
	}
	block.Init.Add(declareFunction(b.handler, params("value"), stmt(call(r.reference(b.handler), args...))))
}

// renderThis hands the instance to the parent once created and null once
// destroyed.
func (w *inlineComponentWrapper) renderThis(block *Block, b *componentBinding) {
	r := w.r
	names := r.sortedByIndex(b.contexts)
	value := "$$value"
	r.instance = append(r.instance, declareFunction(b.handler, params(append([]string{value}, names...)...),
		stmt(call(index(r.helper(BindingCallbacks), output.NewConditionalExpr(ref(value), lit("unshift"), lit("push"), nil)),
			arrow(nil, statements(stmt(r.instanceAssign(b.scope, b.node.Expression, ref(value)))))))))

	args := make([]output.OutputExpression, 0, len(names))
	for _, name := range names {
		args = append(args, r.reference(name))
	}
	if len(names) > 0 {
		block.MaintainContext = true
	}
	block.Init.AddExpr(call(r.reference(b.handler), append([]output.OutputExpression{ref(w.name)}, args...)...))
	block.Destroy.AddExpr(call(r.reference(b.handler), append([]output.OutputExpression{null()}, args...)...))
}
