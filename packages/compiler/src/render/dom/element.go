package dom

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	ep "sveltec-go/packages/compiler/src/expression_parser"
	"sveltec-go/packages/compiler/src/output"
	"sveltec-go/packages/compiler/src/template"
	"sveltec-go/packages/compiler/src/util"
)

// valueDirective is a class: or style: directive, or an action.
type valueDirective struct {
	name string
	expr ep.Expression
	deps mapset.Set[string]
}

// elementWrapper renders a DOM element with its attributes and directives.
type elementWrapper struct {
	wrapperBase
	node     *template.Element
	fragment *fragment

	attrs []*attributeWrapper
	// directives render in source order after the attributes: event
	// listeners, bindings and actions. bind:this always comes last.
	directives []func(block *Block)
	bindThis   *bindingWrapper
	classes    []*valueDirective
	styles     []*valueDirective
	intro      *template.Transition
	outro      *template.Transition
	animation  *template.Directive

	// static is set while nothing in the subtree needs code beyond its
	// initial markup.
	static bool
	// innerHTML is set when the children are created from markup.
	innerHTML bool
}

func newElement(r *Renderer, block *Block, parent Wrapper, node *template.Element, strip bool, next Wrapper) (*elementWrapper, error) {
	w := &elementWrapper{
		wrapperBase: wrapperBase{r: r, block: block, parent: parent, name: util.SanitizeIdentifier(node.Name)},
		node:        node,
		static:      true,
	}
	block.register(w)

	v := &attributeCollector{w: w, block: block}
	for _, attr := range scopedAttributes(node, r.stylesheet) {
		if err := attr.VisitAttribute(v); err != nil {
			return nil, err
		}
	}
	if v.dynamic || r.options.Dev || node.Name == "option" {
		w.markDynamic()
	}

	var err error
	w.fragment, err = newFragment(r, block, w, node.Children, strip, next)
	if err != nil {
		return nil, err
	}
	for _, child := range w.fragment.nodes {
		switch child.(type) {
		case *elementWrapper, *textWrapper:
		default:
			w.markDynamic()
		}
	}
	if w.static && !r.options.Hydratable && node.Namespace == "" && !w.fragment.isEmpty() {
		w.innerHTML = true
		releaseNames(w.fragment)
	}
	return w, nil
}

// markDynamic records that w and every enclosing element cannot be
// created from markup.
func (w *elementWrapper) markDynamic() {
	for p := Wrapper(w); p != nil; p = p.base().parent {
		if el, ok := p.(*elementWrapper); ok {
			if !el.static {
				return
			}
			el.static = false
		}
	}
}

// releaseNames gives up the variables of wrappers that are created from
// markup instead of rendered.
func releaseNames(f *fragment) {
	for _, node := range f.nodes {
		node.base().name = ""
		if el, ok := node.(*elementWrapper); ok {
			releaseNames(el.fragment)
		}
	}
}

func (w *elementWrapper) IsDOMNode() bool { return true }

func (w *elementWrapper) staticAttribute(name string) string {
	for _, attr := range w.node.Attributes {
		if a, ok := attr.(*template.Attribute); ok && a.Name == name && a.IsStatic() {
			return a.StaticValue()
		}
	}
	return ""
}

func (w *elementWrapper) hasDynamicAttribute(name string) bool {
	for _, attr := range w.node.Attributes {
		if a, ok := attr.(*template.Attribute); ok && a.Name == name && !a.IsStatic() {
			return true
		}
	}
	return false
}

// attributeCollector sorts the attributes of an element into wrappers.
type attributeCollector struct {
	w       *elementWrapper
	block   *Block
	dynamic bool
}

func (v *attributeCollector) VisitAttribute(attr *template.Attribute) error {
	a, err := newAttribute(v.w, v.block, attr)
	if err != nil {
		return err
	}
	if !attr.IsStatic() {
		v.dynamic = true
	}
	v.w.attrs = append(v.w.attrs, a)
	return nil
}

func (v *attributeCollector) VisitEventHandler(handler *template.EventHandler) error {
	h, err := newEventHandler(v.w.r, v.block, handler, false)
	if err != nil {
		return err
	}
	v.dynamic = true
	v.w.directives = append(v.w.directives, func(block *Block) {
		h.listen(block, ref(v.w.name))
	})
	return nil
}

func (v *attributeCollector) VisitBinding(binding *template.Binding) error {
	b, err := newBinding(v.w, v.block, binding)
	if err != nil {
		return err
	}
	v.dynamic = true
	if binding.Name == "this" {
		v.w.bindThis = b
		return nil
	}
	v.w.directives = append(v.w.directives, b.render)
	return nil
}

func (v *attributeCollector) VisitTransition(t *template.Transition) error {
	w := v.w
	if (t.Intro && w.intro != nil) || (t.Outro && w.outro != nil) {
		kind := "in"
		switch {
		case t.Intro && t.Outro:
			kind = "transition"
		case t.Outro:
			kind = "out"
		}
		return util.Errorf(t.Span(), util.ErrInvalidAttribute, "An element can only have one '%s' directive", kind)
	}
	if t.Expression != nil {
		if _, err := w.r.resolveIn(v.block, t.Expression); err != nil {
			return err
		}
	}
	if t.Intro {
		w.intro = t
		v.block.AddIntro(t.Local)
	}
	if t.Outro {
		w.outro = t
		v.block.AddOutro(t.Local)
	}
	v.dynamic = true
	return nil
}

func (v *attributeCollector) VisitClass(class *template.Class) error {
	d, err := v.directive(class.Name, class.Expression)
	if err != nil {
		return err
	}
	v.w.classes = append(v.w.classes, d)
	return nil
}

func (v *attributeCollector) VisitDirective(directive *template.Directive) error {
	w := v.w
	switch directive.Type {
	case "style":
		d, err := v.directive(directive.Name, directive.Expression)
		if err != nil {
			return err
		}
		w.styles = append(w.styles, d)
	case "use":
		d := &valueDirective{name: directive.Name, expr: directive.Expression, deps: mapset.NewSet[string]()}
		if directive.Expression != nil {
			res, err := w.r.resolveIn(v.block, directive.Expression)
			if err != nil {
				return err
			}
			d.deps = res.Dependencies
		}
		v.dynamic = true
		w.directives = append(w.directives, func(block *Block) {
			w.renderAction(block, d)
		})
	case "animate":
		if err := w.checkAnimation(directive); err != nil {
			return err
		}
		w.animation = directive
		v.block.AddAnimation()
		v.dynamic = true
	default:
		return util.Errorf(directive.Span(), util.ErrUnknownDirective, "'%s:' directives are not supported on elements", directive.Type)
	}
	return nil
}

// directive resolves a class: or style: directive. Without a value the
// directive reads the name it sets.
func (v *attributeCollector) directive(name string, expr ep.Expression) (*valueDirective, error) {
	if expr == nil {
		expr = &ep.Identifier{Name: name}
	}
	res, err := v.w.r.resolveIn(v.block, expr)
	if err != nil {
		return nil, err
	}
	v.dynamic = true
	return &valueDirective{name: name, expr: expr, deps: res.Dependencies}, nil
}

// checkAnimation enforces that animated elements are the only child of a
// keyed each block.
func (w *elementWrapper) checkAnimation(d *template.Directive) error {
	if w.animation != nil {
		return util.Errorf(d.Span(), util.ErrInvalidAttribute, "An element can only have one 'animate' directive")
	}
	each, ok := w.parent.(*eachBlockWrapper)
	if !ok || each.node.Key == nil {
		return util.Errorf(d.Span(), util.ErrInvalidAttribute, "An element that uses the animate directive must be the immediate child of a keyed each block")
	}
	count := 0
	for _, child := range each.node.Children {
		if text, ok := child.(*template.Text); ok && text.IsWhitespace() {
			continue
		}
		count++
	}
	if count > 1 {
		return util.Errorf(d.Span(), util.ErrInvalidAttribute, "An element that uses the animate directive must be the sole child of a keyed each block")
	}
	if d.Expression != nil {
		if _, err := w.r.resolveIn(w.block, d.Expression); err != nil {
			return err
		}
	}
	return nil
}

func (w *elementWrapper) renderStatement() output.OutputExpression {
	if w.node.Namespace == "svg" {
		return call(w.r.helper(SvgElement), lit(w.node.Name))
	}
	return call(w.r.helper(Element), lit(w.node.Name))
}

func (w *elementWrapper) claimStatement(nodes string) output.OutputExpression {
	var keys []*output.LiteralMapEntry
	for _, a := range w.attrs {
		if key := a.claimKey(); key != nil {
			keys = append(keys, key)
		}
	}
	if w.node.Namespace == "svg" {
		return call(w.r.helper(ClaimSvgElement), ref(nodes), lit(w.node.Name), object(keys...))
	}
	return call(w.r.helper(ClaimElement), ref(nodes), lit(strings.ToUpper(w.node.Name)), object(keys...))
}

func (w *elementWrapper) Render(block *Block, parentNode, parentNodes string) {
	r := w.r
	el := ref(w.name)
	void := template.IsVoidElement(w.node.Name)

	block.AddVariable(w.name, nil)
	render := w.renderStatement()
	block.Create.AddExpr(assign(el, render))

	nodes := ""
	if r.options.Hydratable {
		if parentNodes != "" {
			block.Claim.AddExpr(assign(el, w.claimStatement(parentNodes)))
			if !void && len(w.node.Children) > 0 {
				nodes = block.UniqueName(w.name + "_nodes")
				block.Claim.Add(output.NewDeclareVarStmt(nodes, call(r.helper(Children), el), output.StmtModifierVar, nil))
			}
		} else {
			block.Claim.AddExpr(assign(el, render))
		}
	}

	if parentNode != "" {
		block.Mount.AddExpr(call(r.helper(r.appendHelper()), ref(parentNode), el))
	} else {
		block.Mount.AddExpr(call(r.helper(r.insertHelper()), ref(r.ids.Target), el, ref(r.ids.Anchor)))
		block.Destroy.Add(when(ref(r.ids.Detaching), stmt(call(r.helper(Detach), el))))
	}

	if w.innerHTML {
		if text, ok := w.fragment.nodes[0].(*textWrapper); ok && len(w.fragment.nodes) == 1 {
			block.Create.AddExpr(assign(prop(el, "textContent"), lit(text.data)))
		} else {
			html := staticHTML(w.fragment.nodes, r.stylesheet)
			block.Create.AddExpr(assign(prop(el, "innerHTML"),
				output.NewTemplateLiteralExpr([]string{output.EscapeTemplateRaw(html)}, nil, nil)))
		}
	} else {
		w.fragment.Render(block, w.name, nodes)
	}

	for _, a := range w.attrs {
		a.render(block)
	}
	for _, d := range w.directives {
		d(block)
	}
	if w.bindThis != nil {
		w.bindThis.render(block)
	}
	w.renderTransitions(block)
	w.renderAnimation(block)
	w.renderClasses(block)
	w.renderStyles(block)

	if r.options.Hydratable && parentNodes != "" && !void {
		if nodes != "" {
			block.Claim.AddExpr(method(ref(nodes), "forEach", r.helper(Detach)))
		} else {
			block.Claim.AddExpr(method(call(r.helper(Children), el), "forEach", r.helper(Detach)))
		}
	}
}

// updateWhen adds set to the update phase behind a dirty check on deps.
func (w *elementWrapper) updateWhen(block *Block, deps mapset.Set[string], set ...output.OutputStatement) {
	if deps.Cardinality() == 0 {
		return
	}
	block.Update.Add(when(w.r.dirtySet(deps), set...))
}

func (w *elementWrapper) renderClasses(block *Block) {
	for _, c := range w.classes {
		toggle := stmt(call(w.r.helper(ToggleClass), ref(w.name), lit(c.name), w.r.snippet(block, c.expr)))
		block.Hydrate.Add(toggle)
		w.updateWhen(block, c.deps, toggle)
	}
}

func (w *elementWrapper) renderStyles(block *Block) {
	for _, s := range w.styles {
		set := stmt(call(w.r.helper(SetStyle), ref(w.name), lit(s.name), w.r.snippet(block, s.expr)))
		block.Hydrate.Add(set)
		w.updateWhen(block, s.deps, set)
	}
}

// renderAction calls the action on mount and passes changed parameters to
// its update method.
func (w *elementWrapper) renderAction(block *Block, d *valueDirective) {
	r := w.r
	id := block.UniqueName(util.SanitizeIdentifier(d.name) + "_action")
	block.AddVariable(id, nil)
	args := []output.OutputExpression{null(), ref(w.name)}
	var arg output.OutputExpression
	if d.expr != nil {
		arg = r.snippet(block, d.expr)
		args = append(args, arg)
	}
	fn := dottedReference(r, block, d.name)
	block.AddEvent(call(r.helper(ActionDestroyer), assign(ref(id), method(fn, "call", args...))))
	if d.deps.Cardinality() > 0 {
		cond := and(and(ref(id), call(r.helper(IsFunction), prop(ref(id), "update"))), r.dirtySet(d.deps))
		block.Update.Add(when(cond, stmt(method(prop(ref(id), "update"), "call", null(), arg))))
	}
}

// transitionArgs are the arguments of the create_*_transition helpers.
func (w *elementWrapper) transitionArgs(block *Block, t *template.Transition) []output.OutputExpression {
	var arg output.OutputExpression = object()
	if t.Expression != nil {
		arg = w.r.snippet(block, t.Expression)
	}
	return []output.OutputExpression{ref(w.name), dottedReference(w.r, block, t.Name), arg}
}

// guardLocal runs body only for local transitions when the block itself is
// entering or leaving.
func (w *elementWrapper) guardLocal(t *template.Transition, body ...output.OutputStatement) []output.OutputStatement {
	if !t.Local {
		return body
	}
	return statements(when(ref(w.r.ids.Local), body...))
}

func (w *elementWrapper) renderTransitions(block *Block) {
	r := w.r
	switch {
	case w.intro == nil && w.outro == nil:
		return
	case w.intro == w.outro:
		w.renderBidirectional(block, w.intro)
		return
	}

	var introVar, outroVar string
	if w.intro != nil {
		introVar = block.UniqueName(w.name + "_intro")
		block.AddVariable(introVar, nil)
	}
	if w.outro != nil {
		outroVar = block.UniqueName(w.name + "_outro")
		block.AddVariable(outroVar, nil)
	}

	if w.intro != nil {
		create := stmt(assign(ref(introVar), call(r.helper(CreateInTransition), w.transitionArgs(block, w.intro)...)))
		start := stmt(method(ref(introVar), "start"))
		var body output.OutputStatement
		if w.outro != nil {
			body = stmt(call(r.helper(AddRenderCallback), arrow(nil, statements(
				when(ref(outroVar), stmt(method(ref(outroVar), "end", lit(1)))),
				create, start))))
			block.Outro.Add(when(ref(introVar), stmt(method(ref(introVar), "invalidate"))))
		} else {
			body = when(not(ref(introVar)), stmt(call(r.helper(AddRenderCallback), arrow(nil, statements(create, start)))))
		}
		block.Intro.Add(w.guardLocal(w.intro, body)...)
	}

	if w.outro != nil {
		if w.intro == nil {
			block.Intro.Add(when(ref(outroVar), stmt(method(ref(outroVar), "end", lit(1)))))
		}
		create := stmt(assign(ref(outroVar), call(r.helper(CreateOutTransition), w.transitionArgs(block, w.outro)...)))
		block.Outro.Add(w.guardLocal(w.outro, create)...)
		block.Destroy.Add(when(and(ref(r.ids.Detaching), ref(outroVar)), stmt(method(ref(outroVar), "end"))))
	}
}

// renderBidirectional handles transition:, which reverses a running intro
// instead of starting a separate outro.
func (w *elementWrapper) renderBidirectional(block *Block, t *template.Transition) {
	r := w.r
	name := block.UniqueName(w.name + "_transition")
	block.AddVariable(name, nil)
	create := func(intro bool) output.OutputStatement {
		args := append(w.transitionArgs(block, t), lit(intro))
		return when(not(ref(name)), stmt(assign(ref(name), call(r.helper(CreateBidirectionalTransition), args...))))
	}
	start := arrow(nil, statements(
		when(not(ref(block.current())), ret(nil)),
		create(true),
		stmt(method(ref(name), "run", lit(1))),
	))
	block.Intro.Add(w.guardLocal(t, stmt(call(r.helper(AddRenderCallback), start)))...)
	block.Outro.Add(w.guardLocal(t, create(false), stmt(method(ref(name), "run", lit(0))))...)
	block.Destroy.Add(when(and(ref(r.ids.Detaching), ref(name)), stmt(method(ref(name), "end"))))
}

// renderAnimation measures the element before a keyed reorder, pins it in
// place while siblings move and then animates it to its new position.
func (w *elementWrapper) renderAnimation(block *Block) {
	if w.animation == nil {
		return
	}
	r := w.r
	rect := block.UniqueName("rect")
	stop := block.UniqueName("stop_animation")
	block.AddVariable(rect, nil)
	block.AddVariable(stop, r.helper(Noop))

	block.Measure.Add(stmt(assign(ref(rect), method(ref(w.name), "getBoundingClientRect"))))
	block.Fix.Add(
		stmt(call(r.helper(FixPosition), ref(w.name))),
		stmt(call(ref(stop))))

	var arg output.OutputExpression = object()
	if w.animation.Expression != nil {
		arg = r.snippet(block, w.animation.Expression)
	}
	block.Animate.Add(
		stmt(call(ref(stop))),
		stmt(assign(ref(stop), call(r.helper(CreateAnimation), ref(w.name), ref(rect), dottedReference(r, block, w.animation.Name), arg))))
}
