package dom

import (
	mapset "github.com/deckarep/golang-set/v2"

	ep "sveltec-go/packages/compiler/src/expression_parser"
	"sveltec-go/packages/compiler/src/output"
	"sveltec-go/packages/compiler/src/scope"
	"sveltec-go/packages/compiler/src/template"
	"sveltec-go/packages/compiler/src/util"
)

// checkBindingTarget validates the expression of a bind: directive and
// returns the binding of its root name.
func checkBindingTarget(s *scope.Scope, r *Renderer, node *template.Binding) (*scope.Binding, error) {
	switch node.Expression.(type) {
	case *ep.Identifier, *ep.MemberExpression, *ep.IndexExpression:
	default:
		return nil, util.Errorf(node.Span(), util.ErrInvalidBinding,
			"Can only bind to an identifier (e.g. `foo`) or a member expression (e.g. `foo.bar` or `foo[baz]`)")
	}
	root := ep.RootIdentifier(node.Expression)
	if root == nil {
		return nil, util.Errorf(node.Span(), util.ErrInvalidBinding, "Can only bind to a name declared by the component")
	}
	b := s.Lookup(root.Name)
	switch {
	case b == nil:
		return nil, util.Errorf(node.Span(), util.ErrInvalidBinding, "'%s' is not defined", root.Name)
	case b.Kind == scope.BindingIndex:
		return nil, util.Errorf(node.Span(), util.ErrInvalidBinding, "Cannot bind to the index of an each block")
	case b.Kind == scope.BindingContextual && !r.isEach(b.Owner):
		return nil, util.Errorf(node.Span(), util.ErrInvalidBinding,
			"Cannot bind to a variable declared with {#await ... then} or {:catch} blocks")
	case b.Kind == scope.BindingStatic || b.Kind == scope.BindingModule:
		return nil, util.Errorf(node.Span(), util.ErrInvalidBinding, "Cannot bind to a variable which is not writable")
	}
	return b, nil
}

// bindingWrapper is a two-way binding on an element.
type bindingWrapper struct {
	el       *elementWrapper
	node     *template.Binding
	scope    *scope.Scope
	event    string
	handler  string
	deps     mapset.Set[string]
	contexts []string
}

func newBinding(el *elementWrapper, block *Block, node *template.Binding) (*bindingWrapper, error) {
	r := el.r
	if _, err := checkBindingTarget(block.Scope, r, node); err != nil {
		return nil, err
	}
	b := &bindingWrapper{el: el, node: node, scope: block.Scope}
	tag := el.node.Name
	inputType := el.staticAttribute("type")

	switch node.Name {
	case "this":
	case "value":
		if tag != "input" && tag != "textarea" && tag != "select" {
			return nil, util.Errorf(node.Span(), util.ErrInvalidBinding, "'value' is not a valid binding on <%s> elements", tag)
		}
		if tag == "input" && inputType == "checkbox" {
			return nil, util.Errorf(node.Span(), util.ErrInvalidBinding, "'value' binding can't be used with <input type=\"checkbox\">, use 'checked' instead")
		}
		b.event = "input"
		if tag == "select" {
			b.event = "change"
		}
	case "checked":
		if tag != "input" || inputType != "checkbox" {
			return nil, util.Errorf(node.Span(), util.ErrInvalidBinding, "'checked' binding can only be used with <input type=\"checkbox\">")
		}
		b.event = "change"
	default:
		return nil, util.Errorf(node.Span(), util.ErrInvalidBinding, "'%s' is not a valid binding on <%s> elements", node.Name, tag)
	}
	if tag == "input" && el.hasDynamicAttribute("type") {
		return nil, util.Errorf(node.Span(), util.ErrInvalidAttribute, "'type' attribute must be a static text value if input uses two-way binding")
	}

	res, err := r.resolveIn(block, node.Expression)
	if err != nil {
		return nil, err
	}
	b.deps = res.Dependencies
	b.contexts = handlerContexts(r, &ep.AssignmentExpression{Operator: "=", Target: node.Expression, Value: &ep.ThisExpr{}}, block.Scope, res.UsedContexts.ToSlice())

	raw := util.SanitizeIdentifier(tag)
	if node.Name == "this" {
		b.handler = r.handler(raw + "_binding")
	} else {
		b.handler = r.handler(raw + "_" + b.event + "_handler")
	}
	return b, nil
}

func (b *bindingWrapper) numeric() bool {
	t := b.el.staticAttribute("type")
	return b.el.node.Name == "input" && (t == "number" || t == "range")
}

// readValue is how the handler reads the new value from the element.
func (b *bindingWrapper) readValue(el output.OutputExpression) output.OutputExpression {
	r := b.el.r
	switch {
	case b.node.Name == "checked":
		return prop(el, "checked")
	case b.el.node.Name == "select":
		return call(r.helper(SelectValue), el)
	case b.numeric():
		return call(r.helper(ToNumber), prop(el, "value"))
	}
	return prop(el, "value")
}

// contextArgs reads the contexts the instance callback receives.
func (b *bindingWrapper) contextArgs(block *Block) ([]string, []output.OutputExpression) {
	r := b.el.r
	names := r.sortedByIndex(b.contexts)
	args := make([]output.OutputExpression, len(names))
	for i, name := range names {
		args[i] = r.reference(name)
	}
	if len(names) > 0 {
		block.MaintainContext = true
	}
	return names, args
}

func (b *bindingWrapper) render(block *Block) {
	if b.node.Name == "this" {
		b.renderThis(block)
		return
	}
	r := b.el.r
	el := ref(b.el.name)
	names, args := b.contextArgs(block)

	r.instance = append(r.instance, declareFunction(b.handler, params(names...),
		stmt(r.instanceAssign(b.scope, b.node.Expression, b.readValue(ref("this"))))))

	// Only the value the element produced itself is skipped; an event that
	// leaves the name unchanged never flushes and the flag stays set.
	updating := block.UniqueName(b.el.name + "_updating")
	last := block.UniqueName(b.el.name + "_produced")
	block.AddVariable(updating, lit(false))
	block.AddVariable(last, nil)
	block.Init.Add(declareFunction(b.handler, nil,
		stmt(assign(ref(updating), lit(true))),
		stmt(assign(ref(last), b.readValue(el))),
		stmt(method(r.reference(b.handler), "call", append([]output.OutputExpression{el}, args...)...))))
	block.AddEvent(call(r.helper(Listen), el, lit(b.event), ref(b.handler)))

	value := r.snippet(block, b.node.Expression)
	var set output.OutputStatement
	var changed output.OutputExpression
	switch {
	case b.node.Name == "checked":
		set = stmt(assign(prop(el, "checked"), value))
	case b.el.node.Name == "select":
		set = stmt(call(r.helper(SelectOption), el, value))
	default:
		set = stmt(call(r.helper(SetInputValue), el, value))
		current := prop(el, "value")
		if b.numeric() {
			changed = notIdentical(call(r.helper(ToNumber), current), value)
		} else {
			changed = notIdentical(current, value)
		}
	}
	block.Mount.Add(set)

	if b.deps.Cardinality() > 0 {
		echo := and(ref(updating), identical(value, ref(last)))
		cond := and(and(not(echo), r.dirtySet(b.deps)), changed)
		block.Update.Add(when(cond, set))
	}
	block.Update.Add(stmt(assign(ref(updating), lit(false))))
	block.ForceUpdateMethod()
}

// renderThis passes the element to the instance once mounted and null once
// destroyed. The assignment is deferred to the binding callbacks so that
// it lands after the flush that created the element.
func (b *bindingWrapper) renderThis(block *Block) {
	r := b.el.r
	names, args := b.contextArgs(block)

	value := "$$value"
	assignment := r.instanceAssign(b.scope, b.node.Expression, ref(value))
	queue := index(r.helper(BindingCallbacks), output.NewConditionalExpr(ref(value), lit("unshift"), lit("push"), nil))
	r.instance = append(r.instance, declareFunction(b.handler, params(append([]string{value}, names...)...),
		stmt(call(queue, arrow(nil, statements(stmt(assignment)))))))

	block.Mount.AddExpr(call(r.reference(b.handler), append([]output.OutputExpression{ref(b.el.name)}, args...)...))
	block.Destroy.AddExpr(call(r.reference(b.handler), append([]output.OutputExpression{null()}, args...)...))
}
