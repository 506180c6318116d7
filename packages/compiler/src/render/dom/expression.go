package dom

import (
	"strings"

	ep "sveltec-go/packages/compiler/src/expression_parser"
	"sveltec-go/packages/compiler/src/output"
	"sveltec-go/packages/compiler/src/scope"
	"sveltec-go/packages/compiler/src/template"
	"sveltec-go/packages/compiler/src/util"
)

// converter translates template expressions into output expressions.
//
// In block mode identifiers are read from the block context. In instance
// mode they are emitted by name, because the code runs inside the instance
// function where the script's declarations are in scope, and assignments
// are wrapped so that the runtime learns which context slots changed.
type converter struct {
	r        *Renderer
	scope    *scope.Scope
	instance bool
	shadowed map[string]bool
}

// snippet converts expr for evaluation inside block.
func (r *Renderer) snippet(block *Block, expr ep.Expression) output.OutputExpression {
	c := &converter{r: r, scope: block.Scope, shadowed: map[string]bool{}}
	return c.convert(expr)
}

// instanceSnippet converts expr for the instance function. Contextual names
// in s are expected to be parameters of the enclosing function.
func (r *Renderer) instanceSnippet(s *scope.Scope, expr ep.Expression) output.OutputExpression {
	c := &converter{r: r, scope: s, instance: true, shadowed: map[string]bool{}}
	return c.convert(expr)
}

func (c *converter) with(params []*ep.Pattern) *converter {
	inner := &converter{r: c.r, scope: c.scope, instance: c.instance, shadowed: make(map[string]bool, len(c.shadowed))}
	for name := range c.shadowed {
		inner.shadowed[name] = true
	}
	for _, p := range params {
		for _, b := range p.Names() {
			inner.shadowed[b.Name] = true
		}
	}
	return inner
}

func (c *converter) all(list []ep.Expression) []output.OutputExpression {
	out := make([]output.OutputExpression, len(list))
	for i, e := range list {
		if e != nil {
			out[i] = c.convert(e)
		}
	}
	return out
}

func (c *converter) convert(expr ep.Expression) output.OutputExpression {
	switch e := expr.(type) {
	case *ep.Identifier:
		return c.identifier(e.Name)
	case *ep.Literal:
		return literal(e)
	case *ep.ThisExpr:
		return ref("this")
	case *ep.TemplateLiteral:
		return output.NewTemplateLiteralExpr(e.RawQuasis, c.all(e.Expressions), nil)
	case *ep.ArrayLiteral:
		return array(c.all(e.Elements)...)
	case *ep.ObjectLiteral:
		entries := make([]*output.LiteralMapEntry, 0, len(e.Properties))
		for _, p := range e.Properties {
			switch {
			case p.Value == nil:
				entries = append(entries, &output.LiteralMapEntry{Value: c.convert(p.Computed)})
			case p.Computed != nil:
				entries = append(entries, &output.LiteralMapEntry{Computed: c.convert(p.Computed), Value: c.convert(p.Value)})
			default:
				entries = append(entries, output.NewLiteralMapEntry(p.Key, c.convert(p.Value), p.Quoted))
			}
		}
		return object(entries...)
	case *ep.SpreadElement:
		return output.NewSpreadExpr(c.convert(e.Argument), nil)
	case *ep.MemberExpression:
		read := prop(c.convert(e.Object), e.Property)
		read.Optional = e.Optional
		return read
	case *ep.IndexExpression:
		read := index(c.convert(e.Object), c.convert(e.Index))
		read.Optional = e.Optional
		return read
	case *ep.CallExpression:
		invoke := call(c.convert(e.Callee), c.all(e.Arguments)...)
		invoke.Optional = e.Optional
		return invoke
	case *ep.NewExpression:
		return output.NewInstantiateExpr(c.convert(e.Callee), c.all(e.Arguments), nil)
	case *ep.UnaryExpression:
		op, ok := output.UnaryOperatorFromToken(e.Operator)
		if !ok {
			util.Bugf("unary operator %q has no output form", e.Operator)
		}
		return output.NewUnaryOperatorExpr(op, c.convert(e.Argument), nil)
	case *ep.BinaryExpression:
		op, ok := output.BinaryOperatorFromToken(e.Operator)
		if !ok {
			util.Bugf("binary operator %q has no output form", e.Operator)
		}
		return binary(op, c.convert(e.Left), c.convert(e.Right))
	case *ep.ConditionalExpression:
		return output.NewConditionalExpr(c.convert(e.Test), c.convert(e.Consequent), c.convert(e.Alternate), nil)
	case *ep.ArrowFunction:
		inner := c.with(e.Params)
		return arrow(patternParams(e.Params), inner.convert(e.Body))
	case *ep.SequenceExpression:
		return output.NewCommaExpr(c.all(e.Expressions), nil)
	case *ep.AssignmentExpression:
		return c.assignment(e)
	case *ep.UpdateExpression:
		return c.update(e)
	}
	util.Bugf("expression %T has no output form", expr)
	return nil
}

func literal(e *ep.Literal) output.OutputExpression {
	switch e.Kind {
	case ep.LiteralUndefined:
		return ref("undefined")
	case ep.LiteralRegExp:
		slash := strings.LastIndex(e.Raw, "/")
		if slash <= 0 {
			util.Bugf("malformed regular expression %s", e.Raw)
		}
		return output.NewRegularExpressionLiteralExpr(e.Raw[1:slash], e.Raw[slash+1:], nil)
	case ep.LiteralNumber:
		if v, ok := e.Value.(float64); ok {
			return lit(v)
		}
	}
	return lit(e.Value)
}

func patternParams(patterns []*ep.Pattern) []*output.FnParam {
	out := make([]*output.FnParam, len(patterns))
	for i, p := range patterns {
		if p.Kind == ep.PatternIdentifier && p.Default == nil && !p.Rest {
			out[i] = output.NewFnParam(p.Name)
			continue
		}
		out[i] = &output.FnParam{Pattern: ep.SerializePattern(p)}
	}
	return out
}

// identifier reads a name. Arrow parameters, globals and imports are used
// as written. In block mode everything else lives in the context.
func (c *converter) identifier(name string) output.OutputExpression {
	if c.shadowed[name] || c.instance {
		return ref(name)
	}
	b := c.scope.Lookup(name)
	if b == nil || b.Kind == scope.BindingModule {
		return ref(name)
	}
	return c.r.reference(name)
}

// target classifies the root of an assignment target.
func (c *converter) target(expr ep.Expression) (*ep.Identifier, *scope.Binding) {
	root := ep.RootIdentifier(expr)
	if root == nil || c.shadowed[root.Name] {
		return nil, nil
	}
	return root, c.scope.Lookup(root.Name)
}

func (c *converter) assignment(e *ep.AssignmentExpression) output.OutputExpression {
	op, ok := output.BinaryOperatorFromToken(e.Operator)
	if !ok {
		util.Bugf("assignment operator %q has no output form", e.Operator)
	}
	return c.assignTo(e.Target, op, c.convert(e.Value))
}

// instanceAssign builds `target = value` for the instance function. value is
// already in output form.
func (r *Renderer) instanceAssign(s *scope.Scope, target ep.Expression, value output.OutputExpression) output.OutputExpression {
	c := &converter{r: r, scope: s, instance: true, shadowed: map[string]bool{}}
	return c.assignTo(target, output.BinaryOperatorAssign, value)
}

func (c *converter) assignTo(target ep.Expression, op output.BinaryOperator, value output.OutputExpression) output.OutputExpression {
	root, b := c.target(target)
	_, direct := target.(*ep.Identifier)

	if c.instance && b != nil && b.Kind == scope.BindingContextual && direct {
		if lhs := c.contextualTarget(b); lhs != nil {
			return c.invalidateDeps(b, binary(op, lhs, value))
		}
	}
	assigned := binary(op, c.convert(target), value)
	if !c.instance || b == nil {
		return assigned
	}
	return c.invalidate(root, b, assigned, direct)
}

func (c *converter) update(e *ep.UpdateExpression) output.OutputExpression {
	root, b := c.target(e.Argument)
	updated := output.NewUpdateExpr(e.Operator == "++", e.Prefix, c.convert(e.Argument), nil)
	if !c.instance || b == nil {
		return updated
	}
	_, direct := e.Argument.(*ep.Identifier)
	if b.Kind == scope.BindingContextual && direct {
		if lhs := c.contextualTarget(b); lhs != nil {
			return c.invalidateDeps(b, output.NewUpdateExpr(e.Operator == "++", e.Prefix, lhs, nil))
		}
	}
	return c.invalidate(root, b, updated, direct && e.Prefix)
}

// invalidate wraps a write to a top-level or contextual name so that the
// runtime marks the changed slots dirty. Writes whose result is not the new
// value pass the value explicitly.
func (c *converter) invalidate(root *ep.Identifier, b *scope.Binding, write output.OutputExpression, resultIsValue bool) output.OutputExpression {
	switch {
	case b.Kind == scope.BindingReactive && b.Var != nil && b.Var.Kind == template.VarStore:
		store := strings.TrimPrefix(root.Name, "$")
		return call(c.r.helper(SetStoreValue), ref(store), write, ref(root.Name))
	case b.Kind == scope.BindingReactive:
		m := c.r.member(root.Name)
		args := []output.OutputExpression{lit(m.Index), write}
		if !resultIsValue {
			args = append(args, ref(root.Name))
		}
		return call(ref("$$invalidate"), args...)
	case b.Kind == scope.BindingContextual:
		return c.invalidateDeps(b, write)
	}
	return write
}

// invalidateDeps marks every name a contextual binding was derived from.
func (c *converter) invalidateDeps(b *scope.Binding, write output.OutputExpression) output.OutputExpression {
	out := write
	for _, dep := range c.r.sortedByIndex(b.Dependencies.ToSlice()) {
		dv := c.r.component.Var(dep)
		if dv != nil && dv.Kind == template.VarStore {
			out = call(c.r.helper(SetStoreValue), ref(strings.TrimPrefix(dep, "$")), out, ref(dep))
			continue
		}
		out = call(ref("$$invalidate"), lit(c.r.member(dep).Index), out, ref(dep))
	}
	return out
}

// contextualTarget is the list element a direct write to an each context
// must go to: `each_value[item_index]` followed by the destructuring path.
func (c *converter) contextualTarget(b *scope.Binding) output.OutputExpression {
	list, idx := c.r.eachAliases(b.Owner)
	if list == "" {
		return nil
	}
	var target output.OutputExpression = index(ref(list), ref(idx))
	for _, seg := range b.Path {
		if seg.Key != "" {
			target = prop(target, seg.Key)
		} else {
			target = index(target, lit(seg.Index))
		}
	}
	return target
}

// sortedByIndex orders names by context slot. Names without a slot keep
// their relative order at the end.
func (r *Renderer) sortedByIndex(names []string) []string {
	out := append([]string(nil), names...)
	pos := func(name string) int {
		if m, ok := r.memberIndex[name]; ok {
			return m.Index
		}
		return len(r.members)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && (pos(out[j]) < pos(out[j-1]) || pos(out[j]) == pos(out[j-1]) && out[j] < out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// directContextWrites lists the each contexts expr assigns to directly.
// Such writes need the list and index of the each block as well.
func directContextWrites(expr ep.Expression, s *scope.Scope) []*scope.Binding {
	var out []*scope.Binding
	seen := map[string]bool{}
	var walk func(e ep.Expression, shadowed map[string]bool)
	check := func(target ep.Expression, shadowed map[string]bool) {
		id, ok := target.(*ep.Identifier)
		if !ok || shadowed[id.Name] || seen[id.Name] {
			return
		}
		if b := s.Lookup(id.Name); b != nil && b.Kind == scope.BindingContextual {
			seen[id.Name] = true
			out = append(out, b)
		}
	}
	walk = func(e ep.Expression, shadowed map[string]bool) {
		switch e := e.(type) {
		case nil:
			return
		case *ep.AssignmentExpression:
			check(e.Target, shadowed)
		case *ep.UpdateExpression:
			check(e.Argument, shadowed)
		case *ep.ArrowFunction:
			inner := map[string]bool{}
			for k := range shadowed {
				inner[k] = true
			}
			for _, p := range e.Params {
				for _, b := range p.Names() {
					inner[b.Name] = true
				}
			}
			walk(e.Body, inner)
			return
		}
		for _, child := range ep.Children(e) {
			walk(child, shadowed)
		}
	}
	walk(expr, map[string]bool{})
	return out
}

// isPlainIdentifier reports whether expr is a bare name read from the
// context. Such values need no cache: the context slot itself can be
// compared.
func isPlainIdentifier(expr ep.Expression) bool {
	_, ok := expr.(*ep.Identifier)
	return ok
}

// freeNames lists the identifiers expr reads or writes that are not
// parameters of an arrow function inside it, in first-use order.
func freeNames(expr ep.Expression) []string {
	var out []string
	seen := map[string]bool{}
	var walk func(e ep.Expression, shadowed map[string]bool)
	walk = func(e ep.Expression, shadowed map[string]bool) {
		switch e := e.(type) {
		case nil:
			return
		case *ep.Identifier:
			if !shadowed[e.Name] && !seen[e.Name] {
				seen[e.Name] = true
				out = append(out, e.Name)
			}
			return
		case *ep.ArrowFunction:
			inner := map[string]bool{}
			for k := range shadowed {
				inner[k] = true
			}
			for _, p := range e.Params {
				for _, b := range p.Names() {
					inner[b.Name] = true
				}
			}
			for _, p := range e.Params {
				for _, d := range p.Defaults() {
					walk(d, inner)
				}
			}
			walk(e.Body, inner)
			return
		}
		for _, child := range ep.Children(e) {
			walk(child, shadowed)
		}
	}
	walk(expr, map[string]bool{})
	return out
}
