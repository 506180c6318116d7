package expression_parser

// Inspect traverses expr in depth-first order. f is called for each node; if
// it returns false the node's children are skipped. Arrow parameter defaults
// are visited before the arrow body.
func Inspect(expr Expression, f func(Expression) bool) {
	if expr == nil || !f(expr) {
		return
	}
	for _, child := range Children(expr) {
		Inspect(child, f)
	}
}

// Children returns the direct sub-expressions of expr in source order.
func Children(expr Expression) []Expression {
	switch e := expr.(type) {
	case *TemplateLiteral:
		return e.Expressions
	case *ArrayLiteral:
		out := make([]Expression, 0, len(e.Elements))
		for _, el := range e.Elements {
			if el != nil {
				out = append(out, el)
			}
		}
		return out
	case *ObjectLiteral:
		var out []Expression
		for _, prop := range e.Properties {
			if prop.Computed != nil {
				out = append(out, prop.Computed)
			}
			if prop.Value != nil {
				out = append(out, prop.Value)
			}
		}
		return out
	case *SpreadElement:
		return []Expression{e.Argument}
	case *MemberExpression:
		return []Expression{e.Object}
	case *IndexExpression:
		return []Expression{e.Object, e.Index}
	case *CallExpression:
		return append([]Expression{e.Callee}, e.Arguments...)
	case *NewExpression:
		return append([]Expression{e.Callee}, e.Arguments...)
	case *UnaryExpression:
		return []Expression{e.Argument}
	case *UpdateExpression:
		return []Expression{e.Argument}
	case *BinaryExpression:
		return []Expression{e.Left, e.Right}
	case *AssignmentExpression:
		return []Expression{e.Target, e.Value}
	case *ConditionalExpression:
		return []Expression{e.Test, e.Consequent, e.Alternate}
	case *ArrowFunction:
		var out []Expression
		for _, param := range e.Params {
			out = append(out, param.Defaults()...)
		}
		return append(out, e.Body)
	case *SequenceExpression:
		return e.Expressions
	}
	return nil
}

// Defaults returns every default-value expression in the pattern.
func (p *Pattern) Defaults() []Expression {
	var out []Expression
	if p.Default != nil {
		out = append(out, p.Default)
	}
	for _, el := range p.Elements {
		if el != nil {
			out = append(out, el.Value.Defaults()...)
		}
	}
	return out
}

// ContainsCall reports whether expr invokes a function or constructor
// anywhere outside a nested arrow function body.
func ContainsCall(expr Expression) bool {
	found := false
	Inspect(expr, func(e Expression) bool {
		switch e.(type) {
		case *CallExpression, *NewExpression:
			found = true
		case *ArrowFunction:
			return false
		}
		return !found
	})
	return found
}

// RootIdentifier returns the identifier at the base of a member chain such as
// `a.b[c].d`, or nil when the chain is not rooted at a name.
func RootIdentifier(expr Expression) *Identifier {
	for {
		switch e := expr.(type) {
		case *Identifier:
			return e
		case *MemberExpression:
			expr = e.Object
		case *IndexExpression:
			expr = e.Object
		default:
			return nil
		}
	}
}
