package expression_parser

// ParseSpan represents a span in the expression source. Offsets are absolute
// positions in the component file so diagnostics can point at them directly.
type ParseSpan struct {
	Start int
	End   int
}

// NewParseSpan creates a new ParseSpan
func NewParseSpan(start, end int) ParseSpan {
	return ParseSpan{Start: start, End: end}
}

// Expression is the closed set of script expression kinds that may appear in
// template tags, attribute values and directive arguments.
type Expression interface {
	Span() ParseSpan
	expression()
}

// Node carries the span shared by every expression.
type Node struct {
	Loc ParseSpan
}

// Span returns the span of the node
func (n *Node) Span() ParseSpan { return n.Loc }

func (*Node) expression() {}

// Identifier represents a bare name
type Identifier struct {
	Node
	Name string
}

// LiteralKind is the kind of a literal value
type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralNumber
	LiteralBoolean
	LiteralNull
	LiteralUndefined
	LiteralRegExp
)

// Literal represents a primitive literal. Raw keeps the source text for
// numbers, strings and regular expressions.
type Literal struct {
	Node
	Kind  LiteralKind
	Value interface{} // string | float64 | bool | nil
	Raw   string
}

// ThisExpr represents `this`
type ThisExpr struct {
	Node
}

// TemplateLiteral represents a backtick string with interpolations.
// len(Quasis) == len(Expressions)+1.
type TemplateLiteral struct {
	Node
	Quasis      []string
	RawQuasis   []string
	Expressions []Expression
}

// ArrayLiteral represents `[a, b, ...c]`. A nil element is a hole.
type ArrayLiteral struct {
	Node
	Elements []Expression
}

// Property represents one entry of an object literal.
type Property struct {
	Key       string
	Computed  Expression
	Value     Expression
	Shorthand bool
	Quoted    bool
}

// ObjectLiteral represents `{a: 1, b, ...c}`. Spread entries have a nil
// Value and a SpreadElement in Computed.
type ObjectLiteral struct {
	Node
	Properties []*Property
}

// SpreadElement represents `...expr` inside calls, arrays and objects
type SpreadElement struct {
	Node
	Argument Expression
}

// MemberExpression represents `obj.prop` or `obj?.prop`
type MemberExpression struct {
	Node
	Object   Expression
	Property string
	Optional bool
}

// IndexExpression represents `obj[key]` or `obj?.[key]`
type IndexExpression struct {
	Node
	Object   Expression
	Index    Expression
	Optional bool
}

// CallExpression represents `fn(args)` or `fn?.(args)`
type CallExpression struct {
	Node
	Callee    Expression
	Arguments []Expression
	Optional  bool
}

// NewExpression represents `new C(args)`
type NewExpression struct {
	Node
	Callee    Expression
	Arguments []Expression
}

// UnaryExpression represents a prefix operator: ! - + ~ typeof void delete
type UnaryExpression struct {
	Node
	Operator string
	Argument Expression
}

// UpdateExpression represents `++x`, `x--` etc
type UpdateExpression struct {
	Node
	Operator string
	Prefix   bool
	Argument Expression
}

// BinaryExpression represents an arithmetic, comparison, bitwise or logical
// operator application.
type BinaryExpression struct {
	Node
	Operator string
	Left     Expression
	Right    Expression
}

// AssignmentExpression represents `target op= value`
type AssignmentExpression struct {
	Node
	Operator string
	Target   Expression
	Value    Expression
}

// ConditionalExpression represents `test ? consequent : alternate`
type ConditionalExpression struct {
	Node
	Test       Expression
	Consequent Expression
	Alternate  Expression
}

// ArrowFunction represents `(params) => body` with an expression body.
type ArrowFunction struct {
	Node
	Params []*Pattern
	Body   Expression
}

// SequenceExpression represents `a, b, c`
type SequenceExpression struct {
	Node
	Expressions []Expression
}

// PatternKind is the kind of a binding pattern
type PatternKind int

const (
	PatternIdentifier PatternKind = iota
	PatternObject
	PatternArray
)

// Pattern is a destructuring target used by arrow parameters and by
// each-block contexts.
type Pattern struct {
	Loc      ParseSpan
	Kind     PatternKind
	Name     string // PatternIdentifier
	Elements []*PatternElement
	Default  Expression
	Rest     bool
}

// PatternElement is one slot of an object or array pattern. For object
// patterns Key names the property being destructured.
type PatternElement struct {
	Key   string
	Value *Pattern
}

// PatternBinding is a name declared by a pattern and the property path that
// reaches it from the destructured value.
type PatternBinding struct {
	Name string
	Path []PathSegment
	Rest bool
}

// PathSegment is one step of a destructuring path. Index is used when Key is
// empty.
type PathSegment struct {
	Key   string
	Index int
}

// Names returns every name the pattern declares, in source order.
func (p *Pattern) Names() []PatternBinding {
	var out []PatternBinding
	p.collect(nil, &out)
	return out
}

func (p *Pattern) collect(path []PathSegment, out *[]PatternBinding) {
	switch p.Kind {
	case PatternIdentifier:
		*out = append(*out, PatternBinding{Name: p.Name, Path: append([]PathSegment(nil), path...), Rest: p.Rest})
	case PatternObject:
		for _, el := range p.Elements {
			el.Value.collect(append(path, PathSegment{Key: el.Key}), out)
		}
	case PatternArray:
		for i, el := range p.Elements {
			if el == nil {
				continue
			}
			el.Value.collect(append(path, PathSegment{Index: i}), out)
		}
	}
}
