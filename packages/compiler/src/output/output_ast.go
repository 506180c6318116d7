package output

import (
	"sveltec-go/packages/compiler/src/util"
)

// UnaryOperator represents unary operators
type UnaryOperator int

const (
	UnaryOperatorMinus UnaryOperator = iota
	UnaryOperatorPlus
	UnaryOperatorNot
	UnaryOperatorBitwiseNot
	UnaryOperatorTypeof
	UnaryOperatorVoid
	UnaryOperatorDelete
)

// BinaryOperator represents binary operators
type BinaryOperator int

const (
	BinaryOperatorEquals BinaryOperator = iota
	BinaryOperatorNotEquals
	BinaryOperatorAssign
	BinaryOperatorIdentical
	BinaryOperatorNotIdentical
	BinaryOperatorMinus
	BinaryOperatorPlus
	BinaryOperatorDivide
	BinaryOperatorMultiply
	BinaryOperatorModulo
	BinaryOperatorAnd
	BinaryOperatorOr
	BinaryOperatorBitwiseOr
	BinaryOperatorBitwiseAnd
	BinaryOperatorBitwiseXor
	BinaryOperatorLeftShift
	BinaryOperatorRightShift
	BinaryOperatorUnsignedRightShift
	BinaryOperatorLower
	BinaryOperatorLowerEquals
	BinaryOperatorBigger
	BinaryOperatorBiggerEquals
	BinaryOperatorNullishCoalesce
	BinaryOperatorExponentiation
	BinaryOperatorIn
	BinaryOperatorInstanceOf
	BinaryOperatorAdditionAssignment
	BinaryOperatorSubtractionAssignment
	BinaryOperatorMultiplicationAssignment
	BinaryOperatorDivisionAssignment
	BinaryOperatorRemainderAssignment
	BinaryOperatorExponentiationAssignment
	BinaryOperatorLeftShiftAssignment
	BinaryOperatorRightShiftAssignment
	BinaryOperatorUnsignedRightShiftAssignment
	BinaryOperatorBitwiseAndAssignment
	BinaryOperatorBitwiseOrAssignment
	BinaryOperatorBitwiseXorAssignment
	BinaryOperatorAndAssignment
	BinaryOperatorOrAssignment
	BinaryOperatorNullishCoalesceAssignment
)

// OutputExpression represents an expression in the output AST
type OutputExpression interface {
	GetSourceSpan() *util.ParseSourceSpan
	VisitExpression(visitor ExpressionVisitor, context interface{}) interface{}
	IsEquivalent(e OutputExpression) bool
	IsConstant() bool
}

// ExpressionVisitor is the interface for visiting expressions
type ExpressionVisitor interface {
	VisitReadVarExpr(ast *ReadVarExpr, context interface{}) interface{}
	VisitLiteralExpr(ast *LiteralExpr, context interface{}) interface{}
	VisitRegularExpressionLiteral(ast *RegularExpressionLiteralExpr, context interface{}) interface{}
	VisitTemplateLiteralExpr(ast *TemplateLiteralExpr, context interface{}) interface{}
	VisitReadPropExpr(ast *ReadPropExpr, context interface{}) interface{}
	VisitReadKeyExpr(ast *ReadKeyExpr, context interface{}) interface{}
	VisitInvokeFunctionExpr(ast *InvokeFunctionExpr, context interface{}) interface{}
	VisitInstantiateExpr(ast *InstantiateExpr, context interface{}) interface{}
	VisitUnaryOperatorExpr(ast *UnaryOperatorExpr, context interface{}) interface{}
	VisitUpdateExpr(ast *UpdateExpr, context interface{}) interface{}
	VisitBinaryOperatorExpr(ast *BinaryOperatorExpr, context interface{}) interface{}
	VisitConditionalExpr(ast *ConditionalExpr, context interface{}) interface{}
	VisitArrowFunctionExpr(ast *ArrowFunctionExpr, context interface{}) interface{}
	VisitFunctionExpr(ast *FunctionExpr, context interface{}) interface{}
	VisitLiteralArrayExpr(ast *LiteralArrayExpr, context interface{}) interface{}
	VisitLiteralMapExpr(ast *LiteralMapExpr, context interface{}) interface{}
	VisitSpreadExpr(ast *SpreadExpr, context interface{}) interface{}
	VisitCommaExpr(ast *CommaExpr, context interface{}) interface{}
	VisitCommentedExpr(ast *CommentedExpr, context interface{}) interface{}
}

// ExpressionBase is the base struct for all expressions
type ExpressionBase struct {
	SourceSpan *util.ParseSourceSpan
}

// GetSourceSpan returns the source span
func (e *ExpressionBase) GetSourceSpan() *util.ParseSourceSpan {
	return e.SourceSpan
}

// ReadVarExpr represents a variable read expression
type ReadVarExpr struct {
	ExpressionBase
	Name string
}

// NewReadVarExpr creates a new ReadVarExpr
func NewReadVarExpr(name string, sourceSpan *util.ParseSourceSpan) *ReadVarExpr {
	return &ReadVarExpr{ExpressionBase: ExpressionBase{SourceSpan: sourceSpan}, Name: name}
}

func (r *ReadVarExpr) VisitExpression(visitor ExpressionVisitor, context interface{}) interface{} {
	return visitor.VisitReadVarExpr(r, context)
}

func (r *ReadVarExpr) IsEquivalent(e OutputExpression) bool {
	other, ok := e.(*ReadVarExpr)
	return ok && r.Name == other.Name
}

func (r *ReadVarExpr) IsConstant() bool { return false }

// Set creates an assignment expression
func (r *ReadVarExpr) Set(value OutputExpression) *BinaryOperatorExpr {
	return NewBinaryOperatorExpr(BinaryOperatorAssign, r, value, r.SourceSpan)
}

// LiteralExpr represents a literal expression. A nil Value prints as null.
type LiteralExpr struct {
	ExpressionBase
	Value interface{} // number | string | bool | nil
}

// NewLiteralExpr creates a new LiteralExpr
func NewLiteralExpr(value interface{}, sourceSpan *util.ParseSourceSpan) *LiteralExpr {
	return &LiteralExpr{ExpressionBase: ExpressionBase{SourceSpan: sourceSpan}, Value: value}
}

func (l *LiteralExpr) VisitExpression(visitor ExpressionVisitor, context interface{}) interface{} {
	return visitor.VisitLiteralExpr(l, context)
}

func (l *LiteralExpr) IsEquivalent(e OutputExpression) bool {
	other, ok := e.(*LiteralExpr)
	return ok && l.Value == other.Value
}

func (l *LiteralExpr) IsConstant() bool { return true }

// RegularExpressionLiteralExpr represents `/body/flags`
type RegularExpressionLiteralExpr struct {
	ExpressionBase
	Body  string
	Flags string
}

// NewRegularExpressionLiteralExpr creates a new RegularExpressionLiteralExpr
func NewRegularExpressionLiteralExpr(body, flags string, sourceSpan *util.ParseSourceSpan) *RegularExpressionLiteralExpr {
	return &RegularExpressionLiteralExpr{ExpressionBase: ExpressionBase{SourceSpan: sourceSpan}, Body: body, Flags: flags}
}

func (r *RegularExpressionLiteralExpr) VisitExpression(visitor ExpressionVisitor, context interface{}) interface{} {
	return visitor.VisitRegularExpressionLiteral(r, context)
}

func (r *RegularExpressionLiteralExpr) IsEquivalent(e OutputExpression) bool {
	other, ok := e.(*RegularExpressionLiteralExpr)
	return ok && r.Body == other.Body && r.Flags == other.Flags
}

func (r *RegularExpressionLiteralExpr) IsConstant() bool { return true }

// TemplateLiteralExpr represents a backtick string. RawElements are printed
// verbatim between the interpolations.
type TemplateLiteralExpr struct {
	ExpressionBase
	RawElements []string
	Expressions []OutputExpression
}

// NewTemplateLiteralExpr creates a new TemplateLiteralExpr
func NewTemplateLiteralExpr(rawElements []string, expressions []OutputExpression, sourceSpan *util.ParseSourceSpan) *TemplateLiteralExpr {
	return &TemplateLiteralExpr{ExpressionBase: ExpressionBase{SourceSpan: sourceSpan}, RawElements: rawElements, Expressions: expressions}
}

func (t *TemplateLiteralExpr) VisitExpression(visitor ExpressionVisitor, context interface{}) interface{} {
	return visitor.VisitTemplateLiteralExpr(t, context)
}

func (t *TemplateLiteralExpr) IsEquivalent(e OutputExpression) bool {
	other, ok := e.(*TemplateLiteralExpr)
	if !ok || len(t.RawElements) != len(other.RawElements) {
		return false
	}
	for i := range t.RawElements {
		if t.RawElements[i] != other.RawElements[i] {
			return false
		}
	}
	return areAllEquivalent(t.Expressions, other.Expressions)
}

func (t *TemplateLiteralExpr) IsConstant() bool { return false }

// ReadPropExpr represents `receiver.name`
type ReadPropExpr struct {
	ExpressionBase
	Receiver OutputExpression
	Name     string
	Optional bool
}

// NewReadPropExpr creates a new ReadPropExpr
func NewReadPropExpr(receiver OutputExpression, name string, sourceSpan *util.ParseSourceSpan) *ReadPropExpr {
	return &ReadPropExpr{ExpressionBase: ExpressionBase{SourceSpan: sourceSpan}, Receiver: receiver, Name: name}
}

func (r *ReadPropExpr) VisitExpression(visitor ExpressionVisitor, context interface{}) interface{} {
	return visitor.VisitReadPropExpr(r, context)
}

func (r *ReadPropExpr) IsEquivalent(e OutputExpression) bool {
	other, ok := e.(*ReadPropExpr)
	return ok && r.Name == other.Name && r.Optional == other.Optional && r.Receiver.IsEquivalent(other.Receiver)
}

func (r *ReadPropExpr) IsConstant() bool { return false }

// Set creates an assignment expression
func (r *ReadPropExpr) Set(value OutputExpression) *BinaryOperatorExpr {
	return NewBinaryOperatorExpr(BinaryOperatorAssign, r, value, r.SourceSpan)
}

// ReadKeyExpr represents `receiver[index]`
type ReadKeyExpr struct {
	ExpressionBase
	Receiver OutputExpression
	Index    OutputExpression
	Optional bool
}

// NewReadKeyExpr creates a new ReadKeyExpr
func NewReadKeyExpr(receiver, index OutputExpression, sourceSpan *util.ParseSourceSpan) *ReadKeyExpr {
	return &ReadKeyExpr{ExpressionBase: ExpressionBase{SourceSpan: sourceSpan}, Receiver: receiver, Index: index}
}

func (r *ReadKeyExpr) VisitExpression(visitor ExpressionVisitor, context interface{}) interface{} {
	return visitor.VisitReadKeyExpr(r, context)
}

func (r *ReadKeyExpr) IsEquivalent(e OutputExpression) bool {
	other, ok := e.(*ReadKeyExpr)
	return ok && r.Optional == other.Optional && r.Receiver.IsEquivalent(other.Receiver) && r.Index.IsEquivalent(other.Index)
}

func (r *ReadKeyExpr) IsConstant() bool { return false }

// Set creates an assignment expression
func (r *ReadKeyExpr) Set(value OutputExpression) *BinaryOperatorExpr {
	return NewBinaryOperatorExpr(BinaryOperatorAssign, r, value, r.SourceSpan)
}

// InvokeFunctionExpr represents a function call
type InvokeFunctionExpr struct {
	ExpressionBase
	Fn       OutputExpression
	Args     []OutputExpression
	Optional bool
}

// NewInvokeFunctionExpr creates a new InvokeFunctionExpr
func NewInvokeFunctionExpr(fn OutputExpression, args []OutputExpression, sourceSpan *util.ParseSourceSpan) *InvokeFunctionExpr {
	return &InvokeFunctionExpr{ExpressionBase: ExpressionBase{SourceSpan: sourceSpan}, Fn: fn, Args: args}
}

func (i *InvokeFunctionExpr) VisitExpression(visitor ExpressionVisitor, context interface{}) interface{} {
	return visitor.VisitInvokeFunctionExpr(i, context)
}

func (i *InvokeFunctionExpr) IsEquivalent(e OutputExpression) bool {
	other, ok := e.(*InvokeFunctionExpr)
	return ok && i.Optional == other.Optional && i.Fn.IsEquivalent(other.Fn) && areAllEquivalent(i.Args, other.Args)
}

func (i *InvokeFunctionExpr) IsConstant() bool { return false }

// InstantiateExpr represents `new ClassExpr(args)`
type InstantiateExpr struct {
	ExpressionBase
	ClassExpr OutputExpression
	Args      []OutputExpression
}

// NewInstantiateExpr creates a new InstantiateExpr
func NewInstantiateExpr(classExpr OutputExpression, args []OutputExpression, sourceSpan *util.ParseSourceSpan) *InstantiateExpr {
	return &InstantiateExpr{ExpressionBase: ExpressionBase{SourceSpan: sourceSpan}, ClassExpr: classExpr, Args: args}
}

func (i *InstantiateExpr) VisitExpression(visitor ExpressionVisitor, context interface{}) interface{} {
	return visitor.VisitInstantiateExpr(i, context)
}

func (i *InstantiateExpr) IsEquivalent(e OutputExpression) bool {
	other, ok := e.(*InstantiateExpr)
	return ok && i.ClassExpr.IsEquivalent(other.ClassExpr) && areAllEquivalent(i.Args, other.Args)
}

func (i *InstantiateExpr) IsConstant() bool { return false }

// UnaryOperatorExpr represents a prefix operator application
type UnaryOperatorExpr struct {
	ExpressionBase
	Operator UnaryOperator
	Expr     OutputExpression
}

// NewUnaryOperatorExpr creates a new UnaryOperatorExpr
func NewUnaryOperatorExpr(operator UnaryOperator, expr OutputExpression, sourceSpan *util.ParseSourceSpan) *UnaryOperatorExpr {
	return &UnaryOperatorExpr{ExpressionBase: ExpressionBase{SourceSpan: sourceSpan}, Operator: operator, Expr: expr}
}

func (u *UnaryOperatorExpr) VisitExpression(visitor ExpressionVisitor, context interface{}) interface{} {
	return visitor.VisitUnaryOperatorExpr(u, context)
}

func (u *UnaryOperatorExpr) IsEquivalent(e OutputExpression) bool {
	other, ok := e.(*UnaryOperatorExpr)
	return ok && u.Operator == other.Operator && u.Expr.IsEquivalent(other.Expr)
}

func (u *UnaryOperatorExpr) IsConstant() bool { return false }

// UpdateExpr represents `++x`, `x--` etc
type UpdateExpr struct {
	ExpressionBase
	Increment bool
	Prefix    bool
	Expr      OutputExpression
}

// NewUpdateExpr creates a new UpdateExpr
func NewUpdateExpr(increment, prefix bool, expr OutputExpression, sourceSpan *util.ParseSourceSpan) *UpdateExpr {
	return &UpdateExpr{ExpressionBase: ExpressionBase{SourceSpan: sourceSpan}, Increment: increment, Prefix: prefix, Expr: expr}
}

func (u *UpdateExpr) VisitExpression(visitor ExpressionVisitor, context interface{}) interface{} {
	return visitor.VisitUpdateExpr(u, context)
}

func (u *UpdateExpr) IsEquivalent(e OutputExpression) bool {
	other, ok := e.(*UpdateExpr)
	return ok && u.Increment == other.Increment && u.Prefix == other.Prefix && u.Expr.IsEquivalent(other.Expr)
}

func (u *UpdateExpr) IsConstant() bool { return false }

// BinaryOperatorExpr represents a binary operator application, including
// assignments
type BinaryOperatorExpr struct {
	ExpressionBase
	Operator BinaryOperator
	Lhs      OutputExpression
	Rhs      OutputExpression
}

// NewBinaryOperatorExpr creates a new BinaryOperatorExpr
func NewBinaryOperatorExpr(operator BinaryOperator, lhs, rhs OutputExpression, sourceSpan *util.ParseSourceSpan) *BinaryOperatorExpr {
	return &BinaryOperatorExpr{ExpressionBase: ExpressionBase{SourceSpan: sourceSpan}, Operator: operator, Lhs: lhs, Rhs: rhs}
}

func (b *BinaryOperatorExpr) VisitExpression(visitor ExpressionVisitor, context interface{}) interface{} {
	return visitor.VisitBinaryOperatorExpr(b, context)
}

func (b *BinaryOperatorExpr) IsEquivalent(e OutputExpression) bool {
	other, ok := e.(*BinaryOperatorExpr)
	return ok && b.Operator == other.Operator && b.Lhs.IsEquivalent(other.Lhs) && b.Rhs.IsEquivalent(other.Rhs)
}

func (b *BinaryOperatorExpr) IsConstant() bool { return false }

// IsAssignment reports whether the operator writes to its left operand
func (b *BinaryOperatorExpr) IsAssignment() bool {
	return b.Operator == BinaryOperatorAssign || b.Operator >= BinaryOperatorAdditionAssignment
}

// ConditionalExpr represents `condition ? trueCase : falseCase`
type ConditionalExpr struct {
	ExpressionBase
	Condition OutputExpression
	TrueCase  OutputExpression
	FalseCase OutputExpression
}

// NewConditionalExpr creates a new ConditionalExpr
func NewConditionalExpr(condition, trueCase, falseCase OutputExpression, sourceSpan *util.ParseSourceSpan) *ConditionalExpr {
	return &ConditionalExpr{ExpressionBase: ExpressionBase{SourceSpan: sourceSpan}, Condition: condition, TrueCase: trueCase, FalseCase: falseCase}
}

func (c *ConditionalExpr) VisitExpression(visitor ExpressionVisitor, context interface{}) interface{} {
	return visitor.VisitConditionalExpr(c, context)
}

func (c *ConditionalExpr) IsEquivalent(e OutputExpression) bool {
	other, ok := e.(*ConditionalExpr)
	return ok && c.Condition.IsEquivalent(other.Condition) && c.TrueCase.IsEquivalent(other.TrueCase) &&
		NullSafeIsEquivalent(c.FalseCase, other.FalseCase)
}

func (c *ConditionalExpr) IsConstant() bool { return false }

// FnParam is a function parameter. Pattern, when set, is printed verbatim in
// place of the name (destructuring parameters).
type FnParam struct {
	Name    string
	Pattern string
}

// NewFnParam creates a new FnParam
func NewFnParam(name string) *FnParam {
	return &FnParam{Name: name}
}

// Params builds a parameter list from names
func Params(names ...string) []*FnParam {
	out := make([]*FnParam, len(names))
	for i, n := range names {
		out[i] = NewFnParam(n)
	}
	return out
}

// ArrowFunctionExpr represents `(params) => body`. Body is either an
// OutputExpression or a []OutputStatement.
type ArrowFunctionExpr struct {
	ExpressionBase
	Params []*FnParam
	Body   interface{}
}

// NewArrowFunctionExpr creates a new ArrowFunctionExpr
func NewArrowFunctionExpr(params []*FnParam, body interface{}, sourceSpan *util.ParseSourceSpan) *ArrowFunctionExpr {
	return &ArrowFunctionExpr{ExpressionBase: ExpressionBase{SourceSpan: sourceSpan}, Params: params, Body: body}
}

func (a *ArrowFunctionExpr) VisitExpression(visitor ExpressionVisitor, context interface{}) interface{} {
	return visitor.VisitArrowFunctionExpr(a, context)
}

func (a *ArrowFunctionExpr) IsEquivalent(e OutputExpression) bool {
	other, ok := e.(*ArrowFunctionExpr)
	if !ok || !areParamsEquivalent(a.Params, other.Params) {
		return false
	}
	switch body := a.Body.(type) {
	case OutputExpression:
		ob, ok := other.Body.(OutputExpression)
		return ok && body.IsEquivalent(ob)
	case []OutputStatement:
		ob, ok := other.Body.([]OutputStatement)
		return ok && AreAllStatementsEquivalent(body, ob)
	}
	return false
}

func (a *ArrowFunctionExpr) IsConstant() bool { return false }

// FunctionExpr represents `function name(params) { statements }`
type FunctionExpr struct {
	ExpressionBase
	Name       string
	Params     []*FnParam
	Statements []OutputStatement
}

// NewFunctionExpr creates a new FunctionExpr
func NewFunctionExpr(params []*FnParam, statements []OutputStatement, sourceSpan *util.ParseSourceSpan, name string) *FunctionExpr {
	return &FunctionExpr{ExpressionBase: ExpressionBase{SourceSpan: sourceSpan}, Name: name, Params: params, Statements: statements}
}

func (f *FunctionExpr) VisitExpression(visitor ExpressionVisitor, context interface{}) interface{} {
	return visitor.VisitFunctionExpr(f, context)
}

func (f *FunctionExpr) IsEquivalent(e OutputExpression) bool {
	other, ok := e.(*FunctionExpr)
	return ok && f.Name == other.Name && areParamsEquivalent(f.Params, other.Params) &&
		AreAllStatementsEquivalent(f.Statements, other.Statements)
}

func (f *FunctionExpr) IsConstant() bool { return false }

// ToDeclStmt converts the function expression into a declaration
func (f *FunctionExpr) ToDeclStmt(name string) *DeclareFunctionStmt {
	return NewDeclareFunctionStmt(name, f.Params, f.Statements, StmtModifierNone, f.SourceSpan)
}

// LiteralArrayExpr represents `[a, b]`. A nil entry is a hole.
type LiteralArrayExpr struct {
	ExpressionBase
	Entries []OutputExpression
}

// NewLiteralArrayExpr creates a new LiteralArrayExpr
func NewLiteralArrayExpr(entries []OutputExpression, sourceSpan *util.ParseSourceSpan) *LiteralArrayExpr {
	return &LiteralArrayExpr{ExpressionBase: ExpressionBase{SourceSpan: sourceSpan}, Entries: entries}
}

func (l *LiteralArrayExpr) VisitExpression(visitor ExpressionVisitor, context interface{}) interface{} {
	return visitor.VisitLiteralArrayExpr(l, context)
}

func (l *LiteralArrayExpr) IsEquivalent(e OutputExpression) bool {
	other, ok := e.(*LiteralArrayExpr)
	return ok && areAllEquivalent(l.Entries, other.Entries)
}

func (l *LiteralArrayExpr) IsConstant() bool {
	for _, entry := range l.Entries {
		if entry != nil && !entry.IsConstant() {
			return false
		}
	}
	return true
}

// LiteralMapEntry is one property of an object literal. A FunctionExpr value
// with Method set is printed in method shorthand. Computed replaces Key with
// `[expr]`.
type LiteralMapEntry struct {
	Key      string
	Computed OutputExpression
	Value    OutputExpression
	Quoted   bool
	Method   bool
}

// NewLiteralMapEntry creates a new LiteralMapEntry
func NewLiteralMapEntry(key string, value OutputExpression, quoted bool) *LiteralMapEntry {
	return &LiteralMapEntry{Key: key, Value: value, Quoted: quoted}
}

// NewMethodEntry creates an entry printed as `key(params) { ... }`
func NewMethodEntry(key string, fn *FunctionExpr) *LiteralMapEntry {
	return &LiteralMapEntry{Key: key, Value: fn, Method: true}
}

// IsEquivalent checks if two entries are equivalent
func (l *LiteralMapEntry) IsEquivalent(e *LiteralMapEntry) bool {
	return l.Key == e.Key && l.Method == e.Method && NullSafeIsEquivalent(l.Computed, e.Computed) &&
		NullSafeIsEquivalent(l.Value, e.Value)
}

// LiteralMapExpr represents an object literal
type LiteralMapExpr struct {
	ExpressionBase
	Entries []*LiteralMapEntry
}

// NewLiteralMapExpr creates a new LiteralMapExpr
func NewLiteralMapExpr(entries []*LiteralMapEntry, sourceSpan *util.ParseSourceSpan) *LiteralMapExpr {
	return &LiteralMapExpr{ExpressionBase: ExpressionBase{SourceSpan: sourceSpan}, Entries: entries}
}

func (l *LiteralMapExpr) VisitExpression(visitor ExpressionVisitor, context interface{}) interface{} {
	return visitor.VisitLiteralMapExpr(l, context)
}

func (l *LiteralMapExpr) IsEquivalent(e OutputExpression) bool {
	other, ok := e.(*LiteralMapExpr)
	if !ok || len(l.Entries) != len(other.Entries) {
		return false
	}
	for i := range l.Entries {
		if !l.Entries[i].IsEquivalent(other.Entries[i]) {
			return false
		}
	}
	return true
}

func (l *LiteralMapExpr) IsConstant() bool {
	for _, entry := range l.Entries {
		if entry.Value != nil && !entry.Value.IsConstant() {
			return false
		}
	}
	return true
}

// SpreadExpr represents `...expr` in argument lists, arrays and objects. In
// an object literal it is carried as an entry whose Key is empty.
type SpreadExpr struct {
	ExpressionBase
	Expr OutputExpression
}

// NewSpreadExpr creates a new SpreadExpr
func NewSpreadExpr(expr OutputExpression, sourceSpan *util.ParseSourceSpan) *SpreadExpr {
	return &SpreadExpr{ExpressionBase: ExpressionBase{SourceSpan: sourceSpan}, Expr: expr}
}

func (s *SpreadExpr) VisitExpression(visitor ExpressionVisitor, context interface{}) interface{} {
	return visitor.VisitSpreadExpr(s, context)
}

func (s *SpreadExpr) IsEquivalent(e OutputExpression) bool {
	other, ok := e.(*SpreadExpr)
	return ok && s.Expr.IsEquivalent(other.Expr)
}

func (s *SpreadExpr) IsConstant() bool { return false }

// CommaExpr represents `(a, b, c)`
type CommaExpr struct {
	ExpressionBase
	Parts []OutputExpression
}

// NewCommaExpr creates a new CommaExpr
func NewCommaExpr(parts []OutputExpression, sourceSpan *util.ParseSourceSpan) *CommaExpr {
	return &CommaExpr{ExpressionBase: ExpressionBase{SourceSpan: sourceSpan}, Parts: parts}
}

func (c *CommaExpr) VisitExpression(visitor ExpressionVisitor, context interface{}) interface{} {
	return visitor.VisitCommaExpr(c, context)
}

func (c *CommaExpr) IsEquivalent(e OutputExpression) bool {
	other, ok := e.(*CommaExpr)
	return ok && areAllEquivalent(c.Parts, other.Parts)
}

func (c *CommaExpr) IsConstant() bool { return false }

// CommentedExpr prints `/*comment*/ expr`. The comment does not take part in
// equivalence checks.
type CommentedExpr struct {
	ExpressionBase
	Comment string
	Expr    OutputExpression
}

// NewCommentedExpr creates a new CommentedExpr
func NewCommentedExpr(comment string, expr OutputExpression) *CommentedExpr {
	return &CommentedExpr{ExpressionBase: ExpressionBase{SourceSpan: expr.GetSourceSpan()}, Comment: comment, Expr: expr}
}

func (c *CommentedExpr) VisitExpression(visitor ExpressionVisitor, context interface{}) interface{} {
	return visitor.VisitCommentedExpr(c, context)
}

func (c *CommentedExpr) IsEquivalent(e OutputExpression) bool {
	if other, ok := e.(*CommentedExpr); ok {
		return c.Expr.IsEquivalent(other.Expr)
	}
	return c.Expr.IsEquivalent(e)
}

func (c *CommentedExpr) IsConstant() bool { return c.Expr.IsConstant() }

// NullSafeIsEquivalent compares two possibly nil expressions
func NullSafeIsEquivalent(base, other OutputExpression) bool {
	if base == nil || other == nil {
		return base == nil && other == nil
	}
	return base.IsEquivalent(other)
}

func areAllEquivalent(base, other []OutputExpression) bool {
	if len(base) != len(other) {
		return false
	}
	for i := range base {
		if !NullSafeIsEquivalent(base[i], other[i]) {
			return false
		}
	}
	return true
}

func areParamsEquivalent(base, other []*FnParam) bool {
	if len(base) != len(other) {
		return false
	}
	for i := range base {
		if *base[i] != *other[i] {
			return false
		}
	}
	return true
}

// StmtModifier represents statement modifiers
type StmtModifier int

const (
	StmtModifierNone     StmtModifier = 0
	StmtModifierFinal    StmtModifier = 1 << 0
	StmtModifierExported StmtModifier = 1 << 1
	StmtModifierVar      StmtModifier = 1 << 2
)

// StatementVisitor is the interface for visiting statements
type StatementVisitor interface {
	VisitDeclareVarStmt(stmt *DeclareVarStmt, context interface{}) interface{}
	VisitDeclareFunctionStmt(stmt *DeclareFunctionStmt, context interface{}) interface{}
	VisitExpressionStmt(stmt *ExpressionStatement, context interface{}) interface{}
	VisitReturnStmt(stmt *ReturnStatement, context interface{}) interface{}
	VisitIfStmt(stmt *IfStmt, context interface{}) interface{}
	VisitForStmt(stmt *ForStmt, context interface{}) interface{}
	VisitClassStmt(stmt *ClassStmt, context interface{}) interface{}
	VisitImportStmt(stmt *ImportStmt, context interface{}) interface{}
	VisitExportDefaultStmt(stmt *ExportDefaultStmt, context interface{}) interface{}
	VisitRawStmt(stmt *RawStmt, context interface{}) interface{}
}

// OutputStatement represents a statement in the output AST
type OutputStatement interface {
	GetModifiers() StmtModifier
	GetSourceSpan() *util.ParseSourceSpan
	GetLeadingComments() []*LeadingComment
	VisitStatement(visitor StatementVisitor, context interface{}) interface{}
	IsEquivalent(stmt OutputStatement) bool
}

// LeadingComment represents a comment printed before a statement
type LeadingComment struct {
	Text      string
	Multiline bool
}

// StatementBase is the base struct for all statements
type StatementBase struct {
	Modifiers       StmtModifier
	SourceSpan      *util.ParseSourceSpan
	LeadingComments []*LeadingComment
}

// GetModifiers returns the modifiers
func (s *StatementBase) GetModifiers() StmtModifier {
	return s.Modifiers
}

// GetSourceSpan returns the source span
func (s *StatementBase) GetSourceSpan() *util.ParseSourceSpan {
	return s.SourceSpan
}

// GetLeadingComments returns the comments printed before the statement
func (s *StatementBase) GetLeadingComments() []*LeadingComment {
	return s.LeadingComments
}

// AddLeadingComment appends a comment printed before the statement
func (s *StatementBase) AddLeadingComment(text string, multiline bool) {
	s.LeadingComments = append(s.LeadingComments, &LeadingComment{Text: text, Multiline: multiline})
}

// DeclareVarStmt represents `let name = value;`. StmtModifierFinal emits
// const and StmtModifierVar emits var.
type DeclareVarStmt struct {
	StatementBase
	Name  string
	Value OutputExpression
}

// NewDeclareVarStmt creates a new DeclareVarStmt
func NewDeclareVarStmt(name string, value OutputExpression, modifiers StmtModifier, sourceSpan *util.ParseSourceSpan) *DeclareVarStmt {
	return &DeclareVarStmt{
		StatementBase: StatementBase{Modifiers: modifiers, SourceSpan: sourceSpan},
		Name:          name,
		Value:         value,
	}
}

func (d *DeclareVarStmt) VisitStatement(visitor StatementVisitor, context interface{}) interface{} {
	return visitor.VisitDeclareVarStmt(d, context)
}

func (d *DeclareVarStmt) IsEquivalent(stmt OutputStatement) bool {
	other, ok := stmt.(*DeclareVarStmt)
	return ok && d.Name == other.Name && d.Modifiers == other.Modifiers && NullSafeIsEquivalent(d.Value, other.Value)
}

// DeclareFunctionStmt represents a function declaration statement
type DeclareFunctionStmt struct {
	StatementBase
	Name       string
	Params     []*FnParam
	Statements []OutputStatement
}

// NewDeclareFunctionStmt creates a new DeclareFunctionStmt
func NewDeclareFunctionStmt(name string, params []*FnParam, statements []OutputStatement, modifiers StmtModifier, sourceSpan *util.ParseSourceSpan) *DeclareFunctionStmt {
	return &DeclareFunctionStmt{
		StatementBase: StatementBase{Modifiers: modifiers, SourceSpan: sourceSpan},
		Name:          name,
		Params:        params,
		Statements:    statements,
	}
}

func (d *DeclareFunctionStmt) VisitStatement(visitor StatementVisitor, context interface{}) interface{} {
	return visitor.VisitDeclareFunctionStmt(d, context)
}

func (d *DeclareFunctionStmt) IsEquivalent(stmt OutputStatement) bool {
	other, ok := stmt.(*DeclareFunctionStmt)
	return ok && d.Name == other.Name && areParamsEquivalent(d.Params, other.Params) &&
		AreAllStatementsEquivalent(d.Statements, other.Statements)
}

// ExpressionStatement represents an expression statement
type ExpressionStatement struct {
	StatementBase
	Expr OutputExpression
}

// NewExpressionStatement creates a new ExpressionStatement
func NewExpressionStatement(expr OutputExpression, sourceSpan *util.ParseSourceSpan) *ExpressionStatement {
	return &ExpressionStatement{StatementBase: StatementBase{SourceSpan: sourceSpan}, Expr: expr}
}

func (e *ExpressionStatement) VisitStatement(visitor StatementVisitor, context interface{}) interface{} {
	return visitor.VisitExpressionStmt(e, context)
}

func (e *ExpressionStatement) IsEquivalent(stmt OutputStatement) bool {
	other, ok := stmt.(*ExpressionStatement)
	return ok && e.Expr.IsEquivalent(other.Expr)
}

// ReturnStatement represents a return statement. Value may be nil.
type ReturnStatement struct {
	StatementBase
	Value OutputExpression
}

// NewReturnStatement creates a new ReturnStatement
func NewReturnStatement(value OutputExpression, sourceSpan *util.ParseSourceSpan) *ReturnStatement {
	return &ReturnStatement{StatementBase: StatementBase{SourceSpan: sourceSpan}, Value: value}
}

func (r *ReturnStatement) VisitStatement(visitor StatementVisitor, context interface{}) interface{} {
	return visitor.VisitReturnStmt(r, context)
}

func (r *ReturnStatement) IsEquivalent(stmt OutputStatement) bool {
	other, ok := stmt.(*ReturnStatement)
	return ok && NullSafeIsEquivalent(r.Value, other.Value)
}

// IfStmt represents an if statement. A FalseCase holding a single IfStmt is
// printed as an else-if chain.
type IfStmt struct {
	StatementBase
	Condition OutputExpression
	TrueCase  []OutputStatement
	FalseCase []OutputStatement
}

// NewIfStmt creates a new IfStmt
func NewIfStmt(condition OutputExpression, trueCase, falseCase []OutputStatement, sourceSpan *util.ParseSourceSpan) *IfStmt {
	return &IfStmt{
		StatementBase: StatementBase{SourceSpan: sourceSpan},
		Condition:     condition,
		TrueCase:      trueCase,
		FalseCase:     falseCase,
	}
}

func (i *IfStmt) VisitStatement(visitor StatementVisitor, context interface{}) interface{} {
	return visitor.VisitIfStmt(i, context)
}

func (i *IfStmt) IsEquivalent(stmt OutputStatement) bool {
	other, ok := stmt.(*IfStmt)
	return ok && i.Condition.IsEquivalent(other.Condition) &&
		AreAllStatementsEquivalent(i.TrueCase, other.TrueCase) &&
		AreAllStatementsEquivalent(i.FalseCase, other.FalseCase)
}

// ForStmt represents `for (init; condition; step) { body }`
type ForStmt struct {
	StatementBase
	Init      *DeclareVarStmt
	Condition OutputExpression
	Step      OutputExpression
	Body      []OutputStatement
}

// NewForStmt creates a new ForStmt
func NewForStmt(init *DeclareVarStmt, condition, step OutputExpression, body []OutputStatement, sourceSpan *util.ParseSourceSpan) *ForStmt {
	return &ForStmt{
		StatementBase: StatementBase{SourceSpan: sourceSpan},
		Init:          init,
		Condition:     condition,
		Step:          step,
		Body:          body,
	}
}

func (f *ForStmt) VisitStatement(visitor StatementVisitor, context interface{}) interface{} {
	return visitor.VisitForStmt(f, context)
}

func (f *ForStmt) IsEquivalent(stmt OutputStatement) bool {
	other, ok := stmt.(*ForStmt)
	return ok && f.Init.IsEquivalent(other.Init) && f.Condition.IsEquivalent(other.Condition) &&
		f.Step.IsEquivalent(other.Step) && AreAllStatementsEquivalent(f.Body, other.Body)
}

// ClassMethodKind distinguishes methods from accessors
type ClassMethodKind int

const (
	ClassMethodPlain ClassMethodKind = iota
	ClassMethodGetter
	ClassMethodSetter
)

// ClassMethod is a method or accessor of a class declaration
type ClassMethod struct {
	Name       string
	Kind       ClassMethodKind
	Params     []*FnParam
	Statements []OutputStatement
}

// ClassStmt represents `class Name extends Parent { ... }`
type ClassStmt struct {
	StatementBase
	Name    string
	Parent  OutputExpression
	Methods []*ClassMethod
}

// NewClassStmt creates a new ClassStmt
func NewClassStmt(name string, parent OutputExpression, methods []*ClassMethod, sourceSpan *util.ParseSourceSpan) *ClassStmt {
	return &ClassStmt{
		StatementBase: StatementBase{SourceSpan: sourceSpan},
		Name:          name,
		Parent:        parent,
		Methods:       methods,
	}
}

func (c *ClassStmt) VisitStatement(visitor StatementVisitor, context interface{}) interface{} {
	return visitor.VisitClassStmt(c, context)
}

func (c *ClassStmt) IsEquivalent(stmt OutputStatement) bool {
	other, ok := stmt.(*ClassStmt)
	return ok && c.Name == other.Name && len(c.Methods) == len(other.Methods)
}

// ImportStmt represents `import { names } from "from";`
type ImportStmt struct {
	StatementBase
	Names []string
	From  string
}

// NewImportStmt creates a new ImportStmt
func NewImportStmt(names []string, from string) *ImportStmt {
	return &ImportStmt{Names: names, From: from}
}

func (i *ImportStmt) VisitStatement(visitor StatementVisitor, context interface{}) interface{} {
	return visitor.VisitImportStmt(i, context)
}

func (i *ImportStmt) IsEquivalent(stmt OutputStatement) bool {
	other, ok := stmt.(*ImportStmt)
	if !ok || i.From != other.From || len(i.Names) != len(other.Names) {
		return false
	}
	for n := range i.Names {
		if i.Names[n] != other.Names[n] {
			return false
		}
	}
	return true
}

// ExportDefaultStmt represents `export default Name;`
type ExportDefaultStmt struct {
	StatementBase
	Name string
}

// NewExportDefaultStmt creates a new ExportDefaultStmt
func NewExportDefaultStmt(name string) *ExportDefaultStmt {
	return &ExportDefaultStmt{Name: name}
}

func (e *ExportDefaultStmt) VisitStatement(visitor StatementVisitor, context interface{}) interface{} {
	return visitor.VisitExportDefaultStmt(e, context)
}

func (e *ExportDefaultStmt) IsEquivalent(stmt OutputStatement) bool {
	other, ok := stmt.(*ExportDefaultStmt)
	return ok && e.Name == other.Name
}

// RawStmt carries source text that is printed line by line at the current
// indentation. Used for user script that is passed through unchanged.
type RawStmt struct {
	StatementBase
	Text string
}

// NewRawStmt creates a new RawStmt
func NewRawStmt(text string, sourceSpan *util.ParseSourceSpan) *RawStmt {
	return &RawStmt{StatementBase: StatementBase{SourceSpan: sourceSpan}, Text: text}
}

func (r *RawStmt) VisitStatement(visitor StatementVisitor, context interface{}) interface{} {
	return visitor.VisitRawStmt(r, context)
}

func (r *RawStmt) IsEquivalent(stmt OutputStatement) bool {
	other, ok := stmt.(*RawStmt)
	return ok && r.Text == other.Text
}

// AreAllStatementsEquivalent compares two statement lists
func AreAllStatementsEquivalent(base, other []OutputStatement) bool {
	if len(base) != len(other) {
		return false
	}
	for i := range base {
		if !base[i].IsEquivalent(other[i]) {
			return false
		}
	}
	return true
}
