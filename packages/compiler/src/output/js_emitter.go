package output

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// JsEmitter prints the output AST as ES2015 module source. Binary, unary
// assignment and conditional expressions are parenthesized unless they sit
// in a position where the grammar makes that unnecessary (statement roots,
// if conditions, initializers, arguments and entries).
type JsEmitter struct {
	bare OutputExpression
}

// NewJsEmitter creates a new JsEmitter
func NewJsEmitter() *JsEmitter {
	return &JsEmitter{}
}

// EmitStatements renders statements to source text
func (v *JsEmitter) EmitStatements(stmts []OutputStatement) string {
	ctx := CreateRootEmitterVisitorContext()
	v.VisitAllStatements(stmts, ctx)
	return ctx.ToSource()
}

// EmitExpression renders a single expression
func (v *JsEmitter) EmitExpression(expr OutputExpression) string {
	ctx := CreateRootEmitterVisitorContext()
	v.visitBare(expr, ctx)
	return ctx.ToSource()
}

func (v *JsEmitter) getContext(context interface{}) *EmitterVisitorContext {
	if ctx, ok := context.(*EmitterVisitorContext); ok {
		return ctx
	}
	panic("context must be *EmitterVisitorContext")
}

// visitBare visits expr in a position that needs no surrounding parens.
func (v *JsEmitter) visitBare(expr OutputExpression, ctx *EmitterVisitorContext) {
	v.bare = expr
	expr.VisitExpression(v, ctx)
	v.bare = nil
}

// enter reports whether ast must be parenthesized and clears the bare marker
// so that nested expressions are parenthesized again.
func (v *JsEmitter) enter(ast OutputExpression) bool {
	parens := ast != v.bare
	v.bare = nil
	return parens
}

// PrintLeadingComments prints leading comments
func (v *JsEmitter) PrintLeadingComments(stmt OutputStatement, ctx *EmitterVisitorContext) {
	for _, comment := range stmt.GetLeadingComments() {
		if comment.Multiline {
			ctx.Println("/* " + comment.Text + " */")
		} else {
			for _, line := range strings.Split(comment.Text, "\n") {
				ctx.Println("// " + line)
			}
		}
	}
}

// VisitAllStatements visits all statements
func (v *JsEmitter) VisitAllStatements(statements []OutputStatement, ctx *EmitterVisitorContext) {
	for _, stmt := range statements {
		stmt.VisitStatement(v, ctx)
	}
}

// VisitAllExpressions visits all expressions
func (v *JsEmitter) VisitAllExpressions(expressions []OutputExpression, ctx *EmitterVisitorContext, separator string) {
	visitAll(ctx, expressions, separator, func(expr OutputExpression) {
		if expr != nil {
			v.visitBare(expr, ctx)
		}
	})
}

func (v *JsEmitter) VisitDeclareVarStmt(stmt *DeclareVarStmt, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.PrintLeadingComments(stmt, ctx)
	v.printVarDecl(stmt, ctx)
	ctx.Println(";")
	return nil
}

func (v *JsEmitter) printVarDecl(stmt *DeclareVarStmt, ctx *EmitterVisitorContext) {
	if stmt.Modifiers&StmtModifierExported != 0 {
		ctx.Print("export ", false)
	}
	switch {
	case stmt.Modifiers&StmtModifierFinal != 0:
		ctx.Print("const ", false)
	case stmt.Modifiers&StmtModifierVar != 0:
		ctx.Print("var ", false)
	default:
		ctx.Print("let ", false)
	}
	ctx.Print(stmt.Name, false)
	if stmt.Value != nil {
		ctx.Print(" = ", false)
		v.visitBare(stmt.Value, ctx)
	}
}

func (v *JsEmitter) VisitDeclareFunctionStmt(stmt *DeclareFunctionStmt, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.PrintLeadingComments(stmt, ctx)
	if stmt.Modifiers&StmtModifierExported != 0 {
		ctx.Print("export ", false)
	}
	ctx.Print("function "+stmt.Name+"(", false)
	v.visitParams(stmt.Params, ctx)
	ctx.Print(") ", false)
	v.visitBody(stmt.Statements, ctx)
	ctx.Println("")
	return nil
}

func (v *JsEmitter) VisitExpressionStmt(stmt *ExpressionStatement, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.PrintLeadingComments(stmt, ctx)
	v.visitBare(stmt.Expr, ctx)
	ctx.Println(";")
	return nil
}

func (v *JsEmitter) VisitReturnStmt(stmt *ReturnStatement, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.PrintLeadingComments(stmt, ctx)
	if stmt.Value == nil {
		ctx.Println("return;")
		return nil
	}
	ctx.Print("return ", false)
	v.visitBare(stmt.Value, ctx)
	ctx.Println(";")
	return nil
}

func (v *JsEmitter) VisitIfStmt(stmt *IfStmt, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.PrintLeadingComments(stmt, ctx)
	ctx.Print("if (", false)
	v.visitBare(stmt.Condition, ctx)
	ctx.Print(") {", false)

	hasElseCase := len(stmt.FalseCase) > 0
	if len(stmt.TrueCase) == 1 && !hasElseCase && isSimpleStatement(stmt.TrueCase[0]) {
		ctx.Print(" ", false)
		v.VisitAllStatements(stmt.TrueCase, ctx)
		ctx.RemoveEmptyLastLine()
		ctx.Print(" ", false)
		ctx.Println("}")
		return nil
	}
	ctx.Println("")
	ctx.IncIndent()
	v.VisitAllStatements(stmt.TrueCase, ctx)
	ctx.DecIndent()
	for hasElseCase {
		if elseIf, ok := asElseIf(stmt.FalseCase); ok {
			ctx.Print("} else if (", false)
			v.visitBare(elseIf.Condition, ctx)
			ctx.Println(") {")
			ctx.IncIndent()
			v.VisitAllStatements(elseIf.TrueCase, ctx)
			ctx.DecIndent()
			stmt = elseIf
			hasElseCase = len(stmt.FalseCase) > 0
			continue
		}
		ctx.Println("} else {")
		ctx.IncIndent()
		v.VisitAllStatements(stmt.FalseCase, ctx)
		ctx.DecIndent()
		break
	}
	ctx.Println("}")
	return nil
}

func asElseIf(stmts []OutputStatement) (*IfStmt, bool) {
	if len(stmts) != 1 {
		return nil, false
	}
	elseIf, ok := stmts[0].(*IfStmt)
	if !ok || len(elseIf.LeadingComments) > 0 {
		return nil, false
	}
	return elseIf, true
}

// isSimpleStatement reports whether stmt prints on a single line.
func isSimpleStatement(stmt OutputStatement) bool {
	if len(stmt.GetLeadingComments()) > 0 {
		return false
	}
	switch s := stmt.(type) {
	case *ExpressionStatement:
		return !containsBlock(s.Expr)
	case *ReturnStatement:
		return s.Value == nil || !containsBlock(s.Value)
	case *DeclareVarStmt:
		return s.Value == nil || !containsBlock(s.Value)
	}
	return false
}

func containsBlock(expr OutputExpression) bool {
	switch e := expr.(type) {
	case *FunctionExpr:
		return true
	case *ArrowFunctionExpr:
		_, ok := e.Body.([]OutputStatement)
		return ok
	case *LiteralMapExpr:
		for _, entry := range e.Entries {
			if entry.Method || (entry.Value != nil && containsBlock(entry.Value)) {
				return true
			}
		}
	case *InvokeFunctionExpr:
		for _, arg := range e.Args {
			if arg != nil && containsBlock(arg) {
				return true
			}
		}
		return containsBlock(e.Fn)
	case *BinaryOperatorExpr:
		return containsBlock(e.Lhs) || containsBlock(e.Rhs)
	}
	return false
}

func (v *JsEmitter) VisitForStmt(stmt *ForStmt, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.PrintLeadingComments(stmt, ctx)
	ctx.Print("for (", false)
	if stmt.Init != nil {
		v.printVarDecl(stmt.Init, ctx)
	}
	ctx.Print("; ", false)
	if stmt.Condition != nil {
		v.visitBare(stmt.Condition, ctx)
	}
	ctx.Print("; ", false)
	if stmt.Step != nil {
		v.visitBare(stmt.Step, ctx)
	}
	ctx.Print(") ", false)
	v.visitBody(stmt.Body, ctx)
	ctx.Println("")
	return nil
}

func (v *JsEmitter) VisitClassStmt(stmt *ClassStmt, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.PrintLeadingComments(stmt, ctx)
	ctx.Print("class "+stmt.Name, false)
	if stmt.Parent != nil {
		ctx.Print(" extends ", false)
		stmt.Parent.VisitExpression(v, ctx)
	}
	ctx.Println(" {")
	ctx.IncIndent()
	for i, method := range stmt.Methods {
		if i > 0 {
			ctx.Println("")
		}
		switch method.Kind {
		case ClassMethodGetter:
			ctx.Print("get ", false)
		case ClassMethodSetter:
			ctx.Print("set ", false)
		}
		ctx.Print(method.Name+"(", false)
		v.visitParams(method.Params, ctx)
		ctx.Print(") ", false)
		v.visitBody(method.Statements, ctx)
		ctx.Println("")
	}
	ctx.DecIndent()
	ctx.Println("}")
	return nil
}

func (v *JsEmitter) VisitImportStmt(stmt *ImportStmt, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.PrintLeadingComments(stmt, ctx)
	ctx.Print("import {", false)
	if len(stmt.Names) > 0 {
		ctx.Print(" ", false)
		visitAll(ctx, stmt.Names, ", ", func(name string) {
			ctx.Print(name, false)
		})
		ctx.Print(" ", false)
	}
	ctx.Println("} from " + EscapeIdentifier(stmt.From, false, true) + ";")
	return nil
}

func (v *JsEmitter) VisitExportDefaultStmt(stmt *ExportDefaultStmt, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.PrintLeadingComments(stmt, ctx)
	ctx.Println("export default " + stmt.Name + ";")
	return nil
}

func (v *JsEmitter) VisitRawStmt(stmt *RawStmt, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.PrintLeadingComments(stmt, ctx)
	for _, line := range dedent(stmt.Text) {
		ctx.Println(line)
	}
	return nil
}

// visitBody prints `{ ... }` without a trailing newline.
func (v *JsEmitter) visitBody(stmts []OutputStatement, ctx *EmitterVisitorContext) {
	if len(stmts) == 0 {
		ctx.Print("{}", false)
		return
	}
	ctx.Println("{")
	ctx.IncIndent()
	v.VisitAllStatements(stmts, ctx)
	ctx.DecIndent()
	ctx.Print("}", false)
}

func (v *JsEmitter) visitParams(params []*FnParam, ctx *EmitterVisitorContext) {
	visitAll(ctx, params, ", ", func(param *FnParam) {
		if param.Pattern != "" {
			ctx.Print(param.Pattern, false)
		} else {
			ctx.Print(param.Name, false)
		}
	})
}

func (v *JsEmitter) VisitReadVarExpr(ast *ReadVarExpr, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.enter(ast)
	ctx.Print(ast.Name, false)
	return nil
}

func (v *JsEmitter) VisitLiteralExpr(ast *LiteralExpr, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.enter(ast)
	ctx.Print(formatLiteral(ast.Value), false)
	return nil
}

func formatLiteral(value interface{}) string {
	switch val := value.(type) {
	case nil:
		return "null"
	case string:
		return EscapeIdentifier(val, false, true)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case float64:
		switch {
		case math.IsNaN(val):
			return "NaN"
		case math.IsInf(val, 1):
			return "Infinity"
		case math.IsInf(val, -1):
			return "-Infinity"
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func (v *JsEmitter) VisitRegularExpressionLiteral(ast *RegularExpressionLiteralExpr, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.enter(ast)
	ctx.Print("/"+ast.Body+"/"+ast.Flags, false)
	return nil
}

func (v *JsEmitter) VisitTemplateLiteralExpr(ast *TemplateLiteralExpr, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.enter(ast)
	ctx.Print("`", false)
	for i, raw := range ast.RawElements {
		ctx.Print(raw, false)
		if i < len(ast.Expressions) {
			ctx.Print("${", false)
			v.visitBare(ast.Expressions[i], ctx)
			ctx.Print("}", false)
		}
	}
	ctx.Print("`", false)
	return nil
}

// visitReceiver prints the object side of a member access or call.
func (v *JsEmitter) visitReceiver(expr OutputExpression, ctx *EmitterVisitorContext) {
	switch expr.(type) {
	case *UnaryOperatorExpr, *UpdateExpr, *FunctionExpr, *ArrowFunctionExpr, *LiteralMapExpr:
		ctx.Print("(", false)
		v.visitBare(expr, ctx)
		ctx.Print(")", false)
	case *LiteralExpr:
		switch expr.(*LiteralExpr).Value.(type) {
		case int, int64, uint32, float64:
			ctx.Print("(", false)
			v.visitBare(expr, ctx)
			ctx.Print(")", false)
			return
		}
		expr.VisitExpression(v, ctx)
	default:
		expr.VisitExpression(v, ctx)
	}
}

func (v *JsEmitter) VisitReadPropExpr(ast *ReadPropExpr, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.enter(ast)
	v.visitReceiver(ast.Receiver, ctx)
	if ast.Optional {
		ctx.Print("?.", false)
	} else {
		ctx.Print(".", false)
	}
	ctx.Print(ast.Name, false)
	return nil
}

func (v *JsEmitter) VisitReadKeyExpr(ast *ReadKeyExpr, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.enter(ast)
	v.visitReceiver(ast.Receiver, ctx)
	if ast.Optional {
		ctx.Print("?.", false)
	}
	ctx.Print("[", false)
	v.visitBare(ast.Index, ctx)
	ctx.Print("]", false)
	return nil
}

func (v *JsEmitter) VisitInvokeFunctionExpr(ast *InvokeFunctionExpr, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.enter(ast)
	v.visitReceiver(ast.Fn, ctx)
	if ast.Optional {
		ctx.Print("?.", false)
	}
	ctx.Print("(", false)
	v.VisitAllExpressions(ast.Args, ctx, ", ")
	ctx.Print(")", false)
	return nil
}

func (v *JsEmitter) VisitInstantiateExpr(ast *InstantiateExpr, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.enter(ast)
	ctx.Print("new ", false)
	v.visitReceiver(ast.ClassExpr, ctx)
	ctx.Print("(", false)
	v.VisitAllExpressions(ast.Args, ctx, ", ")
	ctx.Print(")", false)
	return nil
}

var unaryOperators = map[UnaryOperator]string{
	UnaryOperatorMinus:      "-",
	UnaryOperatorPlus:       "+",
	UnaryOperatorNot:        "!",
	UnaryOperatorBitwiseNot: "~",
	UnaryOperatorTypeof:     "typeof ",
	UnaryOperatorVoid:       "void ",
	UnaryOperatorDelete:     "delete ",
}

// UnaryOperatorFromToken maps a source operator token to its UnaryOperator
func UnaryOperatorFromToken(token string) (UnaryOperator, bool) {
	for op, tok := range unaryOperators {
		if strings.TrimSpace(tok) == token {
			return op, true
		}
	}
	return 0, false
}

func (v *JsEmitter) VisitUnaryOperatorExpr(ast *UnaryOperatorExpr, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.enter(ast)
	opStr, ok := unaryOperators[ast.Operator]
	if !ok {
		panic(fmt.Sprintf("Unknown operator %d", ast.Operator))
	}
	ctx.Print(opStr, false)
	switch ast.Expr.(type) {
	case *UnaryOperatorExpr, *UpdateExpr:
		ctx.Print("(", false)
		v.visitBare(ast.Expr, ctx)
		ctx.Print(")", false)
	default:
		ast.Expr.VisitExpression(v, ctx)
	}
	return nil
}

func (v *JsEmitter) VisitUpdateExpr(ast *UpdateExpr, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.enter(ast)
	op := "--"
	if ast.Increment {
		op = "++"
	}
	if ast.Prefix {
		ctx.Print(op, false)
	}
	ast.Expr.VisitExpression(v, ctx)
	if !ast.Prefix {
		ctx.Print(op, false)
	}
	return nil
}

func (v *JsEmitter) VisitBinaryOperatorExpr(ast *BinaryOperatorExpr, context interface{}) interface{} {
	ctx := v.getContext(context)
	operator, ok := binaryOperators[ast.Operator]
	if !ok {
		panic(fmt.Sprintf("Unknown operator %d", ast.Operator))
	}

	parens := v.enter(ast)
	if parens {
		ctx.Print("(", false)
	}
	ast.Lhs.VisitExpression(v, ctx)
	ctx.Print(" "+operator+" ", false)
	if ast.IsAssignment() {
		v.visitBare(ast.Rhs, ctx)
	} else {
		ast.Rhs.VisitExpression(v, ctx)
	}
	if parens {
		ctx.Print(")", false)
	}
	return nil
}

func (v *JsEmitter) VisitConditionalExpr(ast *ConditionalExpr, context interface{}) interface{} {
	ctx := v.getContext(context)
	parens := v.enter(ast)
	if parens {
		ctx.Print("(", false)
	}
	ast.Condition.VisitExpression(v, ctx)
	ctx.Print(" ? ", false)
	ast.TrueCase.VisitExpression(v, ctx)
	ctx.Print(" : ", false)
	if ast.FalseCase != nil {
		ast.FalseCase.VisitExpression(v, ctx)
	} else {
		ctx.Print("null", false)
	}
	if parens {
		ctx.Print(")", false)
	}
	return nil
}

func (v *JsEmitter) VisitArrowFunctionExpr(ast *ArrowFunctionExpr, context interface{}) interface{} {
	ctx := v.getContext(context)
	parens := v.enter(ast)
	if parens {
		ctx.Print("(", false)
	}
	ctx.Print("(", false)
	v.visitParams(ast.Params, ctx)
	ctx.Print(") => ", false)
	switch body := ast.Body.(type) {
	case []OutputStatement:
		v.visitBody(body, ctx)
	case *LiteralMapExpr:
		ctx.Print("(", false)
		v.visitBare(body, ctx)
		ctx.Print(")", false)
	case OutputExpression:
		v.visitBare(body, ctx)
	}
	if parens {
		ctx.Print(")", false)
	}
	return nil
}

func (v *JsEmitter) VisitFunctionExpr(ast *FunctionExpr, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.enter(ast)
	ctx.Print("function ", false)
	if ast.Name != "" {
		ctx.Print(ast.Name, false)
	}
	ctx.Print("(", false)
	v.visitParams(ast.Params, ctx)
	ctx.Print(") ", false)
	v.visitBody(ast.Statements, ctx)
	return nil
}

func (v *JsEmitter) VisitLiteralArrayExpr(ast *LiteralArrayExpr, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.enter(ast)
	ctx.Print("[", false)
	visitAll(ctx, ast.Entries, ", ", func(entry OutputExpression) {
		if entry != nil {
			v.visitBare(entry, ctx)
		}
	})
	// a trailing hole needs its own comma: [a, ,] has length 2
	if n := len(ast.Entries); n > 0 && ast.Entries[n-1] == nil {
		ctx.Print(",", false)
	}
	ctx.Print("]", false)
	return nil
}

func (v *JsEmitter) VisitLiteralMapExpr(ast *LiteralMapExpr, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.enter(ast)
	if len(ast.Entries) == 0 {
		ctx.Print("{}", false)
		return nil
	}
	if !containsBlock(ast) {
		ctx.Print("{ ", false)
		visitAll(ctx, ast.Entries, ", ", func(entry *LiteralMapEntry) {
			v.visitMapEntry(entry, ctx)
		})
		ctx.Print(" }", false)
		return nil
	}
	ctx.Println("{")
	ctx.IncIndent()
	for i, entry := range ast.Entries {
		v.visitMapEntry(entry, ctx)
		if i < len(ast.Entries)-1 {
			ctx.Println(",")
		} else {
			ctx.Println("")
		}
	}
	ctx.DecIndent()
	ctx.Print("}", false)
	return nil
}

func (v *JsEmitter) visitMapEntry(entry *LiteralMapEntry, ctx *EmitterVisitorContext) {
	if spread, ok := entry.Value.(*SpreadExpr); ok && entry.Key == "" {
		v.visitBare(spread, ctx)
		return
	}
	if entry.Computed != nil {
		ctx.Print("[", false)
		v.visitBare(entry.Computed, ctx)
		ctx.Print("]: ", false)
		v.visitBare(entry.Value, ctx)
		return
	}
	key := EscapeIdentifier(entry.Key, false, entry.Quoted)
	if !entry.Quoted && indexKeyRe.MatchString(entry.Key) {
		key = entry.Key
	}
	if fn, ok := entry.Value.(*FunctionExpr); ok && entry.Method {
		ctx.Print(key+"(", false)
		v.visitParams(fn.Params, ctx)
		ctx.Print(") ", false)
		v.visitBody(fn.Statements, ctx)
		return
	}
	if ref, ok := entry.Value.(*ReadVarExpr); ok && ref.Name == entry.Key && !entry.Quoted {
		ctx.Print(key, false)
		return
	}
	ctx.Print(key+": ", false)
	v.visitBare(entry.Value, ctx)
}

func (v *JsEmitter) VisitSpreadExpr(ast *SpreadExpr, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.enter(ast)
	ctx.Print("...", false)
	v.visitBare(ast.Expr, ctx)
	return nil
}

func (v *JsEmitter) VisitCommaExpr(ast *CommaExpr, context interface{}) interface{} {
	ctx := v.getContext(context)
	v.enter(ast)
	ctx.Print("(", false)
	v.VisitAllExpressions(ast.Parts, ctx, ", ")
	ctx.Print(")", false)
	return nil
}

func (v *JsEmitter) VisitCommentedExpr(ast *CommentedExpr, context interface{}) interface{} {
	ctx := v.getContext(context)
	bare := ast == v.bare
	v.bare = nil
	ctx.Print("/*"+ast.Comment+"*/ ", false)
	if bare {
		v.visitBare(ast.Expr, ctx)
	} else {
		ast.Expr.VisitExpression(v, ctx)
	}
	return nil
}
