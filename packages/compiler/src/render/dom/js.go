package dom

import (
	"sveltec-go/packages/compiler/src/output"
)

// Small constructors for the output AST. Generated code carries no source
// spans, so every node is built with a nil span.

func ref(name string) *output.ReadVarExpr {
	return output.NewReadVarExpr(name, nil)
}

func lit(value interface{}) *output.LiteralExpr {
	return output.NewLiteralExpr(value, nil)
}

func null() *output.LiteralExpr {
	return output.NewLiteralExpr(nil, nil)
}

func call(fn output.OutputExpression, args ...output.OutputExpression) *output.InvokeFunctionExpr {
	return output.NewInvokeFunctionExpr(fn, args, nil)
}

func method(receiver output.OutputExpression, name string, args ...output.OutputExpression) *output.InvokeFunctionExpr {
	return call(prop(receiver, name), args...)
}

func prop(receiver output.OutputExpression, name string) *output.ReadPropExpr {
	return output.NewReadPropExpr(receiver, name, nil)
}

func index(receiver, key output.OutputExpression) *output.ReadKeyExpr {
	return output.NewReadKeyExpr(receiver, key, nil)
}

func binary(op output.BinaryOperator, lhs, rhs output.OutputExpression) *output.BinaryOperatorExpr {
	return output.NewBinaryOperatorExpr(op, lhs, rhs, nil)
}

func assign(target, value output.OutputExpression) *output.BinaryOperatorExpr {
	return binary(output.BinaryOperatorAssign, target, value)
}

func and(lhs, rhs output.OutputExpression) output.OutputExpression {
	if lhs == nil {
		return rhs
	}
	if rhs == nil {
		return lhs
	}
	return binary(output.BinaryOperatorAnd, lhs, rhs)
}

func or(lhs, rhs output.OutputExpression) output.OutputExpression {
	if lhs == nil {
		return rhs
	}
	if rhs == nil {
		return lhs
	}
	return binary(output.BinaryOperatorOr, lhs, rhs)
}

func not(expr output.OutputExpression) *output.UnaryOperatorExpr {
	return output.NewUnaryOperatorExpr(output.UnaryOperatorNot, expr, nil)
}

func notIdentical(lhs, rhs output.OutputExpression) *output.BinaryOperatorExpr {
	return binary(output.BinaryOperatorNotIdentical, lhs, rhs)
}

func identical(lhs, rhs output.OutputExpression) *output.BinaryOperatorExpr {
	return binary(output.BinaryOperatorIdentical, lhs, rhs)
}

func plus(lhs, rhs output.OutputExpression) *output.BinaryOperatorExpr {
	return binary(output.BinaryOperatorPlus, lhs, rhs)
}

func array(entries ...output.OutputExpression) *output.LiteralArrayExpr {
	return output.NewLiteralArrayExpr(entries, nil)
}

func object(entries ...*output.LiteralMapEntry) *output.LiteralMapExpr {
	return output.NewLiteralMapExpr(entries, nil)
}

func entry(key string, value output.OutputExpression) *output.LiteralMapEntry {
	return output.NewLiteralMapEntry(key, value, false)
}

func params(names ...string) []*output.FnParam {
	return output.Params(names...)
}

func function(params []*output.FnParam, body ...output.OutputStatement) *output.FunctionExpr {
	return output.NewFunctionExpr(params, body, nil, "")
}

func arrow(params []*output.FnParam, body interface{}) *output.ArrowFunctionExpr {
	return output.NewArrowFunctionExpr(params, body, nil)
}

func declareFunction(name string, params []*output.FnParam, body ...output.OutputStatement) *output.DeclareFunctionStmt {
	return output.NewDeclareFunctionStmt(name, params, body, output.StmtModifierNone, nil)
}

func stmt(expr output.OutputExpression) output.OutputStatement {
	return output.NewExpressionStatement(expr, nil)
}

func ret(expr output.OutputExpression) output.OutputStatement {
	return output.NewReturnStatement(expr, nil)
}

func when(cond output.OutputExpression, then ...output.OutputStatement) output.OutputStatement {
	return output.NewIfStmt(cond, then, nil, nil)
}

func whenElse(cond output.OutputExpression, then, otherwise []output.OutputStatement) output.OutputStatement {
	return output.NewIfStmt(cond, then, otherwise, nil)
}

func let(name string, init output.OutputExpression) output.OutputStatement {
	return output.NewDeclareVarStmt(name, init, output.StmtModifierNone, nil)
}

func constant(name string, init output.OutputExpression) output.OutputStatement {
	return output.NewDeclareVarStmt(name, init, output.StmtModifierFinal, nil)
}

// loop builds `for (let i = 0; i < bound; i += 1) { body }`.
func loop(i string, bound output.OutputExpression, body ...output.OutputStatement) output.OutputStatement {
	return output.NewForStmt(
		output.NewDeclareVarStmt(i, lit(0), output.StmtModifierNone, nil),
		binary(output.BinaryOperatorLower, ref(i), bound),
		binary(output.BinaryOperatorAdditionAssignment, ref(i), lit(1)),
		body, nil)
}

// loopFrom builds `for (; i < bound; i += 1) { body }` continuing from a
// counter declared earlier.
func loopFrom(i string, bound output.OutputExpression, body ...output.OutputStatement) output.OutputStatement {
	return output.NewForStmt(nil,
		binary(output.BinaryOperatorLower, ref(i), bound),
		binary(output.BinaryOperatorAdditionAssignment, ref(i), lit(1)),
		body, nil)
}

func statements(list ...output.OutputStatement) []output.OutputStatement {
	out := make([]output.OutputStatement, 0, len(list))
	for _, s := range list {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
