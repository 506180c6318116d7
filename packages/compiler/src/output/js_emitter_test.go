package output_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sveltec-go/packages/compiler/src/output"
)

func v(name string) *output.ReadVarExpr { return output.NewReadVarExpr(name, nil) }

func lit(value interface{}) *output.LiteralExpr { return output.NewLiteralExpr(value, nil) }

func call(fn output.OutputExpression, args ...output.OutputExpression) *output.InvokeFunctionExpr {
	return output.NewInvokeFunctionExpr(fn, args, nil)
}

func bin(op output.BinaryOperator, lhs, rhs output.OutputExpression) *output.BinaryOperatorExpr {
	return output.NewBinaryOperatorExpr(op, lhs, rhs, nil)
}

func stmt(expr output.OutputExpression) output.OutputStatement {
	return output.NewExpressionStatement(expr, nil)
}

func emit(stmts ...output.OutputStatement) string {
	return output.NewJsEmitter().EmitStatements(stmts)
}

func lines(text ...string) string {
	return strings.Join(text, "\n")
}

func TestEscapeIdentifier(t *testing.T) {
	t.Run("should escape single quotes", func(t *testing.T) {
		if got := output.EscapeIdentifier("'", false, true); got != `'\''` {
			t.Errorf("Expected %q, got %q", `'\''`, got)
		}
	})

	t.Run("should escape newlines", func(t *testing.T) {
		if got := output.EscapeIdentifier("a\nb", false, true); got != `'a\nb'` {
			t.Errorf("Expected %q, got %q", `'a\nb'`, got)
		}
	})

	t.Run("should escape $ only when asked", func(t *testing.T) {
		if got := output.EscapeIdentifier("$", true, true); got != `'\$'` {
			t.Errorf("Expected %q, got %q", `'\$'`, got)
		}
		if got := output.EscapeIdentifier("$", false, true); got != `'$'` {
			t.Errorf("Expected %q, got %q", `'$'`, got)
		}
	})

	t.Run("should add quotes for non-identifiers", func(t *testing.T) {
		if got := output.EscapeIdentifier("data-id", false, false); got != `'data-id'` {
			t.Errorf("Expected %q, got %q", `'data-id'`, got)
		}
		if got := output.EscapeIdentifier("value", false, false); got != "value" {
			t.Errorf("Expected %q, got %q", "value", got)
		}
	})

	t.Run("should quote empty strings", func(t *testing.T) {
		if got := output.EscapeIdentifier("", false, true); got != "''" {
			t.Errorf("Expected %q, got %q", "''", got)
		}
	})

	t.Run("should escape template text", func(t *testing.T) {
		if got := output.EscapeTemplateRaw("a`b${c}"); got != "a\\`b\\${c}" {
			t.Errorf("Expected %q, got %q", "a\\`b\\${c}", got)
		}
	})
}

func TestJsEmitter(t *testing.T) {
	t.Run("expressions", func(t *testing.T) {
		cases := []struct {
			name string
			expr output.OutputExpression
			want string
		}{
			{"should print literals", output.NewLiteralArrayExpr([]output.OutputExpression{lit(1), lit(1.5), lit("a"), lit(true), lit(nil)}, nil), "[1, 1.5, 'a', true, null]"},
			{"should print holes", output.NewLiteralArrayExpr([]output.OutputExpression{nil, nil, nil}, nil), "[, , ,]"},
			{"should not parenthesize a bare binary", bin(output.BinaryOperatorBitwiseAnd, output.NewReadKeyExpr(v("dirty"), lit(0), nil), lit(1)), "dirty[0] & 1"},
			{
				"should parenthesize nested binaries",
				bin(output.BinaryOperatorAnd,
					bin(output.BinaryOperatorBitwiseAnd, v("dirty"), lit(1)),
					bin(output.BinaryOperatorNotIdentical, v("t_value"), v("t_value").Set(v("x")))),
				"(dirty & 1) && (t_value !== (t_value = x))",
			},
			{"should print comments", output.NewCommentedExpr("count", output.NewReadKeyExpr(v("ctx"), lit(0), nil)), "/*count*/ ctx[0]"},
			{"should print optional chains", &output.ReadPropExpr{Receiver: v("a"), Name: "b", Optional: true}, "a?.b"},
			{"should print unary", output.NewUnaryOperatorExpr(output.UnaryOperatorNot, bin(output.BinaryOperatorAnd, v("a"), v("b")), nil), "!(a && b)"},
			{"should print typeof", output.NewUnaryOperatorExpr(output.UnaryOperatorTypeof, v("a"), nil), "typeof a"},
			{"should print update expressions", output.NewUpdateExpr(true, false, v("i"), nil), "i++"},
			{"should print conditionals", output.NewConditionalExpr(v("a"), lit(1), lit(2), nil), "a ? 1 : 2"},
			{"should print new", output.NewInstantiateExpr(v("Nested"), []output.OutputExpression{v("props")}, nil), "new Nested(props)"},
			{"should wrap numeric receivers", output.NewReadPropExpr(lit(1), "toString", nil), "(1).toString"},
			{
				"should print arrows with object bodies",
				output.NewArrowFunctionExpr(output.Params("x"), output.NewLiteralMapExpr([]*output.LiteralMapEntry{output.NewLiteralMapEntry("x", v("x"), false)}, nil), nil),
				"(x) => ({ x })",
			},
			{
				"should print template literals",
				output.NewTemplateLiteralExpr([]string{"a ", ""}, []output.OutputExpression{v("b")}, nil),
				"`a ${b}`",
			},
			{"should print regular expressions", output.NewRegularExpressionLiteralExpr("a+", "g", nil), "/a+/g"},
			{"should print comma expressions", output.NewCommaExpr([]output.OutputExpression{v("a"), v("b")}, nil), "(a, b)"},
			{
				"should print spreads and quoted keys",
				output.NewLiteralMapExpr([]*output.LiteralMapEntry{
					output.NewLiteralMapEntry("", output.NewSpreadExpr(v("rest"), nil), false),
					output.NewLiteralMapEntry("data-id", lit(1), true),
				}, nil),
				"{ ...rest, 'data-id': 1 }",
			},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				got := output.NewJsEmitter().EmitExpression(tc.expr)
				if diff := cmp.Diff(tc.want, got); diff != "" {
					t.Errorf("EmitExpression mismatch (-want +got):\n%s", diff)
				}
			})
		}
	})

	t.Run("statements", func(t *testing.T) {
		t.Run("should print declarations", func(t *testing.T) {
			got := emit(
				output.NewDeclareVarStmt("a", lit(1), output.StmtModifierFinal, nil),
				output.NewDeclareVarStmt("b", nil, output.StmtModifierNone, nil),
			)
			want := lines("const a = 1;", "let b;")
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should print single statement ifs on one line", func(t *testing.T) {
			got := emit(output.NewIfStmt(v("a"), []output.OutputStatement{stmt(call(v("f")))}, nil, nil))
			if diff := cmp.Diff("if (a) { f(); }", got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should print else if chains", func(t *testing.T) {
			got := emit(output.NewIfStmt(v("a"),
				[]output.OutputStatement{stmt(call(v("f")))},
				[]output.OutputStatement{output.NewIfStmt(v("b"),
					[]output.OutputStatement{stmt(call(v("g")))},
					[]output.OutputStatement{stmt(call(v("h")))}, nil)},
				nil))
			want := lines(
				"if (a) {",
				"  f();",
				"} else if (b) {",
				"  g();",
				"} else {",
				"  h();",
				"}",
			)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should print for loops", func(t *testing.T) {
			got := emit(output.NewForStmt(
				output.NewDeclareVarStmt("i", lit(0), output.StmtModifierNone, nil),
				bin(output.BinaryOperatorLower, v("i"), output.NewReadPropExpr(v("list"), "length", nil)),
				bin(output.BinaryOperatorAdditionAssignment, v("i"), lit(1)),
				[]output.OutputStatement{stmt(call(v("f"), v("i")))},
				nil))
			want := lines(
				"for (let i = 0; i < list.length; i += 1) {",
				"  f(i);",
				"}",
			)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should print functions returning method objects", func(t *testing.T) {
			block := output.NewLiteralMapExpr([]*output.LiteralMapEntry{
				output.NewMethodEntry("c", output.NewFunctionExpr(nil, []output.OutputStatement{
					stmt(v("div").Set(call(v("element"), lit("div")))),
				}, nil, "")),
				output.NewLiteralMapEntry("p", v("noop"), false),
			}, nil)
			fn := output.NewDeclareFunctionStmt("create_fragment", output.Params("ctx"), []output.OutputStatement{
				output.NewDeclareVarStmt("div", nil, output.StmtModifierNone, nil),
				output.NewReturnStatement(block, nil),
			}, output.StmtModifierNone, nil)
			fn.AddLeadingComment("(1:0) <div>", false)
			want := lines(
				"// (1:0) <div>",
				"function create_fragment(ctx) {",
				"  let div;",
				"  return {",
				"    c() {",
				"      div = element('div');",
				"    },",
				"    p: noop",
				"  };",
				"}",
			)
			if diff := cmp.Diff(want, emit(fn)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should print classes", func(t *testing.T) {
			cls := output.NewClassStmt("App", v("SvelteComponent"), []*output.ClassMethod{
				{Name: "constructor", Params: output.Params("options"), Statements: []output.OutputStatement{
					stmt(call(v("super"))),
				}},
				{Name: "name", Kind: output.ClassMethodGetter, Statements: []output.OutputStatement{
					output.NewReturnStatement(output.NewReadPropExpr(output.NewReadPropExpr(v("this"), "$$", nil), "ctx", nil), nil),
				}},
			}, nil)
			want := lines(
				"class App extends SvelteComponent {",
				"  constructor(options) {",
				"    super();",
				"  }",
				"",
				"  get name() {",
				"    return this.$$.ctx;",
				"  }",
				"}",
			)
			if diff := cmp.Diff(want, emit(cls)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should print imports and exports", func(t *testing.T) {
			got := emit(
				output.NewImportStmt([]string{"init", "noop"}, "svelte/internal"),
				output.NewExportDefaultStmt("App"),
			)
			want := lines("import { init, noop } from 'svelte/internal';", "export default App;")
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should dedent raw statements", func(t *testing.T) {
			raw := output.NewRawStmt("\n\t\tlet a = 1;\n\n\t\tfunction f() {\n\t\t\treturn a;\n\t\t}\n", nil)
			got := emit(output.NewDeclareFunctionStmt("instance", nil, []output.OutputStatement{raw}, output.StmtModifierNone, nil))
			want := lines(
				"function instance() {",
				"  let a = 1;",
				"",
				"  function f() {",
				"  \treturn a;",
				"  }",
				"}",
			)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should wrap long argument lists", func(t *testing.T) {
			args := make([]output.OutputExpression, 12)
			for i := range args {
				args[i] = v("argument_number")
			}
			got := emit(stmt(call(v("f"), args...)))
			if !strings.Contains(got, ",\n    argument_number") {
				t.Errorf("expected wrapped arguments, got %q", got)
			}
		})
	})

	t.Run("IsEquivalent", func(t *testing.T) {
		t.Run("should ignore comments", func(t *testing.T) {
			a := output.NewCommentedExpr("x", v("a"))
			if !a.IsEquivalent(v("a")) {
				t.Error("expected commented expression to equal its inner expression")
			}
		})
		t.Run("should compare literals by value", func(t *testing.T) {
			if !lit(1).IsEquivalent(lit(1)) || lit(1).IsEquivalent(lit(2)) {
				t.Error("literal equivalence is wrong")
			}
		})
	})
}
