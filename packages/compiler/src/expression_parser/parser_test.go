package expression_parser_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sveltec-go/packages/compiler/src/expression_parser"
)

func parse(t *testing.T, text string) expression_parser.Expression {
	t.Helper()
	expr, err := expression_parser.NewParser(expression_parser.NewLexer()).ParseExpression(text, 0)
	if err != nil {
		t.Fatalf("unexpected error parsing %q: %v", text, err)
	}
	return expr
}

func checkExpression(text string, expected ...string) func(*testing.T) {
	return func(t *testing.T) {
		want := text
		if len(expected) > 0 {
			want = expected[0]
		}
		if got := expression_parser.Serialize(parse(t, text)); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}
}

func expectParseError(text string) func(*testing.T) {
	return func(t *testing.T) {
		_, err := expression_parser.NewParser(expression_parser.NewLexer()).ParseExpression(text, 10)
		if err == nil {
			t.Fatalf("expected an error parsing %q", text)
		}
		var perr *expression_parser.ParserError
		if !errors.As(err, &perr) {
			t.Fatalf("expected *ParserError, got %T", err)
		}
		if perr.Index < 10 {
			t.Errorf("expected absolute error index, got %d", perr.Index)
		}
	}
}

func TestParser(t *testing.T) {
	t.Run("ParseExpression", func(t *testing.T) {
		t.Run("should parse numbers", checkExpression("1"))
		t.Run("should parse strings", checkExpression("'a'", `"a"`))
		t.Run("should parse null and undefined", checkExpression("null ?? undefined"))
		t.Run("should parse unary expressions", checkExpression("!a", "!a"))
		t.Run("should parse typeof", checkExpression("typeof a === 'string'", `typeof a === "string"`))
		t.Run("should respect precedence", checkExpression("a + b * c", "a + (b * c)"))
		t.Run("should respect grouping", checkExpression("(a + b) * c", "(a + b) * c"))
		t.Run("should parse exponentiation as right associative", checkExpression("a ** b ** c", "a ** (b ** c)"))
		t.Run("should parse logical operators", checkExpression("a && b || c", "(a && b) || c"))
		t.Run("should parse conditionals", checkExpression("count > 0 ? 'yes' : 'no'", `(count > 0) ? "yes" : "no"`))
		t.Run("should parse member chains", checkExpression("a.b[c].d"))
		t.Run("should parse optional chains", checkExpression("a?.b?.[c]?.(d)"))
		t.Run("should parse calls with spread", checkExpression("fn(a, ...rest)"))
		t.Run("should parse new expressions", checkExpression("new Date(now)"))
		t.Run("should parse array literals", checkExpression("[1, , 2]", "[1, , 2]"))
		t.Run("should parse object literals", checkExpression("{a: 1, b, 'c-d': 2, [k]: v, ...o}", `{a: 1, b, "c-d": 2, [k]: v, ...o}`))
		t.Run("should parse template literals", checkExpression("`hello ${name}!`"))
		t.Run("should parse assignments", checkExpression("count += 1"))
		t.Run("should parse update expressions", checkExpression("count++"))
		t.Run("should parse arrow functions", checkExpression("e => count = e.target.value", "(e) => count = e.target.value"))
		t.Run("should parse parenthesized arrow functions", checkExpression("(a, { b }) => a + b", "(a, { b }) => a + b"))
		t.Run("should parse arrow functions returning objects", checkExpression("() => ({a: 1})", "() => ({a: 1})"))
		t.Run("should parse sequences", checkExpression("a, b", "(a, b)"))
		t.Run("should parse in and instanceof", checkExpression("a in b && c instanceof D", "(a in b) && (c instanceof D)"))
		t.Run("should parse regular expressions", checkExpression("/ab+c/i.test(s)"))
	})

	t.Run("spans", func(t *testing.T) {
		t.Run("should report absolute spans", func(t *testing.T) {
			expr, err := expression_parser.NewParser(expression_parser.NewLexer()).ParseExpression("a + b", 100)
			if err != nil {
				t.Fatal(err)
			}
			bin := expr.(*expression_parser.BinaryExpression)
			if diff := cmp.Diff(expression_parser.NewParseSpan(100, 105), bin.Span()); diff != "" {
				t.Errorf("span mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(expression_parser.NewParseSpan(104, 105), bin.Right.Span()); diff != "" {
				t.Errorf("span mismatch (-want +got):\n%s", diff)
			}
		})
	})

	t.Run("errors", func(t *testing.T) {
		t.Run("should reject blank expressions", expectParseError("   "))
		t.Run("should reject dangling operators", expectParseError("a +"))
		t.Run("should reject unbalanced parens", expectParseError("(a"))
		t.Run("should reject trailing tokens", expectParseError("a b"))
		t.Run("should reject invalid assignment targets", expectParseError("a + b = c"))
		t.Run("should reject block bodied arrows", expectParseError("() => { a }"))
	})

	t.Run("ParsePattern", func(t *testing.T) {
		p := expression_parser.NewParser(expression_parser.NewLexer())

		t.Run("should parse identifiers", func(t *testing.T) {
			pat, err := p.ParsePattern("item", 0)
			if err != nil {
				t.Fatal(err)
			}
			if pat.Kind != expression_parser.PatternIdentifier || pat.Name != "item" {
				t.Errorf("unexpected pattern %s", expression_parser.SerializePattern(pat))
			}
		})

		t.Run("should collect destructured names with paths", func(t *testing.T) {
			pat, err := p.ParsePattern("{ id, info: { name }, tags: [first, , third] }", 0)
			if err != nil {
				t.Fatal(err)
			}
			expected := []expression_parser.PatternBinding{
				{Name: "id", Path: []expression_parser.PathSegment{{Key: "id"}}},
				{Name: "name", Path: []expression_parser.PathSegment{{Key: "info"}, {Key: "name"}}},
				{Name: "first", Path: []expression_parser.PathSegment{{Key: "tags"}, {Index: 0}}},
				{Name: "third", Path: []expression_parser.PathSegment{{Key: "tags"}, {Index: 2}}},
			}
			if diff := cmp.Diff(expected, pat.Names()); diff != "" {
				t.Errorf("Names() mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should round trip patterns", func(t *testing.T) {
			pat, err := p.ParsePattern("{ a, b: c = 1 }", 0)
			if err != nil {
				t.Fatal(err)
			}
			if got := expression_parser.SerializePattern(pat); got != "{ a, b: c = 1 }" {
				t.Errorf("unexpected %q", got)
			}
		})
	})
}

func TestContainsCall(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"a > 0", false},
		{"items.length", false},
		{"check(a)", true},
		{"new Thing()", true},
		{"a && b.c()", true},
		{"items.map(x => x)", true},
		{"() => f()", false},
	}
	for _, c := range cases {
		t.Run("should classify "+c.text, func(t *testing.T) {
			if got := expression_parser.ContainsCall(parse(t, c.text)); got != c.want {
				t.Errorf("ContainsCall(%q) = %v, want %v", c.text, got, c.want)
			}
		})
	}
}
