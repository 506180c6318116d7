package dom

import (
	"testing"

	"sveltec-go/packages/compiler/src/output"
)

// guardEnv evaluates the small expression subset update guards are built
// from. Element properties live in nested maps.
type guardEnv map[string]interface{}

func (env guardEnv) eval(t *testing.T, expr output.OutputExpression) interface{} {
	t.Helper()
	switch e := expr.(type) {
	case *output.LiteralExpr:
		return e.Value
	case *output.CommentedExpr:
		return env.eval(t, e.Expr)
	case *output.ReadVarExpr:
		v, ok := env[e.Name]
		if !ok {
			t.Fatalf("guard reads unknown variable %s", e.Name)
		}
		return v
	case *output.ReadPropExpr:
		obj, ok := env.eval(t, e.Receiver).(map[string]interface{})
		if !ok {
			t.Fatalf("guard reads .%s of a non-object", e.Name)
		}
		return obj[e.Name]
	case *output.ReadKeyExpr:
		list := env.eval(t, e.Receiver).([]interface{})
		return list[env.eval(t, e.Index).(int)]
	case *output.UnaryOperatorExpr:
		if e.Operator != output.UnaryOperatorNot {
			t.Fatalf("unsupported unary operator %d", e.Operator)
		}
		return !truthy(env.eval(t, e.Expr))
	case *output.BinaryOperatorExpr:
		switch e.Operator {
		case output.BinaryOperatorAnd:
			lhs := env.eval(t, e.Lhs)
			if !truthy(lhs) {
				return lhs
			}
			return env.eval(t, e.Rhs)
		case output.BinaryOperatorIdentical:
			return env.eval(t, e.Lhs) == env.eval(t, e.Rhs)
		case output.BinaryOperatorNotIdentical:
			return env.eval(t, e.Lhs) != env.eval(t, e.Rhs)
		case output.BinaryOperatorBitwiseAnd:
			return env.eval(t, e.Lhs).(int) & env.eval(t, e.Rhs).(int)
		}
		t.Fatalf("unsupported binary operator %d", e.Operator)
	}
	t.Fatalf("unsupported expression %T", expr)
	return nil
}

func truthy(v interface{}) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case int:
		return v != 0
	case string:
		return v != ""
	}
	return true
}

func readsVar(expr output.OutputExpression, name string) bool {
	switch e := expr.(type) {
	case *output.ReadVarExpr:
		return e.Name == name
	case *output.CommentedExpr:
		return readsVar(e.Expr, name)
	case *output.UnaryOperatorExpr:
		return readsVar(e.Expr, name)
	case *output.BinaryOperatorExpr:
		return readsVar(e.Lhs, name) || readsVar(e.Rhs, name)
	}
	return false
}

// boundInput replays the generated input binding of
// `<input bind:value={name}>`: the event handler, the instance write-back
// with its change check and the guarded update of the fragment.
type boundInput struct {
	t     *testing.T
	guard output.OutputExpression
	name  string
	env   guardEnv
}

func newBoundInput(t *testing.T) *boundInput {
	t.Helper()
	r, _ := compile(t, `<script>let name = '';</script><input bind:value={name}>`)
	var guard output.OutputExpression
	for _, b := range r.Blocks() {
		for _, s := range b.Update.Statements() {
			if cond, ok := s.(*output.IfStmt); ok && readsVar(cond.Condition, "input_updating") {
				guard = cond.Condition
			}
		}
	}
	if guard == nil {
		t.Fatalf("Expected an update guard reading input_updating")
	}
	return &boundInput{
		t:     t,
		guard: guard,
		env: guardEnv{
			"input":          map[string]interface{}{"value": ""},
			"input_updating": false,
			"input_produced": nil,
		},
	}
}

func (b *boundInput) value() string {
	return b.env["input"].(map[string]interface{})["value"].(string)
}

// typed fires an input event. Only a changed name schedules a flush.
func (b *boundInput) typed(v string) {
	b.env["input"].(map[string]interface{})["value"] = v
	b.env["input_updating"] = true
	b.env["input_produced"] = v
	if v != b.name {
		b.name = v
		b.flush()
	}
}

// assigned is a program write followed by a flush.
func (b *boundInput) assigned(v string) {
	changed := v != b.name
	b.name = v
	if changed {
		b.flush()
	}
}

func (b *boundInput) flush() {
	b.env["ctx"] = []interface{}{b.name}
	b.env["dirty"] = 1
	if truthy(b.env.eval(b.t, b.guard)) {
		b.env["input"].(map[string]interface{})["value"] = b.name
	}
	b.env["input_updating"] = false
}

func TestInputBindingGuard(t *testing.T) {
	t.Run("should not write back the value the element produced", func(t *testing.T) {
		in := newBoundInput(t)
		in.typed("ab")
		if in.value() != "ab" || in.name != "ab" {
			t.Errorf("Expected %q, got input %q name %q", "ab", in.value(), in.name)
		}
	})

	t.Run("should apply program writes after an unchanged input event", func(t *testing.T) {
		in := newBoundInput(t)
		in.typed("a")
		in.typed("a")
		in.assigned("")
		if got := in.value(); got != "" {
			t.Errorf("Expected %q, got %q", "", got)
		}
	})

	t.Run("should apply program writes after a flushed input event", func(t *testing.T) {
		in := newBoundInput(t)
		in.typed("a")
		in.assigned("b")
		if got := in.value(); got != "b" {
			t.Errorf("Expected %q, got %q", "b", got)
		}
	})
}
