package scope_test

import (
	"errors"
	"sort"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/go-cmp/cmp"

	ep "sveltec-go/packages/compiler/src/expression_parser"
	"sveltec-go/packages/compiler/src/scope"
	"sveltec-go/packages/compiler/src/template"
	"sveltec-go/packages/compiler/src/util"
)

func sorted(s mapset.Set[string]) []string {
	out := s.ToSlice()
	sort.Strings(out)
	if out == nil {
		out = []string{}
	}
	return out
}

func parseExpr(t *testing.T, text string) ep.Expression {
	t.Helper()
	expr, err := ep.NewParser(ep.NewLexer()).ParseExpression(text, 0)
	if err != nil {
		t.Fatalf("unexpected error parsing %q: %v", text, err)
	}
	return expr
}

func rootScope() *scope.Scope {
	vars := []*template.Var{
		{Name: "items", Kind: template.VarLet, Writable: true},
		{Name: "filter", Kind: template.VarLet, Writable: true},
		{Name: "title", Kind: template.VarLet, Exported: true, Writable: true},
		{Name: "format", Kind: template.VarFunction},
		{Name: "Nested", Kind: template.VarImport},
		{Name: "$store", Kind: template.VarStore},
	}
	return scope.NewRoot(vars, []string{"item", "i", "value"})
}

func TestResolve(t *testing.T) {
	file := util.NewParseSourceFile("", "App.svelte")

	t.Run("should collect reactive names", func(t *testing.T) {
		r := scope.NewResolver(file, util.NewDiagnostics())
		res, err := r.Resolve(parseExpr(t, "format(title) + $store + items.length"), rootScope())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"$store", "items", "title"}, sorted(res.Dependencies)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should add the captured dependencies of contexts", func(t *testing.T) {
		root := rootScope()
		each := root.Extend("each_block")
		each.Declare(&scope.Binding{Name: "item", Kind: scope.BindingContextual, Dependencies: mapset.NewSet("items", "filter")})
		each.Declare(&scope.Binding{Name: "i", Kind: scope.BindingIndex, Dependencies: mapset.NewSet("items", "filter")})

		r := scope.NewResolver(file, util.NewDiagnostics())
		res, err := r.Resolve(parseExpr(t, "item.name + i"), each)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"filter", "items"}, sorted(res.Dependencies)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"i", "item"}, sorted(res.UsedContexts)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should let arrow parameters shadow outer names", func(t *testing.T) {
		r := scope.NewResolver(file, util.NewDiagnostics())
		res, err := r.Resolve(parseExpr(t, "items.map((title, { x = filter }) => title + x)"), rootScope())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"filter", "items"}, sorted(res.Dependencies)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should ignore static and module names", func(t *testing.T) {
		r := scope.NewResolver(file, util.NewDiagnostics())
		res, err := r.Resolve(parseExpr(t, "format(Nested)"), rootScope())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Dependencies.Cardinality() != 0 {
			t.Errorf("expected no dependencies, got %v", sorted(res.Dependencies))
		}
	})

	t.Run("should not visit property names", func(t *testing.T) {
		r := scope.NewResolver(file, util.NewDiagnostics())
		res, err := r.Resolve(parseExpr(t, "Math.max(items.title, 1)"), rootScope())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"items"}, sorted(res.Dependencies)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"Math"}, sorted(res.Globals)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should reject contexts used outside their block", func(t *testing.T) {
		r := scope.NewResolver(file, util.NewDiagnostics())
		_, err := r.Resolve(parseExpr(t, "item.name"), rootScope())
		var perr *util.ParseError
		if !errors.As(err, &perr) || perr.Code != util.ErrUndefinedContext {
			t.Fatalf("expected %s, got %v", util.ErrUndefinedContext, err)
		}
	})

	t.Run("should warn once about undeclared names", func(t *testing.T) {
		diags := util.NewDiagnostics()
		r := scope.NewResolver(file, diags)
		for i := 0; i < 2; i++ {
			if _, err := r.Resolve(parseExpr(t, "missing + console.log(window)"), rootScope()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		warnings := diags.Warnings()
		if len(warnings) != 1 || warnings[0].Code != util.WarnMissingDeclaration {
			t.Fatalf("expected one missing-declaration warning, got %v", warnings)
		}
	})
}

func TestResolveKey(t *testing.T) {
	file := util.NewParseSourceFile("", "App.svelte")
	root := rootScope()
	outer := root.Extend("each_block")
	outer.Declare(&scope.Binding{Name: "row", Kind: scope.BindingContextual, Dependencies: mapset.NewSet("items")})
	inner := outer.Extend("each_block_1")
	inner.Declare(&scope.Binding{Name: "item", Kind: scope.BindingContextual, Dependencies: mapset.NewSet("items")})

	t.Run("should accept keys reading the block's own context", func(t *testing.T) {
		r := scope.NewResolver(file, util.NewDiagnostics())
		if _, err := r.ResolveKey(parseExpr(t, "item.id"), inner, "each_block_1"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("should reject keys reading an outer context", func(t *testing.T) {
		r := scope.NewResolver(file, util.NewDiagnostics())
		_, err := r.ResolveKey(parseExpr(t, "row.id + item.id"), inner, "each_block_1")
		var perr *util.ParseError
		if !errors.As(err, &perr) || perr.Code != util.ErrInvalidKey {
			t.Fatalf("expected %s, got %v", util.ErrInvalidKey, err)
		}
	})
}

func TestScope(t *testing.T) {
	t.Run("should not leak child declarations into the parent", func(t *testing.T) {
		root := rootScope()
		child := root.Extend("each_block")
		child.Declare(&scope.Binding{Name: "item", Kind: scope.BindingContextual})
		if root.Lookup("item") != nil {
			t.Error("expected the root to be unchanged")
		}
		if b := child.Lookup("item"); b == nil || b.Owner != "each_block" {
			t.Errorf("expected the binding to be owned by each_block, got %#v", b)
		}
	})

	t.Run("should classify top-level names", func(t *testing.T) {
		root := rootScope()
		got := map[string]string{}
		for _, name := range []string{"items", "title", "format", "Nested", "$store"} {
			got[name] = root.Lookup(name).Kind.String()
		}
		want := map[string]string{
			"items":  "reactive",
			"title":  "reactive",
			"format": "static",
			"Nested": "module",
			"$store": "reactive",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should warn about shadowed top-level names", func(t *testing.T) {
		diags := util.NewDiagnostics()
		r := scope.NewResolver(util.NewParseSourceFile("", "App.svelte"), diags)
		r.CheckShadowing(rootScope(), "format", nil)
		if len(diags.Warnings()) != 1 || diags.Warnings()[0].Code != util.WarnBindingShadowsHelper {
			t.Errorf("expected a binding-shadows-helper warning, got %v", diags.Warnings())
		}
	})

	t.Run("should collect template contexts", func(t *testing.T) {
		c, err := template.Parse(`{#each rows as { id, cells }, r}{#await p then v}{v}{/await}{/each}`, "App.svelte")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"id", "cells", "r", "v"}, scope.Contexts(c.Fragment)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})
}
