package css_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sveltec-go/packages/compiler/src/css"
	"sveltec-go/packages/compiler/src/template"
)

func process(t *testing.T, source string) (*template.Component, *css.Stylesheet) {
	t.Helper()
	c, err := template.Parse(source, "App.svelte")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c, css.Process(c)
}

func TestScopeClass(t *testing.T) {
	t.Run("should be stable for the same text", func(t *testing.T) {
		if css.ScopeClass("p { color: red }") != css.ScopeClass("p { color: red }") {
			t.Error("expected identical classes")
		}
	})

	t.Run("should differ for different text", func(t *testing.T) {
		if css.ScopeClass("p { color: red }") == css.ScopeClass("p { color: blue }") {
			t.Error("expected different classes")
		}
	})

	t.Run("should carry the svelte prefix", func(t *testing.T) {
		if got := css.ScopeClass("a{}"); !strings.HasPrefix(got, "svelte-") || len(got) > len("svelte-")+6 {
			t.Errorf("unexpected class %q", got)
		}
	})
}

func TestProcess(t *testing.T) {
	t.Run("should return nil without a style", func(t *testing.T) {
		if _, sheet := process(t, `<p>x</p>`); sheet != nil {
			t.Errorf("expected nil, got %#v", sheet)
		}
	})

	t.Run("should scope every compound selector", func(t *testing.T) {
		c, sheet := process(t, `<ul><li>x</li></ul><style>ul > li a:hover, .x{color:red} * {margin:0}</style>`)
		cls := sheet.Class
		want := "ul." + cls + " > li." + cls + " a." + cls + ":hover, .x." + cls + "{color:red} ." + cls + " {margin:0}"
		if sheet.Text != want {
			t.Errorf("Expected %q, got %q", want, sheet.Text)
		}
		if c.Style.Content != sheet.Text {
			t.Errorf("expected the style content to be replaced")
		}
	})

	t.Run("should leave global selectors unscoped", func(t *testing.T) {
		_, sheet := process(t, `<p>x</p><style>:global(body) p{margin:0}</style>`)
		want := "body p." + sheet.Class + "{margin:0}"
		if sheet.Text != want {
			t.Errorf("Expected %q, got %q", want, sheet.Text)
		}
	})

	t.Run("should scope rules inside media queries", func(t *testing.T) {
		_, sheet := process(t, `<p>x</p><style>@media (min-width: 10px) { p{margin:0} }</style>`)
		want := "@media (min-width: 10px) { p." + sheet.Class + "{margin:0} }"
		if sheet.Text != want {
			t.Errorf("Expected %q, got %q", want, sheet.Text)
		}
	})

	t.Run("should scope local keyframes and their uses", func(t *testing.T) {
		_, sheet := process(t, `<p>x</p><style>@keyframes spin{to{opacity:0}} p{animation: spin 1s linear}</style>`)
		scoped := sheet.Class + "-spin"
		if !strings.Contains(sheet.Text, "@keyframes "+scoped+"{to{opacity:0}}") {
			t.Errorf("expected scoped keyframes, got %q", sheet.Text)
		}
		if !strings.Contains(sheet.Text, "animation: "+scoped+" 1s linear") {
			t.Errorf("expected scoped animation, got %q", sheet.Text)
		}
	})

	t.Run("should keep -global- keyframes names", func(t *testing.T) {
		_, sheet := process(t, `<p>x</p><style>@keyframes -global-fade{to{opacity:0}}</style>`)
		if !strings.Contains(sheet.Text, "@keyframes fade{") {
			t.Errorf("expected the global name, got %q", sheet.Text)
		}
	})

	t.Run("should flag elements selectors may refer to", func(t *testing.T) {
		c, _ := process(t, `<div class="card"><p>a</p><span class={cls}>b</span><em class:hot>c</em><b id="x">d</b><i>e</i></div>
<style>.card{} p{} span.active{} em.hot{} #x{} /* i{} */</style>`)
		var got []string
		template.Walk(c.Fragment, func(n template.Node) bool {
			if el, ok := n.(*template.Element); ok && el.NeedsScoping {
				got = append(got, el.Name)
			}
			return true
		})
		if diff := cmp.Diff([]string{"div", "p", "span", "em", "b"}, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})
}
