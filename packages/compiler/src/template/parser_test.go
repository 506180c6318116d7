package template_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	ep "sveltec-go/packages/compiler/src/expression_parser"
	"sveltec-go/packages/compiler/src/template"
	"sveltec-go/packages/compiler/src/util"
)

func parse(t *testing.T, source string) *template.Component {
	t.Helper()
	c, err := template.Parse(source, "App.svelte")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func expectError(t *testing.T, source, code, message string) {
	t.Helper()
	_, err := template.Parse(source, "App.svelte")
	if err == nil {
		t.Fatalf("expected an error parsing %q", source)
	}
	var perr *util.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *util.ParseError, got %T", err)
	}
	if perr.Code != code {
		t.Errorf("Expected code %q, got %q", code, perr.Code)
	}
	if !strings.Contains(perr.Msg, message) {
		t.Errorf("Expected message containing %q, got %q", message, perr.Msg)
	}
}

// humanize flattens a fragment into one line per node, indented by depth.
func humanize(nodes []template.Node) []string {
	var out []string
	var walk func(nodes []template.Node, depth int)
	walk = func(nodes []template.Node, depth int) {
		indent := strings.Repeat("  ", depth)
		for _, n := range nodes {
			switch n := n.(type) {
			case *template.Element:
				out = append(out, fmt.Sprintf("%s<%s>%s", indent, n.Name, humanizeAttrs(n.Attributes)))
				walk(n.Children, depth+1)
			case *template.InlineComponent:
				out = append(out, fmt.Sprintf("%sComponent %s%s", indent, n.Name, humanizeAttrs(n.Attributes)))
				walk(n.Children, depth+1)
			case *template.Slot:
				out = append(out, fmt.Sprintf("%sSlot %s", indent, n.SlotName))
				walk(n.Children, depth+1)
			case *template.Text:
				out = append(out, fmt.Sprintf("%s%q", indent, n.Data))
			case *template.MustacheTag:
				out = append(out, fmt.Sprintf("%s{%s}", indent, ep.Serialize(n.Expression)))
			case *template.RawMustacheTag:
				out = append(out, fmt.Sprintf("%s{@html %s}", indent, ep.Serialize(n.Expression)))
			case *template.IfBlock:
				out = append(out, fmt.Sprintf("%sif %s", indent, ep.Serialize(n.Expression)))
				walk(n.Children, depth+1)
				if n.Else != nil {
					out = append(out, indent+"else")
					walk(n.Else.Children, depth+1)
				}
			case *template.EachBlock:
				header := fmt.Sprintf("%seach %s as %s", indent, ep.Serialize(n.Expression), ep.SerializePattern(n.Context))
				if n.Index != "" {
					header += ", " + n.Index
				}
				if n.Key != nil {
					header += " (" + ep.Serialize(n.Key) + ")"
				}
				out = append(out, header)
				walk(n.Children, depth+1)
				if n.Else != nil {
					out = append(out, indent+"else")
					walk(n.Else.Children, depth+1)
				}
			case *template.AwaitBlock:
				out = append(out, fmt.Sprintf("%sawait %s", indent, ep.Serialize(n.Expression)))
				if !n.Pending.Skip {
					out = append(out, indent+"pending")
					walk(n.Pending.Children, depth+1)
				}
				if !n.Then.Skip {
					out = append(out, indent+"then "+patternName(n.Value))
					walk(n.Then.Children, depth+1)
				}
				if !n.Catch.Skip {
					out = append(out, indent+"catch "+patternName(n.Error))
					walk(n.Catch.Children, depth+1)
				}
			}
		}
	}
	walk(nodes, 0)
	return out
}

func patternName(p *ep.Pattern) string {
	if p == nil {
		return "-"
	}
	return ep.SerializePattern(p)
}

func humanizeAttrs(attrs []template.AttributeNode) string {
	var parts []string
	for _, attr := range attrs {
		switch a := attr.(type) {
		case *template.Attribute:
			if a.IsTrue {
				parts = append(parts, a.Name)
				continue
			}
			var chunks []string
			for _, c := range a.Chunks {
				if c.IsExpression() {
					chunks = append(chunks, "{"+ep.Serialize(c.Expression)+"}")
				} else {
					chunks = append(chunks, c.Text)
				}
			}
			parts = append(parts, a.Name+"="+strings.Join(chunks, ""))
		case *template.EventHandler:
			value := "-"
			if a.Expression != nil {
				value = ep.Serialize(a.Expression)
			}
			parts = append(parts, fmt.Sprintf("on:%s%v=%s", a.Name, a.Modifiers, value))
		case *template.Binding:
			parts = append(parts, fmt.Sprintf("bind:%s=%s", a.Name, ep.Serialize(a.Expression)))
		case *template.Class:
			parts = append(parts, "class:"+a.Name)
		case *template.Transition:
			parts = append(parts, fmt.Sprintf("transition:%s in=%t out=%t local=%t", a.Name, a.Intro, a.Outro, a.Local))
		case *template.Directive:
			parts = append(parts, a.Type+":"+a.Name)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

func TestParse(t *testing.T) {
	t.Run("markup", func(t *testing.T) {
		t.Run("should parse elements, text and tags", func(t *testing.T) {
			c := parse(t, `<h1 class="title">Hello {name}!</h1>`)
			want := []string{
				`<h1> class=title`,
				`  "Hello "`,
				`  {name}`,
				`  "!"`,
			}
			if diff := cmp.Diff(want, humanize(c.Fragment)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should decode entities in text", func(t *testing.T) {
			c := parse(t, `<p>a &amp; b &lt; c</p>`)
			if diff := cmp.Diff([]string{`<p>`, `  "a & b < c"`}, humanize(c.Fragment)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should keep expressions containing markup characters", func(t *testing.T) {
			c := parse(t, `<button on:click={() => count = count > 1 ? 0 : 2}>{a < b}</button>`)
			want := []string{
				`<button> on:click[]=() => count = (count > 1) ? 0 : 2`,
				`  {a < b}`,
			}
			if diff := cmp.Diff(want, humanize(c.Fragment)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should not push void and self-closing elements", func(t *testing.T) {
			c := parse(t, `<div><input value={v}><br/><Nested /></div>`)
			want := []string{
				`<div>`,
				`  <input> value={v}`,
				`  <br>`,
				`  Component Nested`,
			}
			if diff := cmp.Diff(want, humanize(c.Fragment)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should detect components and slots", func(t *testing.T) {
			c := parse(t, `<Card title="x"><slot name="footer">none</slot></Card>`)
			want := []string{
				`Component Card title=x`,
				`  Slot footer`,
				`    "none"`,
			}
			if diff := cmp.Diff(want, humanize(c.Fragment)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should put svg children in the svg namespace", func(t *testing.T) {
			c := parse(t, `<svg><circle r={r}/></svg>`)
			svg := c.Fragment[0].(*template.Element)
			circle := svg.Children[0].(*template.Element)
			if svg.Namespace != "svg" || circle.Namespace != "svg" {
				t.Errorf("Expected svg namespace, got %q and %q", svg.Namespace, circle.Namespace)
			}
		})

		t.Run("should self-close tags ending in an unquoted expression", func(t *testing.T) {
			c := parse(t, `{#each items as it}<Child x={it}/><img alt=a/>{/each}<p>after</p>`)
			want := []string{
				`each items as it`,
				`  Component Child x={it}`,
				`  <img> alt=a`,
				`<p>`,
				`  "after"`,
			}
			if diff := cmp.Diff(want, humanize(c.Fragment)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should record element spans up to the closing tag", func(t *testing.T) {
			source := `<div>x</div>`
			c := parse(t, source)
			span := c.Fragment[0].Span()
			if span.Start.Offset != 0 || span.End.Offset != len(source) {
				t.Errorf("Expected span 0-%d, got %d-%d", len(source), span.Start.Offset, span.End.Offset)
			}
		})

		t.Run("should skip comments", func(t *testing.T) {
			c := parse(t, `<!-- {not a tag --><p>x</p>`)
			if diff := cmp.Diff([]string{`<p>`, `  "x"`}, humanize(c.Fragment)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	})

	t.Run("attributes", func(t *testing.T) {
		t.Run("should split attribute values into chunks", func(t *testing.T) {
			c := parse(t, `<div class="a {b} c" id={id} hidden {title}></div>`)
			want := []string{`<div> class=a {b} c id={id} hidden title={title}`}
			if diff := cmp.Diff(want, humanize(c.Fragment)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should allow quotes inside expressions of quoted values", func(t *testing.T) {
			c := parse(t, `<div title="{ok ? "yes" : 'no'}"></div>`)
			want := []string{`<div> title={ok ? "yes" : "no"}`}
			if diff := cmp.Diff(want, humanize(c.Fragment)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should classify directives", func(t *testing.T) {
			c := parse(t, `<input on:input|preventDefault|once={handle} bind:value class:active={on} transition:fade|local use:action>`)
			want := []string{
				`<input> on:input[preventDefault once]=handle bind:value=value class:active transition:fade in=true out=true local=true use:action`,
			}
			if diff := cmp.Diff(want, humanize(c.Fragment)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should mark in and out transitions", func(t *testing.T) {
			c := parse(t, `<p in:fly={{ y: 20 }} out:fade>x</p>`)
			el := c.Fragment[0].(*template.Element)
			in := el.Attributes[0].(*template.Transition)
			out := el.Attributes[1].(*template.Transition)
			if !in.Intro || in.Outro || out.Intro || !out.Outro {
				t.Errorf("unexpected transition flags: in=%+v out=%+v", in, out)
			}
		})

		t.Run("should keep namespaced attributes as attributes", func(t *testing.T) {
			c := parse(t, `<use xlink:href="#a"/>`)
			attr, ok := c.Fragment[0].(*template.Element).Attributes[0].(*template.Attribute)
			if !ok || attr.Name != "xlink:href" {
				t.Errorf("Expected xlink:href attribute, got %#v", c.Fragment[0].(*template.Element).Attributes[0])
			}
		})

		t.Run("should reject spread attributes", func(t *testing.T) {
			expectError(t, `<div {...props}></div>`, util.ErrInvalidAttribute, "Spread")
		})

		t.Run("should reject duplicate attributes", func(t *testing.T) {
			expectError(t, `<div a="1" a="2"></div>`, util.ErrInvalidAttribute, "unique")
		})

		t.Run("should reject static directive values", func(t *testing.T) {
			expectError(t, `<div on:click="handle"></div>`, util.ErrInvalidAttribute, "curly braces")
		})
	})

	t.Run("blocks", func(t *testing.T) {
		t.Run("should parse if, else if and else", func(t *testing.T) {
			c := parse(t, `{#if a}A{:else if b}B{:else}C{/if}`)
			want := []string{
				`if a`,
				`  "A"`,
				`else`,
				`  if b`,
				`    "B"`,
				`  else`,
				`    "C"`,
			}
			if diff := cmp.Diff(want, humanize(c.Fragment)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
			nested := c.Fragment[0].(*template.IfBlock).Else.Children[0].(*template.IfBlock)
			if !nested.ElseIf {
				t.Error("expected the nested if block to be marked ElseIf")
			}
		})

		t.Run("should parse each headers", func(t *testing.T) {
			c := parse(t, `{#each items as { id, name }, i (id)}<li>{name}</li>{:else}empty{/each}`)
			want := []string{
				`each items as { id, name }, i (id)`,
				`  <li>`,
				`    {name}`,
				`else`,
				`  "empty"`,
			}
			if diff := cmp.Diff(want, humanize(c.Fragment)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should parse each expressions containing calls", func(t *testing.T) {
			c := parse(t, `{#each list.filter(x => x.done) as item (item.id)}{item}{/each}`)
			block := c.Fragment[0].(*template.EachBlock)
			if got := ep.Serialize(block.Expression); got != "list.filter((x) => x.done)" {
				t.Errorf("Expected %q, got %q", "list.filter((x) => x.done)", got)
			}
			if got := ep.Serialize(block.Key); got != "item.id" {
				t.Errorf("Expected %q, got %q", "item.id", got)
			}
		})

		t.Run("should parse await branches", func(t *testing.T) {
			c := parse(t, `{#await promise}wait{:then value}{value}{:catch error}{error.message}{/await}`)
			want := []string{
				`await promise`,
				`pending`,
				`  "wait"`,
				`then value`,
				`  {value}`,
				`catch error`,
				`  {error.message}`,
			}
			if diff := cmp.Diff(want, humanize(c.Fragment)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should parse destructured await values", func(t *testing.T) {
			c := parse(t, `{#await p}wait{:then { a, b }}{a}{:catch [first]}{first}{/await}{#await q then [x, ...rest]}{x}{/await}`)
			want := []string{
				`await p`,
				`pending`,
				`  "wait"`,
				`then { a, b }`,
				`  {a}`,
				`catch [first]`,
				`  {first}`,
				`await q`,
				`then [x, ...rest]`,
				`  {x}`,
			}
			if diff := cmp.Diff(want, humanize(c.Fragment)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should parse the await-then shorthand", func(t *testing.T) {
			c := parse(t, `{#await load() then data}{data}{/await}`)
			want := []string{
				`await load()`,
				`then data`,
				`  {data}`,
			}
			if diff := cmp.Diff(want, humanize(c.Fragment)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should parse raw html tags", func(t *testing.T) {
			c := parse(t, `<div>{@html content}</div>`)
			if diff := cmp.Diff([]string{`<div>`, `  {@html content}`}, humanize(c.Fragment)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should report unclosed blocks", func(t *testing.T) {
			expectError(t, `{#if a}<p>x</p>`, util.ErrParse, "left open")
		})

		t.Run("should report mismatched closing tags", func(t *testing.T) {
			expectError(t, `{#if a}<p>x{/if}</p>`, util.ErrParse, "expected </p>")
			expectError(t, `<div></span>`, util.ErrParse, "not open")
		})

		t.Run("should report a missing 'as'", func(t *testing.T) {
			expectError(t, `{#each items}x{/each}`, util.ErrInvalidEachContext, "'as'")
		})

		t.Run("should reject object rest in await values", func(t *testing.T) {
			expectError(t, `{#await p then { a, ...more }}{a}{/await}`, util.ErrInvalidEachContext, "Object rest")
		})

		t.Run("should report unclosed tags with a position", func(t *testing.T) {
			_, err := template.Parse("<p>\n{a", "App.svelte")
			var perr *util.ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *util.ParseError, got %v", err)
			}
			if perr.Span.Start.Line != 1 || perr.Span.Start.Col != 0 {
				t.Errorf("Expected 1:0, got %d:%d", perr.Span.Start.Line, perr.Span.Start.Col)
			}
		})
	})

	t.Run("script and style", func(t *testing.T) {
		source := `<script>
	import Nested from './Nested.svelte';
	import { writable, derived as d } from 'svelte/store';
	export let name = 'world', size;
	let count = 0;
	const items = [1, 2];
	function increment() { count += 1 }
	const store = writable(0);
	// let ignored = 1;
	$: doubled = count * 2;
</script>

<style>p { color: red; }</style>

<p>{name} {$store}</p>`

		t.Run("should collect top-level names", func(t *testing.T) {
			c := parse(t, source)
			var got []string
			for _, v := range c.Vars {
				got = append(got, fmt.Sprintf("%s kind=%d writable=%t exported=%t", v.Name, v.Kind, v.Writable, v.Exported))
			}
			want := []string{
				"Nested kind=3 writable=false exported=false",
				"writable kind=3 writable=false exported=false",
				"d kind=3 writable=false exported=false",
				"name kind=0 writable=true exported=true",
				"size kind=0 writable=true exported=true",
				"count kind=0 writable=true exported=false",
				"items kind=1 writable=false exported=false",
				"increment kind=2 writable=false exported=false",
				"store kind=1 writable=false exported=false",
				"$store kind=4 writable=false exported=false",
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should rewrite imports and exported props", func(t *testing.T) {
			c := parse(t, source)
			body := c.Script.InstanceBody()
			if strings.Contains(body, "import") {
				t.Errorf("expected imports to be removed, got:\n%s", body)
			}
			if !strings.Contains(body, "let { name = 'world', size } = $$props;") {
				t.Errorf("expected the props destructuring, got:\n%s", body)
			}
			var imports []string
			for _, imp := range c.Script.Imports {
				imports = append(imports, imp.Text)
			}
			want := []string{
				"import Nested from './Nested.svelte';",
				"import { writable, derived as d } from 'svelte/store';",
			}
			if diff := cmp.Diff(want, imports); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should keep the style text", func(t *testing.T) {
			c := parse(t, source)
			if c.Style == nil || c.Style.Content != "p { color: red; }" {
				t.Errorf("unexpected style: %#v", c.Style)
			}
		})

		t.Run("should strip export from const and function declarations", func(t *testing.T) {
			c := parse(t, "<script>export const answer = 42;</script>")
			if got := strings.TrimSpace(c.Script.InstanceBody()); got != "const answer = 42;" {
				t.Errorf("Expected %q, got %q", "const answer = 42;", got)
			}
		})

		t.Run("should reject unsupported exports", func(t *testing.T) {
			expectError(t, "<script>export default 1;</script>", util.ErrParse, "not supported")
		})

		t.Run("should reject duplicate declarations", func(t *testing.T) {
			expectError(t, "<script>let a = 1; let a = 2;</script>", util.ErrParse, "already been declared")
		})

		t.Run("should reject a second instance script", func(t *testing.T) {
			expectError(t, "<script></script><script></script>", util.ErrParse, "only have one")
		})
	})

	t.Run("ComponentName", func(t *testing.T) {
		cases := map[string]string{
			"App.svelte":            "App",
			"src/my-button.svelte":  "My_button",
			`C:\ui\counter.svelte`:  "Counter",
			"":                      "Component",
		}
		for in, want := range cases {
			if got := template.ComponentName(in); got != want {
				t.Errorf("Expected %q for %q, got %q", want, in, got)
			}
		}
	})
}
