package dom

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/go-cmp/cmp"

	"sveltec-go/packages/compiler/src/config"
	"sveltec-go/packages/compiler/src/css"
	"sveltec-go/packages/compiler/src/output"
	"sveltec-go/packages/compiler/src/template"
	"sveltec-go/packages/compiler/src/util"
)

func build(source string, opts ...config.CompilerConfigOption) (*Renderer, string, error) {
	c, err := template.Parse(source, "App.svelte")
	if err != nil {
		return nil, "", err
	}
	cfg := config.NewCompilerConfig(append([]config.CompilerConfigOption{config.WithFilename("App.svelte")}, opts...)...)
	r, err := NewRenderer(c, cfg, util.NewDiagnostics(), css.Process(c))
	if err != nil {
		return nil, "", err
	}
	stmts, err := r.Render()
	if err != nil {
		return nil, "", err
	}
	return r, output.NewJsEmitter().EmitStatements(stmts), nil
}

func compile(t *testing.T, source string, opts ...config.CompilerConfigOption) (*Renderer, string) {
	t.Helper()
	r, js, err := build(source, opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r, js
}

func expectContains(t *testing.T, js string, fragments ...string) {
	t.Helper()
	for _, f := range fragments {
		if !strings.Contains(js, f) {
			t.Errorf("Expected output to contain %q, got:\n%s", f, js)
		}
	}
}

func expectMissing(t *testing.T, js string, fragments ...string) {
	t.Helper()
	for _, f := range fragments {
		if strings.Contains(js, f) {
			t.Errorf("Expected output not to contain %q, got:\n%s", f, js)
		}
	}
}

func expectCode(t *testing.T, source, code string) {
	t.Helper()
	_, _, err := build(source)
	if err == nil {
		t.Fatalf("expected an error compiling %q", source)
	}
	var perr *util.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *util.ParseError, got %T: %v", err, err)
	}
	if perr.Code != code {
		t.Errorf("Expected code %q, got %q (%s)", code, perr.Code, perr.Msg)
	}
}

func blockNames(r *Renderer) []string {
	var out []string
	for _, b := range r.Blocks() {
		out = append(out, b.Name)
	}
	return out
}

func sortedSet(s mapset.Set[string]) []string {
	out := s.ToSlice()
	sort.Strings(out)
	if out == nil {
		out = []string{}
	}
	return out
}

func TestRender(t *testing.T) {
	t.Run("module", func(t *testing.T) {
		t.Run("should render static markup once", func(t *testing.T) {
			r, js := compile(t, `<h1>Hello</h1>`)
			expectContains(t, js,
				"function create_fragment(ctx) {",
				"h1 = element('h1');",
				"h1.textContent = 'Hello';",
				"insert(target, h1, anchor);",
				"class App extends SvelteComponent {",
				"export default App;",
			)
			if r.Block.HasUpdateMethod() {
				t.Error("expected a static fragment to have no update method")
			}
			if diff := cmp.Diff([]string{"create_fragment"}, blockNames(r)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should import only the helpers it uses", func(t *testing.T) {
			r, js := compile(t, `<h1>Hello</h1>`)
			for _, name := range []string{Element, Insert, Detach, Init, SafeNotEqual, SvelteComponent} {
				if !r.used.Contains(name) {
					t.Errorf("Expected helper %q to be imported", name)
				}
			}
			if r.used.Contains(SetData) {
				t.Errorf("Expected %q not to be imported", SetData)
			}
			expectContains(t, js, "from 'svelte/internal';")
		})

		t.Run("should use the configured runtime path", func(t *testing.T) {
			_, js := compile(t, `<p>x</p>`, config.WithRuntimePath("./runtime.js"))
			expectContains(t, js, "from './runtime.js';")
		})

		t.Run("should rename helpers that clash with script names", func(t *testing.T) {
			_, js := compile(t, `<script>let text = 'a';</script><p>{text} b</p>`)
			expectContains(t, js, "text as text_1", "text_1(")
		})

		t.Run("should update text behind a dirty check", func(t *testing.T) {
			r, js := compile(t, `<script>let name = 'world';</script><h1>Hello {name}!</h1>`)
			expectContains(t, js,
				"p(ctx, [dirty]) {",
				"dirty & /*name*/ 1",
				"set_data(t1, /*name*/ ctx[0]);",
				"function instance($$self, $$props, $$invalidate) {",
				"let name = 'world';",
				"return [name];",
			)
			if !r.Block.HasUpdateMethod() {
				t.Error("expected the fragment to have an update method")
			}
		})

		t.Run("should set props through $$set", func(t *testing.T) {
			_, js := compile(t, `<script>export let title = 'x';</script><h1>{title}</h1>`)
			expectContains(t, js,
				"$$self.$$set = ",
				"'title' in $$props",
				"$$invalidate(0, title = $$props.title)",
				"title: 0",
			)
		})

		t.Run("should emit accessors when asked", func(t *testing.T) {
			_, js := compile(t, `<script>export let title = 'x';</script><h1>{title}</h1>`, config.WithAccessors(true))
			expectContains(t, js, "get title() {", "set title(title) {", "flush();")
		})

		t.Run("should inject scoped styles", func(t *testing.T) {
			r, js := compile(t, `<p>x</p><style>p { color: red; }</style>`)
			class := r.stylesheet.Class
			expectContains(t, js, "function add_css(target) {", "append_styles(target, '"+class+"'", "add_css")
		})

		t.Run("should leave external styles out of the module", func(t *testing.T) {
			_, js := compile(t, `<p>x</p><style>p { color: red; }</style>`, config.WithCSS(config.CSSExternal))
			expectMissing(t, js, "add_css", "append_styles")
		})

		t.Run("should extend the dev base class in dev mode", func(t *testing.T) {
			_, js := compile(t, `<p>x</p>`, config.WithDev(true))
			expectContains(t, js, "extends SvelteComponentDev", "super(options);")
		})

		t.Run("should seal blocks once rendered", func(t *testing.T) {
			r, _ := compile(t, `<p>x</p>`)
			if _, err := r.Render(); err == nil {
				t.Error("expected rendering twice to fail")
			}
		})
	})

	t.Run("context", func(t *testing.T) {
		t.Run("should put reactive names first", func(t *testing.T) {
			r, _ := compile(t, `<script>let a = 1; const b = 2; let c = 3;</script>{#each [a] as item}<p>{item}{b}{c}</p>{/each}`)
			var names []string
			for _, m := range r.Members() {
				names = append(names, m.Name)
			}
			if diff := cmp.Diff([]string{"a", "c", "b", "item"}, names); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should split dirty state into words past 31 names", func(t *testing.T) {
			var script, markup strings.Builder
			for i := 0; i < 32; i++ {
				fmt.Fprintf(&script, "let v%d = %d;\n", i, i)
				fmt.Fprintf(&markup, "<p>{v%d}</p>", i)
			}
			r, js := compile(t, "<script>"+script.String()+"</script>"+markup.String())
			if !r.ContextOverflow() {
				t.Fatal("expected the context to overflow")
			}
			expectContains(t, js,
				"p(ctx, dirty) {",
				"dirty[0] & /*v0*/ 1",
				"dirty[1] & /*v31*/ 1",
				"[-1, -1]",
			)
			table := r.DirtyTable()
			want := DirtyBit{Name: "v31", Index: 31, Word: 1, Mask: 1}
			if diff := cmp.Diff(want, table[31]); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(DirtyBit{Name: "v30", Index: 30, Word: 0, Mask: 1 << 30}, table[30]); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	})

	t.Run("whitespace", func(t *testing.T) {
		t.Run("should render whitespace between tags with space()", func(t *testing.T) {
			_, js := compile(t, `<script>let a = 1; let b = 2;</script><p>{a} {b}</p>`)
			expectContains(t, js, "t1 = space();")
		})

		t.Run("should drop whitespace around the fragment", func(t *testing.T) {
			_, js := compile(t, "\n\n<p>x</p>\n\n")
			expectMissing(t, js, "space()")
		})

		t.Run("should keep whitespace when asked", func(t *testing.T) {
			_, js := compile(t, "<p>a</p> <p>b</p>", config.WithPreserveWhitespace(true))
			expectContains(t, js, "text(' ')")
		})

		t.Run("should number shared names in document order", func(t *testing.T) {
			_, js := compile(t, `<div><p>a</p><p>b</p></div><div>c</div>`, config.WithHydratable(true))
			expectContains(t, js, "div0 = element('div');", "div1 = element('div');", "p0 = element('p');", "p1 = element('p');")
		})
	})

	t.Run("elements", func(t *testing.T) {
		t.Run("should create static subtrees from markup", func(t *testing.T) {
			_, js := compile(t, `<div><p class="a">x &amp; y</p><br></div>`)
			expectContains(t, js, "div.innerHTML = `<p class=\"a\">x &amp; y</p><br>`;")
			expectMissing(t, js, "element('p')")
		})

		t.Run("should cache compound attribute values", func(t *testing.T) {
			_, js := compile(t, `<script>let id = 1;</script><div class="item-{id}"></div>`)
			expectContains(t, js,
				"div_class_value",
				"attr(div, 'class', div_class_value = 'item-' + /*id*/ ctx[0]);",
			)
		})

		t.Run("should set boolean attributes as properties", func(t *testing.T) {
			_, js := compile(t, `<script>let off = false;</script><button disabled={off}>x</button>`)
			expectContains(t, js, "button.disabled = /*off*/ ctx[0];")
		})

		t.Run("should add the scoping class", func(t *testing.T) {
			r, js := compile(t, `<p>x</p><span>y</span><style>p { color: red; }</style>`)
			class := r.stylesheet.Class
			expectContains(t, js, "attr(p, 'class', '"+class+"');")
		})

		t.Run("should set innerHTML for a lone html tag", func(t *testing.T) {
			_, js := compile(t, `<script>let html = '';</script><div>{@html html}</div>`)
			expectContains(t, js, "div.innerHTML = /*html*/ ctx[0];")
		})

		t.Run("should manage other html tags with HtmlTag", func(t *testing.T) {
			_, js := compile(t, `<script>let html = '';</script><div>a {@html html}</div>`)
			expectContains(t, js, "new HtmlTag(false)", "html_tag.p(/*html*/ ctx[0])")
		})

		t.Run("should toggle classes", func(t *testing.T) {
			_, js := compile(t, `<script>let active = true;</script><p class:active>x</p>`)
			expectContains(t, js, "toggle_class(p, 'active', /*active*/ ctx[0]);")
		})

		t.Run("should call actions", func(t *testing.T) {
			_, js := compile(t, `<script>import { tooltip } from './actions.js'; let label = 'hi';</script><p use:tooltip={label}>x</p>`)
			expectContains(t, js, "tooltip_action = tooltip.call(null, p, /*label*/ ctx[0])", "action_destroyer(")
		})

		t.Run("should emit claim and hydrate phases when hydratable", func(t *testing.T) {
			_, js := compile(t, `<script>let a = 1;</script><p title={a}>x</p>`, config.WithHydratable(true))
			expectContains(t, js, "l(nodes) {", "h() {", "claim_element(nodes, 'P'", "this.h();", "insert_hydration(")
		})
	})

	t.Run("events", func(t *testing.T) {
		t.Run("should declare inline handlers in the instance", func(t *testing.T) {
			r, js := compile(t, `<script>let count = 0;</script><button on:click={() => count += 1}>{count}</button>`)
			expectContains(t, js,
				"const click_handler = () => $$invalidate(0, count",
				"listen(button, 'click', /*click_handler*/ ctx[1])",
				"return [count, click_handler];",
			)
			if m := r.member("click_handler"); m.Kind != MemberHandler {
				t.Errorf("Expected handler member, got %v", m.Kind)
			}
		})

		t.Run("should hoist handlers that read no instance state", func(t *testing.T) {
			_, js := compile(t, `<button on:click={() => console.log('hi')}>x</button>`)
			expectContains(t, js, "const click_handler = () => console.log('hi');", "listen(button, 'click', click_handler)")
			expectMissing(t, js, "function instance(")
		})

		t.Run("should apply modifiers", func(t *testing.T) {
			_, js := compile(t, `<script>function go() {}</script><a on:click|preventDefault|once={go}>x</a>`)
			expectContains(t, js, "prevent_default(/*go*/ ctx[0])", "{ once: true }")
		})

		t.Run("should forward events without a handler", func(t *testing.T) {
			_, js := compile(t, `<button on:click>x</button>`)
			expectContains(t, js, "bubble.call(this, $$self, event)")
		})

		t.Run("should pass contexts through a block trampoline", func(t *testing.T) {
			_, js := compile(t, `<script>let items = []; function pick(v) {}</script>{#each items as item}<button on:click={() => pick(item)}>x</button>{/each}`)
			expectContains(t, js, "const click_handler = (item) => pick(item);", "function click_handler() {")
		})
	})

	t.Run("bindings", func(t *testing.T) {
		t.Run("should bind input values without feedback", func(t *testing.T) {
			_, js := compile(t, `<script>let name = '';</script><input bind:value={name}>`)
			expectContains(t, js,
				"function input_input_handler() {",
				"$$invalidate(0, name = this.value)",
				"let input_updating = false;",
				"input_produced = input.value;",
				"set_input_value(input, /*name*/ ctx[0]);",
				"input_updating = false;",
				"listen(input, 'input', input_input_handler)",
			)
		})

		t.Run("should write each contexts back to the list", func(t *testing.T) {
			_, js := compile(t, `<script>let items = [];</script>{#each items as item}<input bind:value={item}>{/each}`)
			expectContains(t, js, "$$invalidate(0, each_value[item_index] = this.value, items)")
		})

		t.Run("should bind elements with bind:this", func(t *testing.T) {
			_, js := compile(t, `<script>let el;</script><div bind:this={el}></div>`)
			expectContains(t, js, "binding_callbacks[$$value ? 'unshift' : 'push']", "$$invalidate(0, el = $$value)")
		})
	})

	t.Run("each", func(t *testing.T) {
		t.Run("should update unkeyed lists in place", func(t *testing.T) {
			r, js := compile(t, `<script>let items = [];</script><ul>{#each items as item, i}<li>{i}: {item}</li>{/each}</ul>`)
			expectContains(t, js,
				"function get_each_context(ctx, list, i) {",
				"function create_each_block(ctx) {",
				"each_blocks[i] = create_each_block(child_ctx);",
				"destroy_each(each_blocks, detaching);",
			)
			expectMissing(t, js, "update_keyed_each")
			if diff := cmp.Diff([]string{"create_fragment", "create_each_block"}, blockNames(r)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should reconcile keyed lists", func(t *testing.T) {
			_, js := compile(t, `<script>let items = [];</script>{#each items as item (item.id)}<p>{item.name}</p>{/each}`)
			expectContains(t, js,
				"update_keyed_each(",
				"destroy_block",
				"each_lookup",
				"get_key",
			)
			expectMissing(t, js, "outro_and_destroy_block", "group_outros")
		})

		t.Run("should wait for outros in keyed lists", func(t *testing.T) {
			_, js := compile(t, `<script>import { fade } from 'svelte/transition'; let items = [];</script>{#each items as item (item)}<p transition:fade>{item}</p>{/each}`)
			expectContains(t, js, "outro_and_destroy_block", "group_outros();", "check_outros();")
		})

		t.Run("should start bidirectional intros from a render callback", func(t *testing.T) {
			_, js := compile(t, `<script>import { fade } from 'svelte/transition';</script><p transition:fade>x</p>`)
			expectContains(t, js, "add_render_callback(() => {", "p_transition.run(1);", "p_transition.run(0);")
			if strings.Count(js, "(") != strings.Count(js, ")") {
				t.Errorf("Expected balanced parentheses, got %q", js)
			}
		})

		t.Run("should render an else block for empty lists", func(t *testing.T) {
			r, js := compile(t, `<script>let items = [];</script>{#each items as item}<p>{item}</p>{:else}<p>none</p>{/each}`)
			expectContains(t, js, "function create_else_block(ctx) {", "each_else")
			if diff := cmp.Diff([]string{"create_fragment", "create_each_block", "create_else_block"}, blockNames(r)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should unpack destructured contexts", func(t *testing.T) {
			_, js := compile(t, `<script>let points = [];</script>{#each points as { x, y }}<p>{x},{y}</p>{/each}`)
			expectContains(t, js, "child_ctx[1] = list[i].x;", "child_ctx[2] = list[i].y;")
		})

		t.Run("should render child blocks before their parents", func(t *testing.T) {
			_, js := compile(t, `<script>let rows = [];</script>{#each rows as row}{#each row as cell}<p>{cell}</p>{/each}{/each}`)
			inner := strings.Index(js, "function create_each_block_1(")
			outer := strings.Index(js, "function create_each_block(")
			root := strings.Index(js, "function create_fragment(")
			if inner < 0 || outer < 0 || root < 0 || !(inner < outer && outer < root) {
				t.Errorf("Expected inner, outer and root blocks in that order, got %d %d %d", inner, outer, root)
			}
		})
	})

	t.Run("if", func(t *testing.T) {
		t.Run("should render a lone branch", func(t *testing.T) {
			_, js := compile(t, `<script>let visible = true;</script>{#if visible}<p>shown</p>{/if}`)
			expectContains(t, js, "function create_if_block(ctx) {", "/*visible*/ ctx[0] && create_if_block(ctx)")
			expectMissing(t, js, "select_block_type")
		})

		t.Run("should select between branches", func(t *testing.T) {
			_, js := compile(t, `<script>let a = 1;</script>{#if a > 1}<p>big</p>{:else if a > 0}<p>small</p>{:else}<p>none</p>{/if}`)
			expectContains(t, js, "function select_block_type(ctx, dirty) {", "create_if_block_1", "create_else_block", "current_block_type")
			expectMissing(t, js, "if_block_creators")
		})

		t.Run("should cache guards that call functions", func(t *testing.T) {
			_, js := compile(t, `<script>let a = 1; function check(v) { return v; }</script>{#if check(a)}<p>x</p>{:else}<p>y</p>{/if}`)
			expectContains(t, js, "show_if")
		})

		t.Run("should index branches when they have outros", func(t *testing.T) {
			_, js := compile(t, `<script>import { fade } from 'svelte/transition'; let a = true;</script>{#if a}<p transition:fade>x</p>{:else}<p>y</p>{/if}`)
			expectContains(t, js, "if_block_creators", "if_blocks", "group_outros();", "check_outros();", "transition_out(")
		})
	})

	t.Run("await", func(t *testing.T) {
		t.Run("should switch branches through the info record", func(t *testing.T) {
			r, js := compile(t, `<script>let promise = load();</script>{#await promise}<p>wait</p>{:then value}<p>{value}</p>{:catch error}<p>{error.message}</p>{/await}`)
			expectContains(t, js,
				"function create_pending_block(ctx) {",
				"function create_then_block(ctx) {",
				"function create_catch_block(ctx) {",
				"handle_promise(",
				"update_await_block_branch(info, ctx, dirty)",
				"hasCatch: true",
				"info.token = null;",
			)
			expectMissing(t, js, "blocks: [")
			if m := r.member("value"); m.Kind != MemberContextual {
				t.Errorf("Expected a contextual value, got %v", m.Kind)
			}
		})

		t.Run("should mount into the target or the parent element", func(t *testing.T) {
			_, js := compile(t, `<script>let promise = load();</script>{#await promise}<p>wait</p>{/await}`)
			expectContains(t, js, "info.block.m(target, ")
			_, js = compile(t, `<script>let promise = load();</script><div>{#await promise}<p>wait</p>{/await}</div>`)
			expectContains(t, js, "info.block.m(div, ")
		})

		t.Run("should unpack destructured values", func(t *testing.T) {
			_, js := compile(t, `<script>let promise = load();</script>{#await promise then { a, b }}<p>{a}{b}</p>{/await}`)
			expectContains(t, js, "function get_then_context(ctx) {")
		})

		t.Run("should give absent branches empty blocks", func(t *testing.T) {
			_, js := compile(t, `<script>let promise = load();</script>{#await promise then value}<p>{value}</p>{/await}`)
			expectContains(t, js,
				"function create_pending_block(ctx) {",
				"function create_catch_block(ctx) {",
				"pending: create_pending_block",
				"hasCatch: false",
			)
		})
	})

	t.Run("components", func(t *testing.T) {
		t.Run("should create nested components", func(t *testing.T) {
			_, js := compile(t, `<script>import Nested from './Nested.svelte'; let x = 1;</script><Nested value={x} label="a" />`)
			expectContains(t, js,
				"nested = new Nested({",
				"create_component(nested.$$.fragment);",
				"mount_component(nested, target, anchor);",
				"nested_changes.value = /*x*/ ctx[0];",
				"nested.$set(nested_changes);",
				"destroy_component(nested, detaching);",
				"transition_in(nested.$$.fragment, local);",
			)
		})

		t.Run("should pass children as the default slot", func(t *testing.T) {
			r, js := compile(t, `<script>import Nested from './Nested.svelte'; let x = 1;</script><Nested><p>{x}</p></Nested>`)
			expectContains(t, js, "function create_default_slot(ctx) {", "$$slots: { default: [create_default_slot] }", "$$scope: { ctx }")
			if m := r.member("$$scope"); m.Kind != MemberScope {
				t.Errorf("Expected the slot scope member, got %v", m.Kind)
			}
		})

		t.Run("should map let directives to context slots", func(t *testing.T) {
			r, js := compile(t, `<script>import List from './List.svelte';</script><List let:item={row}><p>{row}</p></List>`)
			idx := r.member("row").Index
			expectContains(t, js, fmt.Sprintf("({ item: row }) => ({ %d: row })", idx))
		})

		t.Run("should bind component props", func(t *testing.T) {
			_, js := compile(t, `<script>import Nested from './Nested.svelte'; let v = 1;</script><Nested bind:value={v} />`)
			expectContains(t, js,
				"function nested_value_binding(value) {",
				"binding_callbacks.push(() => bind(nested, 'value', nested_value_binding))",
				"updating_value",
				"add_flush_callback(",
			)
		})

		t.Run("should listen to component events", func(t *testing.T) {
			_, js := compile(t, `<script>import Nested from './Nested.svelte'; function done() {}</script><Nested on:done|once={done} />`)
			expectContains(t, js, "nested.$on('done', once(")
		})
	})

	t.Run("slots", func(t *testing.T) {
		t.Run("should render slot content or fallback", func(t *testing.T) {
			r, js := compile(t, `<div><slot>fallback</slot></div>`)
			expectContains(t, js,
				"function create_fallback_block(ctx) {",
				"default_slot_template",
				"create_slot(",
				"update_slot_base(",
				"let { $$slots: slots = {}, $$scope } = $$props;",
			)
			if diff := cmp.Diff([]string{"create_fragment", "create_fallback_block"}, blockNames(r)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("should pass slot props", func(t *testing.T) {
			_, js := compile(t, `<script>let item = 1;</script><slot {item}></slot>`)
			expectContains(t, js, "get_default_slot_context", "get_default_slot_changes")
		})
	})

	t.Run("errors", func(t *testing.T) {
		cases := []struct {
			name   string
			source string
			code   string
		}{
			{"should reject bindings to expressions", `<script>let a = 1; let b = 2;</script><input bind:value={a + b}>`, util.ErrInvalidBinding},
			{"should reject bindings to constants", `<script>const a = 1;</script><input bind:value={a}>`, util.ErrInvalidBinding},
			{"should reject bindings to each indices", `<script>let items = [];</script>{#each items as item, i}<input bind:value={i}>{/each}`, util.ErrInvalidBinding},
			{"should reject bindings to await values", `<script>let p = load();</script>{#await p then v}<input bind:value={v}>{/await}`, util.ErrInvalidBinding},
			{"should reject unknown bindings", `<script>let a = 1;</script><div bind:value={a}></div>`, util.ErrInvalidBinding},
			{"should reject let directives on elements", `<div let:x></div>`, util.ErrUnknownDirective},
			{"should reject animations outside keyed each blocks", `<script>import { flip } from 'svelte/animate';</script><div animate:flip></div>`, util.ErrInvalidAttribute},
			{"should reject classes on components", `<script>import Nested from './Nested.svelte'; let on = true;</script><Nested class:active={on} />`, util.ErrInvalidAttribute},
			{"should reject transitions on components", `<script>import Nested from './Nested.svelte'; import { fade } from 'svelte/transition';</script><Nested transition:fade />`, util.ErrInvalidAttribute},
			{"should reject contexts used outside their block", `<script>let items = [];</script>{#each items as item}<p>x</p>{/each}<p>{item}</p>`, util.ErrUndefinedContext},
			{"should reject keys that use outer contexts", `<script>let rows = [];</script>{#each rows as row}{#each row.cells as cell (row.id)}<p>{cell}</p>{/each}{/each}`, util.ErrInvalidKey},
			{"should reject dynamic slot names", `<script>let n = 'a';</script><slot name={n}></slot>`, util.ErrInvalidAttribute},
			{"should reject unknown modifiers", `<script>function go() {}</script><a on:click|sideways={go}>x</a>`, util.ErrInvalidAttribute},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				expectCode(t, tc.source, tc.code)
			})
		}
	})

	t.Run("warnings", func(t *testing.T) {
		t.Run("should warn about empty blocks", func(t *testing.T) {
			c, err := template.Parse(`<script>let items = [];</script>{#each items as item}{/each}`, "App.svelte")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			diagnostics := util.NewDiagnostics()
			if _, err := NewRenderer(c, config.NewCompilerConfig(), diagnostics, nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			warnings := diagnostics.Warnings()
			if len(warnings) != 1 || warnings[0].Code != util.WarnEmptyBlock {
				t.Errorf("Expected one %q warning, got %v", util.WarnEmptyBlock, warnings)
			}
		})
	})
}

func TestBlock(t *testing.T) {
	r, _ := compile(t, `<p>x</p>`)

	t.Run("should propagate dependencies to ancestors", func(t *testing.T) {
		root := newBlock(r, nil, "root", BlockOptions{})
		child := root.Child(BlockOptions{Name: "child"})
		grandchild := child.Child(BlockOptions{Name: "grandchild"})
		grandchild.AddDependencies(mapset.NewSet("a", "b"))
		child.AddDependencies(mapset.NewSet("c"))
		for _, tc := range []struct {
			block *Block
			want  []string
		}{
			{grandchild, []string{"a", "b"}},
			{child, []string{"a", "b", "c"}},
			{root, []string{"a", "b", "c"}},
		} {
			if diff := cmp.Diff(tc.want, sortedSet(tc.block.Dependencies)); diff != "" {
				t.Errorf("%s mismatch (-want +got):\n%s", tc.block.Name, diff)
			}
		}
	})

	t.Run("should accept equivalent variable declarations", func(t *testing.T) {
		b := newBlock(r, nil, "b", BlockOptions{})
		b.AddVariable("x", lit(1))
		b.AddVariable("x", lit(1))
		if len(b.variables) != 1 {
			t.Errorf("Expected 1 variable, got %d", len(b.variables))
		}
	})

	t.Run("should reject conflicting variable declarations", func(t *testing.T) {
		b := newBlock(r, nil, "b", BlockOptions{})
		b.AddVariable("x", lit(1))
		var err error
		func() {
			defer util.RecoverBug(&err)
			b.AddVariable("x", lit(2))
		}()
		var bug *util.CompilerBug
		if !errors.As(err, &bug) {
			t.Errorf("Expected a CompilerBug, got %v", err)
		}
	})

	t.Run("should reject additions after render", func(t *testing.T) {
		for name, add := range map[string]func(b *Block){
			"statement": func(b *Block) { b.Create.AddExpr(lit(1)) },
			"variable":  func(b *Block) { b.AddVariable("late", nil) },
			"listener":  func(b *Block) { b.AddEvent(lit(1)) },
		} {
			b := newBlock(r, nil, "b", BlockOptions{})
			b.Render()
			var err error
			func() {
				defer util.RecoverBug(&err)
				add(b)
			}()
			var bug *util.CompilerBug
			if !errors.As(err, &bug) {
				t.Errorf("%s: Expected a CompilerBug, got %v", name, err)
			}
		}
	})

	t.Run("should propagate outros to ancestors unless local", func(t *testing.T) {
		root := newBlock(r, nil, "root", BlockOptions{})
		child := root.Child(BlockOptions{Name: "child"})
		child.AddOutro(true)
		if root.HasOutroMethod {
			t.Error("Expected a local outro to stay in its block")
		}
		child.AddOutro(false)
		if !root.HasOutroMethod || !root.HasOutros {
			t.Error("Expected the outro to reach the parent")
		}
	})

	t.Run("should render empty phases as noop", func(t *testing.T) {
		b := newBlock(r, nil, "empty_block", BlockOptions{})
		js := output.NewJsEmitter().EmitStatements([]output.OutputStatement{b.Render()})
		expectContains(t, js, "function empty_block(ctx) {", "c: noop", "m: noop", "d: noop")
		expectMissing(t, js, "p:")
	})
}

// randomTemplate nests ifs, eaches, tags and attributes over a few reactive
// names. Each contexts are numbered so that they never shadow each other.
type randomTemplate struct {
	rng      *rand.Rand
	contexts int
}

var reactiveNames = []string{"a", "b", "c", "list"}

func (g *randomTemplate) expr(contexts []string) string {
	pool := append(append([]string{}, reactiveNames...), contexts...)
	n := 1 + g.rng.Intn(3)
	parts := make([]string, n)
	for i := range parts {
		parts[i] = pool[g.rng.Intn(len(pool))]
	}
	return strings.Join(parts, " + ")
}

func (g *randomTemplate) fragment(depth int, contexts []string) string {
	var sb strings.Builder
	n := 1 + g.rng.Intn(3)
	for i := 0; i < n; i++ {
		choice := g.rng.Intn(5)
		if depth >= 3 {
			choice = g.rng.Intn(2)
		}
		switch choice {
		case 0:
			fmt.Fprintf(&sb, "<p>{%s}</p>", g.expr(contexts))
		case 1:
			fmt.Fprintf(&sb, "<span title={%s}>x</span>", g.expr(contexts))
		case 2:
			fmt.Fprintf(&sb, "{#if %s}%s{:else}<p>none</p>{/if}", g.expr(contexts), g.fragment(depth+1, contexts))
		case 3:
			item := fmt.Sprintf("item%d", g.contexts)
			idx := fmt.Sprintf("i%d", g.contexts)
			g.contexts++
			inner := append(append([]string{}, contexts...), item, idx)
			fmt.Fprintf(&sb, "{#each list as %s, %s}%s{/each}", item, idx, g.fragment(depth+1, inner))
		case 4:
			fmt.Fprintf(&sb, "<div>%s</div>", g.fragment(depth+1, contexts))
		}
	}
	return sb.String()
}

func TestDependencySoundness(t *testing.T) {
	t.Run("should track contexts through their source list", func(t *testing.T) {
		r, _ := compile(t, `<script>let list = []; let a = 1; let b = 2;</script>{#each list as item}<p>{item.x + a}</p>{/each}<p>{b}</p>`)
		each := r.Blocks()[1]
		if diff := cmp.Diff([]string{"a", "list"}, sortedSet(each.Dependencies)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"a", "b", "list"}, sortedSet(r.Block.Dependencies)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should cover every evaluation in random templates", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		for n := 0; n < 200; n++ {
			g := &randomTemplate{rng: rng}
			markup := g.fragment(0, nil)
			source := "<script>let a = 1; let b = 2; let c = 3; let list = [];</script>" + markup
			r, _, err := build(source)
			if err != nil {
				t.Fatalf("unexpected error compiling %q: %v", markup, err)
			}
			for _, e := range r.Evaluations() {
				want := mapset.NewThreadUnsafeSet[string]()
				for _, name := range freeNames(e.Expression) {
					switch {
					case strings.HasPrefix(name, "item"), strings.HasPrefix(name, "i") && name != "i":
						want.Add("list")
					default:
						want.Add(name)
					}
				}
				if diff := cmp.Diff(sortedSet(want), sortedSet(e.Dependencies)); diff != "" {
					t.Fatalf("%q: dependency mismatch in %s (-want +got):\n%s", markup, e.Block.Name, diff)
				}
				for block := e.Block; block != nil; block = block.Parent {
					e.Dependencies.Each(func(dep string) bool {
						if !block.Dependencies.Contains(dep) {
							t.Errorf("%q: block %s is missing %s", markup, block.Name, dep)
						}
						return false
					})
				}
			}
		}
	})
}
