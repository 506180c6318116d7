package dom

import (
	"sort"

	"sveltec-go/packages/compiler/src/config"
	"sveltec-go/packages/compiler/src/output"
	"sveltec-go/packages/compiler/src/template"
	"sveltec-go/packages/compiler/src/util"
)

// Header is the first line of every generated module.
const Header = "/* generated by sveltec-go */"

// Render generates the component module: helper imports, the script's
// imports, module functions, blocks with children before their parents,
// hoisted handlers, the instance function and the component class.
func (r *Renderer) Render() (stmts []output.OutputStatement, err error) {
	defer util.RecoverBug(&err)
	if r.Block.sealed {
		util.Bugf("component %s rendered twice", r.component.Name)
	}
	nodes := ""
	if r.options.Hydratable {
		nodes = r.ids.Nodes
	}
	r.fragment.Render(r.Block, "", nodes)

	var body []output.OutputStatement
	if script := r.component.Script; script != nil {
		for _, imp := range script.Imports {
			body = append(body, output.NewRawStmt(imp.Text, nil))
		}
	}
	addCSS := r.renderCSS()
	if addCSS != "" {
		body = append(body, r.cssFunction(addCSS))
	}

	blocks := make([]output.OutputStatement, 0, len(r.blocks))
	for _, b := range r.blockOrder() {
		blocks = append(blocks, b.Render())
	}
	// Module functions are emitted by blocks while they render, so the
	// preamble is only complete now.
	body = append(body, r.preamble...)
	body = append(body, blocks...)
	body = append(body, r.hoisted...)

	instance := r.renderInstance()
	if instance != nil {
		body = append(body, instance)
	}
	className := r.names.UniqueName(r.component.Name, false)
	body = append(body,
		r.renderClass(className, instance, addCSS),
		output.NewExportDefaultStmt(className))

	head := []output.OutputStatement{
		output.NewRawStmt(Header, nil),
		output.NewImportStmt(r.imports(), r.options.RuntimePath),
	}
	return append(head, body...), nil
}

// blockOrder lists blocks depth first with children before their parent,
// so the root block comes last. Siblings keep creation order.
func (r *Renderer) blockOrder() []*Block {
	children := make(map[*Block][]*Block, len(r.blocks))
	for _, b := range r.blocks {
		if b.Parent != nil {
			children[b.Parent] = append(children[b.Parent], b)
		}
	}
	out := make([]*Block, 0, len(r.blocks))
	var visit func(b *Block)
	visit = func(b *Block) {
		for _, c := range children[b] {
			visit(c)
		}
		out = append(out, b)
	}
	visit(r.Block)
	return out
}

// imports lists the helpers used, renamed where they clash with a name of
// the component.
func (r *Renderer) imports() []string {
	names := r.used.ToSlice()
	sort.Strings(names)
	out := make([]string, len(names))
	for i, name := range names {
		if alias := r.aliases[name]; alias != name {
			out[i] = name + " as " + alias
		} else {
			out[i] = name
		}
	}
	return out
}

// renderCSS returns the name of the style injecting function, or "" when
// styles are not injected.
func (r *Renderer) renderCSS() string {
	if r.stylesheet == nil || r.options.CSS != config.CSSInjected {
		return ""
	}
	return r.names.UniqueName("add_css", false)
}

func (r *Renderer) cssFunction(name string) output.OutputStatement {
	return declareFunction(name, params("target"),
		stmt(call(r.helper(AppendStyles), ref("target"), lit(r.stylesheet.Class), lit(r.stylesheet.Text))))
}

// exported lists the props of the component with their context slots.
func (r *Renderer) exported() []*ContextMember {
	var out []*ContextMember
	for _, m := range r.members {
		if m.Var != nil && m.Var.Exported {
			out = append(out, m)
		}
	}
	return out
}

// renderInstance builds the function that runs the script once per
// component instance and returns the initial context. It is nil when the
// component has no script and the context is empty.
func (r *Renderer) renderInstance() output.OutputStatement {
	script := r.component.Script
	var ctxNames []string
	for _, m := range r.members {
		if m.Kind == MemberContextual {
			break
		}
		ctxNames = append(ctxNames, m.Name)
	}
	if script == nil && len(ctxNames) == 0 && len(r.instance) == 0 {
		return nil
	}

	var body []output.OutputStatement
	if script != nil {
		if text := script.InstanceBody(); text != "" {
			body = append(body, output.NewRawStmt(text, nil))
		}
	}
	for _, v := range r.component.Vars {
		if v.Kind != template.VarStore {
			continue
		}
		m, ok := r.memberIndex[v.Name]
		if !ok {
			continue
		}
		body = append(body,
			let(v.Name, nil),
			stmt(call(r.helper(ComponentSubscribe), ref("$$self"), ref(v.Name[1:]),
				arrow(params("value"), call(ref("$$invalidate"), lit(m.Index), assign(ref(v.Name), ref("value")))))))
	}

	_, hasScope := r.memberIndex["$$scope"]
	switch {
	case r.slotsName != "" && hasScope:
		body = append(body, output.NewRawStmt("let { $$slots: "+r.slotsName+" = {}, $$scope } = $$props;", nil))
	case r.slotsName != "":
		body = append(body, output.NewRawStmt("let { $$slots: "+r.slotsName+" = {} } = $$props;", nil))
	case hasScope:
		body = append(body, output.NewRawStmt("let { $$scope } = $$props;", nil))
	}
	body = append(body, r.instance...)

	var setters []output.OutputStatement
	for _, m := range r.exported() {
		setters = append(setters, r.propSetter(m.Name, m.Index))
	}
	if hasScope {
		setters = append(setters, r.propSetter("$$scope", r.member("$$scope").Index))
	}
	if len(setters) > 0 {
		body = append(body, stmt(assign(prop(ref("$$self"), "$$set"), arrow(params("$$props"), setters))))
	}

	values := make([]output.OutputExpression, len(ctxNames))
	for i, name := range ctxNames {
		values[i] = ref(name)
	}
	body = append(body, ret(array(values...)))
	return declareFunction(r.names.UniqueName("instance", false), params("$$self", "$$props", "$$invalidate"), body...)
}

// propSetter copies an incoming prop into its context slot.
func (r *Renderer) propSetter(name string, index int) output.OutputStatement {
	return when(binary(output.BinaryOperatorIn, lit(name), ref("$$props")),
		stmt(call(ref("$$invalidate"), lit(index), assign(ref(name), prop(ref("$$props"), name)))))
}

func (r *Renderer) renderClass(name string, instance output.OutputStatement, addCSS string) output.OutputStatement {
	base := SvelteComponent
	if r.options.Dev {
		base = SvelteComponentDev
	}

	var instanceRef output.OutputExpression = null()
	if fn, ok := instance.(*output.DeclareFunctionStmt); ok {
		instanceRef = ref(fn.Name)
	}
	propsMap := make([]*output.LiteralMapEntry, 0)
	for _, m := range r.exported() {
		propsMap = append(propsMap, entry(m.Name, lit(m.Index)))
	}
	args := []output.OutputExpression{
		ref("this"), ref("options"), instanceRef, ref(r.Block.Name), r.helper(SafeNotEqual), object(propsMap...),
	}
	switch {
	case r.ContextOverflow():
		var css output.OutputExpression = null()
		if addCSS != "" {
			css = ref(addCSS)
		}
		args = append(args, css, r.initialDirty())
	case addCSS != "":
		args = append(args, ref(addCSS))
	}

	methods := []*output.ClassMethod{{
		Name:   "constructor",
		Params: params("options"),
		Statements: statements(
			stmt(call(ref("super"), r.devOptions()...)),
			stmt(call(r.helper(Init), args...))),
	}}
	if r.options.Accessors {
		for _, m := range r.exported() {
			methods = append(methods,
				&output.ClassMethod{
					Name:       m.Name,
					Kind:       output.ClassMethodGetter,
					Statements: statements(ret(index(prop(prop(ref("this"), "$$"), "ctx"), lit(m.Index)))),
				},
				&output.ClassMethod{
					Name:   m.Name,
					Kind:   output.ClassMethodSetter,
					Params: params(m.Name),
					Statements: statements(
						stmt(method(ref("this"), "$set", object(entry(m.Name, ref(m.Name))))),
						stmt(call(r.helper(Flush)))),
				})
		}
	}
	return output.NewClassStmt(name, r.helper(base), methods, nil)
}

// devOptions passes the constructor options to SvelteComponentDev, which
// validates them.
func (r *Renderer) devOptions() []output.OutputExpression {
	if r.options.Dev {
		return []output.OutputExpression{ref("options")}
	}
	return nil
}
