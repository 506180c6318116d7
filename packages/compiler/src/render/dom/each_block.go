package dom

import (
	mapset "github.com/deckarep/golang-set/v2"

	ep "sveltec-go/packages/compiler/src/expression_parser"
	"sveltec-go/packages/compiler/src/output"
	"sveltec-go/packages/compiler/src/scope"
	"sveltec-go/packages/compiler/src/template"
	"sveltec-go/packages/compiler/src/util"
)

// eachAlias tracks the list and index names an each block writes into child
// contexts so that handlers can assign to `list[index]`. They are only
// allocated when a direct write to a context needs them.
type eachAlias struct {
	context string
	index   string
	list    string
	idx     string
}

func (r *Renderer) declareEach(owner string, alias *eachAlias) {
	r.eaches[owner] = alias
}

// isEach reports whether owner is an each block.
func (r *Renderer) isEach(owner string) bool {
	_, ok := r.eaches[owner]
	return ok
}

// requireEachAliases gives the list and index of an each block context
// slots. A declared index name is reused.
func (r *Renderer) requireEachAliases(owner string) (list, idx string) {
	a, ok := r.eaches[owner]
	if !ok {
		return "", ""
	}
	if a.list == "" {
		a.list = r.names.UniqueName("each_value", false)
		r.contextual(a.list)
		a.idx = a.index
		if a.idx == "" {
			a.idx = r.names.UniqueName(a.context+"_index", false)
			r.contextual(a.idx)
		}
	}
	return a.list, a.idx
}

// eachAliases returns the aliases of owner if they were required.
func (r *Renderer) eachAliases(owner string) (list, idx string) {
	if a, ok := r.eaches[owner]; ok {
		return a.list, a.idx
	}
	return "", ""
}

// eachContext is one name an each block context pattern declares.
type eachContext struct {
	name string
	path []ep.PathSegment
	rest bool
	def  ep.Expression
}

func collectContexts(p *ep.Pattern, path []ep.PathSegment, out *[]eachContext) error {
	switch p.Kind {
	case ep.PatternIdentifier:
		if p.Name == "" {
			return util.Errorf(nil, util.ErrInvalidEachContext, "Each block context is missing a name")
		}
		*out = append(*out, eachContext{name: p.Name, path: append([]ep.PathSegment(nil), path...), rest: p.Rest, def: p.Default})
	case ep.PatternObject:
		for _, el := range p.Elements {
			if el.Value.Rest {
				return util.Errorf(nil, util.ErrInvalidEachContext, "Rest elements are not supported in object patterns of each blocks")
			}
			if err := collectContexts(el.Value, append(path, ep.PathSegment{Key: el.Key}), out); err != nil {
				return err
			}
		}
	case ep.PatternArray:
		for i, el := range p.Elements {
			if el == nil {
				continue
			}
			if err := collectContexts(el.Value, append(path, ep.PathSegment{Index: i}), out); err != nil {
				return err
			}
		}
	}
	return nil
}

// eachBlockWrapper renders {#each}. Every iteration is an instance of one
// child block; keyed lists are reconciled by update_keyed_each.
type eachBlockWrapper struct {
	wrapperBase
	node     *template.EachBlock
	owner    string
	listDeps mapset.Set[string]
	contexts []eachContext
	alias    *eachAlias

	child        *Block
	fragment     *fragment
	elseBlock    *Block
	elseFragment *fragment
}

func newEachBlock(r *Renderer, block *Block, parent Wrapper, node *template.EachBlock, strip bool, next Wrapper) (*eachBlockWrapper, error) {
	w := &eachBlockWrapper{
		wrapperBase: wrapperBase{r: r, block: block, parent: parent},
		node:        node,
	}
	if node.Context == nil {
		return nil, util.Errorf(node.Span(), util.ErrInvalidEachContext, "Expected each block context")
	}
	if err := collectContexts(node.Context, nil, &w.contexts); err != nil {
		if pe, ok := err.(*util.ParseError); ok && pe.Span == nil {
			return nil, util.Errorf(node.Span(), pe.Code, "%s", pe.Msg)
		}
		return nil, err
	}

	res, err := r.resolveIn(block, node.Expression)
	if err != nil {
		return nil, err
	}
	w.listDeps = res.Dependencies
	for _, c := range w.contexts {
		if c.def == nil {
			continue
		}
		def, err := r.resolveIn(block, c.def)
		if err != nil {
			return nil, err
		}
		w.listDeps = w.listDeps.Union(def.Dependencies)
	}

	w.child = block.Child(BlockOptions{
		Name:    "create_each_block",
		Type:    BlockEach,
		Comment: r.comment(node),
		Keyed:   node.Key != nil,
	})
	w.owner = w.child.Name
	s := block.Scope.Extend(w.owner)
	w.child.Scope = s
	for _, c := range w.contexts {
		r.resolver.CheckShadowing(block.Scope, c.name, node.Span())
		s.Declare(&scope.Binding{Name: c.name, Kind: scope.BindingContextual, Dependencies: w.listDeps, Path: c.path, Source: node.Expression})
		r.contextual(c.name)
	}
	if node.Index != "" {
		r.resolver.CheckShadowing(block.Scope, node.Index, node.Span())
		s.Declare(&scope.Binding{Name: node.Index, Kind: scope.BindingIndex, Dependencies: w.listDeps, Source: node.Expression})
		r.contextual(node.Index)
	}
	w.alias = &eachAlias{context: "each", index: node.Index}
	if node.Context.Kind == ep.PatternIdentifier {
		w.alias.context = node.Context.Name
	}
	r.declareEach(w.owner, w.alias)

	if node.Key != nil {
		if _, err := r.resolver.ResolveKey(node.Key, s, w.owner); err != nil {
			return nil, err
		}
	}

	if isEmptyFragment(node.Children) {
		r.diagnostics.Warn(node.Span(), util.WarnEmptyBlock, "Empty block")
	}
	w.fragment, err = newFragment(r, w.child, w, node.Children, strip, next)
	if err != nil {
		return nil, err
	}

	if node.Else != nil {
		w.elseBlock = block.Child(BlockOptions{
			Name:    "create_else_block",
			Type:    BlockElse,
			Comment: r.comment(node.Else),
		})
		w.elseFragment, err = newFragment(r, w.elseBlock, w, node.Else.Children, strip, next)
		if err != nil {
			return nil, err
		}
	}
	return w, nil
}

func isEmptyFragment(nodes []template.Node) bool {
	for _, n := range nodes {
		if t, ok := n.(*template.Text); !ok || !t.IsWhitespace() {
			return false
		}
	}
	return true
}

func (w *eachBlockWrapper) IsDOMNode() bool { return false }

// renderContextFn emits get_each_context, which copies the parent context
// and writes the values of one iteration into it.
func (w *eachBlockWrapper) renderContextFn(block *Block) string {
	r := w.r
	name := r.names.UniqueName("get_each_context", false)
	childCtx := "child_ctx"
	body := []output.OutputStatement{constant(childCtx, method(ref(r.ids.Ctx), "slice"))}
	set := func(member string, value output.OutputExpression) {
		body = append(body, stmt(assign(index(ref(childCtx), lit(r.member(member).Index)), value)))
	}

	for _, c := range w.contexts {
		var value output.OutputExpression = index(ref("list"), ref("i"))
		for k, seg := range c.path {
			switch {
			case c.rest && k == len(c.path)-1:
				value = method(value, "slice", lit(seg.Index))
			case seg.Key != "":
				value = prop(value, seg.Key)
			default:
				value = index(value, lit(seg.Index))
			}
		}
		if c.def != nil {
			value = output.NewConditionalExpr(identical(value, ref("undefined")), r.snippet(block, c.def), value, nil)
		}
		set(c.name, value)
	}
	if w.alias.list != "" {
		set(w.alias.list, ref("list"))
	}
	if w.alias.idx != "" {
		set(w.alias.idx, ref("i"))
	}
	body = append(body, ret(ref(childCtx)))
	r.preamble = append(r.preamble, declareFunction(name, params(r.ids.Ctx, "list", "i"), body...))
	return name
}

func (w *eachBlockWrapper) Render(block *Block, parentNode, parentNodes string) {
	r := w.r
	keyed := w.node.Key != nil
	w.renderChildren()
	getContext := w.renderContextFn(block)
	list := block.UniqueName("each_value")
	iterations := block.UniqueName("each_blocks")
	anchor, anchorID := w.reserveAnchor(block, parentNode, "each_anchor")
	mountNode := updateMountNode(parentNode, anchor)

	block.AddVariable(list, r.snippet(block, w.node.Expression))
	if r.options.Dev {
		block.Init.AddExpr(call(r.helper(ValidateEachArgument), ref(list)))
	}
	block.AddVariable(iterations, array())

	var getKey, lookup string
	if keyed {
		getKey = block.UniqueName("get_key")
		lookup = block.UniqueName("each_lookup")
		block.AddVariable(lookup, output.NewInstantiateExpr(ref("Map"), nil, nil))
		block.Init.Add(constant(getKey, arrow(params(r.ids.Ctx), r.snippet(w.child, w.node.Key))))
		if r.options.Dev {
			block.Init.AddExpr(call(r.helper(ValidateEachKeys), ref(r.ids.Ctx), ref(list), ref(getContext), ref(getKey)))
		}
		block.Init.Add(loop("i", prop(ref(list), "length"),
			let("child_ctx", call(ref(getContext), ref(r.ids.Ctx), ref(list), ref("i"))),
			let("key", call(ref(getKey), ref("child_ctx"))),
			stmt(method(ref(lookup), "set", ref("key"),
				assign(index(ref(iterations), ref("i")), call(ref(w.child.Name), ref("key"), ref("child_ctx")))))))
	} else {
		block.Init.Add(loop("i", prop(ref(list), "length"),
			stmt(assign(index(ref(iterations), ref("i")),
				call(ref(w.child.Name), call(ref(getContext), ref(r.ids.Ctx), ref(list), ref("i")))))))
	}

	each := func(body ...output.OutputStatement) output.OutputStatement {
		return loop("i", prop(ref(iterations), "length"), body...)
	}
	item := index(ref(iterations), ref("i"))

	var mountArgs []output.OutputExpression
	if parentNode != "" {
		mountArgs = []output.OutputExpression{ref(parentNode), null()}
	} else {
		mountArgs = []output.OutputExpression{ref(r.ids.Target), ref(r.ids.Anchor)}
	}
	block.Create.Add(each(stmt(method(item, "c"))))
	if parentNodes != "" {
		block.Claim.Add(each(stmt(method(item, "l", ref(parentNodes)))))
	}
	block.Mount.Add(each(when(item, stmt(method(item, "m", mountArgs...)))))

	elseVar := ""
	if w.elseBlock != nil {
		elseVar = w.renderElse(block, list, mountArgs, parentNodes)
	}
	w.addAnchor(block, anchorID, parentNode, parentNodes)

	deps := mapset.NewSet[string]()
	w.child.Dependencies.Each(func(d string) bool {
		deps.Add(d)
		return false
	})
	deps = deps.Union(w.listDeps)

	if deps.Cardinality() > 0 {
		var update []output.OutputStatement
		update = append(update, stmt(assign(ref(list), r.snippet(block, w.node.Expression))))
		if r.options.Dev {
			update = append(update, stmt(call(r.helper(ValidateEachArgument), ref(list))))
		}
		if keyed {
			update = append(update, w.keyedUpdate(list, iterations, getKey, lookup, getContext, mountNode, anchor)...)
		} else {
			update = append(update, w.unkeyedUpdate(block, list, iterations, getContext, mountNode, anchor)...)
		}
		block.Update.Add(when(r.dirtySet(deps), update...))
	}
	if elseVar != "" {
		w.updateElse(block, list, elseVar, mountNode, anchor)
	}

	if w.child.HasIntroMethod || w.child.HasOutroMethod {
		block.Intro.Add(loop("i", prop(ref(list), "length"), stmt(call(r.helper(TransitionIn), item))))
	}
	if w.child.HasOutroMethod {
		if !keyed {
			block.Outro.Add(stmt(assign(ref(iterations), method(ref(iterations), "filter", ref("Boolean")))))
		}
		block.Outro.Add(each(stmt(call(r.helper(TransitionOut), item))))
	}

	if keyed {
		block.Destroy.Add(each(stmt(method(item, "d", ref(r.ids.Detaching)))))
	} else {
		block.Destroy.AddExpr(call(r.helper(DestroyEach), ref(iterations), ref(r.ids.Detaching)))
	}
	if elseVar != "" {
		block.Destroy.Add(when(ref(elseVar), stmt(method(ref(elseVar), "d", ref(r.ids.Detaching)))))
	}
}

// renderChildren renders the iteration and else blocks. They render first
// so that their shape is known to the code driving them.
func (w *eachBlockWrapper) renderChildren() {
	r := w.r
	nodes := ""
	if r.options.Hydratable {
		nodes = r.ids.Nodes
	}
	if w.node.Key != nil {
		first := w.child.UniqueName("first")
		var claim output.OutputExpression
		if nodes != "" {
			claim = call(r.helper(Empty))
		}
		w.child.AddElement(first, call(r.helper(Empty)), claim, "", false)
		w.child.First = first
	}
	w.fragment.Render(w.child, "", nodes)
	if w.elseBlock != nil {
		w.elseFragment.Render(w.elseBlock, "", nodes)
	}
}

// renderElse creates the else block when the list starts out empty.
func (w *eachBlockWrapper) renderElse(block *Block, list string, mountArgs []output.OutputExpression, parentNodes string) string {
	r := w.r
	v := block.UniqueName("each_else")
	block.AddVariable(v, null())
	block.Init.Add(when(not(prop(ref(list), "length")),
		stmt(assign(ref(v), call(ref(w.elseBlock.Name), ref(r.ids.Ctx))))))
	block.Create.Add(when(ref(v), stmt(method(ref(v), "c"))))
	if parentNodes != "" {
		block.Claim.Add(when(ref(v), stmt(method(ref(v), "l", ref(parentNodes)))))
	}
	block.Mount.Add(when(ref(v), stmt(method(ref(v), "m", mountArgs...))))
	return v
}

// updateElse swaps the else block in and out as the list empties and
// fills. It runs after the list was reassigned.
func (w *eachBlockWrapper) updateElse(block *Block, list, v string, mountNode, anchor output.OutputExpression) {
	r := w.r
	empty := not(prop(ref(list), "length"))
	create := statements(
		stmt(assign(ref(v), call(ref(w.elseBlock.Name), ref(r.ids.Ctx)))),
		stmt(method(ref(v), "c")),
		stmt(method(ref(v), "m", mountNode, anchor)))
	remove := statements(when(ref(v),
		stmt(method(ref(v), "d", lit(1))),
		stmt(assign(ref(v), null()))))

	if w.elseBlock.HasUpdateMethod() {
		block.Update.Add(whenElse(and(empty, ref(v)),
			statements(stmt(method(ref(v), "p", ref(r.ids.Ctx), ref(r.ids.Dirty)))),
			statements(whenElse(empty, create, remove))))
		return
	}
	block.Update.Add(whenElse(empty, statements(when(not(ref(v)), create...)), remove))
}

func (w *eachBlockWrapper) keyedUpdate(list, iterations, getKey, lookup, getContext string, mountNode, anchor output.OutputExpression) []output.OutputStatement {
	r := w.r
	child := w.child
	var out []output.OutputStatement
	if child.HasOutros {
		out = append(out, stmt(call(r.helper(GroupOutros))))
	}
	if child.HasAnimation {
		out = append(out, loop("i", prop(ref(iterations), "length"), stmt(method(index(ref(iterations), ref("i")), "r"))))
	}
	if r.options.Dev {
		out = append(out, stmt(call(r.helper(ValidateEachKeys), ref(r.ids.Ctx), ref(list), ref(getContext), ref(getKey))))
	}

	destroy := DestroyBlock
	switch {
	case child.HasAnimation && child.HasOutros:
		destroy = FixAndOutroAndDestroyBlock
	case child.HasAnimation:
		destroy = FixAndDestroyBlock
	case child.HasOutros:
		destroy = OutroAndDestroyBlock
	}
	dynamic := 0
	if child.HasUpdateMethod() {
		dynamic = 1
	}
	out = append(out, stmt(assign(ref(iterations), call(r.helper(UpdateKeyedEach),
		ref(iterations), ref(r.ids.Dirty), ref(getKey), lit(dynamic), ref(r.ids.Ctx), ref(list), ref(lookup),
		mountNode, r.helper(destroy), ref(child.Name), anchor, ref(getContext)))))

	if child.HasAnimation {
		out = append(out, loop("i", prop(ref(iterations), "length"), stmt(method(index(ref(iterations), ref("i")), "a"))))
	}
	if child.HasOutros {
		out = append(out, stmt(call(r.helper(CheckOutros))))
	}
	return out
}

func (w *eachBlockWrapper) unkeyedUpdate(block *Block, list, iterations, getContext string, mountNode, anchor output.OutputExpression) []output.OutputStatement {
	r := w.r
	child := w.child
	item := index(ref(iterations), ref("i"))
	childCtx := call(ref(getContext), ref(r.ids.Ctx), ref(list), ref("i"))

	create := statements(
		stmt(assign(item, call(ref(child.Name), ref("child_ctx")))),
		stmt(method(item, "c")))
	transitions := child.HasIntroMethod || child.HasOutroMethod
	if transitions {
		create = append(create, stmt(call(r.helper(TransitionIn), item, lit(1))))
	}
	create = append(create, stmt(method(item, "m", mountNode, anchor)))

	var body []output.OutputStatement
	if child.HasUpdateMethod() {
		existing := statements(stmt(method(item, "p", ref("child_ctx"), ref(r.ids.Dirty))))
		if transitions {
			existing = append(existing, stmt(call(r.helper(TransitionIn), item, lit(1))))
		}
		body = statements(constant("child_ctx", childCtx), whenElse(item, existing, create))
	} else {
		body = statements(when(not(item), append(statements(constant("child_ctx", childCtx)), create...)...))
	}

	out := statements(
		let("i", lit(0)),
		loopFrom("i", prop(ref(list), "length"), body...))

	if child.HasOutros {
		outro := block.local("out")
		block.Init.Add(constant(outro, arrow(params("i"), call(r.helper(TransitionOut), index(ref(iterations), ref("i")), lit(1), lit(1),
			arrow(nil, statements(stmt(assign(index(ref(iterations), ref("i")), null()))))))))
		return append(out,
			stmt(call(r.helper(GroupOutros))),
			loopFrom("i", prop(ref(iterations), "length"), stmt(call(ref(outro), ref("i")))),
			stmt(call(r.helper(CheckOutros))))
	}
	return append(out,
		loopFrom("i", prop(ref(iterations), "length"), stmt(method(item, "d", lit(1)))),
		stmt(assign(prop(ref(iterations), "length"), prop(ref(list), "length"))))
}
