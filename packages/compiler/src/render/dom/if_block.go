package dom

import (
	mapset "github.com/deckarep/golang-set/v2"

	ep "sveltec-go/packages/compiler/src/expression_parser"
	"sveltec-go/packages/compiler/src/output"
	"sveltec-go/packages/compiler/src/template"
	"sveltec-go/packages/compiler/src/util"
)

// ifBranch is one arm of an if chain. The else arm has no condition.
type ifBranch struct {
	condition ep.Expression
	deps      mapset.Set[string]
	block     *Block
	fragment  *fragment
	// cached conditions call functions, so they are only re-evaluated when
	// one of their dependencies changed.
	cached string
}

// ifBlockWrapper renders {#if}. Else-if arms are flattened into one chain.
type ifBlockWrapper struct {
	wrapperBase
	node     *template.IfBlock
	branches []*ifBranch
}

func newIfBlock(r *Renderer, block *Block, parent Wrapper, node *template.IfBlock, strip bool, next Wrapper) (*ifBlockWrapper, error) {
	w := &ifBlockWrapper{
		wrapperBase: wrapperBase{r: r, block: block, parent: parent},
		node:        node,
	}
	current := node
	for current != nil {
		res, err := r.resolveIn(block, current.Expression)
		if err != nil {
			return nil, err
		}
		if isEmptyFragment(current.Children) {
			r.diagnostics.Warn(current.Span(), util.WarnEmptyBlock, "Empty block")
		}
		b := &ifBranch{
			condition: current.Expression,
			deps:      res.Dependencies,
			block: block.Child(BlockOptions{
				Name:    "create_if_block",
				Type:    BlockIf,
				Comment: r.comment(current),
			}),
		}
		if b.fragment, err = newFragment(r, b.block, w, current.Children, strip, next); err != nil {
			return nil, err
		}
		w.branches = append(w.branches, b)

		if current.Else == nil {
			break
		}
		if elseIf := asElseIf(current.Else); elseIf != nil {
			current = elseIf
			continue
		}
		b = &ifBranch{
			block: block.Child(BlockOptions{
				Name:    "create_else_block",
				Type:    BlockElse,
				Comment: r.comment(current.Else),
			}),
		}
		if b.fragment, err = newFragment(r, b.block, w, current.Else.Children, strip, next); err != nil {
			return nil, err
		}
		w.branches = append(w.branches, b)
		break
	}
	return w, nil
}

// asElseIf returns the nested if block of `{:else if}`.
func asElseIf(e *template.ElseBlock) *template.IfBlock {
	if len(e.Children) != 1 {
		return nil
	}
	if child, ok := e.Children[0].(*template.IfBlock); ok && child.ElseIf {
		return child
	}
	return nil
}

func (w *ifBlockWrapper) IsDOMNode() bool { return false }

func (w *ifBlockWrapper) hasElse() bool {
	return w.branches[len(w.branches)-1].condition == nil
}

func (w *ifBlockWrapper) hasOutros() bool {
	for _, b := range w.branches {
		if b.block.HasOutroMethod {
			return true
		}
	}
	return false
}

func (w *ifBlockWrapper) hasIntros() bool {
	for _, b := range w.branches {
		if b.block.HasIntroMethod {
			return true
		}
	}
	return false
}

// hasCall reports whether evaluating expr may run user code. It is a
// syntactic check: getters and proxies are not detected.
func hasCall(expr ep.Expression) bool {
	found := false
	ep.Inspect(expr, func(e ep.Expression) bool {
		switch e.(type) {
		case *ep.CallExpression, *ep.NewExpression:
			found = true
		}
		return !found
	})
	return found
}

func (w *ifBlockWrapper) Render(block *Block, parentNode, parentNodes string) {
	r := w.r
	nodes := ""
	if r.options.Hydratable {
		nodes = r.ids.Nodes
	}
	dynamic := false
	for _, b := range w.branches {
		b.fragment.Render(b.block, "", nodes)
		dynamic = dynamic || b.block.HasUpdateMethod()
	}
	// Arms are updated through one variable, so they share one shape.
	if dynamic && len(w.branches) > 1 {
		for _, b := range w.branches {
			b.block.ForceUpdateMethod()
		}
	}

	name := block.UniqueName("if_block")
	anchor, anchorID := w.reserveAnchor(block, parentNode, "if_block_anchor")
	mountNode := updateMountNode(parentNode, anchor)
	var mountArgs []output.OutputExpression
	if parentNode != "" {
		mountArgs = []output.OutputExpression{ref(parentNode), null()}
	} else {
		mountArgs = []output.OutputExpression{ref(r.ids.Target), ref(r.ids.Anchor)}
	}

	switch {
	case len(w.branches) == 1:
		w.renderSimple(block, name, mountArgs, mountNode, anchor, parentNodes)
	case w.hasOutros():
		w.renderWithOutros(block, name, mountArgs, mountNode, anchor, parentNodes)
	default:
		w.renderCompound(block, name, mountArgs, mountNode, anchor, parentNodes)
	}
	w.addAnchor(block, anchorID, parentNode, parentNodes)

	if w.hasIntros() || w.hasOutros() {
		block.Intro.AddExpr(call(r.helper(TransitionIn), ref(name)))
	}
	if w.hasOutros() {
		block.Outro.AddExpr(call(r.helper(TransitionOut), ref(name)))
	}
}

// lifecycle adds the create, claim and mount calls guarded by the block
// existing.
func (w *ifBlockWrapper) lifecycle(block *Block, name string, mountArgs []output.OutputExpression, parentNodes string) {
	guard := func(s output.OutputStatement) output.OutputStatement {
		if w.hasElse() {
			return s
		}
		return when(ref(name), s)
	}
	block.Create.Add(guard(stmt(method(ref(name), "c"))))
	if parentNodes != "" {
		block.Claim.Add(guard(stmt(method(ref(name), "l", ref(parentNodes)))))
	}
	block.Mount.Add(guard(stmt(method(ref(name), "m", mountArgs...))))
}

// renderSimple handles a lone {#if} without else arms.
func (w *ifBlockWrapper) renderSimple(block *Block, name string, mountArgs []output.OutputExpression, mountNode, anchor output.OutputExpression, parentNodes string) {
	r := w.r
	b := w.branches[0]
	cond := r.snippet(block, b.condition)
	block.AddVariable(name, and(cond, call(ref(b.block.Name), ref(r.ids.Ctx))))
	w.lifecycle(block, name, mountArgs, parentNodes)

	var existing []output.OutputStatement
	if b.block.HasUpdateMethod() {
		existing = append(existing, stmt(method(ref(name), "p", ref(r.ids.Ctx), ref(r.ids.Dirty))))
	}
	transitions := b.block.HasIntroMethod || b.block.HasOutroMethod
	if transitions && b.deps.Cardinality() > 0 {
		existing = append(existing, when(r.dirtySet(b.deps), stmt(call(r.helper(TransitionIn), ref(name), lit(1)))))
	}
	create := statements(
		stmt(assign(ref(name), call(ref(b.block.Name), ref(r.ids.Ctx)))),
		stmt(method(ref(name), "c")))
	if transitions {
		create = append(create, stmt(call(r.helper(TransitionIn), ref(name), lit(1))))
	}
	create = append(create, stmt(method(ref(name), "m", mountNode, anchor)))

	var present output.OutputStatement
	if len(existing) > 0 {
		present = whenElse(ref(name), existing, create)
	} else {
		present = when(not(ref(name)), create...)
	}

	var remove []output.OutputStatement
	if b.block.HasOutroMethod {
		remove = statements(
			stmt(call(r.helper(GroupOutros))),
			stmt(call(r.helper(TransitionOut), ref(name), lit(1), lit(1),
				arrow(nil, statements(stmt(assign(ref(name), null())))))),
			stmt(call(r.helper(CheckOutros))))
	} else {
		remove = statements(
			stmt(method(ref(name), "d", lit(1))),
			stmt(assign(ref(name), null())))
	}
	block.Update.Add(whenElse(cond, statements(present), statements(when(ref(name), remove...))))
	block.Destroy.Add(when(ref(name), stmt(method(ref(name), "d", ref(r.ids.Detaching)))))
}

// selector emits select_block_type. Arms return their creator function or
// their index, depending on result.
func (w *ifBlockWrapper) selector(block *Block, result func(i int, b *ifBranch) output.OutputExpression, fallback output.OutputExpression) string {
	r := w.r
	name := r.names.UniqueName("select_block_type", false)
	var body []output.OutputStatement
	for i, b := range w.branches {
		if b.condition == nil {
			body = append(body, ret(result(i, b)))
			continue
		}
		cond := r.snippet(block, b.condition)
		if hasCall(b.condition) {
			b.cached = block.UniqueName("show_if")
			block.AddVariable(b.cached, null())
			if b.deps.Cardinality() > 0 {
				body = append(body, when(r.dirtySet(b.deps), stmt(assign(ref(b.cached), null()))))
			}
			body = append(body, when(binary(output.BinaryOperatorEquals, ref(b.cached), null()),
				stmt(assign(ref(b.cached), not(not(cond))))))
			cond = ref(b.cached)
		}
		body = append(body, when(cond, ret(result(i, b))))
	}
	if !w.hasElse() && fallback != nil {
		body = append(body, ret(fallback))
	}
	block.Init.Add(declareFunction(name, params(r.ids.Ctx, r.ids.Dirty), body...))
	return name
}

// renderCompound switches between arms by creator function.
func (w *ifBlockWrapper) renderCompound(block *Block, name string, mountArgs []output.OutputExpression, mountNode, anchor output.OutputExpression, parentNodes string) {
	r := w.r
	selector := w.selector(block, func(_ int, b *ifBranch) output.OutputExpression {
		return ref(b.block.Name)
	}, nil)
	current := block.UniqueName("current_block_type")
	block.AddVariable(current, call(ref(selector), ref(r.ids.Ctx), r.initialDirty()))

	create := func() output.OutputExpression {
		if w.hasElse() {
			return call(ref(current), ref(r.ids.Ctx))
		}
		return and(ref(current), call(ref(current), ref(r.ids.Ctx)))
	}
	block.AddVariable(name, create())
	w.lifecycle(block, name, mountArgs, parentNodes)

	changed := identical(ref(current), assign(ref(current), call(ref(selector), ref(r.ids.Ctx), ref(r.ids.Dirty))))
	var same []output.OutputStatement
	if w.branches[0].block.HasUpdateMethod() {
		same = statements(stmt(method(ref(name), "p", ref(r.ids.Ctx), ref(r.ids.Dirty))))
	}

	var swap []output.OutputStatement
	swap = append(swap, w.guard(name, stmt(method(ref(name), "d", lit(1))))...)
	swap = append(swap, stmt(assign(ref(name), create())))
	swap = append(swap, w.guard(name, stmt(method(ref(name), "c")), stmt(method(ref(name), "m", mountNode, anchor)))...)

	if len(same) > 0 {
		block.Update.Add(whenElse(and(changed, ref(name)), same, swap))
	} else {
		block.Update.Add(when(not(changed), swap...))
	}
	block.Destroy.Add(w.guard(name, stmt(method(ref(name), "d", ref(r.ids.Detaching))))...)
}

// guard wraps body in `if (name)` unless the chain always renders an arm.
func (w *ifBlockWrapper) guard(name string, body ...output.OutputStatement) []output.OutputStatement {
	if w.hasElse() {
		return body
	}
	return statements(when(ref(name), body...))
}

// renderWithOutros keeps the block of every arm in a table so that an arm
// being outroed can be brought back without recreating it.
func (w *ifBlockWrapper) renderWithOutros(block *Block, name string, mountArgs []output.OutputExpression, mountNode, anchor output.OutputExpression, parentNodes string) {
	r := w.r
	creators := block.UniqueName("if_block_creators")
	blocks := block.UniqueName("if_blocks")
	entries := make([]output.OutputExpression, len(w.branches))
	for i, b := range w.branches {
		entries[i] = ref(b.block.Name)
	}
	block.AddVariable(creators, array(entries...))
	block.AddVariable(blocks, array())

	selector := w.selector(block, func(i int, _ *ifBranch) output.OutputExpression {
		return lit(i)
	}, lit(-1))
	current := block.UniqueName("current_block_type_index")
	block.AddVariable(current, nil)

	at := index(ref(blocks), ref(current))
	instantiate := assign(ref(name), assign(at, call(index(ref(creators), ref(current)), ref(r.ids.Ctx))))
	present := output.NewUnaryOperatorExpr(output.UnaryOperatorBitwiseNot, ref(current), nil)
	if w.hasElse() {
		block.Init.Add(
			stmt(assign(ref(current), call(ref(selector), ref(r.ids.Ctx), r.initialDirty()))),
			stmt(instantiate))
	} else {
		block.Init.Add(
			stmt(assign(ref(current), call(ref(selector), ref(r.ids.Ctx), r.initialDirty()))),
			when(present, stmt(instantiate)))
	}
	block.AddVariable(name, nil)
	w.lifecycle(block, name, mountArgs, parentNodes)

	previous := block.UniqueName("previous_block_index")
	var same []output.OutputStatement
	if w.branches[0].block.HasUpdateMethod() {
		p := stmt(method(at, "p", ref(r.ids.Ctx), ref(r.ids.Dirty)))
		if w.hasElse() {
			same = statements(p)
		} else {
			same = statements(when(present, p))
		}
	}

	outro := statements(
		stmt(call(r.helper(GroupOutros))),
		stmt(call(r.helper(TransitionOut), index(ref(blocks), ref(previous)), lit(1), lit(1),
			arrow(nil, statements(stmt(assign(index(ref(blocks), ref(previous)), null())))))),
		stmt(call(r.helper(CheckOutros))))

	var reuse []output.OutputStatement
	if w.branches[0].block.HasUpdateMethod() {
		reuse = statements(stmt(method(ref(name), "p", ref(r.ids.Ctx), ref(r.ids.Dirty))))
	}
	activate := statements(
		stmt(assign(ref(name), at)),
		whenElse(not(ref(name)),
			statements(stmt(instantiate), stmt(method(ref(name), "c"))),
			reuse),
		stmt(call(r.helper(TransitionIn), ref(name), lit(1))),
		stmt(method(ref(name), "m", mountNode, anchor)))

	var swap []output.OutputStatement
	if w.hasElse() {
		swap = append(outro, activate...)
	} else {
		swap = statements(
			when(ref(name), outro...),
			whenElse(present, activate, statements(stmt(assign(ref(name), null())))))
	}

	block.Update.Add(
		let(previous, ref(current)),
		stmt(assign(ref(current), call(ref(selector), ref(r.ids.Ctx), ref(r.ids.Dirty)))))
	block.Update.Add(whenElse(identical(ref(current), ref(previous)), same, swap))

	destroy := stmt(method(at, "d", ref(r.ids.Detaching)))
	if w.hasElse() {
		block.Destroy.Add(destroy)
	} else {
		block.Destroy.Add(when(present, destroy))
	}
}
