package dom

import (
	mapset "github.com/deckarep/golang-set/v2"

	ep "sveltec-go/packages/compiler/src/expression_parser"
	"sveltec-go/packages/compiler/src/output"
	"sveltec-go/packages/compiler/src/scope"
	"sveltec-go/packages/compiler/src/template"
)

// awaitBranch is the pending, then or catch region of an await block.
type awaitBranch struct {
	node     *template.AwaitBranch
	block    *Block
	fragment *fragment
	// value is the context slot the settled value is written to. A
	// destructured value is unpacked from it by getContext.
	value      string
	contexts   []eachContext
	getContext string
}

// awaitBlockWrapper renders {#await}. The runtime switches between branch
// blocks through the info record and ignores results of stale promises.
type awaitBlockWrapper struct {
	wrapperBase
	node  *template.AwaitBlock
	owner string
	deps  mapset.Set[string]

	pending *awaitBranch
	then    *awaitBranch
	catch   *awaitBranch
}

func newAwaitBlock(r *Renderer, block *Block, parent Wrapper, node *template.AwaitBlock, strip bool, next Wrapper) (*awaitBlockWrapper, error) {
	w := &awaitBlockWrapper{
		wrapperBase: wrapperBase{r: r, block: block, parent: parent},
		node:        node,
		owner:       r.names.UniqueName("await_block", false),
	}
	res, err := r.resolveIn(block, node.Expression)
	if err != nil {
		return nil, err
	}
	w.deps = res.Dependencies

	if w.pending, err = w.branch(block, node.Pending, "create_pending_block", BlockPending, nil, strip, next); err != nil {
		return nil, err
	}
	if w.then, err = w.branch(block, node.Then, "create_then_block", BlockThen, node.Value, strip, next); err != nil {
		return nil, err
	}
	if w.catch, err = w.branch(block, node.Catch, "create_catch_block", BlockCatch, node.Error, strip, next); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *awaitBlockWrapper) branch(block *Block, node *template.AwaitBranch, name string, kind BlockType, value *ep.Pattern, strip bool, next Wrapper) (*awaitBranch, error) {
	r := w.r
	b := &awaitBranch{node: node}
	if !present(node) {
		// The runtime swaps branches by block, so an absent branch is an
		// empty block.
		b.block = block.Child(BlockOptions{Name: name, Type: kind})
		return b, nil
	}

	s := block.Scope
	if value != nil {
		s = block.Scope.Extend(w.owner)
		if err := collectContexts(value, nil, &b.contexts); err != nil {
			return nil, err
		}
		for _, c := range b.contexts {
			r.resolver.CheckShadowing(block.Scope, c.name, node.Span())
			s.Declare(&scope.Binding{Name: c.name, Kind: scope.BindingContextual, Dependencies: w.deps, Path: c.path, Source: w.node.Expression})
			r.contextual(c.name)
		}
		if value.Kind == ep.PatternIdentifier {
			b.value = value.Name
		} else {
			b.value = r.names.UniqueName(string(kind)+"_value", false)
			r.contextual(b.value)
		}
	}

	b.block = block.Child(BlockOptions{
		Name:    name,
		Type:    kind,
		Comment: r.comment(node),
		Scope:   s,
	})
	var err error
	b.fragment, err = newFragment(r, b.block, w, node.Children, strip, next)
	return b, err
}

func (w *awaitBlockWrapper) IsDOMNode() bool { return false }

func present(node *template.AwaitBranch) bool {
	return node != nil && !node.Skip
}

func (w *awaitBlockWrapper) branches() []*awaitBranch {
	return []*awaitBranch{w.pending, w.then, w.catch}
}

// renderContext emits the function that unpacks a destructured value into
// its names. The branch calls it before reading the names and after every
// context change.
func (w *awaitBlockWrapper) renderContext(b *awaitBranch) {
	r := w.r
	if b.value == "" || len(b.contexts) == 1 && b.contexts[0].name == b.value {
		return
	}
	b.getContext = r.names.UniqueName("get_"+string(b.block.Type)+"_context", false)
	source := r.reference(b.value)
	var body []output.OutputStatement
	for _, c := range b.contexts {
		var value output.OutputExpression = source
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
			value = output.NewConditionalExpr(identical(value, ref("undefined")), r.snippet(b.block, c.def), value, nil)
		}
		body = append(body, stmt(assign(r.reference(c.name), value)))
	}
	r.preamble = append(r.preamble, declareFunction(b.getContext, params(r.ids.Ctx), body...))
	b.block.Declarations.AddExpr(call(ref(b.getContext), ref(r.ids.Ctx)))
	b.block.Update.AddExpr(call(ref(b.getContext), ref(r.ids.Ctx)))
	b.block.MaintainContext = true
}

func (w *awaitBlockWrapper) Render(block *Block, parentNode, parentNodes string) {
	r := w.r
	nodes := ""
	if r.options.Hydratable {
		nodes = r.ids.Nodes
	}

	dynamic, intros, outros := false, false, false
	for _, b := range w.branches() {
		if b.block == nil {
			continue
		}
		w.renderContext(b)
		if b.fragment != nil {
			b.fragment.Render(b.block, "", nodes)
		}
		dynamic = dynamic || b.block.HasUpdateMethod()
		intros = intros || b.block.HasIntroMethod
		outros = outros || b.block.HasOutroMethod
	}
	if dynamic {
		for _, b := range w.branches() {
			if b.block != nil {
				b.block.ForceUpdateMethod()
			}
		}
	}

	anchor, anchorID := w.reserveAnchor(block, parentNode, "await_block_anchor")
	mountNode := updateMountNode(parentNode, anchor)
	info := block.UniqueName("info")
	promise := block.UniqueName("promise")
	block.AddVariable(promise, nil)
	block.MaintainContext = true

	creator := func(b *awaitBranch) output.OutputExpression {
		if b.block == nil {
			return null()
		}
		return ref(b.block.Name)
	}
	slot := func(b *awaitBranch) output.OutputExpression {
		if b.value == "" {
			return null()
		}
		return lit(r.member(b.value).Index)
	}
	entries := []*output.LiteralMapEntry{
		entry("ctx", ref(r.ids.Ctx)),
		entry("current", null()),
		entry("token", null()),
		entry("hasCatch", lit(present(w.node.Catch))),
		entry("pending", creator(w.pending)),
		entry("then", creator(w.then)),
		entry("catch", creator(w.catch)),
		entry("value", slot(w.then)),
		entry("error", slot(w.catch)),
	}
	if outros {
		entries = append(entries, entry("blocks", array(nil, nil, nil)))
	}
	block.AddVariable(info, object(entries...))
	block.Init.AddExpr(call(r.helper(HandlePromise), assign(ref(promise), r.snippet(block, w.node.Expression)), ref(info)))

	current := prop(ref(info), "block")
	block.Create.AddExpr(method(current, "c"))
	if parentNodes != "" {
		block.Claim.AddExpr(method(current, "l", ref(parentNodes)))
	}
	var initialMount, initialAnchor output.OutputExpression = ref(r.ids.Target), ref(r.ids.Anchor)
	if parentNode != "" {
		initialMount, initialAnchor = ref(parentNode), null()
	}
	block.Mount.Add(
		stmt(method(current, "m", initialMount, assign(prop(ref(info), "anchor"), initialAnchor))),
		stmt(assign(prop(ref(info), "mount"), arrow(nil, mountNode))),
		stmt(assign(prop(ref(info), "anchor"), anchor)))
	w.addAnchor(block, anchorID, parentNode, parentNodes)

	block.Update.Add(stmt(assign(prop(ref(info), "ctx"), ref(r.ids.Ctx))))
	var changed output.OutputExpression
	if w.deps.Cardinality() > 0 {
		changed = and(and(r.dirtySet(w.deps),
			notIdentical(ref(promise), assign(ref(promise), r.snippet(block, w.node.Expression)))),
			call(r.helper(HandlePromise), ref(promise), ref(info)))
	}
	branchUpdate := stmt(call(r.helper(UpdateAwaitBlockBranch), ref(info), ref(r.ids.Ctx), ref(r.ids.Dirty)))
	switch {
	case dynamic && changed != nil:
		block.Update.Add(whenElse(changed, nil, statements(branchUpdate)))
	case dynamic:
		block.Update.Add(branchUpdate)
	case changed != nil:
		block.Update.AddExpr(changed)
	}

	if intros || outros {
		block.Intro.AddExpr(call(r.helper(TransitionIn), current))
	}
	if outros {
		block.Outro.Add(loop("i", lit(3),
			constant("block", index(prop(ref(info), "blocks"), ref("i"))),
			stmt(call(r.helper(TransitionOut), ref("block")))))
	}

	block.Destroy.Add(
		stmt(method(current, "d", ref(r.ids.Detaching))),
		stmt(assign(prop(ref(info), "token"), null())),
		stmt(assign(ref(info), null())))
}
