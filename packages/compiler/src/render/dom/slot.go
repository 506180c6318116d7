package dom

import (
	mapset "github.com/deckarep/golang-set/v2"

	"sveltec-go/packages/compiler/src/output"
	"sveltec-go/packages/compiler/src/template"
	"sveltec-go/packages/compiler/src/util"
)

// slotWrapper renders `<slot>`: the content the parent passed, or the
// fallback children when it passed none.
type slotWrapper struct {
	wrapperBase
	node     *template.Slot
	slotName string
	props    []*componentProp
	deps     mapset.Set[string]

	fallback *Block
	fragment *fragment
}

func newSlot(r *Renderer, block *Block, parent Wrapper, node *template.Slot, strip bool, next Wrapper) (*slotWrapper, error) {
	w := &slotWrapper{
		wrapperBase: wrapperBase{r: r, block: block, parent: parent},
		node:        node,
		slotName:    node.SlotName,
		deps:        mapset.NewSet[string](),
	}
	if w.slotName == "" {
		w.slotName = "default"
	}
	r.slots()

	for _, attr := range node.Attributes {
		a, ok := attr.(*template.Attribute)
		if !ok {
			return nil, util.Errorf(attr.Span(), util.ErrInvalidAttribute, "<slot> can only receive attributes, not directives")
		}
		if a.Name == "name" {
			if !a.IsStatic() {
				return nil, util.Errorf(a.Span(), util.ErrInvalidAttribute, "slot name must be a static value")
			}
			continue
		}
		p, err := newComponentProp(r, block, a)
		if err != nil {
			return nil, err
		}
		w.props = append(w.props, p)
		w.deps = w.deps.Union(p.deps)
	}
	block.AddOutro(false)

	if isEmptyFragment(node.Children) {
		return w, nil
	}
	w.fallback = block.Child(BlockOptions{
		Name:    "create_fallback_block",
		Type:    BlockFallback,
		Comment: r.comment(node),
	})
	var err error
	if w.fragment, err = newFragment(r, w.fallback, w, node.Children, strip, next); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *slotWrapper) IsDOMNode() bool { return false }

// renderPropFunctions emits the functions that pass slot props to the
// parent's slot content and report which of them changed.
func (w *slotWrapper) renderPropFunctions(block *Block, base string) (context, changes string) {
	r := w.r
	context = r.names.UniqueName("get_"+base+"_slot_context", false)
	changes = r.names.UniqueName("get_"+base+"_slot_changes", false)

	values := make([]*output.LiteralMapEntry, 0, len(w.props))
	dirty := make([]*output.LiteralMapEntry, 0, len(w.props))
	for _, p := range w.props {
		values = append(values, entry(p.name, p.value(r, block)))
		if p.deps.Cardinality() == 0 {
			dirty = append(dirty, entry(p.name, lit(0)))
		} else {
			dirty = append(dirty, entry(p.name, r.dirtySet(p.deps)))
		}
	}
	r.preamble = append(r.preamble,
		constant(changes, arrow(params(r.ids.Dirty), object(dirty...))),
		constant(context, arrow(params(r.ids.Ctx), object(values...))))
	return context, changes
}

func (w *slotWrapper) Render(block *Block, parentNode, parentNodes string) {
	r := w.r
	if w.fallback != nil {
		nodes := ""
		if r.options.Hydratable {
			nodes = r.ids.Nodes
		}
		w.fragment.Render(w.fallback, "", nodes)
	}

	base := util.SanitizeIdentifier(w.slotName)
	definition := block.UniqueName(base + "_slot_template")
	slot := block.UniqueName(base + "_slot")
	scope := r.reference("$$scope")

	var context, changes output.OutputExpression = null(), null()
	if len(w.props) > 0 {
		c, ch := w.renderPropFunctions(block, base)
		context, changes = ref(c), ref(ch)
	}

	block.Init.Add(
		constant(definition, prop(r.reference(r.slots()), w.slotName)),
		constant(slot, call(r.helper(CreateSlot), ref(definition), ref(r.ids.Ctx), scope, context)))
	if len(w.props) > 0 {
		block.MaintainContext = true
	}

	target := slot
	if w.fallback != nil {
		target = block.UniqueName(base + "_slot_or_fallback")
		block.Init.Add(constant(target, or(ref(slot), call(ref(w.fallback.Name), ref(r.ids.Ctx)))))
	}

	block.Create.Add(when(ref(target), stmt(method(ref(target), "c"))))
	if parentNodes != "" {
		block.Claim.Add(when(ref(target), stmt(method(ref(target), "l", ref(parentNodes)))))
	}
	if parentNode != "" {
		block.Mount.Add(when(ref(target), stmt(method(ref(target), "m", ref(parentNode), null()))))
	} else {
		block.Mount.Add(when(ref(target), stmt(method(ref(target), "m", ref(r.ids.Target), ref(r.ids.Anchor)))))
	}

	current := ref(block.current())
	deps := mapset.NewSet[string]("$$scope").Union(w.deps)
	update := when(and(prop(ref(slot), "p"), or(not(current), r.dirtySet(deps))),
		stmt(call(r.helper(UpdateSlotBase), ref(slot), ref(definition), ref(r.ids.Ctx), scope,
			output.NewConditionalExpr(not(current),
				call(r.helper(GetAllDirtyFromScope), scope),
				call(r.helper(GetSlotChanges), ref(definition), scope, ref(r.ids.Dirty), changes), nil),
			context)))

	var otherwise []output.OutputStatement
	if w.fallback != nil && w.fallback.HasUpdateMethod() {
		fallbackDeps := mapset.NewSet[string]()
		w.fallback.Dependencies.Each(func(d string) bool {
			fallbackDeps.Add(d)
			return false
		})
		var changed output.OutputExpression = not(current)
		if fallbackDeps.Cardinality() > 0 {
			changed = or(changed, r.dirtySet(fallbackDeps))
		}
		otherwise = statements(when(and(and(ref(target), prop(ref(target), "p")), changed),
			stmt(method(ref(target), "p", ref(r.ids.Ctx),
				output.NewConditionalExpr(not(current), r.initialDirty(), ref(r.ids.Dirty), nil)))))
	}
	if len(otherwise) > 0 {
		block.Update.Add(whenElse(ref(slot), statements(update), otherwise))
	} else {
		block.Update.Add(when(ref(slot), update))
	}
	block.ForceUpdateMethod()

	block.Intro.AddExpr(call(r.helper(TransitionIn), ref(target), ref(r.ids.Local)))
	block.Outro.AddExpr(call(r.helper(TransitionOut), ref(target), ref(r.ids.Local)))
	block.Destroy.Add(when(ref(target), stmt(method(ref(target), "d", ref(r.ids.Detaching)))))
}
