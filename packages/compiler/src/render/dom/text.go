package dom

import (
	mapset "github.com/deckarep/golang-set/v2"

	ep "sveltec-go/packages/compiler/src/expression_parser"
	"sveltec-go/packages/compiler/src/output"
	"sveltec-go/packages/compiler/src/template"
)

// textWrapper renders static text.
type textWrapper struct {
	wrapperBase
	node *template.Text
	data string
	skip bool
}

func newText(r *Renderer, block *Block, parent Wrapper, node *template.Text, data string) *textWrapper {
	w := &textWrapper{
		wrapperBase: wrapperBase{r: r, block: block, parent: parent, name: "t"},
		node:        node,
		data:        data,
	}
	w.skip = w.shouldSkip()
	if !w.skip {
		block.register(w)
	}
	return w
}

// shouldSkip drops whitespace that cannot render: inside svg, inside
// elements whose content model has no text, and as the only child of a
// component.
func (w *textWrapper) shouldSkip() bool {
	if !isWhitespace(w.data) {
		return false
	}
	for p := w.parent; p != nil; p = p.base().parent {
		switch p := p.(type) {
		case *elementWrapper:
			return p.node.Namespace != "" || elementsWithoutText[p.node.Name]
		case *inlineComponentWrapper:
			return len(p.node.Children) == 1 && p.node.Children[0] == template.Node(w.node)
		}
	}
	return false
}

func isWhitespace(s string) bool {
	for _, r := range s {
		if !isSpace(r) {
			return false
		}
	}
	return true
}

func (w *textWrapper) IsDOMNode() bool { return true }

// useSpace renders whitespace-only text with the shared space() helper.
func (w *textWrapper) useSpace() bool {
	if w.r.options.PreserveWhitespace || !isWhitespace(w.data) {
		return false
	}
	return !withinPre(w.parent)
}

func (w *textWrapper) Render(block *Block, parentNode, parentNodes string) {
	if w.skip {
		return
	}
	r := w.r
	var render, claim output.OutputExpression
	if w.useSpace() {
		render = call(r.helper(Space))
		if parentNodes != "" {
			claim = call(r.helper(ClaimSpace), ref(parentNodes))
		}
	} else {
		render = call(r.helper(Text), lit(w.data))
		if parentNodes != "" {
			claim = call(r.helper(ClaimText), ref(parentNodes), lit(w.data))
		}
	}
	block.AddElement(w.name, render, claim, parentNode, false)
}

// tag is the part shared by {expression} and {@html expression}.
type tag struct {
	wrapperBase
	expr  ep.Expression
	deps  mapset.Set[string]
	cache bool
}

func (t *tag) resolve(expr ep.Expression) error {
	res, err := t.r.resolveIn(t.block, expr)
	if err != nil {
		return err
	}
	t.expr = expr
	t.deps = res.Dependencies
	t.cache = !isPlainIdentifier(expr) || (res.UsedContexts.Cardinality() > 0 && res.Dependencies.Cardinality() > 0)
	return nil
}

// content returns the initial value of the tag and adds the update that
// passes changed values to apply. A cached value is compared with the
// previous one so that the DOM is only touched when the string changes.
func (t *tag) content(block *Block, apply func(value output.OutputExpression) output.OutputStatement) output.OutputExpression {
	r := t.r
	snippet := plus(r.snippet(block, t.expr), lit(""))
	var value output.OutputExpression = r.snippet(block, t.expr)
	cached := ""
	if t.cache {
		cached = block.UniqueName(t.name + "_value")
		block.AddVariable(cached, snippet)
		value = ref(cached)
	}
	if t.deps.Cardinality() > 0 {
		cond := r.dirtySet(t.deps)
		if block.HasOutros {
			cond = or(not(ref(block.current())), cond)
		}
		if t.cache {
			cond = and(cond, notIdentical(ref(cached), assign(ref(cached), snippet)))
		}
		block.Update.Add(when(cond, apply(value)))
	}
	return value
}

// mustacheWrapper renders {expression} as a text node.
type mustacheWrapper struct {
	tag
	node *template.MustacheTag
}

func newMustache(r *Renderer, block *Block, parent Wrapper, node *template.MustacheTag) (*mustacheWrapper, error) {
	w := &mustacheWrapper{
		tag:  tag{wrapperBase: wrapperBase{r: r, block: block, parent: parent, name: "t"}},
		node: node,
	}
	block.register(w)
	if err := w.resolve(node.Expression); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *mustacheWrapper) IsDOMNode() bool { return true }

func (w *mustacheWrapper) Render(block *Block, parentNode, parentNodes string) {
	r := w.r
	init := w.content(block, func(value output.OutputExpression) output.OutputStatement {
		return stmt(call(r.helper(SetData), ref(w.name), value))
	})
	var claim output.OutputExpression
	if parentNodes != "" {
		claim = call(r.helper(ClaimText), ref(parentNodes), init)
	}
	block.AddElement(w.name, call(r.helper(Text), init), claim, parentNode, false)
}

// rawMustacheWrapper renders {@html expression}. As the only child of an
// element it sets innerHTML; otherwise an HtmlTag manages the parsed nodes
// in front of an anchor.
type rawMustacheWrapper struct {
	tag
	node *template.RawMustacheTag
}

func newRawMustache(r *Renderer, block *Block, parent Wrapper, node *template.RawMustacheTag) (*rawMustacheWrapper, error) {
	w := &rawMustacheWrapper{
		tag:  tag{wrapperBase: wrapperBase{r: r, block: block, parent: parent, name: "raw"}},
		node: node,
	}
	block.register(w)
	if err := w.resolve(node.Expression); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *rawMustacheWrapper) IsDOMNode() bool { return false }

func (w *rawMustacheWrapper) Render(block *Block, parentNode, parentNodes string) {
	r := w.r
	if parentNode != "" && w.prev == nil && w.next == nil && !r.options.Hydratable {
		setHTML := func(value output.OutputExpression) output.OutputStatement {
			return stmt(assign(prop(ref(parentNode), "innerHTML"), value))
		}
		block.Mount.Add(setHTML(w.content(block, setHTML)))
		return
	}

	htmlTag := block.UniqueName("html_tag")
	anchor, anchorID := w.reserveAnchor(block, parentNode, "html_anchor")
	block.AddVariable(htmlTag, nil)
	init := w.content(block, func(value output.OutputExpression) output.OutputStatement {
		return stmt(method(ref(htmlTag), "p", value))
	})

	isSVG := lit(false)
	for p := w.parent; p != nil; p = p.base().parent {
		if el, ok := p.(*elementWrapper); ok {
			isSVG = lit(el.node.Namespace == "svg")
			break
		}
	}
	if r.options.Hydratable {
		block.Create.AddExpr(assign(ref(htmlTag), output.NewInstantiateExpr(r.helper(HtmlTagHydration), []output.OutputExpression{isSVG}, nil)))
		if parentNodes != "" {
			block.Claim.AddExpr(assign(ref(htmlTag), call(r.helper(ClaimHtmlTag), ref(parentNodes), isSVG)))
		}
	} else {
		block.Create.AddExpr(assign(ref(htmlTag), output.NewInstantiateExpr(r.helper(HtmlTag), []output.OutputExpression{isSVG}, nil)))
	}
	block.Hydrate.AddExpr(assign(prop(ref(htmlTag), "a"), anchor))

	if parentNode != "" {
		block.Mount.AddExpr(method(ref(htmlTag), "m", init, ref(parentNode), null()))
	} else {
		block.Mount.AddExpr(method(ref(htmlTag), "m", init, ref(r.ids.Target), ref(r.ids.Anchor)))
	}
	w.addAnchor(block, anchorID, parentNode, parentNodes)
	if parentNode == "" {
		block.Destroy.Add(when(ref(r.ids.Detaching), stmt(method(ref(htmlTag), "d"))))
	}
}
