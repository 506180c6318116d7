package dom

import (
	mapset "github.com/deckarep/golang-set/v2"

	"sveltec-go/packages/compiler/src/css"
	"sveltec-go/packages/compiler/src/output"
	"sveltec-go/packages/compiler/src/template"
	"sveltec-go/packages/compiler/src/util"
)

// booleanAttribute is a DOM property mirrored by an attribute. An empty
// appliesTo means every element.
type booleanAttribute struct {
	property  string
	appliesTo []string
}

var attributeLookup = map[string]booleanAttribute{
	"allowfullscreen":     {"allowFullscreen", []string{"iframe"}},
	"allowpaymentrequest": {"allowPaymentRequest", []string{"iframe"}},
	"async":               {"async", []string{"script"}},
	"autofocus":           {"autofocus", []string{"button", "input", "keygen", "select", "textarea"}},
	"autoplay":            {"autoplay", []string{"audio", "video"}},
	"checked":             {"checked", []string{"input"}},
	"controls":            {"controls", []string{"audio", "video"}},
	"default":             {"default", []string{"track"}},
	"defer":               {"defer", []string{"script"}},
	"disabled":            {"disabled", []string{"button", "fieldset", "input", "keygen", "optgroup", "option", "select", "textarea"}},
	"formnovalidate":      {"formNoValidate", []string{"button", "input"}},
	"hidden":              {"hidden", nil},
	"indeterminate":       {"indeterminate", []string{"input"}},
	"ismap":               {"isMap", []string{"img"}},
	"loop":                {"loop", []string{"audio", "bgsound", "video"}},
	"multiple":            {"multiple", []string{"input", "select"}},
	"muted":               {"muted", []string{"audio", "video"}},
	"nomodule":            {"noModule", []string{"script"}},
	"novalidate":          {"noValidate", []string{"form"}},
	"open":                {"open", []string{"details", "dialog"}},
	"playsinline":         {"playsInline", []string{"video"}},
	"readonly":            {"readOnly", []string{"input", "textarea"}},
	"required":            {"required", []string{"input", "select", "textarea"}},
	"reversed":            {"reversed", []string{"ol"}},
	"selected":            {"selected", []string{"option"}},
	"value":               {"value", []string{"button", "option", "input", "li", "meter", "progress", "param", "select", "textarea"}},
}

// propertyFor returns the DOM property an attribute is set through, or ""
// when it is set with attr().
func propertyFor(el *template.Element, name string) string {
	if el.Namespace != "" {
		return ""
	}
	if name == "value" && el.Name == "option" {
		return "__value"
	}
	meta, ok := attributeLookup[name]
	if !ok {
		return ""
	}
	if len(meta.appliesTo) == 0 {
		return meta.property
	}
	for _, tag := range meta.appliesTo {
		if tag == el.Name {
			return meta.property
		}
	}
	return ""
}

// scopedAttributes returns the attributes of el with the scoping class of
// sheet added when el needs it.
func scopedAttributes(el *template.Element, sheet *css.Stylesheet) []template.AttributeNode {
	if !el.NeedsScoping || sheet == nil || sheet.Class == "" {
		return el.Attributes
	}
	out := make([]template.AttributeNode, 0, len(el.Attributes)+1)
	found := false
	for _, attr := range el.Attributes {
		a, ok := attr.(*template.Attribute)
		if !ok || a.Name != "class" || found {
			out = append(out, attr)
			continue
		}
		found = true
		scoped := &template.Attribute{NodeBase: a.NodeBase, Name: a.Name}
		switch {
		case a.IsTrue:
			scoped.Chunks = []*template.AttributeChunk{{Text: sheet.Class}}
		case a.IsStatic():
			scoped.Chunks = []*template.AttributeChunk{{Text: a.StaticValue() + " " + sheet.Class}}
		default:
			scoped.Chunks = append(append(scoped.Chunks, a.Chunks...), &template.AttributeChunk{Text: " " + sheet.Class})
		}
		out = append(out, scoped)
	}
	if !found {
		out = append(out, &template.Attribute{Name: "class", Chunks: []*template.AttributeChunk{{Text: sheet.Class}}})
	}
	return out
}

// attributeWrapper sets one attribute of an element.
type attributeWrapper struct {
	el       *elementWrapper
	node     *template.Attribute
	property string
	deps     mapset.Set[string]
	cache    bool
}

func newAttribute(el *elementWrapper, block *Block, node *template.Attribute) (*attributeWrapper, error) {
	a := &attributeWrapper{
		el:       el,
		node:     node,
		property: propertyFor(el.node, node.Name),
		deps:     mapset.NewSet[string](),
	}
	contextual := false
	for _, chunk := range node.Chunks {
		if !chunk.IsExpression() {
			continue
		}
		res, err := el.r.resolveIn(block, chunk.Expression)
		if err != nil {
			return nil, err
		}
		a.deps = a.deps.Union(res.Dependencies)
		contextual = contextual || res.UsedContexts.Cardinality() > 0
	}
	if !node.IsStatic() {
		a.cache = len(node.Chunks) != 1 || !isPlainIdentifier(node.Chunks[0].Expression) || contextual
	}
	return a, nil
}

func (a *attributeWrapper) isSelectValue() bool {
	return a.node.Name == "value" && a.el.node.Name == "select"
}

// isInputValue is true for text-like inputs, where writing an unchanged
// value would move the caret.
func (a *attributeWrapper) isInputValue() bool {
	if a.node.Name != "value" || a.el.node.Name != "input" {
		return false
	}
	switch a.el.staticAttribute("type") {
	case "", "text", "email", "password":
		return true
	}
	return false
}

// value builds the attribute value.
func (a *attributeWrapper) value(block *Block) output.OutputExpression {
	r := a.el.r
	if a.node.IsTrue {
		if a.property != "" {
			return lit(true)
		}
		return lit("")
	}
	return concatChunks(r, block, a.node.Chunks)
}

// concatChunks evaluates an attribute value. Mixed text and expressions
// concatenate as strings; a lone expression keeps its type.
func concatChunks(r *Renderer, block *Block, chunks []*template.AttributeChunk) output.OutputExpression {
	if len(chunks) == 0 {
		return lit("")
	}
	part := func(c *template.AttributeChunk) output.OutputExpression {
		if c.IsExpression() {
			return r.snippet(block, c.Expression)
		}
		return lit(c.Text)
	}
	if len(chunks) == 1 {
		return part(chunks[0])
	}
	var out output.OutputExpression
	if chunks[0].IsExpression() {
		out = lit("")
	}
	for _, c := range chunks {
		if out == nil {
			out = part(c)
		} else {
			out = plus(out, part(c))
		}
	}
	return out
}

func (a *attributeWrapper) render(block *Block) {
	r := a.el.r
	el := ref(a.el.name)
	value := a.value(block)

	init, current := value, value
	last := ""
	if a.cache {
		last = block.UniqueName(a.el.name + "_" + util.SanitizeIdentifier(a.node.Name) + "_value")
		block.AddVariable(last, nil)
		init = assign(ref(last), value)
		current = ref(last)
	}

	var set func(v output.OutputExpression) []output.OutputStatement
	switch {
	case a.isSelectValue():
		set = func(v output.OutputExpression) []output.OutputStatement {
			return statements(stmt(call(r.helper(SelectOption), el, v)))
		}
		if a.cache {
			block.Hydrate.AddExpr(init)
		}
		block.Mount.Add(set(current)...)
	case a.property != "":
		set = func(v output.OutputExpression) []output.OutputStatement {
			out := statements(stmt(assign(prop(el, a.property), v)))
			if a.property == "__value" {
				out = append(out, stmt(assign(prop(el, "value"), prop(el, "__value"))))
			}
			return out
		}
		block.Hydrate.Add(set(init)...)
	default:
		set = func(v output.OutputExpression) []output.OutputStatement {
			return statements(stmt(call(r.helper(Attr), el, lit(a.node.Name), v)))
		}
		block.Hydrate.Add(set(init)...)
	}

	if a.deps.Cardinality() == 0 {
		return
	}
	cond := r.dirtySet(a.deps)
	if a.cache {
		cond = and(cond, notIdentical(ref(last), assign(ref(last), value)))
	}
	if a.isInputValue() {
		cond = and(cond, notIdentical(prop(el, a.property), current))
	}
	if block.HasOutros {
		cond = or(not(ref(block.current())), cond)
	}
	block.Update.Add(when(cond, set(current)...))
}

// claimKey is the entry of the attribute in the claim_element filter.
// Attributes set through properties are not in the server markup.
func (a *attributeWrapper) claimKey() *output.LiteralMapEntry {
	if a.property != "" {
		return nil
	}
	return output.NewLiteralMapEntry(a.node.Name, lit(true), false)
}
