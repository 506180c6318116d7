// Package dom generates the client-side JavaScript module for a component.
//
// Generation runs in two passes. Construction walks the template, builds a
// tree of wrappers, opens a Block for every construct that renders
// conditionally or repeatedly, resolves every expression and registers the
// names the component context needs. Rendering then fills in the lifecycle
// phases of each block. Context indices are fixed between the two passes,
// so dirty bitmasks can be computed while rendering.
package dom

import (
	"fmt"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"sveltec-go/packages/compiler/src/config"
	"sveltec-go/packages/compiler/src/css"
	ep "sveltec-go/packages/compiler/src/expression_parser"
	"sveltec-go/packages/compiler/src/output"
	"sveltec-go/packages/compiler/src/pool"
	"sveltec-go/packages/compiler/src/scope"
	"sveltec-go/packages/compiler/src/template"
	"sveltec-go/packages/compiler/src/util"
)

// bitsPerWord is how many context slots one dirty word tracks. JavaScript
// bit operations are signed 32 bit, so the sign bit is left unused.
const bitsPerWord = 31

// MemberKind says why a name occupies a context slot.
type MemberKind int

const (
	// MemberInstance is a top-level script name.
	MemberInstance MemberKind = iota
	// MemberScope is the slot scope passed down by a parent component.
	MemberScope
	// MemberSlots is the slot templates passed down by a parent component.
	MemberSlots
	// MemberHandler is a function the instance creates for the template:
	// an event handler or a binding callback.
	MemberHandler
	// MemberContextual is a value each and await blocks write into child
	// contexts.
	MemberContextual
)

func (k MemberKind) rank(reactive bool) int {
	switch k {
	case MemberInstance:
		if reactive {
			return 0
		}
		return 2
	case MemberScope:
		return 1
	case MemberSlots, MemberHandler:
		return 3
	}
	return 4
}

// ContextMember is one slot of the component context array.
type ContextMember struct {
	Name     string
	Index    int
	Kind     MemberKind
	Reactive bool
	Var      *template.Var

	seq int
}

// DirtyBit describes where a context member lives in the dirty bitmask.
type DirtyBit struct {
	Name  string
	Index int
	Word  int
	Mask  int
}

// Evaluation records one expression resolution: which block evaluates it
// and which reactive names it reads.
type Evaluation struct {
	Block        *Block
	Expression   ep.Expression
	Dependencies mapset.Set[string]
}

// ids are the fixed parameter names shared by every block function.
type ids struct {
	Ctx       string
	Dirty     string
	Target    string
	Anchor    string
	Detaching string
	Local     string
	Nodes     string
	NewCtx    string
}

// Renderer holds the state of one component compile.
type Renderer struct {
	component   *template.Component
	options     *config.CompilerConfig
	diagnostics *util.Diagnostics
	resolver    *scope.Resolver
	root        *scope.Scope
	stylesheet  *css.Stylesheet
	names       *pool.NamePool
	ids         ids

	aliases map[string]string
	used    mapset.Set[string]

	// Block is the root block, rendered as create_fragment.
	Block    *Block
	blocks   []*Block
	fragment *fragment

	// preamble holds module functions emitted before the blocks, hoisted
	// the module constants emitted after them. instance is appended to the
	// instance function after the script.
	preamble []output.OutputStatement
	hoisted  []output.OutputStatement
	instance []output.OutputStatement
	eaches   map[string]*eachAlias

	members     []*ContextMember
	memberIndex map[string]*ContextMember
	finalized   bool
	slotsName   string

	evaluations []Evaluation
}

// NewRenderer builds the wrapper tree for a parsed component. Structural
// errors in the template are returned here; rendering itself cannot fail.
func NewRenderer(c *template.Component, options *config.CompilerConfig, diagnostics *util.Diagnostics, stylesheet *css.Stylesheet) (r *Renderer, err error) {
	defer util.RecoverBug(&err)
	if diagnostics == nil {
		diagnostics = util.NewDiagnostics()
	}
	r = &Renderer{
		component:   c,
		options:     options,
		diagnostics: diagnostics,
		resolver:    scope.NewResolver(c.Source, diagnostics),
		root:        scope.NewRoot(c.Vars, scope.Contexts(c.Fragment)),
		stylesheet:  stylesheet,
		aliases:     make(map[string]string),
		used:        mapset.NewThreadUnsafeSet[string](),
		memberIndex: make(map[string]*ContextMember),
		eaches:      make(map[string]*eachAlias),
	}

	taken := make([]string, 0, len(c.Vars))
	for _, v := range c.Vars {
		taken = append(taken, v.Name)
	}
	taken = append(taken, scope.Contexts(c.Fragment)...)
	r.names = pool.NewNamePool(taken...)
	for name := range knownHelpers {
		if r.names.IsClaimed(name) {
			r.aliases[name] = r.names.UniqueName(name, false)
		} else {
			r.names.Reserve(name)
			r.aliases[name] = name
		}
	}
	r.ids = ids{
		Ctx:       r.names.UniqueName("ctx", false),
		Dirty:     r.names.UniqueName("dirty", false),
		Target:    r.names.UniqueName("target", false),
		Anchor:    r.names.UniqueName("anchor", false),
		Detaching: r.names.UniqueName("detaching", false),
		Local:     r.names.UniqueName("local", false),
		Nodes:     r.names.UniqueName("nodes", false),
		NewCtx:    r.names.UniqueName("new_ctx", false),
	}

	for _, v := range c.Vars {
		if v.IsReactive() {
			r.addMember(v.Name, MemberInstance, true, v)
		}
	}
	if needsScope(c.Fragment) {
		r.addMember("$$scope", MemberScope, true, nil)
	}
	r.registerStatics()

	r.Block = newBlock(r, nil, r.names.UniqueName("create_fragment", false), BlockOptions{
		Type:  BlockComponent,
		Scope: r.root,
	})
	r.blocks = append(r.blocks, r.Block)

	r.fragment, err = newFragment(r, r.Block, nil, c.Fragment, true, nil)
	if err != nil {
		return nil, err
	}
	for _, b := range r.blocks {
		b.assignNames()
	}
	r.finalize()
	return r, nil
}

// needsScope reports whether the component renders slots or passes slot
// content to a child component.
func needsScope(nodes []template.Node) bool {
	found := false
	template.Walk(nodes, func(n template.Node) bool {
		switch n := n.(type) {
		case *template.Slot:
			found = true
		case *template.InlineComponent:
			if len(n.Children) > 0 {
				found = true
			}
		}
		return !found
	})
	return found
}

// registerStatics gives a context slot to every non-reactive instance name
// the template reads.
func (r *Renderer) registerStatics() {
	visit := func(name string) {
		if b := r.root.Lookup(name); b != nil && b.Kind == scope.BindingStatic {
			r.addMember(name, MemberInstance, false, b.Var)
		}
	}
	template.ForEachExpression(r.component.Fragment, func(expr ep.Expression) {
		ep.Inspect(expr, func(e ep.Expression) bool {
			if id, ok := e.(*ep.Identifier); ok {
				visit(id.Name)
			}
			return true
		})
	})
	template.Walk(r.component.Fragment, func(n template.Node) bool {
		var attrs []template.AttributeNode
		switch n := n.(type) {
		case *template.InlineComponent:
			visit(strings.Split(n.Name, ".")[0])
			attrs = n.Attributes
		case *template.Element:
			attrs = n.Attributes
		}
		for _, attr := range attrs {
			switch a := attr.(type) {
			case *template.Transition:
				visit(strings.Split(a.Name, ".")[0])
			case *template.Directive:
				visit(strings.Split(a.Name, ".")[0])
			case *template.Class:
				if a.Expression == nil {
					visit(a.Name)
				}
			}
		}
		return true
	})
}

func (r *Renderer) addMember(name string, kind MemberKind, reactive bool, v *template.Var) *ContextMember {
	if m, ok := r.memberIndex[name]; ok {
		return m
	}
	if r.finalized {
		util.Bugf("context member %s registered after indices were assigned", name)
	}
	m := &ContextMember{Name: name, Index: -1, Kind: kind, Reactive: reactive, Var: v, seq: len(r.members)}
	r.members = append(r.members, m)
	r.memberIndex[name] = m
	return m
}

// contextual registers a name each or await blocks write into child
// contexts. Constructs declaring the same name share one slot.
func (r *Renderer) contextual(name string) *ContextMember {
	return r.addMember(name, MemberContextual, false, nil)
}

// handler registers an instance function the template calls through the
// context.
func (r *Renderer) handler(name string) string {
	id := r.names.UniqueName(name, false)
	r.addMember(id, MemberHandler, false, nil)
	return id
}

// slots registers the slot templates of the component.
func (r *Renderer) slots() string {
	if r.slotsName == "" {
		r.slotsName = r.names.UniqueName("slots", false)
		r.addMember(r.slotsName, MemberSlots, false, nil)
	}
	return r.slotsName
}

// finalize fixes context indices: reactive names first so that the common
// case fits in one dirty word, contextual values last because they only
// exist in child contexts.
func (r *Renderer) finalize() {
	sort.SliceStable(r.members, func(i, j int) bool {
		a, b := r.members[i], r.members[j]
		ra, rb := a.Kind.rank(a.Reactive), b.Kind.rank(b.Reactive)
		if ra != rb {
			return ra < rb
		}
		return a.seq < b.seq
	})
	for i, m := range r.members {
		m.Index = i
	}
	r.finalized = true
}

// Members returns the context layout in index order.
func (r *Renderer) Members() []*ContextMember {
	return append([]*ContextMember(nil), r.members...)
}

// ContextOverflow reports whether dirty state needs more than one word.
func (r *Renderer) ContextOverflow() bool {
	return len(r.members) > bitsPerWord
}

// DirtyTable returns the bit assigned to every context member.
func (r *Renderer) DirtyTable() []DirtyBit {
	out := make([]DirtyBit, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, DirtyBit{
			Name:  m.Name,
			Index: m.Index,
			Word:  m.Index / bitsPerWord,
			Mask:  1 << (m.Index % bitsPerWord),
		})
	}
	return out
}

// Blocks returns every block in creation order. The root block is first.
func (r *Renderer) Blocks() []*Block {
	return append([]*Block(nil), r.blocks...)
}

// Evaluations returns every expression resolution made while building.
func (r *Renderer) Evaluations() []Evaluation {
	return append([]Evaluation(nil), r.evaluations...)
}

func (r *Renderer) member(name string) *ContextMember {
	m, ok := r.memberIndex[name]
	if !ok {
		util.Bugf("%s has no context slot", name)
	}
	if !r.finalized {
		util.Bugf("context slot of %s read before indices were assigned", name)
	}
	return m
}

// reference reads a context member from the block context.
func (r *Renderer) reference(name string) output.OutputExpression {
	return r.referenceIn(r.ids.Ctx, name)
}

func (r *Renderer) referenceIn(ctx, name string) output.OutputExpression {
	m := r.member(name)
	return output.NewCommentedExpr(name, index(ref(ctx), lit(m.Index)))
}

// helper references a runtime helper and records the import.
func (r *Renderer) helper(name string) *output.ReadVarExpr {
	if !knownHelpers[name] {
		util.Bugf("unknown runtime helper %s", name)
	}
	r.used.Add(name)
	return ref(r.aliases[name])
}

func (r *Renderer) appendHelper() string {
	if r.options.Hydratable {
		return AppendHydration
	}
	return Append
}

func (r *Renderer) insertHelper() string {
	if r.options.Hydratable {
		return InsertHydration
	}
	return Insert
}

// dirty builds the test for whether any of names changed. Names without a
// context slot are ignored.
func (r *Renderer) dirty(names []string) output.OutputExpression {
	var ms []*ContextMember
	for _, name := range names {
		if m, ok := r.memberIndex[name]; ok {
			ms = append(ms, r.member(m.Name))
		}
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].Index < ms[j].Index })

	if !r.ContextOverflow() {
		mask := 0
		labels := make([]string, 0, len(ms))
		for _, m := range ms {
			mask |= 1 << m.Index
			labels = append(labels, m.Name)
		}
		return binary(output.BinaryOperatorBitwiseAnd, ref(r.ids.Dirty),
			output.NewCommentedExpr(strings.Join(labels, ", "), lit(mask)))
	}

	var words []int
	masks := map[int]int{}
	labels := map[int][]string{}
	for _, m := range ms {
		w := m.Index / bitsPerWord
		if _, ok := masks[w]; !ok {
			words = append(words, w)
		}
		masks[w] |= 1 << (m.Index % bitsPerWord)
		labels[w] = append(labels[w], m.Name)
	}
	if len(words) == 0 {
		return binary(output.BinaryOperatorBitwiseAnd, index(ref(r.ids.Dirty), lit(0)),
			output.NewCommentedExpr("", lit(0)))
	}
	var out output.OutputExpression
	for _, w := range words {
		term := binary(output.BinaryOperatorBitwiseAnd, index(ref(r.ids.Dirty), lit(w)),
			output.NewCommentedExpr(strings.Join(labels[w], ", "), lit(masks[w])))
		if out == nil {
			out = term
		} else {
			out = binary(output.BinaryOperatorBitwiseOr, out, term)
		}
	}
	return out
}

// dirtySet is dirty over a dependency set in context order.
func (r *Renderer) dirtySet(deps mapset.Set[string]) output.OutputExpression {
	return r.dirty(deps.ToSlice())
}

// initialDirty is the dirty value that marks every slot as changed.
func (r *Renderer) initialDirty() output.OutputExpression {
	if !r.ContextOverflow() {
		return lit(-1)
	}
	n := (len(r.members) + bitsPerWord - 1) / bitsPerWord
	entries := make([]output.OutputExpression, n)
	for i := range entries {
		entries[i] = lit(-1)
	}
	return array(entries...)
}

// resolveIn resolves expr against the scope of block and records its
// dependencies on the block and its ancestors.
func (r *Renderer) resolveIn(block *Block, expr ep.Expression) (*scope.Resolution, error) {
	res, err := r.resolver.Resolve(expr, block.Scope)
	if err != nil {
		return nil, err
	}
	r.evaluations = append(r.evaluations, Evaluation{Block: block, Expression: expr, Dependencies: res.Dependencies})
	block.AddDependencies(res.Dependencies)
	return res, nil
}

// span converts an expression location to a source span.
func (r *Renderer) span(expr ep.Expression) *util.ParseSourceSpan {
	loc := expr.Span()
	return r.component.Source.Span(loc.Start, loc.End)
}

// spanned is anything with a template source span.
type spanned interface {
	Span() *util.ParseSourceSpan
}

// comment describes a block for the comment above its function:
// `(line:col) {#each items as item}` or `(line:col) <Button>`.
func (r *Renderer) comment(node spanned) string {
	span := node.Span()
	if span == nil {
		return ""
	}
	header := r.component.Source.Content
	text := ""
	if span.Start.Offset < span.End.Offset && span.End.Offset <= len(header) {
		text = header[span.Start.Offset:span.End.Offset]
	}
	end := byte('}')
	if strings.HasPrefix(text, "<") {
		end = '>'
	}
	if i := strings.IndexByte(text, end); i >= 0 {
		text = text[:i+1]
	}
	text = strings.Join(strings.Fields(text), " ")
	return fmt.Sprintf("(%d:%d) %s", span.Start.Line+1, span.Start.Col, text)
}
