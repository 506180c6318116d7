package dom

import (
	"strconv"

	mapset "github.com/deckarep/golang-set/v2"

	"sveltec-go/packages/compiler/src/output"
	"sveltec-go/packages/compiler/src/pool"
	"sveltec-go/packages/compiler/src/scope"
	"sveltec-go/packages/compiler/src/util"
)

// BlockType says which construct produced a block.
type BlockType string

const (
	BlockComponent BlockType = "component"
	BlockEach      BlockType = "each"
	BlockElse      BlockType = "else"
	BlockIf        BlockType = "if"
	BlockPending   BlockType = "pending"
	BlockThen      BlockType = "then"
	BlockCatch     BlockType = "catch"
	BlockSlot      BlockType = "slot"
	BlockFallback  BlockType = "fallback"
)

// BlockOptions configures a child block.
type BlockOptions struct {
	// Name is the requested function name. It is made unique at module
	// level.
	Name    string
	Type    BlockType
	Comment string
	// Keyed blocks take the item key as their first parameter.
	Keyed bool
	// Scope is the name scope expressions of the block resolve against.
	// Empty inherits the parent's.
	Scope *scope.Scope
}

type variable struct {
	name string
	init output.OutputExpression
}

// Block is one generated fragment factory: a function from the component
// context to an object with create, claim, mount, update, intro, outro and
// destroy methods.
type Block struct {
	renderer *Renderer
	Parent   *Block
	Name     string
	Type     BlockType
	Comment  string
	Keyed    bool
	Scope    *scope.Scope

	// Dependencies are the reactive names read anywhere inside the block,
	// including its descendants.
	Dependencies mapset.Set[string]

	// Declarations run before the block's variables are initialized.
	Declarations *Builder
	Init         *Builder
	Create       *Builder
	Claim        *Builder
	Hydrate      *Builder
	Mount        *Builder
	Measure      *Builder
	Fix          *Builder
	Animate      *Builder
	Intro        *Builder
	Update       *Builder
	Outro        *Builder
	Destroy      *Builder

	HasIntroMethod  bool
	HasOutroMethod  bool
	HasIntros       bool
	HasOutros       bool
	HasAnimation    bool
	MaintainContext bool
	Outros          int
	hasUpdate       bool

	// First names the node keyed each blocks use to find where a block
	// starts in the DOM.
	First string

	names     *pool.NamePool
	variables []variable
	varIndex  map[string]int
	events    []output.OutputExpression
	sealed    bool
	locals    map[string]string
	wrappers  []Wrapper
}

func newBlock(r *Renderer, parent *Block, name string, opts BlockOptions) *Block {
	b := &Block{
		renderer:     r,
		Parent:       parent,
		Name:         name,
		Type:         opts.Type,
		Comment:      opts.Comment,
		Keyed:        opts.Keyed,
		Scope:        opts.Scope,
		Dependencies: mapset.NewThreadUnsafeSet[string](),
		names:        r.names.Child(),
		varIndex:     make(map[string]int),
		locals:       make(map[string]string),
	}
	if b.Scope == nil && parent != nil {
		b.Scope = parent.Scope
	}
	for _, p := range []**Builder{
		&b.Declarations, &b.Init, &b.Create, &b.Claim, &b.Hydrate, &b.Mount, &b.Measure, &b.Fix,
		&b.Animate, &b.Intro, &b.Update, &b.Outro, &b.Destroy,
	} {
		*p = newBuilder(b)
	}
	return b
}

// Child creates a block nested under b. Blocks are registered with the
// renderer in creation order.
func (b *Block) Child(opts BlockOptions) *Block {
	child := newBlock(b.renderer, b, b.renderer.names.UniqueName(opts.Name, false), opts)
	b.renderer.blocks = append(b.renderer.blocks, child)
	return child
}

// UniqueName claims a local name inside the block function.
func (b *Block) UniqueName(name string) string {
	return b.names.UniqueName(name, false)
}

// register records a wrapper whose variable lives in this block. Wrappers
// register before their children and siblings register last to first.
func (b *Block) register(w Wrapper) {
	b.wrappers = append(b.wrappers, w)
}

// assignNames makes wrapper variables unique within the block. Names shared
// by several wrappers are numbered in document order: t0, t1.
func (b *Block) assignNames() {
	counts := make(map[string]int)
	for _, w := range b.wrappers {
		if name := w.base().name; name != "" {
			counts[name]++
		}
	}
	seen := make(map[string]int)
	for i := len(b.wrappers) - 1; i >= 0; i-- {
		wb := b.wrappers[i].base()
		if wb.name == "" {
			continue
		}
		name := wb.name
		if counts[name] > 1 {
			name += strconv.Itoa(seen[wb.name])
			seen[wb.name]++
		}
		wb.name = b.UniqueName(name)
	}
}

// local returns a block-local name that is claimed once and reused.
func (b *Block) local(name string) string {
	if id, ok := b.locals[name]; ok {
		return id
	}
	id := b.names.UniqueName(name, name == "key")
	b.locals[name] = id
	return id
}

// AddDependencies records reactive names read inside b. They propagate to
// every ancestor because an ancestor must run its update for the change to
// reach b.
func (b *Block) AddDependencies(deps mapset.Set[string]) {
	for block := b; block != nil; block = block.Parent {
		deps.Each(func(dep string) bool {
			block.Dependencies.Add(dep)
			return false
		})
	}
}

// ForceUpdateMethod gives the block a p method even when nothing inside it
// depends on reactive names. Sibling branches of an if block share one
// shape.
func (b *Block) ForceUpdateMethod() {
	b.hasUpdate = true
}

// HasUpdateMethod reports whether the block needs a p method.
func (b *Block) HasUpdateMethod() bool {
	return b.hasUpdate || b.MaintainContext || b.Dependencies.Cardinality() > 0
}

// AddVariable declares a `let` in the block function. Declaring the same
// name twice with different initializers is a bug in the generator.
func (b *Block) AddVariable(name string, init output.OutputExpression) {
	if b.sealed {
		util.Bugf("variable %s added to block %s after it was rendered", name, b.Name)
	}
	if i, ok := b.varIndex[name]; ok {
		if !output.NullSafeIsEquivalent(b.variables[i].init, init) {
			util.Bugf("variable %s declared twice in block %s", name, b.Name)
		}
		return
	}
	b.varIndex[name] = len(b.variables)
	b.variables = append(b.variables, variable{name: name, init: init})
}

// AddElement declares a DOM node variable, creates and claims it and mounts
// it into parent or at the block's target. Root-level nodes are detached on
// destroy.
func (b *Block) AddElement(id string, render, claim output.OutputExpression, parent string, noDetach bool) {
	r := b.renderer
	b.AddVariable(id, nil)
	b.Create.AddExpr(assign(ref(id), render))
	if r.options.Hydratable {
		if claim == nil {
			claim = render
		}
		b.Claim.AddExpr(assign(ref(id), claim))
	}
	if parent != "" {
		b.Mount.AddExpr(call(r.helper(r.appendHelper()), ref(parent), ref(id)))
		return
	}
	b.Mount.AddExpr(call(r.helper(r.insertHelper()), ref(r.ids.Target), ref(id), ref(r.ids.Anchor)))
	if !noDetach {
		b.Destroy.Add(when(ref(r.ids.Detaching), stmt(call(r.helper(Detach), ref(id)))))
	}
}

// AddIntro marks the block as having intro transitions. Unless local, the
// parent must run them too.
func (b *Block) AddIntro(local bool) {
	b.HasIntros = true
	b.HasIntroMethod = true
	if !local && b.Parent != nil {
		b.Parent.AddIntro(false)
	}
}

// AddOutro marks the block as having outro transitions.
func (b *Block) AddOutro(local bool) {
	b.HasOutros = true
	b.HasOutroMethod = true
	b.Outros++
	if !local && b.Parent != nil {
		b.Parent.AddOutro(false)
	}
}

// AddAnimation marks the block as animated. Only blocks of keyed each
// blocks can be.
func (b *Block) AddAnimation() {
	b.HasAnimation = true
}

// AddEvent registers a listener disposer created on mount.
func (b *Block) AddEvent(listener output.OutputExpression) {
	if b.sealed {
		util.Bugf("listener added to block %s after it was rendered", b.Name)
	}
	b.events = append(b.events, listener)
}

// current is the flag that tells whether the block is fully introduced.
func (b *Block) current() string {
	return b.local("current")
}

// Render produces the block's factory function. The block is sealed: later
// additions are bugs.
func (b *Block) Render() output.OutputStatement {
	r := b.renderer
	b.sealed = true

	vars := append([]variable(nil), b.variables...)
	intro := b.Intro.Statements()
	outro := b.Outro.Statements()
	mount := b.Mount.Statements()
	destroy := b.Destroy.Statements()
	hydrate := b.Hydrate.Statements()

	if b.HasOutros {
		current := b.current()
		vars = append(vars, variable{name: current})
		if len(intro) > 0 {
			intro = append(intro, stmt(assign(ref(current), lit(true))))
			mount = append(mount, stmt(assign(ref(current), lit(true))))
		}
		if len(outro) > 0 {
			outro = append(outro, stmt(assign(ref(current), lit(false))))
		}
	}

	if len(b.events) > 0 {
		mounted := b.local("mounted")
		dispose := b.local("dispose")
		vars = append(vars, variable{name: mounted}, variable{name: dispose})
		var listeners output.OutputExpression = b.events[0]
		release := stmt(call(ref(dispose)))
		if len(b.events) > 1 {
			listeners = array(b.events...)
			release = stmt(call(r.helper(RunAll), ref(dispose)))
		}
		mount = append(mount, when(not(ref(mounted)),
			stmt(assign(ref(dispose), listeners)),
			stmt(assign(ref(mounted), lit(true)))))
		destroy = append(destroy, stmt(assign(ref(mounted), lit(false))), release)
	}

	if b.First != "" {
		hydrate = append(hydrate, stmt(assign(prop(ref("this"), "first"), ref(b.First))))
	}

	noop := r.helper(Noop)
	var entries []*output.LiteralMapEntry
	var fnParams []*output.FnParam
	if b.Keyed {
		key := b.local("key")
		fnParams = append(fnParams, output.NewFnParam(key))
		entries = append(entries, entry("key", ref(key)), entry("first", null()))
	}
	fnParams = append(fnParams, output.NewFnParam(r.ids.Ctx))

	phase := func(name string, params []*output.FnParam, body []output.OutputStatement) {
		if len(body) == 0 {
			entries = append(entries, entry(name, noop))
			return
		}
		entries = append(entries, output.NewMethodEntry(name, function(params, body...)))
	}

	callH := stmt(method(ref("this"), "h"))
	create := b.Create.Statements()
	if len(hydrate) > 0 {
		if r.options.Hydratable {
			create = append(create, callH)
		} else {
			create = append(create, hydrate...)
		}
	}
	phase("c", nil, create)

	if r.options.Hydratable || !b.Claim.IsEmpty() {
		claim := b.Claim.Statements()
		if r.options.Hydratable && len(hydrate) > 0 {
			claim = append(claim, callH)
		}
		phase("l", params(r.ids.Nodes), claim)
	}
	if r.options.Hydratable && len(hydrate) > 0 {
		phase("h", nil, hydrate)
	}

	phase("m", params(r.ids.Target, r.ids.Anchor), mount)

	if b.HasUpdateMethod() {
		update := b.Update.Statements()
		ctxParam := output.NewFnParam(r.ids.Ctx)
		if b.MaintainContext {
			ctxParam = output.NewFnParam(r.ids.NewCtx)
			update = append([]output.OutputStatement{stmt(assign(ref(r.ids.Ctx), ref(r.ids.NewCtx)))}, update...)
		}
		dirtyParam := output.NewFnParam(r.ids.Dirty)
		if b.Parent == nil && !r.ContextOverflow() {
			dirtyParam.Pattern = "[" + r.ids.Dirty + "]"
		}
		if len(update) == 0 {
			entries = append(entries, entry("p", noop))
		} else {
			entries = append(entries, output.NewMethodEntry("p", function([]*output.FnParam{ctxParam, dirtyParam}, update...)))
		}
	}

	if b.HasAnimation {
		phase("r", nil, b.Measure.Statements())
		phase("f", nil, b.Fix.Statements())
		phase("a", nil, b.Animate.Statements())
	}

	if b.HasIntroMethod || b.HasOutroMethod {
		if len(intro) > 0 && b.HasOutros {
			intro = append([]output.OutputStatement{when(ref(b.current()), ret(nil))}, intro...)
		}
		phase("i", params(r.ids.Local), intro)
		phase("o", params(r.ids.Local), outro)
	}

	phase("d", params(r.ids.Detaching), destroy)

	body := b.Declarations.Statements()
	for _, v := range vars {
		body = append(body, let(v.name, v.init))
	}
	body = append(body, b.Init.Statements()...)
	body = append(body, ret(object(entries...)))

	fn := output.NewDeclareFunctionStmt(b.Name, fnParams, body, output.StmtModifierNone, nil)
	if b.Comment != "" {
		fn.AddLeadingComment(b.Comment, false)
	}
	return fn
}
