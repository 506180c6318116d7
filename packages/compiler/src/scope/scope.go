// Package scope resolves the names read by template expressions.
//
// A Scope is a persistent chain: the root holds the component's top-level
// names and every each/await construct extends it with the names it
// introduces. Extending never mutates an ancestor, so a scope can be shared
// by every block created under the same construct.
package scope

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	ep "sveltec-go/packages/compiler/src/expression_parser"
	"sveltec-go/packages/compiler/src/template"
)

// BindingKind classifies what a name refers to.
type BindingKind int

const (
	// BindingReactive is a top-level name whose changes trigger updates.
	BindingReactive BindingKind = iota
	// BindingStatic is a top-level instance value that never changes, such
	// as a const or a function declaration. It lives in the component
	// context but contributes no dependencies.
	BindingStatic
	// BindingModule is an import. It is referenced directly at module level.
	BindingModule
	// BindingContextual is a value introduced by an each or await construct.
	BindingContextual
	// BindingIndex is the index variable of an each block.
	BindingIndex
)

func (k BindingKind) String() string {
	switch k {
	case BindingReactive:
		return "reactive"
	case BindingStatic:
		return "static"
	case BindingModule:
		return "module"
	case BindingContextual:
		return "contextual"
	case BindingIndex:
		return "index"
	}
	return "unknown"
}

// Binding describes one name in scope.
type Binding struct {
	Name string
	Kind BindingKind
	// Owner identifies the construct that declared a contextual or index
	// binding.
	Owner string
	// Dependencies are the reactive names the binding's source expression
	// reads. A contextual binding changes whenever one of them does.
	Dependencies mapset.Set[string]
	// Path reaches a destructured name from the iterated value.
	Path []ep.PathSegment
	// Source is the expression the binding was taken from: the list of an
	// each block or the promise of an await block.
	Source ep.Expression
	// Var is set for top-level bindings.
	Var *template.Var
}

// IsContextual reports whether the binding was introduced by a construct.
func (b *Binding) IsContextual() bool {
	return b.Kind == BindingContextual || b.Kind == BindingIndex
}

// Scope is one link of the chain.
type Scope struct {
	parent *Scope
	owner  string
	names  map[string]*Binding
	root   *root
}

// root is shared by every scope of one component.
type root struct {
	// contexts maps every contextual name declared anywhere in the template
	// to the number of constructs declaring it.
	contexts map[string]int
}

// NewRoot creates the component-level scope from the table of top-level
// names. contexts lists every contextual name the template declares; it
// lets Resolve tell a misplaced context from an undeclared global.
func NewRoot(vars []*template.Var, contexts []string) *Scope {
	s := &Scope{
		names: make(map[string]*Binding),
		root:  &root{contexts: make(map[string]int)},
	}
	for _, v := range vars {
		kind := BindingStatic
		switch {
		case v.Kind == template.VarImport:
			kind = BindingModule
		case v.IsReactive():
			kind = BindingReactive
		}
		s.names[v.Name] = &Binding{Name: v.Name, Kind: kind, Var: v, Dependencies: mapset.NewSet[string]()}
	}
	for _, name := range contexts {
		s.root.contexts[name]++
	}
	return s
}

// Extend returns a child scope for the construct identified by owner.
func (s *Scope) Extend(owner string) *Scope {
	return &Scope{
		parent: s,
		owner:  owner,
		names:  make(map[string]*Binding),
		root:   s.root,
	}
}

// Owner returns the construct that created this scope, or "" at the root.
func (s *Scope) Owner() string {
	return s.owner
}

// Parent returns the enclosing scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Declare adds a binding to this scope. It shadows any binding of the same
// name in an ancestor.
func (s *Scope) Declare(b *Binding) {
	if b.Dependencies == nil {
		b.Dependencies = mapset.NewSet[string]()
	}
	if b.Owner == "" {
		b.Owner = s.owner
	}
	s.names[b.Name] = b
}

// Lookup finds the nearest binding for name.
func (s *Scope) Lookup(name string) *Binding {
	if b, ok := s.names[name]; ok {
		return b
	}
	if s.parent != nil {
		return s.parent.Lookup(name)
	}
	return nil
}

// Names returns the names declared directly in this scope, sorted.
func (s *Scope) Names() []string {
	out := make([]string, 0, len(s.names))
	for name := range s.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsTemplateContext reports whether some construct in the template declares
// name.
func (s *Scope) IsTemplateContext(name string) bool {
	return s.root.contexts[name] > 0
}

// Contexts collects every name each and await blocks and slot lets declare
// in the fragment.
func Contexts(nodes []template.Node) []string {
	var out []string
	template.Walk(nodes, func(n template.Node) bool {
		switch n := n.(type) {
		case *template.EachBlock:
			for _, b := range n.Context.Names() {
				out = append(out, b.Name)
			}
			if n.Index != "" {
				out = append(out, n.Index)
			}
		case *template.AwaitBlock:
			for _, p := range []*ep.Pattern{n.Value, n.Error} {
				if p == nil {
					continue
				}
				for _, b := range p.Names() {
					out = append(out, b.Name)
				}
			}
		case *template.InlineComponent:
			for _, attr := range n.Attributes {
				if d, ok := attr.(*template.Directive); ok && d.Type == "let" {
					out = append(out, LetAlias(d))
				}
			}
		}
		return true
	})
	return out
}

// LetAlias is the name a `let:` directive declares: the name itself, or the
// identifier in `let:name={alias}`.
func LetAlias(d *template.Directive) string {
	if id, ok := d.Expression.(*ep.Identifier); ok {
		return id.Name
	}
	return d.Name
}
