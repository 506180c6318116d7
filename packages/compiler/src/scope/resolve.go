package scope

import (
	mapset "github.com/deckarep/golang-set/v2"

	ep "sveltec-go/packages/compiler/src/expression_parser"
	"sveltec-go/packages/compiler/src/util"
)

// Resolution is what an expression reads.
type Resolution struct {
	// Dependencies are the reactive names the expression depends on,
	// including the captured dependencies of every contextual binding it
	// reads.
	Dependencies mapset.Set[string]
	// UsedContexts are the contextual and index names the expression reads.
	UsedContexts mapset.Set[string]
	// Globals are free names that are not declared by the component.
	Globals mapset.Set[string]
}

func newResolution() *Resolution {
	return &Resolution{
		Dependencies: mapset.NewSet[string](),
		UsedContexts: mapset.NewSet[string](),
		Globals:      mapset.NewSet[string](),
	}
}

// Resolver classifies free identifiers against a scope chain. It reports
// each undeclared name once.
type Resolver struct {
	file        *util.ParseSourceFile
	diagnostics *util.Diagnostics
	warned      map[string]bool
}

// NewResolver creates a resolver reporting into diagnostics. Spans are built
// against file.
func NewResolver(file *util.ParseSourceFile, diagnostics *util.Diagnostics) *Resolver {
	return &Resolver{file: file, diagnostics: diagnostics, warned: make(map[string]bool)}
}

// Resolve walks expr and returns the reactive names it depends on and the
// contextual bindings it touches. Arrow function parameters shadow outer
// names. An identifier naming a context that exists elsewhere in the
// template but not in this chain is an error.
func (r *Resolver) Resolve(expr ep.Expression, s *Scope) (*Resolution, error) {
	res := newResolution()
	if err := r.walk(expr, s, nil, res); err != nil {
		return nil, err
	}
	return res, nil
}

// ResolveKey resolves the key expression of a keyed each block. The key may
// only read the contexts of that block.
func (r *Resolver) ResolveKey(key ep.Expression, s *Scope, owner string) (*Resolution, error) {
	res, err := r.Resolve(key, s)
	if err != nil {
		return nil, err
	}
	var bad *ep.Identifier
	ep.Inspect(key, func(e ep.Expression) bool {
		id, ok := e.(*ep.Identifier)
		if !ok || bad != nil {
			return bad == nil
		}
		if b := s.Lookup(id.Name); b != nil && b.IsContextual() && b.Owner != owner {
			bad = id
		}
		return true
	})
	if bad != nil {
		return nil, util.Errorf(r.span(bad), util.ErrInvalidKey,
			"The key of a keyed each block may only reference the block's own context, found '%s'", bad.Name)
	}
	return res, nil
}

// CheckShadowing warns when a contextual name hides a top-level name.
func (r *Resolver) CheckShadowing(s *Scope, name string, span *util.ParseSourceSpan) {
	if b := s.Lookup(name); b != nil && !b.IsContextual() && r.diagnostics != nil {
		r.diagnostics.Warn(span, util.WarnBindingShadowsHelper,
			"'%s' shadows the top-level %s name of the same name", name, b.Kind)
	}
}

func (r *Resolver) span(id *ep.Identifier) *util.ParseSourceSpan {
	return r.file.Span(id.Loc.Start, id.Loc.End)
}

func (r *Resolver) walk(expr ep.Expression, s *Scope, shadowed map[string]bool, res *Resolution) error {
	switch e := expr.(type) {
	case nil:
		return nil
	case *ep.Identifier:
		return r.identifier(e, s, shadowed, res)
	case *ep.ArrowFunction:
		inner := make(map[string]bool, len(shadowed)+len(e.Params))
		for name := range shadowed {
			inner[name] = true
		}
		for _, param := range e.Params {
			for _, d := range param.Defaults() {
				if err := r.walk(d, s, inner, res); err != nil {
					return err
				}
			}
			for _, b := range param.Names() {
				inner[b.Name] = true
			}
		}
		return r.walk(e.Body, s, inner, res)
	}
	for _, child := range ep.Children(expr) {
		if err := r.walk(child, s, shadowed, res); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) identifier(id *ep.Identifier, s *Scope, shadowed map[string]bool, res *Resolution) error {
	if shadowed[id.Name] {
		return nil
	}
	b := s.Lookup(id.Name)
	switch {
	case b == nil:
		if s.IsTemplateContext(id.Name) {
			return util.Errorf(r.span(id), util.ErrUndefinedContext, "'%s' is not defined in this scope", id.Name)
		}
		res.Globals.Add(id.Name)
		if !IsGlobal(id.Name) && !r.warned[id.Name] && r.diagnostics != nil {
			r.warned[id.Name] = true
			r.diagnostics.Warn(r.span(id), util.WarnMissingDeclaration, "'%s' is not defined", id.Name)
		}
	case b.IsContextual():
		res.UsedContexts.Add(id.Name)
		b.Dependencies.Each(func(dep string) bool {
			res.Dependencies.Add(dep)
			return false
		})
	case b.Kind == BindingReactive:
		res.Dependencies.Add(id.Name)
	}
	return nil
}
