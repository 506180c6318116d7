package pool

import (
	"fmt"

	"sveltec-go/packages/compiler/src/core"
	"sveltec-go/packages/compiler/src/output"
	"sveltec-go/packages/compiler/src/util"
)

// reservedWords can never be produced as a generated name.
var reservedWords = []string{
	"arguments", "await", "break", "case", "catch", "class", "const", "continue",
	"debugger", "default", "delete", "do", "else", "enum", "eval", "export",
	"extends", "false", "finally", "for", "function", "if", "implements",
	"import", "in", "instanceof", "interface", "let", "new", "null", "package",
	"private", "protected", "public", "return", "static", "super", "switch",
	"this", "throw", "true", "try", "typeof", "var", "void", "while", "with",
	"yield", "undefined", "NaN", "Infinity",
}

// NamePool hands out identifiers that are unique within a generated module.
// A child pool shares the claims of its parent and adds its own, so names
// claimed in one block never collide with component-level names but sibling
// blocks may reuse the same local names.
type NamePool struct {
	parent       *NamePool
	claimedNames map[string]int
	statements   []output.OutputStatement
	hoisted      map[string]output.OutputExpression
}

// NewNamePool creates a root pool with the reserved words and the given
// names already claimed.
func NewNamePool(taken ...string) *NamePool {
	pool := &NamePool{
		claimedNames: make(map[string]int),
		hoisted:      make(map[string]output.OutputExpression),
	}
	for _, name := range reservedWords {
		pool.claimedNames[name] = 1
	}
	for _, name := range taken {
		pool.Reserve(name)
	}
	return pool
}

// Child creates a pool whose names are unique against this pool and all of
// its ancestors.
func (p *NamePool) Child() *NamePool {
	return &NamePool{
		parent:       p,
		claimedNames: make(map[string]int),
		hoisted:      make(map[string]output.OutputExpression),
	}
}

// Reserve marks name as taken without producing it.
func (p *NamePool) Reserve(name string) {
	if p.claimedNames[name] == 0 {
		p.claimedNames[name] = 1
	}
}

// IsClaimed reports whether name is taken in this pool or an ancestor.
func (p *NamePool) IsClaimed(name string) bool {
	for pool := p; pool != nil; pool = pool.parent {
		if pool.claimedNames[name] > 0 {
			return true
		}
	}
	return false
}

// UniqueName produces a unique name in the context of this pool. The name is
// sanitized into a valid identifier first; collisions are resolved with a
// `_n` suffix.
func (p *NamePool) UniqueName(name string, alwaysIncludeSuffix bool) string {
	base := util.SanitizeIdentifier(name)
	if base == "" || !core.IsValidIdentifier(base) {
		base = "_" + base
	}
	count := p.claimedNames[base]
	result := base
	if count > 0 || alwaysIncludeSuffix || p.parentClaimed(base) {
		if count == 0 {
			count = 1
		}
		for {
			result = fmt.Sprintf("%s_%d", base, count)
			count++
			if !p.IsClaimed(result) {
				break
			}
		}
	}
	p.claimedNames[base] = max(count, 1)
	p.claimedNames[result] = max(p.claimedNames[result], 1)
	return result
}

func (p *NamePool) parentClaimed(name string) bool {
	return p.parent != nil && p.parent.IsClaimed(name)
}

// Hoist declares a module-level constant for expr and returns a reference to
// it. Equivalent expressions requested under the same prefix share one
// declaration.
func (p *NamePool) Hoist(prefix string, expr output.OutputExpression) *output.ReadVarExpr {
	for name, existing := range p.hoisted {
		if existing.IsEquivalent(expr) && hasPrefix(name, prefix) {
			return output.NewReadVarExpr(name, nil)
		}
	}
	name := p.UniqueName(prefix, false)
	p.hoisted[name] = expr
	p.AddStatement(output.NewDeclareVarStmt(name, expr, output.StmtModifierFinal, nil))
	return output.NewReadVarExpr(name, nil)
}

func hasPrefix(name, prefix string) bool {
	return len(name) >= len(prefix) && name[:len(prefix)] == prefix
}

// GetStatements returns all statements in the pool
func (p *NamePool) GetStatements() []output.OutputStatement {
	return p.statements
}

// AddStatement adds a statement to the pool
func (p *NamePool) AddStatement(stmt output.OutputStatement) {
	p.statements = append(p.statements, stmt)
}
