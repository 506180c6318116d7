package dom

import (
	"sveltec-go/packages/compiler/src/output"
	"sveltec-go/packages/compiler/src/util"
)

// Builder accumulates the statements of one lifecycle phase of a block.
// Statements are appended in order and never removed.
type Builder struct {
	block *Block
	stmts []output.OutputStatement
}

func newBuilder(block *Block) *Builder {
	return &Builder{block: block}
}

// Add appends statements. Adding to a block that has already been rendered
// is a bug in the generator.
func (b *Builder) Add(stmts ...output.OutputStatement) {
	if b.block != nil && b.block.sealed {
		util.Bugf("statement added to block %s after it was rendered", b.block.Name)
	}
	for _, s := range stmts {
		if s != nil {
			b.stmts = append(b.stmts, s)
		}
	}
}

// AddExpr appends expression statements.
func (b *Builder) AddExpr(exprs ...output.OutputExpression) {
	for _, e := range exprs {
		if e != nil {
			b.Add(stmt(e))
		}
	}
}

// Len returns the number of statements.
func (b *Builder) Len() int {
	return len(b.stmts)
}

// IsEmpty reports whether nothing was added.
func (b *Builder) IsEmpty() bool {
	return len(b.stmts) == 0
}

// Statements returns a copy of the statements.
func (b *Builder) Statements() []output.OutputStatement {
	return append([]output.OutputStatement(nil), b.stmts...)
}
