package compiler

import (
	"fmt"
	"os"

	mapset "github.com/deckarep/golang-set/v2"

	"sveltec-go/packages/compiler/src/config"
	"sveltec-go/packages/compiler/src/css"
	"sveltec-go/packages/compiler/src/output"
	"sveltec-go/packages/compiler/src/render/dom"
	"sveltec-go/packages/compiler/src/template"
	"sveltec-go/packages/compiler/src/util"
)

// Stats summarizes a generated module.
type Stats struct {
	// Blocks is the number of block factories, the root fragment included.
	Blocks int
	// Dependencies is the number of distinct names some block updates on.
	Dependencies int
	// ContextSlots is the length of the component context array.
	ContextSlots int
}

// Result is the output of one compile.
type Result struct {
	JS string
	// CSS is the scoped stylesheet when styles are emitted externally.
	CSS      string
	Warnings []*util.ParseError
	Stats    Stats
	// DirtyTable maps every context slot to its bit in the dirty mask.
	DirtyTable []dom.DirtyBit
}

// CompileFile reads and compiles one component file. The file name is
// used for the component name unless cfg sets one.
func CompileFile(path string, cfg *config.CompilerConfig) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read component: %w", err)
	}
	if cfg == nil {
		cfg = config.NewCompilerConfig()
	}
	copied := *cfg
	copied.Filename = path
	return CompileSource(string(data), &copied)
}

// CompileSource parses component source and compiles it.
func CompileSource(source string, cfg *config.CompilerConfig) (*Result, error) {
	if cfg == nil {
		cfg = config.NewCompilerConfig()
	}
	c, err := template.Parse(source, cfg.Filename)
	if err != nil {
		return nil, err
	}
	return Compile(c, cfg)
}

// Compile generates the module for a parsed component. The first
// structural error aborts the compile and no output is produced; warnings
// are returned with the result.
func Compile(c *template.Component, cfg *config.CompilerConfig) (*Result, error) {
	if cfg == nil {
		cfg = config.NewCompilerConfig()
	}
	if cfg.Name != "" {
		c.Name = cfg.Name
	}

	diagnostics := util.NewDiagnostics()
	sheet := css.Process(c)
	r, err := dom.NewRenderer(c, cfg, diagnostics, sheet)
	if err != nil {
		return nil, err
	}
	stmts, err := r.Render()
	if err != nil {
		return nil, err
	}
	if errs := diagnostics.Errors(); len(errs) > 0 {
		return nil, errs[0]
	}

	result := &Result{
		JS:         output.NewJsEmitter().EmitStatements(stmts),
		Warnings:   diagnostics.Warnings(),
		Stats:      stats(r),
		DirtyTable: r.DirtyTable(),
	}
	if sheet != nil && cfg.CSS == config.CSSExternal {
		result.CSS = sheet.Text
	}
	return result, nil
}

func stats(r *dom.Renderer) Stats {
	deps := mapset.NewThreadUnsafeSet[string]()
	for _, b := range r.Blocks() {
		b.Dependencies.Each(func(name string) bool {
			deps.Add(name)
			return false
		})
	}
	return Stats{
		Blocks:       len(r.Blocks()),
		Dependencies: deps.Cardinality(),
		ContextSlots: len(r.Members()),
	}
}
