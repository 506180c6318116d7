// Package compiler turns component files into imperative JavaScript
// modules that drive the DOM through a small runtime.
//
// A component is markup with an optional <script> and <style>. The
// compiler resolves every expression of the markup against the script's
// declarations, splits the markup into blocks (one per each iteration,
// if branch, await branch and slot) and emits for every block a factory
// whose update method only touches what depends on the names that
// changed.
//
// Main sub-packages:
//
//   - src: Compile, CompileSource and CompileFile, plus the project
//     Compiler that discovers and compiles every component of a project
//   - src/config: compiler options and the sveltec.yaml project file
//   - src/template: template AST and the markup front end
//   - src/expression_parser: JavaScript expression subset used in markup
//   - src/scope: scope chain and dependency resolution
//   - src/render/dom: blocks, node wrappers and module assembly
//   - src/output: output AST and the JavaScript emitter
//   - src/css: stylesheet scoping
//   - src/pool: unique identifier allocation
//   - src/core: character classes shared by the scanners
//   - src/util: source spans, errors and diagnostics
//
// The reference runtime under packages/runtime executes the lifecycle the
// generated modules encode: scheduling, keyed reconciliation,
// conditional branches, promises, transitions and bindings. The
// sveltec-go command under cmd wraps both.
package compiler
