package util

import (
	"fmt"
	"strings"
)

// Warning codes
const (
	WarnEmptyBlock           = "empty-block"
	WarnMissingDeclaration   = "missing-declaration"
	WarnBindingShadowsHelper = "binding-shadows-helper"
)

// Error codes
const (
	ErrParse              = "parse-error"
	ErrUnknownDirective   = "unknown-directive"
	ErrInvalidBinding     = "invalid-binding"
	ErrInvalidEachContext = "invalid-each-context"
	ErrInvalidKey         = "invalid-key"
	ErrUndefinedContext   = "undefined-context"
	ErrInvalidAttribute   = "invalid-attribute"
	ErrUnknownNode        = "unknown-node"
)

// Diagnostics accumulates warnings and errors produced during one compile.
// Entries keep the order in which they were reported.
type Diagnostics struct {
	entries []*ParseError
}

// NewDiagnostics creates an empty Diagnostics
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

// Report appends a diagnostic of any level.
func (d *Diagnostics) Report(err *ParseError) {
	d.entries = append(d.entries, err)
}

// Warn records a warning.
func (d *Diagnostics) Warn(span *ParseSourceSpan, code, format string, args ...interface{}) {
	d.Report(NewParseWarning(span, code, fmt.Sprintf(format, args...)))
}

// Warnings returns the warning-level entries.
func (d *Diagnostics) Warnings() []*ParseError {
	return d.filter(ParseErrorLevelWarning)
}

// Errors returns the error-level entries.
func (d *Diagnostics) Errors() []*ParseError {
	return d.filter(ParseErrorLevelError)
}

// HasErrors reports whether any error-level entry was recorded.
func (d *Diagnostics) HasErrors() bool {
	return len(d.Errors()) > 0
}

// All returns every entry in report order.
func (d *Diagnostics) All() []*ParseError {
	return append([]*ParseError(nil), d.entries...)
}

func (d *Diagnostics) filter(level ParseErrorLevel) []*ParseError {
	var out []*ParseError
	for _, e := range d.entries {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// CompilerBug is the panic value used for internal invariant violations in
// the code generation walk. It is recovered at the compile boundary and
// reported as an error; it never escapes as a panic.
type CompilerBug struct {
	Msg string
}

func (b *CompilerBug) Error() string {
	return "internal compiler error: " + b.Msg
}

// Bugf panics with a CompilerBug.
func Bugf(format string, args ...interface{}) {
	panic(&CompilerBug{Msg: fmt.Sprintf(format, args...)})
}

// RecoverBug converts a CompilerBug panic into *errp. Other panics are
// re-raised.
func RecoverBug(errp *error) {
	if r := recover(); r != nil {
		if bug, ok := r.(*CompilerBug); ok {
			*errp = bug
			return
		}
		panic(r)
	}
}

// FormatDiagnostics renders diagnostics one per line.
func FormatDiagnostics(entries []*ParseError) string {
	var sb strings.Builder
	for _, e := range entries {
		level := "error"
		if e.Level == ParseErrorLevelWarning {
			level = "warning"
		}
		if e.Code != "" {
			fmt.Fprintf(&sb, "%s[%s]: %s\n", level, e.Code, e.String())
		} else {
			fmt.Fprintf(&sb, "%s: %s\n", level, e.String())
		}
	}
	return sb.String()
}
