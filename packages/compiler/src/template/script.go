package template

import (
	"fmt"
	"sort"
	"strings"

	"sveltec-go/packages/compiler/src/core"
	ep "sveltec-go/packages/compiler/src/expression_parser"
	"sveltec-go/packages/compiler/src/util"
)

// scriptAnalyzer walks the token stream of an instance script and records its
// top-level declarations. Only brace depth zero is inspected; function bodies
// are opaque.
type scriptAnalyzer struct {
	file   *util.ParseSourceFile
	script *Script
	code   string
	tokens []*ep.Token
	vars   []*Var
	seen   map[string]bool
}

// AnalyzeScript collects the top-level names declared by the instance script
// and records the edits that turn it into the body of the instance function:
// imports move to module scope and `export let` declarations read their
// values from `$$props`.
func AnalyzeScript(script *Script, file *util.ParseSourceFile) ([]*Var, error) {
	a := &scriptAnalyzer{
		file:   file,
		script: script,
		code:   blankComments(script.Content),
		seen:   make(map[string]bool),
	}
	a.tokens = ep.NewLexer().Tokenize(a.code)
	if n := len(a.tokens); n > 0 && a.tokens[n-1].Type == ep.TokenTypeError {
		tok := a.tokens[n-1]
		return nil, util.Errorf(a.span(tok.Index, tok.End), util.ErrParse, "%s", tok.StrValue)
	}
	if err := a.analyze(); err != nil {
		return nil, err
	}
	a.markStores()
	return a.vars, nil
}

func (a *scriptAnalyzer) span(start, end int) *util.ParseSourceSpan {
	return a.file.Span(a.script.Offset+start, a.script.Offset+end)
}

func (a *scriptAnalyzer) analyze() (err error) {
	depth := 0
	for i := 0; i < len(a.tokens); i++ {
		tok := a.tokens[i]
		switch {
		case isOpen(tok):
			depth++
			continue
		case isClose(tok):
			depth--
			continue
		}
		if depth != 0 || !tok.IsIdentifier() || (i > 0 && a.tokens[i-1].IsCharacter(core.CharPERIOD)) {
			continue
		}
		switch tok.StrValue {
		case "import":
			i, err = a.importDeclaration(i)
		case "export":
			i, err = a.exportDeclaration(i)
		case "let", "var":
			_, i, err = a.declarators(i+1, VarLet, false)
		case "const":
			_, i, err = a.declarators(i+1, VarConst, false)
		case "function", "class":
			kind := VarFunction
			if tok.StrValue == "class" {
				kind = VarConst
			}
			if next := a.peek(i + 1); next != nil && next.IsOperator("*") {
				i++
			}
			if name := a.peek(i + 1); name != nil && name.IsIdentifier() {
				err = a.declare(name, kind, false)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *scriptAnalyzer) peek(i int) *ep.Token {
	if i < len(a.tokens) {
		return a.tokens[i]
	}
	return nil
}

func isOpen(tok *ep.Token) bool {
	return tok.IsCharacter(core.CharLBRACE) || tok.IsCharacter(core.CharLPAREN) || tok.IsCharacter(core.CharLBRACKET)
}

func isClose(tok *ep.Token) bool {
	return tok.IsCharacter(core.CharRBRACE) || tok.IsCharacter(core.CharRPAREN) || tok.IsCharacter(core.CharRBRACKET)
}

func (a *scriptAnalyzer) declare(tok *ep.Token, kind VarKind, exported bool) error {
	return a.declareName(tok.StrValue, tok.Index, tok.End, kind, exported)
}

func (a *scriptAnalyzer) declareName(name string, start, end int, kind VarKind, exported bool) error {
	if a.seen[name] {
		return util.Errorf(a.span(start, end), util.ErrParse, "'%s' has already been declared", name)
	}
	a.seen[name] = true
	a.vars = append(a.vars, &Var{
		Name:       name,
		Kind:       kind,
		Writable:   kind == VarLet,
		Exported:   exported,
		SourceSpan: a.span(start, end),
	})
	return nil
}

// statementEnds reports whether the statement in progress ends between
// tokens i-1 and i. Automatic semicolon insertion is approximated by a line
// break that neither side of which can continue an expression.
func (a *scriptAnalyzer) statementEnds(i int) bool {
	if i >= len(a.tokens) {
		return true
	}
	tok := a.tokens[i]
	if tok.IsCharacter(core.CharSEMICOLON) || isClose(tok) {
		return true
	}
	if i == 0 {
		return false
	}
	prev := a.tokens[i-1]
	if !strings.Contains(a.code[prev.End:tok.Index], "\n") {
		return false
	}
	if prev.Type == ep.TokenTypeOperator && prev.StrValue != "++" && prev.StrValue != "--" {
		return false
	}
	if prev.IsCharacter(core.CharCOMMA) || prev.IsCharacter(core.CharCOLON) || isOpen(prev) {
		return false
	}
	if tok.Type == ep.TokenTypeOperator && tok.StrValue != "++" && tok.StrValue != "--" && tok.StrValue != "!" && tok.StrValue != "~" {
		return false
	}
	if tok.IsCharacter(core.CharPERIOD) || tok.IsCharacter(core.CharLPAREN) || tok.IsCharacter(core.CharLBRACKET) {
		return false
	}
	return true
}

// declarator is one `name = init` entry of a variable declaration.
type declarator struct {
	name      string
	start     int
	end       int
	init      string
	isPattern bool
}

// declarators reads the declarator list starting at token i and returns the
// index of the last token consumed.
func (a *scriptAnalyzer) declarators(i int, kind VarKind, exported bool) ([]declarator, int, error) {
	var out []declarator
	for i < len(a.tokens) {
		tok := a.tokens[i]
		var d declarator
		switch {
		case tok.IsIdentifier():
			d = declarator{name: tok.StrValue, start: tok.Index, end: tok.End}
			i++
		case tok.IsCharacter(core.CharLBRACE), tok.IsCharacter(core.CharLBRACKET):
			end := a.matching(i)
			if end < 0 {
				return nil, i, util.Errorf(a.span(tok.Index, len(a.code)), util.ErrParse, "Unterminated destructuring pattern")
			}
			d = declarator{start: tok.Index, end: a.tokens[end].End, isPattern: true}
			i = end + 1
		default:
			return nil, i, util.Errorf(a.span(tok.Index, tok.End), util.ErrParse, "Expected a variable name, found '%s'", tok)
		}

		if next := a.peek(i); next != nil && next.IsOperator("=") && !a.statementEnds(i) {
			initStart := i + 1
			j := initStart
			depth := 0
			for j < len(a.tokens) {
				t := a.tokens[j]
				if depth == 0 && (t.IsCharacter(core.CharCOMMA) || (j > initStart && a.statementEnds(j))) {
					break
				}
				if isOpen(t) {
					depth++
				} else if isClose(t) {
					if depth == 0 {
						break
					}
					depth--
				}
				j++
			}
			if j == initStart {
				return nil, i, util.Errorf(a.span(next.Index, next.End), util.ErrParse, "Expected an initializer")
			}
			d.init = strings.TrimSpace(a.script.Content[a.tokens[initStart].Index:a.tokens[j-1].End])
			i = j
		}

		if d.isPattern {
			if exported {
				return nil, i, util.Errorf(a.span(d.start, d.end), util.ErrParse, "Exported props cannot be destructured")
			}
			pat, err := ep.NewParser(ep.NewLexer()).ParsePattern(a.code[d.start:d.end], 0)
			if err != nil {
				return nil, i, util.Errorf(a.span(d.start, d.end), util.ErrParse, "%v", err)
			}
			for _, binding := range pat.Names() {
				if err := a.declareName(binding.Name, d.start, d.end, kind, false); err != nil {
					return nil, i, err
				}
			}
		} else if err := a.declareName(d.name, d.start, d.end, kind, exported); err != nil {
			return nil, i, err
		}
		out = append(out, d)

		if next := a.peek(i); next != nil && next.IsCharacter(core.CharCOMMA) {
			i++
			continue
		}
		break
	}
	return out, i - 1, nil
}

// matching returns the index of the token closing the bracket at i.
func (a *scriptAnalyzer) matching(i int) int {
	depth := 0
	for j := i; j < len(a.tokens); j++ {
		switch {
		case isOpen(a.tokens[j]):
			depth++
		case isClose(a.tokens[j]):
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

// importDeclaration records `import ... from '...'` and removes it from the
// instance body.
func (a *scriptAnalyzer) importDeclaration(i int) (int, error) {
	start := a.tokens[i]
	if next := a.peek(i + 1); next == nil || next.IsCharacter(core.CharLPAREN) || next.IsCharacter(core.CharPERIOD) {
		return i, nil
	}
	j := i + 1
	if a.tokens[j].Type != ep.TokenTypeString {
		for ; j < len(a.tokens); j++ {
			tok := a.tokens[j]
			if tok.IsIdentifier() && tok.StrValue == "from" && a.peek(j+1) != nil && a.peek(j+1).Type == ep.TokenTypeString {
				break
			}
			if !tok.IsIdentifier() || tok.StrValue == "as" {
				continue
			}
			// `a as b` declares b
			if next := a.peek(j + 1); next != nil && next.IsIdentifier() && next.StrValue == "as" {
				continue
			}
			if err := a.declare(tok, VarImport, false); err != nil {
				return j, err
			}
		}
		j++
	}
	if j >= len(a.tokens) || a.tokens[j].Type != ep.TokenTypeString {
		return j, util.Errorf(a.span(start.Index, start.End), util.ErrParse, "Expected a module specifier in import declaration")
	}
	end := a.tokens[j].End
	if next := a.peek(j + 1); next != nil && next.IsCharacter(core.CharSEMICOLON) {
		j++
		end = next.End
	}
	a.script.Imports = append(a.script.Imports, &ScriptRange{
		Start: start.Index,
		End:   end,
		Text:  a.script.Content[start.Index:end],
	})
	return j, nil
}

// exportDeclaration handles `export let` props. `export const`, `export
// function` and `export class` lose the keyword and are declared normally.
func (a *scriptAnalyzer) exportDeclaration(i int) (int, error) {
	start := a.tokens[i]
	next := a.peek(i + 1)
	if next == nil || !next.IsIdentifier() {
		return i, util.Errorf(a.span(start.Index, start.End), util.ErrParse, "Only 'export let' declarations are supported in the instance script")
	}
	switch next.StrValue {
	case "let", "var":
		decls, last, err := a.declarators(i+2, VarLet, true)
		if err != nil {
			return last, err
		}
		end := a.tokens[last].End
		if semi := a.peek(last + 1); semi != nil && semi.IsCharacter(core.CharSEMICOLON) {
			last++
			end = semi.End
		}
		parts := make([]string, len(decls))
		for k, d := range decls {
			parts[k] = d.name
			if d.init != "" {
				parts[k] = fmt.Sprintf("%s = %s", d.name, d.init)
			}
		}
		a.script.Exports = append(a.script.Exports, &ScriptRange{
			Start:       start.Index,
			End:         end,
			Replacement: fmt.Sprintf("let { %s } = $$props;", strings.Join(parts, ", ")),
			Text:        a.script.Content[start.Index:end],
		})
		return last, nil
	case "const", "function", "class", "async":
		a.script.Exports = append(a.script.Exports, &ScriptRange{
			Start: start.Index,
			End:   next.Index,
			Text:  a.script.Content[start.Index:next.Index],
		})
		return i, nil
	}
	return i, util.Errorf(a.span(start.Index, next.End), util.ErrParse, "'export %s' is not supported in the instance script", next.StrValue)
}

// markStores turns every `$name` reference to a declared name into a store
// subscription.
func (a *scriptAnalyzer) markStores() {
	for _, tok := range a.tokens {
		if !tok.IsIdentifier() || !strings.HasPrefix(tok.StrValue, "$") || strings.HasPrefix(tok.StrValue, "$$") {
			continue
		}
		if a.seen[tok.StrValue] || !a.seen[tok.StrValue[1:]] {
			continue
		}
		a.seen[tok.StrValue] = true
		a.vars = append(a.vars, &Var{Name: tok.StrValue, Kind: VarStore, SourceSpan: a.span(tok.Index, tok.End)})
	}
}

// blankComments replaces comments with spaces, keeping line breaks so that
// offsets and line numbers are unchanged.
func blankComments(code string) string {
	buf := []byte(code)
	for i := 0; i < len(buf); i++ {
		switch c := buf[i]; c {
		case '\'', '"':
			for i++; i < len(buf) && buf[i] != c && buf[i] != '\n'; i++ {
				if buf[i] == '\\' {
					i++
				}
			}
		case '`':
			for i++; i < len(buf) && buf[i] != '`'; i++ {
				if buf[i] == '\\' {
					i++
				}
			}
		case '/':
			if i+1 >= len(buf) {
				continue
			}
			switch buf[i+1] {
			case '/':
				for ; i < len(buf) && buf[i] != '\n'; i++ {
					buf[i] = ' '
				}
			case '*':
				end := strings.Index(code[i+2:], "*/")
				stop := len(buf)
				if end >= 0 {
					stop = i + 2 + end + 2
				}
				for ; i < stop; i++ {
					if buf[i] != '\n' {
						buf[i] = ' '
					}
				}
				i--
			}
		}
	}
	return string(buf)
}

// InstanceBody applies the recorded import and export edits to the script
// content.
func (s *Script) InstanceBody() string {
	edits := append(append([]*ScriptRange(nil), s.Imports...), s.Exports...)
	sort.Slice(edits, func(i, j int) bool { return edits[i].Start < edits[j].Start })
	var sb strings.Builder
	cursor := 0
	for _, edit := range edits {
		sb.WriteString(s.Content[cursor:edit.Start])
		sb.WriteString(edit.Replacement)
		cursor = edit.End
	}
	sb.WriteString(s.Content[cursor:])
	return sb.String()
}
