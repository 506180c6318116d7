package template

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"sveltec-go/packages/compiler/src/core"
	ep "sveltec-go/packages/compiler/src/expression_parser"
	"sveltec-go/packages/compiler/src/util"
)

var rawElementRe = regexp.MustCompile(`(?is)<(script|style)\b[^>]*>(.*?)</(?:script|style)\s*>`)

var voidElements = map[atom.Atom]bool{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true, atom.Embed: true,
	atom.Hr: true, atom.Img: true, atom.Input: true, atom.Link: true, atom.Meta: true,
	atom.Param: true, atom.Source: true, atom.Track: true, atom.Wbr: true,
}

// IsVoidElement reports whether name never has children or a closing tag.
func IsVoidElement(name string) bool {
	return voidElements[atom.Lookup([]byte(strings.ToLower(name)))]
}

var directiveTypes = map[string]bool{
	"on": true, "bind": true, "class": true, "transition": true, "in": true, "out": true,
	"use": true, "animate": true, "let": true, "style": true,
}

// tagRange is the byte range of one `{...}` tag, braces included.
type tagRange struct {
	start int
	end   int
}

type openKind int

const (
	openElement openKind = iota
	openComponent
	openSlot
	openIf
	openElseIf
	openEach
	openAwait
)

type openNode struct {
	kind     openKind
	name     string
	node     Node
	children *[]Node
}

type parser struct {
	file       *util.ParseSourceFile
	source     string
	exprParser *ep.Parser
	tags       []tagRange
	stack      []*openNode
	root       []Node
	component  *Component
}

// Parse reads a component file: markup with `{...}` tags, an optional
// instance <script> and an optional <style>. The returned error is a
// *util.ParseError carrying the position of the first problem.
func Parse(source, filename string) (*Component, error) {
	file := util.NewParseSourceFile(source, filename)
	p := &parser{
		file:       file,
		source:     source,
		exprParser: ep.NewParser(ep.NewLexer()),
		component: &Component{
			Name:     ComponentName(filename),
			Filename: filename,
			Source:   file,
		},
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.component, nil
}

// ComponentName derives the component class name from a file name:
// `my-button.svelte` becomes `My_button`.
func ComponentName(filename string) string {
	base := filename
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	name := util.SanitizeIdentifier(base)
	if name == "_" || name == "" {
		return "Component"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func (p *parser) errorf(start, end int, code, format string, args ...interface{}) *util.ParseError {
	return util.Errorf(p.file.Span(start, end), code, format, args...)
}

func (p *parser) parse() error {
	masked, err := p.maskTags()
	if err != nil {
		return err
	}

	z := html.NewTokenizer(strings.NewReader(masked))
	offset := 0
	var rawOpen *openRaw
	for {
		tt := z.Next()
		raw := z.Raw()
		start, end := offset, offset+len(raw)
		offset = end

		if rawOpen != nil && tt != html.EndTagToken {
			if tt == html.TextToken {
				rawOpen.contentStart, rawOpen.contentEnd = start, end
			}
			continue
		}

		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return p.finish()
			}
			return p.errorf(start, end, util.ErrParse, "%v", z.Err())
		case html.TextToken:
			if err := p.text(start, end); err != nil {
				return err
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name := p.tagName(start + 1)
			lower := strings.ToLower(name)
			// An unquoted last value such as x={y}/> swallows the slash.
			selfClosing := tt == html.SelfClosingTagToken || p.source[end-2] == '/'
			if (lower == "script" || lower == "style") && !selfClosing {
				if len(p.stack) > 0 {
					return p.errorf(start, end, util.ErrParse, "<%s> tags cannot be inside elements or blocks", lower)
				}
				rawOpen = &openRaw{name: lower, start: start, contentStart: end, contentEnd: end}
				continue
			}
			if err := p.openTag(name, start, end, selfClosing); err != nil {
				return err
			}
		case html.EndTagToken:
			name := p.tagName(start + 2)
			if rawOpen != nil {
				if strings.ToLower(name) != rawOpen.name {
					continue
				}
				if err := p.rawElement(rawOpen, end); err != nil {
					return err
				}
				rawOpen = nil
				continue
			}
			if err := p.closeTag(name, start, end); err != nil {
				return err
			}
		case html.CommentToken, html.DoctypeToken:
		}
	}
}

type openRaw struct {
	name         string
	start        int
	contentStart int
	contentEnd   int
}

func (p *parser) rawElement(open *openRaw, end int) error {
	content := p.source[open.contentStart:open.contentEnd]
	span := p.file.Span(open.start, end)
	switch open.name {
	case "script":
		if p.component.Script != nil {
			return p.errorf(open.start, end, util.ErrParse, "A component can only have one instance-level <script> element")
		}
		script := &Script{NodeBase: NodeBase{SourceSpan: span}, Content: content, Offset: open.contentStart}
		vars, err := AnalyzeScript(script, p.file)
		if err != nil {
			return err
		}
		p.component.Script = script
		p.component.Vars = append(p.component.Vars, vars...)
	case "style":
		if p.component.Style != nil {
			return p.errorf(open.start, end, util.ErrParse, "You can only have one top-level <style> tag per component")
		}
		p.component.Style = &Style{NodeBase: NodeBase{SourceSpan: span}, Content: content}
	}
	return nil
}

func (p *parser) finish() error {
	if len(p.stack) > 0 {
		top := p.stack[len(p.stack)-1]
		span := top.node.Span()
		switch top.kind {
		case openElement, openComponent, openSlot:
			return util.Errorf(span, util.ErrParse, "<%s> was left open", top.name)
		default:
			return util.Errorf(span, util.ErrParse, "Block was left open")
		}
	}
	p.component.Fragment = p.root
	p.markStores()
	return nil
}

// maskTags finds every `{...}` tag outside script and style content and
// returns a copy of the source in which tag bodies are replaced by filler of
// the same byte length. Offsets in the masked text match the source, and the
// HTML tokenizer never sees `>` or quotes that belong to an expression.
func (p *parser) maskTags() (string, error) {
	src := p.source
	skip := rawElementRe.FindAllStringSubmatchIndex(src, -1)
	buf := []byte(src)
	skipIndex := 0
	for i := 0; i < len(src); i++ {
		for skipIndex < len(skip) && skip[skipIndex][1] <= i {
			skipIndex++
		}
		if skipIndex < len(skip) && i >= skip[skipIndex][4] && i < skip[skipIndex][5] {
			i = skip[skipIndex][5] - 1
			continue
		}
		if strings.HasPrefix(src[i:], "<!--") {
			end := strings.Index(src[i+4:], "-->")
			if end < 0 {
				return "", p.errorf(i, len(src), util.ErrParse, "comment was left open")
			}
			i += 4 + end + 2
			continue
		}
		if src[i] != '{' {
			continue
		}
		end, err := p.scanTag(i)
		if err != nil {
			return "", err
		}
		p.tags = append(p.tags, tagRange{start: i, end: end})
		for j := i + 1; j < end-1; j++ {
			buf[j] = 'x'
		}
		i = end - 1
	}
	return string(buf), nil
}

// scanTag returns the offset just past the `}` matching the `{` at start.
func (p *parser) scanTag(start int) (int, error) {
	src := p.source
	depth := 0
	// each entry is the brace depth at which a template literal resumes
	var templates []int
	for i := start; i < len(src); i++ {
		c := src[i]
		if len(templates) > 0 && templates[len(templates)-1] == depth {
			// inside template literal text
			switch {
			case c == '\\':
				i++
			case c == '`':
				templates = templates[:len(templates)-1]
			case c == '$' && i+1 < len(src) && src[i+1] == '{':
				depth++
				i++
			}
			continue
		}
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, nil
			}
		case '\'', '"':
			for i++; i < len(src) && src[i] != c; i++ {
				if src[i] == '\\' {
					i++
				}
			}
		case '`':
			templates = append(templates, depth)
		}
	}
	return 0, p.errorf(start, len(src), util.ErrParse, "Unexpected end of input: expected '}'")
}

func (p *parser) tagName(from int) string {
	i := from
	for i < len(p.source) && !core.IsWhitespace(int(p.source[i])) && p.source[i] != '>' && p.source[i] != '/' {
		i++
	}
	return p.source[from:i]
}

// tagsIn returns the tag ranges that start within [start, end).
func (p *parser) tagsIn(start, end int) []tagRange {
	i := sort.Search(len(p.tags), func(i int) bool { return p.tags[i].start >= start })
	j := i
	for j < len(p.tags) && p.tags[j].start < end {
		j++
	}
	return p.tags[i:j]
}

func (p *parser) tagAt(offset int) (tagRange, bool) {
	i := sort.Search(len(p.tags), func(i int) bool { return p.tags[i].start >= offset })
	if i < len(p.tags) && p.tags[i].start == offset {
		return p.tags[i], true
	}
	return tagRange{}, false
}

func (p *parser) append(node Node) {
	if len(p.stack) == 0 {
		p.root = append(p.root, node)
		return
	}
	top := p.stack[len(p.stack)-1]
	*top.children = append(*top.children, node)
}

func (p *parser) text(start, end int) error {
	cursor := start
	for _, tag := range p.tagsIn(start, end) {
		if tag.start > cursor {
			p.appendText(cursor, tag.start)
		}
		if err := p.mustache(tag); err != nil {
			return err
		}
		cursor = tag.end
	}
	if cursor < end {
		p.appendText(cursor, end)
	}
	return nil
}

func (p *parser) appendText(start, end int) {
	p.append(&Text{
		NodeBase: NodeBase{SourceSpan: p.file.Span(start, end)},
		Data:     html.UnescapeString(p.source[start:end]),
	})
}

func (p *parser) openTag(name string, start, end int, selfClosing bool) error {
	attrEnd := end - 1
	if selfClosing {
		attrEnd = end - 2
	}
	attrs, err := p.attributes(start+1+len(name), attrEnd)
	if err != nil {
		return err
	}
	span := p.file.Span(start, end)
	lower := strings.ToLower(name)

	var open *openNode
	switch {
	case strings.HasPrefix(lower, "svelte:"):
		return p.errorf(start, end, util.ErrParse, "<%s> is not supported", name)
	case isComponentName(name):
		c := &InlineComponent{NodeBase: NodeBase{SourceSpan: span}, Name: name, Attributes: attrs}
		p.append(c)
		open = &openNode{kind: openComponent, name: name, node: c, children: &c.Children}
	case lower == "slot":
		s := &Slot{NodeBase: NodeBase{SourceSpan: span}, SlotName: "default"}
		for _, attr := range attrs {
			if a, ok := attr.(*Attribute); ok && a.Name == "name" {
				if !a.IsStatic() || a.IsTrue {
					return util.Errorf(a.Span(), util.ErrInvalidAttribute, "slot attribute cannot have a dynamic value")
				}
				s.SlotName = a.StaticValue()
				continue
			}
			s.Attributes = append(s.Attributes, attr)
		}
		p.append(s)
		open = &openNode{kind: openSlot, name: name, node: s, children: &s.Children}
	default:
		el := &Element{NodeBase: NodeBase{SourceSpan: span}, Name: lower, Attributes: attrs}
		if lower == "svg" {
			el.Namespace = "svg"
		} else if parent := p.parentElement(); parent != nil && parent.Namespace == "svg" && lower != "foreignobject" {
			el.Namespace = "svg"
			el.Name = name
		}
		p.append(el)
		if IsVoidElement(lower) {
			return nil
		}
		open = &openNode{kind: openElement, name: lower, node: el, children: &el.Children}
	}
	if !selfClosing {
		p.stack = append(p.stack, open)
	}
	return nil
}

func isComponentName(name string) bool {
	if name == "" {
		return false
	}
	c := name[0]
	return (c >= 'A' && c <= 'Z') || strings.Contains(name, ".")
}

func (p *parser) parentElement() *Element {
	for i := len(p.stack) - 1; i >= 0; i-- {
		if el, ok := p.stack[i].node.(*Element); ok {
			return el
		}
	}
	return nil
}

func (p *parser) closeTag(name string, start, end int) error {
	lower := strings.ToLower(name)
	if IsVoidElement(lower) {
		return p.errorf(start, end, util.ErrParse, "</%s> is a void element and cannot have a closing tag", name)
	}
	if len(p.stack) == 0 {
		return p.errorf(start, end, util.ErrParse, "</%s> attempted to close an element that was not open", name)
	}
	top := p.stack[len(p.stack)-1]
	switch top.kind {
	case openElement, openComponent, openSlot:
		if !strings.EqualFold(top.name, name) {
			return p.errorf(start, end, util.ErrParse, "</%s> attempted to close an element that was not open", name)
		}
	default:
		return p.errorf(start, end, util.ErrParse, "</%s> attempted to close an element that was not open: a block is still open", name)
	}
	top.node.Span().End = p.file.Location(end)
	p.stack = p.stack[:len(p.stack)-1]
	return nil
}

// mustache handles one `{...}` tag in text position.
func (p *parser) mustache(tag tagRange) error {
	bodyStart := tag.start + 1
	body := p.source[bodyStart : tag.end-1]
	span := p.file.Span(tag.start, tag.end)

	switch {
	case strings.HasPrefix(body, "#"):
		return p.openBlock(tag, body)
	case strings.HasPrefix(body, ":"):
		return p.continueBlock(tag, body)
	case strings.HasPrefix(body, "/"):
		return p.closeBlock(tag, strings.TrimSpace(body[1:]))
	case strings.HasPrefix(body, "@html"):
		expr, err := p.expression(tag.start+1+len("@html"), tag.end-1)
		if err != nil {
			return err
		}
		p.append(&RawMustacheTag{NodeBase: NodeBase{SourceSpan: span}, Expression: expr})
		return nil
	case strings.HasPrefix(body, "@"):
		word := strings.Fields(body)[0]
		return util.Errorf(span, util.ErrParse, "{%s} is not supported", word)
	}
	expr, err := p.expression(bodyStart, tag.end-1)
	if err != nil {
		return err
	}
	p.append(&MustacheTag{NodeBase: NodeBase{SourceSpan: span}, Expression: expr})
	return nil
}

// expression parses the source range [start, end) as an expression.
func (p *parser) expression(start, end int) (ep.Expression, error) {
	text := p.source[start:end]
	if strings.TrimSpace(text) == "" {
		return nil, p.errorf(start, end, util.ErrParse, "Expected an expression")
	}
	expr, err := p.exprParser.ParseExpression(text, start)
	if err != nil {
		return nil, p.convertError(err, start, end)
	}
	return expr, nil
}

func (p *parser) pattern(start, end int) (*ep.Pattern, error) {
	text := p.source[start:end]
	if strings.TrimSpace(text) == "" {
		return nil, p.errorf(start, end, util.ErrInvalidEachContext, "Expected a name or a destructuring pattern")
	}
	pat, err := p.exprParser.ParsePattern(text, start)
	if err != nil {
		return nil, p.convertError(err, start, end)
	}
	return pat, nil
}

func (p *parser) convertError(err error, start, end int) error {
	var perr *ep.ParserError
	if errors.As(err, &perr) {
		at := min(max(perr.Index, start), end)
		return p.errorf(at, end, util.ErrParse, "%s", perr.Message)
	}
	return p.errorf(start, end, util.ErrParse, "%v", err)
}

func keyword(body, word string) (string, bool) {
	if !strings.HasPrefix(body, word) {
		return "", false
	}
	rest := body[len(word):]
	if rest != "" && !core.IsWhitespace(int(rest[0])) {
		return "", false
	}
	return rest, true
}

func (p *parser) openBlock(tag tagRange, body string) error {
	span := p.file.Span(tag.start, tag.end)
	bodyStart := tag.start + 1
	switch {
	case strings.HasPrefix(body, "#if"):
		rest, ok := keyword(body, "#if")
		if !ok {
			break
		}
		expr, err := p.expression(bodyStart+len(body)-len(rest), tag.end-1)
		if err != nil {
			return err
		}
		block := &IfBlock{NodeBase: NodeBase{SourceSpan: span}, Expression: expr}
		p.append(block)
		p.stack = append(p.stack, &openNode{kind: openIf, name: "if", node: block, children: &block.Children})
		return nil
	case strings.HasPrefix(body, "#each"):
		rest, ok := keyword(body, "#each")
		if !ok {
			break
		}
		block, err := p.eachHeader(span, bodyStart+len(body)-len(rest), tag.end-1)
		if err != nil {
			return err
		}
		p.append(block)
		p.stack = append(p.stack, &openNode{kind: openEach, name: "each", node: block, children: &block.Children})
		return nil
	case strings.HasPrefix(body, "#await"):
		rest, ok := keyword(body, "#await")
		if !ok {
			break
		}
		block, children, err := p.awaitHeader(span, bodyStart+len(body)-len(rest), tag.end-1)
		if err != nil {
			return err
		}
		p.append(block)
		p.stack = append(p.stack, &openNode{kind: openAwait, name: "await", node: block, children: children})
		return nil
	}
	word := strings.Fields(body)
	if len(word) == 0 {
		word = []string{body}
	}
	return util.Errorf(span, util.ErrParse, "Expected if, each or await, found {%s}", word[0])
}

// topLevelWord finds the first identifier token equal to word that is not
// nested inside brackets. It returns the token's offset within text or -1.
func topLevelWord(text, word string) (int, int) {
	depth := 0
	for _, tok := range ep.NewLexer().Tokenize(text) {
		switch {
		case tok.IsCharacter(core.CharLPAREN), tok.IsCharacter(core.CharLBRACKET), tok.IsCharacter(core.CharLBRACE):
			depth++
		case tok.IsCharacter(core.CharRPAREN), tok.IsCharacter(core.CharRBRACKET), tok.IsCharacter(core.CharRBRACE):
			depth--
		case depth == 0 && tok.IsIdentifier() && tok.StrValue == word:
			return tok.Index, tok.End
		}
	}
	return -1, -1
}

func (p *parser) eachHeader(span *util.ParseSourceSpan, start, end int) (*EachBlock, error) {
	text := p.source[start:end]
	asStart, asEnd := topLevelWord(text, "as")
	if asStart < 0 {
		return nil, util.Errorf(span, util.ErrInvalidEachContext, "Expected 'as' in {#each} block")
	}
	expr, err := p.expression(start, start+asStart)
	if err != nil {
		return nil, err
	}
	block := &EachBlock{NodeBase: NodeBase{SourceSpan: span}, Expression: expr}

	// context [, index] [(key)]
	rest := start + asEnd
	tokens := ep.NewLexer().Tokenize(p.source[rest:end])
	depth := 0
	contextEnd, indexStart, keyStart := end, -1, -1
	for _, tok := range tokens {
		if tok.Type == ep.TokenTypeError {
			return nil, util.Errorf(span, util.ErrInvalidEachContext, "%s", tok.StrValue)
		}
		switch {
		case depth == 0 && tok.IsCharacter(core.CharLPAREN):
			if contextEnd == end {
				contextEnd = rest + tok.Index
			}
			keyStart = rest + tok.Index
		case tok.IsCharacter(core.CharLPAREN), tok.IsCharacter(core.CharLBRACKET), tok.IsCharacter(core.CharLBRACE):
			depth++
		case tok.IsCharacter(core.CharRPAREN), tok.IsCharacter(core.CharRBRACKET), tok.IsCharacter(core.CharRBRACE):
			depth--
		case depth == 0 && tok.IsCharacter(core.CharCOMMA) && indexStart < 0 && keyStart < 0:
			contextEnd = rest + tok.Index
			indexStart = rest + tok.End
		}
		if keyStart >= 0 {
			break
		}
	}

	if block.Context, err = p.pattern(rest, contextEnd); err != nil {
		return nil, err
	}
	if hasObjectRest(block.Context) {
		return nil, util.Errorf(span, util.ErrInvalidEachContext, "Object rest in each-block contexts is not supported")
	}
	if indexStart >= 0 {
		indexEnd := end
		if keyStart >= 0 {
			indexEnd = keyStart
		}
		block.Index = strings.TrimSpace(p.source[indexStart:indexEnd])
		if !core.IsValidIdentifier(block.Index) {
			return nil, util.Errorf(span, util.ErrInvalidEachContext, "Expected an index name, found '%s'", block.Index)
		}
	}
	if keyStart >= 0 {
		closeParen := strings.LastIndexByte(p.source[keyStart:end], ')')
		if closeParen < 0 || strings.TrimSpace(p.source[keyStart+closeParen+1:end]) != "" {
			return nil, util.Errorf(span, util.ErrInvalidKey, "Expected ')' after each-block key")
		}
		if block.Key, err = p.expression(keyStart+1, keyStart+closeParen); err != nil {
			return nil, err
		}
	}
	return block, nil
}

func hasObjectRest(pat *ep.Pattern) bool {
	for _, el := range pat.Elements {
		if el == nil {
			continue
		}
		if pat.Kind == ep.PatternObject && el.Value.Rest {
			return true
		}
		if hasObjectRest(el.Value) {
			return true
		}
	}
	return false
}

func (p *parser) awaitHeader(span *util.ParseSourceSpan, start, end int) (*AwaitBlock, *[]Node, error) {
	text := p.source[start:end]
	block := &AwaitBlock{
		NodeBase: NodeBase{SourceSpan: span},
		Pending:  &AwaitBranch{NodeBase: NodeBase{SourceSpan: span}},
		Then:     &AwaitBranch{NodeBase: NodeBase{SourceSpan: span}, Skip: true},
		Catch:    &AwaitBranch{NodeBase: NodeBase{SourceSpan: span}, Skip: true},
	}
	exprEnd := end
	children := &block.Pending.Children
	if thenStart, thenEnd := topLevelWord(text, "then"); thenStart >= 0 {
		exprEnd = start + thenStart
		block.Pending.Skip = true
		block.Then.Skip = false
		children = &block.Then.Children
		if strings.TrimSpace(text[thenEnd:]) != "" {
			value, err := p.awaitContext(start+thenEnd, end)
			if err != nil {
				return nil, nil, err
			}
			block.Value = value
		}
	} else if catchStart, catchEnd := topLevelWord(text, "catch"); catchStart >= 0 {
		exprEnd = start + catchStart
		block.Pending.Skip = true
		block.Catch.Skip = false
		children = &block.Catch.Children
		if strings.TrimSpace(text[catchEnd:]) != "" {
			errPattern, err := p.awaitContext(start+catchEnd, end)
			if err != nil {
				return nil, nil, err
			}
			block.Error = errPattern
		}
	}
	expr, err := p.expression(start, exprEnd)
	if err != nil {
		return nil, nil, err
	}
	block.Expression = expr
	return block, children, nil
}

func (p *parser) awaitContext(start, end int) (*ep.Pattern, error) {
	pat, err := p.pattern(start, end)
	if err != nil {
		return nil, err
	}
	if hasObjectRest(pat) {
		return nil, p.errorf(start, end, util.ErrInvalidEachContext, "Object rest in {:then} and {:catch} contexts is not supported")
	}
	return pat, nil
}

func (p *parser) continueBlock(tag tagRange, body string) error {
	span := p.file.Span(tag.start, tag.end)
	if len(p.stack) == 0 {
		return util.Errorf(span, util.ErrParse, "{%s} must be inside a block", strings.Fields(body)[0])
	}
	top := p.stack[len(p.stack)-1]
	bodyStart := tag.start + 1

	if rest, ok := keyword(body, ":else"); ok {
		trimmed := strings.TrimLeft(rest, " \t\r\n")
		switch top.kind {
		case openIf, openElseIf:
			block := top.node.(*IfBlock)
			if block.Else != nil {
				return util.Errorf(span, util.ErrParse, "Cannot have an {:else} block after {:else}")
			}
			block.Else = &ElseBlock{NodeBase: NodeBase{SourceSpan: span}}
			if elseIf, ok := keyword(trimmed, "if"); ok {
				exprStart := bodyStart + len(body) - len(elseIf)
				expr, err := p.expression(exprStart, tag.end-1)
				if err != nil {
					return err
				}
				nested := &IfBlock{NodeBase: NodeBase{SourceSpan: span}, Expression: expr, ElseIf: true}
				block.Else.Children = []Node{nested}
				p.stack = append(p.stack, &openNode{kind: openElseIf, name: "if", node: nested, children: &nested.Children})
				return nil
			}
			if strings.TrimSpace(trimmed) != "" {
				return util.Errorf(span, util.ErrParse, "Expected '{:else}' or '{:else if ...}'")
			}
			top.children = &block.Else.Children
			return nil
		case openEach:
			block := top.node.(*EachBlock)
			if block.Else != nil || strings.TrimSpace(trimmed) != "" {
				return util.Errorf(span, util.ErrParse, "Expected a single '{:else}' in {#each}")
			}
			block.Else = &ElseBlock{NodeBase: NodeBase{SourceSpan: span}}
			top.children = &block.Else.Children
			return nil
		}
		return util.Errorf(span, util.ErrParse, "{:else} must be inside an {#if} or {#each} block")
	}

	for _, branch := range []string{":then", ":catch"} {
		rest, ok := keyword(body, branch)
		if !ok {
			continue
		}
		if top.kind != openAwait {
			return util.Errorf(span, util.ErrParse, "{%s} must be inside an {#await} block", branch)
		}
		block := top.node.(*AwaitBlock)
		target := block.Then
		if branch == ":catch" {
			target = block.Catch
		}
		if !target.Skip || len(target.Children) > 0 {
			return util.Errorf(span, util.ErrParse, "Duplicate {%s} block", branch)
		}
		target.Skip = false
		target.SourceSpan = span
		top.children = &target.Children
		if strings.TrimSpace(rest) != "" {
			pat, err := p.awaitContext(bodyStart+len(body)-len(rest), tag.end-1)
			if err != nil {
				return err
			}
			if branch == ":then" {
				block.Value = pat
			} else {
				block.Error = pat
			}
		}
		return nil
	}
	return util.Errorf(span, util.ErrParse, "Unexpected block continuation {%s}", strings.Fields(body)[0])
}

func (p *parser) closeBlock(tag tagRange, name string) error {
	span := p.file.Span(tag.start, tag.end)
	want := map[string]openKind{"if": openIf, "each": openEach, "await": openAwait}
	kind, known := want[name]
	if !known {
		return util.Errorf(span, util.ErrParse, "Unexpected block closing tag {/%s}", name)
	}
	for len(p.stack) > 0 && p.stack[len(p.stack)-1].kind == openElseIf && kind == openIf {
		p.stack[len(p.stack)-1].node.Span().End = span.End
		p.stack = p.stack[:len(p.stack)-1]
	}
	if len(p.stack) == 0 || p.stack[len(p.stack)-1].kind != kind {
		expected := "nothing"
		if len(p.stack) > 0 {
			top := p.stack[len(p.stack)-1]
			switch top.kind {
			case openElement, openComponent, openSlot:
				expected = fmt.Sprintf("</%s>", top.name)
			default:
				expected = fmt.Sprintf("{/%s}", top.name)
			}
		}
		return util.Errorf(span, util.ErrParse, "Unexpected {/%s}, expected %s", name, expected)
	}
	p.stack[len(p.stack)-1].node.Span().End = span.End
	p.stack = p.stack[:len(p.stack)-1]
	return nil
}

// attributes parses the attribute list in the source range [start, end).
func (p *parser) attributes(start, end int) ([]AttributeNode, error) {
	var attrs []AttributeNode
	seen := make(map[string]bool)
	src := p.source
	i := start
	for {
		for i < end && core.IsWhitespace(int(src[i])) {
			i++
		}
		if i >= end {
			return attrs, nil
		}
		attrStart := i

		if tag, ok := p.tagAt(i); ok {
			body := strings.TrimSpace(src[tag.start+1 : tag.end-1])
			if strings.HasPrefix(body, "...") {
				return nil, p.errorf(tag.start, tag.end, util.ErrInvalidAttribute, "Spread attributes are not supported")
			}
			if !core.IsValidIdentifier(body) {
				return nil, p.errorf(tag.start, tag.end, util.ErrInvalidAttribute, "Expected a name in shorthand attribute {%s}", body)
			}
			expr, err := p.expression(tag.start+1, tag.end-1)
			if err != nil {
				return nil, err
			}
			attrs = append(attrs, &Attribute{
				NodeBase: NodeBase{SourceSpan: p.file.Span(tag.start, tag.end)},
				Name:     body,
				Chunks:   []*AttributeChunk{{Expression: expr, SourceSpan: p.file.Span(tag.start, tag.end)}},
			})
			i = tag.end
			continue
		}

		for i < end && !core.IsWhitespace(int(src[i])) && src[i] != '=' {
			i++
		}
		name := src[attrStart:i]
		var chunks []*AttributeChunk
		isTrue := true
		j := i
		for j < end && core.IsWhitespace(int(src[j])) {
			j++
		}
		if j < end && src[j] == '=' {
			j++
			for j < end && core.IsWhitespace(int(src[j])) {
				j++
			}
			valueStart, valueEnd, next, err := p.attributeValue(j, end)
			if err != nil {
				return nil, err
			}
			if chunks, err = p.chunks(valueStart, valueEnd); err != nil {
				return nil, err
			}
			isTrue = false
			i = next
		}
		span := p.file.Span(attrStart, i)
		if seen[name] {
			return nil, util.Errorf(span, util.ErrInvalidAttribute, "Attributes need to be unique")
		}
		seen[name] = true
		attr, err := p.attribute(name, chunks, isTrue, span)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
}

// attributeValue returns the value range and the offset after the value.
func (p *parser) attributeValue(i, end int) (int, int, int, error) {
	src := p.source
	if i >= end {
		return 0, 0, 0, p.errorf(i, end, util.ErrParse, "Expected an attribute value")
	}
	if quote := src[i]; quote == '"' || quote == '\'' {
		j := i + 1
		for j < end && src[j] != quote {
			if tag, ok := p.tagAt(j); ok {
				j = tag.end
				continue
			}
			j++
		}
		if j >= end {
			return 0, 0, 0, p.errorf(i, end, util.ErrParse, "Unterminated attribute value")
		}
		return i + 1, j, j + 1, nil
	}
	if tag, ok := p.tagAt(i); ok {
		return tag.start, tag.end, tag.end, nil
	}
	j := i
	for j < end && !core.IsWhitespace(int(src[j])) {
		j++
	}
	return i, j, j, nil
}

func (p *parser) chunks(start, end int) ([]*AttributeChunk, error) {
	var out []*AttributeChunk
	cursor := start
	for _, tag := range p.tagsIn(start, end) {
		if tag.start > cursor {
			out = append(out, &AttributeChunk{
				Text:       html.UnescapeString(p.source[cursor:tag.start]),
				SourceSpan: p.file.Span(cursor, tag.start),
			})
		}
		expr, err := p.expression(tag.start+1, tag.end-1)
		if err != nil {
			return nil, err
		}
		out = append(out, &AttributeChunk{Expression: expr, SourceSpan: p.file.Span(tag.start, tag.end)})
		cursor = tag.end
	}
	if cursor < end || len(out) == 0 {
		out = append(out, &AttributeChunk{
			Text:       html.UnescapeString(p.source[cursor:end]),
			SourceSpan: p.file.Span(cursor, end),
		})
	}
	return out, nil
}

func (p *parser) attribute(name string, chunks []*AttributeChunk, isTrue bool, span *util.ParseSourceSpan) (AttributeNode, error) {
	colon := strings.IndexByte(name, ':')
	if colon < 0 || !directiveTypes[name[:colon]] {
		return &Attribute{NodeBase: NodeBase{SourceSpan: span}, Name: name, Chunks: chunks, IsTrue: isTrue}, nil
	}
	typ := name[:colon]
	parts := strings.Split(name[colon+1:], "|")
	directiveName, modifiers := parts[0], parts[1:]
	if directiveName == "" {
		return nil, util.Errorf(span, util.ErrInvalidAttribute, "Directive %s: needs a name", typ)
	}

	var expr ep.Expression
	if !isTrue {
		if len(chunks) != 1 || !chunks[0].IsExpression() {
			return nil, util.Errorf(span, util.ErrInvalidAttribute, "Directive value must be a JavaScript expression enclosed in curly braces")
		}
		expr = chunks[0].Expression
	}
	base := NodeBase{SourceSpan: span}

	switch typ {
	case "on":
		return &EventHandler{NodeBase: base, Name: directiveName, Modifiers: modifiers, Expression: expr}, nil
	case "bind":
		if expr == nil {
			if !core.IsValidIdentifier(directiveName) {
				return nil, util.Errorf(span, util.ErrInvalidBinding, "Binding shorthand needs a valid name")
			}
			start := span.Start.Offset + len("bind:")
			expr = &ep.Identifier{Node: ep.Node{Loc: ep.NewParseSpan(start, start+len(directiveName))}, Name: directiveName}
		}
		return &Binding{NodeBase: base, Name: directiveName, Expression: expr}, nil
	case "class":
		return &Class{NodeBase: base, Name: directiveName, Expression: expr}, nil
	case "transition", "in", "out":
		t := &Transition{NodeBase: base, Name: directiveName, Expression: expr,
			Intro: typ != "out", Outro: typ != "in"}
		for _, m := range modifiers {
			if m != "local" {
				return nil, util.Errorf(span, util.ErrInvalidAttribute, "Unknown transition modifier '%s'", m)
			}
			t.Local = true
		}
		return t, nil
	}
	return &Directive{NodeBase: base, Type: typ, Name: directiveName, Expression: expr}, nil
}

// markStores registers `$name` references in the template as store
// subscriptions of declared names.
func (p *parser) markStores() {
	seen := make(map[string]bool)
	for _, v := range p.component.Vars {
		seen[v.Name] = true
	}
	visit := func(expr ep.Expression) {
		ep.Inspect(expr, func(e ep.Expression) bool {
			id, ok := e.(*ep.Identifier)
			if !ok || !strings.HasPrefix(id.Name, "$") || strings.HasPrefix(id.Name, "$$") || seen[id.Name] {
				return true
			}
			if store := p.component.Var(id.Name[1:]); store != nil {
				seen[id.Name] = true
				p.component.Vars = append(p.component.Vars, &Var{
					Name:       id.Name,
					Kind:       VarStore,
					SourceSpan: p.file.Span(id.Loc.Start, id.Loc.End),
				})
			}
			return true
		})
	}
	ForEachExpression(p.component.Fragment, visit)
}

// ForEachExpression calls fn for every expression in the template, including
// attribute values, directive arguments and block headers.
func ForEachExpression(nodes []Node, fn func(ep.Expression)) {
	attrs := func(list []AttributeNode) {
		for _, attr := range list {
			switch a := attr.(type) {
			case *Attribute:
				for _, chunk := range a.Chunks {
					if chunk.Expression != nil {
						fn(chunk.Expression)
					}
				}
			case *EventHandler:
				if a.Expression != nil {
					fn(a.Expression)
				}
			case *Binding:
				fn(a.Expression)
			case *Transition:
				if a.Expression != nil {
					fn(a.Expression)
				}
			case *Class:
				if a.Expression != nil {
					fn(a.Expression)
				}
			case *Directive:
				if a.Expression != nil {
					fn(a.Expression)
				}
			}
		}
	}
	Walk(nodes, func(n Node) bool {
		switch n := n.(type) {
		case *Element:
			attrs(n.Attributes)
		case *InlineComponent:
			attrs(n.Attributes)
		case *Slot:
			attrs(n.Attributes)
		case *MustacheTag:
			fn(n.Expression)
		case *RawMustacheTag:
			fn(n.Expression)
		case *EachBlock:
			fn(n.Expression)
			if n.Key != nil {
				fn(n.Key)
			}
			for _, d := range n.Context.Defaults() {
				fn(d)
			}
		case *IfBlock:
			fn(n.Expression)
		case *AwaitBlock:
			fn(n.Expression)
		case *Text:
		}
		return true
	})
}
