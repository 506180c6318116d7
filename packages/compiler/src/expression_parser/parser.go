package expression_parser

import (
	"fmt"

	"sveltec-go/packages/compiler/src/core"
)

// ParserError describes a failure to parse an expression. Index is an
// absolute offset into the component source.
type ParserError struct {
	Message string
	Input   string
	Index   int
}

// NewParserError creates a new ParserError
func NewParserError(message, input string, index int) *ParserError {
	return &ParserError{Message: message, Input: input, Index: index}
}

func (e *ParserError) Error() string {
	return fmt.Sprintf("Parser Error: %s in [%s] at %d", e.Message, e.Input, e.Index)
}

// Parser parses template expressions and binding patterns.
type Parser struct {
	lexer *Lexer
}

// NewParser creates a new Parser
func NewParser(lexer *Lexer) *Parser {
	return &Parser{lexer: lexer}
}

// ParseExpression parses input as a full expression, including comma
// sequences. offset is the absolute position of input in the source file.
func (p *Parser) ParseExpression(input string, offset int) (Expression, error) {
	pa, err := p.newParseAST(input, offset)
	if err != nil {
		return nil, err
	}
	expr := pa.parseSequence()
	if pa.err == nil && pa.index < len(pa.tokens) {
		pa.error(fmt.Sprintf("Unexpected token '%s'", pa.next()))
	}
	if pa.err != nil {
		return nil, pa.err
	}
	return expr, nil
}

// ParsePattern parses a destructuring pattern such as the context of an
// each block: `item`, `{ id, name }` or `[a, , b]`.
func (p *Parser) ParsePattern(input string, offset int) (*Pattern, error) {
	pa, err := p.newParseAST(input, offset)
	if err != nil {
		return nil, err
	}
	pat := pa.parsePattern()
	if pa.err == nil && pa.index < len(pa.tokens) {
		pa.error(fmt.Sprintf("Unexpected token '%s'", pa.next()))
	}
	if pa.err != nil {
		return nil, pa.err
	}
	return pat, nil
}

func (p *Parser) newParseAST(input string, offset int) (*parseAST, error) {
	tokens := p.lexer.Tokenize(input)
	for _, tok := range tokens {
		if tok.Type == TokenTypeError {
			return nil, NewParserError(tok.StrValue, input, offset+tok.Index)
		}
	}
	if len(tokens) == 0 {
		return nil, NewParserError("Blank expressions are not allowed", input, offset)
	}
	return &parseAST{input: input, offset: offset, tokens: tokens}, nil
}

// binaryPrecedence follows the script operator table. Higher binds tighter.
var binaryPrecedence = map[string]int{
	"??":         1,
	"||":         2,
	"&&":         3,
	"|":          4,
	"^":          5,
	"&":          6,
	"==":         7,
	"!=":         7,
	"===":        7,
	"!==":        7,
	"<":          8,
	">":          8,
	"<=":         8,
	">=":         8,
	"in":         8,
	"instanceof": 8,
	"<<":         9,
	">>":         9,
	">>>":        9,
	"+":          10,
	"-":          10,
	"*":          11,
	"/":          11,
	"%":          11,
	"**":         12,
}

var assignmentOperators = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"**=": true, "<<=": true, ">>=": true, ">>>=": true, "&=": true, "|=": true,
	"^=": true, "&&=": true, "||=": true, "??=": true,
}

type parseAST struct {
	input  string
	offset int
	tokens []*Token
	index  int
	err    *ParserError
}

func (p *parseAST) peek(n int) *Token {
	if p.index+n < len(p.tokens) {
		return p.tokens[p.index+n]
	}
	return nil
}

func (p *parseAST) next() *Token {
	return p.peek(0)
}

func (p *parseAST) atEOF() bool {
	return p.index >= len(p.tokens)
}

// inputIndex is the absolute offset of the next token.
func (p *parseAST) inputIndex() int {
	if tok := p.next(); tok != nil {
		return p.offset + tok.Index
	}
	return p.offset + len(p.input)
}

// lastEnd is the absolute end of the last consumed token.
func (p *parseAST) lastEnd() int {
	if p.index == 0 {
		return p.offset
	}
	return p.offset + p.tokens[p.index-1].End
}

func (p *parseAST) span(start int) ParseSpan {
	return NewParseSpan(start, p.lastEnd())
}

func (p *parseAST) error(message string) {
	if p.err == nil {
		p.err = NewParserError(message, p.input, p.inputIndex())
	}
	// Skip to the end so every loop terminates.
	p.index = len(p.tokens)
}

func (p *parseAST) consumeOptionalCharacter(code int) bool {
	if tok := p.next(); tok != nil && tok.IsCharacter(code) {
		p.index++
		return true
	}
	return false
}

func (p *parseAST) consumeOptionalOperator(op string) bool {
	if tok := p.next(); tok != nil && tok.IsOperator(op) {
		p.index++
		return true
	}
	return false
}

func (p *parseAST) expectCharacter(code int) {
	if p.consumeOptionalCharacter(code) {
		return
	}
	if p.atEOF() {
		p.error(fmt.Sprintf("Missing expected %s", string(rune(code))))
		return
	}
	p.error(fmt.Sprintf("Missing expected %s, got '%s'", string(rune(code)), p.next()))
}

func (p *parseAST) expectIdentifierOrKeyword() string {
	tok := p.next()
	if tok == nil || (tok.Type != TokenTypeIdentifier && tok.Type != TokenTypeKeyword) {
		p.error("Expected identifier")
		return ""
	}
	p.index++
	return tok.StrValue
}

func (p *parseAST) parseSequence() Expression {
	start := p.inputIndex()
	first := p.parseAssignment()
	if tok := p.next(); tok == nil || !tok.IsCharacter(core.CharCOMMA) {
		return first
	}
	exprs := []Expression{first}
	for p.consumeOptionalCharacter(core.CharCOMMA) {
		exprs = append(exprs, p.parseAssignment())
	}
	return &SequenceExpression{Node: Node{p.span(start)}, Expressions: exprs}
}

func (p *parseAST) parseAssignment() Expression {
	if arrow := p.tryParseArrow(); arrow != nil {
		return arrow
	}
	start := p.inputIndex()
	target := p.parseConditional()
	tok := p.next()
	if tok == nil || tok.Type != TokenTypeOperator || !assignmentOperators[tok.StrValue] {
		return target
	}
	switch target.(type) {
	case *Identifier, *MemberExpression, *IndexExpression:
	default:
		p.error("Invalid assignment target")
		return target
	}
	p.index++
	value := p.parseAssignment()
	return &AssignmentExpression{Node: Node{p.span(start)}, Operator: tok.StrValue, Target: target, Value: value}
}

// tryParseArrow parses `x => body` or `(a, b) => body` when the tokens ahead
// form an arrow function head.
func (p *parseAST) tryParseArrow() Expression {
	tok := p.next()
	if tok == nil {
		return nil
	}
	start := p.inputIndex()
	if tok.IsIdentifier() {
		if nxt := p.peek(1); nxt != nil && nxt.IsOperator("=>") {
			p.index += 2
			param := &Pattern{Loc: NewParseSpan(p.offset+tok.Index, p.offset+tok.End), Kind: PatternIdentifier, Name: tok.StrValue}
			body := p.parseAssignment()
			return &ArrowFunction{Node: Node{p.span(start)}, Params: []*Pattern{param}, Body: body}
		}
		return nil
	}
	if !tok.IsCharacter(core.CharLPAREN) {
		return nil
	}
	// Find the matching paren and check for `=>` after it.
	depth := 0
	closing := -1
	for i := p.index; i < len(p.tokens); i++ {
		t := p.tokens[i]
		if t.IsCharacter(core.CharLPAREN) {
			depth++
		} else if t.IsCharacter(core.CharRPAREN) {
			depth--
			if depth == 0 {
				closing = i
				break
			}
		}
	}
	if closing < 0 || closing+1 >= len(p.tokens) || !p.tokens[closing+1].IsOperator("=>") {
		return nil
	}
	p.index++
	var params []*Pattern
	for !p.atEOF() && !p.next().IsCharacter(core.CharRPAREN) {
		params = append(params, p.parsePattern())
		if !p.consumeOptionalCharacter(core.CharCOMMA) {
			break
		}
	}
	p.expectCharacter(core.CharRPAREN)
	if !p.consumeOptionalOperator("=>") {
		p.error("Expected =>")
		return nil
	}
	if tok := p.next(); tok != nil && tok.IsCharacter(core.CharLBRACE) {
		p.error("Arrow functions with block bodies are not supported in template expressions")
		return nil
	}
	body := p.parseAssignment()
	return &ArrowFunction{Node: Node{p.span(start)}, Params: params, Body: body}
}

func (p *parseAST) parseConditional() Expression {
	start := p.inputIndex()
	test := p.parseBinary(1)
	if !p.consumeOptionalOperator("?") {
		return test
	}
	consequent := p.parseAssignment()
	p.expectCharacter(core.CharCOLON)
	alternate := p.parseAssignment()
	return &ConditionalExpression{Node: Node{p.span(start)}, Test: test, Consequent: consequent, Alternate: alternate}
}

func (p *parseAST) binaryOperator() (string, int) {
	tok := p.next()
	if tok == nil {
		return "", 0
	}
	if tok.Type == TokenTypeOperator || tok.IsKeyword("in") || tok.IsKeyword("instanceof") {
		if prec, ok := binaryPrecedence[tok.StrValue]; ok {
			return tok.StrValue, prec
		}
	}
	return "", 0
}

func (p *parseAST) parseBinary(minPrec int) Expression {
	start := p.inputIndex()
	left := p.parseUnary()
	for {
		op, prec := p.binaryOperator()
		if prec == 0 || prec < minPrec {
			return left
		}
		p.index++
		// `**` is right associative
		nextMin := prec + 1
		if op == "**" {
			nextMin = prec
		}
		right := p.parseBinary(nextMin)
		left = &BinaryExpression{Node: Node{p.span(start)}, Operator: op, Left: left, Right: right}
	}
}

func (p *parseAST) parseUnary() Expression {
	start := p.inputIndex()
	tok := p.next()
	if tok == nil {
		p.error("Unexpected end of expression")
		return &Literal{Node: Node{p.span(start)}, Kind: LiteralUndefined}
	}
	switch {
	case tok.IsOperator("!"), tok.IsOperator("-"), tok.IsOperator("+"), tok.IsOperator("~"),
		tok.IsKeyword("typeof"), tok.IsKeyword("void"), tok.IsKeyword("delete"):
		p.index++
		arg := p.parseUnary()
		return &UnaryExpression{Node: Node{p.span(start)}, Operator: tok.StrValue, Argument: arg}
	case tok.IsOperator("++"), tok.IsOperator("--"):
		p.index++
		arg := p.parseUnary()
		return &UpdateExpression{Node: Node{p.span(start)}, Operator: tok.StrValue, Prefix: true, Argument: arg}
	}
	expr := p.parseCallChain()
	if tok := p.next(); tok != nil && (tok.IsOperator("++") || tok.IsOperator("--")) {
		p.index++
		return &UpdateExpression{Node: Node{p.span(start)}, Operator: tok.StrValue, Argument: expr}
	}
	return expr
}

func (p *parseAST) parseCallChain() Expression {
	start := p.inputIndex()
	var expr Expression
	if p.next().IsKeyword("new") {
		expr = p.parseNew()
	} else {
		expr = p.parsePrimary()
	}
	for !p.atEOF() {
		switch {
		case p.consumeOptionalCharacter(core.CharPERIOD):
			name := p.expectIdentifierOrKeyword()
			expr = &MemberExpression{Node: Node{p.span(start)}, Object: expr, Property: name}
		case p.consumeOptionalOperator("?."):
			if p.consumeOptionalCharacter(core.CharLBRACKET) {
				index := p.parseSequence()
				p.expectCharacter(core.CharRBRACKET)
				expr = &IndexExpression{Node: Node{p.span(start)}, Object: expr, Index: index, Optional: true}
			} else if p.consumeOptionalCharacter(core.CharLPAREN) {
				args := p.parseArguments()
				expr = &CallExpression{Node: Node{p.span(start)}, Callee: expr, Arguments: args, Optional: true}
			} else {
				name := p.expectIdentifierOrKeyword()
				expr = &MemberExpression{Node: Node{p.span(start)}, Object: expr, Property: name, Optional: true}
			}
		case p.consumeOptionalCharacter(core.CharLBRACKET):
			index := p.parseSequence()
			p.expectCharacter(core.CharRBRACKET)
			expr = &IndexExpression{Node: Node{p.span(start)}, Object: expr, Index: index}
		case p.consumeOptionalCharacter(core.CharLPAREN):
			args := p.parseArguments()
			expr = &CallExpression{Node: Node{p.span(start)}, Callee: expr, Arguments: args}
		default:
			return expr
		}
	}
	return expr
}

func (p *parseAST) parseNew() Expression {
	start := p.inputIndex()
	p.index++ // new
	var callee Expression
	if p.next() != nil && p.next().IsKeyword("new") {
		callee = p.parseNew()
	} else {
		callee = p.parsePrimary()
	}
	for !p.atEOF() {
		if p.consumeOptionalCharacter(core.CharPERIOD) {
			name := p.expectIdentifierOrKeyword()
			callee = &MemberExpression{Node: Node{p.span(start)}, Object: callee, Property: name}
		} else if p.consumeOptionalCharacter(core.CharLBRACKET) {
			index := p.parseSequence()
			p.expectCharacter(core.CharRBRACKET)
			callee = &IndexExpression{Node: Node{p.span(start)}, Object: callee, Index: index}
		} else {
			break
		}
	}
	var args []Expression
	if p.consumeOptionalCharacter(core.CharLPAREN) {
		args = p.parseArguments()
	}
	return &NewExpression{Node: Node{p.span(start)}, Callee: callee, Arguments: args}
}

// parseArguments parses a call argument list after the opening paren.
func (p *parseAST) parseArguments() []Expression {
	var args []Expression
	for !p.atEOF() && !p.next().IsCharacter(core.CharRPAREN) {
		args = append(args, p.parseSpreadOrAssignment())
		if !p.consumeOptionalCharacter(core.CharCOMMA) {
			break
		}
	}
	p.expectCharacter(core.CharRPAREN)
	return args
}

func (p *parseAST) parseSpreadOrAssignment() Expression {
	start := p.inputIndex()
	if p.consumeOptionalOperator("...") {
		arg := p.parseAssignment()
		return &SpreadElement{Node: Node{p.span(start)}, Argument: arg}
	}
	return p.parseAssignment()
}

func (p *parseAST) parsePrimary() Expression {
	start := p.inputIndex()
	tok := p.next()
	if tok == nil {
		p.error("Unexpected end of expression")
		return &Literal{Node: Node{p.span(start)}, Kind: LiteralUndefined}
	}
	switch {
	case tok.IsCharacter(core.CharLPAREN):
		p.index++
		expr := p.parseSequence()
		p.expectCharacter(core.CharRPAREN)
		return expr
	case tok.IsKeyword("null"):
		p.index++
		return &Literal{Node: Node{p.span(start)}, Kind: LiteralNull, Raw: "null"}
	case tok.IsKeyword("undefined"):
		p.index++
		return &Literal{Node: Node{p.span(start)}, Kind: LiteralUndefined, Raw: "undefined"}
	case tok.IsKeyword("true"), tok.IsKeyword("false"):
		p.index++
		return &Literal{Node: Node{p.span(start)}, Kind: LiteralBoolean, Value: tok.StrValue == "true", Raw: tok.StrValue}
	case tok.IsKeyword("this"):
		p.index++
		return &ThisExpr{Node: Node{p.span(start)}}
	case tok.IsCharacter(core.CharLBRACKET):
		p.index++
		return p.parseArrayLiteral(start)
	case tok.IsCharacter(core.CharLBRACE):
		p.index++
		return p.parseObjectLiteral(start)
	case tok.IsIdentifier():
		p.index++
		return &Identifier{Node: Node{p.span(start)}, Name: tok.StrValue}
	case tok.Type == TokenTypeNumber:
		p.index++
		return &Literal{Node: Node{p.span(start)}, Kind: LiteralNumber, Value: tok.NumValue, Raw: tok.Raw}
	case tok.IsTemplateLiteralPart(), tok.IsTemplateLiteralEnd():
		return p.parseTemplateLiteral()
	case tok.Type == TokenTypeString:
		p.index++
		return &Literal{Node: Node{p.span(start)}, Kind: LiteralString, Value: tok.StrValue, Raw: tok.Raw}
	case tok.Type == TokenTypeRegExpBody:
		p.index++
		raw := "/" + tok.StrValue + "/"
		if flags := p.next(); flags != nil && flags.Type == TokenTypeRegExpFlags {
			p.index++
			raw += flags.StrValue
		}
		return &Literal{Node: Node{p.span(start)}, Kind: LiteralRegExp, Value: raw, Raw: raw}
	}
	p.error(fmt.Sprintf("Unexpected token '%s'", tok))
	return &Literal{Node: Node{p.span(start)}, Kind: LiteralUndefined}
}

func (p *parseAST) parseArrayLiteral(start int) Expression {
	var elements []Expression
	for !p.atEOF() && !p.next().IsCharacter(core.CharRBRACKET) {
		if p.consumeOptionalCharacter(core.CharCOMMA) {
			elements = append(elements, nil)
			continue
		}
		elements = append(elements, p.parseSpreadOrAssignment())
		if !p.consumeOptionalCharacter(core.CharCOMMA) {
			break
		}
	}
	p.expectCharacter(core.CharRBRACKET)
	return &ArrayLiteral{Node: Node{p.span(start)}, Elements: elements}
}

func (p *parseAST) parseObjectLiteral(start int) Expression {
	var props []*Property
	for !p.atEOF() && !p.next().IsCharacter(core.CharRBRACE) {
		props = append(props, p.parseProperty())
		if !p.consumeOptionalCharacter(core.CharCOMMA) {
			break
		}
	}
	p.expectCharacter(core.CharRBRACE)
	return &ObjectLiteral{Node: Node{p.span(start)}, Properties: props}
}

func (p *parseAST) parseProperty() *Property {
	start := p.inputIndex()
	if p.consumeOptionalOperator("...") {
		arg := p.parseAssignment()
		return &Property{Computed: &SpreadElement{Node: Node{p.span(start)}, Argument: arg}}
	}
	tok := p.next()
	prop := &Property{}
	switch {
	case tok.IsCharacter(core.CharLBRACKET):
		p.index++
		prop.Computed = p.parseAssignment()
		p.expectCharacter(core.CharRBRACKET)
	case tok.Type == TokenTypeString:
		p.index++
		prop.Key = tok.StrValue
		prop.Quoted = true
	case tok.Type == TokenTypeNumber:
		p.index++
		prop.Key = tok.Raw
	default:
		prop.Key = p.expectIdentifierOrKeyword()
	}
	if p.consumeOptionalCharacter(core.CharCOLON) {
		prop.Value = p.parseAssignment()
		return prop
	}
	if tok.Type != TokenTypeIdentifier {
		p.error("Expected ':' after property key")
		return prop
	}
	prop.Shorthand = true
	prop.Value = &Identifier{Node: Node{NewParseSpan(p.offset+tok.Index, p.offset+tok.End)}, Name: tok.StrValue}
	return prop
}

func (p *parseAST) parseTemplateLiteral() Expression {
	start := p.inputIndex()
	lit := &TemplateLiteral{}
	for !p.atEOF() {
		tok := p.next()
		p.index++
		lit.Quasis = append(lit.Quasis, tok.StrValue)
		lit.RawQuasis = append(lit.RawQuasis, templateRaw(tok))
		if tok.IsTemplateLiteralEnd() {
			break
		}
		if !p.consumeOptionalOperator("${") {
			p.error("Expected template interpolation")
			break
		}
		lit.Expressions = append(lit.Expressions, p.parseSequence())
		if tok := p.next(); tok == nil || !tok.IsCharacter(core.CharRBRACE) {
			p.error("Unterminated template interpolation")
			break
		}
		p.index++
	}
	lit.Loc = p.span(start)
	return lit
}

// templateRaw strips the delimiters from a template part's source text.
func templateRaw(tok *Token) string {
	raw := tok.Raw
	if len(raw) > 0 && raw[0] == '`' {
		raw = raw[1:]
	}
	if tok.IsTemplateLiteralEnd() && len(raw) > 0 && raw[len(raw)-1] == '`' {
		raw = raw[:len(raw)-1]
	}
	return raw
}

func (p *parseAST) parsePattern() *Pattern {
	start := p.inputIndex()
	tok := p.next()
	if tok == nil {
		p.error("Expected binding pattern")
		return &Pattern{}
	}
	var pat *Pattern
	switch {
	case tok.IsOperator("..."):
		p.index++
		pat = p.parsePattern()
		pat.Rest = true
		pat.Loc = p.span(start)
		return pat
	case tok.IsIdentifier():
		p.index++
		pat = &Pattern{Kind: PatternIdentifier, Name: tok.StrValue}
	case tok.IsCharacter(core.CharLBRACE):
		p.index++
		pat = &Pattern{Kind: PatternObject}
		for !p.atEOF() && !p.next().IsCharacter(core.CharRBRACE) {
			if p.next().IsOperator("...") {
				pat.Elements = append(pat.Elements, &PatternElement{Value: p.parsePattern()})
			} else {
				keyTok := p.next()
				key := p.expectIdentifierOrKeyword()
				var value *Pattern
				if p.consumeOptionalCharacter(core.CharCOLON) {
					value = p.parsePattern()
				} else {
					value = &Pattern{Loc: NewParseSpan(p.offset+keyTok.Index, p.offset+keyTok.End), Kind: PatternIdentifier, Name: key}
					if p.consumeOptionalOperator("=") {
						value.Default = p.parseAssignment()
					}
				}
				pat.Elements = append(pat.Elements, &PatternElement{Key: key, Value: value})
			}
			if !p.consumeOptionalCharacter(core.CharCOMMA) {
				break
			}
		}
		p.expectCharacter(core.CharRBRACE)
	case tok.IsCharacter(core.CharLBRACKET):
		p.index++
		pat = &Pattern{Kind: PatternArray}
		for !p.atEOF() && !p.next().IsCharacter(core.CharRBRACKET) {
			if p.consumeOptionalCharacter(core.CharCOMMA) {
				pat.Elements = append(pat.Elements, nil)
				continue
			}
			pat.Elements = append(pat.Elements, &PatternElement{Value: p.parsePattern()})
			if !p.consumeOptionalCharacter(core.CharCOMMA) {
				break
			}
		}
		p.expectCharacter(core.CharRBRACKET)
	default:
		p.error(fmt.Sprintf("Unexpected token '%s' in binding pattern", tok))
		return &Pattern{}
	}
	if pat.Kind != PatternIdentifier && p.consumeOptionalOperator("=") {
		pat.Default = p.parseAssignment()
	} else if pat.Kind == PatternIdentifier && p.next() != nil && p.next().IsOperator("=") {
		p.index++
		pat.Default = p.parseAssignment()
	}
	pat.Loc = p.span(start)
	return pat
}
