package expression_parser

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"sveltec-go/packages/compiler/src/core"
)

// TokenType represents the type of a token
type TokenType int

const (
	TokenTypeCharacter TokenType = iota
	TokenTypeIdentifier
	TokenTypeKeyword
	TokenTypeString
	TokenTypeOperator
	TokenTypeNumber
	TokenTypeRegExpBody
	TokenTypeRegExpFlags
	TokenTypeError
)

// StringTokenKind represents the kind of a string token
type StringTokenKind int

const (
	StringTokenKindPlain StringTokenKind = iota
	StringTokenKindTemplateLiteralPart
	StringTokenKindTemplateLiteralEnd
)

var keywords = map[string]bool{
	"null":       true,
	"undefined":  true,
	"true":       true,
	"false":      true,
	"this":       true,
	"typeof":     true,
	"void":       true,
	"delete":     true,
	"in":         true,
	"instanceof": true,
	"new":        true,
}

// Token represents a token in the expression
type Token struct {
	Index    int
	End      int
	Type     TokenType
	NumValue float64
	StrValue string
	// Raw is the source text of a number or string token
	Raw string
	// StringKind is only valid for String tokens
	StringKind StringTokenKind
}

// NewToken creates a new Token
func NewToken(index, end int, typ TokenType, numValue float64, strValue string) *Token {
	return &Token{
		Index:    index,
		End:      end,
		Type:     typ,
		NumValue: numValue,
		StrValue: strValue,
	}
}

// IsCharacter checks if the token is a character with the given code
func (t *Token) IsCharacter(code int) bool {
	return t.Type == TokenTypeCharacter && int(t.NumValue) == code
}

// IsOperator checks if the token is an operator with the given value
func (t *Token) IsOperator(operator string) bool {
	return t.Type == TokenTypeOperator && t.StrValue == operator
}

// IsKeyword checks if the token is the given keyword
func (t *Token) IsKeyword(keyword string) bool {
	return t.Type == TokenTypeKeyword && t.StrValue == keyword
}

// IsIdentifier checks if the token is an identifier
func (t *Token) IsIdentifier() bool {
	return t.Type == TokenTypeIdentifier
}

// IsTemplateLiteralPart checks if the token is a template literal part
func (t *Token) IsTemplateLiteralPart() bool {
	return t.Type == TokenTypeString && t.StringKind == StringTokenKindTemplateLiteralPart
}

// IsTemplateLiteralEnd checks if the token is a template literal end
func (t *Token) IsTemplateLiteralEnd() bool {
	return t.Type == TokenTypeString && t.StringKind == StringTokenKindTemplateLiteralEnd
}

// String returns the string representation of the token
func (t *Token) String() string {
	switch t.Type {
	case TokenTypeNumber:
		return strconv.FormatFloat(t.NumValue, 'f', -1, 64)
	case TokenTypeCharacter:
		return string(rune(t.NumValue))
	default:
		return t.StrValue
	}
}

// Lexer tokenizes expressions
type Lexer struct{}

// NewLexer creates a new Lexer
func NewLexer() *Lexer {
	return &Lexer{}
}

// Tokenize tokenizes the given text
func (l *Lexer) Tokenize(text string) []*Token {
	return newScanner(text).scan()
}

type scanner struct {
	input      string
	length     int
	peek       rune
	width      int
	index      int
	tokens     []*Token
	braceStack []bool // true for a template literal interpolation
}

func newScanner(input string) *scanner {
	s := &scanner{
		input:  input,
		length: len(input),
	}
	s.decode()
	return s
}

func (s *scanner) decode() {
	if s.index >= s.length {
		s.peek = core.CharEOF
		s.width = 0
		return
	}
	s.peek, s.width = utf8.DecodeRuneInString(s.input[s.index:])
}

func (s *scanner) advance() {
	s.index += s.width
	s.decode()
}

func (s *scanner) peekAt(offset int) rune {
	if s.index+offset >= s.length {
		return core.CharEOF
	}
	return rune(s.input[s.index+offset])
}

func (s *scanner) scan() []*Token {
	for token := s.scanToken(); token != nil; token = s.scanToken() {
		s.tokens = append(s.tokens, token)
		if token.Type == TokenTypeError {
			break
		}
	}
	return s.tokens
}

func (s *scanner) scanToken() *Token {
	for s.index < s.length && core.IsWhitespace(int(s.peek)) {
		s.advance()
	}
	if s.index >= s.length {
		return nil
	}

	peek := s.peek
	start := s.index
	if core.IsIdentifierStart(int(peek)) {
		return s.scanIdentifier()
	}
	if core.IsDigit(int(peek)) {
		return s.scanNumber(start)
	}

	switch int(peek) {
	case core.CharPERIOD:
		if core.IsDigit(int(s.peekAt(1))) {
			return s.scanNumber(start)
		}
		if s.peekAt(1) == core.CharPERIOD && s.peekAt(2) == core.CharPERIOD {
			s.advance()
			s.advance()
			s.advance()
			return newOperatorToken(start, s.index, "...")
		}
		return s.scanCharacter(start, peek)
	case core.CharLPAREN, core.CharRPAREN, core.CharLBRACKET, core.CharRBRACKET, core.CharCOMMA, core.CharCOLON, core.CharSEMICOLON:
		return s.scanCharacter(start, peek)
	case core.CharLBRACE:
		s.braceStack = append(s.braceStack, false)
		return s.scanCharacter(start, peek)
	case core.CharRBRACE:
		return s.scanCloseBrace(start)
	case core.CharSQ, core.CharDQ:
		return s.scanString()
	case core.CharBT:
		s.advance()
		return s.scanTemplateLiteralPart(start)
	case core.CharPLUS:
		return s.scanIncrement(start, "+")
	case core.CharMINUS:
		return s.scanIncrement(start, "-")
	case core.CharSLASH:
		if s.isStartOfRegex() {
			return s.scanRegex(start)
		}
		return s.scanComplexOperator(start, "/", core.CharEQ, "=")
	case core.CharPERCENT:
		return s.scanComplexOperator(start, "%", core.CharEQ, "=")
	case core.CharCARET:
		return s.scanComplexOperator(start, "^", core.CharEQ, "=")
	case core.CharTILDA:
		s.advance()
		return newOperatorToken(start, s.index, "~")
	case core.CharSTAR:
		return s.scanStar(start)
	case core.CharQUESTION:
		return s.scanQuestion(start)
	case core.CharLT:
		return s.scanShift(start, "<", 2)
	case core.CharGT:
		return s.scanShift(start, ">", 3)
	case core.CharBANG:
		return s.scanComplexOperator(start, "!", core.CharEQ, "=", core.CharEQ)
	case core.CharEQ:
		if s.peekAt(1) == core.CharGT {
			s.advance()
			s.advance()
			return newOperatorToken(start, s.index, "=>")
		}
		return s.scanComplexOperator(start, "=", core.CharEQ, "=", core.CharEQ)
	case core.CharAMPERSAND:
		return s.scanLogical(start, "&")
	case core.CharBAR:
		return s.scanLogical(start, "|")
	}

	s.advance()
	return s.error("Unexpected character ["+string(peek)+"]", -1)
}

func (s *scanner) scanCharacter(start int, code rune) *Token {
	s.advance()
	return newCharacterToken(start, s.index, code)
}

func (s *scanner) scanCloseBrace(start int) *Token {
	s.advance()
	if n := len(s.braceStack); n > 0 {
		interpolation := s.braceStack[n-1]
		s.braceStack = s.braceStack[:n-1]
		if interpolation {
			s.tokens = append(s.tokens, newCharacterToken(start, s.index, core.CharRBRACE))
			return s.scanTemplateLiteralPart(s.index)
		}
	}
	return newCharacterToken(start, s.index, core.CharRBRACE)
}

func (s *scanner) scanComplexOperator(start int, one string, twoCode int, two string, threeCode ...int) *Token {
	s.advance()
	str := one
	if int(s.peek) == twoCode {
		s.advance()
		str += two
		if len(threeCode) > 0 && int(s.peek) == threeCode[0] {
			s.advance()
			str += string(rune(threeCode[0]))
		}
	}
	return newOperatorToken(start, s.index, str)
}

// scanIncrement handles `+`, `++`, `+=` and their minus counterparts.
func (s *scanner) scanIncrement(start int, one string) *Token {
	s.advance()
	str := one
	if string(s.peek) == one {
		s.advance()
		str += one
	} else if s.peek == core.CharEQ {
		s.advance()
		str += "="
	}
	return newOperatorToken(start, s.index, str)
}

// scanLogical handles `&`, `&&`, `&=`, `&&=` and their bar counterparts.
func (s *scanner) scanLogical(start int, one string) *Token {
	s.advance()
	str := one
	if string(s.peek) == one {
		s.advance()
		str += one
	}
	if s.peek == core.CharEQ {
		s.advance()
		str += "="
	}
	return newOperatorToken(start, s.index, str)
}

// scanShift handles comparison and shift operators up to `>>>=`.
func (s *scanner) scanShift(start int, one string, maxRepeat int) *Token {
	s.advance()
	str := one
	for n := 1; n < maxRepeat && string(s.peek) == one; n++ {
		s.advance()
		str += one
	}
	if s.peek == core.CharEQ {
		s.advance()
		str += "="
	}
	return newOperatorToken(start, s.index, str)
}

func (s *scanner) scanIdentifier() *Token {
	start := s.index
	s.advance()
	for core.IsIdentifierPart(int(s.peek)) {
		s.advance()
	}
	str := s.input[start:s.index]
	if keywords[str] {
		return newKeywordToken(start, s.index, str)
	}
	return newIdentifierToken(start, s.index, str)
}

func (s *scanner) scanNumber(start int) *Token {
	if s.peek == core.Char0 && (s.peekAt(1) == core.CharLowerX || s.peekAt(1) == core.CharX) {
		s.advance()
		s.advance()
		for core.IsAsciiHexDigit(int(s.peek)) {
			s.advance()
		}
		raw := s.input[start:s.index]
		val, err := strconv.ParseInt(raw[2:], 16, 64)
		if err != nil {
			return s.error("Invalid hexadecimal number", 0)
		}
		tok := newNumberToken(start, s.index, float64(val))
		tok.Raw = raw
		return tok
	}

	simple := true
	hasSeparators := false
	for {
		if core.IsDigit(int(s.peek)) {
			// Do nothing
		} else if s.peek == core.CharUnderscore {
			// Separators are only valid when they're surrounded by digits
			if s.index == 0 || !core.IsDigit(int(s.input[s.index-1])) || !core.IsDigit(int(s.peekAt(1))) {
				return s.error("Invalid numeric separator", 0)
			}
			hasSeparators = true
		} else if s.peek == core.CharPERIOD {
			simple = false
		} else if isExponentStart(s.peek) {
			s.advance()
			if isExponentSign(s.peek) {
				s.advance()
			}
			if !core.IsDigit(int(s.peek)) {
				return s.error("Invalid exponent", -1)
			}
			simple = false
		} else {
			break
		}
		s.advance()
	}

	raw := s.input[start:s.index]
	str := raw
	if hasSeparators {
		str = strings.ReplaceAll(str, "_", "")
	}
	var value float64
	if simple {
		val, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return s.error("Invalid number ["+raw+"]", 0)
		}
		value = float64(val)
	} else {
		val, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return s.error("Invalid number ["+raw+"]", 0)
		}
		value = val
	}
	tok := newNumberToken(start, s.index, value)
	tok.Raw = raw
	return tok
}

func (s *scanner) scanString() *Token {
	start := s.index
	quote := s.peek
	s.advance() // Skip initial quote

	var buffer strings.Builder
	marker := s.index
	for s.peek != quote {
		if s.peek == core.CharBACKSLASH {
			buffer.WriteString(s.input[marker:s.index])
			if errTok := s.scanStringBackslash(&buffer); errTok != nil {
				return errTok
			}
			marker = s.index
		} else if s.index >= s.length {
			return s.error("Unterminated quote", 0)
		} else {
			s.advance()
		}
	}
	buffer.WriteString(s.input[marker:s.index])
	s.advance() // Skip terminating quote

	tok := NewToken(start, s.index, TokenTypeString, 0, buffer.String())
	tok.Raw = s.input[start:s.index]
	return tok
}

func (s *scanner) scanQuestion(start int) *Token {
	s.advance()
	operator := "?"
	// `a ?? b` or `a ??= b`
	if s.peek == core.CharQUESTION {
		operator += "?"
		s.advance()
		if s.peek == core.CharEQ {
			operator += "="
			s.advance()
		}
	} else if s.peek == core.CharPERIOD && !core.IsDigit(int(s.peekAt(1))) {
		// `a?.b`
		operator += "."
		s.advance()
	}
	return newOperatorToken(start, s.index, operator)
}

func (s *scanner) scanStar(start int) *Token {
	s.advance()
	operator := "*"
	// `*`, `**`, `**=` or `*=`
	if s.peek == core.CharSTAR {
		operator += "*"
		s.advance()
	}
	if s.peek == core.CharEQ {
		operator += "="
		s.advance()
	}
	return newOperatorToken(start, s.index, operator)
}

func (s *scanner) scanTemplateLiteralPart(start int) *Token {
	var buffer strings.Builder
	marker := s.index

	for s.peek != core.CharBT {
		if s.peek == core.CharBACKSLASH {
			buffer.WriteString(s.input[marker:s.index])
			if errTok := s.scanStringBackslash(&buffer); errTok != nil {
				return errTok
			}
			marker = s.index
		} else if s.peek == core.CharDollar && s.peekAt(1) == core.CharLBRACE {
			dollar := s.index
			buffer.WriteString(s.input[marker:dollar])
			part := NewToken(start, dollar, TokenTypeString, 0, buffer.String())
			part.StringKind = StringTokenKindTemplateLiteralPart
			part.Raw = s.input[start:dollar]
			s.tokens = append(s.tokens, part)
			s.braceStack = append(s.braceStack, true)
			s.advance()
			s.advance()
			return newOperatorToken(dollar, s.index, "${")
		} else if s.index >= s.length {
			return s.error("Unterminated template literal", 0)
		} else {
			s.advance()
		}
	}

	buffer.WriteString(s.input[marker:s.index])
	end := NewToken(start, s.index, TokenTypeString, 0, buffer.String())
	end.StringKind = StringTokenKindTemplateLiteralEnd
	end.Raw = s.input[start:s.index]
	s.advance()
	end.End = s.index
	return end
}

func (s *scanner) scanStringBackslash(buffer *strings.Builder) *Token {
	s.advance()
	if s.peek == core.CharLowerU {
		// 4 character hex code for unicode character
		if s.index+5 > s.length {
			return s.error("Invalid unicode escape", 0)
		}
		hex := s.input[s.index+1 : s.index+5]
		val, err := strconv.ParseInt(hex, 16, 32)
		if err != nil {
			return s.error("Invalid unicode escape [\\u"+hex+"]", 0)
		}
		buffer.WriteRune(rune(val))
		for i := 0; i < 5; i++ {
			s.advance()
		}
		return nil
	}
	if s.index >= s.length {
		return s.error("Unterminated escape", 0)
	}
	buffer.WriteRune(unescape(s.peek))
	s.advance()
	return nil
}

func (s *scanner) isStartOfRegex() bool {
	if len(s.tokens) == 0 {
		return true
	}
	prev := s.tokens[len(s.tokens)-1]
	// Only consider the slash a regex if it's preceded by an operator, an
	// opening paren or bracket, a comma or a colon.
	return prev.Type == TokenTypeOperator ||
		prev.Type == TokenTypeKeyword && (prev.StrValue == "typeof" || prev.StrValue == "void" || prev.StrValue == "in") ||
		prev.IsCharacter(core.CharLPAREN) ||
		prev.IsCharacter(core.CharLBRACKET) ||
		prev.IsCharacter(core.CharLBRACE) ||
		prev.IsCharacter(core.CharCOMMA) ||
		prev.IsCharacter(core.CharCOLON)
}

func (s *scanner) scanRegex(tokenStart int) *Token {
	s.advance()
	textStart := s.index
	inEscape := false
	inCharacterClass := false

	for {
		peek := s.peek
		if s.index >= s.length {
			return s.error("Unterminated regular expression", 0)
		}
		if inEscape {
			inEscape = false
		} else if peek == core.CharBACKSLASH {
			inEscape = true
		} else if peek == core.CharLBRACKET {
			inCharacterClass = true
		} else if peek == core.CharRBRACKET {
			inCharacterClass = false
		} else if peek == core.CharSLASH && !inCharacterClass {
			break
		}
		s.advance()
	}

	value := s.input[textStart:s.index]
	s.advance()
	body := NewToken(tokenStart, s.index, TokenTypeRegExpBody, 0, value)
	if !core.IsAsciiLetter(int(s.peek)) {
		return body
	}
	s.tokens = append(s.tokens, body)
	flagsStart := s.index
	for core.IsAsciiLetter(int(s.peek)) {
		s.advance()
	}
	return NewToken(flagsStart, s.index, TokenTypeRegExpFlags, 0, s.input[flagsStart:s.index])
}

func (s *scanner) error(message string, offset int) *Token {
	position := s.index + offset
	return NewToken(
		position,
		s.index,
		TokenTypeError,
		0,
		"Lexer Error: "+message+" at column "+strconv.Itoa(position)+" in expression ["+s.input+"]",
	)
}

func newCharacterToken(index, end int, code rune) *Token {
	return NewToken(index, end, TokenTypeCharacter, float64(code), string(code))
}

func newIdentifierToken(index, end int, text string) *Token {
	return NewToken(index, end, TokenTypeIdentifier, 0, text)
}

func newKeywordToken(index, end int, text string) *Token {
	return NewToken(index, end, TokenTypeKeyword, 0, text)
}

func newOperatorToken(index, end int, text string) *Token {
	return NewToken(index, end, TokenTypeOperator, 0, text)
}

func newNumberToken(index, end int, n float64) *Token {
	return NewToken(index, end, TokenTypeNumber, n, "")
}

func isExponentStart(code rune) bool {
	return code == core.CharE || code == core.CharLowerE
}

func isExponentSign(code rune) bool {
	return code == core.CharMINUS || code == core.CharPLUS
}

func unescape(code rune) rune {
	switch code {
	case core.CharLowerN:
		return core.CharLF
	case core.CharLowerF:
		return core.CharFF
	case core.CharLowerR:
		return core.CharCR
	case core.CharLowerT:
		return core.CharTAB
	case core.CharLowerV:
		return core.CharVTAB
	case core.CharLowerB:
		return '\b'
	case core.Char0:
		return 0
	default:
		return code
	}
}
