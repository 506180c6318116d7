package output

import (
	"regexp"
	"strings"
)

var (
	singleQuoteEscapeStringRe = regexp.MustCompile(`'|\\|\n|\r|\x{2028}|\x{2029}|\$`)
	legalIdentifierRe         = regexp.MustCompile(`(?i)^[$A-Z_][0-9A-Z_$]*$`)
	indexKeyRe                = regexp.MustCompile(`^(0|[1-9][0-9]*)$`)
	templateRawEscapeRe       = regexp.MustCompile("`|\\\\|\\$\\{")
	indentWith                = "  "
)

// maxLineLength is the column after which argument and entry lists wrap.
const maxLineLength = 80

var binaryOperators = map[BinaryOperator]string{
	BinaryOperatorAnd:                          "&&",
	BinaryOperatorBigger:                       ">",
	BinaryOperatorBiggerEquals:                 ">=",
	BinaryOperatorBitwiseOr:                    "|",
	BinaryOperatorBitwiseAnd:                   "&",
	BinaryOperatorBitwiseXor:                   "^",
	BinaryOperatorLeftShift:                    "<<",
	BinaryOperatorRightShift:                   ">>",
	BinaryOperatorUnsignedRightShift:           ">>>",
	BinaryOperatorDivide:                       "/",
	BinaryOperatorAssign:                       "=",
	BinaryOperatorEquals:                       "==",
	BinaryOperatorIdentical:                    "===",
	BinaryOperatorLower:                        "<",
	BinaryOperatorLowerEquals:                  "<=",
	BinaryOperatorMinus:                        "-",
	BinaryOperatorModulo:                       "%",
	BinaryOperatorExponentiation:               "**",
	BinaryOperatorMultiply:                     "*",
	BinaryOperatorNotEquals:                    "!=",
	BinaryOperatorNotIdentical:                 "!==",
	BinaryOperatorNullishCoalesce:              "??",
	BinaryOperatorOr:                           "||",
	BinaryOperatorPlus:                         "+",
	BinaryOperatorIn:                           "in",
	BinaryOperatorInstanceOf:                   "instanceof",
	BinaryOperatorAdditionAssignment:           "+=",
	BinaryOperatorSubtractionAssignment:        "-=",
	BinaryOperatorMultiplicationAssignment:     "*=",
	BinaryOperatorDivisionAssignment:           "/=",
	BinaryOperatorRemainderAssignment:          "%=",
	BinaryOperatorExponentiationAssignment:     "**=",
	BinaryOperatorLeftShiftAssignment:          "<<=",
	BinaryOperatorRightShiftAssignment:         ">>=",
	BinaryOperatorUnsignedRightShiftAssignment: ">>>=",
	BinaryOperatorBitwiseAndAssignment:         "&=",
	BinaryOperatorBitwiseOrAssignment:          "|=",
	BinaryOperatorBitwiseXorAssignment:         "^=",
	BinaryOperatorAndAssignment:                "&&=",
	BinaryOperatorOrAssignment:                 "||=",
	BinaryOperatorNullishCoalesceAssignment:    "??=",
}

var binaryOperatorsByToken = func() map[string]BinaryOperator {
	out := make(map[string]BinaryOperator, len(binaryOperators))
	for op, tok := range binaryOperators {
		out[tok] = op
	}
	return out
}()

// BinaryOperatorFromToken maps a source operator token to its BinaryOperator
func BinaryOperatorFromToken(token string) (BinaryOperator, bool) {
	op, ok := binaryOperatorsByToken[token]
	return op, ok
}

// EmittedLine represents a line being emitted
type EmittedLine struct {
	PartsLength int
	Parts       []string
	Indent      int
}

// NewEmittedLine creates a new EmittedLine
func NewEmittedLine(indent int) *EmittedLine {
	return &EmittedLine{Indent: indent}
}

// EmitterVisitorContext represents the context for emitting code
type EmitterVisitorContext struct {
	lines  []*EmittedLine
	indent int
}

// CreateRootEmitterVisitorContext creates a root EmitterVisitorContext
func CreateRootEmitterVisitorContext() *EmitterVisitorContext {
	return NewEmitterVisitorContext(0)
}

// NewEmitterVisitorContext creates a new EmitterVisitorContext
func NewEmitterVisitorContext(indent int) *EmitterVisitorContext {
	return &EmitterVisitorContext{
		lines:  []*EmittedLine{NewEmittedLine(indent)},
		indent: indent,
	}
}

func (ctx *EmitterVisitorContext) currentLine() *EmittedLine {
	return ctx.lines[len(ctx.lines)-1]
}

// Println prints a part and ends the line
func (ctx *EmitterVisitorContext) Println(lastPart string) {
	ctx.Print(lastPart, true)
}

// LineIsEmpty checks if the current line is empty
func (ctx *EmitterVisitorContext) LineIsEmpty() bool {
	return len(ctx.currentLine().Parts) == 0
}

// LineLength returns the length of the current line
func (ctx *EmitterVisitorContext) LineLength() int {
	line := ctx.currentLine()
	return line.Indent*len(indentWith) + line.PartsLength
}

// Print prints to the context
func (ctx *EmitterVisitorContext) Print(part string, newLine bool) {
	if len(part) > 0 {
		line := ctx.currentLine()
		line.Parts = append(line.Parts, part)
		line.PartsLength += len(part)
	}
	if newLine {
		ctx.lines = append(ctx.lines, NewEmittedLine(ctx.indent))
	}
}

// RemoveEmptyLastLine removes the empty last line
func (ctx *EmitterVisitorContext) RemoveEmptyLastLine() {
	if ctx.LineIsEmpty() && len(ctx.lines) > 1 {
		ctx.lines = ctx.lines[:len(ctx.lines)-1]
	}
}

// IncIndent increases the indent
func (ctx *EmitterVisitorContext) IncIndent() {
	ctx.indent++
	if ctx.LineIsEmpty() {
		ctx.currentLine().Indent = ctx.indent
	}
}

// DecIndent decreases the indent
func (ctx *EmitterVisitorContext) DecIndent() {
	ctx.indent--
	if ctx.LineIsEmpty() {
		ctx.currentLine().Indent = ctx.indent
	}
}

// ToSource converts the context to source code
func (ctx *EmitterVisitorContext) ToSource() string {
	lines := ctx.sourceLines()
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		if len(line.Parts) > 0 {
			result = append(result, createIndent(line.Indent)+strings.Join(line.Parts, ""))
		} else {
			result = append(result, "")
		}
	}
	return strings.Join(result, "\n")
}

// sourceLines returns the source lines (excluding empty last line)
func (ctx *EmitterVisitorContext) sourceLines() []*EmittedLine {
	if len(ctx.lines) > 0 && len(ctx.lines[len(ctx.lines)-1].Parts) == 0 {
		return ctx.lines[:len(ctx.lines)-1]
	}
	return ctx.lines
}

// visitAll prints items separated by separator, breaking the line and
// indenting twice once the current line grows past maxLineLength.
func visitAll[T any](ctx *EmitterVisitorContext, items []T, separator string, handler func(T)) {
	incrementedIndent := false
	for i, item := range items {
		if i > 0 {
			if ctx.LineLength() > maxLineLength {
				ctx.Print(strings.TrimRight(separator, " "), true)
				if !incrementedIndent {
					ctx.IncIndent()
					ctx.IncIndent()
					incrementedIndent = true
				}
			} else {
				ctx.Print(separator, false)
			}
		}
		handler(item)
	}
	if incrementedIndent {
		ctx.DecIndent()
		ctx.DecIndent()
	}
}

// EscapeIdentifier escapes an identifier
func EscapeIdentifier(input string, escapeDollar bool, alwaysQuote bool) string {
	if input == "" {
		if alwaysQuote {
			return "''"
		}
		return ""
	}

	body := singleQuoteEscapeStringRe.ReplaceAllStringFunc(input, func(match string) string {
		switch match {
		case "$":
			if escapeDollar {
				return "\\$"
			}
			return "$"
		case "\n":
			return "\\n"
		case "\r":
			return "\\r"
		case "\u2028":
			return "\\u2028"
		case "\u2029":
			return "\\u2029"
		default:
			return "\\" + match
		}
	})

	requiresQuotes := alwaysQuote || !legalIdentifierRe.MatchString(body)
	if requiresQuotes {
		return "'" + body + "'"
	}
	return body
}

// EscapeTemplateRaw escapes text for use between the backticks of a template
// literal.
func EscapeTemplateRaw(input string) string {
	return templateRawEscapeRe.ReplaceAllStringFunc(input, func(match string) string {
		return "\\" + match
	})
}

// dedent removes the indentation shared by every non-blank line.
func dedent(text string) []string {
	lines := strings.Split(strings.Trim(text, "\n"), "\n")
	common := -1
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		n := len(line) - len(trimmed)
		if common < 0 || n < common {
			common = n
		}
	}
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
		} else if common > 0 {
			lines[i] = strings.TrimRight(line[common:], " \t")
		} else {
			lines[i] = strings.TrimRight(line, " \t")
		}
	}
	return lines
}

// createIndent creates an indent string
func createIndent(count int) string {
	return strings.Repeat(indentWith, count)
}
