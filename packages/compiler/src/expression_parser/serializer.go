package expression_parser

import (
	"strconv"
	"strings"
)

// Serialize renders an expression back to normalized source text. Operators
// are spaced and nested binary expressions are parenthesized, so the output
// is stable regardless of the original formatting.
func Serialize(expr Expression) string {
	var sb strings.Builder
	serialize(&sb, expr, false)
	return sb.String()
}

// SerializePattern renders a binding pattern back to source text.
func SerializePattern(p *Pattern) string {
	var sb strings.Builder
	serializePattern(&sb, p)
	return sb.String()
}

func serialize(sb *strings.Builder, expr Expression, nested bool) {
	switch e := expr.(type) {
	case nil:
	case *Identifier:
		sb.WriteString(e.Name)
	case *ThisExpr:
		sb.WriteString("this")
	case *Literal:
		sb.WriteString(serializeLiteral(e))
	case *TemplateLiteral:
		sb.WriteByte('`')
		for i, q := range e.RawQuasis {
			sb.WriteString(q)
			if i < len(e.Expressions) {
				sb.WriteString("${")
				serialize(sb, e.Expressions[i], false)
				sb.WriteByte('}')
			}
		}
		sb.WriteByte('`')
	case *ArrayLiteral:
		sb.WriteByte('[')
		for i, el := range e.Elements {
			if i > 0 {
				sb.WriteString(", ")
			}
			serialize(sb, el, false)
		}
		sb.WriteByte(']')
	case *ObjectLiteral:
		sb.WriteByte('{')
		for i, prop := range e.Properties {
			if i > 0 {
				sb.WriteString(", ")
			}
			serializeProperty(sb, prop)
		}
		sb.WriteByte('}')
	case *SpreadElement:
		sb.WriteString("...")
		serialize(sb, e.Argument, true)
	case *MemberExpression:
		serialize(sb, e.Object, true)
		if e.Optional {
			sb.WriteString("?.")
		} else {
			sb.WriteByte('.')
		}
		sb.WriteString(e.Property)
	case *IndexExpression:
		serialize(sb, e.Object, true)
		if e.Optional {
			sb.WriteString("?.")
		}
		sb.WriteByte('[')
		serialize(sb, e.Index, false)
		sb.WriteByte(']')
	case *CallExpression:
		serialize(sb, e.Callee, true)
		if e.Optional {
			sb.WriteString("?.")
		}
		serializeArgs(sb, e.Arguments)
	case *NewExpression:
		sb.WriteString("new ")
		serialize(sb, e.Callee, true)
		serializeArgs(sb, e.Arguments)
	case *UnaryExpression:
		sb.WriteString(e.Operator)
		if e.Operator == "typeof" || e.Operator == "void" || e.Operator == "delete" {
			sb.WriteByte(' ')
		}
		serialize(sb, e.Argument, true)
	case *UpdateExpression:
		if e.Prefix {
			sb.WriteString(e.Operator)
		}
		serialize(sb, e.Argument, true)
		if !e.Prefix {
			sb.WriteString(e.Operator)
		}
	case *BinaryExpression:
		wrap(sb, nested, func() {
			serialize(sb, e.Left, true)
			sb.WriteString(" " + e.Operator + " ")
			serialize(sb, e.Right, true)
		})
	case *AssignmentExpression:
		wrap(sb, nested, func() {
			serialize(sb, e.Target, true)
			sb.WriteString(" " + e.Operator + " ")
			serialize(sb, e.Value, false)
		})
	case *ConditionalExpression:
		wrap(sb, nested, func() {
			serialize(sb, e.Test, true)
			sb.WriteString(" ? ")
			serialize(sb, e.Consequent, true)
			sb.WriteString(" : ")
			serialize(sb, e.Alternate, true)
		})
	case *ArrowFunction:
		wrap(sb, nested, func() {
			sb.WriteByte('(')
			for i, param := range e.Params {
				if i > 0 {
					sb.WriteString(", ")
				}
				serializePattern(sb, param)
			}
			sb.WriteString(") => ")
			if _, ok := e.Body.(*ObjectLiteral); ok {
				sb.WriteByte('(')
				serialize(sb, e.Body, false)
				sb.WriteByte(')')
			} else {
				serialize(sb, e.Body, false)
			}
		})
	case *SequenceExpression:
		sb.WriteByte('(')
		for i, part := range e.Expressions {
			if i > 0 {
				sb.WriteString(", ")
			}
			serialize(sb, part, false)
		}
		sb.WriteByte(')')
	}
}

func wrap(sb *strings.Builder, nested bool, body func()) {
	if nested {
		sb.WriteByte('(')
	}
	body()
	if nested {
		sb.WriteByte(')')
	}
}

func serializeArgs(sb *strings.Builder, args []Expression) {
	sb.WriteByte('(')
	for i, arg := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		serialize(sb, arg, false)
	}
	sb.WriteByte(')')
}

func serializeProperty(sb *strings.Builder, prop *Property) {
	if prop.Value == nil {
		serialize(sb, prop.Computed, false)
		return
	}
	if prop.Shorthand {
		sb.WriteString(prop.Key)
		return
	}
	switch {
	case prop.Computed != nil:
		sb.WriteByte('[')
		serialize(sb, prop.Computed, false)
		sb.WriteByte(']')
	case prop.Quoted:
		sb.WriteString(strconv.Quote(prop.Key))
	default:
		sb.WriteString(prop.Key)
	}
	sb.WriteString(": ")
	serialize(sb, prop.Value, false)
}

func serializeLiteral(l *Literal) string {
	switch l.Kind {
	case LiteralNull:
		return "null"
	case LiteralUndefined:
		return "undefined"
	case LiteralBoolean:
		return strconv.FormatBool(l.Value.(bool))
	case LiteralNumber:
		if l.Raw != "" {
			return l.Raw
		}
		return strconv.FormatFloat(l.Value.(float64), 'f', -1, 64)
	case LiteralRegExp:
		return l.Raw
	default:
		return strconv.Quote(l.Value.(string))
	}
}

func serializePattern(sb *strings.Builder, p *Pattern) {
	if p.Rest {
		sb.WriteString("...")
	}
	switch p.Kind {
	case PatternIdentifier:
		sb.WriteString(p.Name)
	case PatternObject:
		sb.WriteString("{ ")
		for i, el := range p.Elements {
			if i > 0 {
				sb.WriteString(", ")
			}
			if el.Key == "" || (el.Value.Kind == PatternIdentifier && el.Value.Name == el.Key) {
				serializePattern(sb, el.Value)
				continue
			}
			sb.WriteString(el.Key + ": ")
			serializePattern(sb, el.Value)
		}
		sb.WriteString(" }")
	case PatternArray:
		sb.WriteByte('[')
		for i, el := range p.Elements {
			if i > 0 {
				sb.WriteString(", ")
			}
			if el != nil {
				serializePattern(sb, el.Value)
			}
		}
		sb.WriteByte(']')
	}
	if p.Default != nil {
		sb.WriteString(" = ")
		serialize(sb, p.Default, false)
	}
}
