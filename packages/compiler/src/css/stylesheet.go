// Package css scopes a component stylesheet to the component's own elements.
//
// Every compound selector receives the component's scoping class, and every
// element that a compound selector may refer to is flagged so that code
// generation adds the same class to it. The "may refer to" test looks only at
// tag names, classes and ids; attribute selectors and pseudo-classes are
// assumed to match. Over-approximating only costs an unused class attribute.
package css

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"sveltec-go/packages/compiler/src/template"
)

var (
	keyframesRe     = regexp.MustCompile(`^@(-webkit-)?keyframes\s+(-global-)?([\w-]+)\s*$`)
	animationPropRe = regexp.MustCompile(`((?:^|[\s;])(?:-webkit-)?animation(?:-name)?\s*:\s*)([^;]+)`)
)

// scopedAtRules hold nested rules that are scoped like top-level rules.
var scopedAtRules = []string{"@media", "@supports", "@document", "@layer", "@container"}

// Stylesheet is a component stylesheet after scoping.
type Stylesheet struct {
	Class string
	Text  string

	keyframes map[string]string
	compounds []compound
}

// ScopeClass derives the scoping class from the stylesheet text, so that
// identical sources always produce the same class.
func ScopeClass(text string) string {
	hash := strconv.FormatUint(xxhash.Sum64String(text), 36)
	if len(hash) > 6 {
		hash = hash[:6]
	}
	return "svelte-" + hash
}

// Process scopes the component's style, flags the elements it may refer to
// and replaces the style text with the scoped version. It returns nil when
// the component has no style.
func Process(c *template.Component) *Stylesheet {
	if c.Style == nil || strings.TrimSpace(c.Style.Content) == "" {
		return nil
	}
	text := StripComments(c.Style.Content)
	sheet := &Stylesheet{
		Class:     ScopeClass(c.Style.Content),
		keyframes: make(map[string]string),
	}
	text = sheet.scopeKeyframes(text)
	sheet.Text = strings.TrimSpace(sheet.scopeRules(text))
	c.Style.Content = sheet.Text
	sheet.markElements(c.Fragment)
	return sheet
}

func (s *Stylesheet) scopeKeyframes(text string) string {
	text = ProcessRules(text, func(rule *Rule) *Rule {
		m := keyframesRe.FindStringSubmatch(strings.TrimSpace(rule.Selector))
		if m == nil {
			return rule
		}
		prefix, name := "@"+m[1]+"keyframes ", m[3]
		if m[2] != "" {
			return &Rule{Selector: prefix + name, Content: rule.Content}
		}
		scoped := s.Class + "-" + name
		s.keyframes[name] = scoped
		return &Rule{Selector: prefix + scoped, Content: rule.Content}
	})
	if len(s.keyframes) == 0 {
		return text
	}
	var rename func(text string) string
	rename = func(text string) string {
		return ProcessRules(text, func(rule *Rule) *Rule {
			if strings.HasPrefix(strings.TrimSpace(rule.Selector), "@") && !strings.Contains(rule.Selector, "keyframes") {
				return &Rule{Selector: rule.Selector, Content: rename(rule.Content)}
			}
			content := animationPropRe.ReplaceAllStringFunc(rule.Content, func(match string) string {
				m := animationPropRe.FindStringSubmatch(match)
				words := strings.FieldsFunc(m[2], func(r rune) bool { return r == ' ' || r == ',' || r == '\t' || r == '\n' })
				value := m[2]
				for _, word := range words {
					if scoped, ok := s.keyframes[word]; ok {
						value = replaceWord(value, word, scoped)
					}
				}
				return m[1] + value
			})
			return &Rule{Selector: rule.Selector, Content: content}
		})
	}
	return rename(text)
}

// replaceWord replaces whole-word occurrences of word in text.
func replaceWord(text, word, with string) string {
	var sb strings.Builder
	for {
		i := strings.Index(text, word)
		if i < 0 {
			sb.WriteString(text)
			return sb.String()
		}
		end := i + len(word)
		before := i == 0 || !isNameChar(text[i-1])
		after := end == len(text) || !isNameChar(text[end])
		sb.WriteString(text[:i])
		if before && after {
			sb.WriteString(with)
		} else {
			sb.WriteString(word)
		}
		text = text[end:]
	}
}

func isNameChar(c byte) bool {
	return c == '-' || c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func (s *Stylesheet) scopeRules(text string) string {
	return ProcessRules(text, func(rule *Rule) *Rule {
		selector := strings.TrimSpace(rule.Selector)
		if !strings.HasPrefix(selector, "@") {
			return &Rule{Selector: s.scopeSelector(selector), Content: rule.Content}
		}
		for _, at := range scopedAtRules {
			if strings.HasPrefix(selector, at) {
				return &Rule{Selector: rule.Selector, Content: s.scopeRules(rule.Content)}
			}
		}
		return rule
	})
}

func (s *Stylesheet) scopeSelector(selector string) string {
	parts := splitOnTopLevelCommas(selector)
	for i, part := range parts {
		parts[i] = s.scopeComplex(strings.TrimSpace(part))
	}
	return strings.Join(parts, ", ")
}

func isCombinator(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '>' || c == '+' || c == '~'
}

// scopeComplex scopes each compound of a complex selector such as `ul > li a`.
func (s *Stylesheet) scopeComplex(selector string) string {
	var sb strings.Builder
	for i := 0; i < len(selector); {
		if isCombinator(selector[i]) {
			sb.WriteByte(selector[i])
			i++
			continue
		}
		start := i
		depth := 0
		for i < len(selector) {
			c := selector[i]
			if c == '(' || c == '[' {
				depth++
			} else if c == ')' || c == ']' {
				depth--
			} else if depth == 0 && isCombinator(c) {
				break
			}
			i++
		}
		sb.WriteString(s.scopeCompound(selector[start:i]))
	}
	return sb.String()
}

func (s *Stylesheet) scopeCompound(text string) string {
	if strings.HasPrefix(text, ":global(") && strings.HasSuffix(text, ")") {
		return text[len(":global(") : len(text)-1]
	}
	s.compounds = append(s.compounds, parseCompound(text))
	pos := len(text)
	depth := 0
scan:
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
		case ':':
			if depth == 0 {
				pos = i
				break scan
			}
		}
	}
	head := text[:pos]
	if head == "*" {
		head = ""
	}
	return head + "." + s.Class + text[pos:]
}

// compound is the part of a compound selector that decides which elements
// it may refer to.
type compound struct {
	tag     string
	classes []string
	ids     []string
}

func parseCompound(text string) compound {
	var c compound
	i := 0
	readName := func() string {
		start := i
		for i < len(text) && (isNameChar(text[i]) || text[i] == '\\') {
			i++
		}
		return text[start:i]
	}
	if i < len(text) && text[i] != '.' && text[i] != '#' && text[i] != '[' && text[i] != ':' && text[i] != '*' {
		c.tag = strings.ToLower(readName())
	}
	depth := 0
	for i < len(text) {
		switch ch := text[i]; {
		case ch == '[' || ch == '(':
			depth++
			i++
		case ch == ']' || ch == ')':
			depth--
			i++
		case depth == 0 && ch == '.':
			i++
			c.classes = append(c.classes, readName())
		case depth == 0 && ch == '#':
			i++
			c.ids = append(c.ids, readName())
		default:
			i++
		}
	}
	return c
}

func (s *Stylesheet) markElements(nodes []template.Node) {
	template.Walk(nodes, func(n template.Node) bool {
		el, ok := n.(*template.Element)
		if !ok {
			return true
		}
		for _, c := range s.compounds {
			if mayMatch(c, el) {
				el.NeedsScoping = true
				break
			}
		}
		return true
	})
}

func mayMatch(c compound, el *template.Element) bool {
	if c.tag != "" && c.tag != strings.ToLower(el.Name) {
		return false
	}
	for _, class := range c.classes {
		if !mayHaveClass(el, class) {
			return false
		}
	}
	for _, id := range c.ids {
		if !mayHaveAttribute(el, "id", id) {
			return false
		}
	}
	return true
}

func mayHaveClass(el *template.Element, class string) bool {
	for _, attr := range el.Attributes {
		if directive, ok := attr.(*template.Class); ok && directive.Name == class {
			return true
		}
	}
	return mayHaveAttribute(el, "class", class)
}

// mayHaveAttribute reports whether the attribute may contain value as a
// whitespace separated word. Dynamic values may contain anything.
func mayHaveAttribute(el *template.Element, name, value string) bool {
	for _, node := range el.Attributes {
		attr, ok := node.(*template.Attribute)
		if !ok || !strings.EqualFold(attr.Name, name) {
			continue
		}
		if !attr.IsStatic() {
			return true
		}
		for _, word := range strings.Fields(attr.StaticValue()) {
			if word == value {
				return true
			}
		}
	}
	return false
}
