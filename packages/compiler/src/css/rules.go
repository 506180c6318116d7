package css

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	blockPlaceholder   = "%BLOCK%"
	commaInPlaceholder = "%COMMA_IN_PLACEHOLDER%"
	semiInPlaceholder  = "%SEMI_IN_PLACEHOLDER%"
	colonInPlaceholder = "%COLON_IN_PLACEHOLDER%"
)

var (
	ruleRe = regexp.MustCompile(fmt.Sprintf(`(\s*)([^;\{\}]+?)(\s*)((?:{%s}?\s*;?)|(?:\s*;))`, blockPlaceholder))

	commentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)

	commaInPlaceholderRe = regexp.MustCompile(commaInPlaceholder)
	semiInPlaceholderRe  = regexp.MustCompile(semiInPlaceholder)
	colonInPlaceholderRe = regexp.MustCompile(colonInPlaceholder)
)

// Rule is one `selector { content }` or `@rule ...;` entry at a single
// nesting level. Content is the raw text between the braces.
type Rule struct {
	Selector string
	Content  string
}

// RuleCallback rewrites a single rule.
type RuleCallback func(rule *Rule) *Rule

// ProcessRules calls cb for every rule at the top level of input and splices
// the returned rules back in place. Nested blocks are passed through as
// Content; callers recurse into them explicitly.
func ProcessRules(input string, cb RuleCallback) string {
	escaped := escapeBlocks(escapeInStrings(input))
	nextBlock := 0

	result := ruleRe.ReplaceAllStringFunc(escaped.text, func(match string) string {
		m := ruleRe.FindStringSubmatch(match)
		selector, suffix := m[2], m[4]
		content, contentPrefix := "", ""
		if strings.HasPrefix(suffix, "{"+blockPlaceholder) {
			if nextBlock < len(escaped.blocks) {
				content = escaped.blocks[nextBlock]
				nextBlock++
			}
			suffix = suffix[len(blockPlaceholder)+1:]
			contentPrefix = "{"
		}
		rule := cb(&Rule{Selector: selector, Content: content})
		return m[1] + rule.Selector + m[3] + contentPrefix + rule.Content + suffix
	})
	return unescapeInStrings(result)
}

// StripComments removes `/* ... */` comments.
func StripComments(input string) string {
	return commentRe.ReplaceAllString(input, "")
}

type escapedBlocks struct {
	text   string
	blocks []string
}

// escapeBlocks replaces the content of every top-level `{...}` with a
// placeholder so that the rule regexp only sees one nesting level.
func escapeBlocks(input string) *escapedBlocks {
	var parts, blocks []string
	depth := 0
	nonBlockStart := 0
	blockStart := -1

	for i := 0; i < len(input); i++ {
		switch input[i] {
		case '\\':
			i++
		case '{':
			depth++
			if depth == 1 {
				blockStart = i + 1
				parts = append(parts, input[nonBlockStart:blockStart])
			}
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				blocks = append(blocks, input[blockStart:i])
				parts = append(parts, blockPlaceholder)
				nonBlockStart = i
				blockStart = -1
			}
		}
	}

	if blockStart != -1 {
		blocks = append(blocks, input[blockStart:])
		parts = append(parts, blockPlaceholder)
	} else {
		parts = append(parts, input[nonBlockStart:])
	}
	return &escapedBlocks{text: strings.Join(parts, ""), blocks: blocks}
}

// escapeInStrings hides separators inside quoted strings from the rule
// regexp.
func escapeInStrings(input string) string {
	var sb strings.Builder
	var quote byte
	for i := 0; i < len(input); i++ {
		c := input[i]
		switch {
		case c == '\\' && i+1 < len(input):
			sb.WriteByte(c)
			sb.WriteByte(input[i+1])
			i++
			continue
		case quote != 0 && c == quote:
			quote = 0
		case quote != 0 && c == ';':
			sb.WriteString(semiInPlaceholder)
			continue
		case quote != 0 && c == ',':
			sb.WriteString(commaInPlaceholder)
			continue
		case quote != 0 && c == ':':
			sb.WriteString(colonInPlaceholder)
			continue
		case quote == 0 && (c == '\'' || c == '"'):
			quote = c
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func unescapeInStrings(input string) string {
	result := commaInPlaceholderRe.ReplaceAllString(input, ",")
	result = semiInPlaceholderRe.ReplaceAllString(result, ";")
	return colonInPlaceholderRe.ReplaceAllString(result, ":")
}

// splitOnTopLevelCommas splits a selector list, ignoring commas nested in
// parentheses or brackets.
func splitOnTopLevelCommas(text string) []string {
	var result []string
	depth := 0
	prev := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				result = append(result, text[prev:i])
				prev = i + 1
			}
		}
	}
	return append(result, text[prev:])
}
