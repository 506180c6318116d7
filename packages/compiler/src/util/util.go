package util

import (
	"regexp"
	"strings"
)

var (
	dashCaseRegexp       = regexp.MustCompile(`-+([a-z0-9])`)
	nonIdentifierRegexp  = regexp.MustCompile(`[^a-zA-Z0-9_$]+`)
	leadingDigitsRegexp  = regexp.MustCompile(`^[0-9]`)
	repeatedUnderscoreRe = regexp.MustCompile(`_+`)
)

// DashCaseToCamelCase converts a dash-case string to camelCase
func DashCaseToCamelCase(input string) string {
	return dashCaseRegexp.ReplaceAllStringFunc(input, func(match string) string {
		parts := dashCaseRegexp.FindStringSubmatch(match)
		if len(parts) > 1 {
			return strings.ToUpper(parts[1])
		}
		return match
	})
}

// SplitAtColon splits a string at the colon character
func SplitAtColon(input string, defaultValues []string) []string {
	return splitAt(input, ':', defaultValues)
}

func splitAt(input string, character rune, defaultValues []string) []string {
	index := strings.IndexRune(input, character)
	if index == -1 {
		return defaultValues
	}
	return []string{
		strings.TrimSpace(input[:index]),
		strings.TrimSpace(input[index+1:]),
	}
}

// SanitizeIdentifier turns an arbitrary string (tag name, attribute name,
// file name) into something usable as a generated variable name.
func SanitizeIdentifier(name string) string {
	s := nonIdentifierRegexp.ReplaceAllString(name, "_")
	s = repeatedUnderscoreRe.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "_"
	}
	if leadingDigitsRegexp.MatchString(s) {
		s = "_" + s
	}
	return s
}
