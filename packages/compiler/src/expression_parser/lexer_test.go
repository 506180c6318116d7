package expression_parser_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"sveltec-go/packages/compiler/src/expression_parser"
)

func lex(text string) []*expression_parser.Token {
	return expression_parser.NewLexer().Tokenize(text)
}

type tokenSummary struct {
	Type  expression_parser.TokenType
	Text  string
	Index int
	End   int
}

func summarize(tokens []*expression_parser.Token) []tokenSummary {
	out := make([]tokenSummary, len(tokens))
	for i, tok := range tokens {
		out[i] = tokenSummary{Type: tok.Type, Text: tok.String(), Index: tok.Index, End: tok.End}
	}
	return out
}

func TestLexer(t *testing.T) {
	t.Run("should tokenize a simple identifier", func(t *testing.T) {
		tokens := lex("j")
		expected := []tokenSummary{{expression_parser.TokenTypeIdentifier, "j", 0, 1}}
		if diff := cmp.Diff(expected, summarize(tokens)); diff != "" {
			t.Errorf("lex() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should tokenize identifiers with dollar and underscore", func(t *testing.T) {
		tokens := lex("$count _x")
		expected := []tokenSummary{
			{expression_parser.TokenTypeIdentifier, "$count", 0, 6},
			{expression_parser.TokenTypeIdentifier, "_x", 7, 9},
		}
		if diff := cmp.Diff(expected, summarize(tokens)); diff != "" {
			t.Errorf("lex() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should tokenize a member chain", func(t *testing.T) {
		tokens := lex("a.b?.c")
		expected := []tokenSummary{
			{expression_parser.TokenTypeIdentifier, "a", 0, 1},
			{expression_parser.TokenTypeCharacter, ".", 1, 2},
			{expression_parser.TokenTypeIdentifier, "b", 2, 3},
			{expression_parser.TokenTypeOperator, "?.", 3, 5},
			{expression_parser.TokenTypeIdentifier, "c", 5, 6},
		}
		if diff := cmp.Diff(expected, summarize(tokens)); diff != "" {
			t.Errorf("lex() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should tokenize multi-character operators", func(t *testing.T) {
		var got []string
		for _, tok := range lex("a === b !== c && d || e ?? f >>> g => h ++ ... **=") {
			if tok.Type == expression_parser.TokenTypeOperator {
				got = append(got, tok.StrValue)
			}
		}
		expected := []string{"===", "!==", "&&", "||", "??", ">>>", "=>", "++", "...", "**="}
		if diff := cmp.Diff(expected, got); diff != "" {
			t.Errorf("operators mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should tokenize numbers", func(t *testing.T) {
		tokens := lex("1 2.5 .5 1e3 0xff 1_000")
		var got []float64
		for _, tok := range tokens {
			got = append(got, tok.NumValue)
		}
		expected := []float64{1, 2.5, 0.5, 1000, 255, 1000}
		if diff := cmp.Diff(expected, got); diff != "" {
			t.Errorf("numbers mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should unescape strings", func(t *testing.T) {
		tokens := lex(`'a\'b\n' "A"`)
		if len(tokens) != 2 {
			t.Fatalf("expected 2 tokens, got %d", len(tokens))
		}
		if tokens[0].StrValue != "a'b\n" {
			t.Errorf("expected unescaped string, got %q", tokens[0].StrValue)
		}
		if tokens[1].StrValue != "A" {
			t.Errorf("expected unicode escape to decode, got %q", tokens[1].StrValue)
		}
	})

	t.Run("should tokenize template literals with interpolations", func(t *testing.T) {
		tokens := lex("`a${b}c`")
		expected := []tokenSummary{
			{expression_parser.TokenTypeString, "a", 0, 2},
			{expression_parser.TokenTypeOperator, "${", 2, 4},
			{expression_parser.TokenTypeIdentifier, "b", 4, 5},
			{expression_parser.TokenTypeCharacter, "}", 5, 6},
			{expression_parser.TokenTypeString, "c", 6, 8},
		}
		if diff := cmp.Diff(expected, summarize(tokens)); diff != "" {
			t.Errorf("lex() mismatch (-want +got):\n%s", diff)
		}
		if !tokens[0].IsTemplateLiteralPart() || !tokens[4].IsTemplateLiteralEnd() {
			t.Errorf("expected template part and end kinds")
		}
	})

	t.Run("should tokenize keywords", func(t *testing.T) {
		tokens := lex("typeof x in y")
		if !tokens[0].IsKeyword("typeof") || !tokens[2].IsKeyword("in") {
			t.Errorf("expected keywords, got %v", summarize(tokens))
		}
	})

	t.Run("should tokenize a regular expression after an operator", func(t *testing.T) {
		tokens := lex("x = /a+/g")
		if len(tokens) != 4 {
			t.Fatalf("expected 4 tokens, got %d", len(tokens))
		}
		if tokens[2].Type != expression_parser.TokenTypeRegExpBody || tokens[2].StrValue != "a+" {
			t.Errorf("expected regexp body, got %v", tokens[2])
		}
		if tokens[3].Type != expression_parser.TokenTypeRegExpFlags || tokens[3].StrValue != "g" {
			t.Errorf("expected regexp flags, got %v", tokens[3])
		}
	})

	t.Run("should report unterminated strings", func(t *testing.T) {
		tokens := lex("'abc")
		last := tokens[len(tokens)-1]
		if last.Type != expression_parser.TokenTypeError {
			t.Fatalf("expected error token, got %v", last)
		}
	})

	t.Run("should report unexpected characters", func(t *testing.T) {
		tokens := lex("a # b")
		last := tokens[len(tokens)-1]
		if last.Type != expression_parser.TokenTypeError {
			t.Fatalf("expected error token, got %v", last)
		}
	})
}
