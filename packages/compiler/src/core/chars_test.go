package core

import "testing"

func TestChars(t *testing.T) {
	t.Run("IsValidIdentifier", func(t *testing.T) {
		for name, want := range map[string]bool{
			"count":  true,
			"$store": true,
			"_tmp1":  true,
			"café":   true,
			"":       false,
			"1st":    false,
			"a-b":    false,
			"a b":    false,
		} {
			if got := IsValidIdentifier(name); got != want {
				t.Errorf("IsValidIdentifier(%q): Expected %v, got %v", name, want, got)
			}
		}
	})

	t.Run("should treat line breaks and nbsp as whitespace", func(t *testing.T) {
		for _, c := range []int{CharTAB, CharLF, CharCR, CharSPACE, CharNBSP} {
			if !IsWhitespace(c) {
				t.Errorf("Expected %d to be whitespace", c)
			}
		}
		if IsWhitespace('a') {
			t.Errorf("Expected 'a' not to be whitespace")
		}
	})

	t.Run("should classify hex digits", func(t *testing.T) {
		for _, c := range "09afAF" {
			if !IsAsciiHexDigit(int(c)) {
				t.Errorf("Expected %q to be a hex digit", c)
			}
		}
		if IsAsciiHexDigit('g') {
			t.Errorf("Expected 'g' not to be a hex digit")
		}
	})
}
