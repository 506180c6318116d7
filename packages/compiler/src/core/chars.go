// Package core holds the character classes shared by the expression
// scanner and the name pool.
package core

// Control and whitespace codes.
const (
	CharEOF   = 0
	CharTAB   = 9
	CharLF    = 10
	CharVTAB  = 11
	CharFF    = 12
	CharCR    = 13
	CharSPACE = 32
	CharNBSP  = 160
)

// Punctuation and operator codes.
const (
	CharBANG       = 33
	CharDQ         = 34
	CharDollar     = 36
	CharPERCENT    = 37
	CharAMPERSAND  = 38
	CharSQ         = 39
	CharLPAREN     = 40
	CharRPAREN     = 41
	CharSTAR       = 42
	CharPLUS       = 43
	CharCOMMA      = 44
	CharMINUS      = 45
	CharPERIOD     = 46
	CharSLASH      = 47
	CharCOLON      = 58
	CharSEMICOLON  = 59
	CharLT         = 60
	CharEQ         = 61
	CharGT         = 62
	CharQUESTION   = 63
	CharLBRACKET   = 91
	CharBACKSLASH  = 92
	CharRBRACKET   = 93
	CharCARET      = 94
	CharUnderscore = 95
	CharBT         = 96
	CharLBRACE     = 123
	CharBAR        = 124
	CharRBRACE     = 125
	CharTILDA      = 126
)

// Digits and the letters escapes and number literals look at.
const (
	Char0 = 48
	Char9 = 57

	CharA = 65
	CharE = 69
	CharF = 70
	CharX = 88
	CharZ = 90

	CharLowerA = 97
	CharLowerB = 98
	CharLowerE = 101
	CharLowerF = 102
	CharLowerN = 110
	CharLowerR = 114
	CharLowerT = 116
	CharLowerU = 117
	CharLowerV = 118
	CharLowerX = 120
	CharLowerZ = 122
)

// IsWhitespace covers tab through space, which includes the line breaks,
// and the non-breaking space.
func IsWhitespace(code int) bool {
	return (code >= CharTAB && code <= CharSPACE) || code == CharNBSP
}

func IsDigit(code int) bool {
	return Char0 <= code && code <= Char9
}

func IsAsciiLetter(code int) bool {
	return (code >= CharLowerA && code <= CharLowerZ) || (code >= CharA && code <= CharZ)
}

func IsAsciiHexDigit(code int) bool {
	return (code >= CharLowerA && code <= CharLowerF) || (code >= CharA && code <= CharF) || IsDigit(code)
}

// IsIdentifierStart reports whether code may begin a script identifier.
// Any non-ASCII code point is accepted.
func IsIdentifierStart(code int) bool {
	return IsAsciiLetter(code) || code == CharUnderscore || code == CharDollar || code > 127
}

// IsIdentifierPart reports whether code may continue a script identifier.
func IsIdentifierPart(code int) bool {
	return IsIdentifierStart(code) || IsDigit(code)
}

// IsValidIdentifier reports whether name is a legal script identifier.
// Reserved words are not rejected here.
func IsValidIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if i == 0 && !IsIdentifierStart(int(r)) {
			return false
		}
		if i > 0 && !IsIdentifierPart(int(r)) {
			return false
		}
	}
	return true
}
