package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// NormalizeAddress returns the NFC form of value with surrounding whitespace
// removed and interior whitespace runs collapsed to a single space.
func NormalizeAddress(value string) string {
	return collapseSpaces(norm.NFC.String(value))
}

// AddressKey returns a comparison key for an address. Two addresses with the
// same key are treated as the same location.
func AddressKey(value string) string {
	normalized := NormalizeAddress(value)
	if normalized == "" {
		return ""
	}
	folded := folder.String(normalized)
	folded = strings.Map(func(r rune) rune {
		switch r {
		case ',', ';':
			return ' '
		case '.':
			return -1
		}
		return r
	}, folded)
	return collapseSpaces(folded)
}

func collapseSpaces(value string) string {
	return strings.Join(strings.FieldsFunc(value, unicode.IsSpace), " ")
}
