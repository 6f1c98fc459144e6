package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold trims, lowercases, and strips combining diacritic marks so that
// human-entered place names compare reliably ("Yucatán" equals "yucatan").
func Fold(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}

	// Transformers are stateful; build a fresh chain per call.
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), value)
	if err != nil {
		return value
	}
	return folded
}

// FoldAll applies Fold to every value, dropping entries that fold to empty.
func FoldAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	folded := make([]string, 0, len(values))
	for _, value := range values {
		if f := Fold(value); f != "" {
			folded = append(folded, f)
		}
	}
	if len(folded) == 0 {
		return nil
	}
	return folded
}
