package substitute

import (
	"strings"

	"github.com/conneroisu/htmt/internal/types"
)

const (
	openToken  = "{{"
	closeToken = "}}"
)

// Placeholder is one {{ key }} span found in element markup.
type Placeholder struct {
	// Key is the case-folded, trimmed identifier between the braces
	Key string
	// Token is the literal placeholder text, braces included
	Token string
	// Offset is the byte offset of Token in the scanned markup
	Offset int
}

// Scan returns the placeholders of markup in order. A span runs from a
// "{{" to the next "}}"; spans do not nest and an unterminated "{{" ends
// the scan.
func Scan(markup string) []Placeholder {
	var result []Placeholder
	pos := 0
	for {
		start := strings.Index(markup[pos:], openToken)
		if start < 0 {
			return result
		}
		start += pos

		end := strings.Index(markup[start+len(openToken):], closeToken)
		if end < 0 {
			return result
		}
		end += start + len(openToken) + len(closeToken)

		token := markup[start:end]
		key := types.NormalizeName(token[len(openToken) : len(token)-len(closeToken)])
		result = append(result, Placeholder{Key: key, Token: token, Offset: start})
		pos = end
	}
}

// hasKey reports whether any placeholder uses key.
func hasKey(placeholders []Placeholder, key string) bool {
	for _, p := range placeholders {
		if p.Key == key {
			return true
		}
	}
	return false
}
