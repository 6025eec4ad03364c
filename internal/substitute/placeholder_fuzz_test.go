package substitute

import (
	"strings"
	"testing"
)

// FuzzScan checks that every placeholder is a literal, ordered,
// non-overlapping span of the scanned markup.
func FuzzScan(f *testing.F) {
	f.Add("<div>{{ innerhtml }}</div>")
	f.Add("{{a}}{{ b }}{{")
	f.Add("{{ {{ x }} }}")
	f.Add("}}{{")
	f.Add("")

	f.Fuzz(func(t *testing.T, markup string) {
		last := 0
		for _, p := range Scan(markup) {
			if p.Offset < last {
				t.Fatalf("placeholder %q at %d overlaps previous ending at %d", p.Token, p.Offset, last)
			}
			if !strings.HasPrefix(markup[p.Offset:], p.Token) {
				t.Fatalf("token %q not found at offset %d", p.Token, p.Offset)
			}
			if !strings.HasPrefix(p.Token, openToken) || !strings.HasSuffix(p.Token, closeToken) {
				t.Fatalf("token %q is not delimited", p.Token)
			}
			last = p.Offset + len(p.Token)
		}
	})
}
