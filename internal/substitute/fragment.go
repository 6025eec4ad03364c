package substitute

import (
	"strings"

	"github.com/conneroisu/htmt/internal/markup"
)

// span is a half-open byte range of a fragment.
type span struct {
	start, end int
}

// Fragment is the text that replaces one usage. It remembers which byte
// ranges were copied in from the usage (inner content and attribute
// values); everything else came from the already resolved definition.
type Fragment struct {
	HTML string

	inserted []span
}

func (f Fragment) String() string {
	return f.HTML
}

// FromUsage reports whether the byte at offset was copied in from the
// usage rather than from the definition.
func (f Fragment) FromUsage(offset int) bool {
	for _, s := range f.inserted {
		if offset >= s.start && offset < s.end {
			return true
		}
	}
	return false
}

// Parse parses the fragment into detached nodes. Elements that came from
// the definition are marked resolved so they are never expanded again;
// elements that came from the usage keep their chance to be expanded.
func (f Fragment) Parse() ([]*markup.Node, error) {
	nodes, err := markup.ParseFragment(f.HTML)
	if err != nil {
		return nil, err
	}
	var mark func(n *markup.Node)
	mark = func(n *markup.Node) {
		if n.Type == markup.ElementNode && !f.FromUsage(n.Offset) {
			n.Resolved = true
		}
		for _, c := range n.Children {
			mark(c)
		}
	}
	for _, n := range nodes {
		mark(n)
	}
	return nodes, nil
}

// fragmentBuilder accumulates a fragment and tracks inserted ranges.
type fragmentBuilder struct {
	b        strings.Builder
	inserted []span
}

func (fb *fragmentBuilder) definition(s string) {
	fb.b.WriteString(s)
}

func (fb *fragmentBuilder) usage(s string) {
	if s == "" {
		return
	}
	start := fb.b.Len()
	fb.b.WriteString(s)
	fb.inserted = append(fb.inserted, span{start: start, end: fb.b.Len()})
}

func (fb *fragmentBuilder) fragment() Fragment {
	return Fragment{HTML: fb.b.String(), inserted: fb.inserted}
}

// insertAt returns f with s spliced in at offset as definition text,
// shifting every inserted range at or after offset.
func (f Fragment) insertAt(offset int, s string) Fragment {
	out := Fragment{HTML: f.HTML[:offset] + s + f.HTML[offset:]}
	for _, sp := range f.inserted {
		if sp.start >= offset {
			sp.start += len(s)
			sp.end += len(s)
		}
		out.inserted = append(out.inserted, sp)
	}
	return out
}
