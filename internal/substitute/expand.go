package substitute

import (
	"github.com/conneroisu/htmt/internal/markup"
	"github.com/conneroisu/htmt/internal/types"
)

// ExpandFunc produces the replacement fragment for one usage node.
type ExpandFunc func(n *markup.Node) (Fragment, error)

// ReplaceUsages replaces, in document order, every element of doc whose
// folded tag name satisfies known with the fragment returned by expand.
//
// Targets are collected before the tree is mutated. A target that was
// inside an earlier replaced usage is skipped: its text travelled into the
// replacement as inner content and is picked up by the next pass, which
// repeats until no usage is left. Elements that came from a definition are
// resolved output and never match, so a definition may wrap a plain HTML
// tag of its own name. It returns the number of replacements.
func ReplaceUsages(doc *markup.Node, known func(name string) bool, expand ExpandFunc) (int, error) {
	replaced := 0
	isUsage := func(n *markup.Node) bool {
		return n.Type == markup.ElementNode && !n.Resolved && known(types.NormalizeName(n.Data))
	}

	for {
		targets := doc.FindAll(isUsage)
		if len(targets) == 0 {
			return replaced, nil
		}

		for _, n := range targets {
			if n.Root() != doc {
				continue
			}

			fragment, err := expand(n)
			if err != nil {
				return replaced, err
			}
			nodes, err := fragment.Parse()
			if err != nil {
				return replaced, err
			}
			markup.Reposition(nodes, n.Line, n.Column)
			n.ReplaceWith(nodes...)
			replaced++
		}
	}
}
