// Package substitute expands a single element usage against an element
// definition, and replaces every usage of known elements inside a markup
// tree.
package substitute

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/conneroisu/htmt/internal/diagnostics"
	"github.com/conneroisu/htmt/internal/errors"
	"github.com/conneroisu/htmt/internal/markup"
	"github.com/conneroisu/htmt/internal/types"
)

// Usage is a concrete occurrence of an element in a page or in another
// element's definition.
type Usage struct {
	// Source names the page or element the usage appears in
	Source string
	Node   *markup.Node
}

// Location returns where the usage appears.
func (u Usage) Location() types.Location {
	return types.Location{Source: u.Source, Line: u.Node.Line, Column: u.Node.Column}
}

// Substitutor expands usages into fragments. It holds no per-call state
// and is safe for concurrent use when its sink is.
type Substitutor struct {
	sink diagnostics.Sink
}

// New creates a substitutor reporting to sink. A nil sink discards.
func New(sink diagnostics.Sink) *Substitutor {
	if sink == nil {
		sink = diagnostics.Discard
	}
	return &Substitutor{sink: sink}
}

type attribute struct {
	key string
	// val is the unescaped value, raw the value as written
	val      string
	raw      string
	consumed bool
}

// attributes is the per-call consumption state of a usage's attributes.
type attributes struct {
	ordered []*attribute
	byKey   map[string]*attribute
}

func collectAttributes(u Usage, element string) (*attributes, error) {
	attrs := &attributes{byKey: make(map[string]*attribute, len(u.Node.Attr))}
	for _, a := range u.Node.Attr {
		key := types.NormalizeName(a.Key)
		if _, exists := attrs.byKey[key]; exists {
			return nil, &errors.DuplicateAttributeError{
				Attribute: key,
				Element:   element,
				Source:    u.Source,
				Line:      u.Node.Line,
				Column:    u.Node.Column,
			}
		}
		attr := &attribute{key: key, val: a.Val, raw: a.Raw}
		attrs.ordered = append(attrs.ordered, attr)
		attrs.byKey[key] = attr
	}
	return attrs, nil
}

// Substitute expands u against def and returns the fragment that replaces
// the usage.
//
// Placeholders are spliced literally in markup order: {{ innerhtml }}
// receives the usage's inner content, any other key the value of the
// attribute of the same name as written in the usage, entities intact. Attributes no placeholder consumed are
// reattached to the fragment's root element unless it already carries
// them.
func (s *Substitutor) Substitute(u Usage, def *types.Element) (Fragment, error) {
	loc := u.Location()

	attrs, err := collectAttributes(u, def.Name)
	if err != nil {
		return Fragment{}, err
	}

	defNodes, err := markup.ParseFragment(def.Markup)
	if err != nil {
		return Fragment{}, err
	}
	if roots := markup.Roots(defNodes); len(roots) > 1 {
		return Fragment{}, &errors.MultipleRootNodesError{
			Element: def.Name,
			Roots:   len(roots),
			Source:  loc.Source,
			Line:    loc.Line,
			Column:  loc.Column,
		}
	}

	placeholders := Scan(def.Markup)
	inner := u.Node.InnerHTML()
	if !hasKey(placeholders, types.InnerHTMLKey) && inner != "" {
		s.sink.InnerHTMLPlaceholderMissing(loc.Source, loc.Line, loc.Column, def.Name)
	}

	var fb fragmentBuilder
	last := 0
	for _, p := range placeholders {
		fb.definition(def.Markup[last:p.Offset])
		last = p.Offset + len(p.Token)

		if p.Key == types.InnerHTMLKey {
			if !u.Node.HasInner() || inner == "" {
				s.sink.MissingInnerHTML(loc.Source, loc.Line, loc.Column, def.Name)
				continue
			}
			fb.usage(inner)
			continue
		}

		attr, ok := attrs.byKey[p.Key]
		if !ok {
			s.sink.PlaceholderUnused(loc.Source, loc.Line, loc.Column, p.Token, def.Name)
			continue
		}
		fb.usage(attr.raw)
		attr.consumed = true
	}
	fb.definition(def.Markup[last:])
	fragment := fb.fragment()

	var unused []*attribute
	for _, a := range attrs.ordered {
		if !a.consumed {
			s.sink.AttributeUnused(loc.Source, loc.Line, loc.Column, a.key)
			unused = append(unused, a)
		}
	}
	if len(unused) == 0 {
		return fragment, nil
	}

	return fallthroughAttributes(fragment, unused)
}

// fallthroughAttributes reattaches unclaimed attributes to the first root
// element of fragment.
func fallthroughAttributes(fragment Fragment, unused []*attribute) (Fragment, error) {
	nodes, err := markup.ParseFragment(fragment.HTML)
	if err != nil {
		return Fragment{}, err
	}

	var root *markup.Node
	for _, n := range markup.Roots(nodes) {
		if n.Type == markup.ElementNode {
			root = n
			break
		}
	}
	if root == nil {
		return fragment, nil
	}

	var b strings.Builder
	for _, a := range unused {
		if _, exists := root.GetAttr(a.key); exists {
			continue
		}
		b.WriteString(" ")
		b.WriteString(a.key)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(a.val))
		b.WriteString(`"`)
	}
	if b.Len() == 0 {
		return fragment, nil
	}
	return fragment.insertAt(root.AttrInsertOffset(), b.String()), nil
}
