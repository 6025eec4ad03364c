// Package page expands element usages inside page documents.
package page

import (
	"github.com/conneroisu/htmt/internal/diagnostics"
	"github.com/conneroisu/htmt/internal/errors"
	"github.com/conneroisu/htmt/internal/markup"
	"github.com/conneroisu/htmt/internal/substitute"
	"github.com/conneroisu/htmt/internal/types"
)

// Page is a document that may use elements.
type Page = types.Page

// ElementSource provides resolved element definitions.
type ElementSource interface {
	KnownNames() []string
	GetRequired(name string) (*types.Element, error)
}

// Compiler expands pages against an element source. It keeps no state
// between pages and may be shared by concurrent workers.
type Compiler struct {
	elements ElementSource
	subst    *substitute.Substitutor
}

// NewCompiler creates a compiler that reports diagnostics to sink.
func NewCompiler(elements ElementSource, sink diagnostics.Sink) *Compiler {
	return &Compiler{
		elements: elements,
		subst:    substitute.New(sink),
	}
}

// Resolve returns a copy of p with every usage of a known element
// replaced by its expansion. Failures are wrapped in PageParsingError
// located at the usage that caused them; p itself is never modified.
func (c *Compiler) Resolve(p Page) (Page, error) {
	doc, err := markup.Parse(p.Content)
	if err != nil {
		return Page{}, errors.NewPageParsingError(p.Name, 1, 1, err)
	}

	names := c.elements.KnownNames()
	known := make(map[string]bool, len(names))
	for _, name := range names {
		known[name] = true
	}

	var at *markup.Node
	_, err = substitute.ReplaceUsages(doc,
		func(name string) bool { return known[name] },
		func(n *markup.Node) (substitute.Fragment, error) {
			at = n
			def, err := c.elements.GetRequired(n.Data)
			if err != nil {
				return substitute.Fragment{}, err
			}
			return c.subst.Substitute(substitute.Usage{Source: p.Name, Node: n}, def)
		},
	)
	if err != nil {
		line, column := 1, 1
		if at != nil {
			line, column = at.Line, at.Column
		}
		return Page{}, errors.NewPageParsingError(p.Name, line, column, err)
	}

	return Page{Name: p.Name, Path: p.Path, Content: doc.String()}, nil
}
