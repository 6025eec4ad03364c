// Package types provides common type definitions used throughout htmt.
// This package contains shared types to avoid circular dependencies between packages.
package types

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// InnerHTMLKey is the reserved placeholder key that receives a usage's inner content.
const InnerHTMLKey = "innerhtml"

// Element is a named, reusable HTML fragment definition. Elements are
// registered once per run and rewritten once by the resolver into their
// fully expanded form; they are treated as immutable afterwards.
type Element struct {
	// Name is the case-folded element identifier (e.g. "main", "card-header")
	Name string
	// Markup is the HTML fragment text, containing {{ key }} placeholders
	Markup string
}

// Page is a document that may use elements.
type Page struct {
	// Name identifies the page in diagnostics, usually its file name
	Name string
	// Path is the full path the page was read from
	Path string
	// Content holds the raw markup on input and the resolved markup on output
	Content string
}

// Location points at a node inside a page or element definition.
type Location struct {
	Source string
	Line   int
	Column int
}

// String renders the location as "source:line,column".
func (l Location) String() string {
	return fmt.Sprintf("%s:%d,%d", l.Source, l.Line, l.Column)
}

// NormalizeName case-folds and trims an element or attribute name so that
// lookups are case-insensitive.
func NormalizeName(name string) string {
	// Casers are stateful and must not be shared between goroutines.
	return cases.Fold().String(strings.TrimSpace(name))
}
