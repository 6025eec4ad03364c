// Package diagnostics receives the non-fatal findings of element expansion.
//
// A Sink never influences control flow: every method returns nothing and
// expansion always continues after reporting. Output stays usable but is
// lossy at the reported point (a dropped attribute, an empty placeholder).
package diagnostics

import (
	"fmt"
	"sync"
)

// Kind identifies a diagnostic.
type Kind int

const (
	// KindAttributeUnused: a usage attribute matched no placeholder.
	KindAttributeUnused Kind = iota
	// KindPlaceholderUnused: a placeholder had no matching attribute.
	KindPlaceholderUnused
	// KindMissingInnerHTML: the definition wants inner content, the usage has none.
	KindMissingInnerHTML
	// KindInnerHTMLPlaceholderMissing: the usage has inner content the definition cannot place.
	KindInnerHTMLPlaceholderMissing
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindAttributeUnused:
		return "attribute_unused"
	case KindPlaceholderUnused:
		return "placeholder_unused"
	case KindMissingInnerHTML:
		return "missing_inner_html"
	case KindInnerHTMLPlaceholderMissing:
		return "inner_html_placeholder_missing"
	default:
		return "unknown"
	}
}

// Kinds lists every diagnostic kind.
var Kinds = []Kind{
	KindAttributeUnused,
	KindPlaceholderUnused,
	KindMissingInnerHTML,
	KindInnerHTMLPlaceholderMissing,
}

// Sink receives diagnostics. Implementations must be safe for concurrent
// use: pages are expanded in parallel against one sink.
type Sink interface {
	AttributeUnused(source string, line, column int, attribute string)
	PlaceholderUnused(source string, line, column int, placeholder, element string)
	MissingInnerHTML(source string, line, column int, element string)
	InnerHTMLPlaceholderMissing(source string, line, column int, element string)
}

// Diagnostic is one recorded finding.
type Diagnostic struct {
	Kind    Kind
	Source  string
	Line    int
	Column  int
	Subject string
	// Element is the enclosing element of a PlaceholderUnused finding.
	Element string
}

// Message renders the finding in the "source:line,column; reason" form.
func (d Diagnostic) Message() string {
	var reason string
	switch d.Kind {
	case KindAttributeUnused:
		reason = fmt.Sprintf("Attribute '%s' specified but unused", d.Subject)
	case KindPlaceholderUnused:
		reason = fmt.Sprintf("No attribute specified for placeholder '%s' in element '%s'", d.Subject, d.Element)
	case KindMissingInnerHTML:
		reason = fmt.Sprintf("No inner HTML provided for element '%s'", d.Subject)
	case KindInnerHTMLPlaceholderMissing:
		reason = fmt.Sprintf("Inner HTML provided for element '%s' without replaceable token", d.Subject)
	default:
		reason = d.Subject
	}
	return fmt.Sprintf("%s:%d,%d; %s", d.Source, d.Line, d.Column, reason)
}

// Collector records diagnostics in memory.
type Collector struct {
	mu          sync.Mutex
	diagnostics []Diagnostic
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) add(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diagnostics = append(c.diagnostics, d)
}

func (c *Collector) AttributeUnused(source string, line, column int, attribute string) {
	c.add(Diagnostic{Kind: KindAttributeUnused, Source: source, Line: line, Column: column, Subject: attribute})
}

func (c *Collector) PlaceholderUnused(source string, line, column int, placeholder, element string) {
	c.add(Diagnostic{Kind: KindPlaceholderUnused, Source: source, Line: line, Column: column, Subject: placeholder, Element: element})
}

func (c *Collector) MissingInnerHTML(source string, line, column int, element string) {
	c.add(Diagnostic{Kind: KindMissingInnerHTML, Source: source, Line: line, Column: column, Subject: element})
}

func (c *Collector) InnerHTMLPlaceholderMissing(source string, line, column int, element string) {
	c.add(Diagnostic{Kind: KindInnerHTMLPlaceholderMissing, Source: source, Line: line, Column: column, Subject: element})
}

// Diagnostics returns a copy of everything collected so far.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]Diagnostic, len(c.diagnostics))
	copy(result, c.diagnostics)
	return result
}

// OfKind returns the collected diagnostics of one kind.
func (c *Collector) OfKind(kind Kind) []Diagnostic {
	var result []Diagnostic
	for _, d := range c.Diagnostics() {
		if d.Kind == kind {
			result = append(result, d)
		}
	}
	return result
}

// Count returns the number of collected diagnostics.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.diagnostics)
}

// Reset drops everything collected.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diagnostics = c.diagnostics[:0]
}

type discard struct{}

func (discard) AttributeUnused(string, int, int, string)             {}
func (discard) PlaceholderUnused(string, int, int, string, string)   {}
func (discard) MissingInnerHTML(string, int, int, string)            {}
func (discard) InnerHTMLPlaceholderMissing(string, int, int, string) {}

// Discard drops every diagnostic.
var Discard Sink = discard{}

// Multi fans every diagnostic out to several sinks.
type Multi []Sink

func (m Multi) AttributeUnused(source string, line, column int, attribute string) {
	for _, s := range m {
		s.AttributeUnused(source, line, column, attribute)
	}
}

func (m Multi) PlaceholderUnused(source string, line, column int, placeholder, element string) {
	for _, s := range m {
		s.PlaceholderUnused(source, line, column, placeholder, element)
	}
}

func (m Multi) MissingInnerHTML(source string, line, column int, element string) {
	for _, s := range m {
		s.MissingInnerHTML(source, line, column, element)
	}
}

func (m Multi) InnerHTMLPlaceholderMissing(source string, line, column int, element string) {
	for _, s := range m {
		s.InnerHTMLPlaceholderMissing(source, line, column, element)
	}
}
