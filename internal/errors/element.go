package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by the element error types through errors.Is.
var (
	ErrDuplicateElement   = errors.New("duplicate element")
	ErrUnknownElement     = errors.New("unknown element")
	ErrCycle              = errors.New("infinite recursion")
	ErrMultipleRootNodes  = errors.New("multiple root nodes")
	ErrDuplicateAttribute = errors.New("duplicate attribute")
)

func located(source string, line, column int, reason string) string {
	return fmt.Sprintf("%s:%d,%d; %s", source, line, column, reason)
}

// locatedError is implemented by errors that render as
// "source:line,column; reason".
type locatedError interface {
	location() (source string, line, column int)
	reason() string
}

// DuplicateElementError reports a second registration of an element name.
type DuplicateElementError struct {
	Name string
}

func (e *DuplicateElementError) Error() string {
	return fmt.Sprintf("attempting to add element '%s', but element was already present", e.Name)
}

func (e *DuplicateElementError) Is(target error) bool { return target == ErrDuplicateElement }

func (e *DuplicateElementError) ErrorCode() string { return ErrCodeDuplicateElement }

// UnknownElementError reports a lookup of an element that was never registered.
type UnknownElementError struct {
	Name string
}

func (e *UnknownElementError) Error() string {
	return fmt.Sprintf("element '%s' does not exist", e.Name)
}

func (e *UnknownElementError) Is(target error) bool { return target == ErrUnknownElement }

func (e *UnknownElementError) ErrorCode() string { return ErrCodeUnknownElement }

// CycleError reports an element that is used, directly or transitively,
// inside its own expansion. Path lists the active resolution path, ending
// with the element that closes the cycle.
type CycleError struct {
	Element string
	Path    []string
	Source  string
	Line    int
	Column  int
}

func (e *CycleError) Error() string {
	return located(e.Source, e.Line, e.Column, e.reason())
}

func (e *CycleError) reason() string {
	reason := fmt.Sprintf("Infinite recursion detected for element '%s'", e.Element)
	if len(e.Path) > 0 {
		reason += " (" + strings.Join(e.Path, " -> ") + ")"
	}
	return reason
}

func (e *CycleError) location() (string, int, int) { return e.Source, e.Line, e.Column }

func (e *CycleError) Is(target error) bool { return target == ErrCycle }

func (e *CycleError) ErrorCode() string { return ErrCodeCycle }

// MultipleRootNodesError reports an element definition that does not
// decompose into exactly one expansion root.
type MultipleRootNodesError struct {
	Element string
	Roots   int
	Source  string
	Line    int
	Column  int
}

func (e *MultipleRootNodesError) Error() string {
	return located(e.Source, e.Line, e.Column, e.reason())
}

func (e *MultipleRootNodesError) reason() string {
	return fmt.Sprintf("Multiple node elements in definition of element '%s' (%d root nodes)", e.Element, e.Roots)
}

func (e *MultipleRootNodesError) location() (string, int, int) { return e.Source, e.Line, e.Column }

func (e *MultipleRootNodesError) Is(target error) bool { return target == ErrMultipleRootNodes }

func (e *MultipleRootNodesError) ErrorCode() string { return ErrCodeMultipleRootNodes }

// DuplicateAttributeError reports an attribute repeated on one usage node.
type DuplicateAttributeError struct {
	Attribute string
	Element   string
	Source    string
	Line      int
	Column    int
}

func (e *DuplicateAttributeError) Error() string {
	return located(e.Source, e.Line, e.Column, e.reason())
}

func (e *DuplicateAttributeError) reason() string {
	return fmt.Sprintf("Attribute '%s' occurred more than once for element '%s'", e.Attribute, e.Element)
}

func (e *DuplicateAttributeError) location() (string, int, int) { return e.Source, e.Line, e.Column }

func (e *DuplicateAttributeError) Is(target error) bool { return target == ErrDuplicateAttribute }

func (e *DuplicateAttributeError) ErrorCode() string { return ErrCodeDuplicateAttribute }

// PageParsingError locates a failure inside a page. The cause is kept
// intact and reachable through errors.Unwrap.
type PageParsingError struct {
	Page   string
	Line   int
	Column int
	Cause  error
}

// NewPageParsingError wraps cause with the page location it occurred at.
func NewPageParsingError(page string, line, column int, cause error) *PageParsingError {
	return &PageParsingError{Page: page, Line: line, Column: column, Cause: cause}
}

// Error renders "page:line,column; reason". A cause located at the same
// spot contributes only its reason.
func (e *PageParsingError) Error() string {
	reason := "unknown failure"
	if l, ok := e.Cause.(locatedError); ok {
		source, line, column := l.location()
		if source == e.Page && line == e.Line && column == e.Column {
			return located(e.Page, e.Line, e.Column, l.reason())
		}
	}
	if e.Cause != nil {
		reason = e.Cause.Error()
	}
	return located(e.Page, e.Line, e.Column, reason)
}

func (e *PageParsingError) Unwrap() error { return e.Cause }

func (e *PageParsingError) ErrorCode() string { return ErrCodePageFailed }
