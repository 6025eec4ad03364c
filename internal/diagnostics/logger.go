package diagnostics

import (
	"context"

	"github.com/conneroisu/htmt/internal/logging"
)

// Logger reports every diagnostic as a structured warning.
type Logger struct {
	logger logging.Logger
}

// NewLogger creates a sink that logs through logger.
func NewLogger(logger logging.Logger) *Logger {
	return &Logger{logger: logger.WithComponent("diagnostics")}
}

func (l *Logger) warn(d Diagnostic) {
	fields := []interface{}{
		"kind", d.Kind.String(),
		"source", d.Source,
		"line", d.Line,
		"column", d.Column,
	}
	l.logger.Warn(context.Background(), nil, d.Message(), fields...)
}

func (l *Logger) AttributeUnused(source string, line, column int, attribute string) {
	l.warn(Diagnostic{Kind: KindAttributeUnused, Source: source, Line: line, Column: column, Subject: attribute})
}

func (l *Logger) PlaceholderUnused(source string, line, column int, placeholder, element string) {
	l.warn(Diagnostic{Kind: KindPlaceholderUnused, Source: source, Line: line, Column: column, Subject: placeholder, Element: element})
}

func (l *Logger) MissingInnerHTML(source string, line, column int, element string) {
	l.warn(Diagnostic{Kind: KindMissingInnerHTML, Source: source, Line: line, Column: column, Subject: element})
}

func (l *Logger) InnerHTMLPlaceholderMissing(source string, line, column int, element string) {
	l.warn(Diagnostic{Kind: KindInnerHTMLPlaceholderMissing, Source: source, Line: line, Column: column, Subject: element})
}
