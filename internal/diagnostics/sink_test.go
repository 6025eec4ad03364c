package diagnostics

import (
	"bytes"
	"sync"
	"testing"

	"github.com/conneroisu/htmt/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "attribute_unused", KindAttributeUnused.String())
	assert.Equal(t, "placeholder_unused", KindPlaceholderUnused.String())
	assert.Equal(t, "missing_inner_html", KindMissingInnerHTML.String())
	assert.Equal(t, "inner_html_placeholder_missing", KindInnerHTMLPlaceholderMissing.String())
	assert.Equal(t, "unknown", Kind(99).String())
	assert.Len(t, Kinds, 4)
}

func TestDiagnostic_Message(t *testing.T) {
	tests := []struct {
		d    Diagnostic
		want string
	}{
		{
			Diagnostic{Kind: KindAttributeUnused, Source: "index", Line: 1, Column: 2, Subject: "class"},
			"index:1,2; Attribute 'class' specified but unused",
		},
		{
			Diagnostic{Kind: KindPlaceholderUnused, Source: "index", Line: 3, Column: 4, Subject: "{{ title }}", Element: "page"},
			"index:3,4; No attribute specified for placeholder '{{ title }}' in element 'page'",
		},
		{
			Diagnostic{Kind: KindMissingInnerHTML, Source: "about", Line: 5, Column: 6, Subject: "page"},
			"about:5,6; No inner HTML provided for element 'page'",
		},
		{
			Diagnostic{Kind: KindInnerHTMLPlaceholderMissing, Source: "about", Line: 7, Column: 8, Subject: "page"},
			"about:7,8; Inner HTML provided for element 'page' without replaceable token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.d.Kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.Message())
		})
	}
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	c.AttributeUnused("index", 1, 1, "id")
	c.PlaceholderUnused("index", 1, 1, "{{ nothtml }}", "page")
	c.MissingInnerHTML("index", 2, 1, "page")
	c.InnerHTMLPlaceholderMissing("index", 3, 1, "page")

	require.Equal(t, 4, c.Count())
	placeholders := c.OfKind(KindPlaceholderUnused)
	require.Len(t, placeholders, 1)
	assert.Equal(t, "{{ nothtml }}", placeholders[0].Subject)
	assert.Equal(t, "page", placeholders[0].Element)

	c.Reset()
	assert.Zero(t, c.Count())
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.AttributeUnused("page", 1, 1, "x")
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, c.Count())
}

func TestMulti(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	m := Multi{a, b, Discard}

	m.AttributeUnused("s", 1, 1, "x")
	m.PlaceholderUnused("s", 1, 1, "{{x}}", "e")
	m.MissingInnerHTML("s", 1, 1, "e")
	m.InnerHTMLPlaceholderMissing("s", 1, 1, "e")

	assert.Equal(t, 4, a.Count())
	assert.Equal(t, 4, b.Count())
}

func TestLoggerSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogger(logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelWarn, Output: &buf}))

	sink.PlaceholderUnused("index.htmt", 4, 9, "{{ title }}", "page")

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "kind=placeholder_unused")
	assert.Contains(t, out, "index.htmt:4,9")
	assert.Contains(t, out, "component=diagnostics")
}
