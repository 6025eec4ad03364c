package substitute

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScan(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   []Placeholder
	}{
		{
			name:   "no placeholders",
			markup: "<div></div>",
			want:   nil,
		},
		{
			name:   "inner html",
			markup: "<div>{{ innerhtml }}</div>",
			want:   []Placeholder{{Key: "innerhtml", Token: "{{ innerhtml }}", Offset: 5}},
		},
		{
			name:   "case insensitive and tight",
			markup: "<h1>{{Title}}</h1>",
			want:   []Placeholder{{Key: "title", Token: "{{Title}}", Offset: 4}},
		},
		{
			name:   "several in order",
			markup: `<a href="{{ url }}">{{ innerHtml }}</a>`,
			want: []Placeholder{
				{Key: "url", Token: "{{ url }}", Offset: 9},
				{Key: "innerhtml", Token: "{{ innerHtml }}", Offset: 20},
			},
		},
		{
			name:   "unterminated",
			markup: "<p>{{ a }} {{ b</p>",
			want:   []Placeholder{{Key: "a", Token: "{{ a }}", Offset: 3}},
		},
		{
			name:   "no nesting",
			markup: "{{ a {{ b }} }}",
			want:   []Placeholder{{Key: "a {{ b", Token: "{{ a {{ b }}", Offset: 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Scan(tt.markup))
		})
	}
}

func TestHasKey(t *testing.T) {
	ps := Scan("<p>{{ title }}</p>")
	assert.True(t, hasKey(ps, "title"))
	assert.False(t, hasKey(ps, "innerhtml"))
}
