package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestHtmtError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *HtmtError
		want string
	}{
		{
			name: "message only",
			err:  &HtmtError{Message: "boom"},
			want: "boom",
		},
		{
			name: "with code",
			err:  NewConfigError(ErrCodeConfigInvalid, "workers must be positive"),
			want: "[ERR_CONFIG_INVALID] workers must be positive",
		},
		{
			name: "with path",
			err:  NewValidationError("", "bad manifest").WithLocation("manifest.json", 0, 0),
			want: "manifest.json: bad manifest",
		},
		{
			name: "with location and cause",
			err:  WrapBuild(errors.New("cycle"), "", "expansion failed").WithLocation("index.htmt", 3, 7),
			want: "index.htmt:3,7; expansion failed: cycle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestHtmtError_IsAndUnwrap(t *testing.T) {
	cause := fs.ErrNotExist
	err := WrapIO(cause, ErrCodeReadFailed, "elements/main.htmt")

	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.True(t, errors.Is(err, &HtmtError{Type: ErrorTypeIO, Code: ErrCodeReadFailed}))
	assert.False(t, errors.Is(err, &HtmtError{Type: ErrorTypeIO, Code: ErrCodeWriteFailed}))
	assert.True(t, IsType(err, ErrorTypeIO))
	assert.True(t, HasCode(fmt.Errorf("outer: %w", err), ErrCodeReadFailed))
	assert.Equal(t, cause, ExtractCause(fmt.Errorf("outer: %w", err)))
}

func TestWrap_Nil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeBuild, ErrCodeBuildFailed, "nothing"))
	assert.Nil(t, WrapIO(nil, ErrCodeReadFailed, "x"))
}

func TestElementErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		code     string
		contains string
	}{
		{"duplicate element", &DuplicateElementError{Name: "main"}, ErrDuplicateElement, ErrCodeDuplicateElement, "'main'"},
		{"unknown element", &UnknownElementError{Name: "nav"}, ErrUnknownElement, ErrCodeUnknownElement, "'nav' does not exist"},
		{
			"cycle",
			&CycleError{Element: "page", Path: []string{"page", "main", "page"}, Source: "main", Line: 1, Column: 6},
			ErrCycle,
			ErrCodeCycle,
			"main:1,6; Infinite recursion detected for element 'page' (page -> main -> page)",
		},
		{
			"multiple roots",
			&MultipleRootNodesError{Element: "page", Roots: 2, Source: "index", Line: 1, Column: 1},
			ErrMultipleRootNodes,
			ErrCodeMultipleRootNodes,
			"index:1,1; Multiple node elements",
		},
		{
			"duplicate attribute",
			&DuplicateAttributeError{Attribute: "title", Element: "page", Source: "index", Line: 2, Column: 4},
			ErrDuplicateAttribute,
			ErrCodeDuplicateAttribute,
			"index:2,4; Attribute 'title' occurred more than once",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.True(t, HasCode(tt.err, tt.code))
			assert.False(t, HasCode(tt.err, ErrCodeReadFailed))
			assert.Contains(t, tt.err.Error(), tt.contains)
		})
	}
}

func TestHasCode_WrappedAndJoined(t *testing.T) {
	cycle := &CycleError{Element: "a", Path: []string{"a", "b", "a"}, Source: "b", Line: 1, Column: 6}
	page := NewPageParsingError("index.htmt", 1, 1, cycle)

	assert.True(t, HasCode(page, ErrCodePageFailed))
	assert.True(t, HasCode(page, ErrCodeCycle))
	assert.True(t, HasCode(fmt.Errorf("build: %w", page), ErrCodeCycle))

	joined := multierr.Append(
		NewPageParsingError("about.htmt", 2, 3, &UnknownElementError{Name: "nav"}),
		page,
	)
	assert.True(t, HasCode(joined, ErrCodeUnknownElement))
	assert.True(t, HasCode(joined, ErrCodeCycle))
	assert.True(t, HasCode(WrapBuild(joined, ErrCodeBuildFailed, "pages failed"), ErrCodeCycle))
	assert.False(t, HasCode(joined, ErrCodeMultipleRootNodes))
	assert.False(t, HasCode(nil, ErrCodeCycle))
}

func TestPageParsingError(t *testing.T) {
	cause := &UnknownElementError{Name: "nav"}
	err := NewPageParsingError("index.htmt", 4, 2, cause)

	assert.Equal(t, "index.htmt:4,2; element 'nav' does not exist", err.Error())
	assert.ErrorIs(t, err, ErrUnknownElement)

	var unknown *UnknownElementError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "nav", unknown.Name)
}

func TestPageParsingError_LocatedCause(t *testing.T) {
	same := &DuplicateAttributeError{Attribute: "id", Element: "card", Source: "index.htmt", Line: 3, Column: 5}
	err := NewPageParsingError("index.htmt", 3, 5, same)
	assert.Equal(t, "index.htmt:3,5; Attribute 'id' occurred more than once for element 'card'", err.Error())

	elsewhere := &CycleError{Element: "a", Path: []string{"a", "b", "a"}, Source: "b", Line: 1, Column: 6}
	err = NewPageParsingError("index.htmt", 3, 5, elsewhere)
	assert.Equal(t, "index.htmt:3,5; b:1,6; Infinite recursion detected for element 'a' (a -> b -> a)", err.Error())
	assert.ErrorIs(t, err, ErrCycle)
}
