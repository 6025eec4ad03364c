// Package manifest reads the site manifest: the list of elements to
// register, the output directory and the asset copy settings.
//
// The manifest is usually manifest.json. It is decoded with a YAML decoder,
// so YAML manifests work too. Keys are matched case-insensitively and
// unknown keys are ignored.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/htmt/internal/errors"
)

// Manifest describes a site.
type Manifest struct {
	// Elements lists element names; each is read from elements/<name>.htmt
	Elements []string `yaml:"elements"`
	// OutputPath is relative to the manifest directory; empty means "out"
	OutputPath string `yaml:"outputPath"`
	// Assets is nil when the manifest has no assets section
	Assets *Assets `yaml:"assets"`
}

// Assets configures asset copying. With Input set, the input directory is
// copied as a whole ("discreet" assets); otherwise non-page files found
// next to the pages are copied ("intermixed" assets).
type Assets struct {
	Input   *string  `yaml:"input"`
	Output  *string  `yaml:"output"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// Discreet reports whether assets live in their own input directory.
func (a *Assets) Discreet() bool {
	return a != nil && a.Input != nil
}

func (m *Manifest) UnmarshalYAML(value *yaml.Node) error {
	return decodeMapping(value, "manifest", func(key string, val *yaml.Node) error {
		switch key {
		case "elements":
			return val.Decode(&m.Elements)
		case "outputpath":
			return val.Decode(&m.OutputPath)
		case "assets":
			m.Assets = &Assets{}
			return val.Decode(m.Assets)
		}
		return nil
	})
}

func (a *Assets) UnmarshalYAML(value *yaml.Node) error {
	return decodeMapping(value, "assets", func(key string, val *yaml.Node) error {
		switch key {
		case "input":
			return decodeOptional(val, &a.Input)
		case "output":
			return decodeOptional(val, &a.Output)
		case "include":
			return val.Decode(&a.Include)
		case "exclude":
			return val.Decode(&a.Exclude)
		}
		return nil
	})
}

// decodeMapping calls field for every key of a mapping node, with the key
// lower-cased.
func decodeMapping(value *yaml.Node, what string, field func(key string, val *yaml.Node) error) error {
	if value.Kind == yaml.ScalarNode && value.ShortTag() == "!!null" {
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: %s must be an object", value.Line, what)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		if err := field(strings.ToLower(key.Value), val); err != nil {
			return err
		}
	}
	return nil
}

// decodeOptional leaves dst nil for an explicit null.
func decodeOptional(val *yaml.Node, dst **string) error {
	if val.Kind == yaml.ScalarNode && val.ShortTag() == "!!null" {
		*dst = nil
		return nil
	}
	var s string
	if err := val.Decode(&s); err != nil {
		return err
	}
	*dst = &s
	return nil
}

// Parse decodes a manifest document.
func Parse(data []byte) (*Manifest, error) {
	// JSON forbids raw tabs inside strings, so outside of them they are
	// only indentation, which YAML rejects.
	data = bytes.ReplaceAll(data, []byte("\t"), []byte(" "))

	var m Manifest
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, err
		}
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads and decodes the manifest at path.
func Load(fs afero.Fs, path string) (*Manifest, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeManifestNotFound,
				fmt.Sprintf("unable to find manifest file at '%s'", path), err)
		}
		return nil, errors.WrapIO(err, errors.ErrCodeReadFailed, path)
	}

	m, err := Parse(data)
	if err != nil {
		herr := errors.Wrap(err, errors.ErrorTypeValidation, errors.ErrCodeManifestInvalid, "invalid manifest")
		herr.Path = path
		return nil, herr
	}
	return m, nil
}

func (m *Manifest) validate() error {
	for i, name := range m.Elements {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return fmt.Errorf("elements[%d] is empty", i)
		}
		if strings.ContainsAny(trimmed, `/\`) || trimmed == "." || trimmed == ".." {
			return fmt.Errorf("elements[%d]: %q is not a plain file name", i, name)
		}
	}
	return nil
}

// OutputDir returns the output directory for a site rooted at root.
func (m *Manifest) OutputDir(root string) string {
	if strings.TrimSpace(m.OutputPath) == "" {
		return filepath.Join(root, "out")
	}
	if filepath.IsAbs(m.OutputPath) {
		return m.OutputPath
	}
	return filepath.Join(root, m.OutputPath)
}
