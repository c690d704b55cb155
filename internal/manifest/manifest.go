package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/pathtofile/dockenv/internal/model"
)

// Manifest is an environment definition. Every field is optional; unset
// fields fall back to command-line flags and then to the user config.
type Manifest struct {
	// Base is the image the environment is built FROM.
	Base string `json:"base,omitempty" yaml:"base,omitempty"`

	// User is the non-root account scripts run as.
	User string `json:"user,omitempty" yaml:"user,omitempty"`

	// Requirements is a pip requirements file, relative to the manifest.
	Requirements string `json:"requirements,omitempty" yaml:"requirements,omitempty"`

	// Packages are extra pip requirement specifiers.
	Packages []string `json:"packages,omitempty" yaml:"packages,omitempty"`

	// OnlyBinary overrides the pip.only_binary config when set.
	OnlyBinary *bool `json:"onlyBinary,omitempty" yaml:"onlyBinary,omitempty"`

	// dir is the directory the manifest was loaded from.
	dir string
}

// Load reads and parses the manifest at path. Unknown fields are
// rejected so a typo ("pakages") does not silently build the wrong
// environment.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(
				model.ExitInvalidInput,
				fmt.Sprintf("manifest not found: %s", path),
				err,
			)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitInvalidInput,
			fmt.Sprintf("failed to parse manifest %s", path),
			err,
		)
	}

	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manifest directory: %w", err)
	}
	m.dir = abs
	return m, nil
}

// Parse decodes manifest content. ext selects the format: ".yaml" and
// ".yml" are YAML, everything else JSON with comments.
func Parse(data []byte, ext string) (*Manifest, error) {
	var m Manifest

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			return nil, err
		}
	}

	return &m, nil
}

// RequirementsPath resolves Requirements against the manifest directory.
// Returns "" when no requirements file is set.
func (m *Manifest) RequirementsPath() string {
	if m.Requirements == "" {
		return ""
	}
	if filepath.IsAbs(m.Requirements) || m.dir == "" {
		return m.Requirements
	}
	return filepath.Join(m.dir, m.Requirements)
}
