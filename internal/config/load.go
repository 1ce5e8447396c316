package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// LoadError reports a configuration file that could not be read, with the
// CUE source position when one is known.
type LoadError struct {
	Path    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Load reads a configuration file. The format follows the extension:
// .cue, .json, or YAML for anything else. Fields left out take their
// Default values. The result is checked by building engine parameters.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &LoadError{Path: path, Message: err.Error()}
	}

	var c Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		c, err = ParseCUE(path, data)
	case ".json":
		c, err = Unmarshal(data)
	default:
		c, err = ParseYAML(data)
	}
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			return Config{}, err
		}
		return Config{}, &LoadError{Path: path, Message: err.Error()}
	}

	if _, err := c.Params(); err != nil {
		return Config{}, &LoadError{Path: path, Message: err.Error()}
	}
	return c, nil
}

// ParseYAML decodes a YAML configuration. Unknown keys are errors.
func ParseYAML(data []byte) (Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c Config
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	return c.WithDefaults(), nil
}

// ParseCUE unifies a CUE configuration with the #Config schema and decodes
// the concrete result. The file holds the fields at top level.
func ParseCUE(filename string, data []byte) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile schema: %w", err)
	}

	user := ctx.CompileBytes(data, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return Config{}, formatCUEError(filename, err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(user)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(filename, err)
	}

	var c Config
	if err := v.Decode(&c); err != nil {
		return Config{}, formatCUEError(filename, err)
	}
	return c.WithDefaults(), nil
}

// formatCUEError keeps the first error and its position.
func formatCUEError(path string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Path: path, Message: err.Error()}
	}
	first := errs[0]
	le := &LoadError{Path: path, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
