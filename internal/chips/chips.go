// Package chips holds the chip definitions that tell the projector where a
// device tree keeps its GPU tables, and resolves a device identity (the
// tree's model string) to one of them.
package chips

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"gopkg.in/yaml.v3"

	"github.com/pstuifzand/dtsedit/internal/model"
)

//go:embed chips.yaml
var defaultDefinitions []byte

// ErrUnknownChip is returned when no definition matches a name or identity
var ErrUnknownChip = errors.New("chips: unknown chip")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Lookup resolves a device identity to a chip definition
type Lookup interface {
	Lookup(identity string) (model.ChipDefinition, bool)
}

type definitionFile struct {
	Definitions []model.ChipDefinition `yaml:"definitions" validate:"dive"`
}

// Registry is an ordered set of chip definitions. It is safe for concurrent
// reads once built.
type Registry struct {
	defs []model.ChipDefinition
}

// Default returns a registry with the built-in definitions
func Default() *Registry {
	defs, err := Load(bytes.NewReader(defaultDefinitions))
	if err != nil {
		panic(fmt.Sprintf("built-in chip definitions: %v", err))
	}
	return &Registry{defs: defs}
}

// New builds a registry from definitions, validating each one
func New(defs ...model.ChipDefinition) (*Registry, error) {
	r := &Registry{}
	if err := r.Merge(defs...); err != nil {
		return nil, err
	}
	return r, nil
}

// Load decodes and validates a YAML definition file
func Load(rd io.Reader) ([]model.ChipDefinition, error) {
	var f definitionFile
	if err := yaml.NewDecoder(rd).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode chip definitions: %w", err)
	}
	for i := range f.Definitions {
		if err := validate.Struct(f.Definitions[i]); err != nil {
			return nil, fmt.Errorf("chip definition %d (%q): %w", i, f.Definitions[i].Name, err)
		}
		f.Definitions[i] = f.Definitions[i].WithDefaults()
	}
	return f.Definitions, nil
}

// LoadFile merges the definitions of a YAML file into the registry
func (r *Registry) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open chip definitions: %w", err)
	}
	defer f.Close()

	defs, err := Load(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return r.Merge(defs...)
}

// Merge adds definitions. A definition replaces an existing one with the
// same name.
func (r *Registry) Merge(defs ...model.ChipDefinition) error {
	for _, d := range defs {
		if err := validate.Struct(d); err != nil {
			return fmt.Errorf("chip definition %q: %w", d.Name, err)
		}
		d = d.WithDefaults()
		replaced := false
		for i := range r.defs {
			if strings.EqualFold(r.defs[i].Name, d.Name) {
				r.defs[i] = d
				replaced = true
				break
			}
		}
		if !replaced {
			r.defs = append(r.defs, d)
		}
	}
	return nil
}

// Names lists the chip names in registry order
func (r *Registry) Names() []string {
	names := make([]string, len(r.defs))
	for i, d := range r.defs {
		names[i] = d.Name
	}
	return names
}

// ByName returns the definition with the given name, ignoring case
func (r *Registry) ByName(name string) (model.ChipDefinition, error) {
	for _, d := range r.defs {
		if strings.EqualFold(d.Name, name) {
			return d, nil
		}
	}
	return model.ChipDefinition{}, fmt.Errorf("%w: %q", ErrUnknownChip, name)
}

// Lookup finds the definition for a device identity. An exact model match
// wins; otherwise the closest model that fuzzily contains the identity (or
// is contained in it) is used.
func (r *Registry) Lookup(identity string) (model.ChipDefinition, bool) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return model.ChipDefinition{}, false
	}
	for _, d := range r.defs {
		for _, m := range d.Models {
			if strings.EqualFold(m, identity) {
				return d, true
			}
		}
	}

	lower := strings.ToLower(identity)
	best, bestDistance := -1, 0
	for i, d := range r.defs {
		for _, m := range d.Models {
			if !fuzzy.MatchFold(identity, m) && !fuzzy.MatchFold(m, identity) {
				continue
			}
			distance := fuzzy.LevenshteinDistance(lower, strings.ToLower(m))
			if best < 0 || distance < bestDistance {
				best, bestDistance = i, distance
			}
		}
	}
	if best < 0 {
		return model.ChipDefinition{}, false
	}
	return r.defs[best], true
}

// Resolve picks the definition for a tree: the named chip when name is
// set, otherwise a lookup of the identity
func (r *Registry) Resolve(name, identity string) (model.ChipDefinition, error) {
	if name != "" {
		return r.ByName(name)
	}
	if d, ok := r.Lookup(identity); ok {
		return d, nil
	}
	return model.ChipDefinition{}, fmt.Errorf("%w: no definition for %q", ErrUnknownChip, identity)
}
