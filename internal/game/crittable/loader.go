package crittable

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/tactics/internal/game/dice"
)

// LocationsFile is the file in a table directory holding every creature's
// location table.
const LocationsFile = "locations.yaml"

type locationsDoc struct {
	Locations map[string]*LocationTable `yaml:"locations"`
}

// LoadDirectory reads LocationsFile and every other *.yaml effect table in dir.
//
// Precondition: dir must be a readable directory.
// Postcondition: every loaded effect table passes Validate and every location
// table has a parseable dice expression.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading critical table dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		if e.Name() == LocationsFile {
			var doc locationsDoc
			if err := decodeStrict(data, &doc); err != nil {
				return nil, fmt.Errorf("parsing %q: %w", path, err)
			}
			for creature, t := range doc.Locations {
				if _, err := dice.Parse(t.Dice); err != nil {
					return nil, fmt.Errorf("location table %q: %w", creature, err)
				}
				reg.AddLocations(creature, t)
			}
			continue
		}
		var t EffectTable
		if err := decodeStrict(data, &t); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%q: %w", path, err)
		}
		reg.AddEffects(&t)
	}
	return reg, nil
}

func decodeStrict(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(v)
}
