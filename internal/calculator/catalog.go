package calculator

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Icon selects the glyph a rendering layer draws for a machine.
type Icon string

const (
	IconFactory  Icon = "factory"
	IconShredder Icon = "shredder"
	IconDroplets Icon = "droplets"
	IconZap      Icon = "zap"
	IconSquare   Icon = "square"
	IconWrench   Icon = "wrench"
)

func (i Icon) valid() bool {
	switch i {
	case IconFactory, IconShredder, IconDroplets, IconZap, IconSquare, IconWrench:
		return true
	}
	return false
}

// MachineDefinition describes one machine type within a preset.
type MachineDefinition struct {
	ID            int     `yaml:"id" json:"id"`
	Name          string  `yaml:"name" json:"name"`
	PowerKWh      float64 `yaml:"power_kwh" json:"powerKwh"`
	AreaM2        float64 `yaml:"area_m2" json:"areaM2"`
	BaseSkilled   int     `yaml:"base_skilled" json:"baseSkilled"`
	BaseUnskilled int     `yaml:"base_unskilled" json:"baseUnskilled"`
	Icon          Icon    `yaml:"icon" json:"icon"`
	// SeedUnits is the quantity a machine starts with when its preset is selected.
	SeedUnits int `yaml:"units" json:"seedUnits"`
}

// Preset is a named machine catalog for one industrial process.
type Preset struct {
	Key      string              `yaml:"key" json:"key"`
	Label    string              `yaml:"label" json:"label"`
	Color    string              `yaml:"color" json:"color"`
	Machines []MachineDefinition `yaml:"machines" json:"machines"`
}

func (p Preset) clone() Preset {
	out := p
	out.Machines = make([]MachineDefinition, len(p.Machines))
	copy(out.Machines, p.Machines)
	return out
}

func clonePresets(presets []Preset) []Preset {
	out := make([]Preset, len(presets))
	for i, p := range presets {
		out[i] = p.clone()
	}
	return out
}

type catalogFile struct {
	Presets []Preset `yaml:"presets"`
}

var defaultPresets = mustParseCatalog(catalogYAML)

// DefaultPresets returns a fresh copy of the built-in catalog: Briquette
// Production, Briquette + Pellet Combo and Mini Palm Oil Mill.
func DefaultPresets() []Preset {
	return clonePresets(defaultPresets)
}

// ParseCatalog decodes and validates a YAML preset catalog.
func ParseCatalog(data []byte) ([]Preset, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := ValidatePresets(file.Presets); err != nil {
		return nil, err
	}
	return file.Presets, nil
}

func mustParseCatalog(data []byte) []Preset {
	presets, err := ParseCatalog(data)
	if err != nil {
		panic(err)
	}
	return presets
}

// ValidatePresets checks catalog invariants: at least one preset, unique
// preset keys, unique machine ids within a preset and non-negative rates.
func ValidatePresets(presets []Preset) error {
	if len(presets) == 0 {
		return ErrEmptyCatalog
	}

	var errs []error
	keys := make(map[string]bool, len(presets))
	for _, p := range presets {
		if p.Key == "" || p.Label == "" {
			errs = append(errs, fmt.Errorf("preset %q: key and label are required", p.Label))
		}
		if keys[p.Key] {
			errs = append(errs, fmt.Errorf("preset %q: duplicate key", p.Key))
		}
		keys[p.Key] = true

		ids := make(map[int]bool, len(p.Machines))
		for _, m := range p.Machines {
			if ids[m.ID] {
				errs = append(errs, fmt.Errorf("preset %q: duplicate machine id %d", p.Key, m.ID))
			}
			ids[m.ID] = true

			if m.PowerKWh < 0 || m.AreaM2 < 0 || m.BaseSkilled < 0 || m.BaseUnskilled < 0 || m.SeedUnits < 0 {
				errs = append(errs, fmt.Errorf("preset %q machine %d: negative value", p.Key, m.ID))
			}
			if !m.Icon.valid() {
				errs = append(errs, fmt.Errorf("preset %q machine %d: unknown icon %q", p.Key, m.ID, m.Icon))
			}
		}
	}
	return errors.Join(errs...)
}

// PresetIndexByKey returns the index of the preset with key, or -1.
func PresetIndexByKey(presets []Preset, key string) int {
	for i, p := range presets {
		if p.Key == key {
			return i
		}
	}
	return -1
}
