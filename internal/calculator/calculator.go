// Package calculator estimates power, floor area and staffing for a biomass
// processing line built from a preset catalog of machines.
package calculator

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// StaffingBlockSize is the number of physical units covered by one block of
// base skilled/unskilled headcount.
const StaffingBlockSize = 3

var (
	// ErrPresetOutOfRange is returned when a preset index is outside the catalog.
	ErrPresetOutOfRange = errors.New("preset index out of range")
	// ErrUnknownMachine is returned when a machine id is not part of the active preset.
	ErrUnknownMachine = errors.New("unknown machine")
	// ErrEmptyCatalog is returned when a calculator is built without presets.
	ErrEmptyCatalog = errors.New("catalog has no presets")
)

// MachineState is a machine definition plus the quantity currently requested.
type MachineState struct {
	MachineDefinition
	Units int
}

// Contribution returns the machine's share of the totals at its current units.
func (m MachineState) Contribution() Totals {
	multiplier := StaffingMultiplier(m.Units)
	return Totals{
		Power:     m.PowerKWh * float64(m.Units),
		Area:      m.AreaM2 * float64(m.Units),
		Skilled:   saturatingMul(m.BaseSkilled, multiplier),
		Unskilled: saturatingMul(m.BaseUnskilled, multiplier),
	}
}

// Totals contains the aggregate requirements of a set of machines.
type Totals struct {
	Power     float64
	Area      float64
	Skilled   int
	Unskilled int
}

// Add returns the element-wise sum of t and o.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		Power:     t.Power + o.Power,
		Area:      t.Area + o.Area,
		Skilled:   saturatingAdd(t.Skilled, o.Skilled),
		Unskilled: saturatingAdd(t.Unskilled, o.Unskilled),
	}
}

// StaffingMultiplier returns how many staffing blocks units machines need.
// Zero units need no staff; any partial block is staffed in full.
func StaffingMultiplier(units int) int {
	if units <= 0 {
		return 0
	}
	return units/StaffingBlockSize + min(units%StaffingBlockSize, 1)
}

// Headcounts are non-negative, so both helpers only guard the upper bound.
func saturatingMul(a, b int) int {
	if a <= 0 || b <= 0 {
		return 0
	}
	if a > math.MaxInt/b {
		return math.MaxInt
	}
	return a * b
}

func saturatingAdd(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

// Sum computes totals over machines.
func Sum(machines []MachineState) Totals {
	var totals Totals
	for _, m := range machines {
		totals = totals.Add(m.Contribution())
	}
	return totals
}

// ParseUnits converts free-text quantity input into a unit count. It reads the
// leading integer of the trimmed text; text without one yields 0. Negative
// values clamp to 0 and values too large for an int clamp to math.MaxInt.
func ParseUnits(raw string) int {
	s := strings.TrimSpace(raw)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0
	}

	value, err := strconv.Atoi(s[:end])
	switch {
	case errors.Is(err, strconv.ErrRange):
		if s[0] == '-' {
			return 0
		}
		return math.MaxInt
	case err != nil, value < 0:
		return 0
	}
	return value
}

// Calculator holds the editable machine quantities of one active preset.
// It is owned by a single widget and is not safe for concurrent use.
type Calculator struct {
	presets  []Preset
	active   int
	machines []MachineState
}

// New returns a calculator over presets with the first preset selected.
func New(presets []Preset) (*Calculator, error) {
	if len(presets) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Calculator{presets: clonePresets(presets)}
	if err := c.SelectPreset(0); err != nil {
		return nil, err
	}
	return c, nil
}

// Presets returns a copy of the catalog the calculator was built with.
func (c *Calculator) Presets() []Preset {
	return clonePresets(c.presets)
}

// PresetIndex returns the index of the active preset.
func (c *Calculator) PresetIndex() int {
	return c.active
}

// ActivePreset returns a copy of the active preset.
func (c *Calculator) ActivePreset() Preset {
	return c.presets[c.active].clone()
}

// SelectPreset discards all unit edits and seeds fresh state from the preset
// at index.
func (c *Calculator) SelectPreset(index int) error {
	if index < 0 || index >= len(c.presets) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrPresetOutOfRange, index, len(c.presets))
	}

	defs := c.presets[index].Machines
	machines := make([]MachineState, len(defs))
	for i, def := range defs {
		machines[i] = MachineState{MachineDefinition: def, Units: max(def.SeedUnits, 0)}
	}

	c.active = index
	c.machines = machines
	return nil
}

// Machines returns a snapshot of the current machine states.
func (c *Calculator) Machines() []MachineState {
	out := make([]MachineState, len(c.machines))
	copy(out, c.machines)
	return out
}

// Machine returns the current state of the machine with id.
func (c *Calculator) Machine(id int) (MachineState, error) {
	i, err := c.indexOf(id)
	if err != nil {
		return MachineState{}, err
	}
	return c.machines[i], nil
}

// SetUnits sets the quantity of one machine. Negative values clamp to 0.
func (c *Calculator) SetUnits(id, units int) error {
	i, err := c.indexOf(id)
	if err != nil {
		return err
	}
	c.machines[i].Units = max(units, 0)
	return nil
}

// SetUnitsText sets the quantity of one machine from free-text input.
func (c *Calculator) SetUnitsText(id int, raw string) error {
	return c.SetUnits(id, ParseUnits(raw))
}

// IncrementUnits adds one unit to a machine. It does nothing at math.MaxInt.
func (c *Calculator) IncrementUnits(id int) error {
	i, err := c.indexOf(id)
	if err != nil {
		return err
	}
	if c.machines[i].Units < math.MaxInt {
		c.machines[i].Units++
	}
	return nil
}

// DecrementUnits removes one unit from a machine. It does nothing at zero.
func (c *Calculator) DecrementUnits(id int) error {
	i, err := c.indexOf(id)
	if err != nil {
		return err
	}
	if c.machines[i].Units > 0 {
		c.machines[i].Units--
	}
	return nil
}

// Totals computes the aggregate requirements of the current state.
func (c *Calculator) Totals() Totals {
	return Sum(c.machines)
}

func (c *Calculator) indexOf(id int) (int, error) {
	for i := range c.machines {
		if c.machines[i].ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: id %d in preset %q", ErrUnknownMachine, id, c.presets[c.active].Label)
}

// Evaluate builds a calculator on the preset at index and applies units by
// machine id. Ids are applied in ascending order so errors are deterministic.
func Evaluate(presets []Preset, index int, units map[int]int) (*Calculator, error) {
	c, err := New(presets)
	if err != nil {
		return nil, err
	}
	if err := c.SelectPreset(index); err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(units))
	for id := range units {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if err := c.SetUnits(id, units[id]); err != nil {
			return nil, err
		}
	}
	return c, nil
}
