package calculator

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// TotalRowName labels the aggregate row of a breakdown.
const TotalRowName = "Total"

// BreakdownRow is one line of a per-machine requirements breakdown.
type BreakdownRow struct {
	Machine   string  `csv:"machine" json:"machine"`
	Units     int     `csv:"units" json:"units"`
	PowerKWh  float64 `csv:"power_kwh" json:"powerKwh"`
	AreaM2    float64 `csv:"area_m2" json:"areaM2"`
	Skilled   int     `csv:"skilled" json:"skilled"`
	Unskilled int     `csv:"unskilled" json:"unskilled"`
}

// Breakdown returns one row per machine followed by a total row.
func Breakdown(machines []MachineState) []BreakdownRow {
	rows := make([]BreakdownRow, 0, len(machines)+1)
	var units int
	for _, m := range machines {
		c := m.Contribution()
		units += m.Units
		rows = append(rows, BreakdownRow{
			Machine:   m.Name,
			Units:     m.Units,
			PowerKWh:  c.Power,
			AreaM2:    c.Area,
			Skilled:   c.Skilled,
			Unskilled: c.Unskilled,
		})
	}

	t := Sum(machines)
	rows = append(rows, BreakdownRow{
		Machine:   TotalRowName,
		Units:     units,
		PowerKWh:  t.Power,
		AreaM2:    t.Area,
		Skilled:   t.Skilled,
		Unskilled: t.Unskilled,
	})
	return rows
}

// WriteCSV writes the breakdown of machines as CSV with a header row.
func WriteCSV(w io.Writer, machines []MachineState) error {
	if err := gocsv.Marshal(Breakdown(machines), w); err != nil {
		return fmt.Errorf("write breakdown csv: %w", err)
	}
	return nil
}
