package calculator

import (
	"math"

	"github.com/dustin/go-humanize"
)

// Display holds totals formatted for a rendering surface.
type Display struct {
	Power     string
	Area      string
	Skilled   string
	Unskilled string
}

// Display formats t for people: power and area rounded to whole units,
// headcounts exactly.
func (t Totals) Display() Display {
	return Display{
		Power:     RoundWhole(t.Power),
		Area:      RoundWhole(t.Area),
		Skilled:   humanize.Comma(int64(t.Skilled)),
		Unskilled: humanize.Comma(int64(t.Unskilled)),
	}
}

// RoundWhole rounds v half away from zero and groups thousands.
func RoundWhole(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}
