package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KAMASDM/augustina/internal/calculator"
	"github.com/KAMASDM/augustina/internal/content"
	"github.com/KAMASDM/augustina/internal/migrations"
	"github.com/KAMASDM/augustina/internal/seo"
)

const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

func newCalcCommand() *cobra.Command {
	var (
		preset string
		units  map[string]int
		format string
	)

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Estimate resources for a process line",
		Long: `Estimate power, floor area and staffing for a process line without
starting the site.

The preset is selected by index or key. Units are given per machine id; machines
left out run zero units.

Examples:
  augustina calc --preset 0 --units 1=4,5=2
  augustina calc --preset palm-oil --units 1=2 --format json
  augustina calc --preset briquette-pellet --units 1=3 --format csv > line.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := calculator.DefaultPresets()

			index, err := strconv.Atoi(preset)
			if err != nil {
				index = calculator.PresetIndexByKey(presets, preset)
			}

			byID := make(map[int]int, len(units))
			for raw, n := range units {
				id, err := strconv.Atoi(strings.TrimSpace(raw))
				if err != nil {
					return fmt.Errorf("invalid machine id %q in --units", raw)
				}
				byID[id] = n
			}

			calc, err := calculator.Evaluate(presets, index, byID)
			if err != nil {
				return err
			}
			return writeBreakdown(cmd.OutOrStdout(), calc, format)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "0", "Preset index or key")
	cmd.Flags().StringToIntVar(&units, "units", nil, "Units per machine id (e.g. 1=4,5=2)")
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table, csv or json")
	return cmd
}

type breakdownJSON struct {
	Preset string                    `json:"preset"`
	Label  string                    `json:"label"`
	Rows   []calculator.BreakdownRow `json:"rows"`
}

func writeBreakdown(w io.Writer, calc *calculator.Calculator, format string) error {
	preset := calc.ActivePreset()
	machines := calc.Machines()

	switch format {
	case formatTable:
		_, err := io.WriteString(w, breakdownTable(preset.Label, machines).View(defaultTableStyles()))
		return err
	case formatCSV:
		return calculator.WriteCSV(w, machines)
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(breakdownJSON{
			Preset: preset.Key,
			Label:  preset.Label,
			Rows:   calculator.Breakdown(machines),
		})
	default:
		return fmt.Errorf("unknown format %q (want table, csv or json)", format)
	}
}

func breakdownTable(title string, machines []calculator.MachineState) *table {
	t := newTable(title, []string{"Machine", "Units", "Power (kWh)", "Area (m²)", "Skilled", "Unskilled"})
	for _, row := range calculator.Breakdown(machines) {
		t.addRow(
			row.Machine,
			humanize.Comma(int64(row.Units)),
			calculator.RoundWhole(row.PowerKWh),
			calculator.RoundWhole(row.AreaM2),
			humanize.Comma(int64(row.Skilled)),
			humanize.Comma(int64(row.Unskilled)),
		)
	}
	return t
}

type tableStyles struct {
	Title  lipgloss.Style
	Header lipgloss.Style
	Cell   lipgloss.Style
	Rule   lipgloss.Style
}

func defaultTableStyles() tableStyles {
	return tableStyles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ea580c")),
		Header: lipgloss.NewStyle().Bold(true),
		Cell:   lipgloss.NewStyle(),
		Rule:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// table renders rows of plain cells with aligned columns.
type table struct {
	title   string
	headers []string
	rows    [][]string
}

func newTable(title string, headers []string) *table {
	return &table{title: title, headers: headers}
}

func (t *table) addRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) View(styles tableStyles) string {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}
	// Padding(0, 1) counts toward the rendered width.
	for i := range widths {
		widths[i] += 2
	}

	var sb strings.Builder
	if t.title != "" {
		sb.WriteString(styles.Title.Render(t.title))
		sb.WriteString("\n")
	}

	sep := styles.Rule.Render("|")
	line := func(cells []string, style lipgloss.Style) {
		for i, cell := range cells {
			if i >= len(widths) {
				break
			}
			s := style.Padding(0, 1).Width(widths[i])
			if i > 0 {
				s = s.Align(lipgloss.Right)
				sb.WriteString(sep)
			}
			sb.WriteString(s.Render(cell))
		}
		sb.WriteString("\n")
	}

	line(t.headers, styles.Header)
	total := len(widths) - 1
	for _, w := range widths {
		total += w
	}
	sb.WriteString(styles.Rule.Render(strings.Repeat("-", total)))
	sb.WriteString("\n")
	for _, row := range t.rows {
		line(row, styles.Cell)
	}
	return sb.String()
}

func newSitemapCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sitemap",
		Short: "Print sitemap.xml built from the content API",
		Long: `Fetch products and blogs from the content API and print the sitemap the
site serves at /sitemap.xml. A section whose fetch fails is logged and left out.

Examples:
  augustina sitemap > public/sitemap.xml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			site := seo.Site{Name: cfg.Site.Name, BaseURL: cfg.Site.BaseURL}
			client := content.NewClient(cfg.Content.BaseURL, cfg.Content.Timeout, logger.Named("content"), nil)
			entries := site.Sitemap(cmd.Context(), client, time.Now(), logger)
			return seo.WriteSitemap(cmd.OutOrStdout(), entries)
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply migrations and seed notification routes",
		Long: `Apply the enquiry outbox migrations and upsert the notification routes from
the mail configuration. Safe to run repeatedly.

Examples:
  DB_PATH=/var/lib/augustina/site.db augustina migrate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			database, stats, err := openOutbox(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			version, err := migrations.Version(cmd.Context(), database)
			if err != nil {
				return err
			}
			logger.Info("database ready",
				zap.String("path", cfg.Database.Path),
				zap.Int64("version", version),
				zap.Int("inserts", stats.Inserts),
				zap.Int("updates", stats.Updates))
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d, routes inserted %d, updated %d\n",
				version, stats.Inserts, stats.Updates)
			return nil
		},
	}
}
