package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/KAMASDM/augustina/internal/calculator"
	"github.com/KAMASDM/augustina/internal/seo"
)

type presetTab struct {
	Index  int
	Label  string
	Color  template.CSS
	Active bool
}

type machineCard struct {
	ID        int
	Name      string
	Icon      calculator.Icon
	Units     int
	Power     string
	Area      string
	Skilled   string
	Unskilled string
}

type calculatorView struct {
	Presets  []presetTab
	Machines []machineCard
	Totals   calculator.Display
}

type calculatorViewData struct {
	baseViewData
	Calc calculatorView
}

func newCalculatorView(calc *calculator.Calculator) calculatorView {
	var view calculatorView
	for i, p := range calc.Presets() {
		view.Presets = append(view.Presets, presetTab{
			Index: i,
			Label: p.Label,
			// Colors come from the embedded catalog.
			Color:  template.CSS(p.Color),
			Active: i == calc.PresetIndex(),
		})
	}
	for _, m := range calc.Machines() {
		d := m.Contribution().Display()
		view.Machines = append(view.Machines, machineCard{
			ID:        m.ID,
			Name:      m.Name,
			Icon:      m.Icon,
			Units:     m.Units,
			Power:     d.Power,
			Area:      d.Area,
			Skilled:   d.Skilled,
			Unskilled: d.Unskilled,
		})
	}
	view.Totals = calc.Totals().Display()
	return view
}

// JSON shapes for the calculator API.
type machineJSON struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Icon      calculator.Icon `json:"icon"`
	Units     int             `json:"units"`
	PowerKWh  float64         `json:"powerKwh"`
	AreaM2    float64         `json:"areaM2"`
	Skilled   int             `json:"skilled"`
	Unskilled int             `json:"unskilled"`
}

type totalsJSON struct {
	PowerKWh  float64            `json:"powerKwh"`
	AreaM2    float64            `json:"areaM2"`
	Skilled   int                `json:"skilled"`
	Unskilled int                `json:"unskilled"`
	Display   calculator.Display `json:"display"`
}

type calculatorStateJSON struct {
	Preset    int           `json:"preset"`
	PresetKey string        `json:"presetKey"`
	Label     string        `json:"label"`
	Machines  []machineJSON `json:"machines"`
	Totals    totalsJSON    `json:"totals"`
}

type evaluateRequest struct {
	Preset int         `json:"preset"`
	Units  map[int]int `json:"units"`
}

type errorJSON struct {
	Error string `json:"error"`
}

func newCalculatorState(calc *calculator.Calculator) calculatorStateJSON {
	preset := calc.ActivePreset()
	state := calculatorStateJSON{
		Preset:    calc.PresetIndex(),
		PresetKey: preset.Key,
		Label:     preset.Label,
		Machines:  []machineJSON{},
	}
	for _, m := range calc.Machines() {
		c := m.Contribution()
		state.Machines = append(state.Machines, machineJSON{
			ID:        m.ID,
			Name:      m.Name,
			Icon:      m.Icon,
			Units:     m.Units,
			PowerKWh:  c.Power,
			AreaM2:    c.Area,
			Skilled:   c.Skilled,
			Unskilled: c.Unskilled,
		})
	}
	t := calc.Totals()
	state.Totals = totalsJSON{
		PowerKWh:  t.Power,
		AreaM2:    t.Area,
		Skilled:   t.Skilled,
		Unskilled: t.Unskilled,
		Display:   t.Display(),
	}
	return state
}

func calculatorStatus(err error) int {
	switch {
	case errors.Is(err, calculator.ErrPresetOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, calculator.ErrUnknownMachine):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// widgetView snapshots the caller's widget for rendering. Callers without a
// widget see a fresh calculator and get no session.
func (s *server) widgetView(r *http.Request) (calculatorView, error) {
	calc, release, err := s.widgets.view(r)
	if err != nil {
		return calculatorView{}, err
	}
	defer release()
	return newCalculatorView(calc), nil
}

func (s *server) handleCalculator(w http.ResponseWriter, r *http.Request) {
	view, err := s.widgetView(r)
	if err != nil {
		s.logger.Error("load widget", zap.Error(err))
		http.Error(w, "calculator unavailable", http.StatusInternalServerError)
		return
	}

	s.renderTemplate(w, "calculator.html", calculatorViewData{
		baseViewData: s.base(s.site.Page(seo.PageCalculator)),
		Calc:         view,
	})
}

// calculatorAction runs op on the caller's widget, then answers with the new
// state as JSON or redirects back to the widget.
func (s *server) calculatorAction(name string, op func(r *http.Request, calc *calculator.Calculator) (anchor string, err error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		wg, err := s.widgets.acquire(w, r)
		if errors.Is(err, errWidgetLimit) {
			s.logger.Warn("widget store full", zap.String("op", name))
			http.Error(w, "calculator busy, please try again later", http.StatusServiceUnavailable)
			return
		}
		if err != nil {
			s.logger.Error("acquire widget", zap.Error(err))
			http.Error(w, "calculator unavailable", http.StatusInternalServerError)
			return
		}
		anchor, opErr := op(r, wg.calc)
		state := newCalculatorState(wg.calc)
		wg.release()

		s.metrics.CalculatorOp(name, opErr)
		if opErr != nil {
			status := calculatorStatus(opErr)
			if status == http.StatusInternalServerError {
				s.logger.Error("calculator operation", zap.String("op", name), zap.Error(opErr))
			}
			if wantsJSON(r) {
				writeJSON(w, status, errorJSON{Error: opErr.Error()})
				return
			}
			http.Error(w, opErr.Error(), status)
			return
		}

		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, state)
			return
		}
		target := "/calculator"
		if anchor != "" {
			target += "#" + anchor
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

func machineID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", calculator.ErrUnknownMachine, chi.URLParam(r, "id"))
	}
	return id, nil
}

func machineAnchor(id int) string {
	return "machine-" + strconv.Itoa(id)
}

func (s *server) handleCalculatorPreset(w http.ResponseWriter, r *http.Request) {
	s.calculatorAction("select_preset", func(r *http.Request, calc *calculator.Calculator) (string, error) {
		raw := r.FormValue("preset")
		index, err := strconv.Atoi(raw)
		if err != nil {
			index = calculator.PresetIndexByKey(calc.Presets(), raw)
		}
		return "", calc.SelectPreset(index)
	})(w, r)
}

func (s *server) handleCalculatorSetUnits(w http.ResponseWriter, r *http.Request) {
	s.calculatorAction("set_units", func(r *http.Request, calc *calculator.Calculator) (string, error) {
		id, err := machineID(r)
		if err != nil {
			return "", err
		}
		return machineAnchor(id), calc.SetUnitsText(id, r.FormValue("units"))
	})(w, r)
}

func (s *server) handleCalculatorIncrement(w http.ResponseWriter, r *http.Request) {
	s.calculatorAction("increment", func(r *http.Request, calc *calculator.Calculator) (string, error) {
		id, err := machineID(r)
		if err != nil {
			return "", err
		}
		return machineAnchor(id), calc.IncrementUnits(id)
	})(w, r)
}

func (s *server) handleCalculatorDecrement(w http.ResponseWriter, r *http.Request) {
	s.calculatorAction("decrement", func(r *http.Request, calc *calculator.Calculator) (string, error) {
		id, err := machineID(r)
		if err != nil {
			return "", err
		}
		return machineAnchor(id), calc.DecrementUnits(id)
	})(w, r)
}

func (s *server) handleCalculatorExport(w http.ResponseWriter, r *http.Request) {
	calc, release, err := s.widgets.view(r)
	if err != nil {
		s.logger.Error("load widget", zap.Error(err))
		http.Error(w, "calculator unavailable", http.StatusInternalServerError)
		return
	}
	key := calc.ActivePreset().Key
	machines := calc.Machines()
	release()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", key+"-resources.csv"))
	err = calculator.WriteCSV(w, machines)
	if err != nil {
		s.logger.Error("write calculator csv", zap.Error(err))
	}
	s.metrics.CalculatorOp("export", err)
}

// handleAPICalculatorState reports the caller's widget, or a fresh calculator
// when the caller has none. It never starts a session.
func (s *server) handleAPICalculatorState(w http.ResponseWriter, r *http.Request) {
	calc, release, err := s.widgets.view(r)
	if err != nil {
		s.logger.Error("load widget", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "calculator unavailable"})
		return
	}
	state := newCalculatorState(calc)
	release()
	writeJSON(w, http.StatusOK, state)
}

func (s *server) handleAPIPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.presets)
}

func (s *server) handleAPIEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "invalid request body: " + err.Error()})
		return
	}

	calc, err := calculator.Evaluate(s.presets, req.Preset, req.Units)
	s.metrics.CalculatorOp("evaluate", err)
	if err != nil {
		writeJSON(w, calculatorStatus(err), errorJSON{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, newCalculatorState(calc))
}
