package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mfilmer/SETfit/internal/batch"
	"github.com/mfilmer/SETfit/internal/config"
	"github.com/mfilmer/SETfit/internal/grid"
	"github.com/mfilmer/SETfit/internal/store"
	"github.com/mfilmer/SETfit/internal/sweep"
	"github.com/mfilmer/SETfit/internal/viz"
)

const clearScreen = "\033[H\033[2J"

func (a *app) ivgCmd() *cobra.Command {
	var (
		vd          float64
		temperature float64
		vgRange     string
		ng          int
		appendTo    string
		out         string
		plot        bool
		configFile  string
		preset      string
		pf          plotFlags
	)

	cmd := &cobra.Command{
		Use:   "ivg",
		Short: "sweep the gate at fixed drain bias",
		Long: `Sweeps the gate voltage at a fixed drain bias and records one "Vg I P" row
per gate point, where I is the drain current and P the dot occupation. With
--append the rows are added to an existing file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadBase(configFile, preset)
			if err != nil {
				return err
			}
			fs := cmd.Flags()
			if fs.Changed("temperature") {
				cfg.Temperature = temperature
			}
			if fs.Changed("vg") {
				lo, hi, err := parseRange(vgRange)
				if err != nil {
					return fmt.Errorf("--vg: %w", err)
				}
				cfg.Gate.Start, cfg.Gate.End = lo, hi
			}
			if fs.Changed("ng") {
				cfg.Gate.N = ng
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			model, err := a.factory(cfg.Gate.Start, cfg.Device)
			if err != nil {
				return err
			}
			if c, ok := model.(io.Closer); ok {
				defer c.Close()
			}

			engine := sweep.New(a.factory, sweep.WithLogger(a.logger))
			res, err := engine.GateSweep(cmd.Context(), model, sweep.GateSweepConfig{
				Temperature: cfg.Temperature,
				VgStart:     cfg.Gate.Start,
				VgEnd:       cfg.Gate.End,
				Ng:          cfg.Gate.N,
				Vd:          vd,
				AppendTo:    appendTo,
			})
			if err != nil {
				return err
			}

			if out != "" {
				rows := make([][]float64, len(res.Vg))
				for k := range res.Vg {
					rows[k] = []float64{res.Vg[k], res.I[k], res.P[k]}
				}
				if err := store.WriteMatrix(out, rows); err != nil {
					return err
				}
				a.logger.Info("gate sweep written", zap.String("path", out))
			}

			opts := traceOptions(pf.options(fs, cfg.Plot))
			if plot || (appendTo == "" && out == "" && pf.svg == "") {
				fmt.Fprint(a.stdout, viz.Line(res.Vg, res.I, opts))
			}
			return pf.writeTrace(res.Vg, res.I, opts)
		},
	}

	fs := cmd.Flags()
	fs.Float64Var(&vd, "vd", 0, "drain bias (mV)")
	fs.Float64Var(&temperature, "temperature", config.DefaultTemperature, "temperature (K)")
	fs.StringVar(&vgRange, "vg", "", "gate range start:end (mV)")
	fs.IntVar(&ng, "ng", config.DefaultNg, "number of gate points")
	fs.StringVar(&appendTo, "append", "", "append rows to this file")
	fs.StringVar(&out, "out", "", "write rows to this file, replacing it")
	fs.BoolVar(&plot, "plot", false, "plot I(Vg) in the terminal")
	fs.StringVar(&configFile, "config", "", "config file path (yaml)")
	fs.StringVar(&preset, "preset", "", "start from a preset (family/name)")
	pf.register(fs)
	return cmd
}

func (a *app) plotCmd() *cobra.Command {
	var (
		vgRange string
		vdRange string
		trace   bool
		watch   bool
		pf      plotFlags
	)

	cmd := &cobra.Command{
		Use:   "plot FILE",
		Short: "draw a saved matrix",
		Long: `Draws a matrix written by diamond as a heatmap. The file carries no axes, so
they are rebuilt from --vg and --vd and the matrix shape. With --trace the file
is read as "Vg I P" rows from ivg and I is drawn against Vg.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pf.options(cmd.Flags(), config.PlotConfig{Colorbar: true})
			draw := func() error {
				return a.drawFile(args[0], trace, vgRange, vdRange, opts, &pf)
			}
			if !watch {
				return draw()
			}
			return store.Watch(cmd.Context(), args[0], 200*time.Millisecond, a.logger, func() error {
				fmt.Fprint(a.stdout, clearScreen)
				return draw()
			})
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&vgRange, "vg", "", "gate range start:end (mV); default column index")
	fs.StringVar(&vdRange, "vd", "", "drain range start:end (mV); default row index")
	fs.BoolVar(&trace, "trace", false, "read the file as ivg output")
	fs.BoolVar(&watch, "watch", false, "redraw whenever the file changes")
	pf.register(fs)
	return cmd
}

// drawFile renders a saved matrix, or a gate trace when trace is set.
func (a *app) drawFile(path string, trace bool, vgRange, vdRange string, opts viz.PlotOptions, pf *plotFlags) error {
	rows, err := store.ReadMatrix(path)
	if err != nil {
		return err
	}

	if trace {
		x := make([]float64, 0, len(rows))
		y := make([]float64, 0, len(rows))
		for i, row := range rows {
			if len(row) < 2 {
				return fmt.Errorf("%s: line %d has %d columns, want at least 2", path, i+1, len(row))
			}
			x = append(x, row[0])
			y = append(y, row[1])
		}
		opts = traceOptions(opts)
		fmt.Fprint(a.stdout, viz.Line(x, y, opts))
		return pf.writeTrace(x, y, opts)
	}

	field := grid.Field(rows)
	for i, row := range field {
		if len(row) != field.Cols() {
			return fmt.Errorf("%w: %s row %d has %d values, want %d",
				grid.ErrRaggedField, path, i+1, len(row), field.Cols())
		}
	}
	x, err := axisFor(vgRange, field.Cols())
	if err != nil {
		return fmt.Errorf("--vg: %w", err)
	}
	y, err := axisFor(vdRange, field.Rows())
	if err != nil {
		return fmt.Errorf("--vd: %w", err)
	}
	fmt.Fprint(a.stdout, viz.Heatmap(field, x, y, opts))
	return pf.writeHeatmap(field, y, opts)
}

func traceOptions(opts viz.PlotOptions) viz.PlotOptions {
	if opts.XLabel == "" {
		opts.XLabel = "Vg (mV)"
	}
	if opts.YLabel == "" {
		opts.YLabel = "I (A)"
	}
	return opts
}

// axisFor spreads an optional start:end range over n points, falling back to
// the indices 0..n-1.
func axisFor(spec string, n int) ([]float64, error) {
	if spec == "" {
		return grid.Linspace(0, float64(max(n-1, 0)), n), nil
	}
	lo, hi, err := parseRange(spec)
	if err != nil {
		return nil, err
	}
	return grid.Linspace(lo, hi, n), nil
}

func parseRange(spec string) (float64, float64, error) {
	a, b, ok := strings.Cut(spec, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: range %q, want start:end", errBadArg, spec)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: range start %q", errBadArg, a)
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: range end %q", errBadArg, b)
	}
	return lo, hi, nil
}

func (a *app) presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list preset sweeps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PRESET\tMODE\tT (K)\tVg (mV)\tVd (mV)\tCg (F)")
			for _, family := range config.Families() {
				for _, name := range config.ListPresets(family) {
					c := config.GetPreset(family, name)
					fmt.Fprintf(w, "%s/%s\t%s\t%g\t%g:%g\t%g:%g\t%g\n",
						family, name, c.Mode, c.Temperature,
						c.Gate.Start, c.Gate.End, c.Drain.Start, c.Drain.End, c.Device.Cg)
				}
			}
			return w.Flush()
		},
	}
}

func (a *app) batchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch FILE.yaml",
		Short: "run a scenario of sweeps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := batch.LoadScenario(args[0])
			if err != nil {
				return err
			}
			results, err := batch.NewRunner(a.factory, a.logger).RunScenario(cmd.Context(), sc)
			printResults(a.stdout, results)
			return err
		},
	}
}

func printResults(out io.Writer, results []batch.StepResult) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintf(out, "run %s\n", results[0].Run)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tVARIED\tSHAPE\tMIN\tMAX\tBLOCKADE\tOUT")
	for _, r := range results {
		varied := "-"
		if r.Param != "" {
			varied = fmt.Sprintf("%s=%g", r.Param, r.Value)
		}
		fmt.Fprintf(w, "%s\t%s\t%dx%d\t%s\t%s\t%.0f%%\t%s\n",
			r.Step, varied, r.Rows, r.Cols,
			store.FormatValue(r.Min), store.FormatValue(r.Max), 100*r.Blockade, r.Out)
	}
	w.Flush()
}

const modesDoc = `# Reduction modes

Each gate point yields one drain sweep of current I, dot occupation P and dot
potential V. The mode turns it into one column of the map.

| mode | column | drain axis |
|------|--------|------------|
| current | I | Vd |
| difcon | dI/dVd × 1e3 | one point shorter |
| voltage | V | Vd |
| francis | (dI/dVd) / (d(Vd-V)/dVd) × 1e3 | one point shorter |
| sourcis | (dI/dVd) / (dV/dVd) × 1e3 | one point shorter |

With --dvg every row is differentiated once more along the gate axis (× 1e3),
dropping one gate point. Flat denominators give inf or nan, written as such.
`

func (a *app) modesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "describe the reduction modes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(80),
			)
			if err != nil {
				return err
			}
			out, err := r.Render(modesDoc)
			if err != nil {
				return err
			}
			fmt.Fprint(a.stdout, out)
			return nil
		},
	}
}
