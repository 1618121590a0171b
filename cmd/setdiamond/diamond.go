package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/mfilmer/SETfit/internal/analysis"
	"github.com/mfilmer/SETfit/internal/config"
	"github.com/mfilmer/SETfit/internal/export"
	"github.com/mfilmer/SETfit/internal/grid"
	"github.com/mfilmer/SETfit/internal/store"
	"github.com/mfilmer/SETfit/internal/sweep"
	"github.com/mfilmer/SETfit/internal/tui"
	"github.com/mfilmer/SETfit/internal/viz"
)

var diamondArgs = []string{
	"T", "Vd_start", "Vd_end", "Nd", "Cs", "Cd", "Gs", "Gd", "num_e", "Vg_start", "Vg_end", "Ng", "Cg",
}

var (
	errArgCount = errors.New("not enough command line arguments")
	errBadArg   = errors.New("invalid argument")
)

func exactDiamondArgs(cmd *cobra.Command, args []string) error {
	if len(args) != len(diamondArgs) {
		return fmt.Errorf("%w: want %d, got %d", errArgCount, len(diamondArgs), len(args))
	}
	return nil
}

// applyDiamondArgs overwrites the temperature, axes and device of cfg with the
// positional arguments, in command line order.
func applyDiamondArgs(cfg *config.Config, args []string) error {
	floats := make(map[string]float64, len(args))
	ints := make(map[string]int, 3)
	for i, name := range diamondArgs {
		switch name {
		case "Nd", "Ng", "num_e":
			v, err := strconv.Atoi(args[i])
			if err != nil {
				return fmt.Errorf("%w %s=%q: expected an integer", errBadArg, name, args[i])
			}
			ints[name] = v
		default:
			v, err := strconv.ParseFloat(args[i], 64)
			if err != nil {
				return fmt.Errorf("%w %s=%q: expected a number", errBadArg, name, args[i])
			}
			floats[name] = v
		}
	}

	cfg.Temperature = floats["T"]
	cfg.Drain = config.AxisConfig{Start: floats["Vd_start"], End: floats["Vd_end"], N: ints["Nd"]}
	cfg.Gate = config.AxisConfig{Start: floats["Vg_start"], End: floats["Vg_end"], N: ints["Ng"]}
	cfg.Device.Cs = floats["Cs"]
	cfg.Device.Cd = floats["Cd"]
	cfg.Device.Cg = floats["Cg"]
	cfg.Device.Gs = floats["Gs"]
	cfg.Device.Gd = floats["Gd"]
	cfg.Device.NumE = ints["num_e"]
	return nil
}

// plotFlags are the plotting switches shared by diamond, ivg and plot.
type plotFlags struct {
	glog     float64
	gmax     float64
	neg      bool
	colorbar bool
	xlabel   string
	ylabel   string
	width    int
	height   int
	palette  string
	svg      string
}

func (p *plotFlags) register(fs *pflag.FlagSet) {
	fs.Float64Var(&p.glog, "glog", 0, "log color scale with this floor")
	fs.Float64Var(&p.gmax, "gmax", 0, "upper end of the color range (default: data maximum)")
	fs.BoolVar(&p.neg, "neg", false, "plot absolute values (negative conductance)")
	fs.BoolVar(&p.colorbar, "colorbar", true, "show the colorbar")
	fs.StringVar(&p.xlabel, "xlabel", "", "x axis label")
	fs.StringVar(&p.ylabel, "ylabel", "", "y axis label")
	fs.IntVar(&p.width, "width", 0, "plot width in cells")
	fs.IntVar(&p.height, "height", 0, "plot height in cells")
	fs.StringVar(&p.palette, "palette", "", "colormap: "+strings.Join(viz.ColormapNames(), ", "))
	fs.StringVar(&p.svg, "svg", "", "also write the plot to this SVG file")
}

// writeHeatmap exports the map when --svg is set.
func (p *plotFlags) writeHeatmap(f grid.Field, y []float64, opts viz.PlotOptions) error {
	if p.svg == "" {
		return nil
	}
	return export.WriteFile(p.svg, export.HeatmapSVG(f, y, opts, 8))
}

// writeTrace exports an I(Vg) trace when --svg is set.
func (p *plotFlags) writeTrace(x, y []float64, opts viz.PlotOptions) error {
	if p.svg == "" {
		return nil
	}
	w, h := opts.Width, opts.Height
	if w <= 0 {
		w = viz.DefaultWidth
	}
	if h <= 0 {
		h = viz.DefaultHeight
	}
	return export.WriteFile(p.svg, export.TraceSVG(x, y, 12*w, 12*h, "#00ff00"))
}

// options merges the flags over the plot section of cfg.
func (p *plotFlags) options(fs *pflag.FlagSet, cfg config.PlotConfig) viz.PlotOptions {
	opts := viz.PlotOptions{
		GLog:            cfg.GLog,
		GMax:            cfg.GMax,
		NegConductance:  cfg.NegConductance,
		ColorbarDisplay: cfg.Colorbar,
		XLabel:          p.xlabel,
		YLabel:          p.ylabel,
		Width:           p.width,
		Height:          p.height,
		Palette:         p.palette,
	}
	if fs.Changed("glog") {
		opts.GLog = viz.Float(p.glog)
	}
	if fs.Changed("gmax") {
		opts.GMax = viz.Float(p.gmax)
	}
	if fs.Changed("neg") {
		opts.NegConductance = p.neg
	}
	if fs.Changed("colorbar") {
		opts.ColorbarDisplay = p.colorbar
	}
	return opts
}

func (a *app) diamondCmd() *cobra.Command {
	var (
		mode       = analysis.Difcon
		dvg        bool
		out        string
		plot       bool
		progress   bool
		configFile string
		preset     string
		pf         plotFlags
	)

	cmd := &cobra.Command{
		Use:   "diamond [flags] T Vd_start Vd_end Nd Cs Cd Gs Gd num_e Vg_start Vg_end Ng Cg",
		Short: "sweep gate and drain and write the diamond map",
		Long: `Sweeps the gate (outer) and drain (inner) voltages of a metallic-dot SET and
writes the reduced field as a tab separated matrix, one row per drain point.

Voltages are in mV, capacitances in F, conductances in S, temperature in K.
Flags must precede the positional arguments so negative voltages are read as
values.`,
		Args: exactDiamondArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadBase(configFile, preset)
			if err != nil {
				return err
			}
			if err := applyDiamondArgs(cfg, args); err != nil {
				return err
			}

			fs := cmd.Flags()
			if fs.Changed("mode") || (configFile == "" && preset == "") {
				cfg.Mode = mode
			}
			if fs.Changed("dvg") {
				cfg.DerivGate = dvg
			}
			if fs.Changed("out") || cfg.Out == "" {
				cfg.Out = out
			}
			if fs.Changed("plot") {
				cfg.Plot.Enabled = plot
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			engineOpts := []sweep.Option{sweep.WithLogger(a.logger)}
			if progress {
				live := tui.NewLiveRenderer(a.stderr, cfg.Mode.String(), 10)
				live.Start()
				defer live.Stop()
				engineOpts = append(engineOpts, sweep.WithObserver(live))
			}
			engine := sweep.New(a.factory, engineOpts...)

			res, err := engine.Diamond(cmd.Context(), cfg.Sweep())
			if err != nil {
				return err
			}
			if err := store.WriteMatrix(cfg.Out, res.Field); err != nil {
				return err
			}
			a.logger.Info("diamond written",
				zap.String("path", cfg.Out),
				zap.Int("rows", res.Field.Rows()),
				zap.Int("cols", res.Field.Cols()),
			)

			opts := pf.options(fs, cfg.Plot)
			if cfg.Plot.Enabled {
				fmt.Fprint(a.stdout, viz.Heatmap(res.Field, res.X, res.Y, opts))
			}
			return pf.writeHeatmap(res.Field, res.Y, opts)
		},
	}

	fs := cmd.Flags()
	fs.SetInterspersed(false)
	fs.Var(&mode, "mode", "reduction: "+strings.Join(analysis.ModeNames(), ", "))
	fs.BoolVar(&dvg, "dvg", false, "differentiate along the gate axis")
	fs.StringVar(&out, "out", config.DefaultOut, "output matrix file (overwritten)")
	fs.BoolVar(&plot, "plot", false, "draw the map in the terminal")
	fs.BoolVar(&progress, "progress", false, "show sweep progress on stderr")
	fs.StringVar(&configFile, "config", "", "config file path (yaml)")
	fs.StringVar(&preset, "preset", "", "start from a preset (family/name)")
	pf.register(fs)
	return cmd
}

