package batch

import (
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mfilmer/SETfit/internal/config"
	"github.com/mfilmer/SETfit/internal/device"
	"github.com/mfilmer/SETfit/internal/grid"
	"github.com/mfilmer/SETfit/internal/store"
	"github.com/mfilmer/SETfit/internal/sweep"
)

// StepResult summarizes one sweep of a scenario.
type StepResult struct {
	// Run is shared by all results of one RunScenario call.
	Run  string
	Step string
	// Param and Value name the varied parameter, if any.
	Param string
	Value float64
	Out   string
	Rows  int
	Cols  int
	Max   float64
	Min   float64
	// Blockade is the fraction of cells whose magnitude stays below one
	// percent of the largest magnitude.
	Blockade float64
}

type Runner struct {
	factory device.Factory
	logger  *zap.Logger
}

func NewRunner(factory device.Factory, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{factory: factory, logger: logger}
}

// RunScenario executes all steps in order and stops at the first failure,
// returning the results gathered so far.
func (r *Runner) RunScenario(ctx context.Context, sc *Scenario) ([]StepResult, error) {
	results := make([]StepResult, 0, len(sc.Steps))
	run := uuid.NewString()[:8]
	logger := r.logger.With(zap.String("run", run))

	for i := range sc.Steps {
		step := &sc.Steps[i]
		name := step.label(i)
		logger.Info("running step",
			zap.String("scenario", sc.Name),
			zap.Int("step", i+1),
			zap.Int("of", len(sc.Steps)),
			zap.String("name", name),
			zap.String("kind", string(step.kind())),
		)

		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i+1, name, err)
		}
		if sc.dir != "" && !filepath.IsAbs(cfg.Out) {
			cfg.Out = filepath.Join(sc.dir, cfg.Out)
		}

		runs := []float64{math.NaN()}
		if step.Vary != nil {
			runs = grid.Linspace(step.Vary.Min, step.Vary.Max, step.Vary.N)
		}

		for k, value := range runs {
			c := *cfg
			vd := step.Vd
			res := StepResult{Run: run, Step: name, Value: value, Out: cfg.Out}
			if step.Vary != nil {
				res.Param = step.Vary.Param
				if set := setters[step.Vary.Param]; set != nil {
					set(&c, value)
				} else {
					vd = value
				}
				if !step.Append {
					res.Out = outPath(cfg.Out, k)
				}
			}
			c.Out = res.Out

			if err := r.run(ctx, logger, step, &c, vd, &res); err != nil {
				return results, fmt.Errorf("step %d (%s): %w", i+1, name, err)
			}
			logger.Debug("step output",
				zap.String("path", res.Out),
				zap.Int("rows", res.Rows),
				zap.Int("cols", res.Cols),
			)
			results = append(results, res)
		}
	}
	return results, nil
}

func (r *Runner) run(ctx context.Context, logger *zap.Logger, step *Step, cfg *config.Config, vd float64, res *StepResult) error {
	engine := sweep.New(r.factory, sweep.WithLogger(logger))

	if step.kind() == KindGateSweep {
		model, err := r.factory(cfg.Gate.Start, cfg.Device)
		if err != nil {
			return err
		}
		if c, ok := model.(io.Closer); ok {
			defer c.Close()
		}

		gs := sweep.GateSweepConfig{
			Temperature: cfg.Temperature,
			VgStart:     cfg.Gate.Start,
			VgEnd:       cfg.Gate.End,
			Ng:          cfg.Gate.N,
			Vd:          vd,
		}
		if step.Append {
			gs.AppendTo = cfg.Out
		}
		out, err := engine.GateSweep(ctx, model, gs)
		if err != nil {
			return err
		}
		rows := make([][]float64, len(out.Vg))
		for k := range out.Vg {
			rows[k] = []float64{out.Vg[k], out.I[k], out.P[k]}
		}
		if !step.Append {
			if err := store.WriteMatrix(cfg.Out, rows); err != nil {
				return err
			}
		}
		summarize(res, grid.Field{out.I})
		res.Rows, res.Cols = len(rows), 3
		return nil
	}

	out, err := engine.Diamond(ctx, cfg.Sweep())
	if err != nil {
		return err
	}
	if err := store.WriteMatrix(cfg.Out, out.Field); err != nil {
		return err
	}
	summarize(res, out.Field)
	return nil
}

func summarize(res *StepResult, f grid.Field) {
	res.Rows, res.Cols = f.Rows(), f.Cols()
	res.Max, res.Min = f.Max(), f.Min()

	scale := math.Max(math.Abs(res.Max), math.Abs(res.Min))
	if math.IsNaN(scale) || f.Rows()*f.Cols() == 0 {
		res.Blockade = math.NaN()
		return
	}
	blocked := 0
	for _, row := range f {
		for _, v := range row {
			if math.Abs(v) <= 0.01*scale {
				blocked++
			}
		}
	}
	res.Blockade = float64(blocked) / float64(f.Rows()*f.Cols())
}
