package sweep

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/mfilmer/SETfit/internal/analysis"
	"github.com/mfilmer/SETfit/internal/device"
	"github.com/mfilmer/SETfit/internal/grid"
	"github.com/mfilmer/SETfit/internal/store"
)

// Engine runs nested gate/drain sweeps against models built by a factory.
type Engine struct {
	factory   device.Factory
	logger    *zap.Logger
	observers []Observer
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

func New(factory device.Factory, opts ...Option) *Engine {
	e := &Engine{
		factory:   factory,
		logger:    zap.NewNop(),
		observers: make([]Observer, 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Diamond sweeps the gate (outer) and drain (inner) axes. Every gate point
// gets a fresh model from the factory. Any device failure aborts the sweep.
func (e *Engine) Diamond(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	vg := grid.Linspace(cfg.VgStart, cfg.VgEnd, cfg.Ng)
	vd := grid.Linspace(cfg.VdStart, cfg.VdEnd, cfg.Nd)

	e.logger.Info("starting diamond sweep",
		zap.Stringer("mode", cfg.Mode),
		zap.Int("ng", cfg.Ng),
		zap.Int("nd", cfg.Nd),
		zap.Float64("temperature", cfg.Temperature),
		zap.Bool("dvg", cfg.DerivGate),
	)

	cols := grid.NewColumns(len(vg))
	var y []float64

	for i, g := range vg {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		e.logger.Debug("gate point", zap.Int("index", i), zap.Float64("vg", g))

		series, err := e.drainSweep(ctx, g, vd, cfg)
		if err != nil {
			return nil, err
		}

		red, err := analysis.Reduce(cfg.Mode, vd, series)
		if err != nil {
			return nil, fmt.Errorf("reducing column %d (Vg=%g): %w", i, g, err)
		}
		if err := cols.Set(i, red.F); err != nil {
			return nil, err
		}
		y = red.Y

		for _, o := range e.observers {
			o.OnColumn(i, len(vg), g, red.F)
		}
	}

	field, err := cols.Transpose()
	if err != nil {
		return nil, err
	}
	result := &Result{Field: field, X: vg, Y: y}

	if cfg.DerivGate {
		if err := deriveAlongGate(result); err != nil {
			return nil, err
		}
	}

	e.logger.Info("diamond sweep complete",
		zap.Int("rows", result.Field.Rows()),
		zap.Int("cols", result.Field.Cols()),
	)
	return result, nil
}

func (e *Engine) drainSweep(ctx context.Context, vg float64, vd []float64, cfg Config) (analysis.Series, error) {
	var series analysis.Series

	model, err := e.factory(vg, cfg.Device)
	if err != nil {
		return series, &device.Error{Op: "build", Bias: device.Bias{Gate: vg}, Err: err}
	}
	if c, ok := model.(io.Closer); ok {
		defer c.Close()
	}

	model.SetTemperature(cfg.Temperature)
	if err := model.PreProcess(); err != nil {
		return series, &device.Error{Op: "pre-process", Bias: device.Bias{Gate: vg}, Err: err}
	}

	for _, d := range vd {
		select {
		case <-ctx.Done():
			return series, ctx.Err()
		default:
		}

		b := device.Bias{Source: 0, Drain: d, Gate: vg}
		i, p, v, err := observe(model, b)
		if err != nil {
			return series, err
		}
		series.Append(i, p, v)
	}
	return series, nil
}

// observe configures and solves one bias point and reads the drain current,
// dot occupation and dot potential.
func observe(model device.Model, b device.Bias) (i, p, v float64, err error) {
	if err = model.Configure(b); err != nil {
		return 0, 0, 0, &device.Error{Op: "configure", Bias: b, Err: err}
	}
	if err = model.Solve(); err != nil {
		return 0, 0, 0, &device.Error{Op: "solve", Bias: b, Err: err}
	}
	if i, err = model.Current(device.Drain, device.Dot); err != nil {
		return 0, 0, 0, &device.Error{Op: "current", Bias: b, Err: err}
	}
	if p, err = model.Occupation(device.Dot); err != nil {
		return 0, 0, 0, &device.Error{Op: "occupation", Bias: b, Err: err}
	}
	if v, err = model.Potential(device.Dot); err != nil {
		return 0, 0, 0, &device.Error{Op: "potential", Bias: b, Err: err}
	}
	return i, p, v, nil
}

// deriveAlongGate replaces each row by its derivative along X, scaled by 1e3,
// and X by the derived axis.
func deriveAlongGate(r *Result) error {
	out := make(grid.Field, len(r.Field))
	var x []float64
	for row := range r.Field {
		df, dx, err := analysis.Derive(r.Field[row], r.X)
		if err != nil {
			return fmt.Errorf("gate derivative, row %d: %w", row, err)
		}
		for k := range df {
			df[k] *= 1e3
		}
		out[row] = df
		x = dx
	}
	r.Field = out
	r.X = x
	return nil
}

// GateSweep is the 1D counterpart of Diamond: model is prepared once and the
// gate is swept at fixed drain bias.
func (e *Engine) GateSweep(ctx context.Context, model device.Model, cfg GateSweepConfig) (*GateSweepResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	model.SetTemperature(cfg.Temperature)
	if err := model.PreProcess(); err != nil {
		return nil, &device.Error{Op: "pre-process", Err: err}
	}

	vg := grid.Linspace(cfg.VgStart, cfg.VgEnd, cfg.Ng)
	res := &GateSweepResult{
		Vg: vg,
		I:  make([]float64, 0, len(vg)),
		P:  make([]float64, 0, len(vg)),
	}

	e.logger.Info("starting gate sweep", zap.Int("ng", cfg.Ng), zap.Float64("vd", cfg.Vd))

	for _, g := range vg {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		b := device.Bias{Source: 0, Drain: cfg.Vd, Gate: g}
		i, p, _, err := observe(model, b)
		if err != nil {
			return nil, err
		}
		res.I = append(res.I, i)
		res.P = append(res.P, p)
	}

	if cfg.AppendTo != "" {
		rows := make([][]float64, len(vg))
		for k := range vg {
			rows[k] = []float64{vg[k], res.I[k], res.P[k]}
		}
		if err := store.AppendRows(cfg.AppendTo, rows); err != nil {
			return nil, fmt.Errorf("appending gate sweep: %w", err)
		}
		e.logger.Debug("gate sweep appended", zap.String("path", cfg.AppendTo))
	}

	return res, nil
}
