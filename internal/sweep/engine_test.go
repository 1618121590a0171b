package sweep_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mfilmer/SETfit/internal/analysis"
	"github.com/mfilmer/SETfit/internal/device"
	"github.com/mfilmer/SETfit/internal/device/devicetest"
	"github.com/mfilmer/SETfit/internal/orthodox"
	"github.com/mfilmer/SETfit/internal/store"
	"github.com/mfilmer/SETfit/internal/sweep"
)

var _ = Describe("Diamond", func() {
	var (
		ctx     context.Context
		factory *devicetest.Factory
		engine  *sweep.Engine
		cfg     sweep.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		factory = devicetest.Linear()
		engine = sweep.New(factory.Build)
		cfg = sweep.Config{
			Temperature: 0.1,
			VgStart:     0, VgEnd: 0, Ng: 1,
			VdStart: 0, VdEnd: 1, Nd: 3,
			Device: device.Params{Cs: 1e-18, Cd: 1e-18, Cg: 2e-18, Gs: 1e-6, Gd: 1e-6, NumE: 2},
			Mode:   analysis.Difcon,
		}
	})

	It("yields 1000 everywhere for a unit slope current in difcon mode", func() {
		res, err := engine.Diamond(ctx, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Field.Rows()).To(Equal(2))
		Expect(res.Field.Cols()).To(Equal(1))
		for _, row := range res.Field {
			Expect(row[0]).To(BeNumerically("~", 1000, 1e-9))
		}
		Expect(res.X).To(Equal([]float64{0}))
		Expect(res.Y).To(HaveLen(2))
	})

	It("rebuilds the model for every gate point and passes the gate voltage to the factory", func() {
		cfg.VgStart, cfg.VgEnd, cfg.Ng = -10, 10, 5
		_, err := engine.Diamond(ctx, cfg)
		Expect(err).NotTo(HaveOccurred())

		Expect(factory.Calls()).To(Equal(5))
		Expect(factory.Gates).To(Equal([]float64{-10, -5, 0, 5, 10}))
		for i, m := range factory.Models {
			Expect(m.Prepared).To(BeTrue())
			Expect(m.Temperature).To(Equal(0.1))
			Expect(m.Closed).To(BeTrue())
			Expect(m.Biases).To(HaveLen(3))
			for _, b := range m.Biases {
				Expect(b.Source).To(BeZero())
				Expect(b.Gate).To(Equal(factory.Gates[i]))
			}
			Expect(m.Biases[2].Drain).To(Equal(1.0))
		}
		Expect(factory.Params[0]).To(Equal(cfg.Device))
	})

	DescribeTable("field shape",
		func(mode analysis.Mode, dvg bool, ng, nd, rows, cols int) {
			cfg.Mode = mode
			cfg.DerivGate = dvg
			cfg.VgStart, cfg.VgEnd, cfg.Ng = 0, 40, ng
			cfg.Nd = nd
			res, err := engine.Diamond(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Field.Rows()).To(Equal(rows))
			Expect(res.Field.Cols()).To(Equal(cols))
			Expect(res.Y).To(HaveLen(rows))
			Expect(res.X).To(HaveLen(cols))
		},
		Entry("current", analysis.Current, false, 4, 6, 6, 4),
		Entry("voltage", analysis.Voltage, false, 2, 2, 2, 2),
		Entry("difcon", analysis.Difcon, false, 4, 6, 5, 4),
		Entry("difcon with dVg", analysis.Difcon, true, 4, 6, 5, 3),
		Entry("current with dVg", analysis.Current, true, 2, 2, 2, 1),
		Entry("francis", analysis.Francis, false, 3, 5, 4, 3),
		Entry("sourcis with dVg", analysis.Sourcis, true, 3, 5, 4, 2),
	)

	It("differentiates along the gate axis and rescales", func() {
		factory.New = func() *devicetest.Stub {
			return &devicetest.Stub{CurrentFn: func(b device.Bias) float64 { return 2 * b.Gate }}
		}
		cfg.Mode = analysis.Current
		cfg.DerivGate = true
		cfg.VgStart, cfg.VgEnd, cfg.Ng = 0, 4, 5

		res, err := engine.Diamond(ctx, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.X).To(HaveLen(4))
		Expect(res.X[0]).To(Equal(0.0))
		Expect(res.X[3]).To(Equal(4.0))
		for _, row := range res.Field {
			for _, v := range row {
				Expect(v).To(BeNumerically("~", 2000, 1e-9))
			}
		}
	})

	It("rejects a gate derivative over a single gate point", func() {
		cfg.DerivGate = true
		_, err := engine.Diamond(ctx, cfg)
		Expect(err).To(MatchError(analysis.ErrTooFewPoints))
	})

	It("propagates non-finite values instead of failing", func() {
		cfg.Mode = analysis.Sourcis
		res, err := engine.Diamond(ctx, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(math.IsInf(res.Field[0][0], 1)).To(BeTrue())
	})

	It("fails fast on an unknown mode without building any model", func() {
		cfg.Mode = analysis.Mode(42)
		_, err := engine.Diamond(ctx, cfg)
		Expect(err).To(MatchError(analysis.ErrUnknownMode))
		Expect(factory.Calls()).To(BeZero())
	})

	It("rejects empty axes", func() {
		cfg.Nd = 0
		_, err := engine.Diamond(ctx, cfg)
		Expect(err).To(MatchError(sweep.ErrInvalidConfig))
		Expect(factory.Calls()).To(BeZero())
	})

	It("aborts the whole sweep when the model fails to solve", func() {
		boom := errors.New("no convergence")
		factory.New = func() *devicetest.Stub {
			return &devicetest.Stub{
				FailAt: func(b device.Bias) bool { return b.Gate > 0 && b.Drain > 0.4 },
				Err:    boom,
			}
		}
		cfg.VgStart, cfg.VgEnd, cfg.Ng = 0, 1, 3

		res, err := engine.Diamond(ctx, cfg)
		Expect(res).To(BeNil())
		Expect(err).To(MatchError(boom))

		var devErr *device.Error
		Expect(errors.As(err, &devErr)).To(BeTrue())
		Expect(devErr.Op).To(Equal("solve"))
		Expect(devErr.Bias.Gate).To(Equal(0.5))
		Expect(factory.Calls()).To(Equal(2))
	})

	It("notifies observers once per column in order", func() {
		var seen []int
		engine = sweep.New(factory.Build, sweep.WithObserver(sweep.ObserverFunc(func(index, total int, vg float64, column []float64) {
			Expect(total).To(Equal(3))
			Expect(column).To(HaveLen(2))
			seen = append(seen, index)
		})))
		cfg.Ng = 3
		_, err := engine.Diamond(ctx, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(Equal([]int{0, 1, 2}))
	})

	It("stops when the context is cancelled", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := engine.Diamond(cctx, cfg)
		Expect(err).To(MatchError(context.Canceled))
	})

	It("maps a Coulomb diamond with the orthodox model", func() {
		engine = sweep.New(orthodox.Factory)
		cfg.Mode = analysis.Current
		cfg.VgStart, cfg.VgEnd, cfg.Ng = 0, 40, 3
		cfg.VdStart, cfg.VdEnd, cfg.Nd = -1, 1, 3

		res, err := engine.Diamond(ctx, cfg)
		Expect(err).NotTo(HaveOccurred())
		// blockade at Vg = 0, conduction at the degeneracy point Vg = 40 mV
		Expect(math.Abs(res.Field[2][0])).To(BeNumerically("<", 1e-18))
		Expect(res.Field[2][2]).To(BeNumerically(">", 1e-12))
		Expect(res.Field[0][2]).To(BeNumerically("<", -1e-12))
	})
})

var _ = Describe("GateSweep", func() {
	It("sweeps the gate at fixed drain bias and appends rows", func() {
		path := filepath.Join(GinkgoT().TempDir(), "ivg.dat")
		Expect(os.WriteFile(path, []byte("9\t9\t9\n"), 0644)).To(Succeed())

		stub := &devicetest.Stub{
			CurrentFn:    func(b device.Bias) float64 { return b.Gate * b.Drain },
			OccupationFn: func(b device.Bias) float64 { return 0.5 },
		}
		engine := sweep.New(nil)
		res, err := engine.GateSweep(context.Background(), stub, sweep.GateSweepConfig{
			Temperature: 4.2,
			VgStart:     0, VgEnd: 2, Ng: 3,
			Vd:       2,
			AppendTo: path,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(stub.Temperature).To(Equal(4.2))
		Expect(res.Vg).To(Equal([]float64{0, 1, 2}))
		Expect(res.I).To(Equal([]float64{0, 2, 4}))
		Expect(res.P).To(Equal([]float64{0.5, 0.5, 0.5}))

		rows, err := store.ReadMatrix(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(Equal([][]float64{{9, 9, 9}, {0, 0, 0.5}, {1, 2, 0.5}, {2, 4, 0.5}}))
	})

	It("wraps model failures", func() {
		stub := &devicetest.Stub{FailAt: func(device.Bias) bool { return true }, Err: device.ErrSingular}
		_, err := sweep.New(nil).GateSweep(context.Background(), stub, sweep.GateSweepConfig{Ng: 2, VgEnd: 1})
		Expect(err).To(MatchError(device.ErrSingular))
	})
})
