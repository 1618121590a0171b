package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/mfilmer/SETfit/internal/analysis"
	"github.com/mfilmer/SETfit/internal/config"
	"github.com/mfilmer/SETfit/internal/device"
	"github.com/mfilmer/SETfit/internal/grid"
	"github.com/mfilmer/SETfit/internal/store"
	"github.com/mfilmer/SETfit/internal/sweep"
	"github.com/mfilmer/SETfit/internal/viz"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

const customEntry = "custom"

type state int

const (
	stateMenu state = iota
	stateConfig
	stateSweep
	stateDone
)

// param is one editable number of the sweep configuration.
type param struct {
	name string
	get  func(*config.Config) float64
	set  func(*config.Config, float64)
	step float64
}

var params = []param{
	{"T (K)", func(c *config.Config) float64 { return c.Temperature }, func(c *config.Config, v float64) { c.Temperature = v }, 0.1},
	{"Vg start", func(c *config.Config) float64 { return c.Gate.Start }, func(c *config.Config, v float64) { c.Gate.Start = v }, 10},
	{"Vg end", func(c *config.Config) float64 { return c.Gate.End }, func(c *config.Config, v float64) { c.Gate.End = v }, 10},
	{"Ng", func(c *config.Config) float64 { return float64(c.Gate.N) }, func(c *config.Config, v float64) { c.Gate.N = int(v) }, 10},
	{"Vd start", func(c *config.Config) float64 { return c.Drain.Start }, func(c *config.Config, v float64) { c.Drain.Start = v }, 5},
	{"Vd end", func(c *config.Config) float64 { return c.Drain.End }, func(c *config.Config, v float64) { c.Drain.End = v }, 5},
	{"Nd", func(c *config.Config) float64 { return float64(c.Drain.N) }, func(c *config.Config, v float64) { c.Drain.N = int(v) }, 10},
	{"Cs (aF)", func(c *config.Config) float64 { return c.Device.Cs * 1e18 }, func(c *config.Config, v float64) { c.Device.Cs = v * 1e-18 }, 0.1},
	{"Cd (aF)", func(c *config.Config) float64 { return c.Device.Cd * 1e18 }, func(c *config.Config, v float64) { c.Device.Cd = v * 1e-18 }, 0.1},
	{"Cg (aF)", func(c *config.Config) float64 { return c.Device.Cg * 1e18 }, func(c *config.Config, v float64) { c.Device.Cg = v * 1e-18 }, 0.1},
	{"Gs (uS)", func(c *config.Config) float64 { return c.Device.Gs * 1e6 }, func(c *config.Config, v float64) { c.Device.Gs = v * 1e-6 }, 0.1},
	{"Gd (uS)", func(c *config.Config) float64 { return c.Device.Gd * 1e6 }, func(c *config.Config, v float64) { c.Device.Gd = v * 1e-6 }, 0.1},
	{"num_e", func(c *config.Config) float64 { return float64(c.Device.NumE) }, func(c *config.Config, v float64) { c.Device.NumE = int(v) }, 1},
}

// Options wires the interactive app to a device model.
type Options struct {
	Factory device.Factory
	Logger  *zap.Logger
	// Config seeds the "custom" entry; nil uses the defaults.
	Config *config.Config
}

type model struct {
	opts Options

	state  state
	cursor int
	items  []string

	cfg         *config.Config
	paramCursor int
	editing     bool
	editBuf     string

	run     *runner
	columns [][]float64
	total   int
	lastVg  float64
	started time.Time
	spinner spinner.Model
	bar     progress.Model

	result *sweep.Result
	err    error
	status string

	width  int
	height int
}

func NewInteractiveApp(opts Options) *model {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	items := []string{customEntry}
	for _, family := range config.Families() {
		for _, name := range config.ListPresets(family) {
			items = append(items, family+"/"+name)
		}
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = viz.StatusRunning
	return &model{
		opts:    opts,
		state:   stateMenu,
		items:   items,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		width:   80,
		height:  24,
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case spinner.TickMsg:
		if m.state != stateSweep {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case columnMsg:
		if m.run == nil || msg.run != m.run {
			return m, nil
		}
		m.columns[msg.index] = msg.column
		m.total = msg.total
		m.lastVg = msg.vg
		return m, m.run.wait()
	case doneMsg:
		if m.run == nil || msg.run != m.run {
			return m, nil
		}
		m.run.stop()
		m.run = nil
		m.result, m.err = msg.result, msg.err
		m.state = stateDone
		if msg.err != nil {
			m.opts.Logger.Warn("live sweep failed", zap.Error(msg.err))
		}
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateConfig:
		return m.configKey(msg)
	case stateSweep:
		return m.sweepKey(msg)
	case stateDone:
		return m.doneKey(msg)
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.cfg = m.selected(m.items[m.cursor])
		m.state = stateConfig
		m.paramCursor = 0
	}
	return m, nil
}

func (m model) selected(item string) *config.Config {
	if item != customEntry {
		if family, name, ok := strings.Cut(item, "/"); ok {
			if cfg := config.GetPreset(family, name); cfg != nil {
				return cfg
			}
		}
	}
	if m.opts.Config != nil {
		c := *m.opts.Config
		return &c
	}
	return config.DefaultConfig()
}

func (m model) configKey(msg tea.KeyMsg) (model, tea.Cmd) {
	p := params[m.paramCursor]
	if m.editing {
		switch msg.String() {
		case "enter":
			if v, err := strconv.ParseFloat(m.editBuf, 64); err == nil {
				p.set(m.cfg, v)
			}
			m.editing = false
			m.editBuf = ""
		case "esc":
			m.editing = false
			m.editBuf = ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if len(msg.String()) == 1 {
				c := msg.String()[0]
				if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == 'e' {
					m.editBuf += string(c)
				}
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "esc":
		m.state = stateMenu
		m.status = ""
	case "up", "k":
		if m.paramCursor > 0 {
			m.paramCursor--
		}
	case "down", "j":
		if m.paramCursor < len(params)-1 {
			m.paramCursor++
		}
	case "enter", " ":
		m.editing = true
		m.editBuf = strconv.FormatFloat(p.get(m.cfg), 'g', -1, 64)
	case "m":
		m.cfg.Mode = nextMode(m.cfg.Mode)
	case "d":
		m.cfg.DerivGate = !m.cfg.DerivGate
	case "left", "h":
		p.set(m.cfg, p.get(m.cfg)-p.step)
	case "right", "l":
		p.set(m.cfg, p.get(m.cfg)+p.step)
	case "s":
		if err := m.cfg.Validate(); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.status = ""
		cmd := m.start()
		return m, tea.Batch(tea.ClearScreen, cmd, m.spinner.Tick)
	}
	return m, nil
}

func nextMode(cur analysis.Mode) analysis.Mode {
	modes := analysis.Modes()
	for i, mode := range modes {
		if mode == cur {
			return modes[(i+1)%len(modes)]
		}
	}
	return modes[0]
}

// start launches the sweep in the background and returns the command that
// delivers its first event.
func (m *model) start() tea.Cmd {
	sc := m.cfg.Sweep()
	m.columns = make([][]float64, sc.Ng)
	m.total = sc.Ng
	m.result, m.err = nil, nil
	m.started = time.Now()
	m.state = stateSweep
	m.run = startSweep(context.Background(), m.opts.Factory, m.opts.Logger, sc)
	return m.run.wait()
}

func (m model) sweepKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		if m.run != nil {
			m.run.stop()
			m.run = nil
		}
		m.state = stateConfig
		m.status = "sweep cancelled"
		return m, tea.ClearScreen
	}
	return m, nil
}

func (m model) doneKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.state = stateConfig
		return m, tea.ClearScreen
	case "r":
		cmd := m.start()
		return m, tea.Batch(tea.ClearScreen, cmd, m.spinner.Tick)
	case "w":
		if m.result == nil {
			return m, nil
		}
		if err := store.WriteMatrix(m.cfg.Out, m.result.Field); err != nil {
			m.status = "write failed: " + err.Error()
		} else {
			m.status = "wrote " + m.cfg.Out
			m.opts.Logger.Info("field written", zap.String("path", m.cfg.Out))
		}
	}
	return m, nil
}

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	case stateSweep:
		return m.viewSweep()
	case stateDone:
		return m.viewDone()
	}
	return ""
}

func (m model) viewMenu() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("        " + viz.GradientText("s e t d i a m o n d", "#00ffff", "#ff00ff") + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("\n")

	for i, name := range m.items {
		if i == m.cursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(name) + "\n")
		} else {
			b.WriteString("        " + dim.Render(name) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select   enter configure   q quit") + "\n")
	return b.String()
}

func (m model) viewConfig() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("      " + cyan.Render(m.items[m.cursor]) + "  " +
		dim.Render(fmt.Sprintf("mode %s  dVg %t", m.cfg.Mode, m.cfg.DerivGate)) + "\n")
	b.WriteString(dimmer.Render("      "+strings.Repeat("─", 30)) + "\n\n")

	for i, p := range params {
		val := fmt.Sprintf("%10.4g", p.get(m.cfg))
		if m.editing && i == m.paramCursor {
			val = fmt.Sprintf("%10s", m.editBuf+"▋")
		}
		if i == m.paramCursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-10s", p.name)) + magenta.Render(val) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-10s", p.name)) + dim.Render(val) + "\n")
		}
	}

	if m.status != "" {
		b.WriteString("\n      " + viz.StatusFailed.Render(m.status) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select  ←→ adjust  enter edit  m mode  d dVg  s sweep  esc back") + "\n")
	return b.String()
}

// partial returns the received columns as a field, gaps filled with zeros.
func (m model) partial() grid.Field {
	n := 0
	for _, col := range m.columns {
		if col != nil {
			n = len(col)
			break
		}
	}
	if n == 0 {
		return nil
	}
	cols := grid.NewColumns(len(m.columns))
	for i, col := range m.columns {
		if col == nil {
			col = make([]float64, n)
		}
		_ = cols.Set(i, col)
	}
	f, err := cols.Transpose()
	if err != nil {
		return nil
	}
	return f
}

func (m model) done() int {
	n := 0
	for _, col := range m.columns {
		if col != nil {
			n++
		}
	}
	return n
}

func (m model) viewSweep() string {
	var b strings.Builder
	done := m.done()
	frac := 0.0
	if m.total > 0 {
		frac = float64(done) / float64(m.total)
	}

	b.WriteString("\n  " + m.spinner.View() + viz.StatusRunning.Render(" sweeping") + "  " +
		viz.MetricLabel.Render("mode ") + viz.MetricValue.Render(m.cfg.Mode.String()) + "\n\n")
	b.WriteString("  " + m.bar.ViewAs(frac) + fmt.Sprintf(" %d/%d", done, m.total) + "\n")
	b.WriteString("  " + viz.MetricLabel.Render("Vg ") + viz.MetricValue.Render(fmt.Sprintf("%.4g mV", m.lastVg)) +
		"  " + viz.MetricLabel.Render("elapsed ") + viz.MetricValue.Render(time.Since(m.started).Round(time.Second).String()) + "\n\n")

	if f := m.partial(); f != nil {
		last := m.columns[max(0, done-1)]
		b.WriteString("  " + viz.SparklineChart(last, 40) + "\n\n")
		w := max(10, (m.width-8)/2)
		h := max(4, (m.height-12)/4)
		b.WriteString(viz.Panel.Render(viz.Mask(f, threshold(f), w, h)) + "\n")
	}
	b.WriteString("\n" + viz.KeyHint.Render("  q cancel") + "\n")
	return b.String()
}

// threshold separates blockade from conduction at one percent of the largest
// magnitude in f.
func threshold(f grid.Field) float64 {
	m := math.Max(math.Abs(f.Max()), math.Abs(f.Min()))
	if math.IsNaN(m) {
		return 0
	}
	return 0.01 * m
}

func (m model) viewDone() string {
	var b strings.Builder
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString("  " + viz.StatusFailed.Render("sweep failed") + "\n\n  " + m.err.Error() + "\n")
		var devErr *device.Error
		if errors.As(m.err, &devErr) {
			b.WriteString(dim.Render(fmt.Sprintf("  at Vg=%g mV Vd=%g mV", devErr.Bias.Gate, devErr.Bias.Drain)) + "\n")
		}
	} else if m.result != nil {
		b.WriteString("  " + viz.StatusDone.Render("sweep complete") + "  " +
			dim.Render(fmt.Sprintf("%d×%d  %s", m.result.Field.Rows(), m.result.Field.Cols(), time.Since(m.started).Round(time.Millisecond))) + "\n\n")
		b.WriteString(viz.Heatmap(m.result.Field, m.result.X, m.result.Y, viz.PlotOptions{
			ColorbarDisplay: true,
			Width:           max(20, m.width-16),
			Height:          max(8, m.height-14),
			GLog:            m.cfg.Plot.GLog,
			GMax:            m.cfg.Plot.GMax,
			NegConductance:  m.cfg.Plot.NegConductance,
		}))
	}
	if m.status != "" {
		b.WriteString("\n  " + viz.MetricLabel.Render(m.status) + "\n")
	}
	b.WriteString("\n" + viz.KeyHint.Render("  w write  r rerun  esc back") + "\n")
	return b.String()
}

func RunInteractive(ctx context.Context, opts Options) error {
	p := tea.NewProgram(NewInteractiveApp(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if m, ok := final.(model); ok && m.run != nil {
		m.run.stop()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
