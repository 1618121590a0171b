package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/mfilmer/SETfit/internal/device"
	"github.com/mfilmer/SETfit/internal/sweep"
)

type columnMsg struct {
	run    *runner
	index  int
	total  int
	vg     float64
	column []float64
}

type doneMsg struct {
	run    *runner
	result *sweep.Result
	err    error
}

// runner owns one background diamond sweep. Its events channel carries
// columnMsg values followed by exactly one doneMsg, then closes.
type runner struct {
	cancel context.CancelFunc
	events chan tea.Msg
	exited chan struct{}
	once   sync.Once
}

func startSweep(parent context.Context, factory device.Factory, logger *zap.Logger, cfg sweep.Config) *runner {
	ctx, cancel := context.WithCancel(parent)
	r := &runner{
		cancel: cancel,
		events: make(chan tea.Msg),
		exited: make(chan struct{}),
	}

	send := func(msg tea.Msg) {
		select {
		case r.events <- msg:
		case <-ctx.Done():
		}
	}

	engine := sweep.New(factory,
		sweep.WithLogger(logger),
		sweep.WithObserver(sweep.ObserverFunc(func(index, total int, vg float64, column []float64) {
			send(columnMsg{run: r, index: index, total: total, vg: vg, column: column})
		})),
	)

	go func() {
		defer close(r.exited)
		defer close(r.events)
		res, err := engine.Diamond(ctx, cfg)
		send(doneMsg{run: r, result: res, err: err})
	}()
	return r
}

// wait returns a command that blocks for the next event.
func (r *runner) wait() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-r.events
		if !ok {
			return nil
		}
		return msg
	}
}

// stop cancels the sweep and waits for its goroutine to exit.
func (r *runner) stop() {
	r.once.Do(r.cancel)
	<-r.exited
}
