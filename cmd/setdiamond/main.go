package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mfilmer/SETfit/internal/config"
	"github.com/mfilmer/SETfit/internal/device"
	"github.com/mfilmer/SETfit/internal/orthodox"
	"github.com/mfilmer/SETfit/internal/tui"
)

// app carries what the commands share. Tests swap the factory and writers.
type app struct {
	factory     device.Factory
	stdout      io.Writer
	stderr      io.Writer
	buildLogger func(verbose bool) (*zap.Logger, error)

	verbose bool
	logger  *zap.Logger
}

func newApp() *app {
	return &app{
		factory:     orthodox.Factory,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		buildLogger: productionLogger,
		logger:      zap.NewNop(),
	}
}

func productionLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// main is the entry point for the setdiamond CLI. It exits with status 1 on
// any error, argument-count errors included.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp().execute(ctx, os.Args[1:])
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func (a *app) execute(ctx context.Context, args []string) error {
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(a.stderr, "Error:", err)
		if errors.Is(err, errArgCount) {
			fmt.Fprintln(a.stderr, "usage: setdiamond diamond [flags] "+strings.Join(diamondArgs, " "))
		}
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "setdiamond",
		Short:         "Coulomb diamond maps of a single-electron transistor",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := a.buildLogger(a.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		a.diamondCmd(),
		a.ivgCmd(),
		a.plotCmd(),
		a.presetsCmd(),
		a.liveCmd(),
		a.batchCmd(),
		a.modesCmd(),
	)
	return root
}

// loadBase picks the starting configuration: a preset, a YAML file, or the
// defaults.
func loadBase(configFile, preset string) (*config.Config, error) {
	if preset != "" && configFile != "" {
		return nil, fmt.Errorf("--preset and --config are mutually exclusive")
	}
	if preset != "" {
		family, name, _ := strings.Cut(preset, "/")
		cfg := config.GetPreset(family, name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %q (see setdiamond presets)", preset)
		}
		return cfg, nil
	}
	if configFile != "" {
		return config.Load(configFile)
	}
	return config.DefaultConfig(), nil
}

func (a *app) liveCmd() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "live",
		Short: "interactive sweep explorer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := loadBase(configFile, "")
			if err != nil {
				return err
			}
			// the alternate screen owns the terminal, so the TUI logs nowhere
			return tui.RunInteractive(cmd.Context(), tui.Options{
				Factory: a.factory,
				Logger:  zap.NewNop(),
				Config:  base,
			})
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "config file seeding the custom entry (yaml)")
	return cmd
}
