package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/r3d91ll/urnlab/pkg/config"
	"github.com/r3d91ll/urnlab/pkg/design"
	"github.com/r3d91ll/urnlab/pkg/ledger"
	"github.com/r3d91ll/urnlab/pkg/monitor"
	"github.com/r3d91ll/urnlab/pkg/session"
	"github.com/r3d91ll/urnlab/pkg/shell"
	"github.com/r3d91ll/urnlab/pkg/spinner"
	"github.com/r3d91ll/urnlab/pkg/urn"
)

var (
	runID      string
	runSeed    uint64
	runDesign  string
	runMonitor bool
	logStderr  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one participant session",
	Args:  cobra.NoArgs,
	RunE:  runSession,
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&runID, "id", "", "participant ID (default: the participant's sequence number)")
	f.Uint64Var(&runSeed, "seed", 0, "random seed (overrides experiment.seed)")
	f.StringVar(&runDesign, "design", "", "between or within (overrides experiment.design)")
	f.BoolVar(&runMonitor, "monitor", false, "serve the experimenter monitor feed")
	f.BoolVar(&logStderr, "log-stderr", false, "log to stderr instead of the log file")
}

// loadRunConfig loads the config and applies command-line overrides.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("design") {
		cfg.Experiment.Design = runDesign
	}
	if cmd.Flags().Changed("seed") {
		cfg.Experiment.Seed = runSeed
	}
	if runMonitor {
		cfg.Monitor.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger returns the session logger. The participant owns the terminal,
// so logs go to a file under the data directory unless --log-stderr is set.
func newLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: cfg.Logging.SlogLevel()}
	if logStderr || cfg.Logging.File == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), io.NopCloser(os.Stderr), nil
	}

	path := cfg.Logging.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.Ledger.DataDir, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(f, opts)), f, nil
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	logger, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ledgerPath := cfg.LedgerPath()
	existing, err := ledger.CountRows(ledgerPath)
	switch {
	case os.IsNotExist(err):
		logger.Info("starting a new ledger", "path", ledgerPath)
	case err != nil:
		logger.Warn("ledger unreadable, counting participants from zero", "path", ledgerPath, "error", err)
	}

	r, seed := urn.NewSource(cfg.Experiment.Seed)
	plan, err := design.Build(cfg, r, existing)
	if err != nil {
		return err
	}

	csvLedger, err := ledger.Open(ledgerPath, plan.Slots())
	if err != nil {
		return err
	}
	sinks := ledger.MultiSink{csvLedger}
	if cfg.Ledger.SQLitePath != "" {
		mirror, err := ledger.OpenSQLite(cfg.Ledger.SQLitePath)
		if err != nil {
			return err
		}
		defer mirror.Close()
		sinks = append(sinks, mirror)
	}

	opts := []session.Option{session.WithLogger(logger), session.WithSeed(seed)}
	if cfg.Monitor.Enabled {
		hub := monitor.NewHub(logger)
		srv := monitor.NewServer(cfg.Monitor.Addr, hub)
		if err := srv.Start(); err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		fmt.Fprintf(cmd.ErrOrStderr(), "Monitor: ws://%s/ws\n", srv.Addr())
		opts = append(opts, session.WithObserver(hub))
	}

	rl, err := shell.NewTerminal()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	defer rl.Close()

	ctrl := session.NewController(plan, ledger.NewRecord(existing, runID), sinks, r, opts...)
	// runs on every exit path; a no-op once the shell has finalized
	defer ctrl.Finalize()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		// unblock a pending Readline when a signal arrives
		<-ctx.Done()
		rl.Close()
	}()

	sh := shell.New(ctrl, rl, spinner.New(spinner.DefaultConfig()), shell.Config{
		MinAge:          cfg.Experiment.MinAge,
		Genders:         cfg.Demographics.Genders,
		EducationLevels: cfg.Demographics.EducationLevels,
		Races:           cfg.Demographics.Races,
		Transition:      cfg.Experiment.Transition,
		Logger:          logger,
	})
	runErr := sh.Run(ctx)
	finalErr := ctrl.Finalize()

	if cfg.Session.AutoExport {
		if _, err := ctrl.Export(cfg.Session.ExportDir); err != nil {
			logger.Error("session export failed", "error", err)
		}
	}

	switch {
	case runErr == nil:
		return finalErr
	case stderrors.Is(runErr, shell.ErrLeft), stderrors.Is(runErr, context.Canceled):
		fmt.Fprintln(cmd.ErrOrStderr(), "Session ended early; the partial record was saved.")
		return finalErr
	default:
		return runErr
	}
}
