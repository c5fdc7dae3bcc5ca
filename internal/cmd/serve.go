package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mboyd/warden/internal/confirm"
	"github.com/mboyd/warden/internal/engine"
	"github.com/mboyd/warden/internal/extract"
	"github.com/mboyd/warden/internal/history"
	"github.com/mboyd/warden/internal/notify"
	"github.com/mboyd/warden/internal/policy"
	"github.com/mboyd/warden/internal/runner"
	"github.com/mboyd/warden/internal/server"
	"github.com/mboyd/warden/internal/term"
	"github.com/mboyd/warden/internal/wlog"
)

var serveForeground bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the orchestrator HTTP server",
	Long: `Run the orchestrator HTTP server.

The server accepts transcripts on /process and /execute, validates extracted
commands against the policy, and runs approved commands through the agent.
Background executions started via /execute/background can pause to ask the
operator a question and resume via /resume/{id}.

Blocks until interrupted (SIGINT/SIGTERM). In-flight background sessions are
canceled at their next suspension point during shutdown.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveForeground, "foreground", false, "log to stderr as well as the log file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logPath := cfg.Log.Path
	if logPath == "" {
		logPath = wlog.DefaultLogPath()
	}
	if err := wlog.Configure(logPath, cfg.Log.Debug, !serveForeground); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	defer func() { _ = wlog.Close() }()

	schemas, err := policy.LoadSchemas(cfg.PolicyFile)
	if err != nil {
		return fmt.Errorf("failed to load policy: %w", err)
	}
	wlog.Info("serve: loaded policy for %d commands", len(schemas))

	var hist *history.Store
	if cfg.HistoryDB != "" {
		hist, err = history.Open(cfg.HistoryDB)
		if err != nil {
			wlog.Warn("serve: history disabled: %v", err)
			term.Warn("history disabled: %v", err)
		} else {
			defer func() { _ = hist.Close() }()
		}
	}

	apiKey := cfg.APIKey()
	if apiKey == "" {
		wlog.Warn("serve: %s not set, command extraction will always report no command", cfg.Extract.APIKeyEnv)
		term.Warn("%s is not set; command extraction is disabled", cfg.Extract.APIKeyEnv)
	}
	extractor := extract.New(cfg.Extract.Endpoint, apiKey, cfg.Extract.Model)

	agent := runner.New(cfg.Agent.Binary)

	var notifier engine.Notifier
	if cfg.Notify.To != "" {
		notifier = notify.New(agent, cfg.Notify.Channel, cfg.Notify.To, cfg.Notify.BaseURL,
			cfg.NotifyOnQuestion(), cfg.NotifyOnComplete())
	} else {
		wlog.Info("serve: notifications disabled (no destination configured)")
	}

	eng := engine.New(agent, notifier, cfg.ExecutionTimeout())

	// Base context for background sessions and the confirmation sweeper.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	confirmations := confirm.NewStoreWithTTL(cfg.ConfirmTTL())
	go confirmations.Run(ctx, cfg.SweepInterval())

	srv := &server.Server{
		Addr:           cfg.Listen,
		Extractor:      extractor,
		Validator:      policy.NewValidator(schemas),
		Runner:         agent,
		Engine:         eng,
		Confirmations:  confirmations,
		History:        hist,
		CommandTimeout: cfg.CommandTimeout(),
	}

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	wlog.Info("serve: listening on %s", srv.ListenAddr())
	term.Printf("Warden listening on %s\n", srv.ListenAddr())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	wlog.Debug("serve: shutting down...")

	// Stop accepting requests, then cancel background sessions and wait for
	// their run loops to record the cancellation.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("error during shutdown: %w", err)
	}
	cancel()
	eng.Wait()

	wlog.Debug("serve: stopped")
	return nil
}
