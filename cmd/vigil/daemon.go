package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vigil-dev/vigil/pkg/capture"
	"github.com/vigil-dev/vigil/pkg/classify"
	"github.com/vigil-dev/vigil/pkg/config"
	"github.com/vigil-dev/vigil/pkg/ingest"
	"github.com/vigil-dev/vigil/pkg/journal"
	"github.com/vigil-dev/vigil/pkg/lifecycle"
	"github.com/vigil-dev/vigil/pkg/llm"
	"github.com/vigil-dev/vigil/pkg/llm/openai"
	"github.com/vigil-dev/vigil/pkg/logging"
	"github.com/vigil-dev/vigil/pkg/pidfile"
	"github.com/vigil-dev/vigil/pkg/pipeline"
	"github.com/vigil-dev/vigil/pkg/service"
	"github.com/vigil-dev/vigil/pkg/tasks"
)

func daemonCmd() *cobra.Command {
	var foreground, debug bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the capture and classification daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath := pidfile.Path(homeDir)
			if err := pidfile.Write(pidPath, 0); err != nil {
				return err
			}
			defer pidfile.Remove(pidPath)

			closer, err := logging.Setup(homeDir, !foreground, debug)
			if err != nil {
				fmt.Println(warnStyle.Render("file logging unavailable, using stderr"))
			}
			if closer != nil {
				defer closer()
			}
			return runDaemon(cmd.Context(), loadConfig())
		},
	}

	cmd.Flags().BoolVar(&foreground, "foreground", false, "log to stderr instead of the session file")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

func runDaemon(parent context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	v, err := openVault(cfg)
	if err != nil {
		return err
	}

	queue := ingest.NewQueue(
		ingest.WithBatchSize(cfg.Queue.BatchSize),
		ingest.WithFlushInterval(cfg.Queue.FlushInterval()),
		ingest.WithDedupWindow(cfg.Queue.DedupWindow()),
	)

	var oracle llm.Provider
	if cfg.LLM.APIKey != "" {
		provider, err := openai.NewProvider(cfg.LLM.APIKey, cfg.LLM.BaseURL,
			openai.WithModel(cfg.LLM.Model),
			openai.WithMaxTokens(cfg.LLM.MaxTokens),
		)
		if err != nil {
			return fmt.Errorf("configure llm provider: %w", err)
		}
		oracle = provider
		slog.Info("oracle configured", "model", provider.Model())
	} else {
		slog.Warn("no api key configured, classification uses source heuristics only")
	}

	jr := journal.New(v)
	ts := tasks.NewStore(v)
	worker := pipeline.NewWorker(queue, classify.New(oracle), jr, ts)
	janitor := lifecycle.NewJanitor(lifecycle.NewManager(v), cfg.Lifecycle.SweepInterval())
	server := service.New(cfg.Service.Addr(), queue, janitor, ts, jr, v)

	sources := buildSources(cfg)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		janitor.Run(ctx)
	}()
	if len(sources) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			capture.RunAll(ctx, queue, sources...)
		}()
	}

	slog.Info("daemon started",
		"vault", cfg.VaultPath,
		"addr", cfg.Service.Addr(),
		"sources", len(sources),
	)

	err = server.Run(ctx)
	stop()
	wg.Wait()
	slog.Info("daemon stopped")
	return err
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, ok := pidfile.Stop(pidfile.Path(homeDir))
			if !ok {
				fmt.Println(dimStyle.Render("daemon not running"))
				return nil
			}
			fmt.Println(okStyle.Render("stopped ") + fmt.Sprintf("pid %d", pid))
			return nil
		},
	}
}

// buildSources assembles the in-process capture sources enabled by cfg.
func buildSources(cfg config.Config) []capture.Source {
	var sources []capture.Source
	if cfg.Capture.Clipboard {
		sources = append(sources, capture.NewClipboard(cfg.Capture.ClipboardInterval()))
	}
	if len(cfg.Capture.WatchDirs) > 0 {
		w, err := capture.NewWatcher(cfg.Capture.WatchDirs, cfg.Capture.IgnorePatterns)
		if err != nil {
			slog.Warn("file watcher disabled", "err", err)
		} else {
			sources = append(sources, w)
		}
	}
	return sources
}
