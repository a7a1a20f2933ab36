package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tvcat/internal/ingest"
	"github.com/jmylchreest/tvcat/internal/repository"
	"github.com/jmylchreest/tvcat/internal/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the auto-refresh scheduler",
	Long: `Run tvcat in the foreground, re-syncing auto-refresh sources on
their configured cadence until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runScheduler,
}

func runScheduler(cmd *cobra.Command, args []string) error {
	cfg, db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if !cfg.Scheduler.Enabled {
		return fmt.Errorf("scheduler is disabled in configuration")
	}

	logger := slog.Default()

	sources := repository.NewPlaylistSourceRepository(db.DB)
	playlists := ingest.NewService(db, cfg.Ingestion, logger)
	epg := ingest.NewEPGService(db, cfg.Ingestion, logger)

	sched := scheduler.New(sources, playlists, epg, cfg.Scheduler, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	logger.Info("tvcat running, press Ctrl+C to stop")
	<-ctx.Done()

	logger.Info("shutting down")
	sched.Stop()
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)
}
