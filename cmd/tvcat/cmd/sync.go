package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tvcat/internal/database"
	"github.com/jmylchreest/tvcat/internal/ingest"
	"github.com/jmylchreest/tvcat/internal/repository"
)

var syncAll bool
var syncWithGuide bool

var syncCmd = &cobra.Command{
	Use:   "sync [name]",
	Short: "Sync playlist sources",
	Long: `Download and ingest playlist content for one source, or for every
enabled source with --all. Existing content for a source is replaced
by the new playlist.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !syncAll && len(args) == 0 {
			return fmt.Errorf("either a source name or --all is required")
		}

		cfg, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		svc := ingest.NewService(db, cfg.Ingestion, nil)
		ctx := cmd.Context()

		if syncAll {
			if err := svc.SyncAll(ctx); err != nil {
				return fmt.Errorf("syncing sources: %w", err)
			}
		} else {
			if err := svc.SyncByName(ctx, args[0]); err != nil {
				return fmt.Errorf("syncing source %q: %w", args[0], err)
			}
		}

		if syncWithGuide {
			epgSvc := ingest.NewEPGService(db, cfg.Ingestion, nil)
			if syncAll {
				return syncAllGuides(cmd, db, epgSvc)
			}
			source, err := findSource(ctx, db, args[0])
			if err != nil {
				return err
			}
			count, err := epgSvc.Sync(ctx, source.ID)
			if err != nil {
				return fmt.Errorf("syncing guide for %q: %w", args[0], err)
			}
			fmt.Printf("Stored %d guide programmes\n", count)
		}

		return nil
	},
}

// syncAllGuides syncs guide data for every enabled source that has one.
func syncAllGuides(cmd *cobra.Command, db *database.DB, svc *ingest.EPGService) error {
	sources, err := repository.NewPlaylistSourceRepository(db.DB).GetEnabled(cmd.Context())
	if err != nil {
		return err
	}

	for _, source := range sources {
		if source.EpgURL == "" && !source.IsXtream() {
			continue
		}
		count, err := svc.Sync(cmd.Context(), source.ID)
		if err != nil {
			fmt.Printf("Guide sync for %q failed: %v\n", source.Name, err)
			continue
		}
		fmt.Printf("Stored %d guide programmes for %q\n", count, source.Name)
	}
	return nil
}

func init() {
	syncCmd.Flags().BoolVar(&syncAll, "all", false, "sync every enabled source")
	syncCmd.Flags().BoolVar(&syncWithGuide, "with-guide", false, "also sync EPG data afterwards")
	rootCmd.AddCommand(syncCmd)
}
