package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tvcat/internal/database"
	"github.com/jmylchreest/tvcat/internal/ingest"
	"github.com/jmylchreest/tvcat/internal/models"
	"github.com/jmylchreest/tvcat/internal/repository"
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage playlist sources",
}

var sourceAddFlags struct {
	kind         string
	url          string
	username     string
	password     string
	epgURL       string
	autoRefresh  bool
	refreshHours int
	refreshCron  string
	disabled     bool
}

var sourceAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a playlist source",
	Long: `Add an M3U or Xtream Codes playlist source.

M3U sources need --url pointing at the playlist. Xtream sources need
--url pointing at the server base URL plus --username and --password.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		source := &models.PlaylistSource{
			Name:                 args[0],
			Kind:                 models.SourceKind(sourceAddFlags.kind),
			URL:                  sourceAddFlags.url,
			Username:             sourceAddFlags.username,
			Password:             sourceAddFlags.password,
			EpgURL:               sourceAddFlags.epgURL,
			Enabled:              !sourceAddFlags.disabled,
			AutoRefresh:          sourceAddFlags.autoRefresh,
			RefreshIntervalHours: sourceAddFlags.refreshHours,
			RefreshCron:          sourceAddFlags.refreshCron,
		}
		if err := source.Validate(); err != nil {
			return err
		}

		repo := repository.NewPlaylistSourceRepository(db.DB)
		if err := repo.Create(cmd.Context(), source); err != nil {
			return fmt.Errorf("creating source: %w", err)
		}

		fmt.Printf("Added %s source %q (%s)\n", source.Kind, source.Name, source.ID)
		return nil
	},
}

var sourceListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List playlist sources",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		repo := repository.NewPlaylistSourceRepository(db.DB)
		sources, err := repo.GetAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing sources: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tKIND\tENABLED\tSTATUS\tCHANNELS\tMOVIES\tSERIES\tLAST SYNC")
		for _, s := range sources {
			lastSync := "never"
			if s.LastSyncAt != nil {
				lastSync = s.LastSyncAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%d\t%d\t%d\t%s\n",
				s.Name, s.Kind, s.Enabled, s.LastSyncStatus,
				s.ChannelCount, s.MovieCount, s.SeriesCount, lastSync)
		}
		return w.Flush()
	},
}

var sourceRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a playlist source and its content",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		source, err := findSource(cmd.Context(), db, args[0])
		if err != nil {
			return err
		}

		svc := ingest.NewService(db, cfg.Ingestion, nil)
		if err := svc.Delete(cmd.Context(), source.ID); err != nil {
			return fmt.Errorf("removing source: %w", err)
		}

		fmt.Printf("Removed source %q and its content\n", source.Name)
		return nil
	},
}

var sourceEnableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "Enable a playlist source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSourceEnabled(cmd, args[0], true)
	},
}

var sourceDisableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Disable a playlist source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSourceEnabled(cmd, args[0], false)
	},
}

func setSourceEnabled(cmd *cobra.Command, name string, enabled bool) error {
	_, db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	source, err := findSource(cmd.Context(), db, name)
	if err != nil {
		return err
	}

	if err := db.DB.Model(source).Update("enabled", enabled).Error; err != nil {
		return fmt.Errorf("updating source: %w", err)
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Printf("Source %q %s\n", source.Name, state)
	return nil
}

// findSource resolves a source by name.
func findSource(ctx context.Context, db *database.DB, name string) (*models.PlaylistSource, error) {
	source, err := repository.NewPlaylistSourceRepository(db.DB).GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, models.ErrSourceNotFound
	}
	return source, nil
}

func init() {
	sourceAddCmd.Flags().StringVar(&sourceAddFlags.kind, "kind", "m3u", "source kind (m3u, xtream)")
	sourceAddCmd.Flags().StringVar(&sourceAddFlags.url, "url", "", "playlist URL or Xtream server base URL")
	sourceAddCmd.Flags().StringVar(&sourceAddFlags.username, "username", "", "Xtream username")
	sourceAddCmd.Flags().StringVar(&sourceAddFlags.password, "password", "", "Xtream password")
	sourceAddCmd.Flags().StringVar(&sourceAddFlags.epgURL, "epg-url", "", "XMLTV guide URL")
	sourceAddCmd.Flags().BoolVar(&sourceAddFlags.autoRefresh, "auto-refresh", false, "refresh this source on a schedule")
	sourceAddCmd.Flags().IntVar(&sourceAddFlags.refreshHours, "refresh-hours", 24, "hours between scheduled refreshes")
	sourceAddCmd.Flags().StringVar(&sourceAddFlags.refreshCron, "refresh-cron", "", "cron schedule overriding --refresh-hours")
	sourceAddCmd.Flags().BoolVar(&sourceAddFlags.disabled, "disabled", false, "add the source in a disabled state")
	cobra.CheckErr(sourceAddCmd.MarkFlagRequired("url"))

	sourceCmd.AddCommand(sourceAddCmd)
	sourceCmd.AddCommand(sourceListCmd)
	sourceCmd.AddCommand(sourceRemoveCmd)
	sourceCmd.AddCommand(sourceEnableCmd)
	sourceCmd.AddCommand(sourceDisableCmd)
	rootCmd.AddCommand(sourceCmd)
}
