package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tvcat/internal/ingest"
	"github.com/jmylchreest/tvcat/internal/models"
)

var epgCmd = &cobra.Command{
	Use:   "epg",
	Short: "Manage and query EPG data",
}

var epgSyncCmd = &cobra.Command{
	Use:   "sync <source-name>",
	Short: "Sync guide data for a source",
	Args:  cobra.ExactArgs(1),
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

		svc := ingest.NewEPGService(db, cfg.Ingestion, nil)
		count, err := svc.Sync(cmd.Context(), source.ID)
		if err != nil {
			return fmt.Errorf("syncing guide: %w", err)
		}

		fmt.Printf("Stored %d guide programmes\n", count)
		return nil
	},
}

var epgNowCmd = &cobra.Command{
	Use:   "now <channel-id>",
	Short: "Show what is airing on a channel right now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		svc := ingest.NewEPGService(db, cfg.Ingestion, nil)
		current, err := svc.CurrentProgramme(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if current == nil {
			fmt.Println("No programme airing now")
			return nil
		}

		printProgramme(current)
		return nil
	},
}

var epgNextCmd = &cobra.Command{
	Use:   "next <channel-id>",
	Short: "Show the next programme on a channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		svc := ingest.NewEPGService(db, cfg.Ingestion, nil)
		next, err := svc.NextProgramme(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if next == nil {
			fmt.Println("Nothing scheduled next")
			return nil
		}

		printProgramme(next)
		return nil
	},
}

var epgSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search guide programmes by title",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		svc := ingest.NewEPGService(db, cfg.Ingestion, nil)
		found, err := svc.Search(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		for _, p := range found {
			fmt.Printf("%s  %s - %s  %s\n",
				p.ChannelID,
				p.Start.Local().Format("2006-01-02 15:04"),
				p.Stop.Local().Format("15:04"),
				p.Title)
		}
		return nil
	},
}

var epgStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the stored guide window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		svc := ingest.NewEPGService(db, cfg.Ingestion, nil)
		stats, err := svc.Stats(cmd.Context())
		if err != nil {
			return err
		}
		if stats.Programmes == 0 {
			fmt.Println("Guide is empty")
			return nil
		}

		fmt.Printf("Programmes: %d\n", stats.Programmes)
		fmt.Printf("Coverage:   %s - %s\n",
			stats.Earliest.Local().Format("2006-01-02 15:04"),
			stats.Latest.Local().Format("2006-01-02 15:04"))
		return nil
	},
}

func printProgramme(p *models.EpgProgramme) {
	fmt.Printf("%s (%s - %s)\n",
		p.Title,
		p.Start.Local().Format("15:04"),
		p.Stop.Local().Format("15:04"))
	if p.SubTitle != "" {
		fmt.Println(p.SubTitle)
	}
	if p.Description != "" {
		fmt.Println(p.Description)
	}
}

func init() {
	epgCmd.AddCommand(epgSyncCmd)
	epgCmd.AddCommand(epgNowCmd)
	epgCmd.AddCommand(epgNextCmd)
	epgCmd.AddCommand(epgSearchCmd)
	epgCmd.AddCommand(epgStatsCmd)
	rootCmd.AddCommand(epgCmd)
}
