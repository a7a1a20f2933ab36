package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tvcat/internal/models"
	"github.com/jmylchreest/tvcat/internal/repository"
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Browse the channel catalog",
}

var channelsGroup string

var channelsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List channels, optionally filtered by group",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		repo := repository.NewChannelRepository(db.DB)

		var channels []*models.Channel
		if channelsGroup != "" {
			channels, err = repo.GetByGroupTitle(cmd.Context(), channelsGroup)
		} else {
			channels, err = repo.GetAll(cmd.Context())
		}
		if err != nil {
			return err
		}

		printChannels(channels)
		return nil
	},
}

var channelsGroupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List distinct channel groups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		groups, err := repository.NewChannelRepository(db.DB).GetDistinctGroups(cmd.Context())
		if err != nil {
			return err
		}
		for _, g := range groups {
			fmt.Println(g)
		}
		return nil
	},
}

var channelsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search channels by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		channels, err := repository.NewChannelRepository(db.DB).Search(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		printChannels(channels)
		return nil
	},
}

var channelsFavoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "List favorite channels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		channels, err := repository.NewChannelRepository(db.DB).GetFavorites(cmd.Context())
		if err != nil {
			return err
		}

		printChannels(channels)
		return nil
	},
}

var channelsUnfavorite bool

var channelsFavoriteCmd = &cobra.Command{
	Use:   "favorite <name>",
	Short: "Mark a channel as favorite",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		repo := repository.NewChannelRepository(db.DB)
		matches, err := repo.Search(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		var channel *models.Channel
		for _, c := range matches {
			if c.Name == args[0] {
				channel = c
				break
			}
		}
		if channel == nil {
			return fmt.Errorf("channel %q not found", args[0])
		}

		if err := repo.SetFavorite(cmd.Context(), channel.ID, !channelsUnfavorite); err != nil {
			return err
		}
		if channelsUnfavorite {
			fmt.Printf("Removed %q from favorites\n", channel.Name)
		} else {
			fmt.Printf("Added %q to favorites\n", channel.Name)
		}
		return nil
	},
}

func printChannels(channels []*models.Channel) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tGROUP\tTVG-ID\tURL")
	for _, c := range channels {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Name, c.GroupTitle, c.TvgID, c.StreamURL)
	}
	w.Flush()
}

func init() {
	channelsListCmd.Flags().StringVar(&channelsGroup, "group", "", "filter by group title")
	channelsFavoriteCmd.Flags().BoolVar(&channelsUnfavorite, "remove", false, "remove from favorites instead")

	channelsCmd.AddCommand(channelsListCmd)
	channelsCmd.AddCommand(channelsGroupsCmd)
	channelsCmd.AddCommand(channelsSearchCmd)
	channelsCmd.AddCommand(channelsFavoritesCmd)
	channelsCmd.AddCommand(channelsFavoriteCmd)
	rootCmd.AddCommand(channelsCmd)
}
