package command

import (
	"fmt"
	"strconv"

	"mangawatch/cmd/cli/command/client"
	"mangawatch/internal/microservices/http-api/dto"

	"github.com/spf13/cobra"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage your manga library",
	Long:  `Add, remove and list manga in your personal library, and track reading status, ratings and reviews.`,
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the manga in your library",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := GetAuthenticatedClient(cmd.Context())
		if err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		sortBy, _ := cmd.Flags().GetString("sort")
		library, err := c.Library(cmd.Context(), status, sortBy)
		if err != nil {
			return fmt.Errorf("failed to fetch library: %w", err)
		}

		if len(library.Entries) == 0 {
			fmt.Println("📚 Your library is empty")
			return nil
		}

		fmt.Printf("📚 Your Library (%d manga · %s · sorted by %s)\n", library.Total, library.Status, library.Sort)
		fmt.Println(renderTable([]string{"ID", "Title", "Status", "Rating", "Added"}, libraryRows(library.Entries)))
		return nil
	},
}

var libraryAddCmd = &cobra.Command{
	Use:   "add [manga_id]",
	Short: "Add a manga to your library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEntry(cmd, args, func(c *client.HTTPClient, id int64) (*dto.LibraryEntryResponse, error) {
			return c.AddToLibrary(cmd.Context(), id)
		}, "Added manga %d as %s")
	},
}

var libraryRemoveCmd = &cobra.Command{
	Use:   "remove [manga_id]",
	Short: "Remove a manga from your library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mangaID, err := parseMangaID(args[0])
		if err != nil {
			return err
		}
		c, err := GetAuthenticatedClient(cmd.Context())
		if err != nil {
			return err
		}

		if err := c.RemoveFromLibrary(cmd.Context(), mangaID); err != nil {
			return fmt.Errorf("failed to remove manga: %w", err)
		}
		fmt.Println(successText("Removed manga %d from your library", mangaID))
		return nil
	},
}

var libraryStatusCmd = &cobra.Command{
	Use:   "status [manga_id] [reading|completed|plan-to-read]",
	Short: "Set the reading status of a library entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEntry(cmd, args[:1], func(c *client.HTTPClient, id int64) (*dto.LibraryEntryResponse, error) {
			return c.SetStatus(cmd.Context(), id, args[1])
		}, "Manga %d is now %s")
	},
}

var libraryCycleCmd = &cobra.Command{
	Use:   "cycle [manga_id]",
	Short: "Advance the reading status: Reading, Completed, Plan to Read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEntry(cmd, args, func(c *client.HTTPClient, id int64) (*dto.LibraryEntryResponse, error) {
			return c.CycleStatus(cmd.Context(), id)
		}, "Manga %d is now %s")
	},
}

var libraryReviewCmd = &cobra.Command{
	Use:   "review [manga_id]",
	Short: "Rate (1-10) or review a library entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var rating *int
		var review *string
		if cmd.Flags().Changed("rating") {
			r, _ := cmd.Flags().GetInt("rating")
			rating = &r
		}
		if cmd.Flags().Changed("text") {
			t, _ := cmd.Flags().GetString("text")
			review = &t
		}
		if rating == nil && review == nil {
			return fmt.Errorf("nothing to update: pass --rating and/or --text")
		}

		return withEntry(cmd, args, func(c *client.HTTPClient, id int64) (*dto.LibraryEntryResponse, error) {
			return c.UpdateReview(cmd.Context(), id, rating, review)
		}, "Saved review for manga %d (%s)")
	},
}

var libraryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show counts per reading status and your average rating",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := GetAuthenticatedClient(cmd.Context())
		if err != nil {
			return err
		}
		stats, err := c.LibraryStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to fetch stats: %w", err)
		}

		fmt.Println(labelStyle.Render("Total") + strconv.Itoa(stats.Total))
		fmt.Println(labelStyle.Render("Reading") + strconv.Itoa(stats.Reading))
		fmt.Println(labelStyle.Render("Completed") + strconv.Itoa(stats.Completed))
		fmt.Println(labelStyle.Render("Planned") + strconv.Itoa(stats.PlanToRead))
		fmt.Println(labelStyle.Render("Avg rating") + strconv.FormatFloat(stats.AverageRating, 'f', 1, 64))
		return nil
	},
}

// withEntry runs an entry mutation and prints the resulting status.
func withEntry(cmd *cobra.Command, args []string, fn func(*client.HTTPClient, int64) (*dto.LibraryEntryResponse, error), done string) error {
	mangaID, err := parseMangaID(args[0])
	if err != nil {
		return err
	}
	c, err := GetAuthenticatedClient(cmd.Context())
	if err != nil {
		return err
	}

	entry, err := fn(c, mangaID)
	if err != nil {
		return fmt.Errorf("library update failed: %w", err)
	}
	fmt.Println(successText(done, mangaID, entry.ReadingStatus))
	return nil
}

func parseMangaID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid manga ID %q", raw)
	}
	return id, nil
}

func init() {
	libraryCmd.AddCommand(libraryListCmd)
	libraryCmd.AddCommand(libraryAddCmd)
	libraryCmd.AddCommand(libraryRemoveCmd)
	libraryCmd.AddCommand(libraryStatusCmd)
	libraryCmd.AddCommand(libraryCycleCmd)
	libraryCmd.AddCommand(libraryReviewCmd)
	libraryCmd.AddCommand(libraryStatsCmd)

	libraryListCmd.Flags().String("status", "", "Filter by reading status (reading, completed, plan-to-read)")
	libraryListCmd.Flags().String("sort", "", "popularity, date or title")

	libraryReviewCmd.Flags().Int("rating", 0, "Your rating from 1 to 10")
	libraryReviewCmd.Flags().String("text", "", "Review text")
}
