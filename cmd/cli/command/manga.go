package command

import (
	"fmt"
	"strconv"
	"strings"

	"mangawatch/internal/discover"

	"github.com/spf13/cobra"
)

var mangaCmd = &cobra.Command{
	Use:   "manga",
	Short: "Look up single titles and catalog totals",
	Long:  `Show details for a single title by id or MangaDex id, and catalog totals. Use "mangawatch discover" to browse.`,
}

var discoverCmd = &cobra.Command{
	Use:     "discover",
	Aliases: []string{"browse", "search"},
	Short:   "List manga filtered by query, genres and status",
	Example: `  mangawatch discover -q "one piece"
  mangawatch discover --genres Action,Comedy --status Ongoing --sort rating,desc`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := discoverParams(cmd)
		if err != nil {
			return err
		}

		resp, err := newClient().Discover(cmd.Context(), p)
		if err != nil {
			return fmt.Errorf("failed to load manga: %w", err)
		}

		if len(resp.Data) == 0 {
			fmt.Println("No manga matched your filters.")
			return nil
		}

		fmt.Println(renderTable([]string{"ID", "Title", "Author", "Year", "Status", "Rating"}, mangaRows(resp.Data)))
		pg := resp.Pagination
		fmt.Println(dimStyle.Render(fmt.Sprintf("Page %d of %d · %d manga · pages %s",
			pg.Page, pg.TotalPages, pg.Total, pageList(pg.PageNumbers, pg.Page))))
		if pg.HasNext {
			next := p
			next.Page = pg.Page + 1
			fmt.Println(dimStyle.Render("next: ?" + next.Encode()))
		}
		return nil
	},
}

var showMangaCmd = &cobra.Command{
	Use:   "show [manga_id]",
	Short: "Show a manga by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid manga ID: %w", err)
		}

		m, err := newClient().GetManga(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to load manga: %w", err)
		}
		fmt.Print(renderManga(m))
		return nil
	},
}

var dexMangaCmd = &cobra.Command{
	Use:   "dex [mangadex_id]",
	Short: "Show a manga by its MangaDex id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newClient().GetMangaByDexID(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load manga: %w", err)
		}
		fmt.Print(renderManga(m))
		return nil
	},
}

var genresCmd = &cobra.Command{
	Use:   "genres",
	Short: "List every genre in the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		genres, err := newClient().Genres(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get genres: %w", err)
		}
		if len(genres) == 0 {
			fmt.Println("No genres found.")
			return nil
		}

		fmt.Printf("Available genres (%d total):\n\n", len(genres))
		fmt.Println(strings.Join(genres, ", "))
		return nil
	},
}

var catalogStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := newClient().CatalogStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}
		fmt.Println(labelStyle.Render("Manga") + strconv.FormatInt(stats.TotalManga, 10))
		fmt.Println(labelStyle.Render("Genres") + strconv.FormatInt(stats.TotalGenres, 10))
		return nil
	},
}

func discoverParams(cmd *cobra.Command) (discover.Params, error) {
	f := cmd.Flags()
	p := discover.Params{}
	p.Query, _ = f.GetString("query")
	p.Genres, _ = f.GetStringSlice("genres")
	p.Status, _ = f.GetStringSlice("status")
	p.Sort, _ = f.GetString("sort")
	p.Page, _ = f.GetInt("page")
	p.Size, _ = f.GetInt("size")

	if _, err := discover.ParseSort(p.Sort); err != nil {
		return p, fmt.Errorf("%w %q: use title, author, rating or year with optional ,asc or ,desc", err, p.Sort)
	}
	// round-trip through the query form so the CLI sends what the server parses
	return discover.Parse(p.Values()), nil
}

func pageList(pages []int, current int) string {
	parts := make([]string, 0, len(pages))
	for _, n := range pages {
		if n == current {
			parts = append(parts, fmt.Sprintf("[%d]", n))
			continue
		}
		parts = append(parts, strconv.Itoa(n))
	}
	return strings.Join(parts, " ")
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(genresCmd)

	mangaCmd.AddCommand(showMangaCmd)
	mangaCmd.AddCommand(dexMangaCmd)
	mangaCmd.AddCommand(catalogStatsCmd)

	discoverCmd.Flags().StringP("query", "q", "", "Match title or author")
	discoverCmd.Flags().StringSliceP("genres", "g", nil, "Genres that must all match (comma separated)")
	discoverCmd.Flags().StringSliceP("status", "s", nil, "Publication statuses (comma separated)")
	discoverCmd.Flags().String("sort", discover.DefaultSort, "title, author, rating or year with optional ,asc or ,desc")
	discoverCmd.Flags().IntP("page", "p", discover.DefaultPage, "Page number")
	discoverCmd.Flags().Int("size", discover.DefaultSize, "Page size (max 100)")
}
