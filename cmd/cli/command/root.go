package command

// root.go defines the root command and the global flags.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"mangawatch/cmd/cli/authentication"
	"mangawatch/cmd/cli/command/client"

	"github.com/spf13/cobra"
)

const defaultAPIURL = "http://localhost:8080"

var apiURL string // global flag for the API server URL

var rootCmd = &cobra.Command{
	Use:   "mangawatch",
	Short: "mangawatch - manga catalog and reading list from the terminal",
	Long: `mangawatch talks to a mangawatch API server. Use it to:
- Browse and filter the imported MangaDex catalog
- Keep a personal library with reading status, ratings and reviews
- Trigger and watch catalog imports (admin accounts)

Use "mangawatch [command] --help" to see all available commands.`,
	SilenceUsage: true,
}

// Execute runs the root command until it finishes or the user interrupts it.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorText(err.Error()))
		os.Exit(1)
	}
}

func init() {
	defaultURL := os.Getenv("MANGAWATCH_API_URL")
	if defaultURL == "" {
		defaultURL = defaultAPIURL
	}
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", defaultURL, "API server URL (env MANGAWATCH_API_URL)")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(mangaCmd)
	rootCmd.AddCommand(libraryCmd)
	rootCmd.AddCommand(adminCmd)
}

func newClient() *client.HTTPClient {
	return client.NewHTTPClient(apiURL)
}

// GetAuthenticatedClient returns a client carrying the stored access token,
// refreshing it first when it has expired.
func GetAuthenticatedClient(ctx context.Context) (*client.HTTPClient, error) {
	creds, err := authentication.GetTokens()
	if err != nil {
		return nil, err
	}

	c := newClient()
	if creds.Expired(time.Now()) {
		resp, err := c.Refresh(ctx, creds.RefreshToken)
		if err != nil {
			if client.IsUnauthorized(err) {
				_ = authentication.DeleteTokens()
				return nil, errors.New("session expired: run `mangawatch auth login`")
			}
			return nil, fmt.Errorf("refresh session: %w", err)
		}
		creds = authentication.NewCredentials(resp.AccessToken, resp.RefreshToken, creds.Username, creds.Role, resp.ExpiresIn, time.Now())
		if err := authentication.StoreTokens(creds); err != nil {
			return nil, err
		}
	}

	c.SetToken(creds.AccessToken)
	return c, nil
}
