package command

import (
	"errors"
	"fmt"
	"time"

	"mangawatch/cmd/cli/authentication"
	"mangawatch/internal/microservices/http-api/dto"

	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  `Authenticate with the mangawatch API server. Supports register, login, logout and whoami.`,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		var req dto.RegisterRequest
		req.Username, _ = cmd.Flags().GetString("username")
		req.Password, _ = cmd.Flags().GetString("password")
		req.Email, _ = cmd.Flags().GetString("email")
		if name, _ := cmd.Flags().GetString("display-name"); name != "" {
			req.DisplayName = &name
		}

		user, err := newClient().Register(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}

		fmt.Println(successText("Registered %s. Run `mangawatch auth login` to continue.", user.Username))
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session in the OS keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")

		resp, err := newClient().Login(cmd.Context(), username, password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		role := ""
		if resp.User != nil {
			role = resp.User.Role
		}
		creds := authentication.NewCredentials(resp.AccessToken, resp.RefreshToken, username, role, resp.ExpiresIn, time.Now())
		if err := authentication.StoreTokens(creds); err != nil {
			return err
		}

		fmt.Println(successText("Logged in as %s", username))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the session and forget the stored tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := authentication.GetTokens()
		if errors.Is(err, authentication.ErrNotLoggedIn) {
			fmt.Println("Not logged in.")
			return nil
		}
		if err != nil {
			return err
		}

		if err := newClient().Revoke(cmd.Context(), creds.RefreshToken); err != nil {
			fmt.Println(dimStyle.Render("server revoke failed: " + err.Error()))
		}
		if err := authentication.DeleteTokens(); err != nil {
			return err
		}

		fmt.Println(successText("Logged out"))
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := GetAuthenticatedClient(cmd.Context())
		if err != nil {
			return err
		}

		user, err := c.Me(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load account: %w", err)
		}

		fmt.Println(titleStyle.Render(user.Username))
		fmt.Println(labelStyle.Render("Email") + user.Email)
		fmt.Println(labelStyle.Render("Role") + user.Role)
		fmt.Println(labelStyle.Render("Joined") + user.CreatedAt.Format("2006-01-02"))
		return nil
	},
}

func init() {
	authCmd.AddCommand(registerCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(whoamiCmd)

	registerCmd.Flags().StringP("username", "u", "", "Username for the new account")
	registerCmd.Flags().StringP("password", "p", "", "Password for the new account")
	registerCmd.Flags().StringP("email", "e", "", "Email address for the new account")
	registerCmd.Flags().String("display-name", "", "Optional display name")
	registerCmd.MarkFlagRequired("username")
	registerCmd.MarkFlagRequired("password")
	registerCmd.MarkFlagRequired("email")

	loginCmd.Flags().StringP("username", "u", "", "Username for the account")
	loginCmd.Flags().StringP("password", "p", "", "Password for the account")
	loginCmd.MarkFlagRequired("username")
	loginCmd.MarkFlagRequired("password")
}
