package command

import (
	"fmt"
	"strconv"
	"time"

	"mangawatch/internal/microservices/http-api/dto"

	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Admin commands (requires an admin account)",
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Start a MangaDex catalog import on the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := GetAuthenticatedClient(cmd.Context())
		if err != nil {
			return err
		}

		var req dto.ImportRequest
		req.Max, _ = cmd.Flags().GetInt("max")
		req.Cursor, _ = cmd.Flags().GetString("cursor")

		status, err := c.StartImport(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("failed to start import: %w", err)
		}
		fmt.Println(successText("Import started"))
		printImportStatus(status)
		return nil
	},
}

var importStatusCmd = &cobra.Command{
	Use:   "import-status",
	Short: "Show the state of the current or last import",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := GetAuthenticatedClient(cmd.Context())
		if err != nil {
			return err
		}

		status, err := c.ImportStatus(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get import status: %w", err)
		}
		printImportStatus(status)
		return nil
	},
}

func printImportStatus(s *dto.ImportStatusResponse) {
	state := "idle"
	if s.Running {
		state = "running"
	}
	fmt.Println(labelStyle.Render("State") + statusText(state))
	if s.StartedAt != nil {
		fmt.Println(labelStyle.Render("Started") + s.StartedAt.Local().Format(time.DateTime))
	}
	if s.FinishedAt != nil {
		fmt.Println(labelStyle.Render("Finished") + s.FinishedAt.Local().Format(time.DateTime))
	}
	if s.Error != "" {
		fmt.Println(labelStyle.Render("Error") + errorText(s.Error))
	}

	r := s.LastResult
	if r == nil {
		return
	}
	fmt.Println(renderTable(
		[]string{"Fetched", "Inserted", "Updated", "Skipped", "Errors", "Cursor"},
		[][]string{{
			strconv.Itoa(r.Fetched),
			strconv.Itoa(r.Inserted),
			strconv.Itoa(r.Updated),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Errors),
			r.LastCursor,
		}},
	))
	for _, d := range r.ErrorDetails {
		fmt.Println(dimStyle.Render("  " + d))
	}
}

func init() {
	adminCmd.AddCommand(importCmd)
	adminCmd.AddCommand(importStatusCmd)

	importCmd.Flags().Int("max", 0, "Stop after this many manga (0 = all)")
	importCmd.Flags().String("cursor", "", "Start from this createdAt cursor instead of the stored one")
}
