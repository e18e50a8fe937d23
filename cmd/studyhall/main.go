package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/studyhall-hq/studyhall/internal/cli"
	"github.com/studyhall-hq/studyhall/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "studyhall",
		Short: "Studyhall CLI - Study material search and course tracking",
		Long: `Studyhall CLI provides commands to upload course materials, search them
semantically, and track attendance.

Environment variables:
  STUDYHALL_API_KEY   API key for authentication (required)
  STUDYHALL_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AuthCmd())
	rootCmd.AddCommand(client.WhoamiCmd())
	rootCmd.AddCommand(client.OnboardCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.UploadCmd())
	rootCmd.AddCommand(client.DocumentsCmd())
	rootCmd.AddCommand(client.AttendanceCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
