package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/studyhall-hq/studyhall/internal/cli"
	"github.com/studyhall-hq/studyhall/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "studyhalld",
		Short: "Studyhall daemon and CLI",
		Long:  "Studyhall daemon for running the API server and managing tenants, API keys, and documents",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.TenantCmd())
	rootCmd.AddCommand(admin.APIKeyCmd())
	rootCmd.AddCommand(admin.IngestCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
