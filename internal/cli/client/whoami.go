package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// TenantInfo represents the tenant profile API response.
type TenantInfo struct {
	ID               string `json:"id"`
	ExternalIdentity string `json:"external_identity"`
	Email            string `json:"email"`
	DisplayName      string `json:"display_name,omitempty"`
	CourseTag        string `json:"course_tag,omitempty"`
	Onboarding       string `json:"onboarding"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// WhoamiCmd creates the whoami command.
func WhoamiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated tenant",
		Long:  "Displays the tenant profile bound to the current API key.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runWhoami(outputJSON)
		},
	}

	return cmd
}

func runWhoami(outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Get("/api/v1/tenants/me")
	if err != nil {
		return fmt.Errorf("failed to get tenant profile: %w", err)
	}

	var tenant TenantInfo
	if err := json.Unmarshal(resp.Data, &tenant); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(tenant, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	printTenantInfo(&tenant)
	return nil
}

func printTenantInfo(tenant *TenantInfo) {
	name := tenant.DisplayName
	if name == "" {
		name = tenant.ExternalIdentity
	}
	fmt.Printf("Tenant: %s\n", name)
	fmt.Printf("ID: %s\n", tenant.ID)
	fmt.Printf("Email: %s\n", tenant.Email)
	if tenant.CourseTag != "" {
		fmt.Printf("Course: %s\n", tenant.CourseTag)
	}
	fmt.Printf("Onboarding: %s\n", tenant.Onboarding)
}
