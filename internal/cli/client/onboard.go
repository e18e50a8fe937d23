package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// OnboardRequest represents the onboarding API request.
type OnboardRequest struct {
	DisplayName string `json:"display_name"`
	CourseTag   string `json:"course_tag"`
}

// OnboardCmd creates the onboard command.
func OnboardCmd() *cobra.Command {
	var (
		displayName string
		course      string
	)

	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Complete tenant onboarding",
		Long: `Complete onboarding by setting your display name and course tag.

The course tag scopes shared materials: searches include documents
tagged with your course alongside your own uploads.

Example:
  studyhall onboard --name "Ada Lovelace" --course cs101`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runOnboard(displayName, course, outputJSON)
		},
	}

	cmd.Flags().StringVar(&displayName, "name", "", "Display name")
	cmd.Flags().StringVarP(&course, "course", "c", "", "Course tag (required)")

	return cmd
}

func runOnboard(displayName, course string, outputJSON bool) error {
	if course == "" {
		return fmt.Errorf("--course is required")
	}

	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	req := OnboardRequest{
		DisplayName: displayName,
		CourseTag:   course,
	}

	resp, err := api.Post("/api/v1/tenants/me/onboarding", req)
	if err != nil {
		return fmt.Errorf("onboarding failed: %w", err)
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

	fmt.Println("Onboarding complete")
	printTenantInfo(&tenant)
	return nil
}
