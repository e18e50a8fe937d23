package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query     string   `json:"query"`
	Threshold *float64 `json:"threshold,omitempty"`
	Limit     int      `json:"limit,omitempty"`
	Course    *string  `json:"course,omitempty"`
}

// SearchResult represents a single search result.
type SearchResult struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	CourseTag  string  `json:"course_tag,omitempty"`
	FileName   string  `json:"file_name"`
	FileKind   string  `json:"file_kind"`
	IsGlobal   bool    `json:"is_global"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		limit     int
		threshold float64
		course    string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search study materials",
		Long:  "Searches stored course materials by semantic similarity.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			var thresholdPtr *float64
			if cmd.Flags().Changed("threshold") {
				thresholdPtr = &threshold
			}
			return runSearch(args[0], limit, thresholdPtr, course, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (server default: 4)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum similarity 0-1 (server default: 0.3)")
	cmd.Flags().StringVarP(&course, "course", "c", "", "Restrict shared materials to a course tag")

	return cmd
}

func runSearch(query string, limit int, threshold *float64, course string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	req := SearchRequest{
		Query:     query,
		Threshold: threshold,
		Limit:     limit,
	}
	if course != "" {
		req.Course = &course
	}

	resp, err := api.Post("/api/v1/search", req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(searchResp.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", searchResp.Count)
	for i, result := range searchResp.Results {
		source := result.FileName
		if result.IsGlobal {
			source += " (shared)"
		}
		fmt.Printf("%d. %s (%.2f)\n", i+1, source, result.Similarity)
		if result.CourseTag != "" {
			fmt.Printf("   Course: %s\n", result.CourseTag)
		}
		// Truncate content to keep terminal output readable
		content := strings.TrimSpace(result.Content)
		if len(content) > 200 {
			content = content[:197] + "..."
		}
		fmt.Printf("   %s\n", content)
		if i < len(searchResp.Results)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}
