package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// IngestReport represents the document upload API response.
type IngestReport struct {
	StoragePath string `json:"storage_path"`
	FileName    string `json:"file_name"`
	TotalChunks int    `json:"total_chunks"`
	Committed   int    `json:"committed"`
	Queued      int    `json:"queued"`
}

// UploadCmd creates the upload command.
func UploadCmd() *cobra.Command {
	var course string

	cmd := &cobra.Command{
		Use:   "upload <filepath>",
		Short: "Upload a study document",
		Long: `Upload a document to be chunked, embedded, and made searchable.

Supported formats: pdf, docx, html, txt, md.

Examples:
  # Upload lecture notes
  studyhall upload notes.pdf

  # Upload and tag with a course
  studyhall upload syllabus.md --course cs101`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runUpload(args[0], course, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&course, "course", "c", "", "Course tag for the document")

	return cmd
}

func runUpload(filePath, course string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) == 0 {
		return fmt.Errorf("file is empty")
	}

	fields := map[string]string{}
	if course != "" {
		fields["course_tag"] = course
	}

	resp, err := api.PostMultipart("/api/v1/documents", "file", filepath.Base(filePath), data, fields)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	var report IngestReport
	if err := json.Unmarshal(resp.Data, &report); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Uploaded document: %s\n", report.FileName)
	fmt.Printf("Storage path: %s\n", report.StoragePath)
	fmt.Printf("Chunks: %d total, %d embedded\n", report.TotalChunks, report.Committed)
	if report.Queued > 0 {
		fmt.Printf("Note: %d chunks queued for embedding retry; they become searchable once processed\n", report.Queued)
	}

	return nil
}
