package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// DocumentItem represents a single document in the list response.
type DocumentItem struct {
	StoragePath    string `json:"storage_path"`
	TenantID       string `json:"tenant_id,omitempty"`
	CourseTag      string `json:"course_tag,omitempty"`
	FileName       string `json:"file_name"`
	FileKind       string `json:"file_kind"`
	TotalChunks    int    `json:"total_chunks"`
	StoredChunks   int    `json:"stored_chunks"`
	EmbeddedChunks int    `json:"embedded_chunks"`
	IsGlobal       bool   `json:"is_global"`
	CreatedAt      string `json:"created_at"`
}

// DocumentListResponse represents the document list API response.
type DocumentListResponse struct {
	Items   []DocumentItem `json:"items"`
	Cursor  string         `json:"cursor,omitempty"`
	HasMore bool           `json:"has_more"`
}

// DownloadURLResponse represents the download URL API response.
type DownloadURLResponse struct {
	DownloadURL string `json:"download_url"`
}

// DeleteDocumentResponse represents the document delete API response.
type DeleteDocumentResponse struct {
	StoragePath   string `json:"storage_path"`
	DeletedChunks int64  `json:"deleted_chunks"`
}

// DocumentsCmd creates the documents command group.
func DocumentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Document management commands",
		Long:  "List, download, and delete uploaded study documents.",
	}

	cmd.AddCommand(DocumentsListCmd())
	cmd.AddCommand(DocumentsDownloadCmd())
	cmd.AddCommand(DocumentsDeleteCmd())

	return cmd
}

// DocumentsListCmd creates the documents list command.
func DocumentsListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your documents",
		Long:  "Lists documents visible to you, most recent first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocumentsList(limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runDocumentsList(limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	query := url.Values{}
	if limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	path := "/api/v1/documents"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	var listResp DocumentListResponse
	if err := json.Unmarshal(resp.Data, &listResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(listResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(listResp.Items) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	fmt.Printf("Found %d documents:\n\n", len(listResp.Items))
	for i, item := range listResp.Items {
		label := item.FileName
		if item.IsGlobal {
			label += " (shared)"
		}
		fmt.Printf("%d. %s [%s]\n", i+1, label, item.FileKind)
		if item.CourseTag != "" {
			fmt.Printf("   Course: %s\n", item.CourseTag)
		}
		fmt.Printf("   Chunks: %d stored, %d embedded\n", item.StoredChunks, item.EmbeddedChunks)
		if item.CreatedAt != "" {
			fmt.Printf("   Uploaded: %s\n", item.CreatedAt)
		}
		fmt.Printf("   Path: %s\n", item.StoragePath)
		if i < len(listResp.Items)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	if listResp.HasMore && listResp.Cursor != "" {
		fmt.Printf("\n%s\n", strings.Repeat("-", 40))
		fmt.Printf("More results available. Use --cursor %s\n", listResp.Cursor)
	}

	return nil
}

// DocumentsDownloadCmd creates the documents download command.
func DocumentsDownloadCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "download <storage_path>",
		Short: "Download a document",
		Long:  "Downloads a document's original file by its storage path.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocumentsDownload(args[0], outputPath, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "dest", "o", "", "Output file path (default: original filename)")

	return cmd
}

func runDocumentsDownload(storagePath, outputPath string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Get("/api/v1/documents/download?path=" + url.QueryEscape(storagePath))
	if err != nil {
		return fmt.Errorf("failed to get download URL: %w", err)
	}

	var downloadResp DownloadURLResponse
	if err := json.Unmarshal(resp.Data, &downloadResp); err != nil {
		return fmt.Errorf("failed to parse download URL response: %w", err)
	}

	if downloadResp.DownloadURL == "" {
		return fmt.Errorf("no download URL returned")
	}

	if outputPath == "" {
		outputPath = filepath.Base(storagePath)
	}

	if err := api.DownloadFile(downloadResp.DownloadURL, outputPath); err != nil {
		return fmt.Errorf("failed to download document: %w", err)
	}

	if outputJSON {
		result := map[string]interface{}{
			"success":      true,
			"storage_path": storagePath,
			"path":         outputPath,
		}
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Downloaded document to %s\n", outputPath)
	}

	return nil
}

// DocumentsDeleteCmd creates the documents delete command.
func DocumentsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <storage_path>",
		Short: "Delete a document",
		Long:  "Deletes a document, its chunks, and the stored file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocumentsDelete(args[0], outputJSON)
		},
	}

	return cmd
}

func runDocumentsDelete(storagePath string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Delete("/api/v1/documents?path=" + url.QueryEscape(storagePath))
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	var deleteResp DeleteDocumentResponse
	if err := json.Unmarshal(resp.Data, &deleteResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(deleteResp, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Deleted document: %s\n", deleteResp.StoragePath)
		fmt.Printf("Removed chunks: %d\n", deleteResp.DeletedChunks)
	}

	return nil
}
