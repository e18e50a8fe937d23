package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// FileKind represents the kind of an uploaded source file
type FileKind string

const (
	FileKindPDF      FileKind = "pdf"
	FileKindDOCX     FileKind = "docx"
	FileKindText     FileKind = "txt"
	FileKindMarkdown FileKind = "md"
	FileKindHTML     FileKind = "html"
)

// FileKindFromName derives the FileKind from a file name's extension.
// Returns ErrInvalidFileKind for anything outside the supported set.
func FileKindFromName(name string) (FileKind, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch kind := FileKind(ext); kind {
	case FileKindPDF, FileKindDOCX, FileKindText, FileKindMarkdown, FileKindHTML:
		return kind, nil
	}
	return "", NewDomainError(ErrCodeValidation, fmt.Sprintf("unsupported file kind %q (want pdf, docx, txt, md, or html)", ext))
}

// DocumentChunk represents a fixed-size slice of a document's text with its
// own embedding. A chunk with a nil TenantID is global/shared and visible per
// course-matching rules; a chunk with TenantID set is private to that tenant.
// The embedding stays empty until the embedding call for the chunk succeeds;
// such chunks are excluded from search.
type DocumentChunk struct {
	ID          string
	TenantID    *string
	CourseTag   *string
	Content     string
	Embedding   []float32
	FileName    string
	FileKind    FileKind
	StoragePath string
	ChunkIndex  int
	TotalChunks int
	CreatedAt   time.Time
}

// IsGlobal returns true when the chunk has no owning tenant.
func (c *DocumentChunk) IsGlobal() bool {
	return c.TenantID == nil
}

// ValidateDocumentChunk validates a DocumentChunk instance
func ValidateDocumentChunk(c *DocumentChunk) error {
	if c == nil {
		return fmt.Errorf("document chunk cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("document chunk ID is required")
	}

	if c.Content == "" {
		return fmt.Errorf("document chunk Content is required")
	}

	if c.FileName == "" {
		return fmt.Errorf("document chunk FileName is required")
	}

	if c.StoragePath == "" {
		return fmt.Errorf("document chunk StoragePath is required")
	}

	if _, err := FileKindFromName("x." + string(c.FileKind)); err != nil {
		return fmt.Errorf("document chunk FileKind is invalid: %s", c.FileKind)
	}

	if c.TotalChunks <= 0 {
		return fmt.Errorf("document chunk TotalChunks must be positive")
	}

	if c.ChunkIndex < 0 || c.ChunkIndex >= c.TotalChunks {
		return fmt.Errorf("document chunk ChunkIndex %d out of range [0, %d)", c.ChunkIndex, c.TotalChunks)
	}

	if c.TenantID != nil && *c.TenantID == "" {
		return fmt.Errorf("document chunk TenantID cannot be blank when set")
	}

	return nil
}
