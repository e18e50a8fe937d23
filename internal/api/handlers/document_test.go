package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/studyhall-hq/studyhall/internal/api/middleware"
	"github.com/studyhall-hq/studyhall/internal/domain"
	"github.com/studyhall-hq/studyhall/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) List(ctx context.Context, identity domain.Identity, input service.DocumentListInput) (*service.DocumentPageResult, error) {
	args := m.Called(ctx, identity, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentPageResult), args.Error(1)
}

func (m *MockDocumentService) Download(ctx context.Context, identity domain.Identity, storagePath string) (string, error) {
	args := m.Called(ctx, identity, storagePath)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, identity domain.Identity, storagePath string) (int64, error) {
	args := m.Called(ctx, identity, storagePath)
	return args.Get(0).(int64), args.Error(1)
}

type MockIngestionService struct {
	mock.Mock
}

func (m *MockIngestionService) Ingest(ctx context.Context, identity domain.Identity, input service.IngestInput) (*service.IngestReport, error) {
	args := m.Called(ctx, identity, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestReport), args.Error(1)
}

func multipartUpload(t *testing.T, identity domain.Identity, fileName, courseTag string, content []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	if courseTag != "" {
		require.NoError(t, writer.WriteField("course_tag", courseTag))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	ctx := context.WithValue(req.Context(), middleware.IdentityKey, identity)
	return req.WithContext(ctx)
}

func TestDocumentHandler_Upload_Success(t *testing.T) {
	mockDocs := new(MockDocumentService)
	mockIngest := new(MockIngestionService)
	handler := NewDocumentHandler(mockDocs, mockIngest)

	report := &service.IngestReport{
		StoragePath: "tenant-1/file-1.txt",
		FileName:    "notes.txt",
		TotalChunks: 3,
		Committed:   3,
	}
	mockIngest.On("Ingest", mock.Anything, domain.TenantIdentity("tenant-1"), mock.MatchedBy(func(input service.IngestInput) bool {
		return input.FileName == "notes.txt" &&
			string(input.Data) == "lecture notes" &&
			input.Course != nil && *input.Course == "cs101"
	})).Return(report, nil)

	req := multipartUpload(t, domain.TenantIdentity("tenant-1"), "notes.txt", "cs101", []byte("lecture notes"))
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "tenant-1/file-1.txt", data["storage_path"])
	assert.Equal(t, float64(3), data["total_chunks"])
	assert.Equal(t, float64(3), data["committed"])
	assert.Equal(t, float64(0), data["queued"])
	mockIngest.AssertExpectations(t)
}

func TestDocumentHandler_Upload_NoCourseTag(t *testing.T) {
	mockDocs := new(MockDocumentService)
	mockIngest := new(MockIngestionService)
	handler := NewDocumentHandler(mockDocs, mockIngest)

	report := &service.IngestReport{StoragePath: "tenant-1/file-1.txt", FileName: "notes.txt", TotalChunks: 1, Committed: 1}
	mockIngest.On("Ingest", mock.Anything, mock.Anything, mock.MatchedBy(func(input service.IngestInput) bool {
		return input.Course == nil
	})).Return(report, nil)

	req := multipartUpload(t, domain.TenantIdentity("tenant-1"), "notes.txt", "", []byte("lecture notes"))
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockIngest.AssertExpectations(t)
}

func TestDocumentHandler_Upload_PartialFailure(t *testing.T) {
	mockDocs := new(MockDocumentService)
	mockIngest := new(MockIngestionService)
	handler := NewDocumentHandler(mockDocs, mockIngest)

	partial := &domain.PartialIngestionError{
		FileName:  "notes.txt",
		Committed: 2,
		Failed:    []domain.ChunkFailure{{Index: 1, Reason: "upstream timeout"}},
	}
	mockIngest.On("Ingest", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, partial)

	req := multipartUpload(t, domain.TenantIdentity("tenant-1"), "notes.txt", "cs101", []byte("lecture notes"))
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)

	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Committed    int `json:"committed"`
				FailedChunks []struct {
					Index int `json:"index"`
				} `json:"failed_chunks"`
			} `json:"details"`
		} `json:"error"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, domain.ErrCodePartialIngestion, resp.Error.Code)
	assert.Equal(t, 2, resp.Error.Details.Committed)
	require.Len(t, resp.Error.Details.FailedChunks, 1)
	assert.Equal(t, 1, resp.Error.Details.FailedChunks[0].Index)
}

func TestDocumentHandler_Upload_Unauthorized(t *testing.T) {
	mockDocs := new(MockDocumentService)
	mockIngest := new(MockIngestionService)
	handler := NewDocumentHandler(mockDocs, mockIngest)

	req := httptest.NewRequest(http.MethodPost, "/documents", nil)
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	mockIngest.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentHandler_Upload_MissingFile(t *testing.T) {
	mockDocs := new(MockDocumentService)
	mockIngest := new(MockIngestionService)
	handler := NewDocumentHandler(mockDocs, mockIngest)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("course_tag", "cs101"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	ctx := context.WithValue(req.Context(), middleware.IdentityKey, domain.TenantIdentity("tenant-1"))
	w := httptest.NewRecorder()

	handler.Upload(w, req.WithContext(ctx))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "file is required")
}

func TestDocumentHandler_Upload_ValidationError(t *testing.T) {
	mockDocs := new(MockDocumentService)
	mockIngest := new(MockIngestionService)
	handler := NewDocumentHandler(mockDocs, mockIngest)

	mockIngest.On("Ingest", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.ErrFileTooLarge)

	req := multipartUpload(t, domain.TenantIdentity("tenant-1"), "notes.txt", "cs101", []byte("lecture notes"))
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrCodeValidation)
}

func newTestDocument() *service.Document {
	tenantID := "tenant-1"
	courseTag := "cs101"
	return &service.Document{
		StoragePath:    "tenant-1/file-1.pdf",
		TenantID:       &tenantID,
		CourseTag:      &courseTag,
		FileName:       "notes.pdf",
		FileKind:       domain.FileKindPDF,
		TotalChunks:    3,
		StoredChunks:   3,
		EmbeddedChunks: 3,
		CreatedAt:      time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestDocumentHandler_List_Success(t *testing.T) {
	mockDocs := new(MockDocumentService)
	mockIngest := new(MockIngestionService)
	handler := NewDocumentHandler(mockDocs, mockIngest)

	page := &service.DocumentPageResult{
		Items:      []*service.Document{newTestDocument()},
		NextCursor: "next-token",
		HasMore:    true,
	}
	mockDocs.On("List", mock.Anything, domain.TenantIdentity("tenant-1"), service.DocumentListInput{Limit: 20}).
		Return(page, nil)

	req := requestWithIdentity(http.MethodGet, "/documents", domain.TenantIdentity("tenant-1"), nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "next-token", data["cursor"])
	assert.Equal(t, true, data["has_more"])

	items := data["items"].([]interface{})
	require.Len(t, items, 1)
	doc := items[0].(map[string]interface{})
	assert.Equal(t, "tenant-1/file-1.pdf", doc["storage_path"])
	assert.Equal(t, "notes.pdf", doc["file_name"])
	assert.Equal(t, float64(3), doc["embedded_chunks"])
	assert.Equal(t, false, doc["is_global"])
	mockDocs.AssertExpectations(t)
}

func TestDocumentHandler_List_CursorAndLimit(t *testing.T) {
	mockDocs := new(MockDocumentService)
	mockIngest := new(MockIngestionService)
	handler := NewDocumentHandler(mockDocs, mockIngest)

	mockDocs.On("List", mock.Anything, mock.Anything, service.DocumentListInput{Cursor: "abc", Limit: 5}).
		Return(&service.DocumentPageResult{Items: []*service.Document{}}, nil)

	req := requestWithIdentity(http.MethodGet, "/documents?cursor=abc&limit=5", domain.TenantIdentity("tenant-1"), nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockDocs.AssertExpectations(t)
}

func TestDocumentHandler_List_Unauthorized(t *testing.T) {
	mockDocs := new(MockDocumentService)
	mockIngest := new(MockIngestionService)
	handler := NewDocumentHandler(mockDocs, mockIngest)

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDocumentHandler_Download_Success(t *testing.T) {
	mockDocs := new(MockDocumentService)
	mockIngest := new(MockIngestionService)
	handler := NewDocumentHandler(mockDocs, mockIngest)

	mockDocs.On("Download", mock.Anything, domain.TenantIdentity("tenant-1"), "tenant-1/file-1.pdf").
		Return("https://s3.example.com/presigned", nil)

	req := requestWithIdentity(http.MethodGet, "/documents/download?path=tenant-1%2Ffile-1.pdf", domain.TenantIdentity("tenant-1"), nil)
	w := httptest.NewRecorder()

	handler.Download(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "https://s3.example.com/presigned", data["download_url"])
	mockDocs.AssertExpectations(t)
}

func TestDocumentHandler_Download_MissingPath(t *testing.T) {
	mockDocs := new(MockDocumentService)
	mockIngest := new(MockIngestionService)
	handler := NewDocumentHandler(mockDocs, mockIngest)

	req := requestWithIdentity(http.MethodGet, "/documents/download", domain.TenantIdentity("tenant-1"), nil)
	w := httptest.NewRecorder()

	handler.Download(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "path is required")
}

func TestDocumentHandler_Download_Forbidden(t *testing.T) {
	mockDocs := new(MockDocumentService)
	mockIngest := new(MockIngestionService)
	handler := NewDocumentHandler(mockDocs, mockIngest)

	mockDocs.On("Download", mock.Anything, mock.Anything, "tenant-2/file-9.pdf").
		Return("", domain.ErrForbidden)

	req := requestWithIdentity(http.MethodGet, "/documents/download?path=tenant-2%2Ffile-9.pdf", domain.TenantIdentity("tenant-1"), nil)
	w := httptest.NewRecorder()

	handler.Download(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrCodeForbidden)
}

func TestDocumentHandler_Delete_Success(t *testing.T) {
	mockDocs := new(MockDocumentService)
	mockIngest := new(MockIngestionService)
	handler := NewDocumentHandler(mockDocs, mockIngest)

	mockDocs.On("Delete", mock.Anything, domain.TenantIdentity("tenant-1"), "tenant-1/file-1.pdf").
		Return(int64(3), nil)

	req := requestWithIdentity(http.MethodDelete, "/documents?path=tenant-1%2Ffile-1.pdf", domain.TenantIdentity("tenant-1"), nil)
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["deleted_chunks"])
	mockDocs.AssertExpectations(t)
}

func TestDocumentHandler_Delete_NotFound(t *testing.T) {
	mockDocs := new(MockDocumentService)
	mockIngest := new(MockIngestionService)
	handler := NewDocumentHandler(mockDocs, mockIngest)

	mockDocs.On("Delete", mock.Anything, mock.Anything, "ghost/file.pdf").
		Return(int64(0), domain.ErrDocumentNotFound)

	req := requestWithIdentity(http.MethodDelete, "/documents?path=ghost%2Ffile.pdf", domain.TenantIdentity("tenant-1"), nil)
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
