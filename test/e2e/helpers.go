//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studyhall-hq/studyhall/internal/api/handlers"
	"github.com/studyhall-hq/studyhall/internal/domain"
	"github.com/studyhall-hq/studyhall/internal/extract"
	"github.com/studyhall-hq/studyhall/internal/repository"
	"github.com/studyhall-hq/studyhall/internal/server"
	"github.com/studyhall-hq/studyhall/internal/service"
	"github.com/studyhall-hq/studyhall/internal/storage"
	"github.com/studyhall-hq/studyhall/internal/testutil"
)

// testEnv is one end-to-end stack: postgres and RustFS in containers, the
// API server wired as in production but with a deterministic embedder in
// place of OpenAI, and optionally the compiled CLI binaries.
type testEnv struct {
	Ctx          context.Context
	Pool         *pgxpool.Pool
	ServiceToken string
	TenantID     string
	TenantToken  string

	t       *testing.T
	baseURL string
	client  *http.Client
	pg      *testutil.PostgresContainer
	rustfs  *testutil.RustFSContainer
	stopAPI func()
	binDir  string
}

// SetupE2EEnv boots the full stack and returns it ready for requests.
func SetupE2EEnv(t *testing.T) *testEnv {
	ctx := context.Background()

	pg := testutil.NewPostgresContainer(ctx, t)
	rustfs := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pg, "../../migrations")

	s3c, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        rustfs.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-documents",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("s3 client: %v", err)
	}
	if err := s3c.EnsureBucket(ctx); err != nil {
		t.Fatalf("ensure bucket: %v", err)
	}

	srv, serviceToken := startAPI(t, pool, s3c)

	return &testEnv{
		Ctx:          ctx,
		Pool:         pool,
		ServiceToken: serviceToken,
		t:            t,
		baseURL:      srv.URL,
		client:       &http.Client{Timeout: 30 * time.Second},
		pg:           pg,
		rustfs:       rustfs,
		stopAPI:      srv.Close,
	}
}

// startAPI assembles the router the same way the serve command does and
// exposes it on an ephemeral port. It returns the server and a bootstrap
// service token minted before any requests arrive.
func startAPI(t *testing.T, pool *pgxpool.Pool, s3c *storage.S3Client) (*httptest.Server, string) {
	tenants := repository.NewTenantRepository(pool)
	keys := repository.NewAPIKeyRepository(pool)
	chunks := repository.NewDocumentChunkRepository(pool)
	searches := repository.NewSearchRepository(pool)
	searchLogs := repository.NewSearchLogRepository(pool)
	attendance := repository.NewAttendanceRepository(pool)

	uuidGen := &service.DefaultUUIDGenerator{}
	auth := service.NewAuthService(tenants, keys, uuidGen)

	serviceToken, err := auth.CreateServiceKey(context.Background(), "e2e-bootstrap")
	if err != nil {
		t.Fatalf("create bootstrap service key: %v", err)
	}

	embedder := &stubEmbedder{}
	ingestion := service.NewIngestionServiceWithConfig(
		chunks, tenants, s3c, &textExtractor{}, embedder,
		repository.NewTxRunner(pool), service.IngestionConfig{}, uuidGen,
	)

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:     auth,
		SearchHandler:     handlers.NewSearchHandler(service.NewSearchServiceWithLog(searches, tenants, embedder, searchLogs)),
		DocumentHandler:   handlers.NewDocumentHandler(service.NewDocumentService(chunks, tenants, s3c), ingestion),
		TenantHandler:     handlers.NewTenantHandler(service.NewTenantService(tenants)),
		AttendanceHandler: handlers.NewAttendanceHandler(service.NewAttendanceService(attendance, tenants)),
		APIKeyHandler:     handlers.NewAPIKeyHandler(auth),
		DB:                pool,
	})

	return httptest.NewServer(router), serviceToken
}

// Cleanup tears the stack down in reverse order of construction.
func (e *testEnv) Cleanup() {
	if e.stopAPI != nil {
		e.stopAPI()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.rustfs != nil {
		e.rustfs.Terminate(e.Ctx)
	}
	if e.pg != nil {
		e.pg.Terminate(e.Ctx)
	}
	if e.binDir != "" {
		os.RemoveAll(e.binDir)
	}
}

// Bootstrap registers a tenant and mints a key for it, so tests can issue
// tenant-scoped requests right away.
func (e *testEnv) Bootstrap() {
	resp, err := e.Post("/api/v1/tenants/sync", map[string]string{
		"external_identity": "auth0|e2e-user",
		"email":             "e2e@example.com",
	}, e.ServiceToken)
	if err != nil {
		e.t.Fatalf("sync tenant: %v", err)
	}
	var sync struct {
		Tenant struct {
			ID string `json:"id"`
		} `json:"tenant"`
	}
	if err := json.Unmarshal(resp.Data, &sync); err != nil {
		e.t.Fatalf("decode sync response: %v", err)
	}
	e.TenantID = sync.Tenant.ID

	resp, err = e.Post("/api/v1/apikeys", map[string]string{
		"tenant_id": e.TenantID,
		"name":      "e2e-test-key",
	}, e.ServiceToken)
	if err != nil {
		e.t.Fatalf("create tenant key: %v", err)
	}
	var key struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Data, &key); err != nil {
		e.t.Fatalf("decode key response: %v", err)
	}
	e.TenantToken = key.Token
}

// BuildBinaries compiles the server and client binaries into a temp dir for
// the CLI round-trip tests.
func (e *testEnv) BuildBinaries() {
	dir, err := os.MkdirTemp("", "studyhall-e2e-*")
	if err != nil {
		e.t.Fatalf("temp dir: %v", err)
	}
	e.binDir = dir

	for _, name := range []string{"studyhalld", "studyhall"} {
		cmd := exec.Command("go", "build", "-o", filepath.Join(dir, name), "./cmd/"+name)
		cmd.Dir = "../.."
		if out, err := cmd.CombinedOutput(); err != nil {
			e.t.Fatalf("go build %s: %v\n%s", name, err, out)
		}
	}
}

// RunStudyhall invokes the client binary with the tenant credentials in its
// environment and returns the combined output.
func (e *testEnv) RunStudyhall(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.binDir, "studyhall"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		"STUDYHALL_API_KEY="+e.TenantToken,
		"STUDYHALL_API_URL="+e.baseURL,
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse is the decoded envelope returned by the server.
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (e *testEnv) Get(path, token string) (*APIResponse, error) {
	return e.do(http.MethodGet, path, nil, token)
}

func (e *testEnv) Post(path string, body any, token string) (*APIResponse, error) {
	return e.do(http.MethodPost, path, body, token)
}

func (e *testEnv) Delete(path, token string) (*APIResponse, error) {
	return e.do(http.MethodDelete, path, nil, token)
}

func (e *testEnv) do(method, path string, body any, token string) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return e.send(req, token)
}

// PostMultipart uploads a file through a multipart/form-data endpoint.
func (e *testEnv) PostMultipart(path, fileName string, content []byte, fields map[string]string, token string) (*APIResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, e.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return e.send(req, token)
}

// send runs the request and decodes the envelope. Error statuses come back
// as Go errors carrying the status code and the server's message, which is
// what the tests assert against.
func (e *testEnv) send(req *http.Request, token string) (*APIResponse, error) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var envelope APIResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, raw)
		}
		return nil, err
	}
	if resp.StatusCode >= 400 {
		if envelope.Error != nil {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, envelope.Error.Message)
		}
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, raw)
	}
	return &envelope, nil
}

// DownloadFile fetches a presigned URL directly, bypassing the API.
func (e *testEnv) DownloadFile(url string) ([]byte, error) {
	resp, err := e.client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// SHA256Sum returns the hex digest of data.
func SHA256Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// stubEmbedder produces deterministic vectors without an OpenAI key. Every
// vector shares a dominant first component, so any two texts land above the
// default similarity threshold; per-word components rank overlapping texts
// higher than disjoint ones.
type stubEmbedder struct{}

func (s *stubEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, 1536)
	vec[0] = 1.0
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		idx := 1 + h.Sum32()%1535
		vec[idx] += 0.05
	}
	return vec, nil
}

// textExtractor exposes the extract package to the ingestion service.
type textExtractor struct{}

func (x *textExtractor) Text(data []byte, kind domain.FileKind) (string, error) {
	return extract.Text(data, kind)
}
