package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/studyhall-hq/studyhall/internal/api/handlers"
	"github.com/studyhall-hq/studyhall/internal/config"
	"github.com/studyhall-hq/studyhall/internal/database"
	"github.com/studyhall-hq/studyhall/internal/domain"
	"github.com/studyhall-hq/studyhall/internal/extract"
	"github.com/studyhall-hq/studyhall/internal/jobs"
	"github.com/studyhall-hq/studyhall/internal/openai"
	"github.com/studyhall-hq/studyhall/internal/repository"
	"github.com/studyhall-hq/studyhall/internal/server"
	"github.com/studyhall-hq/studyhall/internal/service"
	"github.com/studyhall-hq/studyhall/internal/storage"
	"github.com/studyhall-hq/studyhall/internal/telemetry"
)

// ServeCmd creates the serve command.
func ServeCmd() *cobra.Command {
	var (
		port      string
		noMigrate bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		Long:  "Run the studyhall API server until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port, noMigrate)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides STUDYHALL_PORT)")
	cmd.Flags().BoolVar(&noMigrate, "no-migrate", false, "do not apply pending migrations on startup")

	return cmd
}

func runServe(port string, noMigrate bool) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if port != "" {
		cfg.Port = port
	}

	if cfg.SentryDSN != "" {
		stopTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: cfg.TracesSampleRate(),
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer stopTelemetry()
		}
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("database ready")

	if !noMigrate {
		if err := applyMigrations(cfg.DatabaseURL); err != nil {
			return err
		}
	}

	deps, err := buildServices(ctx, cfg, pool)
	if err != nil {
		return err
	}

	if deps.worker != nil {
		go deps.worker.Start(ctx)
		log.Println("embedding retry worker running")
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.NewRouter(deps.router),
	}

	go func() {
		log.Printf("listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")

	if deps.worker != nil {
		deps.worker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// serverDeps is everything runServe assembles before it starts listening.
type serverDeps struct {
	router server.RouterConfig
	worker *jobs.Worker
}

// buildServices wires repositories into services and handlers. Pieces whose
// backing dependency is not configured are swapped for no-op implementations
// that explain what is missing, so a database-only deployment still serves
// search and tenant traffic.
func buildServices(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (*serverDeps, error) {
	tenants := repository.NewTenantRepository(pool)
	keys := repository.NewAPIKeyRepository(pool)
	chunks := repository.NewDocumentChunkRepository(pool)
	searches := repository.NewSearchRepository(pool)
	searchLogs := repository.NewSearchLogRepository(pool)
	embeddingJobs := repository.NewEmbeddingJobRepository(pool)
	attendance := repository.NewAttendanceRepository(pool)

	uuidGen := &service.DefaultUUIDGenerator{}
	auth := service.NewAuthService(tenants, keys, uuidGen)

	if err := bootstrapServiceKey(ctx, cfg, auth); err != nil {
		return nil, fmt.Errorf("failed to bootstrap service key: %w", err)
	}

	objectStore, err := openObjectStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var embedder service.EmbeddingServiceInterface = &NoOpEmbeddingClient{}
	var worker *jobs.Worker
	if cfg.HasOpenAI() {
		embedder = openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingModel:      openai.EmbeddingModelFromName(cfg.EmbeddingModel),
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			RequestsPerSecond:   cfg.EmbeddingRequestsPerSecond,
		})
		worker = jobs.NewWorker(
			jobs.NewEmbeddingWorker(embeddingJobs, service.NewEmbeddingService(embedder, chunks)),
			10*time.Second,
		)
	}

	var documents handlers.DocumentService = &NoOpDocumentService{}
	var ingestion handlers.IngestionService = &NoOpIngestionService{}
	if objectStore != nil {
		documents = service.NewDocumentService(chunks, tenants, objectStore)
		if cfg.HasOpenAI() {
			ingestion = service.NewIngestionServiceWithConfig(
				chunks, tenants, objectStore, &TextExtractorAdapter{}, embedder,
				repository.NewTxRunner(pool),
				service.IngestionConfig{MaxUploadBytes: cfg.MaxUploadBytes}, uuidGen,
			)
		}
	}

	return &serverDeps{
		router: server.RouterConfig{
			AuthValidator:     auth,
			SearchHandler:     handlers.NewSearchHandler(service.NewSearchServiceWithLog(searches, tenants, embedder, searchLogs)),
			DocumentHandler:   handlers.NewDocumentHandler(documents, ingestion),
			TenantHandler:     handlers.NewTenantHandler(service.NewTenantService(tenants)),
			AttendanceHandler: handlers.NewAttendanceHandler(service.NewAttendanceService(attendance, tenants)),
			APIKeyHandler:     handlers.NewAPIKeyHandler(auth),
			DB:                pool,
			// Headroom over the upload cap for multipart framing.
			MaxBodyBytes: cfg.MaxUploadBytes + 2*1024*1024,
		},
		worker: worker,
	}, nil
}

// openObjectStore connects to S3 when configured and makes sure the bucket
// exists. It returns nil without error when storage is not configured.
func openObjectStore(ctx context.Context, cfg *config.Config) (*storage.S3Client, error) {
	if !cfg.HasS3() {
		return nil, nil
	}

	s3c, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := s3c.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}

	log.Printf("object store ready (bucket %s)", cfg.S3Bucket)
	return s3c, nil
}

// TextExtractorAdapter exposes the extract package to the ingestion service.
type TextExtractorAdapter struct{}

func (a *TextExtractorAdapter) Text(data []byte, kind domain.FileKind) (string, error) {
	return extract.Text(data, kind)
}

type NoOpEmbeddingClient struct{}

func (s *NoOpEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedding provider not configured: OPENAI_API_KEY required")
}

type NoOpDocumentService struct{}

func (s *NoOpDocumentService) List(ctx context.Context, identity domain.Identity, input service.DocumentListInput) (*service.DocumentPageResult, error) {
	return nil, fmt.Errorf("document storage not configured: S3_ENDPOINT required")
}

func (s *NoOpDocumentService) Download(ctx context.Context, identity domain.Identity, storagePath string) (string, error) {
	return "", fmt.Errorf("document storage not configured: S3_ENDPOINT required")
}

func (s *NoOpDocumentService) Delete(ctx context.Context, identity domain.Identity, storagePath string) (int64, error) {
	return 0, fmt.Errorf("document storage not configured: S3_ENDPOINT required")
}

type NoOpIngestionService struct{}

func (s *NoOpIngestionService) Ingest(ctx context.Context, identity domain.Identity, input service.IngestInput) (*service.IngestReport, error) {
	return nil, fmt.Errorf("ingestion not configured: S3_ENDPOINT and OPENAI_API_KEY required")
}

// bootstrapServiceKey guarantees one service key exists so tenant keys can be
// minted. A fresh deployment either registers the token pinned in
// STUDYHALL_INIT_SERVICE_KEY or generates one and logs it a single time.
func bootstrapServiceKey(ctx context.Context, cfg *config.Config, authSvc *service.AuthService) error {
	count, err := authSvc.CountServiceKeys(ctx)
	if err != nil {
		return fmt.Errorf("failed to count service keys: %w", err)
	}
	if count > 0 {
		if cfg.InitServiceKey != "" {
			log.Println("bootstrap: service key already registered, ignoring STUDYHALL_INIT_SERVICE_KEY")
		}
		return nil
	}

	if cfg.InitServiceKey != "" {
		if !service.IsValidAPIToken(cfg.InitServiceKey) {
			return fmt.Errorf("invalid STUDYHALL_INIT_SERVICE_KEY format (expected 'shl_<64 hex chars>')")
		}
		if err := authSvc.CreateServiceKeyWithToken(ctx, "bootstrap", cfg.InitServiceKey); err != nil {
			return fmt.Errorf("failed to register service key: %w", err)
		}
		log.Println("bootstrap: registered service key from STUDYHALL_INIT_SERVICE_KEY")
		return nil
	}

	token, err := authSvc.CreateServiceKey(ctx, "bootstrap")
	if err != nil {
		return fmt.Errorf("failed to create service key: %w", err)
	}
	log.Printf("bootstrap: created service key %s (shown once, store it now)", token)
	return nil
}

// applyMigrations runs pending file migrations through golang-migrate. It
// opens its own database/sql connection because the migrate driver cannot
// share a pgx pool.
func applyMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	switch {
	case err == migrate.ErrNilVersion:
		log.Println("migrations: nothing to apply")
	case err != nil:
		return fmt.Errorf("failed to read migration version: %w", err)
	case dirty:
		return fmt.Errorf("migration version %d is dirty, manual intervention required", version)
	default:
		log.Printf("migrations: at version %d", version)
	}
	return nil
}
