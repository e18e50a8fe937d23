package admin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/studyhall-hq/studyhall/internal/config"
	"github.com/studyhall-hq/studyhall/internal/domain"
	"github.com/studyhall-hq/studyhall/internal/openai"
	"github.com/studyhall-hq/studyhall/internal/repository"
	"github.com/studyhall-hq/studyhall/internal/service"
	"github.com/studyhall-hq/studyhall/internal/storage"
)

func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a global document",
		Long:  "Upload and embed a document visible to every tenant, optionally restricted to a course",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}

	cmd.Flags().StringP("course", "c", "", "Restrict the document to a course tag")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	filePath := args[0]
	courseFlag, _ := cmd.Flags().GetString("course")
	outputFormat, _ := cmd.Flags().GetString("output")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasS3() {
		return fmt.Errorf("ingestion requires object storage: S3_ENDPOINT, S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY")
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("ingestion requires an embedding provider: OPENAI_API_KEY")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}

	embeddingClient := openai.NewClientWithConfig(openai.Config{
		APIKey:         cfg.OpenAIAPIKey,
		EmbeddingModel: openai.EmbeddingModelFromName(cfg.EmbeddingModel),
	})

	ingestionSvc := service.NewIngestionServiceWithConfig(
		repository.NewDocumentChunkRepository(pool),
		repository.NewTenantRepository(pool),
		s3Client,
		&TextExtractorAdapter{},
		embeddingClient,
		repository.NewTxRunner(pool),
		service.IngestionConfig{MaxUploadBytes: cfg.MaxUploadBytes},
		&service.DefaultUUIDGenerator{},
	)

	input := service.IngestInput{
		FileName: filepath.Base(filePath),
		Data:     data,
	}
	if courseFlag != "" {
		input.Course = &courseFlag
	}

	report, err := ingestionSvc.Ingest(ctx, domain.ServiceIdentity(), input)
	var partial *domain.PartialIngestionError
	if err != nil && !errors.As(err, &partial) {
		return fmt.Errorf("failed to ingest document: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]any{
			"storage_path": report.StoragePath,
			"file_name":    report.FileName,
			"total_chunks": report.TotalChunks,
			"committed":    report.Committed,
			"queued":       report.Queued,
		}
		if partial != nil {
			data["failed_indexes"] = partial.FailedIndexes()
		}
		return printJSON(data)
	}

	fmt.Printf("Document ingested: %s\n", report.StoragePath)
	fmt.Printf("Chunks: %d total, %d embedded, %d queued for retry\n",
		report.TotalChunks, report.Committed, report.Queued)
	if partial != nil {
		fmt.Printf("Warning: chunks %v failed to embed and will be retried by the server worker\n",
			partial.FailedIndexes())
	}

	return nil
}
