package service

import "context"

// TxRepositories exposes the repositories bound to one open transaction.
// Ingestion uses it to commit chunk rows and their retry jobs atomically.
type TxRepositories interface {
	Chunks() ChunkRepositoryInterface
	EmbeddingJobs() EmbeddingJobRepositoryInterface
}

// TxRunner runs fn inside a transaction, committing when it returns nil
// and rolling back otherwise.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
