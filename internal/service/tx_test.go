package service

import "context"

// testTxRepos satisfies TxRepositories with whatever mocks a test supplies.
type testTxRepos struct {
	chunks        ChunkRepositoryInterface
	embeddingJobs EmbeddingJobRepositoryInterface
}

func (t *testTxRepos) Chunks() ChunkRepositoryInterface { return t.chunks }

func (t *testTxRepos) EmbeddingJobs() EmbeddingJobRepositoryInterface { return t.embeddingJobs }

// testTxRunner runs the callback without a real transaction and records
// that it was asked to.
type testTxRunner struct {
	repos  TxRepositories
	called bool
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called = true
	return fn(t.repos)
}
