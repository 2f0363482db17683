package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/ektp-scanner/internal/batch"
	"github.com/joseph-ayodele/ektp-scanner/internal/ktp"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one document to recognize as a batch of one.
type Job struct {
	Source      batch.Source
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// BatchRunner is satisfied by *batch.Aggregator.
type BatchRunner interface {
	Run(ctx context.Context, b *batch.Batch) ([]ktp.Record, error)
}

// Sink receives every finished job. runErr is the Run error, if any; the
// batch items carry the per-document outcome either way.
type Sink func(ctx context.Context, b *batch.Batch, runErr error)
