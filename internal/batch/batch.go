package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ektp-scanner/constants"
	"github.com/joseph-ayodele/ektp-scanner/internal/ktp"
)

// Source is one document to recognize; Name is used in logs and errors.
type Source interface {
	Name() string
	Bytes(ctx context.Context) ([]byte, error)
}

// Item is the per-document slot of a Batch. It is written only by the worker
// that owns its index.
type Item struct {
	Index       int
	Source      Source
	Status      constants.ItemStatus
	Document    ktp.Document
	Record      ktp.Record
	Report      ktp.Report
	Err         error
	OCRDuration time.Duration
}

// Batch is the explicit context of one run: its id and one Item per source,
// in selection order. Err holds the batch-level failure of the last Run.
type Batch struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Items     []*Item
	Err       error
}

// Summary counts items by outcome.
type Summary struct {
	Total   int
	Parsed  int
	Failed  int
	Skipped int
}

func New(sources ...Source) *Batch {
	b := &Batch{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Items:     make([]*Item, len(sources)),
	}
	for i, src := range sources {
		b.Items[i] = &Item{Index: i, Source: src, Status: constants.ItemStatusPending}
	}
	return b
}

// Failed reports whether the last Run ended in a batch-level failure. A failed
// batch yields no records even if some items were parsed before the abort.
func (b *Batch) Failed() bool { return b.Err != nil }

// Records returns the parsed records in input order; failed items are left out.
// A failed batch has no records.
func (b *Batch) Records() []ktp.Record {
	if b.Failed() {
		return nil
	}
	out := make([]ktp.Record, 0, len(b.Items))
	for _, it := range b.Items {
		if it.Status == constants.ItemStatusParsed {
			out = append(out, it.Record)
		}
	}
	return out
}

func (b *Batch) Summary() Summary {
	s := Summary{Total: len(b.Items)}
	for _, it := range b.Items {
		switch it.Status {
		case constants.ItemStatusParsed:
			s.Parsed++
		case constants.ItemStatusFailed:
			s.Failed++
		case constants.ItemStatusSkipped:
			s.Skipped++
		}
	}
	return s
}

func (b *Batch) reset() {
	b.Err = nil
	for _, it := range b.Items {
		it.Status = constants.ItemStatusPending
		it.Document = ktp.Document{}
		it.Record = ktp.Record{}
		it.Report = nil
		it.Err = nil
		it.OCRDuration = 0
	}
}

// DocumentError locates a failed document inside its batch.
type DocumentError struct {
	Index int
	Name  string
	Err   error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }
