package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/ektp-scanner/constants"
	"github.com/joseph-ayodele/ektp-scanner/internal/common"
	"github.com/joseph-ayodele/ektp-scanner/internal/ktp"
	"github.com/joseph-ayodele/ektp-scanner/internal/ocr"
)

// Aggregator fans a Batch out to the OCR collaborator and collects one Record
// per document, positionally.
type Aggregator struct {
	recognizer  ocr.Recognizer
	assembler   *ktp.Assembler
	logger      *slog.Logger
	concurrency int
	callTimeout time.Duration
	policy      string
	lang        string
}

type Option func(*Aggregator)

// WithConcurrency caps in-flight OCR calls; 0 issues every call at once.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n >= 0 {
			a.concurrency = n
		}
	}
}

// WithCallTimeout bounds each OCR call; 0 disables the bound.
func WithCallTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d >= 0 {
			a.callTimeout = d
		}
	}
}

// WithPolicy selects constants.PolicyFailAll or constants.PolicyPerDocument.
func WithPolicy(p string) Option {
	return func(a *Aggregator) {
		if p != "" {
			a.policy = p
		}
	}
}

func WithLanguage(lang string) Option {
	return func(a *Aggregator) {
		if lang != "" {
			a.lang = lang
		}
	}
}

func WithAssembler(asm *ktp.Assembler) Option {
	return func(a *Aggregator) {
		if asm != nil {
			a.assembler = asm
		}
	}
}

func NewAggregator(recognizer ocr.Recognizer, logger *slog.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Aggregator{
		recognizer:  recognizer,
		assembler:   ktp.NewAssembler(nil),
		logger:      logger,
		concurrency: 4,
		callTimeout: 3 * time.Minute,
		policy:      constants.PolicyFailAll,
		lang:        constants.LanguageIndonesian,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Run recognizes and parses every item of b.
//
// Under PolicyFailAll the first failure cancels in-flight calls and Run
// returns no records and a BATCH_FAILED error wrapping a *DocumentError.
// Under PolicyPerDocument every item carries its own outcome and Run returns
// the parsed records in input order.
func (a *Aggregator) Run(ctx context.Context, b *Batch) ([]ktp.Record, error) {
	if b == nil || len(b.Items) == 0 {
		return nil, fmt.Errorf("%w: empty batch", common.ErrInvalidInput)
	}
	if a.policy != constants.PolicyFailAll && a.policy != constants.PolicyPerDocument {
		return nil, fmt.Errorf("%w: unknown failure policy %q", common.ErrInvalidInput, a.policy)
	}
	b.reset()
	ctx = common.WithBatchID(ctx, b.ID.String())
	start := time.Now()
	a.logger.Info("batch started",
		"batch_id", b.ID.String(),
		"documents", len(b.Items),
		"concurrency", a.concurrency,
		"policy", a.policy,
	)

	var err error
	if a.policy == constants.PolicyFailAll {
		err = a.runFailAll(ctx, b)
	} else {
		err = a.runPerDocument(ctx, b)
	}

	sum := b.Summary()
	if err != nil {
		a.logger.Error("batch failed",
			"batch_id", b.ID.String(),
			"parsed", sum.Parsed,
			"failed", sum.Failed,
			"skipped", sum.Skipped,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		b.Err = common.NewAppError(common.CodeBatchFailed, "batch "+b.ID.String()+" failed", err)
		return nil, b.Err
	}
	a.logger.Info("batch completed",
		"batch_id", b.ID.String(),
		"parsed", sum.Parsed,
		"failed", sum.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return b.Records(), nil
}

func (a *Aggregator) limit() int {
	if a.concurrency == 0 {
		return -1
	}
	return a.concurrency
}

func (a *Aggregator) runFailAll(ctx context.Context, b *Batch) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limit())
	for _, it := range b.Items {
		g.Go(func() error { return a.process(gctx, it) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (a *Aggregator) runPerDocument(ctx context.Context, b *Batch) error {
	var g errgroup.Group
	g.SetLimit(a.limit())
	for _, it := range b.Items {
		g.Go(func() error {
			_ = a.process(ctx, it) // outcome stays on the item
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

// process fills it. The returned error is the item's *DocumentError; items
// abandoned because ctx was cancelled are SKIPPED and return nil.
func (a *Aggregator) process(ctx context.Context, it *Item) error {
	name := it.Source.Name()
	if err := ctx.Err(); err != nil {
		it.Status = constants.ItemStatusSkipped
		it.Err = err
		return nil
	}
	it.Status = constants.ItemStatusRunning

	fail := func(err error) error {
		de := &DocumentError{Index: it.Index, Name: name, Err: err}
		it.Status = constants.ItemStatusFailed
		it.Err = de
		a.logger.Error("document failed",
			"batch_id", common.BatchIDFromContext(ctx),
			"index", it.Index,
			"document", name,
			"error", err,
		)
		return de
	}

	image, err := it.Source.Bytes(ctx)
	if err != nil {
		return fail(fmt.Errorf("read image: %w", err))
	}

	callCtx, cancel := common.WithTimeout(common.WithDocument(ctx, name), a.callTimeout)
	started := time.Now()
	text, err := a.recognizer.Recognize(callCtx, image, a.lang)
	it.OCRDuration = time.Since(started)
	timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded)
	cancel()
	if err != nil {
		if !timedOut && ctx.Err() != nil {
			// aborted by the batch, not by this document
			it.Status = constants.ItemStatusSkipped
			it.Err = ctx.Err()
			return nil
		}
		if timedOut && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s: %w", context.DeadlineExceeded, a.callTimeout, err)
		}
		if !ocr.IsRecognitionError(err) {
			err = &ocr.RecognitionError{Engine: "collaborator", Err: err}
		}
		return fail(err)
	}

	doc := ktp.Tokenize(text)
	rec, report := a.assembler.AssembleWithReport(doc)
	it.Document = doc
	it.Record = rec
	it.Report = report
	it.Status = constants.ItemStatusParsed
	a.logger.Info("document parsed",
		"batch_id", common.BatchIDFromContext(ctx),
		"index", it.Index,
		"document", name,
		"lines", doc.Len(),
		"missed_fields", len(report.Missed()),
		"fallback_fields", len(report.Fallbacks()),
		"duration_ms", it.OCRDuration.Milliseconds(),
	)
	return nil
}
