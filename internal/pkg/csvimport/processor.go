package csvimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CatalogFox/app/models"
	"github.com/ManuelReschke/CatalogFox/app/repository"
)

const (
	DefaultBatchSize     = 1000
	DefaultRetryAttempts = 3
	DefaultRetryBackoff  = time.Second
)

// Source supplies the raw CSV byte stream to the processor.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// RowCountingSource is implemented by sources that can cheaply pre-count
// their data rows (e.g. local files). Sources that cannot leave total_rows
// unknown until the import finishes.
type RowCountingSource interface {
	CountRows(ctx context.Context) (int64, error)
}

// EventNotifier receives fire-and-forget lifecycle and catalog-mutation
// events. Implementations must never block the import loop beyond queueing.
type EventNotifier interface {
	Notify(eventType string, payload map[string]interface{})
}

// NopNotifier drops all events.
type NopNotifier struct{}

func (NopNotifier) Notify(string, map[string]interface{}) {}

// Config tunes the processor. Zero values fall back to defaults.
type Config struct {
	BatchSize     int
	RetryAttempts int
	RetryBackoff  time.Duration
}

// Processor drives one import job end to end: schema validation, streaming
// parse, chunked atomic upserts, progress tracking and event dispatch. It
// runs on a background worker, never on the request path.
type Processor struct {
	products repository.ProductRepository
	jobs     repository.ImportJobRepository
	events   EventNotifier
	progress ProgressPublisher
	cfg      Config
}

// NewProcessor creates an import processor.
func NewProcessor(products repository.ProductRepository, jobs repository.ImportJobRepository, events EventNotifier, progress ProgressPublisher, cfg Config) *Processor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = DefaultRetryAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if events == nil {
		events = NopNotifier{}
	}
	if progress == nil {
		progress = NopProgressPublisher{}
	}
	return &Processor{
		products: products,
		jobs:     jobs,
		events:   events,
		progress: progress,
		cfg:      cfg,
	}
}

// Run processes one job to a terminal state. It returns an error only when
// the job record itself could not be loaded; every processing failure is
// absorbed into the job's failed state instead of being surfaced to the
// caller.
func (p *Processor) Run(ctx context.Context, jobID string, source Source) error {
	tracker, err := NewTracker(p.jobs, jobID)
	if err != nil {
		return err
	}
	if job := tracker.Job(); job.IsTerminal() {
		log.Warnf("[Import] Job %s already terminal (%s), skipping", jobID, job.Status)
		return nil
	}

	started := false
	markStarted := func() error {
		if started {
			return nil
		}
		if err := tracker.MarkProcessing(); err != nil {
			return err
		}
		started = true
		job := tracker.Job()
		p.events.Notify(models.EventImportStarted, map[string]interface{}{
			"job_id":    job.ID,
			"file_name": job.FileName,
		})
		p.progress.Publish(SnapshotFromJob(job))
		return nil
	}

	if counter, ok := source.(RowCountingSource); ok {
		total, err := counter.CountRows(ctx)
		if err != nil {
			p.fail(tracker, fmt.Sprintf("unable to read import source: %v", err))
			return nil
		}
		if err := tracker.SetTotalRows(total); err != nil {
			p.fail(tracker, fmt.Sprintf("failed to record row count: %v", err))
			return nil
		}
		if err := markStarted(); err != nil {
			p.fail(tracker, fmt.Sprintf("failed to mark job as processing: %v", err))
			return nil
		}
	}

	stream, err := source.Open(ctx)
	if err != nil {
		p.fail(tracker, fmt.Sprintf("unable to open import source: %v", err))
		return nil
	}
	defer stream.Close()

	parser, err := NewParser(stream)
	if err != nil {
		p.fail(tracker, err.Error())
		return nil
	}

	chunk := make([]models.Product, 0, p.cfg.BatchSize)
	var pendingProcessed, pendingRejected int64

	flush := func() error {
		if len(chunk) == 0 {
			if pendingProcessed == 0 {
				return nil
			}
			if err := tracker.Advance(pendingProcessed, 0, 0, pendingRejected); err != nil {
				return err
			}
			pendingProcessed, pendingRejected = 0, 0
			p.progress.Publish(SnapshotFromJob(tracker.Job()))
			return nil
		}

		result, err := p.applyChunkWithRetry(ctx, chunk)
		if err != nil {
			return err
		}
		if err := markStarted(); err != nil {
			return err
		}
		if err := tracker.Advance(pendingProcessed, result.Created, result.Updated, pendingRejected); err != nil {
			return err
		}
		pendingProcessed, pendingRejected = 0, 0
		chunk = chunk[:0]

		job := tracker.Job()
		p.progress.Publish(SnapshotFromJob(job))
		p.notifyMutations(job.ID, result)
		return nil
	}

	for {
		record, err := parser.Next()
		if err == io.EOF {
			break
		}
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			log.Debugf("[Import] Job %s: %v", jobID, rowErr)
			pendingProcessed++
			pendingRejected++
			continue
		}
		if err != nil {
			p.fail(tracker, fmt.Sprintf("unable to read import source: %v", err))
			return nil
		}

		pendingProcessed++
		chunk = append(chunk, models.Product{
			SKU:           record.SKU,
			NormalizedSKU: record.NormalizedSKU,
			Name:          record.Name,
			Description:   record.Description,
			Active:        true,
		})

		if len(chunk) >= p.cfg.BatchSize {
			if err := flush(); err != nil {
				p.fail(tracker, err.Error())
				return nil
			}
		}
	}

	if err := flush(); err != nil {
		p.fail(tracker, err.Error())
		return nil
	}

	// A job whose rows were all rejected still went through processing.
	if err := markStarted(); err != nil {
		p.fail(tracker, fmt.Sprintf("failed to mark job as processing: %v", err))
		return nil
	}

	if err := tracker.Complete(); err != nil {
		p.fail(tracker, fmt.Sprintf("failed to complete job: %v", err))
		return nil
	}

	job := tracker.Job()
	p.progress.Publish(SnapshotFromJob(job))
	p.events.Notify(models.EventImportCompleted, map[string]interface{}{
		"job_id":     job.ID,
		"file_name":  job.FileName,
		"total_rows": job.TotalRows,
		"created":    job.CreatedCount,
		"updated":    job.UpdatedCount,
		"rejected":   job.RejectedCount,
	})
	log.Infof("[Import] Job %s completed: %d rows, %d created, %d updated, %d rejected",
		job.ID, job.TotalRows, job.CreatedCount, job.UpdatedCount, job.RejectedCount)
	return nil
}

// FailJob moves a job straight to its failed terminal state without running
// it, for imports that cannot even start (e.g. the source reference cannot
// be resolved). Terminal jobs are left untouched.
func (p *Processor) FailJob(jobID, reason string) error {
	tracker, err := NewTracker(p.jobs, jobID)
	if err != nil {
		return err
	}
	if job := tracker.Job(); job.IsTerminal() {
		return nil
	}
	p.fail(tracker, reason)
	return nil
}

// applyChunkWithRetry commits one chunk, retrying transient store failures
// with linear backoff before escalating to a job-level failure.
func (p *Processor) applyChunkWithRetry(ctx context.Context, chunk []models.Product) (repository.UpsertResult, error) {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.RetryAttempts; attempt++ {
		result, err := p.products.UpsertBatch(chunk)
		if err == nil {
			return result, nil
		}
		lastErr = err
		log.Warnf("[Import] Chunk commit failed (attempt %d/%d): %v", attempt, p.cfg.RetryAttempts, err)

		if attempt < p.cfg.RetryAttempts {
			backoff := time.Duration(attempt) * p.cfg.RetryBackoff
			select {
			case <-ctx.Done():
				return repository.UpsertResult{}, fmt.Errorf("chunk commit aborted: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}
	}
	return repository.UpsertResult{}, fmt.Errorf("chunk commit failed after %d attempts: %v", p.cfg.RetryAttempts, lastErr)
}

// notifyMutations dispatches one aggregated notification per chunk and
// event type, naming every affected entity.
func (p *Processor) notifyMutations(jobID string, result repository.UpsertResult) {
	if len(result.CreatedSKUs) > 0 {
		p.events.Notify(models.EventProductCreated, map[string]interface{}{
			"job_id": jobID,
			"count":  result.Created,
			"skus":   result.CreatedSKUs,
		})
	}
	if len(result.UpdatedSKUs) > 0 {
		p.events.Notify(models.EventProductUpdated, map[string]interface{}{
			"job_id": jobID,
			"count":  result.Updated,
			"skus":   result.UpdatedSKUs,
		})
	}
}

// fail moves the job to its failed terminal state and announces it. Progress
// committed so far stays visible.
func (p *Processor) fail(tracker *Tracker, reason string) {
	if err := tracker.Fail(reason); err != nil {
		if !errors.Is(err, ErrJobTerminal) {
			log.Errorf("[Import] Failed to mark job %s as failed: %v", tracker.Job().ID, err)
		}
		return
	}
	job := tracker.Job()
	log.Errorf("[Import] Job %s failed: %s", job.ID, reason)
	p.progress.Publish(SnapshotFromJob(job))
	p.events.Notify(models.EventImportFailed, map[string]interface{}{
		"job_id": job.ID,
		"error":  reason,
	})
}
