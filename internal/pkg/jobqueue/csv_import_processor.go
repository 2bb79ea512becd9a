package jobqueue

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CatalogFox/app/models"
	"github.com/ManuelReschke/CatalogFox/app/repository"
	"github.com/ManuelReschke/CatalogFox/internal/pkg/csvimport"
	"github.com/ManuelReschke/CatalogFox/internal/pkg/storage"
	"github.com/ManuelReschke/CatalogFox/internal/pkg/webhook"
)

// processCsvImportJob processes a CSV import job
func (q *Queue) processCsvImportJob(ctx context.Context, job *Job) error {
	payload, err := CsvImportJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("failed to parse CSV import job payload: %w", err)
	}

	log.Infof("[Import] Processing import job %s (file: %s)", payload.ImportJobID, payload.FileName)

	factory := repository.GetGlobalFactory()
	processor := csvimport.NewProcessor(
		factory.GetProductRepository(),
		factory.GetImportJobRepository(),
		webhook.GetDispatcher(),
		csvimport.NewRedisProgressPublisher(),
		csvimport.Config{},
	)

	source, cleanup, err := buildSource(payload)
	if err != nil {
		// Resolving the source reference is deterministic; retrying at the
		// queue level cannot fix it, so fail the import record right away.
		log.Errorf("[Import] Cannot resolve source for job %s: %v", payload.ImportJobID, err)
		if failErr := processor.FailJob(payload.ImportJobID, fmt.Sprintf("unable to prepare import source: %v", err)); failErr != nil {
			return fmt.Errorf("failed to mark import %s as failed: %w", payload.ImportJobID, failErr)
		}
		return nil
	}

	if err := processor.Run(ctx, payload.ImportJobID, source); err != nil {
		// The import job record could not be loaded; leave the staged file
		// in place and let the queue retry.
		return fmt.Errorf("failed to run import %s: %w", payload.ImportJobID, err)
	}

	// The import reached a terminal state (completed or failed); either way
	// the queue job is done and the staged file can go.
	if cleanup != nil {
		if err := cleanup(); err != nil {
			log.Warnf("[Import] Failed to clean up staged file for job %s: %v", payload.ImportJobID, err)
		}
	}

	if jobRecord, err := factory.GetImportJobRepository().GetByID(payload.ImportJobID); err == nil &&
		jobRecord.Status == models.ImportJobStatusFailed {
		log.Warnf("[Import] Job %s finished in failed state: %s", jobRecord.ID, jobRecord.ErrorMessage)
	}

	return nil
}

// buildSource resolves the payload's source reference to a stream provider.
func buildSource(payload *CsvImportJobPayload) (csvimport.Source, func() error, error) {
	switch payload.SourceKind {
	case SourceKindLocal, "":
		local := storage.NewLocalSource(payload.SourcePath)
		return local, local.Remove, nil
	case SourceKindS3:
		cfg, err := storage.LoadS3Config()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load S3 config: %w", err)
		}
		s3Source, err := storage.NewS3Source(cfg, payload.SourcePath)
		if err != nil {
			return nil, nil, err
		}
		return s3Source, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown source kind: %s", payload.SourceKind)
	}
}
