package csvimport

import (
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/CatalogFox/app/models"
	"github.com/ManuelReschke/CatalogFox/app/repository"
)

// ErrJobTerminal is returned when a mutation is attempted on a job that
// already reached completed or failed.
var ErrJobTerminal = errors.New("import job is in a terminal state")

// Tracker owns the lifecycle record of one import job. Exactly one tracker
// writes a given job (single-writer discipline); pollers read the persisted
// snapshot through the repository. Counters only move forward and terminal
// states are never left.
type Tracker struct {
	repo repository.ImportJobRepository
	job  *models.ImportJob
}

// NewTracker loads the job record and binds the tracker to it.
func NewTracker(repo repository.ImportJobRepository, jobID string) (*Tracker, error) {
	job, err := repo.GetByID(jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load import job %s: %w", jobID, err)
	}
	return &Tracker{repo: repo, job: job}, nil
}

// Job returns a copy of the current job snapshot.
func (t *Tracker) Job() models.ImportJob {
	return *t.job
}

// SetTotalRows records the pre-counted source size. It never shrinks an
// already known total.
func (t *Tracker) SetTotalRows(total int64) error {
	if t.job.IsTerminal() {
		return ErrJobTerminal
	}
	if total <= t.job.TotalRows {
		return nil
	}
	t.job.TotalRows = total
	return t.repo.Update(t.job)
}

// MarkProcessing transitions pending -> processing. Calling it again while
// processing is a no-op.
func (t *Tracker) MarkProcessing() error {
	if t.job.IsTerminal() {
		return ErrJobTerminal
	}
	if t.job.Status == models.ImportJobStatusProcessing {
		return nil
	}
	t.job.Status = models.ImportJobStatusProcessing
	return t.repo.Update(t.job)
}

// Advance moves the progress counters forward after a chunk commit. Deltas
// must be non-negative; negative values are ignored so no reader can ever
// observe a counter decreasing.
func (t *Tracker) Advance(processed, created, updated, rejected int64) error {
	if t.job.IsTerminal() {
		return ErrJobTerminal
	}
	if processed > 0 {
		t.job.ProcessedRows += processed
	}
	if created > 0 {
		t.job.CreatedCount += created
	}
	if updated > 0 {
		t.job.UpdatedCount += updated
	}
	if rejected > 0 {
		t.job.RejectedCount += rejected
	}
	return t.repo.Update(t.job)
}

// Complete transitions the job to its successful terminal state. A source
// that could not be pre-counted gets its total fixed to the processed count
// here.
func (t *Tracker) Complete() error {
	if t.job.IsTerminal() {
		return ErrJobTerminal
	}
	if t.job.TotalRows < t.job.ProcessedRows {
		t.job.TotalRows = t.job.ProcessedRows
	}
	now := time.Now()
	t.job.Status = models.ImportJobStatusCompleted
	t.job.CompletedAt = &now
	return t.repo.Update(t.job)
}

// Fail transitions the job to its failed terminal state with a
// human-readable cause. Partial progress is kept.
func (t *Tracker) Fail(reason string) error {
	if t.job.IsTerminal() {
		return ErrJobTerminal
	}
	now := time.Now()
	t.job.Status = models.ImportJobStatusFailed
	t.job.ErrorMessage = reason
	t.job.CompletedAt = &now
	return t.repo.Update(t.job)
}
