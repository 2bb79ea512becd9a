package csvimport

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CatalogFox/app/models"
	"github.com/ManuelReschke/CatalogFox/internal/pkg/cache"
)

// Snapshot is the progress view published after every chunk commit and on
// each state transition. It mirrors what pollers read from the job record.
type Snapshot struct {
	JobID         string `json:"job_id"`
	Status        string `json:"status"`
	TotalRows     int64  `json:"total_rows"`
	ProcessedRows int64  `json:"processed_rows"`
	CreatedCount  int64  `json:"created_count"`
	UpdatedCount  int64  `json:"updated_count"`
	RejectedCount int64  `json:"rejected_count"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// SnapshotFromJob builds a progress snapshot from a job record.
func SnapshotFromJob(job models.ImportJob) Snapshot {
	return Snapshot{
		JobID:         job.ID,
		Status:        job.Status,
		TotalRows:     job.TotalRows,
		ProcessedRows: job.ProcessedRows,
		CreatedCount:  job.CreatedCount,
		UpdatedCount:  job.UpdatedCount,
		RejectedCount: job.RejectedCount,
		ErrorMessage:  job.ErrorMessage,
	}
}

// ProgressPublisher pushes snapshots to live observers. Publishing is
// best-effort: a failed publish never interrupts the import.
type ProgressPublisher interface {
	Publish(snapshot Snapshot)
}

// ProgressChannel returns the pub/sub channel carrying snapshots for a job.
func ProgressChannel(jobID string) string {
	return "import:" + jobID
}

// RedisProgressPublisher publishes snapshots to the job's Redis channel for
// the SSE stream endpoint.
type RedisProgressPublisher struct{}

func NewRedisProgressPublisher() *RedisProgressPublisher {
	return &RedisProgressPublisher{}
}

func (p *RedisProgressPublisher) Publish(snapshot Snapshot) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		log.Errorf("[Import] Failed to marshal progress snapshot for job %s: %v", snapshot.JobID, err)
		return
	}
	if err := cache.Publish(ProgressChannel(snapshot.JobID), payload); err != nil {
		log.Errorf("[Import] Failed to publish progress for job %s: %v", snapshot.JobID, err)
	}
}

// NopProgressPublisher drops all snapshots.
type NopProgressPublisher struct{}

func (NopProgressPublisher) Publish(Snapshot) {}
