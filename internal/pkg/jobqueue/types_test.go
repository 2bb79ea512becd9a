package jobqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCsvImportJobPayloadRoundTrip(t *testing.T) {
	payload := CsvImportJobPayload{
		ImportJobID: "job-1",
		SourceKind:  SourceKindLocal,
		SourcePath:  "/tmp/catalogfox-uploads/job-1.csv",
		FileName:    "products.csv",
	}

	got, err := CsvImportJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, payload, *got)
}

func TestCsvImportJobPayloadFromMapIgnoresUnknownKeys(t *testing.T) {
	got, err := CsvImportJobPayloadFromMap(map[string]interface{}{
		"import_job_id": "job-2",
		"source_kind":   SourceKindS3,
		"source_path":   "imports/products.csv",
		"file_name":     "products.csv",
		"legacy_field":  true,
	})
	require.NoError(t, err)
	assert.Equal(t, "job-2", got.ImportJobID)
	assert.Equal(t, SourceKindS3, got.SourceKind)
}

func TestJobLifecycleTransitions(t *testing.T) {
	job := &Job{
		ID:         "queue-job-1",
		Type:       JobTypeCsvImport,
		Status:     JobStatusPending,
		MaxRetries: 3,
	}

	assert.True(t, job.IsRetryable())

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("boom")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "boom", job.ErrorMsg)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Empty(t, job.ErrorMsg)
	require.NotNil(t, job.CompletedAt)
}

func TestJobRetryExhaustion(t *testing.T) {
	job := &Job{Status: JobStatusPending, MaxRetries: 2}

	job.MarkAsFailed("first")
	assert.True(t, job.IsRetryable())
	job.MarkAsFailed("second")
	assert.False(t, job.IsRetryable())
}
