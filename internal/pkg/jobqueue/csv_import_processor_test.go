package jobqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CatalogFox/internal/pkg/storage"
)

func TestBuildSourceLocal(t *testing.T) {
	payload := &CsvImportJobPayload{
		ImportJobID: "job-1",
		SourceKind:  SourceKindLocal,
		SourcePath:  "/tmp/catalogfox-uploads/job-1.csv",
	}

	source, cleanup, err := buildSource(payload)
	require.NoError(t, err)
	require.NotNil(t, cleanup)
	local, ok := source.(*storage.LocalSource)
	require.True(t, ok)
	assert.Equal(t, payload.SourcePath, local.Path)
}

func TestBuildSourceDefaultsToLocal(t *testing.T) {
	payload := &CsvImportJobPayload{
		ImportJobID: "job-1",
		SourcePath:  "/tmp/catalogfox-uploads/job-1.csv",
	}

	source, cleanup, err := buildSource(payload)
	require.NoError(t, err)
	assert.NotNil(t, cleanup)
	assert.IsType(t, &storage.LocalSource{}, source)
}

func TestBuildSourceS3Disabled(t *testing.T) {
	t.Setenv("S3_IMPORT_ENABLED", "false")

	payload := &CsvImportJobPayload{
		ImportJobID: "job-1",
		SourceKind:  SourceKindS3,
		SourcePath:  "imports/products.csv",
	}

	_, _, err := buildSource(payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestBuildSourceUnknownKind(t *testing.T) {
	payload := &CsvImportJobPayload{
		ImportJobID: "job-1",
		SourceKind:  "ftp",
		SourcePath:  "products.csv",
	}

	_, _, err := buildSource(payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source kind")
}
