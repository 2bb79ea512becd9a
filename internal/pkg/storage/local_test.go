package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadPathUsesConfiguredDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("UPLOAD_DIR", dir)

	got := UploadPath("job-1")
	assert.Equal(t, filepath.Join(dir, "job-1.csv"), got)
}

func TestLocalSourceOpenAndCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staged.csv")
	content := "sku,name\nA-1,Widget\nB-2,Gadget\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	source := NewLocalSource(path)

	count, err := source.CountRows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	stream, err := source.Open(context.Background())
	require.NoError(t, err)
	defer stream.Close()

	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestLocalSourceRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staged.csv")
	require.NoError(t, os.WriteFile(path, []byte("sku,name\n"), 0o644))

	source := NewLocalSource(path)
	require.NoError(t, source.Remove())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// removing twice is harmless
	assert.NoError(t, source.Remove())
}

func TestLocalSourceOpenMissingFile(t *testing.T) {
	source := NewLocalSource(filepath.Join(t.TempDir(), "nope.csv"))

	_, err := source.Open(context.Background())
	assert.Error(t, err)
}
