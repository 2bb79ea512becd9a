package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ManuelReschke/CatalogFox/internal/pkg/csvimport"
	"github.com/ManuelReschke/CatalogFox/internal/pkg/env"
)

// UploadDir returns the directory uploaded CSV files are staged in.
func UploadDir() string {
	return env.GetEnv("UPLOAD_DIR", "/tmp/catalogfox-uploads")
}

// UploadPath returns the staging path for a job's uploaded file.
func UploadPath(jobID string) string {
	return filepath.Join(UploadDir(), jobID+".csv")
}

// LocalSource reads an uploaded CSV file from local disk. Local files are
// cheap to scan, so the source supports row pre-counting.
type LocalSource struct {
	Path string
}

// NewLocalSource creates a source for a file on local disk.
func NewLocalSource(path string) *LocalSource {
	return &LocalSource{Path: path}
}

func (s *LocalSource) Open(ctx context.Context) (io.ReadCloser, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.Path, err)
	}
	return file, nil
}

// CountRows scans the file once and returns its number of data rows.
func (s *LocalSource) CountRows(ctx context.Context) (int64, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", s.Path, err)
	}
	defer file.Close()

	return csvimport.CountRows(file)
}

// Remove deletes the staged file. Called after the import reaches a
// terminal state.
func (s *LocalSource) Remove() error {
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
