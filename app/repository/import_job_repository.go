package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/CatalogFox/app/models"
)

// importJobRepository implements the ImportJobRepository interface
type importJobRepository struct {
	db *gorm.DB
}

// NewImportJobRepository creates a new import job repository instance
func NewImportJobRepository(db *gorm.DB) ImportJobRepository {
	return &importJobRepository{db: db}
}

func (r *importJobRepository) Create(job *models.ImportJob) error {
	return r.db.Create(job).Error
}

func (r *importJobRepository) GetByID(id string) (*models.ImportJob, error) {
	var job models.ImportJob
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *importJobRepository) Update(job *models.ImportJob) error {
	return r.db.Save(job).Error
}

// DeleteTerminalOlderThan removes completed and failed jobs whose last
// update is older than the given number of days.
func (r *importJobRepository) DeleteTerminalOlderThan(cutoffDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -cutoffDays)
	tx := r.db.Where("status IN ? AND updated_at < ?",
		[]string{models.ImportJobStatusCompleted, models.ImportJobStatusFailed}, cutoff).
		Delete(&models.ImportJob{})
	return tx.RowsAffected, tx.Error
}
