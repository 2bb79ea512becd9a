package repository

import (
	"gorm.io/gorm"

	"github.com/ManuelReschke/CatalogFox/app/models"
)

// ProductFilter narrows product listings.
type ProductFilter struct {
	SKU    string // exact match, case-insensitive
	Name   string // partial match
	Search string // partial match on SKU or name
	Active *bool
}

// UpsertResult reports what one atomic batch application did. The SKU
// slices carry the winning casing of every affected entity so event
// notifications can name them.
type UpsertResult struct {
	Created     int64
	Updated     int64
	CreatedSKUs []string
	UpdatedSKUs []string
}

// ProductRepository defines the interface for product-related database operations
type ProductRepository interface {
	Create(product *models.Product) error
	GetByID(id uint) (*models.Product, error)
	GetByNormalizedSKU(normalizedSKU string) (*models.Product, error)
	Update(product *models.Product) error
	Delete(id uint) error
	DeleteAll() (int64, error)
	List(filter ProductFilter, offset, limit int) ([]models.Product, error)
	Count(filter ProductFilter) (int64, error)
	// UpsertBatch applies a chunk of products in one transaction: rows whose
	// normalized SKU already exists update name, description and SKU casing,
	// the rest are inserted with active=true. The chunk fully commits or
	// fully fails. Rows arrive in input order; when two rows in the chunk
	// share a normalized SKU the later one wins.
	UpsertBatch(products []models.Product) (UpsertResult, error)
}

// ImportJobRepository defines the interface for import job persistence
type ImportJobRepository interface {
	Create(job *models.ImportJob) error
	GetByID(id string) (*models.ImportJob, error)
	Update(job *models.ImportJob) error
	DeleteTerminalOlderThan(cutoffDays int) (int64, error)
}

// WebhookRepository defines the interface for webhook subscription storage
type WebhookRepository interface {
	Create(webhook *models.Webhook) error
	GetByID(id uint) (*models.Webhook, error)
	GetAll() ([]models.Webhook, error)
	GetEnabledByEventType(eventType string) ([]models.Webhook, error)
	Update(webhook *models.Webhook) error
	Delete(id uint) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	Product   ProductRepository
	ImportJob ImportJobRepository
	Webhook   WebhookRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Product:   NewProductRepository(db),
		ImportJob: NewImportJobRepository(db),
		Webhook:   NewWebhookRepository(db),
	}
}
