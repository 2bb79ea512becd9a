package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/CatalogFox/app/models"
)

// productRepository implements the ProductRepository interface
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository instance
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(product *models.Product) error {
	product.NormalizedSKU = models.NormalizeSKU(product.SKU)
	return r.db.Create(product).Error
}

func (r *productRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.First(&product, id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) GetByNormalizedSKU(normalizedSKU string) (*models.Product, error) {
	var product models.Product
	err := r.db.Where("normalized_sku = ?", normalizedSKU).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) Update(product *models.Product) error {
	product.NormalizedSKU = models.NormalizeSKU(product.SKU)
	return r.db.Save(product).Error
}

func (r *productRepository) Delete(id uint) error {
	return r.db.Delete(&models.Product{}, id).Error
}

func (r *productRepository) DeleteAll() (int64, error) {
	tx := r.db.Where("1 = 1").Delete(&models.Product{})
	return tx.RowsAffected, tx.Error
}

func (r *productRepository) applyFilter(filter ProductFilter) *gorm.DB {
	query := r.db.Model(&models.Product{})
	if filter.SKU != "" {
		query = query.Where("normalized_sku = ?", models.NormalizeSKU(filter.SKU))
	}
	if filter.Name != "" {
		query = query.Where("name LIKE ?", "%"+filter.Name+"%")
	}
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}
	if filter.Search != "" {
		term := "%" + filter.Search + "%"
		query = query.Where("sku LIKE ? OR name LIKE ?", term, term)
	}
	return query
}

func (r *productRepository) List(filter ProductFilter, offset, limit int) ([]models.Product, error) {
	var products []models.Product
	err := r.applyFilter(filter).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&products).Error
	return products, err
}

func (r *productRepository) Count(filter ProductFilter) (int64, error) {
	var count int64
	err := r.applyFilter(filter).Count(&count).Error
	return count, err
}

// UpsertBatch applies one chunk in a single transaction. The chunk is split
// into runs with distinct normalized SKUs (a run ends when a key repeats),
// and each run is written with one INSERT ... ON DUPLICATE KEY UPDATE keyed
// on the normalized SKU, so a duplicate key later in the chunk updates the
// row the earlier occurrence wrote. Created/updated counts come from a key
// lookup inside the same transaction.
func (r *productRepository) UpsertBatch(products []models.Product) (UpsertResult, error) {
	var result UpsertResult
	if len(products) == 0 {
		return result, nil
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		for _, run := range splitDistinctRuns(products) {
			keys := make([]string, 0, len(run))
			for i := range run {
				keys = append(keys, run[i].NormalizedSKU)
			}

			var existing []string
			if err := tx.Model(&models.Product{}).
				Where("normalized_sku IN ?", keys).
				Pluck("normalized_sku", &existing).Error; err != nil {
				return err
			}
			existingSet := make(map[string]struct{}, len(existing))
			for _, key := range existing {
				existingSet[key] = struct{}{}
			}

			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "normalized_sku"},
				},
				DoUpdates: clause.AssignmentColumns([]string{
					"sku",
					"name",
					"description",
					"active",
					"updated_at",
				}),
			}).Create(&run).Error; err != nil {
				return err
			}

			for i := range run {
				if _, ok := existingSet[run[i].NormalizedSKU]; ok {
					result.Updated++
					result.UpdatedSKUs = append(result.UpdatedSKUs, run[i].SKU)
				} else {
					result.Created++
					result.CreatedSKUs = append(result.CreatedSKUs, run[i].SKU)
				}
			}
		}
		return nil
	})
	if err != nil {
		return UpsertResult{}, err
	}

	return result, nil
}

// splitDistinctRuns cuts the chunk into consecutive sub-slices whose
// normalized SKUs are pairwise distinct, preserving input order.
func splitDistinctRuns(products []models.Product) [][]models.Product {
	var runs [][]models.Product
	seen := make(map[string]struct{}, len(products))
	start := 0
	for i := range products {
		if _, dup := seen[products[i].NormalizedSKU]; dup {
			runs = append(runs, products[start:i])
			seen = make(map[string]struct{})
			start = i
		}
		seen[products[i].NormalizedSKU] = struct{}{}
	}
	if start < len(products) {
		runs = append(runs, products[start:])
	}
	return runs
}
