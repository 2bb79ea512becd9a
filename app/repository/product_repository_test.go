package repository

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CatalogFox/app/models"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func productsWithSKUs(skus ...string) []models.Product {
	out := make([]models.Product, 0, len(skus))
	for _, sku := range skus {
		out = append(out, models.Product{
			SKU:           sku,
			NormalizedSKU: models.NormalizeSKU(sku),
			Name:          "Product " + sku,
		})
	}
	return out
}

func runSKUs(runs [][]models.Product) [][]string {
	out := make([][]string, 0, len(runs))
	for _, run := range runs {
		skus := make([]string, 0, len(run))
		for i := range run {
			skus = append(skus, run[i].SKU)
		}
		out = append(out, skus)
	}
	return out
}

func TestSplitDistinctRuns(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  [][]string
	}{
		{
			name:  "no duplicates stays one run",
			input: []string{"A-1", "B-2", "C-3"},
			want:  [][]string{{"A-1", "B-2", "C-3"}},
		},
		{
			name:  "case-insensitive duplicate splits",
			input: []string{"A-1", "a-1"},
			want:  [][]string{{"A-1"}, {"a-1"}},
		},
		{
			name:  "duplicate mid-chunk",
			input: []string{"A-1", "B-2", "a-1", "C-3"},
			want:  [][]string{{"A-1", "B-2"}, {"a-1", "C-3"}},
		},
		{
			name:  "triple occurrence",
			input: []string{"A-1", "a-1", "A-1"},
			want:  [][]string{{"A-1"}, {"a-1"}, {"A-1"}},
		},
		{
			name:  "empty input",
			input: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitDistinctRuns(productsWithSKUs(tt.input...))
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, runSKUs(got))
		})
	}
}

func TestUpsertBatchCountsDuplicateKeyAcrossRuns(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := NewProductRepository(gormDB)

	// "A-1" and "a-1" share a normalized SKU, so the chunk splits into two
	// runs inside one transaction. The second run sees the key the first run
	// wrote and must count as an update.
	chunk := productsWithSKUs("A-1", "a-1")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT `normalized_sku` FROM `products`").
		WillReturnRows(sqlmock.NewRows([]string{"normalized_sku"}))
	mock.ExpectExec("INSERT INTO `products`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT `normalized_sku` FROM `products`").
		WillReturnRows(sqlmock.NewRows([]string{"normalized_sku"}).AddRow("a-1"))
	mock.ExpectExec("INSERT INTO `products`").
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectCommit()

	result, err := repo.UpsertBatch(chunk)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Created)
	assert.Equal(t, int64(1), result.Updated)
	assert.Equal(t, []string{"A-1"}, result.CreatedSKUs)
	assert.Equal(t, []string{"a-1"}, result.UpdatedSKUs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatchRollsBackWhenLaterRunFails(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := NewProductRepository(gormDB)

	chunk := productsWithSKUs("A-1", "a-1")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT `normalized_sku` FROM `products`").
		WillReturnRows(sqlmock.NewRows([]string{"normalized_sku"}))
	mock.ExpectExec("INSERT INTO `products`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT `normalized_sku` FROM `products`").
		WillReturnRows(sqlmock.NewRows([]string{"normalized_sku"}).AddRow("a-1"))
	mock.ExpectExec("INSERT INTO `products`").
		WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	result, err := repo.UpsertBatch(chunk)
	require.Error(t, err)
	assert.Zero(t, result.Created)
	assert.Zero(t, result.Updated)
	assert.Empty(t, result.CreatedSKUs)
	assert.Empty(t, result.UpdatedSKUs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatchPluckFailureAbortsTransaction(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := NewProductRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT `normalized_sku` FROM `products`").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	result, err := repo.UpsertBatch(productsWithSKUs("A-1"))
	require.Error(t, err)
	assert.Zero(t, result.Created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatchEmptyChunkSkipsTransaction(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := NewProductRepository(gormDB)

	result, err := repo.UpsertBatch(nil)
	require.NoError(t, err)
	assert.Zero(t, result.Created)
	assert.Zero(t, result.Updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSplitDistinctRunsPreservesOrder(t *testing.T) {
	input := productsWithSKUs("X-1", "Y-2", "x-1", "y-2", "Z-3")
	runs := splitDistinctRuns(input)

	var flattened []string
	for _, run := range runs {
		for i := range run {
			flattened = append(flattened, run[i].SKU)
		}
	}
	require.Equal(t, []string{"X-1", "Y-2", "x-1", "y-2", "Z-3"}, flattened)
}
