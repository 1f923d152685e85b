package repositories_test

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"catalog/internal/models"
	"catalog/internal/repositories"
)

var dbCounter atomic.Int64

func newGORMRepo(t *testing.T) repositories.ProductRepository {
	t.Helper()

	dsn := fmt.Sprintf("file:repo_test_%d?mode=memory&cache=shared", dbCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}))
	return repositories.NewGORMProductRepository(db)
}

// Both implementations must honor the same contract, so every test runs
// against each of them.
func forEachRepo(t *testing.T, test func(t *testing.T, repo repositories.ProductRepository)) {
	t.Run("gorm", func(t *testing.T) {
		test(t, newGORMRepo(t))
	})
	t.Run("mock", func(t *testing.T) {
		test(t, repositories.NewMockProductRepository())
	})
}

func TestProductRepository_CreateAssignsID(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo repositories.ProductRepository) {
		product := &models.Product{Name: "Laptop", Price: 1200, Stock: 10}
		require.NoError(t, repo.Create(product))

		assert.NotEmpty(t, product.ID)
		assert.False(t, product.CreatedAt.IsZero())
		assert.False(t, product.UpdatedAt.IsZero())
	})
}

func TestProductRepository_GetByID(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo repositories.ProductRepository) {
		product := &models.Product{Name: "Keyboard", Price: 75, Stock: 25}
		require.NoError(t, repo.Create(product))

		found, err := repo.GetByID(product.ID)
		require.NoError(t, err)
		assert.Equal(t, product.ID, found.ID)
		assert.Equal(t, "Keyboard", found.Name)

		_, err = repo.GetByID("no-such-id")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestProductRepository_GetAll(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo repositories.ProductRepository) {
		products, err := repo.GetAll()
		require.NoError(t, err)
		assert.Empty(t, products)

		require.NoError(t, repo.Create(&models.Product{Name: "A"}))
		require.NoError(t, repo.Create(&models.Product{Name: "B"}))

		products, err = repo.GetAll()
		require.NoError(t, err)
		assert.Len(t, products, 2)
	})
}

func TestProductRepository_UpdatePartial(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo repositories.ProductRepository) {
		product := &models.Product{Name: "Monitor", Description: "27 inch", Price: 200, Rating: 4, Stock: 10}
		require.NoError(t, repo.Create(product))

		updated, err := repo.Update(product.ID, map[string]any{"stock": 7, "price": 180.0})
		require.NoError(t, err)
		assert.Equal(t, 7, updated.Stock)
		assert.Equal(t, 180.0, updated.Price)
		// Columns not in the map keep their stored values.
		assert.Equal(t, "Monitor", updated.Name)
		assert.Equal(t, "27 inch", updated.Description)
		assert.Equal(t, 4.0, updated.Rating)

		_, err = repo.Update("no-such-id", map[string]any{"stock": 1})
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestProductRepository_UpdateEmptyFields(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo repositories.ProductRepository) {
		product := &models.Product{Name: "Cable", Price: 5}
		require.NoError(t, repo.Create(product))

		updated, err := repo.Update(product.ID, map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "Cable", updated.Name)
		assert.Equal(t, 5.0, updated.Price)
	})
}

func TestProductRepository_Delete(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo repositories.ProductRepository) {
		product := &models.Product{Name: "Headset"}
		require.NoError(t, repo.Create(product))

		require.NoError(t, repo.Delete(product.ID))

		_, err := repo.GetByID(product.ID)
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		assert.ErrorIs(t, repo.Delete(product.ID), repositories.ErrNotFound)
	})
}
