package repositories

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"catalog/internal/models"
)

// MockProductRepository is an in-memory implementation of ProductRepository.
// It is useful for local runs without a database.
type MockProductRepository struct {
	products map[string]models.Product
	mu       sync.RWMutex
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[string]models.Product),
	}
}

// GetAll returns all products.
func (r *MockProductRepository) GetAll() ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		productList = append(productList, p)
	}
	return productList, nil
}

// GetByID returns a product by its ID.
func (r *MockProductRepository) GetByID(id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &product, nil
}

// Create adds a new product.
func (r *MockProductRepository) Create(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	r.products[product.ID] = *product
	return nil
}

// Update merges the given columns into an existing product.
func (r *MockProductRepository) Update(id string, fields map[string]any) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	for column, value := range fields {
		switch column {
		case "name":
			product.Name, _ = value.(string)
		case "description":
			product.Description, _ = value.(string)
		case "image":
			product.Image, _ = value.(string)
		case "price":
			product.Price, _ = value.(float64)
		case "rating":
			product.Rating, _ = value.(float64)
		case "stock":
			product.Stock, _ = value.(int)
		}
	}
	if len(fields) > 0 {
		product.UpdatedAt = time.Now()
	}
	r.products[id] = product
	return &product, nil
}

// Delete removes a product by its ID.
func (r *MockProductRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return ErrNotFound
	}
	delete(r.products, id)
	return nil
}
