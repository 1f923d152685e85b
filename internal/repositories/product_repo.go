package repositories

import (
	"errors"

	"catalog/internal/models"
)

// ErrNotFound is returned by GetByID, Update and Delete when no product
// matches the given ID. Handlers map it to a 404 response.
var ErrNotFound = errors.New("product not found")

// ProductRepository defines the interface for product data access.
// Update applies only the supplied columns and returns the merged record;
// columns absent from the map are left untouched.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
	Create(product *models.Product) error
	Update(id string, fields map[string]any) (*models.Product, error)
	Delete(id string) error
}
