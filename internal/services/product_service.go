package services

import (
	"errors"
	"log"

	"catalog/internal/models"
	"catalog/internal/repositories"
	"catalog/pkg/rabbitmq"
)

// ErrInsufficientStock is returned by PurchaseProduct when the product
// has fewer units in stock than the requested quantity.
var ErrInsufficientStock = errors.New("insufficient stock")

// ProductService handles business logic related to products.
type ProductService struct {
	repo     repositories.ProductRepository
	mqClient *rabbitmq.Client // may be nil, purchase events are then skipped
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, mqClient *rabbitmq.Client) *ProductService {
	return &ProductService{
		repo:     repo,
		mqClient: mqClient,
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts() ([]models.Product, error) {
	return s.repo.GetAll()
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(id string) (*models.Product, error) {
	return s.repo.GetByID(id)
}

// CreateProduct creates a new product.
func (s *ProductService) CreateProduct(product *models.Product) error {
	return s.repo.Create(product)
}

// UpdateProduct applies a partial update to an existing product and
// returns the merged record.
func (s *ProductService) UpdateProduct(id string, fields map[string]any) (*models.Product, error) {
	return s.repo.Update(id, fields)
}

// DeleteProduct deletes a product by its ID.
func (s *ProductService) DeleteProduct(id string) error {
	return s.repo.Delete(id)
}

// PurchaseProduct decrements the product's stock by quantity and returns
// the updated product. It returns ErrInsufficientStock, without mutating
// anything, when fewer than quantity units are available.
//
// The read-check-write here is not atomic against concurrent purchases of
// the same product; two racing buyers can both pass the stock check.
func (s *ProductService) PurchaseProduct(id string, quantity int) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if product.Stock < quantity {
		return nil, ErrInsufficientStock
	}

	updated, err := s.repo.Update(id, map[string]any{"stock": product.Stock - quantity})
	if err != nil {
		return nil, err
	}

	// Publish the purchase event. Failures here must not fail the
	// purchase itself, so they are only logged.
	if s.mqClient != nil {
		event := rabbitmq.PurchaseEvent{
			ProductID: updated.ID,
			Name:      updated.Name,
			Quantity:  quantity,
			Stock:     updated.Stock,
			Total:     updated.Price * float64(quantity),
		}
		if err := s.mqClient.PublishPurchase(event); err != nil {
			log.Printf("Warning: Failed to publish purchase event for product %s: %v", updated.ID, err)
		}
	}

	return updated, nil
}
