package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"catalog/internal/models"
	"catalog/internal/repositories"
	"catalog/internal/services"
	"catalog/pkg/blobstore"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service *services.ProductService
	blobs   blobstore.Store
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, blobs blobstore.Store) *ProductHandler {
	return &ProductHandler{
		service: service,
		blobs:   blobs,
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Post("/upload", h.HandleCreateProductWithImage)
	productRoutes.Post("/buy/:id", h.HandleBuyProduct)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Put("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
}

// HandleCreateProduct creates a product from a JSON body. Every field is
// optional; numeric fields are coerced with the truthy rule and text
// fields default to the empty string.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	body, err := parseBody(c)
	if err != nil {
		log.Printf("Error parsing create request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	product, err := productFromBody(body)
	if err != nil {
		log.Printf("Error coercing create request fields: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := h.service.CreateProduct(product); err != nil {
		log.Printf("Error creating product: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleCreateProductWithImage creates a product from a multipart form.
// The file field "image" is stored in the blob store and its locator
// becomes the product image; without a file the image stays empty.
// Unlike the plain create, any failure here is a server error.
func (h *ProductHandler) HandleCreateProductWithImage(c *fiber.Ctx) error {
	product := &models.Product{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
	}

	// Multipart form values arrive as strings; an absent field is the
	// empty string, which is the falsy default.
	var err error
	if product.Price, err = toNumber(c.FormValue("price")); err != nil {
		log.Printf("Error coercing upload form fields: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if product.Rating, err = toNumber(c.FormValue("rating")); err != nil {
		log.Printf("Error coercing upload form fields: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	stock, err := toNumber(c.FormValue("stock"))
	if err != nil {
		log.Printf("Error coercing upload form fields: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	product.Stock = int(stock)

	// The file is optional; a missing file leaves the image empty.
	if file, ferr := c.FormFile("image"); ferr == nil && file != nil {
		src, err := file.Open()
		if err != nil {
			log.Printf("Error opening uploaded file: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		locator, err := h.blobs.Save(file.Filename, src)
		src.Close()
		if err != nil {
			log.Printf("Error storing uploaded file: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		product.Image = locator
	}

	if err := h.service.CreateProduct(product); err != nil {
		log.Printf("Error creating product with image: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleGetProducts retrieves all products.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts()
	if err != nil {
		log.Printf("Error getting all products: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(products)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	productID := c.Params("id")
	product, err := h.service.GetProductByID(productID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Product not found",
			})
		}
		log.Printf("Error getting product by ID %s: %v", productID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(product)
}

// HandleUpdateProduct applies a partial update. Only fields present in
// the body are touched; numeric fields go through the same truthy
// coercion as create.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	productID := c.Params("id")

	body, err := parseBody(c)
	if err != nil {
		log.Printf("Error parsing update request body: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	fields := make(map[string]any)
	for _, column := range []string{"name", "description", "image"} {
		if v, ok := body[column]; ok {
			fields[column] = toText(v)
		}
	}
	for _, column := range []string{"price", "rating"} {
		if v, ok := body[column]; ok {
			n, err := toNumber(v)
			if err != nil {
				log.Printf("Error coercing update field %s: %v", column, err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": err.Error(),
				})
			}
			fields[column] = n
		}
	}
	if v, ok := body["stock"]; ok {
		n, err := toNumber(v)
		if err != nil {
			log.Printf("Error coercing update field stock: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		fields["stock"] = int(n)
	}

	product, err := h.service.UpdateProduct(productID, fields)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Product not found",
			})
		}
		log.Printf("Error updating product %s: %v", productID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(product)
}

// HandleDeleteProduct deletes a product by its ID.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	productID := c.Params("id")
	if err := h.service.DeleteProduct(productID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Product not found",
			})
		}
		log.Printf("Error deleting product %s: %v", productID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Product deleted",
	})
}

// HandleBuyProduct decrements the product's stock by the requested
// quantity. A missing, unparsable or zero quantity falls back to 1.
func (h *ProductHandler) HandleBuyProduct(c *fiber.Ctx) error {
	productID := c.Params("id")

	quantity := 1
	if body, err := parseBody(c); err == nil {
		if q, ok := body["quantity"]; ok {
			quantity = parseQuantity(q)
		}
	}

	product, err := h.service.PurchaseProduct(productID, quantity)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Product not found",
			})
		}
		if errors.Is(err, services.ErrInsufficientStock) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Insufficient stock",
			})
		}
		log.Printf("Error purchasing product %s: %v", productID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Purchase successful",
		"product": product,
	})
}

// parseBody decodes the request body into a generic map. An empty body
// is treated as an empty object so that every field takes its default.
func parseBody(c *fiber.Ctx) (map[string]any, error) {
	raw := c.Body()
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	return body, nil
}

// productFromBody builds a Product from a decoded create body, applying
// the default rules: text fields fall back to "", numeric fields go
// through the truthy coercion.
func productFromBody(body map[string]any) (*models.Product, error) {
	price, err := toNumber(body["price"])
	if err != nil {
		return nil, err
	}
	rating, err := toNumber(body["rating"])
	if err != nil {
		return nil, err
	}
	stock, err := toNumber(body["stock"])
	if err != nil {
		return nil, err
	}

	return &models.Product{
		Name:        toText(body["name"]),
		Description: toText(body["description"]),
		Price:       price,
		Rating:      rating,
		Stock:       int(stock),
		Image:       toText(body["image"]),
	}, nil
}

// toNumber applies the truthy coercion rule: absent, null, zero and
// empty-string values all count as missing and become 0; any other
// value is converted to a number. Note that this deliberately conflates
// an explicit zero with an absent field.
func toNumber(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return n, nil
	case string:
		trimmed := strings.TrimSpace(n)
		if trimmed == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to a number", n)
		}
		return f, nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %v to a number", v)
	}
}

// toText returns the value as a string, or "" for anything that is not
// a string.
func toText(v any) string {
	s, _ := v.(string)
	return s
}

// parseQuantity coerces the purchase quantity to an integer. Unparsable
// and zero values fall back to 1; fractional values are truncated.
func parseQuantity(v any) int {
	var n int
	switch q := v.(type) {
	case float64:
		n = int(q)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(q), 64)
		if err != nil {
			return 1
		}
		n = int(f)
	default:
		return 1
	}
	if n == 0 {
		return 1
	}
	return n
}
