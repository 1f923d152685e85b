package models

import "time"

// Product represents a product in the catalog.
// CreatedAt and UpdatedAt are maintained automatically by GORM on
// create and update.
type Product struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Rating      float64   `json:"rating"`
	Stock       int       `json:"stock"`
	Image       string    `json:"image"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
