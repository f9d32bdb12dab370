package models

import "time"

// Product represents a catalog entry. ImageKey points at the object in
// the store holding the product image; it is nil when no image was ever
// uploaded. Rows are hard-deleted, together with their image object.
type Product struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null;index" validate:"required"`
	Category  string    `json:"category" gorm:"type:varchar(255);not null;index" validate:"required"`
	Price     float64   `json:"price" gorm:"not null" validate:"required,gt=0"`
	Stock     int       `json:"stock" gorm:"not null;default:0" validate:"gte=0"`
	Volume    *float64  `json:"volume" validate:"omitempty,gt=0"`
	Weight    *float64  `json:"weight" validate:"omitempty,gt=0"`
	ImageKey  *string   `json:"imageKey" gorm:"type:varchar(512)"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProductWithImageURL is a Product enriched with the public URL derived
// from its image key. The URL is computed at read time and never stored.
type ProductWithImageURL struct {
	Product
	ImageURL *string `json:"imageUrl"`
}
