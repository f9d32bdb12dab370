package repositories

import "hortti/internal/models"

// Sort columns accepted by ProductListQuery.
const (
	SortByName  = "name"
	SortByPrice = "price"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ProductListQuery describes a filtered, paginated, sorted product listing.
// Zero values fall back to the documented defaults (page 1, limit 10,
// sort by name ascending). Callers are expected to have normalized
// page/limit to values >= 1 at the boundary.
type ProductListQuery struct {
	Page  int
	Limit int
	// Search matches case-insensitively as a substring against name OR
	// category. Empty means no search filter.
	Search string
	// Category is an exact-match filter, combinable with Search.
	Category  string
	SortBy    string
	SortOrder string
}

// ProductUpdate carries the optional fields of a partial product update.
// A nil field means "leave unchanged". ImageKey is set by the catalog
// service after a replacement image has been uploaded.
type ProductUpdate struct {
	Name     *string
	Category *string
	Price    *float64
	Stock    *int
	Volume   *float64
	Weight   *float64
	ImageKey *string
}

// ProductRepository defines the interface for product data access.
// FindByID returns (nil, nil) when no matching row exists.
type ProductRepository interface {
	Create(product *models.Product) error
	FindAll(query ProductListQuery) ([]models.Product, error)
	FindByID(id uint) (*models.Product, error)
	Update(id uint, fields ProductUpdate) error
	// Delete reports whether a row with the given id existed.
	Delete(id uint) (bool, error)
}
