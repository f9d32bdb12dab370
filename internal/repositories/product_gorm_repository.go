package repositories

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"hortti/internal/models"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// Create inserts a new product row, assigning its id.
func (r *GORMProductRepository) Create(product *models.Product) error {
	if err := r.db.Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// FindAll retrieves products matching the query. The sort column is
// whitelisted (name or price); ties on the sort key are broken by id
// ascending so pagination is stable across pages.
func (r *GORMProductRepository) FindAll(query ProductListQuery) ([]models.Product, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 {
		limit = 10
	}

	q := r.db.Model(&models.Product{})

	if query.Search != "" {
		// LOWER() LIKE is portable across postgres and the sqlite used
		// in tests, unlike ILIKE.
		pattern := "%" + strings.ToLower(query.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(category) LIKE ?", pattern, pattern)
	}
	if query.Category != "" {
		q = q.Where("category = ?", query.Category)
	}

	sortBy := SortByName
	if query.SortBy == SortByPrice {
		sortBy = SortByPrice
	}
	direction := "ASC"
	if strings.EqualFold(query.SortOrder, SortDesc) {
		direction = "DESC"
	}

	var products []models.Product
	err := q.
		Order(fmt.Sprintf("%s %s", sortBy, direction)).
		Order("id ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// FindByID retrieves a single product, or (nil, nil) when absent.
func (r *GORMProductRepository) FindByID(id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product by ID %d: %w", id, err)
	}
	return &product, nil
}

// Update applies the non-nil fields to the product row. Missing rows are
// not an error here; existence is the catalog service's concern.
func (r *GORMProductRepository) Update(id uint, fields ProductUpdate) error {
	changes := map[string]any{}
	if fields.Name != nil {
		changes["name"] = *fields.Name
	}
	if fields.Category != nil {
		changes["category"] = *fields.Category
	}
	if fields.Price != nil {
		changes["price"] = *fields.Price
	}
	if fields.Stock != nil {
		changes["stock"] = *fields.Stock
	}
	if fields.Volume != nil {
		changes["volume"] = *fields.Volume
	}
	if fields.Weight != nil {
		changes["weight"] = *fields.Weight
	}
	if fields.ImageKey != nil {
		changes["image_key"] = *fields.ImageKey
	}
	if len(changes) == 0 {
		return nil
	}
	if err := r.db.Model(&models.Product{}).Where("id = ?", id).Updates(changes).Error; err != nil {
		return fmt.Errorf("failed to update product %d: %w", id, err)
	}
	return nil
}

// Delete removes the product row, reporting whether it existed.
func (r *GORMProductRepository) Delete(id uint) (bool, error) {
	res := r.db.Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete product %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}
