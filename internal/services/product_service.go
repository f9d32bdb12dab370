package services

import (
	"context"
	"fmt"
	"log"

	"hortti/internal/models"
	"hortti/internal/repositories"
	"hortti/internal/storage"
	"hortti/pkg/events"
)

// Folder within the bucket that holds product images.
const productImageFolder = "products"

// EventPublisher emits catalog lifecycle events. A nil publisher disables
// event emission; publish failures never fail the request.
type EventPublisher interface {
	PublishProductEvent(event events.ProductEvent) error
}

// ProductInput carries the fields of a new product.
type ProductInput struct {
	Name     string
	Category string
	Price    float64
	Stock    int
	Volume   *float64
	Weight   *float64
}

// ImageUpload is an uploaded image held in memory.
type ImageUpload struct {
	Data        []byte
	ContentType string
	Filename    string
}

// ProductService couples product rows to their image objects: every
// successful row points at a live object, image replacement deletes the
// superseded object, and deleting a product removes its image.
type ProductService struct {
	repo      repositories.ProductRepository
	store     storage.ObjectStorage
	publisher EventPublisher
}

// NewProductService creates a new ProductService. publisher may be nil.
func NewProductService(repo repositories.ProductRepository, store storage.ObjectStorage, publisher EventPublisher) *ProductService {
	return &ProductService{
		repo:      repo,
		store:     store,
		publisher: publisher,
	}
}

// Create stores the product, uploading its image first so a persisted row
// always references a live object. When persistence fails after a
// successful upload, the object is deleted again rather than left
// orphaned.
func (s *ProductService) Create(ctx context.Context, input ProductInput, image *ImageUpload) (*models.ProductWithImageURL, error) {
	var imageKey *string
	if image != nil {
		key, err := s.store.UploadFile(ctx, image.Data, image.ContentType, image.Filename, productImageFolder)
		if err != nil {
			return nil, fmt.Errorf("failed to upload product image: %w", err)
		}
		imageKey = &key
	}

	product := &models.Product{
		Name:     input.Name,
		Category: input.Category,
		Price:    input.Price,
		Stock:    input.Stock,
		Volume:   input.Volume,
		Weight:   input.Weight,
		ImageKey: imageKey,
	}
	if err := s.repo.Create(product); err != nil {
		if imageKey != nil {
			if delErr := s.store.DeleteFile(ctx, *imageKey); delErr != nil {
				log.Printf("Warning: failed to remove image %s after create failure: %v", *imageKey, delErr)
			}
		}
		return nil, err
	}

	s.publish(events.NewProductEvent(events.ProductCreated, product.ID, product.Name, product.Category))
	return s.withImageURL(product), nil
}

// FindAll lists products matching the query, each enriched with its
// freshly derived image URL.
func (s *ProductService) FindAll(ctx context.Context, query repositories.ProductListQuery) ([]models.ProductWithImageURL, error) {
	products, err := s.repo.FindAll(query)
	if err != nil {
		return nil, err
	}

	enriched := make([]models.ProductWithImageURL, 0, len(products))
	for i := range products {
		enriched = append(enriched, *s.withImageURL(&products[i]))
	}
	return enriched, nil
}

// FindOne retrieves a single product. Returns ErrProductNotFound when the
// id does not exist.
func (s *ProductService) FindOne(ctx context.Context, id uint) (*models.ProductWithImageURL, error) {
	product, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return s.withImageURL(product), nil
}

// Update applies a partial update. Existence is checked before any
// storage side effect, so a missing id never triggers an upload. A new
// image deletes the superseded object before the replacement is uploaded.
func (s *ProductService) Update(ctx context.Context, id uint, fields repositories.ProductUpdate, image *ImageUpload) (*models.ProductWithImageURL, error) {
	current, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrProductNotFound
	}

	if image != nil {
		if current.ImageKey != nil {
			if err := s.store.DeleteFile(ctx, *current.ImageKey); err != nil {
				return nil, fmt.Errorf("failed to delete previous image: %w", err)
			}
		}
		key, err := s.store.UploadFile(ctx, image.Data, image.ContentType, image.Filename, productImageFolder)
		if err != nil {
			return nil, fmt.Errorf("failed to upload product image: %w", err)
		}
		fields.ImageKey = &key
	}

	if err := s.repo.Update(id, fields); err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrProductNotFound
	}

	s.publish(events.NewProductEvent(events.ProductUpdated, updated.ID, updated.Name, updated.Category))
	return s.withImageURL(updated), nil
}

// Delete removes the product and its image object. Returns
// ErrProductNotFound when the id does not exist.
func (s *ProductService) Delete(ctx context.Context, id uint) error {
	current, err := s.repo.FindByID(id)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrProductNotFound
	}

	if current.ImageKey != nil {
		if err := s.store.DeleteFile(ctx, *current.ImageKey); err != nil {
			return fmt.Errorf("failed to delete product image: %w", err)
		}
	}

	found, err := s.repo.Delete(id)
	if err != nil {
		return err
	}
	if !found {
		// Row vanished between the fetch and the delete. The image is
		// already gone, which matches the intended end state.
		return ErrProductNotFound
	}

	s.publish(events.NewProductEvent(events.ProductDeleted, current.ID, current.Name, current.Category))
	return nil
}

// withImageURL enriches a row with the URL derived from its image key.
// Always computed fresh, never cached or persisted.
func (s *ProductService) withImageURL(product *models.Product) *models.ProductWithImageURL {
	enriched := &models.ProductWithImageURL{Product: *product}
	if product.ImageKey != nil {
		url := s.store.FileURL(*product.ImageKey)
		enriched.ImageURL = &url
	}
	return enriched
}

func (s *ProductService) publish(event events.ProductEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishProductEvent(event); err != nil {
		log.Printf("Warning: failed to publish %s for product %d: %v", event.Type, event.ProductID, err)
	}
}
