package handlers

import (
	"io"
	"log"
	"mime/multipart"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"hortti/internal/repositories"
	"hortti/internal/services"
)

// ProductHandler handles HTTP requests for the product catalog.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the product routes with the given router.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Post("/", h.HandleCreate)
	productRoutes.Get("/", h.HandleList)
	productRoutes.Get("/:id", h.HandleGet)
	productRoutes.Put("/:id", h.HandleUpdate)
	productRoutes.Delete("/:id", h.HandleDelete)
}

// CreateProductRequest is the multipart form of POST /products.
type CreateProductRequest struct {
	Name     string   `validate:"required"`
	Category string   `validate:"required"`
	Price    float64  `validate:"required,gt=0"`
	Stock    int      `validate:"gte=0"`
	Volume   *float64 `validate:"omitempty,gt=0"`
	Weight   *float64 `validate:"omitempty,gt=0"`
}

// HandleCreate creates a product from a multipart form, with an optional
// image file under the "image" field.
func (h *ProductHandler) HandleCreate(c *fiber.Ctx) error {
	var req CreateProductRequest
	req.Name = c.FormValue("name")
	req.Category = c.FormValue("category")

	var err error
	if req.Price, err = parseFloatField(c.FormValue("price"), "price"); err != nil {
		return badFieldResponse(c, err)
	}
	if req.Stock, err = parseIntField(c.FormValue("stock"), "stock"); err != nil {
		return badFieldResponse(c, err)
	}
	if req.Volume, err = parseOptionalFloat(c.FormValue("volume"), "volume"); err != nil {
		return badFieldResponse(c, err)
	}
	if req.Weight, err = parseOptionalFloat(c.FormValue("weight"), "weight"); err != nil {
		return badFieldResponse(c, err)
	}

	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	image, err := readImageFile(c)
	if err != nil {
		return badFieldResponse(c, err)
	}

	product, err := h.service.Create(c.Context(), services.ProductInput{
		Name:     req.Name,
		Category: req.Category,
		Price:    req.Price,
		Stock:    req.Stock,
		Volume:   req.Volume,
		Weight:   req.Weight,
	}, image)
	if err != nil {
		log.Printf("Error creating product: %v", err)
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleList returns products matching the query parameters.
func (h *ProductHandler) HandleList(c *fiber.Ctx) error {
	query := repositories.ProductListQuery{
		Page:      c.QueryInt("page", 1),
		Limit:     c.QueryInt("limit", 10),
		Search:    c.Query("search"),
		Category:  c.Query("category"),
		SortBy:    c.Query("sortBy", repositories.SortByName),
		SortOrder: c.Query("sortOrder", repositories.SortAsc),
	}
	// page/limit below 1 are normalized here, not in the store.
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 {
		query.Limit = 10
	}

	if query.SortBy != repositories.SortByName && query.SortBy != repositories.SortByPrice {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "sortBy must be 'name' or 'price'",
		})
	}
	if query.SortOrder != repositories.SortAsc && query.SortOrder != repositories.SortDesc {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "sortOrder must be 'asc' or 'desc'",
		})
	}

	products, err := h.service.FindAll(c.Context(), query)
	if err != nil {
		log.Printf("Error listing products: %v", err)
		return errorResponse(c, err)
	}

	return c.JSON(products)
}

// HandleGet returns a single product by id.
func (h *ProductHandler) HandleGet(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return badFieldResponse(c, err)
	}

	product, err := h.service.FindOne(c.Context(), id)
	if err != nil {
		log.Printf("Error getting product %d: %v", id, err)
		return errorResponse(c, err)
	}

	return c.JSON(product)
}

// UpdateProductRequest is the multipart form of PUT /products/:id; every
// field is optional and absent fields stay unchanged.
type UpdateProductRequest struct {
	Name     *string  `validate:"omitempty,min=1"`
	Category *string  `validate:"omitempty,min=1"`
	Price    *float64 `validate:"omitempty,gt=0"`
	Stock    *int     `validate:"omitempty,gte=0"`
	Volume   *float64 `validate:"omitempty,gt=0"`
	Weight   *float64 `validate:"omitempty,gt=0"`
}

// HandleUpdate applies a partial update from a multipart form, with an
// optional replacement image.
func (h *ProductHandler) HandleUpdate(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return badFieldResponse(c, err)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Expected a multipart form body",
		})
	}

	var req UpdateProductRequest
	if v, ok := formValue(form, "name"); ok {
		req.Name = &v
	}
	if v, ok := formValue(form, "category"); ok {
		req.Category = &v
	}
	if v, ok := formValue(form, "price"); ok {
		price, err := parseFloatField(v, "price")
		if err != nil {
			return badFieldResponse(c, err)
		}
		req.Price = &price
	}
	if v, ok := formValue(form, "stock"); ok {
		stock, err := parseIntField(v, "stock")
		if err != nil {
			return badFieldResponse(c, err)
		}
		req.Stock = &stock
	}
	if v, ok := formValue(form, "volume"); ok {
		if req.Volume, err = parseOptionalFloat(v, "volume"); err != nil {
			return badFieldResponse(c, err)
		}
	}
	if v, ok := formValue(form, "weight"); ok {
		if req.Weight, err = parseOptionalFloat(v, "weight"); err != nil {
			return badFieldResponse(c, err)
		}
	}

	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	image, err := readImageFile(c)
	if err != nil {
		return badFieldResponse(c, err)
	}

	product, err := h.service.Update(c.Context(), id, repositories.ProductUpdate{
		Name:     req.Name,
		Category: req.Category,
		Price:    req.Price,
		Stock:    req.Stock,
		Volume:   req.Volume,
		Weight:   req.Weight,
	}, image)
	if err != nil {
		log.Printf("Error updating product %d: %v", id, err)
		return errorResponse(c, err)
	}

	return c.JSON(product)
}

// HandleDelete removes a product and its image object.
func (h *ProductHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return badFieldResponse(c, err)
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		log.Printf("Error deleting product %d: %v", id, err)
		return errorResponse(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// --- Form parsing helpers ---

type fieldError struct {
	field string
}

func (e *fieldError) Error() string {
	return "invalid value for field '" + e.field + "'"
}

func badFieldResponse(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": err.Error(),
	})
}

func parseIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, &fieldError{field: "id"}
	}
	return uint(id), nil
}

func parseFloatField(raw, field string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &fieldError{field: field}
	}
	return v, nil
}

func parseIntField(raw, field string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &fieldError{field: field}
	}
	return v, nil
}

func parseOptionalFloat(raw, field string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &fieldError{field: field}
	}
	return &v, nil
}

// formValue reports whether the field was present in the form, so absent
// and empty values are distinguishable on partial updates.
func formValue(form *multipart.Form, key string) (string, bool) {
	vals, ok := form.Value[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// readImageFile reads the optional "image" file into memory. A missing
// file is not an error.
func readImageFile(c *fiber.Ctx) (*services.ImageUpload, error) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return nil, nil
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, &fieldError{field: "image"}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, &fieldError{field: "image"}
	}

	return &services.ImageUpload{
		Data:        data,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Filename:    fileHeader.Filename,
	}, nil
}
