package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"hortti/internal/handlers"
	"hortti/internal/middleware"
	"hortti/internal/models"
	"hortti/internal/repositories"
	"hortti/internal/services"
	"hortti/internal/storage"
)

// setupApp assembles the full HTTP surface on an in-memory object store
// and a throwaway sqlite database.
func setupApp(t *testing.T) (*fiber.App, *storage.MemoryStorage) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Product{}))

	store := storage.NewMemoryStorage("http://localhost:9000", "hortti-products")

	userRepo := repositories.NewGORMUserRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)

	authService := services.NewAuthService(userRepo, "test_jwt_secret", 12*time.Hour)
	userService := services.NewUserService(userRepo)
	productService := services.NewProductService(productRepo, store, nil)

	authHandler := handlers.NewAuthHandler(authService, userService)
	productHandler := handlers.NewProductHandler(productService)

	app := fiber.New()

	authRequired := middleware.AuthRequired(authService)
	authHandler.RegisterRoutes(app, authRequired)

	protected := app.Group("", authRequired)
	productHandler.RegisterRoutes(protected)

	return app, store
}

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func jsonRequest(method, target string, body any) *http.Request {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	resp.Body.Close()
}

// signUpAndSignIn registers a user and returns a valid bearer token.
func signUpAndSignIn(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	req := jsonRequest(http.MethodPost, "/sign-up", map[string]string{
		"name":     "Test User",
		"email":    email,
		"password": "password123",
	})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	require.NotEmpty(t, body["access_token"])
	return body["access_token"]
}

// productForm builds a multipart form for create/update requests, with an
// optional image file under the "image" field.
func productForm(t *testing.T, fields map[string]string, image []byte, imageName string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if image != nil {
		part, err := writer.CreateFormFile("image", imageName)
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func createProduct(t *testing.T, app *fiber.App, token string, fields map[string]string, image []byte) map[string]any {
	t.Helper()
	body, contentType := productForm(t, fields, image, "photo.png")
	req := httptest.NewRequest(http.MethodPost, "/products", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]any
	decodeBody(t, resp, &created)
	return created
}

func TestSignUpSignInAndMe(t *testing.T) {
	app, _ := setupApp(t)

	token := signUpAndSignIn(t, app, "ana@example.com")

	// Duplicate email conflicts regardless of password.
	req := jsonRequest(http.MethodPost, "/sign-up", map[string]string{
		"name":     "Impostor",
		"email":    "ana@example.com",
		"password": "different-password",
	})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Sign-in with the original credentials.
	req = jsonRequest(http.MethodPost, "/sign-in", map[string]string{
		"email":    "ana@example.com",
		"password": "password123",
	})
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var signIn map[string]string
	decodeBody(t, resp, &signIn)
	assert.NotEmpty(t, signIn["access_token"])

	// Wrong password and unknown email produce the same outcome.
	for _, creds := range []map[string]string{
		{"email": "ana@example.com", "password": "wrong"},
		{"email": "ghost@example.com", "password": "password123"},
	} {
		req = jsonRequest(http.MethodPost, "/sign-in", creds)
		resp, err = app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var failure map[string]any
		decodeBody(t, resp, &failure)
		assert.Equal(t, "invalid credentials", failure["message"])
	}

	// /me returns the safe projection, with no password field at all.
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var me map[string]any
	decodeBody(t, resp, &me)
	assert.Equal(t, "Test User", me["name"])
	assert.Equal(t, "ana@example.com", me["email"])
	assert.NotContains(t, me, "password")

	// /me without a token is rejected.
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestProfileUpdateAndDelete(t *testing.T) {
	app, _ := setupApp(t)
	token := signUpAndSignIn(t, app, "ana@example.com")

	req := jsonRequest(http.MethodPut, "/me", map[string]string{"name": "Ana Maria"})
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var updated map[string]any
	decodeBody(t, resp, &updated)
	assert.Equal(t, "Ana Maria", updated["name"])

	req = httptest.NewRequest(http.MethodDelete, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	// The token's subject is gone, so the token no longer authenticates.
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestProductEndpointsRequireAuth(t *testing.T) {
	app, _ := setupApp(t)

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	body, contentType := productForm(t, map[string]string{"name": "X"}, nil, "")
	req = httptest.NewRequest(http.MethodPost, "/products", body)
	req.Header.Set("Content-Type", contentType)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateProductWithoutImage(t *testing.T) {
	app, _ := setupApp(t)
	token := signUpAndSignIn(t, app, "ana@example.com")

	created := createProduct(t, app, token, map[string]string{
		"name":     "Chair",
		"category": "Furniture",
		"price":    "49.99",
		"stock":    "10",
	}, nil)

	assert.Equal(t, "Chair", created["name"])
	assert.Equal(t, "Furniture", created["category"])
	assert.Equal(t, 49.99, created["price"])
	assert.Equal(t, float64(10), created["stock"])
	assert.Nil(t, created["volume"])
	assert.Nil(t, created["weight"])
	assert.Nil(t, created["imageKey"])
	assert.Nil(t, created["imageUrl"])
	assert.NotZero(t, created["id"])
}

func TestProductLifecycleWithImage(t *testing.T) {
	app, store := setupApp(t)
	token := signUpAndSignIn(t, app, "ana@example.com")

	created := createProduct(t, app, token, map[string]string{
		"name":     "Chair",
		"category": "Furniture",
		"price":    "49.99",
		"stock":    "10",
	}, []byte("first-image"))

	imageURL, _ := created["imageUrl"].(string)
	require.True(t, strings.HasPrefix(imageURL, "http://localhost:9000/hortti-products/products/"), imageURL)
	assert.Equal(t, 1, store.Len())

	id := int(created["id"].(float64))

	// Replacing the image deletes the old object and keeps exactly one.
	body, contentType := productForm(t, map[string]string{"name": "Rocking Chair"}, []byte("second-image"), "new.png")
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/products/%d", id), body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var updated map[string]any
	decodeBody(t, resp, &updated)
	assert.Equal(t, "Rocking Chair", updated["name"])
	assert.Equal(t, 49.99, updated["price"]) // untouched fields survive
	assert.NotEqual(t, created["imageKey"], updated["imageKey"])
	assert.Equal(t, 1, store.Len())

	// Deleting the product removes the image object as well.
	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/products/%d", id), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 0, store.Len())

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/products/%d", id), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestProductListFiltersAndSorting(t *testing.T) {
	app, _ := setupApp(t)
	token := signUpAndSignIn(t, app, "ana@example.com")

	seed := []map[string]string{
		{"name": "Steel Widget", "category": "tools", "price": "9.99", "stock": "100"},
		{"name": "Brass Widget", "category": "tools", "price": "14.99", "stock": "50"},
		{"name": "Widget Polish", "category": "supplies", "price": "4.99", "stock": "200"},
		{"name": "Oak Chair", "category": "furniture", "price": "49.99", "stock": "10"},
	}
	for _, fields := range seed {
		createProduct(t, app, token, fields, nil)
	}

	list := func(query string) []map[string]any {
		req := httptest.NewRequest(http.MethodGet, "/products"+query, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var products []map[string]any
		decodeBody(t, resp, &products)
		return products
	}

	// Case-insensitive substring over name or category.
	found := list("?search=widget")
	assert.Len(t, found, 3)

	// Intersection with the exact category filter.
	found = list("?search=widget&category=tools")
	assert.Len(t, found, 2)
	for _, p := range found {
		assert.Equal(t, "tools", p["category"])
	}

	// Price descending is non-increasing.
	found = list("?sortBy=price&sortOrder=desc")
	require.NotEmpty(t, found)
	for i := 1; i < len(found); i++ {
		assert.GreaterOrEqual(t, found[i-1]["price"].(float64), found[i]["price"].(float64))
	}

	// Offset pagination.
	found = list("?page=2&limit=3")
	assert.Len(t, found, 1)

	// Invalid sort column is rejected at the boundary.
	req := httptest.NewRequest(http.MethodGet, "/products?sortBy=stock", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestProductValidation(t *testing.T) {
	app, _ := setupApp(t)
	token := signUpAndSignIn(t, app, "ana@example.com")

	// Missing name and non-positive price.
	body, contentType := productForm(t, map[string]string{
		"category": "Furniture",
		"price":    "-5",
		"stock":    "10",
	}, nil, "")
	req := httptest.NewRequest(http.MethodPost, "/products", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Unparseable price.
	body, contentType = productForm(t, map[string]string{
		"name":     "Chair",
		"category": "Furniture",
		"price":    "cheap",
		"stock":    "10",
	}, nil, "")
	req = httptest.NewRequest(http.MethodPost, "/products", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestUpdateAndDeleteMissingProduct(t *testing.T) {
	app, store := setupApp(t)
	token := signUpAndSignIn(t, app, "ana@example.com")

	// Updating a nonexistent product is a 404, and the attached image is
	// never uploaded.
	body, contentType := productForm(t, map[string]string{"name": "Ghost"}, []byte("img"), "ghost.png")
	req := httptest.NewRequest(http.MethodPut, "/products/999", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 0, store.Len())

	req = httptest.NewRequest(http.MethodDelete, "/products/999", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
