package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pamankwah2405/ecommerce-api/internal/cache"
	"github.com/pamankwah2405/ecommerce-api/internal/domain"
	"github.com/pamankwah2405/ecommerce-api/internal/health"
	"github.com/pamankwah2405/ecommerce-api/internal/metrics"
	"github.com/pamankwah2405/ecommerce-api/internal/repository"
	"github.com/pamankwah2405/ecommerce-api/internal/service"
)

// In-memory repositories backing the handler tests. They only cover what
// the routes exercise; concurrency is not a concern here because httptest
// drives one request at a time.

type stubCartRepo struct {
	carts map[primitive.ObjectID]*domain.Cart
}

func newStubCartRepo() *stubCartRepo {
	return &stubCartRepo{carts: make(map[primitive.ObjectID]*domain.Cart)}
}

func (s *stubCartRepo) GetCart(_ context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	cart, ok := s.carts[userID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return cart, nil
}

func (s *stubCartRepo) AddItem(_ context.Context, userID primitive.ObjectID, item domain.CartItem) error {
	cart, ok := s.carts[userID]
	if !ok {
		cart = &domain.Cart{UserID: userID}
		s.carts[userID] = cart
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID == item.ProductID {
			cart.Items[i].Quantity += item.Quantity
			return nil
		}
	}
	cart.Items = append(cart.Items, item)
	return nil
}

func (s *stubCartRepo) DeleteCart(_ context.Context, userID primitive.ObjectID) error {
	if _, ok := s.carts[userID]; !ok {
		return repository.ErrCartNotFound
	}
	delete(s.carts, userID)
	return nil
}

type stubProductRepo struct {
	products map[primitive.ObjectID]*domain.Product
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{products: make(map[primitive.ObjectID]*domain.Product)}
}

func (s *stubProductRepo) List(context.Context) ([]domain.Product, error) {
	result := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		result = append(result, *p)
	}
	return result, nil
}

func (s *stubProductRepo) Get(_ context.Context, id primitive.ObjectID) (*domain.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *stubProductRepo) Insert(_ context.Context, product domain.Product) (primitive.ObjectID, error) {
	product.ID = primitive.NewObjectID()
	s.products[product.ID] = &product
	return product.ID, nil
}

func (s *stubProductRepo) Update(_ context.Context, id primitive.ObjectID, product domain.Product) error {
	if _, ok := s.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	product.ID = id
	s.products[id] = &product
	return nil
}

func (s *stubProductRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := s.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *stubProductRepo) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	p, ok := s.products[id]
	if !ok || p.Stock < qty {
		return repository.ErrStockConflict
	}
	p.Stock -= qty
	return nil
}

func (s *stubProductRepo) RestoreStock(_ context.Context, id primitive.ObjectID, qty int) error {
	p, ok := s.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.Stock += qty
	return nil
}

type stubOrderRepo struct {
	orders []domain.Order
}

func (s *stubOrderRepo) Insert(_ context.Context, order domain.Order) (primitive.ObjectID, error) {
	order.ID = primitive.NewObjectID()
	s.orders = append(s.orders, order)
	return order.ID, nil
}

type stubUserRepo struct {
	users map[string]*domain.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func (s *stubUserRepo) Insert(_ context.Context, user domain.User) (primitive.ObjectID, error) {
	if _, ok := s.users[user.Email]; ok {
		return primitive.NilObjectID, repository.ErrDuplicateEmail
	}
	user.ID = primitive.NewObjectID()
	s.users[user.Email] = &user
	return user.ID, nil
}

func (s *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	user, ok := s.users[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

type testEnv struct {
	router      http.Handler
	cartRepo    *stubCartRepo
	productRepo *stubProductRepo
	orderRepo   *stubOrderRepo
}

func newTestEnv() *testEnv {
	env := &testEnv{
		cartRepo:    newStubCartRepo(),
		productRepo: newStubProductRepo(),
		orderRepo:   &stubOrderRepo{},
	}

	logger := log.WithField("component", "test")
	noop := cache.NewNoopCache()

	cartSvc := service.NewCartService(env.cartRepo, env.productRepo, noop, logger)
	checkoutSvc := service.NewCheckoutService(env.cartRepo, env.productRepo, env.orderRepo, noop,
		nil, metrics.NewCheckoutMetrics(), logger)
	userSvc := service.NewUserService(newStubUserRepo(), logger)
	catalogSvc := service.NewCatalogService(env.productRepo, logger)

	env.router = NewRouter(RouterConfig{
		RequestTimeout: 5 * time.Second,
		MaxBodySize:    1 << 20,
	}, cartSvc, checkoutSvc, userSvc, catalogSvc, health.NewHandler())

	return env
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHome(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to our E-commerce API", decodeBody(t, rec)["message"])
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/register",
		`{"name":"Ada","email":"ada@example.com","password":"hunter2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "User registered successfully", body["message"])
	assert.NotEmpty(t, body["user_id"])

	rec = env.do(t, http.MethodPost, "/register",
		`{"name":"Eve","email":"ada@example.com","password":"other"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email_taken", decodeBody(t, rec)["code"])

	rec = env.do(t, http.MethodPost, "/login",
		`{"email":"ada@example.com","password":"hunter2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body["user_id"], decodeBody(t, rec)["user_id"])

	rec = env.do(t, http.MethodPost, "/login",
		`{"email":"ada@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProductRoutes(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/products",
		`{"name":"Laptop","description":"fast","price":1299.99,"stock":4}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	products := decodeBody(t, rec)["products"].([]interface{})
	require.Len(t, products, 1)
	productID := products[0].(map[string]interface{})["id"].(string)

	rec = env.do(t, http.MethodGet, "/products/"+productID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	product := decodeBody(t, rec)["product"].(map[string]interface{})
	assert.Equal(t, "Laptop", product["name"])

	rec = env.do(t, http.MethodGet, "/products/oops", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/products/"+primitive.NewObjectID().Hex(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, "/products/"+productID,
		`{"name":"Laptop v2","description":"faster","price":1399.99,"stock":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/products/"+productID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/products/"+productID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddToCart_Validation(t *testing.T) {
	env := newTestEnv()
	userID := primitive.NewObjectID().Hex()

	rec := env.do(t, http.MethodPost, "/cart", `{"productId":"x","quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing user_id")

	rec = env.do(t, http.MethodPost, "/cart?user_id="+userID, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/cart?user_id="+userID,
		`{"productId":"`+primitive.NewObjectID().Hex()+`","quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/cart?user_id=nothex",
		`{"productId":"`+primitive.NewObjectID().Hex()+`","quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_id", decodeBody(t, rec)["code"])
}

func TestCartFlow(t *testing.T) {
	env := newTestEnv()
	userID := primitive.NewObjectID().Hex()

	pid, err := env.productRepo.Insert(context.Background(),
		domain.Product{Name: "Mouse", Price: 25, Stock: 10})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/cart?user_id="+userID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decodeBody(t, rec)["cart"].(map[string]interface{})
	assert.Empty(t, cart["products"])
	assert.Zero(t, cart["total"])

	rec = env.do(t, http.MethodPost, "/cart?user_id="+userID,
		`{"productId":"`+pid.Hex()+`","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Item added to cart", decodeBody(t, rec)["message"])

	rec = env.do(t, http.MethodGet, "/cart?user_id="+userID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	cart = decodeBody(t, rec)["cart"].(map[string]interface{})
	lines := cart["products"].([]interface{})
	require.Len(t, lines, 1)
	line := lines[0].(map[string]interface{})
	assert.Equal(t, "Mouse", line["name"])
	assert.Equal(t, 50.0, line["subtotal"])
	assert.Equal(t, 50.0, cart["total"])
}

func TestCheckoutRoute(t *testing.T) {
	env := newTestEnv()
	userID := primitive.NewObjectID()

	rec := env.do(t, http.MethodPost, "/checkout?user_id="+userID.Hex(), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "empty_cart", decodeBody(t, rec)["code"])

	pid, err := env.productRepo.Insert(context.Background(),
		domain.Product{Name: "p1", Price: 10, Stock: 5})
	require.NoError(t, err)
	require.NoError(t, env.cartRepo.AddItem(context.Background(), userID,
		domain.CartItem{ProductID: pid, Quantity: 2}))

	rec = env.do(t, http.MethodPost, "/checkout?user_id="+userID.Hex(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Order placed successfully", body["message"])
	assert.NotEmpty(t, body["order_id"])
	assert.Equal(t, 20.0, body["total"])

	product, err := env.productRepo.Get(context.Background(), pid)
	require.NoError(t, err)
	assert.Equal(t, 3, product.Stock)
}

func TestCheckoutRoute_InsufficientStock(t *testing.T) {
	env := newTestEnv()
	userID := primitive.NewObjectID()

	pid, err := env.productRepo.Insert(context.Background(),
		domain.Product{Name: "p2", Price: 10, Stock: 2})
	require.NoError(t, err)
	require.NoError(t, env.cartRepo.AddItem(context.Background(), userID,
		domain.CartItem{ProductID: pid, Quantity: 10}))

	rec := env.do(t, http.MethodPost, "/checkout?user_id="+userID.Hex(), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "insufficient_stock", body["code"])
	assert.Contains(t, body["error"], "p2")

	// The cart must survive a failed checkout.
	_, err = env.cartRepo.GetCart(context.Background(), userID)
	assert.NoError(t, err)
}

func TestProbesAndMetrics(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/livez", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shop_checkout")
}
