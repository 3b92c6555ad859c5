package service

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pamankwah2405/ecommerce-api/internal/cache"
	"github.com/pamankwah2405/ecommerce-api/internal/domain"
	"github.com/pamankwah2405/ecommerce-api/internal/repository"
)

type mockCartRepo struct {
	m    sync.RWMutex
	cart *domain.Cart
	err  error

	deleted bool
}

func (m *mockCartRepo) GetCart(_ context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil || m.cart.UserID != userID {
		return nil, repository.ErrCartNotFound
	}
	return m.cart, nil
}

func (m *mockCartRepo) AddItem(_ context.Context, userID primitive.ObjectID, item domain.CartItem) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.cart == nil {
		m.cart = &domain.Cart{UserID: userID}
	}
	for i := range m.cart.Items {
		if m.cart.Items[i].ProductID == item.ProductID {
			m.cart.Items[i].Quantity += item.Quantity
			return nil
		}
	}
	m.cart.Items = append(m.cart.Items, item)
	return nil
}

func (m *mockCartRepo) DeleteCart(_ context.Context, userID primitive.ObjectID) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.cart == nil || m.cart.UserID != userID {
		return repository.ErrCartNotFound
	}
	m.cart = nil
	m.deleted = true
	return nil
}

func (m *mockCartRepo) cartDeleted() bool {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.deleted
}

type mockProductRepo struct {
	m        sync.RWMutex
	products map[primitive.ObjectID]*domain.Product
	getErr   error

	// decrementConflicts forces DecrementStock to fail for these products,
	// simulating a concurrent checkout between validation and apply.
	decrementConflicts map[primitive.ObjectID]bool

	decrements int
	restores   int
}

func newMockProductRepo(products ...*domain.Product) *mockProductRepo {
	repo := &mockProductRepo{
		products:           make(map[primitive.ObjectID]*domain.Product),
		decrementConflicts: make(map[primitive.ObjectID]bool),
	}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (m *mockProductRepo) List(context.Context) ([]domain.Product, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	result := make([]domain.Product, 0, len(m.products))
	for _, p := range m.products {
		result = append(result, *p)
	}
	return result, nil
}

func (m *mockProductRepo) Get(_ context.Context, id primitive.ObjectID) (*domain.Product, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockProductRepo) Insert(_ context.Context, product domain.Product) (primitive.ObjectID, error) {
	m.m.Lock()
	defer m.m.Unlock()
	id := primitive.NewObjectID()
	product.ID = id
	m.products[id] = &product
	return id, nil
}

func (m *mockProductRepo) Update(_ context.Context, id primitive.ObjectID, product domain.Product) error {
	m.m.Lock()
	defer m.m.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	product.ID = id
	m.products[id] = &product
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	m.m.Lock()
	defer m.m.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepo) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	m.m.Lock()
	defer m.m.Unlock()
	p, ok := m.products[id]
	if !ok || m.decrementConflicts[id] || p.Stock < qty {
		return repository.ErrStockConflict
	}
	p.Stock -= qty
	m.decrements++
	return nil
}

func (m *mockProductRepo) RestoreStock(_ context.Context, id primitive.ObjectID, qty int) error {
	m.m.Lock()
	defer m.m.Unlock()
	p, ok := m.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.Stock += qty
	m.restores++
	return nil
}

func (m *mockProductRepo) stockOf(id primitive.ObjectID) int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.products[id].Stock
}

type mockOrderRepo struct {
	m         sync.Mutex
	orders    []domain.Order
	insertErr error
}

func (m *mockOrderRepo) Insert(_ context.Context, order domain.Order) (primitive.ObjectID, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.insertErr != nil {
		return primitive.NilObjectID, m.insertErr
	}
	order.ID = primitive.NewObjectID()
	m.orders = append(m.orders, order)
	return order.ID, nil
}

type mockUserRepo struct {
	m     sync.RWMutex
	users map[string]*domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*domain.User)}
}

func (m *mockUserRepo) Insert(_ context.Context, user domain.User) (primitive.ObjectID, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return primitive.NilObjectID, repository.ErrDuplicateEmail
	}
	user.ID = primitive.NewObjectID()
	m.users[user.Email] = &user
	return user.ID, nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	user, ok := m.users[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

type mockCache struct {
	m       sync.RWMutex
	cart    *domain.Cart
	err     error
	deletes int
}

func (m *mockCache) Get(context.Context, primitive.ObjectID) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, cache.ErrCacheMiss
	}
	return m.cart, nil
}

func (m *mockCache) Set(_ context.Context, _ primitive.ObjectID, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = cart
	return m.err
}

func (m *mockCache) Delete(context.Context, primitive.ObjectID) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = nil
	m.deletes++
	return m.err
}

func (m *mockCache) deleteCount() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.deletes
}

type mockPublisher struct {
	m      sync.Mutex
	events []domain.Order
	err    error
}

func (m *mockPublisher) OrderPlaced(_ context.Context, order domain.Order) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, order)
	return nil
}
