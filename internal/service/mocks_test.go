package service_test

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/iyhunko/inventory-sync/internal/model"
	"github.com/iyhunko/inventory-sync/internal/repository"
	"github.com/iyhunko/inventory-sync/internal/service"
	"github.com/stretchr/testify/mock"
)

// MockFetcher is a mock implementation of service.Fetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	args := m.Called(ctx, locator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockProductCache is a mock implementation of service.ProductCache
type MockProductCache struct {
	mock.Mock
}

func (m *MockProductCache) GetProducts(ctx context.Context) ([]model.Product, int64, bool) {
	args := m.Called(ctx)
	products, _ := args.Get(0).([]model.Product)
	return products, args.Get(1).(int64), args.Bool(2)
}

func (m *MockProductCache) SetProducts(ctx context.Context, version int64, products []model.Product) error {
	args := m.Called(ctx, version, products)
	return args.Error(0)
}

func (m *MockProductCache) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// RecordingEvents collects published inventory messages.
type RecordingEvents struct {
	mu       sync.Mutex
	messages []model.InventoryMessage
}

func (r *RecordingEvents) PublishInventoryUpdated(msg model.InventoryMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *RecordingEvents) Messages() []model.InventoryMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.InventoryMessage{}, r.messages...)
}

// MockRepository is a mock implementation of repository.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, resource repository.Resource) (repository.Resource, error) {
	args := m.Called(ctx, resource)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(repository.Resource), args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (repository.Resource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(repository.Resource), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, query repository.Query) ([]repository.Resource, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.Resource), args.Error(1)
}

// MockPublisher is a mock implementation of service.MessagePublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishInventoryMessage(ctx context.Context, msg model.InventoryMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockAutoSyncer is a mock implementation of service.AutoSyncer
type MockAutoSyncer struct {
	mock.Mock
}

func (m *MockAutoSyncer) AutoSync(ctx context.Context, locator string) (service.Outcome, error) {
	args := m.Called(ctx, locator)
	return args.Get(0).(service.Outcome), args.Error(1)
}

// MockSweeper is a mock implementation of service.Sweeper
type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) SweepBackups(ctx context.Context) (repository.SweepReport, error) {
	args := m.Called(ctx)
	return args.Get(0).(repository.SweepReport), args.Error(1)
}

// MockWebhook is a mock implementation of service.WebhookSender
type MockWebhook struct {
	mock.Mock
}

func (m *MockWebhook) Send(ctx context.Context, payload any) ([]byte, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
