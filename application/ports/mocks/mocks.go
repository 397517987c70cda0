// Package mocks holds testify mocks of the application ports
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"cmseditor/application/ports"
	"cmseditor/domain/core/entities"
	"cmseditor/domain/events"
)

// MockEventBus is a mock implementation of ports.EventBus
type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventBus) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(eventType string, handler ports.EventHandler) error {
	args := m.Called(eventType, handler)
	return args.Error(0)
}

func (m *MockEventBus) Unsubscribe(eventType string, handler ports.EventHandler) error {
	args := m.Called(eventType, handler)
	return args.Error(0)
}

// MockFormSubmissionRepository is a mock implementation of ports.FormSubmissionRepository
type MockFormSubmissionRepository struct {
	mock.Mock
}

func (m *MockFormSubmissionRepository) Insert(ctx context.Context, form *entities.ApplicationForm) error {
	args := m.Called(ctx, form)
	return args.Error(0)
}

// MockWorkflowRepository is a mock implementation of ports.WorkflowRepository
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) CreateTask(ctx context.Context, task *entities.WorkflowTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockWorkflowRepository) ListTasks(ctx context.Context, state entities.TaskState, limit int) ([]*entities.WorkflowTask, error) {
	args := m.Called(ctx, state, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.WorkflowTask), args.Error(1)
}

// MockMailer is a mock implementation of ports.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg ports.MailMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockLockService is a mock implementation of ports.LockService
type MockLockService struct {
	mock.Mock
}

func (m *MockLockService) Acquire(ctx context.Context, path, owner string, ttl time.Duration) (*ports.Lock, error) {
	args := m.Called(ctx, path, owner, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.Lock), args.Error(1)
}

func (m *MockLockService) Release(ctx context.Context, path, owner string) error {
	args := m.Called(ctx, path, owner)
	return args.Error(0)
}

func (m *MockLockService) GetLock(ctx context.Context, path string) (*ports.Lock, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.Lock), args.Error(1)
}

// MockSessionStore is a mock implementation of ports.SessionStore
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Get(ctx context.Context, key entities.SessionKey) (*entities.EditSession, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.EditSession), args.Error(1)
}

func (m *MockSessionStore) Save(ctx context.Context, session *entities.EditSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionStore) Delete(ctx context.Context, key entities.SessionKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockSessionStore) ListExpired(ctx context.Context, before time.Time) ([]*entities.EditSession, error) {
	args := m.Called(ctx, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.EditSession), args.Error(1)
}

// FixedClock always returns the same instant
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }
