package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"catalog-service/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user with this email already exists")
)

// UserStore holds the accounts the write gate resolves tokens against.
type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

// MemoryUserStore is the in-process UserStore.
type MemoryUserStore struct {
	mu           sync.RWMutex
	users        map[string]*domain.User // by id
	usersByEmail map[string]*domain.User
	logger       *slog.Logger
}

func NewMemoryUserStore(logger *slog.Logger) *MemoryUserStore {
	return &MemoryUserStore{
		users:        make(map[string]*domain.User),
		usersByEmail: make(map[string]*domain.User),
		logger:       logger,
	}
}

func (m *MemoryUserStore) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.usersByEmail[user.Email]; exists {
		m.logger.WarnContext(ctx, "User already exists", slog.String("email", user.Email))
		return ErrUserAlreadyExists
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt

	userCopy := *user
	m.users[user.ID] = &userCopy
	m.usersByEmail[user.Email] = &userCopy
	return nil
}

func (m *MemoryUserStore) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if user, ok := m.users[userID]; ok {
		userCopy := *user
		return &userCopy, nil
	}
	return nil, ErrUserNotFound
}

func (m *MemoryUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if user, ok := m.usersByEmail[email]; ok {
		userCopy := *user
		return &userCopy, nil
	}
	return nil, ErrUserNotFound
}

func (m *MemoryUserStore) Update(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	if other, taken := m.usersByEmail[user.Email]; taken && other.ID != user.ID {
		return ErrUserAlreadyExists
	}

	delete(m.usersByEmail, existing.Email)
	existing.Email = user.Email
	existing.PasswordHash = user.PasswordHash
	existing.Role = user.Role
	existing.IsActive = user.IsActive
	existing.UpdatedAt = time.Now().UTC()
	m.usersByEmail[existing.Email] = existing

	user.UpdatedAt = existing.UpdatedAt
	return nil
}
