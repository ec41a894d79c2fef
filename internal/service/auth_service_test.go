package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/fleet-auth/internal/auth"
	"github.com/spec-kit/fleet-auth/internal/domain"
	"github.com/spec-kit/fleet-auth/internal/events"
	"github.com/spec-kit/fleet-auth/internal/repository"
	apperrors "github.com/spec-kit/fleet-auth/pkg/util/errorutil"
)

type MockPrincipalRepository struct {
	mock.Mock
}

func (m *MockPrincipalRepository) GetByUsername(ctx context.Context, username string) (*domain.Principal, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Principal), args.Error(1)
}

type MockLoginLimiter struct {
	mock.Mock
}

func (m *MockLoginLimiter) Allow(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockLoginLimiter) RecordFailure(ctx context.Context, username string) error {
	return m.Called(ctx, username).Error(0)
}

func (m *MockLoginLimiter) Reset(ctx context.Context, username string) error {
	return m.Called(ctx, username).Error(0)
}

type fixture struct {
	service    *AuthService
	principals *MockPrincipalRepository
	limiter    *MockLoginLimiter
	published  []events.Event
	hash       string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	hash, err := hasher.Hash("correct-horse")
	require.NoError(t, err)

	issuer, err := auth.NewIssuer(
		auth.Settings{Secret: []byte("secret"), TokenLifetime: 8 * time.Hour},
		auth.DefaultPolicyTable(),
	)
	require.NoError(t, err)

	f := &fixture{
		principals: new(MockPrincipalRepository),
		limiter:    new(MockLoginLimiter),
		hash:       hash,
	}
	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range []events.EventType{events.EventTokenIssued, events.EventLoginRejected} {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			f.published = append(f.published, e)
			return nil
		})
	}

	f.service = NewAuthService(AuthDependencies{
		Principals:  f.principals,
		Minter:      issuer,
		Passwords:   hasher,
		Limiter:     f.limiter,
		Dispatcher:  dispatcher,
		Logger:      zap.NewNop(),
		ServiceName: auth.ServiceRole,
	})
	return f
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr), "expected DomainError, got %v", err)
	return domainErr.HTTPStatus
}

func TestLoginSuccess(t *testing.T) {
	f := newFixture(t)
	f.limiter.On("Allow", mock.Anything, "alice").Return(true, nil)
	f.limiter.On("Reset", mock.Anything, "alice").Return(nil)
	f.principals.On("GetByUsername", mock.Anything, "alice").Return(&domain.Principal{
		ID: "p-1", Username: "alice", PasswordHash: f.hash, Role: domain.RoleWarehouseManager, Active: true,
	}, nil)

	issued, err := f.service.Login(context.Background(), " alice ", "correct-horse")
	require.NoError(t, err)

	assert.Equal(t, "alice", issued.Subject)
	assert.Equal(t, "WAREHOUSE_MANAGER", issued.Role)
	assert.Equal(t, auth.ServiceRole, issued.Audience[0])
	assert.Contains(t, issued.Audience, auth.ServiceInventory)
	require.Len(t, f.published, 1)
	assert.Equal(t, events.EventTokenIssued, f.published[0].Type)
	f.limiter.AssertExpectations(t)
	f.principals.AssertExpectations(t)
}

func TestLoginRejections(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Login(context.Background(), "", "pw")
		assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
		f.principals.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newFixture(t)
		f.limiter.On("Allow", mock.Anything, "alice").Return(true, nil)
		f.limiter.On("RecordFailure", mock.Anything, "alice").Return(nil).Once()
		f.principals.On("GetByUsername", mock.Anything, "alice").Return(&domain.Principal{
			Username: "alice", PasswordHash: f.hash, Role: domain.RoleTeacher, Active: true,
		}, nil)

		_, err := f.service.Login(context.Background(), "alice", "wrong")
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
		require.Len(t, f.published, 1)
		assert.Equal(t, events.EventLoginRejected, f.published[0].Type)
		f.limiter.AssertExpectations(t)
	})

	t.Run("unknown principal", func(t *testing.T) {
		f := newFixture(t)
		f.limiter.On("Allow", mock.Anything, "nobody").Return(true, nil)
		f.limiter.On("RecordFailure", mock.Anything, "nobody").Return(nil).Once()
		f.principals.On("GetByUsername", mock.Anything, "nobody").Return(nil, repository.ErrPrincipalNotFound)

		_, err := f.service.Login(context.Background(), "nobody", "whatever")
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
		f.limiter.AssertExpectations(t)
	})

	t.Run("inactive principal", func(t *testing.T) {
		f := newFixture(t)
		f.limiter.On("Allow", mock.Anything, "bob").Return(true, nil)
		f.limiter.On("RecordFailure", mock.Anything, "bob").Return(nil)
		f.principals.On("GetByUsername", mock.Anything, "bob").Return(&domain.Principal{
			Username: "bob", PasswordHash: f.hash, Role: domain.RoleTeacher, Active: false,
		}, nil)

		_, err := f.service.Login(context.Background(), "bob", "correct-horse")
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	})

	t.Run("throttled", func(t *testing.T) {
		f := newFixture(t)
		f.limiter.On("Allow", mock.Anything, "alice").Return(false, nil)

		_, err := f.service.Login(context.Background(), "alice", "correct-horse")
		assert.Equal(t, http.StatusTooManyRequests, statusOf(t, err))
		f.principals.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newFixture(t)
		f.limiter.On("Allow", mock.Anything, "alice").Return(true, nil)
		f.principals.On("GetByUsername", mock.Anything, "alice").Return(nil, errors.New("connection refused"))

		_, err := f.service.Login(context.Background(), "alice", "correct-horse")
		assert.Equal(t, http.StatusInternalServerError, statusOf(t, err))
	})
}

func TestLoginLimiterFailsOpen(t *testing.T) {
	f := newFixture(t)
	f.limiter.On("Allow", mock.Anything, "carol").Return(true, errors.New("redis down"))
	f.limiter.On("Reset", mock.Anything, "carol").Return(errors.New("redis down"))
	f.principals.On("GetByUsername", mock.Anything, "carol").Return(&domain.Principal{
		Username: "carol", PasswordHash: f.hash, Role: "JANITOR", Active: true,
	}, nil)

	issued, err := f.service.Login(context.Background(), "carol", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, []string{auth.ServiceRole}, issued.Audience)
}

func TestNewLoginLimiterDisabled(t *testing.T) {
	limiter := NewLoginLimiter(nil, 5, time.Minute)

	allowed, err := limiter.Allow(context.Background(), "anyone")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.NoError(t, limiter.RecordFailure(context.Background(), "anyone"))
	assert.NoError(t, limiter.Reset(context.Background(), "anyone"))
}

func TestFailureKey(t *testing.T) {
	assert.Equal(t, "login_failures:alice", failureKey(" Alice "))
}
