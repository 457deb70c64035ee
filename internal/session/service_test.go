package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, sess *Session) error {
	args := m.Called(ctx, sess)
	return args.Error(0)
}

func (m *mockRepo) Get(ctx context.Context, id string) (*Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *mockRepo) Update(ctx context.Context, sess *Session) error {
	args := m.Called(ctx, sess)
	return args.Error(0)
}

func (m *mockRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockRepo) DeleteByUserID(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockRepo) DeleteExpired(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestCreate_GeneratesOpaqueID(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo, time.Hour, 30*time.Minute)
	ctx := context.Background()

	tid := "t-1"
	repo.On("Create", ctx, mock.MatchedBy(func(s *Session) bool {
		return len(s.ID) >= 40 && s.UserID == "u-1" && s.Role == "tenant_admin" && *s.TenantID == "t-1"
	})).Return(nil)

	sess, err := svc.Create(ctx, "u-1", "tenant_admin", &tid, "10.0.0.1", "test-agent")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, 5*time.Second)
	repo.AssertExpectations(t)
}

// TestPurpose: Validates session expiry and idle-timeout enforcement.
// Scope: Unit Test
// Security: Session lifecycle
// Expected: Expired and idle sessions read as ErrSessionExpired and are
// removed from storage; live sessions get their last-seen time refreshed.
// Test Case ID: SES-01
func TestGet_ExpiryAndIdle(t *testing.T) {
	ctx := context.Background()

	repo := new(mockRepo)
	svc := NewService(repo, time.Hour, 30*time.Minute)
	repo.On("Get", ctx, "expired").Return(&Session{
		ID:         "expired",
		ExpiresAt:  time.Now().Add(-time.Minute),
		LastSeenAt: time.Now(),
	}, nil)
	repo.On("Delete", ctx, "expired").Return(nil)

	_, err := svc.Get(ctx, "expired")
	assert.ErrorIs(t, err, ErrSessionExpired)
	repo.AssertExpectations(t)

	repo = new(mockRepo)
	svc = NewService(repo, time.Hour, 30*time.Minute)
	repo.On("Get", ctx, "idle").Return(&Session{
		ID:         "idle",
		ExpiresAt:  time.Now().Add(time.Hour),
		LastSeenAt: time.Now().Add(-time.Hour),
	}, nil)
	repo.On("Delete", ctx, "idle").Return(nil)

	_, err = svc.Get(ctx, "idle")
	assert.ErrorIs(t, err, ErrSessionExpired)
	repo.AssertExpectations(t)

	repo = new(mockRepo)
	svc = NewService(repo, time.Hour, 30*time.Minute)
	stale := time.Now().Add(-time.Minute)
	repo.On("Get", ctx, "live").Return(&Session{
		ID:         "live",
		ExpiresAt:  time.Now().Add(time.Hour),
		LastSeenAt: stale,
	}, nil)
	repo.On("Update", ctx, mock.MatchedBy(func(s *Session) bool {
		return s.LastSeenAt.After(stale)
	})).Return(nil)

	sess, err := svc.Get(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "live", sess.ID)
	repo.AssertExpectations(t)
}

func TestDestroyByUser(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo, time.Hour, 30*time.Minute)
	ctx := context.Background()

	repo.On("DeleteByUserID", ctx, "u-1").Return(nil)
	assert.NoError(t, svc.DestroyByUser(ctx, "u-1"))
	repo.AssertExpectations(t)
}
