package identity

import (
	"context"
	"testing"
	"time"

	"github.com/cruxhq/crux/internal/audit"
	"github.com/cruxhq/crux/internal/authz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) AddCredentials(ctx context.Context, credentials *Credentials) error {
	args := m.Called(ctx, credentials)
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *mockUserRepo) List(ctx context.Context, tenantID *string, search string, limit, offset int) ([]*User, error) {
	args := m.Called(ctx, tenantID, search, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*User), args.Error(1)
}

func (m *mockUserRepo) CountByRole(ctx context.Context, role string) (int, error) {
	args := m.Called(ctx, role)
	return args.Int(0), args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, user *User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) UpdateRole(ctx context.Context, userID, role string) error {
	args := m.Called(ctx, userID, role)
	return args.Error(0)
}

func (m *mockUserRepo) UpdateLockout(ctx context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error {
	args := m.Called(ctx, userID, failedAttempts, lockedUntil)
	return args.Error(0)
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUserRepo) GetCredentials(ctx context.Context, userID string) (*Credentials, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Credentials), args.Error(1)
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, userID string, passwordHash string) error {
	args := m.Called(ctx, userID, passwordHash)
	return args.Error(0)
}

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) Log(ctx context.Context, event audit.Event) {
	m.Called(ctx, event)
}

func testHasher() *PasswordHasher {
	// Deliberately weak parameters to keep tests fast
	return NewPasswordHasher(1024, 1, 1, 16, 32)
}

func newTestService(repo *mockUserRepo) (*Service, *mockAudit) {
	auditLogger := new(mockAudit)
	auditLogger.On("Log", mock.Anything, mock.Anything).Maybe()
	return NewService(repo, testHasher(), auditLogger, 3, 15*time.Minute), auditLogger
}

// TestPurpose: Validates identity provisioning input rules.
// Scope: Unit Test
// Expected: invalid emails and roles are rejected; tenant-scoped roles
// require a tenant; duplicate emails are rejected.
// Test Case ID: ID-01
func TestProvisionIdentity_Validation(t *testing.T) {
	repo := new(mockUserRepo)
	svc, _ := newTestService(repo)
	ctx := context.Background()
	tid := "tenant-1"

	_, err := svc.ProvisionIdentity(ctx, &tid, "not-an-email", authz.RoleUser, "")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.ProvisionIdentity(ctx, &tid, "a@b.co", "owner", "")
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.ProvisionIdentity(ctx, nil, "a@b.co", authz.RoleTenantAdmin, "")
	assert.ErrorIs(t, err, ErrInvalidRole)

	repo.On("GetByEmail", ctx, "taken@b.co").Return(&User{ID: "u-1"}, nil)
	_, err = svc.ProvisionIdentity(ctx, &tid, "taken@b.co", authz.RoleUser, "")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestProvisionIdentity_LowercasesEmail(t *testing.T) {
	repo := new(mockUserRepo)
	svc, _ := newTestService(repo)
	ctx := context.Background()
	tid := "tenant-1"

	repo.On("GetByEmail", ctx, "Mixed@Case.Co").Return(nil, ErrUserNotFound)
	repo.On("Create", ctx, mock.MatchedBy(func(u *User) bool {
		return u.Email == "mixed@case.co" && u.Role == authz.RoleUser && u.ID != ""
	})).Return(nil)

	user, err := svc.ProvisionIdentity(ctx, &tid, "Mixed@Case.Co", authz.RoleUser, "Mixed")
	assert.NoError(t, err)
	assert.Equal(t, "mixed@case.co", user.Email)
	repo.AssertExpectations(t)
}

// TestPurpose: Validates account lockout after repeated failed logins.
// Scope: Unit Test
// Security: Credential stuffing mitigation
// Expected: The attempt that reaches the max sets locked_until; a locked
// account is rejected before password verification.
// Test Case ID: ID-02
func TestAuthenticate_Lockout(t *testing.T) {
	repo := new(mockUserRepo)
	svc, _ := newTestService(repo)
	ctx := context.Background()

	hash, err := testHasher().Hash("correct-password")
	assert.NoError(t, err)

	tid := "tenant-1"
	user := &User{ID: "u-1", TenantID: &tid, Email: "a@b.co", Role: authz.RoleUser, FailedLoginAttempts: 2}

	repo.On("GetByEmail", ctx, "a@b.co").Return(user, nil)
	repo.On("GetCredentials", ctx, "u-1").Return(&Credentials{UserID: "u-1", PasswordHash: hash}, nil)
	repo.On("UpdateLockout", ctx, "u-1", 3, mock.MatchedBy(func(until *time.Time) bool {
		return until != nil && until.After(time.Now())
	})).Return(nil)

	_, err = svc.Authenticate(ctx, "a@b.co", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	repo.AssertExpectations(t)

	// A locked account short-circuits
	until := time.Now().Add(10 * time.Minute)
	user.LockedUntil = &until
	_, err = svc.Authenticate(ctx, "a@b.co", "correct-password")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestAuthenticate_SuccessResetsAttempts(t *testing.T) {
	repo := new(mockUserRepo)
	svc, _ := newTestService(repo)
	ctx := context.Background()

	hash, err := testHasher().Hash("correct-password")
	assert.NoError(t, err)

	tid := "tenant-1"
	user := &User{ID: "u-1", TenantID: &tid, Email: "a@b.co", FailedLoginAttempts: 2}

	repo.On("GetByEmail", ctx, "a@b.co").Return(user, nil)
	repo.On("GetCredentials", ctx, "u-1").Return(&Credentials{UserID: "u-1", PasswordHash: hash}, nil)
	repo.On("UpdateLockout", ctx, "u-1", 0, (*time.Time)(nil)).Return(nil)

	got, err := svc.Authenticate(ctx, "a@b.co", "correct-password")
	assert.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	repo.AssertExpectations(t)
}

// TestPurpose: Validates that promoting a user twice converges on the same
// end state. The second write is redundant but harmless.
// Scope: Unit Test
// Test Case ID: ID-03
func TestSetRole_Idempotent(t *testing.T) {
	repo := new(mockUserRepo)
	svc, _ := newTestService(repo)
	ctx := context.Background()

	user := &User{ID: "u-1", Email: "a@b.co", Role: authz.RoleUser}
	repo.On("GetByID", ctx, "u-1").Return(user, nil)
	repo.On("UpdateRole", ctx, "u-1", authz.RoleSuperAdmin).Return(nil).Twice()

	assert.NoError(t, svc.SetRole(ctx, "u-1", authz.RoleSuperAdmin, "admin-1"))
	user.Role = authz.RoleSuperAdmin
	assert.NoError(t, svc.SetRole(ctx, "u-1", authz.RoleSuperAdmin, "admin-1"))

	repo.AssertExpectations(t)
}

func TestSetRole_RejectsUnknownRole(t *testing.T) {
	repo := new(mockUserRepo)
	svc, _ := newTestService(repo)

	err := svc.SetRole(context.Background(), "u-1", "owner", "admin-1")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestChangePassword_RequiresOldPassword(t *testing.T) {
	repo := new(mockUserRepo)
	svc, _ := newTestService(repo)
	ctx := context.Background()

	hash, err := testHasher().Hash("old-password")
	assert.NoError(t, err)

	repo.On("GetCredentials", ctx, "u-1").Return(&Credentials{UserID: "u-1", PasswordHash: hash}, nil)

	err = svc.ChangePassword(ctx, "u-1", "wrong", "new-password-123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = svc.ChangePassword(ctx, "u-1", "old-password", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	repo.On("UpdatePassword", ctx, "u-1", mock.AnythingOfType("string")).Return(nil)
	err = svc.ChangePassword(ctx, "u-1", "old-password", "new-password-123")
	assert.NoError(t, err)
}

func TestPasswordHasher_RoundTrip(t *testing.T) {
	h := testHasher()

	hash, err := h.Hash("s3cret-password")
	assert.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	ok, err := h.Verify("s3cret-password", hash)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong-password", hash)
	assert.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Verify("anything", "not-a-hash")
	assert.Error(t, err)
}
