package tenant

import (
	"context"
	"testing"

	"github.com/cruxhq/crux/internal/audit"
	"github.com/cruxhq/crux/internal/authz"
	"github.com/cruxhq/crux/internal/identity"
	"github.com/cruxhq/crux/internal/plan"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, t *Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockRepo) CreateWithOwner(ctx context.Context, t *Tenant, owner *identity.User, credentials *identity.Credentials) error {
	args := m.Called(ctx, t, owner, credentials)
	return args.Error(0)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *mockRepo) GetByDomain(ctx context.Context, domain string) (*Tenant, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *mockRepo) List(ctx context.Context, search string, limit, offset int) ([]*Tenant, error) {
	args := m.Called(ctx, search, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Tenant), args.Error(1)
}

func (m *mockRepo) Update(ctx context.Context, t *Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockRepo) SetStatus(ctx context.Context, id, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockSettingsRepo struct {
	mock.Mock
}

func (m *mockSettingsRepo) Get(ctx context.Context, tenantID string) (*BusinessSettings, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*BusinessSettings), args.Error(1)
}

func (m *mockSettingsRepo) Upsert(ctx context.Context, settings *BusinessSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) Log(ctx context.Context, event audit.Event) {
	m.Called(ctx, event)
}

func testHasher() *identity.PasswordHasher {
	return identity.NewPasswordHasher(1024, 1, 1, 16, 32)
}

func newTestService(repo *mockRepo, settings *mockSettingsRepo) *Service {
	auditLogger := new(mockAudit)
	auditLogger.On("Log", mock.Anything, mock.Anything).Maybe()
	return NewService(repo, settings, testHasher(), auditLogger)
}

// TestPurpose: Validates that tenant provisioning creates the tenant and its
// initial admin in a single repository call (one transaction), with the
// owner scoped to the new tenant.
// Scope: Unit Test
// Expected: Tenant is active on the requested plan; the owner carries
// tenant_admin and the new tenant's id; credentials are hashed.
// Test Case ID: TEN-01
func TestCreateTenant_WithOwner(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo, new(mockSettingsRepo))
	ctx := context.Background()

	repo.On("GetByDomain", ctx, "acme.example.com").Return(nil, ErrTenantNotFound)
	repo.On("CreateWithOwner", ctx,
		mock.MatchedBy(func(tn *Tenant) bool {
			_, err := uuid.Parse(tn.ID)
			return err == nil && tn.Status == StatusActive && tn.Plan == plan.TierStarter
		}),
		mock.MatchedBy(func(u *identity.User) bool {
			return u.Role == authz.RoleTenantAdmin && u.TenantID != nil && u.Email == "owner@acme.example.com"
		}),
		mock.MatchedBy(func(c *identity.Credentials) bool {
			return c != nil && c.PasswordHash != "" && c.PasswordHash != "owner-password"
		}),
	).Return(nil)

	tn, owner, err := svc.CreateTenant(ctx, CreateParams{
		Name:          "Acme",
		Domain:        "acme.example.com",
		Plan:          plan.TierStarter,
		OwnerEmail:    "owner@acme.example.com",
		OwnerPassword: "owner-password",
	}, "admin-1")

	assert.NoError(t, err)
	assert.NotNil(t, tn)
	assert.Equal(t, tn.ID, *owner.TenantID)
	repo.AssertExpectations(t)
}

func TestCreateTenant_Validation(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo, new(mockSettingsRepo))
	ctx := context.Background()

	_, _, err := svc.CreateTenant(ctx, CreateParams{OwnerEmail: "a@b.co"}, "admin-1")
	assert.Error(t, err)

	_, _, err = svc.CreateTenant(ctx, CreateParams{Name: "Acme"}, "admin-1")
	assert.Error(t, err)

	_, _, err = svc.CreateTenant(ctx, CreateParams{Name: "Acme", OwnerEmail: "a@b.co", Plan: "platinum"}, "admin-1")
	assert.ErrorIs(t, err, plan.ErrUnknownTier)
}

func TestCreateTenant_DuplicateDomain(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo, new(mockSettingsRepo))
	ctx := context.Background()

	repo.On("GetByDomain", ctx, "taken.example.com").Return(&Tenant{ID: "t-1"}, nil)

	_, _, err := svc.CreateTenant(ctx, CreateParams{
		Name:       "Other",
		Domain:     "taken.example.com",
		OwnerEmail: "a@b.co",
	}, "admin-1")
	assert.ErrorIs(t, err, ErrTenantAlreadyExists)
}

func TestSetStatus(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo, new(mockSettingsRepo))
	ctx := context.Background()

	repo.On("SetStatus", ctx, "t-1", StatusSuspended).Return(nil)
	assert.NoError(t, svc.SetStatus(ctx, "t-1", StatusSuspended, "admin-1"))

	err := svc.SetStatus(ctx, "t-1", "disabled", "admin-1")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	repo.AssertExpectations(t)
}

func TestGetSettings_DefaultsWhenMissing(t *testing.T) {
	settingsRepo := new(mockSettingsRepo)
	svc := newTestService(new(mockRepo), settingsRepo)
	ctx := context.Background()

	settingsRepo.On("Get", ctx, "t-1").Return(nil, ErrSettingsNotFound)

	settings, err := svc.GetSettings(ctx, "t-1")
	assert.NoError(t, err)
	assert.Equal(t, "t-1", settings.TenantID)
	assert.Empty(t, settings.FormTitle)
}
