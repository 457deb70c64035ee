package review

import (
	"context"
	"testing"
	"time"

	"github.com/cruxhq/crux/internal/audit"
	"github.com/cruxhq/crux/internal/plan"
	"github.com/cruxhq/crux/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, r *Review) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Review), args.Error(1)
}

func (m *mockRepo) ListByTenant(ctx context.Context, tenantID string, filter ListFilter) ([]*Review, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Review), args.Error(1)
}

func (m *mockRepo) CountByTenantSince(ctx context.Context, tenantID string, since time.Time) (int, error) {
	args := m.Called(ctx, tenantID, since)
	return args.Int(0), args.Error(1)
}

func (m *mockRepo) SetFlagged(ctx context.Context, id string, flagged bool) error {
	args := m.Called(ctx, id, flagged)
	return args.Error(0)
}

func (m *mockRepo) SetArchived(ctx context.Context, id string, archived bool) error {
	args := m.Called(ctx, id, archived)
	return args.Error(0)
}

func (m *mockRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type fakeTenants struct {
	tenants map[string]*tenant.Tenant
}

func (f *fakeTenants) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	tn, ok := f.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return tn, nil
}

func newTestService(repo *mockRepo, tenants map[string]*tenant.Tenant) *Service {
	return NewService(repo, &fakeTenants{tenants: tenants}, NewBroker(), audit.NewSlogLogger())
}

func activeTenant(id, tier string) *tenant.Tenant {
	return &tenant.Tenant{ID: id, Name: "Acme", Status: tenant.StatusActive, Plan: tier}
}

func TestSubmit_Validation(t *testing.T) {
	svc := newTestService(new(mockRepo), map[string]*tenant.Tenant{
		"t-1": activeTenant("t-1", plan.TierFree),
	})
	ctx := context.Background()

	_, err := svc.Submit(ctx, "t-1", SubmitParams{CustomerName: "  ", Rating: 4})
	assert.ErrorIs(t, err, ErrMissingCustomer)

	_, err = svc.Submit(ctx, "t-1", SubmitParams{CustomerName: "Jo", Rating: 0})
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = svc.Submit(ctx, "t-1", SubmitParams{CustomerName: "Jo", Rating: 6})
	assert.ErrorIs(t, err, ErrInvalidRating)
}

// TestPurpose: Validates that suspended tenants stop accepting public
// review submissions.
// Scope: Unit Test
// Expected: Submit fails with ErrTenantInactive and never touches storage.
// Test Case ID: REV-01
func TestSubmit_SuspendedTenant(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo, map[string]*tenant.Tenant{
		"t-1": {ID: "t-1", Status: tenant.StatusSuspended, Plan: plan.TierFree},
	})

	_, err := svc.Submit(context.Background(), "t-1", SubmitParams{CustomerName: "Jo", Rating: 5})
	assert.ErrorIs(t, err, ErrTenantInactive)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// TestPurpose: Validates plan-limit enforcement on submission.
// Scope: Unit Test
// Expected: At the free tier's monthly cap the submission is rejected;
// one below the cap it is accepted.
// Test Case ID: REV-02
func TestSubmit_PlanLimit(t *testing.T) {
	ctx := context.Background()

	repo := new(mockRepo)
	svc := newTestService(repo, map[string]*tenant.Tenant{
		"t-1": activeTenant("t-1", plan.TierFree),
	})
	repo.On("CountByTenantSince", ctx, "t-1", mock.Anything).Return(50, nil)

	_, err := svc.Submit(ctx, "t-1", SubmitParams{CustomerName: "Jo", Rating: 5})
	assert.ErrorIs(t, err, ErrPlanLimitReached)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	repo = new(mockRepo)
	svc = newTestService(repo, map[string]*tenant.Tenant{
		"t-1": activeTenant("t-1", plan.TierFree),
	})
	repo.On("CountByTenantSince", ctx, "t-1", mock.Anything).Return(49, nil)
	repo.On("Create", ctx, mock.MatchedBy(func(r *Review) bool {
		return r.TenantID == "t-1" && r.Rating == 5 && !r.Flagged && !r.Archived
	})).Return(nil)

	r, err := svc.Submit(ctx, "t-1", SubmitParams{CustomerName: "Jo", Rating: 5})
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	repo.AssertExpectations(t)
}

func TestSubmit_EnterpriseUnlimited(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	svc := newTestService(repo, map[string]*tenant.Tenant{
		"t-1": activeTenant("t-1", plan.TierEnterprise),
	})
	repo.On("CountByTenantSince", ctx, "t-1", mock.Anything).Return(100000, nil)
	repo.On("Create", ctx, mock.Anything).Return(nil)

	_, err := svc.Submit(ctx, "t-1", SubmitParams{CustomerName: "Jo", Rating: 3})
	assert.NoError(t, err)
}

func TestUsage_UpgradeSuggestion(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	svc := newTestService(repo, map[string]*tenant.Tenant{
		"t-1": activeTenant("t-1", plan.TierFree),
	})
	repo.On("CountByTenantSince", ctx, "t-1", mock.Anything).Return(40, nil)

	usage, err := svc.UsageByTenantID(ctx, "t-1")
	require.NoError(t, err)
	assert.True(t, usage.Allowed)
	assert.True(t, usage.UpgradeSuggested)
	assert.Equal(t, plan.TierStarter, usage.SuggestedTier)
}

// TestPurpose: Validates tenant scoping on single-review reads.
// Scope: Unit Test
// Security: Cross-tenant data isolation
// Expected: A review owned by another tenant reads as not found.
// Test Case ID: REV-03
func TestGet_ScopedToTenant(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	svc := newTestService(repo, nil)

	repo.On("GetByID", ctx, "r-1").Return(&Review{ID: "r-1", TenantID: "t-other"}, nil)

	_, err := svc.Get(ctx, "r-1", "t-1")
	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestSetFlagged_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	svc := newTestService(repo, nil)

	repo.On("GetByID", ctx, "r-1").Return(&Review{ID: "r-1", TenantID: "t-1", Flagged: true}, nil)

	// Already flagged; no storage write happens
	r, err := svc.SetFlagged(ctx, "r-1", "t-1", true, "admin-1")
	require.NoError(t, err)
	assert.True(t, r.Flagged)
	repo.AssertNotCalled(t, "SetFlagged", mock.Anything, mock.Anything, mock.Anything)
}

func TestList_DefaultsToLiveReviews(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	svc := newTestService(repo, nil)

	repo.On("ListByTenant", ctx, "t-1", mock.MatchedBy(func(f ListFilter) bool {
		return f.Archived != nil && !*f.Archived && f.Limit == 50
	})).Return([]*Review{}, nil)

	_, err := svc.List(ctx, "t-1", ListFilter{})
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
