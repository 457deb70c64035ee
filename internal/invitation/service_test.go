package invitation

import (
	"context"
	"testing"
	"time"

	"github.com/cruxhq/crux/internal/audit"
	"github.com/cruxhq/crux/internal/authz"
	"github.com/cruxhq/crux/internal/identity"
	"github.com/cruxhq/crux/internal/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates the invitation validity predicate.
// Scope: Unit Test
// Expected: valid iff used_at is null AND expires_at is strictly in the
// future; marking used invalidates even an unexpired invitation.
// Test Case ID: INV-01
func TestInvitation_Valid(t *testing.T) {
	inv := &Invitation{
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}
	assert.True(t, inv.Valid())

	now := time.Now()
	inv.UsedAt = &now
	assert.False(t, inv.Valid(), "used invitation is invalid even if not expired")

	expired := &Invitation{ExpiresAt: time.Now().Add(-time.Minute)}
	assert.False(t, expired.Valid())
}

// In-memory fakes. The invitation flow crosses into identity provisioning,
// so the test wires a real identity.Service over fake storage.

type memInviteRepo struct {
	byID map[string]*Invitation
}

func newMemInviteRepo() *memInviteRepo {
	return &memInviteRepo{byID: make(map[string]*Invitation)}
}

func (r *memInviteRepo) Create(ctx context.Context, inv *Invitation) error {
	cp := *inv
	r.byID[inv.ID] = &cp
	return nil
}

func (r *memInviteRepo) GetByID(ctx context.Context, id string) (*Invitation, error) {
	inv, ok := r.byID[id]
	if !ok {
		return nil, ErrInvitationNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *memInviteRepo) GetByToken(ctx context.Context, token string) (*Invitation, error) {
	for _, inv := range r.byID {
		if inv.Token == token {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, ErrInvitationNotFound
}

func (r *memInviteRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*Invitation, error) {
	var out []*Invitation
	for _, inv := range r.byID {
		if inv.TenantID == tenantID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memInviteRepo) MarkUsed(ctx context.Context, id string) error {
	inv, ok := r.byID[id]
	if !ok {
		return ErrInvitationNotFound
	}
	if inv.UsedAt != nil {
		return ErrInvitationUsed
	}
	now := time.Now()
	inv.UsedAt = &now
	return nil
}

func (r *memInviteRepo) Release(ctx context.Context, id string) error {
	inv, ok := r.byID[id]
	if !ok {
		return ErrInvitationNotFound
	}
	inv.UsedAt = nil
	return nil
}

func (r *memInviteRepo) Delete(ctx context.Context, id string) error {
	delete(r.byID, id)
	return nil
}

type memUserRepo struct {
	byEmail map[string]*identity.User
	creds   map[string]*identity.Credentials
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		byEmail: make(map[string]*identity.User),
		creds:   make(map[string]*identity.Credentials),
	}
}

func (r *memUserRepo) Create(ctx context.Context, u *identity.User) error {
	r.byEmail[u.Email] = u
	return nil
}

func (r *memUserRepo) AddCredentials(ctx context.Context, c *identity.Credentials) error {
	r.creds[c.UserID] = c
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*identity.User, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return u, nil
}

func (r *memUserRepo) List(ctx context.Context, tenantID *string, search string, limit, offset int) ([]*identity.User, error) {
	return nil, nil
}

func (r *memUserRepo) CountByRole(ctx context.Context, role string) (int, error) { return 0, nil }

func (r *memUserRepo) Update(ctx context.Context, u *identity.User) error { return nil }

func (r *memUserRepo) UpdateRole(ctx context.Context, userID, role string) error { return nil }

func (r *memUserRepo) UpdateLockout(ctx context.Context, userID string, attempts int, until *time.Time) error {
	return nil
}

func (r *memUserRepo) Delete(ctx context.Context, id string) error { return nil }

func (r *memUserRepo) GetCredentials(ctx context.Context, userID string) (*identity.Credentials, error) {
	c, ok := r.creds[userID]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return c, nil
}

func (r *memUserRepo) UpdatePassword(ctx context.Context, userID, hash string) error { return nil }

type captureSender struct {
	messages []mail.Message
}

func (s *captureSender) Send(ctx context.Context, msg mail.Message) error {
	s.messages = append(s.messages, msg)
	return nil
}

func newTestService(t *testing.T) (*Service, *memInviteRepo, *captureSender) {
	t.Helper()
	repo := newMemInviteRepo()
	hasher := identity.NewPasswordHasher(1024, 1, 1, 16, 32)
	identities := identity.NewService(newMemUserRepo(), hasher, audit.NewSlogLogger(), 5, 15*time.Minute)
	issuer := identity.NewTokenIssuer("invite-test-secret", nil)
	sender := &captureSender{}
	svc := NewService(repo, identities, issuer, sender, mail.NewBuilder("https://app.crux.test"), audit.NewSlogLogger(), DefaultTTL)
	return svc, repo, sender
}

// TestPurpose: Validates the full invite-accept flow and its at-most-once
// consumption guarantee.
// Scope: Unit Test
// Security: Invitation replay prevention
// Expected: Accept provisions the invited user with the granted role in the
// right tenant; a second accept of the same token fails with
// ErrInvitationUsed.
// Test Case ID: INV-02
func TestInvitation_AcceptOnce(t *testing.T) {
	svc, _, sender := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, "t-1", "Acme", "new@acme.test", authz.RoleUser, "admin-1")
	require.NoError(t, err)
	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0].Body, "token=")

	// Pull the signed token out of the emailed link
	body := sender.messages[0].Body
	signed := body[lastIndex(body, "token=")+len("token="):]

	user, err := svc.Accept(ctx, signed, "invited-password", "New User")
	require.NoError(t, err)
	assert.Equal(t, "new@acme.test", user.Email)
	assert.Equal(t, authz.RoleUser, user.Role)
	require.NotNil(t, user.TenantID)
	assert.Equal(t, "t-1", *user.TenantID)
	assert.True(t, user.EmailVerified)

	_, err = svc.Accept(ctx, signed, "other-password", "Imposter")
	assert.ErrorIs(t, err, ErrInvitationUsed)

	// Row state matches
	stored, err := svc.repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.UsedAt)
}

// TestPurpose: Validates that a rejected accept does not consume the
// invitation.
// Scope: Unit Test
// Expected: accepting with a weak password fails with ErrWeakPassword and
// leaves used_at null; a retry with a valid password then succeeds.
// Test Case ID: INV-03
func TestInvitation_FailedAcceptKeepsInvitation(t *testing.T) {
	svc, repo, sender := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, "t-1", "Acme", "retry@acme.test", authz.RoleUser, "admin-1")
	require.NoError(t, err)

	body := sender.messages[0].Body
	signed := body[lastIndex(body, "token=")+len("token="):]

	_, err = svc.Accept(ctx, signed, "short", "Retry User")
	require.ErrorIs(t, err, identity.ErrWeakPassword)

	stored, err := repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	require.Nil(t, stored.UsedAt, "a failed accept must not consume the invitation")

	// Nothing was provisioned either
	_, err = svc.identities.GetByEmail(ctx, "retry@acme.test")
	assert.ErrorIs(t, err, identity.ErrUserNotFound)

	user, err := svc.Accept(ctx, signed, "retry-password-1", "Retry User")
	require.NoError(t, err)
	assert.Equal(t, "retry@acme.test", user.Email)
}

func lastIndex(s, sub string) int {
	for i := len(s) - len(sub); i >= 0; i-- {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestInvitation_CreateRejectsSuperAdmin(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "t-1", "Acme", "x@acme.test", authz.RoleSuperAdmin, "admin-1")
	assert.ErrorIs(t, err, ErrInvalidInviteRole)
}

func TestInvitation_CreateRejectsExistingUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tid := "t-1"
	_, err := svc.identities.ProvisionIdentity(ctx, &tid, "taken@acme.test", authz.RoleUser, "")
	require.NoError(t, err)

	_, err = svc.Create(ctx, "t-1", "Acme", "taken@acme.test", authz.RoleUser, "admin-1")
	assert.ErrorIs(t, err, identity.ErrUserAlreadyExists)
}

func TestInvitation_InspectExpired(t *testing.T) {
	svc, repo, sender := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "t-1", "Acme", "late@acme.test", authz.RoleUser, "admin-1")
	require.NoError(t, err)

	// Force the row past its expiry; the JWT itself is still valid
	for _, inv := range repo.byID {
		inv.ExpiresAt = time.Now().Add(-time.Hour)
	}

	body := sender.messages[0].Body
	signed := body[lastIndex(body, "token=")+len("token="):]

	_, err = svc.Inspect(ctx, signed)
	assert.ErrorIs(t, err, ErrInvitationExpired)
}

func TestInvitation_RevokeScopedToTenant(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, "t-1", "Acme", "r@acme.test", authz.RoleUser, "admin-1")
	require.NoError(t, err)

	// Another tenant cannot revoke it
	err = svc.Revoke(ctx, inv.ID, "t-2", "admin-2")
	assert.ErrorIs(t, err, ErrInvitationNotFound)

	assert.NoError(t, svc.Revoke(ctx, inv.ID, "t-1", "admin-1"))
	_, err = svc.ListByTenant(ctx, "t-1", 50, 0)
	assert.NoError(t, err)
}
