package tenant

import (
	"context"
	"errors"

	"github.com/cruxhq/crux/internal/identity"
)

var (
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrTenantAlreadyExists = errors.New("tenant already exists")
	ErrSettingsNotFound    = errors.New("business settings not found")
	ErrInvalidStatus       = errors.New("invalid tenant status")
)

// Repository defines the interface for tenant storage
type Repository interface {
	Create(ctx context.Context, tenant *Tenant) error

	// CreateWithOwner creates the tenant, its initial admin profile and the
	// admin credentials in a single transaction. Either all three rows land
	// or none do.
	CreateWithOwner(ctx context.Context, tenant *Tenant, owner *identity.User, credentials *identity.Credentials) error

	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetByDomain(ctx context.Context, domain string) (*Tenant, error)
	List(ctx context.Context, search string, limit, offset int) ([]*Tenant, error)
	Update(ctx context.Context, tenant *Tenant) error
	SetStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
}

// SettingsRepository defines the interface for business settings storage
type SettingsRepository interface {
	Get(ctx context.Context, tenantID string) (*BusinessSettings, error)
	Upsert(ctx context.Context, settings *BusinessSettings) error
}
