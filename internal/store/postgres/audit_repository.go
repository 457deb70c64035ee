// Copyright 2026 The Crux Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cruxhq/crux/internal/audit"
)

// AuditRepository implements audit.Repository against the append-only
// audit_log table.
type AuditRepository struct {
	db *DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert appends an audit record
func (r *AuditRepository) Insert(ctx context.Context, record *audit.Record) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO audit_log (id, tenant_id, actor_id, action, resource, details, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		record.ID, nullString(record.TenantID), record.ActorID, record.Action,
		record.Resource, record.Details, record.IPAddress, record.UserAgent, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

// ListByTenant retrieves a tenant's audit records, newest first
func (r *AuditRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*audit.Record, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, tenant_id, actor_id, action, resource, details, ip_address, user_agent, created_at
		FROM audit_log
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer rows.Close()

	var records []*audit.Record
	for rows.Next() {
		var record audit.Record
		var tid sql.NullString

		err := rows.Scan(
			&record.ID, &tid, &record.ActorID, &record.Action, &record.Resource,
			&record.Details, &record.IPAddress, &record.UserAgent, &record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}

		record.TenantID = tid.String
		records = append(records, &record)
	}

	return records, rows.Err()
}
