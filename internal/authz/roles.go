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

package authz

// -----------------------------------------------------------------------------
// Role Name Constants
// These are the canonical role names stored on the profiles table.
// -----------------------------------------------------------------------------

const (
	// RoleSuperAdmin is the platform-wide administrator role.
	// Scope: Platform (tenant_id is NULL)
	RoleSuperAdmin = "super_admin"

	// RoleTenantAdmin is the tenant administrator role.
	// Scope: Tenant
	RoleTenantAdmin = "tenant_admin"

	// RoleUser is a basic tenant membership role.
	// Scope: Tenant
	RoleUser = "user"
)

// rank orders roles from least to most privileged. Higher rank satisfies
// lower rank requirements.
var rank = map[string]int{
	RoleUser:        1,
	RoleTenantAdmin: 2,
	RoleSuperAdmin:  3,
}

// IsValid reports whether role is one of the three canonical roles.
func IsValid(role string) bool {
	_, ok := rank[role]
	return ok
}

// Satisfies reports whether a user holding userRole meets the requirement
// of required:
//   - super_admin satisfies every requirement
//   - tenant_admin satisfies tenant_admin and user
//   - user satisfies only user
//
// Unknown roles never satisfy anything.
func Satisfies(userRole, required string) bool {
	ur, ok := rank[userRole]
	if !ok {
		return false
	}
	rr, ok := rank[required]
	if !ok {
		return false
	}
	return ur >= rr
}

// SatisfiesAny reports whether userRole satisfies at least one of the
// required roles.
func SatisfiesAny(userRole string, required ...string) bool {
	for _, r := range required {
		if Satisfies(userRole, r) {
			return true
		}
	}
	return false
}
