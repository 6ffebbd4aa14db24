package domain

import (
	"time"

	"github.com/google/uuid"
)

// Roles inside organizations and teams. Only organization admins and owners
// hold a wrapped copy of the organization key.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
	RoleOwner  = "owner"
)

// Organization is the root of the sharing hierarchy. Its key exists only in
// wrapped form on admin and owner memberships.
type Organization struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrganizationMember links a user to an organization. EncryptedOrgKey is the
// organization key wrapped to the user's master public key; nil for plain
// members.
type OrganizationMember struct {
	OrganizationID  uuid.UUID
	UserID          uuid.UUID
	Role            string
	EncryptedOrgKey *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Team holds a symmetric team key, stored wrapped under the organization key.
type Team struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	// EncryptedKey is the team key wrapped symmetrically under the
	// organization key.
	EncryptedKey string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TeamMember links a user to a team with the team key wrapped to the user's
// master public key.
type TeamMember struct {
	TeamID           uuid.UUID
	UserID           uuid.UUID
	Role             string
	EncryptedTeamKey string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TeamProject grants a team access to a project. EncryptedProjectKey is the
// project key wrapped symmetrically under the team key; rotation replaces it
// for every linked team in one transaction.
type TeamProject struct {
	TeamID              uuid.UUID
	ProjectID           uuid.UUID
	EncryptedProjectKey string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
