// Package domain defines the project-side domain models: organizations,
// teams, projects, config items and encrypted files. The server stores only
// wrapped keys and ciphertext; every value here is opaque to the server.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Project groups config items and files under one project key.
type Project struct {
	// ID is the unique identifier of the project.
	ID uuid.UUID
	// OrganizationID is the owning organization.
	OrganizationID uuid.UUID
	// Name is the human-readable project name.
	Name string
	// KeyVersion increments on every committed project key rotation.
	KeyVersion uint
	// ConfigChecksum is the hex SHA-256 over the canonical config item list,
	// nil until the first item is written.
	ConfigChecksum *string
	// CreatedAt is the UTC creation timestamp.
	CreatedAt time.Time
	// UpdatedAt is the UTC timestamp of the last modification.
	UpdatedAt time.Time
}

// ConfigItem is a single named config value, stored as ciphertext sealed
// under the project key. Position fixes the persisted order the checksum
// canonicalization depends on.
type ConfigItem struct {
	ID              uuid.UUID
	ProjectID       uuid.UUID
	Name            string
	ValueCiphertext string
	Position        int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ProjectFile is an encrypted file attached to a project. The content lives
// in external blob storage; the server keeps only the file encryption key
// wrapped under the project key.
type ProjectFile struct {
	ID               uuid.UUID
	ProjectID        uuid.UUID
	Name             string
	SizeBytes        int64
	EncryptedFileKey string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
