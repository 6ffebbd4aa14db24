package dto

import (
	"time"

	"github.com/google/uuid"

	keychainDomain "github.com/allisson/envie/internal/keychain/domain"
	projectDomain "github.com/allisson/envie/internal/project/domain"
	projectUseCase "github.com/allisson/envie/internal/project/usecase"
)

// ProjectResponse represents project metadata in API responses.
type ProjectResponse struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
	KeyVersion     uint      `json:"key_version"`
	ConfigChecksum *string   `json:"config_checksum,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MapProjectToResponse converts a domain project to a response DTO.
func MapProjectToResponse(project *projectDomain.Project) *ProjectResponse {
	return &ProjectResponse{
		ID:             project.ID,
		OrganizationID: project.OrganizationID,
		Name:           project.Name,
		KeyVersion:     project.KeyVersion,
		ConfigChecksum: project.ConfigChecksum,
		CreatedAt:      project.CreatedAt,
		UpdatedAt:      project.UpdatedAt,
	}
}

// AccessResponse carries the wrapped keys for one user's path to a project
// key. Every field is ciphertext the caller decrypts locally.
type AccessResponse struct {
	EncryptedTeamKey    *string `json:"encrypted_team_key,omitempty"`
	EncryptedOrgKey     *string `json:"encrypted_org_key,omitempty"`
	TeamKeyUnderOrg     *string `json:"team_key_under_org,omitempty"`
	EncryptedProjectKey string  `json:"encrypted_project_key"`
}

// MapAccessToResponse converts a domain access path to a response DTO.
func MapAccessToResponse(access *keychainDomain.ProjectAccess) *AccessResponse {
	return &AccessResponse{
		EncryptedTeamKey:    access.EncryptedTeamKey,
		EncryptedOrgKey:     access.EncryptedOrgKey,
		TeamKeyUnderOrg:     access.TeamKeyUnderOrg,
		EncryptedProjectKey: access.EncryptedProjectKey,
	}
}

// ConfigItemResponse represents one encrypted config value.
type ConfigItemResponse struct {
	ID              uuid.UUID `json:"id"`
	ProjectID       uuid.UUID `json:"project_id"`
	Name            string    `json:"name"`
	ValueCiphertext string    `json:"value_ciphertext"`
	Position        int       `json:"position"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ListConfigItemsResponse represents a list of config items in persisted order.
type ListConfigItemsResponse struct {
	Items []*ConfigItemResponse `json:"items"`
}

// MapConfigItemToResponse converts a domain config item to a response DTO.
func MapConfigItemToResponse(item *projectDomain.ConfigItem) *ConfigItemResponse {
	return &ConfigItemResponse{
		ID:              item.ID,
		ProjectID:       item.ProjectID,
		Name:            item.Name,
		ValueCiphertext: item.ValueCiphertext,
		Position:        item.Position,
		CreatedAt:       item.CreatedAt,
		UpdatedAt:       item.UpdatedAt,
	}
}

// MapConfigItemsToListResponse converts domain config items to a list response DTO.
func MapConfigItemsToListResponse(items []*projectDomain.ConfigItem) *ListConfigItemsResponse {
	response := &ListConfigItemsResponse{Items: make([]*ConfigItemResponse, 0, len(items))}
	for _, item := range items {
		response.Items = append(response.Items, MapConfigItemToResponse(item))
	}
	return response
}

// FileResponse represents one encrypted file record.
type FileResponse struct {
	ID               uuid.UUID `json:"id"`
	ProjectID        uuid.UUID `json:"project_id"`
	Name             string    `json:"name"`
	SizeBytes        int64     `json:"size_bytes"`
	EncryptedFileKey string    `json:"encrypted_file_key"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ListFilesResponse represents a list of file records.
type ListFilesResponse struct {
	Files []*FileResponse `json:"files"`
}

// MapFileToResponse converts a domain project file to a response DTO.
func MapFileToResponse(file *projectDomain.ProjectFile) *FileResponse {
	return &FileResponse{
		ID:               file.ID,
		ProjectID:        file.ProjectID,
		Name:             file.Name,
		SizeBytes:        file.SizeBytes,
		EncryptedFileKey: file.EncryptedFileKey,
		CreatedAt:        file.CreatedAt,
		UpdatedAt:        file.UpdatedAt,
	}
}

// MapFilesToListResponse converts domain project files to a list response DTO.
func MapFilesToListResponse(files []*projectDomain.ProjectFile) *ListFilesResponse {
	response := &ListFilesResponse{Files: make([]*FileResponse, 0, len(files))}
	for _, file := range files {
		response.Files = append(response.Files, MapFileToResponse(file))
	}
	return response
}

// SnapshotResponse is the full ciphertext state of a project, served to
// project-scoped CLI identities.
type SnapshotResponse struct {
	Project *ProjectResponse      `json:"project"`
	Items   []*ConfigItemResponse `json:"items"`
	Files   []*FileResponse       `json:"files"`
}

// MapSnapshotToResponse converts a project snapshot to a response DTO.
func MapSnapshotToResponse(snapshot *projectUseCase.ProjectSnapshot) *SnapshotResponse {
	return &SnapshotResponse{
		Project: MapProjectToResponse(snapshot.Project),
		Items:   MapConfigItemsToListResponse(snapshot.Items).Items,
		Files:   MapFilesToListResponse(snapshot.Files).Files,
	}
}
