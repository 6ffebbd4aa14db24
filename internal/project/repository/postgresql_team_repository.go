package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/envie/internal/database"
	apperrors "github.com/allisson/envie/internal/errors"
	keychainDomain "github.com/allisson/envie/internal/keychain/domain"
	projectDomain "github.com/allisson/envie/internal/project/domain"
)

// PostgreSQLTeamRepository implements team, membership and access-path
// persistence for PostgreSQL.
type PostgreSQLTeamRepository struct {
	db *sql.DB
}

// GetProjectAccess collects the wrapped keys that could let one user reach
// one project's key. Direct team membership wins over the organization path
// when both exist.
func (p *PostgreSQLTeamRepository) GetProjectAccess(
	ctx context.Context,
	projectID, userID uuid.UUID,
) (*keychainDomain.ProjectAccess, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT tp.encrypted_project_key, tm.encrypted_team_key, om.encrypted_org_key, t.encrypted_key
			  FROM team_projects tp
			  JOIN teams t ON t.id = tp.team_id
			  LEFT JOIN team_members tm ON tm.team_id = tp.team_id AND tm.user_id = $2
			  LEFT JOIN organization_members om
				ON om.organization_id = t.organization_id
				AND om.user_id = $2
				AND om.encrypted_org_key IS NOT NULL
			  WHERE tp.project_id = $1
			  ORDER BY (tm.user_id IS NULL), (om.user_id IS NULL)
			  LIMIT 1`

	var (
		access          keychainDomain.ProjectAccess
		teamKeyUnderOrg string
	)
	err := querier.QueryRowContext(ctx, query, projectID, userID).Scan(
		&access.EncryptedProjectKey,
		&access.EncryptedTeamKey,
		&access.EncryptedOrgKey,
		&teamKeyUnderOrg,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "no access path for project")
		}
		return nil, apperrors.Wrap(err, "failed to get project access")
	}
	access.TeamKeyUnderOrg = &teamKeyUnderOrg

	return &access, nil
}

// ListTeamProjects returns every team grant for a project. The rotation
// snapshot must cover each one.
func (p *PostgreSQLTeamRepository) ListTeamProjects(
	ctx context.Context,
	projectID uuid.UUID,
) ([]*projectDomain.TeamProject, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT team_id, project_id, encrypted_project_key, created_at, updated_at
			  FROM team_projects
			  WHERE project_id = $1
			  ORDER BY team_id`

	rows, err := querier.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list team projects")
	}
	defer rows.Close()

	var grants []*projectDomain.TeamProject
	for rows.Next() {
		var grant projectDomain.TeamProject
		if err := rows.Scan(
			&grant.TeamID,
			&grant.ProjectID,
			&grant.EncryptedProjectKey,
			&grant.CreatedAt,
			&grant.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan team project")
		}
		grants = append(grants, &grant)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate team projects")
	}

	return grants, nil
}

// UpdateTeamProjectKey replaces the project key wrap for one team. Used by
// the rotation commit.
func (p *PostgreSQLTeamRepository) UpdateTeamProjectKey(
	ctx context.Context,
	teamID, projectID uuid.UUID,
	encryptedProjectKey string,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE team_projects
			  SET encrypted_project_key = $1, updated_at = $2
			  WHERE team_id = $3 AND project_id = $4`

	result, err := querier.ExecContext(ctx, query, encryptedProjectKey, time.Now().UTC(), teamID, projectID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update team project key")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check team project update")
	}
	if affected == 0 {
		return projectDomain.ErrTeamNotFound
	}

	return nil
}

// ListUserTeamMemberships returns every team membership of a user with its
// wrapped team key. Master key rotation must re-wrap each one.
func (p *PostgreSQLTeamRepository) ListUserTeamMemberships(
	ctx context.Context,
	userID uuid.UUID,
) ([]*projectDomain.TeamMember, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT team_id, user_id, role, encrypted_team_key, created_at, updated_at
			  FROM team_members
			  WHERE user_id = $1
			  ORDER BY team_id`

	rows, err := querier.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list team memberships")
	}
	defer rows.Close()

	var members []*projectDomain.TeamMember
	for rows.Next() {
		var member projectDomain.TeamMember
		if err := rows.Scan(
			&member.TeamID,
			&member.UserID,
			&member.Role,
			&member.EncryptedTeamKey,
			&member.CreatedAt,
			&member.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan team membership")
		}
		members = append(members, &member)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate team memberships")
	}

	return members, nil
}

// UpdateTeamMemberKey replaces the team key wrap of one membership. Used by
// the master key rotation commit.
func (p *PostgreSQLTeamRepository) UpdateTeamMemberKey(
	ctx context.Context,
	teamID, userID uuid.UUID,
	encryptedTeamKey string,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE team_members
			  SET encrypted_team_key = $1, updated_at = $2
			  WHERE team_id = $3 AND user_id = $4`

	result, err := querier.ExecContext(ctx, query, encryptedTeamKey, time.Now().UTC(), teamID, userID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update team member key")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check team member update")
	}
	if affected == 0 {
		return projectDomain.ErrTeamNotFound
	}

	return nil
}

// CountProjectAdmins counts distinct users holding an admin or owner role on
// a team linked to the project. Drives the rotation quorum: a single admin
// means no second approver exists.
func (p *PostgreSQLTeamRepository) CountProjectAdmins(
	ctx context.Context,
	projectID uuid.UUID,
) (int, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT COUNT(DISTINCT tm.user_id)
			  FROM team_projects tp
			  JOIN team_members tm ON tm.team_id = tp.team_id
			  WHERE tp.project_id = $1 AND tm.role IN ($2, $3)`

	var count int
	err := querier.QueryRowContext(ctx, query, projectID, projectDomain.RoleAdmin, projectDomain.RoleOwner).
		Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count project admins")
	}

	return count, nil
}

// IsProjectAdmin reports whether the user holds an admin or owner role on a
// team linked to the project.
func (p *PostgreSQLTeamRepository) IsProjectAdmin(
	ctx context.Context,
	projectID, userID uuid.UUID,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT EXISTS (
				SELECT 1
				FROM team_projects tp
				JOIN team_members tm ON tm.team_id = tp.team_id
				WHERE tp.project_id = $1 AND tm.user_id = $2 AND tm.role IN ($3, $4)
			  )`

	var isAdmin bool
	err := querier.QueryRowContext(ctx, query, projectID, userID, projectDomain.RoleAdmin, projectDomain.RoleOwner).
		Scan(&isAdmin)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check project admin")
	}

	return isAdmin, nil
}

// ListUserOrgMemberships retrieves the user's organization memberships. Only
// admin and owner rows carry a wrapped organization key.
func (p *PostgreSQLTeamRepository) ListUserOrgMemberships(
	ctx context.Context,
	userID uuid.UUID,
) ([]*projectDomain.OrganizationMember, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT organization_id, user_id, role, encrypted_org_key, created_at, updated_at
			  FROM organization_members
			  WHERE user_id = $1
			  ORDER BY organization_id`

	rows, err := querier.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list organization memberships")
	}
	defer rows.Close()

	var members []*projectDomain.OrganizationMember
	for rows.Next() {
		var member projectDomain.OrganizationMember
		if err := rows.Scan(
			&member.OrganizationID,
			&member.UserID,
			&member.Role,
			&member.EncryptedOrgKey,
			&member.CreatedAt,
			&member.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan organization membership")
		}
		members = append(members, &member)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate organization memberships")
	}

	return members, nil
}

// UpdateOrgMemberKey replaces the organization key wrap of one membership.
// Used by the master key rotation commit.
func (p *PostgreSQLTeamRepository) UpdateOrgMemberKey(
	ctx context.Context,
	orgID, userID uuid.UUID,
	encryptedOrgKey string,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE organization_members
			  SET encrypted_org_key = $1, updated_at = $2
			  WHERE organization_id = $3 AND user_id = $4`

	result, err := querier.ExecContext(ctx, query, encryptedOrgKey, time.Now().UTC(), orgID, userID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update organization member key")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check organization member update")
	}
	if affected == 0 {
		return apperrors.Wrap(apperrors.ErrNotFound, "organization membership not found")
	}

	return nil
}

// NewPostgreSQLTeamRepository creates a new PostgreSQL team repository instance.
func NewPostgreSQLTeamRepository(db *sql.DB) *PostgreSQLTeamRepository {
	return &PostgreSQLTeamRepository{db: db}
}
