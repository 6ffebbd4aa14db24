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

// MySQLTeamRepository implements team, membership and access-path
// persistence for MySQL.
type MySQLTeamRepository struct {
	db *sql.DB
}

// GetProjectAccess collects the wrapped keys that could let one user reach
// one project's key. Direct team membership wins over the organization path
// when both exist.
func (m *MySQLTeamRepository) GetProjectAccess(
	ctx context.Context,
	projectID, userID uuid.UUID,
) (*keychainDomain.ProjectAccess, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT tp.encrypted_project_key, tm.encrypted_team_key, om.encrypted_org_key, t.encrypted_key
			  FROM team_projects tp
			  JOIN teams t ON t.id = tp.team_id
			  LEFT JOIN team_members tm ON tm.team_id = tp.team_id AND tm.user_id = ?
			  LEFT JOIN organization_members om
				ON om.organization_id = t.organization_id
				AND om.user_id = ?
				AND om.encrypted_org_key IS NOT NULL
			  WHERE tp.project_id = ?
			  ORDER BY (tm.user_id IS NULL), (om.user_id IS NULL)
			  LIMIT 1`

	pid, err := projectID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal project id")
	}

	uid, err := userID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal user id")
	}

	var (
		access          keychainDomain.ProjectAccess
		teamKeyUnderOrg string
	)
	err = querier.QueryRowContext(ctx, query, uid, uid, pid).Scan(
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

// ListTeamProjects returns every team grant for a project.
func (m *MySQLTeamRepository) ListTeamProjects(
	ctx context.Context,
	projectID uuid.UUID,
) ([]*projectDomain.TeamProject, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT team_id, project_id, encrypted_project_key, created_at, updated_at
			  FROM team_projects
			  WHERE project_id = ?
			  ORDER BY team_id`

	pid, err := projectID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal project id")
	}

	rows, err := querier.QueryContext(ctx, query, pid)
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

// UpdateTeamProjectKey replaces the project key wrap for one team.
func (m *MySQLTeamRepository) UpdateTeamProjectKey(
	ctx context.Context,
	teamID, projectID uuid.UUID,
	encryptedProjectKey string,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE team_projects
			  SET encrypted_project_key = ?, updated_at = ?
			  WHERE team_id = ? AND project_id = ?`

	tid, err := teamID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal team id")
	}

	pid, err := projectID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal project id")
	}

	result, err := querier.ExecContext(ctx, query, encryptedProjectKey, time.Now().UTC(), tid, pid)
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
// wrapped team key.
func (m *MySQLTeamRepository) ListUserTeamMemberships(
	ctx context.Context,
	userID uuid.UUID,
) ([]*projectDomain.TeamMember, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT team_id, user_id, role, encrypted_team_key, created_at, updated_at
			  FROM team_members
			  WHERE user_id = ?
			  ORDER BY team_id`

	uid, err := userID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal user id")
	}

	rows, err := querier.QueryContext(ctx, query, uid)
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

// UpdateTeamMemberKey replaces the team key wrap of one membership.
func (m *MySQLTeamRepository) UpdateTeamMemberKey(
	ctx context.Context,
	teamID, userID uuid.UUID,
	encryptedTeamKey string,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE team_members
			  SET encrypted_team_key = ?, updated_at = ?
			  WHERE team_id = ? AND user_id = ?`

	tid, err := teamID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal team id")
	}

	uid, err := userID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user id")
	}

	result, err := querier.ExecContext(ctx, query, encryptedTeamKey, time.Now().UTC(), tid, uid)
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
// a team linked to the project.
func (m *MySQLTeamRepository) CountProjectAdmins(
	ctx context.Context,
	projectID uuid.UUID,
) (int, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT COUNT(DISTINCT tm.user_id)
			  FROM team_projects tp
			  JOIN team_members tm ON tm.team_id = tp.team_id
			  WHERE tp.project_id = ? AND tm.role IN (?, ?)`

	pid, err := projectID.MarshalBinary()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to marshal project id")
	}

	var count int
	err = querier.QueryRowContext(ctx, query, pid, projectDomain.RoleAdmin, projectDomain.RoleOwner).
		Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count project admins")
	}

	return count, nil
}

// IsProjectAdmin reports whether the user holds an admin or owner role on a
// team linked to the project.
func (m *MySQLTeamRepository) IsProjectAdmin(
	ctx context.Context,
	projectID, userID uuid.UUID,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT EXISTS (
				SELECT 1
				FROM team_projects tp
				JOIN team_members tm ON tm.team_id = tp.team_id
				WHERE tp.project_id = ? AND tm.user_id = ? AND tm.role IN (?, ?)
			  )`

	pid, err := projectID.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal project id")
	}

	uid, err := userID.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal user id")
	}

	var isAdmin bool
	err = querier.QueryRowContext(ctx, query, pid, uid, projectDomain.RoleAdmin, projectDomain.RoleOwner).
		Scan(&isAdmin)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check project admin")
	}

	return isAdmin, nil
}

// ListUserOrgMemberships retrieves the user's organization memberships.
func (m *MySQLTeamRepository) ListUserOrgMemberships(
	ctx context.Context,
	userID uuid.UUID,
) ([]*projectDomain.OrganizationMember, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT organization_id, user_id, role, encrypted_org_key, created_at, updated_at
			  FROM organization_members
			  WHERE user_id = ?
			  ORDER BY organization_id`

	uid, err := userID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal user id")
	}

	rows, err := querier.QueryContext(ctx, query, uid)
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
func (m *MySQLTeamRepository) UpdateOrgMemberKey(
	ctx context.Context,
	orgID, userID uuid.UUID,
	encryptedOrgKey string,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE organization_members
			  SET encrypted_org_key = ?, updated_at = ?
			  WHERE organization_id = ? AND user_id = ?`

	oid, err := orgID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal organization id")
	}

	uid, err := userID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user id")
	}

	result, err := querier.ExecContext(ctx, query, encryptedOrgKey, time.Now().UTC(), oid, uid)
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

// NewMySQLTeamRepository creates a new MySQL team repository instance.
func NewMySQLTeamRepository(db *sql.DB) *MySQLTeamRepository {
	return &MySQLTeamRepository{db: db}
}
