package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/envie/internal/errors"
	projectDomain "github.com/allisson/envie/internal/project/domain"
)

func TestPostgreSQLTeamRepository_GetProjectAccess_DirectMembership(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgreSQLTeamRepository(db)
	projectID := uuid.Must(uuid.NewV7())
	userID := uuid.Must(uuid.NewV7())

	rows := sqlmock.NewRows([]string{
		"encrypted_project_key", "encrypted_team_key", "encrypted_org_key", "encrypted_key",
	}).AddRow("project-wrap", "team-wrap", nil, "team-under-org")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT tp.encrypted_project_key, tm.encrypted_team_key, om.encrypted_org_key, t.encrypted_key`)).
		WithArgs(projectID, userID).
		WillReturnRows(rows)

	access, err := repo.GetProjectAccess(context.Background(), projectID, userID)
	require.NoError(t, err)

	assert.Equal(t, "project-wrap", access.EncryptedProjectKey)
	require.NotNil(t, access.EncryptedTeamKey)
	assert.Equal(t, "team-wrap", *access.EncryptedTeamKey)
	assert.Nil(t, access.EncryptedOrgKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLTeamRepository_GetProjectAccess_OrgPathOnly(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgreSQLTeamRepository(db)
	projectID := uuid.Must(uuid.NewV7())
	userID := uuid.Must(uuid.NewV7())

	rows := sqlmock.NewRows([]string{
		"encrypted_project_key", "encrypted_team_key", "encrypted_org_key", "encrypted_key",
	}).AddRow("project-wrap", nil, "org-wrap", "team-under-org")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT tp.encrypted_project_key, tm.encrypted_team_key, om.encrypted_org_key, t.encrypted_key`)).
		WithArgs(projectID, userID).
		WillReturnRows(rows)

	access, err := repo.GetProjectAccess(context.Background(), projectID, userID)
	require.NoError(t, err)

	assert.Nil(t, access.EncryptedTeamKey)
	require.NotNil(t, access.EncryptedOrgKey)
	assert.Equal(t, "org-wrap", *access.EncryptedOrgKey)
	require.NotNil(t, access.TeamKeyUnderOrg)
	assert.Equal(t, "team-under-org", *access.TeamKeyUnderOrg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLTeamRepository_GetProjectAccess_NoPath(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgreSQLTeamRepository(db)
	projectID := uuid.Must(uuid.NewV7())
	userID := uuid.Must(uuid.NewV7())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT tp.encrypted_project_key, tm.encrypted_team_key, om.encrypted_org_key, t.encrypted_key`)).
		WithArgs(projectID, userID).
		WillReturnRows(sqlmock.NewRows([]string{
			"encrypted_project_key", "encrypted_team_key", "encrypted_org_key", "encrypted_key",
		}))

	access, err := repo.GetProjectAccess(context.Background(), projectID, userID)
	assert.Nil(t, access)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLTeamRepository_ListTeamProjects(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgreSQLTeamRepository(db)
	projectID := uuid.Must(uuid.NewV7())
	teamA := uuid.Must(uuid.NewV7())
	teamB := uuid.Must(uuid.NewV7())
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"team_id", "project_id", "encrypted_project_key", "created_at", "updated_at",
	}).
		AddRow(teamA.String(), projectID.String(), "wrap-a", now, now).
		AddRow(teamB.String(), projectID.String(), "wrap-b", now, now)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT team_id, project_id, encrypted_project_key, created_at, updated_at`)).
		WithArgs(projectID).
		WillReturnRows(rows)

	grants, err := repo.ListTeamProjects(context.Background(), projectID)
	require.NoError(t, err)
	require.Len(t, grants, 2)
	assert.Equal(t, teamA, grants[0].TeamID)
	assert.Equal(t, "wrap-b", grants[1].EncryptedProjectKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLTeamRepository_UpdateTeamProjectKey_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgreSQLTeamRepository(db)
	teamID := uuid.Must(uuid.NewV7())
	projectID := uuid.Must(uuid.NewV7())

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE team_projects`)).
		WithArgs("new-wrap", sqlmock.AnyArg(), teamID, projectID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdateTeamProjectKey(context.Background(), teamID, projectID, "new-wrap")
	assert.ErrorIs(t, err, projectDomain.ErrTeamNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLTeamRepository_CountProjectAdmins(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgreSQLTeamRepository(db)
	projectID := uuid.Must(uuid.NewV7())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(DISTINCT tm.user_id)`)).
		WithArgs(projectID, projectDomain.RoleAdmin, projectDomain.RoleOwner).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountProjectAdmins(context.Background(), projectID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
