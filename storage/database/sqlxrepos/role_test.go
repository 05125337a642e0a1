package sqlxrepos

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuleos/shule/core/role"
	"github.com/shuleos/shule/core/user"
)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return sqlx.NewDb(mockDB, "postgres"), mock
}

func userColumns() []string {
	return []string{"id", "name", "email", "is_active", "email_verified", "role_name", "password_hash", "created_at", "updated_at", "last_login"}
}

func TestRoleRepositoryAssignRole(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRoleRepository(db)
	ctx := context.Background()

	userID := "6a50fa17-9abc-4db2-b897-9b2be1101330"

	t.Run("repoints the user and returns the row", func(t *testing.T) {
		rows := sqlmock.NewRows(userColumns()).
			AddRow(userID, "awa", "awa@test.cm", true, true, "TEACHER", []byte("hash"), nil, nil, nil)
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "user" SET role_name = $2, updated_at = $3 WHERE id = $1`)).
			WithArgs(userID, "TEACHER", sqlmock.AnyArg()).
			WillReturnRows(rows)

		usr, err := repo.AssignRole(ctx, userID, "TEACHER")
		require.NoError(t, err)
		assert.Equal(t, "TEACHER", usr.RoleName)
		assert.Equal(t, "awa@test.cm", usr.Email)
	})

	t.Run("unknown user", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "user"`)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.AssignRole(ctx, userID, "TEACHER")
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("second super admin claim loses at the store", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "user"`)).
			WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: soleSuperAdminIndex})

		_, err := repo.AssignRole(ctx, userID, role.RoleSuperAdmin)
		assert.Equal(t, role.ErrSuperRoleHeld, err)
	})

	t.Run("unrelated unique violation is not a super role conflict", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "user"`)).
			WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: "user_email_key"})

		_, err := repo.AssignRole(ctx, userID, "TEACHER")
		require.Error(t, err)
		assert.NotEqual(t, role.ErrSuperRoleHeld, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepositoryUpdateRoleReplacesPrivilegeSet(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRoleRepository(db)
	ctx := context.Background()

	r := role.Role{ID: "f2b9c9bc-59b9-4a32-bb23-1966e3a98903", Name: "SECRETARY", Description: "front desk"}
	privIDs := []string{"p1", "p2"}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE role SET name = $2, description = $3, updated_at = $4 WHERE id = $1`)).
		WithArgs(r.ID, r.Name, r.Description, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM role_privilege WHERE role_id = $1`)).
		WithArgs(r.ID).
		WillReturnResult(sqlmock.NewResult(0, 3))
	for _, pid := range privIDs {
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO role_privilege (role_id, privilege_id) VALUES ($1, $2)`)).
			WithArgs(r.ID, pid).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT p.id, p.name, p.description`)).
		WithArgs(r.ID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}).
			AddRow("p1", role.PrivManageStudents, "").
			AddRow("p2", role.PrivViewReports, ""))
	mock.ExpectCommit()

	updated, err := repo.UpdateRole(ctx, r, privIDs, true)
	require.NoError(t, err)
	assert.Equal(t, []string{role.PrivManageStudents, role.PrivViewReports}, updated.PrivilegeNames())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepositoryUpdateRoleKeepsSetWhenNotReplacing(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRoleRepository(db)
	ctx := context.Background()

	r := role.Role{ID: "f2b9c9bc-59b9-4a32-bb23-1966e3a98903", Name: "SECRETARY"}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE role SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT p.id, p.name, p.description`)).
		WithArgs(r.ID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}))
	mock.ExpectCommit()

	_, err := repo.UpdateRole(ctx, r, nil, false)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepositoryUpdateRoleNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRoleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE role SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.UpdateRole(context.Background(), role.Role{ID: "missing"}, nil, true)
	assert.Equal(t, role.ErrRoleNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepositoryCreateRoleDuplicateName(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRoleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO role`)).
		WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: "role_name_key"})
	mock.ExpectRollback()

	_, err := repo.CreateRole(context.Background(), role.Role{Name: "TEACHER"}, nil)
	assert.Equal(t, role.ErrRoleExists, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepositoryDeleteRoleNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRoleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM role WHERE id = $1`)).
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteRole(context.Background(), "nope")
	assert.Equal(t, role.ErrRoleNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepositoryUserCountByRole(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRoleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "user" WHERE role_name = $1`)).
		WithArgs("TEACHER").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	cnt, err := repo.UserCountByRole(context.Background(), "TEACHER")
	require.NoError(t, err)
	assert.Equal(t, 12, cnt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
