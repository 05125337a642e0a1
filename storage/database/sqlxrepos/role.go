package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/shuleos/shule/core/role"
	"github.com/shuleos/shule/core/user"
)

// soleSuperAdminIndex is the partial unique index arbitrating the
// one-holder rule for the permanent super role.
const soleSuperAdminIndex = "user_sole_super_admin"

type roleRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	IsPermanent bool      `db:"is_permanent"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func unpackRole(row roleRow, privs []role.Privilege) role.Role {
	return role.Role{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		IsPermanent: row.IsPermanent,
		Privileges:  privs,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

type roleRepository struct {
	db *sqlx.DB
}

var _ role.Repository = (*roleRepository)(nil) // interface compliance check

func NewRoleRepository(db *sqlx.DB) *roleRepository {
	return &roleRepository{db: db}
}

func (repo roleRepository) rolePrivileges(ctx context.Context, q sqlx.QueryerContext, roleID string) ([]role.Privilege, error) {
	var privs []role.Privilege
	err := sqlx.SelectContext(ctx, q, &privs, `
		SELECT p.id, p.name, p.description
		FROM privilege p
		JOIN role_privilege rp ON rp.privilege_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.name`,
		roleID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying role privileges")
	}
	return privs, nil
}

func (repo roleRepository) QueryRoles(ctx context.Context) ([]role.Role, error) {
	var rows []roleRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM role ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying roles")
	}

	roles := make([]role.Role, 0, len(rows))
	for _, row := range rows {
		privs, err := repo.rolePrivileges(ctx, repo.db, row.ID)
		if err != nil {
			return nil, err
		}
		roles = append(roles, unpackRole(row, privs))
	}
	return roles, nil
}

func (repo roleRepository) GetRole(ctx context.Context, filter role.GetFilter) (role.Role, error) {
	var row roleRow
	var err error

	switch {
	case filter.ID != "":
		err = repo.db.GetContext(ctx, &row, `SELECT * FROM role WHERE id = $1`, filter.ID)
	case filter.Name != "":
		err = repo.db.GetContext(ctx, &row, `SELECT * FROM role WHERE name = $1`, filter.Name)
	default:
		return role.Role{}, role.ErrRoleNotFound
	}
	if err != nil {
		if err == sql.ErrNoRows {
			return role.Role{}, role.ErrRoleNotFound
		}
		return role.Role{}, errors.Wrap(err, "finding role")
	}

	privs, err := repo.rolePrivileges(ctx, repo.db, row.ID)
	if err != nil {
		return role.Role{}, err
	}
	return unpackRole(row, privs), nil
}

func (repo roleRepository) CreateRole(ctx context.Context, r role.Role, privilegeIDs []string) (role.Role, error) {
	r.ID = uuid.New().String()
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return role.Role{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO role (id, name, description, is_permanent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.Name, r.Description, r.IsPermanent, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return role.Role{}, role.ErrRoleExists
		}
		return role.Role{}, errors.Wrap(err, "inserting role")
	}
	if err = insertRolePrivileges(ctx, tx, r.ID, privilegeIDs); err != nil {
		return role.Role{}, err
	}

	privs, err := repo.rolePrivileges(ctx, tx, r.ID)
	if err != nil {
		return role.Role{}, err
	}
	if err = tx.Commit(); err != nil {
		return role.Role{}, errors.Wrap(err, "committing tx")
	}
	return unpackRole(roleRow{ID: r.ID, Name: r.Name, Description: r.Description, IsPermanent: r.IsPermanent, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}, privs), nil
}

// UpdateRole persists the role row and, when replaceSet is true, swaps the
// whole privilege set inside the same transaction: concurrent readers see
// either the old set or the new one, never a half-written in-between.
func (repo roleRepository) UpdateRole(ctx context.Context, r role.Role, privilegeIDs []string, replaceSet bool) (role.Role, error) {
	r.UpdatedAt = time.Now().UTC()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return role.Role{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE role SET name = $2, description = $3, updated_at = $4 WHERE id = $1`,
		r.ID, r.Name, r.Description, r.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return role.Role{}, role.ErrRoleExists
		}
		return role.Role{}, errors.Wrap(err, "updating role")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return role.Role{}, role.ErrRoleNotFound
	}

	if replaceSet {
		if _, err = tx.ExecContext(ctx, `DELETE FROM role_privilege WHERE role_id = $1`, r.ID); err != nil {
			return role.Role{}, errors.Wrap(err, "clearing role privileges")
		}
		if err = insertRolePrivileges(ctx, tx, r.ID, privilegeIDs); err != nil {
			return role.Role{}, err
		}
	}

	privs, err := repo.rolePrivileges(ctx, tx, r.ID)
	if err != nil {
		return role.Role{}, err
	}
	if err = tx.Commit(); err != nil {
		return role.Role{}, errors.Wrap(err, "committing tx")
	}
	r.Privileges = privs
	return r, nil
}

func (repo roleRepository) DeleteRole(ctx context.Context, id string) error {
	// role_privilege rows cascade
	res, err := repo.db.ExecContext(ctx, `DELETE FROM role WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting role")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return role.ErrRoleNotFound
	}
	return nil
}

func (repo roleRepository) QueryPrivileges(ctx context.Context) ([]role.Privilege, error) {
	var privs []role.Privilege
	if err := repo.db.SelectContext(ctx, &privs, `SELECT id, name, description FROM privilege ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying privileges")
	}
	return privs, nil
}

func (repo roleRepository) EnsurePrivilege(ctx context.Context, p role.Privilege) error {
	// names are immutable; descriptions may be edited in the registry
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO privilege (id, name, description) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description`,
		uuid.New().String(), p.Name, p.Description,
	)
	return errors.Wrap(err, "ensuring privilege")
}

func (repo roleRepository) EnsureRole(ctx context.Context, r role.Role, privilegeNames []string) error {
	if _, err := repo.GetRole(ctx, role.GetFilter{Name: r.Name}); err == nil {
		return nil
	} else if errors.Cause(err) != role.ErrRoleNotFound {
		return err
	}

	var privilegeIDs []string
	if len(privilegeNames) > 0 {
		err := repo.db.SelectContext(ctx, &privilegeIDs,
			`SELECT id FROM privilege WHERE name = ANY($1)`, pq.Array(privilegeNames))
		if err != nil {
			return errors.Wrap(err, "resolving privilege names")
		}
	}
	_, err := repo.CreateRole(ctx, r, privilegeIDs)
	return err
}

func (repo roleRepository) UserCountByRole(ctx context.Context, roleName string) (int, error) {
	var cnt int
	if err := repo.db.GetContext(ctx, &cnt, `SELECT COUNT(*) FROM "user" WHERE role_name = $1`, roleName); err != nil {
		return 0, errors.Wrap(err, "counting role users")
	}
	return cnt, nil
}

// AssignRole atomically repoints the user at the named role. Two concurrent
// claims on the super-role slot race at the store: the partial unique index
// rejects the loser and that rejection surfaces as ErrSuperRoleHeld.
func (repo roleRepository) AssignRole(ctx context.Context, userID, roleName string) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE "user" SET role_name = $2, updated_at = $3 WHERE id = $1
		RETURNING *`,
		userID, roleName, time.Now().UTC(),
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok &&
			pqErr.Code == pqUniqueViolation && pqErr.Constraint == soleSuperAdminIndex {
			return user.User{}, role.ErrSuperRoleHeld
		}
		return user.User{}, errors.Wrap(err, "assigning role")
	}
	return unpackUser(row), nil
}

func insertRolePrivileges(ctx context.Context, tx *sqlx.Tx, roleID string, privilegeIDs []string) error {
	for _, pid := range privilegeIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO role_privilege (role_id, privilege_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`,
			roleID, pid,
		)
		if err != nil {
			return errors.Wrap(err, "inserting role privilege")
		}
	}
	return nil
}
