package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/shuleos/shule/core/school"
)

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func trapSchoolNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return school.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo schoolRepository) CreateEstablishment(ctx context.Context, e school.Establishment) (school.Establishment, error) {
	e.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO establishment (id, name, address, phone, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Name, e.Address, e.Phone, e.Email, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return school.Establishment{}, errors.Wrap(err, "inserting establishment")
	}
	return e, nil
}

func (repo schoolRepository) QueryEstablishments(ctx context.Context) ([]school.Establishment, error) {
	var out []school.Establishment
	err := repo.db.SelectContext(ctx, &out, `
		SELECT id, name, address, phone, email, created_at AS "createdat", updated_at AS "updatedat"
		FROM establishment ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "querying establishments")
	}
	return out, nil
}

func (repo schoolRepository) GetEstablishment(ctx context.Context, id string) (school.Establishment, error) {
	var e school.Establishment
	err := repo.db.GetContext(ctx, &e, `
		SELECT id, name, address, phone, email, created_at AS "createdat", updated_at AS "updatedat"
		FROM establishment WHERE id = $1`, id)
	if err != nil {
		return school.Establishment{}, trapSchoolNoRowsErr(err, "finding establishment")
	}
	return e, nil
}

func (repo schoolRepository) UpdateEstablishment(ctx context.Context, e school.Establishment) (school.Establishment, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE establishment SET name = $2, address = $3, phone = $4, email = $5, updated_at = $6
		WHERE id = $1`,
		e.ID, e.Name, e.Address, e.Phone, e.Email, e.UpdatedAt,
	)
	if err != nil {
		return school.Establishment{}, errors.Wrap(err, "updating establishment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.Establishment{}, school.ErrNotFound
	}
	return e, nil
}

func (repo schoolRepository) DeleteEstablishment(ctx context.Context, id string) error {
	// classrooms cascade
	res, err := repo.db.ExecContext(ctx, `DELETE FROM establishment WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting establishment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.ErrNotFound
	}
	return nil
}

func (repo schoolRepository) CreateClassroom(ctx context.Context, c school.Classroom) (school.Classroom, error) {
	c.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO classroom (id, establishment_id, name, level, capacity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.EstablishmentID, c.Name, c.Level, c.Capacity, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return school.Classroom{}, errors.Wrap(err, "inserting classroom")
	}
	return c, nil
}

func (repo schoolRepository) QueryClassrooms(ctx context.Context, establishmentID string) ([]school.Classroom, error) {
	var out []school.Classroom
	err := repo.db.SelectContext(ctx, &out, `
		SELECT id, establishment_id AS "establishmentid", name, level, capacity,
		       created_at AS "createdat", updated_at AS "updatedat"
		FROM classroom WHERE establishment_id = $1 ORDER BY name`, establishmentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying classrooms")
	}
	return out, nil
}

func (repo schoolRepository) DeleteClassroom(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM classroom WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting classroom")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.ErrNotFound
	}
	return nil
}

func (repo schoolRepository) CreateCommission(ctx context.Context, c school.Commission) (school.Commission, error) {
	c.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO commission (id, name, description, admin_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.Name, c.Description, c.AdminID, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return school.Commission{}, errors.Wrap(err, "inserting commission")
	}
	return c, nil
}

type commissionRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	AdminID     string    `db:"admin_id"`
	CreatedAt   null.Time `db:"created_at"`
	UpdatedAt   null.Time `db:"updated_at"`

	Admin userRow `db:"admin"`
}

func unpackCommission(row commissionRow) school.Commission {
	c := school.Commission{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		AdminID:     row.AdminID,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
	if row.Admin.ID != "" {
		admin := unpackUser(row.Admin)
		admin.PasswordHash = nil // projection only; never expose the hash
		c.Admin = &admin
	}
	return c
}

const commissionSelect = `
	SELECT c.id, c.name, c.description, c.admin_id, c.created_at, c.updated_at,
	       u.id AS "admin.id", u.name AS "admin.name", u.email AS "admin.email",
	       u.is_active AS "admin.is_active", u.email_verified AS "admin.email_verified",
	       u.role_name AS "admin.role_name", u.created_at AS "admin.created_at",
	       u.updated_at AS "admin.updated_at", u.last_login AS "admin.last_login"
	FROM commission c
	JOIN "user" u ON u.id = c.admin_id`

func (repo schoolRepository) QueryCommissions(ctx context.Context) ([]school.Commission, error) {
	var rows []commissionRow
	if err := repo.db.SelectContext(ctx, &rows, commissionSelect+` ORDER BY c.name`); err != nil {
		return nil, errors.Wrap(err, "querying commissions")
	}
	out := make([]school.Commission, 0, len(rows))
	for _, row := range rows {
		out = append(out, unpackCommission(row))
	}
	return out, nil
}

func (repo schoolRepository) GetCommission(ctx context.Context, id string) (school.Commission, error) {
	var row commissionRow
	if err := repo.db.GetContext(ctx, &row, commissionSelect+` WHERE c.id = $1`, id); err != nil {
		return school.Commission{}, trapSchoolNoRowsErr(err, "finding commission")
	}
	return unpackCommission(row), nil
}

func (repo schoolRepository) DeleteCommission(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM commission WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting commission")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.ErrNotFound
	}
	return nil
}
