package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/shuleos/shule/core"
	"github.com/shuleos/shule/core/fieldcrypt"
	"github.com/shuleos/shule/core/role"
	"github.com/shuleos/shule/core/school"
	"github.com/shuleos/shule/core/user"
)

// Repository decorators enforcing field encryption at the storage boundary.
// User.Name is the sensitive field: writes encrypt it before the inner
// repository sees it and fail hard when encryption fails; reads decrypt it
// on the way out and fall back to the stored value when decryption fails,
// so legacy plaintext rows stay readable.

type encryptedUserRepository struct {
	inner user.Repository
	codec *fieldcrypt.Codec
}

var _ user.Repository = (*encryptedUserRepository)(nil)

func NewEncryptedUserRepository(inner user.Repository, codec *fieldcrypt.Codec) user.Repository {
	return &encryptedUserRepository{inner: inner, codec: codec}
}

func (repo *encryptedUserRepository) sealUser(usr user.User) (user.User, error) {
	name, err := repo.codec.EncryptField(usr.Name)
	if err != nil {
		return user.User{}, errors.Wrap(err, "encrypting user name")
	}
	usr.Name = name
	return usr, nil
}

func (repo *encryptedUserRepository) openUser(usr user.User) user.User {
	usr.Name = repo.codec.DecryptField(usr.Name)
	return usr
}

func (repo *encryptedUserRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	return repo.inner.CheckEmailUniqueness(ctx, email, excludedUsers...)
}

func (repo *encryptedUserRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr, err := repo.sealUser(usr)
	if err != nil {
		return user.User{}, err
	}
	created, err := repo.inner.CreateUser(ctx, usr)
	if err != nil {
		return user.User{}, err
	}
	return repo.openUser(created), nil
}

func (repo *encryptedUserRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	users, err := repo.inner.QueryUsers(ctx, filter, ordering)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = repo.openUser(users[i])
	}
	return users, nil
}

func (repo *encryptedUserRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	usr, err := repo.inner.GetUser(ctx, filter)
	if err != nil {
		return user.User{}, err
	}
	return repo.openUser(usr), nil
}

func (repo *encryptedUserRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr, err := repo.sealUser(usr)
	if err != nil {
		return user.User{}, err
	}
	updated, err := repo.inner.UpdateUser(ctx, usr)
	if err != nil {
		return user.User{}, err
	}
	return repo.openUser(updated), nil
}

func (repo *encryptedUserRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	return repo.inner.DeleteUsersByID(ctx, ids...)
}

// encryptedRoleRepository decrypts the user projections a role repository
// returns; role rows themselves hold no sensitive fields.
type encryptedRoleRepository struct {
	role.Repository
	codec *fieldcrypt.Codec
}

func NewEncryptedRoleRepository(inner role.Repository, codec *fieldcrypt.Codec) role.Repository {
	return &encryptedRoleRepository{Repository: inner, codec: codec}
}

func (repo *encryptedRoleRepository) AssignRole(ctx context.Context, userID, roleName string) (user.User, error) {
	usr, err := repo.Repository.AssignRole(ctx, userID, roleName)
	if err != nil {
		return user.User{}, err
	}
	usr.Name = repo.codec.DecryptField(usr.Name)
	return usr, nil
}

// encryptedSchoolRepository decrypts the admin user attached to commissions.
type encryptedSchoolRepository struct {
	school.Repository
	codec *fieldcrypt.Codec
}

func NewEncryptedSchoolRepository(inner school.Repository, codec *fieldcrypt.Codec) school.Repository {
	return &encryptedSchoolRepository{Repository: inner, codec: codec}
}

func (repo *encryptedSchoolRepository) openCommission(c school.Commission) school.Commission {
	if c.Admin != nil {
		c.Admin.Name = repo.codec.DecryptField(c.Admin.Name)
	}
	return c
}

func (repo *encryptedSchoolRepository) QueryCommissions(ctx context.Context) ([]school.Commission, error) {
	commissions, err := repo.Repository.QueryCommissions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range commissions {
		commissions[i] = repo.openCommission(commissions[i])
	}
	return commissions, nil
}

func (repo *encryptedSchoolRepository) GetCommission(ctx context.Context, id string) (school.Commission, error) {
	c, err := repo.Repository.GetCommission(ctx, id)
	if err != nil {
		return school.Commission{}, err
	}
	return repo.openCommission(c), nil
}
