package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/shuleos/shule/core/role"
	"github.com/shuleos/shule/core/user"
)

type roleRepository struct {
	roles      *roleTable
	privileges *privilegeTable
	users      *userTable
}

var _ role.Repository = (*roleRepository)(nil) // interface compliance check

func NewRoleRepository(db *DB) role.Repository {
	return &roleRepository{roles: db.role, privileges: db.privilege, users: db.user}
}

func (repo *roleRepository) resolvePrivileges(ids []string) []role.Privilege {
	privs := make([]role.Privilege, 0, len(ids))
	for _, id := range ids {
		if p, ok := repo.privileges.table[id]; ok {
			privs = append(privs, *p)
		}
	}
	sort.Slice(privs, func(i, j int) bool { return privs[i].Name < privs[j].Name })
	return privs
}

func (repo *roleRepository) QueryRoles(_ context.Context) ([]role.Role, error) {
	repo.roles.RLock()
	defer repo.roles.RUnlock()

	roles := make([]role.Role, 0, len(repo.roles.table))
	for _, r := range repo.roles.table {
		roles = append(roles, *r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

func (repo *roleRepository) GetRole(_ context.Context, filter role.GetFilter) (role.Role, error) {
	repo.roles.RLock()
	defer repo.roles.RUnlock()

	switch {
	case filter.ID != "":
		if r, ok := repo.roles.table[filter.ID]; ok {
			return *r, nil
		}
	case filter.Name != "":
		for _, r := range repo.roles.table {
			if r.Name == filter.Name {
				return *r, nil
			}
		}
	}
	return role.Role{}, role.ErrRoleNotFound
}

func (repo *roleRepository) CreateRole(_ context.Context, r role.Role, privilegeIDs []string) (role.Role, error) {
	repo.roles.Lock()
	defer repo.roles.Unlock()
	repo.privileges.RLock()
	defer repo.privileges.RUnlock()

	for _, existing := range repo.roles.table {
		if existing.Name == r.Name {
			return role.Role{}, role.ErrRoleExists
		}
	}

	r.ID = uuid.New().String()
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	r.Privileges = repo.resolvePrivileges(privilegeIDs)
	repo.roles.table[r.ID] = &r
	return r, nil
}

func (repo *roleRepository) UpdateRole(_ context.Context, r role.Role, privilegeIDs []string, replaceSet bool) (role.Role, error) {
	repo.roles.Lock()
	defer repo.roles.Unlock()
	repo.privileges.RLock()
	defer repo.privileges.RUnlock()

	orig, ok := repo.roles.table[r.ID]
	if !ok {
		return role.Role{}, role.ErrRoleNotFound
	}
	for id, existing := range repo.roles.table {
		if id != r.ID && existing.Name == r.Name {
			return role.Role{}, role.ErrRoleExists
		}
	}

	r.IsPermanent = orig.IsPermanent
	r.CreatedAt = orig.CreatedAt
	r.UpdatedAt = time.Now().UTC()
	if replaceSet {
		r.Privileges = repo.resolvePrivileges(privilegeIDs)
	} else {
		r.Privileges = orig.Privileges
	}
	repo.roles.table[r.ID] = &r
	return r, nil
}

func (repo *roleRepository) DeleteRole(_ context.Context, id string) error {
	repo.roles.Lock()
	defer repo.roles.Unlock()

	if _, ok := repo.roles.table[id]; !ok {
		return role.ErrRoleNotFound
	}
	delete(repo.roles.table, id)
	return nil
}

func (repo *roleRepository) QueryPrivileges(_ context.Context) ([]role.Privilege, error) {
	repo.privileges.RLock()
	defer repo.privileges.RUnlock()

	privs := make([]role.Privilege, 0, len(repo.privileges.table))
	for _, p := range repo.privileges.table {
		privs = append(privs, *p)
	}
	sort.Slice(privs, func(i, j int) bool { return privs[i].Name < privs[j].Name })
	return privs, nil
}

func (repo *roleRepository) EnsurePrivilege(_ context.Context, p role.Privilege) error {
	repo.privileges.Lock()
	defer repo.privileges.Unlock()

	for _, existing := range repo.privileges.table {
		if existing.Name == p.Name {
			existing.Description = p.Description
			return nil
		}
	}
	p.ID = uuid.New().String()
	repo.privileges.table[p.ID] = &p
	return nil
}

func (repo *roleRepository) EnsureRole(ctx context.Context, r role.Role, privilegeNames []string) error {
	if _, err := repo.GetRole(ctx, role.GetFilter{Name: r.Name}); err == nil {
		return nil
	}

	repo.privileges.RLock()
	var privilegeIDs []string
	for _, p := range repo.privileges.table {
		for _, name := range privilegeNames {
			if p.Name == name {
				privilegeIDs = append(privilegeIDs, p.ID)
			}
		}
	}
	repo.privileges.RUnlock()

	_, err := repo.CreateRole(ctx, r, privilegeIDs)
	return err
}

func (repo *roleRepository) UserCountByRole(_ context.Context, roleName string) (int, error) {
	repo.users.RLock()
	defer repo.users.RUnlock()

	var cnt int
	for _, usr := range repo.users.table {
		if usr.RoleName == roleName {
			cnt++
		}
	}
	return cnt, nil
}

// AssignRole enforces the sole-holder rule inline: the whole check-and-set
// runs under the user table's write lock, mirroring what the unique index
// guarantees in the SQL store.
func (repo *roleRepository) AssignRole(_ context.Context, userID, roleName string) (user.User, error) {
	repo.users.Lock()
	defer repo.users.Unlock()

	usr, ok := repo.users.table[userID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if roleName == role.RoleSuperAdmin {
		for id, other := range repo.users.table {
			if id != userID && other.RoleName == role.RoleSuperAdmin {
				return user.User{}, role.ErrSuperRoleHeld
			}
		}
	}
	usr.RoleName = roleName
	usr.UpdatedAt = time.Now().UTC()
	return *usr, nil
}
