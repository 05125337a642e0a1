package role

import (
	"context"

	"github.com/pkg/errors"

	"github.com/shuleos/shule/core"
	"github.com/shuleos/shule/core/notif"
	"github.com/shuleos/shule/core/user"
)

var (
	// errors
	ErrRoleNotFound  = errors.New("role not found")
	ErrRoleExists    = errors.New("a role with this name already exists")
	ErrPermanentRole = errors.New("permanent roles cannot be renamed or deleted")
	ErrRoleInUse     = errors.New("role is still assigned to users; reassign them first")
	ErrSuperRoleHeld = errors.New("the super admin role is already held by another user")
)

type (
	Repository interface {
		QueryRoles(ctx context.Context) ([]Role, error)
		GetRole(ctx context.Context, filter GetFilter) (Role, error)
		CreateRole(ctx context.Context, r Role, privilegeIDs []string) (Role, error)
		// UpdateRole persists r; when replaceSet is true the role's
		// privilege rows are replaced by privilegeIDs within the same
		// transaction so callers never observe a half-updated set.
		UpdateRole(ctx context.Context, r Role, privilegeIDs []string, replaceSet bool) (Role, error)
		DeleteRole(ctx context.Context, id string) error

		QueryPrivileges(ctx context.Context) ([]Privilege, error)
		EnsurePrivilege(ctx context.Context, p Privilege) error
		EnsureRole(ctx context.Context, r Role, privilegeNames []string) error

		UserCountByRole(ctx context.Context, roleName string) (int, error)
		// AssignRole atomically points the user at the named role. The
		// backing store arbitrates the sole-holder rule for the super role;
		// its rejection surfaces as ErrSuperRoleHeld.
		AssignRole(ctx context.Context, userID, roleName string) (user.User, error)
	}

	Service interface {
		QueryRoles(ctx context.Context) ([]Role, error)
		QueryPrivileges(ctx context.Context) ([]Privilege, error)
		GetRole(ctx context.Context, filter GetFilter) (Role, error)
		Create(ctx context.Context, nr NewRole) (Role, error)
		Update(ctx context.Context, id string, ur UpdateRole) (Role, error)
		Delete(ctx context.Context, id string) error
		AssignToUser(ctx context.Context, userID, roleName string) (AssignedUser, error)
		// PrivilegeNames resolves the flattened privilege set granted by a
		// role; the super role resolves to every known privilege.
		PrivilegeNames(ctx context.Context, roleName string) ([]string, error)
		Seed(ctx context.Context) error
	}

	service struct {
		repo      Repository
		logger    core.Logger
		notifSink notif.Sink
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, logger core.Logger, sink notif.Sink) Service {
	return &service{repo: repo, logger: logger, notifSink: sink}
}

func (svc *service) QueryRoles(ctx context.Context) ([]Role, error) {
	return svc.repo.QueryRoles(ctx)
}

func (svc *service) QueryPrivileges(ctx context.Context) ([]Privilege, error) {
	return svc.repo.QueryPrivileges(ctx)
}

func (svc *service) GetRole(ctx context.Context, filter GetFilter) (Role, error) {
	if filter.Name != "" {
		filter.Name = NormalizeName(filter.Name)
	}
	return svc.repo.GetRole(ctx, filter)
}

func (svc *service) Create(ctx context.Context, nr NewRole) (Role, error) {
	name := NormalizeName(nr.Name)
	if svc.collidesWithPermanentRole(ctx, name) {
		return Role{}, core.NewValidationError(ErrRoleExists, core.FieldError{Field: "name", Error: ErrRoleExists.Error()})
	}
	r := Role{
		Name:        name,
		Description: nr.Description,
	}
	created, err := svc.repo.CreateRole(ctx, r, nr.PrivilegeIDs)
	if err != nil {
		if errors.Cause(err) == ErrRoleExists {
			return Role{}, core.NewValidationError(ErrRoleExists, core.FieldError{Field: "name", Error: ErrRoleExists.Error()})
		}
		return Role{}, errors.Wrap(err, "creating role")
	}
	return created, nil
}

func (svc *service) Update(ctx context.Context, id string, ur UpdateRole) (Role, error) {
	r, err := svc.repo.GetRole(ctx, GetFilter{ID: id})
	if err != nil {
		return Role{}, err
	}

	if ur.Name != "" {
		name := NormalizeName(ur.Name)
		if name != r.Name {
			if r.IsPermanent {
				return Role{}, ErrPermanentRole
			}
			if svc.collidesWithPermanentRole(ctx, name) {
				return Role{}, core.NewValidationError(ErrRoleExists, core.FieldError{Field: "name", Error: ErrRoleExists.Error()})
			}
			r.Name = name
		}
	}
	if ur.Description != "" {
		r.Description = ur.Description
	}

	var privilegeIDs []string
	replaceSet := ur.PrivilegeIDs != nil
	if replaceSet {
		privilegeIDs = *ur.PrivilegeIDs
	}
	updated, err := svc.repo.UpdateRole(ctx, r, privilegeIDs, replaceSet)
	if err != nil {
		return Role{}, errors.Wrap(err, "updating role")
	}
	return updated, nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	r, err := svc.repo.GetRole(ctx, GetFilter{ID: id})
	if err != nil {
		return err
	}
	if r.IsPermanent {
		return ErrPermanentRole
	}
	cnt, err := svc.repo.UserCountByRole(ctx, r.Name)
	if err != nil {
		return errors.Wrap(err, "counting role users")
	}
	if cnt > 0 {
		return ErrRoleInUse
	}
	return svc.repo.DeleteRole(ctx, r.ID)
}

func (svc *service) AssignToUser(ctx context.Context, userID, roleName string) (AssignedUser, error) {
	r, err := svc.GetRole(ctx, GetFilter{Name: roleName})
	if err != nil {
		return AssignedUser{}, err
	}

	usr, err := svc.repo.AssignRole(ctx, userID, r.Name)
	if err != nil {
		return AssignedUser{}, err
	}

	if svc.notifSink != nil {
		payload := notif.RoleAssigned(usr.Name, r.Name)
		if err := svc.notifSink.Push(ctx, usr.ID, payload); err != nil {
			// delivery is best-effort; the assignment stands
			svc.logger.Warn("pushing role-assigned notification", err)
		}
	}

	return AssignedUser{ID: usr.ID, Name: usr.Name, Email: usr.Email, RoleName: usr.RoleName}, nil
}

func (svc *service) PrivilegeNames(ctx context.Context, roleName string) ([]string, error) {
	roleName = NormalizeName(roleName)
	if roleName == RoleSuperAdmin {
		all := ListAllPrivileges()
		names := make([]string, 0, len(all))
		for _, p := range all {
			names = append(names, p.Name)
		}
		return names, nil
	}
	r, err := svc.repo.GetRole(ctx, GetFilter{Name: roleName})
	if err != nil {
		return nil, err
	}
	return r.PrivilegeNames(), nil
}

// Seed idempotently installs the closed privilege set and the built-in roles.
func (svc *service) Seed(ctx context.Context) error {
	for _, p := range ListAllPrivileges() {
		if err := svc.repo.EnsurePrivilege(ctx, p); err != nil {
			return errors.Wrapf(err, "seeding privilege %s", p.Name)
		}
	}

	seeds := []struct {
		role  Role
		privs []string
	}{
		{Role{Name: RoleSuperAdmin, Description: "Permanent super role; implicitly holds all privileges", IsPermanent: true}, nil},
		{Role{Name: RoleAdministrator, Description: "School administrator"}, TemplatePrivileges(RoleAdministrator)},
		{Role{Name: RoleTeacher, Description: "Teacher"}, nil},
		{Role{Name: RoleSecretary, Description: "Secretary"}, nil},
	}
	for _, seed := range seeds {
		if err := svc.repo.EnsureRole(ctx, seed.role, seed.privs); err != nil {
			return errors.Wrapf(err, "seeding role %s", seed.role.Name)
		}
	}
	return nil
}

func (svc *service) collidesWithPermanentRole(ctx context.Context, name string) bool {
	r, err := svc.repo.GetRole(ctx, GetFilter{Name: name})
	return err == nil && r.IsPermanent
}
