package role

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/shuleos/shule/core"
)

type Privilege struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Role struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	IsPermanent bool        `json:"is_permanent"`
	Privileges  []Privilege `json:"privileges"`
	CreatedAt   time.Time   `json:"created_at"` // UTC
	UpdatedAt   time.Time   `json:"updated_at"` // UTC
}

// PrivilegeNames returns the flattened privilege-name set granted by the role.
func (r Role) PrivilegeNames() []string {
	names := make([]string, 0, len(r.Privileges))
	for _, p := range r.Privileges {
		names = append(names, p.Name)
	}
	return names
}

// AssignedUser is the projection returned by role assignment; it never
// carries the password hash.
type AssignedUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	RoleName string `json:"role_name"`
}

// NewRole contains information needed to create a custom Role.
type NewRole struct {
	Name         string   `json:"name" validate:"required,alphanum_"`
	Description  string   `json:"description"`
	PrivilegeIDs []string `json:"privilege_ids"`
}

func (nr *NewRole) Validate(validate *validator.Validate, _ ut.Translator) error {
	nr.Name = core.CleanString(nr.Name)
	nr.Description = core.CleanString(nr.Description)
	return validate.Struct(nr)
}

// UpdateRole defines what may be modified on an existing Role. A nil
// PrivilegeIDs leaves the privilege set untouched; a non-nil slice replaces
// it wholesale.
type UpdateRole struct {
	Name         string    `json:"name" validate:"omitempty,alphanum_"`
	Description  string    `json:"description"`
	PrivilegeIDs *[]string `json:"privilege_ids"`
}

func (ur *UpdateRole) Validate(validate *validator.Validate, _ ut.Translator) error {
	ur.Name = core.CleanString(ur.Name)
	ur.Description = core.CleanString(ur.Description)
	return validate.Struct(ur)
}

// GetFilter selects a single role by ID or canonical name.
type GetFilter struct {
	ID   string
	Name string
}
