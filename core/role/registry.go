package role

import "strings"

// Privileges. The set is closed: new capabilities are added here, seeded at
// init and referenced by name everywhere else.
const (
	PrivAppSetup             = "APP_SETUP"
	PrivManageUsers          = "MANAGE_USERS"
	PrivManageRoles          = "MANAGE_ROLES"
	PrivManageEstablishments = "MANAGE_ESTABLISHMENTS"
	PrivManageClassrooms     = "MANAGE_CLASSROOMS"
	PrivManageCommissions    = "MANAGE_COMMISSIONS"
	PrivManageStudents       = "MANAGE_STUDENTS"
	PrivManageTeachers       = "MANAGE_TEACHERS"
	PrivSendNotifications    = "SEND_NOTIFICATIONS"
	PrivViewReports          = "VIEW_REPORTS"
	PrivDeleteData           = "DELETE_DATA"
)

// Built-in roles
const (
	// RoleSuperAdmin is permanent, implicitly holds every privilege and may
	// be held by at most one user system-wide.
	RoleSuperAdmin    = "SUPER_ADMIN"
	RoleAdministrator = "ADMINISTRATOR"
	RoleTeacher       = "TEACHER"
	RoleSecretary     = "SECRETARY"
)

var allPrivileges = []Privilege{
	{Name: PrivAppSetup, Description: "Configure application-wide settings"},
	{Name: PrivManageUsers, Description: "Create, update and deactivate user accounts"},
	{Name: PrivManageRoles, Description: "Create roles and edit their privilege sets"},
	{Name: PrivManageEstablishments, Description: "Manage establishments"},
	{Name: PrivManageClassrooms, Description: "Manage classrooms"},
	{Name: PrivManageCommissions, Description: "Manage commissions and their members"},
	{Name: PrivManageStudents, Description: "Manage student records"},
	{Name: PrivManageTeachers, Description: "Manage teacher records"},
	{Name: PrivSendNotifications, Description: "Send notifications to users"},
	{Name: PrivViewReports, Description: "View reports and statistics"},
	{Name: PrivDeleteData, Description: "Permanently delete records"},
}

// templateExclusions lists the privileges withheld from a built-in role
// template when it is seeded. Roles absent from this map start empty
// (default-deny).
var templateExclusions = map[string][]string{
	RoleAdministrator: {PrivAppSetup, PrivManageUsers, PrivDeleteData},
}

// ListAllPrivileges returns the ordered closed set of privileges.
func ListAllPrivileges() []Privilege {
	all := make([]Privilege, len(allPrivileges))
	copy(all, allPrivileges)
	return all
}

// ExcludedFromTemplate returns the privilege names withheld from a built-in
// role template.
func ExcludedFromTemplate(template string) []string {
	excl := templateExclusions[template]
	out := make([]string, len(excl))
	copy(out, excl)
	return out
}

// TemplatePrivileges returns the privilege names a freshly-seeded built-in
// role template receives: every known privilege minus its exclusions. The
// super role is special-cased to an empty explicit set since it bypasses
// privilege checks entirely.
func TemplatePrivileges(template string) []string {
	if template == RoleSuperAdmin {
		return nil
	}
	if template != RoleAdministrator {
		return nil // default-deny for non-admin templates
	}
	excluded := templateExclusions[template]
	names := make([]string, 0, len(allPrivileges))
	for _, p := range allPrivileges {
		if !contains(excluded, p.Name) {
			names = append(names, p.Name)
		}
	}
	return names
}

// HasPrivilege reports whether required is among granted. Unknown names are
// simply not granted; this is a total function, never an error.
func HasPrivilege(granted []string, required string) bool {
	return contains(granted, required)
}

// HasAnyPrivilege reports whether at least one required privilege is granted.
func HasAnyPrivilege(granted []string, required ...string) bool {
	for _, req := range required {
		if contains(granted, req) {
			return true
		}
	}
	return false
}

// HasAllPrivileges reports whether every required privilege is granted.
func HasAllPrivileges(granted []string, required ...string) bool {
	for _, req := range required {
		if !contains(granted, req) {
			return false
		}
	}
	return true
}

// Authorize is the single place the super-role bypass is defined: a caller
// holding the permanent super role may do anything, including actions whose
// privilege is not yet in the registry. Every guard consults this function.
func Authorize(roleName string, granted []string, required string) bool {
	if roleName == RoleSuperAdmin {
		return true
	}
	return HasPrivilege(granted, required)
}

// NormalizeName canonicalizes a role name (uppercase, spaces to underscores)
// so names compare by exact string match everywhere.
func NormalizeName(name string) string {
	name = strings.Join(strings.Fields(strings.TrimSpace(name)), "_")
	return strings.ToUpper(name)
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
