package dummydb

import (
	"sync"

	"github.com/shuleos/shule/core/role"
	"github.com/shuleos/shule/core/school"
	"github.com/shuleos/shule/core/user"
)

// DB is a map-backed store for tests and local hacking. It honors the same
// contracts as the SQL store, including the sole-holder rule on the super
// admin role.
type (
	DB struct {
		user      *userTable
		role      *roleTable
		privilege *privilegeTable
		school    *schoolTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	roleTable struct {
		sync.RWMutex
		table map[string]*role.Role
	}

	privilegeTable struct {
		sync.RWMutex
		table map[string]*role.Privilege
	}

	schoolTable struct {
		sync.RWMutex
		establishments map[string]*school.Establishment
		classrooms     map[string]*school.Classroom
		commissions    map[string]*school.Commission
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:      &userTable{table: make(map[string]*user.User)},
		role:      &roleTable{table: make(map[string]*role.Role)},
		privilege: &privilegeTable{table: make(map[string]*role.Privilege)},
		school: &schoolTable{
			establishments: make(map[string]*school.Establishment),
			classrooms:     make(map[string]*school.Classroom),
			commissions:    make(map[string]*school.Commission),
		},
	}
	return db, nil
}
