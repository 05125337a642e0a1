package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/shuleos/shule/core/school"
)

type schoolRepository struct {
	db    *schoolTable
	users *userTable
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{db: db.school, users: db.user}
}

func (repo *schoolRepository) CreateEstablishment(_ context.Context, e school.Establishment) (school.Establishment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	e.ID = uuid.New().String()
	repo.db.establishments[e.ID] = &e
	return e, nil
}

func (repo *schoolRepository) QueryEstablishments(_ context.Context) ([]school.Establishment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	out := make([]school.Establishment, 0, len(repo.db.establishments))
	for _, e := range repo.db.establishments {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (repo *schoolRepository) GetEstablishment(_ context.Context, id string) (school.Establishment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if e, ok := repo.db.establishments[id]; ok {
		return *e, nil
	}
	return school.Establishment{}, school.ErrNotFound
}

func (repo *schoolRepository) UpdateEstablishment(_ context.Context, e school.Establishment) (school.Establishment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.establishments[e.ID]; !ok {
		return school.Establishment{}, school.ErrNotFound
	}
	repo.db.establishments[e.ID] = &e
	return e, nil
}

func (repo *schoolRepository) DeleteEstablishment(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.establishments[id]; !ok {
		return school.ErrNotFound
	}
	delete(repo.db.establishments, id)
	for cid, c := range repo.db.classrooms {
		if c.EstablishmentID == id {
			delete(repo.db.classrooms, cid)
		}
	}
	return nil
}

func (repo *schoolRepository) CreateClassroom(_ context.Context, c school.Classroom) (school.Classroom, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = uuid.New().String()
	repo.db.classrooms[c.ID] = &c
	return c, nil
}

func (repo *schoolRepository) QueryClassrooms(_ context.Context, establishmentID string) ([]school.Classroom, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var out []school.Classroom
	for _, c := range repo.db.classrooms {
		if c.EstablishmentID == establishmentID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (repo *schoolRepository) DeleteClassroom(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.classrooms[id]; !ok {
		return school.ErrNotFound
	}
	delete(repo.db.classrooms, id)
	return nil
}

func (repo *schoolRepository) CreateCommission(_ context.Context, c school.Commission) (school.Commission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = uuid.New().String()
	repo.db.commissions[c.ID] = &c
	return c, nil
}

func (repo *schoolRepository) attachAdmin(c school.Commission) school.Commission {
	repo.users.RLock()
	defer repo.users.RUnlock()

	if admin, ok := repo.users.table[c.AdminID]; ok {
		adminCopy := *admin
		adminCopy.PasswordHash = nil
		c.Admin = &adminCopy
	}
	return c
}

func (repo *schoolRepository) QueryCommissions(_ context.Context) ([]school.Commission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	out := make([]school.Commission, 0, len(repo.db.commissions))
	for _, c := range repo.db.commissions {
		out = append(out, repo.attachAdmin(*c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (repo *schoolRepository) GetCommission(_ context.Context, id string) (school.Commission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.commissions[id]; ok {
		return repo.attachAdmin(*c), nil
	}
	return school.Commission{}, school.ErrNotFound
}

func (repo *schoolRepository) DeleteCommission(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.commissions[id]; !ok {
		return school.ErrNotFound
	}
	delete(repo.db.commissions, id)
	return nil
}
