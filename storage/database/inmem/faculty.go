package inmemdb

import (
	"context"
	"sort"

	"github.com/projhub/portal/core/faculty"
)

type facultyRepository struct {
	db *facultyTable
}

var _ faculty.Repository = (*facultyRepository)(nil) // interface compliance check

func NewFacultyRepository(db *DB) *facultyRepository {
	return &facultyRepository{db: db.faculty}
}

func (repo *facultyRepository) CreateFaculty(_ context.Context, f faculty.Faculty) (faculty.Faculty, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[f.ID]; ok {
		return faculty.Faculty{}, faculty.NewExistsError(f.ID)
	}
	repo.db.table[f.ID] = &f
	return f, nil
}

func (repo *facultyRepository) GetFaculty(_ context.Context, id string) (faculty.Faculty, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if f, ok := repo.db.table[id]; ok {
		return *f, nil
	}
	return faculty.Faculty{}, faculty.ErrNotFound
}

func (repo *facultyRepository) QueryFaculties(_ context.Context) ([]faculty.Faculty, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	faculties := make([]faculty.Faculty, 0, len(repo.db.table))
	for _, f := range repo.db.table {
		faculties = append(faculties, *f)
	}
	sort.Slice(faculties, func(i, j int) bool { return faculties[i].ID < faculties[j].ID })
	return faculties, nil
}

func (repo *facultyRepository) UpdateFaculty(_ context.Context, f faculty.Faculty) (faculty.Faculty, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// only save set fields
	orig, ok := repo.db.table[f.ID]
	if !ok {
		return faculty.Faculty{}, faculty.ErrNotFound
	}
	if f.Role != "" {
		orig.Role = f.Role
	}
	if f.PasswordHash != nil {
		orig.PasswordHash = f.PasswordHash
	}
	orig.UpdatedAt = f.UpdatedAt
	return *orig, nil
}

func (repo *facultyRepository) DeleteFaculty(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return faculty.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
