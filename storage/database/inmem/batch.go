package inmemdb

import (
	"context"
	"sort"

	"github.com/projhub/portal/core/allocation"
	"github.com/projhub/portal/core/batch"
)

type batchRepository struct {
	batches  *batchTable
	students *studentTable
}

var _ batch.Repository = (*batchRepository)(nil) // interface compliance check

func NewBatchRepository(db *DB) *batchRepository {
	return &batchRepository{batches: db.batch, students: db.student}
}

func copyBatch(b *batch.Batch) batch.Batch {
	c := *b
	c.Students = append([]string(nil), b.Students...)
	return c
}

func (repo *batchRepository) NextBatchNumber(_ context.Context) (string, error) {
	repo.batches.Lock()
	defer repo.batches.Unlock()

	for {
		repo.batches.seq++
		number := allocation.BatchID(repo.batches.seq)
		if _, taken := repo.batches.table[number]; !taken {
			return number, nil
		}
	}
}

func (repo *batchRepository) CreateBatch(_ context.Context, b batch.Batch) (batch.Batch, error) {
	repo.batches.Lock()
	defer repo.batches.Unlock()

	if _, ok := repo.batches.table[b.Number]; ok {
		return batch.Batch{}, batch.NewBatchExistsError(b.Number)
	}
	c := copyBatch(&b)
	repo.batches.table[b.Number] = &c
	return copyBatch(&c), nil
}

func (repo *batchRepository) GetBatch(_ context.Context, number string) (batch.Batch, error) {
	repo.batches.RLock()
	defer repo.batches.RUnlock()

	if b, ok := repo.batches.table[number]; ok {
		return copyBatch(b), nil
	}
	return batch.Batch{}, batch.ErrNotFound
}

func (repo *batchRepository) QueryBatches(_ context.Context) ([]batch.Batch, error) {
	repo.batches.RLock()
	defer repo.batches.RUnlock()

	batches := make([]batch.Batch, 0, len(repo.batches.table))
	for _, b := range repo.batches.table {
		batches = append(batches, copyBatch(b))
	}
	sort.Slice(batches, func(i, j int) bool { return allocation.LessBatch(batches[i].Number, batches[j].Number) })
	return batches, nil
}

func (repo *batchRepository) UpdateBatch(_ context.Context, b batch.Batch) (batch.Batch, error) {
	repo.batches.Lock()
	defer repo.batches.Unlock()

	orig, ok := repo.batches.table[b.Number]
	if !ok {
		return batch.Batch{}, batch.ErrNotFound
	}
	orig.Title = b.Title
	if b.Students != nil {
		orig.Students = append([]string(nil), b.Students...)
	}
	orig.UpdatedAt = b.UpdatedAt
	return copyBatch(orig), nil
}

func (repo *batchRepository) SetBatchProjectTitle(_ context.Context, number, projectTitle string) error {
	repo.batches.Lock()
	defer repo.batches.Unlock()

	b, ok := repo.batches.table[number]
	if !ok {
		return batch.ErrNotFound
	}
	b.ProjectTitle = projectTitle
	return nil
}

func (repo *batchRepository) DeleteBatch(_ context.Context, number string) error {
	repo.batches.Lock()
	defer repo.batches.Unlock()

	if _, ok := repo.batches.table[number]; !ok {
		return batch.ErrNotFound
	}
	delete(repo.batches.table, number)
	return nil
}

func (repo *batchRepository) RemoveFromRoster(_ context.Context, number, regNo string) error {
	repo.batches.Lock()
	defer repo.batches.Unlock()

	b, ok := repo.batches.table[number]
	if !ok {
		return batch.ErrNotFound
	}
	students := b.Students[:0:0]
	for _, s := range b.Students {
		if s != regNo {
			students = append(students, s)
		}
	}
	b.Students = students
	return nil
}

func (repo *batchRepository) FindRostered(_ context.Context, regNos []string) ([]string, error) {
	repo.batches.RLock()
	defer repo.batches.RUnlock()

	wanted := make(map[string]bool, len(regNos))
	for _, regNo := range regNos {
		wanted[regNo] = true
	}
	var found []string
	for _, b := range repo.batches.table {
		for _, s := range b.Students {
			if wanted[s] {
				found = append(found, s)
				delete(wanted, s)
			}
		}
	}
	sort.Strings(found)
	return found, nil
}

func (repo *batchRepository) CreateStudents(_ context.Context, students []batch.Student) error {
	repo.students.Lock()
	defer repo.students.Unlock()

	var taken []string
	for _, s := range students {
		if _, ok := repo.students.table[s.RegNo]; ok {
			taken = append(taken, s.RegNo)
		}
	}
	if len(taken) > 0 {
		return batch.NewRegNosExistError(taken...)
	}
	for _, s := range students {
		s := s
		repo.students.table[s.RegNo] = &s
	}
	return nil
}

func (repo *batchRepository) FindStudents(_ context.Context, regNos []string) ([]batch.Student, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()

	var found []batch.Student
	for _, regNo := range regNos {
		if s, ok := repo.students.table[regNo]; ok {
			found = append(found, *s)
		}
	}
	return found, nil
}

func (repo *batchRepository) GetStudent(_ context.Context, regNo string) (batch.Student, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()

	if s, ok := repo.students.table[regNo]; ok {
		return *s, nil
	}
	return batch.Student{}, batch.ErrStudentNotFound
}

func (repo *batchRepository) QueryStudents(_ context.Context, batchNumber string) ([]batch.Student, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()

	students := make([]batch.Student, 0, len(repo.students.table))
	for _, s := range repo.students.table {
		if batchNumber == "" || s.BatchNumber == batchNumber {
			students = append(students, *s)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].RegNo < students[j].RegNo })
	return students, nil
}

func (repo *batchRepository) UpdateStudent(_ context.Context, s batch.Student) (batch.Student, error) {
	repo.students.Lock()
	defer repo.students.Unlock()

	orig, ok := repo.students.table[s.RegNo]
	if !ok {
		return batch.Student{}, batch.ErrStudentNotFound
	}
	orig.Section = s.Section
	orig.UpdatedAt = s.UpdatedAt
	return *orig, nil
}

func (repo *batchRepository) SetStudentsProjectTitle(_ context.Context, batchNumber, projectTitle string) error {
	repo.students.Lock()
	defer repo.students.Unlock()

	for _, s := range repo.students.table {
		if s.BatchNumber == batchNumber {
			s.ProjectTitle = projectTitle
		}
	}
	return nil
}

func (repo *batchRepository) DeleteStudent(_ context.Context, regNo string) error {
	repo.students.Lock()
	defer repo.students.Unlock()

	if _, ok := repo.students.table[regNo]; !ok {
		return batch.ErrStudentNotFound
	}
	delete(repo.students.table, regNo)
	return nil
}

func (repo *batchRepository) DeleteStudents(_ context.Context, batchNumber string) (int64, error) {
	repo.students.Lock()
	defer repo.students.Unlock()

	var n int64
	for regNo, s := range repo.students.table {
		if s.BatchNumber == batchNumber {
			delete(repo.students.table, regNo)
			n++
		}
	}
	return n, nil
}
