package inmemdb

import (
	"context"
	"sort"

	"github.com/projhub/portal/core/attendance"
)

type attendanceRepository struct {
	db *attendanceTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db.attendance}
}

func copyAttendance(a *attendance.Attendance) attendance.Attendance {
	c := attendance.Attendance{Date: a.Date, UpdatedAt: a.UpdatedAt, Attendance: make(map[string]bool, len(a.Attendance))}
	for regNo, present := range a.Attendance {
		c.Attendance[regNo] = present
	}
	return c
}

func (repo *attendanceRepository) GetAttendance(_ context.Context, date string) (attendance.Attendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.table[date]; ok {
		return copyAttendance(a), nil
	}
	return attendance.Attendance{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) MergeAttendance(_ context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[a.Date]
	if !ok {
		orig = &attendance.Attendance{Date: a.Date, Attendance: make(map[string]bool, len(a.Attendance))}
		repo.db.table[a.Date] = orig
	}
	for regNo, present := range a.Attendance {
		orig.Attendance[regNo] = present
	}
	orig.UpdatedAt = a.UpdatedAt
	return copyAttendance(orig), nil
}

func (repo *attendanceRepository) QueryAttendance(_ context.Context) ([]attendance.Attendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	all := make([]attendance.Attendance, 0, len(repo.db.table))
	for _, a := range repo.db.table {
		all = append(all, copyAttendance(a))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Date < all[j].Date })
	return all, nil
}

func (repo *attendanceRepository) DeleteAllAttendance(_ context.Context) (int64, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	n := int64(len(repo.db.table))
	repo.db.table = make(map[string]*attendance.Attendance)
	return n, nil
}
