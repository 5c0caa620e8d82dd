package inmemdb

import (
	"sync"

	"github.com/projhub/portal/core/attendance"
	"github.com/projhub/portal/core/batch"
	"github.com/projhub/portal/core/faculty"
	"github.com/projhub/portal/core/review"
	"github.com/projhub/portal/core/title"
)

type (
	// DB is a process-local entity store. Each table guards its map with its own lock.
	DB struct {
		batch      *batchTable
		student    *studentTable
		faculty    *facultyTable
		review     *reviewTable
		attendance *attendanceTable
		title      *titleTable
	}

	batchTable struct {
		sync.RWMutex
		seq   int
		table map[string]*batch.Batch
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*batch.Student
	}

	facultyTable struct {
		sync.RWMutex
		table map[string]*faculty.Faculty
	}

	reviewTable struct {
		sync.RWMutex
		table map[string]*review.Review
	}

	attendanceTable struct {
		sync.RWMutex
		table map[string]*attendance.Attendance
	}

	titleTable struct {
		sync.RWMutex
		table map[string]*title.Title
	}
)

func Open() *DB {
	return &DB{
		batch:      &batchTable{table: make(map[string]*batch.Batch)},
		student:    &studentTable{table: make(map[string]*batch.Student)},
		faculty:    &facultyTable{table: make(map[string]*faculty.Faculty)},
		review:     &reviewTable{table: make(map[string]*review.Review)},
		attendance: &attendanceTable{table: make(map[string]*attendance.Attendance)},
		title:      &titleTable{table: make(map[string]*title.Title)},
	}
}
