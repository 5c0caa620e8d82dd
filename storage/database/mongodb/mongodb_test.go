package mongorepos

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/attendance"
	"github.com/projhub/portal/core/batch"
	"github.com/projhub/portal/core/review"
	"github.com/projhub/portal/core/scoring"
	"github.com/projhub/portal/core/title"
)

// openTestDB connects to MONGO_TEST_URI and returns a throwaway database.
func openTestDB(t *testing.T) (*mongo.Database, *core.Config) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	conf := &core.Config{AppName: "portal-test"}
	conf.Database.URI = uri
	conf.Database.Name = "portal_test_" + uuid.New().String()[:8]
	conf.Database.Timeout = 10 * time.Second

	ctx := context.Background()
	client, db, err := Open(ctx, conf)
	require.NoError(t, err)
	require.NoError(t, EnsureIndexes(ctx, db))
	t.Cleanup(func() {
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db, conf
}

func TestBatchRepository(t *testing.T) {
	db, conf := openTestDB(t)
	ctx := context.Background()
	repo := NewBatchRepository(db, conf)

	number, err := repo.NextBatchNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Batch_1", number)

	now := time.Now().UTC().Truncate(time.Millisecond)
	_, err = repo.CreateBatch(ctx, batch.Batch{Number: number, Title: "IoT", Students: []string{"221FA04001"}, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	_, err = repo.CreateBatch(ctx, batch.Batch{Number: number, Title: "IoT"})
	assert.True(t, core.IsConflict(err))

	students := []batch.Student{{RegNo: "221FA04001", Section: "A", BatchNumber: number}}
	require.NoError(t, repo.CreateStudents(ctx, students))

	err = repo.CreateStudents(ctx, []batch.Student{{RegNo: "221FA04001"}, {RegNo: "221FA04002"}})
	conflict, ok := errors.Cause(err).(*core.ConflictError)
	require.True(t, ok, "want a conflict, got %v", err)
	assert.Equal(t, []string{"221FA04001"}, conflict.Values)

	require.NoError(t, repo.SetBatchProjectTitle(ctx, number, "Smart Farm"))
	require.NoError(t, repo.SetStudentsProjectTitle(ctx, number, "Smart Farm"))
	s, err := repo.GetStudent(ctx, "221FA04001")
	require.NoError(t, err)
	assert.Equal(t, "Smart Farm", s.ProjectTitle)

	assert.Equal(t, batch.ErrNotFound, repo.SetBatchProjectTitle(ctx, "Batch_99", "x"))
	_, err = repo.GetStudent(ctx, "221FA04002")
	assert.Equal(t, batch.ErrStudentNotFound, err)

	rostered, err := repo.FindRostered(ctx, []string{"221FA04001", "221FA04009"})
	require.NoError(t, err)
	assert.Equal(t, []string{"221FA04001"}, rostered)
	require.NoError(t, repo.RemoveFromRoster(ctx, number, "221FA04001"))
	rostered, err = repo.FindRostered(ctx, []string{"221FA04001"})
	require.NoError(t, err)
	assert.Empty(t, rostered)
	assert.Equal(t, batch.ErrNotFound, repo.RemoveFromRoster(ctx, "Batch_99", "221FA04001"))

	n, err := repo.DeleteStudents(ctx, number)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestReviewRepository_replace(t *testing.T) {
	db, conf := openTestDB(t)
	ctx := context.Background()
	repo := NewReviewRepository(db, conf)

	k := scoring.Key{Kind: scoring.Evaluation, ID: 1, Round: 1}
	require.NoError(t, repo.ReplaceReview(ctx, review.Review{
		BatchNumber: "Batch_1",
		Reviews:     map[string]scoring.Sheet{"221FA04001": {k: 4}},
	}))
	require.NoError(t, repo.ReplaceReview(ctx, review.Review{
		BatchNumber: "Batch_1",
		Reviews:     map[string]scoring.Sheet{"221FA04002": {k: 2}},
	}))

	r, err := repo.GetReview(ctx, "Batch_1")
	require.NoError(t, err)
	assert.Equal(t, map[string]scoring.Sheet{"221FA04002": {k: 2}}, r.Reviews)

	_, err = repo.GetReview(ctx, "Batch_2")
	assert.Equal(t, review.ErrNotFound, err)
}

func TestAttendanceRepository_merge(t *testing.T) {
	db, conf := openTestDB(t)
	ctx := context.Background()
	repo := NewAttendanceRepository(db, conf)

	_, err := repo.MergeAttendance(ctx, attendance.Attendance{Date: "2025-01-10", Attendance: map[string]bool{"221FA04001": true}})
	require.NoError(t, err)
	a, err := repo.MergeAttendance(ctx, attendance.Attendance{Date: "2025-01-10", Attendance: map[string]bool{"221FA04002": false}})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"221FA04001": true, "221FA04002": false}, a.Attendance)

	n, err := repo.DeleteAllAttendance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTitleRepository_upsert(t *testing.T) {
	db, conf := openTestDB(t)
	ctx := context.Background()
	repo := NewTitleRepository(db, conf)

	created, err := repo.UpsertTitle(ctx, title.Title{BatchNumber: "Batch_1", Name: "A"})
	require.NoError(t, err)
	assert.True(t, created)
	created, err = repo.UpsertTitle(ctx, title.Title{BatchNumber: "Batch_1", Name: "B"})
	require.NoError(t, err)
	assert.False(t, created)

	_, err = repo.CreateTitle(ctx, title.Title{BatchNumber: "Batch_1", Name: "C"})
	assert.True(t, core.IsConflict(err))

	tl, err := repo.GetTitle(ctx, "Batch_1")
	require.NoError(t, err)
	assert.Equal(t, "B", tl.Name)
}
