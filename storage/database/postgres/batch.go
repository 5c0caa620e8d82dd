package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/allocation"
	"github.com/projhub/portal/core/batch"
)

type (
	batchRow struct {
		Number       string         `db:"batch_number"`
		Title        string         `db:"title"`
		Students     pq.StringArray `db:"students"`
		ProjectTitle string         `db:"project_title"`
		PasswordHash []byte         `db:"password_hash"`
		CreatedAt    time.Time      `db:"created_at"`
		UpdatedAt    time.Time      `db:"updated_at"`
	}

	studentRow struct {
		RegNo        string    `db:"reg_no"`
		Section      string    `db:"section"`
		BatchNumber  string    `db:"batch_number"`
		BatchTitle   string    `db:"batch_title"`
		ProjectTitle string    `db:"project_title"`
		PasswordHash []byte    `db:"password_hash"`
		CreatedAt    time.Time `db:"created_at"`
		UpdatedAt    time.Time `db:"updated_at"`
	}
)

const (
	batchColumns   = "batch_number, title, students, project_title, password_hash, created_at, updated_at"
	studentColumns = "reg_no, section, batch_number, batch_title, project_title, password_hash, created_at, updated_at"
)

func (r batchRow) batch() batch.Batch {
	students := []string(r.Students)
	if students == nil {
		students = []string{}
	}
	return batch.Batch{
		Number:       r.Number,
		Title:        r.Title,
		Students:     students,
		ProjectTitle: r.ProjectTitle,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

func (r studentRow) student() batch.Student {
	return batch.Student{
		RegNo:        r.RegNo,
		Section:      r.Section,
		BatchNumber:  r.BatchNumber,
		BatchTitle:   r.BatchTitle,
		ProjectTitle: r.ProjectTitle,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type batchRepository struct {
	db      *sqlx.DB
	timeout timeout
}

var _ batch.Repository = (*batchRepository)(nil) // interface compliance check

func NewBatchRepository(db *sqlx.DB, conf *core.Config) *batchRepository {
	return &batchRepository{db: db, timeout: timeout(conf.Database.Timeout)}
}

func (repo *batchRepository) NextBatchNumber(ctx context.Context) (string, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	for {
		var seq int
		if err := repo.db.GetContext(ctx, &seq, "SELECT nextval('batch_number_seq')"); err != nil {
			return "", errors.Wrap(err, "drawing batch number")
		}
		number := allocation.BatchID(seq)
		var taken bool
		if err := repo.db.GetContext(ctx, &taken, "SELECT EXISTS (SELECT 1 FROM batches WHERE batch_number = $1)", number); err != nil {
			return "", errors.Wrap(err, "checking batch number")
		}
		if !taken {
			return number, nil
		}
	}
}

func (repo *batchRepository) CreateBatch(ctx context.Context, b batch.Batch) (batch.Batch, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	students := b.Students
	if students == nil {
		students = []string{}
	}
	row := batchRow{
		Number:       b.Number,
		Title:        b.Title,
		Students:     students,
		ProjectTitle: b.ProjectTitle,
		PasswordHash: b.PasswordHash,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
	q := `INSERT INTO batches (` + batchColumns + `)
		VALUES (:batch_number, :title, :students, :project_title, :password_hash, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		if isUniqueViolation(err) {
			return batch.Batch{}, batch.NewBatchExistsError(b.Number)
		}
		return batch.Batch{}, errors.Wrap(err, "inserting batch")
	}
	return row.batch(), nil
}

func (repo *batchRepository) GetBatch(ctx context.Context, number string) (batch.Batch, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var row batchRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+batchColumns+" FROM batches WHERE batch_number = $1", number); err != nil {
		return batch.Batch{}, trapNoRows(err, batch.ErrNotFound, "selecting batch")
	}
	return row.batch(), nil
}

func (repo *batchRepository) QueryBatches(ctx context.Context) ([]batch.Batch, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var rows []batchRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT "+batchColumns+" FROM batches"); err != nil {
		return nil, errors.Wrap(err, "selecting batches")
	}
	batches := make([]batch.Batch, 0, len(rows))
	for _, r := range rows {
		batches = append(batches, r.batch())
	}
	sortBatches(batches)
	return batches, nil
}

func (repo *batchRepository) UpdateBatch(ctx context.Context, b batch.Batch) (batch.Batch, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var row batchRow
	q := `UPDATE batches SET title = $2, students = COALESCE($3, students), updated_at = $4
		WHERE batch_number = $1 RETURNING ` + batchColumns
	var students interface{}
	if b.Students != nil {
		students = pq.StringArray(b.Students)
	}
	if err := repo.db.GetContext(ctx, &row, q, b.Number, b.Title, students, b.UpdatedAt); err != nil {
		return batch.Batch{}, trapNoRows(err, batch.ErrNotFound, "updating batch")
	}
	return row.batch(), nil
}

func (repo *batchRepository) SetBatchProjectTitle(ctx context.Context, number, projectTitle string) error {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	res, err := repo.db.ExecContext(ctx, "UPDATE batches SET project_title = $2 WHERE batch_number = $1", number, projectTitle)
	return affectedOrNotFound(res, err, batch.ErrNotFound, "setting batch project title")
}

func (repo *batchRepository) DeleteBatch(ctx context.Context, number string) error {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	res, err := repo.db.ExecContext(ctx, "DELETE FROM batches WHERE batch_number = $1", number)
	return affectedOrNotFound(res, err, batch.ErrNotFound, "deleting batch")
}

func (repo *batchRepository) RemoveFromRoster(ctx context.Context, number, regNo string) error {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	res, err := repo.db.ExecContext(ctx, "UPDATE batches SET students = array_remove(students, $2) WHERE batch_number = $1", number, regNo)
	return affectedOrNotFound(res, err, batch.ErrNotFound, "removing student from roster")
}

func (repo *batchRepository) FindRostered(ctx context.Context, regNos []string) ([]string, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var found []string
	q := `SELECT DISTINCT s FROM batches, unnest(students) AS s
		WHERE s = ANY($1) ORDER BY s`
	if err := repo.db.SelectContext(ctx, &found, q, pq.Array(regNos)); err != nil {
		return nil, errors.Wrap(err, "selecting rostered students")
	}
	return found, nil
}

// CreateStudents inserts every student in one transaction.
func (repo *batchRepository) CreateStudents(ctx context.Context, students []batch.Student) error {
	if len(students) == 0 {
		return nil
	}
	regNos := make([]string, 0, len(students))
	rows := make([]studentRow, 0, len(students))
	for _, s := range students {
		regNos = append(regNos, s.RegNo)
		rows = append(rows, studentRow{
			RegNo:        s.RegNo,
			Section:      s.Section,
			BatchNumber:  s.BatchNumber,
			BatchTitle:   s.BatchTitle,
			ProjectTitle: s.ProjectTitle,
			PasswordHash: s.PasswordHash,
			CreatedAt:    s.CreatedAt,
			UpdatedAt:    s.UpdatedAt,
		})
	}

	tctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	q := `INSERT INTO students (` + studentColumns + `)
		VALUES (:reg_no, :section, :batch_number, :batch_title, :project_title, :password_hash, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(tctx, q, rows); err != nil {
		if isUniqueViolation(err) {
			existing, fErr := repo.FindStudents(ctx, regNos)
			if fErr != nil {
				return fErr
			}
			taken := make([]string, 0, len(existing))
			for _, s := range existing {
				taken = append(taken, s.RegNo)
			}
			return batch.NewRegNosExistError(taken...)
		}
		return errors.Wrap(err, "inserting students")
	}
	return nil
}

func (repo *batchRepository) FindStudents(ctx context.Context, regNos []string) ([]batch.Student, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var rows []studentRow
	q := "SELECT " + studentColumns + " FROM students WHERE reg_no = ANY($1) ORDER BY reg_no"
	if err := repo.db.SelectContext(ctx, &rows, q, pq.Array(regNos)); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	return unmarshalStudents(rows), nil
}

func (repo *batchRepository) GetStudent(ctx context.Context, regNo string) (batch.Student, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var row studentRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+studentColumns+" FROM students WHERE reg_no = $1", regNo); err != nil {
		return batch.Student{}, trapNoRows(err, batch.ErrStudentNotFound, "selecting student")
	}
	return row.student(), nil
}

func (repo *batchRepository) QueryStudents(ctx context.Context, batchNumber string) ([]batch.Student, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var rows []studentRow
	q := "SELECT " + studentColumns + " FROM students WHERE ($1 = '' OR batch_number = $1) ORDER BY reg_no"
	if err := repo.db.SelectContext(ctx, &rows, q, batchNumber); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	return unmarshalStudents(rows), nil
}

func (repo *batchRepository) UpdateStudent(ctx context.Context, s batch.Student) (batch.Student, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	var row studentRow
	q := "UPDATE students SET section = $2, updated_at = $3 WHERE reg_no = $1 RETURNING " + studentColumns
	if err := repo.db.GetContext(ctx, &row, q, s.RegNo, s.Section, s.UpdatedAt); err != nil {
		return batch.Student{}, trapNoRows(err, batch.ErrStudentNotFound, "updating student")
	}
	return row.student(), nil
}

func (repo *batchRepository) SetStudentsProjectTitle(ctx context.Context, batchNumber, projectTitle string) error {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	_, err := repo.db.ExecContext(ctx, "UPDATE students SET project_title = $2 WHERE batch_number = $1", batchNumber, projectTitle)
	return errors.Wrap(err, "setting students project title")
}

func (repo *batchRepository) DeleteStudent(ctx context.Context, regNo string) error {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	res, err := repo.db.ExecContext(ctx, "DELETE FROM students WHERE reg_no = $1", regNo)
	return affectedOrNotFound(res, err, batch.ErrStudentNotFound, "deleting student")
}

func (repo *batchRepository) DeleteStudents(ctx context.Context, batchNumber string) (int64, error) {
	ctx, cancel := repo.timeout.context(ctx)
	defer cancel()

	res, err := repo.db.ExecContext(ctx, "DELETE FROM students WHERE batch_number = $1", batchNumber)
	if err != nil {
		return 0, errors.Wrap(err, "deleting students")
	}
	return res.RowsAffected()
}

func unmarshalStudents(rows []studentRow) []batch.Student {
	students := make([]batch.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.student())
	}
	return students
}
