// Package database opens the configured store and hands out its repositories.
package database

import (
	"context"
	"database/sql"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/attendance"
	"github.com/projhub/portal/core/batch"
	"github.com/projhub/portal/core/faculty"
	"github.com/projhub/portal/core/review"
	"github.com/projhub/portal/core/title"
	"github.com/projhub/portal/storage/database/inmem"
	"github.com/projhub/portal/storage/database/mongodb"
	"github.com/projhub/portal/storage/database/postgres"
)

// Repositories are the entity stores of one database.
type Repositories struct {
	Batch      batch.Repository
	Faculty    faculty.Repository
	Review     review.Repository
	Attendance attendance.Repository
	Title      title.Repository

	close func() error
}

// Close releases the underlying connection.
func (r Repositories) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

// Open connects to the engine named in the configuration and prepares it for use:
// indexes for MongoDB, migrations for PostgreSQL.
func Open(ctx context.Context, conf *core.Config) (Repositories, error) {
	switch conf.Database.Engine {
	case core.EngineMongo:
		return openMongo(ctx, conf)
	case core.EnginePostgres:
		return openPostgres(conf)
	case core.EngineMemory:
		db := inmemdb.Open()
		return Repositories{
			Batch:      inmemdb.NewBatchRepository(db),
			Faculty:    inmemdb.NewFacultyRepository(db),
			Review:     inmemdb.NewReviewRepository(db),
			Attendance: inmemdb.NewAttendanceRepository(db),
			Title:      inmemdb.NewTitleRepository(db),
		}, nil
	default:
		return Repositories{}, errors.Errorf("unknown database engine %q", conf.Database.Engine)
	}
}

func openMongo(ctx context.Context, conf *core.Config) (Repositories, error) {
	client, db, err := mongorepos.Open(ctx, conf)
	if err != nil {
		return Repositories{}, err
	}
	if err = mongorepos.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return Repositories{}, errors.Wrap(err, "creating indexes")
	}
	return Repositories{
		Batch:      mongorepos.NewBatchRepository(db, conf),
		Faculty:    mongorepos.NewFacultyRepository(db, conf),
		Review:     mongorepos.NewReviewRepository(db, conf),
		Attendance: mongorepos.NewAttendanceRepository(db, conf),
		Title:      mongorepos.NewTitleRepository(db, conf),
		close:      func() error { return client.Disconnect(context.Background()) },
	}, nil
}

func openPostgres(conf *core.Config) (Repositories, error) {
	if err := CreateIfNotExist(conf); err != nil {
		return Repositories{}, err
	}
	sqlDB, err := OpenPostgres(conf)
	if err != nil {
		return Repositories{}, errors.Wrap(err, "opening database")
	}
	if err = ping(sqlDB); err != nil {
		_ = sqlDB.Close()
		return Repositories{}, err
	}
	if err = Migrate(sqlDB, "up"); err != nil {
		_ = sqlDB.Close()
		return Repositories{}, err
	}
	db := pgrepos.NewDB(sqlDB)
	return Repositories{
		Batch:      pgrepos.NewBatchRepository(db, conf),
		Faculty:    pgrepos.NewFacultyRepository(db, conf),
		Review:     pgrepos.NewReviewRepository(db, conf),
		Attendance: pgrepos.NewAttendanceRepository(db, conf),
		Title:      pgrepos.NewTitleRepository(db, conf),
		close:      db.Close,
	}, nil
}

func open(dbName string, admin bool, conf *core.Config) (*sql.DB, error) {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return sql.Open("postgres", u.String())
}

// OpenPostgres opens the application database as the application user.
func OpenPostgres(conf *core.Config) (*sql.DB, error) {
	return open(conf.Database.Name, false, conf)
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func exists(db *sqlx.DB, q, name string) (bool, error) {
	var found bool
	if err := db.Get(&found, q, name); err != nil {
		return false, err
	}
	return found, nil
}

func createAppUser(db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	found, err := exists(db, "SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !found {
		q := "CREATE USER " + pq.QuoteIdentifier(conf.Database.User) +
			" CREATEDB ENCRYPTED PASSWORD " + pq.QuoteLiteral(conf.Database.Password)
		if _, err = db.Exec(q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(db *sqlx.DB, conf *core.Config) error {
	found, err := exists(db, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !found {
		if _, err = db.Exec("CREATE DATABASE " + pq.QuoteIdentifier(conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the application role and database on a PostgreSQL server.
func CreateIfNotExist(conf *core.Config) error {
	// connect as admin
	adminDB, err := open("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer adminDB.Close()

	if err = ping(adminDB); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(pgrepos.NewDB(adminDB), conf); err != nil {
		return err
	}

	// create DB as app user
	appDB, err := open("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer appDB.Close()

	return createDB(pgrepos.NewDB(appDB), conf)
}

// Migrate runs a goose command (up, down, status, ...) against the embedded migrations.
func Migrate(db *sql.DB, command string, args ...string) error {
	goose.SetBaseFS(pgrepos.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}
	if err := goose.Run(command, db, pgrepos.MigrationsDir, args...); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
