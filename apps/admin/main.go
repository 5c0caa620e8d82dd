package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/faculty"
	"github.com/projhub/portal/storage/database"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	cli := commandLine{}
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		db, err := openSQL(conf)
		errAndDie(err)
		defer db.Close()
		cli.db = db
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), conf.Database.Timeout)
		repos, err := database.Open(ctx, conf)
		cancel()
		errAndDie(err)
		defer repos.Close()

		validate, translator := validator.New(), newTranslator()
		errAndDie(core.InitValidators(validate, translator, conf.Signup.RegistrationPattern))
		faculty.InitValidators(validate, translator)
		cli.facultySvc = faculty.NewService(repos.Faculty, validate)
	}

	// start CLI
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

// openSQL connects to the PostgreSQL database; migrations only exist for that engine.
func openSQL(conf *core.Config) (*sql.DB, error) {
	if conf.Database.Engine != core.EnginePostgres {
		return nil, errors.Errorf("migrate: the %q engine has no migrations", conf.Database.Engine)
	}
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	return database.OpenPostgres(conf)
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
