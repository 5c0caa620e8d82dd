package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/faculty"
	"github.com/projhub/portal/tests"
)

var facultyRepo faculty.Repository

func setup(t *testing.T) *commandLine {
	repos := testutil.NewRepos()
	facultyRepo = repos.Faculty
	validate, _ := testutil.NewValidator(t)

	// start CLI
	return &commandLine{
		facultySvc: faculty.NewService(facultyRepo, validate),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantAnyErr bool
	extra      interface{}
}

func checkRunErr(t *testing.T, tt cliTest, err error) {
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantAnyErr:
		assert.Error(t, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	migrateFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkRunErr(t, tt, cli.run(args))
		})
	}
}

func Test_commandLine_addFaculty(t *testing.T) {
	cli := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no id", args: []string{"addfaculty"}, wantErr: errHelp},
		{name: "unknown role", args: []string{"addfaculty", "-id", "F001", "-role", "Dean"}, extra: extra{pwd: "Passw0rd!"}, wantErr: errHelp},
		{name: "no password", args: []string{"addfaculty", "-id", "F001"}, wantErr: errHelp},
		{name: "create", args: []string{"addfaculty", "-id", "F001"}, extra: extra{pwd: "Passw0rd!"}},
		{name: "replace role", args: []string{"addfaculty", "-id", "F001", "-role", core.RoleDEO}, extra: extra{pwd: "N3w#Passw"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			checkRunErr(t, tt, cli.run(args))
		})
	}

	f, err := cli.facultySvc.Authenticate(context.Background(), "F001", "N3w#Passw")
	require.NoError(t, err)
	assert.Equal(t, core.RoleDEO, f.Role)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	fac := testutil.CreateFaculty(t, facultyRepo, "F001", "Passw0rd!", core.RoleFaculty)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "id but no password", args: []string{"resetpassword", "-id", "F404"}, wantErr: errHelp},
		{name: "faculty not found", args: []string{"resetpassword", "-id", "F404"}, extra: extra{pwd: "N3w#Passw"}, wantErr: faculty.ErrNotFound},
		{name: "weak password", args: []string{"resetpassword", "-id", fac.ID}, extra: extra{pwd: "short"}, wantAnyErr: true},
		{name: "reset", args: []string{"resetpassword", "-id", fac.ID}, extra: extra{pwd: "N3w#Passw"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			checkRunErr(t, tt, cli.run(args))
		})
	}

	refreshed, err := facultyRepo.GetFaculty(context.Background(), fac.ID)
	require.NoError(t, err)
	assert.NotEqual(t, fac.PasswordHash, refreshed.PasswordHash)
}
