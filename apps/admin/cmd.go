package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"golang.org/x/term"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/faculty"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sql.DB
	facultySvc faculty.ServiceInterface
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  addfaculty -id FACULTY_ID -role ROLE - add a faculty account, or replace its role and password")
	fmt.Println("  resetpassword -id FACULTY_ID - reset a faculty member's password")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (postgres only)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addFacultyCmd := flag.NewFlagSet("addfaculty", flag.ContinueOnError)
	addFacultyID := addFacultyCmd.String("id", "", "The faculty id. The password will be prompted next.")
	addFacultyRole := addFacultyCmd.String("role", core.RoleFaculty, "One of: DEO, Project Coordinator, Faculty.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordID := resetPasswordCmd.String("id", "", "The faculty id. The password will be prompted next.")

	switch args[1] {
	case "addfaculty":
		if err := addFacultyCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addFacultyID == "" || !core.IsFacultyRole(*addFacultyRole) {
			addFacultyCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addFacultyCmd.Usage()
			return errHelp
		}
		return cli.addFaculty(*addFacultyID, *addFacultyRole, pwd)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordID == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordID, pwd)
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
