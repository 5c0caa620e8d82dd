package main

import (
	"context"
	"fmt"

	"github.com/projhub/portal/core/faculty"
)

// addFaculty creates the account or, when the id is taken, replaces its role and password.
func (cli *commandLine) addFaculty(id, role, pwd string) error {
	f, created, err := cli.facultySvc.AddOrUpdate(context.Background(), faculty.NewFaculty{
		ID:       id,
		Password: pwd,
		Role:     role,
	})
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("faculty %q created as %s\n", f.ID, f.Role)
	} else {
		fmt.Printf("faculty %q updated as %s\n", f.ID, f.Role)
	}
	return nil
}

func (cli *commandLine) resetPassword(id, pwd string) error {
	return cli.facultySvc.ResetPassword(context.Background(), faculty.ResetPassword{ID: id, Password: pwd})
}
