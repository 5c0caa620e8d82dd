package faculty_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/faculty"
	"github.com/projhub/portal/tests"
)

const goodPwd = "Pr0ject!Portal"

func newService(t *testing.T) (*faculty.Service, testutil.Repos) {
	validate, _ := testutil.NewValidator(t)
	repos := testutil.NewRepos()
	return faculty.NewService(repos.Faculty, validate), repos
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	f, err := svc.Create(ctx, faculty.NewFaculty{ID: " FAC001 ", Password: goodPwd, Role: core.RoleFaculty})
	require.NoError(t, err)
	assert.Equal(t, "FAC001", f.ID)
	assert.NotEmpty(t, f.PasswordHash)

	_, err = svc.Create(ctx, faculty.NewFaculty{ID: "FAC001", Password: goodPwd, Role: core.RoleDEO})
	conflict, ok := errors.Cause(err).(*core.ConflictError)
	require.True(t, ok, "want a conflict, got %v", err)
	assert.Equal(t, []string{"FAC001"}, conflict.Values)
	assert.Equal(t, "Faculty ID must be unique", conflict.Error())
}

func TestNewFaculty_Validate(t *testing.T) {
	validate, translator := testutil.NewValidator(t)

	tests := []struct {
		name    string
		nf      faculty.NewFaculty
		wantTag string
		wantMsg string
	}{
		{name: "ok", nf: faculty.NewFaculty{ID: "FAC001", Password: goodPwd, Role: core.RoleCoordinator}},
		{name: "bad role", nf: faculty.NewFaculty{ID: "FAC001", Password: goodPwd, Role: "Dean"}, wantTag: "facultyrole"},
		{name: "student role", nf: faculty.NewFaculty{ID: "FAC001", Password: goodPwd, Role: core.RoleStudent}, wantTag: "facultyrole"},
		{name: "blank id", nf: faculty.NewFaculty{ID: "  ", Password: goodPwd, Role: core.RoleDEO}, wantTag: "notblank"},
		{
			name:    "short password",
			nf:      faculty.NewFaculty{ID: "FAC001", Password: "Ab1!", Role: core.RoleDEO},
			wantTag: "pwdminlen",
			wantMsg: "password must contain at least 8 characters",
		},
		{name: "whitespace", nf: faculty.NewFaculty{ID: "FAC001", Password: "Ab1! xyz9", Role: core.RoleDEO}, wantTag: "pwdnospace"},
		{name: "all numeric", nf: faculty.NewFaculty{ID: "FAC001", Password: "12345678", Role: core.RoleDEO}, wantTag: "pwdnotallnum"},
		{name: "too simple", nf: faculty.NewFaculty{ID: "FAC001", Password: "abcdefgh1", Role: core.RoleDEO}, wantTag: "pwdcplx"},
		{name: "similar to id", nf: faculty.NewFaculty{ID: "Fac!2024x", Password: "Fac!2024X", Role: core.RoleDEO}, wantTag: "pwdtoosim"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nf := tt.nf
			err := nf.Validate(validate)
			if tt.wantTag == "" {
				assert.NoError(t, err)
				return
			}
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "want validator errors, got %v", err)
			require.Len(t, vErrs, 1)
			assert.Equal(t, tt.wantTag, vErrs[0].Tag())
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, vErrs[0].Translate(translator))
			}
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	svc, repos := newService(t)
	testutil.CreateFaculty(t, repos.Faculty, "FAC001", goodPwd, core.RoleCoordinator)

	f, err := svc.Authenticate(ctx, "FAC001", goodPwd)
	require.NoError(t, err)
	assert.Equal(t, core.RoleCoordinator, f.Role)

	_, err = svc.Authenticate(ctx, "FAC001", "wrong")
	assert.Equal(t, faculty.ErrInvalidLogin, err)
	_, err = svc.Authenticate(ctx, "NOPE", goodPwd)
	assert.Equal(t, faculty.ErrInvalidLogin, err)
}

func TestService_Role(t *testing.T) {
	ctx := context.Background()
	svc, repos := newService(t)
	testutil.CreateFaculty(t, repos.Faculty, "FAC001", goodPwd, core.RoleDEO)

	role, err := svc.Role(ctx, "FAC001")
	require.NoError(t, err)
	assert.Equal(t, core.RoleDEO, role)

	_, err = svc.Role(ctx, "NOPE")
	assert.True(t, core.IsNotFound(err))
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc, repos := newService(t)
	testutil.CreateFaculty(t, repos.Faculty, "FAC001", goodPwd, core.RoleFaculty)

	f, err := svc.Update(ctx, "FAC001", faculty.UpdateFaculty{Role: core.RoleCoordinator})
	require.NoError(t, err)
	assert.Equal(t, core.RoleCoordinator, f.Role)

	_, err = svc.Update(ctx, "FAC001", faculty.UpdateFaculty{Password: "weak"})
	assert.Error(t, err)

	_, err = svc.Update(ctx, "NOPE", faculty.UpdateFaculty{Role: core.RoleDEO})
	assert.True(t, core.IsNotFound(err))

	require.NoError(t, svc.ResetPassword(ctx, faculty.ResetPassword{ID: "FAC001", Password: "N3w!Secret"}))
	_, err = svc.Authenticate(ctx, "FAC001", "N3w!Secret")
	assert.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "FAC001"))
	faculties, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, faculties)
}

func TestService_AddOrUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, created, err := svc.AddOrUpdate(ctx, faculty.NewFaculty{ID: "FAC002", Password: goodPwd, Role: core.RoleFaculty})
	require.NoError(t, err)
	assert.True(t, created)

	f, created, err := svc.AddOrUpdate(ctx, faculty.NewFaculty{ID: "FAC002", Password: "An0ther!Pwd", Role: core.RoleDEO})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, core.RoleDEO, f.Role)
	assert.NoError(t, f.CheckPassword("An0ther!Pwd"))
}
