package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotaline/internal/config"
	"quotaline/internal/domain"
	"quotaline/internal/engine/auth"
	"quotaline/internal/repo"
)

type memDirectory map[string]domain.AdminMember

func (m memDirectory) GetAdmin(_ context.Context, id string) (domain.AdminMember, error) {
	if a, ok := m[id]; ok {
		return a, nil
	}
	return domain.AdminMember{}, repo.ErrNotFound
}

func (m memDirectory) GetAdminByName(_ context.Context, name string) (domain.AdminMember, error) {
	for _, a := range m {
		if a.Name == name {
			return a, nil
		}
	}
	return domain.AdminMember{}, repo.ErrNotFound
}

func (m memDirectory) ListAdmins(context.Context) ([]domain.AdminMember, error) {
	res := make([]domain.AdminMember, 0, len(m))
	for _, a := range m {
		res = append(res, a)
	}
	return res, nil
}

func newService() auth.Service {
	return auth.Service{
		Config: config.Default("team-1"),
		Directory: memDirectory{
			"own-1": {ID: "own-1", Name: "olga", Role: domain.RoleOwner},
			"man-1": {ID: "man-1", Name: "marc", Role: domain.RoleManager},
			"upl-1": {ID: "upl-1", Name: "uma", Role: domain.RoleUploader},
		},
	}
}

func TestRequireByRole(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	cases := []struct {
		actor string
		perm  string
		ok    bool
	}{
		{"man-1", auth.PermTaskAssign, true},
		{"marc", auth.PermTaskCancel, true},
		{"man-1", auth.PermAdminWrite, false},
		{"own-1", auth.PermAdminWrite, true},
		{"upl-1", auth.PermTaskAssign, false},
		{"uma", auth.PermTeamRead, true},
		{"ghost", auth.PermTeamRead, false},
		{"", auth.PermTeamRead, false},
	}
	for _, tc := range cases {
		_, err := svc.Require(ctx, tc.actor, tc.perm)
		if tc.ok {
			assert.NoError(t, err, "%s %s", tc.actor, tc.perm)
			continue
		}
		var fe auth.ForbiddenError
		require.ErrorAs(t, err, &fe, "%s %s", tc.actor, tc.perm)
		assert.Equal(t, tc.perm, fe.Permission)
	}
}

func TestRequireToggleOnlyForOwner(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	require.NoError(t, svc.RequireToggle(ctx, "upl-1", "upl-1"))
	var fe auth.ForbiddenError
	require.ErrorAs(t, svc.RequireToggle(ctx, "upl-1", "man-1"), &fe)
	require.ErrorAs(t, svc.RequireToggle(ctx, "man-1", "upl-1"), &fe)
	assert.Equal(t, auth.PermTaskToggle, fe.Permission)
}

func TestRequireAdminWriteBootstrap(t *testing.T) {
	ctx := context.Background()
	empty := auth.Service{Config: config.Default("team-1"), Directory: memDirectory{}}
	require.NoError(t, empty.RequireAdminWrite(ctx, "anyone"))

	svc := newService()
	require.NoError(t, svc.RequireAdminWrite(ctx, "own-1"))
	var fe auth.ForbiddenError
	require.ErrorAs(t, svc.RequireAdminWrite(ctx, "man-1"), &fe)
}

func TestPermissionsSorted(t *testing.T) {
	svc := newService()
	perms := svc.Permissions(domain.RoleUploader)
	assert.Equal(t, []string{auth.PermTaskToggle, auth.PermTeamRead}, perms)
	assert.Nil(t, svc.Permissions(domain.Role("janitor")))
}
