package membership

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEveryRoleHasPermissions(t *testing.T) {
	for _, role := range Roles {
		assert.NotEmpty(t, PermissionsOf(role), role)
	}
	assert.Empty(t, PermissionsOf(Role("LEGACY")))
	assert.False(t, Grants(Role("LEGACY"), PermShopView))
}

func TestOwnerHoldsEverything(t *testing.T) {
	assert.Equal(t, allPermissions, PermissionsOf(RoleOwner))
}

func TestRoleTable(t *testing.T) {
	cases := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleAdmin, PermMemberManage, true},
		{RoleAdmin, PermShopDelete, false},
		{RoleAdmin, PermSubscriptionManage, false},
		{RoleManager, PermInventoryAdjust, true},
		{RoleManager, PermMemberManage, false},
		{RoleStaff, PermOrderView, true},
		{RoleStaff, PermInventoryExport, false},
		{RoleCashier, PermOrderCreate, true},
		{RoleCashier, PermOrderCancel, false},
		{RoleCashier, PermReportView, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Grants(tc.role, tc.perm), "%s/%s", tc.role, tc.perm)
	}
}

func TestPermissionsOfReturnsCopy(t *testing.T) {
	perms := PermissionsOf(RoleCashier)
	perms[0] = PermShopDelete
	assert.False(t, Grants(RoleCashier, PermShopDelete))
}
