package membership

// Permission is an atomic capability. Permissions are never stored; they are
// derived from a role through rolePermissions.
type Permission string

const (
	PermShopView           Permission = "SHOP_VIEW"
	PermShopUpdate         Permission = "SHOP_UPDATE"
	PermShopDelete         Permission = "SHOP_DELETE"
	PermBranchCreate       Permission = "BRANCH_CREATE"
	PermBranchUpdate       Permission = "BRANCH_UPDATE"
	PermBranchView         Permission = "BRANCH_VIEW"
	PermMemberView         Permission = "MEMBER_VIEW"
	PermMemberManage       Permission = "MEMBER_MANAGE"
	PermProductCreate      Permission = "PRODUCT_CREATE"
	PermProductUpdate      Permission = "PRODUCT_UPDATE"
	PermProductDelete      Permission = "PRODUCT_DELETE"
	PermProductView        Permission = "PRODUCT_VIEW"
	PermInventoryView      Permission = "INVENTORY_VIEW"
	PermInventoryImport    Permission = "INVENTORY_IMPORT"
	PermInventoryExport    Permission = "INVENTORY_EXPORT"
	PermInventoryAdjust    Permission = "INVENTORY_ADJUST"
	PermOrderCreate        Permission = "ORDER_CREATE"
	PermOrderView          Permission = "ORDER_VIEW"
	PermOrderUpdate        Permission = "ORDER_UPDATE"
	PermOrderCancel        Permission = "ORDER_CANCEL"
	PermReportView         Permission = "REPORT_VIEW"
	PermSubscriptionManage Permission = "SUBSCRIPTION_MANAGE"
	PermAuditView          Permission = "AUDIT_VIEW"
)

var allPermissions = []Permission{
	PermShopView, PermShopUpdate, PermShopDelete,
	PermBranchCreate, PermBranchUpdate, PermBranchView,
	PermMemberView, PermMemberManage,
	PermProductCreate, PermProductUpdate, PermProductDelete, PermProductView,
	PermInventoryView, PermInventoryImport, PermInventoryExport, PermInventoryAdjust,
	PermOrderCreate, PermOrderView, PermOrderUpdate, PermOrderCancel,
	PermReportView, PermSubscriptionManage, PermAuditView,
}

var rolePermissions = map[Role]map[Permission]struct{}{
	RoleOwner: setOf(allPermissions...),
	RoleAdmin: without(setOf(allPermissions...), PermShopDelete, PermSubscriptionManage),
	RoleManager: setOf(
		PermShopView, PermBranchView, PermBranchUpdate, PermMemberView,
		PermProductCreate, PermProductUpdate, PermProductView,
		PermInventoryView, PermInventoryImport, PermInventoryExport, PermInventoryAdjust,
		PermOrderCreate, PermOrderView, PermOrderUpdate, PermOrderCancel,
		PermReportView, PermAuditView,
	),
	RoleStaff: setOf(
		PermShopView, PermBranchView, PermProductView,
		PermInventoryView, PermInventoryImport,
		PermOrderCreate, PermOrderView, PermOrderUpdate,
	),
	RoleCashier: setOf(
		PermShopView, PermBranchView, PermProductView, PermInventoryView,
		PermOrderCreate, PermOrderView,
	),
}

// PermissionsOf returns the permissions granted to role in declaration order.
// Unknown roles get none.
func PermissionsOf(role Role) []Permission {
	granted := rolePermissions[role]
	out := make([]Permission, 0, len(granted))
	for _, p := range allPermissions {
		if _, ok := granted[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Grants reports whether role carries permission.
func Grants(role Role, permission Permission) bool {
	_, ok := rolePermissions[role][permission]
	return ok
}

func setOf(perms ...Permission) map[Permission]struct{} {
	s := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

func without(s map[Permission]struct{}, perms ...Permission) map[Permission]struct{} {
	for _, p := range perms {
		delete(s, p)
	}
	return s
}
