package membership

import (
	"time"

	"github.com/google/uuid"
)

// Role is a staff role inside a shop.
type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleStaff   Role = "STAFF"
	RoleCashier Role = "CASHIER"
)

// Roles lists every assignable role.
var Roles = []Role{RoleOwner, RoleAdmin, RoleManager, RoleStaff, RoleCashier}

// Valid reports whether r is one of Roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Membership assigns a role to a user in a shop. A nil BranchID means the
// assignment is shop-wide.
type Membership struct {
	ID        uuid.UUID  `json:"id"`
	ShopID    uuid.UUID  `json:"shop_id"`
	BranchID  *uuid.UUID `json:"branch_id,omitempty"`
	UserID    uuid.UUID  `json:"user_id"`
	Role      Role       `json:"role"`
	Revoked   bool       `json:"revoked"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedBy uuid.UUID  `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Key identifies a membership row.
type Key struct {
	ShopID   uuid.UUID
	BranchID *uuid.UUID
	UserID   uuid.UUID
}

func (m *Membership) Key() Key {
	return Key{ShopID: m.ShopID, BranchID: m.BranchID, UserID: m.UserID}
}
