package shop

import (
	"time"

	"github.com/google/uuid"
)

// ShopType classifies a business. It decides whether stock is tracked.
type ShopType string

const (
	TypeRetail      ShopType = "RETAIL"
	TypeGrocery     ShopType = "GROCERY"
	TypeFashion     ShopType = "FASHION"
	TypePharmacy    ShopType = "PHARMACY"
	TypeElectronics ShopType = "ELECTRONICS"
	TypeRestaurant  ShopType = "RESTAURANT"
	TypeService     ShopType = "SERVICE"
	TypeSalon       ShopType = "SALON"
	TypeConsulting  ShopType = "CONSULTING"
)

var shopTypes = map[ShopType]bool{
	TypeRetail:      true,
	TypeGrocery:     true,
	TypeFashion:     true,
	TypePharmacy:    true,
	TypeElectronics: true,
	TypeRestaurant:  true,
	TypeService:     false,
	TypeSalon:       false,
	TypeConsulting:  false,
}

func (t ShopType) Valid() bool {
	_, ok := shopTypes[t]
	return ok
}

// TracksInventory reports whether shops of type t keep stock quantities.
func TracksInventory(t ShopType) bool {
	return shopTypes[t]
}

// Shop is a tenant.
type Shop struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	Type      ShopType  `json:"type"`
	Currency  string    `json:"currency"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Branch is a physical location of a shop.
type Branch struct {
	ID        uuid.UUID `json:"id"`
	ShopID    uuid.UUID `json:"shop_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
