package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleFarmer   Role = "FARMER"
	RoleConsumer Role = "CONSUMER"
	RoleAdmin    Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleFarmer, RoleConsumer, RoleAdmin:
		return true
	}

	return false
}

// SignupRole maps a requested role to one a new account may hold. Admin
// accounts are never created through registration.
func SignupRole(raw string) Role {
	if Role(strings.ToUpper(strings.TrimSpace(raw))) == RoleFarmer {
		return RoleFarmer
	}

	return RoleConsumer
}

type User struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"column:name;not null" json:"name"`
	Email     string          `gorm:"column:email;not null" json:"email"`
	Phone     string          `gorm:"column:phone" json:"phone"`
	Password  string          `gorm:"column:password;not null" json:"-"`
	Role      Role            `gorm:"column:role;default:CONSUMER" json:"role"`
	FarmName  string          `gorm:"column:farm_name" json:"farm_name,omitempty"`
	Location  string          `gorm:"column:location" json:"location,omitempty"`
	Address   string          `gorm:"column:address" json:"address,omitempty"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(12,2);default:0" json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserUpdate carries the optional fields an admin may change.
type UserUpdate struct {
	Name     *string
	Email    *string
	Phone    *string
	Role     *Role
	FarmName *string
	Location *string
	Address  *string
}

// Registration is a sign-up request. Role is the raw requested role and
// goes through SignupRole before it is stored.
type Registration struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     string
	FarmName string
	Location string
	Address  string
}
