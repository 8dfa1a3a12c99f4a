// Package policy decides whether a session may perform an action. Route
// middleware asks it with no resource to pre-check the role; services ask
// again with the resource owners once the resource is loaded.
package policy

import (
	"farmDirect/domain"
)

type Action string

const (
	CreateOrder       Action = "order:create"
	ListOrders        Action = "order:list"
	ViewOrder         Action = "order:view"
	UpdateOrderStatus Action = "order:update_status"
	DeleteOrder       Action = "order:delete"

	CreateProduct      Action = "product:create"
	UpdateProduct      Action = "product:update"
	DeleteProduct      Action = "product:delete"
	UpdateProductStock Action = "product:update_stock"
	ListOwnProducts    Action = "product:list_own"

	ManageCategories Action = "category:manage"

	ViewOwnProfile  Action = "user:me"
	ManageUsers     Action = "user:manage"
	ViewFarmerBoard Action = "dashboard:farmer"
	ViewAdminBoard  Action = "dashboard:admin"
)

type rule struct {
	// roles allowed regardless of ownership
	any []domain.Role
	// roles allowed only on resources they own
	owner []domain.Role
}

var rules = map[Action]rule{
	CreateOrder:       {any: roles(domain.RoleConsumer)},
	ListOrders:        {any: roles(domain.RoleAdmin, domain.RoleFarmer, domain.RoleConsumer)},
	ViewOrder:         {any: roles(domain.RoleAdmin), owner: roles(domain.RoleFarmer, domain.RoleConsumer)},
	UpdateOrderStatus: {any: roles(domain.RoleAdmin), owner: roles(domain.RoleFarmer)},
	DeleteOrder:       {any: roles(domain.RoleAdmin)},

	CreateProduct:      {any: roles(domain.RoleAdmin, domain.RoleFarmer)},
	UpdateProduct:      {any: roles(domain.RoleAdmin), owner: roles(domain.RoleFarmer)},
	DeleteProduct:      {any: roles(domain.RoleAdmin), owner: roles(domain.RoleFarmer)},
	UpdateProductStock: {any: roles(domain.RoleAdmin), owner: roles(domain.RoleFarmer)},
	ListOwnProducts:    {any: roles(domain.RoleFarmer)},

	ManageCategories: {any: roles(domain.RoleAdmin)},

	ViewOwnProfile:  {any: roles(domain.RoleAdmin, domain.RoleFarmer, domain.RoleConsumer)},
	ManageUsers:     {any: roles(domain.RoleAdmin)},
	ViewFarmerBoard: {any: roles(domain.RoleFarmer)},
	ViewAdminBoard:  {any: roles(domain.RoleAdmin)},
}

func roles(r ...domain.Role) []domain.Role { return r }

// Resource describes who owns the thing being acted upon.
type Resource struct {
	OwnerIDs []uint
}

func Owned(ids ...uint) *Resource {
	return &Resource{OwnerIDs: ids}
}

func (r *Resource) ownedBy(id uint) bool {
	for _, owner := range r.OwnerIDs {
		if owner == id {
			return true
		}
	}

	return false
}

// Authorize returns a Forbidden error unless the session may perform the
// action. A nil resource only checks that the role could ever be allowed.
func Authorize(subject domain.Session, action Action, resource *Resource) error {
	r, ok := rules[action]
	if !ok {
		return domain.Forbidden("action not permitted")
	}

	if contains(r.any, subject.Role) {
		return nil
	}

	if contains(r.owner, subject.Role) {
		if resource == nil || resource.ownedBy(subject.UserID) {
			return nil
		}

		return domain.Forbidden("you do not have access to this resource")
	}

	return domain.Forbidden("your role is not allowed to perform this action")
}

func contains(list []domain.Role, role domain.Role) bool {
	for _, r := range list {
		if r == role {
			return true
		}
	}

	return false
}
