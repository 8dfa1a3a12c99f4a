package policy

import (
	"testing"

	"farmDirect/domain"

	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	admin := domain.Session{UserID: 1, Role: domain.RoleAdmin}
	farmer := domain.Session{UserID: 2, Role: domain.RoleFarmer}
	consumer := domain.Session{UserID: 3, Role: domain.RoleConsumer}

	tests := []struct {
		name     string
		subject  domain.Session
		action   Action
		resource *Resource
		allowed  bool
	}{
		{"admin updates any order", admin, UpdateOrderStatus, Owned(99), true},
		{"farmer updates own order", farmer, UpdateOrderStatus, Owned(5, 2), true},
		{"farmer updates foreign order", farmer, UpdateOrderStatus, Owned(5), false},
		{"farmer pre-check passes", farmer, UpdateOrderStatus, nil, true},
		{"consumer never updates status", consumer, UpdateOrderStatus, Owned(3), false},
		{"consumer checks out", consumer, CreateOrder, nil, true},
		{"farmer cannot check out", farmer, CreateOrder, nil, false},
		{"buyer views own order", consumer, ViewOrder, Owned(3, 2), true},
		{"stranger views order", consumer, ViewOrder, Owned(4, 2), false},
		{"farmer edits foreign product", farmer, UpdateProduct, Owned(7), false},
		{"only admin deletes orders", farmer, DeleteOrder, Owned(2), false},
		{"unknown action", admin, Action("nope"), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.subject, tt.action, tt.resource)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrForbidden)
		})
	}
}
