package postgres

import (
	"context"
	"fmt"
	"time"

	"farmDirect/domain"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{
		DB: db,
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(user).Error; err != nil {
		return wrap(translate(err, "user not found", "email already registered"), "failed to create user")
	}

	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, fmt.Errorf("context error: %w", err)
	}

	var user domain.User

	err := r.DB.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return domain.User{}, wrap(translate(err, "user not found", ""), "failed to find user")
	}

	return user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, fmt.Errorf("context error: %w", err)
	}

	var user domain.User

	err := r.DB.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error
	if err != nil {
		return domain.User{}, wrap(translate(err, "user not found", ""), "failed to find user")
	}

	return user, nil
}

func (r *UserRepository) FindAll(ctx context.Context, limit int) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	query := r.DB.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var users []domain.User
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}

	return users, nil
}

func (r *UserRepository) Update(ctx context.Context, id uint, update domain.UserUpdate) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	updateData := map[string]interface{}{"updated_at": time.Now().UTC()}
	if update.Name != nil {
		updateData["name"] = *update.Name
	}
	if update.Email != nil {
		updateData["email"] = *update.Email
	}
	if update.Phone != nil {
		updateData["phone"] = *update.Phone
	}
	if update.Role != nil {
		updateData["role"] = *update.Role
	}
	if update.FarmName != nil {
		updateData["farm_name"] = *update.FarmName
	}
	if update.Location != nil {
		updateData["location"] = *update.Location
	}
	if update.Address != nil {
		updateData["address"] = *update.Address
	}

	result := r.DB.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(updateData)
	if result.Error != nil {
		return wrap(translate(result.Error, "user not found", "email already registered"), "failed to update user")
	}
	if result.RowsAffected == 0 {
		return domain.NotFound("user not found")
	}

	return nil
}

// Delete removes a user that has neither orders nor products.
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var orders, products int64
		if err := tx.Model(&domain.Order{}).Where("user_id = ?", id).Count(&orders).Error; err != nil {
			return fmt.Errorf("failed to count user orders: %w", err)
		}
		if err := tx.Model(&domain.Product{}).Where("farmer_id = ?", id).Count(&products).Error; err != nil {
			return fmt.Errorf("failed to count user products: %w", err)
		}
		if orders > 0 || products > 0 {
			return domain.Conflict("user still has orders or products")
		}

		result := tx.Delete(&domain.User{}, id)
		if result.Error != nil {
			return wrap(translate(result.Error, "user not found", ""), "failed to delete user")
		}
		if result.RowsAffected == 0 {
			return domain.NotFound("user not found")
		}

		return nil
	})
}
