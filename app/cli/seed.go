package main

import (
	"context"
	"fmt"

	"farmDirect/domain"
	"farmDirect/pkg/logger"
	"farmDirect/pkg/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type seedUser struct {
	user     domain.User
	password string
}

var seedUsers = []seedUser{
	{
		user: domain.User{
			Name: "Farmer One", Email: "farmer1@example.com", Phone: "0700000001",
			Role: domain.RoleFarmer, FarmName: "Green Acres", Location: "Nairobi", Address: "123 Farm Lane",
		},
		password: "farmer123",
	},
	{
		user: domain.User{
			Name: "Consumer One", Email: "consumer1@example.com", Phone: "0700000002",
			Role: domain.RoleConsumer, Location: "Nairobi", Address: "456 City Road",
		},
		password: "consumer123",
	},
	{
		user: domain.User{
			Name: "Admin One", Email: "admin1@example.com", Phone: "0700000003",
			Role: domain.RoleAdmin, Location: "Nairobi", Address: "789 Admin Blvd",
		},
		password: "admin123",
	},
}

func seed(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fruits, err := seedCategory(tx, "Fruits", "kg")
		if err != nil {
			return err
		}
		vegetables, err := seedCategory(tx, "Vegetables", "bunch")
		if err != nil {
			return err
		}

		users := make(map[domain.Role]domain.User, len(seedUsers))
		for _, su := range seedUsers {
			u, err := seedAccount(tx, su)
			if err != nil {
				return err
			}
			users[u.Role] = u
		}

		farmer := users[domain.RoleFarmer]
		products := []domain.Product{
			{
				FarmerID: farmer.ID, CategoryID: &fruits.ID, Name: "Red Apples",
				Description: "Fresh red apples from the farm.", Price: decimal.NewFromInt(120), Stock: 50,
			},
			{
				FarmerID: farmer.ID, CategoryID: &vegetables.ID, Name: "Spinach Bunch",
				Description: "Organic spinach, freshly harvested.", Price: decimal.NewFromInt(60), Stock: 100,
			},
		}
		for _, p := range products {
			if err := tx.Where("farmer_id = ? AND name = ?", p.FarmerID, p.Name).FirstOrCreate(&p).Error; err != nil {
				return fmt.Errorf("failed to seed product %q: %w", p.Name, err)
			}
		}

		logger.Info("seed data loaded", "users", len(users), "products", len(products))
		return nil
	})
}

func seedCategory(tx *gorm.DB, name, unit string) (domain.Category, error) {
	c := domain.Category{Name: name, Unit: unit}
	if err := tx.Where("name = ?", name).FirstOrCreate(&c).Error; err != nil {
		return domain.Category{}, fmt.Errorf("failed to seed category %q: %w", name, err)
	}

	return c, nil
}

func seedAccount(tx *gorm.DB, su seedUser) (domain.User, error) {
	var existing domain.User
	err := tx.Where("LOWER(email) = LOWER(?)", su.user.Email).Limit(1).Find(&existing).Error
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to look up %s: %w", su.user.Email, err)
	}
	if existing.ID != 0 {
		return existing, nil
	}

	hash, err := utils.HashPassword(su.password)
	if err != nil {
		return domain.User{}, err
	}

	u := su.user
	u.Password = string(hash)
	u.Balance = decimal.Zero
	if err := tx.Create(&u).Error; err != nil {
		return domain.User{}, fmt.Errorf("failed to seed %s: %w", u.Email, err)
	}

	return u, nil
}
