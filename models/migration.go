package models

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func MigrateTable(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{}, &Right{}, &UserRight{},
		&Cake{}, &Ingredient{}, &CakeIngredient{},
		&Reservation{},
		&OutboxRecord{},
	)
}

// SeedRights makes sure the admin and customer rights exist. Safe to run repeatedly.
func SeedRights(db *gorm.DB) error {
	rights := []Right{
		{Name: RightCodeAdmin.Name(), RightCode: RightCodeAdmin},
		{Name: RightCodeCustomer.Name(), RightCode: RightCodeCustomer},
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rights).Error
}
