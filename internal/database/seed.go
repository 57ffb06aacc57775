package database

import (
	"log"

	"gorm.io/gorm"

	"github.com/zaqqye/examcenter_backend_v1/internal/config"
	"github.com/zaqqye/examcenter_backend_v1/internal/models"
	"github.com/zaqqye/examcenter_backend_v1/internal/utils"
)

func SeedAdmin(db *gorm.DB, cfg *config.Config) error {
	var count int64
	if err := db.Model(&models.Admin{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	username := cfg.AdminUsername
	if username == "" {
		username = "admin"
	}
	password := cfg.AdminPassword
	if password == "" {
		password = "admin"
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.Admin{
		Username: username,
		Password: hashed,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	log.Println("Seeded initial admin:", username)
	return nil
}
