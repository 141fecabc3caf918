package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"bugbase/config"
	"bugbase/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens the configured database, runs migrations and seeds the
// initial admin account.
func InitDB() *gorm.DB {
	databaseURL := config.AppConfig.DatabaseURL

	// GORM logger configuration
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      false,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		panic(fmt.Errorf("failed to connect database: %w", err))
	}

	if err := db.AutoMigrate(&models.User{}, &models.Bug{}); err != nil {
		panic(fmt.Errorf("failed to migrate database: %w", err))
	}

	SeedInitialData(db)
	return db
}

// SeedInitialData creates the initial admin user if none exists. Without
// it nobody could approve or assign the first bug.
func SeedInitialData(db *gorm.DB) {
	var adminUser models.User
	err := db.Where("username = ?", "admin").First(&adminUser).Error
	if err != gorm.ErrRecordNotFound {
		if err != nil {
			log.Printf("Error checking for admin user: %v\n", err)
		}
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("adminpassword"), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Failed to hash initial admin password: %v\n", err)
		return
	}

	adminUser = models.User{
		Username: "admin",
		Password: string(hashedPassword),
		Email:    "admin@example.com",
		Role:     models.RoleAdmin,
	}
	if err := db.Create(&adminUser).Error; err != nil {
		log.Printf("Failed to create initial admin user: %v\n", err)
		return
	}
	log.Println("Created initial admin user.")
}
