package storage

import (
	"log"
	"os"

	"meetup-app-server/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func connectToDB() *gorm.DB {
	// Only load .env in development (when RENDER env var is not set)
	if os.Getenv("RENDER") == "" {
		err := godotenv.Load()
		if err != nil {
			log.Println("Warning: Could not load .env file (this is normal in production)")
		}
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Panic("DB_CONNECTION_STRING environment variable is required")
	}

	db, dbError := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if dbError != nil {
		log.Panic("error connecting to db: " + dbError.Error())
	}

	DB = db
	return db
}

// Migrate creates or updates the schema. Exposed so tests can migrate an
// in-memory database.
func Migrate(db *gorm.DB) {
	db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Activity{},
		&models.ActivityRequest{},
		&models.Chat{},
		&models.ChatMessage{},
		&models.Notification{},
		&models.AuditLog{},
	)

	// One request per (activity, user) pair; the duplicate check in the route
	// is also backed by the database.
	db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_activity_requests_activity_user ON activity_requests (activity_id, user_id);")
}

func InitializeDB() *gorm.DB {
	db := connectToDB()
	Migrate(db)
	return db
}
