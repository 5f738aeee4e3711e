package repositories

import (
	"github.com/rs/zerolog/log"
	"github.com/vaps-tech/vaps-server/internal/config"
	"github.com/vaps-tech/vaps-server/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDatabase() {
	dsn := config.Envs.DB_URL
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	// Run migrations. The unique indexes on users.username and users.email
	// are what actually enforces identity uniqueness under concurrent
	// registrations; handlers only pre-check to produce a friendly 409.
	err = db.AutoMigrate(
		&models.User{},
		&models.ContactUs{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	DB = db
	log.Info().Msg("successfully connected to database")
}
