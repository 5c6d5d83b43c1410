package db

import (
	"fmt"
	"log/slog"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	config "github.com/Keoroanthony/go-dairydelight/configs"
	"github.com/Keoroanthony/go-dairydelight/internal/models"
	"github.com/Keoroanthony/go-dairydelight/internal/notifier"
)

var DB *gorm.DB

func DSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, cfg.TimeZone,
	)
}

// Options is shared by the postgres connection and the sqlite test databases.
func Options() *gorm.Config {
	return &gorm.Config{TranslateError: true}
}

func Init(cfg config.DatabaseConfig) error {
	conn, err := gorm.Open(postgres.Open(DSN(cfg)), Options())
	if err != nil {
		return fmt.Errorf("failed to connect to DB: %w", err)
	}

	if err := Migrate(conn); err != nil {
		return fmt.Errorf("failed to migrate DB: %w", err)
	}

	DB = conn
	slog.Info("database connected and migrated", "host", cfg.Host, "db", cfg.Name)
	return nil
}

func Migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Review{},
		&models.Order{},
		&models.OrderItem{},
		&notifier.OutboxMessage{},
	)
}

func SetTestDB(testDB *gorm.DB) {
	DB = testDB
}
