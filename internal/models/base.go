package models

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// BaseModel contains the surrogate key shared by persisted records
type BaseModel struct {
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *BaseModel) BeforeCreate(tx *gorm.DB) error {
	base.EnsureID()
	return nil
}

// EnsureID assigns a new UUID when the record has none yet.
func (base *BaseModel) EnsureID() {
	if base.ID == "" {
		base.ID = NewID()
	}
}

// NewID returns a fresh surrogate identifier.
func NewID() string {
	return uuid.New().String()
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver string
	DSN    string
}

// InitDB opens the relational record store and migrates its tables
func InitDB(config DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch config.Driver {
	case "mysql":
		dialector = mysql.Open(config.DSN)
	case "postgres":
		dialector = postgres.Open(config.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto migrate the database models
	if err := db.AutoMigrate(&Appointment{}, &HistoryRecord{}); err != nil {
		return nil, err
	}

	return db, nil
}
