package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medbot-server/internal/models"
)

// GormAppointmentStore keeps appointments in a relational table. Stored
// order is the position column.
type GormAppointmentStore struct {
	db *gorm.DB
}

// NewGormAppointmentStore returns a store over the appointments table.
func NewGormAppointmentStore(db *gorm.DB) *GormAppointmentStore {
	return &GormAppointmentStore{db: db}
}

// List returns every appointment by position.
func (s *GormAppointmentStore) List(ctx context.Context) ([]models.Appointment, error) {
	var rows []models.Appointment
	if err := s.db.WithContext(ctx).Order("position asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return rows, nil
}

// Mutate locks the table, applies fn and rewrites the table in one
// transaction. Postgres takes an explicit table lock because a row lock
// does not cover rows a concurrent writer inserts.
func (s *GormAppointmentStore) Mutate(ctx context.Context, fn MutateFunc) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("LOCK TABLE appointments IN EXCLUSIVE MODE").Error; err != nil {
				return fmt.Errorf("lock appointments table: %w", err)
			}
		}

		var rows []models.Appointment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Order("position asc").Find(&rows).Error; err != nil {
			return fmt.Errorf("lock appointments: %w", err)
		}

		next, err := fn(rows)
		if err != nil {
			return err
		}

		if err := tx.Where("1 = 1").Delete(&models.Appointment{}).Error; err != nil {
			return fmt.Errorf("clear appointments: %w", err)
		}
		if len(next) == 0 {
			return nil
		}
		for i := range next {
			next[i].EnsureID()
			next[i].Position = int64(i)
		}
		if err := tx.Create(&next).Error; err != nil {
			return fmt.Errorf("write appointments: %w", err)
		}
		return nil
	})
}

// GormHistoryStore keeps completed visits in the visit_history table.
type GormHistoryStore struct {
	db *gorm.DB
}

// NewGormHistoryStore returns a store over the visit_history table.
func NewGormHistoryStore(db *gorm.DB) *GormHistoryStore {
	return &GormHistoryStore{db: db}
}

// Append inserts one completed visit.
func (s *GormHistoryStore) Append(ctx context.Context, rec models.HistoryRecord) error {
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// ForPatient returns the patient's completed visits.
func (s *GormHistoryStore) ForPatient(ctx context.Context, patient string) ([]models.HistoryRecord, error) {
	var rows []models.HistoryRecord
	if err := s.db.WithContext(ctx).Where("patient = ?", patient).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return rows, nil
}
