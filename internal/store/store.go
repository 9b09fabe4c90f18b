// Package store persists appointments and the visit history log.
package store

import (
	"context"

	"medbot-server/internal/models"
)

// MutateFunc receives the full appointment collection in stored order and
// returns the collection to write back. Returning an error aborts the
// write.
type MutateFunc func(appointments []models.Appointment) ([]models.Appointment, error)

// AppointmentStore holds the mutable appointment records. Mutate is an
// atomic read-modify-write of the whole collection; concurrent calls never
// interleave.
type AppointmentStore interface {
	List(ctx context.Context) ([]models.Appointment, error)
	Mutate(ctx context.Context, fn MutateFunc) error
}

// HistoryStore is the append-only log of completed visits.
type HistoryStore interface {
	Append(ctx context.Context, record models.HistoryRecord) error
	ForPatient(ctx context.Context, patient string) ([]models.HistoryRecord, error)
}
