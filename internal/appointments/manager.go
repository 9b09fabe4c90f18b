package appointments

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"medbot-server/internal/logging"
	"medbot-server/internal/metrics"
	"medbot-server/internal/models"
	"medbot-server/internal/store"
)

var tracer = otel.Tracer("medbot.internal.appointments")

// Actor is whoever asks for a change. Admins may act on any appointment,
// doctors only on their own.
type Actor struct {
	Role     models.Role
	Username string
}

// AdminActor acts with full rights.
var AdminActor = Actor{Role: models.RoleAdmin}

func (a Actor) mayModify(appt models.Appointment) bool {
	switch a.Role {
	case models.RoleAdmin:
		return true
	case models.RoleDoctor:
		return appt.DoctorUsername == a.Username
	default:
		return false
	}
}

// BookRequest describes a new appointment.
type BookRequest struct {
	Patient        string
	Doctor         string
	DoctorUsername string
	Time           string
	Symptom        string
}

// Scope narrows bulk operations. Empty fields match everything.
type Scope struct {
	DoctorUsername string
	Patient        string
}

func (s Scope) matches(a models.Appointment) bool {
	return (s.DoctorUsername == "" || a.DoctorUsername == s.DoctorUsername) &&
		(s.Patient == "" || a.Patient == s.Patient)
}

// Manager is the only writer of appointment status. It owns the state
// machine and writes a history record for every completed visit.
type Manager struct {
	store   store.AppointmentStore
	history store.HistoryStore
	logger  *logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager. logger and m may be nil.
func NewManager(appts store.AppointmentStore, history store.HistoryStore, logger *logging.Logger, m *metrics.Metrics, opts ...Option) *Manager {
	if appts == nil || history == nil {
		panic("appointments: stores required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	mgr := &Manager{
		store:   appts,
		history: history,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(mgr)
	}
	return mgr
}

// Book creates a Pending appointment. Duplicate bookings are allowed.
func (m *Manager) Book(ctx context.Context, req BookRequest) (models.Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.book")
	defer span.End()

	req.Patient = strings.TrimSpace(req.Patient)
	req.DoctorUsername = strings.TrimSpace(req.DoctorUsername)
	req.Time = strings.TrimSpace(req.Time)
	if req.Patient == "" || req.DoctorUsername == "" || req.Time == "" {
		return models.Appointment{}, fmt.Errorf("%w: patient, doctor and time are required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Doctor) == "" {
		req.Doctor = req.DoctorUsername
	}

	appt := models.Appointment{
		BaseModel:      models.BaseModel{ID: models.NewID()},
		Patient:        req.Patient,
		Doctor:         req.Doctor,
		DoctorUsername: req.DoctorUsername,
		Time:           req.Time,
		Symptom:        req.Symptom,
		Status:         models.StatusPending,
		CreatedAt:      models.FormatTimestamp(m.now()),
	}
	span.SetAttributes(attribute.String("medbot.appointment_id", appt.ID))

	err := m.mutate(ctx, "book", func(rows []models.Appointment) ([]models.Appointment, error) {
		return append(rows, appt), nil
	})
	if err != nil {
		span.RecordError(err)
		return models.Appointment{}, fmt.Errorf("book appointment: %w", err)
	}
	m.metrics.ObserveBooked()
	m.logger.Info("appointment booked", "appointment_id", appt.ID, "patient", appt.Patient, "doctor_username", appt.DoctorUsername, "status", appt.Status)
	return appt, nil
}

// Transition moves the appointment with id to status to. Moving to
// Completed also writes the history record.
func (m *Manager) Transition(ctx context.Context, id string, to models.AppointmentStatus, actor Actor) (models.Appointment, error) {
	return m.transition(ctx, byID(id), to, actor)
}

// TransitionByKey is Transition for the first appointment carrying key.
// It reports false when no appointment matches.
func (m *Manager) TransitionByKey(ctx context.Context, key models.NaturalKey, to models.AppointmentStatus, actor Actor) (bool, error) {
	_, err := m.transition(ctx, byKey(key), to, actor)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Complete marks an Accepted appointment Completed and records the visit.
func (m *Manager) Complete(ctx context.Context, id string, actor Actor) (models.Appointment, error) {
	return m.transition(ctx, byID(id), models.StatusCompleted, actor)
}

// CompleteByKey is Complete for the first appointment carrying key.
func (m *Manager) CompleteByKey(ctx context.Context, key models.NaturalKey, actor Actor) (bool, error) {
	return m.TransitionByKey(ctx, key, models.StatusCompleted, actor)
}

func (m *Manager) transition(ctx context.Context, find finder, to models.AppointmentStatus, actor Actor) (models.Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.transition", trace.WithAttributes(attribute.String("medbot.status_to", string(to))))
	defer span.End()

	var updated models.Appointment
	var from models.AppointmentStatus
	err := m.mutate(ctx, "transition", func(rows []models.Appointment) ([]models.Appointment, error) {
		i := find(rows)
		if i < 0 {
			return nil, ErrNotFound
		}
		if !actor.mayModify(rows[i]) {
			return nil, ErrForbidden
		}
		from = rows[i].Status
		if !CanTransition(from, to) {
			return nil, &TransitionError{From: from, To: to}
		}
		rows[i].Status = to
		updated = rows[i]
		return rows, nil
	})
	if err != nil {
		span.RecordError(err)
		m.metrics.ObserveTransition(string(to), false)
		return models.Appointment{}, err
	}

	if to == models.StatusCompleted {
		if err := m.recordVisit(ctx, updated, from); err != nil {
			span.RecordError(err)
			m.metrics.ObserveTransition(string(to), false)
			return models.Appointment{}, err
		}
	}

	m.metrics.ObserveTransition(string(to), true)
	m.logger.Info("appointment status changed", "appointment_id", updated.ID, "patient", updated.Patient, "doctor_username", updated.DoctorUsername, "status", to, "previous_status", from)
	return updated, nil
}

// recordVisit appends the history record for a just-completed appointment.
// If the append fails the status change is undone so the visit can be
// completed again.
func (m *Manager) recordVisit(ctx context.Context, appt models.Appointment, from models.AppointmentStatus) error {
	rec := models.HistoryRecord{
		BaseModel:      models.BaseModel{ID: models.NewID()},
		AppointmentID:  appt.ID,
		Patient:        appt.Patient,
		DoctorUsername: appt.DoctorUsername,
		Time:           appt.Time,
		Symptom:        appt.Symptom,
		CompletedAt:    models.FormatTimestamp(m.now()),
	}
	err := m.history.Append(ctx, rec)
	if err == nil {
		return nil
	}

	revertErr := m.mutate(ctx, "revert", func(rows []models.Appointment) ([]models.Appointment, error) {
		if i := byID(appt.ID)(rows); i >= 0 && rows[i].Status == models.StatusCompleted {
			rows[i].Status = from
		}
		return rows, nil
	})
	if revertErr != nil {
		m.logger.Error("failed to revert completed appointment", "appointment_id", appt.ID, "error", revertErr)
	}
	return fmt.Errorf("record visit history: %w", err)
}

// Delete removes the appointment with id.
func (m *Manager) Delete(ctx context.Context, id string, actor Actor) (models.Appointment, error) {
	return m.deleteOne(ctx, "id", byID(id), actor)
}

// DeleteAt removes the appointment at index in stored order. Admin only.
func (m *Manager) DeleteAt(ctx context.Context, index int) (models.Appointment, error) {
	return m.deleteOne(ctx, "index", byIndex(index), AdminActor)
}

// DeleteMatching removes the first appointment carrying key and createdAt.
// It reports false when none matches.
func (m *Manager) DeleteMatching(ctx context.Context, key models.NaturalKey, createdAt string, actor Actor) (bool, error) {
	_, err := m.deleteOne(ctx, "key", func(rows []models.Appointment) int {
		for i, a := range rows {
			if key.Matches(a) && a.CreatedAt == createdAt {
				return i
			}
		}
		return -1
	}, actor)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// DeleteIfOlder removes the appointment at index only when it was created
// more than age ago. An unparsable created_at is never old enough.
func (m *Manager) DeleteIfOlder(ctx context.Context, index int, age time.Duration) (bool, error) {
	if age < 0 {
		return false, fmt.Errorf("%w: age must not be negative", ErrInvalidRequest)
	}
	cutoff := m.now().Add(-age)
	deleted := false
	err := m.mutate(ctx, "delete_if_older", func(rows []models.Appointment) ([]models.Appointment, error) {
		if index < 0 || index >= len(rows) {
			return nil, ErrNotFound
		}
		if !olderThan(rows[index], cutoff) {
			return rows, nil
		}
		deleted = true
		return append(rows[:index], rows[index+1:]...), nil
	})
	if err != nil {
		return false, err
	}
	if deleted {
		m.metrics.ObserveDeleted("age", 1)
		m.logger.Info("appointment deleted by age", "index", index, "cutoff", models.FormatTimestamp(cutoff))
	}
	return deleted, nil
}

// BulkDeleteOlderThan removes every appointment in scope created more than
// age ago and returns how many were removed.
func (m *Manager) BulkDeleteOlderThan(ctx context.Context, scope Scope, age time.Duration) (int, error) {
	ctx, span := tracer.Start(ctx, "appointments.bulk_delete")
	defer span.End()

	if age < 0 {
		return 0, fmt.Errorf("%w: age must not be negative", ErrInvalidRequest)
	}
	cutoff := m.now().Add(-age)
	removed, err := m.removeWhere(ctx, "bulk_delete", func(a models.Appointment) bool {
		return scope.matches(a) && olderThan(a, cutoff)
	})
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	m.metrics.ObserveDeleted("age", removed)
	m.logger.Info("appointments bulk deleted", "doctor_username", scope.DoctorUsername, "patient", scope.Patient, "cutoff", models.FormatTimestamp(cutoff), "count", removed)
	return removed, nil
}

// DeleteByDoctor removes every appointment of a doctor. Used when the
// doctor leaves the directory.
func (m *Manager) DeleteByDoctor(ctx context.Context, doctorUsername string) (int, error) {
	if doctorUsername == "" {
		return 0, fmt.Errorf("%w: doctor username is required", ErrInvalidRequest)
	}
	removed, err := m.removeWhere(ctx, "cascade", func(a models.Appointment) bool {
		return a.DoctorUsername == doctorUsername
	})
	if err != nil {
		return 0, err
	}
	m.metrics.ObserveDeleted("cascade", removed)
	m.logger.Info("doctor appointments removed", "doctor_username", doctorUsername, "count", removed)
	return removed, nil
}

// All returns every appointment in stored order.
func (m *Manager) All(ctx context.Context) ([]models.Appointment, error) {
	return m.store.List(ctx)
}

// ForPatient returns the patient's appointments in stored order.
func (m *Manager) ForPatient(ctx context.Context, patient string) ([]models.Appointment, error) {
	return m.filter(ctx, func(a models.Appointment) bool { return a.Patient == patient })
}

// ForDoctor returns the doctor's appointments, newest first.
func (m *Manager) ForDoctor(ctx context.Context, doctorUsername string) ([]models.Appointment, error) {
	rows, err := m.filter(ctx, func(a models.Appointment) bool { return a.DoctorUsername == doctorUsername })
	if err != nil {
		return nil, err
	}
	sortNewestFirst(rows)
	return rows, nil
}

// LatestForPatient returns the patient's most recently created appointment.
func (m *Manager) LatestForPatient(ctx context.Context, patient string) (models.Appointment, bool, error) {
	rows, err := m.ForPatient(ctx, patient)
	if err != nil || len(rows) == 0 {
		return models.Appointment{}, false, err
	}
	sortNewestFirst(rows)
	return rows[0], true, nil
}

// sortNewestFirst orders by created_at descending. Unparsable timestamps
// go last and keep their relative order.
func sortNewestFirst(rows []models.Appointment) {
	sort.SliceStable(rows, func(i, j int) bool {
		ti, errI := models.ParseTimestamp(rows[i].CreatedAt)
		tj, errJ := models.ParseTimestamp(rows[j].CreatedAt)
		switch {
		case errI != nil:
			return false
		case errJ != nil:
			return true
		default:
			return ti.After(tj)
		}
	})
}

func (m *Manager) deleteOne(ctx context.Context, reason string, find finder, actor Actor) (models.Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.delete", trace.WithAttributes(attribute.String("medbot.reason", reason)))
	defer span.End()

	var removed models.Appointment
	err := m.mutate(ctx, "delete", func(rows []models.Appointment) ([]models.Appointment, error) {
		i := find(rows)
		if i < 0 {
			return nil, ErrNotFound
		}
		if !actor.mayModify(rows[i]) {
			return nil, ErrForbidden
		}
		removed = rows[i]
		return append(rows[:i], rows[i+1:]...), nil
	})
	if err != nil {
		span.RecordError(err)
		return models.Appointment{}, err
	}
	m.metrics.ObserveDeleted(reason, 1)
	m.logger.Info("appointment deleted", "appointment_id", removed.ID, "patient", removed.Patient, "doctor_username", removed.DoctorUsername, "status", removed.Status)
	return removed, nil
}

func (m *Manager) removeWhere(ctx context.Context, op string, match func(models.Appointment) bool) (int, error) {
	removed := 0
	err := m.mutate(ctx, op, func(rows []models.Appointment) ([]models.Appointment, error) {
		kept := rows[:0]
		for _, a := range rows {
			if match(a) {
				removed++
				continue
			}
			kept = append(kept, a)
		}
		return kept, nil
	})
	return removed, err
}

func (m *Manager) filter(ctx context.Context, keep func(models.Appointment) bool) ([]models.Appointment, error) {
	rows, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.Appointment{}
	for _, a := range rows {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *Manager) mutate(ctx context.Context, op string, fn store.MutateFunc) error {
	defer m.metrics.ObserveStore(op, time.Now())
	return m.store.Mutate(ctx, fn)
}

// olderThan reports whether a was created strictly before cutoff.
func olderThan(a models.Appointment, cutoff time.Time) bool {
	created, err := models.ParseTimestamp(a.CreatedAt)
	if err != nil {
		return false
	}
	return created.Before(cutoff)
}

type finder func([]models.Appointment) int

func byID(id string) finder {
	return func(rows []models.Appointment) int {
		for i, a := range rows {
			if a.ID == id {
				return i
			}
		}
		return -1
	}
}

func byKey(key models.NaturalKey) finder {
	return func(rows []models.Appointment) int {
		for i, a := range rows {
			if key.Matches(a) {
				return i
			}
		}
		return -1
	}
}

func byIndex(index int) finder {
	return func(rows []models.Appointment) int {
		if index < 0 || index >= len(rows) {
			return -1
		}
		return index
	}
}
