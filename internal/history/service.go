// Package history merges live appointments and the completed-visit log
// into one per-patient timeline.
package history

import (
	"context"
	"sort"

	"medbot-server/internal/models"
	"medbot-server/internal/store"
)

// Source says where a Visit came from.
type Source string

const (
	SourceAppointment Source = "appointment"
	SourceHistory     Source = "history"
)

// Visit is one entry of a patient's timeline. Timestamp is created_at for
// appointments and completed_at for history records.
type Visit struct {
	Source         Source                   `json:"source"`
	AppointmentID  string                   `json:"appointmentId,omitempty"`
	Patient        string                   `json:"patient"`
	Doctor         string                   `json:"doctor,omitempty"`
	DoctorUsername string                   `json:"doctorUsername"`
	Time           string                   `json:"time"`
	Symptom        string                   `json:"symptom"`
	Status         models.AppointmentStatus `json:"status,omitempty"`
	Timestamp      string                   `json:"timestamp"`
}

// AppointmentLister is the read side of the appointment manager.
type AppointmentLister interface {
	ForPatient(ctx context.Context, patient string) ([]models.Appointment, error)
}

// Service builds visit timelines.
type Service struct {
	appointments AppointmentLister
	records      store.HistoryStore
}

// NewService merges records with the appointments lister.
func NewService(appointments AppointmentLister, records store.HistoryStore) *Service {
	return &Service{appointments: appointments, records: records}
}

// HistoryFor returns the patient's accepted and completed appointments
// plus every history record, newest first. Entries without a usable
// timestamp come last in the order they were read.
func (s *Service) HistoryFor(ctx context.Context, patient string) ([]Visit, error) {
	appts, err := s.appointments.ForPatient(ctx, patient)
	if err != nil {
		return nil, err
	}
	recs, err := s.records.ForPatient(ctx, patient)
	if err != nil {
		return nil, err
	}

	visits := []Visit{}
	for _, a := range appts {
		if a.Status != models.StatusAccepted && a.Status != models.StatusCompleted {
			continue
		}
		visits = append(visits, Visit{
			Source:         SourceAppointment,
			AppointmentID:  a.ID,
			Patient:        a.Patient,
			Doctor:         a.Doctor,
			DoctorUsername: a.DoctorUsername,
			Time:           a.Time,
			Symptom:        a.Symptom,
			Status:         a.Status,
			Timestamp:      a.CreatedAt,
		})
	}
	for _, r := range recs {
		visits = append(visits, Visit{
			Source:         SourceHistory,
			AppointmentID:  r.AppointmentID,
			Patient:        r.Patient,
			DoctorUsername: r.DoctorUsername,
			Time:           r.Time,
			Symptom:        r.Symptom,
			Status:         models.StatusCompleted,
			Timestamp:      r.CompletedAt,
		})
	}

	sortNewestFirst(visits)
	return visits, nil
}

func sortNewestFirst(visits []Visit) {
	sort.SliceStable(visits, func(i, j int) bool {
		ti, errI := models.ParseTimestamp(visits[i].Timestamp)
		tj, errJ := models.ParseTimestamp(visits[j].Timestamp)
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
