package models

import (
	"fmt"
	"strings"
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "Pending"
	StatusAccepted  AppointmentStatus = "Accepted"
	StatusRejected  AppointmentStatus = "Rejected"
	StatusCompleted AppointmentStatus = "Completed"
)

// ParseStatus converts a case-insensitive status label to an AppointmentStatus.
func ParseStatus(s string) (AppointmentStatus, error) {
	for _, status := range []AppointmentStatus{StatusPending, StatusAccepted, StatusRejected, StatusCompleted} {
		if strings.EqualFold(strings.TrimSpace(s), string(status)) {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown appointment status %q", s)
}

// Terminal reports whether no further transition is possible from s.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// Appointment represents a booked visit with a doctor.
// CreatedAt is kept as the ISO-8601 string it was persisted with; legacy rows
// may carry values that do not parse.
type Appointment struct {
	BaseModel
	Patient        string            `gorm:"size:100;index" json:"patient"`
	Doctor         string            `gorm:"size:255" json:"doctor"`
	DoctorUsername string            `gorm:"size:100;index" json:"doctorUsername"`
	Time           string            `gorm:"size:50" json:"time"`
	Symptom        string            `gorm:"type:text" json:"symptom"`
	Status         AppointmentStatus `gorm:"size:20;default:'Pending'" json:"status"`
	CreatedAt      string            `gorm:"column:created_at;size:40" json:"createdAt"`
	Position       int64             `gorm:"index" json:"-"`
}

// Key returns the natural key of the appointment.
func (a Appointment) Key() NaturalKey {
	return NaturalKey{Patient: a.Patient, DoctorUsername: a.DoctorUsername, Time: a.Time}
}

// NaturalKey identifies an appointment by business fields. It is not unique:
// a patient may book the same doctor and slot more than once.
type NaturalKey struct {
	Patient        string `json:"patient"`
	DoctorUsername string `json:"doctorUsername"`
	Time           string `json:"time"`
}

// Matches reports whether a carries this key.
func (k NaturalKey) Matches(a Appointment) bool {
	return a.Patient == k.Patient && a.DoctorUsername == k.DoctorUsername && a.Time == k.Time
}

const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// accepted in addition to RFC 3339; naive values are read as UTC
var naiveTimestampLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// FormatTimestamp renders t as an ISO-8601 UTC timestamp with microseconds.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ParseTimestamp parses an ISO-8601 timestamp. Values without a zone are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveTimestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", s)
}
