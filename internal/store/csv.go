package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"medbot-server/internal/models"
)

var (
	appointmentColumns = []string{"id", "patient", "doctor", "doctor_username", "time", "symptom", "status", "created_at"}
	historyColumns     = []string{"id", "appointment_id", "patient", "doctor_username", "time", "symptom", "completed_at"}
)

// CSVAppointmentStore keeps appointments in a CSV file with a header row.
// Every mutation rewrites the file through a temp file and rename.
type CSVAppointmentStore struct {
	path string
	mu   sync.Mutex
}

// NewCSVAppointmentStore opens path, creating it with a header when
// missing. Rows written before ids existed are given one and the file is
// rewritten.
func NewCSVAppointmentStore(path string) (*CSVAppointmentStore, error) {
	s := &CSVAppointmentStore{path: path}
	rows, migrated, err := s.read()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); migrated || errors.Is(statErr, os.ErrNotExist) {
		if err := s.write(rows); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// List reads every appointment in file order.
func (s *CSVAppointmentStore) List(ctx context.Context) ([]models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, _, err := s.read()
	return rows, err
}

// Mutate applies fn to the current rows under the store lock and writes
// the result back.
func (s *CSVAppointmentStore) Mutate(ctx context.Context, fn MutateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, _, err := s.read()
	if err != nil {
		return err
	}
	next, err := fn(rows)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.write(next)
}

func (s *CSVAppointmentStore) read() ([]models.Appointment, bool, error) {
	records, err := readCSV(s.path)
	if err != nil {
		return nil, false, err
	}
	var (
		out      []models.Appointment
		migrated bool
	)
	for _, r := range records {
		a := models.Appointment{
			BaseModel:      models.BaseModel{ID: r["id"]},
			Patient:        r["patient"],
			Doctor:         r["doctor"],
			DoctorUsername: r["doctor_username"],
			Time:           r["time"],
			Symptom:        r["symptom"],
			Status:         models.AppointmentStatus(r["status"]),
			CreatedAt:      r["created_at"],
		}
		if a.ID == "" {
			a.EnsureID()
			migrated = true
		}
		a.Position = int64(len(out))
		out = append(out, a)
	}
	return out, migrated, nil
}

func (s *CSVAppointmentStore) write(rows []models.Appointment) error {
	records := make([][]string, 0, len(rows))
	for _, a := range rows {
		records = append(records, []string{
			a.ID, a.Patient, a.Doctor, a.DoctorUsername, a.Time, a.Symptom, string(a.Status), a.CreatedAt,
		})
	}
	return writeCSV(s.path, appointmentColumns, records)
}

// CSVHistoryStore appends completed visits to a CSV file.
type CSVHistoryStore struct {
	path string
	mu   sync.Mutex
}

// NewCSVHistoryStore opens path, creating it with a header when missing.
func NewCSVHistoryStore(path string) (*CSVHistoryStore, error) {
	s := &CSVHistoryStore{path: path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := writeCSV(path, historyColumns, nil); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return s, nil
}

// Append writes one record at the end of the file.
func (s *CSVHistoryStore) Append(ctx context.Context, rec models.HistoryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.EnsureID()
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{rec.ID, rec.AppointmentID, rec.Patient, rec.DoctorUsername, rec.Time, rec.Symptom, rec.CompletedAt}); err != nil {
		f.Close()
		return fmt.Errorf("append history: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("append history: %w", err)
	}
	return f.Close()
}

// ForPatient returns the patient's records in file order.
func (s *CSVHistoryStore) ForPatient(ctx context.Context, patient string) ([]models.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := readCSV(s.path)
	if err != nil {
		return nil, err
	}
	var out []models.HistoryRecord
	for _, r := range records {
		if r["patient"] != patient {
			continue
		}
		out = append(out, models.HistoryRecord{
			BaseModel:      models.BaseModel{ID: r["id"]},
			AppointmentID:  r["appointment_id"],
			Patient:        r["patient"],
			DoctorUsername: r["doctor_username"],
			Time:           r["time"],
			Symptom:        r["symptom"],
			CompletedAt:    r["completed_at"],
		})
	}
	return out, nil
}

// readCSV returns every data row keyed by header name. A missing file
// has no rows.
func readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", path, err)
	}

	var rows []map[string]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func writeCSV(path string, header []string, records [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(records); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
