package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"medbot-server/internal/logging"
	"medbot-server/internal/models"
)

var (
	// ErrInvalidDoctor is returned for a doctor with a blank name or
	// specialty, or a rating outside [0, 5].
	ErrInvalidDoctor = errors.New("invalid doctor")
	// ErrDuplicateUsername is returned when two entries resolve to the same username.
	ErrDuplicateUsername = errors.New("doctor username already exists")
	// ErrIndexOutOfRange is returned for a position that holds no doctor.
	ErrIndexOutOfRange = errors.New("doctor index out of range")
)

// Repository persists the whole directory. Save always receives the
// complete collection in position order.
type Repository interface {
	Load(ctx context.Context) ([]models.Doctor, error)
	Save(ctx context.Context, doctors []models.Doctor) error
}

// Directory is the doctor catalog. Entries are addressed by position.
type Directory struct {
	mu      sync.RWMutex
	doctors []models.Doctor
	repo    Repository
	logger  *logging.Logger
}

// New creates a directory seeded with doctors. repo may be nil for a
// purely in-memory catalog.
func New(doctors []models.Doctor, repo Repository, logger *logging.Logger) *Directory {
	if logger == nil {
		logger = logging.Default()
	}
	return &Directory{
		doctors: normalizeAll(doctors),
		repo:    repo,
		logger:  logger,
	}
}

// Open loads the directory from repo.
func Open(ctx context.Context, repo Repository, logger *logging.Logger) (*Directory, error) {
	doctors, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load doctor directory: %w", err)
	}
	return New(doctors, repo, logger), nil
}

// List returns a copy of every doctor in position order.
func (d *Directory) List() []models.Doctor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return cloneAll(d.doctors)
}

// Len returns the number of doctors.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.doctors)
}

// Get returns the doctor at index.
func (d *Directory) Get(index int) (models.Doctor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if index < 0 || index >= len(d.doctors) {
		return models.Doctor{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return clone(d.doctors[index]), nil
}

// ByUsername finds a doctor by resolved username.
func (d *Directory) ByUsername(username string) (models.Doctor, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, doc := range d.doctors {
		if doc.Username == username {
			return clone(doc), true
		}
	}
	return models.Doctor{}, false
}

// FindByDisplayName finds a doctor whose name matches on lowercase
// letters and digits only.
func (d *Directory) FindByDisplayName(name string) (models.Doctor, bool) {
	key := models.DisplayKey(name)
	if key == "" {
		return models.Doctor{}, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, doc := range d.doctors {
		if models.DisplayKey(doc.Name) == key {
			return clone(doc), true
		}
	}
	return models.Doctor{}, false
}

// HasSpecialty reports whether any doctor practices specialty (case-insensitive).
func (d *Directory) HasSpecialty(specialty string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, doc := range d.doctors {
		if strings.EqualFold(doc.Specialty, strings.TrimSpace(specialty)) {
			return true
		}
	}
	return false
}

// Add appends a doctor and persists the directory.
func (d *Directory) Add(ctx context.Context, doc models.Doctor) (models.Doctor, error) {
	doc = normalize(doc)
	if err := validate(doc); err != nil {
		return models.Doctor{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.indexOfUsername(doc.Username, -1) >= 0 {
		return models.Doctor{}, fmt.Errorf("%w: %s", ErrDuplicateUsername, doc.Username)
	}
	next := append(cloneAll(d.doctors), doc)
	if err := d.commit(ctx, next); err != nil {
		return models.Doctor{}, err
	}
	d.logger.Info("doctor added", "doctor_username", doc.Username, "specialty", doc.Specialty)
	return clone(doc), nil
}

// Edit replaces the doctor at index and returns the previous entry.
func (d *Directory) Edit(ctx context.Context, index int, doc models.Doctor) (previous models.Doctor, updated models.Doctor, err error) {
	doc = normalize(doc)
	if err := validate(doc); err != nil {
		return models.Doctor{}, models.Doctor{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if index < 0 || index >= len(d.doctors) {
		return models.Doctor{}, models.Doctor{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if d.indexOfUsername(doc.Username, index) >= 0 {
		return models.Doctor{}, models.Doctor{}, fmt.Errorf("%w: %s", ErrDuplicateUsername, doc.Username)
	}
	previous = clone(d.doctors[index])
	next := cloneAll(d.doctors)
	next[index] = doc
	if err := d.commit(ctx, next); err != nil {
		return models.Doctor{}, models.Doctor{}, err
	}
	d.logger.Info("doctor updated", "index", index, "doctor_username", doc.Username)
	return previous, clone(doc), nil
}

// Remove deletes the doctor at index and returns it.
func (d *Directory) Remove(ctx context.Context, index int) (models.Doctor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if index < 0 || index >= len(d.doctors) {
		return models.Doctor{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	removed := clone(d.doctors[index])
	next := make([]models.Doctor, 0, len(d.doctors)-1)
	next = append(next, cloneAll(d.doctors[:index])...)
	next = append(next, cloneAll(d.doctors[index+1:])...)
	if err := d.commit(ctx, next); err != nil {
		return models.Doctor{}, err
	}
	d.logger.Info("doctor removed", "index", index, "doctor_username", removed.Username)
	return removed, nil
}

// commit persists next and only then swaps it in. Caller holds d.mu.
func (d *Directory) commit(ctx context.Context, next []models.Doctor) error {
	if d.repo != nil {
		if err := d.repo.Save(ctx, next); err != nil {
			return fmt.Errorf("save doctor directory: %w", err)
		}
	}
	d.doctors = next
	return nil
}

func (d *Directory) indexOfUsername(username string, skip int) int {
	for i, doc := range d.doctors {
		if i != skip && doc.Username == username {
			return i
		}
	}
	return -1
}

func validate(doc models.Doctor) error {
	switch {
	case doc.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidDoctor)
	case doc.Specialty == "":
		return fmt.Errorf("%w: specialty is required", ErrInvalidDoctor)
	case doc.Rating < 0 || doc.Rating > 5:
		return fmt.Errorf("%w: rating %.1f outside 0-5", ErrInvalidDoctor, doc.Rating)
	case doc.Username == "":
		return fmt.Errorf("%w: name yields an empty username", ErrInvalidDoctor)
	}
	return nil
}

func normalize(doc models.Doctor) models.Doctor {
	doc.Name = strings.TrimSpace(doc.Name)
	doc.Specialty = strings.TrimSpace(doc.Specialty)
	doc.Username = models.NormalizeUsername(doc.ResolvedUsername())
	return clone(doc)
}

func normalizeAll(doctors []models.Doctor) []models.Doctor {
	out := make([]models.Doctor, 0, len(doctors))
	for _, doc := range doctors {
		out = append(out, normalize(doc))
	}
	return out
}

func clone(doc models.Doctor) models.Doctor {
	if doc.Slots != nil {
		doc.Slots = append(models.SlotList(nil), doc.Slots...)
	}
	return doc
}

func cloneAll(doctors []models.Doctor) []models.Doctor {
	out := make([]models.Doctor, len(doctors))
	for i, doc := range doctors {
		out[i] = clone(doc)
	}
	return out
}
