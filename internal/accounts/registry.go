// Package accounts is the in-memory credential registry behind login.
package accounts

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"medbot-server/internal/logging"
	"medbot-server/internal/models"
)

const (
	AdminUsername       = "admin_user"
	DemoPatientUsername = "patient_user"
)

var (
	// ErrInvalidCredentials covers unknown users, wrong passwords and role mismatches.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrBlankUsername is returned when a login carries no username.
	ErrBlankUsername = errors.New("username is required")
)

// Credentials are the seeded passwords.
type Credentials struct {
	AdminPassword   string
	PatientPassword string
	DoctorPassword  string
	BcryptCost      int
}

// Registry holds login accounts keyed by username. Patients that log in
// with an unknown username are registered on the spot.
type Registry struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
	creds    Credentials
	logger   *logging.Logger
}

// NewRegistry seeds the admin, the demo patient and one account per doctor.
func NewRegistry(creds Credentials, doctors []models.Doctor, logger *logging.Logger) (*Registry, error) {
	if logger == nil {
		logger = logging.Default()
	}
	r := &Registry{
		accounts: make(map[string]*models.Account),
		creds:    creds,
		logger:   logger,
	}
	if err := r.put(AdminUsername, creds.AdminPassword, models.RoleAdmin, "Administrator"); err != nil {
		return nil, err
	}
	if err := r.put(DemoPatientUsername, creds.PatientPassword, models.RolePatient, ""); err != nil {
		return nil, err
	}
	for _, doc := range doctors {
		if err := r.UpsertDoctor(doc); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Authenticate checks a login. Doctors may give their username or their
// display name.
func (r *Registry) Authenticate(username, password string, role models.Role) (models.AccountSanitized, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.AccountSanitized{}, ErrBlankUsername
	}

	if role == models.RolePatient {
		if err := r.ensurePatient(username, password); err != nil {
			return models.AccountSanitized{}, err
		}
	}

	r.mu.RLock()
	acct := r.lookup(username, role)
	r.mu.RUnlock()

	if acct == nil || acct.Role != role || !acct.CheckPassword(password) {
		return models.AccountSanitized{}, ErrInvalidCredentials
	}
	return acct.Sanitize(), nil
}

// Get returns the account for username.
func (r *Registry) Get(username string) (models.AccountSanitized, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.accounts[username]
	if !ok {
		return models.AccountSanitized{}, false
	}
	return acct.Sanitize(), true
}

// UpsertDoctor creates or refreshes the login for doc. Existing passwords
// are kept.
func (r *Registry) UpsertDoctor(doc models.Doctor) error {
	username := doc.ResolvedUsername()
	r.mu.Lock()
	if acct, ok := r.accounts[username]; ok && acct.Role == models.RoleDoctor {
		acct.DisplayName = doc.Name
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()
	return r.put(username, r.creds.DoctorPassword, models.RoleDoctor, doc.Name)
}

// RemoveDoctor deletes a doctor login.
func (r *Registry) RemoveDoctor(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if acct, ok := r.accounts[username]; ok && acct.Role == models.RoleDoctor {
		delete(r.accounts, username)
	}
}

// RenameDoctor moves a doctor login when an edit changes the username.
func (r *Registry) RenameDoctor(previous, updated models.Doctor) error {
	from, to := previous.ResolvedUsername(), updated.ResolvedUsername()
	if from == to {
		return r.UpsertDoctor(updated)
	}
	r.mu.Lock()
	acct, ok := r.accounts[from]
	if ok && acct.Role == models.RoleDoctor {
		delete(r.accounts, from)
		moved := *acct
		moved.Username = to
		moved.DisplayName = updated.Name
		r.accounts[to] = &moved
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()
	return r.UpsertDoctor(updated)
}

func (r *Registry) ensurePatient(username, password string) error {
	r.mu.RLock()
	_, exists := r.accounts[username]
	r.mu.RUnlock()
	if exists {
		return nil
	}
	if err := r.put(username, password, models.RolePatient, ""); err != nil {
		return err
	}
	r.logger.Info("patient registered", "patient", username)
	return nil
}

// lookup resolves username, falling back to doctor display names.
// Caller holds r.mu.
func (r *Registry) lookup(username string, role models.Role) *models.Account {
	if acct, ok := r.accounts[username]; ok {
		return acct
	}
	if role != models.RoleDoctor {
		return nil
	}
	key := models.DisplayKey(username)
	for _, acct := range r.accounts {
		if acct.Role == models.RoleDoctor && key != "" && models.DisplayKey(acct.DisplayName) == key {
			return acct
		}
	}
	return nil
}

func (r *Registry) put(username, password string, role models.Role, display string) error {
	acct := &models.Account{Username: username, Role: role, DisplayName: display}
	if err := acct.SetPassword(password, r.creds.BcryptCost); err != nil {
		return fmt.Errorf("hash password for %s: %w", username, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accounts[username]; exists && role == models.RolePatient {
		return nil
	}
	r.accounts[username] = acct
	return nil
}
