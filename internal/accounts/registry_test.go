package accounts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"medbot-server/internal/logging"
	"medbot-server/internal/models"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(Credentials{
		AdminPassword:   "admin_pass",
		PatientPassword: "patient_pass",
		DoctorPassword:  "doctor_pass",
		BcryptCost:      bcrypt.MinCost,
	}, []models.Doctor{
		{Name: "Dr. Asha Rao", Specialty: "General Physician", Rating: 4.8},
		{Name: "Dr. Ben Cole", Specialty: "Cardiologist", Rating: 4.9, Username: "bcole"},
	}, logging.Discard())
	require.NoError(t, err)
	return r
}

func TestAuthenticateSeededAccounts(t *testing.T) {
	r := newRegistry(t)

	tests := []struct {
		name     string
		username string
		password string
		role     models.Role
		want     string
		wantErr  error
	}{
		{"admin", "admin_user", "admin_pass", models.RoleAdmin, "admin_user", nil},
		{"admin wrong password", "admin_user", "nope", models.RoleAdmin, "", ErrInvalidCredentials},
		{"admin as doctor", "admin_user", "admin_pass", models.RoleDoctor, "", ErrInvalidCredentials},
		{"doctor by username", "bcole", "doctor_pass", models.RoleDoctor, "bcole", nil},
		{"doctor by display name", "dr asha rao", "doctor_pass", models.RoleDoctor, "dr_asha_rao", nil},
		{"unknown doctor", "dr who", "doctor_pass", models.RoleDoctor, "", ErrInvalidCredentials},
		{"demo patient", "patient_user", "patient_pass", models.RolePatient, "patient_user", nil},
		{"blank", "  ", "x", models.RolePatient, "", ErrBlankUsername},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct, err := r.Authenticate(tt.username, tt.password, tt.role)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, acct.Username)
			assert.Equal(t, tt.role, acct.Role)
		})
	}
}

func TestPatientSelfRegisters(t *testing.T) {
	r := newRegistry(t)

	acct, err := r.Authenticate("new_patient", "secret", models.RolePatient)
	require.NoError(t, err)
	assert.Equal(t, models.RolePatient, acct.Role)

	_, err = r.Authenticate("new_patient", "other", models.RolePatient)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = r.Authenticate("bcole", "doctor_pass", models.RolePatient)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestDoctorAccountsFollowDirectory(t *testing.T) {
	r := newRegistry(t)

	require.NoError(t, r.UpsertDoctor(models.Doctor{Name: "Dr. Mia Park"}))
	_, err := r.Authenticate("dr_mia_park", "doctor_pass", models.RoleDoctor)
	require.NoError(t, err)

	require.NoError(t, r.RenameDoctor(models.Doctor{Name: "Dr. Mia Park"}, models.Doctor{Name: "Dr. Mia Park-Lee", Username: "mpark"}))
	_, ok := r.Get("dr_mia_park")
	assert.False(t, ok)
	acct, ok := r.Get("mpark")
	require.True(t, ok)
	assert.Equal(t, "Dr. Mia Park-Lee", acct.DisplayName)

	r.RemoveDoctor("mpark")
	_, err = r.Authenticate("mpark", "doctor_pass", models.RoleDoctor)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	r.RemoveDoctor(AdminUsername)
	_, ok = r.Get(AdminUsername)
	assert.True(t, ok)
}
