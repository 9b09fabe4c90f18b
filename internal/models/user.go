package models

import (
	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleDoctor  Role = "Doctor"
	RolePatient Role = "Patient"
)

// Account is a login identity. Doctor accounts mirror directory entries.
type Account struct {
	Username     string
	PasswordHash string
	Role         Role
	DisplayName  string
}

// AccountSanitized represents the account data that is safe to send in API responses.
type AccountSanitized struct {
	Username    string `json:"username"`
	Role        Role   `json:"role"`
	DisplayName string `json:"displayName,omitempty"`
}

// SetPassword hashes a password and sets it on the account
func (a *Account) SetPassword(password string, cost int) error {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the account's hashed password
func (a *Account) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password))
	return err == nil
}

// Sanitize creates an AccountSanitized, excluding the password hash.
func (a *Account) Sanitize() AccountSanitized {
	return AccountSanitized{
		Username:    a.Username,
		Role:        a.Role,
		DisplayName: a.DisplayName,
	}
}
