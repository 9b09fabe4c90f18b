package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// Doctor is an entry of the doctor directory.
type Doctor struct {
	Name      string   `json:"name"`
	Specialty string   `json:"specialty"`
	Rating    float64  `json:"rating"`
	Slots     SlotList `json:"slots"`
	Username  string   `json:"username,omitempty"`
}

// ResolvedUsername returns the stored username, or one derived from the name.
func (d Doctor) ResolvedUsername() string {
	if u := strings.TrimSpace(d.Username); u != "" {
		return u
	}
	return NormalizeUsername(d.Name)
}

// SlotList is an ordered list of slot labels. Seed data may store it as a
// comma separated string.
type SlotList []string

// UnmarshalJSON accepts either a JSON array or a comma separated string.
func (s *SlotList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		var out SlotList
		for _, slot := range list {
			if slot = strings.TrimSpace(slot); slot != "" {
				out = append(out, slot)
			}
		}
		*s = out
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*s = ParseSlots(raw)
		return nil
	}
	if string(data) == "null" {
		*s = nil
		return nil
	}
	return fmt.Errorf("slots: expected list or string, got %s", string(data))
}

// ParseSlots splits a comma separated slot list, dropping blanks.
func ParseSlots(raw string) SlotList {
	var out SlotList
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeUsername lowercases name, turns whitespace runs into a single
// underscore and drops everything that is not a letter, digit or underscore.
func NormalizeUsername(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	joined := strings.Join(fields, "_")
	var b strings.Builder
	for _, r := range joined {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DisplayKey reduces a display name to lowercase letters and digits so that
// "Dr. Asha Rao" and "dr asha rao" compare equal.
func DisplayKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
