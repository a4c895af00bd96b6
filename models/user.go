package models

import "strings"

const (
	RoleMusician = "musician"
	RoleVenue    = "venue"
	RoleAdmin    = "admin"
)

// Actor is the authenticated caller as handed over by the auth layer.
type Actor struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	RoleClaim     string `json:"role"`
	Superuser     bool   `json:"-"`
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role"`
}

type Musician struct {
	UserID      string   `json:"user_id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone,omitempty"`
	Instruments []string `json:"instruments"`
}

func (m *Musician) Plays(instrument string) bool {
	return containsInstrument(m.Instruments, instrument)
}

// Merge overwrites only the fields explicitly provided.
func (m *Musician) Merge(fields ContactFields) bool {
	changed := false
	if fields.Name != nil && strings.TrimSpace(*fields.Name) != m.Name {
		m.Name = strings.TrimSpace(*fields.Name)
		changed = true
	}
	if fields.Email != nil && strings.TrimSpace(*fields.Email) != m.Email {
		m.Email = strings.TrimSpace(*fields.Email)
		changed = true
	}
	if fields.Phone != nil && strings.TrimSpace(*fields.Phone) != m.Phone {
		m.Phone = strings.TrimSpace(*fields.Phone)
		changed = true
	}
	if fields.Instruments != nil {
		m.Instruments = NormalizeInstruments(fields.Instruments)
		changed = true
	}
	return changed
}
