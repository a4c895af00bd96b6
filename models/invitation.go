package models

import "time"

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationExpired  InvitationStatus = "expired"
)

// ContactFields are the optional musician details a venue can prefill on an
// invitation, or an accepting musician can override. Nil means "not provided".
type ContactFields struct {
	Name        *string  `json:"name,omitempty"`
	Email       *string  `json:"email,omitempty"`
	Phone       *string  `json:"phone,omitempty"`
	Instruments []string `json:"instruments,omitempty"`
}

func (c ContactFields) IsEmpty() bool {
	return c.Name == nil && c.Email == nil && c.Phone == nil && c.Instruments == nil
}

// Or returns c with every missing field taken from fallback.
func (c ContactFields) Or(fallback ContactFields) ContactFields {
	if c.Name == nil {
		c.Name = fallback.Name
	}
	if c.Email == nil {
		c.Email = fallback.Email
	}
	if c.Phone == nil {
		c.Phone = fallback.Phone
	}
	if c.Instruments == nil {
		c.Instruments = fallback.Instruments
	}
	return c
}

type VenueInvitation struct {
	ID             string           `json:"id"`
	VenueID        string           `json:"venue_id"`
	Code           string           `json:"code"`
	CreatedBy      string           `json:"created_by"`
	Prefill        ContactFields    `json:"prefill"`
	Status         InvitationStatus `json:"status"`
	ExpiresAt      time.Time        `json:"expires_at"`
	AcceptedBy     string           `json:"accepted_by,omitempty"`
	AcceptedAt     *time.Time       `json:"accepted_at,omitempty"`
	AcceptedFields *ContactFields   `json:"accepted_fields,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

func (i *VenueInvitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// EffectiveStatus evaluates expiry at read time; nothing sweeps expired rows.
func (i *VenueInvitation) EffectiveStatus(now time.Time) InvitationStatus {
	return effectiveStatus(i.Status, i.ExpiresAt, now)
}

type VenueManagerInvitation struct {
	ID         string           `json:"id"`
	VenueID    string           `json:"venue_id"`
	Code       string           `json:"code"`
	Email      string           `json:"email"`
	CreatedBy  string           `json:"created_by"`
	Status     InvitationStatus `json:"status"`
	ExpiresAt  time.Time        `json:"expires_at"`
	AcceptedBy string           `json:"accepted_by,omitempty"`
	AcceptedAt *time.Time       `json:"accepted_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

func (i *VenueManagerInvitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

func (i *VenueManagerInvitation) EffectiveStatus(now time.Time) InvitationStatus {
	return effectiveStatus(i.Status, i.ExpiresAt, now)
}

func effectiveStatus(stored InvitationStatus, expiresAt, now time.Time) InvitationStatus {
	if stored == InvitationPending && now.After(expiresAt) {
		return InvitationExpired
	}
	return stored
}
