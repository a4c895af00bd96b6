package models

import "time"

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Terminal reports whether no further transition is allowed.
func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationAccepted || s == ApplicationRejected
}

// Active reports whether the application still holds a claim on its slot.
func (s ApplicationStatus) Active() bool {
	return s == ApplicationPending || s == ApplicationAccepted
}

type Application struct {
	ID          string            `json:"id"`
	GigID       string            `json:"gig_id"`
	SlotID      string            `json:"slot_id"`
	ApplicantID string            `json:"applicant_id"`
	Instrument  string            `json:"instrument"`
	Status      ApplicationStatus `json:"status"` // pending, accepted, rejected
	SubmittedAt time.Time         `json:"submitted_at"`
	DecidedAt   *time.Time        `json:"decided_at,omitempty"`
}

// GigInvitation grants a musician the right to apply to invite-only slots
// requiring the instrument.
type GigInvitation struct {
	ID         string    `json:"id"`
	GigID      string    `json:"gig_id"`
	Instrument string    `json:"instrument"`
	MusicianID string    `json:"musician_id"`
	InvitedBy  string    `json:"invited_by"`
	CreatedAt  time.Time `json:"created_at"`
}
