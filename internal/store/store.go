// Package store is the data-access contract between the booking core and the
// hosted database. Implementations must honour the uniqueness rules listed on
// each method; the services rely on them for their concurrency guarantees.
package store

import (
	"context"
	"errors"
	"time"

	"gig-booking/models"
)

var (
	ErrNotFound      = errors.New("store: record not found")
	ErrAlreadyExists = errors.New("store: record already exists")
	// ErrConflict reports a conditional write whose precondition no longer holds.
	ErrConflict = errors.New("store: conditional write lost")
	// ErrSlotFilled reports that the slot already holds an accepted application.
	ErrSlotFilled = errors.New("store: slot already has an accepted application")
)

type GigStore interface {
	// CreateGig persists the gig and its slots, filling in generated ids.
	CreateGig(ctx context.Context, gig *models.Gig) error
	GetGig(ctx context.Context, gigID string) (*models.Gig, error)
	UpdateGigStatus(ctx context.Context, gigID string, status models.GigStatus) error
	// UpdateSlot fails with ErrSlotFilled once the slot holds an accepted
	// application; the check and the write are atomic with AcceptApplication.
	UpdateSlot(ctx context.Context, slot *models.Slot) error
	// DeleteGig removes the gig with its slots, applications and gig invitations.
	DeleteGig(ctx context.Context, gigID string) error
}

type ApplicationStore interface {
	// InsertApplication fails with ErrAlreadyExists when the applicant already
	// holds a pending or accepted application on the slot.
	InsertApplication(ctx context.Context, app *models.Application) error
	GetApplication(ctx context.Context, applicationID string) (*models.Application, error)
	ListApplicationsBySlot(ctx context.Context, slotID string) ([]models.Application, error)
	ListApplicationsByGig(ctx context.Context, gigID string) ([]models.Application, error)
	ListApplicationsByApplicant(ctx context.Context, applicantID string) ([]models.Application, error)
	// AcceptApplication moves the application from pending to accepted and
	// rejects every other pending application on the same slot, atomically.
	// It fails with ErrConflict when the application is no longer pending and
	// with ErrSlotFilled when another application on the slot is accepted.
	// The ids of the cascaded rejections are returned.
	AcceptApplication(ctx context.Context, applicationID string, at time.Time) ([]string, error)
	// RejectApplication moves a pending application to rejected; ErrConflict otherwise.
	RejectApplication(ctx context.Context, applicationID string, at time.Time) error
}

type GigInvitationStore interface {
	// InsertGigInvitation fails with ErrAlreadyExists for a duplicate
	// (gig, instrument, musician) triple.
	InsertGigInvitation(ctx context.Context, inv *models.GigInvitation) error
	FindGigInvitation(ctx context.Context, gigID, instrument, musicianID string) (*models.GigInvitation, error)
	GetGigInvitation(ctx context.Context, invitationID string) (*models.GigInvitation, error)
	DeleteGigInvitation(ctx context.Context, invitationID string) error
	ListGigInvitationsByGig(ctx context.Context, gigID string) ([]models.GigInvitation, error)
	ListGigInvitationsByMusician(ctx context.Context, musicianID string) ([]models.GigInvitation, error)
}

type VenueInvitationStore interface {
	// InsertVenueInvitation fails with ErrAlreadyExists on a code collision.
	InsertVenueInvitation(ctx context.Context, inv *models.VenueInvitation) error
	VenueInvitationCodeExists(ctx context.Context, code string) (bool, error)
	GetVenueInvitationByCode(ctx context.Context, code string) (*models.VenueInvitation, error)
	ListVenueInvitations(ctx context.Context, venueID string) ([]models.VenueInvitation, error)
	// MarkVenueInvitationAccepted atomically moves a pending invitation to
	// accepted; ErrConflict when it is no longer pending.
	MarkVenueInvitationAccepted(ctx context.Context, invitationID, acceptedBy string, at time.Time, fields *models.ContactFields) error
	// RevertVenueInvitation puts an accepted invitation back to pending,
	// clearing the acceptance fields. It only touches rows accepted by acceptedBy.
	RevertVenueInvitation(ctx context.Context, invitationID, acceptedBy string) error
}

type ManagerInvitationStore interface {
	InsertManagerInvitation(ctx context.Context, inv *models.VenueManagerInvitation) error
	ManagerInvitationCodeExists(ctx context.Context, code string) (bool, error)
	GetManagerInvitationByCode(ctx context.Context, code string) (*models.VenueManagerInvitation, error)
	MarkManagerInvitationAccepted(ctx context.Context, invitationID, acceptedBy string, at time.Time) error
	RevertManagerInvitation(ctx context.Context, invitationID, acceptedBy string) error
}

type NetworkStore interface {
	NetworkMemberExists(ctx context.Context, venueID, musicianID string) (bool, error)
	// AddNetworkMember is an idempotent upsert: an existing row, including one
	// created by a concurrent writer, reports created=false and no error.
	AddNetworkMember(ctx context.Context, m models.NetworkMembership) (created bool, err error)
	RemoveNetworkMember(ctx context.Context, venueID, musicianID string) error
	ListNetworkMembers(ctx context.Context, venueID string) ([]models.NetworkMembership, error)
	ListNetworksForMusician(ctx context.Context, musicianID string) ([]models.NetworkMembership, error)
}

type VenueStore interface {
	GetVenue(ctx context.Context, venueID string) (*models.Venue, error)
	ListManagedVenueIDs(ctx context.Context, userID string) ([]string, error)
	// AddVenueManager is an idempotent upsert like AddNetworkMember.
	AddVenueManager(ctx context.Context, m models.VenueManager) (created bool, err error)
}

type ProfileStore interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetMusician(ctx context.Context, userID string) (*models.Musician, error)
	// SaveMusician creates or replaces the profile keyed by UserID.
	SaveMusician(ctx context.Context, m *models.Musician) error
}

// Store is the full contract implemented by every backend.
type Store interface {
	GigStore
	ApplicationStore
	GigInvitationStore
	VenueInvitationStore
	ManagerInvitationStore
	NetworkStore
	VenueStore
	ProfileStore
}
