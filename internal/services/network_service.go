package services

import (
	"context"
	"errors"

	"gig-booking/internal/status"
	"gig-booking/internal/store"
	"gig-booking/models"
)

// NetworkService is the venue/musician registry. It carries no business
// rules beyond who may read or change it.
type NetworkService struct {
	Deps
}

func NewNetworkService(deps Deps) *NetworkService {
	return &NetworkService{Deps: deps}
}

func (s *NetworkService) managedVenue(ctx context.Context, caps *Capabilities, venueID string) (*models.Venue, error) {
	if err := requireActor(caps); err != nil {
		return nil, err
	}
	venue, err := s.Store.GetVenue(ctx, venueID)
	if err != nil {
		return nil, storeErr(err, status.ErrVenueNotFound)
	}
	if !caps.ManagesVenue(venue.ID) {
		return nil, status.ErrNotVenueManager
	}
	return venue, nil
}

func (s *NetworkService) Exists(ctx context.Context, venueID, musicianID string) (bool, error) {
	ok, err := s.Store.NetworkMemberExists(ctx, venueID, musicianID)
	if err != nil {
		return false, status.Internal(err)
	}
	return ok, nil
}

// add is the idempotent upsert shared by manual adds and invitation
// acceptance.
func (s *NetworkService) add(ctx context.Context, venueID, musicianID, addedBy string) (bool, error) {
	created, err := s.Store.AddNetworkMember(ctx, models.NetworkMembership{
		VenueID:    venueID,
		MusicianID: musicianID,
		AddedBy:    addedBy,
		CreatedAt:  s.now(),
	})
	if err != nil {
		return false, err
	}
	s.Monitor.TrackMembershipWrite(created)
	return created, nil
}

// AddMember adds a musician by hand. Adding an existing member is a no-op.
func (s *NetworkService) AddMember(ctx context.Context, caps *Capabilities, venueID, musicianID string) (bool, error) {
	venue, err := s.managedVenue(ctx, caps, venueID)
	if err != nil {
		return false, err
	}
	if musicianID == "" {
		return false, status.Invalid("musician_id is required")
	}
	if _, err := s.Store.GetMusician(ctx, musicianID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, status.Invalid("musician has no profile")
		}
		return false, status.Internal(err)
	}
	created, err := s.add(ctx, venue.ID, musicianID, caps.ActorID)
	if err != nil {
		return false, status.Internal(err)
	}
	return created, nil
}

// RemoveMember is open to the venue's managers and to the musician leaving.
func (s *NetworkService) RemoveMember(ctx context.Context, caps *Capabilities, venueID, musicianID string) error {
	if err := requireActor(caps); err != nil {
		return err
	}
	if caps.ActorID != musicianID {
		if _, err := s.managedVenue(ctx, caps, venueID); err != nil {
			return err
		}
	}
	if err := s.Store.RemoveNetworkMember(ctx, venueID, musicianID); err != nil {
		return storeErr(err, status.ErrMemberNotFound)
	}
	return nil
}

func (s *NetworkService) ListFor(ctx context.Context, caps *Capabilities, venueID string) ([]models.NetworkMembership, error) {
	venue, err := s.managedVenue(ctx, caps, venueID)
	if err != nil {
		return nil, err
	}
	members, err := s.Store.ListNetworkMembers(ctx, venue.ID)
	if err != nil {
		return nil, status.Internal(err)
	}
	return members, nil
}

// ListVenuesFor is the musician-side view of the registry.
func (s *NetworkService) ListVenuesFor(ctx context.Context, caps *Capabilities, musicianID string) ([]models.NetworkMembership, error) {
	if err := requireActor(caps); err != nil {
		return nil, err
	}
	if musicianID == "" {
		musicianID = caps.ActorID
	}
	if musicianID != caps.ActorID && !caps.IsAdmin {
		return nil, status.ErrNotSelf
	}
	memberships, err := s.Store.ListNetworksForMusician(ctx, musicianID)
	if err != nil {
		return nil, status.Internal(err)
	}
	return memberships, nil
}
