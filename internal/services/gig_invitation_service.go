package services

import (
	"context"
	"errors"

	"gig-booking/internal/status"
	"gig-booking/internal/store"
	"gig-booking/models"
)

// GigInvitationService manages the grants that open invite-only slots to a
// specific musician for a specific instrument.
type GigInvitationService struct {
	Deps
}

func NewGigInvitationService(deps Deps) *GigInvitationService {
	return &GigInvitationService{Deps: deps}
}

type GigInvitationInput struct {
	Instrument string `json:"instrument"`
	MusicianID string `json:"musician_id"`
}

func (s *GigInvitationService) ownedGig(ctx context.Context, caps *Capabilities, gigID string) (*models.Gig, error) {
	if err := requireActor(caps); err != nil {
		return nil, err
	}
	gig, err := s.Store.GetGig(ctx, gigID)
	if err != nil {
		return nil, storeErr(err, status.ErrGigNotFound)
	}
	if !caps.CanDecide(gig) {
		return nil, status.ErrNotGigOwner
	}
	return gig, nil
}

// Invite is idempotent: inviting the same musician twice for the same
// instrument returns the existing grant with created=false.
func (s *GigInvitationService) Invite(ctx context.Context, caps *Capabilities, gigID string, in GigInvitationInput) (*models.GigInvitation, bool, error) {
	gig, err := s.ownedGig(ctx, caps, gigID)
	if err != nil {
		return nil, false, err
	}
	instrument := models.NormalizeInstrument(in.Instrument)
	if instrument == "" || in.MusicianID == "" {
		return nil, false, status.Invalid("instrument and musician_id are required")
	}
	if !gig.RequiresInstrument(instrument) {
		return nil, false, status.ErrInstrumentNotInSlot
	}
	if _, err := s.Store.GetMusician(ctx, in.MusicianID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, false, status.Invalid("musician has no profile")
		}
		return nil, false, status.Internal(err)
	}

	existing, err := s.Store.FindGigInvitation(ctx, gig.ID, instrument, in.MusicianID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, status.Internal(err)
	}

	inv := &models.GigInvitation{
		GigID:      gig.ID,
		Instrument: instrument,
		MusicianID: in.MusicianID,
		InvitedBy:  caps.ActorID,
		CreatedAt:  s.now(),
	}
	if err := s.Store.InsertGigInvitation(ctx, inv); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			existing, findErr := s.Store.FindGigInvitation(ctx, gig.ID, instrument, in.MusicianID)
			if findErr != nil {
				return nil, false, status.Internal(findErr)
			}
			return existing, false, nil
		}
		return nil, false, status.Internal(err)
	}

	s.Notifier.GigInvitationGranted(inv)
	return inv, true, nil
}

func (s *GigInvitationService) Revoke(ctx context.Context, caps *Capabilities, gigID, invitationID string) error {
	gig, err := s.ownedGig(ctx, caps, gigID)
	if err != nil {
		return err
	}
	inv, err := s.Store.GetGigInvitation(ctx, invitationID)
	if err != nil {
		return storeErr(err, status.ErrInvitationNotFound)
	}
	if inv.GigID != gig.ID {
		return status.ErrInvitationNotFound
	}
	if err := s.Store.DeleteGigInvitation(ctx, inv.ID); err != nil {
		return storeErr(err, status.ErrInvitationNotFound)
	}
	return nil
}

func (s *GigInvitationService) ListForGig(ctx context.Context, caps *Capabilities, gigID string) ([]models.GigInvitation, error) {
	gig, err := s.ownedGig(ctx, caps, gigID)
	if err != nil {
		return nil, err
	}
	invs, err := s.Store.ListGigInvitationsByGig(ctx, gig.ID)
	if err != nil {
		return nil, status.Internal(err)
	}
	return invs, nil
}

func (s *GigInvitationService) ListMine(ctx context.Context, caps *Capabilities) ([]models.GigInvitation, error) {
	if err := requireActor(caps); err != nil {
		return nil, err
	}
	invs, err := s.Store.ListGigInvitationsByMusician(ctx, caps.ActorID)
	if err != nil {
		return nil, status.Internal(err)
	}
	return invs, nil
}
