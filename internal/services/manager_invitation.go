package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"gig-booking/internal/status"
	"gig-booking/internal/store"
	"gig-booking/models"
	"gig-booking/monitoring"
)

type CreateManagerInvitationInput struct {
	Email   string `json:"email"`
	TTLDays int    `json:"ttl_days,omitempty"`
}

type AcceptManagerInvitationResult struct {
	VenueID        string `json:"venue_id"`
	InvitationID   string `json:"invitation_id"`
	RoleCreated    bool   `json:"role_created"`
	AlreadyManager bool   `json:"already_manager"`
}

func (s *InvitationService) CreateManagerInvitation(ctx context.Context, caps *Capabilities, venueID string, in CreateManagerInvitationInput) (out *models.VenueManagerInvitation, err error) {
	defer func() { s.Monitor.TrackInvitation("manager", "create", monitoring.StatusLabel(err, status.CodeOf)) }()

	venue, err := s.managedVenue(ctx, caps, venueID)
	if err != nil {
		return nil, err
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil {
		return nil, status.Invalid("a valid email address is required")
	}
	ttl := in.TTLDays
	if ttl <= 0 {
		ttl = s.cfg.ManagerTTLDays
	}

	now := s.now()
	inv := &models.VenueManagerInvitation{
		VenueID:   venue.ID,
		Email:     addr.Address,
		CreatedBy: caps.ActorID,
		Status:    models.InvitationPending,
		ExpiresAt: now.AddDate(0, 0, ttl),
		CreatedAt: now,
	}
	_, err = s.uniqueCode(ctx, s.Store.ManagerInvitationCodeExists, func(code string) error {
		inv.ID = ""
		inv.Code = code
		return s.Store.InsertManagerInvitation(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.Notifier.ManagerInvitationCreated(venue, inv)
	return inv, nil
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// AcceptManagerInvitation grants the venue manager role. The caller's
// verified email must match the invited address; being a manager already is
// reported, not rejected.
func (s *InvitationService) AcceptManagerInvitation(ctx context.Context, caps *Capabilities, code string) (res *AcceptManagerInvitationResult, err error) {
	defer func() { s.Monitor.TrackInvitation("manager", "accept", monitoring.StatusLabel(err, status.CodeOf)) }()

	if err := requireActor(caps); err != nil {
		return nil, err
	}
	inv, err := s.Store.GetManagerInvitationByCode(ctx, NormalizeCode(code))
	if err != nil {
		return nil, storeErr(err, status.ErrInvitationNotFound)
	}
	now := s.now()
	if inv.IsExpired(now) {
		return nil, status.ErrInvitationExpired
	}
	if inv.Status != models.InvitationPending {
		return nil, status.ErrInvitationAlreadyAccepted
	}
	if !caps.EmailVerified {
		return nil, status.ErrEmailNotVerified
	}
	if !sameEmail(caps.Email, inv.Email) {
		return nil, status.ErrWrongAccount
	}

	if err := s.Store.MarkManagerInvitationAccepted(ctx, inv.ID, caps.ActorID, now); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, status.ErrInvitationAlreadyAccepted
		}
		return nil, storeErr(err, status.ErrInvitationNotFound)
	}

	created, err := s.Store.AddVenueManager(ctx, models.VenueManager{
		VenueID:   inv.VenueID,
		UserID:    caps.ActorID,
		GrantedBy: inv.CreatedBy,
		CreatedAt: now,
	})
	if err != nil {
		if revertErr := s.Store.RevertManagerInvitation(ctx, inv.ID, caps.ActorID); revertErr != nil {
			slog.Error("failed to revert manager invitation acceptance",
				"error", revertErr, "invitation_id", inv.ID, "user_id", caps.ActorID)
		}
		return nil, status.Internal(fmt.Errorf("grant venue manager: %w", err))
	}
	s.Monitor.TrackMembershipWrite(created)

	return &AcceptManagerInvitationResult{
		VenueID:        inv.VenueID,
		InvitationID:   inv.ID,
		RoleCreated:    created,
		AlreadyManager: !created,
	}, nil
}
