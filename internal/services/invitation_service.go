package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gig-booking/internal/status"
	"gig-booking/internal/store"
	"gig-booking/models"
	"gig-booking/monitoring"
	"gig-booking/utils"
)

const (
	DefaultInvitationTTLDays        = 30
	DefaultManagerInvitationTTLDays = 7
	DefaultCodeAttempts             = 10
)

type InvitationConfig struct {
	TTLDays        int
	ManagerTTLDays int
	CodeAttempts   int
}

func (c InvitationConfig) withDefaults() InvitationConfig {
	if c.TTLDays <= 0 {
		c.TTLDays = DefaultInvitationTTLDays
	}
	if c.ManagerTTLDays <= 0 {
		c.ManagerTTLDays = DefaultManagerInvitationTTLDays
	}
	if c.CodeAttempts <= 0 {
		c.CodeAttempts = DefaultCodeAttempts
	}
	return c
}

// InvitationService implements the venue network invitation protocol and the
// venue manager variant.
type InvitationService struct {
	Deps
	network  *NetworkService
	cfg      InvitationConfig
	generate func() (string, error)
}

func NewInvitationService(deps Deps, network *NetworkService, cfg InvitationConfig) *InvitationService {
	return &InvitationService{
		Deps:     deps,
		network:  network,
		cfg:      cfg.withDefaults(),
		generate: utils.GenerateInviteCode,
	}
}

type CreateInvitationInput struct {
	Prefill models.ContactFields `json:"prefill"`
	TTLDays int                  `json:"ttl_days,omitempty"`
}

type CreatedInvitation struct {
	Invitation   models.VenueInvitation `json:"invitation"`
	URL          string                 `json:"url"`
	WhatsAppLink string                 `json:"whatsapp_link,omitempty"`
}

type InvitationPreview struct {
	Code      string                  `json:"code"`
	VenueID   string                  `json:"venue_id"`
	VenueName string                  `json:"venue_name"`
	Prefill   models.ContactFields    `json:"prefill"`
	Status    models.InvitationStatus `json:"status"`
	ExpiresAt time.Time               `json:"expires_at"`
}

type AcceptInvitationResult struct {
	VenueID           string `json:"venue_id"`
	InvitationID      string `json:"invitation_id"`
	MembershipCreated bool   `json:"membership_created"`
	AlreadyMember     bool   `json:"already_member"`
	ProfileCreated    bool   `json:"profile_created"`
}

// NormalizeCode upper-cases and strips separators typed by humans.
func NormalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.NewReplacer("-", "", " ", "").Replace(code)
}

func (s *InvitationService) managedVenue(ctx context.Context, caps *Capabilities, venueID string) (*models.Venue, error) {
	return s.network.managedVenue(ctx, caps, venueID)
}

// uniqueCode draws codes until one is unused. A code taken between the check
// and the insert is retried by the caller through the same budget.
func (s *InvitationService) uniqueCode(ctx context.Context, exists func(context.Context, string) (bool, error), insert func(code string) error) (string, error) {
	for attempt := 0; attempt < s.cfg.CodeAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return "", status.Internal(fmt.Errorf("generate invitation code: %w", err))
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", status.Internal(err)
		}
		if taken {
			continue
		}
		err = insert(code)
		if errors.Is(err, store.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return "", status.Internal(err)
		}
		return code, nil
	}
	return "", status.ErrCodeGenerationFailed
}

func (s *InvitationService) Create(ctx context.Context, caps *Capabilities, venueID string, in CreateInvitationInput) (out *CreatedInvitation, err error) {
	defer func() { s.Monitor.TrackInvitation("venue", "create", monitoring.StatusLabel(err, status.CodeOf)) }()

	venue, err := s.managedVenue(ctx, caps, venueID)
	if err != nil {
		return nil, err
	}
	ttl := in.TTLDays
	if ttl <= 0 {
		ttl = s.cfg.TTLDays
	}
	prefill := in.Prefill
	if prefill.Instruments != nil {
		prefill.Instruments = models.NormalizeInstruments(prefill.Instruments)
	}

	now := s.now()
	inv := &models.VenueInvitation{
		VenueID:   venue.ID,
		CreatedBy: caps.ActorID,
		Prefill:   prefill,
		Status:    models.InvitationPending,
		ExpiresAt: now.AddDate(0, 0, ttl),
		CreatedAt: now,
	}
	_, err = s.uniqueCode(ctx, s.Store.VenueInvitationCodeExists, func(code string) error {
		inv.ID = ""
		inv.Code = code
		return s.Store.InsertVenueInvitation(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	out = &CreatedInvitation{Invitation: *inv, URL: s.Notifier.InvitationURL(inv.Code)}
	if prefill.Phone != nil {
		text := fmt.Sprintf("%s invited you to their musician network. Use code %s", venue.Name, inv.Code)
		if out.URL != "" {
			text += ": " + out.URL
		}
		out.WhatsAppLink = utils.BuildWhatsAppLink(*prefill.Phone, text)
	}
	s.Notifier.VenueInvitationCreated(venue, inv)
	return out, nil
}

// Preview is public: anyone holding the code may see what it grants.
func (s *InvitationService) Preview(ctx context.Context, code string) (*InvitationPreview, error) {
	inv, err := s.Store.GetVenueInvitationByCode(ctx, NormalizeCode(code))
	if err != nil {
		return nil, storeErr(err, status.ErrInvitationNotFound)
	}
	preview := &InvitationPreview{
		Code:      inv.Code,
		VenueID:   inv.VenueID,
		Prefill:   inv.Prefill,
		Status:    inv.EffectiveStatus(s.now()),
		ExpiresAt: inv.ExpiresAt,
	}
	if venue, err := s.Store.GetVenue(ctx, inv.VenueID); err == nil {
		preview.VenueName = venue.Name
	}
	return preview, nil
}

func (s *InvitationService) List(ctx context.Context, caps *Capabilities, venueID string) ([]models.VenueInvitation, error) {
	venue, err := s.managedVenue(ctx, caps, venueID)
	if err != nil {
		return nil, err
	}
	invs, err := s.Store.ListVenueInvitations(ctx, venue.ID)
	if err != nil {
		return nil, status.Internal(err)
	}
	now := s.now()
	for i := range invs {
		invs[i].Status = invs[i].EffectiveStatus(now)
	}
	return invs, nil
}

// Accept redeems a venue invitation code:
//  1. look up the code (NotFound, Expired, AlreadyAccepted)
//  2. create or merge the musician profile
//  3. mark the invitation accepted with a conditional write
//  4. upsert the network membership; any failure reverts step 3
//  5. read the membership back as a diagnostic
func (s *InvitationService) Accept(ctx context.Context, caps *Capabilities, code string, overrides models.ContactFields) (res *AcceptInvitationResult, err error) {
	defer func() { s.Monitor.TrackInvitation("venue", "accept", monitoring.StatusLabel(err, status.CodeOf)) }()

	if err := requireActor(caps); err != nil {
		return nil, err
	}
	inv, err := s.Store.GetVenueInvitationByCode(ctx, NormalizeCode(code))
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

	profileCreated, err := s.ensureProfile(ctx, caps, inv.Prefill, overrides)
	if err != nil {
		return nil, err
	}

	var audit *models.ContactFields
	if !overrides.IsEmpty() {
		audit = &overrides
	}
	if err := s.Store.MarkVenueInvitationAccepted(ctx, inv.ID, caps.ActorID, now, audit); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, status.ErrInvitationAlreadyAccepted
		}
		return nil, storeErr(err, status.ErrInvitationNotFound)
	}

	created, err := s.network.add(ctx, inv.VenueID, caps.ActorID, inv.CreatedBy)
	if err != nil {
		s.revertAcceptance(ctx, inv.ID, caps.ActorID)
		return nil, status.Internal(fmt.Errorf("register network membership: %w", err))
	}

	if ok, err := s.Store.NetworkMemberExists(ctx, inv.VenueID, caps.ActorID); err != nil || !ok {
		slog.Warn("network membership not visible after acceptance",
			"error", err, "venue_id", inv.VenueID, "musician_id", caps.ActorID, "invitation_id", inv.ID)
	}

	return &AcceptInvitationResult{
		VenueID:           inv.VenueID,
		InvitationID:      inv.ID,
		MembershipCreated: created,
		AlreadyMember:     !created,
		ProfileCreated:    profileCreated,
	}, nil
}

// revertAcceptance is the compensating step for a failed membership write: it
// puts the invitation back to pending so the code stays usable.
func (s *InvitationService) revertAcceptance(ctx context.Context, invitationID, actorID string) {
	if err := s.Store.RevertVenueInvitation(ctx, invitationID, actorID); err != nil {
		slog.Error("failed to revert invitation acceptance",
			"error", err, "invitation_id", invitationID, "musician_id", actorID)
	}
}

// ensureProfile creates the musician profile from overrides, then the
// invitation's prefill, then the actor's identity; an existing profile only
// takes the fields explicitly overridden.
func (s *InvitationService) ensureProfile(ctx context.Context, caps *Capabilities, prefill, overrides models.ContactFields) (bool, error) {
	existing, err := s.Store.GetMusician(ctx, caps.ActorID)
	if err == nil {
		if existing.Merge(overrides) {
			if err := s.Store.SaveMusician(ctx, existing); err != nil {
				return false, status.Internal(err)
			}
		}
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, status.Internal(err)
	}

	identity := models.ContactFields{Name: strPtr(caps.Name), Email: strPtr(caps.Email)}
	if user, err := s.Store.GetUser(ctx, caps.ActorID); err == nil {
		if identity.Name == nil {
			identity.Name = strPtr(user.Name)
		}
		if identity.Email == nil {
			identity.Email = strPtr(user.Email)
		}
		identity.Phone = strPtr(user.Phone)
	}

	fields := overrides.Or(prefill).Or(identity)
	musician := &models.Musician{UserID: caps.ActorID, Instruments: []string{}}
	musician.Merge(fields)
	if err := s.Store.SaveMusician(ctx, musician); err != nil {
		return false, status.Internal(err)
	}
	return true, nil
}
