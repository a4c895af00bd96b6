package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"gig-booking/internal/status"
	"gig-booking/internal/store"
	"gig-booking/models"

	"github.com/shopspring/decimal"
)

type GigService struct {
	Deps
}

func NewGigService(deps Deps) *GigService {
	return &GigService{Deps: deps}
}

type SlotInput struct {
	Instruments []string         `json:"instruments"`
	InviteOnly  bool             `json:"invite_only"`
	Payment     *decimal.Decimal `json:"payment,omitempty"`
}

type CreateGigInput struct {
	VenueID  string      `json:"venue_id"`
	Title    string      `json:"title"`
	Location string      `json:"location"`
	StartsAt time.Time   `json:"starts_at"`
	EndsAt   time.Time   `json:"ends_at"`
	Slots    []SlotInput `json:"slots"`
}

// SlotPatch changes only the fields that are set.
type SlotPatch struct {
	Instruments  []string         `json:"instruments,omitempty"`
	InviteOnly   *bool            `json:"invite_only,omitempty"`
	Payment      *decimal.Decimal `json:"payment,omitempty"`
	ClearPayment bool             `json:"clear_payment,omitempty"`
}

func validatePayment(p *decimal.Decimal) error {
	if p != nil && p.IsNegative() {
		return status.Invalid("payment must not be negative")
	}
	return nil
}

func (in CreateGigInput) validate() ([]models.Slot, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, status.Invalid("title is required")
	}
	if !in.StartsAt.IsZero() && !in.EndsAt.IsZero() && in.EndsAt.Before(in.StartsAt) {
		return nil, status.Invalid("ends_at must not be before starts_at")
	}
	if len(in.Slots) == 0 {
		return nil, status.Invalid("a gig needs at least one slot")
	}

	slots := make([]models.Slot, 0, len(in.Slots))
	for i, si := range in.Slots {
		instruments := models.NormalizeInstruments(si.Instruments)
		if len(instruments) == 0 {
			return nil, status.Invalid("every slot needs at least one instrument")
		}
		if err := validatePayment(si.Payment); err != nil {
			return nil, err
		}
		slots = append(slots, models.Slot{
			Position:    i,
			Instruments: instruments,
			InviteOnly:  si.InviteOnly,
			Payment:     si.Payment,
		})
	}
	return slots, nil
}

func (s *GigService) Create(ctx context.Context, caps *Capabilities, in CreateGigInput) (*models.Gig, error) {
	if err := requireActor(caps); err != nil {
		return nil, err
	}
	slots, err := in.validate()
	if err != nil {
		return nil, err
	}
	if in.VenueID != "" {
		if _, err := s.Store.GetVenue(ctx, in.VenueID); err != nil {
			return nil, storeErr(err, status.ErrVenueNotFound)
		}
		if !caps.ManagesVenue(in.VenueID) {
			return nil, status.ErrNotVenueManager
		}
	}

	gig := &models.Gig{
		OwnerID:  caps.ActorID,
		VenueID:  in.VenueID,
		Title:    strings.TrimSpace(in.Title),
		Location: strings.TrimSpace(in.Location),
		StartsAt: in.StartsAt,
		EndsAt:   in.EndsAt,
		Status:   models.GigStatusOpen,
		Slots:    slots,
	}
	if err := s.Store.CreateGig(ctx, gig); err != nil {
		return nil, status.Internal(err)
	}
	return gig, nil
}

// Get returns the gig with its slots. An open gig whose slots are all filled
// is repaired to filled here, in case the write after an acceptance failed.
func (s *GigService) Get(ctx context.Context, gigID string) (*models.Gig, error) {
	gig, err := s.Store.GetGig(ctx, gigID)
	if err != nil {
		return nil, storeErr(err, status.ErrGigNotFound)
	}
	if gig.Status != models.GigStatusOpen {
		return gig, nil
	}
	next, err := filledStatus(ctx, s.Store, gig)
	if err != nil {
		return nil, status.Internal(err)
	}
	if next != gig.Status {
		if err := s.Store.UpdateGigStatus(ctx, gig.ID, next); err != nil {
			slog.Warn("failed to repair gig status", "error", err, "gig_id", gig.ID)
		}
		gig.Status = next
	}
	return gig, nil
}

func (s *GigService) ownedGig(ctx context.Context, caps *Capabilities, gigID string) (*models.Gig, error) {
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

// UpdateSlot edits a slot's requirements. Once any application on the slot
// is accepted the slot is frozen.
func (s *GigService) UpdateSlot(ctx context.Context, caps *Capabilities, gigID, slotID string, patch SlotPatch) (*models.Slot, error) {
	gig, err := s.ownedGig(ctx, caps, gigID)
	if err != nil {
		return nil, err
	}
	if gig.Status == models.GigStatusCancelled {
		return nil, status.ErrGigNotOpen
	}
	slot, ok := gig.SlotByID(slotID)
	if !ok {
		return nil, status.ErrSlotNotFound
	}

	apps, err := s.Store.ListApplicationsBySlot(ctx, slot.ID)
	if err != nil {
		return nil, status.Internal(err)
	}
	for _, a := range apps {
		if a.Status == models.ApplicationAccepted {
			return nil, status.ErrSlotLocked
		}
	}

	updated := *slot
	if patch.Instruments != nil {
		instruments := models.NormalizeInstruments(patch.Instruments)
		if len(instruments) == 0 {
			return nil, status.Invalid("every slot needs at least one instrument")
		}
		updated.Instruments = instruments
	}
	if patch.InviteOnly != nil {
		updated.InviteOnly = *patch.InviteOnly
	}
	if patch.ClearPayment {
		updated.Payment = nil
	} else if patch.Payment != nil {
		if err := validatePayment(patch.Payment); err != nil {
			return nil, err
		}
		updated.Payment = patch.Payment
	}

	// an accept may land after the check above; the store re-checks atomically
	if err := s.Store.UpdateSlot(ctx, &updated); err != nil {
		if errors.Is(err, store.ErrSlotFilled) {
			return nil, status.ErrSlotLocked
		}
		return nil, storeErr(err, status.ErrSlotNotFound)
	}
	return &updated, nil
}

func (s *GigService) Cancel(ctx context.Context, caps *Capabilities, gigID string) (*models.Gig, error) {
	gig, err := s.ownedGig(ctx, caps, gigID)
	if err != nil {
		return nil, err
	}
	if gig.Status == models.GigStatusCancelled {
		return gig, nil
	}
	if err := s.Store.UpdateGigStatus(ctx, gig.ID, models.GigStatusCancelled); err != nil {
		return nil, storeErr(err, status.ErrGigNotFound)
	}
	gig.Status = models.GigStatusCancelled
	return gig, nil
}

func (s *GigService) Delete(ctx context.Context, caps *Capabilities, gigID string) error {
	gig, err := s.ownedGig(ctx, caps, gigID)
	if err != nil {
		return err
	}
	if err := s.Store.DeleteGig(ctx, gig.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return status.ErrGigNotFound
		}
		return status.Internal(err)
	}
	return nil
}
