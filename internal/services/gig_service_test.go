package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gig-booking/internal/status"
	"gig-booking/internal/store"
	"gig-booking/internal/store/memstore"
	"gig-booking/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGigService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner", "owner@example.com", models.RoleVenue)
	svc := NewGigService(f.deps)
	negative := decimal.NewFromInt(-5)

	tests := []struct {
		name string
		in   CreateGigInput
	}{
		{"missing title", CreateGigInput{Title: "  ", Slots: []SlotInput{{Instruments: []string{"Bass"}}}}},
		{"no slots", CreateGigInput{Title: "Jam"}},
		{"slot without instruments", CreateGigInput{Title: "Jam", Slots: []SlotInput{{Instruments: []string{" "}}}}},
		{"negative payment", CreateGigInput{Title: "Jam", Slots: []SlotInput{{Instruments: []string{"Bass"}, Payment: &negative}}}},
		{"ends before start", CreateGigInput{
			Title:    "Jam",
			StartsAt: testNow.Add(2 * time.Hour),
			EndsAt:   testNow,
			Slots:    []SlotInput{{Instruments: []string{"Bass"}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, owner, tt.in)
			assertCode(t, err, status.ErrInvalidInput)
		})
	}

	_, err := svc.Create(ctx, nil, CreateGigInput{Title: "Jam"})
	assertCode(t, err, status.ErrUnauthenticated)
}

func TestGigService_CreateNormalizesSlots(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner", "owner@example.com", models.RoleVenue)
	fee := decimal.RequireFromString("150.50")

	gig := f.gig(owner,
		SlotInput{Instruments: []string{" Drums ", "drums", "Vocals"}, Payment: &fee},
		SlotInput{Instruments: []string{"Bass"}, InviteOnly: true},
	)

	assert.Equal(t, models.GigStatusOpen, gig.Status)
	assert.Equal(t, "owner", gig.OwnerID)
	require.Len(t, gig.Slots, 2)
	assert.Equal(t, []string{"Drums", "Vocals"}, gig.Slots[0].Instruments)
	assert.True(t, gig.Slots[0].Payment.Equal(fee))
	assert.Equal(t, 1, gig.Slots[1].Position)
	assert.True(t, gig.Slots[1].InviteOnly)
	assert.Nil(t, gig.Slots[1].Payment)
}

func TestGigService_CreateForVenueRequiresManager(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manager := f.venue("v1", "The Blue Room", "boss")
	outsider := f.user("outsider", "outsider@example.com", models.RoleVenue)
	svc := NewGigService(f.deps)
	in := CreateGigInput{VenueID: "v1", Title: "Jam", Slots: []SlotInput{{Instruments: []string{"Bass"}}}}

	_, err := svc.Create(ctx, outsider, in)
	assertCode(t, err, status.ErrNotVenueManager)

	in.VenueID = "missing"
	_, err = svc.Create(ctx, manager, in)
	assertCode(t, err, status.ErrVenueNotFound)

	in.VenueID = "v1"
	gig, err := svc.Create(ctx, manager, in)
	require.NoError(t, err)
	assert.Equal(t, "v1", gig.VenueID)
}

func TestGigService_UpdateSlotLockedAfterAcceptance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner", "owner@example.com", models.RoleVenue)
	m := f.musician("m", "Bass")
	gig := f.gig(owner, SlotInput{Instruments: []string{"Bass"}})
	slotID := gig.Slots[0].ID
	svc := NewGigService(f.deps)

	inviteOnly := true
	fee := decimal.NewFromInt(80)
	slot, err := svc.UpdateSlot(ctx, owner, gig.ID, slotID, SlotPatch{
		Instruments: []string{"Bass", "Double Bass"},
		InviteOnly:  &inviteOnly,
		Payment:     &fee,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bass", "Double Bass"}, slot.Instruments)
	assert.True(t, slot.InviteOnly)

	slot, err = svc.UpdateSlot(ctx, owner, gig.ID, slotID, SlotPatch{ClearPayment: true})
	require.NoError(t, err)
	assert.Nil(t, slot.Payment)
	assert.True(t, slot.InviteOnly)

	_, err = svc.UpdateSlot(ctx, m, gig.ID, slotID, SlotPatch{InviteOnly: &inviteOnly})
	assertCode(t, err, status.ErrNotGigOwner)

	_, err = svc.UpdateSlot(ctx, owner, gig.ID, "nope", SlotPatch{})
	assertCode(t, err, status.ErrSlotNotFound)

	off := false
	_, err = svc.UpdateSlot(ctx, owner, gig.ID, slotID, SlotPatch{InviteOnly: &off})
	require.NoError(t, err)

	apps := NewApplicationService(f.deps, nil)
	app, err := apps.Submit(ctx, m, SubmitApplicationInput{GigID: gig.ID, SlotID: slotID, Instrument: "bass"})
	require.NoError(t, err)
	_, err = apps.Accept(ctx, owner, gig.ID, app.ID)
	require.NoError(t, err)

	_, err = svc.UpdateSlot(ctx, owner, gig.ID, slotID, SlotPatch{Instruments: []string{"Tuba"}})
	assertCode(t, err, status.ErrSlotLocked)
}

func TestGigService_CancelBlocksSubmissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner", "owner@example.com", models.RoleVenue)
	m := f.musician("m", "Bass")
	gig := f.gig(owner, SlotInput{Instruments: []string{"Bass"}})
	svc := NewGigService(f.deps)

	cancelled, err := svc.Cancel(ctx, owner, gig.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GigStatusCancelled, cancelled.Status)

	again, err := svc.Cancel(ctx, owner, gig.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GigStatusCancelled, again.Status)

	_, err = NewApplicationService(f.deps, nil).Submit(ctx, m, SubmitApplicationInput{
		GigID: gig.ID, SlotID: gig.Slots[0].ID, Instrument: "Bass",
	})
	assertCode(t, err, status.ErrGigNotOpen)

	_, err = svc.UpdateSlot(ctx, owner, gig.ID, gig.Slots[0].ID, SlotPatch{})
	assertCode(t, err, status.ErrGigNotOpen)
}

func TestGigService_DeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner", "owner@example.com", models.RoleVenue)
	m := f.musician("m", "Bass")
	gig := f.gig(owner, SlotInput{Instruments: []string{"Bass"}})
	svc := NewGigService(f.deps)

	app, err := NewApplicationService(f.deps, nil).Submit(ctx, m, SubmitApplicationInput{
		GigID: gig.ID, SlotID: gig.Slots[0].ID, Instrument: "Bass",
	})
	require.NoError(t, err)

	err = svc.Delete(ctx, m, gig.ID)
	assertCode(t, err, status.ErrNotGigOwner)

	require.NoError(t, svc.Delete(ctx, owner, gig.ID))

	_, err = svc.Get(ctx, gig.ID)
	assertCode(t, err, status.ErrGigNotFound)
	_, err = f.store.GetApplication(ctx, app.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestGigService_GetRepairsFilledStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner", "owner@example.com", models.RoleVenue)
	m := f.musician("m", "Bass")
	gig := f.gig(owner, SlotInput{Instruments: []string{"Bass"}})

	apps := NewApplicationService(f.deps, nil)
	app, err := apps.Submit(ctx, m, SubmitApplicationInput{GigID: gig.ID, SlotID: gig.Slots[0].ID, Instrument: "Bass"})
	require.NoError(t, err)
	d, err := apps.Accept(ctx, owner, gig.ID, app.ID)
	require.NoError(t, err)
	require.Equal(t, models.GigStatusFilled, d.GigStatus)

	// simulate the status write after acceptance having failed
	require.NoError(t, f.store.UpdateGigStatus(ctx, gig.ID, models.GigStatusOpen))

	got, err := NewGigService(f.deps).Get(ctx, gig.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GigStatusFilled, got.Status)

	stored, err := f.store.GetGig(ctx, gig.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GigStatusFilled, stored.Status)
}

// acceptDuringCheck lets an accept land right after UpdateSlot has read the
// slot's applications.
type acceptDuringCheck struct {
	*memstore.Memory
	accept func()
}

func (s *acceptDuringCheck) ListApplicationsBySlot(ctx context.Context, slotID string) ([]models.Application, error) {
	apps, err := s.Memory.ListApplicationsBySlot(ctx, slotID)
	if s.accept != nil {
		s.accept()
		s.accept = nil
	}
	return apps, err
}

func TestGigService_UpdateSlotRacingAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner", "owner@example.com", models.RoleVenue)
	m := f.musician("m", "Bass")
	gig := f.gig(owner, SlotInput{Instruments: []string{"Bass"}})
	slotID := gig.Slots[0].ID

	app, err := NewApplicationService(f.deps, nil).Submit(ctx, m, SubmitApplicationInput{GigID: gig.ID, SlotID: slotID, Instrument: "Bass"})
	require.NoError(t, err)

	racing := &acceptDuringCheck{Memory: f.store}
	racing.accept = func() {
		_, err := f.store.AcceptApplication(ctx, app.ID, f.now)
		require.NoError(t, err)
	}
	deps := f.deps
	deps.Store = racing

	_, err = NewGigService(deps).UpdateSlot(ctx, owner, gig.ID, slotID, SlotPatch{Instruments: []string{"Tuba"}})
	assertCode(t, err, status.ErrSlotLocked)

	stored, err := f.store.GetGig(ctx, gig.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bass"}, stored.Slots[0].Instruments)
}
