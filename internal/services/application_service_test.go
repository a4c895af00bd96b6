package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gig-booking/internal/status"
	"gig-booking/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countAccepted(t *testing.T, f *fixture, slotID string) int {
	t.Helper()
	apps, err := f.store.ListApplicationsBySlot(context.Background(), slotID)
	require.NoError(t, err)
	n := 0
	for _, a := range apps {
		if a.Status == models.ApplicationAccepted {
			n++
		}
	}
	return n
}

func TestApplication_EndToEnd_SingleSlotFills(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner", "owner@example.com", models.RoleVenue)
	m := f.musician("m", "Alto Sax")
	n := f.musician("n", "alto sax")
	gig := f.gig(owner, SlotInput{Instruments: []string{"Alto Sax"}})
	svc := NewApplicationService(f.deps, nil)

	app, err := svc.Submit(ctx, m, SubmitApplicationInput{GigID: gig.ID, SlotID: gig.Slots[0].ID, Instrument: "Alto Sax"})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPending, app.Status)

	decision, err := svc.Accept(ctx, owner, gig.ID, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationAccepted, decision.Application.Status)
	assert.Equal(t, models.GigStatusFilled, decision.GigStatus)

	stored, err := f.store.GetGig(ctx, gig.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GigStatusFilled, stored.Status)

	_, err = svc.Submit(ctx, n, SubmitApplicationInput{GigID: gig.ID, SlotID: gig.Slots[0].ID, Instrument: "Alto Sax"})
	assertCode(t, err, status.ErrSlotAlreadyFilled)
}

func TestApplication_AcceptCascadesRejection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner", "owner@example.com", models.RoleVenue)
	gig := f.gig(owner, SlotInput{Instruments: []string{"Drums"}})
	svc := NewApplicationService(f.deps, nil)

	var ids []string
	for _, name := range []string{"a", "b", "c"} {
		caps := f.musician(name, "Drums")
		app, err := svc.Submit(ctx, caps, SubmitApplicationInput{GigID: gig.ID, SlotID: gig.Slots[0].ID, Instrument: "drums"})
		require.NoError(t, err)
		ids = append(ids, app.ID)
	}

	// the last submission wins: order carries no priority
	decision, err := svc.Accept(ctx, owner, gig.ID, ids[2])
	require.NoError(t, err)
	assert.ElementsMatch(t, ids[:2], decision.Rejected)

	for i, id := range ids {
		app, err := f.store.GetApplication(ctx, id)
		require.NoError(t, err)
		if i == 2 {
			assert.Equal(t, models.ApplicationAccepted, app.Status)
		} else {
			assert.Equal(t, models.ApplicationRejected, app.Status)
			assert.NotNil(t, app.DecidedAt)
		}
	}
	assert.Equal(t, 1, countAccepted(t, f, gig.Slots[0].ID))
}

func TestApplication_ConcurrentAcceptsOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner", "owner@example.com", models.RoleVenue)
	gig := f.gig(owner, SlotInput{Instruments: []string{"Bass"}})
	svc := NewApplicationService(f.deps, nil)

	var ids []string
	for _, name := range []string{"a", "b"} {
		caps := f.musician(name, "Bass")
		app, err := svc.Submit(ctx, caps, SubmitApplicationInput{GigID: gig.ID, SlotID: gig.Slots[0].ID, Instrument: "Bass"})
		require.NoError(t, err)
		ids = append(ids, app.ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = svc.Accept(ctx, owner, gig.ID, id)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assertCode(t, err, status.ErrSlotAlreadyFilled)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, countAccepted(t, f, gig.Slots[0].ID))
}

func TestApplication_InviteOnlyRequiresGigInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner", "owner@example.com", models.RoleVenue)
	m := f.musician("m", "Trumpet")
	gig := f.gig(owner, SlotInput{Instruments: []string{"Trumpet"}, InviteOnly: true})
	svc := NewApplicationService(f.deps, nil)
	in := SubmitApplicationInput{GigID: gig.ID, SlotID: gig.Slots[0].ID, Instrument: "Trumpet"}

	_, err := svc.Submit(ctx, m, in)
	assertCode(t, err, status.ErrMissingGigInvitation)
	assert.Equal(t, status.KindValidation, status.KindOf(err))

	// instrument mismatch does not change the answer
	_, err = svc.Submit(ctx, m, SubmitApplicationInput{GigID: gig.ID, SlotID: gig.Slots[0].ID, Instrument: "Tuba"})
	assert.Equal(t, status.KindValidation, status.KindOf(err))

	_, _, err = NewGigInvitationService(f.deps).Invite(ctx, owner, gig.ID, GigInvitationInput{Instrument: "trumpet", MusicianID: "m"})
	require.NoError(t, err)

	app, err := svc.Submit(ctx, m, in)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPending, app.Status)
}

func TestApplication_SubmitEligibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner", "owner@example.com", models.RoleVenue)
	gig := f.gig(owner, SlotInput{Instruments: []string{"Piano", "Vocals"}})
	svc := NewApplicationService(f.deps, nil)
	slotID := gig.Slots[0].ID

	noProfile := f.user("ghost", "ghost@example.com", models.RoleMusician)
	_, err := svc.Submit(ctx, noProfile, SubmitApplicationInput{GigID: gig.ID, SlotID: slotID, Instrument: "Piano"})
	assertCode(t, err, status.ErrNotEligible)

	guitarist := f.musician("g", "Guitar")
	_, err = svc.Submit(ctx, guitarist, SubmitApplicationInput{GigID: gig.ID, SlotID: slotID, Instrument: "Piano"})
	assertCode(t, err, status.ErrNotEligible)

	_, err = svc.Submit(ctx, guitarist, SubmitApplicationInput{GigID: gig.ID, SlotID: slotID, Instrument: "Guitar"})
	assertCode(t, err, status.ErrInstrumentNotInSlot)

	_, err = svc.Submit(ctx, guitarist, SubmitApplicationInput{GigID: gig.ID, SlotID: "missing", Instrument: "Guitar"})
	assertCode(t, err, status.ErrSlotNotFound)

	_, err = svc.Submit(ctx, guitarist, SubmitApplicationInput{GigID: "missing", SlotID: slotID, Instrument: "Guitar"})
	assertCode(t, err, status.ErrGigNotFound)

	_, err = svc.Submit(ctx, nil, SubmitApplicationInput{GigID: gig.ID, SlotID: slotID, Instrument: "Piano"})
	assertCode(t, err, status.ErrUnauthenticated)
}

func TestApplication_DuplicateAndReapply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner", "owner@example.com", models.RoleVenue)
	m := f.musician("m", "Cello")
	gig := f.gig(owner, SlotInput{Instruments: []string{"Cello"}})
	svc := NewApplicationService(f.deps, nil)
	in := SubmitApplicationInput{GigID: gig.ID, SlotID: gig.Slots[0].ID, Instrument: "Cello"}

	first, err := svc.Submit(ctx, m, in)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, m, in)
	assertCode(t, err, status.ErrDuplicateApplication)

	_, err = svc.Reject(ctx, owner, gig.ID, first.ID)
	require.NoError(t, err)

	// a rejected application no longer blocks a fresh one
	_, err = svc.Submit(ctx, m, in)
	require.NoError(t, err)
}

func TestApplication_DecisionErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner", "owner@example.com", models.RoleVenue)
	stranger := f.user("stranger", "s@example.com", models.RoleVenue)
	admin := f.user("root", "root@example.com", models.RoleAdmin)
	m := f.musician("m", "Flute")
	gig := f.gig(owner, SlotInput{Instruments: []string{"Flute"}}, SlotInput{Instruments: []string{"Oboe"}})
	svc := NewApplicationService(f.deps, nil)

	app, err := svc.Submit(ctx, m, SubmitApplicationInput{GigID: gig.ID, SlotID: gig.Slots[0].ID, Instrument: "Flute"})
	require.NoError(t, err)

	_, err = svc.Accept(ctx, stranger, gig.ID, app.ID)
	assertCode(t, err, status.ErrNotGigOwner)

	_, err = svc.Accept(ctx, owner, gig.ID, "nope")
	assertCode(t, err, status.ErrApplicationNotFound)

	decision, err := svc.Accept(ctx, admin, gig.ID, app.ID)
	require.NoError(t, err)
	// the second slot is still open
	assert.Equal(t, models.GigStatusOpen, decision.GigStatus)

	_, err = svc.Accept(ctx, owner, gig.ID, app.ID)
	assertCode(t, err, status.ErrApplicationNotPending)

	_, err = svc.Reject(ctx, owner, gig.ID, app.ID)
	assertCode(t, err, status.ErrApplicationNotPending)
}

func TestApplication_GigFilledOnlyWhenEverySlotAccepted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner", "owner@example.com", models.RoleVenue)
	a := f.musician("a", "Guitar")
	b := f.musician("b", "Bass")
	gig := f.gig(owner, SlotInput{Instruments: []string{"Guitar"}}, SlotInput{Instruments: []string{"Bass"}})
	svc := NewApplicationService(f.deps, nil)

	appA, err := svc.Submit(ctx, a, SubmitApplicationInput{GigID: gig.ID, SlotID: gig.Slots[0].ID, Instrument: "Guitar"})
	require.NoError(t, err)
	appB, err := svc.Submit(ctx, b, SubmitApplicationInput{GigID: gig.ID, SlotID: gig.Slots[1].ID, Instrument: "Bass"})
	require.NoError(t, err)

	d, err := svc.Accept(ctx, owner, gig.ID, appA.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GigStatusOpen, d.GigStatus)

	d, err = svc.Accept(ctx, owner, gig.ID, appB.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GigStatusFilled, d.GigStatus)
}

func TestApplication_CancelledGigRejectsSubmissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner", "owner@example.com", models.RoleVenue)
	m := f.musician("m", "Harp")
	gig := f.gig(owner, SlotInput{Instruments: []string{"Harp"}})
	svc := NewApplicationService(f.deps, nil)

	_, err := NewGigService(f.deps).Cancel(ctx, owner, gig.ID)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, m, SubmitApplicationInput{GigID: gig.ID, SlotID: gig.Slots[0].ID, Instrument: "Harp"})
	assertCode(t, err, status.ErrGigNotOpen)
}

func TestApplication_SlotBusy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner", "owner@example.com", models.RoleVenue)
	m := f.musician("m", "Banjo")
	gig := f.gig(owner, SlotInput{Instruments: []string{"Banjo"}})

	app, err := NewApplicationService(f.deps, nil).Submit(ctx, m, SubmitApplicationInput{GigID: gig.ID, SlotID: gig.Slots[0].ID, Instrument: "Banjo"})
	require.NoError(t, err)

	_, err = NewApplicationService(f.deps, busyLocker{}).Accept(ctx, owner, gig.ID, app.ID)
	assertCode(t, err, status.ErrSlotBusy)

	stored, err := f.store.GetApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPending, stored.Status)
}

func TestApplication_NotificationsNeverFailDecisions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mailer := &fakeMailer{err: errors.New("smtp unavailable")}
	publisher := &fakePublisher{}
	dispatcher := NewDispatcher(0)
	f.deps.Notifier = NewNotifier(mailer, publisher, dispatcher, nil, "https://gigs.example.com")

	owner := f.user("owner", "owner@example.com", models.RoleVenue)
	a := f.musician("a", "Violin")
	b := f.musician("b", "Violin")
	gig := f.gig(owner, SlotInput{Instruments: []string{"Violin"}})
	svc := NewApplicationService(f.deps, nil)

	appA, err := svc.Submit(ctx, a, SubmitApplicationInput{GigID: gig.ID, SlotID: gig.Slots[0].ID, Instrument: "Violin"})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, b, SubmitApplicationInput{GigID: gig.ID, SlotID: gig.Slots[0].ID, Instrument: "Violin"})
	require.NoError(t, err)

	_, err = svc.Accept(ctx, owner, gig.ID, appA.ID)
	require.NoError(t, err)
	dispatcher.Wait()

	channels := map[string][]string{}
	for _, msg := range publisher.Messages() {
		channels[msg.Channel] = append(channels[msg.Channel], msg.Message["type"].(string))
	}
	assert.ElementsMatch(t, []string{"application_submitted", "application_submitted"}, channels["user-owner"])
	assert.Equal(t, []string{"application_accepted"}, channels["user-a"])
	assert.Equal(t, []string{"application_rejected"}, channels["user-b"])
	assert.Empty(t, mailer.Sent())
}

func TestApplication_ListsAndAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner", "owner@example.com", models.RoleVenue)
	m := f.musician("m", "Oud")
	gig := f.gig(owner, SlotInput{Instruments: []string{"Oud"}})
	svc := NewApplicationService(f.deps, nil)

	_, err := svc.Submit(ctx, m, SubmitApplicationInput{GigID: gig.ID, SlotID: gig.Slots[0].ID, Instrument: "Oud"})
	require.NoError(t, err)

	list, err := svc.ListForGig(ctx, owner, gig.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.ListForGig(ctx, m, gig.ID)
	assertCode(t, err, status.ErrNotGigOwner)

	mine, err := svc.ListMine(ctx, m)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, gig.ID, mine[0].GigID)
}
