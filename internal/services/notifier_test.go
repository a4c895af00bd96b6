package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gig-booking/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPublisher struct {
	calls atomic.Int32
	err   error
}

func (p *countingPublisher) Publish(context.Context, string, map[string]any) error {
	p.calls.Add(1)
	return p.err
}

func TestDispatcher_RecoversPanics(t *testing.T) {
	d := NewDispatcher(time.Second)
	var ran atomic.Bool

	d.Go("boom", func(context.Context) error { panic("kaboom") })
	d.Go("ok", func(context.Context) error {
		ran.Store(true)
		return nil
	})
	d.Wait()

	assert.True(t, ran.Load())
}

func TestDispatcher_DetachedTimeout(t *testing.T) {
	d := NewDispatcher(20 * time.Millisecond)
	var got error

	d.Go("slow", func(ctx context.Context) error {
		<-ctx.Done()
		got = ctx.Err()
		return got
	})
	d.Wait()

	assert.ErrorIs(t, got, context.DeadlineExceeded)
}

func TestNotifier_NilIsNoop(t *testing.T) {
	var n *Notifier
	gig := &models.Gig{ID: "g", OwnerID: "o"}
	app := &models.Application{ID: "a", ApplicantID: "m"}

	assert.NotPanics(t, func() {
		n.ApplicationSubmitted(gig, app)
		n.ApplicationAccepted(gig, app, "m@example.com")
		n.ApplicationRejected(app)
		n.GigInvitationGranted(&models.GigInvitation{MusicianID: "m"})
	})
	assert.Empty(t, n.InvitationURL("ABCD2345"))
}

func TestNotifier_BreakerStopsHammeringPush(t *testing.T) {
	d := NewDispatcher(time.Second)
	pub := &countingPublisher{err: errors.New("pubnub unavailable")}
	n := NewNotifier(nil, pub, d, nil, "https://gigs.example.com")
	app := &models.Application{ID: "a", ApplicantID: "m", GigID: "g"}

	for i := 0; i < 8; i++ {
		n.ApplicationRejected(app)
		d.Wait()
	}

	assert.Equal(t, int32(5), pub.calls.Load())
}

func TestNotifier_AcceptedSendsConfirmation(t *testing.T) {
	d := NewDispatcher(time.Second)
	mailer := &fakeMailer{}
	pub := &fakePublisher{}
	n := NewNotifier(mailer, pub, d, nil, "https://gigs.example.com")

	gig := &models.Gig{
		ID:       "g",
		OwnerID:  "o",
		Title:    "Friday <Jazz>",
		Location: "Blue Room",
		StartsAt: testNow,
	}
	app := &models.Application{ID: "a", GigID: "g", SlotID: "s", ApplicantID: "m", Instrument: "sax"}
	n.ApplicationAccepted(gig, app, "m@example.com")
	d.Wait()

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "user-m", msgs[0].Channel)
	assert.Equal(t, "application_accepted", msgs[0].Message["type"])

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "m@example.com", sent[0].To)
	assert.True(t, strings.Contains(sent[0].Body, "Friday &lt;Jazz&gt;"))
	assert.True(t, strings.Contains(sent[0].Body, "sax"))
}

func TestNotifier_FailuresNeverReachCaller(t *testing.T) {
	d := NewDispatcher(time.Second)
	mailer := &fakeMailer{err: errors.New("smtp down")}
	n := NewNotifier(mailer, nil, d, nil, "")

	gig := &models.Gig{ID: "g", OwnerID: "o", Title: "Jam"}
	app := &models.Application{ID: "a", ApplicantID: "m"}
	assert.NotPanics(t, func() { n.ApplicationAccepted(gig, app, "m@example.com") })
	d.Wait()
	assert.Empty(t, mailer.Sent())
}
