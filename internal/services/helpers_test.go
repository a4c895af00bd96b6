package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gig-booking/internal/status"
	"gig-booking/internal/store/memstore"
	"gig-booking/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

type fixture struct {
	t        *testing.T
	store    *memstore.Memory
	deps     Deps
	resolver *RoleResolver
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, store: memstore.New(), now: testNow}
	f.deps = Deps{Store: f.store, Clock: func() time.Time { return f.now }}
	f.resolver = NewRoleResolver(f.store)
	return f
}

// user seeds a user and resolves its capabilities.
func (f *fixture) user(id, email, role string) *Capabilities {
	f.t.Helper()
	f.store.PutUser(models.User{ID: id, Email: email, Name: id, Role: role})
	return f.resolve(models.Actor{ID: id, Email: email, EmailVerified: true, Name: id, RoleClaim: role})
}

func (f *fixture) resolve(actor models.Actor) *Capabilities {
	f.t.Helper()
	caps, err := f.resolver.Resolve(context.Background(), &actor)
	require.NoError(f.t, err)
	return caps
}

func (f *fixture) musician(id string, instruments ...string) *Capabilities {
	f.t.Helper()
	caps := f.user(id, id+"@example.com", models.RoleMusician)
	require.NoError(f.t, f.store.SaveMusician(context.Background(), &models.Musician{
		UserID:      id,
		Name:        id,
		Email:       id + "@example.com",
		Instruments: instruments,
	}))
	return caps
}

// venue seeds a venue owned by owner and returns the owner's refreshed
// capabilities.
func (f *fixture) venue(id, name, owner string) *Capabilities {
	f.t.Helper()
	f.store.PutVenue(models.Venue{ID: id, Name: name, OwnerID: owner})
	return f.user(owner, owner+"@example.com", models.RoleVenue)
}

func (f *fixture) gig(owner *Capabilities, slots ...SlotInput) *models.Gig {
	f.t.Helper()
	gig, err := NewGigService(f.deps).Create(context.Background(), owner, CreateGigInput{
		Title:    "Friday Jazz Night",
		Location: "Blue Room",
		StartsAt: testNow.Add(72 * time.Hour),
		EndsAt:   testNow.Add(75 * time.Hour),
		Slots:    slots,
	})
	require.NoError(f.t, err)
	return gig
}

func assertCode(t *testing.T, err error, want *status.Error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, want), "expected %s, got %v", want.Code, err)
	assert.Equal(t, want.Kind, status.KindOf(err))
}

type sentMail struct {
	To, Subject, Body string
}

type fakeMailer struct {
	mu   sync.Mutex
	err  error
	sent []sentMail
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *fakeMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

type published struct {
	Channel string
	Message map[string]any
}

type fakePublisher struct {
	mu   sync.Mutex
	err  error
	msgs []published
}

func (p *fakePublisher) Publish(_ context.Context, channel string, message map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{Channel: channel, Message: message})
	return nil
}

func (p *fakePublisher) Messages() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.msgs...)
}

// flakyStore fails selected writes on top of the in-memory store.
type flakyStore struct {
	*memstore.Memory
	addMemberErr  error
	addManagerErr error
	hideMembers   bool
}

func (s *flakyStore) AddNetworkMember(ctx context.Context, m models.NetworkMembership) (bool, error) {
	if s.addMemberErr != nil {
		return false, s.addMemberErr
	}
	return s.Memory.AddNetworkMember(ctx, m)
}

func (s *flakyStore) NetworkMemberExists(ctx context.Context, venueID, musicianID string) (bool, error) {
	if s.hideMembers {
		return false, nil
	}
	return s.Memory.NetworkMemberExists(ctx, venueID, musicianID)
}

func (s *flakyStore) AddVenueManager(ctx context.Context, m models.VenueManager) (bool, error) {
	if s.addManagerErr != nil {
		return false, s.addManagerErr
	}
	return s.Memory.AddVenueManager(ctx, m)
}

type busyLocker struct{}

func (busyLocker) Lock(context.Context, string) (func(), error) { return nil, status.ErrSlotBusy }
