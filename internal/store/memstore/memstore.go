// Package memstore is a thread-safe in-memory implementation of store.Store.
// It enforces the same uniqueness rules as the PocketBase schema and is used
// by tests and local prototyping.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gig-booking/internal/store"
	"gig-booking/models"

	"github.com/google/uuid"
)

type Memory struct {
	mu sync.RWMutex

	users          map[string]models.User
	musicians      map[string]models.Musician
	venues         map[string]models.Venue
	managers       map[string]models.VenueManager // venue|user
	gigs           map[string]models.Gig
	applications   map[string]models.Application
	gigInvitations map[string]models.GigInvitation
	venueInvites   map[string]models.VenueInvitation
	managerInvites map[string]models.VenueManagerInvitation
	memberships    map[string]models.NetworkMembership // venue|musician
}

var _ store.Store = (*Memory)(nil)

func New() *Memory {
	return &Memory{
		users:          make(map[string]models.User),
		musicians:      make(map[string]models.Musician),
		venues:         make(map[string]models.Venue),
		managers:       make(map[string]models.VenueManager),
		gigs:           make(map[string]models.Gig),
		applications:   make(map[string]models.Application),
		gigInvitations: make(map[string]models.GigInvitation),
		venueInvites:   make(map[string]models.VenueInvitation),
		managerInvites: make(map[string]models.VenueManagerInvitation),
		memberships:    make(map[string]models.NetworkMembership),
	}
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:15]
}

func pairKey(a, b string) string { return a + "|" + b }

// Seed helpers -----------------------------------------------------------------

func (m *Memory) PutUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *Memory) PutVenue(v models.Venue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.venues[v.ID] = v
}

// GigStore ----------------------------------------------------------------------

func (m *Memory) CreateGig(_ context.Context, gig *models.Gig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gig.ID == "" {
		gig.ID = newID()
	} else if _, exists := m.gigs[gig.ID]; exists {
		return store.ErrAlreadyExists
	}
	now := time.Now().UTC()
	gig.CreatedAt = now
	gig.UpdatedAt = now
	for i := range gig.Slots {
		if gig.Slots[i].ID == "" {
			gig.Slots[i].ID = newID()
		}
		gig.Slots[i].GigID = gig.ID
		gig.Slots[i].Position = i
	}
	m.gigs[gig.ID] = cloneGig(*gig)
	return nil
}

func (m *Memory) GetGig(_ context.Context, gigID string) (*models.Gig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	gig, ok := m.gigs[gigID]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneGig(gig)
	return &out, nil
}

func (m *Memory) UpdateGigStatus(_ context.Context, gigID string, status models.GigStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	gig, ok := m.gigs[gigID]
	if !ok {
		return store.ErrNotFound
	}
	gig.Status = status
	gig.UpdatedAt = time.Now().UTC()
	m.gigs[gigID] = gig
	return nil
}

func (m *Memory) UpdateSlot(_ context.Context, slot *models.Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	gig, ok := m.gigs[slot.GigID]
	if !ok {
		return store.ErrNotFound
	}
	for i := range gig.Slots {
		if gig.Slots[i].ID == slot.ID {
			for _, app := range m.applications {
				if app.SlotID == slot.ID && app.Status == models.ApplicationAccepted {
					return store.ErrSlotFilled
				}
			}
			updated := *slot
			updated.Position = gig.Slots[i].Position
			updated.Instruments = append([]string(nil), slot.Instruments...)
			gig.Slots[i] = updated
			gig.UpdatedAt = time.Now().UTC()
			m.gigs[gig.ID] = gig
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *Memory) DeleteGig(_ context.Context, gigID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.gigs[gigID]; !ok {
		return store.ErrNotFound
	}
	delete(m.gigs, gigID)
	for id, app := range m.applications {
		if app.GigID == gigID {
			delete(m.applications, id)
		}
	}
	for id, inv := range m.gigInvitations {
		if inv.GigID == gigID {
			delete(m.gigInvitations, id)
		}
	}
	return nil
}

// ApplicationStore --------------------------------------------------------------

func (m *Memory) InsertApplication(_ context.Context, app *models.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.applications {
		if existing.SlotID == app.SlotID && existing.ApplicantID == app.ApplicantID && existing.Status.Active() {
			return store.ErrAlreadyExists
		}
	}
	if app.ID == "" {
		app.ID = newID()
	}
	if app.SubmittedAt.IsZero() {
		app.SubmittedAt = time.Now().UTC()
	}
	m.applications[app.ID] = *app
	return nil
}

func (m *Memory) GetApplication(_ context.Context, applicationID string) (*models.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	app, ok := m.applications[applicationID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &app, nil
}

func (m *Memory) ListApplicationsBySlot(_ context.Context, slotID string) ([]models.Application, error) {
	return m.filterApplications(func(a models.Application) bool { return a.SlotID == slotID }), nil
}

func (m *Memory) ListApplicationsByGig(_ context.Context, gigID string) ([]models.Application, error) {
	return m.filterApplications(func(a models.Application) bool { return a.GigID == gigID }), nil
}

func (m *Memory) ListApplicationsByApplicant(_ context.Context, applicantID string) ([]models.Application, error) {
	return m.filterApplications(func(a models.Application) bool { return a.ApplicantID == applicantID }), nil
}

func (m *Memory) filterApplications(keep func(models.Application) bool) []models.Application {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.Application{}
	for _, app := range m.applications {
		if keep(app) {
			out = append(out, app)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out
}

func (m *Memory) AcceptApplication(_ context.Context, applicationID string, at time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, ok := m.applications[applicationID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if target.Status != models.ApplicationPending {
		return nil, store.ErrConflict
	}
	for _, other := range m.applications {
		if other.SlotID == target.SlotID && other.Status == models.ApplicationAccepted {
			return nil, store.ErrSlotFilled
		}
	}

	decided := at.UTC()
	target.Status = models.ApplicationAccepted
	target.DecidedAt = &decided
	m.applications[target.ID] = target

	rejected := []string{}
	for id, other := range m.applications {
		if other.SlotID == target.SlotID && other.Status == models.ApplicationPending {
			other.Status = models.ApplicationRejected
			other.DecidedAt = &decided
			m.applications[id] = other
			rejected = append(rejected, id)
		}
	}
	sort.Strings(rejected)
	return rejected, nil
}

func (m *Memory) RejectApplication(_ context.Context, applicationID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	app, ok := m.applications[applicationID]
	if !ok {
		return store.ErrNotFound
	}
	if app.Status != models.ApplicationPending {
		return store.ErrConflict
	}
	decided := at.UTC()
	app.Status = models.ApplicationRejected
	app.DecidedAt = &decided
	m.applications[app.ID] = app
	return nil
}

// GigInvitationStore ------------------------------------------------------------

func (m *Memory) InsertGigInvitation(_ context.Context, inv *models.GigInvitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.gigInvitations {
		if existing.GigID == inv.GigID && existing.MusicianID == inv.MusicianID &&
			strings.EqualFold(existing.Instrument, inv.Instrument) {
			return store.ErrAlreadyExists
		}
	}
	if inv.ID == "" {
		inv.ID = newID()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	m.gigInvitations[inv.ID] = *inv
	return nil
}

func (m *Memory) FindGigInvitation(_ context.Context, gigID, instrument, musicianID string) (*models.GigInvitation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, inv := range m.gigInvitations {
		if inv.GigID == gigID && inv.MusicianID == musicianID &&
			strings.EqualFold(models.NormalizeInstrument(inv.Instrument), models.NormalizeInstrument(instrument)) {
			out := inv
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) GetGigInvitation(_ context.Context, invitationID string) (*models.GigInvitation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inv, ok := m.gigInvitations[invitationID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &inv, nil
}

func (m *Memory) DeleteGigInvitation(_ context.Context, invitationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.gigInvitations[invitationID]; !ok {
		return store.ErrNotFound
	}
	delete(m.gigInvitations, invitationID)
	return nil
}

func (m *Memory) ListGigInvitationsByGig(_ context.Context, gigID string) ([]models.GigInvitation, error) {
	return m.filterGigInvitations(func(inv models.GigInvitation) bool { return inv.GigID == gigID }), nil
}

func (m *Memory) ListGigInvitationsByMusician(_ context.Context, musicianID string) ([]models.GigInvitation, error) {
	return m.filterGigInvitations(func(inv models.GigInvitation) bool { return inv.MusicianID == musicianID }), nil
}

func (m *Memory) filterGigInvitations(keep func(models.GigInvitation) bool) []models.GigInvitation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.GigInvitation{}
	for _, inv := range m.gigInvitations {
		if keep(inv) {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// VenueInvitationStore ----------------------------------------------------------

func (m *Memory) InsertVenueInvitation(_ context.Context, inv *models.VenueInvitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.venueInvites {
		if existing.Code == inv.Code {
			return store.ErrAlreadyExists
		}
	}
	if inv.ID == "" {
		inv.ID = newID()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	m.venueInvites[inv.ID] = *inv
	return nil
}

func (m *Memory) VenueInvitationCodeExists(_ context.Context, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, inv := range m.venueInvites {
		if inv.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) GetVenueInvitationByCode(_ context.Context, code string) (*models.VenueInvitation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, inv := range m.venueInvites {
		if inv.Code == code {
			out := inv
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) ListVenueInvitations(_ context.Context, venueID string) ([]models.VenueInvitation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.VenueInvitation{}
	for _, inv := range m.venueInvites {
		if inv.VenueID == venueID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) MarkVenueInvitationAccepted(_ context.Context, invitationID, acceptedBy string, at time.Time, fields *models.ContactFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.venueInvites[invitationID]
	if !ok {
		return store.ErrNotFound
	}
	if inv.Status != models.InvitationPending {
		return store.ErrConflict
	}
	accepted := at.UTC()
	inv.Status = models.InvitationAccepted
	inv.AcceptedBy = acceptedBy
	inv.AcceptedAt = &accepted
	inv.AcceptedFields = fields
	m.venueInvites[inv.ID] = inv
	return nil
}

func (m *Memory) RevertVenueInvitation(_ context.Context, invitationID, acceptedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.venueInvites[invitationID]
	if !ok {
		return store.ErrNotFound
	}
	if inv.Status != models.InvitationAccepted || inv.AcceptedBy != acceptedBy {
		return store.ErrConflict
	}
	inv.Status = models.InvitationPending
	inv.AcceptedBy = ""
	inv.AcceptedAt = nil
	inv.AcceptedFields = nil
	m.venueInvites[inv.ID] = inv
	return nil
}

// ManagerInvitationStore --------------------------------------------------------

func (m *Memory) InsertManagerInvitation(_ context.Context, inv *models.VenueManagerInvitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.managerInvites {
		if existing.Code == inv.Code {
			return store.ErrAlreadyExists
		}
	}
	if inv.ID == "" {
		inv.ID = newID()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	m.managerInvites[inv.ID] = *inv
	return nil
}

func (m *Memory) ManagerInvitationCodeExists(_ context.Context, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, inv := range m.managerInvites {
		if inv.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) GetManagerInvitationByCode(_ context.Context, code string) (*models.VenueManagerInvitation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, inv := range m.managerInvites {
		if inv.Code == code {
			out := inv
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) MarkManagerInvitationAccepted(_ context.Context, invitationID, acceptedBy string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.managerInvites[invitationID]
	if !ok {
		return store.ErrNotFound
	}
	if inv.Status != models.InvitationPending {
		return store.ErrConflict
	}
	accepted := at.UTC()
	inv.Status = models.InvitationAccepted
	inv.AcceptedBy = acceptedBy
	inv.AcceptedAt = &accepted
	m.managerInvites[inv.ID] = inv
	return nil
}

func (m *Memory) RevertManagerInvitation(_ context.Context, invitationID, acceptedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.managerInvites[invitationID]
	if !ok {
		return store.ErrNotFound
	}
	if inv.Status != models.InvitationAccepted || inv.AcceptedBy != acceptedBy {
		return store.ErrConflict
	}
	inv.Status = models.InvitationPending
	inv.AcceptedBy = ""
	inv.AcceptedAt = nil
	m.managerInvites[inv.ID] = inv
	return nil
}

// NetworkStore ------------------------------------------------------------------

func (m *Memory) NetworkMemberExists(_ context.Context, venueID, musicianID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.memberships[pairKey(venueID, musicianID)]
	return ok, nil
}

func (m *Memory) AddNetworkMember(_ context.Context, nm models.NetworkMembership) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pairKey(nm.VenueID, nm.MusicianID)
	if _, ok := m.memberships[key]; ok {
		return false, nil
	}
	if nm.CreatedAt.IsZero() {
		nm.CreatedAt = time.Now().UTC()
	}
	m.memberships[key] = nm
	return true, nil
}

func (m *Memory) RemoveNetworkMember(_ context.Context, venueID, musicianID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pairKey(venueID, musicianID)
	if _, ok := m.memberships[key]; !ok {
		return store.ErrNotFound
	}
	delete(m.memberships, key)
	return nil
}

func (m *Memory) ListNetworkMembers(_ context.Context, venueID string) ([]models.NetworkMembership, error) {
	return m.filterMemberships(func(nm models.NetworkMembership) bool { return nm.VenueID == venueID }), nil
}

func (m *Memory) ListNetworksForMusician(_ context.Context, musicianID string) ([]models.NetworkMembership, error) {
	return m.filterMemberships(func(nm models.NetworkMembership) bool { return nm.MusicianID == musicianID }), nil
}

func (m *Memory) filterMemberships(keep func(models.NetworkMembership) bool) []models.NetworkMembership {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.NetworkMembership{}
	for _, nm := range m.memberships {
		if keep(nm) {
			out = append(out, nm)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return pairKey(out[i].VenueID, out[i].MusicianID) < pairKey(out[j].VenueID, out[j].MusicianID)
	})
	return out
}

// VenueStore --------------------------------------------------------------------

func (m *Memory) GetVenue(_ context.Context, venueID string) (*models.Venue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.venues[venueID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &v, nil
}

func (m *Memory) ListManagedVenueIDs(_ context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := map[string]bool{}
	ids := []string{}
	for _, mgr := range m.managers {
		if mgr.UserID == userID && !seen[mgr.VenueID] {
			seen[mgr.VenueID] = true
			ids = append(ids, mgr.VenueID)
		}
	}
	for _, v := range m.venues {
		if v.OwnerID == userID && !seen[v.ID] {
			seen[v.ID] = true
			ids = append(ids, v.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) AddVenueManager(_ context.Context, mgr models.VenueManager) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pairKey(mgr.VenueID, mgr.UserID)
	if _, ok := m.managers[key]; ok {
		return false, nil
	}
	if mgr.CreatedAt.IsZero() {
		mgr.CreatedAt = time.Now().UTC()
	}
	m.managers[key] = mgr
	return true, nil
}

// ProfileStore ------------------------------------------------------------------

func (m *Memory) GetUser(_ context.Context, userID string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (m *Memory) GetMusician(_ context.Context, userID string) (*models.Musician, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mus, ok := m.musicians[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	mus.Instruments = append([]string(nil), mus.Instruments...)
	return &mus, nil
}

func (m *Memory) SaveMusician(_ context.Context, mus *models.Musician) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := *mus
	saved.Instruments = append([]string(nil), mus.Instruments...)
	m.musicians[mus.UserID] = saved
	return nil
}

func cloneGig(g models.Gig) models.Gig {
	slots := make([]models.Slot, len(g.Slots))
	for i, s := range g.Slots {
		s.Instruments = append([]string(nil), s.Instruments...)
		slots[i] = s
	}
	g.Slots = slots
	return g
}
