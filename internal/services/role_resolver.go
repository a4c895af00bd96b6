package services

import (
	"context"
	"sort"

	"gig-booking/internal/status"
	"gig-booking/internal/store"
	"gig-booking/models"
)

// Capabilities is what an actor may do, derived for a single request.
type Capabilities struct {
	ActorID       string
	Email         string
	EmailVerified bool
	Name          string
	Role          string
	IsAdmin       bool

	venueManagerOf map[string]bool
}

func (c *Capabilities) IsOwnerOf(gig *models.Gig) bool {
	return gig != nil && gig.OwnerID == c.ActorID
}

// CanDecide reports whether the actor may manage the gig's slots and decide
// its applications.
func (c *Capabilities) CanDecide(gig *models.Gig) bool {
	return c.IsAdmin || c.IsOwnerOf(gig)
}

func (c *Capabilities) ManagesVenue(venueID string) bool {
	return c.IsAdmin || c.venueManagerOf[venueID]
}

func (c *Capabilities) VenueManagerOf() []string {
	ids := make([]string, 0, len(c.venueManagerOf))
	for id := range c.venueManagerOf {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RoleResolver re-derives capabilities from the store on every call. Nothing
// is cached so role changes apply to the next request.
type RoleResolver struct {
	venues store.VenueStore
}

func NewRoleResolver(venues store.VenueStore) *RoleResolver {
	return &RoleResolver{venues: venues}
}

func (r *RoleResolver) Resolve(ctx context.Context, actor *models.Actor) (*Capabilities, error) {
	if actor == nil || actor.ID == "" {
		return nil, status.ErrUnauthenticated
	}

	caps := &Capabilities{
		ActorID:        actor.ID,
		Email:          actor.Email,
		EmailVerified:  actor.EmailVerified,
		Name:           actor.Name,
		Role:           actor.RoleClaim,
		// the admin claim is writable only by superusers, see the users migration
		IsAdmin:        actor.Superuser || actor.RoleClaim == models.RoleAdmin,
		venueManagerOf: map[string]bool{},
	}

	venueIDs, err := r.venues.ListManagedVenueIDs(ctx, actor.ID)
	if err != nil {
		return nil, status.Internal(err)
	}
	for _, id := range venueIDs {
		caps.venueManagerOf[id] = true
	}
	return caps, nil
}
