package handlers

import (
	"gig-booking/internal/services"
	"gig-booking/models"

	"github.com/pocketbase/pocketbase/core"
)

// actorFromEvent converts the PocketBase auth record into an Actor. It
// returns nil for anonymous requests.
func actorFromEvent(e *core.RequestEvent) *models.Actor {
	if e.Auth == nil {
		return nil
	}
	return &models.Actor{
		ID:            e.Auth.Id,
		Email:         e.Auth.Email(),
		EmailVerified: e.Auth.Verified(),
		Name:          e.Auth.GetString("name"),
		RoleClaim:     e.Auth.GetString("role"),
		Superuser:     e.Auth.IsSuperuser(),
	}
}

// authorizer resolves capabilities fresh for every request.
type authorizer struct {
	resolver *services.RoleResolver
}

func (a authorizer) capabilities(e *core.RequestEvent) (*services.Capabilities, error) {
	return a.resolver.Resolve(e.Request.Context(), actorFromEvent(e))
}
