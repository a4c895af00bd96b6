package handlers

import (
	"net/http"

	"gig-booking/internal/services"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type GigInvitationHandler struct {
	authorizer
	gigInvitationService *services.GigInvitationService
}

func NewGigInvitationHandler(resolver *services.RoleResolver, gigInvitationService *services.GigInvitationService) *GigInvitationHandler {
	return &GigInvitationHandler{
		authorizer:           authorizer{resolver: resolver},
		gigInvitationService: gigInvitationService,
	}
}

func (h *GigInvitationHandler) InviteToGig(e *core.RequestEvent) error {
	caps, err := h.capabilities(e)
	if err != nil {
		return respondError(e, err)
	}

	var req services.GigInvitationInput
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	inv, created, err := h.gigInvitationService.Invite(e.Request.Context(), caps, e.Request.PathValue("gigId"), req)
	if err != nil {
		return respondError(e, err)
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	return e.JSON(code, inv)
}

func (h *GigInvitationHandler) ListGigInvitations(e *core.RequestEvent) error {
	caps, err := h.capabilities(e)
	if err != nil {
		return respondError(e, err)
	}

	invs, err := h.gigInvitationService.ListForGig(e.Request.Context(), caps, e.Request.PathValue("gigId"))
	if err != nil {
		return respondError(e, err)
	}
	return e.JSON(http.StatusOK, map[string]any{"items": invs})
}

func (h *GigInvitationHandler) RevokeGigInvitation(e *core.RequestEvent) error {
	caps, err := h.capabilities(e)
	if err != nil {
		return respondError(e, err)
	}

	err = h.gigInvitationService.Revoke(e.Request.Context(), caps,
		e.Request.PathValue("gigId"), e.Request.PathValue("invitationId"))
	if err != nil {
		return respondError(e, err)
	}
	return e.NoContent(http.StatusNoContent)
}

func (h *GigInvitationHandler) ListMyGigInvitations(e *core.RequestEvent) error {
	caps, err := h.capabilities(e)
	if err != nil {
		return respondError(e, err)
	}

	invs, err := h.gigInvitationService.ListMine(e.Request.Context(), caps)
	if err != nil {
		return respondError(e, err)
	}
	return e.JSON(http.StatusOK, map[string]any{"items": invs})
}
