package handlers

import (
	"errors"
	"io"
	"net/http"

	"gig-booking/internal/services"
	"gig-booking/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

// InvitationHandler serves venue network invitations and venue manager
// invitations.
type InvitationHandler struct {
	authorizer
	invitationService *services.InvitationService
}

func NewInvitationHandler(resolver *services.RoleResolver, invitationService *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{
		authorizer:        authorizer{resolver: resolver},
		invitationService: invitationService,
	}
}

func (h *InvitationHandler) CreateInvitation(e *core.RequestEvent) error {
	caps, err := h.capabilities(e)
	if err != nil {
		return respondError(e, err)
	}

	var req services.CreateInvitationInput
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	created, err := h.invitationService.Create(e.Request.Context(), caps, e.Request.PathValue("venueId"), req)
	if err != nil {
		return respondError(e, err)
	}
	return e.JSON(http.StatusCreated, created)
}

func (h *InvitationHandler) ListInvitations(e *core.RequestEvent) error {
	caps, err := h.capabilities(e)
	if err != nil {
		return respondError(e, err)
	}

	invs, err := h.invitationService.List(e.Request.Context(), caps, e.Request.PathValue("venueId"))
	if err != nil {
		return respondError(e, err)
	}
	return e.JSON(http.StatusOK, map[string]any{"items": invs})
}

// PreviewInvitation is public: the landing page shows who is inviting before
// the musician signs in.
func (h *InvitationHandler) PreviewInvitation(e *core.RequestEvent) error {
	preview, err := h.invitationService.Preview(e.Request.Context(), e.Request.PathValue("code"))
	if err != nil {
		return respondError(e, err)
	}
	return e.JSON(http.StatusOK, preview)
}

func (h *InvitationHandler) AcceptInvitation(e *core.RequestEvent) error {
	caps, err := h.capabilities(e)
	if err != nil {
		return respondError(e, err)
	}

	// overrides are optional; chunked bodies report ContentLength -1
	var overrides models.ContactFields
	if e.Request.Body != nil && e.Request.Body != http.NoBody {
		if err := e.BindBody(&overrides); err != nil && !errors.Is(err, io.EOF) {
			return apis.NewBadRequestError("Invalid request", err)
		}
	}

	res, err := h.invitationService.Accept(e.Request.Context(), caps, e.Request.PathValue("code"), overrides)
	if err != nil {
		return respondError(e, err)
	}
	return e.JSON(http.StatusOK, res)
}

func (h *InvitationHandler) CreateManagerInvitation(e *core.RequestEvent) error {
	caps, err := h.capabilities(e)
	if err != nil {
		return respondError(e, err)
	}

	var req services.CreateManagerInvitationInput
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	inv, err := h.invitationService.CreateManagerInvitation(e.Request.Context(), caps, e.Request.PathValue("venueId"), req)
	if err != nil {
		return respondError(e, err)
	}
	return e.JSON(http.StatusCreated, inv)
}

func (h *InvitationHandler) AcceptManagerInvitation(e *core.RequestEvent) error {
	caps, err := h.capabilities(e)
	if err != nil {
		return respondError(e, err)
	}

	res, err := h.invitationService.AcceptManagerInvitation(e.Request.Context(), caps, e.Request.PathValue("code"))
	if err != nil {
		return respondError(e, err)
	}
	return e.JSON(http.StatusOK, res)
}
