package handlers

import (
	"net/http"

	"gig-booking/internal/services"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type GigHandler struct {
	authorizer
	gigService *services.GigService
}

func NewGigHandler(resolver *services.RoleResolver, gigService *services.GigService) *GigHandler {
	return &GigHandler{
		authorizer: authorizer{resolver: resolver},
		gigService: gigService,
	}
}

func (h *GigHandler) CreateGig(e *core.RequestEvent) error {
	caps, err := h.capabilities(e)
	if err != nil {
		return respondError(e, err)
	}

	var req services.CreateGigInput
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	gig, err := h.gigService.Create(e.Request.Context(), caps, req)
	if err != nil {
		return respondError(e, err)
	}
	return e.JSON(http.StatusCreated, gig)
}

func (h *GigHandler) GetGig(e *core.RequestEvent) error {
	gig, err := h.gigService.Get(e.Request.Context(), e.Request.PathValue("gigId"))
	if err != nil {
		return respondError(e, err)
	}
	return e.JSON(http.StatusOK, gig)
}

func (h *GigHandler) UpdateSlot(e *core.RequestEvent) error {
	caps, err := h.capabilities(e)
	if err != nil {
		return respondError(e, err)
	}

	var req services.SlotPatch
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	slot, err := h.gigService.UpdateSlot(e.Request.Context(), caps,
		e.Request.PathValue("gigId"), e.Request.PathValue("slotId"), req)
	if err != nil {
		return respondError(e, err)
	}
	return e.JSON(http.StatusOK, slot)
}

func (h *GigHandler) CancelGig(e *core.RequestEvent) error {
	caps, err := h.capabilities(e)
	if err != nil {
		return respondError(e, err)
	}

	gig, err := h.gigService.Cancel(e.Request.Context(), caps, e.Request.PathValue("gigId"))
	if err != nil {
		return respondError(e, err)
	}
	return e.JSON(http.StatusOK, gig)
}

func (h *GigHandler) DeleteGig(e *core.RequestEvent) error {
	caps, err := h.capabilities(e)
	if err != nil {
		return respondError(e, err)
	}

	if err := h.gigService.Delete(e.Request.Context(), caps, e.Request.PathValue("gigId")); err != nil {
		return respondError(e, err)
	}
	return e.NoContent(http.StatusNoContent)
}
