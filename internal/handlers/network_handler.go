package handlers

import (
	"net/http"

	"gig-booking/internal/services"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type NetworkHandler struct {
	authorizer
	networkService *services.NetworkService
}

func NewNetworkHandler(resolver *services.RoleResolver, networkService *services.NetworkService) *NetworkHandler {
	return &NetworkHandler{
		authorizer:     authorizer{resolver: resolver},
		networkService: networkService,
	}
}

func (h *NetworkHandler) ListMembers(e *core.RequestEvent) error {
	caps, err := h.capabilities(e)
	if err != nil {
		return respondError(e, err)
	}

	members, err := h.networkService.ListFor(e.Request.Context(), caps, e.Request.PathValue("venueId"))
	if err != nil {
		return respondError(e, err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"items": members,
		"total": len(members),
	})
}

func (h *NetworkHandler) AddMember(e *core.RequestEvent) error {
	caps, err := h.capabilities(e)
	if err != nil {
		return respondError(e, err)
	}

	var req struct {
		MusicianID string `json:"musician_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	created, err := h.networkService.AddMember(e.Request.Context(), caps, e.Request.PathValue("venueId"), req.MusicianID)
	if err != nil {
		return respondError(e, err)
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	return e.JSON(code, map[string]any{
		"venue_id":    e.Request.PathValue("venueId"),
		"musician_id": req.MusicianID,
		"created":     created,
	})
}

func (h *NetworkHandler) RemoveMember(e *core.RequestEvent) error {
	caps, err := h.capabilities(e)
	if err != nil {
		return respondError(e, err)
	}

	err = h.networkService.RemoveMember(e.Request.Context(), caps,
		e.Request.PathValue("venueId"), e.Request.PathValue("musicianId"))
	if err != nil {
		return respondError(e, err)
	}
	return e.NoContent(http.StatusNoContent)
}

// ListMyVenues is the musician's view: the venue networks they belong to.
func (h *NetworkHandler) ListMyVenues(e *core.RequestEvent) error {
	caps, err := h.capabilities(e)
	if err != nil {
		return respondError(e, err)
	}

	memberships, err := h.networkService.ListVenuesFor(e.Request.Context(), caps, "")
	if err != nil {
		return respondError(e, err)
	}
	return e.JSON(http.StatusOK, map[string]any{"items": memberships})
}
