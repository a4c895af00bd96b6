package handlers

import (
	"net/http"

	"gig-booking/internal/services"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type ApplicationHandler struct {
	authorizer
	applicationService *services.ApplicationService
}

func NewApplicationHandler(resolver *services.RoleResolver, applicationService *services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{
		authorizer:         authorizer{resolver: resolver},
		applicationService: applicationService,
	}
}

// SubmitApplication - apply to one slot of a gig with one instrument
func (h *ApplicationHandler) SubmitApplication(e *core.RequestEvent) error {
	caps, err := h.capabilities(e)
	if err != nil {
		return respondError(e, err)
	}

	var req services.SubmitApplicationInput
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	req.GigID = e.Request.PathValue("gigId")

	app, err := h.applicationService.Submit(e.Request.Context(), caps, req)
	if err != nil {
		return respondError(e, err)
	}
	return e.JSON(http.StatusCreated, app)
}

func (h *ApplicationHandler) ListApplications(e *core.RequestEvent) error {
	caps, err := h.capabilities(e)
	if err != nil {
		return respondError(e, err)
	}

	apps, err := h.applicationService.ListForGig(e.Request.Context(), caps, e.Request.PathValue("gigId"))
	if err != nil {
		return respondError(e, err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"items": apps,
		"total": len(apps),
	})
}

func (h *ApplicationHandler) AcceptApplication(e *core.RequestEvent) error {
	caps, err := h.capabilities(e)
	if err != nil {
		return respondError(e, err)
	}

	decision, err := h.applicationService.Accept(e.Request.Context(), caps,
		e.Request.PathValue("gigId"), e.Request.PathValue("applicationId"))
	if err != nil {
		return respondError(e, err)
	}
	return e.JSON(http.StatusOK, decision)
}

func (h *ApplicationHandler) RejectApplication(e *core.RequestEvent) error {
	caps, err := h.capabilities(e)
	if err != nil {
		return respondError(e, err)
	}

	app, err := h.applicationService.Reject(e.Request.Context(), caps,
		e.Request.PathValue("gigId"), e.Request.PathValue("applicationId"))
	if err != nil {
		return respondError(e, err)
	}
	return e.JSON(http.StatusOK, app)
}

func (h *ApplicationHandler) ListMyApplications(e *core.RequestEvent) error {
	caps, err := h.capabilities(e)
	if err != nil {
		return respondError(e, err)
	}

	apps, err := h.applicationService.ListMine(e.Request.Context(), caps)
	if err != nil {
		return respondError(e, err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"items": apps,
		"total": len(apps),
	})
}
