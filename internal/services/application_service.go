package services

import (
	"context"
	"errors"
	"log/slog"

	"gig-booking/internal/status"
	"gig-booking/internal/store"
	"gig-booking/models"
	"gig-booking/monitoring"
)

// ApplicationService is the slot application state machine:
// pending -> accepted | rejected, both terminal.
type ApplicationService struct {
	Deps
	locker SlotLocker
}

func NewApplicationService(deps Deps, locker SlotLocker) *ApplicationService {
	if locker == nil {
		locker = noopLocker{}
	}
	return &ApplicationService{Deps: deps, locker: locker}
}

type SubmitApplicationInput struct {
	GigID      string `json:"-"`
	SlotID     string `json:"slot_id"`
	Instrument string `json:"instrument"`
}

// Decision is the outcome of an accept: the accepted application, the ids it
// closed out and the gig status afterwards.
type Decision struct {
	Application models.Application `json:"application"`
	Rejected    []string           `json:"rejected_application_ids"`
	GigStatus   models.GigStatus   `json:"gig_status"`
}

func (s *ApplicationService) loadGig(ctx context.Context, gigID string) (*models.Gig, error) {
	gig, err := s.Store.GetGig(ctx, gigID)
	if err != nil {
		return nil, storeErr(err, status.ErrGigNotFound)
	}
	return gig, nil
}

// acceptedOn returns the accepted application on the slot, if any.
func (s *ApplicationService) acceptedOn(ctx context.Context, slotID string) (*models.Application, error) {
	apps, err := s.Store.ListApplicationsBySlot(ctx, slotID)
	if err != nil {
		return nil, status.Internal(err)
	}
	for i := range apps {
		if apps[i].Status == models.ApplicationAccepted {
			return &apps[i], nil
		}
	}
	return nil, nil
}

func (s *ApplicationService) Submit(ctx context.Context, caps *Capabilities, in SubmitApplicationInput) (app *models.Application, err error) {
	defer func() { s.Monitor.TrackApplication("submit", monitoring.StatusLabel(err, status.CodeOf)) }()

	if err := requireActor(caps); err != nil {
		return nil, err
	}
	instrument := models.NormalizeInstrument(in.Instrument)
	if instrument == "" {
		return nil, status.Invalid("instrument is required")
	}

	gig, err := s.loadGig(ctx, in.GigID)
	if err != nil {
		return nil, err
	}
	slot, ok := gig.SlotByID(in.SlotID)
	if !ok {
		return nil, status.ErrSlotNotFound
	}

	// an invite-only slot is closed to uninvited musicians whatever else holds
	if slot.InviteOnly {
		_, err := s.Store.FindGigInvitation(ctx, gig.ID, instrument, caps.ActorID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, status.ErrMissingGigInvitation
		}
		if err != nil {
			return nil, status.Internal(err)
		}
	}

	accepted, err := s.acceptedOn(ctx, slot.ID)
	if err != nil {
		return nil, err
	}
	if accepted != nil {
		return nil, status.ErrSlotAlreadyFilled
	}
	if gig.Status != models.GigStatusOpen {
		return nil, status.ErrGigNotOpen
	}

	musician, err := s.Store.GetMusician(ctx, caps.ActorID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, status.ErrNotEligible
	}
	if err != nil {
		return nil, status.Internal(err)
	}
	if !musician.Plays(instrument) {
		return nil, status.ErrNotEligible
	}
	if !slot.Requires(instrument) {
		return nil, status.ErrInstrumentNotInSlot
	}

	app = &models.Application{
		GigID:       gig.ID,
		SlotID:      slot.ID,
		ApplicantID: caps.ActorID,
		Instrument:  instrument,
		Status:      models.ApplicationPending,
		SubmittedAt: s.now(),
	}
	if err := s.Store.InsertApplication(ctx, app); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, status.ErrDuplicateApplication
		}
		return nil, status.Internal(err)
	}

	s.Notifier.ApplicationSubmitted(gig, app)
	return app, nil
}

// decisionTarget loads the gig and application for an owner decision and
// checks the caller's authority.
func (s *ApplicationService) decisionTarget(ctx context.Context, caps *Capabilities, gigID, applicationID string) (*models.Gig, *models.Application, error) {
	if err := requireActor(caps); err != nil {
		return nil, nil, err
	}
	gig, err := s.loadGig(ctx, gigID)
	if err != nil {
		return nil, nil, err
	}
	if !caps.CanDecide(gig) {
		return nil, nil, status.ErrNotGigOwner
	}
	app, err := s.Store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, nil, storeErr(err, status.ErrApplicationNotFound)
	}
	if app.GigID != gig.ID {
		return nil, nil, status.ErrApplicationNotFound
	}
	return gig, app, nil
}

// Accept accepts any pending application on the slot, regardless of
// submission order, and rejects every other pending one in the same write.
func (s *ApplicationService) Accept(ctx context.Context, caps *Capabilities, gigID, applicationID string) (d *Decision, err error) {
	defer func() { s.Monitor.TrackApplication("accept", monitoring.StatusLabel(err, status.CodeOf)) }()

	gig, app, err := s.decisionTarget(ctx, caps, gigID, applicationID)
	if err != nil {
		return nil, err
	}
	if gig.Status == models.GigStatusCancelled {
		return nil, status.ErrGigNotOpen
	}

	unlock, err := s.locker.Lock(ctx, app.SlotID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	at := s.now()
	rejected, err := s.Store.AcceptApplication(ctx, app.ID, at)
	switch {
	case errors.Is(err, store.ErrSlotFilled):
		return nil, status.ErrSlotAlreadyFilled
	case errors.Is(err, store.ErrConflict):
		return nil, s.explainLostDecision(ctx, app)
	case errors.Is(err, store.ErrNotFound):
		return nil, status.ErrApplicationNotFound
	case err != nil:
		return nil, status.Internal(err)
	}

	app.Status = models.ApplicationAccepted
	app.DecidedAt = &at

	gigStatus := s.recomputeGigStatus(ctx, gig)

	applicantEmail := ""
	if user, err := s.Store.GetUser(ctx, app.ApplicantID); err == nil {
		applicantEmail = user.Email
	} else {
		slog.Warn("could not load applicant for confirmation", "error", err, "application_id", app.ID)
	}
	s.Notifier.ApplicationAccepted(gig, app, applicantEmail)
	for _, id := range rejected {
		s.Notifier.ApplicationRejected(&models.Application{ID: id, GigID: gig.ID, SlotID: app.SlotID, ApplicantID: s.applicantOf(ctx, id)})
	}

	if rejected == nil {
		rejected = []string{}
	}
	return &Decision{Application: *app, Rejected: rejected, GigStatus: gigStatus}, nil
}

func (s *ApplicationService) applicantOf(ctx context.Context, applicationID string) string {
	app, err := s.Store.GetApplication(ctx, applicationID)
	if err != nil {
		return ""
	}
	return app.ApplicantID
}

// explainLostDecision runs after a conditional write found the application no
// longer pending. Losing to a sibling's acceptance reads as SlotAlreadyFilled.
func (s *ApplicationService) explainLostDecision(ctx context.Context, app *models.Application) error {
	accepted, err := s.acceptedOn(ctx, app.SlotID)
	if err != nil {
		return err
	}
	if accepted != nil && accepted.ID != app.ID {
		return status.ErrSlotAlreadyFilled
	}
	return status.ErrApplicationNotPending
}

// recomputeGigStatus moves an open gig to filled once every slot has an
// accepted application. A failed status write is logged: the acceptance
// already committed and GigService.Get repairs the status on read.
func (s *ApplicationService) recomputeGigStatus(ctx context.Context, gig *models.Gig) models.GigStatus {
	next, err := filledStatus(ctx, s.Store, gig)
	if err != nil {
		slog.Error("failed to recompute gig status", "error", err, "gig_id", gig.ID)
		return gig.Status
	}
	if next == gig.Status {
		return next
	}
	if err := s.Store.UpdateGigStatus(ctx, gig.ID, next); err != nil {
		slog.Error("failed to update gig status", "error", err, "gig_id", gig.ID, "status", next)
		return gig.Status
	}
	gig.Status = next
	return next
}

func filledStatus(ctx context.Context, apps store.ApplicationStore, gig *models.Gig) (models.GigStatus, error) {
	list, err := apps.ListApplicationsByGig(ctx, gig.ID)
	if err != nil {
		return gig.Status, err
	}
	filled := map[string]bool{}
	for _, a := range list {
		if a.Status == models.ApplicationAccepted {
			filled[a.SlotID] = true
		}
	}
	return gig.StatusAfterDecision(filled), nil
}

func (s *ApplicationService) Reject(ctx context.Context, caps *Capabilities, gigID, applicationID string) (app *models.Application, err error) {
	defer func() { s.Monitor.TrackApplication("reject", monitoring.StatusLabel(err, status.CodeOf)) }()

	_, app, err = s.decisionTarget(ctx, caps, gigID, applicationID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, app.SlotID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	at := s.now()
	if err := s.Store.RejectApplication(ctx, app.ID, at); err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return nil, status.ErrApplicationNotPending
		case errors.Is(err, store.ErrNotFound):
			return nil, status.ErrApplicationNotFound
		}
		return nil, status.Internal(err)
	}

	app.Status = models.ApplicationRejected
	app.DecidedAt = &at
	s.Notifier.ApplicationRejected(app)
	return app, nil
}

// ListForGig returns the gig's applications ordered by submission time. The
// order is a display convenience only.
func (s *ApplicationService) ListForGig(ctx context.Context, caps *Capabilities, gigID string) ([]models.Application, error) {
	if err := requireActor(caps); err != nil {
		return nil, err
	}
	gig, err := s.loadGig(ctx, gigID)
	if err != nil {
		return nil, err
	}
	if !caps.CanDecide(gig) {
		return nil, status.ErrNotGigOwner
	}
	apps, err := s.Store.ListApplicationsByGig(ctx, gig.ID)
	if err != nil {
		return nil, status.Internal(err)
	}
	return apps, nil
}

func (s *ApplicationService) ListMine(ctx context.Context, caps *Capabilities) ([]models.Application, error) {
	if err := requireActor(caps); err != nil {
		return nil, err
	}
	apps, err := s.Store.ListApplicationsByApplicant(ctx, caps.ActorID)
	if err != nil {
		return nil, status.Internal(err)
	}
	return apps, nil
}
