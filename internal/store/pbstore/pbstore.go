// Package pbstore implements store.Store on top of PocketBase collections.
// Conditional transitions are issued as direct dbx updates guarded by the
// expected current status, so two racing writers cannot both succeed.
package pbstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gig-booking/internal/store"
	"gig-booking/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
)

const (
	colUsers              = "users"
	colVenues             = "venues"
	colVenueManagers      = "venue_managers"
	colMusicians          = "musicians"
	colGigs               = "gigs"
	colSlots              = "slots"
	colApplications       = "applications"
	colGigInvitations     = "gig_invitations"
	colVenueInvitations   = "venue_invitations"
	colManagerInvitations = "venue_manager_invitations"
	colNetworkMemberships = "network_memberships"
)

type PocketBase struct {
	app core.App
}

var _ store.Store = (*PocketBase)(nil)

func New(app core.App) *PocketBase {
	return &PocketBase{app: app}
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// isUniqueViolation recognises both the SQLite constraint error and the
// PocketBase record validation error raised for unique indexes.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "must be unique")
}

func dbTime(t time.Time) string {
	dt, err := types.ParseDateTime(t.UTC())
	if err != nil {
		return ""
	}
	return dt.String()
}

func optionalTime(r *core.Record, field string) *time.Time {
	dt := r.GetDateTime(field)
	if dt.IsZero() {
		return nil
	}
	t := dt.Time()
	return &t
}

func (s *PocketBase) newRecord(app core.App, collection string) (*core.Record, error) {
	col, err := app.FindCollectionByNameOrId(collection)
	if err != nil {
		return nil, fmt.Errorf("find collection %s: %w", collection, err)
	}
	return core.NewRecord(col), nil
}

func (s *PocketBase) findFirst(collection, filter string, params dbx.Params) (*core.Record, error) {
	rec, err := s.app.FindFirstRecordByFilter(collection, filter, params)
	if err != nil {
		return nil, notFound(err)
	}
	return rec, nil
}

func (s *PocketBase) exists(collection, filter string, params dbx.Params) (bool, error) {
	_, err := s.findFirst(collection, filter, params)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// conditionalUpdate applies cols to the rows matching where and fails with
// store.ErrConflict when nothing matched.
func conditionalUpdate(app core.App, table string, cols dbx.Params, where dbx.Expression) error {
	res, err := app.DB().Update(table, cols, where).Execute()
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

// Gigs ----------------------------------------------------------------------

func (s *PocketBase) CreateGig(ctx context.Context, gig *models.Gig) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		rec, err := s.newRecord(txApp, colGigs)
		if err != nil {
			return err
		}
		rec.Set("owner", gig.OwnerID)
		rec.Set("venue", gig.VenueID)
		rec.Set("title", gig.Title)
		rec.Set("location", gig.Location)
		rec.Set("starts_at", gig.StartsAt)
		rec.Set("ends_at", gig.EndsAt)
		rec.Set("status", string(gig.Status))
		if err := txApp.SaveWithContext(ctx, rec); err != nil {
			return fmt.Errorf("save gig: %w", err)
		}
		gig.ID = rec.Id
		gig.CreatedAt = rec.GetDateTime("created").Time()
		gig.UpdatedAt = rec.GetDateTime("updated").Time()

		for i := range gig.Slots {
			slotRec, err := s.newRecord(txApp, colSlots)
			if err != nil {
				return err
			}
			gig.Slots[i].GigID = gig.ID
			gig.Slots[i].Position = i
			fillSlotRecord(slotRec, &gig.Slots[i])
			if err := txApp.SaveWithContext(ctx, slotRec); err != nil {
				return fmt.Errorf("save slot %d: %w", i, err)
			}
			gig.Slots[i].ID = slotRec.Id
		}
		return nil
	})
}

func fillSlotRecord(rec *core.Record, slot *models.Slot) {
	rec.Set("gig", slot.GigID)
	rec.Set("position", slot.Position)
	rec.Set("instruments", slot.Instruments)
	rec.Set("invite_only", slot.InviteOnly)
	if slot.Payment != nil {
		rec.Set("payment", slot.Payment.String())
	} else {
		rec.Set("payment", "")
	}
}

func (s *PocketBase) GetGig(ctx context.Context, gigID string) (*models.Gig, error) {
	rec, err := s.app.FindRecordById(colGigs, gigID)
	if err != nil {
		return nil, notFound(err)
	}
	slotRecs, err := s.app.FindRecordsByFilter(colSlots, "gig = {:gig}", "position", -1, 0, dbx.Params{"gig": gigID})
	if err != nil {
		return nil, err
	}

	gig := &models.Gig{
		ID:        rec.Id,
		OwnerID:   rec.GetString("owner"),
		VenueID:   rec.GetString("venue"),
		Title:     rec.GetString("title"),
		Location:  rec.GetString("location"),
		StartsAt:  rec.GetDateTime("starts_at").Time(),
		EndsAt:    rec.GetDateTime("ends_at").Time(),
		Status:    models.GigStatus(rec.GetString("status")),
		CreatedAt: rec.GetDateTime("created").Time(),
		UpdatedAt: rec.GetDateTime("updated").Time(),
		Slots:     make([]models.Slot, 0, len(slotRecs)),
	}
	for _, sr := range slotRecs {
		slot, err := slotFromRecord(sr)
		if err != nil {
			return nil, err
		}
		gig.Slots = append(gig.Slots, slot)
	}
	return gig, nil
}

func slotFromRecord(rec *core.Record) (models.Slot, error) {
	slot := models.Slot{
		ID:         rec.Id,
		GigID:      rec.GetString("gig"),
		Position:   rec.GetInt("position"),
		InviteOnly: rec.GetBool("invite_only"),
	}
	if err := rec.UnmarshalJSONField("instruments", &slot.Instruments); err != nil {
		return models.Slot{}, fmt.Errorf("decode slot %s instruments: %w", rec.Id, err)
	}
	if raw := rec.GetString("payment"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return models.Slot{}, fmt.Errorf("decode slot %s payment: %w", rec.Id, err)
		}
		slot.Payment = &amount
	}
	return slot, nil
}

func (s *PocketBase) UpdateGigStatus(ctx context.Context, gigID string, status models.GigStatus) error {
	rec, err := s.app.FindRecordById(colGigs, gigID)
	if err != nil {
		return notFound(err)
	}
	rec.Set("status", string(status))
	return s.app.SaveWithContext(ctx, rec)
}

// UpdateSlot shares the write transaction queue with AcceptApplication, so
// the accepted-count check cannot interleave with an accept.
func (s *PocketBase) UpdateSlot(ctx context.Context, slot *models.Slot) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		rec, err := txApp.FindRecordById(colSlots, slot.ID)
		if err != nil {
			return notFound(err)
		}
		if rec.GetString("gig") != slot.GigID {
			return store.ErrNotFound
		}
		accepted, err := txApp.CountRecords(colApplications, dbx.HashExp{"slot": slot.ID, "status": string(models.ApplicationAccepted)})
		if err != nil {
			return err
		}
		if accepted > 0 {
			return store.ErrSlotFilled
		}
		slot.Position = rec.GetInt("position")
		fillSlotRecord(rec, slot)
		return txApp.SaveWithContext(ctx, rec)
	})
}

// DeleteGig relies on the cascadeDelete relations of slots, applications and
// gig invitations.
func (s *PocketBase) DeleteGig(ctx context.Context, gigID string) error {
	rec, err := s.app.FindRecordById(colGigs, gigID)
	if err != nil {
		return notFound(err)
	}
	return s.app.DeleteWithContext(ctx, rec)
}

// Applications --------------------------------------------------------------

func applicationFromRecord(rec *core.Record) models.Application {
	return models.Application{
		ID:          rec.Id,
		GigID:       rec.GetString("gig"),
		SlotID:      rec.GetString("slot"),
		ApplicantID: rec.GetString("applicant"),
		Instrument:  rec.GetString("instrument"),
		Status:      models.ApplicationStatus(rec.GetString("status")),
		SubmittedAt: rec.GetDateTime("submitted_at").Time(),
		DecidedAt:   optionalTime(rec, "decided_at"),
	}
}

func (s *PocketBase) InsertApplication(ctx context.Context, app *models.Application) error {
	rec, err := s.newRecord(s.app, colApplications)
	if err != nil {
		return err
	}
	if app.SubmittedAt.IsZero() {
		app.SubmittedAt = time.Now().UTC()
	}
	rec.Set("gig", app.GigID)
	rec.Set("slot", app.SlotID)
	rec.Set("applicant", app.ApplicantID)
	rec.Set("instrument", app.Instrument)
	rec.Set("status", string(app.Status))
	rec.Set("submitted_at", app.SubmittedAt)
	if err := s.app.SaveWithContext(ctx, rec); err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}
	app.ID = rec.Id
	return nil
}

func (s *PocketBase) GetApplication(ctx context.Context, applicationID string) (*models.Application, error) {
	rec, err := s.app.FindRecordById(colApplications, applicationID)
	if err != nil {
		return nil, notFound(err)
	}
	app := applicationFromRecord(rec)
	return &app, nil
}

func (s *PocketBase) listApplications(filter string, params dbx.Params) ([]models.Application, error) {
	recs, err := s.app.FindRecordsByFilter(colApplications, filter, "submitted_at", -1, 0, params)
	if err != nil {
		return nil, err
	}
	out := make([]models.Application, 0, len(recs))
	for _, rec := range recs {
		out = append(out, applicationFromRecord(rec))
	}
	return out, nil
}

func (s *PocketBase) ListApplicationsBySlot(ctx context.Context, slotID string) ([]models.Application, error) {
	return s.listApplications("slot = {:slot}", dbx.Params{"slot": slotID})
}

func (s *PocketBase) ListApplicationsByGig(ctx context.Context, gigID string) ([]models.Application, error) {
	return s.listApplications("gig = {:gig}", dbx.Params{"gig": gigID})
}

func (s *PocketBase) ListApplicationsByApplicant(ctx context.Context, applicantID string) ([]models.Application, error) {
	return s.listApplications("applicant = {:applicant}", dbx.Params{"applicant": applicantID})
}

func (s *PocketBase) AcceptApplication(ctx context.Context, applicationID string, at time.Time) ([]string, error) {
	var rejected []string
	err := s.app.RunInTransaction(func(txApp core.App) error {
		rec, err := txApp.FindRecordById(colApplications, applicationID)
		if err != nil {
			return notFound(err)
		}
		slotID := rec.GetString("slot")

		accepted, err := txApp.CountRecords(colApplications, dbx.HashExp{"slot": slotID, "status": string(models.ApplicationAccepted)})
		if err != nil {
			return err
		}
		if accepted > 0 {
			return store.ErrSlotFilled
		}

		ts := dbTime(at)
		// the partial unique index on (slot) where status='accepted' backs this write
		err = conditionalUpdate(txApp, colApplications,
			dbx.Params{"status": string(models.ApplicationAccepted), "decided_at": ts, "updated": ts},
			dbx.HashExp{"id": applicationID, "status": string(models.ApplicationPending)},
		)
		if isUniqueViolation(err) {
			return store.ErrSlotFilled
		}
		if err != nil {
			return err
		}

		pending, err := txApp.FindRecordsByFilter(colApplications,
			"slot = {:slot} && status = {:status}", "", -1, 0,
			dbx.Params{"slot": slotID, "status": string(models.ApplicationPending)})
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}
		_, err = txApp.DB().Update(colApplications,
			dbx.Params{"status": string(models.ApplicationRejected), "decided_at": ts, "updated": ts},
			dbx.HashExp{"slot": slotID, "status": string(models.ApplicationPending)},
		).Execute()
		if err != nil {
			return err
		}
		for _, p := range pending {
			rejected = append(rejected, p.Id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

func (s *PocketBase) RejectApplication(ctx context.Context, applicationID string, at time.Time) error {
	if _, err := s.app.FindRecordById(colApplications, applicationID); err != nil {
		return notFound(err)
	}
	ts := dbTime(at)
	return conditionalUpdate(s.app, colApplications,
		dbx.Params{"status": string(models.ApplicationRejected), "decided_at": ts, "updated": ts},
		dbx.HashExp{"id": applicationID, "status": string(models.ApplicationPending)},
	)
}

// Gig invitations -----------------------------------------------------------

func gigInvitationFromRecord(rec *core.Record) models.GigInvitation {
	return models.GigInvitation{
		ID:         rec.Id,
		GigID:      rec.GetString("gig"),
		Instrument: rec.GetString("instrument"),
		MusicianID: rec.GetString("musician"),
		InvitedBy:  rec.GetString("invited_by"),
		CreatedAt:  rec.GetDateTime("created").Time(),
	}
}

func (s *PocketBase) InsertGigInvitation(ctx context.Context, inv *models.GigInvitation) error {
	rec, err := s.newRecord(s.app, colGigInvitations)
	if err != nil {
		return err
	}
	rec.Set("gig", inv.GigID)
	rec.Set("instrument", models.NormalizeInstrument(inv.Instrument))
	rec.Set("instrument_key", strings.ToLower(models.NormalizeInstrument(inv.Instrument)))
	rec.Set("musician", inv.MusicianID)
	rec.Set("invited_by", inv.InvitedBy)
	if err := s.app.SaveWithContext(ctx, rec); err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}
	inv.ID = rec.Id
	inv.CreatedAt = rec.GetDateTime("created").Time()
	return nil
}

func (s *PocketBase) FindGigInvitation(ctx context.Context, gigID, instrument, musicianID string) (*models.GigInvitation, error) {
	rec, err := s.findFirst(colGigInvitations,
		"gig = {:gig} && musician = {:musician} && instrument_key = {:key}",
		dbx.Params{"gig": gigID, "musician": musicianID, "key": strings.ToLower(models.NormalizeInstrument(instrument))})
	if err != nil {
		return nil, err
	}
	inv := gigInvitationFromRecord(rec)
	return &inv, nil
}

func (s *PocketBase) GetGigInvitation(ctx context.Context, invitationID string) (*models.GigInvitation, error) {
	rec, err := s.app.FindRecordById(colGigInvitations, invitationID)
	if err != nil {
		return nil, notFound(err)
	}
	inv := gigInvitationFromRecord(rec)
	return &inv, nil
}

func (s *PocketBase) DeleteGigInvitation(ctx context.Context, invitationID string) error {
	rec, err := s.app.FindRecordById(colGigInvitations, invitationID)
	if err != nil {
		return notFound(err)
	}
	return s.app.DeleteWithContext(ctx, rec)
}

func (s *PocketBase) listGigInvitations(filter string, params dbx.Params) ([]models.GigInvitation, error) {
	recs, err := s.app.FindRecordsByFilter(colGigInvitations, filter, "created", -1, 0, params)
	if err != nil {
		return nil, err
	}
	out := make([]models.GigInvitation, 0, len(recs))
	for _, rec := range recs {
		out = append(out, gigInvitationFromRecord(rec))
	}
	return out, nil
}

func (s *PocketBase) ListGigInvitationsByGig(ctx context.Context, gigID string) ([]models.GigInvitation, error) {
	return s.listGigInvitations("gig = {:gig}", dbx.Params{"gig": gigID})
}

func (s *PocketBase) ListGigInvitationsByMusician(ctx context.Context, musicianID string) ([]models.GigInvitation, error) {
	return s.listGigInvitations("musician = {:musician}", dbx.Params{"musician": musicianID})
}

// Venue invitations ---------------------------------------------------------

func contactFieldsFromRecord(rec *core.Record, prefix string) models.ContactFields {
	var fields models.ContactFields
	if v := rec.GetString(prefix + "name"); v != "" {
		fields.Name = &v
	}
	if v := rec.GetString(prefix + "email"); v != "" {
		fields.Email = &v
	}
	if v := rec.GetString(prefix + "phone"); v != "" {
		fields.Phone = &v
	}
	var instruments []string
	if err := rec.UnmarshalJSONField(prefix+"instruments", &instruments); err == nil && len(instruments) > 0 {
		fields.Instruments = instruments
	}
	return fields
}

func venueInvitationFromRecord(rec *core.Record) models.VenueInvitation {
	inv := models.VenueInvitation{
		ID:         rec.Id,
		VenueID:    rec.GetString("venue"),
		Code:       rec.GetString("code"),
		CreatedBy:  rec.GetString("created_by"),
		Prefill:    contactFieldsFromRecord(rec, "musician_"),
		Status:     models.InvitationStatus(rec.GetString("status")),
		ExpiresAt:  rec.GetDateTime("expires_at").Time(),
		AcceptedBy: rec.GetString("accepted_by"),
		AcceptedAt: optionalTime(rec, "accepted_at"),
		CreatedAt:  rec.GetDateTime("created").Time(),
	}
	var accepted models.ContactFields
	if err := rec.UnmarshalJSONField("accepted_fields", &accepted); err == nil && !accepted.IsEmpty() {
		inv.AcceptedFields = &accepted
	}
	return inv
}

func (s *PocketBase) InsertVenueInvitation(ctx context.Context, inv *models.VenueInvitation) error {
	rec, err := s.newRecord(s.app, colVenueInvitations)
	if err != nil {
		return err
	}
	rec.Set("venue", inv.VenueID)
	rec.Set("code", inv.Code)
	rec.Set("created_by", inv.CreatedBy)
	rec.Set("status", string(inv.Status))
	rec.Set("expires_at", inv.ExpiresAt)
	if inv.Prefill.Name != nil {
		rec.Set("musician_name", *inv.Prefill.Name)
	}
	if inv.Prefill.Email != nil {
		rec.Set("musician_email", *inv.Prefill.Email)
	}
	if inv.Prefill.Phone != nil {
		rec.Set("musician_phone", *inv.Prefill.Phone)
	}
	if inv.Prefill.Instruments != nil {
		rec.Set("musician_instruments", inv.Prefill.Instruments)
	}
	if err := s.app.SaveWithContext(ctx, rec); err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}
	inv.ID = rec.Id
	inv.CreatedAt = rec.GetDateTime("created").Time()
	return nil
}

func (s *PocketBase) VenueInvitationCodeExists(ctx context.Context, code string) (bool, error) {
	return s.exists(colVenueInvitations, "code = {:code}", dbx.Params{"code": code})
}

func (s *PocketBase) GetVenueInvitationByCode(ctx context.Context, code string) (*models.VenueInvitation, error) {
	rec, err := s.findFirst(colVenueInvitations, "code = {:code}", dbx.Params{"code": code})
	if err != nil {
		return nil, err
	}
	inv := venueInvitationFromRecord(rec)
	return &inv, nil
}

func (s *PocketBase) ListVenueInvitations(ctx context.Context, venueID string) ([]models.VenueInvitation, error) {
	recs, err := s.app.FindRecordsByFilter(colVenueInvitations, "venue = {:venue}", "-created", -1, 0, dbx.Params{"venue": venueID})
	if err != nil {
		return nil, err
	}
	out := make([]models.VenueInvitation, 0, len(recs))
	for _, rec := range recs {
		out = append(out, venueInvitationFromRecord(rec))
	}
	return out, nil
}

func (s *PocketBase) MarkVenueInvitationAccepted(ctx context.Context, invitationID, acceptedBy string, at time.Time, fields *models.ContactFields) error {
	var encoded any
	if fields != nil && !fields.IsEmpty() {
		raw, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		encoded = string(raw)
	}
	ts := dbTime(at)
	err := conditionalUpdate(s.app, colVenueInvitations,
		dbx.Params{
			"status":          string(models.InvitationAccepted),
			"accepted_by":     acceptedBy,
			"accepted_at":     ts,
			"accepted_fields": encoded,
			"updated":         ts,
		},
		dbx.HashExp{"id": invitationID, "status": string(models.InvitationPending)},
	)
	if errors.Is(err, store.ErrConflict) {
		if _, findErr := s.app.FindRecordById(colVenueInvitations, invitationID); findErr != nil {
			return notFound(findErr)
		}
	}
	return err
}

func (s *PocketBase) RevertVenueInvitation(ctx context.Context, invitationID, acceptedBy string) error {
	return conditionalUpdate(s.app, colVenueInvitations,
		dbx.Params{
			"status":          string(models.InvitationPending),
			"accepted_by":     "",
			"accepted_at":     "",
			"accepted_fields": nil,
			"updated":         dbTime(time.Now()),
		},
		dbx.HashExp{"id": invitationID, "status": string(models.InvitationAccepted), "accepted_by": acceptedBy},
	)
}

// Manager invitations -------------------------------------------------------

func managerInvitationFromRecord(rec *core.Record) models.VenueManagerInvitation {
	return models.VenueManagerInvitation{
		ID:         rec.Id,
		VenueID:    rec.GetString("venue"),
		Code:       rec.GetString("code"),
		Email:      rec.GetString("email"),
		CreatedBy:  rec.GetString("created_by"),
		Status:     models.InvitationStatus(rec.GetString("status")),
		ExpiresAt:  rec.GetDateTime("expires_at").Time(),
		AcceptedBy: rec.GetString("accepted_by"),
		AcceptedAt: optionalTime(rec, "accepted_at"),
		CreatedAt:  rec.GetDateTime("created").Time(),
	}
}

func (s *PocketBase) InsertManagerInvitation(ctx context.Context, inv *models.VenueManagerInvitation) error {
	rec, err := s.newRecord(s.app, colManagerInvitations)
	if err != nil {
		return err
	}
	rec.Set("venue", inv.VenueID)
	rec.Set("code", inv.Code)
	rec.Set("email", inv.Email)
	rec.Set("created_by", inv.CreatedBy)
	rec.Set("status", string(inv.Status))
	rec.Set("expires_at", inv.ExpiresAt)
	if err := s.app.SaveWithContext(ctx, rec); err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}
	inv.ID = rec.Id
	inv.CreatedAt = rec.GetDateTime("created").Time()
	return nil
}

func (s *PocketBase) ManagerInvitationCodeExists(ctx context.Context, code string) (bool, error) {
	return s.exists(colManagerInvitations, "code = {:code}", dbx.Params{"code": code})
}

func (s *PocketBase) GetManagerInvitationByCode(ctx context.Context, code string) (*models.VenueManagerInvitation, error) {
	rec, err := s.findFirst(colManagerInvitations, "code = {:code}", dbx.Params{"code": code})
	if err != nil {
		return nil, err
	}
	inv := managerInvitationFromRecord(rec)
	return &inv, nil
}

func (s *PocketBase) MarkManagerInvitationAccepted(ctx context.Context, invitationID, acceptedBy string, at time.Time) error {
	ts := dbTime(at)
	return conditionalUpdate(s.app, colManagerInvitations,
		dbx.Params{
			"status":      string(models.InvitationAccepted),
			"accepted_by": acceptedBy,
			"accepted_at": ts,
			"updated":     ts,
		},
		dbx.HashExp{"id": invitationID, "status": string(models.InvitationPending)},
	)
}

func (s *PocketBase) RevertManagerInvitation(ctx context.Context, invitationID, acceptedBy string) error {
	return conditionalUpdate(s.app, colManagerInvitations,
		dbx.Params{
			"status":      string(models.InvitationPending),
			"accepted_by": "",
			"accepted_at": "",
			"updated":     dbTime(time.Now()),
		},
		dbx.HashExp{"id": invitationID, "status": string(models.InvitationAccepted), "accepted_by": acceptedBy},
	)
}

// Network -------------------------------------------------------------------

func membershipFromRecord(rec *core.Record) models.NetworkMembership {
	return models.NetworkMembership{
		VenueID:    rec.GetString("venue"),
		MusicianID: rec.GetString("musician"),
		AddedBy:    rec.GetString("added_by"),
		CreatedAt:  rec.GetDateTime("created").Time(),
	}
}

func (s *PocketBase) NetworkMemberExists(ctx context.Context, venueID, musicianID string) (bool, error) {
	return s.exists(colNetworkMemberships, "venue = {:venue} && musician = {:musician}",
		dbx.Params{"venue": venueID, "musician": musicianID})
}

func (s *PocketBase) AddNetworkMember(ctx context.Context, m models.NetworkMembership) (bool, error) {
	found, err := s.NetworkMemberExists(ctx, m.VenueID, m.MusicianID)
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}
	rec, err := s.newRecord(s.app, colNetworkMemberships)
	if err != nil {
		return false, err
	}
	rec.Set("venue", m.VenueID)
	rec.Set("musician", m.MusicianID)
	rec.Set("added_by", m.AddedBy)
	if err := s.app.SaveWithContext(ctx, rec); err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *PocketBase) RemoveNetworkMember(ctx context.Context, venueID, musicianID string) error {
	rec, err := s.findFirst(colNetworkMemberships, "venue = {:venue} && musician = {:musician}",
		dbx.Params{"venue": venueID, "musician": musicianID})
	if err != nil {
		return err
	}
	return s.app.DeleteWithContext(ctx, rec)
}

func (s *PocketBase) listMemberships(filter string, params dbx.Params) ([]models.NetworkMembership, error) {
	recs, err := s.app.FindRecordsByFilter(colNetworkMemberships, filter, "created", -1, 0, params)
	if err != nil {
		return nil, err
	}
	out := make([]models.NetworkMembership, 0, len(recs))
	for _, rec := range recs {
		out = append(out, membershipFromRecord(rec))
	}
	return out, nil
}

func (s *PocketBase) ListNetworkMembers(ctx context.Context, venueID string) ([]models.NetworkMembership, error) {
	return s.listMemberships("venue = {:venue}", dbx.Params{"venue": venueID})
}

func (s *PocketBase) ListNetworksForMusician(ctx context.Context, musicianID string) ([]models.NetworkMembership, error) {
	return s.listMemberships("musician = {:musician}", dbx.Params{"musician": musicianID})
}

// Venues --------------------------------------------------------------------

func (s *PocketBase) GetVenue(ctx context.Context, venueID string) (*models.Venue, error) {
	rec, err := s.app.FindRecordById(colVenues, venueID)
	if err != nil {
		return nil, notFound(err)
	}
	return &models.Venue{ID: rec.Id, Name: rec.GetString("name"), OwnerID: rec.GetString("owner")}, nil
}

func (s *PocketBase) ListManagedVenueIDs(ctx context.Context, userID string) ([]string, error) {
	seen := map[string]bool{}
	ids := []string{}

	owned, err := s.app.FindRecordsByFilter(colVenues, "owner = {:user}", "", -1, 0, dbx.Params{"user": userID})
	if err != nil {
		return nil, err
	}
	for _, rec := range owned {
		if !seen[rec.Id] {
			seen[rec.Id] = true
			ids = append(ids, rec.Id)
		}
	}

	managed, err := s.app.FindRecordsByFilter(colVenueManagers, "user = {:user}", "", -1, 0, dbx.Params{"user": userID})
	if err != nil {
		return nil, err
	}
	for _, rec := range managed {
		venueID := rec.GetString("venue")
		if !seen[venueID] {
			seen[venueID] = true
			ids = append(ids, venueID)
		}
	}
	return ids, nil
}

func (s *PocketBase) AddVenueManager(ctx context.Context, m models.VenueManager) (bool, error) {
	found, err := s.exists(colVenueManagers, "venue = {:venue} && user = {:user}",
		dbx.Params{"venue": m.VenueID, "user": m.UserID})
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}
	rec, err := s.newRecord(s.app, colVenueManagers)
	if err != nil {
		return false, err
	}
	rec.Set("venue", m.VenueID)
	rec.Set("user", m.UserID)
	rec.Set("granted_by", m.GrantedBy)
	if err := s.app.SaveWithContext(ctx, rec); err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Profiles ------------------------------------------------------------------

func (s *PocketBase) GetUser(ctx context.Context, userID string) (*models.User, error) {
	rec, err := s.app.FindRecordById(colUsers, userID)
	if err != nil {
		return nil, notFound(err)
	}
	return &models.User{
		ID:    rec.Id,
		Email: rec.Email(),
		Name:  rec.GetString("name"),
		Phone: rec.GetString("phone"),
		Role:  rec.GetString("role"),
	}, nil
}

func (s *PocketBase) GetMusician(ctx context.Context, userID string) (*models.Musician, error) {
	rec, err := s.findFirst(colMusicians, "user = {:user}", dbx.Params{"user": userID})
	if err != nil {
		return nil, err
	}
	m := &models.Musician{
		UserID: rec.GetString("user"),
		Name:   rec.GetString("name"),
		Email:  rec.GetString("email"),
		Phone:  rec.GetString("phone"),
	}
	if err := rec.UnmarshalJSONField("instruments", &m.Instruments); err != nil {
		return nil, fmt.Errorf("decode musician %s instruments: %w", rec.Id, err)
	}
	return m, nil
}

func (s *PocketBase) SaveMusician(ctx context.Context, m *models.Musician) error {
	rec, err := s.findFirst(colMusicians, "user = {:user}", dbx.Params{"user": m.UserID})
	if errors.Is(err, store.ErrNotFound) {
		rec, err = s.newRecord(s.app, colMusicians)
		if err != nil {
			return err
		}
		rec.Set("user", m.UserID)
	} else if err != nil {
		return err
	}
	rec.Set("name", m.Name)
	rec.Set("email", m.Email)
	rec.Set("phone", m.Phone)
	rec.Set("instruments", m.Instruments)
	return s.app.SaveWithContext(ctx, rec)
}
