package services

import (
	"context"
	"fmt"
	"html"
	"net/mail"

	"gig-booking/models"
	"gig-booking/monitoring"
	"gig-booking/utils"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/mailer"
	pubnub "github.com/pubnub/go"
)

// Mailer delivers a single HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Publisher pushes a realtime message onto a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, message map[string]any) error
}

// Notifier fans domain events out to email and push. Every send runs on the
// dispatcher behind a per-channel circuit breaker; failures are logged and
// counted but never returned. A nil *Notifier drops everything.
type Notifier struct {
	mailer      Mailer
	publisher   Publisher
	mailBreaker *utils.CircuitBreaker
	pushBreaker *utils.CircuitBreaker
	dispatcher  *Dispatcher
	monitor     *monitoring.Monitor
	baseURL     string
}

func NewNotifier(m Mailer, p Publisher, d *Dispatcher, monitor *monitoring.Monitor, baseURL string) *Notifier {
	if d == nil {
		d = NewDispatcher(0)
	}
	return &Notifier{
		mailer:      m,
		publisher:   p,
		mailBreaker: utils.NewCircuitBreaker("email"),
		pushBreaker: utils.NewCircuitBreaker("push"),
		dispatcher:  d,
		monitor:     monitor,
		baseURL:     baseURL,
	}
}

func userChannel(userID string) string {
	return fmt.Sprintf("user-%s", userID)
}

// InvitationURL is the public link for a venue invitation code.
func (n *Notifier) InvitationURL(code string) string {
	if n == nil {
		return ""
	}
	return fmt.Sprintf("%s/invite/%s", n.baseURL, code)
}

func (n *Notifier) push(name, userID string, message map[string]any) {
	if n == nil || n.publisher == nil || userID == "" {
		return
	}
	n.dispatcher.Go(name, func(ctx context.Context) error {
		_, err := n.pushBreaker.Execute(ctx, func() (any, error) {
			return nil, n.publisher.Publish(ctx, userChannel(userID), message)
		})
		if err != nil {
			n.monitor.TrackNotificationFailure("push")
		}
		return err
	})
}

func (n *Notifier) email(name, to, subject, body string) {
	if n == nil || n.mailer == nil || to == "" {
		return
	}
	n.dispatcher.Go(name, func(ctx context.Context) error {
		_, err := n.mailBreaker.Execute(ctx, func() (any, error) {
			return nil, n.mailer.Send(ctx, to, subject, body)
		})
		if err != nil {
			n.monitor.TrackNotificationFailure("email")
		}
		return err
	})
}

func (n *Notifier) ApplicationSubmitted(gig *models.Gig, app *models.Application) {
	n.push("notify.application_submitted", gig.OwnerID, map[string]any{
		"type":           "application_submitted",
		"gig_id":         gig.ID,
		"slot_id":        app.SlotID,
		"application_id": app.ID,
		"instrument":     app.Instrument,
	})
}

// ApplicationAccepted pushes to the applicant and mails the booking
// confirmation when an address is known.
func (n *Notifier) ApplicationAccepted(gig *models.Gig, app *models.Application, applicantEmail string) {
	n.push("notify.application_accepted", app.ApplicantID, map[string]any{
		"type":           "application_accepted",
		"gig_id":         gig.ID,
		"slot_id":        app.SlotID,
		"application_id": app.ID,
	})

	when := gig.StartsAt.Format("Mon 2 Jan 2006 15:04 MST")
	body := fmt.Sprintf(
		"<p>You're booked for <strong>%s</strong> on %s at %s, playing %s.</p>",
		html.EscapeString(gig.Title), when, html.EscapeString(gig.Location), html.EscapeString(app.Instrument),
	)
	n.email("notify.booking_confirmation", applicantEmail, "Booking confirmed: "+gig.Title, body)
}

func (n *Notifier) ApplicationRejected(app *models.Application) {
	n.push("notify.application_rejected", app.ApplicantID, map[string]any{
		"type":           "application_rejected",
		"gig_id":         app.GigID,
		"slot_id":        app.SlotID,
		"application_id": app.ID,
	})
}

func (n *Notifier) GigInvitationGranted(inv *models.GigInvitation) {
	n.push("notify.gig_invitation", inv.MusicianID, map[string]any{
		"type":       "gig_invitation",
		"gig_id":     inv.GigID,
		"instrument": inv.Instrument,
	})
}

func (n *Notifier) VenueInvitationCreated(venue *models.Venue, inv *models.VenueInvitation) {
	if inv.Prefill.Email == nil {
		return
	}
	link := n.InvitationURL(inv.Code)
	body := fmt.Sprintf(
		`<p>%s invited you to join their musician network.</p><p>Your code is <strong>%s</strong>. <a href="%s">Accept the invitation</a>.</p>`,
		html.EscapeString(venue.Name), inv.Code, html.EscapeString(link),
	)
	n.email("notify.venue_invitation", *inv.Prefill.Email, "Join "+venue.Name+" on our network", body)
}

func (n *Notifier) ManagerInvitationCreated(venue *models.Venue, inv *models.VenueManagerInvitation) {
	body := fmt.Sprintf(
		"<p>You were invited to help manage %s.</p><p>Sign in with this address and use code <strong>%s</strong>.</p>",
		html.EscapeString(venue.Name), inv.Code,
	)
	n.email("notify.manager_invitation", inv.Email, "Manage "+venue.Name, body)
}

// PocketBaseMailer sends through the app's configured SMTP or sendmail client.
type PocketBaseMailer struct {
	app core.App
}

func NewPocketBaseMailer(app core.App) *PocketBaseMailer {
	return &PocketBaseMailer{app: app}
}

func (m *PocketBaseMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	meta := m.app.Settings().Meta
	msg := &mailer.Message{
		From:    mail.Address{Name: meta.SenderName, Address: meta.SenderAddress},
		To:      []mail.Address{{Address: to}},
		Subject: subject,
		HTML:    htmlBody,
	}
	return m.app.NewMailClient().Send(msg)
}

// PubNubPublisher adapts a PubNub client to Publisher.
type PubNubPublisher struct {
	pn *pubnub.PubNub
}

func NewPubNubPublisher(pn *pubnub.PubNub) *PubNubPublisher {
	return &PubNubPublisher{pn: pn}
}

func (p *PubNubPublisher) Publish(ctx context.Context, channel string, message map[string]any) error {
	_, _, err := p.pn.Publish().
		Channel(channel).
		Message(message).
		Execute()
	return err
}
