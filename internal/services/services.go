// Package services holds the booking core: the slot application state machine,
// the invitation protocol and the network membership registry. Every mutating
// operation takes the caller's resolved Capabilities explicitly.
package services

import (
	"errors"
	"time"

	"gig-booking/internal/status"
	"gig-booking/internal/store"
	"gig-booking/monitoring"
)

// Deps are the collaborators shared by every service. Notifier and Monitor may
// be nil.
type Deps struct {
	Store    store.Store
	Notifier *Notifier
	Monitor  *monitoring.Monitor
	Clock    func() time.Time
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock().UTC()
	}
	return time.Now().UTC()
}

// storeErr translates a store failure. ErrNotFound becomes notFound when one
// is given; everything else is internal.
func storeErr(err error, notFound *status.Error) error {
	if err == nil {
		return nil
	}
	if notFound != nil && errors.Is(err, store.ErrNotFound) {
		return notFound
	}
	return status.Internal(err)
}

func requireActor(caps *Capabilities) error {
	if caps == nil || caps.ActorID == "" {
		return status.ErrUnauthenticated
	}
	return nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
