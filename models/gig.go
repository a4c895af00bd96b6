package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type GigStatus string

const (
	GigStatusOpen      GigStatus = "open"
	GigStatusFilled    GigStatus = "filled"
	GigStatusCancelled GigStatus = "cancelled"
)

type Gig struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	VenueID   string    `json:"venue_id,omitempty"`
	Title     string    `json:"title"`
	Location  string    `json:"location"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Status    GigStatus `json:"status"` // open, filled, cancelled
	Slots     []Slot    `json:"slots"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Slot is one musician position on a gig. Every instrument in Instruments is
// required at the same time.
type Slot struct {
	ID          string           `json:"id"`
	GigID       string           `json:"gig_id"`
	Position    int              `json:"position"`
	Instruments []string         `json:"instruments"`
	InviteOnly  bool             `json:"invite_only"`
	Payment     *decimal.Decimal `json:"payment,omitempty"`
}

func (g *Gig) SlotByID(slotID string) (*Slot, bool) {
	for i := range g.Slots {
		if g.Slots[i].ID == slotID {
			return &g.Slots[i], true
		}
	}
	return nil, false
}

// RequiresInstrument reports whether the instrument is required by any slot.
func (g *Gig) RequiresInstrument(instrument string) bool {
	for _, slot := range g.Slots {
		if slot.Requires(instrument) {
			return true
		}
	}
	return false
}

// StatusAfterDecision returns the status the gig should carry given the set of
// slot ids that hold an accepted application. Only open gigs move to filled.
func (g *Gig) StatusAfterDecision(filled map[string]bool) GigStatus {
	if g.Status != GigStatusOpen || len(g.Slots) == 0 {
		return g.Status
	}
	for _, slot := range g.Slots {
		if !filled[slot.ID] {
			return GigStatusOpen
		}
	}
	return GigStatusFilled
}

func (s Slot) Requires(instrument string) bool {
	return containsInstrument(s.Instruments, instrument)
}

// NormalizeInstrument trims and collapses inner whitespace. Comparison between
// instruments is case-insensitive, display keeps the first spelling seen.
func NormalizeInstrument(instrument string) string {
	return strings.Join(strings.Fields(instrument), " ")
}

// NormalizeInstruments drops empty entries and case-insensitive duplicates.
func NormalizeInstruments(instruments []string) []string {
	out := make([]string, 0, len(instruments))
	for _, raw := range instruments {
		name := NormalizeInstrument(raw)
		if name == "" || containsInstrument(out, name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

func containsInstrument(list []string, instrument string) bool {
	want := NormalizeInstrument(instrument)
	if want == "" {
		return false
	}
	for _, have := range list {
		if strings.EqualFold(NormalizeInstrument(have), want) {
			return true
		}
	}
	return false
}
