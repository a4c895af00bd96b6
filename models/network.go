package models

import "time"

type NetworkMembership struct {
	VenueID    string    `json:"venue_id"`
	MusicianID string    `json:"musician_id"`
	AddedBy    string    `json:"added_by"`
	CreatedAt  time.Time `json:"created_at"`
}

type VenueManager struct {
	VenueID   string    `json:"venue_id"`
	UserID    string    `json:"user_id"`
	GrantedBy string    `json:"granted_by"`
	CreatedAt time.Time `json:"created_at"`
}

type Venue struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	OwnerID string `json:"owner_id"`
}
