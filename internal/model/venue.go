package model

// Venue is a physical location events are held at.  Reference data for
// browsing filters; not part of the booking workflow.
type Venue struct {
	ID       uint64 `json:"venue_id"` // venues.venue_id
	Name     string `json:"name"`     // venues.name
	Location string `json:"location"` // venues.location
	Capacity int    `json:"capacity"` // venues.capacity
}
