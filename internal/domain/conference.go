package domain

type ConferenceID string

// Mode is the media topology of a conference.
type Mode string

const (
	// ModeCS relays all media through the server; audio mixing is active.
	ModeCS Mode = "cs"
	// ModeP2P means exactly two participants talk directly; the server only signals.
	ModeP2P Mode = "p2p"
)

const DefaultMaxParticipants = 10

// Conference is a named group session with bounded membership.
// Participants maps a user's logical id to its display name.
type Conference struct {
	ID              ConferenceID      `json:"id"`
	Name            string            `json:"name"`
	CreatorID       UserID            `json:"creator_id"`
	Participants    map[UserID]string `json:"participants"`
	MaxParticipants int               `json:"max_participants"`
	Mode            Mode              `json:"mode"`
}

// Clone returns a deep copy safe to hand out past the owning lock.
func (c *Conference) Clone() *Conference {
	cp := *c
	cp.Participants = make(map[UserID]string, len(c.Participants))
	for id, name := range c.Participants {
		cp.Participants[id] = name
	}
	return &cp
}
