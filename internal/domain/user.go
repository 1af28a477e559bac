// Package domain contains entities without logic, just meta-data.
package domain

// UserID is the stable logical identity spanning all of a user's
// transport channels, independent of any one channel's connection id.
type UserID string

// ChannelKind names one of the three transport channels a user keeps open.
type ChannelKind string

const (
	ChannelMain   ChannelKind = "main"
	ChannelVideo  ChannelKind = "video"
	ChannelScreen ChannelKind = "screen"
)
