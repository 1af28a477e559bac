package core

// Frame is an encoded wire message.
type Frame []byte

// ChannelID identifies one transport connection. A user holds up to three
// (main, video, screen); none of them implies the others.
type ChannelID string

// SignalConnection abstracts a transport endpoint.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
