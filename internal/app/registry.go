package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/okulov/huddle/internal/core"
	"github.com/okulov/huddle/internal/domain"
)

type binding struct {
	User domain.UserID
	Kind domain.ChannelKind
}

// Registry correlates logical users with their transport channels. It keeps
// a forward map (user -> kind -> channel) for sends and a reverse map
// (channel -> user/kind) so a channel-scoped disconnect can be pruned
// without scanning anything else. It also owns the live connection table.
type Registry struct {
	mu        sync.RWMutex
	byUser    map[domain.UserID]map[domain.ChannelKind]core.ChannelID
	byChannel map[core.ChannelID]binding
	conns     map[core.ChannelID]core.SignalConnection
}

func NewRegistry() *Registry {
	return &Registry{
		byUser:    make(map[domain.UserID]map[domain.ChannelKind]core.ChannelID),
		byChannel: make(map[core.ChannelID]binding),
		conns:     make(map[core.ChannelID]core.SignalConnection),
	}
}

// Attach stores the live connection for a channel. Called by the adapter as
// soon as the transport is up, before any event arrives on it.
func (r *Registry) Attach(ch core.ChannelID, conn core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[ch] = conn
}

// Register binds a channel to a logical user. Last write for a given
// (user, kind) wins; the superseded channel loses its reverse entry.
func (r *Registry) Register(user domain.UserID, kind domain.ChannelKind, ch core.ChannelID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds, ok := r.byUser[user]
	if !ok {
		kinds = make(map[domain.ChannelKind]core.ChannelID, 3)
		r.byUser[user] = kinds
	}
	if old, ok := kinds[kind]; ok && old != ch {
		delete(r.byChannel, old)
	}
	kinds[kind] = ch
	r.byChannel[ch] = binding{User: user, Kind: kind}
	log.Info().Str("module", "app.registry").Str("user", string(user)).
		Str("kind", string(kind)).Str("channel", string(ch)).Msg("registered connection")
}

func (r *Registry) Lookup(user domain.UserID, kind domain.ChannelKind) (core.ChannelID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.byUser[user][kind]
	return ch, ok
}

// Conn resolves a user's live connection for one channel kind.
func (r *Registry) Conn(user domain.UserID, kind domain.ChannelKind) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.byUser[user][kind]
	if !ok {
		return nil, false
	}
	conn, ok := r.conns[ch]
	return conn, ok
}

// ConnsOfKind snapshots every live connection registered under kind.
// Used for the one globally-scoped notice (conference_created).
func (r *Registry) ConnsOfKind(kind domain.ChannelKind, except domain.UserID) []core.SignalConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.SignalConnection, 0, len(r.byUser))
	for user, kinds := range r.byUser {
		if user == except {
			continue
		}
		ch, ok := kinds[kind]
		if !ok {
			continue
		}
		if conn, ok := r.conns[ch]; ok {
			out = append(out, conn)
		}
	}
	return out
}

// PruneByChannelID removes whatever binding references a now-dead channel.
// The disconnect notification is channel-scoped only, so this reverse lookup
// is the single place the dead channel is traced back to its user. A user's
// other channels are untouched.
func (r *Registry) PruneByChannelID(ch core.ChannelID) (domain.UserID, domain.ChannelKind, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, ch)
	b, ok := r.byChannel[ch]
	if !ok {
		return "", "", false
	}
	delete(r.byChannel, ch)
	if kinds, ok := r.byUser[b.User]; ok {
		if kinds[b.Kind] == ch {
			delete(kinds, b.Kind)
		}
		if len(kinds) == 0 {
			delete(r.byUser, b.User)
		}
	}
	log.Info().Str("module", "app.registry").Str("user", string(b.User)).
		Str("kind", string(b.Kind)).Str("channel", string(ch)).Msg("pruned connection")
	return b.User, b.Kind, true
}
