package app

import "github.com/okulov/huddle/internal/domain"

// Direct peer links are only meaningful for exactly two parties; any other
// membership count relays through the server.
func modeFor(participants int) domain.Mode {
	if participants == 2 {
		return domain.ModeP2P
	}
	return domain.ModeCS
}

// p2pTargetAfterJoin picks the responder side of a fresh P2P link: the
// participant that was already present. The joiner initiates toward it.
func p2pTargetAfterJoin(participants map[domain.UserID]string, joiner domain.UserID) domain.UserID {
	for id := range participants {
		if id != joiner {
			return id
		}
	}
	return ""
}

// p2pTargetAfterLeave picks the responder when a room shrinks back to two.
// The lexicographically smallest id is the target, so both remaining members
// agree on who initiates without any join-order bookkeeping.
func p2pTargetAfterLeave(participants map[domain.UserID]string) domain.UserID {
	var target domain.UserID
	for id := range participants {
		if target == "" || id < target {
			target = id
		}
	}
	return target
}
