// Package protocol defines the wire events carried over the websocket
// channels. Every message is a single JSON object whose "type" field names
// one of the EventType constants below; dispatchers switch over the closed
// set and reject anything else.
package protocol

import (
	"encoding/json"

	"github.com/okulov/huddle/internal/domain"
)

type EventType string

const (
	EvRegisterConnection     EventType = "register_connection"
	EvCreateConference       EventType = "create_conference"
	EvJoinConference         EventType = "join_conference"
	EvJoinConferenceFailed   EventType = "join_conference_failed"
	EvLeaveConference        EventType = "leave_conference"
	EvCloseConference        EventType = "close_conference"
	EvGetConferences         EventType = "get_conferences"
	EvConferenceListResponse EventType = "conference_list_response"
	EvConferenceCreated      EventType = "conference_created"
	EvConferenceJoined       EventType = "conference_joined"
	EvParticipantJoined      EventType = "participant_joined"
	EvParticipantLeft        EventType = "participant_left"
	EvConferenceClosed       EventType = "conference_closed"
	EvSendMessage            EventType = "send_message"
	EvMessageReceived        EventType = "message_received"
	EvAudio                  EventType = "audio"
	EvVideo                  EventType = "video"
	EvScreenShare            EventType = "screen_share"
	EvVideoStopped           EventType = "video_stopped"
	EvScreenShareStopped     EventType = "screen_share_stopped"
	EvP2POffer               EventType = "p2p_offer"
	EvP2PAnswer              EventType = "p2p_answer"
	EvICECandidate           EventType = "ice_candidate"
	EvModeChange             EventType = "mode_change"
)

// Peek extracts the event type without decoding the full payload.
func Peek(data []byte) (EventType, error) {
	var env struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return "", err
	}
	return env.Type, nil
}

type RegisterConnection struct {
	Type   EventType     `json:"type"`
	UserID domain.UserID `json:"user_id"`
}

type CreateConference struct {
	Type     EventType     `json:"type"`
	Name     string        `json:"name"`
	Username string        `json:"username"`
	UserID   domain.UserID `json:"user_id"`
}

type JoinConference struct {
	Type         EventType           `json:"type"`
	ConferenceID domain.ConferenceID `json:"conference_id"`
	Username     string              `json:"username"`
	UserID       domain.UserID       `json:"user_id"`
}

type JoinConferenceFailed struct {
	Type         EventType           `json:"type"`
	ConferenceID domain.ConferenceID `json:"conference_id"`
	Reason       string              `json:"reason,omitempty"`
}

type LeaveConference struct {
	Type         EventType           `json:"type"`
	ConferenceID domain.ConferenceID `json:"conference_id"`
	UserID       domain.UserID       `json:"user_id"`
}

type CloseConference struct {
	Type         EventType           `json:"type"`
	ConferenceID domain.ConferenceID `json:"conference_id"`
	UserID       domain.UserID       `json:"user_id"`
}

type GetConferences struct {
	Type EventType `json:"type"`
}

type ConferenceListResponse struct {
	Type        EventType            `json:"type"`
	Conferences []*domain.Conference `json:"conferences"`
}

// ConferenceCreated is the lightweight global notice for list refresh;
// only the creator receives the full state via ConferenceJoined.
type ConferenceCreated struct {
	Type         EventType           `json:"type"`
	ConferenceID domain.ConferenceID `json:"conference_id"`
	Name         string              `json:"name"`
}

type ConferenceJoined struct {
	Type       EventType          `json:"type"`
	Conference *domain.Conference `json:"conference"`
}

type ParticipantJoined struct {
	Type         EventType           `json:"type"`
	ConferenceID domain.ConferenceID `json:"conference_id"`
	ClientID     domain.UserID       `json:"client_id"`
	ClientName   string              `json:"client_name"`
}

type ParticipantLeft struct {
	Type         EventType           `json:"type"`
	ConferenceID domain.ConferenceID `json:"conference_id"`
	ClientID     domain.UserID       `json:"client_id"`
	ClientName   string              `json:"client_name"`
}

type ConferenceClosed struct {
	Type         EventType           `json:"type"`
	ConferenceID domain.ConferenceID `json:"conference_id"`
}

type SendMessage struct {
	Type         EventType           `json:"type"`
	ConferenceID domain.ConferenceID `json:"conference_id"`
	Message      string              `json:"message"`
	UserID       domain.UserID       `json:"user_id"`
}

type MessageReceived struct {
	Type    EventType `json:"type"`
	Sender  string    `json:"sender"`
	Message string    `json:"message"`
}

// Media carries audio, video and screen-share frames. Data is raw bytes
// (base64 on the wire). Mixed marks server-side mixdown output.
type Media struct {
	Type         EventType           `json:"type"`
	ConferenceID domain.ConferenceID `json:"conference_id"`
	Data         []byte              `json:"data"`
	UserID       domain.UserID       `json:"user_id"`
	Mixed        bool                `json:"mixed,omitempty"`
}

// MediaStopped covers video_stopped and screen_share_stopped.
type MediaStopped struct {
	Type         EventType           `json:"type"`
	ConferenceID domain.ConferenceID `json:"conference_id"`
	UserID       domain.UserID       `json:"user_id"`
}

// Signaling covers p2p_offer, p2p_answer and ice_candidate. The payload is
// opaque to the server; the relay only attaches the sender's identity.
type Signaling struct {
	Type         EventType           `json:"type"`
	ConferenceID domain.ConferenceID `json:"conference_id"`
	Payload      json.RawMessage     `json:"payload"`
	UserID       domain.UserID       `json:"user_id"`
}

type ModeChange struct {
	Type         EventType           `json:"type"`
	ConferenceID domain.ConferenceID `json:"conference_id"`
	Mode         domain.Mode         `json:"mode"`
	TargetSID    domain.UserID       `json:"target_sid,omitempty"`
}
