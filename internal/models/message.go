package models

// Type is the `type` discriminator carried by every signaling message.
type Type string

// Client-facing message kinds.
const (
	TypeConnected    Type = "connected"
	TypeJoinRoom     Type = "join-room"
	TypeLeaveRoom    Type = "leave-room"
	TypeOffer        Type = "offer"
	TypeAnswer       Type = "answer"
	TypeICECandidate Type = "ice-candidate"
	TypeUserJoined   Type = "user-joined"
	TypeUserLeft     Type = "user-left"
)

// Bridge protocol kinds, exchanged with the upstream backend.
const (
	TypeCreatePeer            Type = "create-peer"
	TypeDestroyPeer           Type = "destroy-peer"
	TypePeerCreated           Type = "peer-created"
	TypePeerDestroyed         Type = "peer-destroyed"
	TypeICECandidateGenerated Type = "ice-candidate-generated"
	TypeConnectionState       Type = "connection-state"
)

// IsSignal reports whether t is a session-setup payload that is relayed
// verbatim between room members.
func (t Type) IsSignal() bool {
	return t == TypeOffer || t == TypeAnswer || t == TypeICECandidate
}

// Envelope is the common shape of every signaling message. Only the
// fields relevant to a given Type are populated; the rest marshal away.
//
// The SessionID and RoomID fields are correlation data for clients.
// Routing never trusts them: the relay always resolves the sender's
// current room from the registry.
type Envelope struct {
	Type          Type    `json:"type"`
	SessionID     string  `json:"session_id,omitempty"`
	RoomID        string  `json:"room_id,omitempty"`
	SDP           string  `json:"sdp,omitempty"`
	Candidate     string  `json:"candidate,omitempty"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
	Success       *bool   `json:"success,omitempty"`
	ClientID      string  `json:"clientId,omitempty"`
	Timestamp     int64   `json:"timestamp,omitempty"`
	State         string  `json:"state,omitempty"`
}

// Bool returns a pointer suitable for Envelope.Success.
func Bool(v bool) *bool {
	return &v
}
