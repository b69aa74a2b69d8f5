package core

import "encoding/json"

// Message types carried in the Envelope tagged union.
const (
	TypeOffer       = "offer"
	TypeAnswer      = "answer"
	TypeICE         = "ice"
	TypeICEComplete = "ice-complete"
	TypeSubscribe   = "subscribe"
	TypePing        = "ping"
	TypePong        = "pong"
	TypeError       = "error"
)

// SenderRelay is the `from` id on relay-originated messages.
const SenderRelay = "sfu"

// CandidateInit mirrors the wire shape of an ICE candidate. sdpMid and
// sdpMLineIndex are nullable on the wire, hence pointers.
type CandidateInit struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex"`
}

// Envelope is the signaling message exchanged over the websocket, both
// directions. Exactly one payload group is set per type.
type Envelope struct {
	Type      string         `json:"type"`
	From      string         `json:"from,omitempty"`
	To        string         `json:"to,omitempty"`
	SDP       string         `json:"sdp,omitempty"`
	Candidate *CandidateInit `json:"candidate,omitempty"`
	Cameras   []string       `json:"cameras,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Encode marshals the envelope into a Frame ready for TrySend.
func (e Envelope) Encode() (Frame, error) {
	b, err := json.Marshal(e)
	return Frame(b), err
}
