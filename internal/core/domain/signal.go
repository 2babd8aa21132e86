package domain

import "fmt"

// SignalKind discriminates the negotiation payloads forwarded between a host
// and a viewer.
type SignalKind string

const (
	SignalOffer        SignalKind = "offer"
	SignalAnswer       SignalKind = "answer"
	SignalICECandidate SignalKind = "ice-candidate"
)

// SessionDescription is an SDP description plus its type string.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// ICECandidate mirrors the candidate init shape used on the wire.
type ICECandidate struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

// SignalEnvelope is the negotiation message carried inside a signal frame's
// payload. offer and answer carry a description; ice-candidate carries a
// candidate.
type SignalEnvelope struct {
	Kind        SignalKind          `json:"kind"`
	Description *SessionDescription `json:"description,omitempty"`
	Candidate   *ICECandidate       `json:"candidate,omitempty"`
}

func (e SignalEnvelope) Validate() error {
	switch e.Kind {
	case SignalOffer, SignalAnswer:
		if e.Description == nil {
			return fmt.Errorf("%s envelope missing description", e.Kind)
		}
	case SignalICECandidate:
		if e.Candidate == nil {
			return fmt.Errorf("ice-candidate envelope missing candidate")
		}
	default:
		return fmt.Errorf("unknown signal kind %q", e.Kind)
	}
	return nil
}

func OfferEnvelope(desc SessionDescription) SignalEnvelope {
	return SignalEnvelope{Kind: SignalOffer, Description: &desc}
}

func AnswerEnvelope(desc SessionDescription) SignalEnvelope {
	return SignalEnvelope{Kind: SignalAnswer, Description: &desc}
}

func CandidateEnvelope(cand ICECandidate) SignalEnvelope {
	return SignalEnvelope{Kind: SignalICECandidate, Candidate: &cand}
}
