package domain

// SessionState is the negotiation state of one peer session. The happy path
// runs New through Connected; Disconnected, Failed and Closed are terminal
// and tear the session down.
type SessionState string

const (
	SessionNew             SessionState = "new"
	SessionOfferExchanged  SessionState = "offer-exchanged"
	SessionAnswerExchanged SessionState = "answer-exchanged"
	SessionConnecting      SessionState = "connecting"
	SessionConnected       SessionState = "connected"
	SessionDisconnected    SessionState = "disconnected"
	SessionFailed          SessionState = "failed"
	SessionClosed          SessionState = "closed"
)

func (s SessionState) Terminal() bool {
	switch s {
	case SessionDisconnected, SessionFailed, SessionClosed:
		return true
	}
	return false
}

// ChannelState is the connection state reported by the media engine for one
// peer channel.
type ChannelState string

const (
	ChannelNew          ChannelState = "new"
	ChannelConnecting   ChannelState = "connecting"
	ChannelConnected    ChannelState = "connected"
	ChannelDisconnected ChannelState = "disconnected"
	ChannelFailed       ChannelState = "failed"
	ChannelClosed       ChannelState = "closed"
)
