package signal

import (
	"encoding/json"
	"testing"

	"beamshare/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeClient_ValidFrames(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want domain.ClientMessage
	}{
		{
			name: "register host",
			raw:  `{"type":"register-host"}`,
			want: domain.ClientMessage{Type: domain.MsgRegisterHost},
		},
		{
			name: "join room",
			raw:  `{"type":"join-room","code":"482913"}`,
			want: domain.ClientMessage{Type: domain.MsgJoinRoom, Code: "482913"},
		},
		{
			name: "leave room",
			raw:  `{"type":"leave-room"}`,
			want: domain.ClientMessage{Type: domain.MsgLeaveRoom},
		},
		{
			name: "signal to host",
			raw:  `{"type":"signal-host","payload":{"kind":"answer","description":{"type":"answer","sdp":"v=0"}}}`,
			want: domain.ClientMessage{
				Type:    domain.MsgSignalHost,
				Payload: json.RawMessage(`{"kind":"answer","description":{"type":"answer","sdp":"v=0"}}`),
			},
		},
		{
			name: "signal to viewer",
			raw:  `{"type":"signal-viewer","viewerId":"v-1","payload":{"kind":"offer","description":{"type":"offer","sdp":"v=0"}}}`,
			want: domain.ClientMessage{
				Type:     domain.MsgSignalViewer,
				ViewerID: "v-1",
				Payload:  json.RawMessage(`{"kind":"offer","description":{"type":"offer","sdp":"v=0"}}`),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, relayErr := DecodeClient([]byte(tt.raw))
			require.Nil(t, relayErr)
			assert.Equal(t, tt.want.Type, got.Type)
			assert.Equal(t, tt.want.Code, got.Code)
			assert.Equal(t, tt.want.ViewerID, got.ViewerID)
			if tt.want.Payload != nil {
				assert.JSONEq(t, string(tt.want.Payload), string(got.Payload))
			}
		})
	}
}

func TestDecodeClient_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		reason domain.Reason
	}{
		{"truncated json", `{"type":"regis`, domain.ReasonInvalidJSON},
		{"not json at all", `hello there`, domain.ReasonInvalidJSON},
		{"valid json, wrong shape", `[1,2,3]`, domain.ReasonInvalidMessage},
		{"missing type", `{"code":"482913"}`, domain.ReasonInvalidMessage},
		{"unknown type", `{"type":"describe-room"}`, domain.ReasonUnsupportedMessage},
		{"signal-host without payload", `{"type":"signal-host"}`, domain.ReasonInvalidMessage},
		{"signal-viewer without target", `{"type":"signal-viewer","payload":{"kind":"offer"}}`, domain.ReasonInvalidMessage},
		{"signal-viewer without payload", `{"type":"signal-viewer","viewerId":"v-1"}`, domain.ReasonInvalidMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, relayErr := DecodeClient([]byte(tt.raw))
			require.NotNil(t, relayErr)
			assert.Equal(t, tt.reason, relayErr.Reason)
			assert.False(t, relayErr.Recoverable)
		})
	}
}

func TestClientRoundTrip(t *testing.T) {
	msg := domain.ClientMessage{Type: domain.MsgJoinRoom, Code: "482913"}
	data, err := EncodeClient(msg)
	require.NoError(t, err)

	got, relayErr := DecodeClient(data)
	require.Nil(t, relayErr)
	assert.Equal(t, msg, got)
}

func TestDecodeRelay(t *testing.T) {
	raw := `{"type":"error","reason":"room-not-found","recoverable":true}`
	msg, err := DecodeRelay([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, domain.MsgError, msg.Type)
	assert.Equal(t, "room-not-found", msg.Reason)
	assert.True(t, msg.Recoverable)
}

func TestEncodeRelay_OmitsRecoverableWhenFalse(t *testing.T) {
	data, err := EncodeRelay(domain.ErrorMessage(domain.ErrNotAuthorized))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "recoverable")

	data, err = EncodeRelay(domain.ErrorMessage(domain.ErrRoomNotFound))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"recoverable":true`)
}

func TestDecodeEnvelope(t *testing.T) {
	mid := "0"
	idx := uint16(0)
	env := domain.CandidateEnvelope(domain.ICECandidate{
		Candidate:     "candidate:1 1 udp 2130706431 10.0.0.1 54321 typ host",
		SDPMid:        &mid,
		SDPMLineIndex: &idx,
	})
	raw, err := EncodeEnvelope(env)
	require.NoError(t, err)

	got, err := DecodeEnvelope(raw)
	require.NoError(t, err)
	require.NotNil(t, got.Candidate)
	assert.Equal(t, env.Candidate.Candidate, got.Candidate.Candidate)
	assert.Equal(t, "0", *got.Candidate.SDPMid)
}

func TestDecodeEnvelope_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown kind", `{"kind":"renegotiate"}`},
		{"offer without description", `{"kind":"offer"}`},
		{"candidate without candidate", `{"kind":"ice-candidate"}`},
		{"not an object", `"offer"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEnvelope(json.RawMessage(tt.raw))
			assert.Error(t, err)
		})
	}
}
