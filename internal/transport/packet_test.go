package transport

import (
	"testing"
	"time"

	"github.com/GriffinCanCode/SophiChat/client/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePacket(t *testing.T) {
	tests := []struct {
		raw    string
		engine byte
		socket byte
		data   string
	}{
		{`0{"sid":"abc"}`, engineOpen, 0, `{"sid":"abc"}`},
		{"2", enginePing, 0, ""},
		{`40{"sid":"x"}`, engineMessage, socketConnect, `{"sid":"x"}`},
		{`42["message","hi"]`, engineMessage, socketEvent, `["message","hi"]`},
		{`42/chat,["message","hi"]`, engineMessage, socketEvent, `["message","hi"]`},
		{`44{"message":"nope"}`, engineMessage, socketConnectError, `{"message":"nope"}`},
		{"41", engineMessage, socketDisconnect, ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			p, err := parsePacket(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.engine, p.engine)
			assert.Equal(t, tt.socket, p.socket)
			assert.Equal(t, tt.data, p.data)
		})
	}

	_, err := parsePacket("")
	assert.ErrorIs(t, err, errMalformedPacket)
	_, err = parsePacket("4")
	assert.ErrorIs(t, err, errMalformedPacket)
}

func TestParseEvent(t *testing.T) {
	name, arg, err := parseEvent(`["message",{"text":"hola"}]`)
	require.NoError(t, err)
	assert.Equal(t, "message", name)
	assert.Equal(t, map[string]interface{}{"text": "hola"}, arg)

	name, arg, err = parseEvent(`12["message","plain"]`)
	require.NoError(t, err)
	assert.Equal(t, "message", name)
	assert.Equal(t, "plain", arg)

	_, arg, err = parseEvent(`["ping"]`)
	require.NoError(t, err)
	assert.Nil(t, arg)

	for _, bad := range []string{`[]`, `[1,2]`, `not json`} {
		_, _, err := parseEvent(bad)
		assert.ErrorIs(t, err, errMalformedPacket, bad)
	}
}

func TestEncode(t *testing.T) {
	connect, err := encodeConnect("tok")
	require.NoError(t, err)
	assert.Equal(t, `40{"token":"tok"}`, connect)

	event, err := encodeEvent(MessageEvent, types.OutboundEnvelope{Message: "hi", Timestamp: "2024-01-01T00:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, `42["message",{"message":"hi","timestamp":"2024-01-01T00:00:00Z"}]`, event)
}

func TestOpenHeartbeat(t *testing.T) {
	open, err := parseOpen(`{"sid":"s","pingInterval":100,"pingTimeout":50}`)
	require.NoError(t, err)
	assert.Equal(t, 150*time.Millisecond, open.heartbeat())
	assert.Equal(t, 45*time.Second, openPayload{}.heartbeat())
}

func TestConnectErrorReason(t *testing.T) {
	assert.Equal(t, "Not authorized", connectErrorReason(`{"message":"Not authorized"}`))
	assert.Equal(t, `"raw"`, connectErrorReason(`"raw"`))
	assert.Equal(t, "connect error", connectErrorReason(""))
}
