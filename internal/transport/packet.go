package transport

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// Engine.IO v4 packet types
const (
	engineOpen    byte = '0'
	engineClose   byte = '1'
	enginePing    byte = '2'
	enginePong    byte = '3'
	engineMessage byte = '4'
	engineNoop    byte = '6'
)

// Socket.IO v5 packet types, carried inside engine messages
const (
	socketConnect      byte = '0'
	socketDisconnect   byte = '1'
	socketEvent        byte = '2'
	socketAck          byte = '3'
	socketConnectError byte = '4'
)

// MessageEvent is the only event name exchanged with the assistant
const MessageEvent = "message"

var errMalformedPacket = errors.New("malformed packet")

type packet struct {
	engine byte
	socket byte
	data   string
}

// openPayload is the engine handshake sent by the server
type openPayload struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

// heartbeat is how long the server may stay silent before the link is dead
func (o openPayload) heartbeat() time.Duration {
	interval, timeout := o.PingInterval, o.PingTimeout
	if interval <= 0 {
		interval = 25000
	}
	if timeout <= 0 {
		timeout = 20000
	}
	return time.Duration(interval+timeout) * time.Millisecond
}

func parsePacket(raw string) (packet, error) {
	if raw == "" {
		return packet{}, errMalformedPacket
	}
	p := packet{engine: raw[0], data: raw[1:]}
	if p.engine != engineMessage {
		return p, nil
	}
	if p.data == "" {
		return packet{}, fmt.Errorf("%w: empty message", errMalformedPacket)
	}
	p.socket = p.data[0]
	p.data = stripNamespace(p.data[1:])
	return p, nil
}

// stripNamespace drops a "/nsp," prefix; only the root namespace is used
func stripNamespace(data string) string {
	if !strings.HasPrefix(data, "/") {
		return data
	}
	if i := strings.IndexByte(data, ','); i >= 0 {
		return data[i+1:]
	}
	return ""
}

// parseEvent splits an event payload into its name and first argument
func parseEvent(data string) (string, interface{}, error) {
	// Optional ack id precedes the array
	i := 0
	for i < len(data) && data[i] >= '0' && data[i] <= '9' {
		i++
	}
	var args []interface{}
	if err := sonic.UnmarshalString(data[i:], &args); err != nil {
		return "", nil, fmt.Errorf("%w: %v", errMalformedPacket, err)
	}
	if len(args) == 0 {
		return "", nil, fmt.Errorf("%w: event without name", errMalformedPacket)
	}
	name, ok := args[0].(string)
	if !ok {
		return "", nil, fmt.Errorf("%w: event name is not a string", errMalformedPacket)
	}
	var arg interface{}
	if len(args) > 1 {
		arg = args[1]
	}
	return name, arg, nil
}

func parseOpen(data string) (openPayload, error) {
	var open openPayload
	if err := sonic.UnmarshalString(data, &open); err != nil {
		return open, fmt.Errorf("%w: %v", errMalformedPacket, err)
	}
	return open, nil
}

// connectErrorReason extracts the message of a 44 packet
func connectErrorReason(data string) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := sonic.UnmarshalString(data, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	if data != "" {
		return data
	}
	return "connect error"
}

func encodeConnect(token string) (string, error) {
	auth, err := sonic.MarshalString(map[string]string{"token": token})
	if err != nil {
		return "", err
	}
	return string([]byte{engineMessage, socketConnect}) + auth, nil
}

func encodeEvent(name string, arg interface{}) (string, error) {
	body, err := sonic.MarshalString([]interface{}{name, arg})
	if err != nil {
		return "", err
	}
	return string([]byte{engineMessage, socketEvent}) + body, nil
}
