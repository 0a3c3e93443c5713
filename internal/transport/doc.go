// Package transport supervises the real-time channel to the assistant.
//
// A Session speaks a minimal Engine.IO v4 / Socket.IO v5 dialect over a
// single gorilla/websocket connection:
//
//	server  0{"sid":...,"pingInterval":...}   engine open
//	client  40{"token":"<bearer>"}            namespace connect with auth
//	server  40{"sid":...}                     ack, state becomes Connected
//	server  44{"message":...}                 connect_error
//	both    42["message",<payload>]           chat traffic
//	server  2 / client 3                      heartbeat
//	server  41                                namespace disconnect
//
// States move Disconnected -> Connecting -> Connected and fall to
// ErrorState on failures, from where a fixed-delay retry policy reconnects.
// A server namespace disconnect is final. Once retries are exhausted an
// EventFailed is published and the session returns to Disconnected.
//
// Connect and Close never block. Everything the session learns is published
// in arrival order on Events(), stamped with the epoch of the Connect or
// Close that produced it. Consumers drop events whose epoch is not Epoch().
// Shutdown is a terminal Close that also releases the event pump.
package transport
