// Package audio records microphone clips and turns them into outbound audio
// envelopes.
//
// A Controller owns at most one recording. Bytes read from the Source are
// buffered and cut into chunks every ChunkInterval; Stop, or the MaxDuration
// ceiling, joins the chunks into a Blob and passes it to the Handoff
// callback. Transmit then base64-encodes the blob, sends it, and returns the
// local user event so the sender sees the clip without waiting for the
// server.
package audio
