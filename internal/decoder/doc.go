// Package decoder normalizes inbound frames into chat events.
//
// The upstream wire format grew without a version tag, so classification is
// an ordered rule table where the first match wins:
//
//  1. string frames are parsed as JSON; unparsable strings stay literal text
//  2. transcription: status "transcription_complete" becomes a user event
//  3. ack: received/processing/processing_audio statuses with a messageType
//     are skipped
//  4. plumbing: bare socketId+timestamp frames are skipped
//  5. audio: base64 audioData is stored in the blob registry
//  6. text: legacy 42["message","..."] envelopes and the message, content,
//     userMessage and text fields, with quoteData.graphs as image
//     attachments; anything else is stringified
//  7. residual: text that still looks like a socket envelope is skipped
//
// Decode never returns an error. Shapes nobody anticipated are shown as
// their JSON text rather than dropped.
package decoder
