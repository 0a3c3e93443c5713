package types

import "time"

// EnvelopeType distinguishes outbound payload shapes
type EnvelopeType string

const (
	EnvelopeText  EnvelopeType = "text"
	EnvelopeAudio EnvelopeType = "audio"
)

// OutboundEnvelope is what the client sends on the real-time channel.
//
// Text envelopes serialize as {message, timestamp}; audio envelopes as
// {type: "audio", content, metadata: {mimeType, size}}.
type OutboundEnvelope struct {
	Type      EnvelopeType   `json:"type,omitempty"`
	Message   string         `json:"message,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
	Content   string         `json:"content,omitempty"`
	Metadata  *AudioMetadata `json:"metadata,omitempty"`
}

// AudioMetadata describes an encoded audio payload
type AudioMetadata struct {
	MIMEType string `json:"mimeType"`
	Size     int    `json:"size"`
}

// NewTextEnvelope creates a text envelope stamped with the given time
func NewTextEnvelope(message string, at time.Time) OutboundEnvelope {
	return OutboundEnvelope{
		Message:   message,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
	}
}

// NewAudioEnvelope creates an audio envelope for base64 content
func NewAudioEnvelope(content, mimeType string, size int) OutboundEnvelope {
	return OutboundEnvelope{
		Type:     EnvelopeAudio,
		Content:  content,
		Metadata: &AudioMetadata{MIMEType: mimeType, Size: size},
	}
}

// Kind returns the envelope type, treating an unset type as text
func (e OutboundEnvelope) Kind() EnvelopeType {
	if e.Type == "" {
		return EnvelopeText
	}
	return e.Type
}
