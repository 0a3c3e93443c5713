package types

import (
	"errors"
	"time"
)

// Role identifies who authored a chat event
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Kind classifies the content carried by a chat event
type Kind string

const (
	KindText          Kind = "text"
	KindTranscription Kind = "transcription"
	KindAudio         Kind = "audio"
	KindImage         Kind = "image"
	KindStatus        Kind = "status"
)

// AudioRef is an opaque handle to playable audio held by the blob registry
type AudioRef string

// ChatEvent is the normalized unit of conversation history
type ChatEvent struct {
	ID          string    `json:"id"`
	Role        Role      `json:"role"`
	Kind        Kind      `json:"kind"`
	Text        string    `json:"text,omitempty"`
	AudioRef    AudioRef  `json:"audio_ref,omitempty"`
	Attachments []string  `json:"attachments"`
	CreatedAt   time.Time `json:"created_at"`
}

var (
	ErrUnknownKind        = errors.New("chat event has unknown kind")
	ErrAudioRefMismatch   = errors.New("audio ref must be set for audio events only")
	ErrAttachmentMismatch = errors.New("attachments must be set for image events only")
)

// Validate checks the kind/payload invariants of the event
func (e ChatEvent) Validate() error {
	switch e.Kind {
	case KindText, KindTranscription, KindAudio, KindImage, KindStatus:
	default:
		return ErrUnknownKind
	}
	if (e.AudioRef != "") != (e.Kind == KindAudio) {
		return ErrAudioRefMismatch
	}
	if (len(e.Attachments) > 0) != (e.Kind == KindImage) {
		return ErrAttachmentMismatch
	}
	return nil
}

// IsStatus reports whether the event is a system status line
func (e ChatEvent) IsStatus() bool {
	return e.Kind == KindStatus
}
