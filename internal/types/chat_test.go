package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChatEventValidate(t *testing.T) {
	tests := []struct {
		name  string
		event ChatEvent
		want  error
	}{
		{"text", ChatEvent{Kind: KindText, Text: "hi"}, nil},
		{"status", ChatEvent{Kind: KindStatus, Text: "not connected"}, nil},
		{"audio with ref", ChatEvent{Kind: KindAudio, AudioRef: "blob_1"}, nil},
		{"image with attachments", ChatEvent{Kind: KindImage, Attachments: []string{"u"}}, nil},
		{"unknown kind", ChatEvent{Kind: "video"}, ErrUnknownKind},
		{"audio without ref", ChatEvent{Kind: KindAudio}, ErrAudioRefMismatch},
		{"text with ref", ChatEvent{Kind: KindText, AudioRef: "blob_1"}, ErrAudioRefMismatch},
		{"image without attachments", ChatEvent{Kind: KindImage, Attachments: []string{}}, ErrAttachmentMismatch},
		{"text with attachments", ChatEvent{Kind: KindText, Attachments: []string{"u"}}, ErrAttachmentMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.Validate())
		})
	}
}

func TestEnvelopes(t *testing.T) {
	text := NewTextEnvelope("hi", time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600)))
	assert.Equal(t, EnvelopeText, text.Kind())
	assert.Equal(t, "2024-01-02T02:04:05Z", text.Timestamp)

	audio := NewAudioEnvelope("AAEC", "audio/webm", 3)
	assert.Equal(t, EnvelopeAudio, audio.Kind())
	assert.Equal(t, 3, audio.Metadata.Size)
}

func TestDisplayName(t *testing.T) {
	var nilProfile *UserProfile
	assert.Equal(t, "", nilProfile.DisplayName())
	assert.Equal(t, "ana", (&UserProfile{Username: "ana"}).DisplayName())
	assert.Equal(t, "Ana B", (&UserProfile{Username: "ana", Name: "Ana B"}).DisplayName())
}
