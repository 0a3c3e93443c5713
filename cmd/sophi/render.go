package main

import (
	"fmt"
	"strings"

	"github.com/GriffinCanCode/SophiChat/client/internal/types"
	"github.com/charmbracelet/lipgloss"
)

var (
	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	attachmentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Underline(true)

	transcriptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)
)

// renderer formats chat events as terminal lines
type renderer struct {
	// audioURL turns a reference into something playable, may be nil
	audioURL func(ref types.AudioRef) string
}

func (r renderer) speaker(role types.Role) string {
	switch role {
	case types.RoleUser:
		return userStyle.Render("you")
	case types.RoleAssistant:
		return assistantStyle.Render("sophi")
	}
	return statusStyle.Render("system")
}

func (r renderer) event(ev types.ChatEvent) string {
	if ev.IsStatus() {
		return statusStyle.Render("· " + ev.Text)
	}

	var b strings.Builder
	b.WriteString(r.speaker(ev.Role))
	b.WriteString(": ")

	switch ev.Kind {
	case types.KindTranscription:
		b.WriteString(transcriptStyle.Render("“" + ev.Text + "”"))
	case types.KindAudio:
		label := "[audio]"
		if r.audioURL != nil {
			label = "[audio " + r.audioURL(ev.AudioRef) + "]"
		}
		if ev.Text != "" {
			b.WriteString(ev.Text)
			b.WriteString(" ")
		}
		b.WriteString(attachmentStyle.Render(label))
	default:
		b.WriteString(ev.Text)
	}

	for _, url := range ev.Attachments {
		b.WriteString("\n  ")
		b.WriteString(attachmentStyle.Render(url))
	}
	return b.String()
}

func (r renderer) status(s types.Status) string {
	parts := []string{string(s.ConnectionState)}
	if s.User != nil {
		parts = append(parts, "as "+s.User.DisplayName())
	} else if !s.Authenticated {
		parts = append(parts, "logged out")
	}
	if s.Waiting {
		parts = append(parts, "waiting for reply")
	}
	if s.Recording {
		parts = append(parts, "recording")
	}
	return statusStyle.Render(fmt.Sprintf("[%s]", strings.Join(parts, ", ")))
}

func banner(text string) string {
	return bannerStyle.Render(text)
}
