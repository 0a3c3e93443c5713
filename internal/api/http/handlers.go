package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/GriffinCanCode/SophiChat/client/internal/audio"
	"github.com/GriffinCanCode/SophiChat/client/internal/auth"
	"github.com/GriffinCanCode/SophiChat/client/internal/blob"
	"github.com/GriffinCanCode/SophiChat/client/internal/domain/session"
	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/logging"
	"github.com/GriffinCanCode/SophiChat/client/internal/shared/utils"
	"github.com/GriffinCanCode/SophiChat/client/internal/transport"
	"github.com/GriffinCanCode/SophiChat/client/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Chat is the orchestrator surface exposed over the bridge
type Chat interface {
	Login(ctx context.Context, username, password string) error
	Logout()
	SendText(text string) error
	StartRecording(ctx context.Context) error
	StopRecording() error
	History() []types.ChatEvent
	HistoryAfter(after string) []types.ChatEvent
	Status() types.Status
	Subscribe() (<-chan types.ChatEvent, func())
}

// AudioStore resolves playable references
type AudioStore interface {
	Get(ref types.AudioRef) (*blob.Entry, error)
}

// Handlers contains all bridge HTTP handlers
type Handlers struct {
	chat    Chat
	blobs   AudioStore
	logger  *logging.Logger
	version string
	started time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(chat Chat, blobs AudioStore, logger *logging.Logger, version string) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		chat:    chat,
		blobs:   blobs,
		logger:  logger.Named("bridge"),
		version: version,
		started: time.Now(),
	}
}

// LoginRequest is the body of POST /api/login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// MessageRequest is the body of POST /api/messages
type MessageRequest struct {
	Text string `json:"text"`
}

// Health handles the liveness probe
func (h *Handlers) Health(c *gin.Context) {
	status := h.chat.Status()
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"service":    "sophi-bridge",
		"version":    h.version,
		"uptime":     time.Since(h.started).Round(time.Second).String(),
		"connection": status.ConnectionState,
	})
}

// Status returns the presentation state pair
func (h *Handlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.chat.Status())
}

// Events returns history, optionally only events after ?after=<id>
func (h *Handlers) Events(c *gin.Context) {
	after := c.Query("after")
	if err := utils.ValidateID(after, "after", false); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var events []types.ChatEvent
	if after != "" {
		events = h.chat.HistoryAfter(after)
	} else {
		events = h.chat.History()
	}
	if events == nil {
		events = []types.ChatEvent{}
	}
	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

// Login exchanges credentials for a session
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}
	if err := utils.ValidateCredentials(req.Username, req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.chat.Login(c.Request.Context(), req.Username, req.Password); err != nil {
		c.JSON(loginStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  h.chat.Status(),
	})
}

// Logout clears the session; always succeeds
func (h *Handlers) Logout(c *gin.Context) {
	h.chat.Logout()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SendMessage sends a text message
func (h *Handlers) SendMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message body"})
		return
	}
	if err := utils.ValidateMessage(req.Text); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.chat.SendText(req.Text); err != nil {
		c.JSON(commandStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}

// StartRecording opens the microphone
func (h *Handlers) StartRecording(c *gin.Context) {
	// The recording outlives this request
	if err := h.chat.StartRecording(context.WithoutCancel(c.Request.Context())); err != nil {
		c.JSON(commandStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recording": true})
}

// StopRecording finishes the clip and sends it
func (h *Handlers) StopRecording(c *gin.Context) {
	if err := h.chat.StopRecording(); err != nil {
		c.JSON(commandStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recording": false})
}

// Audio serves the bytes behind a playable reference
func (h *Handlers) Audio(c *gin.Context) {
	ref := c.Param("ref")
	if err := utils.ValidateID(ref, "ref", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.blobs.Get(types.AudioRef(ref))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, entry.MIMEType, entry.Data)
}

func loginStatus(err error) int {
	var authErr *auth.Error
	switch {
	case errors.Is(err, session.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, session.ErrStopped), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.As(err, &authErr) && authErr.IsClientError():
		return http.StatusUnauthorized
	}
	// Remaining failures come from the auth service
	return http.StatusBadGateway
}

func commandStatus(err error) int {
	switch {
	case errors.Is(err, transport.ErrNotConnected),
		errors.Is(err, audio.ErrAlreadyRecording),
		errors.Is(err, audio.ErrNotRecording):
		return http.StatusConflict
	case errors.Is(err, audio.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, session.ErrStopped):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *Handlers) logRequestError(c *gin.Context, msg string, err error) {
	h.logger.Debug(msg,
		zap.String("path", c.FullPath()),
		zap.Error(err))
}
