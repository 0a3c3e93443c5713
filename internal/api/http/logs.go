package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxLogBatch bounds one POST /api/logs body
const maxLogBatch = 100

// UILogEntry is one log line from a front-end attached to the bridge
type UILogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context"`
	Timestamp string                 `json:"timestamp"`
}

// UILogRequest is a batch of front-end log lines
type UILogRequest struct {
	Source  string       `json:"source"`
	Entries []UILogEntry `json:"entries"`
}

// IngestLogs forwards front-end logs into the client log
func (h *Handlers) IngestLogs(c *gin.Context) {
	var req UILogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid log request format"})
		return
	}
	if len(req.Entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no log entries provided"})
		return
	}
	if len(req.Entries) > maxLogBatch {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("at most %d entries per request", maxLogBatch),
		})
		return
	}

	source := req.Source
	if source == "" {
		source = "ui"
	}
	logger := h.logger.With(zap.String("source", source))
	for _, entry := range req.Entries {
		logEntry(logger.Logger, entry)
	}

	c.JSON(http.StatusOK, gin.H{"entries_received": len(req.Entries)})
}

func logEntry(logger *zap.Logger, entry UILogEntry) {
	fields := make([]zap.Field, 0, len(entry.Context)+1)
	if entry.Timestamp != "" {
		fields = append(fields, zap.String("ui_timestamp", entry.Timestamp))
	}
	for key, value := range entry.Context {
		switch v := value.(type) {
		case string:
			fields = append(fields, zap.String(key, v))
		case float64:
			fields = append(fields, zap.Float64(key, v))
		case bool:
			fields = append(fields, zap.Bool(key, v))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}

	switch entry.Level {
	case "error":
		logger.Error(entry.Message, fields...)
	case "warn":
		logger.Warn(entry.Message, fields...)
	case "debug", "verbose":
		logger.Debug(entry.Message, fields...)
	default:
		logger.Info(entry.Message, fields...)
	}
}
