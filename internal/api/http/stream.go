package http

import (
	"net/http"
	"time"

	"github.com/GriffinCanCode/SophiChat/client/internal/api/middleware"
	"github.com/GriffinCanCode/SophiChat/client/internal/shared/utils"
	"github.com/GriffinCanCode/SophiChat/client/internal/types"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || middleware.IsLoopbackOrigin(origin)
	},
}

// StreamMessage is one server push on /api/stream
type StreamMessage struct {
	Type      string           `json:"type"`
	Event     *types.ChatEvent `json:"event,omitempty"`
	Status    *types.Status    `json:"status,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

// Stream types
const (
	StreamEvent  = "event"
	StreamStatus = "status"
)

// Stream upgrades to a WebSocket and pushes chat events as they are
// appended. ?after=<id> replays history newer than id first.
func (h *Handlers) Stream(c *gin.Context) {
	last := c.Query("after")
	if err := utils.ValidateID(last, "after", false); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logRequestError(c, "WebSocket upgrade failed", err)
		return
	}
	defer conn.Close()

	// Subscribe before the replay so nothing falls between the two
	events, cancel := h.chat.Subscribe()
	defer cancel()

	status := h.chat.Status()
	if err := h.send(conn, StreamMessage{Type: StreamStatus, Status: &status}); err != nil {
		return
	}

	for _, ev := range h.chat.HistoryAfter(last) {
		ev := ev
		if err := h.send(conn, StreamMessage{Type: StreamEvent, Event: &ev}); err != nil {
			return
		}
		last = ev.ID
	}

	closed := make(chan struct{})
	go h.readPump(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			// IDs sort by creation; skip what the replay already sent
			if last != "" && ev.ID <= last {
				continue
			}
			if err := h.send(conn, StreamMessage{Type: StreamEvent, Event: &ev}); err != nil {
				h.logger.Debug("Stream write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

// readPump drains client frames so control messages are processed
func (h *Handlers) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handlers) send(conn *websocket.Conn, msg StreamMessage) error {
	msg.Timestamp = time.Now().Unix()
	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
