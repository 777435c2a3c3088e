package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 1024,
	// The transport layer owns auth; the gateway trusts its peer.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ingestFrame is one upstream message from an agent transport. Content
// carries the message's cumulative text so far (the usual streaming
// re-render model). Done marks end-of-stream for the message.
type ingestFrame struct {
	MessageID string `json:"message_id"`
	AgentKey  string `json:"agent_key"`
	Content   string `json:"content"`
	Done      bool   `json:"done"`
}

// handleIngest accepts a WebSocket connection from an agent transport
// and feeds every frame through the session's engine. Chunks for one
// message are expected in order on one connection; concurrent agents
// should use distinct message IDs.
func (s *Server) handleIngest(c *gin.Context) {
	sess := s.session(c.Param("session"))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("ingest upgrade failed")
		return
	}
	defer conn.Close()

	logCtx := log.WithField("session", sess.id)
	logCtx.Info("ingest connected")

	// Frames without a message ID get one per connection, so a naive
	// transport still streams into a single logical message.
	fallbackID := uuid.NewString()

	for {
		var frame ingestFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logCtx.WithError(err).Warn("ingest closed unexpectedly")
			} else {
				logCtx.Info("ingest disconnected")
			}
			return
		}
		if frame.MessageID == "" {
			frame.MessageID = fallbackID
		}
		sess.publish(frame)
	}
}
