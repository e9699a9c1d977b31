package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"zhuoji-service/internal/service/ledger"
	appErr "zhuoji-service/pkg/errors"
	"zhuoji-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Handler struct {
	ledgerSvc *ledger.Service
}

func NewHandler(ledgerSvc *ledger.Service) *Handler {
	return &Handler{ledgerSvc: ledgerSvc}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// HandleSessionWS streams settled hands of one session to a watcher. The
// first message is a snapshot of the session and its standings.
func (h *Handler) HandleSessionWS(c *gin.Context) {
	sessionID := c.Param("id")
	view, err := h.ledgerSvc.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, appErr.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	watcherID := uuid.NewString()
	logger.Log.Info("New WebSocket watcher",
		zap.String("sessionID", sessionID),
		zap.String("watcherID", watcherID),
	)

	client := newClient(conn, sessionID, watcherID, h.ledgerSvc)
	client.hub.Send(sessionID, watcherID, ledger.MessageSnapshot, view)
	client.run()
}

type client struct {
	conn      *websocket.Conn
	sessionID string
	watcherID string
	ledgerSvc *ledger.Service
	hub       *ledger.Hub
	outbound  <-chan ledger.OutgoingMessage
	done      chan struct{}
	pingEvery time.Duration
}

func newClient(conn *websocket.Conn, sessionID, watcherID string, ledgerSvc *ledger.Service) *client {
	conn.SetReadLimit(1 << 16)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	hub := ledgerSvc.Hub()
	return &client{
		conn:      conn,
		sessionID: sessionID,
		watcherID: watcherID,
		ledgerSvc: ledgerSvc,
		hub:       hub,
		outbound:  hub.Subscribe(sessionID, watcherID),
		done:      make(chan struct{}),
		pingEvery: 25 * time.Second,
	}
}

func (c *client) run() {
	go c.writePump()
	c.readPump()
}

// readPump only answers "ping" and "snapshot" requests; replies go through
// the hub so writePump stays the connection's single writer.
func (c *client) readPump() {
	defer func() {
		close(c.done)
		c.hub.Unsubscribe(c.sessionID, c.watcherID)
		c.conn.Close()
	}()

	for {
		mt, message, err := c.conn.ReadMessage()
		if err != nil {
			logger.Log.Info("WS read error", zap.Error(err), zap.String("sessionID", c.sessionID), zap.String("watcherID", c.watcherID))
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		var incoming struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(message, &incoming); err != nil {
			c.hub.Send(c.sessionID, c.watcherID, "error", gin.H{"message": "invalid payload"})
			continue
		}

		switch incoming.Type {
		case "ping":
			c.hub.Send(c.sessionID, c.watcherID, "pong", gin.H{"ts": time.Now().UnixMilli()})
		case "snapshot":
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			view, err := c.ledgerSvc.GetSession(ctx, c.sessionID)
			cancel()
			if err != nil {
				c.hub.Send(c.sessionID, c.watcherID, "error", gin.H{"message": err.Error()})
				continue
			}
			c.hub.Send(c.sessionID, c.watcherID, ledger.MessageSnapshot, view)
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.outbound:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Log.Info("WS write error", zap.Error(err), zap.String("sessionID", c.sessionID), zap.String("watcherID", c.watcherID))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
