package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

const (
	sendBuffer   = 256
	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second
)

// Message is a client request. Supported types are follow, unfollow and
// ping.
type Message struct {
	Type       string   `json:"type"`
	VehicleIDs []string `json:"vehicleIds,omitempty"`
}

// Handler upgrades HTTP requests to websocket connections on the hub.
type Handler struct {
	hub     *Hub
	origins []string
}

// NewHandler creates a handler. origins lists accepted Origin patterns;
// empty accepts any origin.
func NewHandler(h *Hub, origins []string) *Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Handler{hub: h, origins: origins}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.hub.log.Warnf("websocket accept failed: %v", err)
		return
	}
	client := NewClient(uuid.NewString(), sendBuffer)
	if ids := r.URL.Query()["vehicle_id"]; len(ids) > 0 {
		client.Follow(ids)
	}
	h.hub.Register(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.writeLoop(ctx, conn, client)
	h.readLoop(ctx, conn, client)
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, client *Client) {
	defer func() {
		h.hub.Unregister(client)
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				h.hub.log.Debugw("websocket read error", map[string]any{"client_id": client.ID, "error": err.Error()})
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "follow":
			client.Follow(msg.VehicleIDs)
		case "unfollow":
			client.Unfollow(msg.VehicleIDs)
		case "ping":
			h.hub.send(client, []byte(`{"type":"pong"}`))
		}
	}
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-client.Send:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "server shutdown")
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
