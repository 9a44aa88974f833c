package realtime

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type wsClient struct {
	id   string
	conn *websocket.Conn
}

func (c *wsClient) ID() string { return c.id }

func (c *wsClient) Send(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *wsClient) Close() error {
	return c.conn.CloseNow()
}

// Handler upgrades GET /ws and keeps the subscription open for the life of the socket.
type Handler struct {
	hub            *Hub
	logger         *zap.Logger
	originPatterns []string
}

// NewHandler accepts cross-origin sockets only from originPatterns
// (e.g. "*", "*.example.com"). With no patterns only same-origin pages connect.
func NewHandler(hub *Hub, logger *zap.Logger, originPatterns []string) *Handler {
	return &Handler{hub: hub, logger: logger, originPatterns: originPatterns}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("websocket accept error", zap.Error(err))
		return
	}

	// Клиент может выбрать свой id, чтобы передавать его в X-Client-ID
	client := &wsClient{id: r.URL.Query().Get("client_id"), conn: conn}
	if client.id == "" {
		client.id = uuid.NewString()
	}
	for !h.hub.Subscribe(client) {
		h.logger.Debug("client id taken, assigning a new one", zap.String("client", client.id))
		client.id = uuid.NewString()
	}
	h.logger.Info("client connected", zap.String("client", client.id), zap.Int("clients", h.hub.Count()))

	defer func() {
		h.hub.Unsubscribe(client.id)
		conn.CloseNow()
		h.logger.Info("client disconnected", zap.String("client", client.id))
	}()

	hello, _ := json.Marshal(Event{Type: EventHello, Origin: client.id})
	if err := client.Send(r.Context(), hello); err != nil {
		return
	}

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}

		var msg Event
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type != EventTaskUpdate {
			continue
		}

		h.hub.Broadcast(client.id, Event{Type: EventTaskUpdate, Origin: client.id, Payload: msg.Payload})
	}
}
