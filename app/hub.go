package app

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/soireehq/beacon/config"
	"github.com/soireehq/beacon/lib"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Hub is the browser-facing half of the reverb driver: it subscribes to the
// per-conversation Redis channels the driver publishes to and fans the
// envelope stream out to connected websocket clients. Disabled unless the
// reverb/pusher driver is active.
type Hub struct {
	log    *zap.Logger
	cfg    *config.Config
	svc    *lib.Service
	client *redis.Client

	mu    sync.RWMutex
	rooms map[string]*room
}

type room struct {
	conns  map[*websocket.Conn]struct{}
	cancel context.CancelFunc
}

func NewHub(lc fx.Lifecycle, log *zap.Logger, cfg *config.Config, svc *lib.Service) *Hub {
	hub := &Hub{
		log:   log,
		cfg:   cfg,
		svc:   svc,
		rooms: map[string]*room{},
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Broadcast.Driver)) {
	case "reverb", "pusher":
		if addr := cfg.Reverb.RedisAddr; addr != "" {
			hub.client = redis.NewClient(&redis.Options{Addr: addr})
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					return hub.client.Close()
				},
			})
		}
	}

	return hub
}

func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		http.Error(w, "realtime transport is not configured", http.StatusServiceUnavailable)
		return
	}

	conversationID, err := parseID(chi.URLParam(r, "conversation_id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	channel := h.svc.Messenger().ConversationChannel(conversationID)

	userID := currentUserID(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.join(channel, conn)
	defer h.leave(channel, conn)

	if userID != nil {
		h.svc.BroadcastPresence(r.Context(), *userID, true)
		defer h.svc.BroadcastPresence(context.Background(), *userID, false)
	}

	// The socket is receive-only: clients publish through the HTTP API.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) join(channel string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	state, ok := h.rooms[channel]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		state = &room{conns: map[*websocket.Conn]struct{}{}, cancel: cancel}
		h.rooms[channel] = state
		go h.consume(ctx, channel)
	}
	state.conns[conn] = struct{}{}
}

func (h *Hub) leave(channel string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if state, ok := h.rooms[channel]; ok {
		delete(state.conns, conn)
		if len(state.conns) == 0 {
			state.cancel()
			delete(h.rooms, channel)
		}
	}
	conn.Close()
}

func (h *Hub) consume(ctx context.Context, channel string) {
	pubsub := h.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return
		}

		h.mu.RLock()
		state := h.rooms[channel]
		if state == nil {
			h.mu.RUnlock()
			continue
		}
		for conn := range state.conns {
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				h.log.Sugar().Infow("Dropped websocket write", "channel", channel, "err", err)
			}
		}
		h.mu.RUnlock()
	}
}
