package messenger

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/soireehq/beacon/lib/models"
	"go.uber.org/fx"
)

// reverbMessenger backs the self-hosted websocket broadcast service. Events
// are published to a per-conversation Redis channel; the websocket hub
// subscribes to those channels and fans the envelopes out to connected
// browsers.
type reverbMessenger struct {
	base
	client *redis.Client
}

func newReverbMessenger(lc fx.Lifecycle, base base) *reverbMessenger {
	var client *redis.Client
	if addr := base.cfg.Reverb.RedisAddr; addr != "" {
		client = redis.NewClient(&redis.Options{Addr: addr})
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
	} else {
		base.log.Sugar().Info("REVERB_REDIS_ADDR is not set, reverb broadcasts will be dropped")
	}
	return &reverbMessenger{base, client}
}

func (m *reverbMessenger) BroadcastMessage(ctx context.Context, msg *models.Message) {
	m.publish(ctx, m.ConversationChannel(msg.ConversationID), Envelope{
		Type:           EventMessage,
		ConversationID: msg.ConversationID,
		Payload:        msg,
	})
}

func (m *reverbMessenger) BroadcastTyping(ctx context.Context, conversationID, userID uint, userName string, isTyping bool) {
	m.publish(ctx, m.ConversationChannel(conversationID), Envelope{
		Type:           EventTyping,
		ConversationID: conversationID,
		Payload:        TypingPayload{UserID: userID, UserName: userName, IsTyping: isTyping},
	})
}

func (m *reverbMessenger) BroadcastRead(ctx context.Context, msg *models.Message, readerType string) {
	m.publish(ctx, m.ConversationChannel(msg.ConversationID), Envelope{
		Type:           EventRead,
		ConversationID: msg.ConversationID,
		Payload:        ReadPayload{MessageID: msg.ID, ReaderType: readerType},
	})
}

func (m *reverbMessenger) BroadcastPresence(ctx context.Context, userID uint, isOnline bool) {
	m.publish(ctx, presenceChannel, Envelope{
		Type:    EventPresence,
		Payload: PresencePayload{UserID: userID, IsOnline: isOnline},
	})
}

func (m *reverbMessenger) ConversationChannel(conversationID uint) string {
	return conversationChannel(conversationID)
}

func (m *reverbMessenger) Configured() bool {
	return m.client != nil
}

func (m *reverbMessenger) publish(ctx context.Context, channel string, env Envelope) {
	if m.client == nil {
		return
	}
	b, err := json.Marshal(env)
	if err != nil {
		m.log.Sugar().Errorw("Failed to encode realtime event", "channel", channel, "err", err)
		return
	}
	if err := m.client.Publish(ctx, channel, b).Err(); err != nil {
		m.log.Sugar().Infow("Realtime broadcast failed", "channel", channel, "event", env.Type, "err", err)
	}
}
