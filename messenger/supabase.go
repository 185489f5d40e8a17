package messenger

import (
	"context"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/soireehq/beacon/lib/models"
)

// supabaseMessenger publishes conversation events through the Supabase
// Realtime broadcast API. Each call is one HTTP POST; the hosted service
// relays the event to every client subscribed to the topic.
type supabaseMessenger struct {
	base
}

func (m *supabaseMessenger) BroadcastMessage(ctx context.Context, msg *models.Message) {
	m.publish(ctx, m.ConversationChannel(msg.ConversationID), Envelope{
		Type:           EventMessage,
		ConversationID: msg.ConversationID,
		Payload:        msg,
	})
}

func (m *supabaseMessenger) BroadcastTyping(ctx context.Context, conversationID, userID uint, userName string, isTyping bool) {
	m.publish(ctx, m.ConversationChannel(conversationID), Envelope{
		Type:           EventTyping,
		ConversationID: conversationID,
		Payload:        TypingPayload{UserID: userID, UserName: userName, IsTyping: isTyping},
	})
}

func (m *supabaseMessenger) BroadcastRead(ctx context.Context, msg *models.Message, readerType string) {
	m.publish(ctx, m.ConversationChannel(msg.ConversationID), Envelope{
		Type:           EventRead,
		ConversationID: msg.ConversationID,
		Payload:        ReadPayload{MessageID: msg.ID, ReaderType: readerType},
	})
}

func (m *supabaseMessenger) BroadcastPresence(ctx context.Context, userID uint, isOnline bool) {
	m.publish(ctx, presenceChannel, Envelope{
		Type:    EventPresence,
		Payload: PresencePayload{UserID: userID, IsOnline: isOnline},
	})
}

func (m *supabaseMessenger) ConversationChannel(conversationID uint) string {
	return conversationChannel(conversationID)
}

func (m *supabaseMessenger) Configured() bool {
	return m.cfg.Supabase.URL != "" && m.cfg.Supabase.ServiceKey != ""
}

func (m *supabaseMessenger) publish(ctx context.Context, topic string, env Envelope) {
	timeout := time.Duration(m.cfg.Supabase.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body := map[string]any{
		"messages": []map[string]any{{
			"topic":   topic,
			"event":   string(env.Type),
			"payload": env,
			"private": true,
		}},
	}

	err := requests.URL(m.cfg.Supabase.URL).
		Path("/realtime/v1/api/broadcast").
		Header("apikey", m.cfg.Supabase.ServiceKey).
		Bearer(m.cfg.Supabase.ServiceKey).
		BodyJSON(body).
		Transport(m.transport).
		Fetch(ctx)
	if err != nil {
		m.log.Sugar().Infow("Realtime broadcast failed", "topic", topic, "event", env.Type, "err", err)
	}
}
