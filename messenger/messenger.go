// Package messenger fans conversation events out to whichever realtime
// transport the deployment is configured with. Broadcasts are fire-and-forget:
// a failed publish is logged and swallowed so the business operation that
// triggered it (message persistence, booking updates) always completes.
package messenger

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/soireehq/beacon/config"
	"github.com/soireehq/beacon/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Messenger is the capability set every realtime driver implements. The
// Broadcast* methods return nothing: they cannot fail from the caller's
// perspective.
type Messenger interface {
	BroadcastMessage(ctx context.Context, msg *models.Message)
	BroadcastTyping(ctx context.Context, conversationID, userID uint, userName string, isTyping bool)
	BroadcastRead(ctx context.Context, msg *models.Message, readerType string)
	BroadcastPresence(ctx context.Context, userID uint, isOnline bool)
	ConversationChannel(conversationID uint) string
	Configured() bool
}

// NewMessenger resolves the configured driver once for the process lifetime.
// Unknown or missing driver names fall back to the null driver: realtime
// messaging is an enhancement, never a hard dependency.
func NewMessenger(lc fx.Lifecycle, log *zap.Logger, cfg *config.Config, transport http.RoundTripper) Messenger {
	base := base{log, cfg, transport}

	switch strings.ToLower(strings.TrimSpace(cfg.Broadcast.Driver)) {
	case "supabase":
		return &supabaseMessenger{base}
	case "reverb", "pusher":
		return newReverbMessenger(lc, base)
	default:
		log.Sugar().Infof("Broadcast driver %q is not recognized, realtime messaging disabled", cfg.Broadcast.Driver)
		return &nullMessenger{}
	}
}

type base struct {
	log       *zap.Logger
	cfg       *config.Config
	transport http.RoundTripper
}

const presenceChannel = "presence"

// conversationChannel derives the canonical channel name for a conversation.
// Stable and collision-free across conversation ids.
func conversationChannel(conversationID uint) string {
	return fmt.Sprintf("private-conversation.%d", conversationID)
}
