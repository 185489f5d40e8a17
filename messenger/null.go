package messenger

import (
	"context"

	"github.com/soireehq/beacon/lib/models"
)

// nullMessenger drops every broadcast. It is the safe default for
// deployments and test environments with no realtime backend.
type nullMessenger struct{}

func (nullMessenger) BroadcastMessage(ctx context.Context, msg *models.Message) {}

func (nullMessenger) BroadcastTyping(ctx context.Context, conversationID, userID uint, userName string, isTyping bool) {
}

func (nullMessenger) BroadcastRead(ctx context.Context, msg *models.Message, readerType string) {}

func (nullMessenger) BroadcastPresence(ctx context.Context, userID uint, isOnline bool) {}

func (nullMessenger) ConversationChannel(conversationID uint) string {
	return conversationChannel(conversationID)
}

func (nullMessenger) Configured() bool { return false }
