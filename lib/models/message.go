package models

// Reader types for conversation read receipts: a conversation always has a
// customer side and a provider side.
const (
	ReaderUser     = "user"
	ReaderProvider = "provider"
)

// Message is a conversation message as seen by the realtime layer. Messages
// are persisted by the marketplace core; this subsystem only fans them out.
type Message struct {
	ID             uint   `json:"id"`
	ConversationID uint   `json:"conversation_id"`
	SenderID       uint   `json:"sender_id"`
	SenderName     string `json:"sender_name,omitempty"`
	Body           string `json:"body"`
	ReadByUser     bool   `json:"read_by_user"`
	ReadByProvider bool   `json:"read_by_provider"`
}

func ValidReaderType(s string) bool {
	return s == ReaderUser || s == ReaderProvider
}
