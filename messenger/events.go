package messenger

type EventType string

const (
	EventMessage  EventType = "message"
	EventTyping   EventType = "typing"
	EventRead     EventType = "read"
	EventPresence EventType = "presence"
)

// Envelope is the minimal event shape conversation clients subscribe to.
type Envelope struct {
	Type           EventType `json:"type"`
	ConversationID uint      `json:"conversationId,omitempty"`
	Payload        any       `json:"payload"`
}

type TypingPayload struct {
	UserID   uint   `json:"userId"`
	UserName string `json:"userName"`
	IsTyping bool   `json:"isTyping"`
}

type ReadPayload struct {
	MessageID  uint   `json:"messageId"`
	ReaderType string `json:"readerType"`
}

type PresencePayload struct {
	UserID   uint `json:"userId"`
	IsOnline bool `json:"isOnline"`
}
