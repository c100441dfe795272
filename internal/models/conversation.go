package models

import "time"

// Message roles. Only these two values are stored.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation is a chat room bound to a set of the owner's documents.
type Conversation struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Message is a single conversation turn. The full log is append-only; callers
// only ever see bounded slices of it.
type Message struct {
	ID             string    `json:"id" db:"id"`
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	Role           string    `json:"role" db:"role"`
	Content        string    `json:"content" db:"content"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// ContextPassage is a retrieved excerpt used to ground a generation prompt.
// Transient; ranked descending by Score.
type ContextPassage struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Excerpt    string  `json:"excerpt"`
	Score      float64 `json:"score"`
}

// ChatExchange pairs the stored user question with the stored assistant answer.
type ChatExchange struct {
	UserMessage      *Message `json:"user_message"`
	AssistantMessage *Message `json:"assistant_message"`
}
