package db

import "time"

// Conversation represents a persisted conversation.
type Conversation struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	EngineID  string    `json:"engine_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message represents a single persisted message in a conversation.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Kind           string    `json:"kind"` // "user", "assistant", "file", "file_url"
	Content        string    `json:"content"`
	EngineID       string    `json:"engine_id"`
	Attachments    string    `json:"attachments"` // JSON array of packaged documents
	CreatedAt      time.Time `json:"created_at"`
}

// Setting represents one persisted key-value entry.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
