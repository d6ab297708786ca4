package models

// Chunk is a bounded text fragment of a source document, the unit stored and retrieved.
type Chunk struct {
	Content string
	Source  string // document file name
	Page    int    // index of the chunk within its document
}

// QueryResult is one chunk returned by a similarity query.
type QueryResult struct {
	ID         string
	Content    string
	Source     string
	Page       int
	Similarity float32
}

// Role of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one message of a caller-owned session history.
type ConversationTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type PromptResponse struct {
	Query   string
	Sources []string
	Content string
}
