// Package conversation owns the persisted chat transcript, the prompt
// assembly and the language-model calls for one tenant conversation.
package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one logged message in a conversation. Append-only.
type Turn struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Reply is what the language model produced for one turn.
type Reply struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// TotalTokens is the usage figure reported back to accounting.
func (r *Reply) TotalTokens() int {
	return r.PromptTokens + r.CompletionTokens
}

// Sentiment is the lightweight classification of the current utterance.
type Sentiment struct {
	Label      string `json:"label"`
	Emotion    string `json:"emotion"`
	Suggestion string `json:"suggestion"`
}
