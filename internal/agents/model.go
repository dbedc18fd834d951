package agents

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNoAgent indicates the tenant has no answering persona configured.
var ErrNoAgent = errors.New("agents: no active agent configured")

// Agent is the tenant-configured persona that answers chats.
type Agent struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
	Model        string

	// Business-hours window, hour of day in server local time. A zero
	// window (0,0) means always open. Tenants spanning timezones would
	// need an explicit timezone column; not modeled yet.
	StartHour int
	EndHour   int

	OutOfHoursReply string
	VoiceID         string
	VoiceReplies    bool
}

// WithinBusinessHours reports whether hour falls inside the configured
// window. Windows that cross midnight (start > end) are honored.
func (a *Agent) WithinBusinessHours(hour int) bool {
	if a.StartHour == 0 && a.EndHour == 0 {
		return true
	}
	if a.StartHour <= a.EndHour {
		return hour >= a.StartHour && hour < a.EndHour
	}
	return hour >= a.StartHour || hour < a.EndHour
}
