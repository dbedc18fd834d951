package conversation

import (
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cristian1110/nipponflex-saas-sub000/internal/agents"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/appointments"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/knowledge"
)

// PromptInput is everything the prompt builder folds into the final
// message list.
type PromptInput struct {
	Agent     *agents.Agent
	Retrieved *knowledge.Context
	Sentiment *Sentiment
	History   []Turn
	Utterance string
	Now       time.Time
}

// BuildMessages assembles the exact message list the model consumes:
// system prompt (persona + appointment protocol + retrieved context +
// sentiment hint) followed by the trailing history and the new utterance.
func BuildMessages(in PromptInput) []openai.ChatCompletionMessage {
	var system strings.Builder
	system.WriteString(strings.TrimSpace(in.Agent.SystemPrompt))
	system.WriteString("\n")
	system.WriteString(appointments.ProtocolInstructions(in.Now))

	if !in.Retrieved.Empty() {
		system.WriteString("\n\nCONTEXTO RELEVANTE:\n")
		if len(in.Retrieved.Snippets) > 0 {
			system.WriteString("Información de la empresa:\n")
			for _, snippet := range in.Retrieved.Snippets {
				system.WriteString("- " + snippet + "\n")
			}
		}
		if len(in.Retrieved.Products) > 0 {
			system.WriteString("Productos del catálogo (no menciones productos que no estén aquí):\n")
			for _, match := range in.Retrieved.Products {
				p := match.Product
				line := fmt.Sprintf("- %s: %s", p.Name, p.FormatPrice())
				if p.Description != "" {
					line += " — " + p.Description
				}
				system.WriteString(line + "\n")
			}
		}
	}

	if in.Sentiment != nil && in.Sentiment.Label != "" {
		system.WriteString(fmt.Sprintf("\nESTADO DEL CLIENTE: sentimiento %s", in.Sentiment.Label))
		if in.Sentiment.Emotion != "" {
			system.WriteString(", emoción " + in.Sentiment.Emotion)
		}
		if in.Sentiment.Suggestion != "" {
			system.WriteString(". " + in.Sentiment.Suggestion)
		}
		system.WriteString("\n")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(in.History)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system.String(),
	})
	for _, turn := range in.History {
		role := openai.ChatMessageRoleUser
		if turn.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	// The new utterance is appended only when the loaded history does not
	// already end with it (it does once the inbound turn is persisted
	// before the history read).
	if len(in.History) == 0 || in.History[len(in.History)-1].Role != RoleUser ||
		in.History[len(in.History)-1].Content != in.Utterance {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: in.Utterance,
		})
	}
	return messages
}
