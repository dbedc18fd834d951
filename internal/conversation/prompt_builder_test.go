package conversation

import (
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cristian1110/nipponflex-saas-sub000/internal/agents"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/knowledge"
)

func TestBuildMessagesLayout(t *testing.T) {
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	in := PromptInput{
		Agent: &agents.Agent{SystemPrompt: "Eres el asistente de Nipponflex."},
		Retrieved: &knowledge.Context{
			Snippets: []string{"Envíos a todo el país en 3 a 5 días."},
			Products: []knowledge.ProductMatch{
				{Product: knowledge.Product{Name: "Pulsera Magnética", PriceCents: 45000, Description: "pulsera terapéutica"}, Score: 80},
			},
		},
		Sentiment: &Sentiment{Label: "neutral", Emotion: "curiosidad", Suggestion: "Responde con detalle."},
		History: []Turn{
			{Role: RoleUser, Content: "Hola"},
			{Role: RoleAssistant, Content: "¡Hola! ¿En qué puedo ayudarte?"},
			{Role: RoleUser, Content: "¿Tienen pulseras magnéticas?"},
		},
		Utterance: "¿Tienen pulseras magnéticas?",
		Now:       now,
	}

	messages := BuildMessages(in)
	if messages[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("expected system message first, got %s", messages[0].Role)
	}
	system := messages[0].Content
	for _, want := range []string{
		"Eres el asistente de Nipponflex.",
		"[CITA_CONFIRMADA]",
		"Hoy es 2025-03-03",
		"Pulsera Magnética: $450.00 MXN",
		"Envíos a todo el país",
		"sentimiento neutral",
	} {
		if !strings.Contains(system, want) {
			t.Fatalf("system prompt missing %q:\n%s", want, system)
		}
	}

	// History already ends with the utterance, so it is not duplicated.
	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}
	last := messages[len(messages)-1]
	if last.Role != openai.ChatMessageRoleUser || last.Content != "¿Tienen pulseras magnéticas?" {
		t.Fatalf("unexpected final message: %+v", last)
	}
}

func TestBuildMessagesAppendsUtteranceWhenMissing(t *testing.T) {
	in := PromptInput{
		Agent:     &agents.Agent{SystemPrompt: "Asistente."},
		Utterance: "hola",
		Now:       time.Now(),
	}
	messages := BuildMessages(in)
	if len(messages) != 2 {
		t.Fatalf("expected system + user, got %d", len(messages))
	}
	if messages[1].Content != "hola" {
		t.Fatalf("unexpected user message %q", messages[1].Content)
	}
}

func TestBuildMessagesWithoutContextSections(t *testing.T) {
	in := PromptInput{
		Agent:     &agents.Agent{SystemPrompt: "Asistente."},
		Utterance: "hola",
		Now:       time.Now(),
	}
	system := BuildMessages(in)[0].Content
	if strings.Contains(system, "CONTEXTO RELEVANTE") {
		t.Fatal("empty retrieval must not add a context section")
	}
	if strings.Contains(system, "ESTADO DEL CLIENTE") {
		t.Fatal("missing sentiment must not add a hint")
	}
}
