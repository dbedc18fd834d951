package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cristian1110/nipponflex-saas-sub000/internal/agents"
	"github.com/cristian1110/nipponflex-saas-sub000/pkg/logging"
)

// ErrEmptyCompletion means the provider answered with no content; the
// turn fails with an error status rather than sending a blank message.
var ErrEmptyCompletion = errors.New("conversation: model returned empty content")

var llmTracer = otel.Tracer("nipponflex.internal.conversation.llm")

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMService generates replies and sentiment classifications through an
// OpenAI-compatible provider.
type LLMService struct {
	client       chatClient
	defaultModel string
	logger       *logging.Logger
}

func NewLLMService(client chatClient, defaultModel string, logger *logging.Logger) *LLMService {
	if client == nil {
		panic("conversation: chat client required")
	}
	if defaultModel == "" {
		defaultModel = "gpt-4o-mini"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LLMService{client: client, defaultModel: defaultModel, logger: logger}
}

// Generate runs the chat completion with the agent's sampling parameters.
func (s *LLMService) Generate(ctx context.Context, messages []openai.ChatCompletionMessage, agent *agents.Agent) (*Reply, error) {
	ctx, span := llmTracer.Start(ctx, "conversation.generate")
	defer span.End()

	model := agent.Model
	if model == "" {
		model = s.defaultModel
	}
	maxTokens := agent.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	span.SetAttributes(
		attribute.String("nipponflex.model", model),
		attribute.Int("nipponflex.max_tokens", maxTokens),
	)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: agent.Temperature,
		MaxTokens:   maxTokens,
		Messages:    messages,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyCompletion
	}
	return &Reply{
		Content:          strings.TrimSpace(resp.Choices[0].Message.Content),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

const sentimentPrompt = `Clasifica el sentimiento del siguiente mensaje de un cliente.
Responde SOLO un JSON con esta forma exacta:
{"label":"positivo|neutral|negativo","emotion":"<una palabra>","suggestion":"<cómo debería responder el asistente, una frase>"}

Mensaje: %s`

// ClassifySentiment runs the lightweight sentiment call. Failures return
// an error; callers treat the hint as optional.
func (s *LLMService) ClassifySentiment(ctx context.Context, utterance string) (*Sentiment, error) {
	ctx, span := llmTracer.Start(ctx, "conversation.sentiment")
	defer span.End()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.defaultModel,
		Temperature: 0,
		MaxTokens:   120,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(sentimentPrompt, utterance)},
		},
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: sentiment call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.Trim(raw, "` \n")
	var sentiment Sentiment
	if err := json.Unmarshal([]byte(raw), &sentiment); err != nil {
		return nil, fmt.Errorf("conversation: sentiment parse failed: %w", err)
	}
	return &sentiment, nil
}
