package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAITranscriber transcribes WhatsApp voice notes with Whisper.
type OpenAITranscriber struct {
	client *openai.Client
	model  string
}

func NewOpenAITranscriber(client *openai.Client, model string) *OpenAITranscriber {
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAITranscriber{client: client, model: model}
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if t.client == nil {
		return "", fmt.Errorf("media: transcriber not configured")
	}
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		Reader:   bytes.NewReader(audio),
		FilePath: "voice" + extensionFor(mimeType),
		Language: "es",
	})
	if err != nil {
		return "", fmt.Errorf("media: transcription: %w", err)
	}
	return resp.Text, nil
}

func extensionFor(mimeType string) string {
	base := strings.ToLower(mimeType)
	if idx := strings.Index(base, ";"); idx >= 0 {
		base = base[:idx]
	}
	switch strings.TrimSpace(base) {
	case "audio/ogg":
		return ".ogg"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/mp4":
		return ".m4a"
	case "audio/wav":
		return ".wav"
	case "audio/webm":
		return ".webm"
	default:
		return ".ogg"
	}
}

// OpenAIDescriber summarizes image content with a vision-capable chat model.
type OpenAIDescriber struct {
	client *openai.Client
	model  string
}

func NewOpenAIDescriber(client *openai.Client, model string) *OpenAIDescriber {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIDescriber{client: client, model: model}
}

func (d *OpenAIDescriber) DescribeImage(ctx context.Context, imageB64, mimeType, instruction string) (string, error) {
	if d.client == nil {
		return "", fmt.Errorf("media: describer not configured")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     d.model,
		MaxTokens: 300,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: instruction},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    fmt.Sprintf("data:%s;base64,%s", mimeType, imageB64),
							Detail: openai.ImageURLDetailLow,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("media: vision: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("media: vision returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
