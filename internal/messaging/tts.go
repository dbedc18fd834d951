package messaging

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// Synthesizer renders reply text as speech audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// OpenAISynthesizer produces MP3 voice notes with the OpenAI speech API.
type OpenAISynthesizer struct {
	client *openai.Client
	model  string
}

func NewOpenAISynthesizer(client *openai.Client, model string) *OpenAISynthesizer {
	if model == "" {
		model = string(openai.TTSModel1)
	}
	return &OpenAISynthesizer{client: client, model: model}
}

func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if s.client == nil {
		return nil, fmt.Errorf("messaging: synthesizer not configured")
	}
	voice := openai.SpeechVoice(voiceID)
	if voiceID == "" {
		voice = openai.VoiceNova
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("messaging: speech synthesis: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("messaging: read speech audio: %w", err)
	}
	return audio, nil
}
