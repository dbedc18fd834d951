// Package media normalizes inbound events of any modality into the plain
// text the rest of the pipeline runs on. Collaborator failures degrade to
// placeholder text; a message must always yield some text.
package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/cristian1110/nipponflex-saas-sub000/pkg/logging"
)

// Modality tags the original payload variant of an event.
type Modality string

const (
	ModalityText     Modality = "text"
	ModalityImage    Modality = "image"
	ModalityAudio    Modality = "audio"
	ModalityDocument Modality = "document"
	ModalityVideo    Modality = "video"
)

// Placeholder texts substituted when media cannot be analyzed.
const (
	PlaceholderImageFailed      = "[Imagen recibida - no se pudo analizar el contenido]"
	PlaceholderAudioUnsupported = "[Audio recibido - formato no soportado]"
	PlaceholderAudioFailed      = "[Audio recibido - no se pudo transcribir]"
)

const visionInstruction = "Describe el contenido de esta imagen. Si contiene texto o productos, léelos e inclúyelos en la descripción."

// Input is the media-relevant slice of one inbound event.
type Input struct {
	Kind      Modality
	Text      string
	Caption   string
	MessageID string
	MimeType  string
	FileName  string
	Base64    string // inline media bytes, when the webhook carried them
}

type mediaFetcher interface {
	FetchMediaBase64(ctx context.Context, instance, apiKey, messageID string) (data string, mimeType string, err error)
}

// Transcriber turns audio bytes into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Describer turns an image into a textual description.
type Describer interface {
	DescribeImage(ctx context.Context, imageB64, mimeType, instruction string) (string, error)
}

var supportedAudioMimes = map[string]bool{
	"audio/ogg":  true,
	"audio/mpeg": true,
	"audio/mp3":  true,
	"audio/mp4":  true,
	"audio/wav":  true,
	"audio/webm": true,
}

// Ingestor resolves one Input into a plain-text utterance.
type Ingestor struct {
	fetcher     mediaFetcher
	transcriber Transcriber
	describer   Describer
	logger      *logging.Logger
}

func NewIngestor(fetcher mediaFetcher, transcriber Transcriber, describer Describer, logger *logging.Logger) *Ingestor {
	if logger == nil {
		logger = logging.Default()
	}
	return &Ingestor{fetcher: fetcher, transcriber: transcriber, describer: describer, logger: logger}
}

// Normalize produces the utterance text plus the original modality tag.
// apiKey is the per-tenant transport key; empty falls back to the fetcher's
// global key.
func (i *Ingestor) Normalize(ctx context.Context, instance, apiKey string, in Input) (string, Modality) {
	switch in.Kind {
	case ModalityText:
		return in.Text, ModalityText
	case ModalityImage:
		return i.normalizeImage(ctx, instance, apiKey, in), ModalityImage
	case ModalityAudio:
		return i.normalizeAudio(ctx, instance, apiKey, in), ModalityAudio
	case ModalityDocument:
		return attachmentPlaceholder("Documento", in), ModalityDocument
	case ModalityVideo:
		return attachmentPlaceholder("Video", in), ModalityVideo
	default:
		return in.Text, ModalityText
	}
}

func (i *Ingestor) normalizeImage(ctx context.Context, instance, apiKey string, in Input) string {
	data := in.Base64
	if data == "" {
		fetched, _, err := i.fetch(ctx, instance, apiKey, in.MessageID)
		if err != nil {
			i.logger.Warn("image fetch failed", "error", err, "message_id", in.MessageID)
			return withCaption(in.Caption, PlaceholderImageFailed)
		}
		data = fetched
	}
	if i.describer == nil {
		return withCaption(in.Caption, PlaceholderImageFailed)
	}
	description, err := i.describer.DescribeImage(ctx, data, in.MimeType, visionInstruction)
	if err != nil || strings.TrimSpace(description) == "" {
		i.logger.Warn("image description failed", "error", err, "message_id", in.MessageID)
		return withCaption(in.Caption, PlaceholderImageFailed)
	}
	return withCaption(in.Caption, fmt.Sprintf("[Contenido de la imagen: %s]", strings.TrimSpace(description)))
}

func (i *Ingestor) normalizeAudio(ctx context.Context, instance, apiKey string, in Input) string {
	if !AudioMimeSupported(in.MimeType) {
		return PlaceholderAudioUnsupported
	}
	data := in.Base64
	mime := in.MimeType
	if data == "" {
		fetched, fetchedMime, err := i.fetch(ctx, instance, apiKey, in.MessageID)
		if err != nil {
			i.logger.Warn("audio fetch failed", "error", err, "message_id", in.MessageID)
			return PlaceholderAudioFailed
		}
		data = fetched
		if fetchedMime != "" {
			// The download can report a different container than the
			// webhook metadata did; it must pass the same gate.
			if !AudioMimeSupported(fetchedMime) {
				i.logger.Warn("fetched audio mime unsupported", "mime", fetchedMime, "message_id", in.MessageID)
				return PlaceholderAudioUnsupported
			}
			mime = fetchedMime
		}
	}
	if i.transcriber == nil {
		return PlaceholderAudioFailed
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		i.logger.Warn("audio decode failed", "error", err, "message_id", in.MessageID)
		return PlaceholderAudioFailed
	}
	transcript, err := i.transcriber.Transcribe(ctx, raw, mime)
	if err != nil || strings.TrimSpace(transcript) == "" {
		i.logger.Warn("transcription failed", "error", err, "message_id", in.MessageID)
		return PlaceholderAudioFailed
	}
	return strings.TrimSpace(transcript)
}

func (i *Ingestor) fetch(ctx context.Context, instance, apiKey, messageID string) (string, string, error) {
	if i.fetcher == nil {
		return "", "", fmt.Errorf("media: no fetcher configured")
	}
	if messageID == "" {
		return "", "", fmt.Errorf("media: no message id to fetch")
	}
	return i.fetcher.FetchMediaBase64(ctx, instance, apiKey, messageID)
}

// AudioMimeSupported reports whether the MIME type (ignoring codec
// parameters) is in the transcription-supported set.
func AudioMimeSupported(mimeType string) bool {
	base := strings.TrimSpace(strings.ToLower(mimeType))
	if idx := strings.Index(base, ";"); idx >= 0 {
		base = strings.TrimSpace(base[:idx])
	}
	return supportedAudioMimes[base]
}

func attachmentPlaceholder(kind string, in Input) string {
	if name := strings.TrimSpace(in.FileName); name != "" {
		return fmt.Sprintf("[%s recibido: %s]", kind, name)
	}
	if caption := strings.TrimSpace(in.Caption); caption != "" {
		return fmt.Sprintf("[%s recibido: %s]", kind, caption)
	}
	return fmt.Sprintf("[%s recibido]", kind)
}

func withCaption(caption, body string) string {
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return body
	}
	return caption + "\n" + body
}
