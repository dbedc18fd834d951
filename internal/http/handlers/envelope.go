package handlers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cristian1110/nipponflex-saas-sub000/internal/media"
)

// webhookEnvelope is the Evolution API messages.upsert payload.
type webhookEnvelope struct {
	Event    string      `json:"event"`
	Instance string      `json:"instance"`
	Data     webhookData `json:"data"`
}

type webhookData struct {
	Key      messageKey      `json:"key"`
	PushName string          `json:"pushName"`
	Message  *messageContent `json:"message"`
}

type messageKey struct {
	RemoteJid string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
	ID        string `json:"id"`
}

type messageContent struct {
	Conversation        string          `json:"conversation"`
	ExtendedTextMessage *extendedText   `json:"extendedTextMessage"`
	ImageMessage        *mediaMessage   `json:"imageMessage"`
	AudioMessage        *mediaMessage   `json:"audioMessage"`
	DocumentMessage     *documentDetail `json:"documentMessage"`
	VideoMessage        *mediaMessage   `json:"videoMessage"`
	Base64              string          `json:"base64"`
}

type extendedText struct {
	Text string `json:"text"`
}

type mediaMessage struct {
	Caption  string `json:"caption"`
	MimeType string `json:"mimetype"`
}

type documentDetail struct {
	Caption  string `json:"caption"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimetype"`
}

const (
	eventMessagesUpsert = "messages.upsert"
	userJidSuffix       = "@s.whatsapp.net"
	groupJidSuffix      = "@g.us"
)

func parseEnvelope(body []byte) (*webhookEnvelope, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode webhook envelope: %w", err)
	}
	return &env, nil
}

// eligible reports whether the event should enter the pipeline at all.
// Self-sent messages, group chats and non-upsert events are dropped.
func (e *webhookEnvelope) eligible() bool {
	if e.Event != eventMessagesUpsert {
		return false
	}
	if e.Data.Key.FromMe {
		return false
	}
	if strings.HasSuffix(e.Data.Key.RemoteJid, groupJidSuffix) {
		return false
	}
	if e.Data.Message == nil {
		return false
	}
	return true
}

// senderPhone extracts the bare phone number from the remote JID.
func (e *webhookEnvelope) senderPhone() string {
	jid := e.Data.Key.RemoteJid
	if idx := strings.Index(jid, "@"); idx >= 0 {
		jid = jid[:idx]
	}
	return strings.TrimSpace(jid)
}

// mediaInput maps the message variant onto one ingestion input. The bool
// is false when no usable variant is present.
func (e *webhookEnvelope) mediaInput() (media.Input, bool) {
	msg := e.Data.Message
	if msg == nil {
		return media.Input{}, false
	}
	in := media.Input{MessageID: e.Data.Key.ID, Base64: msg.Base64}

	switch {
	case msg.Conversation != "":
		in.Kind = media.ModalityText
		in.Text = msg.Conversation
	case msg.ExtendedTextMessage != nil && msg.ExtendedTextMessage.Text != "":
		in.Kind = media.ModalityText
		in.Text = msg.ExtendedTextMessage.Text
	case msg.ImageMessage != nil:
		in.Kind = media.ModalityImage
		in.Caption = msg.ImageMessage.Caption
		in.MimeType = msg.ImageMessage.MimeType
	case msg.AudioMessage != nil:
		in.Kind = media.ModalityAudio
		in.MimeType = msg.AudioMessage.MimeType
	case msg.DocumentMessage != nil:
		in.Kind = media.ModalityDocument
		in.Caption = msg.DocumentMessage.Caption
		in.FileName = msg.DocumentMessage.FileName
		in.MimeType = msg.DocumentMessage.MimeType
	case msg.VideoMessage != nil:
		in.Kind = media.ModalityVideo
		in.Caption = msg.VideoMessage.Caption
		in.MimeType = msg.VideoMessage.MimeType
	default:
		return media.Input{}, false
	}
	return in, true
}
