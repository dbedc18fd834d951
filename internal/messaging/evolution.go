// Package messaging sends outbound WhatsApp replies through an
// Evolution API gateway and decides between text and voice delivery.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cristian1110/nipponflex-saas-sub000/pkg/logging"
)

// Client is an HTTP client for an Evolution API WhatsApp gateway.
// Instance-scoped API keys override the global one per call.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a gateway client. baseURL is the Evolution API root
// (e.g. "https://evolution.example.com") and apiKey the global key used
// when a call does not carry an instance-scoped one.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logging.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type sendAudioRequest struct {
	Number string `json:"number"`
	Audio  string `json:"audio"` // base64
}

type presenceRequest struct {
	Number   string `json:"number"`
	Presence string `json:"presence"`
	Delay    int    `json:"delay,omitempty"` // milliseconds
}

type mediaRequest struct {
	Message mediaRequestKey `json:"message"`
}

type mediaRequestKey struct {
	Key mediaMessageKey `json:"key"`
}

type mediaMessageKey struct {
	ID string `json:"id"`
}

type mediaResponse struct {
	Base64   string `json:"base64"`
	MimeType string `json:"mimetype"`
}

// SendText delivers a plain text message to number through instance.
func (c *Client) SendText(ctx context.Context, instance, apiKey, number, text string) error {
	return c.post(ctx, "/message/sendText/"+instance, apiKey, sendTextRequest{Number: number, Text: text}, nil)
}

// SendAudio delivers a base64-encoded voice note.
func (c *Client) SendAudio(ctx context.Context, instance, apiKey, number, audioB64 string) error {
	return c.post(ctx, "/message/sendWhatsAppAudio/"+instance, apiKey, sendAudioRequest{Number: number, Audio: audioB64}, nil)
}

// SendPresence publishes a presence state ("composing", "recording",
// "available") for number. Failures are logged, never returned; presence
// is cosmetic.
func (c *Client) SendPresence(ctx context.Context, instance, apiKey, number, presence string, delay time.Duration) {
	req := presenceRequest{Number: number, Presence: presence, Delay: int(delay.Milliseconds())}
	if err := c.post(ctx, "/chat/sendPresence/"+instance, apiKey, req, nil); err != nil {
		c.logger.Debug("presence update failed", "instance", instance, "error", err)
	}
}

// FetchMediaBase64 downloads the media payload of a previously received
// message as base64 plus its MIME type. An empty apiKey falls back to the
// client's global key, same as the send calls.
func (c *Client) FetchMediaBase64(ctx context.Context, instance, apiKey, messageID string) (string, string, error) {
	req := mediaRequest{Message: mediaRequestKey{Key: mediaMessageKey{ID: messageID}}}

	var result mediaResponse
	if err := c.post(ctx, "/chat/getBase64FromMediaMessage/"+instance, apiKey, req, &result); err != nil {
		return "", "", err
	}
	if result.Base64 == "" {
		return "", "", fmt.Errorf("messaging: empty media payload for message %s", messageID)
	}
	return result.Base64, result.MimeType, nil
}

func (c *Client) post(ctx context.Context, path, apiKey string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("messaging: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("messaging: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if apiKey == "" {
		apiKey = c.apiKey
	}
	httpReq.Header.Set("apikey", apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("messaging: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("messaging: gateway returned %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("messaging: decode response: %w", err)
		}
	}
	return nil
}
