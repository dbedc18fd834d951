package media

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

type fakeFetcher struct {
	data   string
	mime   string
	err    error
	calls  int
	apiKey string
}

func (f *fakeFetcher) FetchMediaBase64(ctx context.Context, instance, apiKey, messageID string) (string, string, error) {
	f.calls++
	f.apiKey = apiKey
	return f.data, f.mime, f.err
}

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeDescriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeDescriber) DescribeImage(ctx context.Context, imageB64, mimeType, instruction string) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestNormalizeTextPassthrough(t *testing.T) {
	ing := NewIngestor(nil, nil, nil, nil)
	got, modality := ing.Normalize(context.Background(), "inst", "", Input{Kind: ModalityText, Text: "hola"})
	if got != "hola" || modality != ModalityText {
		t.Fatalf("got %q/%q", got, modality)
	}
}

func TestNormalizeAudioUnsupportedMimeSkipsTranscription(t *testing.T) {
	tr := &fakeTranscriber{text: "no debería llamarse"}
	fetch := &fakeFetcher{data: "ZGF0YQ=="}
	ing := NewIngestor(fetch, tr, nil, nil)

	got, modality := ing.Normalize(context.Background(), "inst", "", Input{
		Kind:     ModalityAudio,
		MimeType: "audio/amr",
		Base64:   "ZGF0YQ==",
	})
	if got != PlaceholderAudioUnsupported {
		t.Fatalf("got %q, want unsupported placeholder", got)
	}
	if modality != ModalityAudio {
		t.Fatalf("modality = %q", modality)
	}
	if tr.calls != 0 {
		t.Fatalf("transcriber called %d times for unsupported mime", tr.calls)
	}
	if fetch.calls != 0 {
		t.Fatalf("fetcher called %d times for unsupported mime", fetch.calls)
	}
}

func TestNormalizeAudioTranscribes(t *testing.T) {
	tr := &fakeTranscriber{text: "  quiero una cita mañana  "}
	ing := NewIngestor(nil, tr, nil, nil)

	got, _ := ing.Normalize(context.Background(), "inst", "", Input{
		Kind:     ModalityAudio,
		MimeType: "audio/ogg; codecs=opus",
		Base64:   base64.StdEncoding.EncodeToString([]byte("audio-bytes")),
	})
	if got != "quiero una cita mañana" {
		t.Fatalf("got %q", got)
	}
	if tr.calls != 1 {
		t.Fatalf("transcriber calls = %d", tr.calls)
	}
}

func TestNormalizeAudioFetchesWhenInlineMissing(t *testing.T) {
	fetch := &fakeFetcher{data: base64.StdEncoding.EncodeToString([]byte("fetched")), mime: "audio/ogg"}
	tr := &fakeTranscriber{text: "transcrito"}
	ing := NewIngestor(fetch, tr, nil, nil)

	got, _ := ing.Normalize(context.Background(), "inst", "", Input{
		Kind:      ModalityAudio,
		MimeType:  "audio/ogg",
		MessageID: "MSG1",
	})
	if got != "transcrito" {
		t.Fatalf("got %q", got)
	}
	if fetch.calls != 1 {
		t.Fatalf("fetcher calls = %d", fetch.calls)
	}
}

func TestNormalizeAudioFetchUsesTenantKey(t *testing.T) {
	fetch := &fakeFetcher{data: base64.StdEncoding.EncodeToString([]byte("fetched")), mime: "audio/ogg"}
	tr := &fakeTranscriber{text: "transcrito"}
	ing := NewIngestor(fetch, tr, nil, nil)

	ing.Normalize(context.Background(), "inst", "tenant-key", Input{
		Kind:      ModalityAudio,
		MimeType:  "audio/ogg",
		MessageID: "MSG1",
	})
	if fetch.apiKey != "tenant-key" {
		t.Fatalf("fetch api key = %q", fetch.apiKey)
	}
}

func TestNormalizeAudioFetchedUnsupportedMimeDegrades(t *testing.T) {
	fetch := &fakeFetcher{data: base64.StdEncoding.EncodeToString([]byte("fetched")), mime: "audio/amr"}
	tr := &fakeTranscriber{text: "no debería llamarse"}
	ing := NewIngestor(fetch, tr, nil, nil)

	got, _ := ing.Normalize(context.Background(), "inst", "", Input{
		Kind:      ModalityAudio,
		MimeType:  "audio/ogg",
		MessageID: "MSG1",
	})
	if got != PlaceholderAudioUnsupported {
		t.Fatalf("got %q, want unsupported placeholder", got)
	}
	if tr.calls != 0 {
		t.Fatalf("transcriber called %d times for unsupported fetched mime", tr.calls)
	}
}

func TestNormalizeAudioTranscriptionFailureDegrades(t *testing.T) {
	tr := &fakeTranscriber{err: errors.New("whisper down")}
	ing := NewIngestor(nil, tr, nil, nil)

	got, _ := ing.Normalize(context.Background(), "inst", "", Input{
		Kind:     ModalityAudio,
		MimeType: "audio/mpeg",
		Base64:   "ZGF0YQ==",
	})
	if got != PlaceholderAudioFailed {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeImageDescribes(t *testing.T) {
	desc := &fakeDescriber{text: "Una pulsera magnética dorada"}
	ing := NewIngestor(nil, nil, desc, nil)

	got, modality := ing.Normalize(context.Background(), "inst", "", Input{
		Kind:     ModalityImage,
		Caption:  "¿cuánto cuesta esta?",
		MimeType: "image/jpeg",
		Base64:   "aW1n",
	})
	if modality != ModalityImage {
		t.Fatalf("modality = %q", modality)
	}
	if !strings.Contains(got, "¿cuánto cuesta esta?") {
		t.Fatalf("caption lost: %q", got)
	}
	if !strings.Contains(got, "Una pulsera magnética dorada") {
		t.Fatalf("description lost: %q", got)
	}
}

func TestNormalizeImageFailureKeepsCaption(t *testing.T) {
	desc := &fakeDescriber{err: errors.New("vision down")}
	ing := NewIngestor(nil, nil, desc, nil)

	got, _ := ing.Normalize(context.Background(), "inst", "", Input{
		Kind:    ModalityImage,
		Caption: "mira esto",
		Base64:  "aW1n",
	})
	if !strings.Contains(got, "mira esto") || !strings.Contains(got, PlaceholderImageFailed) {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeDocumentAndVideoPlaceholders(t *testing.T) {
	ing := NewIngestor(nil, nil, nil, nil)

	doc, _ := ing.Normalize(context.Background(), "inst", "", Input{Kind: ModalityDocument, FileName: "catalogo.pdf"})
	if doc != "[Documento recibido: catalogo.pdf]" {
		t.Fatalf("doc = %q", doc)
	}
	vid, _ := ing.Normalize(context.Background(), "inst", "", Input{Kind: ModalityVideo})
	if vid != "[Video recibido]" {
		t.Fatalf("vid = %q", vid)
	}
}

func TestAudioMimeSupported(t *testing.T) {
	cases := map[string]bool{
		"audio/ogg":              true,
		"audio/OGG; codecs=opus": true,
		"audio/mpeg":             true,
		"audio/amr":              false,
		"":                       false,
	}
	for mime, want := range cases {
		if got := AudioMimeSupported(mime); got != want {
			t.Errorf("AudioMimeSupported(%q) = %v, want %v", mime, got, want)
		}
	}
}
