package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cristian1110/nipponflex-saas-sub000/internal/agents"
)

type fakeGateway struct {
	texts     []string
	audios    []string
	presences []string
	textErr   error
	audioErr  error
}

func (f *fakeGateway) SendText(ctx context.Context, instance, apiKey, number, text string) error {
	f.texts = append(f.texts, text)
	return f.textErr
}

func (f *fakeGateway) SendAudio(ctx context.Context, instance, apiKey, number, audioB64 string) error {
	if f.audioErr != nil {
		return f.audioErr
	}
	f.audios = append(f.audios, audioB64)
	return nil
}

func (f *fakeGateway) SendPresence(ctx context.Context, instance, apiKey, number, presence string, delay time.Duration) {
	f.presences = append(f.presences, presence)
}

type fakeSynth struct {
	audio []byte
	err   error
	calls int
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	f.calls++
	return f.audio, f.err
}

func newTestDispatcher(gw gateway, synth Synthesizer, voiceEnabled bool) *Dispatcher {
	d := NewDispatcher(DispatcherConfig{
		Synthesizer:  synth,
		VoiceEnabled: voiceEnabled,
	})
	d.gateway = gw
	d.sleep = func(time.Duration) {}
	return d
}

func voiceAgent() *agents.Agent {
	return &agents.Agent{VoiceReplies: true, VoiceID: "nova"}
}

func TestSendTextWhenVoiceDisabled(t *testing.T) {
	gw := &fakeGateway{}
	synth := &fakeSynth{audio: []byte("mp3")}
	d := newTestDispatcher(gw, synth, false)

	res, err := d.Send(context.Background(), Dispatch{Number: "55", Text: "hola", Agent: voiceAgent()})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Voice {
		t.Fatal("voice reply with voice disabled")
	}
	if len(gw.texts) != 1 || gw.texts[0] != "hola" {
		t.Fatalf("texts = %v", gw.texts)
	}
	if synth.calls != 0 {
		t.Fatalf("synth calls = %d", synth.calls)
	}
}

func TestSendVoiceWhenAgentOptsIn(t *testing.T) {
	gw := &fakeGateway{}
	synth := &fakeSynth{audio: []byte("mp3-bytes")}
	d := newTestDispatcher(gw, synth, true)

	res, err := d.Send(context.Background(), Dispatch{Number: "55", Text: "hola", Agent: voiceAgent()})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !res.Voice {
		t.Fatal("expected voice reply")
	}
	if len(gw.audios) != 1 {
		t.Fatalf("audios = %v", gw.audios)
	}
	if len(gw.texts) != 0 {
		t.Fatalf("unexpected text send: %v", gw.texts)
	}
}

func TestSendVoiceWithoutVoiceIDFallsToText(t *testing.T) {
	gw := &fakeGateway{}
	synth := &fakeSynth{audio: []byte("mp3")}
	d := newTestDispatcher(gw, synth, true)

	agent := &agents.Agent{VoiceReplies: true}
	res, err := d.Send(context.Background(), Dispatch{Number: "55", Text: "hola", Agent: agent})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Voice || len(gw.texts) != 1 {
		t.Fatalf("res=%+v texts=%v", res, gw.texts)
	}
}

func TestSynthesisFailureFallsBackToText(t *testing.T) {
	gw := &fakeGateway{}
	synth := &fakeSynth{err: errors.New("tts down")}
	d := newTestDispatcher(gw, synth, true)

	res, err := d.Send(context.Background(), Dispatch{Number: "55", Text: "hola", Agent: voiceAgent()})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Voice {
		t.Fatal("reported voice after synthesis failure")
	}
	if len(gw.texts) != 1 {
		t.Fatalf("texts = %v", gw.texts)
	}
}

func TestAudioSendFailureFallsBackToText(t *testing.T) {
	gw := &fakeGateway{audioErr: errors.New("gateway rejected audio")}
	synth := &fakeSynth{audio: []byte("mp3")}
	d := newTestDispatcher(gw, synth, true)

	res, err := d.Send(context.Background(), Dispatch{Number: "55", Text: "hola", Agent: voiceAgent()})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Voice || len(gw.texts) != 1 {
		t.Fatalf("res=%+v texts=%v", res, gw.texts)
	}
}

func TestSendShowsComposingPresence(t *testing.T) {
	gw := &fakeGateway{}
	d := newTestDispatcher(gw, nil, false)

	if _, err := d.Send(context.Background(), Dispatch{Number: "55", Text: "hola"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(gw.presences) != 1 || gw.presences[0] != "composing" {
		t.Fatalf("presences = %v", gw.presences)
	}
}

func TestSignalTypingEmitsComposingWithoutSending(t *testing.T) {
	gw := &fakeGateway{}
	d := newTestDispatcher(gw, nil, false)

	d.SignalTyping(context.Background(), Dispatch{Number: "55"})
	if len(gw.presences) != 1 || gw.presences[0] != "composing" {
		t.Fatalf("presences = %v", gw.presences)
	}
	if len(gw.texts) != 0 || len(gw.audios) != 0 {
		t.Fatalf("unexpected delivery: texts=%v audios=%v", gw.texts, gw.audios)
	}
}

func TestTypingDelayStaysInRange(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{
		DelayMin: 1500 * time.Millisecond,
		DelayMax: 3500 * time.Millisecond,
	})
	for i := 0; i < 100; i++ {
		delay := d.typingDelay()
		if delay < 1500*time.Millisecond || delay >= 3500*time.Millisecond {
			t.Fatalf("delay %v out of range", delay)
		}
	}
}
