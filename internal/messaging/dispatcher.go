package messaging

import (
	"context"
	"encoding/base64"
	"math/rand"
	"time"

	"github.com/cristian1110/nipponflex-saas-sub000/internal/agents"
	"github.com/cristian1110/nipponflex-saas-sub000/pkg/logging"
)

// gateway is the outbound surface of Client the dispatcher uses.
type gateway interface {
	SendText(ctx context.Context, instance, apiKey, number, text string) error
	SendAudio(ctx context.Context, instance, apiKey, number, audioB64 string) error
	SendPresence(ctx context.Context, instance, apiKey, number, presence string, delay time.Duration)
}

// Dispatch describes one outbound reply.
type Dispatch struct {
	Instance string
	APIKey   string
	Number   string
	Text     string
	Agent    *agents.Agent
}

// Result reports how the reply was delivered.
type Result struct {
	Voice bool
}

// Dispatcher sends replies as text or voice. Voice is used only when the
// agent opts in, a voice is configured, and synthesis succeeds; any voice
// failure falls back to text.
type Dispatcher struct {
	gateway      gateway
	synth        Synthesizer
	voiceEnabled bool
	delayMin     time.Duration
	delayMax     time.Duration
	sleep        func(time.Duration)
	logger       *logging.Logger
}

// DispatcherConfig wires a Dispatcher.
type DispatcherConfig struct {
	Gateway      *Client
	Synthesizer  Synthesizer
	VoiceEnabled bool
	DelayMin     time.Duration
	DelayMax     time.Duration
	Logger       *logging.Logger
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		gateway:      cfg.Gateway,
		synth:        cfg.Synthesizer,
		voiceEnabled: cfg.VoiceEnabled,
		delayMin:     cfg.DelayMin,
		delayMax:     cfg.DelayMax,
		sleep:        time.Sleep,
		logger:       logger,
	}
}

// SignalTyping shows the typing indicator without delivering anything.
// Callers invoke it before slow upstream work so the contact sees activity
// while the reply is still being produced.
func (d *Dispatcher) SignalTyping(ctx context.Context, out Dispatch) {
	d.gateway.SendPresence(ctx, out.Instance, out.APIKey, out.Number, "composing", d.delayMax)
}

// Send shows a typing indicator, waits a human-feeling beat, then delivers
// the reply.
func (d *Dispatcher) Send(ctx context.Context, out Dispatch) (Result, error) {
	delay := d.typingDelay()
	d.gateway.SendPresence(ctx, out.Instance, out.APIKey, out.Number, "composing", delay)
	if delay > 0 {
		d.sleep(delay)
	}

	if d.wantsVoice(out.Agent) {
		audio, err := d.synth.Synthesize(ctx, out.Text, out.Agent.VoiceID)
		if err != nil {
			d.logger.Warn("voice synthesis failed, falling back to text",
				"instance", out.Instance, "error", err)
		} else {
			audioB64 := base64.StdEncoding.EncodeToString(audio)
			if err := d.gateway.SendAudio(ctx, out.Instance, out.APIKey, out.Number, audioB64); err != nil {
				d.logger.Warn("voice send failed, falling back to text",
					"instance", out.Instance, "error", err)
			} else {
				return Result{Voice: true}, nil
			}
		}
	}

	if err := d.gateway.SendText(ctx, out.Instance, out.APIKey, out.Number, out.Text); err != nil {
		return Result{}, err
	}
	return Result{}, nil
}

func (d *Dispatcher) wantsVoice(agent *agents.Agent) bool {
	return d.voiceEnabled &&
		d.synth != nil &&
		agent != nil &&
		agent.VoiceReplies &&
		agent.VoiceID != ""
}

func (d *Dispatcher) typingDelay() time.Duration {
	if d.delayMax <= d.delayMin {
		return d.delayMin
	}
	spread := d.delayMax - d.delayMin
	return d.delayMin + time.Duration(rand.Int63n(int64(spread)))
}
