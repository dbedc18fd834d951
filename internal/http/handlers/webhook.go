// Package handlers holds the HTTP surface of the service. The webhook
// handler is the pipeline orchestrator: one inbound WhatsApp event in,
// one terminal status out.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cristian1110/nipponflex-saas-sub000/internal/agents"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/appointments"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/config"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/conversation"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/instances"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/knowledge"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/leads"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/media"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/messaging"
	observemetrics "github.com/cristian1110/nipponflex-saas-sub000/internal/observability/metrics"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/usage"
	openai "github.com/sashabaranov/go-openai"

	"github.com/cristian1110/nipponflex-saas-sub000/pkg/logging"
)

// Terminal statuses of one pipeline run.
const (
	StatusIgnored    = "ignored"
	StatusNoInstance = "no_instance"
	StatusNoAgent    = "no_agent"
	StatusOutOfHours = "out_of_hours"
	StatusError      = "error"
	StatusReplied    = "replied"
)

type instanceResolver interface {
	ResolveConnected(ctx context.Context, name string) (*instances.Instance, error)
}

type leadUpserter interface {
	Upsert(ctx context.Context, tenantID uuid.UUID, phone, name string) (*leads.Lead, error)
}

type agentSelector interface {
	Select(ctx context.Context, tenantID uuid.UUID) (*agents.Agent, error)
}

type ingestor interface {
	Normalize(ctx context.Context, instance, apiKey string, in media.Input) (string, media.Modality)
}

type historyProvider interface {
	Recent(ctx context.Context, tenantID uuid.UUID, phone string, limit int) ([]conversation.Turn, error)
	Invalidate(ctx context.Context, tenantID uuid.UUID, phone string)
}

type turnAppender interface {
	Append(ctx context.Context, tenantID uuid.UUID, phone, role, content string) (*conversation.Turn, error)
}

type languageModel interface {
	Generate(ctx context.Context, messages []openai.ChatCompletionMessage, agent *agents.Agent) (*conversation.Reply, error)
	ClassifySentiment(ctx context.Context, utterance string) (*conversation.Sentiment, error)
}

type knowledgeRetriever interface {
	Query(ctx context.Context, agentID, tenantID uuid.UUID, utterance string) *knowledge.Context
}

type commandExecutor interface {
	Execute(ctx context.Context, tenantID uuid.UUID, leadID *uuid.UUID, reminderPhone string, cmd appointments.Command) (*appointments.Result, error)
}

type replyDispatcher interface {
	SignalTyping(ctx context.Context, out messaging.Dispatch)
	Send(ctx context.Context, out messaging.Dispatch) (messaging.Result, error)
}

type usageRecorder interface {
	RecordAPICall(ctx context.Context, tenantID uuid.UUID, category string, tokens int) error
	IncrementMonthlyMessages(ctx context.Context, tenantID uuid.UUID, now time.Time) (int64, error)
}

// WebhookHandler runs one conversational turn per inbound event.
type WebhookHandler struct {
	cfg        *config.Config
	instances  instanceResolver
	leads      leadUpserter
	agents     agentSelector
	ingest     ingestor
	history    historyProvider
	turns      turnAppender
	llm        languageModel
	retriever  knowledgeRetriever
	executor   commandExecutor
	dispatcher replyDispatcher
	usage      usageRecorder
	metrics    *observemetrics.PipelineMetrics
	logger     *logging.Logger
	now        func() time.Time
}

type WebhookConfig struct {
	Config     *config.Config
	Instances  instanceResolver
	Leads      leadUpserter
	Agents     agentSelector
	Ingest     ingestor
	History    historyProvider
	Turns      turnAppender
	LLM        languageModel
	Retriever  knowledgeRetriever
	Executor   commandExecutor
	Dispatcher replyDispatcher
	Usage      usageRecorder
	Metrics    *observemetrics.PipelineMetrics
	Logger     *logging.Logger
	Now        func() time.Time
}

func NewWebhookHandler(cfg WebhookConfig) *WebhookHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &WebhookHandler{
		cfg:        cfg.Config,
		instances:  cfg.Instances,
		leads:      cfg.Leads,
		agents:     cfg.Agents,
		ingest:     cfg.Ingest,
		history:    cfg.History,
		turns:      cfg.Turns,
		llm:        cfg.LLM,
		retriever:  cfg.Retriever,
		executor:   cfg.Executor,
		dispatcher: cfg.Dispatcher,
		usage:      cfg.Usage,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
}

// turnResult is the structured outcome of one pipeline run.
type turnResult struct {
	Status        string     `json:"status"`
	LeadID        *uuid.UUID `json:"lead_id,omitempty"`
	Channel       string     `json:"channel,omitempty"`
	Tokens        int        `json:"tokens,omitempty"`
	AppointmentID int64      `json:"appointment_id,omitempty"`
}

// Liveness answers GET probes on the webhook path.
func (h *WebhookHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	version := "dev"
	if h.cfg != nil {
		version = h.cfg.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339),
		"version":   version,
	})
}

// Handle processes one inbound event. The transport retries on non-2xx,
// so every terminal status, including errors, answers HTTP 200.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	result := turnResult{Status: StatusError}
	modality := string(media.ModalityText)

	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("webhook pipeline panicked", "panic", rec)
			result = turnResult{Status: StatusError}
		}
		h.metrics.ObserveInbound(result.Status, modality)
		h.metrics.ObserveTurnLatency(result.Status, h.now().Sub(start).Seconds())
		writeJSON(w, http.StatusOK, result)
	}()

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.logger.Warn("webhook body read failed", "error", err)
		result.Status = StatusIgnored
		return
	}
	env, err := parseEnvelope(body)
	if err != nil {
		h.logger.Warn("webhook payload undecodable", "error", err)
		result.Status = StatusIgnored
		return
	}
	if !env.eligible() {
		result.Status = StatusIgnored
		return
	}
	in, ok := env.mediaInput()
	if !ok {
		result.Status = StatusIgnored
		return
	}
	phone := env.senderPhone()
	if phone == "" {
		result.Status = StatusIgnored
		return
	}

	result = h.runTurn(r.Context(), env, in, phone, &modality)
}

func (h *WebhookHandler) runTurn(ctx context.Context, env *webhookEnvelope, in media.Input, phone string, modality *string) turnResult {
	instance, err := h.instances.ResolveConnected(ctx, env.Instance)
	if err != nil {
		if errors.Is(err, instances.ErrNotFound) || errors.Is(err, instances.ErrNotConnected) {
			h.logger.Warn("no usable instance for event", "instance", env.Instance, "error", err)
			return turnResult{Status: StatusNoInstance}
		}
		h.logger.Error("instance lookup failed", "instance", env.Instance, "error", err)
		return turnResult{Status: StatusError}
	}
	tenantID := instance.TenantID
	runtime := h.cfg.RuntimeFor(instance.APIKey)

	utterance, mod := h.ingestText(ctx, env.Instance, runtime.TransportAPIKey, in)
	*modality = string(mod)
	if utterance == "" {
		return turnResult{Status: StatusIgnored}
	}
	switch mod {
	case media.ModalityAudio:
		if utterance != media.PlaceholderAudioUnsupported && utterance != media.PlaceholderAudioFailed {
			h.recordUsage(ctx, tenantID, usage.CategoryTranscription, 0)
		}
	case media.ModalityImage:
		if !strings.HasSuffix(utterance, media.PlaceholderImageFailed) {
			h.recordUsage(ctx, tenantID, usage.CategoryVision, 0)
		}
	}

	if _, err := h.turns.Append(ctx, tenantID, phone, conversation.RoleUser, utterance); err != nil {
		h.logger.Error("inbound turn persist failed", "error", err, "tenant_id", tenantID)
		return turnResult{Status: StatusError}
	}
	h.history.Invalidate(ctx, tenantID, phone)

	lead, err := h.leads.Upsert(ctx, tenantID, phone, env.Data.PushName)
	if err != nil {
		h.logger.Error("lead upsert failed", "error", err, "tenant_id", tenantID, "phone", phone)
		return turnResult{Status: StatusError}
	}

	agent, err := h.agents.Select(ctx, tenantID)
	if err != nil {
		if errors.Is(err, agents.ErrNoAgent) {
			h.logger.Info("message logged without answer, no agent", "tenant_id", tenantID)
			return turnResult{Status: StatusNoAgent, LeadID: &lead.ID}
		}
		h.logger.Error("agent selection failed", "error", err, "tenant_id", tenantID)
		return turnResult{Status: StatusError}
	}

	now := h.now()
	if !agent.WithinBusinessHours(now.Hour()) {
		return h.outOfHours(ctx, runtime, env.Instance, tenantID, phone, lead, agent)
	}

	limit := h.cfg.HistoryLimit
	history, err := h.history.Recent(ctx, tenantID, phone, limit)
	if err != nil {
		h.logger.Warn("history load failed, continuing without", "error", err)
		history = nil
	}

	sentiment := h.classifySentiment(ctx, utterance)

	var retrieved *knowledge.Context
	if runtime.RAGEnabled && h.retriever != nil {
		retrieved = h.queryKnowledge(ctx, agent.ID, tenantID, utterance)
	}

	messages := conversation.BuildMessages(conversation.PromptInput{
		Agent:     agent,
		Retrieved: retrieved,
		Sentiment: sentiment,
		History:   history,
		Utterance: utterance,
		Now:       now,
	})

	// Typing shows before the model call so the contact sees activity
	// during generation latency, not only during the send pause.
	h.dispatcher.SignalTyping(ctx, messaging.Dispatch{
		Instance: env.Instance,
		APIKey:   runtime.TransportAPIKey,
		Number:   phone,
	})

	reply, err := h.generate(ctx, messages, agent)
	if err != nil {
		h.logger.Error("language model call failed", "error", err, "tenant_id", tenantID)
		return turnResult{Status: StatusError, LeadID: &lead.ID}
	}
	h.metrics.ObserveTokens(reply.PromptTokens, reply.CompletionTokens)
	h.recordUsage(ctx, tenantID, usage.CategoryChat, reply.TotalTokens())

	visible, appointmentID := h.applyCommand(ctx, tenantID, lead, phone, reply.Content)
	if visible == "" {
		h.logger.Warn("reply empty after command strip", "tenant_id", tenantID)
		return turnResult{Status: StatusError, LeadID: &lead.ID}
	}

	sent, err := h.dispatcher.Send(ctx, messaging.Dispatch{
		Instance: env.Instance,
		APIKey:   runtime.TransportAPIKey,
		Number:   phone,
		Text:     visible,
		Agent:    agent,
	})
	if err != nil {
		h.logger.Error("reply dispatch failed", "error", err, "tenant_id", tenantID)
		return turnResult{Status: StatusError, LeadID: &lead.ID}
	}
	channel := "text"
	if sent.Voice {
		channel = "voice"
		h.metrics.ObserveVoiceReply()
		h.recordUsage(ctx, tenantID, usage.CategorySpeech, 0)
	}

	if _, err := h.turns.Append(ctx, tenantID, phone, conversation.RoleAssistant, visible); err != nil {
		h.logger.Error("outbound turn persist failed", "error", err, "tenant_id", tenantID)
	}
	h.history.Invalidate(ctx, tenantID, phone)

	if _, err := h.usage.IncrementMonthlyMessages(ctx, tenantID, now); err != nil {
		h.logger.Warn("monthly counter increment failed", "error", err, "tenant_id", tenantID)
	}

	return turnResult{
		Status:        StatusReplied,
		LeadID:        &lead.ID,
		Channel:       channel,
		Tokens:        reply.TotalTokens(),
		AppointmentID: appointmentID,
	}
}

// outOfHours delivers the configured auto-reply, if any, and terminates.
func (h *WebhookHandler) outOfHours(ctx context.Context, runtime config.Runtime, instanceName string, tenantID uuid.UUID, phone string, lead *leads.Lead, agent *agents.Agent) turnResult {
	if agent.OutOfHoursReply != "" {
		_, err := h.dispatcher.Send(ctx, messaging.Dispatch{
			Instance: instanceName,
			APIKey:   runtime.TransportAPIKey,
			Number:   phone,
			Text:     agent.OutOfHoursReply,
		})
		if err != nil {
			h.logger.Error("out-of-hours reply dispatch failed", "error", err, "tenant_id", tenantID)
		} else {
			if _, err := h.turns.Append(ctx, tenantID, phone, conversation.RoleAssistant, agent.OutOfHoursReply); err != nil {
				h.logger.Error("out-of-hours turn persist failed", "error", err, "tenant_id", tenantID)
			}
			h.history.Invalidate(ctx, tenantID, phone)
		}
	}
	return turnResult{Status: StatusOutOfHours, LeadID: &lead.ID, Channel: "text"}
}

// applyCommand extracts at most one tagged appointment command, executes
// it tenant-scoped and returns the stripped visible text. Execution
// failures are logged, never surfaced to the end user.
func (h *WebhookHandler) applyCommand(ctx context.Context, tenantID uuid.UUID, lead *leads.Lead, phone, replyText string) (string, int64) {
	cmd, visible := appointments.ExtractCommand(replyText)
	if cmd == nil {
		return visible, 0
	}
	res, err := h.executor.Execute(ctx, tenantID, &lead.ID, phone, cmd)
	if err != nil {
		h.logger.Warn("appointment command failed", "error", err, "tenant_id", tenantID)
		h.metrics.ObserveCommand(commandAction(cmd), "failed")
		return visible, 0
	}
	h.metrics.ObserveCommand(res.Action, "ok")
	h.logger.Info("appointment command applied",
		"action", res.Action, "appointment_id", res.AppointmentID, "tenant_id", tenantID)
	if res.Action == "created" {
		return visible, res.AppointmentID
	}
	return visible, 0
}

func (h *WebhookHandler) ingestText(ctx context.Context, instanceName, apiKey string, in media.Input) (string, media.Modality) {
	ctx, cancel := h.collaboratorContext(ctx)
	defer cancel()
	return h.ingest.Normalize(ctx, instanceName, apiKey, in)
}

func (h *WebhookHandler) classifySentiment(ctx context.Context, utterance string) *conversation.Sentiment {
	ctx, cancel := h.collaboratorContext(ctx)
	defer cancel()
	sentiment, err := h.llm.ClassifySentiment(ctx, utterance)
	if err != nil {
		h.logger.Warn("sentiment classification failed, continuing without", "error", err)
		return nil
	}
	return sentiment
}

func (h *WebhookHandler) queryKnowledge(ctx context.Context, agentID, tenantID uuid.UUID, utterance string) *knowledge.Context {
	ctx, cancel := h.collaboratorContext(ctx)
	defer cancel()
	retrieved := h.retriever.Query(ctx, agentID, tenantID, utterance)
	if !retrieved.Empty() {
		h.recordUsage(ctx, tenantID, usage.CategoryEmbedding, 0)
	}
	return retrieved
}

func (h *WebhookHandler) generate(ctx context.Context, messages []openai.ChatCompletionMessage, agent *agents.Agent) (*conversation.Reply, error) {
	ctx, cancel := h.collaboratorContext(ctx)
	defer cancel()
	return h.llm.Generate(ctx, messages, agent)
}

func (h *WebhookHandler) collaboratorContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := 30 * time.Second
	if h.cfg != nil && h.cfg.CollaboratorTimeout > 0 {
		timeout = h.cfg.CollaboratorTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (h *WebhookHandler) recordUsage(ctx context.Context, tenantID uuid.UUID, category string, tokens int) {
	if err := h.usage.RecordAPICall(ctx, tenantID, category, tokens); err != nil {
		h.logger.Warn("usage record failed", "error", err, "category", category)
	}
}

func commandAction(cmd appointments.Command) string {
	switch cmd.(type) {
	case appointments.CreateCommand:
		return "created"
	case appointments.ModifyCommand:
		return "rescheduled"
	case appointments.CancelCommand:
		return "cancelled"
	default:
		return "unknown"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
