package handlers

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cristian1110/nipponflex-saas-sub000/internal/appointments"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/instances"
	"github.com/cristian1110/nipponflex-saas-sub000/pkg/logging"
)

const workerSecretHeader = "X-Worker-Secret"

type reminderStore interface {
	DueReminders(ctx context.Context, now time.Time) ([]appointments.Appointment, error)
	MarkReminderSent(ctx context.Context, tenantID uuid.UUID, id int64) error
}

type tenantInstanceResolver interface {
	ConnectedForTenant(ctx context.Context, tenantID uuid.UUID) (*instances.Instance, error)
}

type textSender interface {
	SendText(ctx context.Context, instance, apiKey, number, text string) error
}

// RemindersHandler dispatches due appointment reminders. It is invoked by
// a companion cron job, authenticated with a shared secret header.
type RemindersHandler struct {
	secret    string
	store     reminderStore
	instances tenantInstanceResolver
	sender    textSender
	logger    *logging.Logger
	now       func() time.Time
}

type RemindersConfig struct {
	Secret    string
	Store     reminderStore
	Instances tenantInstanceResolver
	Sender    textSender
	Logger    *logging.Logger
	Now       func() time.Time
}

func NewRemindersHandler(cfg RemindersConfig) *RemindersHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &RemindersHandler{
		secret:    cfg.Secret,
		store:     cfg.Store,
		instances: cfg.Instances,
		sender:    cfg.Sender,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
}

// Run scans due reminders and sends each over the tenant's WhatsApp line.
// One failing reminder does not block the rest of the batch.
func (h *RemindersHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(r.Header.Get(workerSecretHeader)), []byte(h.secret)) != 1 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	now := h.now()
	due, err := h.store.DueReminders(r.Context(), now)
	if err != nil {
		h.logger.Error("due reminders query failed", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	sent := 0
	failed := 0
	for _, appt := range due {
		if err := h.dispatch(r.Context(), &appt); err != nil {
			h.logger.Warn("reminder dispatch failed",
				"error", err, "appointment_id", appt.ID, "tenant_id", appt.TenantID)
			failed++
			continue
		}
		if err := h.store.MarkReminderSent(r.Context(), appt.TenantID, appt.ID); err != nil {
			h.logger.Error("mark reminder sent failed",
				"error", err, "appointment_id", appt.ID)
		}
		sent++
	}

	writeJSON(w, http.StatusOK, map[string]int{"due": len(due), "sent": sent, "failed": failed})
}

func (h *RemindersHandler) dispatch(ctx context.Context, appt *appointments.Appointment) error {
	if appt.ReminderPhone == "" {
		return fmt.Errorf("appointment %d has no reminder phone", appt.ID)
	}
	inst, err := h.instances.ConnectedForTenant(ctx, appt.TenantID)
	if err != nil {
		return fmt.Errorf("resolve instance for tenant %s: %w", appt.TenantID, err)
	}
	return h.sender.SendText(ctx, inst.Name, inst.APIKey, appt.ReminderPhone, reminderText(appt))
}

func reminderText(appt *appointments.Appointment) string {
	return fmt.Sprintf("Recordatorio: tu cita \"%s\" es el %s a las %s. ¡Te esperamos!",
		appt.Title,
		appt.StartsAt.Format("02/01/2006"),
		appt.StartsAt.Format("15:04"))
}
