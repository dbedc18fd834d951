package appointments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cristian1110/nipponflex-saas-sub000/internal/temporal"
	"github.com/cristian1110/nipponflex-saas-sub000/pkg/logging"
)

const defaultTitle = "Cita"

// Executor validates tenant ownership and applies one extracted command
// against the store.
type Executor struct {
	store  *Store
	logger *logging.Logger
}

func NewExecutor(store *Store, logger *logging.Logger) *Executor {
	if store == nil {
		panic("appointments: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Executor{store: store, logger: logger}
}

// Result describes the side effect that was applied.
type Result struct {
	Action        string // "created" | "rescheduled" | "cancelled"
	AppointmentID int64
}

// Execute applies cmd on behalf of tenantID. Modify and cancel re-read the
// row under the tenant scope before writing; a row owned by another tenant
// surfaces as ErrNotFound with no write performed.
func (e *Executor) Execute(ctx context.Context, tenantID uuid.UUID, leadID *uuid.UUID, reminderPhone string, cmd Command) (*Result, error) {
	switch c := cmd.(type) {
	case CreateCommand:
		return e.create(ctx, tenantID, leadID, reminderPhone, c)
	case ModifyCommand:
		return e.modify(ctx, tenantID, c)
	case CancelCommand:
		return e.cancel(ctx, tenantID, c)
	default:
		return nil, fmt.Errorf("appointments: unknown command type %T", cmd)
	}
}

func (e *Executor) create(ctx context.Context, tenantID uuid.UUID, leadID *uuid.UUID, reminderPhone string, cmd CreateCommand) (*Result, error) {
	startsAt, err := parseSlot(cmd.Date, cmd.Time)
	if err != nil {
		return nil, err
	}
	title := cmd.Title
	if title == "" {
		title = defaultTitle
	}
	appt := &Appointment{
		TenantID:        tenantID,
		LeadID:          leadID,
		Title:           title,
		StartsAt:        startsAt,
		EndsAt:          startsAt.Add(time.Duration(cmd.DurationMinutes) * time.Minute),
		Status:          StatusPending,
		ReminderMinutes: 60,
		ReminderChannel: "whatsapp",
		ReminderPhone:   reminderPhone,
	}
	id, err := e.store.Create(ctx, appt)
	if err != nil {
		return nil, err
	}
	e.logger.Info("appointment created", "tenant_id", tenantID, "appointment_id", id, "starts_at", startsAt)
	return &Result{Action: "created", AppointmentID: id}, nil
}

func (e *Executor) modify(ctx context.Context, tenantID uuid.UUID, cmd ModifyCommand) (*Result, error) {
	existing, err := e.store.GetForTenant(ctx, tenantID, cmd.AppointmentID)
	if err != nil {
		return nil, err
	}
	startsAt, err := parseSlot(cmd.NewDate, cmd.NewTime)
	if err != nil {
		return nil, err
	}
	// The modify block carries no duration; keep the previous one.
	duration := existing.EndsAt.Sub(existing.StartsAt)
	if duration <= 0 {
		duration = time.Duration(defaultDurationMinutes) * time.Minute
	}
	if err := e.store.Reschedule(ctx, tenantID, existing.ID, startsAt, startsAt.Add(duration)); err != nil {
		return nil, err
	}
	e.logger.Info("appointment rescheduled", "tenant_id", tenantID, "appointment_id", existing.ID, "starts_at", startsAt)
	return &Result{Action: "rescheduled", AppointmentID: existing.ID}, nil
}

func (e *Executor) cancel(ctx context.Context, tenantID uuid.UUID, cmd CancelCommand) (*Result, error) {
	existing, err := e.store.GetForTenant(ctx, tenantID, cmd.AppointmentID)
	if err != nil {
		return nil, err
	}
	if err := e.store.Cancel(ctx, tenantID, existing.ID, cmd.Reason); err != nil {
		return nil, err
	}
	e.logger.Info("appointment cancelled", "tenant_id", tenantID, "appointment_id", existing.ID)
	return &Result{Action: "cancelled", AppointmentID: existing.ID}, nil
}

// parseSlot combines the ISO date and 24-hour time the model emits.
// Models occasionally slip back into natural language ("mañana", "4pm");
// those fall through the Spanish phrase parser before giving up.
func parseSlot(date, clock string) (time.Time, error) {
	if ts, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, time.Local); err == nil {
		return ts, nil
	}

	day, ok := temporal.ResolveDate(date, time.Now())
	if !ok {
		return time.Time{}, fmt.Errorf("appointments: unresolvable date %q", date)
	}
	hhmm := clock
	if _, err := time.Parse("15:04", hhmm); err != nil {
		resolved, ok := temporal.ResolveTime(clock)
		if !ok {
			return time.Time{}, fmt.Errorf("appointments: unresolvable time %q", clock)
		}
		hhmm = resolved
	}
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("appointments: invalid slot %q %q: %w", date, clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.Local), nil
}
