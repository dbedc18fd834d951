package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists appointments. Every mutating query is scoped to the
// caller's tenant id.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Store{pool: pool}
}

const appointmentColumns = `id, tenant_id, lead_id, title, description, starts_at, ends_at,
		status, reminder_minutes, reminder_channel, reminder_phone, reminder_sent, created_at`

// Create inserts a new appointment and returns its id.
func (s *Store) Create(ctx context.Context, appt *Appointment) (int64, error) {
	query := `
		INSERT INTO appointments
			(tenant_id, lead_id, title, description, starts_at, ends_at, status,
			 reminder_minutes, reminder_channel, reminder_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	var id int64
	if err := s.pool.QueryRow(ctx, query,
		appt.TenantID,
		appt.LeadID,
		appt.Title,
		appt.Description,
		appt.StartsAt,
		appt.EndsAt,
		appt.Status,
		appt.ReminderMinutes,
		appt.ReminderChannel,
		appt.ReminderPhone,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("appointments: insert failed: %w", err)
	}
	return id, nil
}

// GetForTenant fetches one appointment scoped to the tenant. A row owned
// by another tenant comes back as ErrNotFound.
func (s *Store) GetForTenant(ctx context.Context, tenantID uuid.UUID, id int64) (*Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id = $1 AND tenant_id = $2`, appointmentColumns)
	return scanAppointment(s.pool.QueryRow(ctx, query, id, tenantID))
}

// Reschedule moves the appointment's time window and clears the
// reminder-sent flag so the reminder fires again for the new slot.
func (s *Store) Reschedule(ctx context.Context, tenantID uuid.UUID, id int64, startsAt, endsAt time.Time) error {
	query := `
		UPDATE appointments
		SET starts_at = $3, ends_at = $4, reminder_sent = FALSE, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
	`
	tag, err := s.pool.Exec(ctx, query, id, tenantID, startsAt, endsAt)
	if err != nil {
		return fmt.Errorf("appointments: reschedule failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Cancel flips the status and appends the reason to the description.
func (s *Store) Cancel(ctx context.Context, tenantID uuid.UUID, id int64, reason string) error {
	query := `
		UPDATE appointments
		SET status = $3,
			description = CASE WHEN $4 = '' THEN description
				ELSE trim(both E'\n' from description || E'\nCancelada: ' || $4) END,
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2
	`
	tag, err := s.pool.Exec(ctx, query, id, tenantID, StatusCancelled, reason)
	if err != nil {
		return fmt.Errorf("appointments: cancel failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DueReminders lists appointments whose reminder window has opened and
// whose reminder was not sent yet.
func (s *Store) DueReminders(ctx context.Context, now time.Time) ([]Appointment, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM appointments
		WHERE status IN ($1, $2)
			AND NOT reminder_sent
			AND reminder_minutes > 0
			AND starts_at - make_interval(mins => reminder_minutes) <= $3
			AND starts_at > $3
		ORDER BY starts_at
	`, appointmentColumns)
	rows, err := s.pool.Query(ctx, query, StatusPending, StatusConfirmed, now)
	if err != nil {
		return nil, fmt.Errorf("appointments: due reminders query failed: %w", err)
	}
	defer rows.Close()

	var due []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, *appt)
	}
	return due, rows.Err()
}

// MarkReminderSent flags the reminder as delivered.
func (s *Store) MarkReminderSent(ctx context.Context, tenantID uuid.UUID, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE appointments SET reminder_sent = TRUE, updated_at = now() WHERE id = $1 AND tenant_id = $2`,
		id, tenantID)
	if err != nil {
		return fmt.Errorf("appointments: mark reminder sent failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	if err := row.Scan(
		&a.ID,
		&a.TenantID,
		&a.LeadID,
		&a.Title,
		&a.Description,
		&a.StartsAt,
		&a.EndsAt,
		&a.Status,
		&a.ReminderMinutes,
		&a.ReminderChannel,
		&a.ReminderPhone,
		&a.ReminderSent,
		&a.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: scan failed: %w", err)
	}
	return &a, nil
}
