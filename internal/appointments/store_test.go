package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func appointmentRows(mock pgxmock.PgxPoolIface, a *Appointment) *pgxmock.Rows {
	return mock.NewRows([]string{
		"id", "tenant_id", "lead_id", "title", "description", "starts_at", "ends_at",
		"status", "reminder_minutes", "reminder_channel", "reminder_phone", "reminder_sent", "created_at",
	}).AddRow(a.ID, a.TenantID, a.LeadID, a.Title, a.Description, a.StartsAt, a.EndsAt,
		a.Status, a.ReminderMinutes, a.ReminderChannel, a.ReminderPhone, a.ReminderSent, a.CreatedAt)
}

func TestStoreCreateReturnsID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	tenantID := uuid.New()
	leadID := uuid.New()
	starts := time.Date(2025, 6, 3, 16, 0, 0, 0, time.Local)

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(tenantID, &leadID, "Demostración", "", starts, starts.Add(30*time.Minute),
			StatusPending, 60, "whatsapp", "5215512345678").
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := NewStore(mock).Create(context.Background(), &Appointment{
		TenantID:        tenantID,
		LeadID:          &leadID,
		Title:           "Demostración",
		StartsAt:        starts,
		EndsAt:          starts.Add(30 * time.Minute),
		Status:          StatusPending,
		ReminderMinutes: 60,
		ReminderChannel: "whatsapp",
		ReminderPhone:   "5215512345678",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != 42 {
		t.Fatalf("id = %d", id)
	}
}

func TestStoreGetForTenantScopesByTenant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	tenantID := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM appointments WHERE id = \\$1 AND tenant_id = \\$2").
		WithArgs(int64(7), tenantID).
		WillReturnRows(mock.NewRows([]string{
			"id", "tenant_id", "lead_id", "title", "description", "starts_at", "ends_at",
			"status", "reminder_minutes", "reminder_channel", "reminder_phone", "reminder_sent", "created_at",
		}))

	if _, err := NewStore(mock).GetForTenant(context.Background(), tenantID, 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign tenant, got %v", err)
	}
}

func TestStoreRescheduleMissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	tenantID := uuid.New()
	starts := time.Date(2025, 6, 4, 10, 0, 0, 0, time.Local)

	mock.ExpectExec("UPDATE appointments").
		WithArgs(int64(7), tenantID, starts, starts.Add(time.Hour)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = NewStore(mock).Reschedule(context.Background(), tenantID, 7, starts, starts.Add(time.Hour))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreCancelPassesReason(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	tenantID := uuid.New()
	mock.ExpectExec("UPDATE appointments").
		WithArgs(int64(7), tenantID, StatusCancelled, "cliente de viaje").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := NewStore(mock).Cancel(context.Background(), tenantID, 7, "cliente de viaje"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
}

func TestStoreDueReminders(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	now := time.Date(2025, 6, 3, 15, 30, 0, 0, time.Local)
	appt := &Appointment{
		ID:              9,
		TenantID:        uuid.New(),
		Title:           "Demostración",
		StartsAt:        now.Add(45 * time.Minute),
		EndsAt:          now.Add(75 * time.Minute),
		Status:          StatusConfirmed,
		ReminderMinutes: 60,
		ReminderChannel: "whatsapp",
		ReminderPhone:   "5215512345678",
		CreatedAt:       now.Add(-24 * time.Hour),
	}

	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs(StatusPending, StatusConfirmed, now).
		WillReturnRows(appointmentRows(mock, appt))

	due, err := NewStore(mock).DueReminders(context.Background(), now)
	if err != nil {
		t.Fatalf("due reminders: %v", err)
	}
	if len(due) != 1 || due[0].ID != 9 {
		t.Fatalf("due = %+v", due)
	}
}

func TestStoreMarkReminderSentScopesByTenant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec("UPDATE appointments SET reminder_sent").
		WithArgs(int64(9), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = NewStore(mock).MarkReminderSent(context.Background(), uuid.New(), 9)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
