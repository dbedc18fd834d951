package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/cristian1110/nipponflex-saas-sub000/pkg/logging"
)

func newExecutor(t *testing.T) (*Executor, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewExecutor(NewStore(mock), logging.New("error")), mock
}

func TestExecuteCreate(t *testing.T) {
	exec, mock := newExecutor(t)
	tenantID := uuid.New()
	leadID := uuid.New()
	wantStart := time.Date(2025, 3, 10, 15, 0, 0, 0, time.Local)

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(tenantID, &leadID, "Consulta", "", wantStart, wantStart.Add(30*time.Minute),
			StatusPending, 60, "whatsapp", "5215550001").
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(int64(11)))

	res, err := exec.Execute(context.Background(), tenantID, &leadID, "5215550001", CreateCommand{
		Date:            "2025-03-10",
		Time:            "15:00",
		Title:           "Consulta",
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Action != "created" || res.AppointmentID != 11 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestExecuteModifyKeepsDuration(t *testing.T) {
	exec, mock := newExecutor(t)
	tenantID := uuid.New()
	oldStart := time.Date(2025, 3, 10, 15, 0, 0, 0, time.Local)
	newStart := time.Date(2025, 4, 1, 10, 0, 0, 0, time.Local)

	mock.ExpectQuery("SELECT (.+) FROM appointments WHERE id").
		WithArgs(int64(42), tenantID).
		WillReturnRows(appointmentRow(mock, 42, tenantID, oldStart, oldStart.Add(45*time.Minute)))
	mock.ExpectExec("UPDATE appointments").
		WithArgs(int64(42), tenantID, newStart, newStart.Add(45*time.Minute)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	res, err := exec.Execute(context.Background(), tenantID, nil, "", ModifyCommand{
		AppointmentID: 42,
		NewDate:       "2025-04-01",
		NewTime:       "10:00",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Action != "rescheduled" || res.AppointmentID != 42 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestExecuteModifyForeignTenantIsNotFound(t *testing.T) {
	exec, mock := newExecutor(t)
	tenantID := uuid.New()

	// The tenant-scoped lookup sees nothing; no UPDATE must follow.
	mock.ExpectQuery("SELECT (.+) FROM appointments WHERE id").
		WithArgs(int64(42), tenantID).
		WillReturnError(pgx.ErrNoRows)

	_, err := exec.Execute(context.Background(), tenantID, nil, "", ModifyCommand{
		AppointmentID: 42,
		NewDate:       "2025-04-01",
		NewTime:       "10:00",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected no write after failed lookup: %v", err)
	}
}

func TestExecuteCancel(t *testing.T) {
	exec, mock := newExecutor(t)
	tenantID := uuid.New()
	start := time.Date(2025, 3, 10, 15, 0, 0, 0, time.Local)

	mock.ExpectQuery("SELECT (.+) FROM appointments WHERE id").
		WithArgs(int64(7), tenantID).
		WillReturnRows(appointmentRow(mock, 7, tenantID, start, start.Add(30*time.Minute)))
	mock.ExpectExec("UPDATE appointments").
		WithArgs(int64(7), tenantID, StatusCancelled, "no puede asistir").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	res, err := exec.Execute(context.Background(), tenantID, nil, "", CancelCommand{
		AppointmentID: 7,
		Reason:        "no puede asistir",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Action != "cancelled" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestExecuteCreateNaturalLanguageSlot(t *testing.T) {
	exec, mock := newExecutor(t)
	tenantID := uuid.New()
	tomorrow := time.Now().AddDate(0, 0, 1)
	wantStart := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 16, 0, 0, 0, time.Local)

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(tenantID, (*uuid.UUID)(nil), "Cita", "", wantStart, wantStart.Add(30*time.Minute),
			StatusPending, 60, "whatsapp", "5215550001").
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(int64(12)))

	res, err := exec.Execute(context.Background(), tenantID, nil, "5215550001", CreateCommand{
		Date:            "mañana",
		Time:            "4pm",
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Action != "created" || res.AppointmentID != 12 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestExecuteCreateInvalidSlot(t *testing.T) {
	exec, _ := newExecutor(t)
	_, err := exec.Execute(context.Background(), uuid.New(), nil, "", CreateCommand{
		Date: "10-03-2025", Time: "15:00", DurationMinutes: 30,
	})
	if err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func appointmentRow(mock pgxmock.PgxPoolIface, id int64, tenantID uuid.UUID, start, end time.Time) *pgxmock.Rows {
	return mock.NewRows([]string{
		"id", "tenant_id", "lead_id", "title", "description", "starts_at", "ends_at",
		"status", "reminder_minutes", "reminder_channel", "reminder_phone", "reminder_sent", "created_at",
	}).AddRow(id, tenantID, (*uuid.UUID)(nil), "Consulta", "", start, end,
		StatusPending, 60, "whatsapp", "", false, start.Add(-24*time.Hour))
}
