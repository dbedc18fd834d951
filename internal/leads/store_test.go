package leads

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestUpsertReturnsRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	tenantID := uuid.New()
	leadID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(pgxmock.AnyArg(), tenantID, "5215550001", "Ana").
		WillReturnRows(mock.NewRows([]string{"id", "tenant_id", "phone", "coalesce", "created_at", "last_contact_at"}).
			AddRow(leadID, tenantID, "5215550001", "Ana", now, now))

	lead, err := NewStore(mock).Upsert(context.Background(), tenantID, "5215550001", "Ana")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if lead.ID != leadID {
		t.Fatalf("expected existing row id, got %s", lead.ID)
	}
	if lead.Phone != "5215550001" {
		t.Fatalf("unexpected phone %s", lead.Phone)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
