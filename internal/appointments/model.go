// Package appointments implements the appointment side of the chat
// pipeline: the bracketed command blocks the language model may emit, the
// executor that turns them into row mutations, and the tenant-scoped store.
package appointments

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. Spanish labels are part of the wire/data contract.
const (
	StatusPending   = "pendiente"
	StatusConfirmed = "confirmada"
	StatusCompleted = "completada"
	StatusCancelled = "cancelada"
)

// ErrNotFound covers both a missing row and a row owned by another
// tenant; callers cannot distinguish the two.
var ErrNotFound = errors.New("appointments: appointment not found")

// Appointment is one scheduled event owned by a tenant.
type Appointment struct {
	ID              int64
	TenantID        uuid.UUID
	LeadID          *uuid.UUID
	Title           string
	Description     string
	StartsAt        time.Time
	EndsAt          time.Time
	Status          string
	ReminderMinutes int
	ReminderChannel string
	ReminderPhone   string
	ReminderSent    bool
	CreatedAt       time.Time
}
