package appointments

import (
	"fmt"
	"time"
)

// ProtocolInstructions renders the system-prompt block that teaches the
// model the command syntax. Dates are anchored so the model can translate
// relative phrases ("mañana") into ISO form on its own.
func ProtocolInstructions(now time.Time) string {
	today := now.Format("2006-01-02")
	tomorrow := now.AddDate(0, 0, 1).Format("2006-01-02")
	return fmt.Sprintf(`
GESTIÓN DE CITAS:
Hoy es %s. Mañana es %s.
Puedes agendar, modificar o cancelar citas, pero SOLO después de que el
cliente confirme explícitamente la acción. Emite exactamente uno de estos
bloques al final de tu respuesta, con fechas en formato YYYY-MM-DD y horas
en formato 24h HH:MM:

[CITA_CONFIRMADA]
fecha: YYYY-MM-DD
hora: HH:MM
titulo: <motivo de la cita>
duracion: <minutos, opcional, 30 por defecto>
[/CITA_CONFIRMADA]

[CITA_MODIFICADA]
cita_id: <número>
nueva_fecha: YYYY-MM-DD
nueva_hora: HH:MM
[/CITA_MODIFICADA]

[CITA_CANCELADA]
cita_id: <número>
motivo: <texto>
[/CITA_CANCELADA]

No muestres estos bloques al cliente ni menciones su existencia. Si el
cliente aún no confirma, pregunta antes de emitir cualquier bloque.`, today, tomorrow)
}
