package appointments

import (
	"regexp"
	"strconv"
	"strings"
)

// The language model requests appointment side effects through bracketed
// blocks embedded in its reply. A block with missing required keys is
// treated as no command at all; the block is stripped from the visible
// text either way so users never see the raw syntax.

// Command is the tagged parse result of a reply scan.
type Command interface {
	isCommand()
}

// CreateCommand books a new appointment.
type CreateCommand struct {
	Date            string // YYYY-MM-DD
	Time            string // HH:MM
	Title           string
	DurationMinutes int
}

// ModifyCommand moves an existing appointment.
type ModifyCommand struct {
	AppointmentID int64
	NewDate       string
	NewTime       string
}

// CancelCommand cancels an existing appointment.
type CancelCommand struct {
	AppointmentID int64
	Reason        string
}

func (CreateCommand) isCommand() {}
func (ModifyCommand) isCommand() {}
func (CancelCommand) isCommand() {}

const defaultDurationMinutes = 30

var (
	createBlockRe = regexp.MustCompile(`(?s)\[CITA_CONFIRMADA\](.*?)\[/CITA_CONFIRMADA\]`)
	modifyBlockRe = regexp.MustCompile(`(?s)\[CITA_MODIFICADA\](.*?)\[/CITA_MODIFICADA\]`)
	cancelBlockRe = regexp.MustCompile(`(?s)\[CITA_CANCELADA\](.*?)\[/CITA_CANCELADA\]`)
)

// ExtractCommand scans a model reply for the first well-formed command
// block and returns it along with the reply text with every block (well
// formed or not) removed. At most one command is returned per reply.
func ExtractCommand(reply string) (Command, string) {
	var cmd Command
	if m := createBlockRe.FindStringSubmatch(reply); m != nil {
		cmd = parseCreate(parseBody(m[1]))
	}
	if cmd == nil {
		if m := modifyBlockRe.FindStringSubmatch(reply); m != nil {
			cmd = parseModify(parseBody(m[1]))
		}
	}
	if cmd == nil {
		if m := cancelBlockRe.FindStringSubmatch(reply); m != nil {
			cmd = parseCancel(parseBody(m[1]))
		}
	}

	visible := createBlockRe.ReplaceAllString(reply, "")
	visible = modifyBlockRe.ReplaceAllString(visible, "")
	visible = cancelBlockRe.ReplaceAllString(visible, "")
	visible = strings.TrimSpace(collapseBlankLines(visible))
	return cmd, visible
}

// parseBody turns "key: value" lines into a case-insensitive map.
func parseBody(body string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(body, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key != "" && value != "" {
			fields[key] = value
		}
	}
	return fields
}

func parseCreate(fields map[string]string) Command {
	date, time := fields["fecha"], fields["hora"]
	if date == "" || time == "" {
		return nil
	}
	duration := defaultDurationMinutes
	if raw := fields["duracion"]; raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			duration = v
		}
	}
	return CreateCommand{
		Date:            date,
		Time:            time,
		Title:           fields["titulo"],
		DurationMinutes: duration,
	}
}

func parseModify(fields map[string]string) Command {
	id, ok := parseID(fields["cita_id"])
	if !ok || fields["nueva_fecha"] == "" || fields["nueva_hora"] == "" {
		return nil
	}
	return ModifyCommand{
		AppointmentID: id,
		NewDate:       fields["nueva_fecha"],
		NewTime:       fields["nueva_hora"],
	}
}

func parseCancel(fields map[string]string) Command {
	id, ok := parseID(fields["cita_id"])
	if !ok {
		return nil
	}
	return CancelCommand{
		AppointmentID: id,
		Reason:        fields["motivo"],
	}
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func collapseBlankLines(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}
