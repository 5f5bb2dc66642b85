// Package iclock implements the push protocol spoken by ZKTeco-style
// biometric terminals (ADMS / "iClock"). The terminals POST attendance
// logs as loosely framed plain text; this package turns those bodies
// into PIN/timestamp pairs and resolves device-local wall-clock times
// to UTC instants.
package iclock

import (
	"regexp"
	"strings"
)

// TableAttlog is the table name terminals use to label attendance-log
// payloads. Other table values (OPERLOG, options, BIODATA, ...) are
// acknowledged but not processed.
const TableAttlog = "ATTLOG"

// PunchLine is one attendance entry as reported by a terminal: the PIN
// the terminal stores for the employee (not yet validated against any
// tenant) and the local wall-clock timestamp string.
type PunchLine struct {
	Pin       string
	Timestamp string
}

var bareDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseAttlogBody splits a raw ATTLOG request body into punch lines.
// Firmware versions disagree on framing, so separation is tried in
// order: tab, comma, then a generic whitespace run. Lines that do not
// yield at least a PIN and a timestamp are skipped; a garbled line must
// never abort the rest of the batch. Input order is preserved.
func ParseAttlogBody(body string) []PunchLine {
	var punches []PunchLine

	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	for _, raw := range strings.Split(normalized, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		fields := splitFields(line)
		if len(fields) < 2 {
			continue
		}

		pin := strings.TrimSpace(fields[0])
		timestamp := strings.TrimSpace(fields[1])

		// Whitespace-delimited firmware splits "2024-03-10 08:15:00"
		// into two tokens; stitch the date and time back together.
		if bareDate.MatchString(timestamp) && len(fields) >= 3 {
			timestamp = timestamp + " " + strings.TrimSpace(fields[2])
		}

		if pin == "" || timestamp == "" {
			continue
		}

		punches = append(punches, PunchLine{Pin: pin, Timestamp: timestamp})
	}

	return punches
}

func splitFields(line string) []string {
	for _, sep := range []string{"\t", ","} {
		if parts := strings.Split(line, sep); len(parts) >= 2 {
			return parts
		}
	}
	return strings.Fields(line)
}
