// Package core holds the bill domain model and the pure display formatters.
package core

import (
	"fmt"
)

// Abbreviated French month labels used by the list view ("4 Avr. 04").
// June and July intentionally share the same three-letter form.
var shortMonths = [12]string{
	"Jan", "Fév", "Mar", "Avr", "Mai", "Jui",
	"Jui", "Aoû", "Sep", "Oct", "Nov", "Déc",
}

// FormatDate converts an ISO-8601 date string into its display form, e.g.
// "2004-04-04" -> "4 Avr. 04". It returns the parse error on malformed
// input; falling back to the raw value is the caller's decision, not ours.
func FormatDate(raw string) (string, error) {
	t, err := ParseDate(raw)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %s. %02d", t.Day(), shortMonths[int(t.Month())-1], t.Year()%100), nil
}

// FormatStatus maps a raw status code to its display label. It is total:
// unknown codes pass through unchanged rather than failing.
func FormatStatus(code string) string {
	switch code {
	case StatusPending:
		return "En attente"
	case StatusAccepted:
		return "Accepté"
	case StatusRefused:
		return "Refusé"
	default:
		return code
	}
}
