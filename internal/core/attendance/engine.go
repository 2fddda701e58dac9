// Package attendance enthält den Entscheidungskern des Systems: die
// Zustandsmaschine, die aus erkannter Person, Tageszustand und angefordertem
// Modus den nächsten Anwesenheitszustand bestimmt, sowie den Dienst, der
// Detektor, Abgleich, Speicher und Schnappschüsse orchestriert.
package attendance

import (
	"time"

	"facetrack-go/internal/core/models"
)

// Mode ist der vom Client angeforderte Erfassungsmodus
type Mode string

const (
	ModeAuto     Mode = "Auto"
	ModeCheckIn  Mode = "Check-in"
	ModeCheckOut Mode = "Check-out"
)

// ParseMode bildet einen Anfrage-String auf einen Modus ab; alles
// Unbekannte fällt auf Auto zurück.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeCheckIn:
		return ModeCheckIn
	case ModeCheckOut:
		return ModeCheckOut
	default:
		return ModeAuto
	}
}

// Zustände eines Tagesdatensatzes
const (
	StateAbsent     = "absent"
	StateCheckedIn  = "checked_in"
	StateCheckedOut = "checked_out"
)

// State gibt den Zustand eines Tagesdatensatzes zurück. nil bedeutet Absent.
func State(rec *models.Attendance) string {
	switch {
	case rec == nil:
		return StateAbsent
	case rec.CheckOut != nil:
		return StateCheckedOut
	default:
		return StateCheckedIn
	}
}

// Decision ist das Ergebnis eines Zustandsübergangs
type Decision struct {
	// Cooldown: Ereignis unterdrückt, Record unverändert, kein Log-Eintrag
	Cooldown bool
	// EventType ist der Log-Typ des Übergangs (EventCheckIn/EventCheckOut)
	EventType string
	// Record ist der zu persistierende Tagesdatensatz (neu oder mutiert)
	Record *models.Attendance
}

// Engine ist die Anwesenheits-Zustandsmaschine. Sie ist rein: sämtliche
// Ein- und Ausgaben sind explizit, es gibt keine Uhr- oder Speicherzugriffe.
type Engine struct {
	cooldown time.Duration
}

// NewEngine erstellt eine Zustandsmaschine mit der angegebenen Sperrzeit
func NewEngine(cooldown time.Duration) *Engine {
	return &Engine{cooldown: cooldown}
}

// Decide wendet die Übergangsregeln in fester Vorrangfolge an:
//
//  1. Cooldown-Wächter: liegt die letzte Aktivität (Check-out, sonst
//     Check-in) weniger als die Sperrzeit zurück, wird das Ereignis komplett
//     unterdrückt. Das absorbiert wiederholte Kameraframes derselben
//     physischen Anwesenheit.
//  2. Kein Datensatz: neuer Datensatz mit check_in = now. Der angeforderte
//     Modus wird ignoriert, denn das erste Ereignis eines Tages ist immer ein
//     Check-in; check_out setzt ein gesetztes check_in desselben Tages voraus.
//  3. Modus Check-in: check_in = now, check_out gelöscht (ein manueller
//     Check-in gewinnt immer).
//  4. Modus Check-out: check_out = now, check_in unberührt.
//  5. Modus Auto: Umschalter. Ohne check_out wird ausgestempelt, mit
//     check_out wird check_in zurückgesetzt und check_out gelöscht.
//
// existing darf nil sein (Zustand Absent) und wird andernfalls in-place
// mutiert. Der Tagesdatensatz behält nur das jeweils letzte In/Out-Paar;
// die vollständige Historie liegt im Audit-Log.
func (e *Engine) Decide(existing *models.Attendance, userID uint, date string, mode Mode, now time.Time) Decision {
	if existing != nil {
		lastActivity := existing.CheckIn
		if existing.CheckOut != nil {
			lastActivity = existing.CheckOut
		}
		if lastActivity != nil && now.Sub(*lastActivity) < e.cooldown {
			return Decision{Cooldown: true}
		}
	}

	if existing == nil {
		return Decision{
			EventType: models.EventCheckIn,
			Record: &models.Attendance{
				UserID:  userID,
				Date:    date,
				CheckIn: &now,
			},
		}
	}

	switch mode {
	case ModeCheckIn:
		existing.CheckIn = &now
		existing.CheckOut = nil
		return Decision{EventType: models.EventCheckIn, Record: existing}

	case ModeCheckOut:
		existing.CheckOut = &now
		return Decision{EventType: models.EventCheckOut, Record: existing}

	default: // ModeAuto
		if existing.CheckOut == nil {
			existing.CheckOut = &now
			return Decision{EventType: models.EventCheckOut, Record: existing}
		}
		existing.CheckIn = &now
		existing.CheckOut = nil
		return Decision{EventType: models.EventCheckIn, Record: existing}
	}
}
