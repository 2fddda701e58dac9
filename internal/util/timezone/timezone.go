package timezone

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

// Globale Variable für die aktuelle Zeitzone
var currentLocation *time.Location

// DateLayout ist das Format des Anwesenheits-Tagesschlüssels
const DateLayout = "2006-01-02"

// Initialize setzt die Zeitzone der Anwendung. Ein leerer Name fällt auf die
// TZ-Umgebungsvariable zurück, danach auf UTC.
func Initialize(name string) {
	tzName := name
	if tzName == "" {
		tzName = os.Getenv("TZ")
	}
	if tzName == "" {
		tzName = "UTC"
	}

	loc, err := time.LoadLocation(tzName)
	if err != nil {
		log.Warnf("Failed to load timezone %s: %v. Falling back to UTC.", tzName, err)
		currentLocation = time.UTC
		return
	}

	log.Infof("Successfully initialized timezone to %s", tzName)
	currentLocation = loc
}

// Location gibt die konfigurierte Zeitzone zurück
func Location() *time.Location {
	if currentLocation == nil {
		Initialize("")
	}
	return currentLocation
}

// Now gibt die aktuelle Zeit in der konfigurierten Zeitzone zurück
func Now() time.Time {
	return time.Now().In(Location())
}

// DateKey bildet einen Zeitstempel auf den Kalendertag ab, unter dem ein
// Anwesenheitsdatensatz geführt wird. Die Tagesgrenze liegt in der
// konfigurierten Zeitzone, nicht in UTC.
func DateKey(t time.Time) string {
	return t.In(Location()).Format(DateLayout)
}

// Format formatiert ein time.Time-Objekt mit der konfigurierten Zeitzone
func Format(t time.Time, layout string) string {
	return t.In(Location()).Format(layout)
}
