// Package snapshot persistiert Beweisbilder für Anwesenheitsereignisse.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
)

// Store schreibt Schnappschüsse in ein festes Verzeichnis
type Store struct {
	dir string
}

// NewStore erstellt einen Schnappschuss-Speicher für das Verzeichnis dir
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save schreibt das Rohbild eines Ereignisses und gibt den Pfad zurück.
// Der Dateiname ist deterministisch aus Personalnummer, Ereignistyp und
// Zeitstempel in Sekundenauflösung gebildet. Ein leeres Bild ist ein No-op.
// Schreibfehler werden nur geloggt und als leerer Pfad gemeldet: ein
// fehlender Schnappschuss darf den Anwesenheitsübergang nie zurückrollen.
func (s *Store) Save(image []byte, employeeID, eventType string, now time.Time) string {
	if len(image) == 0 {
		return ""
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		log.Errorf("Failed to create snapshot directory '%s': %v", s.dir, err)
		return ""
	}

	filename := fmt.Sprintf("%s_%s_%s.jpg", employeeID, eventType, now.Format("20060102_150405"))
	path := filepath.Join(s.dir, filename)

	if err := os.WriteFile(path, image, 0644); err != nil {
		log.Errorf("Failed to write snapshot '%s': %v", path, err)
		return ""
	}

	log.Debugf("Snapshot saved: %s", path)
	return path
}
