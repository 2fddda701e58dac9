// Package recognition enthält die Identitätsentscheidung: die Zuordnung
// eines Abfragevektors zur nächstgelegenen bekannten Einbettung sowie die
// Registrierungsprüfung für Einschreibungsbilder.
package recognition

import (
	"context"
	"errors"

	"facetrack-go/internal/core/vector"
)

// ErrNoFaceDetected wird zurückgegeben, wenn der Detektor kein Gesicht findet
var ErrNoFaceDetected = errors.New("no face detected")

// ErrMultipleFacesDetected wird zurückgegeben, wenn ein Einschreibungsbild
// mehr als ein Gesicht enthält
var ErrMultipleFacesDetected = errors.New("multiple faces detected")

// Detector ist der externe Detektor-/Embedder-Kollaborateur. Er liefert für
// ein Bild null oder mehr Einbettungen fester Länge.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]vector.Embedding, error)
}

// Candidate ist ein (Benutzer, Einbettung)-Paar des Abgleichregisters. Eine
// Person mit mehreren gespeicherten Einbettungen liefert mehrere Kandidaten.
type Candidate struct {
	UserID    uint
	Embedding vector.Embedding
}

// Match sucht den Kandidaten mit der kleinsten euklidischen Distanz zur
// Abfrage. Ein Treffer wird nur akzeptiert, wenn der global nächste Kandidat
// selbst unter der Toleranz liegt; gleich weit entfernte Minima werden
// deterministisch durch das erste Vorkommen aufgelöst. Die Funktion ist rein.
func Match(known []Candidate, query vector.Embedding, tolerance float64) (uint, bool) {
	if len(known) == 0 {
		return 0, false
	}

	bestIdx := 0
	bestDist := vector.Distance(known[0].Embedding, query)
	for i := 1; i < len(known); i++ {
		if d := vector.Distance(known[i].Embedding, query); d < bestDist {
			bestIdx = i
			bestDist = d
		}
	}

	if bestDist >= tolerance {
		return 0, false
	}
	return known[bestIdx].UserID, true
}

// Single prüft die Registrierungs-Invariante: genau eine Einbettung muss im
// Einschreibungsbild vorhanden sein. Ein mehrdeutiges Bild schlägt hart fehl,
// statt willkürlich eine Einbettung auszuwählen.
func Single(embeddings []vector.Embedding) (vector.Embedding, error) {
	switch len(embeddings) {
	case 0:
		return nil, ErrNoFaceDetected
	case 1:
		return embeddings[0], nil
	default:
		return nil, ErrMultipleFacesDetected
	}
}
