// Package vector definiert den Einbettungsvektor-Typ und sein
// Speicherformat. Das Format ist Teil des Datenbankschemas: Little-Endian
// IEEE-754 float64, 8 Byte pro Element, exakt 128 Elemente (1024 Byte).
package vector

import (
	"encoding/binary"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Dim ist die feste Dimension aller Gesichtseinbettungen
const Dim = 128

// BlobSize ist die serialisierte Größe einer Einbettung in Byte
const BlobSize = Dim * 8

// Embedding ist ein Gesichtsvektor fester Länge
type Embedding []float64

// New erstellt eine Einbettung aus einem Float-Slice beliebiger Herkunft
// und prüft die Dimension.
func New(values []float64) (Embedding, error) {
	if len(values) != Dim {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(values), Dim)
	}
	e := make(Embedding, Dim)
	copy(e, values)
	return e, nil
}

// Marshal serialisiert die Einbettung in das dokumentierte Blob-Format
func (e Embedding) Marshal() ([]byte, error) {
	if len(e) != Dim {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(e), Dim)
	}
	buf := make([]byte, BlobSize)
	for i, v := range e {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf, nil
}

// Unmarshal deserialisiert eine Einbettung aus dem Blob-Format
func Unmarshal(blob []byte) (Embedding, error) {
	if len(blob) != BlobSize {
		return nil, fmt.Errorf("embedding blob has %d bytes, expected %d", len(blob), BlobSize)
	}
	e := make(Embedding, Dim)
	for i := range e {
		e[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return e, nil
}

// Distance berechnet die euklidische Distanz zwischen zwei Einbettungen.
// Beide müssen die feste Dimension haben.
func Distance(a, b Embedding) float64 {
	return floats.Distance(a, b, 2)
}
