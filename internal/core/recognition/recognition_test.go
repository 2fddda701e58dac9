package recognition

import (
	"testing"

	"facetrack-go/internal/core/vector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// embeddingAt erzeugt eine Einbettung, deren erste Komponente v ist. Die
// euklidische Distanz zu embeddingAt(0) ist damit genau |v|.
func embeddingAt(v float64) vector.Embedding {
	emb := make(vector.Embedding, vector.Dim)
	emb[0] = v
	return emb
}

func TestMatch_EmptySet(t *testing.T) {
	_, ok := Match(nil, embeddingAt(0), 0.6)
	assert.False(t, ok)

	_, ok = Match([]Candidate{}, embeddingAt(0), 0.6)
	assert.False(t, ok)
}

func TestMatch_NearestWithinTolerance(t *testing.T) {
	known := []Candidate{
		{UserID: 1, Embedding: embeddingAt(0.9)},
		{UserID: 2, Embedding: embeddingAt(0.3)},
		{UserID: 3, Embedding: embeddingAt(0.5)},
	}

	userID, ok := Match(known, embeddingAt(0), 0.6)
	require.True(t, ok)
	assert.Equal(t, uint(2), userID)
}

func TestMatch_NearestMustPassThreshold(t *testing.T) {
	known := []Candidate{
		{UserID: 1, Embedding: embeddingAt(0.7)},
		{UserID: 2, Embedding: embeddingAt(0.8)},
	}

	// Der nächste Kandidat liegt über der Toleranz: kein Treffer, auch wenn
	// er global der nächste ist
	_, ok := Match(known, embeddingAt(0), 0.6)
	assert.False(t, ok)
}

func TestMatch_ToleranceIsExclusive(t *testing.T) {
	known := []Candidate{{UserID: 1, Embedding: embeddingAt(0.6)}}

	// Distanz == Toleranz ist kein Treffer
	_, ok := Match(known, embeddingAt(0), 0.6)
	assert.False(t, ok)

	// Knapp darunter schon
	userID, ok := Match(known, embeddingAt(0), 0.6000001)
	require.True(t, ok)
	assert.Equal(t, uint(1), userID)
}

func TestMatch_TieBreaksOnFirstOccurrence(t *testing.T) {
	known := []Candidate{
		{UserID: 7, Embedding: embeddingAt(0.2)},
		{UserID: 8, Embedding: embeddingAt(0.2)},
		{UserID: 9, Embedding: embeddingAt(-0.2)},
	}

	userID, ok := Match(known, embeddingAt(0), 0.6)
	require.True(t, ok)
	assert.Equal(t, uint(7), userID)
}

func TestMatch_MultipleEmbeddingsPerUser(t *testing.T) {
	// Eine Person mit mehreren Blickwinkeln liefert mehrere unabhängige
	// Kandidaten; es zählt der einzelne nächste Vektor, nicht ein Mittelwert.
	known := []Candidate{
		{UserID: 1, Embedding: embeddingAt(0.55)},
		{UserID: 1, Embedding: embeddingAt(0.9)},
		{UserID: 2, Embedding: embeddingAt(0.58)},
	}

	userID, ok := Match(known, embeddingAt(0), 0.6)
	require.True(t, ok)
	assert.Equal(t, uint(1), userID)
}

func TestSingle_Guard(t *testing.T) {
	emb := embeddingAt(0.1)

	_, err := Single(nil)
	assert.ErrorIs(t, err, ErrNoFaceDetected)

	_, err = Single([]vector.Embedding{emb, embeddingAt(0.2)})
	assert.ErrorIs(t, err, ErrMultipleFacesDetected)

	got, err := Single([]vector.Embedding{emb})
	require.NoError(t, err)
	assert.Equal(t, emb, got)
}
