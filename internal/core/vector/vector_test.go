package vector

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequential() []float64 {
	values := make([]float64, Dim)
	for i := range values {
		values[i] = float64(i) * 0.25
	}
	return values
}

func TestNew_RejectsWrongDimension(t *testing.T) {
	_, err := New(make([]float64, Dim-1))
	assert.Error(t, err)

	_, err = New(make([]float64, Dim+1))
	assert.Error(t, err)

	_, err = New(nil)
	assert.Error(t, err)
}

func TestNew_CopiesInput(t *testing.T) {
	values := sequential()
	emb, err := New(values)
	require.NoError(t, err)

	values[0] = 999
	assert.Equal(t, 0.0, emb[0])
}

func TestMarshalUnmarshal_RoundTrip(t *testing.T) {
	emb, err := New(sequential())
	require.NoError(t, err)

	blob, err := emb.Marshal()
	require.NoError(t, err)
	require.Len(t, blob, BlobSize)

	decoded, err := Unmarshal(blob)
	require.NoError(t, err)
	assert.Equal(t, emb, decoded)
}

func TestMarshal_LittleEndianLayout(t *testing.T) {
	values := make([]float64, Dim)
	values[0] = 1.5
	emb, err := New(values)
	require.NoError(t, err)

	blob, err := emb.Marshal()
	require.NoError(t, err)

	// Das erste Element muss als Little-Endian-Bitmuster von 1.5 vorliegen
	assert.Equal(t, math.Float64bits(1.5), binary.LittleEndian.Uint64(blob[:8]))
}

func TestUnmarshal_RejectsWrongSize(t *testing.T) {
	_, err := Unmarshal(make([]byte, BlobSize-8))
	assert.Error(t, err)

	_, err = Unmarshal(make([]byte, BlobSize+1))
	assert.Error(t, err)

	_, err = Unmarshal(nil)
	assert.Error(t, err)
}

func TestDistance(t *testing.T) {
	a := make(Embedding, Dim)
	b := make(Embedding, Dim)
	assert.Equal(t, 0.0, Distance(a, b))

	b[0] = 3
	b[1] = 4
	assert.InDelta(t, 5.0, Distance(a, b), 1e-12)
}
