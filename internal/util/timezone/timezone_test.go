package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateKeyUsesConfiguredZone(t *testing.T) {
	if _, err := time.LoadLocation("Asia/Jakarta"); err != nil {
		t.Skipf("tzdata not available: %v", err)
	}
	Initialize("Asia/Jakarta") // UTC+7

	// 22:30 UTC ist in Jakarta bereits der nächste Kalendertag
	late := time.Date(2025, 6, 2, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, "2025-06-03", DateKey(late))

	noon := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-06-02", DateKey(noon))
}

func TestInitializeFallsBackToUTC(t *testing.T) {
	Initialize("Not/AZone")
	require.NotNil(t, Location())
	assert.Equal(t, time.UTC, Location())

	Initialize("UTC")
	assert.Equal(t, "2025-06-02", DateKey(time.Date(2025, 6, 2, 23, 59, 0, 0, time.UTC)))
}
