package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daboss57/wallstreet-sub000/pkg/exception"
)

func TestLoadDefaults(t *testing.T) {
	loaded, err := Load("")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, loaded.Universe.Len(), 30, "built-in universe")
	assert.Equal(t, time.Second, loaded.TickInterval)
	assert.Equal(t, 90*time.Second, loaded.RegimeReview)
	assert.Equal(t, 5, loaded.FlushEvery)
	assert.Equal(t, 1024, loaded.QueueCap)
	assert.True(t, loaded.Realism)
	assert.Equal(t, 100_000.0, loaded.InitialCash)
	assert.Zero(t, loaded.Seed)
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exchange.json")
	body := `{
		"instruments": [
			{"ticker": "ACME", "name": "Acme Corp", "class": "equity",
			 "basePrice": 42.5, "baseVol": 0.015, "minPrice": 1, "maxPrice": 500},
			{"ticker": "ZORB", "name": "Zorb Coin", "class": "crypto",
			 "basePrice": 9.25, "baseVol": 0.04, "minPrice": 0.5, "maxPrice": 200}
		],
		"tickIntervalMs": 250,
		"regimeReviewSec": 30,
		"flushEvery": 10,
		"queueCapacity": 64,
		"realism": false,
		"initialCash": 5000,
		"seed": 7
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, loaded.Universe.Len())
	inst, ok := loaded.Universe.Instrument("ACME")
	require.True(t, ok)
	assert.Equal(t, 42.5, inst.BasePrice)

	assert.Equal(t, 250*time.Millisecond, loaded.TickInterval)
	assert.Equal(t, 30*time.Second, loaded.RegimeReview)
	assert.Equal(t, 10, loaded.FlushEvery)
	assert.Equal(t, 64, loaded.QueueCap)
	assert.False(t, loaded.Realism)
	assert.Equal(t, 5000.0, loaded.InitialCash)
	assert.Equal(t, int64(7), loaded.Seed)
}

func TestLoadRejectsBadInstrument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exchange.json")
	body := `{"instruments": [{"ticker": "", "name": "no ticker", "class": "equity", "basePrice": 10}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, exception.ErrMarketInvalidInstrument)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exchange.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
