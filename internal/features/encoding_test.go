package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectorOneHot(t *testing.T) {
	enc := SectorOneHot("Utilities")
	assert.True(t, enc["Utilities"])
	assert.False(t, enc[OtherBucket])

	var hits int
	for _, v := range enc {
		if v {
			hits++
		}
	}
	assert.Equal(t, 1, hits, "exactly one column set")
}

func TestSectorOneHotNormalizesAliases(t *testing.T) {
	enc := SectorOneHot("Consumer Staples")
	assert.True(t, enc["Consumer Defensive"])
	assert.False(t, enc[OtherBucket])

	enc = SectorOneHot("Basic Materials")
	assert.True(t, enc["Materials"])
}

func TestSectorOneHotUnknownGoesToOther(t *testing.T) {
	enc := SectorOneHot("Shipping")
	assert.True(t, enc[OtherBucket])
	for sector, v := range enc {
		if sector != OtherBucket {
			assert.False(t, v, "sector %s must be unset", sector)
		}
	}

	enc = SectorOneHot("")
	assert.True(t, enc[OtherBucket])
}

func TestCountryOneHot(t *testing.T) {
	enc := CountryOneHot("US")
	require.True(t, enc["US"])
	assert.False(t, enc[OtherBucket])

	enc = CountryOneHot("BR")
	assert.True(t, enc[OtherBucket])
	assert.False(t, enc["US"])
}
