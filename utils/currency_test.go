package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1250), MinorUnits(12.50, "USD"))
	assert.Equal(t, int64(1250), MinorUnits(12.50, "usd"))
	assert.Equal(t, int64(1200), MinorUnits(1200, "JPY"))
	assert.Equal(t, int64(12500), MinorUnits(12.5, "KWD"))
	// Float noise rounds to the nearest minor unit.
	assert.Equal(t, int64(1999), MinorUnits(19.99, "EUR"))
}

func TestFromMinorUnits(t *testing.T) {
	assert.Equal(t, 12.50, FromMinorUnits(1250, "USD"))
	assert.Equal(t, 1200.0, FromMinorUnits(1200, "JPY"))
	assert.Equal(t, 12.5, FromMinorUnits(12500, "KWD"))
}
