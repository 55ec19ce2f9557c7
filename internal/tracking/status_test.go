package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus_AcceptsEveryEnumeratedValue(t *testing.T) {
	for _, st := range AllStatuses {
		got, err := ParseStatus(string(st))
		require.NoError(t, err)
		assert.Equal(t, st, got)
	}
}

func TestParseStatus_RejectsUnknownValues(t *testing.T) {
	for _, raw := range []string{"", "New", "APPLIED", "ghosted", " applied"} {
		_, err := ParseStatus(raw)
		assert.ErrorIs(t, err, ErrInvalidStatus, "raw=%q", raw)
	}
}

func TestAllStatuses_ContractSize(t *testing.T) {
	// nine stable strings form the external contract
	assert.Len(t, AllStatuses, 9)
}
