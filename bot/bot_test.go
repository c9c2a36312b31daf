package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReferralPayload(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		id := parseReferralPayload("/start ref123456")
		require.NotNil(t, id)
		assert.Equal(t, int64(123456), *id)
	})

	t.Run("no payload", func(t *testing.T) {
		assert.Nil(t, parseReferralPayload("/start"))
	})

	t.Run("missing prefix", func(t *testing.T) {
		assert.Nil(t, parseReferralPayload("/start 123456"))
	})

	t.Run("non-numeric id", func(t *testing.T) {
		assert.Nil(t, parseReferralPayload("/start refabc"))
	})

	t.Run("negative id", func(t *testing.T) {
		assert.Nil(t, parseReferralPayload("/start ref-5"))
	})
}
