package ingest

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHash(t *testing.T) {
	a := map[string]string{"ip_address": "1.2.3.4", "feed_name": "ipreputation"}
	b := map[string]string{"feed_name": "ipreputation", "ip_address": "1.2.3.4"}

	ha, err := ContentHash(a)
	require.NoError(t, err)
	hb, err := ContentHash(b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.Len(t, ha, hashHexLen)

	t.Run("Empty map", func(t *testing.T) {
		h, err := ContentHash(nil)
		require.NoError(t, err)
		assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", h)
	})

	t.Run("Boundaries are unambiguous", func(t *testing.T) {
		h1, _ := ContentHash(map[string]string{"ab": "c"})
		h2, _ := ContentHash(map[string]string{"a": "bc"})
		assert.NotEqual(t, h1, h2)
	})

	t.Run("Value change", func(t *testing.T) {
		h, _ := ContentHash(map[string]string{"ip_address": "1.2.3.5", "feed_name": "ipreputation"})
		assert.NotEqual(t, ha, h)
	})
}

func TestContentHash_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]string
	}{
		{"Empty key", map[string]string{"": "x"}},
		{"Invalid key", map[string]string{"\xff": "x"}},
		{"Invalid value", map[string]string{"k": "\xfe\xff"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ContentHash(tt.attrs)
			assert.True(t, errors.Is(err, ErrMalformedAttributes))
		})
	}
}

func TestValidateEntry(t *testing.T) {
	hash, _ := ContentHash(map[string]string{"k": "v"})
	seen := mustTime(t, "2026-01-02T03:00:00Z")

	assert.NoError(t, ValidateEntry(StateEntry{ID: "1.2.3.4", ContentHash: hash, LastSeen: seen}))

	for name, e := range map[string]StateEntry{
		"No id":      {ContentHash: hash, LastSeen: seen},
		"Short hash": {ID: "1.2.3.4", ContentHash: "abc", LastSeen: seen},
		"Upper hash": {ID: "1.2.3.4", ContentHash: "E3B0C44298FC1C149AFBF4C8996FB92427AE41E4649B934CA495991B7852B855", LastSeen: seen},
		"No seen":    {ID: "1.2.3.4", ContentHash: hash},
	} {
		t.Run(name, func(t *testing.T) {
			assert.True(t, errors.Is(ValidateEntry(e), ErrStoreCorrupt))
		})
	}
}
