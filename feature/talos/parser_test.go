package talos_test

import (
	"testing"
	"time"

	"feed-processor/core/feed"
	"feed-processor/feature/talos"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressID(t *testing.T) {
	assert.Equal(t, "79a29209-1db9-5c74-b42c-a9279d92ae41", talos.AddressID("1.2.3.4"))
	assert.Equal(t, talos.AddressID("1.2.3.4"), talos.AddressID("1.2.3.4"))

	id, err := uuid.Parse(talos.AddressID("2001:db8::1"))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), id.Version())
}

func TestParseIndicator(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		canonical string
		kind      string
		wantErr   bool
	}{
		{"IPv4", "1.2.3.4", "1.2.3.4", talos.KindIPv4, false},
		{"Surrounding space", "  8.8.8.8 ", "8.8.8.8", talos.KindIPv4, false},
		{"IPv6 is lowercased", "2001:DB8::1", "2001:db8::1", talos.KindIPv6, false},
		{"IPv4 mapped IPv6", "::ffff:1.2.3.4", "1.2.3.4", talos.KindIPv4, false},
		{"IPv4 network is masked", "10.1.2.3/8", "10.0.0.0/8", talos.KindIPv4Network, false},
		{"IPv6 network", "2001:db8::/32", "2001:db8::/32", talos.KindIPv6Network, false},
		{"Mapped network", "::ffff:10.0.0.0/104", "10.0.0.0/8", talos.KindIPv4Network, false},
		{"Zone", "fe80::1%eth0", "", "", true},
		{"Garbage", "not-an-ip", "", "", true},
		{"Out of range", "256.1.1.1", "", "", true},
		{"Bad prefix", "1.2.3.4/33", "", "", true},
		{"Empty", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := talos.ParseIndicator(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.canonical, got.Canonical)
			assert.Equal(t, tt.kind, got.Kind)
		})
	}
}

func TestParser_Validate(t *testing.T) {
	def := feed.Definition{
		Name:   "ipreputation",
		Source: "talosintelligence.com",
		URL:    "https://www.talosintelligence.com/documents/ip-blacklist",
	}
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	p := talos.NewParser(def)

	res := p.Validate("1.2.3.4", at)
	require.True(t, res.Valid())
	assert.Equal(t, "1.2.3.4", res.Record.ID)
	assert.Equal(t, at, res.Record.FetchedAt)
	assert.Equal(t, map[string]string{
		talos.AttrAddressID:   "79a29209-1db9-5c74-b42c-a9279d92ae41",
		talos.AttrIPAddress:   "1.2.3.4",
		talos.AttrAddressType: talos.KindIPv4,
		talos.AttrFeedName:    "ipreputation",
		talos.AttrFeedSource:  "talosintelligence.com",
		talos.AttrFeedURL:     def.URL,
	}, res.Record.Attributes)

	bad := p.Validate("bogus", at)
	assert.False(t, bad.Valid())
	assert.Error(t, bad.Err)
}
