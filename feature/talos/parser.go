package talos

import (
	"net/netip"
	"strings"
	"time"

	"feed-processor/core/feed"
	"feed-processor/core/ingest"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Namespace is the uuid5 namespace of Talos address ids.
var Namespace = uuid.MustParse("623977ce-d10c-4b12-b75b-5376135241ef")

// Address kinds.
const (
	KindIPv4        = "ipv4"
	KindIPv6        = "ipv6"
	KindIPv4Network = "ipv4_network"
	KindIPv6Network = "ipv6_network"
)

// Record attribute names.
const (
	AttrAddressID   = "address_id"
	AttrIPAddress   = "ip_address"
	AttrAddressType = "address_type"
	AttrFeedName    = "feed_name"
	AttrFeedSource  = "feed_source"
	AttrFeedURL     = "feed_url"
)

// AddressID returns the stable uuid5 id of a canonical address.
func AddressID(ip string) string {
	return uuid.NewSHA1(Namespace, []byte(ip)).String()
}

// Indicator is a validated address or network.
type Indicator struct {
	// Canonical is the normalised string form (lowercase, masked networks, no 4in6).
	Canonical string
	Kind      string
}

// ParseIndicator validates an IPv4/IPv6 address or CIDR network.
func ParseIndicator(s string) (Indicator, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Indicator{}, errors.New("empty indicator")
	}

	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return Indicator{}, errors.Wrapf(err, "invalid network %q", s)
		}
		if p.Addr().Is4In6() {
			p = netip.PrefixFrom(p.Addr().Unmap(), p.Bits()-96)
			if !p.IsValid() {
				return Indicator{}, errors.Newf("invalid network %q", s)
			}
		}
		p = p.Masked()
		kind := KindIPv6Network
		if p.Addr().Is4() {
			kind = KindIPv4Network
		}
		return Indicator{Canonical: p.String(), Kind: kind}, nil
	}

	a, err := netip.ParseAddr(s)
	if err != nil {
		return Indicator{}, errors.Wrapf(err, "invalid address %q", s)
	}
	if a.Zone() != "" {
		return Indicator{}, errors.Newf("scoped address %q is not a public indicator", s)
	}
	a = a.Unmap()
	kind := KindIPv6
	if a.Is4() {
		kind = KindIPv4
	}
	return Indicator{Canonical: a.String(), Kind: kind}, nil
}

// Parser validates Talos feed lines into records for one feed.
type Parser struct {
	def feed.Definition
}

// NewParser creates a parser stamping records with def.
func NewParser(def feed.Definition) *Parser {
	return &Parser{def: def}
}

// Validate implements feed.Validator.
func (p *Parser) Validate(line string, fetchedAt time.Time) feed.Validation {
	ind, err := ParseIndicator(line)
	if err != nil {
		return feed.Validation{Err: err}
	}
	return feed.Validation{Record: ingest.IndicatorRecord{
		ID: ind.Canonical,
		Attributes: map[string]string{
			AttrAddressID:   AddressID(ind.Canonical),
			AttrIPAddress:   ind.Canonical,
			AttrAddressType: ind.Kind,
			AttrFeedName:    p.def.Name,
			AttrFeedSource:  p.def.Source,
			AttrFeedURL:     p.def.URL,
		},
		FetchedAt: fetchedAt,
	}}
}
