package ingest

import (
	"github.com/cockroachdb/errors"
)

// Error taxonomy. Implementations mark their errors with one of these using
// errors.Mark so the cause is kept and errors.Is still matches.
var (
	// ErrFetch is a network, timeout or HTTP status failure while reading a feed.
	ErrFetch = errors.New("feed fetch failed")
	// ErrFeedFormat means too many feed lines failed validation. Fatal for the run.
	ErrFeedFormat = errors.New("feed format invalid")
	// ErrNotFound means the state store holds no entry for an id.
	ErrNotFound = errors.New("state entry not found")
	// ErrStoreUnavailable is a transient state store failure.
	ErrStoreUnavailable = errors.New("state store unavailable")
	// ErrStoreCorrupt means a stored entry failed schema validation. Not retried.
	ErrStoreCorrupt = errors.New("state store entry corrupt")
	// ErrPublish is a transient transport failure while publishing.
	ErrPublish = errors.New("publish failed")
	// ErrMalformedAttributes means a record's attributes cannot be hashed.
	ErrMalformedAttributes = errors.New("malformed attributes")
)

// MarkFetch wraps err with msg and marks it as ErrFetch.
func MarkFetch(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrFetch)
}

// MarkStoreUnavailable wraps err with msg and marks it as ErrStoreUnavailable.
func MarkStoreUnavailable(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrStoreUnavailable)
}

// MarkPublish wraps err with msg and marks it as ErrPublish.
func MarkPublish(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrPublish)
}

// Corruptf builds an error marked ErrStoreCorrupt.
func Corruptf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrStoreCorrupt)
}

// ValidateEntry checks the invariants every stored entry must satisfy.
func ValidateEntry(e StateEntry) error {
	if e.ID == "" {
		return Corruptf("state entry has empty id")
	}
	if !isHexDigest(e.ContentHash) {
		return Corruptf("state entry %s has invalid content hash %q", e.ID, e.ContentHash)
	}
	if e.LastSeen.IsZero() {
		return Corruptf("state entry %s has no last_seen", e.ID)
	}
	return nil
}

func isHexDigest(s string) bool {
	if len(s) != hashHexLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
