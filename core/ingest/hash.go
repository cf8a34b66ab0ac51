package ingest

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

const hashHexLen = sha256.Size * 2

// ContentHash returns a deterministic digest over attrs.
// Keys are sorted and every key and value is length-prefixed, so insertion order
// never matters and no two distinct maps share an encoding.
func ContentHash(attrs map[string]string) (string, error) {
	keys := make([]string, 0, len(attrs))
	for k, v := range attrs {
		if k == "" {
			return "", errors.Mark(errors.New("empty attribute key"), ErrMalformedAttributes)
		}
		if !utf8.ValidString(k) {
			return "", errors.Mark(errors.Newf("attribute key %q is not valid UTF-8", k), ErrMalformedAttributes)
		}
		if !utf8.ValidString(v) {
			return "", errors.Mark(errors.Newf("attribute %s is not valid UTF-8", k), ErrMalformedAttributes)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	var lenBuf [binary.MaxVarintLen64]byte
	write := func(s string) {
		n := binary.PutUvarint(lenBuf[:], uint64(len(s)))
		h.Write(lenBuf[:n])
		h.Write([]byte(s))
	}
	for _, k := range keys {
		write(k)
		write(attrs[k])
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
