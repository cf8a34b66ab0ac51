package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
)

// Message is the downstream representation of a forwarded record.
type Message struct {
	ID          string            `json:"id"`
	Attributes  map[string]string `json:"attributes"`
	FetchedAt   time.Time         `json:"fetched_at"`
	ContentHash string            `json:"content_hash"`
	Change      Classification    `json:"change"`
}

// NewMessage builds the message for a classified record.
func NewMessage(rec IndicatorRecord, hash string, change Classification) Message {
	return Message{
		ID:          rec.ID,
		Attributes:  rec.Attributes,
		FetchedAt:   rec.FetchedAt,
		ContentHash: hash,
		Change:      change,
	}
}

// Record returns the indicator record carried by the message.
func (m Message) Record() IndicatorRecord {
	return IndicatorRecord{ID: m.ID, Attributes: m.Attributes, FetchedAt: m.FetchedAt}
}

// DedupeID identifies the (id, content hash) pair. Consumers and transports that
// support deduplication key on it.
func (m Message) DedupeID() string {
	sum := sha256.Sum256([]byte(m.ID + "\x00" + m.ContentHash))
	return hex.EncodeToString(sum[:])
}

// EncodeMessage serialises a message body.
func EncodeMessage(m Message) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrapf(err, "encode message %s", m.ID)
	}
	return b, nil
}

// DecodeMessage parses a message body and verifies its content hash.
func DecodeMessage(body []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		return Message{}, errors.Wrap(err, "decode message")
	}
	if m.ID == "" {
		return Message{}, errors.New("decode message: missing id")
	}
	hash, err := ContentHash(m.Attributes)
	if err != nil {
		return Message{}, errors.Wrapf(err, "decode message %s", m.ID)
	}
	if hash != m.ContentHash {
		return Message{}, errors.Newf("decode message %s: content hash mismatch", m.ID)
	}
	return m, nil
}
