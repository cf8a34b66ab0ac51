package queue

import (
	"context"
	"fmt"

	"feed-processor/core/ingest"

	"github.com/cockroachdb/errors"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamAPI is the subset of jetstream.JetStream used by the publisher.
type JetStreamAPI interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// JetStream publishes messages to a JetStream subject. The dedupe id is sent as
// Nats-Msg-Id so the stream drops redelivered duplicates within its window.
type JetStream struct {
	js      JetStreamAPI
	subject string
}

// NewJetStream creates a publisher on subject.
func NewJetStream(js JetStreamAPI, subject string) *JetStream {
	return &JetStream{js: js, subject: subject}
}

// ConnectJetStream dials url and returns the connection with its JetStream context.
// The caller closes the connection.
func ConnectJetStream(url, name string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url, nats.Name(name), nats.MaxReconnects(5))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "connect nats %s", url)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, errors.Wrap(err, "create jetstream context")
	}
	return nc, js, nil
}

// Publish sends msg and returns "<stream>:<sequence>" of the stored message.
func (p *JetStream) Publish(ctx context.Context, msg ingest.Message) (string, error) {
	body, err := ingest.EncodeMessage(msg)
	if err != nil {
		return "", err
	}
	ack, err := p.js.Publish(ctx, p.subject, body, jetstream.WithMsgID(msg.DedupeID()))
	if err != nil {
		return "", ingest.MarkPublish(err, "jetstream publish "+msg.ID)
	}
	return fmt.Sprintf("%s:%d", ack.Stream, ack.Sequence), nil
}
