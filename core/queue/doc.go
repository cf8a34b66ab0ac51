// Package queue implements ingest.Publisher transports.
//
// Messages carry the JSON encoded record plus its content hash. Delivery is
// at-least-once; consumers dedupe on ingest.Message.DedupeID, and the transports
// that can deduplicate (SQS FIFO, JetStream) are given the same id.
//
// Transient transport errors are marked ingest.ErrPublish and retried by the engine.
// Errors that cannot succeed on retry (missing queue, invalid parameters, access
// denied) are returned unmarked.
//
// # Usage
//
//	pub, err := queue.NewSQS(ctx, sqs.NewFromConfig(awsCfg), "", "dev-early-warning-service")
//	id, err := queue.NewLimited(pub, 50, 10).Publish(ctx, msg)
package queue
