// Package statestore implements ingest.StateStore backends.
//
// Every backend persists one entry per indicator and offers a conditional write that
// only applies when no entry exists or the stored content hash differs.
//
// # Backends
//
//   - Dynamo: a DynamoDB table. The write is a PutItem guarded by
//     "attribute_not_exists(key) OR content_hash <> :h"; a failed condition is
//     reported as applied=false. BatchGet uses BatchGetItem in chunks of 100 and
//     re-requests unprocessed keys with backoff.
//   - SQL: a GORM table (MySQL, SQLite). The write is an insert-or-ignore followed by
//     an update guarded by the previously read hash, retried a few times under
//     contention.
//   - Memory: a mutex guarded map for local runs and tests.
//
// Transient failures are marked ingest.ErrStoreUnavailable; entries that fail
// validation on read are marked ingest.ErrStoreCorrupt.
//
// # Keys
//
// The storage key is derived from the indicator id by a KeyFunc, so the Talos table
// can keep its uuid5 address_id partition key while callers use plain addresses.
//
// # Usage
//
//	store := statestore.NewDynamo(dynamodb.NewFromConfig(awsCfg), cfg.State, talos.AddressID)
//	entry, err := store.Get(ctx, "1.2.3.4")
package statestore
