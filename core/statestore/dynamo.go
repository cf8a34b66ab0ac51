package statestore

import (
	"context"
	"time"

	"feed-processor/core/ingest"
	"feed-processor/core/retry"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/cockroachdb/errors"
)

// dynamoBatchLimit is the BatchGetItem key limit.
const dynamoBatchLimit = 100

// DynamoAPI is the subset of the DynamoDB client used by the store.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
}

// dynamoItem is the table schema. The partition key attribute name is configurable
// and is set on the marshalled map, so it is not part of the struct.
type dynamoItem struct {
	Indicator     string     `dynamodbav:"indicator"`
	ContentHash   string     `dynamodbav:"content_hash"`
	FirstSeen     *time.Time `dynamodbav:"first_seen,omitempty"`
	LastSeen      time.Time  `dynamodbav:"last_seen"`
	LastForwarded *time.Time `dynamodbav:"last_forwarded,omitempty"`
}

// Dynamo is a StateStore backed by a DynamoDB table.
type Dynamo struct {
	client      DynamoAPI
	table       string
	keyAttr     string
	key         KeyFunc
	unprocessed retry.Policy
}

// NewDynamo creates a DynamoDB store. key derives the partition key from an indicator
// id; nil keeps the id as is.
func NewDynamo(client DynamoAPI, cfg Config, key KeyFunc) *Dynamo {
	if key == nil {
		key = identity
	}
	keyAttr := cfg.KeyAttribute
	if keyAttr == "" {
		keyAttr = "address_id"
	}
	return &Dynamo{
		client:      client,
		table:       cfg.Table,
		keyAttr:     keyAttr,
		key:         key,
		unprocessed: retry.FromConfig(cfg.Unprocessed),
	}
}

func (d *Dynamo) keyOf(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		d.keyAttr: &types.AttributeValueMemberS{Value: d.key(id)},
	}
}

// Get returns the entry for id.
func (d *Dynamo) Get(ctx context.Context, id string) (ingest.StateEntry, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table),
		Key:            d.keyOf(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return ingest.StateEntry{}, classify(err, "dynamodb get item")
	}
	if len(out.Item) == 0 {
		return ingest.StateEntry{}, ingest.ErrNotFound
	}
	return d.decode(out.Item)
}

// PutIfAbsentOrChanged writes entry when no item exists or the stored content hash
// differs, as a single conditional PutItem.
func (d *Dynamo) PutIfAbsentOrChanged(ctx context.Context, entry ingest.StateEntry) (bool, error) {
	item, err := attributevalue.MarshalMap(dynamoItem{
		Indicator:     entry.ID,
		ContentHash:   entry.ContentHash,
		FirstSeen:     nonZero(entry.FirstSeen),
		LastSeen:      entry.LastSeen.UTC(),
		LastForwarded: utcPtr(entry.LastForwarded),
	})
	if err != nil {
		return false, errors.Wrapf(err, "marshal state entry %s", entry.ID)
	}
	item[d.keyAttr] = &types.AttributeValueMemberS{Value: d.key(entry.ID)}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#k) OR #h <> :h"),
		ExpressionAttributeNames: map[string]string{
			"#k": d.keyAttr,
			"#h": "content_hash",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":h": &types.AttributeValueMemberS{Value: entry.ContentHash},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, classify(err, "dynamodb put item")
	}
	return true, nil
}

var errUnprocessed = errors.New("unprocessed keys remain")

// BatchGet looks ids up in chunks of 100 keys, re-requesting unprocessed keys with
// the configured backoff.
func (d *Dynamo) BatchGet(ctx context.Context, ids []string) (map[string]ingest.StateEntry, error) {
	out := make(map[string]ingest.StateEntry, len(ids))
	for lo := 0; lo < len(ids); lo += dynamoBatchLimit {
		hi := lo + dynamoBatchLimit
		if hi > len(ids) {
			hi = len(ids)
		}
		if err := d.batchGetChunk(ctx, ids[lo:hi], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d *Dynamo) batchGetChunk(ctx context.Context, ids []string, out map[string]ingest.StateEntry) error {
	seen := make(map[string]struct{}, len(ids))
	keys := make([]map[string]types.AttributeValue, 0, len(ids))
	for _, id := range ids {
		k := d.key(id)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, d.keyOf(id))
	}

	pending := map[string]types.KeysAndAttributes{
		d.table: {Keys: keys, ConsistentRead: aws.Bool(true)},
	}
	err := retry.Run(ctx, d.unprocessed, retry.On(errUnprocessed), func(ctx context.Context) error {
		resp, err := d.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: pending})
		if err != nil {
			return classify(err, "dynamodb batch get item")
		}
		for _, item := range resp.Responses[d.table] {
			e, err := d.decode(item)
			if err != nil {
				return err
			}
			out[e.ID] = e
		}
		if rest, ok := resp.UnprocessedKeys[d.table]; ok && len(rest.Keys) > 0 {
			pending = map[string]types.KeysAndAttributes{d.table: rest}
			return errUnprocessed
		}
		return nil
	})
	if errors.Is(err, errUnprocessed) {
		return ingest.MarkStoreUnavailable(err, "dynamodb batch get item")
	}
	return err
}

func (d *Dynamo) decode(item map[string]types.AttributeValue) (ingest.StateEntry, error) {
	var di dynamoItem
	if err := attributevalue.UnmarshalMap(item, &di); err != nil {
		return ingest.StateEntry{}, errors.Mark(errors.Wrap(err, "unmarshal state item"), ingest.ErrStoreCorrupt)
	}
	var key string
	if av, ok := item[d.keyAttr].(*types.AttributeValueMemberS); ok {
		key = av.Value
	}
	if di.Indicator == "" || key != d.key(di.Indicator) {
		return ingest.StateEntry{}, ingest.Corruptf("state item %s=%q does not match indicator %q", d.keyAttr, key, di.Indicator)
	}
	e := ingest.StateEntry{
		ID:            di.Indicator,
		ContentHash:   di.ContentHash,
		LastSeen:      di.LastSeen,
		LastForwarded: di.LastForwarded,
	}
	if di.FirstSeen != nil {
		e.FirstSeen = *di.FirstSeen
	}
	if err := ingest.ValidateEntry(e); err != nil {
		return ingest.StateEntry{}, err
	}
	return e, nil
}

// classify marks throttling and server faults as transient. Other client faults
// (validation, missing table, access denied) are returned without the mark.
func classify(err error, msg string) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ProvisionedThroughputExceededException", "ThrottlingException",
			"RequestLimitExceeded", "InternalServerError", "ServiceUnavailable":
			return ingest.MarkStoreUnavailable(err, msg)
		}
		if apiErr.ErrorFault() == smithy.FaultClient {
			return errors.Wrap(err, msg)
		}
	}
	return ingest.MarkStoreUnavailable(err, msg)
}

// nonZero returns nil for the zero time so legacy entries stay without the attribute.
func nonZero(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return utcPtr(&t)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
