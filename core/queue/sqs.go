package queue

import (
	"context"
	"strings"

	"feed-processor/core/ingest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"
	"github.com/cockroachdb/errors"
)

// SQSAPI is the subset of the SQS client used by the publisher.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
}

// SQS publishes messages to an SQS queue.
type SQS struct {
	client SQSAPI
	url    string
	fifo   bool
}

// NewSQS creates a publisher for queueURL, or for the queue called name when the URL
// is empty.
func NewSQS(ctx context.Context, client SQSAPI, queueURL, name string) (*SQS, error) {
	if queueURL == "" {
		if name == "" {
			return nil, errors.New("sqs: queue url or name is required")
		}
		out, err := client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(name)})
		if err != nil {
			return nil, errors.Wrapf(err, "resolve queue %s", name)
		}
		queueURL = aws.ToString(out.QueueUrl)
	}
	return &SQS{
		client: client,
		url:    queueURL,
		fifo:   strings.HasSuffix(queueURL, ".fifo"),
	}, nil
}

// URL returns the queue URL messages are sent to.
func (p *SQS) URL() string { return p.url }

// Publish sends msg as one SQS message. FIFO queues get the content based
// deduplication id and a per-indicator message group.
func (p *SQS) Publish(ctx context.Context, msg ingest.Message) (string, error) {
	body, err := ingest.EncodeMessage(msg)
	if err != nil {
		return "", err
	}

	in := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.url),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"indicator_id": stringAttr(msg.ID),
			"content_hash": stringAttr(msg.ContentHash),
			"change":       stringAttr(string(msg.Change)),
		},
	}
	if p.fifo {
		in.MessageDeduplicationId = aws.String(msg.DedupeID())
		in.MessageGroupId = aws.String(msg.ID)
	}

	out, err := p.client.SendMessage(ctx, in)
	if err != nil {
		return "", classify(err, "sqs send message "+msg.ID)
	}
	return aws.ToString(out.MessageId), nil
}

func stringAttr(v string) types.MessageAttributeValue {
	return types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
}

// permanentCodes are SQS errors that will not succeed on retry.
var permanentCodes = map[string]bool{
	"AWS.SimpleQueueService.NonExistentQueue": true,
	"QueueDoesNotExist":                       true,
	"InvalidParameterValue":                   true,
	"InvalidMessageContents":                  true,
	"InvalidAddress":                          true,
	"AccessDenied":                            true,
	"AccessDeniedException":                   true,
}

func classify(err error, msg string) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && permanentCodes[apiErr.ErrorCode()] {
		return errors.Wrap(err, msg)
	}
	return ingest.MarkPublish(err, msg)
}
