package mocks

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/mock"
)

// SQSAPI is a mock implementation of queue.SQSAPI
type SQSAPI struct {
	mock.Mock
}

func (m *SQSAPI) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*sqs.SendMessageOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SQSAPI) GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*sqs.GetQueueUrlOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}
