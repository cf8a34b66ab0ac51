package mocks

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/mock"
)

// DynamoAPI is a mock implementation of statestore.DynamoAPI
type DynamoAPI struct {
	mock.Mock
}

func (m *DynamoAPI) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*dynamodb.GetItemOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DynamoAPI) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*dynamodb.PutItemOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DynamoAPI) BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*dynamodb.BatchGetItemOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}
