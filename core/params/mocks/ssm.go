package mocks

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/stretchr/testify/mock"
)

// SSMAPI is a mock implementation of ssm.GetParametersByPathAPIClient
type SSMAPI struct {
	mock.Mock
}

func (m *SSMAPI) GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*ssm.GetParametersByPathOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}
