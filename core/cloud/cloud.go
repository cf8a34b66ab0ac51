package cloud

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/cockroachdb/errors"
)

// Config holds configuration for AWS clients.
type Config struct {
	// Region overrides the region from the environment or shared config.
	Region string `mapstructure:"region" default:""`
	// Profile selects a shared config profile for local use.
	Profile string `mapstructure:"profile" default:""`
	// MaxAttempts is the SDK level retry budget per call.
	MaxAttempts int `mapstructure:"max_attempts" default:"3"`
}

// Load resolves AWS credentials and region through the default provider chain.
func Load(ctx context.Context, cfg Config) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.MaxAttempts > 0 {
		opts = append(opts, awsconfig.WithRetryMaxAttempts(cfg.MaxAttempts))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, errors.Wrap(err, "load aws config")
	}
	return awsCfg, nil
}

// DynamoDB creates a DynamoDB client. endpoint overrides the service URL when set.
func DynamoDB(awsCfg aws.Config, endpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// SQS creates an SQS client. endpoint overrides the service URL when set.
func SQS(awsCfg aws.Config, endpoint string) *sqs.Client {
	return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// SSM creates a Systems Manager client.
func SSM(awsCfg aws.Config) *ssm.Client {
	return ssm.NewFromConfig(awsCfg)
}
