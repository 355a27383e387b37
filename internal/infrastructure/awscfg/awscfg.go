// Package awscfg builds the shared AWS configuration used by the S3 content
// store, the DynamoDB status board and the SNS status notifier.
package awscfg

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/notify-dapp/internal/config"
)

// Load returns an aws.Config for region. Static credentials from cfg take
// precedence over the default chain so LocalStack works without a profile.
func Load(ctx context.Context, cfg *config.Config, region string) (aws.Config, error) {
	if region == "" {
		region = cfg.AWSRegion
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	return awsCfg, nil
}

// Endpoint returns the endpoint override, or nil when traffic goes to AWS.
func Endpoint(cfg *config.Config) *string {
	if cfg.AWSEndpointURL == "" {
		return nil
	}
	return aws.String(cfg.AWSEndpointURL)
}
