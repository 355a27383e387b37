package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/notify-dapp/internal/config"
	"github.com/notify-dapp/internal/infrastructure/awscfg"
)

// NewClient creates the DynamoDB client backing the attempt status board.
func NewClient(ctx context.Context, cfg *config.Config) (*dynamodb.Client, error) {
	awsCfg, err := awscfg.Load(ctx, cfg, "")
	if err != nil {
		return nil, err
	}
	endpoint := awscfg.Endpoint(cfg)
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != nil {
			o.BaseEndpoint = endpoint
		}
	}), nil
}
