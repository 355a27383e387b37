package dynamo

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/notify-dapp/internal/config"
)

type tableAPI interface {
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	UpdateTimeToLive(ctx context.Context, in *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

// Bootstrap creates the attempts table and its draft index if missing.
// Safe to call on every startup.
func Bootstrap(ctx context.Context, client tableAPI, tables config.DynamoTables) {
	created := createTable(ctx, client, &dynamodb.CreateTableInput{
		TableName:   aws.String(tables.Attempts),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(fieldAttemptID), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(fieldDraftID), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(fieldUpdatedAt), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(fieldAttemptID), KeyType: types.KeyTypeHash},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(indexDraftUpdated, fieldDraftID, fieldUpdatedAt),
		},
	})
	if created {
		enableTTL(ctx, client, tables.Attempts, fieldExpiresAt)
	}
}

// gsi describes a hash+range index projecting whole items, so history
// queries never go back to the base table.
func gsi(indexName, hashKey, rangeKey string) types.GlobalSecondaryIndex {
	return types.GlobalSecondaryIndex{
		IndexName: aws.String(indexName),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(rangeKey), KeyType: types.KeyTypeRange},
		},
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

// createTable reports whether the table was created by this call.
func createTable(ctx context.Context, client tableAPI, input *dynamodb.CreateTableInput) bool {
	_, err := client.CreateTable(ctx, input)
	if err != nil {
		var riue *types.ResourceInUseException
		if !errors.As(err, &riue) {
			slog.Warn("could not create table", "table", *input.TableName, "err", err)
		}
		return false
	}
	slog.Info("created table", "table", *input.TableName)
	return true
}

func enableTTL(ctx context.Context, client tableAPI, tableName, ttlAttr string) {
	_, err := client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(tableName),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			Enabled:       aws.Bool(true),
			AttributeName: aws.String(ttlAttr),
		},
	})
	if err != nil {
		slog.Warn("could not enable TTL", "table", tableName, "err", err)
	}
}
