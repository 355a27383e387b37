package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/notify-dapp/internal/domain"
)

// attemptsAPI is the part of *dynamodb.Client the board uses.
type attemptsAPI interface {
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// StatusBoard keeps one item per delivery attempt; every transition
// overwrites the item in place. Items expire after ttl.
type StatusBoard struct {
	client    attemptsAPI
	tableName string
	ttl       time.Duration
}

func NewStatusBoard(client attemptsAPI, tableName string, ttl time.Duration) *StatusBoard {
	return &StatusBoard{client: client, tableName: tableName, ttl: ttl}
}

func (b *StatusBoard) Put(ctx context.Context, s domain.Status) error {
	updates := map[string]interface{}{
		fieldDraftID:   s.DraftID,
		fieldType:      s.Type,
		fieldStage:     string(s.Stage),
		fieldLevel:     string(s.Level),
		fieldMessage:   s.Message,
		fieldInfo:      s.Info,
		fieldPointer:   s.Pointer,
		fieldTxHash:    s.TxHash,
		fieldError:     s.Error,
		fieldCreatedAt: sortKeyTime(s.CreatedAt),
		fieldUpdatedAt: sortKeyTime(s.UpdatedAt),
	}
	if b.ttl > 0 {
		updates[fieldExpiresAt] = s.UpdatedAt.Add(b.ttl).Unix()
	}
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = b.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(b.tableName),
		Key:                       strKey(fieldAttemptID, s.AttemptID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		return fmt.Errorf("put attempt %s: %w", s.AttemptID, err)
	}
	return nil
}

func (b *StatusBoard) Get(ctx context.Context, attemptID string) (*domain.Status, error) {
	out, err := b.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(b.tableName),
		Key:            strKey(fieldAttemptID, attemptID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("attempt not found: %w", domain.ErrNotFound)
	}
	var s domain.Status
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByDraft returns the attempts made for a draft, newest first.
func (b *StatusBoard) ListByDraft(ctx context.Context, draftID string) ([]domain.Status, error) {
	out, err := b.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(b.tableName),
		IndexName:              aws.String(indexDraftUpdated),
		KeyConditionExpression: aws.String("#d = :d"),
		ExpressionAttributeNames: map[string]string{
			"#d": fieldDraftID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":d": &types.AttributeValueMemberS{Value: draftID},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	statuses := make([]domain.Status, 0, len(out.Items))
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}
