package ddb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"proclog-backend/internal/repository"
	appErrors "proclog-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ddbIdentityItem binds a synthetic identifier to one object key. Exactly one
// such item exists per object key, ever.
type ddbIdentityItem struct {
	ActionID    string `dynamodbav:"ActionID"`
	RecordKey   string `dynamodbav:"RecordKey"`
	SyntheticID string `dynamodbav:"SyntheticID"`
	CreatedAt   string `dynamodbav:"CreatedAt"`
}

// ddbIdentityStore implements IdentityStore using conditional writes on the
// record table. The claim item lives under a reserved partition key prefix so
// it never collides with record items.
type ddbIdentityStore struct {
	dbClient  *dynamodb.Client
	tableName string
}

// NewIdentityStore creates a new DynamoDB-based identity store.
func NewIdentityStore(dbClient *dynamodb.Client, tableName string) repository.IdentityStore {
	return &ddbIdentityStore{
		dbClient:  dbClient,
		tableName: tableName,
	}
}

// Claim binds syntheticID to objectKey with a conditional put. Concurrent
// writers race on attribute_not_exists; the loser reads back the winning
// identifier so both callers converge on one value.
func (s *ddbIdentityStore) Claim(ctx context.Context, objectKey, syntheticID string) (string, error) {
	item, err := attributevalue.MarshalMap(ddbIdentityItem{
		ActionID:    identityPK(objectKey),
		RecordKey:   "IDENTITY",
		SyntheticID: syntheticID,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", appErrors.Wrap(err, "failed to marshal identity item")
	}

	_, err = s.dbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(ActionID)"),
	})
	if err == nil {
		return syntheticID, nil
	}

	var ccf *types.ConditionalCheckFailedException
	if !errors.As(err, &ccf) {
		return "", appErrors.NewDependency("failed to claim object identity", err)
	}

	// Lost the race; another writer already bound an identifier.
	return s.lookup(ctx, objectKey)
}

func (s *ddbIdentityStore) lookup(ctx context.Context, objectKey string) (string, error) {
	key, err := attributevalue.MarshalMap(map[string]string{
		"ActionID":  identityPK(objectKey),
		"RecordKey": "IDENTITY",
	})
	if err != nil {
		return "", appErrors.Wrap(err, "failed to marshal identity key")
	}

	out, err := s.dbClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", appErrors.NewDependency("failed to read object identity", err)
	}
	if out.Item == nil {
		return "", appErrors.NewInternal("identity claim lost but no winner found", nil)
	}

	var item ddbIdentityItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return "", appErrors.Wrap(err, "failed to unmarshal identity item")
	}
	return item.SyntheticID, nil
}

func identityPK(objectKey string) string {
	return fmt.Sprintf("OBJECT#%s", objectKey)
}
