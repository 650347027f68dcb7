// Package ddb implements the repository interfaces using AWS DynamoDB.
// This is the only layer that should have knowledge of DynamoDB specifics.
package ddb

import (
	"context"
	"time"

	"proclog-backend/internal/domain"
	"proclog-backend/internal/repository"
	appErrors "proclog-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Default GSI names. ObjectKeyIndex projects records by their denormalized
// object key; ProcessingIndex by the processing they belong to.
const (
	DefaultObjectKeyIndex  = "ObjectKeyIndex"
	DefaultProcessingIndex = "ProcessingIndex"
)

// ddbObject mirrors one processed object inside a record item.
type ddbObject struct {
	ObjectType     string   `dynamodbav:"ObjectType"`
	ObjectKind     string   `dynamodbav:"ObjectKind"`
	ObjectID       string   `dynamodbav:"ObjectID"`
	SyntheticID    string   `dynamodbav:"SyntheticID,omitempty"`
	DataCategories []string `dynamodbav:"DataCategories,omitempty"`
}

// ddbRecord represents the structure of a record item in DynamoDB. ActionID
// is the partition key; RecordKey is the composite sort key combining the
// object key and the registration timestamp.
type ddbRecord struct {
	ActionID             string      `dynamodbav:"ActionID"`
	RecordKey            string      `dynamodbav:"RecordKey"`
	ObjectKey            string      `dynamodbav:"ObjectKey"`
	URL                  string      `dynamodbav:"URL,omitempty"`
	Name                 string      `dynamodbav:"Name,omitempty"`
	OperationName        string      `dynamodbav:"OperationName,omitempty"`
	ProcessingID         string      `dynamodbav:"ProcessingID,omitempty"`
	ProcessingName       string      `dynamodbav:"ProcessingName,omitempty"`
	ActivityID           string      `dynamodbav:"ActivityID,omitempty"`
	ActivityURL          string      `dynamodbav:"ActivityURL,omitempty"`
	Confidentiality      string      `dynamodbav:"Confidentiality,omitempty"`
	RetentionPeriod      string      `dynamodbav:"RetentionPeriod,omitempty"`
	Executor             string      `dynamodbav:"Executor,omitempty"`
	System               string      `dynamodbav:"System,omitempty"`
	User                 string      `dynamodbav:"User,omitempty"`
	DataSource           string      `dynamodbav:"DataSource,omitempty"`
	RecipientKind        string      `dynamodbav:"RecipientKind,omitempty"`
	RecipientID          string      `dynamodbav:"RecipientID,omitempty"`
	RecipientActivityID  string      `dynamodbav:"RecipientActivityID,omitempty"`
	RecipientActivityURL string      `dynamodbav:"RecipientActivityURL,omitempty"`
	RecipientProcessing  string      `dynamodbav:"RecipientProcessingID,omitempty"`
	OccurredAt           string      `dynamodbav:"OccurredAt,omitempty"`
	RegisteredAt         string      `dynamodbav:"RegisteredAt"`
	Objects              []ddbObject `dynamodbav:"Objects"`
	Revoked              bool        `dynamodbav:"Revoked"`
	RevokedAt            string      `dynamodbav:"RevokedAt,omitempty"`
}

// ddbRepository is the concrete implementation for DynamoDB.
type ddbRepository struct {
	dbClient        *dynamodb.Client
	tableName       string
	objectKeyIndex  string
	processingIndex string
}

// NewRepository creates a new instance of the DynamoDB record repository.
// Empty index names fall back to the defaults.
func NewRepository(dbClient *dynamodb.Client, tableName, objectKeyIndex, processingIndex string) repository.RecordRepository {
	if objectKeyIndex == "" {
		objectKeyIndex = DefaultObjectKeyIndex
	}
	if processingIndex == "" {
		processingIndex = DefaultProcessingIndex
	}
	return &ddbRepository{
		dbClient:        dbClient,
		tableName:       tableName,
		objectKeyIndex:  objectKeyIndex,
		processingIndex: processingIndex,
	}
}

// SaveRecords transactionally writes every record of one action. DynamoDB
// caps a transaction at 100 items, far above the object count any single
// action carries in practice.
func (r *ddbRepository) SaveRecords(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}

	transactItems := make([]types.TransactWriteItem, 0, len(records))
	for _, rec := range records {
		item, err := attributevalue.MarshalMap(toItem(rec))
		if err != nil {
			return appErrors.Wrap(err, "failed to marshal record item")
		}
		transactItems = append(transactItems, types.TransactWriteItem{
			Put: &types.Put{TableName: aws.String(r.tableName), Item: item},
		})
	}

	_, err := r.dbClient.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: transactItems,
	})
	if err != nil {
		return appErrors.NewDependency("transaction to save records failed", err)
	}
	return nil
}

// QueryByObjectKey queries the object key index, newest records first. Time
// bounds and the remaining constraints become filter expressions evaluated
// server-side; time bounds apply to OccurredAt, not the sort key.
func (r *ddbRepository) QueryByObjectKey(ctx context.Context, query repository.RecordQuery) ([]domain.Record, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	keyCond := expression.Key("ObjectKey").Equal(expression.Value(query.ObjectKey))
	builder := expression.NewBuilder().WithKeyCondition(keyCond)

	// Time bounds apply to the moment the processing happened, not the
	// registration time in the sort key, so they go into the filter.
	var conds []expression.ConditionBuilder
	switch {
	case query.BeginDate != nil && query.EndDate != nil:
		conds = append(conds, expression.Name("OccurredAt").Between(
			expression.Value(domain.FormatTimestamp(*query.BeginDate)),
			expression.Value(domain.FormatTimestamp(*query.EndDate))))
	case query.BeginDate != nil:
		conds = append(conds, expression.Name("OccurredAt").GreaterThanEqual(
			expression.Value(domain.FormatTimestamp(*query.BeginDate))))
	case query.EndDate != nil:
		conds = append(conds, expression.Name("OccurredAt").LessThanEqual(
			expression.Value(domain.FormatTimestamp(*query.EndDate))))
	}
	if query.ActivityID != "" {
		conds = append(conds, expression.Name("ActivityID").Equal(expression.Value(query.ActivityID)))
	}
	if query.Confidentiality != "" {
		conds = append(conds, expression.Name("Confidentiality").Equal(expression.Value(query.Confidentiality)))
	}
	if len(conds) > 0 {
		filter := conds[0]
		for _, cond := range conds[1:] {
			filter = filter.And(cond)
		}
		builder = builder.WithFilter(filter)
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to build object key query")
	}

	return r.queryAll(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.objectKeyIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	})
}

// QueryAction returns every record of one action from the base table.
func (r *ddbRepository) QueryAction(ctx context.Context, actionID string) ([]domain.Record, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("ActionID").Equal(expression.Value(actionID))).
		Build()
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to build action query")
	}

	return r.queryAll(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	})
}

// QueryByProcessingID queries the ProcessingIndex for every record that was
// registered under one processing identifier.
func (r *ddbRepository) QueryByProcessingID(ctx context.Context, processingID string) ([]domain.Record, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("ProcessingID").Equal(expression.Value(processingID))).
		Build()
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to build processing query")
	}

	return r.queryAll(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.processingIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
}

// UpdateClassification sets confidentiality and/or retention period on one
// stored record. The item must already exist; updates never create records.
func (r *ddbRepository) UpdateClassification(ctx context.Context, actionID, recordKey string, update repository.ClassificationUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	var set expression.UpdateBuilder
	if update.Confidentiality != nil {
		set = set.Set(expression.Name("Confidentiality"), expression.Value(*update.Confidentiality))
	}
	if update.RetentionPeriod != nil {
		set = set.Set(expression.Name("RetentionPeriod"), expression.Value(*update.RetentionPeriod))
	}

	expr, err := expression.NewBuilder().
		WithUpdate(set).
		WithCondition(expression.AttributeExists(expression.Name("ActionID"))).
		Build()
	if err != nil {
		return appErrors.Wrap(err, "failed to build classification update")
	}

	key, err := attributevalue.MarshalMap(map[string]string{
		"ActionID":  actionID,
		"RecordKey": recordKey,
	})
	if err != nil {
		return appErrors.Wrap(err, "failed to marshal record key")
	}

	_, err = r.dbClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       key,
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return appErrors.NewDependency("failed to update record classification", err)
	}
	return nil
}

// queryAll drains a paginated query and unmarshals every item.
func (r *ddbRepository) queryAll(ctx context.Context, input *dynamodb.QueryInput) ([]domain.Record, error) {
	var records []domain.Record
	paginator := dynamodb.NewQueryPaginator(r.dbClient, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, appErrors.NewDependency("record query failed", err)
		}
		var items []ddbRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, appErrors.Wrap(err, "failed to unmarshal record items")
		}
		for _, item := range items {
			rec, err := fromItem(item)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

func toItem(rec domain.Record) ddbRecord {
	objects := make([]ddbObject, 0, len(rec.Objects))
	for _, obj := range rec.Objects {
		categories := make([]string, 0, len(obj.DataCategories))
		for _, cat := range obj.DataCategories {
			categories = append(categories, cat.Category)
		}
		objects = append(objects, ddbObject{
			ObjectType:     obj.ObjectType,
			ObjectKind:     obj.ObjectKind,
			ObjectID:       obj.ObjectID,
			SyntheticID:    obj.SyntheticID,
			DataCategories: categories,
		})
	}

	item := ddbRecord{
		ActionID:             rec.ActionID,
		RecordKey:            rec.RecordKey,
		ObjectKey:            rec.ObjectKey,
		URL:                  rec.URL,
		Name:                 rec.Name,
		OperationName:        rec.OperationName,
		ProcessingID:         rec.ProcessingID,
		ProcessingName:       rec.ProcessingName,
		ActivityID:           rec.ActivityID,
		ActivityURL:          rec.ActivityURL,
		Confidentiality:      rec.Confidentiality,
		RetentionPeriod:      rec.RetentionPeriod,
		Executor:             rec.Executor,
		System:               rec.System,
		User:                 rec.User,
		DataSource:           rec.DataSource,
		RecipientKind:        rec.RecipientKind,
		RecipientID:          rec.RecipientID,
		RecipientActivityID:  rec.RecipientActivityID,
		RecipientActivityURL: rec.RecipientActivityURL,
		RecipientProcessing:  rec.RecipientProcessing,
		RegisteredAt:         domain.FormatTimestamp(rec.RegisteredAt),
		Objects:              objects,
		Revoked:              rec.Revoked,
	}
	if !rec.OccurredAt.IsZero() {
		item.OccurredAt = domain.FormatTimestamp(rec.OccurredAt)
	}
	if !rec.RevokedAt.IsZero() {
		item.RevokedAt = domain.FormatTimestamp(rec.RevokedAt)
	}
	return item
}

func fromItem(item ddbRecord) (domain.Record, error) {
	objects := make([]domain.ProcessedObject, 0, len(item.Objects))
	for _, obj := range item.Objects {
		categories := make([]domain.DataCategory, 0, len(obj.DataCategories))
		for _, cat := range obj.DataCategories {
			categories = append(categories, domain.DataCategory{Category: cat})
		}
		objects = append(objects, domain.ProcessedObject{
			ObjectType:     obj.ObjectType,
			ObjectKind:     obj.ObjectKind,
			ObjectID:       obj.ObjectID,
			SyntheticID:    obj.SyntheticID,
			DataCategories: categories,
		})
	}

	registeredAt, err := parseTimestamp(item.RegisteredAt)
	if err != nil {
		return domain.Record{}, appErrors.Wrap(err, "invalid registration timestamp on stored record")
	}
	occurredAt, err := parseTimestamp(item.OccurredAt)
	if err != nil {
		return domain.Record{}, appErrors.Wrap(err, "invalid occurrence timestamp on stored record")
	}
	revokedAt, err := parseTimestamp(item.RevokedAt)
	if err != nil {
		return domain.Record{}, appErrors.Wrap(err, "invalid revocation timestamp on stored record")
	}

	return domain.Record{
		ProcessingAction: domain.ProcessingAction{
			ActionID:             item.ActionID,
			URL:                  item.URL,
			Name:                 item.Name,
			OperationName:        item.OperationName,
			ProcessingID:         item.ProcessingID,
			ProcessingName:       item.ProcessingName,
			ActivityID:           item.ActivityID,
			ActivityURL:          item.ActivityURL,
			Confidentiality:      item.Confidentiality,
			RetentionPeriod:      item.RetentionPeriod,
			Executor:             item.Executor,
			System:               item.System,
			User:                 item.User,
			DataSource:           item.DataSource,
			RecipientKind:        item.RecipientKind,
			RecipientID:          item.RecipientID,
			RecipientActivityID:  item.RecipientActivityID,
			RecipientActivityURL: item.RecipientActivityURL,
			RecipientProcessing:  item.RecipientProcessing,
			OccurredAt:           occurredAt,
			RegisteredAt:         registeredAt,
			Objects:              objects,
			Revoked:              item.Revoked,
			RevokedAt:            revokedAt,
		},
		RecordKey: item.RecordKey,
		ObjectKey: item.ObjectKey,
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
