package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/sicko7947/usecasekit"
)

// DynamoDBStore implements usecasekit.UseCaseStore using AWS DynamoDB
type DynamoDBStore struct {
	client    DynamoDBClient
	tableName string
	indexName string
}

// NewDynamoDBStore creates a new DynamoDB-backed use case store
func NewDynamoDBStore(client DynamoDBClient, tableName, indexName string) usecasekit.UseCaseStore {
	return &DynamoDBStore{
		client:    client,
		tableName: tableName,
		indexName: indexName,
	}
}

// Use case bodies

func (s *DynamoDBStore) PutUseCase(ctx context.Context, rec *usecasekit.UseCaseRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal use case: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return storageError("put use case", err)
	}

	return nil
}

func (s *DynamoDBStore) UpdateUseCaseContent(ctx context.Context, key usecasekit.ItemKey, content usecasekit.UseCaseContent) error {
	content = content.Normalized()
	update := expression.
		Set(expression.Name(AttrTitle), expression.Value(content.Title)).
		Set(expression.Name(AttrDescription), expression.Value(content.Description)).
		Set(expression.Name(AttrPromptTemplate), expression.Value(content.PromptTemplate)).
		Set(expression.Name(AttrInputExamples), expression.Value(content.InputExamples)).
		Set(expression.Name(AttrFixedModelID), expression.Value(content.FixedModelID)).
		Set(expression.Name(AttrFileUpload), expression.Value(content.FileUpload))

	return s.updateBody(ctx, "update use case", key, update)
}

func (s *DynamoDBStore) SetShared(ctx context.Context, key usecasekit.ItemKey, shared bool) error {
	update := expression.Set(expression.Name(AttrIsShared), expression.Value(shared))
	return s.updateBody(ctx, "set shared flag", key, update)
}

// updateBody applies update to an existing body item. The item must still exist,
// otherwise a concurrent delete would be resurrected as a partial item.
func (s *DynamoDBStore) updateBody(ctx context.Context, action string, key usecasekit.ItemKey, update expression.UpdateBuilder) error {
	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name(AttrOwnerKey))).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       keyAttributes(key),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return storageError(action, err)
	}

	return nil
}

func (s *DynamoDBStore) ListUseCasesByOwner(ctx context.Context, ownerKey string, limit int32, start usecasekit.PageKey) ([]*usecasekit.UseCaseRecord, usecasekit.PageKey, error) {
	items, next, err := s.queryPartition(ctx, ownerKey, bodyPrefix(), limit, start)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list use cases: %w", err)
	}

	records := make([]*usecasekit.UseCaseRecord, 0, len(items))
	for _, item := range items {
		var rec usecasekit.UseCaseRecord
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal use case: %w", err)
		}
		records = append(records, &rec)
	}

	return records, next, nil
}

// Lookup

func (s *DynamoDBStore) ResolveByGlobalID(ctx context.Context, useCaseID string) (*usecasekit.UseCaseRecord, error) {
	keyCond := expression.Key(AttrUseCaseID).Equal(expression.Value(useCaseID)).
		And(expression.Key(AttrDataType).BeginsWith(bodyPrefix()))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(s.indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, storageError("resolve use case", err)
	}

	if len(result.Items) == 0 {
		return nil, nil
	}

	var rec usecasekit.UseCaseRecord
	if err := attributevalue.UnmarshalMap(result.Items[0], &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal use case: %w", err)
	}

	return &rec, nil
}

func (s *DynamoDBStore) ListReferenceKeys(ctx context.Context, useCaseID string) ([]usecasekit.ItemKey, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key(AttrUseCaseID).Equal(expression.Value(useCaseID))).
		WithProjection(expression.NamesList(expression.Name(AttrOwnerKey), expression.Name(AttrDataType))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	var keys []usecasekit.ItemKey
	var lastEvaluatedKey map[string]types.AttributeValue

	// Paginate through all results
	for {
		result, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(s.tableName),
			IndexName:                 aws.String(s.indexName),
			KeyConditionExpression:    expr.KeyCondition(),
			ProjectionExpression:      expr.Projection(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         lastEvaluatedKey,
		})
		if err != nil {
			return nil, storageError("list references", err)
		}

		for _, item := range result.Items {
			var key usecasekit.ItemKey
			if err := attributevalue.UnmarshalMap(item, &key); err != nil {
				return nil, fmt.Errorf("failed to unmarshal item key: %w", err)
			}
			keys = append(keys, key)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		lastEvaluatedKey = result.LastEvaluatedKey
	}

	return keys, nil
}

// Associations

func (s *DynamoDBStore) ListAssociations(ctx context.Context, ownerKey string, kind usecasekit.RelationKind, limit int32, start usecasekit.PageKey) ([]*usecasekit.AssociationRecord, usecasekit.PageKey, error) {
	var records []*usecasekit.AssociationRecord
	next := start

	// A zero limit drains every page; otherwise a single page is returned
	for {
		items, lastKey, err := s.queryPartition(ctx, ownerKey, usecasekit.SortKeyPrefix(kind), limit, next)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list %s associations: %w", kind, err)
		}

		for _, item := range items {
			var rec usecasekit.AssociationRecord
			if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
				return nil, nil, fmt.Errorf("failed to unmarshal association: %w", err)
			}
			records = append(records, &rec)
		}

		next = lastKey
		if limit > 0 || next == nil {
			break
		}
	}

	return records, next, nil
}

func (s *DynamoDBStore) PutAssociation(ctx context.Context, rec *usecasekit.AssociationRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal association: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return storageError("put association", err)
	}

	return nil
}

func (s *DynamoDBStore) DeleteItem(ctx context.Context, key usecasekit.ItemKey) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       keyAttributes(key),
	})
	if err != nil {
		return storageError("delete item", err)
	}

	return nil
}

func (s *DynamoDBStore) TransactWrite(ctx context.Context, tx usecasekit.TransactWrite) error {
	if tx.Len() == 0 {
		return nil
	}
	if tx.Len() > usecasekit.MaxTransactItems {
		return usecasekit.NewError(usecasekit.ErrCodeTransactionTooLarge, "TransactWrite",
			fmt.Sprintf("%d operations exceed the limit of %d", tx.Len(), usecasekit.MaxTransactItems))
	}

	transactItems := make([]types.TransactWriteItem, 0, tx.Len())
	for _, key := range tx.Deletes {
		transactItems = append(transactItems, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(s.tableName),
				Key:       keyAttributes(key),
			},
		})
	}
	for _, rec := range tx.Puts {
		item, err := attributevalue.MarshalMap(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal association: %w", err)
		}
		transactItems = append(transactItems, types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(s.tableName),
				Item:      item,
			},
		})
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: transactItems,
	})
	if err != nil {
		return storageError("transact write", err)
	}

	return nil
}

// queryPartition reads one page of a user's partition restricted to a sort key
// prefix, newest first.
func (s *DynamoDBStore) queryPartition(ctx context.Context, ownerKey, prefix string, limit int32, start usecasekit.PageKey) ([]map[string]types.AttributeValue, usecasekit.PageKey, error) {
	keyCond := expression.Key(AttrOwnerKey).Equal(expression.Value(ownerKey)).
		And(expression.Key(AttrDataType).BeginsWith(prefix))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build expression: %w", err)
	}

	queryInput := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	}
	if limit > 0 {
		queryInput.Limit = aws.Int32(limit)
	}
	if start != nil {
		startKey, err := attributevalue.MarshalMap(map[string]string(start))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal start key: %w", err)
		}
		queryInput.ExclusiveStartKey = startKey
	}

	result, err := s.client.Query(ctx, queryInput)
	if err != nil {
		return nil, nil, storageError("query partition", err)
	}

	var next usecasekit.PageKey
	if len(result.LastEvaluatedKey) > 0 {
		if err := attributevalue.UnmarshalMap(result.LastEvaluatedKey, &next); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal last evaluated key: %w", err)
		}
	}

	return result.Items, next, nil
}

// storageError annotates an engine error with its API code. A failed existence
// condition means the body item is gone and is reported as NOT_FOUND.
func storageError(action string, err error) error {
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return &usecasekit.UseCaseError{
			Code:    usecasekit.ErrCodeNotFound,
			Message: "use case no longer exists",
			Err:     err,
		}
	}

	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		reasons := make([]string, 0, len(canceled.CancellationReasons))
		for _, reason := range canceled.CancellationReasons {
			reasons = append(reasons, aws.ToString(reason.Code))
		}
		return fmt.Errorf("failed to %s: transaction canceled [%s]: %w", action, strings.Join(reasons, ","), err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("failed to %s (%s): %w", action, apiErr.ErrorCode(), err)
	}

	return fmt.Errorf("failed to %s: %w", action, err)
}
