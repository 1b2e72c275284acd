package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sicko7947/usecasekit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDynamoDBClient implements DynamoDBClient interface for testing
type mockDynamoDBClient struct {
	putItemFunc            func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	updateItemFunc         func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	queryFunc              func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	deleteItemFunc         func(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	transactWriteItemsFunc func(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

func (m *mockDynamoDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.putItemFunc != nil {
		return m.putItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamoDBClient) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if m.updateItemFunc != nil {
		return m.updateItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (m *mockDynamoDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, params, optFns...)
	}
	return &dynamodb.QueryOutput{}, nil
}

func (m *mockDynamoDBClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if m.deleteItemFunc != nil {
		return m.deleteItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

func (m *mockDynamoDBClient) TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	if m.transactWriteItemsFunc != nil {
		return m.transactWriteItemsFunc(ctx, params, optFns...)
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func newTestStore(client *mockDynamoDBClient) *DynamoDBStore {
	return NewDynamoDBStore(client, "test-table", "test-index").(*DynamoDBStore)
}

func testRecord() *usecasekit.UseCaseRecord {
	return &usecasekit.UseCaseRecord{
		OwnerKey:  usecasekit.OwnerKey("u1"),
		SortKey:   "useCase#0000000000000000001",
		UseCaseID: "uc-1",
		UseCaseContent: usecasekit.UseCaseContent{
			Title:          "Translate",
			PromptTemplate: "Translate {{text:Body}}",
			InputExamples: []usecasekit.InputExample{
				{Title: "hello", Examples: map[string]string{"Body": "hello"}},
			},
		},
	}
}

func mustMarshal(t *testing.T, v any) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(v)
	require.NoError(t, err)
	return item
}

func stringAttr(t *testing.T, item map[string]types.AttributeValue, name string) string {
	t.Helper()
	attr, ok := item[name].(*types.AttributeValueMemberS)
	require.True(t, ok, "attribute %s is not a string", name)
	return attr.Value
}

func TestNewDynamoDBStore(t *testing.T) {
	store := NewDynamoDBStore(&mockDynamoDBClient{}, "test-table", "test-index")
	require.NotNil(t, store)

	var _ usecasekit.UseCaseStore = store
}

func TestDynamoDBStore_PutUseCase(t *testing.T) {
	var captured *dynamodb.PutItemInput
	client := &mockDynamoDBClient{
		putItemFunc: func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			captured = params
			return &dynamodb.PutItemOutput{}, nil
		},
	}

	err := newTestStore(client).PutUseCase(context.Background(), testRecord())
	require.NoError(t, err)
	require.NotNil(t, captured)

	assert.Equal(t, "test-table", aws.ToString(captured.TableName))
	assert.Equal(t, "useCase#u1", stringAttr(t, captured.Item, AttrOwnerKey))
	assert.Equal(t, "useCase#0000000000000000001", stringAttr(t, captured.Item, AttrDataType))
	assert.Equal(t, "uc-1", stringAttr(t, captured.Item, AttrUseCaseID))
	assert.Equal(t, "Translate", stringAttr(t, captured.Item, AttrTitle))

	shared, ok := captured.Item[AttrIsShared].(*types.AttributeValueMemberBOOL)
	require.True(t, ok)
	assert.False(t, shared.Value)
}

func TestDynamoDBStore_PutUseCase_Error(t *testing.T) {
	client := &mockDynamoDBClient{
		putItemFunc: func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			return nil, errors.New("connection reset")
		},
	}

	err := newTestStore(client).PutUseCase(context.Background(), testRecord())
	assert.ErrorContains(t, err, "failed to put use case")
}

func TestDynamoDBStore_UpdateUseCaseContent(t *testing.T) {
	var captured *dynamodb.UpdateItemInput
	client := &mockDynamoDBClient{
		updateItemFunc: func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
			captured = params
			return &dynamodb.UpdateItemOutput{}, nil
		},
	}

	rec := testRecord()
	err := newTestStore(client).UpdateUseCaseContent(context.Background(), rec.Key(), usecasekit.UseCaseContent{
		Title:          "Renamed",
		PromptTemplate: "Say {{text:Body}}",
	})
	require.NoError(t, err)
	require.NotNil(t, captured)

	assert.Equal(t, rec.OwnerKey, stringAttr(t, captured.Key, AttrOwnerKey))
	assert.Equal(t, rec.SortKey, stringAttr(t, captured.Key, AttrDataType))
	assert.Contains(t, aws.ToString(captured.UpdateExpression), "SET")
	assert.Contains(t, aws.ToString(captured.ConditionExpression), "attribute_exists")

	// Every mutable attribute is rewritten
	var names []string
	for _, name := range captured.ExpressionAttributeNames {
		names = append(names, name)
	}
	assert.Subset(t, names, []string{AttrTitle, AttrDescription, AttrPromptTemplate, AttrInputExamples, AttrFixedModelID, AttrFileUpload})

	// Omitted examples are stored as an empty list, not left untouched
	var sawEmptyList bool
	for _, v := range captured.ExpressionAttributeValues {
		if l, ok := v.(*types.AttributeValueMemberL); ok && len(l.Value) == 0 {
			sawEmptyList = true
		}
	}
	assert.True(t, sawEmptyList)
}

func TestDynamoDBStore_SetShared_Missing(t *testing.T) {
	client := &mockDynamoDBClient{
		updateItemFunc: func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		},
	}

	err := newTestStore(client).SetShared(context.Background(), testRecord().Key(), true)
	require.Error(t, err)
	assert.True(t, usecasekit.IsNotFound(err))
}

func TestDynamoDBStore_ResolveByGlobalID(t *testing.T) {
	var captured *dynamodb.QueryInput
	client := &mockDynamoDBClient{
		queryFunc: func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			captured = params
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{mustMarshal(t, testRecord())}}, nil
		},
	}

	rec, err := newTestStore(client).ResolveByGlobalID(context.Background(), "uc-1")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "test-index", aws.ToString(captured.IndexName))
	assert.Equal(t, int32(1), aws.ToInt32(captured.Limit))
	assert.Contains(t, aws.ToString(captured.KeyConditionExpression), "begins_with")

	assert.Equal(t, "uc-1", rec.UseCaseID)
	assert.Equal(t, "u1", rec.OwnerID())
	assert.Equal(t, "Translate", rec.Title)
	assert.Equal(t, "hello", rec.InputExamples[0].Examples["Body"])
}

func TestDynamoDBStore_ResolveByGlobalID_NotFound(t *testing.T) {
	rec, err := newTestStore(&mockDynamoDBClient{}).ResolveByGlobalID(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestDynamoDBStore_ListUseCasesByOwner(t *testing.T) {
	var captured *dynamodb.QueryInput
	client := &mockDynamoDBClient{
		queryFunc: func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			captured = params
			rec := testRecord()
			return &dynamodb.QueryOutput{
				Items:            []map[string]types.AttributeValue{mustMarshal(t, rec)},
				LastEvaluatedKey: mustMarshal(t, rec.Key()),
			}, nil
		},
	}

	start := usecasekit.PageKey{AttrOwnerKey: "useCase#u1", AttrDataType: "useCase#0000000000000000009"}
	records, next, err := newTestStore(client).ListUseCasesByOwner(context.Background(), "useCase#u1", 30, start)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Nil(t, captured.IndexName)
	assert.False(t, aws.ToBool(captured.ScanIndexForward))
	assert.Equal(t, int32(30), aws.ToInt32(captured.Limit))
	assert.Equal(t, "useCase#0000000000000000009", stringAttr(t, captured.ExclusiveStartKey, AttrDataType))

	assert.Equal(t, usecasekit.PageKey{AttrOwnerKey: "useCase#u1", AttrDataType: "useCase#0000000000000000001"}, next)
}

func TestDynamoDBStore_ListAssociations_DrainsAllPages(t *testing.T) {
	calls := 0
	client := &mockDynamoDBClient{
		queryFunc: func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			calls++
			assert.Nil(t, params.Limit)

			rec := &usecasekit.AssociationRecord{
				OwnerKey:  "useCase#u1",
				SortKey:   fmt.Sprintf("favorite#%019d", 10-calls),
				UseCaseID: fmt.Sprintf("uc-%d", calls),
			}
			out := &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{mustMarshal(t, rec)}}
			if calls == 1 {
				assert.Nil(t, params.ExclusiveStartKey)
				out.LastEvaluatedKey = mustMarshal(t, rec.Key())
			} else {
				assert.NotNil(t, params.ExclusiveStartKey)
			}
			return out, nil
		},
	}

	records, next, err := newTestStore(client).ListAssociations(context.Background(), "useCase#u1", usecasekit.RelationFavorite, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Nil(t, next)
	require.Len(t, records, 2)
	assert.Equal(t, "uc-1", records[0].UseCaseID)
	assert.Equal(t, "uc-2", records[1].UseCaseID)
}

func TestDynamoDBStore_ListAssociations_SinglePage(t *testing.T) {
	calls := 0
	client := &mockDynamoDBClient{
		queryFunc: func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			calls++
			assert.Equal(t, int32(20), aws.ToInt32(params.Limit))
			return &dynamodb.QueryOutput{
				LastEvaluatedKey: mustMarshal(t, usecasekit.ItemKey{OwnerKey: "useCase#u1", SortKey: "recentlyUsed#1"}),
			}, nil
		},
	}

	_, next, err := newTestStore(client).ListAssociations(context.Background(), "useCase#u1", usecasekit.RelationRecentlyUsed, 20, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "recentlyUsed#1", next[AttrDataType])
}

func TestDynamoDBStore_ListReferenceKeys(t *testing.T) {
	pages := [][]usecasekit.ItemKey{
		{{OwnerKey: "useCase#u1", SortKey: "useCase#1"}, {OwnerKey: "useCase#u2", SortKey: "favorite#2"}},
		{{OwnerKey: "useCase#u3", SortKey: "recentlyUsed#3"}},
	}
	calls := 0
	client := &mockDynamoDBClient{
		queryFunc: func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			assert.Equal(t, "test-index", aws.ToString(params.IndexName))
			assert.NotEmpty(t, aws.ToString(params.ProjectionExpression))

			page := pages[calls]
			calls++
			out := &dynamodb.QueryOutput{}
			for _, key := range page {
				out.Items = append(out.Items, mustMarshal(t, key))
			}
			if calls < len(pages) {
				out.LastEvaluatedKey = mustMarshal(t, page[len(page)-1])
			}
			return out, nil
		},
	}

	keys, err := newTestStore(client).ListReferenceKeys(context.Background(), "uc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []usecasekit.ItemKey{pages[0][0], pages[0][1], pages[1][0]}, keys)
}

func TestDynamoDBStore_DeleteItem(t *testing.T) {
	var captured *dynamodb.DeleteItemInput
	client := &mockDynamoDBClient{
		deleteItemFunc: func(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
			captured = params
			return &dynamodb.DeleteItemOutput{}, nil
		},
	}

	key := usecasekit.ItemKey{OwnerKey: "useCase#u1", SortKey: "favorite#1"}
	require.NoError(t, newTestStore(client).DeleteItem(context.Background(), key))
	assert.Equal(t, "favorite#1", stringAttr(t, captured.Key, AttrDataType))
}

func TestDynamoDBStore_TransactWrite(t *testing.T) {
	var captured *dynamodb.TransactWriteItemsInput
	client := &mockDynamoDBClient{
		transactWriteItemsFunc: func(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
			captured = params
			return &dynamodb.TransactWriteItemsOutput{}, nil
		},
	}

	err := newTestStore(client).TransactWrite(context.Background(), usecasekit.TransactWrite{
		Deletes: []usecasekit.ItemKey{{OwnerKey: "useCase#u1", SortKey: "recentlyUsed#1"}},
		Puts:    []*usecasekit.AssociationRecord{{OwnerKey: "useCase#u1", SortKey: "recentlyUsed#2", UseCaseID: "uc-1"}},
	})
	require.NoError(t, err)
	require.Len(t, captured.TransactItems, 2)

	assert.NotNil(t, captured.TransactItems[0].Delete)
	assert.Equal(t, "test-table", aws.ToString(captured.TransactItems[0].Delete.TableName))
	require.NotNil(t, captured.TransactItems[1].Put)
	assert.Equal(t, "uc-1", stringAttr(t, captured.TransactItems[1].Put.Item, AttrUseCaseID))
}

func TestDynamoDBStore_TransactWrite_Limits(t *testing.T) {
	calls := 0
	client := &mockDynamoDBClient{
		transactWriteItemsFunc: func(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
			calls++
			return &dynamodb.TransactWriteItemsOutput{}, nil
		},
	}
	store := newTestStore(client)

	require.NoError(t, store.TransactWrite(context.Background(), usecasekit.TransactWrite{}))
	assert.Equal(t, 0, calls)

	tooMany := usecasekit.TransactWrite{Deletes: make([]usecasekit.ItemKey, usecasekit.MaxTransactItems+1)}
	err := store.TransactWrite(context.Background(), tooMany)
	assert.Equal(t, usecasekit.ErrCodeTransactionTooLarge, usecasekit.ErrorCode(err))
	assert.Equal(t, 0, calls)
}

func TestDynamoDBStore_TransactWrite_Canceled(t *testing.T) {
	client := &mockDynamoDBClient{
		transactWriteItemsFunc: func(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
			return nil, &types.TransactionCanceledException{
				Message: aws.String("Transaction cancelled"),
				CancellationReasons: []types.CancellationReason{
					{Code: aws.String("None")},
					{Code: aws.String("TransactionConflict")},
				},
			}
		},
	}

	err := newTestStore(client).TransactWrite(context.Background(), usecasekit.TransactWrite{
		Deletes: []usecasekit.ItemKey{{OwnerKey: "useCase#u1", SortKey: "favorite#1"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[None,TransactionConflict]")

	var canceled *types.TransactionCanceledException
	assert.ErrorAs(t, err, &canceled)
}

func TestDynamoDBStore_Query_Error(t *testing.T) {
	client := &mockDynamoDBClient{
		queryFunc: func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			return nil, &types.ProvisionedThroughputExceededException{Message: aws.String("slow down")}
		},
	}

	_, _, err := newTestStore(client).ListUseCasesByOwner(context.Background(), "useCase#u1", 30, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ProvisionedThroughputExceededException")
}
