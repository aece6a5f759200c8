package dynamo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/zlnvch/sketchroom/store"
)

// BatchWriteItem accepts at most 25 requests
const maxBatchWrite = 25

func newDynamoDBClient(ctx context.Context, devMode bool, dynamodbEndpoint string) (*dynamodb.Client, error) {
	var opts []func(*config.LoadOptions) error
	if devMode {
		// dynamodb-local accepts any static credentials
		opts = append(opts,
			config.WithRegion("us-east-1"),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("local", "local", "")),
		)
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if devMode && dynamodbEndpoint != "" {
			o.BaseEndpoint = aws.String(dynamodbEndpoint)
		}
	}), nil
}

func checkTable(ctx context.Context, client *dynamodb.Client, tableName string) error {
	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tableName)})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return fmt.Errorf("table '%s' not found in dynamodb", tableName)
		}
		return fmt.Errorf("describe table %s: %w", tableName, err)
	}
	return nil
}

func itemKey(pk string, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// getItem loads a single PK/SK item into T. A missing item is ErrItemNotFound.
func getItem[T any](dynamoStore *DynamoDrawStore, ctx context.Context, pk string, sk string) (T, error) {
	var item T

	resp, err := dynamoStore.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(dynamoStore.tableName),
		Key:       itemKey(pk, sk),
	})
	if err != nil {
		return item, fmt.Errorf("get %s/%s: %w", pk, sk, err)
	}
	if resp.Item == nil {
		return item, store.ErrItemNotFound
	}

	if err := attributevalue.UnmarshalMap(resp.Item, &item); err != nil {
		return item, fmt.Errorf("unmarshal %s/%s: %w", pk, sk, err)
	}
	return item, nil
}

// queryPartition reads up to limit items of one partition, newest (highest SK)
// first when newestFirst is set.
func queryPartition[T any](dynamoStore *DynamoDrawStore, ctx context.Context, pk string, newestFirst bool, limit int) ([]T, error) {
	results := make([]T, 0, min(limit, 100))
	var startKey map[string]types.AttributeValue

	for len(results) < limit {
		resp, err := dynamoStore.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(dynamoStore.tableName),
			KeyConditionExpression: aws.String("PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: pk},
			},
			ScanIndexForward:  aws.Bool(!newestFirst),
			Limit:             aws.Int32(int32(limit - len(results))),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", pk, err)
		}

		var page []T
		if err := attributevalue.UnmarshalListOfMaps(resp.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal %s page: %w", pk, err)
		}
		results = append(results, page...)

		startKey = resp.LastEvaluatedKey
		if startKey == nil {
			break
		}
	}

	return results, nil
}

// putNew writes item only if no item with its key exists yet.
func (dynamoStore *DynamoDrawStore) putNew(ctx context.Context, item any) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}

	_, err = dynamoStore.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(dynamoStore.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var cce *types.ConditionalCheckFailedException
		if errors.As(err, &cce) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// transactPutNew is putNew for several items at once: either all are
// written or none is.
func (dynamoStore *DynamoDrawStore) transactPutNew(ctx context.Context, items ...any) error {
	puts := make([]types.TransactWriteItem, len(items))
	for i, item := range items {
		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return fmt.Errorf("marshal item: %w", err)
		}
		puts[i] = types.TransactWriteItem{Put: &types.Put{
			TableName:           aws.String(dynamoStore.tableName),
			Item:                av,
			ConditionExpression: aws.String("attribute_not_exists(PK)"),
		}}
	}

	_, err := dynamoStore.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: puts})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) && slices.ContainsFunc(canceled.CancellationReasons, func(r types.CancellationReason) bool {
			return aws.ToString(r.Code) == "ConditionalCheckFailed"
		}) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

// deleteExisting removes one item, ErrItemNotFound if there was none.
func (dynamoStore *DynamoDrawStore) deleteExisting(ctx context.Context, pk string, sk string) error {
	out, err := dynamoStore.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(dynamoStore.tableName),
		Key:          itemKey(pk, sk),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", pk, sk, err)
	}
	if len(out.Attributes) == 0 {
		return store.ErrItemNotFound
	}
	return nil
}

// addToCounter adds delta to a numeric attribute and returns the new value.
// With upsert unset the item must already exist, otherwise ErrItemNotFound,
// so a counter bump never leaves a partial record behind.
func (dynamoStore *DynamoDrawStore) addToCounter(ctx context.Context, pk string, sk string, field string, delta int64, upsert bool) (int64, error) {
	input := &dynamodb.UpdateItemInput{
		TableName:                aws.String(dynamoStore.tableName),
		Key:                      itemKey(pk, sk),
		UpdateExpression:         aws.String("ADD #c :delta"),
		ExpressionAttributeNames: map[string]string{"#c": field},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":delta": &types.AttributeValueMemberN{Value: strconv.FormatInt(delta, 10)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	}
	if !upsert {
		input.ConditionExpression = aws.String("attribute_exists(PK)")
	}

	out, err := dynamoStore.client.UpdateItem(ctx, input)
	if err != nil {
		var cce *types.ConditionalCheckFailedException
		if errors.As(err, &cce) {
			return 0, store.ErrItemNotFound
		}
		return 0, fmt.Errorf("add to %s on %s: %w", field, pk, err)
	}

	n, ok := out.Attributes[field].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("counter %s missing from update result", field)
	}
	return strconv.ParseInt(n.Value, 10, 64)
}

// forEachIndexed visits the base table key of every item the index holds
// under value.
func (dynamoStore *DynamoDrawStore) forEachIndexed(
	ctx context.Context,
	indexName string,
	attr string,
	value string,
	visit func(key map[string]types.AttributeValue) error,
) error {
	paginator := dynamodb.NewQueryPaginator(dynamoStore.client, &dynamodb.QueryInput{
		TableName:                 aws.String(dynamoStore.tableName),
		IndexName:                 aws.String(indexName),
		KeyConditionExpression:    aws.String("#attr = :value"),
		ExpressionAttributeNames:  map[string]string{"#attr": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":value": &types.AttributeValueMemberS{Value: value}},
		ProjectionExpression:      aws.String("PK, SK"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("query %s: %w", indexName, err)
		}
		for _, item := range page.Items {
			if err := visit(map[string]types.AttributeValue{"PK": item["PK"], "SK": item["SK"]}); err != nil {
				return err
			}
		}
	}
	return nil
}

// batchDelete removes keys in chunks of 25, waiting at least spacing between
// chunks to stay under the table's write capacity.
func (dynamoStore *DynamoDrawStore) batchDelete(ctx context.Context, keys []map[string]types.AttributeValue, spacing time.Duration) error {
	for chunk := range slices.Chunk(keys, maxBatchWrite) {
		started := time.Now()

		requests := make([]types.WriteRequest, len(chunk))
		for i, key := range chunk {
			requests[i] = types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}}
		}
		if err := dynamoStore.writeBatch(ctx, requests); err != nil {
			return err
		}

		if wait := spacing - time.Since(started); wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return nil
}

// writeBatch retries unprocessed requests with capped exponential backoff
// until all are written or ctx ends.
func (dynamoStore *DynamoDrawStore) writeBatch(ctx context.Context, requests []types.WriteRequest) error {
	backoff := 50 * time.Millisecond

	for len(requests) > 0 {
		resp, err := dynamoStore.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{dynamoStore.tableName: requests},
		})
		if err != nil {
			return fmt.Errorf("batch write: %w", err)
		}

		requests = resp.UnprocessedItems[dynamoStore.tableName]
		if len(requests) == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("batch write: %d requests unprocessed: %w", len(requests), ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, time.Second)
	}
	return nil
}
