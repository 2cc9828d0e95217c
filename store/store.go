package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/sync/errgroup"

	"github.com/jacentio/lattice/entry"
	"github.com/jacentio/lattice/internal/recordkey"
)

const (
	// maxBatchSize is the BatchWriteItem request limit.
	maxBatchSize = 25

	// maxBatchAttempts bounds retries of unprocessed batch items.
	maxBatchAttempts = 3

	// batchRetryDelay is the base backoff before retrying unprocessed items.
	batchRetryDelay = 50 * time.Millisecond
)

// DynamoDBClient is the subset of the DynamoDB API the Store uses.
// *dynamodb.Client satisfies it; tests substitute a fake.
type DynamoDBClient interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store is the DynamoDB-backed Engine. One table holds every entry,
// partitioned by owner id and range-keyed by (category, position, key).
type Store struct {
	client DynamoDBClient
	config Config
}

var _ Engine = (*Store)(nil)

// New creates a new Store instance.
func New(client DynamoDBClient, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		config: config,
	}
}

// GetAll returns every entry for the owner in one paginated query, ordered
// by the range key: (category, position, key).
func (s *Store) GetAll(ctx context.Context, ownerID string) ([]entry.Entry, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: empty owner id", entry.ErrInvalidEntry)
	}

	return s.queryEntries(ctx, "query owner entries", &dynamodb.QueryInput{
		TableName:              aws.String(s.config.TableName),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: ownerID},
		},
		ConsistentRead: aws.Bool(!s.config.EventuallyConsistent),
	})
}

// GetCategory returns the owner's entries in one category, ordered by
// (position, key).
func (s *Store) GetCategory(ctx context.Context, ownerID string, cat entry.Category) ([]entry.Entry, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: empty owner id", entry.ErrInvalidEntry)
	}

	return s.queryEntries(ctx, "query category entries", &dynamodb.QueryInput{
		TableName:              aws.String(s.config.TableName),
		KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: ownerID},
			":prefix": &types.AttributeValueMemberS{Value: recordkey.CategoryPrefix(cat)},
		},
		ConsistentRead: aws.Bool(!s.config.EventuallyConsistent),
	})
}

// queryEntries paginates through all results and decodes each item.
func (s *Store) queryEntries(ctx context.Context, op string, input *dynamodb.QueryInput) ([]entry.Entry, error) {
	var entries []entry.Entry

	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapStorageErr(op, err)
		}
		for _, raw := range page.Items {
			var rec record
			if err := attributevalue.UnmarshalMap(raw, &rec); err != nil {
				return nil, fmt.Errorf("%s: unmarshal item: %w", op, err)
			}
			e, err := rec.toEntry()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			entries = append(entries, e)
		}
	}

	return entries, nil
}

// UpsertUnconditional inserts or overwrites the entry, setting version to 1
// when new and incrementing it otherwise.
func (s *Store) UpsertUnconditional(ctx context.Context, e entry.Entry) (int64, error) {
	return s.upsert(ctx, e, nil)
}

// UpsertConditional applies the entry only when the stored version equals
// expectedVersion, or when the entry is absent and expectedVersion is
// VersionNotExists. A mismatch returns ErrVersionConflict and mutates
// nothing.
func (s *Store) UpsertConditional(ctx context.Context, e entry.Entry, expectedVersion int64) (int64, error) {
	if expectedVersion < 0 {
		return 0, fmt.Errorf("lattice: negative expected version %d", expectedVersion)
	}
	return s.upsert(ctx, e, &expectedVersion)
}

// upsert performs a single UpdateItem that works for both the insert and
// overwrite cases: version and created_at fall back to if_not_exists so the
// first write lands at version 1 without a prior read.
func (s *Store) upsert(ctx context.Context, e entry.Entry, expectedVersion *int64) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}

	now := strconv.FormatInt(time.Now().Unix(), 10)

	exprNames := map[string]string{
		"#category":   "category",
		"#position":   "position",
		"#key":        "key",
		"#value_kind": "value_kind",
		"#version":    "version",
		"#created_at": "created_at",
		"#updated_at": "updated_at",
	}
	exprValues := map[string]types.AttributeValue{
		":category":   &types.AttributeValueMemberS{Value: e.Category.String()},
		":position":   &types.AttributeValueMemberN{Value: strconv.FormatInt(e.Position, 10)},
		":key":        &types.AttributeValueMemberS{Value: e.Key},
		":value_kind": &types.AttributeValueMemberS{Value: e.Value.Kind().String()},
		":zero":       &types.AttributeValueMemberN{Value: "0"},
		":one":        &types.AttributeValueMemberN{Value: "1"},
		":now":        &types.AttributeValueMemberN{Value: now},
	}

	setClauses := []string{
		"#category = :category",
		"#position = :position",
		"#key = :key",
		"#value_kind = :value_kind",
		"#version = if_not_exists(#version, :zero) + :one",
		"#created_at = if_not_exists(#created_at, :now)",
		"#updated_at = :now",
	}

	// Set the populated value attribute and clear the other variants so an
	// overwrite that changes kind leaves no stale attribute behind.
	var removes []string
	switch e.Value.Kind() {
	case entry.ValueBool:
		v, _ := e.Value.Bool()
		exprNames["#bool_value"] = "bool_value"
		exprValues[":value"] = &types.AttributeValueMemberBOOL{Value: v}
		setClauses = append(setClauses, "#bool_value = :value")
		removes = []string{"string_value", "set_value"}
	case entry.ValueString:
		v, _ := e.Value.String()
		exprNames["#string_value"] = "string_value"
		exprValues[":value"] = &types.AttributeValueMemberS{Value: v}
		setClauses = append(setClauses, "#string_value = :value")
		removes = []string{"bool_value", "set_value"}
	case entry.ValueStringSet:
		members, _ := e.Value.StringSet()
		if len(members) == 0 {
			// DynamoDB rejects empty sets; value_kind alone carries the type.
			removes = []string{"bool_value", "string_value", "set_value"}
		} else {
			exprNames["#set_value"] = "set_value"
			exprValues[":value"] = &types.AttributeValueMemberSS{Value: members}
			setClauses = append(setClauses, "#set_value = :value")
			removes = []string{"bool_value", "string_value"}
		}
	}

	var removeClauses []string
	for _, attr := range removes {
		name := "#" + attr
		exprNames[name] = attr
		removeClauses = append(removeClauses, name)
	}

	updateExpr := "SET " + joinStrings(setClauses, ", ") + " REMOVE " + joinStrings(removeClauses, ", ")

	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.config.TableName),
		Key:                       s.entryKey(e.OwnerID, e.Category, e.Position, e.Key),
		UpdateExpression:          aws.String(updateExpr),
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
		ReturnValues:              types.ReturnValueAllNew,
	}

	if expectedVersion != nil {
		if *expectedVersion == VersionNotExists {
			input.ConditionExpression = aws.String("attribute_not_exists(pk)")
		} else {
			input.ConditionExpression = aws.String("#version = :expected_version")
			exprValues[":expected_version"] = &types.AttributeValueMemberN{
				Value: strconv.FormatInt(*expectedVersion, 10),
			}
		}
	}

	result, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return 0, ErrVersionConflict
		}
		return 0, wrapStorageErr("upsert entry", err)
	}

	var rec record
	if err := attributevalue.UnmarshalMap(result.Attributes, &rec); err != nil {
		return 0, fmt.Errorf("upsert entry: unmarshal result: %w", err)
	}
	return rec.Version, nil
}

// ReplaceCategory deletes every entry in (ownerID, cat) and inserts the
// given entries with version 1 and fresh timestamps. The boundary is not
// atomic: a concurrent reader may observe an empty or partial category
// while the replace is in flight.
func (s *Store) ReplaceCategory(ctx context.Context, ownerID string, cat entry.Category, entries []entry.Entry) error {
	if ownerID == "" {
		return fmt.Errorf("%w: empty owner id", entry.ErrInvalidEntry)
	}

	// 1. Validate the replacement set up front; a batch must never land
	// half-checked.
	keep := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
		if e.OwnerID != ownerID || e.Category != cat {
			return fmt.Errorf("%w: entry %q does not belong to owner %q category %q",
				entry.ErrInvalidEntry, e.Key, ownerID, cat)
		}
		sk := recordkey.SK(e.Category, e.Position, e.Key)
		if _, dup := keep[sk]; dup {
			return fmt.Errorf("%w: duplicate entry %q", entry.ErrInvalidEntry, sk)
		}
		keep[sk] = struct{}{}
	}

	// 2. Collect the keys currently in the category.
	existing, err := s.categoryKeys(ctx, ownerID, cat)
	if err != nil {
		return err
	}

	// 3. Queue deletes for rows leaving the category. Rows whose range key
	// is being rewritten are overwritten by their put; a batch cannot hold
	// two requests for one key.
	requests := make([]types.WriteRequest, 0, len(existing)+len(entries))
	for _, key := range existing {
		if sk, ok := key["sk"].(*types.AttributeValueMemberS); ok {
			if _, keeping := keep[sk.Value]; keeping {
				continue
			}
		}
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: key},
		})
	}

	// 4. Queue puts for the replacement set. A replace recreates the
	// category, so versions restart at 1.
	now := time.Now().UTC()
	for _, e := range entries {
		e.Version = 1
		e.CreatedAt = now
		e.UpdatedAt = now
		rec, err := newRecord(e)
		if err != nil {
			return err
		}
		item, err := attributevalue.MarshalMap(rec)
		if err != nil {
			return fmt.Errorf("replace category: marshal entry %q: %w", e.Key, err)
		}
		requests = append(requests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	if len(requests) == 0 {
		return nil
	}
	return s.batchWrite(ctx, requests)
}

// categoryKeys returns the primary keys of every row in the category.
func (s *Store) categoryKeys(ctx context.Context, ownerID string, cat entry.Category) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.config.TableName),
		KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: ownerID},
			":prefix": &types.AttributeValueMemberS{Value: recordkey.CategoryPrefix(cat)},
		},
		ProjectionExpression: aws.String("pk, sk"),
		ConsistentRead:       aws.Bool(!s.config.EventuallyConsistent),
	}

	var keys []map[string]types.AttributeValue
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapStorageErr("query category keys", err)
		}
		keys = append(keys, page.Items...)
	}

	return keys, nil
}

// batchWrite dispatches requests in chunks of maxBatchSize, chunks in
// parallel, retrying unprocessed items with backoff.
func (s *Store) batchWrite(ctx context.Context, requests []types.WriteRequest) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.WriteConcurrency)

	for start := 0; start < len(requests); start += maxBatchSize {
		chunk := requests[start:min(start+maxBatchSize, len(requests))]
		g.Go(func() error {
			pending := chunk
			for attempt := 1; ; attempt++ {
				result, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
					RequestItems: map[string][]types.WriteRequest{
						s.config.TableName: pending,
					},
				})
				if err != nil {
					return wrapStorageErr("batch write", err)
				}

				pending = result.UnprocessedItems[s.config.TableName]
				if len(pending) == 0 {
					return nil
				}
				if attempt >= maxBatchAttempts {
					return fmt.Errorf("batch write: %w: %d items unprocessed after %d attempts",
						ErrUnavailable, len(pending), attempt)
				}

				// Throttled items back off before the retry.
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(batchRetryDelay << (attempt - 1)):
				}
			}
		})
	}

	return g.Wait()
}

// Delete removes one entry. Deleting a non-existent entry is a no-op.
func (s *Store) Delete(ctx context.Context, ownerID string, cat entry.Category, position int64, key string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.config.TableName),
		Key:       s.entryKey(ownerID, cat, position, key),
	})
	if err != nil {
		return wrapStorageErr("delete entry", err)
	}
	return nil
}

// Reposition moves a sortable entry to e.Position in one transaction: a put
// of the new row and a version-conditioned delete of the old one. Both
// cancellation reasons mean the list changed under the caller, so either
// surfaces as ErrVersionConflict.
func (s *Store) Reposition(ctx context.Context, e entry.Entry, oldPosition, expectedVersion int64) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	if !e.Category.Ordered() {
		return 0, fmt.Errorf("%w: category %q does not order entries", entry.ErrInvalidEntry, e.Category)
	}
	if expectedVersion < 1 {
		return 0, fmt.Errorf("lattice: reposition requires the current version, got %d", expectedVersion)
	}
	if oldPosition == e.Position {
		return 0, fmt.Errorf("lattice: reposition to the same position %d", e.Position)
	}

	now := time.Now().UTC()
	e.Version = expectedVersion + 1
	e.UpdatedAt = now
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}

	rec, err := newRecord(e)
	if err != nil {
		return 0, err
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return 0, fmt.Errorf("reposition entry: marshal: %w", err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(s.config.TableName),
					Item:                item,
					ConditionExpression: aws.String("attribute_not_exists(pk)"),
				},
			},
			{
				Delete: &types.Delete{
					TableName:           aws.String(s.config.TableName),
					Key:                 s.entryKey(e.OwnerID, e.Category, oldPosition, e.Key),
					ConditionExpression: aws.String("#version = :expected_version"),
					ExpressionAttributeNames: map[string]string{
						"#version": "version",
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":expected_version": &types.AttributeValueMemberN{
							Value: strconv.FormatInt(expectedVersion, 10),
						},
					},
				},
			},
		},
	})
	if err != nil {
		return 0, mapRepositionError(err)
	}

	return e.Version, nil
}

// entryKey builds the table primary key for one entry.
func (s *Store) entryKey(ownerID string, cat entry.Category, position int64, key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: ownerID},
		"sk": &types.AttributeValueMemberS{Value: recordkey.SK(cat, position, key)},
	}
}

// mapRepositionError maps transaction cancellations to ErrVersionConflict.
func mapRepositionError(err error) error {
	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for _, reason := range txErr.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return ErrVersionConflict
			}
		}
	}
	return wrapStorageErr("reposition entry", err)
}

// wrapStorageErr classifies storage failures. Context errors pass through
// so callers can tell their own deadline from a storage outage; everything
// else wraps ErrUnavailable as a retry-with-backoff signal.
func wrapStorageErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// joinStrings joins strings with a separator (avoiding strings package import).
func joinStrings(strs []string, sep string) string {
	if len(strs) == 0 {
		return ""
	}
	result := strs[0]
	for _, s := range strs[1:] {
		result += sep + s
	}
	return result
}
