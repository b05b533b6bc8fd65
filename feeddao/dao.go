// Package feeddao provides access to the odds feed records in the shared
// feeds table.
package feeddao

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/savaki/ddb"
)

// DAO provides access to feed records.
type DAO struct {
	table     *ddb.Table
	api       dynamodbiface.DynamoDBAPI
	tableName string
}

// New creates a new feeds DAO.
func New(api dynamodbiface.DynamoDBAPI, tableName string) *DAO {
	return &DAO{
		table:     ddb.New(api).MustTable(tableName, Feed{}),
		api:       api,
		tableName: tableName,
	}
}

// Put stores a single feed record.
func (d *DAO) Put(ctx context.Context, feed Feed) error {
	return d.table.Put(feed).RunWithContext(ctx)
}

// BatchWriteError reports the feed records a BatchWrite could not commit.
// Committed chunks stay committed; callers reconcile by re-submitting the
// unwritten records.
type BatchWriteError struct {
	Unwritten []Feed
	Cause     error
}

func (e *BatchWriteError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v feed records not committed: %v", len(e.Unwritten), e.Cause)
	}
	return fmt.Sprintf("%v feed records not committed", len(e.Unwritten))
}

func (e *BatchWriteError) Unwrap() error {
	return e.Cause
}

// BatchWrite stores feed records in chunks of 25 (the BatchWriteItem limit).
// DynamoDB applies items atomically-per-item, not transactionally across the
// batch: a failing chunk never rolls back earlier chunks. Unprocessed items
// are retried with backoff; whatever remains is returned in a
// *BatchWriteError rather than aborting the remaining chunks.
func (d *DAO) BatchWrite(ctx context.Context, feeds []Feed) error {
	const batchSize = 25

	var (
		unwritten []Feed
		cause     error
	)
	for i := 0; i < len(feeds); i += batchSize {
		end := i + batchSize
		if end > len(feeds) {
			end = len(feeds)
		}
		chunk := feeds[i:end]

		failed, err := d.writeChunk(ctx, chunk)
		if err != nil {
			cause = err
		}
		unwritten = append(unwritten, failed...)
	}

	if len(unwritten) > 0 {
		return &BatchWriteError{Unwritten: unwritten, Cause: cause}
	}
	return nil
}

// writeChunk writes up to 25 records, retrying unprocessed items. It returns
// exactly the records not committed: earlier attempts inside the loop may have
// committed part of the chunk before a later call fails.
func (d *DAO) writeChunk(ctx context.Context, chunk []Feed) ([]Feed, error) {
	writeRequests := make([]*dynamodb.WriteRequest, len(chunk))
	for i, feed := range chunk {
		item, err := dynamodbattribute.MarshalMap(feed)
		if err != nil {
			return chunk, fmt.Errorf("failed to marshal feed record %v/%v: %w", feed.GameID, feed.SortKey, err)
		}
		writeRequests[i] = &dynamodb.WriteRequest{
			PutRequest: &dynamodb.PutRequest{Item: item},
		}
	}

	unprocessed := map[string][]*dynamodb.WriteRequest{
		d.tableName: writeRequests,
	}

	const maxRetries = 5
	for attempt := 0; attempt < maxRetries; attempt++ {
		output, err := d.api.BatchWriteItemWithContext(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: unprocessed,
		})
		if err != nil {
			return unprocessedFeeds(unprocessed[d.tableName]), fmt.Errorf("failed to batch write feed records: %w", err)
		}
		if len(output.UnprocessedItems) == 0 {
			return nil, nil
		}
		unprocessed = output.UnprocessedItems

		if attempt < maxRetries-1 {
			backoff := time.Duration(1<<attempt) * 100 * time.Millisecond
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return unprocessedFeeds(unprocessed[d.tableName]), ctx.Err()
			case <-timer.C:
			}
		}
	}

	return unprocessedFeeds(unprocessed[d.tableName]), nil
}

func unprocessedFeeds(requests []*dynamodb.WriteRequest) []Feed {
	var feeds []Feed
	for _, request := range requests {
		if request.PutRequest == nil {
			continue
		}
		var feed Feed
		if err := dynamodbattribute.UnmarshalMap(request.PutRequest.Item, &feed); err != nil {
			continue
		}
		feeds = append(feeds, feed)
	}
	return feeds
}

// QueryLatest returns the most recent feed record for a game, or nil if the
// game has no odds. The reverse-ordered query is restricted to the odds
// namespace so connection records sharing the table are never returned.
func (d *DAO) QueryLatest(ctx context.Context, gameID string) (*Feed, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :prefix)"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":pk":     {S: aws.String(gameID)},
			":prefix": {S: aws.String(SortKeyPrefix)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int64(1),
	}

	output, err := d.api.QueryWithContext(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest feed for game %v: %w", gameID, err)
	}
	if len(output.Items) == 0 {
		return nil, nil
	}

	var feed Feed
	if err := dynamodbattribute.UnmarshalMap(output.Items[0], &feed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal latest feed for game %v: %w", gameID, err)
	}
	return &feed, nil
}
