package connectiondao

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

// DAO provides access to the WebSocket connection registry.
type DAO struct {
	table     *ddb.Table
	api       dynamodbiface.DynamoDBAPI
	tableName string
}

// New creates a new connections DAO.
func New(api dynamodbiface.DynamoDBAPI, tableName string) *DAO {
	return &DAO{
		table:     ddb.New(api).MustTable(tableName, Connection{}),
		api:       api,
		tableName: tableName,
	}
}

// Put stores a connection record. Re-registering the same id overwrites the
// prior endpoint and tag.
func (d *DAO) Put(ctx context.Context, conn Connection) error {
	return d.table.Put(conn).RunWithContext(ctx)
}

// Delete removes a connection record by ID. Absence is not an error; a
// disconnect may race with TTL expiry.
func (d *DAO) Delete(ctx context.Context, connectionID string) error {
	return d.table.Delete(connectionID).Range(SortKey).RunWithContext(ctx)
}

// ListLive returns every connection whose expiry has not elapsed relative to
// call time. It scans the sparse ConnectionIndex GSI, so only connection
// records are visited regardless of how many feed records share the table.
func (d *DAO) ListLive(ctx context.Context) ([]Connection, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(d.tableName),
		IndexName: aws.String("ConnectionIndex"),
	}

	var (
		conns   []Connection
		pageErr error
	)
	err := d.api.ScanPagesWithContext(ctx, input, func(page *dynamodb.ScanOutput, _ bool) bool {
		var batch []Connection
		if err := dynamodbattribute.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			pageErr = fmt.Errorf("failed to unmarshal connection page: %w", err)
			return false
		}
		conns = append(conns, batch...)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan connections: %w", err)
	}
	if pageErr != nil {
		return nil, pageErr
	}

	return filterLive(conns, time.Now()), nil
}

// filterLive drops records whose expiry has elapsed. The table TTL deletes
// lazily, so the scan can return records that are already dead.
func filterLive(conns []Connection, now time.Time) []Connection {
	var live []Connection
	for _, conn := range conns {
		if conn.Expire > now.Unix() {
			live = append(live, conn)
		}
	}
	return live
}
