package connectiondao

import (
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

	relayddb "github.com/oddsrelay/oddsrelay/relay-ddb"
)

// Build creates a new connections DAO using the standard table name for the
// given environment. Connection records share the feeds table, split off by
// sort-key namespace.
func Build(api dynamodbiface.DynamoDBAPI, env string) *DAO {
	return New(api, relayddb.TableName(env))
}
