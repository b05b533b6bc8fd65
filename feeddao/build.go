package feeddao

import (
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

	relayddb "github.com/oddsrelay/oddsrelay/relay-ddb"
)

// Build creates a new feeds DAO using the standard table name for the given
// environment.
func Build(api dynamodbiface.DynamoDBAPI, env string) *DAO {
	return New(api, relayddb.TableName(env))
}
