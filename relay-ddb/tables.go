// Package relayddb provides DynamoDB and DAX client utilities shared by the
// feed and connection data access layers.
package relayddb

import (
	"fmt"

	relaycli "github.com/oddsrelay/oddsrelay/relay-cli"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
)

// TableName returns the shared feeds table name for the given environment.
// Feed and connection records live in the same table, split by sort-key
// namespace. The --table-name flag overrides the convention.
func TableName(env string) string {
	if DDBOpts.TableName != "" {
		return DDBOpts.TableName
	}
	if env == "" {
		env = relaycli.CommonOpts.Env
	}
	return env + "-oddsrelay--feeds"
}

func ParseItem(item map[string]*dynamodb.AttributeValue, v interface{}) error {
	if err := dynamodbattribute.UnmarshalMap(item, &v); err != nil {
		return fmt.Errorf("unable to unmarshal item: %w", err)
	}
	return nil
}
