package relaystream

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/savaki/ddb"

	"github.com/oddsrelay/oddsrelay/feeddao"
	relayddb "github.com/oddsrelay/oddsrelay/relay-ddb"
)

// ParseChangeRecord decodes the JSON change record carried in a Kinesis
// payload into the DynamoDB stream shape.
func ParseChangeRecord(data []byte) (ddb.Record, error) {
	var record ddb.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return ddb.Record{}, fmt.Errorf("failed to unmarshal change record: %w", err)
	}
	return record, nil
}

// Eligible reports whether a change record should be broadcast. Only inserts
// into the odds sort-key namespace qualify; connection churn and TTL removals
// share the stream and are skipped.
func Eligible(record ddb.Record) bool {
	if record.EventName != "INSERT" {
		return false
	}
	sk, ok := record.Change.NewImage["sk"]
	if !ok || sk.S == nil {
		return false
	}
	return strings.HasPrefix(*sk.S, feeddao.SortKeyPrefix)
}

// DecodeFeed converts the post-image of an eligible change record into a
// typed feed record.
func DecodeFeed(record ddb.Record) (feeddao.Feed, error) {
	var feed feeddao.Feed
	if err := relayddb.ParseItem(record.Change.NewImage, &feed); err != nil {
		return feeddao.Feed{}, fmt.Errorf("failed to decode feed image: %w", err)
	}
	return feed, nil
}
