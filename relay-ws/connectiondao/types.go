package connectiondao

import "time"

// SortKey is the fixed sort key for connection records. It is disjoint from
// the feed record namespace ("odds-"), which is how the stream consumer
// distinguishes connection churn from odds inserts.
const SortKey = "con"

// ConnectionTTL bounds how long a registry entry is considered live. The
// table TTL reaps expired records lazily; reads filter on expiry themselves.
const ConnectionTTL = 30 * time.Minute

// DefaultClient is the sentinel tag used when a client connects without one.
const DefaultClient = "client"

// Connection represents a WebSocket connection stored in the shared feeds
// table. The Connection attribute duplicates the id to populate the sparse
// ConnectionIndex GSI, which only connection records carry; scanning that
// index is the "all live subscribers" access path.
type Connection struct {
	ConnectionID string `dynamodbav:"pk" ddb:"hash"`
	SortKey      string `dynamodbav:"sk" ddb:"range"`
	Connection   string `dynamodbav:"connection" ddb:"gsi_hash:ConnectionIndex"`
	Client       string `dynamodbav:"client"`
	Endpoint     string `dynamodbav:"endpoint"`
	Created      int64  `dynamodbav:"created"`
	Expire       int64  `dynamodbav:"ttl"`
}

// NewConnection builds a registry record with timestamps computed from now.
func NewConnection(connectionID, client, endpoint string, now time.Time) Connection {
	if client == "" {
		client = DefaultClient
	}
	return Connection{
		ConnectionID: connectionID,
		SortKey:      SortKey,
		Connection:   connectionID,
		Client:       client,
		Endpoint:     endpoint,
		Created:      now.Unix(),
		Expire:       now.Add(ConnectionTTL).Unix(),
	}
}
