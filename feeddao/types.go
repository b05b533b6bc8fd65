package feeddao

import "time"

// SortKeyPrefix namespaces feed records within the shared table. Connection
// records use the disjoint sort key "con", so a begins_with on this prefix
// never sees connection churn.
const SortKeyPrefix = "odds-"

// Entry is the wire form of one odds line submitted to the write endpoint.
type Entry struct {
	GameID   string  `json:"gameId"`
	Date     string  `json:"date"`
	Away     int64   `json:"away"`
	Home     int64   `json:"home"`
	AwayOdds float64 `json:"awayOdds"`
	HomeOdds float64 `json:"homeOdds"`
}

// Feed is an odds record stored in DynamoDB. Records are immutable: they are
// only ever created, and reaped by the table TTL a year out.
type Feed struct {
	GameID   string  `dynamodbav:"pk" ddb:"hash"`
	SortKey  string  `dynamodbav:"sk" ddb:"range"`
	Away     int64   `dynamodbav:"away"`
	Home     int64   `dynamodbav:"home"`
	AwayOdds float64 `dynamodbav:"awayOdds"`
	HomeOdds float64 `dynamodbav:"homeOdds"`
	Created  int64   `dynamodbav:"created"`
	TTL      int64   `dynamodbav:"ttl"`
}

// Update is the normalized projection pushed to subscribers. Clients never
// see the raw storage record.
type Update struct {
	GameID   string  `json:"gameId"`
	Away     int64   `json:"away"`
	Home     int64   `json:"home"`
	AwayOdds float64 `json:"awayOdds"`
	HomeOdds float64 `json:"homeOdds"`
	Date     int64   `json:"date"`
}

// NewFeed builds a fully-populated feed record from a wire entry. The sort
// key embeds the caller-supplied date so that "latest" is a reverse-order
// query within the odds namespace.
func NewFeed(entry Entry, now time.Time) Feed {
	return Feed{
		GameID:   entry.GameID,
		SortKey:  SortKeyPrefix + entry.Date,
		Away:     entry.Away,
		Home:     entry.Home,
		AwayOdds: entry.AwayOdds,
		HomeOdds: entry.HomeOdds,
		Created:  now.Unix(),
		TTL:      now.AddDate(1, 0, 0).Unix(),
	}
}

// AsUpdate returns the broadcast projection of the record.
func (f Feed) AsUpdate() Update {
	return Update{
		GameID:   f.GameID,
		Away:     f.Away,
		Home:     f.Home,
		AwayOdds: f.AwayOdds,
		HomeOdds: f.HomeOdds,
		Date:     f.Created,
	}
}
