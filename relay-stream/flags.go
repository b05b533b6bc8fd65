package relaystream

import (
	"time"

	relaycli "github.com/oddsrelay/oddsrelay/relay-cli"
	"github.com/urfave/cli/v2"
)

var StreamOpts struct {
	StreamName  string
	Replay      bool
	ReplayFrom  cli.Timestamp
	TableStream bool
}

var StreamNameFlag = relaycli.StringFlag("stream-name", "The kinesis stream name to read change records from", &StreamOpts.StreamName)
var ReplayFlag = relaycli.BoolFlag("replay", "Whether to replay from the beginning, or start from the next message", &StreamOpts.Replay)
var TableStreamFlag = relaycli.BoolFlag("table-stream", "Read the table's own DynamoDB stream instead of the kinesis relay", &StreamOpts.TableStream)

var ReplayFromFlag = cli.TimestampFlag{
	Name:        "replay-from",
	Usage:       "Timestamp to replay from",
	Value:       cli.NewTimestamp(time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)),
	Layout:      "2006-01-02 15:04:05",
	EnvVars:     []string{"REPLAY_FROM"},
	Destination: &StreamOpts.ReplayFrom,
}

var StreamFlags = []cli.Flag{
	StreamNameFlag,
	ReplayFlag,
	&ReplayFromFlag,
	TableStreamFlag,
}
