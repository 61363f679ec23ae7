package db

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// ClientEvent is one row of the client-side error export.
type ClientEvent struct {
	Timestamp   int64  `db:"timestamp"`
	ErrorId     string `db:"error_id"`
	PlayerId    int64  `db:"player_id"`
	Description string `db:"description"`
}

// ServerEvent is one row of the server-side event export.
type ServerEvent struct {
	Timestamp   int64  `db:"timestamp"`
	EventId     int64  `db:"event_id"`
	ErrorId     string `db:"error_id"`
	Description string `db:"description"`
}

// JoinedRecord pairs a client and a server event sharing an error id.
type JoinedRecord struct {
	ErrorId           string
	PlayerId          int64
	EventId           int64
	TimestampClient   int64
	TimestampServer   int64
	DescriptionClient string
	DescriptionServer string
}

type BanRecord struct {
	PlayerId int64     `db:"player_id"`
	BanTime  time.Time `db:"ban_time"`
}

// PossibleCheaterRecord is a row of the possible_cheaters table.
// Field order matches the table's column order.
type PossibleCheaterRecord struct {
	Timestamp  int64  `db:"timestamp"`
	PlayerId   int64  `db:"player_id"`
	EventId    int64  `db:"event_id"`
	ErrorId    string `db:"error_id"`
	JsonServer string `db:"json_server"`
	JsonClient string `db:"json_client"`
}

// PossibleCheaterColumns lists the possible_cheaters columns in table order.
var PossibleCheaterColumns = []string{"timestamp", "player_id", "event_id", "error_id", "json_server", "json_client"}

func (r PossibleCheaterRecord) Values() []any {
	return []any{r.Timestamp, r.PlayerId, r.EventId, r.ErrorId, r.JsonServer, r.JsonClient}
}

// GenerateRandomEventPair returns a client and a server event that share a
// fresh error id, both timestamped within the given day.
func GenerateRandomEventPair(day time.Time) (ClientEvent, ServerEvent) {
	errorId := uuid.New().String()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location()).Unix()
	clientTs := start + rand.Int63n(86400)
	serverTs := start + rand.Int63n(86400)

	client := ClientEvent{
		Timestamp:   clientTs,
		ErrorId:     errorId,
		PlayerId:    rand.Int63n(1000),
		Description: fmt.Sprintf(`{"code":%d,"source":"client"}`, rand.Intn(500)),
	}
	server := ServerEvent{
		Timestamp:   serverTs,
		EventId:     rand.Int63n(100_000),
		ErrorId:     errorId,
		Description: fmt.Sprintf(`{"code":%d,"source":"server"}`, rand.Intn(500)),
	}
	return client, server
}
