package internal

import (
	"github.com/tomashoffer/possible-cheaters/internal/db"
)

// JoinStats counts what happened to the joined pairs.
type JoinStats struct {
	Joined int
	Banned int
}

// Join inner-joins client and server events on an exact error id match.
// Every client/server combination sharing an error id yields one record,
// so duplicate error ids multiply rather than collapse. Output follows the
// client order, then the server order within each error id.
func Join(clientEvents []db.ClientEvent, serverEvents []db.ServerEvent) []db.JoinedRecord {
	if len(clientEvents) == 0 || len(serverEvents) == 0 {
		return nil
	}

	byErrorId := make(map[string][]db.ServerEvent, len(serverEvents))
	for _, s := range serverEvents {
		byErrorId[s.ErrorId] = append(byErrorId[s.ErrorId], s)
	}

	var joined []db.JoinedRecord
	for _, c := range clientEvents {
		for _, s := range byErrorId[c.ErrorId] {
			joined = append(joined, db.JoinedRecord{
				ErrorId:           c.ErrorId,
				PlayerId:          c.PlayerId,
				EventId:           s.EventId,
				TimestampClient:   c.Timestamp,
				TimestampServer:   s.Timestamp,
				DescriptionClient: c.Description,
				DescriptionServer: s.Description,
			})
		}
	}
	return joined
}

// JoinAndFilter joins the events, drops players in banned and projects the
// rest onto the possible_cheaters row shape. It has no side effects.
func JoinAndFilter(clientEvents []db.ClientEvent, serverEvents []db.ServerEvent, banned db.PlayerSet) ([]db.PossibleCheaterRecord, JoinStats) {
	joined := Join(clientEvents, serverEvents)
	stats := JoinStats{Joined: len(joined)}

	var records []db.PossibleCheaterRecord
	for _, j := range joined {
		if banned.Contains(j.PlayerId) {
			stats.Banned++
			continue
		}
		records = append(records, db.PossibleCheaterRecord{
			Timestamp:  j.TimestampServer,
			PlayerId:   j.PlayerId,
			EventId:    j.EventId,
			ErrorId:    j.ErrorId,
			JsonServer: j.DescriptionServer,
			JsonClient: j.DescriptionClient,
		})
	}
	return records, stats
}
