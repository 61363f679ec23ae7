package internal

import (
	"fmt"
	"reflect"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tomashoffer/possible-cheaters/internal/db"
)

// buildEvents turns small generated keys into events: each key picks an
// error id out of a handful, so ties and misses are both common.
func buildEvents(clientKeys, serverKeys []int) ([]db.ClientEvent, []db.ServerEvent) {
	clients := make([]db.ClientEvent, len(clientKeys))
	for i, k := range clientKeys {
		clients[i] = db.ClientEvent{
			Timestamp:   dayStart + int64(i),
			ErrorId:     fmt.Sprintf("E%d", k),
			PlayerId:    int64(i % 6),
			Description: fmt.Sprintf("client-%d", i),
		}
	}
	servers := make([]db.ServerEvent, len(serverKeys))
	for i, k := range serverKeys {
		servers[i] = db.ServerEvent{
			Timestamp:   dayStart + 1000 + int64(i),
			EventId:     int64(100 + i),
			ErrorId:     fmt.Sprintf("E%d", k),
			Description: fmt.Sprintf("server-%d", i),
		}
	}
	return clients, servers
}

func playerSet(ids ...int64) db.PlayerSet {
	set := make(db.PlayerSet)
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

var _ = Describe("Join-Filter Engine", func() {
	client := db.ClientEvent{Timestamp: dayStart + 10, ErrorId: "E", PlayerId: 7, Description: "c"}
	server := db.ServerEvent{Timestamp: dayStart + 20, EventId: 42, ErrorId: "E", Description: "s"}

	It("should project a joined pair onto the output row", func() {
		records, stats := JoinAndFilter([]db.ClientEvent{client}, []db.ServerEvent{server}, playerSet())
		Expect(records).To(Equal([]db.PossibleCheaterRecord{{
			Timestamp:  dayStart + 20,
			PlayerId:   7,
			EventId:    42,
			ErrorId:    "E",
			JsonServer: "s",
			JsonClient: "c",
		}}))
		Expect(stats).To(Equal(JoinStats{Joined: 1, Banned: 0}))
	})

	It("should emit every pair for a duplicated error id", func() {
		clients := []db.ClientEvent{
			{Timestamp: dayStart, ErrorId: "E1", PlayerId: 1, Description: "a"},
			{Timestamp: dayStart + 1, ErrorId: "E1", PlayerId: 2, Description: "b"},
		}
		servers := []db.ServerEvent{
			{Timestamp: dayStart + 5, EventId: 9, ErrorId: "E1", Description: "s"},
		}

		records, stats := JoinAndFilter(clients, servers, playerSet())
		Expect(records).To(HaveLen(2))
		Expect(stats.Joined).To(Equal(2))
		Expect(records[0].PlayerId).To(Equal(int64(1)))
		Expect(records[1].PlayerId).To(Equal(int64(2)))
		Expect(records[0].EventId).To(Equal(int64(9)))
		Expect(records[1].EventId).To(Equal(int64(9)))
	})

	It("should emit the cartesian product of ties on both sides", func() {
		clients, servers := buildEvents([]int{1, 1, 1}, []int{1, 1})
		records, _ := JoinAndFilter(clients, servers, playerSet())
		Expect(records).To(HaveLen(6))
	})

	It("should drop banned players", func() {
		records, stats := JoinAndFilter([]db.ClientEvent{client}, []db.ServerEvent{server}, playerSet(7))
		Expect(records).To(BeEmpty())
		Expect(stats).To(Equal(JoinStats{Joined: 1, Banned: 1}))
	})

	It("should return nothing when either side is empty", func() {
		records, stats := JoinAndFilter(nil, []db.ServerEvent{server}, playerSet())
		Expect(records).To(BeEmpty())
		Expect(stats.Joined).To(BeZero())

		records, _ = JoinAndFilter([]db.ClientEvent{client}, nil, playerSet())
		Expect(records).To(BeEmpty())
	})

	It("should return nothing when error ids are disjoint", func() {
		clients, servers := buildEvents([]int{1, 2}, []int{3, 4})
		records, _ := JoinAndFilter(clients, servers, playerSet())
		Expect(records).To(BeEmpty())
	})

	It("should match error ids exactly", func() {
		servers := []db.ServerEvent{
			{EventId: 1, ErrorId: "e"},
			{EventId: 2, ErrorId: "E "},
			{EventId: 3, ErrorId: " E"},
		}
		records, _ := JoinAndFilter([]db.ClientEvent{client}, servers, playerSet())
		Expect(records).To(BeEmpty())
	})

	It("should hold its properties for arbitrary inputs", func() {
		properties := gopter.NewProperties(gopter.DefaultTestParameters())

		keys := gen.SliceOf(gen.IntRange(0, 4))
		bannedIds := gen.SliceOf(gen.Int64Range(0, 7))

		properties.Property("same inputs give the same output", prop.ForAll(
			func(clientKeys, serverKeys []int, banned []int64) bool {
				clients, servers := buildEvents(clientKeys, serverKeys)
				first, _ := JoinAndFilter(clients, servers, playerSet(banned...))
				second, _ := JoinAndFilter(clients, servers, playerSet(banned...))
				return reflect.DeepEqual(first, second)
			},
			keys, keys, bannedIds,
		))

		properties.Property("banned players never appear, in any ban order", prop.ForAll(
			func(clientKeys, serverKeys []int, banned []int64) bool {
				clients, servers := buildEvents(clientKeys, serverKeys)
				reversed := make([]int64, len(banned))
				for i, id := range banned {
					reversed[len(banned)-1-i] = id
				}

				records, _ := JoinAndFilter(clients, servers, playerSet(banned...))
				again, _ := JoinAndFilter(clients, servers, playerSet(reversed...))
				set := playerSet(banned...)
				for _, r := range records {
					if set.Contains(r.PlayerId) {
						return false
					}
				}
				return reflect.DeepEqual(records, again)
			},
			keys, keys, bannedIds,
		))

		properties.Property("output size equals the unbanned pair count", prop.ForAll(
			func(clientKeys, serverKeys []int, banned []int64) bool {
				clients, servers := buildEvents(clientKeys, serverKeys)
				set := playerSet(banned...)

				serverCount := map[string]int{}
				for _, s := range servers {
					serverCount[s.ErrorId]++
				}
				want, wantJoined := 0, 0
				for _, c := range clients {
					wantJoined += serverCount[c.ErrorId]
					if !set.Contains(c.PlayerId) {
						want += serverCount[c.ErrorId]
					}
				}

				records, stats := JoinAndFilter(clients, servers, set)
				return len(records) == want &&
					stats.Joined == wantJoined &&
					stats.Banned == wantJoined-want
			},
			keys, keys, bannedIds,
		))

		properties.Property("every record comes from a pair sharing its error id", prop.ForAll(
			func(clientKeys, serverKeys []int) bool {
				clients, servers := buildEvents(clientKeys, serverKeys)
				records, _ := JoinAndFilter(clients, servers, playerSet())
				for _, r := range records {
					found := false
					for _, c := range clients {
						for _, s := range servers {
							if c.ErrorId == r.ErrorId && s.ErrorId == r.ErrorId &&
								c.Description == r.JsonClient && s.Description == r.JsonServer &&
								s.Timestamp == r.Timestamp && s.EventId == r.EventId && c.PlayerId == r.PlayerId {
								found = true
							}
						}
					}
					if !found {
						return false
					}
				}
				return true
			},
			keys, keys,
		))

		Expect(properties.Run(gopter.ConsoleReporter(false))).To(BeTrue())
	})
})
