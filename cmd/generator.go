package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tomashoffer/possible-cheaters/internal/db"
)

// GenerateEventFiles writes numEvents matching client/server event pairs
// timestamped on date to the two export files, replacing their contents.
func GenerateEventFiles(date time.Time, numEvents int, clientPath, serverPath string) error {
	clients := make([][]string, 0, numEvents+1)
	servers := make([][]string, 0, numEvents+1)
	clients = append(clients, []string{"timestamp", "error_id", "player_id", "description"})
	servers = append(servers, []string{"timestamp", "event_id", "error_id", "description"})

	for range numEvents {
		c, s := db.GenerateRandomEventPair(date)
		clients = append(clients, []string{
			strconv.FormatInt(c.Timestamp, 10), c.ErrorId, strconv.FormatInt(c.PlayerId, 10), c.Description,
		})
		servers = append(servers, []string{
			strconv.FormatInt(s.Timestamp, 10), strconv.FormatInt(s.EventId, 10), s.ErrorId, s.Description,
		})
	}

	if err := writeCSV(clientPath, clients); err != nil {
		return err
	}
	return writeCSV(serverPath, servers)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
