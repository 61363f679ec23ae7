package internal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tomashoffer/possible-cheaters/internal/db"
	"github.com/tomashoffer/possible-cheaters/internal/metrics"
)

// RunResult summarises one pipeline run.
type RunResult struct {
	RunId         string
	Date          time.Time
	ClientEvents  int
	ServerEvents  int
	BannedPlayers int
	Joined        int
	Banned        int
	Written       int
	Duration      time.Duration
}

// PipelineService runs load, ban lookup, join/filter and append strictly in
// sequence. The first failing stage aborts the run; nothing is retried.
type PipelineService struct {
	loader  *RecordLoader
	bans    db.BanRepository
	sink    db.PossibleCheaterRepository
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewPipelineService(loader *RecordLoader, bans db.BanRepository, sink db.PossibleCheaterRepository, m *metrics.Metrics, log *slog.Logger) *PipelineService {
	if m == nil {
		m = metrics.New()
	}
	if log == nil {
		log = slog.Default()
	}
	return &PipelineService{
		loader:  loader,
		bans:    bans,
		sink:    sink,
		metrics: m,
		log:     log,
	}
}

// Run processes the exports for date. Rows already appended by a failing
// append call are not rolled back beyond the store's own transaction, and
// running the same date twice appends the same rows twice.
func (s *PipelineService) Run(ctx context.Context, date time.Time, clientPath, serverPath string) (RunResult, error) {
	start := time.Now()
	result := RunResult{RunId: uuid.New().String(), Date: date}
	log := s.log.With("run_id", result.RunId, "date", date.Format("2006-01-02"))

	clientEvents, err := s.loader.LoadClientEvents(date, clientPath)
	if err != nil {
		return result, fmt.Errorf("failed to load client events: %w", err)
	}
	result.ClientEvents = len(clientEvents)
	s.metrics.EventsLoaded.WithLabelValues("client").Add(float64(len(clientEvents)))

	serverEvents, err := s.loader.LoadServerEvents(date, serverPath)
	if err != nil {
		return result, fmt.Errorf("failed to load server events: %w", err)
	}
	result.ServerEvents = len(serverEvents)
	s.metrics.EventsLoaded.WithLabelValues("server").Add(float64(len(serverEvents)))
	log.Debug("Loaded events", "client", len(clientEvents), "server", len(serverEvents))

	banned, err := s.bans.BannedBefore(ctx, date)
	if err != nil {
		return result, fmt.Errorf("failed to get banned players: %w", err)
	}
	result.BannedPlayers = len(banned)
	s.metrics.BannedPlayers.Set(float64(len(banned)))

	records, stats := JoinAndFilter(clientEvents, serverEvents, banned)
	result.Joined = stats.Joined
	result.Banned = stats.Banned
	s.metrics.RecordsJoined.Add(float64(stats.Joined))
	s.metrics.RecordsBanned.Add(float64(stats.Banned))
	log.Debug("Joined events", "joined", stats.Joined, "banned", stats.Banned)

	written, err := s.sink.AppendRecords(ctx, records)
	if err != nil {
		return result, fmt.Errorf("failed to append possible cheaters: %w", err)
	}
	result.Written = written
	result.Duration = time.Since(start)
	s.metrics.RecordsWritten.Add(float64(written))
	s.metrics.RunDuration.Set(result.Duration.Seconds())
	s.metrics.LastSuccessTime.SetToCurrentTime()

	log.Info("Run complete",
		"client_events", result.ClientEvents,
		"server_events", result.ServerEvents,
		"joined", result.Joined,
		"banned", result.Banned,
		"written", result.Written,
		"duration", result.Duration)
	return result, nil
}
