package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the Prometheus metrics of one run.
type Metrics struct {
	registry *prometheus.Registry

	EventsLoaded    *prometheus.CounterVec
	RecordsJoined   prometheus.Counter
	RecordsBanned   prometheus.Counter
	RecordsWritten  prometheus.Counter
	BannedPlayers   prometheus.Gauge
	RunDuration     prometheus.Gauge
	LastSuccessTime prometheus.Gauge
}

// New creates the run metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		EventsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "possible_cheaters_events_loaded_total",
			Help: "Events kept by the loader for the target date, by source",
		}, []string{"source"}),
		RecordsJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "possible_cheaters_records_joined_total",
			Help: "Client/server pairs sharing an error id",
		}),
		RecordsBanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "possible_cheaters_records_banned_total",
			Help: "Joined records dropped because the player was already banned",
		}),
		RecordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "possible_cheaters_records_written_total",
			Help: "Rows appended to the possible_cheaters table",
		}),
		BannedPlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "possible_cheaters_banned_players",
			Help: "Players banned before the target date",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "possible_cheaters_run_duration_seconds",
			Help: "Duration of the last run",
		}),
		LastSuccessTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "possible_cheaters_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
	}
	reg.MustRegister(
		m.EventsLoaded,
		m.RecordsJoined,
		m.RecordsBanned,
		m.RecordsWritten,
		m.BannedPlayers,
		m.RunDuration,
		m.LastSuccessTime,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Push sends the collected metrics to a Pushgateway, grouped by the run date.
func (m *Metrics) Push(url, job, date string) error {
	err := push.New(url, job).
		Gatherer(m.registry).
		Grouping("date", date).
		Push()
	if err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
