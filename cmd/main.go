package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tomashoffer/possible-cheaters/internal"
	"github.com/tomashoffer/possible-cheaters/internal/cache"
	"github.com/tomashoffer/possible-cheaters/internal/config"
	"github.com/tomashoffer/possible-cheaters/internal/db"
	"github.com/tomashoffer/possible-cheaters/internal/logger"
	"github.com/tomashoffer/possible-cheaters/internal/metrics"
	"github.com/tomashoffer/possible-cheaters/internal/tools"
)

const dateLayout = "2006-01-02"

func main() {
	dateFlag := flag.String("date", "", "target date as YYYY-MM-DD; prompted for on stdin when empty")
	generate := flag.Int("generate", 0, "write N sample event pairs for the date to the input files and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logger.NewLogger(logger.ParseLevel(cfg.Log.Level), cfg.Log.Format)
	slog.SetDefault(log)

	loc, err := cfg.Location()
	if err != nil {
		log.Error("Invalid timezone", "error", err)
		os.Exit(1)
	}

	raw := *dateFlag
	if raw == "" {
		raw, err = promptDate(os.Stdin, os.Stdout)
		if err != nil {
			log.Error("Failed to read date", "error", err)
			os.Exit(1)
		}
	}
	date, err := parseRunDate(raw, loc)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if *generate > 0 {
		if err := GenerateEventFiles(date, *generate, cfg.Input.ClientFile, cfg.Input.ServerFile); err != nil {
			log.Error("Failed to generate events", "error", err)
			os.Exit(1)
		}
		log.Info("Generated events", "count", *generate, "client", cfg.Input.ClientFile, "server", cfg.Input.ServerFile)
		return
	}

	if !fileExists(cfg.Input.ClientFile) || !fileExists(cfg.Input.ServerFile) {
		fmt.Println("Required input files are missing.")
		log.Error("Missing input files", "client", cfg.Input.ClientFile, "server", cfg.Input.ServerFile)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := run(ctx, cfg, date, loc, log); err != nil {
		fmt.Println(err)
		log.Error("Run failed", "error", err, "kind", failureKind(err))
		stop()
		os.Exit(1)
	}

	fmt.Println("Data loaded successfully.")
	memory, err := tools.MemoryUsageMB()
	if err != nil {
		log.Warn("Failed to read memory usage", "error", err)
		return
	}
	fmt.Printf("Memory usage: %.2f MB\n", memory)
}

func run(ctx context.Context, cfg *config.Config, date time.Time, loc *time.Location, log *slog.Logger) (internal.RunResult, error) {
	store, err := db.Open(ctx, db.Driver(cfg.Store.Driver), cfg.Store.DSN)
	if err != nil {
		return internal.RunResult{}, err
	}
	defer store.Close()

	if err := tools.EnsureSchema(ctx, store); err != nil {
		return internal.RunResult{}, err
	}

	banStore := store
	if cfg.SeparateBanStore() {
		banStore, err = db.Open(ctx, db.Driver(cfg.BanStore.Driver), cfg.BanStore.DSN)
		if err != nil {
			return internal.RunResult{}, fmt.Errorf("failed to open ban store: %w", err)
		}
		defer banStore.Close()
	}

	bans := banStore.BanRepository()
	banDriver, banDSN := cfg.Store.Driver, cfg.Store.DSN
	if cfg.SeparateBanStore() {
		banDriver, banDSN = cfg.BanStore.Driver, cfg.BanStore.DSN
	}
	if cfg.Cache.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			log.Warn("Ban cache disabled", "error", err)
		} else {
			defer client.Close()
			bans = cache.NewCachedBanRepository(bans, client, cache.RegistryNamespace(banDriver, banDSN), cfg.Cache.TTL, log)
		}
	}

	m := metrics.New()
	svc := internal.NewPipelineService(internal.NewRecordLoader(loc), bans, store.CheaterRepository(), m, log)
	result, err := svc.Run(ctx, date, cfg.Input.ClientFile, cfg.Input.ServerFile)

	if cfg.Metrics.PushgatewayURL != "" {
		if perr := m.Push(cfg.Metrics.PushgatewayURL, cfg.Metrics.JobName, date.Format(dateLayout)); perr != nil {
			log.Warn("Failed to push metrics", "error", perr)
		}
	}
	return result, err
}

func promptDate(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprintln(out, `Enter a date as "Year-Month-Day", for example 2021-03-15`)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func parseRunDate(raw string, loc *time.Location) (time.Time, error) {
	date, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return date, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, db.ErrSourceUnavailable):
		return "source_unavailable"
	case errors.Is(err, db.ErrSchemaMismatch):
		return "schema_mismatch"
	case errors.Is(err, db.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, db.ErrWriteFailure):
		return "write_failure"
	}
	return "unknown"
}
