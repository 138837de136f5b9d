// Command seqbuilder rebuilds the career-sequence catalog from the raw
// transfer records. It is run after every transfer-data import; the game
// server only ever reads its output.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/career-sequence-game/internal/catalog"
	"github.com/career-sequence-game/internal/config"
	"github.com/career-sequence-game/internal/domain"
	"github.com/career-sequence-game/internal/sequence"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	workers := flag.Int("workers", 8, "Number of concurrent build workers")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	ctx := context.Background()

	logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	cat, err := catalog.NewPostgres(&cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer cat.Close()

	if err := cat.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	startTime := time.Now()

	players, err := cat.ListPlayers(ctx)
	if err != nil {
		logger.Error("failed to list players", "error", err)
		os.Exit(1)
	}
	logger.Info("building sequences", "players", len(players), "workers", *workers)

	type result struct {
		seq *domain.CareerSequence
		err error
	}

	jobs := make(chan domain.PlayerRecord)
	results := make(chan result)

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for player := range jobs {
				records, err := cat.ListTransfers(ctx, player.PlayerID)
				if err != nil {
					results <- result{err: err}
					continue
				}
				results <- result{seq: sequence.Build(player, records)}
			}
		}()
	}

	go func() {
		for _, player := range players {
			jobs <- player
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	var seqs []*domain.CareerSequence
	skipped := 0
	failed := 0
	for r := range results {
		switch {
		case r.err != nil:
			logger.Warn("failed to build sequence", "error", r.err)
			failed++
		case r.seq == nil:
			// Too few senior-club visits to make a question
			skipped++
		default:
			seqs = append(seqs, r.seq)
		}
	}

	sequence.GroupSharedPaths(seqs)
	sequence.RankByMarketValue(seqs)

	if err := cat.ReplaceSequences(ctx, seqs); err != nil {
		logger.Error("failed to replace sequences", "error", err)
		os.Exit(1)
	}

	logger.Info("catalog rebuilt",
		"duration", time.Since(startTime),
		"sequences", len(seqs),
		"skipped", skipped,
		"failed", failed,
	)
}
