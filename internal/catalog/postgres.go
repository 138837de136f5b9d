package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/career-sequence-game/internal/config"
	"github.com/career-sequence-game/internal/domain"
)

// Postgres provides PostgreSQL-backed catalog access. It also carries the
// write paths used outside request handling: raw transfer ingestion and the
// wholesale sequence rewrite performed by the builder job.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a new PostgreSQL catalog
func NewPostgres(cfg *config.PostgresConfig, logger *slog.Logger) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Postgres{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (p *Postgres) Close() {
	p.pool.Close()
}

// RunMigrations executes database migrations
func (p *Postgres) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS players (
			player_id VARCHAR(64) PRIMARY KEY,
			player_name VARCHAR(255) NOT NULL,
			market_value NUMERIC DEFAULT 0,
			image_url TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS transfer_details (
			id BIGSERIAL PRIMARY KEY,
			player_id VARCHAR(64) NOT NULL,
			season VARCHAR(16),
			from_club VARCHAR(255),
			to_club VARCHAR(255) NOT NULL,
			to_club_logo TEXT,
			transfer_date TIMESTAMP,
			loan BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sequence_analysis (
			player_id VARCHAR(64) PRIMARY KEY,
			player_name VARCHAR(255) NOT NULL,
			player_image TEXT,
			market_value NUMERIC DEFAULT 0,
			market_value_rank INT NOT NULL,
			num_visits INT NOT NULL,
			difficulty VARCHAR(16) NOT NULL,
			sequence_key TEXT NOT NULL,
			shared_by INT NOT NULL DEFAULT 1,
			visits JSONB NOT NULL,
			shared_with JSONB,
			built_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transfer_details_player ON transfer_details(player_id, transfer_date)`,
		`CREATE INDEX IF NOT EXISTS idx_sequence_analysis_difficulty ON sequence_analysis(difficulty, market_value_rank)`,
		`CREATE INDEX IF NOT EXISTS idx_sequence_analysis_key ON sequence_analysis(sequence_key)`,
	}

	for _, migration := range migrations {
		if _, err := p.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	p.logger.Info("database migrations completed")
	return nil
}

const sequenceColumns = `
	player_id, player_name, player_image, market_value, market_value_rank,
	difficulty, sequence_key, shared_by, visits, shared_with
`

func scanSequence(row pgx.Row) (*domain.CareerSequence, error) {
	var seq domain.CareerSequence
	var visitsJSON, sharedJSON []byte
	err := row.Scan(
		&seq.PlayerID,
		&seq.PlayerName,
		&seq.PlayerImage,
		&seq.MarketValue,
		&seq.MarketValueRank,
		&seq.Difficulty,
		&seq.SequenceKey,
		&seq.SharedBy,
		&visitsJSON,
		&sharedJSON,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(visitsJSON, &seq.Visits); err != nil {
		return nil, fmt.Errorf("unmarshaling visits: %w", err)
	}
	if len(sharedJSON) > 0 {
		if err := json.Unmarshal(sharedJSON, &seq.SharedWith); err != nil {
			return nil, fmt.Errorf("unmarshaling shared references: %w", err)
		}
	}
	return &seq, nil
}

// ListByDifficulty returns every sequence in the tier within the top-N
// market-value pool
func (p *Postgres) ListByDifficulty(ctx context.Context, tier domain.DifficultyTier, topN int) ([]domain.CareerSequence, error) {
	query := `SELECT ` + sequenceColumns + `
		FROM sequence_analysis
		WHERE difficulty = $1 AND ($2 <= 0 OR market_value_rank <= $2)
		ORDER BY market_value_rank`

	rows, err := p.pool.Query(ctx, query, string(tier), topN)
	if err != nil {
		return nil, fmt.Errorf("listing sequences: %w", err)
	}
	defer rows.Close()

	var seqs []domain.CareerSequence
	for rows.Next() {
		seq, err := scanSequence(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sequence: %w", err)
		}
		seqs = append(seqs, *seq)
	}
	return seqs, rows.Err()
}

// GetSequence returns one player's sequence
func (p *Postgres) GetSequence(ctx context.Context, playerID string) (*domain.CareerSequence, error) {
	query := `SELECT ` + sequenceColumns + ` FROM sequence_analysis WHERE player_id = $1`

	seq, err := scanSequence(p.pool.QueryRow(ctx, query, playerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("getting sequence: %w", err)
	}
	return seq, nil
}

// ListAll returns every built sequence
func (p *Postgres) ListAll(ctx context.Context) ([]domain.CareerSequence, error) {
	query := `SELECT ` + sequenceColumns + ` FROM sequence_analysis ORDER BY player_id`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing sequences: %w", err)
	}
	defer rows.Close()

	var seqs []domain.CareerSequence
	for rows.Next() {
		seq, err := scanSequence(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sequence: %w", err)
		}
		seqs = append(seqs, *seq)
	}
	return seqs, rows.Err()
}

// Stats summarizes the question pool per difficulty tier
func (p *Postgres) Stats(ctx context.Context) (*domain.GameStats, error) {
	query := `
		SELECT difficulty, COUNT(*),
		       ROUND(AVG(num_visits), 2), MIN(num_visits), MAX(num_visits)
		FROM sequence_analysis
		GROUP BY difficulty
		ORDER BY MIN(num_visits)
	`
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("getting stats: %w", err)
	}
	defer rows.Close()

	stats := &domain.GameStats{}
	for rows.Next() {
		var ds domain.DifficultyStats
		if err := rows.Scan(&ds.Difficulty, &ds.Count, &ds.AvgVisits, &ds.MinVisits, &ds.MaxVisits); err != nil {
			return nil, fmt.Errorf("scanning stats: %w", err)
		}
		stats.ByDifficulty = append(stats.ByDifficulty, ds)
		stats.TotalQuestions += ds.Count
	}
	return stats, rows.Err()
}

// ListPlayers returns all scraped players, used as sequence-builder input
func (p *Postgres) ListPlayers(ctx context.Context) ([]domain.PlayerRecord, error) {
	query := `SELECT player_id, player_name, market_value, COALESCE(image_url, '') FROM players ORDER BY player_id`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	defer rows.Close()

	var players []domain.PlayerRecord
	for rows.Next() {
		var pl domain.PlayerRecord
		if err := rows.Scan(&pl.PlayerID, &pl.Name, &pl.MarketValue, &pl.ImageURL); err != nil {
			return nil, fmt.Errorf("scanning player: %w", err)
		}
		players = append(players, pl)
	}
	return players, rows.Err()
}

// ListTransfers returns one player's raw transfer history, oldest first
func (p *Postgres) ListTransfers(ctx context.Context, playerID string) ([]domain.TransferRecord, error) {
	query := `
		SELECT player_id, COALESCE(season, ''), COALESCE(from_club, ''), to_club,
		       COALESCE(to_club_logo, ''), COALESCE(transfer_date, 'epoch'::timestamp), loan
		FROM transfer_details
		WHERE player_id = $1
		ORDER BY transfer_date, id
	`
	rows, err := p.pool.Query(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	defer rows.Close()

	var records []domain.TransferRecord
	for rows.Next() {
		var r domain.TransferRecord
		if err := rows.Scan(&r.PlayerID, &r.Season, &r.FromClub, &r.ToClub, &r.ToClubLogo, &r.TransferDate, &r.Loan); err != nil {
			return nil, fmt.Errorf("scanning transfer: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// InsertTransfers appends a batch of raw transfer records, used by the
// Kafka ingest consumer
func (p *Postgres) InsertTransfers(ctx context.Context, records []domain.TransferRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO transfer_details (player_id, season, from_club, to_club, to_club_logo, transfer_date, loan)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, r := range records {
		batch.Queue(query, r.PlayerID, r.Season, r.FromClub, r.ToClub, r.ToClubLogo, r.TransferDate, r.Loan)
	}

	br := p.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("inserting transfers: %w", err)
		}
	}
	return nil
}

// ReplaceSequences rewrites the whole sequence_analysis table in one
// transaction. Sequences are rebuilt wholesale on every builder run,
// never patched in place.
func (p *Postgres) ReplaceSequences(ctx context.Context, seqs []*domain.CareerSequence) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM sequence_analysis`); err != nil {
		return fmt.Errorf("clearing sequences: %w", err)
	}

	query := `
		INSERT INTO sequence_analysis
			(player_id, player_name, player_image, market_value, market_value_rank,
			 num_visits, difficulty, sequence_key, shared_by, visits, shared_with, built_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	now := time.Now()
	batch := &pgx.Batch{}
	for _, s := range seqs {
		visitsJSON, err := json.Marshal(s.Visits)
		if err != nil {
			return fmt.Errorf("marshaling visits for %s: %w", s.PlayerID, err)
		}
		var sharedJSON []byte
		if len(s.SharedWith) > 0 {
			sharedJSON, err = json.Marshal(s.SharedWith)
			if err != nil {
				return fmt.Errorf("marshaling shared references for %s: %w", s.PlayerID, err)
			}
		}
		batch.Queue(query,
			s.PlayerID, s.PlayerName, s.PlayerImage, s.MarketValue, s.MarketValueRank,
			len(s.Visits), string(s.Difficulty), s.SequenceKey, s.SharedBy, visitsJSON, sharedJSON, now,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range seqs {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("inserting sequences: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("closing batch: %w", err)
	}

	return tx.Commit(ctx)
}
