package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/WeShipHQ/panda-monopoly-indexer/logging"
	"github.com/WeShipHQ/panda-monopoly-indexer/model"
)

// PostgresStore implements Store on a pgx connection pool. Entities are
// persisted as one row per address: scalar columns for the filterable keys
// and the full entity document as JSONB.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *logging.ComponentLogger
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool *pgxpool.Pool, log *logging.ComponentLogger) *PostgresStore {
	return &PostgresStore{pool: pool, log: log}
}

// Connect opens a pool, verifies connectivity, and ensures the schema.
func Connect(ctx context.Context, dsn string, maxConns int, log *logging.ComponentLogger) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL DSN: %w", err)
	}
	cfg.MaxConns = int32(maxConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	s := NewPostgresStore(pool, log)
	if err := s.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// InitSchema creates the entity tables when they do not exist yet.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS game_states (
			address TEXT PRIMARY KEY,
			game_id BIGINT NOT NULL DEFAULT 0,
			authority TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			payload JSONB NOT NULL,
			updated_slot BIGINT NOT NULL DEFAULT 0,
			account_updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS player_states (
			address TEXT PRIMARY KEY,
			game TEXT NOT NULL DEFAULT '',
			wallet TEXT NOT NULL DEFAULT '',
			is_bankrupt BOOLEAN NOT NULL DEFAULT false,
			payload JSONB NOT NULL,
			updated_slot BIGINT NOT NULL DEFAULT 0,
			account_updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS player_states_game_idx ON player_states (game)`,
		`CREATE TABLE IF NOT EXISTS property_states (
			address TEXT PRIMARY KEY,
			game TEXT NOT NULL DEFAULT '',
			position INT NOT NULL DEFAULT 0,
			owner TEXT,
			payload JSONB NOT NULL,
			updated_slot BIGINT NOT NULL DEFAULT 0,
			account_updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS property_states_game_idx ON property_states (game)`,
		`CREATE TABLE IF NOT EXISTS trade_states (
			address TEXT PRIMARY KEY,
			game TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			payload JSONB NOT NULL,
			updated_slot BIGINT NOT NULL DEFAULT 0,
			account_updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS indexer_checkpoint (
			id INT PRIMARY KEY,
			last_slot BIGINT NOT NULL DEFAULT 0,
			last_processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS platform_configs (
			address TEXT PRIMARY KEY,
			payload JSONB NOT NULL,
			updated_slot BIGINT NOT NULL DEFAULT 0,
			account_updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	s.log.Info().Msg("schema ready")
	return nil
}

// GetGameState returns the persisted game for an address, or nil when absent.
func (s *PostgresStore) GetGameState(ctx context.Context, address string) (*model.Game, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM game_states WHERE address = $1`, address).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read game state %s: %w", address, err)
	}

	var game model.Game
	if err := json.Unmarshal(payload, &game); err != nil {
		return nil, fmt.Errorf("failed to decode game state %s: %w", address, err)
	}
	return &game, nil
}

const upsertGameSQL = `
	INSERT INTO game_states (address, game_id, authority, status, payload, updated_slot, account_updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (address) DO UPDATE SET
		game_id = EXCLUDED.game_id,
		authority = EXCLUDED.authority,
		status = EXCLUDED.status,
		payload = EXCLUDED.payload,
		updated_slot = EXCLUDED.updated_slot,
		account_updated_at = EXCLUDED.account_updated_at`

// UpsertGameState inserts or replaces one game row.
func (s *PostgresStore) UpsertGameState(ctx context.Context, game *model.Game) error {
	payload, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("failed to encode game state %s: %w", game.Address, err)
	}
	_, err = s.pool.Exec(ctx, upsertGameSQL,
		game.Address, int64(game.GameID), game.Authority, string(game.Status),
		payload, int64(game.UpdatedSlot), game.AccountUpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert game state %s: %w", game.Address, err)
	}
	return nil
}

// GetPlayerStates lists persisted players matching the filter, with the
// unpaged total.
func (s *PostgresStore) GetPlayerStates(ctx context.Context, filter PlayerFilter, page Pagination) (*PlayerPage, error) {
	page = page.Normalize()

	where := "TRUE"
	args := []interface{}{}
	if filter.Game != "" {
		args = append(args, filter.Game)
		where += fmt.Sprintf(" AND game = $%d", len(args))
	}
	if filter.Wallet != "" {
		args = append(args, filter.Wallet)
		where += fmt.Sprintf(" AND wallet = $%d", len(args))
	}
	if filter.IsBankrupt != nil {
		args = append(args, *filter.IsBankrupt)
		where += fmt.Sprintf(" AND is_bankrupt = $%d", len(args))
	}

	args = append(args, page.Limit, page.Offset)
	query := fmt.Sprintf(`
		SELECT payload, COUNT(*) OVER () AS total
		FROM player_states
		WHERE %s
		ORDER BY wallet
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list player states: %w", err)
	}
	defer rows.Close()

	result := &PlayerPage{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload, &result.Total); err != nil {
			return nil, fmt.Errorf("failed to scan player state: %w", err)
		}
		var player model.Player
		if err := json.Unmarshal(payload, &player); err != nil {
			return nil, fmt.Errorf("failed to decode player state: %w", err)
		}
		result.Data = append(result.Data, player)
	}
	return result, rows.Err()
}

const upsertPlayerSQL = `
	INSERT INTO player_states (address, game, wallet, is_bankrupt, payload, updated_slot, account_updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (address) DO UPDATE SET
		game = EXCLUDED.game,
		wallet = EXCLUDED.wallet,
		is_bankrupt = EXCLUDED.is_bankrupt,
		payload = EXCLUDED.payload,
		updated_slot = EXCLUDED.updated_slot,
		account_updated_at = EXCLUDED.account_updated_at`

// UpsertPlayerState inserts or replaces one player row.
func (s *PostgresStore) UpsertPlayerState(ctx context.Context, player *model.Player) error {
	payload, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("failed to encode player state %s: %w", player.Address, err)
	}
	_, err = s.pool.Exec(ctx, upsertPlayerSQL,
		player.Address, player.Game, player.Wallet, player.IsBankrupt,
		payload, int64(player.UpdatedSlot), player.AccountUpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert player state %s: %w", player.Address, err)
	}
	return nil
}

// BulkUpsertPlayerStates commits a batch of players in one round trip.
func (s *PostgresStore) BulkUpsertPlayerStates(ctx context.Context, players []model.Player) error {
	if len(players) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range players {
		p := &players[i]
		payload, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode player state %s: %w", p.Address, err)
		}
		batch.Queue(upsertPlayerSQL,
			p.Address, p.Game, p.Wallet, p.IsBankrupt,
			payload, int64(p.UpdatedSlot), p.AccountUpdatedAt)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range players {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("bulk player upsert failed: %w", err)
		}
	}
	return nil
}

const upsertPropertySQL = `
	INSERT INTO property_states (address, game, position, owner, payload, updated_slot, account_updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (address) DO UPDATE SET
		game = EXCLUDED.game,
		position = EXCLUDED.position,
		owner = EXCLUDED.owner,
		payload = EXCLUDED.payload,
		updated_slot = EXCLUDED.updated_slot,
		account_updated_at = EXCLUDED.account_updated_at`

// UpsertPropertyState inserts or replaces one property row.
func (s *PostgresStore) UpsertPropertyState(ctx context.Context, property *model.Property) error {
	payload, err := json.Marshal(property)
	if err != nil {
		return fmt.Errorf("failed to encode property state %s: %w", property.Address, err)
	}
	_, err = s.pool.Exec(ctx, upsertPropertySQL,
		property.Address, property.Game, property.Position, property.Owner,
		payload, int64(property.UpdatedSlot), property.AccountUpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert property state %s: %w", property.Address, err)
	}
	return nil
}

const upsertTradeSQL = `
	INSERT INTO trade_states (address, game, status, payload, updated_slot, account_updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (address) DO UPDATE SET
		game = EXCLUDED.game,
		status = EXCLUDED.status,
		payload = EXCLUDED.payload,
		updated_slot = EXCLUDED.updated_slot,
		account_updated_at = EXCLUDED.account_updated_at`

// UpsertTradeState inserts or replaces one trade row.
func (s *PostgresStore) UpsertTradeState(ctx context.Context, trade *model.Trade) error {
	payload, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("failed to encode trade state %s: %w", trade.Address, err)
	}
	_, err = s.pool.Exec(ctx, upsertTradeSQL,
		trade.Address, trade.Game, string(trade.Status),
		payload, int64(trade.UpdatedSlot), trade.AccountUpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert trade state %s: %w", trade.Address, err)
	}
	return nil
}

const upsertPlatformSQL = `
	INSERT INTO platform_configs (address, payload, updated_slot, account_updated_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (address) DO UPDATE SET
		payload = EXCLUDED.payload,
		updated_slot = EXCLUDED.updated_slot,
		account_updated_at = EXCLUDED.account_updated_at`

// UpsertPlatformConfig inserts or replaces the platform config row.
func (s *PostgresStore) UpsertPlatformConfig(ctx context.Context, cfg *model.PlatformConfig) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode platform config %s: %w", cfg.Address, err)
	}
	_, err = s.pool.Exec(ctx, upsertPlatformSQL,
		cfg.Address, payload, int64(cfg.UpdatedSlot), cfg.AccountUpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert platform config %s: %w", cfg.Address, err)
	}
	return nil
}

// LoadCheckpoint returns the last fully processed slot, or zero when the
// indexer has never run.
func (s *PostgresStore) LoadCheckpoint(ctx context.Context) (uint64, error) {
	var slot int64
	err := s.pool.QueryRow(ctx,
		`SELECT last_slot FROM indexer_checkpoint WHERE id = 1`).Scan(&slot)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return uint64(slot), nil
}

// SaveCheckpoint records the last fully processed slot.
func (s *PostgresStore) SaveCheckpoint(ctx context.Context, slot uint64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_checkpoint (id, last_slot, last_processed_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET
			last_slot = EXCLUDED.last_slot,
			last_processed_at = EXCLUDED.last_processed_at`, int64(slot))
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Stats returns pool statistics for the health endpoint.
func (s *PostgresStore) Stats() map[string]interface{} {
	st := s.pool.Stat()
	return map[string]interface{}{
		"total_conns":    st.TotalConns(),
		"idle_conns":     st.IdleConns(),
		"acquired_conns": st.AcquiredConns(),
		"max_conns":      st.MaxConns(),
		"acquire_count":  st.AcquireCount(),
		"acquire_wait":   st.AcquireDuration().String(),
	}
}
