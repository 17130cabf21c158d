// Package store is the persistence port: read/write access to indexed game
// entities in PostgreSQL, keyed by ledger address. All writes are
// insert-or-replace upserts so at-least-once job redelivery is safe.
package store

import (
	"context"

	"github.com/WeShipHQ/panda-monopoly-indexer/model"
)

// PlayerFilter narrows GetPlayerStates results. Zero values match all.
type PlayerFilter struct {
	Game       string
	Wallet     string
	IsBankrupt *bool
}

// Pagination bounds a list query.
type Pagination struct {
	Limit  int
	Offset int
}

// Normalize clamps pagination parameters to sane bounds.
func (p Pagination) Normalize() Pagination {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > 500 {
		p.Limit = 500
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// PlayerPage is one page of player states plus the unpaged total.
type PlayerPage struct {
	Data  []model.Player
	Total int64
}

// Store is the persistence port consumed by the reconciliation writer.
type Store interface {
	GetGameState(ctx context.Context, address string) (*model.Game, error)
	UpsertGameState(ctx context.Context, game *model.Game) error

	GetPlayerStates(ctx context.Context, filter PlayerFilter, page Pagination) (*PlayerPage, error)
	UpsertPlayerState(ctx context.Context, player *model.Player) error
	BulkUpsertPlayerStates(ctx context.Context, players []model.Player) error

	UpsertPropertyState(ctx context.Context, property *model.Property) error
	UpsertTradeState(ctx context.Context, trade *model.Trade) error
	UpsertPlatformConfig(ctx context.Context, cfg *model.PlatformConfig) error
}
