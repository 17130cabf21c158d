package writer

import (
	"context"
	"fmt"
	"sort"

	"github.com/WeShipHQ/panda-monopoly-indexer/ledger"
	"github.com/WeShipHQ/panda-monopoly-indexer/metrics"
	"github.com/WeShipHQ/panda-monopoly-indexer/model"
	"github.com/WeShipHQ/panda-monopoly-indexer/store"
)

// syncPlayers refreshes every player of a game after a game-level commit.
// Snapshots cached in the enrichment context are reused; missing ones are
// batch-fetched. Records are committed as one batch upsert, degrading to
// per-item commits on batch failure so partial progress survives partial
// failure.
func (w *Writer) syncPlayers(ctx context.Context, gameAddress string, wallets []string, ectx *model.EnrichmentContext) error {
	if len(wallets) == 0 {
		return nil
	}

	page, err := w.store.GetPlayerStates(ctx, store.PlayerFilter{Game: gameAddress}, store.Pagination{Limit: 500})
	if err != nil {
		return fmt.Errorf("reading player states for game %s: %w", gameAddress, err)
	}
	persisted := make(map[string]*model.Player, len(page.Data))
	for i := range page.Data {
		persisted[page.Data[i].Address] = &page.Data[i]
	}

	w.fillMissingPropertySnapshots(ctx, gameAddress, page.Data, ectx)
	forced := forcedPositionsByWallet(ectx)

	w.fillMissingSnapshots(ctx, gameAddress, wallets, ectx)

	rec := &model.ChangeRecord{Kind: model.KindGame, Address: gameAddress}
	batch := make([]model.Player, 0, len(wallets))
	for _, wallet := range wallets {
		snap := ectx.Players[wallet]

		address := ""
		if snap != nil && snap.Address != "" {
			address = snap.Address
		} else {
			derived, err := ledger.DerivePlayerAddress(gameAddress, wallet)
			if err != nil {
				w.log.Warn().
					Err(err).
					Str("game", gameAddress).
					Str("wallet", wallet).
					Msg("cannot derive player address, skipping")
				continue
			}
			address = derived
		}

		if snap == nil {
			w.log.Warn().
				Str("game", gameAddress).
				Str("wallet", wallet).
				Msg("player snapshot unavailable, skipping")
			metrics.RecordSnapshotMiss("player")
			continue
		}

		merged := w.mergePlayer(persisted[address], nil, snap, forced[wallet], rec)
		merged.Address = address
		merged.Wallet = wallet
		merged.Game = gameAddress
		batch = append(batch, *merged)
	}

	if len(batch) == 0 {
		return nil
	}

	err = w.store.BulkUpsertPlayerStates(ctx, batch)
	if err == nil {
		return nil
	}
	w.log.Warn().
		Err(err).
		Str("game", gameAddress).
		Int("players", len(batch)).
		Msg("bulk player upsert failed, falling back to per-item commits")
	metrics.RecordBatchFallback()

	for i := range batch {
		if err := w.store.UpsertPlayerState(ctx, &batch[i]); err != nil {
			w.log.Error().
				Err(err).
				Str("player", batch[i].Address).
				Msg("per-item player upsert failed")
		}
	}
	return nil
}

// forcedPositionsByWallet cross-references property snapshots' owner field,
// attributing each owned position to its owner's wallet. The property
// snapshot is treated as authoritative for ownership.
func forcedPositionsByWallet(ectx *model.EnrichmentContext) map[string][]int {
	forced := make(map[string][]int)
	for position, prop := range ectx.Properties {
		if prop.Owner == nil || *prop.Owner == "" {
			continue
		}
		forced[*prop.Owner] = append(forced[*prop.Owner], position)
	}
	return forced
}

// fillMissingSnapshots batch-fetches canonical snapshots for wallets the
// enrichment context does not already cover. Fetch failure leaves the
// wallets uncovered; the caller skips them with a warning.
func (w *Writer) fillMissingSnapshots(ctx context.Context, gameAddress string, wallets []string, ectx *model.EnrichmentContext) {
	missing := make([]string, 0)
	for _, wallet := range wallets {
		if _, ok := ectx.Players[wallet]; !ok {
			missing = append(missing, wallet)
		}
	}
	if len(missing) == 0 {
		return
	}

	snaps, err := w.reader.FetchPlayerStateSnapshots(ctx, gameAddress, missing)
	if err != nil {
		w.log.Warn().
			Err(err).
			Str("game", gameAddress).
			Int("wallets", len(missing)).
			Msg("batch player snapshot fetch failed")
		return
	}
	for i := range snaps {
		if snaps[i].Wallet != nil {
			ectx.Players[*snaps[i].Wallet] = &snaps[i]
		}
	}
}

// fillMissingPropertySnapshots batch-fetches property snapshots for board
// positions owned by persisted players that the enrichment context does not
// already cover, so ownership cross-referencing still works when the game
// snapshot omits embedded property summaries.
func (w *Writer) fillMissingPropertySnapshots(ctx context.Context, gameAddress string, players []model.Player, ectx *model.EnrichmentContext) {
	missing := make([]int, 0)
	seen := make(map[int]bool)
	for i := range players {
		for _, pos := range players[i].PropertiesOwned {
			if seen[pos] {
				continue
			}
			seen[pos] = true
			if _, ok := ectx.Properties[pos]; !ok {
				missing = append(missing, pos)
			}
		}
	}
	if len(missing) == 0 {
		return
	}
	sort.Ints(missing)

	snaps, err := w.reader.FetchPropertyStateSnapshots(ctx, gameAddress, missing)
	if err != nil {
		w.log.Warn().
			Err(err).
			Str("game", gameAddress).
			Int("positions", len(missing)).
			Msg("batch property snapshot fetch failed")
		return
	}
	for i := range snaps {
		if snaps[i].Position != nil {
			ectx.Properties[*snaps[i].Position] = &snaps[i]
		}
	}
}
