// Package writer implements the reconciliation consumer: each queued change
// record is enriched with canonical ledger state, merged against the
// previously persisted entity, and committed idempotently. Persistence
// failures dead-letter the job and re-raise so the queue can redeliver.
package writer

import (
	"context"
	"fmt"
	"time"

	"github.com/WeShipHQ/panda-monopoly-indexer/ledger"
	"github.com/WeShipHQ/panda-monopoly-indexer/logging"
	"github.com/WeShipHQ/panda-monopoly-indexer/metrics"
	"github.com/WeShipHQ/panda-monopoly-indexer/model"
	"github.com/WeShipHQ/panda-monopoly-indexer/queue"
	"github.com/WeShipHQ/panda-monopoly-indexer/store"
)

// Test seams.
var (
	timeNow = time.Now
	sleep   = time.Sleep
)

// Writer consumes reconciliation jobs. Safe for use by concurrent workers;
// each job runs as a sequential fetch, merge, commit, fan-out pipeline.
type Writer struct {
	reader ledger.Reader
	store  store.Store
	dead   queue.DeadLetterer
	stats  *metrics.Stats
	log    *logging.ComponentLogger

	gameFetchAttempts int
	backoffBase       time.Duration
}

// New creates a writer. gameFetchAttempts bounds the game snapshot retry
// loop; backoffBase is multiplied by the attempt number between retries.
func New(reader ledger.Reader, st store.Store, dead queue.DeadLetterer, stats *metrics.Stats, log *logging.ComponentLogger, gameFetchAttempts int, backoffBase time.Duration) *Writer {
	if gameFetchAttempts < 1 {
		gameFetchAttempts = 1
	}
	return &Writer{
		reader:            reader,
		store:             st,
		dead:              dead,
		stats:             stats,
		log:               log,
		gameFetchAttempts: gameFetchAttempts,
		backoffBase:       backoffBase,
	}
}

// Process handles one job end to end. On unrecoverable failure the original
// payload is dead-lettered and the error is returned so the queue's
// redelivery policy applies.
func (w *Writer) Process(ctx context.Context, job *queue.Job) error {
	kind := string(job.Record.Kind)
	stop := metrics.StartJobTimer(kind)
	defer stop()

	err := w.process(ctx, &job.Record)
	if err != nil {
		w.routeFailure(job, err)
		return err
	}

	metrics.RecordJobProcessed(kind)
	w.stats.IncrJobsProcessed(job.Record.Slot)
	return nil
}

func (w *Writer) process(ctx context.Context, rec *model.ChangeRecord) error {
	switch rec.Kind {
	case model.KindGame:
		return w.processGame(ctx, rec)
	case model.KindPlayer:
		return w.processPlayer(ctx, rec)
	case model.KindProperty:
		return w.processProperty(ctx, rec)
	case model.KindTrade:
		return w.processTrade(ctx, rec)
	case model.KindPlatformConfig:
		return w.processPlatform(ctx, rec)
	default:
		return fmt.Errorf("unsupported record kind %q", rec.Kind)
	}
}

func (w *Writer) processGame(ctx context.Context, rec *model.ChangeRecord) error {
	if rec.Game == nil {
		return fmt.Errorf("game record %s has no payload", rec.Address)
	}

	snap := w.fetchGameSnapshot(ctx, rec.Address)

	existing, err := w.store.GetGameState(ctx, rec.Address)
	if err != nil {
		return fmt.Errorf("reading game state %s: %w", rec.Address, err)
	}

	merged := w.mergeGame(existing, rec.Game, snap, rec.TradeUpdates, rec)
	if err := w.store.UpsertGameState(ctx, merged); err != nil {
		return fmt.Errorf("upserting game state %s: %w", rec.Address, err)
	}

	ectx := buildEnrichmentContext(snap)
	if err := w.syncPlayers(ctx, rec.Address, merged.Players, ectx); err != nil {
		return err
	}
	return nil
}

// fetchGameSnapshot retries not-yet-readable accounts with linear backoff,
// tolerating the gap between transaction confirmation and account
// visibility. Returns nil when all attempts miss; the caller keeps prior
// values in that case.
func (w *Writer) fetchGameSnapshot(ctx context.Context, address string) *model.GameSnapshot {
	for attempt := 1; attempt <= w.gameFetchAttempts; attempt++ {
		snap, err := w.reader.FetchEnhancedGameData(ctx, address)
		if err != nil {
			w.log.Warn().
				Err(err).
				Str("game", address).
				Int("attempt", attempt).
				Msg("game snapshot fetch failed, keeping prior values")
			metrics.RecordSnapshotMiss("game")
			return nil
		}
		if snap != nil {
			return snap
		}
		metrics.RecordSnapshotRetry()
		sleep(w.backoffBase * time.Duration(attempt))
	}

	w.log.Warn().
		Str("game", address).
		Int("attempts", w.gameFetchAttempts).
		Msg("game account not readable after retries, keeping prior values")
	metrics.RecordSnapshotMiss("game")
	return nil
}

func (w *Writer) processPlayer(ctx context.Context, rec *model.ChangeRecord) error {
	if rec.Player == nil {
		return fmt.Errorf("player record %s has no payload", rec.Address)
	}

	address := rec.Address
	if address == "" {
		derived, err := ledger.DerivePlayerAddress(rec.Player.Game, rec.Player.Wallet)
		if err != nil {
			return fmt.Errorf("resolving player address: %w", err)
		}
		address = derived
	}

	snap, err := w.reader.FetchEnhancedPlayerData(ctx, address)
	if err != nil || snap == nil {
		w.log.Warn().
			Err(err).
			Str("player", address).
			Msg("player snapshot unavailable, keeping prior values")
		metrics.RecordSnapshotMiss("player")
		snap = nil
	}

	existing, err := w.existingPlayer(ctx, rec.Player.Game, address)
	if err != nil {
		return err
	}

	merged := w.mergePlayer(existing, rec.Player, snap, nil, rec)
	merged.Address = address
	if err := w.store.UpsertPlayerState(ctx, merged); err != nil {
		return fmt.Errorf("upserting player state %s: %w", address, err)
	}
	return nil
}

// existingPlayer reads the previously persisted player row, if any.
func (w *Writer) existingPlayer(ctx context.Context, game, address string) (*model.Player, error) {
	page, err := w.store.GetPlayerStates(ctx, store.PlayerFilter{Game: game}, store.Pagination{Limit: 500})
	if err != nil {
		return nil, fmt.Errorf("reading player states for game %s: %w", game, err)
	}
	for i := range page.Data {
		if page.Data[i].Address == address {
			return &page.Data[i], nil
		}
	}
	return nil, nil
}

func (w *Writer) processProperty(ctx context.Context, rec *model.ChangeRecord) error {
	if rec.Property == nil {
		return fmt.Errorf("property record %s has no payload", rec.Address)
	}

	snap, err := w.reader.FetchEnhancedPropertyData(ctx, rec.Address)
	if err != nil || snap == nil {
		w.log.Warn().
			Err(err).
			Str("property", rec.Address).
			Msg("property snapshot unavailable, keeping prior values")
		metrics.RecordSnapshotMiss("property")
		snap = nil
	}

	merged := w.mergeProperty(rec.Property, snap, rec)
	if err := w.store.UpsertPropertyState(ctx, merged); err != nil {
		return fmt.Errorf("upserting property state %s: %w", rec.Address, err)
	}
	return nil
}

func (w *Writer) processTrade(ctx context.Context, rec *model.ChangeRecord) error {
	if rec.Trade == nil {
		return fmt.Errorf("trade record %s has no payload", rec.Address)
	}

	merged := w.mergeTrade(rec.Trade, rec)
	if err := w.store.UpsertTradeState(ctx, merged); err != nil {
		return fmt.Errorf("upserting trade state %s: %w", rec.Address, err)
	}
	return nil
}

func (w *Writer) processPlatform(ctx context.Context, rec *model.ChangeRecord) error {
	if rec.PlatformConfig == nil {
		return fmt.Errorf("platform record %s has no payload", rec.Address)
	}

	snap, err := w.reader.FetchEnhancedPlatformData(ctx, rec.Address)
	if err != nil || snap == nil {
		w.log.Warn().
			Err(err).
			Str("platform", rec.Address).
			Msg("platform snapshot unavailable, keeping prior values")
		metrics.RecordSnapshotMiss("platformConfig")
		snap = nil
	}

	merged := w.mergePlatform(rec.PlatformConfig, snap, rec)
	if err := w.store.UpsertPlatformConfig(ctx, merged); err != nil {
		return fmt.Errorf("upserting platform config %s: %w", rec.Address, err)
	}
	return nil
}

// routeFailure forwards the original job payload to the dead-letter channel
// and records failure metrics. It never returns an error itself.
func (w *Writer) routeFailure(job *queue.Job, cause error) {
	w.log.Error().
		Err(cause).
		Str("job_id", job.ID).
		Str("kind", string(job.Record.Kind)).
		Str("address", job.Record.Address).
		Msg("job failed, routing to dead-letter")

	if w.dead != nil {
		w.dead.DeadLetter(job)
	}
	metrics.RecordJobFailed(string(job.Record.Kind))
	metrics.RecordDeadLetter()
	w.stats.IncrJobsFailed()
	w.stats.IncrDeadLettered()
}

// buildEnrichmentContext indexes a game snapshot's embedded summaries for
// reuse by the fan-out step.
func buildEnrichmentContext(snap *model.GameSnapshot) *model.EnrichmentContext {
	ectx := model.NewEnrichmentContext()
	if snap == nil {
		return ectx
	}
	ectx.Game = snap
	for i := range snap.PlayerSnapshots {
		ps := &snap.PlayerSnapshots[i]
		if ps.Wallet != nil {
			ectx.Players[*ps.Wallet] = ps
		}
	}
	for i := range snap.PropertySnapshots {
		ps := &snap.PropertySnapshots[i]
		if ps.Position != nil {
			ectx.Properties[*ps.Position] = ps
		}
	}
	return ectx
}
