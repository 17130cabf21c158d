// Package source feeds the extractor with confirmed transactions. The HTTP
// poller tails a transaction feed endpoint, resuming from a persisted slot
// checkpoint so a restart never re-reads the whole history.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/WeShipHQ/panda-monopoly-indexer/logging"
	"github.com/WeShipHQ/panda-monopoly-indexer/model"
)

// Checkpoint persists the last fully processed slot between runs.
type Checkpoint interface {
	LoadCheckpoint(ctx context.Context) (uint64, error)
	SaveCheckpoint(ctx context.Context, slot uint64) error
}

// HTTPSource polls a confirmed-transaction feed.
type HTTPSource struct {
	endpoint   string
	client     *http.Client
	interval   time.Duration
	batchLimit int
	checkpoint Checkpoint
	log        *logging.ComponentLogger
}

// NewHTTPSource creates a poller against the feed's base URL.
func NewHTTPSource(endpoint string, interval time.Duration, batchLimit int, checkpoint Checkpoint, log *logging.ComponentLogger) *HTTPSource {
	return &HTTPSource{
		endpoint:   endpoint,
		client:     &http.Client{Timeout: 30 * time.Second},
		interval:   interval,
		batchLimit: batchLimit,
		checkpoint: checkpoint,
		log:        log,
	}
}

// Run polls until the context is cancelled, invoking emit for every
// transaction in slot order. The checkpoint advances after each batch.
func (s *HTTPSource) Run(ctx context.Context, emit func(model.TransactionMeta)) error {
	since, err := s.checkpoint.LoadCheckpoint(ctx)
	if err != nil {
		return fmt.Errorf("loading checkpoint: %w", err)
	}
	if since > 0 {
		s.log.Info().Uint64("slot", since).Msg("resuming from checkpoint")
	} else {
		s.log.Info().Msg("no checkpoint, starting from the feed's head")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		batch, err := s.fetch(ctx, since)
		if err != nil {
			s.log.Warn().Err(err).Msg("transaction poll failed")
			continue
		}
		if len(batch) == 0 {
			continue
		}

		for _, tx := range batch {
			emit(tx)
			if tx.Slot > since {
				since = tx.Slot
			}
		}

		if err := s.checkpoint.SaveCheckpoint(ctx, since); err != nil {
			s.log.Warn().Err(err).Uint64("slot", since).Msg("checkpoint save failed")
		}
	}
}

func (s *HTTPSource) fetch(ctx context.Context, sinceSlot uint64) ([]model.TransactionMeta, error) {
	q := url.Values{}
	q.Set("since_slot", strconv.FormatUint(sinceSlot, 10))
	q.Set("limit", strconv.Itoa(s.batchLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.endpoint+"/v1/transactions?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var batch []model.TransactionMeta
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("decoding transaction batch: %w", err)
	}
	return batch, nil
}
