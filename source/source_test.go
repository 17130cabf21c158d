package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/WeShipHQ/panda-monopoly-indexer/logging"
	"github.com/WeShipHQ/panda-monopoly-indexer/model"
)

type memCheckpoint struct {
	mu   sync.Mutex
	slot uint64
}

func (c *memCheckpoint) LoadCheckpoint(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slot, nil
}

func (c *memCheckpoint) SaveCheckpoint(ctx context.Context, slot uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slot = slot
	return nil
}

func TestPollerResumesAndAdvances(t *testing.T) {
	var mu sync.Mutex
	var sinceSeen []uint64

	feed := map[uint64][]model.TransactionMeta{
		40: {
			{Signature: "sigA", Slot: 41},
			{Signature: "sigB", Slot: 45},
		},
		45: {},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		since, _ := strconv.ParseUint(r.URL.Query().Get("since_slot"), 10, 64)
		mu.Lock()
		sinceSeen = append(sinceSeen, since)
		mu.Unlock()
		json.NewEncoder(w).Encode(feed[since])
	}))
	defer srv.Close()

	cp := &memCheckpoint{slot: 40}
	src := NewHTTPSource(srv.URL, 5*time.Millisecond, 100, cp, logging.NewComponentLogger("source-test"))

	var emitted []string
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		src.Run(ctx, func(tx model.TransactionMeta) {
			mu.Lock()
			emitted = append(emitted, tx.Signature)
			mu.Unlock()
			if tx.Signature == "sigB" {
				cancel()
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(emitted) != 2 || emitted[0] != "sigA" || emitted[1] != "sigB" {
		t.Errorf("emitted = %v, want [sigA sigB]", emitted)
	}
	if len(sinceSeen) == 0 || sinceSeen[0] != 40 {
		t.Errorf("first poll since_slot = %v, want resume at 40", sinceSeen)
	}
	if cp.slot != 45 {
		t.Errorf("checkpoint = %d, want advanced to 45", cp.slot)
	}
}

func TestPollerToleratesFeedErrors(t *testing.T) {
	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode([]model.TransactionMeta{{Signature: "sigC", Slot: 7}})
	}))
	defer srv.Close()

	cp := &memCheckpoint{}
	src := NewHTTPSource(srv.URL, 5*time.Millisecond, 100, cp, logging.NewComponentLogger("source-test"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		src.Run(ctx, func(tx model.TransactionMeta) {
			if tx.Signature == "sigC" {
				cancel()
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not recover from a feed error")
	}
	if cp.slot != 7 {
		t.Errorf("checkpoint = %d, want 7", cp.slot)
	}
}
