// Package ledger defines the read-side port against the chain: canonical
// account snapshots for entities the indexer mirrors.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/WeShipHQ/panda-monopoly-indexer/model"
)

// Reader fetches canonical account state. A nil snapshot with a nil error
// means the account is not yet readable — the gap between transaction
// confirmation and account visibility.
type Reader interface {
	FetchEnhancedGameData(ctx context.Context, address string) (*model.GameSnapshot, error)
	FetchEnhancedPlayerData(ctx context.Context, address string) (*model.PlayerSnapshot, error)
	FetchEnhancedPropertyData(ctx context.Context, address string) (*model.PropertySnapshot, error)
	FetchEnhancedPlatformData(ctx context.Context, address string) (*model.PlatformSnapshot, error)
	FetchPlayerStateSnapshots(ctx context.Context, gameAddress string, wallets []string) ([]model.PlayerSnapshot, error)
	FetchPropertyStateSnapshots(ctx context.Context, gameAddress string, positions []int) ([]model.PropertySnapshot, error)
}

// DerivePlayerAddress derives the per-player sub-entity address from the game
// address and the player's wallet, mirroring the program's seed scheme.
func DerivePlayerAddress(gameAddress, wallet string) (string, error) {
	if gameAddress == "" || wallet == "" {
		return "", fmt.Errorf("cannot derive player address: game=%q wallet=%q", gameAddress, wallet)
	}
	h := sha256.New()
	h.Write([]byte("player_state"))
	h.Write([]byte(gameAddress))
	h.Write([]byte(wallet))
	return hex.EncodeToString(h.Sum(nil)[:20]), nil
}
