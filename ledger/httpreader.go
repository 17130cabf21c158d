package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/WeShipHQ/panda-monopoly-indexer/model"
)

// HTTPReader implements Reader against the enhanced-state API, which decodes
// raw program accounts and serves them as JSON snapshots.
type HTTPReader struct {
	baseURL string
	client  *http.Client
}

// NewHTTPReader creates a reader for the given API base URL.
func NewHTTPReader(baseURL string) *HTTPReader {
	return &HTTPReader{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (r *HTTPReader) FetchEnhancedGameData(ctx context.Context, address string) (*model.GameSnapshot, error) {
	var snap model.GameSnapshot
	found, err := r.get(ctx, "/v1/games/"+url.PathEscape(address), nil, &snap)
	if err != nil || !found {
		return nil, err
	}
	return &snap, nil
}

func (r *HTTPReader) FetchEnhancedPlayerData(ctx context.Context, address string) (*model.PlayerSnapshot, error) {
	var snap model.PlayerSnapshot
	found, err := r.get(ctx, "/v1/players/"+url.PathEscape(address), nil, &snap)
	if err != nil || !found {
		return nil, err
	}
	return &snap, nil
}

func (r *HTTPReader) FetchEnhancedPropertyData(ctx context.Context, address string) (*model.PropertySnapshot, error) {
	var snap model.PropertySnapshot
	found, err := r.get(ctx, "/v1/properties/"+url.PathEscape(address), nil, &snap)
	if err != nil || !found {
		return nil, err
	}
	return &snap, nil
}

func (r *HTTPReader) FetchEnhancedPlatformData(ctx context.Context, address string) (*model.PlatformSnapshot, error) {
	var snap model.PlatformSnapshot
	found, err := r.get(ctx, "/v1/platform/"+url.PathEscape(address), nil, &snap)
	if err != nil || !found {
		return nil, err
	}
	return &snap, nil
}

func (r *HTTPReader) FetchPlayerStateSnapshots(ctx context.Context, gameAddress string, wallets []string) ([]model.PlayerSnapshot, error) {
	query := url.Values{"wallets": {strings.Join(wallets, ",")}}
	var snaps []model.PlayerSnapshot
	_, err := r.get(ctx, "/v1/games/"+url.PathEscape(gameAddress)+"/players", query, &snaps)
	if err != nil {
		return nil, err
	}
	return snaps, nil
}

func (r *HTTPReader) FetchPropertyStateSnapshots(ctx context.Context, gameAddress string, positions []int) ([]model.PropertySnapshot, error) {
	strs := make([]string, 0, len(positions))
	for _, p := range positions {
		strs = append(strs, strconv.Itoa(p))
	}
	query := url.Values{"positions": {strings.Join(strs, ",")}}
	var snaps []model.PropertySnapshot
	_, err := r.get(ctx, "/v1/games/"+url.PathEscape(gameAddress)+"/properties", query, &snaps)
	if err != nil {
		return nil, err
	}
	return snaps, nil
}

// get performs a GET and decodes the body into out. A 404 reports not-found
// without an error.
func (r *HTTPReader) get(ctx context.Context, path string, query url.Values, out interface{}) (bool, error) {
	u := r.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("enhanced-state request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("enhanced-state API returned %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return true, nil
}
