package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// TradeList is a []Trade that tolerates the shapes upstream payloads use for
// trade collections: a raw JSON array, a JSON string containing a serialized
// array, or an object wrapping the array under "trades" or "items". It
// always marshals back as a plain array.
type TradeList []Trade

func (l *TradeList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	switch data[0] {
	case '[':
		var trades []Trade
		if err := json.Unmarshal(data, &trades); err != nil {
			return err
		}
		*l = trades
		return nil
	case '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*l = nil
			return nil
		}
		return l.UnmarshalJSON([]byte(raw))
	case '{':
		var wrapped struct {
			Trades json.RawMessage `json:"trades"`
			Items  json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return err
		}
		if len(wrapped.Trades) > 0 {
			return l.UnmarshalJSON(wrapped.Trades)
		}
		if len(wrapped.Items) > 0 {
			return l.UnmarshalJSON(wrapped.Items)
		}
		*l = nil
		return nil
	default:
		return fmt.Errorf("trade list has unsupported JSON shape starting with %q", data[0])
	}
}
