package model

import (
	"encoding/json"
	"strconv"
	"testing"
)

func TestTradeListUnmarshalForms(t *testing.T) {
	array := `[{"tradeId":7,"status":"Pending","createdAt":42},{"tradeId":8,"status":"Accepted","createdAt":50}]`

	cases := []struct {
		name  string
		input string
		want  int
	}{
		{"raw array", array, 2},
		{"serialized string", strconv.Quote(array), 2},
		{"wrapped under trades", `{"trades":` + array + `}`, 2},
		{"wrapped under items", `{"items":` + array + `}`, 2},
		{"null", `null`, 0},
		{"empty string", `""`, 0},
		{"empty wrapper", `{}`, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var list TradeList
			if err := json.Unmarshal([]byte(tc.input), &list); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(list) != tc.want {
				t.Fatalf("len = %d, want %d", len(list), tc.want)
			}
			if tc.want > 0 {
				if list[0].TradeID != 7 || list[0].Status != TradePending {
					t.Errorf("first trade = %+v", list[0])
				}
			}
		})
	}
}

func TestTradeListUnmarshalInsideGame(t *testing.T) {
	array := `[{"tradeId":3,"status":"Pending","createdAt":12}]`
	payload := `{"address":"gameA","trades":` + strconv.Quote(array) + `,"activeTrades":{"trades":` + array + `}}`

	var game Game
	if err := json.Unmarshal([]byte(payload), &game); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(game.Trades) != 1 || game.Trades[0].TradeID != 3 {
		t.Errorf("Trades = %+v", game.Trades)
	}
	if len(game.ActiveTrades) != 1 || game.ActiveTrades[0].TradeID != 3 {
		t.Errorf("ActiveTrades = %+v", game.ActiveTrades)
	}
}

func TestTradeListUnmarshalRejectsScalar(t *testing.T) {
	var list TradeList
	if err := json.Unmarshal([]byte(`17`), &list); err == nil {
		t.Fatal("expected error for scalar trade list")
	}
}
