package extractor

import (
	"reflect"
	"testing"
	"time"

	"github.com/WeShipHQ/panda-monopoly-indexer/logging"
	"github.com/WeShipHQ/panda-monopoly-indexer/model"
)

func newTestExtractor() *Extractor {
	return New(logging.NewComponentLogger("extractor-test"), nil)
}

func testTx(logs []string) model.TransactionMeta {
	return model.TransactionMeta{
		Signature:   "5igDhsVo9Wn3mFdNnJwbUHoLpHuMkHLLKdNEHy4p",
		Slot:        348221101,
		BlockTime:   time.Unix(1756700000, 0).UTC(),
		AccountKeys: []string{"FeePayer111", "GameAcc111", "PlayerAcc111"},
		LogMessages: logs,
	}
}

func TestExtractStructuredPlayer(t *testing.T) {
	tx := testTx([]string{
		"Program log: Instruction: MovePlayer",
		"Program log: panda_event kind=player address=PLYabc wallet=9aQw game=GMxyz cashBalance=1420 position=12 inJail=false propertiesOwned=[1,3] lastDiceRoll=[6,6] hasRolledDice=true",
	})

	records := newTestExtractor().Extract(tx)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	if rec.Kind != model.KindPlayer {
		t.Fatalf("Kind = %s, want player", rec.Kind)
	}
	if rec.Address != "PLYabc" {
		t.Errorf("Address = %s", rec.Address)
	}
	if rec.Signature != tx.Signature || rec.Slot != tx.Slot {
		t.Error("record not stamped with transaction metadata")
	}

	p := rec.Player
	if p.CashBalance != 1420 {
		t.Errorf("CashBalance = %d", p.CashBalance)
	}
	if p.Position != 12 {
		t.Errorf("Position = %d", p.Position)
	}
	if !reflect.DeepEqual(p.PropertiesOwned, []int{1, 3}) {
		t.Errorf("PropertiesOwned = %v", p.PropertiesOwned)
	}
	if p.LastDiceRoll != [2]int{6, 6} {
		t.Errorf("LastDiceRoll = %v", p.LastDiceRoll)
	}
	if !p.HasRolledDice {
		t.Error("HasRolledDice = false")
	}
	if p.InJail {
		t.Error("InJail = true")
	}
}

func TestExtractStructuredDefaults(t *testing.T) {
	// Missing numeric fields default to zero, missing strings to UNKNOWN,
	// unparsable lists to empty.
	tx := testTx([]string{
		"Program log: panda_event kind=player address=PLYabc propertiesOwned=[not,numbers]",
	})

	records := newTestExtractor().Extract(tx)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	p := records[0].Player
	if p.Wallet != "UNKNOWN" {
		t.Errorf("Wallet = %q, want UNKNOWN", p.Wallet)
	}
	if p.CashBalance != 0 || p.Position != 0 {
		t.Error("numeric defaults not zero")
	}
	if len(p.PropertiesOwned) != 0 {
		t.Errorf("PropertiesOwned = %v, want empty", p.PropertiesOwned)
	}
}

func TestExtractPositionalAddressFallback(t *testing.T) {
	tx := testTx([]string{
		"Program log: panda_event kind=game gameId=7 maxPlayers=4",
	})

	records := newTestExtractor().Extract(tx)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Address != "GameAcc111" {
		t.Errorf("Address = %s, want positional fallback GameAcc111", records[0].Address)
	}
}

func TestExtractInitPropertyEndToEnd(t *testing.T) {
	tx := testTx([]string{
		"Program log: Instruction: InitProperty",
		"Program log: Init property 23 for game CziCwe6yMzS2XCRBcvJ2BPDFWrMrYTD8kZ3oDCrJpump",
		"Program log: property: 7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
	})

	records := newTestExtractor().Extract(tx)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	if rec.Kind != model.KindProperty {
		t.Fatalf("Kind = %s, want property", rec.Kind)
	}
	p := rec.Property
	if p.Position != 23 {
		t.Errorf("Position = %d, want 23", p.Position)
	}
	if p.Address != "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU" {
		t.Errorf("Address = %s", p.Address)
	}
	if p.Game != "CziCwe6yMzS2XCRBcvJ2BPDFWrMrYTD8kZ3oDCrJpump" {
		t.Errorf("Game = %s", p.Game)
	}
	if p.Owner != nil {
		t.Errorf("Owner = %v, want nil", *p.Owner)
	}
	// Board defaults for position 23 (Indiana Avenue)
	if p.ColorGroup != "Red" {
		t.Errorf("ColorGroup = %s, want Red", p.ColorGroup)
	}
	if p.Price != 220 {
		t.Errorf("Price = %d, want 220", p.Price)
	}
	if len(p.RentWithHouses) != 4 {
		t.Errorf("RentWithHouses has %d tiers, want 4", len(p.RentWithHouses))
	}
}

func TestExtractDroppedEventSafety(t *testing.T) {
	// Narration opens an event but the window closes without the mandatory
	// property address: zero records, no panic.
	logs := []string{"Program log: Init property 5 for game GMxyz"}
	for i := 0; i < lookaheadWindow+2; i++ {
		logs = append(logs, "Program log: unrelated narration")
	}
	logs = append(logs, "Program log: property: TooLateToCount111")

	records := newTestExtractor().Extract(testTx(logs))
	if len(records) != 0 {
		t.Fatalf("got %d records, want 0", len(records))
	}
}

func TestExtractInitGame(t *testing.T) {
	tx := testTx([]string{
		"Program log: Instruction: Initialize Game",
		"Program log: game: GMxyz111",
		"Program log: authority: AUTHaaa",
		"Program log: maxPlayers: 4 entryFee: 1000",
	})

	records := newTestExtractor().Extract(tx)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	g := records[0].Game
	if g.Address != "GMxyz111" {
		t.Errorf("Address = %s", g.Address)
	}
	if g.Authority != "AUTHaaa" {
		t.Errorf("Authority = %s", g.Authority)
	}
	if g.MaxPlayers != 4 {
		t.Errorf("MaxPlayers = %d", g.MaxPlayers)
	}
	if g.EntryFee != 1000 {
		t.Errorf("EntryFee = %d", g.EntryFee)
	}
	if g.Status != model.GameWaitingForPlayers {
		t.Errorf("Status = %s", g.Status)
	}
	if g.HousesRemaining != 32 || g.HotelsRemaining != 12 {
		t.Errorf("inventory = %d/%d, want 32/12", g.HousesRemaining, g.HotelsRemaining)
	}
}

func TestExtractTradeCreated(t *testing.T) {
	tx := testTx([]string{
		"Program log: Trade created by PROPaa for player RECVbb",
		"Program log: trade: TRDcc game: GMxyz tradeId: 3",
		"Program log: timestamp: 1756700100 expiresAt: 1756703700",
	})

	records := newTestExtractor().Extract(tx)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	tr := records[0].Trade
	if tr.Proposer != "PROPaa" || tr.Receiver != "RECVbb" {
		t.Errorf("parties = %s/%s", tr.Proposer, tr.Receiver)
	}
	if tr.TradeID != 3 {
		t.Errorf("TradeID = %d", tr.TradeID)
	}
	if tr.Status != model.TradePending {
		t.Errorf("Status = %s", tr.Status)
	}
	if tr.CreatedAt != 1756700100 || tr.ExpiresAt != 1756703700 {
		t.Errorf("timestamps = %d/%d", tr.CreatedAt, tr.ExpiresAt)
	}
}

func TestExtractTradeStatusUpdate(t *testing.T) {
	tx := testTx([]string{
		"Program log: Trade 3 accepted",
		"Program log: game: GMxyz111",
	})

	records := newTestExtractor().Extract(tx)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.Kind != model.KindGame {
		t.Fatalf("Kind = %s, want game", rec.Kind)
	}
	if len(rec.TradeUpdates) != 1 {
		t.Fatalf("got %d trade updates, want 1", len(rec.TradeUpdates))
	}
	upd := rec.TradeUpdates[0]
	if upd.TradeID != 3 || upd.Status != model.TradeAccepted {
		t.Errorf("update = %+v", upd)
	}
}

func TestExtractDeterminism(t *testing.T) {
	tx := testTx([]string{
		"Program log: panda_event kind=game address=GMxyz gameId=9 players=[A,B] status=InProgress tradeId=4 tradeStatus=Rejected",
		"Program log: Init property 1 for game GMxyz",
		"Program log: property: PROPdd",
		"Program log: panda_event kind=player address=PLYee wallet=WLTff cashBalance=900",
	})

	e := newTestExtractor()
	first := e.Extract(tx)
	for i := 0; i < 5; i++ {
		again := e.Extract(tx)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("extraction not deterministic on run %d", i)
		}
	}

	if len(first) != 3 {
		t.Fatalf("got %d records, want 3", len(first))
	}
	if first[0].Kind != model.KindGame || first[1].Kind != model.KindProperty || first[2].Kind != model.KindPlayer {
		t.Errorf("record order = %s,%s,%s", first[0].Kind, first[1].Kind, first[2].Kind)
	}
	if len(first[0].TradeUpdates) != 1 || first[0].TradeUpdates[0].Status != model.TradeRejected {
		t.Errorf("trade update not carried on game record: %+v", first[0].TradeUpdates)
	}
}

func TestExtractGarbledLinesYieldNothing(t *testing.T) {
	tx := testTx([]string{
		"Program log: panda_event kind=starship address=XYZ",
		"Program log: panda_event ====garbage====",
		"",
		"Program consumed 184233 compute units",
	})

	// kind=starship is unknown; the garbage line parses to no usable kind.
	records := newTestExtractor().Extract(tx)
	if len(records) != 0 {
		t.Fatalf("got %d records, want 0", len(records))
	}
}
