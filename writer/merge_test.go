package writer

import (
	"reflect"
	"testing"
	"time"

	"github.com/WeShipHQ/panda-monopoly-indexer/logging"
	"github.com/WeShipHQ/panda-monopoly-indexer/metrics"
	"github.com/WeShipHQ/panda-monopoly-indexer/model"
)

func mergeTestWriter() *Writer {
	log := logging.NewComponentLogger("merge-test")
	return New(nil, nil, nil, metrics.NewStats(), log, 1, 0)
}

func TestUnionPositions(t *testing.T) {
	got := unionPositions([]int{3, 9}, []int{9, 15}, []int{1, 3})
	want := []int{1, 3, 9, 15}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unionPositions = %v, want %v", got, want)
	}

	if got := unionPositions(nil, nil); len(got) != 0 {
		t.Errorf("empty union = %v, want []", got)
	}
}

func TestMergePlayerPropertiesOwnedUnion(t *testing.T) {
	w := mergeTestWriter()
	existing := &model.Player{
		Address:         "addrA",
		Wallet:          "walletA",
		Game:            "gameA",
		PropertiesOwned: []int{1, 3},
	}
	snap := &model.PlayerSnapshot{
		Address:         "addrA",
		PropertiesOwned: []int{3, 9},
	}
	rec := &model.ChangeRecord{Kind: model.KindPlayer, Address: "addrA", Slot: 10}

	merged := w.mergePlayer(existing, nil, snap, []int{9, 15}, rec)

	want := []int{1, 3, 9, 15}
	if !reflect.DeepEqual(merged.PropertiesOwned, want) {
		t.Errorf("PropertiesOwned = %v, want %v", merged.PropertiesOwned, want)
	}
}

func TestMergePlayerPrefersCanonical(t *testing.T) {
	w := mergeTestWriter()
	cash := int64(1500)
	pos := 12
	inJail := true
	existing := &model.Player{
		Address:     "addrA",
		Wallet:      "walletA",
		Game:        "gameA",
		CashBalance: 900,
		Position:    4,
	}
	snap := &model.PlayerSnapshot{
		CashBalance: &cash,
		Position:    &pos,
		InJail:      &inJail,
	}
	rec := &model.ChangeRecord{Kind: model.KindPlayer, Address: "addrA"}

	merged := w.mergePlayer(existing, nil, snap, nil, rec)

	if merged.CashBalance != 1500 {
		t.Errorf("CashBalance = %d, want canonical 1500", merged.CashBalance)
	}
	if merged.Position != 12 {
		t.Errorf("Position = %d, want canonical 12", merged.Position)
	}
	if !merged.InJail {
		t.Error("InJail not taken from canonical snapshot")
	}
	if merged.Wallet != "walletA" {
		t.Errorf("Wallet = %s, persisted identity lost", merged.Wallet)
	}
}

func TestMergePlayerKeepsPersistedOnMiss(t *testing.T) {
	w := mergeTestWriter()
	existing := &model.Player{
		Address:     "addrA",
		Wallet:      "walletA",
		Game:        "gameA",
		CashBalance: 900,
		NetWorth:    2100,
	}
	rec := &model.ChangeRecord{Kind: model.KindPlayer, Address: "addrA"}

	merged := w.mergePlayer(existing, nil, nil, nil, rec)

	if merged.CashBalance != 900 || merged.NetWorth != 2100 {
		t.Errorf("persisted values lost on snapshot miss: %+v", merged)
	}
}

func TestMergePlayerFallsBackToRecordFields(t *testing.T) {
	w := mergeTestWriter()
	incoming := &model.Player{
		Wallet:          "walletA",
		Game:            "gameA",
		CashBalance:     1420,
		Position:        12,
		PropertiesOwned: []int{1, 3},
	}
	rec := &model.ChangeRecord{Kind: model.KindPlayer, Address: "addrA", Slot: 10}

	// No snapshot and no persisted row: the record's own extracted fields
	// must survive into the merged entity.
	merged := w.mergePlayer(nil, incoming, nil, nil, rec)

	if merged.CashBalance != 1420 {
		t.Errorf("CashBalance = %d, want record value 1420", merged.CashBalance)
	}
	if merged.Position != 12 {
		t.Errorf("Position = %d, want record value 12", merged.Position)
	}
	if !reflect.DeepEqual(merged.PropertiesOwned, []int{1, 3}) {
		t.Errorf("PropertiesOwned = %v, want [1 3]", merged.PropertiesOwned)
	}

	// A persisted row still outranks the record's fields.
	existing := &model.Player{Address: "addrA", Wallet: "walletA", Game: "gameA", CashBalance: 900}
	merged = w.mergePlayer(existing, incoming, nil, nil, rec)
	if merged.CashBalance != 900 {
		t.Errorf("CashBalance = %d, want persisted 900", merged.CashBalance)
	}
}

func TestMergeTradesSortedByCreatedAt(t *testing.T) {
	w := mergeTestWriter()
	existing := []model.Trade{
		{TradeID: 2, Status: model.TradePending, CreatedAt: 50},
	}
	incoming := []model.Trade{
		{TradeID: 1, Status: model.TradePending, CreatedAt: 10},
		{TradeID: 3, Status: model.TradePending, CreatedAt: 90},
	}

	trades, active := w.mergeTrades("gameA", existing, incoming, nil)

	if len(trades) != 3 {
		t.Fatalf("merged trades = %d, want 3", len(trades))
	}
	for i, wantID := range []uint64{1, 2, 3} {
		if trades[i].TradeID != wantID {
			t.Errorf("trades[%d].TradeID = %d, want %d (sorted by createdAt)", i, trades[i].TradeID, wantID)
		}
	}
	if len(active) != 3 {
		t.Errorf("active trades = %d, want 3", len(active))
	}
}

func TestMergeTradesShallowOverride(t *testing.T) {
	w := mergeTestWriter()
	existing := []model.Trade{
		{TradeID: 1, Proposer: "alice", Receiver: "bob", ProposerMoney: 100, Status: model.TradePending, CreatedAt: 10},
	}
	incoming := []model.Trade{
		{TradeID: 1, ProposerMoney: 250, CreatedAt: 10},
	}

	trades, _ := w.mergeTrades("gameA", existing, incoming, nil)

	if len(trades) != 1 {
		t.Fatalf("merged trades = %d, want 1", len(trades))
	}
	got := trades[0]
	if got.ProposerMoney != 250 {
		t.Errorf("ProposerMoney = %d, want overriding 250", got.ProposerMoney)
	}
	if got.Proposer != "alice" || got.Receiver != "bob" {
		t.Errorf("absent incoming fields clobbered existing: %+v", got)
	}
}

func TestMergeGameStampWriteOnce(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return fixed }
	defer func() { timeNow = time.Now }()

	w := mergeTestWriter()
	createdAt := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	existing := &model.Game{
		Address:          "gameA",
		CreatedSlot:      40,
		UpdatedSlot:      60,
		AccountCreatedAt: createdAt,
	}
	rec := &model.ChangeRecord{
		Kind:      model.KindGame,
		Address:   "gameA",
		Signature: "sig-2",
		Slot:      80,
	}

	merged := w.mergeGame(existing, &model.Game{}, nil, nil, rec)

	if merged.CreatedSlot != 40 {
		t.Errorf("CreatedSlot = %d, write-once semantics violated", merged.CreatedSlot)
	}
	if merged.UpdatedSlot != 80 {
		t.Errorf("UpdatedSlot = %d, want 80", merged.UpdatedSlot)
	}
	if !merged.AccountCreatedAt.Equal(createdAt) {
		t.Errorf("AccountCreatedAt = %v, write-once semantics violated", merged.AccountCreatedAt)
	}
	if !merged.AccountUpdatedAt.Equal(fixed) {
		t.Errorf("AccountUpdatedAt = %v, want refreshed %v", merged.AccountUpdatedAt, fixed)
	}
	if merged.LastSignature != "sig-2" {
		t.Errorf("LastSignature = %s, want sig-2", merged.LastSignature)
	}
}

func TestMergePropertyNormalizesRentTiers(t *testing.T) {
	w := mergeTestWriter()
	rec := &model.ChangeRecord{Kind: model.KindProperty, Address: "propA"}

	tests := []struct {
		name string
		in   []int64
		want []int64
	}{
		{"short list padded", []int64{10, 20}, []int64{10, 20, 0, 0}},
		{"long list truncated", []int64{10, 20, 30, 40, 50, 60}, []int64{10, 20, 30, 40}},
		{"nil padded", nil, []int64{0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			incoming := &model.Property{Address: "propA", RentWithHouses: tt.in}
			merged := w.mergeProperty(incoming, nil, rec)
			if !reflect.DeepEqual(merged.RentWithHouses, tt.want) {
				t.Errorf("RentWithHouses = %v, want %v", merged.RentWithHouses, tt.want)
			}
		})
	}
}

func TestMergePropertySnapshotReplaces(t *testing.T) {
	w := mergeTestWriter()
	owner := "walletC"
	price := int64(220)
	houses := 2
	snap := &model.PropertySnapshot{
		Address: "propA",
		Slot:    500,
		Owner:   &owner,
		Price:   &price,
		Houses:  &houses,
	}
	incoming := &model.Property{Address: "propA", Price: 100}
	rec := &model.ChangeRecord{Kind: model.KindProperty, Address: "propA", Slot: 400}

	merged := w.mergeProperty(incoming, snap, rec)

	if merged.Price != 220 {
		t.Errorf("Price = %d, want canonical 220", merged.Price)
	}
	if merged.Owner == nil || *merged.Owner != "walletC" {
		t.Errorf("Owner = %v, want walletC", merged.Owner)
	}
	if merged.Houses != 2 {
		t.Errorf("Houses = %d, want 2", merged.Houses)
	}
	if merged.UpdatedSlot != 500 {
		t.Errorf("UpdatedSlot = %d, want snapshot slot 500", merged.UpdatedSlot)
	}
}
