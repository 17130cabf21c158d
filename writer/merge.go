package writer

import (
	"sort"
	"time"

	"github.com/WeShipHQ/panda-monopoly-indexer/model"
)

// Merge rules live here, one function per entity kind. Canonical snapshot
// values win when present; absent snapshot fields fall back to the listed
// alternatives in order. Defaulting for optional snapshot fields is
// centralized in the *Or helpers rather than scattered at call sites.

func (w *Writer) mergeGame(existing, incoming *model.Game, snap *model.GameSnapshot, updates []model.TradeStatusUpdate, rec *model.ChangeRecord) *model.Game {
	prev := model.Game{}
	if existing != nil {
		prev = *existing
	}
	var s model.GameSnapshot
	if snap != nil {
		s = *snap
	}

	out := prev
	out.Address = rec.Address
	out.GameID = u64Or(s.GameID, incoming.GameID, prev.GameID)
	out.Authority = strOr(s.Authority, incoming.Authority, prev.Authority)
	out.MaxPlayers = intOr(s.MaxPlayers, incoming.MaxPlayers, prev.MaxPlayers)
	out.CurrentPlayers = intOr(s.CurrentPlayers, incoming.CurrentPlayers, prev.CurrentPlayers)
	out.CurrentTurn = intOr(s.CurrentTurn, incoming.CurrentTurn, prev.CurrentTurn)
	out.BankBalance = i64Or(s.BankBalance, incoming.BankBalance, prev.BankBalance)
	out.FreeParkingPool = i64Or(s.FreeParkingPool, incoming.FreeParkingPool, prev.FreeParkingPool)
	out.HousesRemaining = intOr(s.HousesRemaining, incoming.HousesRemaining, prev.HousesRemaining)
	out.HotelsRemaining = intOr(s.HotelsRemaining, incoming.HotelsRemaining, prev.HotelsRemaining)
	out.EntryFee = i64Or(s.EntryFee, incoming.EntryFee, prev.EntryFee)
	out.TotalPrizePool = i64Or(s.TotalPrizePool, incoming.TotalPrizePool, prev.TotalPrizePool)
	out.TokenMint = strOr(s.TokenMint, incoming.TokenMint, prev.TokenMint)
	out.TokenVault = strOr(s.TokenVault, incoming.TokenVault, prev.TokenVault)
	out.PrizeClaimed = boolOr(s.PrizeClaimed, incoming.PrizeClaimed, prev.PrizeClaimed)

	switch {
	case snap != nil && len(s.Players) > 0:
		out.Players = s.Players
	case len(incoming.Players) > 0:
		out.Players = incoming.Players
	}
	switch {
	case s.Status != nil:
		out.Status = *s.Status
	case incoming.Status != "":
		out.Status = incoming.Status
	}
	switch {
	case s.Winner != nil:
		out.Winner = s.Winner
	case incoming.Winner != nil:
		out.Winner = incoming.Winner
	}

	// Incoming first, canonical active trades override.
	incomingActive := append(append([]model.Trade{}, incoming.ActiveTrades...), s.ActiveTrades...)
	out.Trades, out.ActiveTrades = w.mergeTrades(rec.Address, prev.Trades, incomingActive, updates)

	stamp(&out.CreatedSlot, &out.UpdatedSlot, &out.LastSignature,
		&out.AccountCreatedAt, &out.AccountUpdatedAt, s.Slot, rec)
	return &out
}

// mergeTrades unions the previously persisted trade list with the incoming
// active-trade list by trade address, then applies status updates last.
// A status update that matches no merged entry is skipped with a warning,
// never creating a trade on its own.
func (w *Writer) mergeTrades(gameAddress string, existingTrades, incomingActive []model.Trade, updates []model.TradeStatusUpdate) ([]model.Trade, []model.Trade) {
	keyOf := func(t *model.Trade) string {
		if t.Address != "" {
			return t.Address
		}
		return model.TradeKey(gameAddress, t.TradeID)
	}

	merged := make(map[string]model.Trade, len(existingTrades)+len(incomingActive))
	for _, t := range existingTrades {
		merged[keyOf(&t)] = t
	}
	for _, t := range incomingActive {
		key := keyOf(&t)
		if cur, ok := merged[key]; ok {
			overrideTrade(&cur, &t)
			merged[key] = cur
		} else {
			merged[key] = t
		}
	}

	closed := make(map[string]bool)
	for _, u := range updates {
		key, ok := findTradeKey(merged, gameAddress, u.TradeID)
		if !ok {
			w.log.Warn().
				Str("game", gameAddress).
				Uint64("trade_id", u.TradeID).
				Str("status", string(u.Status)).
				Msg("status update references unknown trade, skipping")
			continue
		}
		t := merged[key]
		t.Status = u.Status
		if u.Slot > 0 {
			t.UpdatedSlot = u.Slot
		}
		if u.Signature != "" {
			t.LastSignature = u.Signature
		}
		merged[key] = t
		// Any trade named by a status-update batch counts as just-closed for
		// this cycle, even when the new status is still Pending.
		closed[key] = true
	}

	trades := make([]model.Trade, 0, len(merged))
	for _, t := range merged {
		trades = append(trades, t)
	}
	sort.Slice(trades, func(i, j int) bool {
		if trades[i].CreatedAt != trades[j].CreatedAt {
			return trades[i].CreatedAt < trades[j].CreatedAt
		}
		return trades[i].TradeID < trades[j].TradeID
	})

	active := make([]model.Trade, 0)
	for _, t := range trades {
		if t.Status == model.TradePending && !closed[keyOf(&t)] {
			active = append(active, t)
		}
	}
	return trades, active
}

// findTradeKey resolves a trade id to its map key, trying the derived key
// before scanning for entries stored under an explicit address.
func findTradeKey(merged map[string]model.Trade, gameAddress string, tradeID uint64) (string, bool) {
	derived := model.TradeKey(gameAddress, tradeID)
	if _, ok := merged[derived]; ok {
		return derived, true
	}
	for key, t := range merged {
		if t.TradeID == tradeID {
			return key, true
		}
	}
	return "", false
}

// overrideTrade shallow-copies fields present on src onto dst.
func overrideTrade(dst, src *model.Trade) {
	if src.Address != "" {
		dst.Address = src.Address
	}
	if src.Game != "" {
		dst.Game = src.Game
	}
	if src.TradeID != 0 {
		dst.TradeID = src.TradeID
	}
	if src.Proposer != "" {
		dst.Proposer = src.Proposer
	}
	if src.Receiver != "" {
		dst.Receiver = src.Receiver
	}
	if src.TradeType != "" {
		dst.TradeType = src.TradeType
	}
	if src.ProposerMoney != 0 {
		dst.ProposerMoney = src.ProposerMoney
	}
	if src.ReceiverMoney != 0 {
		dst.ReceiverMoney = src.ReceiverMoney
	}
	if src.ProposerProperty != nil {
		dst.ProposerProperty = src.ProposerProperty
	}
	if src.ReceiverProperty != nil {
		dst.ReceiverProperty = src.ReceiverProperty
	}
	if src.Status != "" {
		dst.Status = src.Status
	}
	if src.CreatedAt != 0 {
		dst.CreatedAt = src.CreatedAt
	}
	if src.ExpiresAt != 0 {
		dst.ExpiresAt = src.ExpiresAt
	}
	if src.UpdatedSlot != 0 {
		dst.UpdatedSlot = src.UpdatedSlot
	}
	if src.LastSignature != "" {
		dst.LastSignature = src.LastSignature
	}
}

// mergePlayer prefers canonical snapshot values, then previously persisted
// values, then the change record's own extracted values, then kind defaults.
// propertiesOwned is the union of the canonical positions, positions forced
// via property-ownership cross-reference, the persisted set, and the
// record's set.
func (w *Writer) mergePlayer(existing, incoming *model.Player, snap *model.PlayerSnapshot, forced []int, rec *model.ChangeRecord) *model.Player {
	prev := model.Player{}
	if existing != nil {
		prev = *existing
	}
	inc := model.Player{}
	if incoming != nil {
		inc = *incoming
	}
	var s model.PlayerSnapshot
	if snap != nil {
		s = *snap
	}

	out := prev
	out.Wallet = strOr(s.Wallet, prev.Wallet, inc.Wallet)
	out.Game = strOr(s.Game, prev.Game, inc.Game)
	out.CashBalance = i64Or(s.CashBalance, prev.CashBalance, inc.CashBalance)
	out.NetWorth = i64Or(s.NetWorth, prev.NetWorth, inc.NetWorth)
	out.Position = intOr(s.Position, prev.Position, inc.Position)
	out.InJail = boolOr(s.InJail, prev.InJail, inc.InJail)
	out.JailTurns = intOr(s.JailTurns, prev.JailTurns, inc.JailTurns)
	out.DoublesCount = intOr(s.DoublesCount, prev.DoublesCount, inc.DoublesCount)
	out.IsBankrupt = boolOr(s.IsBankrupt, prev.IsBankrupt, inc.IsBankrupt)
	out.GetOutOfJailCards = intOr(s.GetOutOfJailCards, prev.GetOutOfJailCards, inc.GetOutOfJailCards)
	out.PropertiesOwned = unionPositions(s.PropertiesOwned, forced, prev.PropertiesOwned, inc.PropertiesOwned)

	out.NeedsPropertyAction = boolOr(s.NeedsPropertyAction, prev.NeedsPropertyAction, inc.NeedsPropertyAction)
	out.NeedsChanceCard = boolOr(s.NeedsChanceCard, prev.NeedsChanceCard, inc.NeedsChanceCard)
	out.NeedsCommunityChestCard = boolOr(s.NeedsCommunityChestCard, prev.NeedsCommunityChestCard, inc.NeedsCommunityChestCard)
	out.NeedsBankruptcyCheck = boolOr(s.NeedsBankruptcyCheck, prev.NeedsBankruptcyCheck, inc.NeedsBankruptcyCheck)
	out.NeedsSpecialSpaceAction = boolOr(s.NeedsSpecialSpaceAction, prev.NeedsSpecialSpaceAction, inc.NeedsSpecialSpaceAction)
	out.HasRolledDice = boolOr(s.HasRolledDice, prev.HasRolledDice, inc.HasRolledDice)
	switch {
	case s.PendingPropertyPosition != nil:
		out.PendingPropertyPosition = s.PendingPropertyPosition
	case out.PendingPropertyPosition == nil:
		out.PendingPropertyPosition = inc.PendingPropertyPosition
	}
	switch {
	case s.PendingSpecialSpacePosition != nil:
		out.PendingSpecialSpacePosition = s.PendingSpecialSpacePosition
	case out.PendingSpecialSpacePosition == nil:
		out.PendingSpecialSpacePosition = inc.PendingSpecialSpacePosition
	}
	switch {
	case s.LastDiceRoll != nil:
		out.LastDiceRoll = *s.LastDiceRoll
	case out.LastDiceRoll == [2]int{}:
		out.LastDiceRoll = inc.LastDiceRoll
	}
	switch {
	case s.CardDrawnAt != nil:
		out.CardDrawnAt = s.CardDrawnAt
	case out.CardDrawnAt == nil:
		out.CardDrawnAt = inc.CardDrawnAt
	}

	if out.Address == "" {
		out.Address = strOr(nil, s.Address, inc.Address)
	}

	stamp(&out.CreatedSlot, &out.UpdatedSlot, &out.LastSignature,
		&out.AccountCreatedAt, &out.AccountUpdatedAt, s.Slot, rec)
	return &out
}

// mergeProperty replaces fields wholesale from the canonical snapshot when
// the fetch succeeded; properties carry no nested collections to union.
func (w *Writer) mergeProperty(incoming *model.Property, snap *model.PropertySnapshot, rec *model.ChangeRecord) *model.Property {
	out := *incoming
	out.Address = rec.Address

	var s model.PropertySnapshot
	if snap != nil {
		s = *snap
	}
	out.Game = strOr(s.Game, incoming.Game)
	out.Position = intOr(s.Position, incoming.Position)
	if s.Owner != nil {
		out.Owner = s.Owner
	}
	out.Price = i64Or(s.Price, incoming.Price)
	out.ColorGroup = strOr(s.ColorGroup, incoming.ColorGroup)
	out.PropertyType = strOr(s.PropertyType, incoming.PropertyType)
	out.Houses = intOr(s.Houses, incoming.Houses)
	out.HasHotel = boolOr(s.HasHotel, incoming.HasHotel)
	out.IsMortgaged = boolOr(s.IsMortgaged, incoming.IsMortgaged)
	out.RentBase = i64Or(s.RentBase, incoming.RentBase)
	out.RentWithColorGroup = i64Or(s.RentWithColorGroup, incoming.RentWithColorGroup)
	out.RentWithHotel = i64Or(s.RentWithHotel, incoming.RentWithHotel)
	out.HouseCost = i64Or(s.HouseCost, incoming.HouseCost)
	out.MortgageValue = i64Or(s.MortgageValue, incoming.MortgageValue)
	if s.LastRentPaid != nil {
		out.LastRentPaid = *s.LastRentPaid
	}
	if len(s.RentWithHouses) > 0 {
		out.RentWithHouses = s.RentWithHouses
	}
	out.RentWithHouses = normalizeRentTiers(out.RentWithHouses)

	stamp(&out.CreatedSlot, &out.UpdatedSlot, &out.LastSignature,
		&out.AccountCreatedAt, &out.AccountUpdatedAt, s.Slot, rec)
	return &out
}

func (w *Writer) mergeTrade(incoming *model.Trade, rec *model.ChangeRecord) *model.Trade {
	out := *incoming
	out.Address = rec.Address
	if out.Status == "" {
		out.Status = model.TradePending
	}
	stamp(&out.CreatedSlot, &out.UpdatedSlot, &out.LastSignature,
		&out.AccountCreatedAt, &out.AccountUpdatedAt, 0, rec)
	return &out
}

func (w *Writer) mergePlatform(incoming *model.PlatformConfig, snap *model.PlatformSnapshot, rec *model.ChangeRecord) *model.PlatformConfig {
	out := *incoming
	out.Address = rec.Address

	var s model.PlatformSnapshot
	if snap != nil {
		s = *snap
	}
	out.Authority = strOr(s.Authority, incoming.Authority)
	out.FeeBasisPoints = intOr(s.FeeBasisPoints, incoming.FeeBasisPoints)
	out.FeeVault = strOr(s.FeeVault, incoming.FeeVault)
	out.TotalGames = u64Or(s.TotalGames, incoming.TotalGames)
	out.Paused = boolOr(s.Paused, incoming.Paused)

	stamp(&out.CreatedSlot, &out.UpdatedSlot, &out.LastSignature,
		&out.AccountCreatedAt, &out.AccountUpdatedAt, s.Slot, rec)
	return &out
}

// stamp applies the slot and timestamp bookkeeping shared by all entities:
// updatedSlot mirrors the fetched snapshot's slot when available, createdSlot
// and accountCreatedAt are write-once, accountUpdatedAt always refreshes.
func stamp(createdSlot, updatedSlot *uint64, lastSig *string, createdAt, updatedAt *time.Time, snapSlot uint64, rec *model.ChangeRecord) {
	slot := rec.Slot
	if snapSlot > 0 {
		slot = snapSlot
	}
	if slot > 0 {
		*updatedSlot = slot
	}
	if *createdSlot == 0 {
		*createdSlot = slot
	}
	if rec.Signature != "" {
		*lastSig = rec.Signature
	}

	now := timeNow()
	if createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = now
}

// unionPositions merges position sets, deduplicated and sorted ascending.
func unionPositions(sets ...[]int) []int {
	seen := make(map[int]bool)
	out := make([]int, 0)
	for _, set := range sets {
		for _, p := range set {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	sort.Ints(out)
	return out
}

// normalizeRentTiers pads or truncates the house-rent tiers to exactly 4.
func normalizeRentTiers(tiers []int64) []int64 {
	out := make([]int64, 4)
	copy(out, tiers)
	return out
}

func strOr(canonical *string, fallbacks ...string) string {
	if canonical != nil && *canonical != "" {
		return *canonical
	}
	for _, f := range fallbacks {
		if f != "" {
			return f
		}
	}
	return ""
}

func intOr(canonical *int, fallbacks ...int) int {
	if canonical != nil {
		return *canonical
	}
	for _, f := range fallbacks {
		if f != 0 {
			return f
		}
	}
	return 0
}

func i64Or(canonical *int64, fallbacks ...int64) int64 {
	if canonical != nil {
		return *canonical
	}
	for _, f := range fallbacks {
		if f != 0 {
			return f
		}
	}
	return 0
}

func u64Or(canonical *uint64, fallbacks ...uint64) uint64 {
	if canonical != nil {
		return *canonical
	}
	for _, f := range fallbacks {
		if f != 0 {
			return f
		}
	}
	return 0
}

func boolOr(canonical *bool, fallbacks ...bool) bool {
	if canonical != nil {
		return *canonical
	}
	for _, f := range fallbacks {
		if f {
			return true
		}
	}
	return false
}
