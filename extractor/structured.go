package extractor

import (
	"strconv"
	"strings"

	"github.com/WeShipHQ/panda-monopoly-indexer/board"
	"github.com/WeShipHQ/panda-monopoly-indexer/model"
)

// Structured instrumentation lines carry whitespace separated key=value
// pairs, e.g.
//
//	panda_event kind=player address=7xKX... wallet=9aQw... cashBalance=1500 position=12
//
// Missing fields default to zero/empty/"UNKNOWN". When no explicit address
// key is present the builder falls back to a positional guess against the
// transaction's account keys.

// kindAccountIndex is the positional account-key fallback per entity kind.
// Index 0 is the fee payer, so entity accounts start at 1.
var kindAccountIndex = map[model.RecordKind]int{
	model.KindGame:           1,
	model.KindPlayer:         2,
	model.KindProperty:       2,
	model.KindTrade:          2,
	model.KindPlatformConfig: 1,
}

func (e *Extractor) buildStructured(rest string, tx model.TransactionMeta) (model.ChangeRecord, bool) {
	fields := parseKV(rest)

	kind := model.RecordKind(fields["kind"])
	switch kind {
	case model.KindGame, model.KindPlayer, model.KindProperty, model.KindTrade, model.KindPlatformConfig:
	default:
		e.drop("unknown_kind", rest)
		return model.ChangeRecord{}, false
	}

	address := fields["address"]
	if address == "" {
		if idx, ok := kindAccountIndex[kind]; ok && idx < len(tx.AccountKeys) {
			address = tx.AccountKeys[idx]
		}
	}
	if address == "" {
		e.drop("missing_address", rest)
		return model.ChangeRecord{}, false
	}

	rec := model.ChangeRecord{
		Kind:      kind,
		Address:   address,
		Signature: tx.Signature,
		Slot:      tx.Slot,
	}

	switch kind {
	case model.KindGame:
		rec.Game = buildGame(address, fields)
		rec.TradeUpdates = buildTradeUpdates(fields, tx)
	case model.KindPlayer:
		rec.Player = buildPlayer(address, fields)
	case model.KindProperty:
		rec.Property = buildProperty(address, fields)
	case model.KindTrade:
		rec.Trade = buildTrade(address, fields)
	case model.KindPlatformConfig:
		rec.PlatformConfig = buildPlatform(address, fields)
	}

	return rec, true
}

func buildGame(address string, f map[string]string) *model.Game {
	g := &model.Game{
		Address:         address,
		GameID:          kvUint(f, "gameId"),
		Authority:       kvStrDefault(f, "authority", "UNKNOWN"),
		MaxPlayers:      kvInt(f, "maxPlayers"),
		CurrentPlayers:  kvInt(f, "currentPlayers"),
		CurrentTurn:     kvInt(f, "currentTurn"),
		Players:         kvStrList(f, "players"),
		Status:          model.GameStatus(kvStrDefault(f, "status", string(model.GameWaitingForPlayers))),
		BankBalance:     kvInt64(f, "bankBalance"),
		FreeParkingPool: kvInt64(f, "freeParkingPool"),
		HousesRemaining: kvInt(f, "housesRemaining"),
		HotelsRemaining: kvInt(f, "hotelsRemaining"),
		EntryFee:        kvInt64(f, "entryFee"),
		TotalPrizePool:  kvInt64(f, "totalPrizePool"),
		TokenMint:       f["tokenMint"],
		TokenVault:      f["tokenVault"],
		PrizeClaimed:    kvBool(f, "prizeClaimed"),
	}
	if w := f["winner"]; w != "" {
		g.Winner = &w
	}
	return g
}

func buildPlayer(address string, f map[string]string) *model.Player {
	p := &model.Player{
		Address:           address,
		Wallet:            kvStrDefault(f, "wallet", "UNKNOWN"),
		Game:              f["game"],
		CashBalance:       kvInt64(f, "cashBalance"),
		NetWorth:          kvInt64(f, "netWorth"),
		Position:          kvInt(f, "position"),
		InJail:            kvBool(f, "inJail"),
		JailTurns:         kvInt(f, "jailTurns"),
		DoublesCount:      kvInt(f, "doublesCount"),
		IsBankrupt:        kvBool(f, "isBankrupt"),
		PropertiesOwned:   kvIntList(f, "propertiesOwned"),
		GetOutOfJailCards: kvInt(f, "getOutOfJailCards"),

		NeedsPropertyAction:     kvBool(f, "needsPropertyAction"),
		NeedsChanceCard:         kvBool(f, "needsChanceCard"),
		NeedsCommunityChestCard: kvBool(f, "needsCommunityChestCard"),
		NeedsBankruptcyCheck:    kvBool(f, "needsBankruptcyCheck"),
		NeedsSpecialSpaceAction: kvBool(f, "needsSpecialSpaceAction"),
		HasRolledDice:           kvBool(f, "hasRolledDice"),
	}
	if v, ok := f["pendingPropertyPosition"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			p.PendingPropertyPosition = &n
		}
	}
	if v, ok := f["pendingSpecialSpacePosition"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			p.PendingSpecialSpacePosition = &n
		}
	}
	if dice := kvIntList(f, "lastDiceRoll"); len(dice) == 2 {
		p.LastDiceRoll = [2]int{dice[0], dice[1]}
	}
	return p
}

func buildProperty(address string, f map[string]string) *model.Property {
	position := kvInt(f, "position")
	p := &model.Property{
		Address:            address,
		Game:               f["game"],
		Position:           position,
		Price:              kvInt64(f, "price"),
		ColorGroup:         f["colorGroup"],
		PropertyType:       f["propertyType"],
		Houses:             kvInt(f, "houses"),
		HasHotel:           kvBool(f, "hasHotel"),
		IsMortgaged:        kvBool(f, "isMortgaged"),
		RentBase:           kvInt64(f, "rentBase"),
		RentWithColorGroup: kvInt64(f, "rentWithColorGroup"),
		RentWithHouses:     kvInt64List(f, "rentWithHouses"),
		RentWithHotel:      kvInt64(f, "rentWithHotel"),
		HouseCost:          kvInt64(f, "houseCost"),
		MortgageValue:      kvInt64(f, "mortgageValue"),
		LastRentPaid:       kvUint(f, "lastRentPaid"),
	}
	if o := f["owner"]; o != "" && o != "null" {
		p.Owner = &o
	}
	applyBoardDefaults(p)
	return p
}

func buildTrade(address string, f map[string]string) *model.Trade {
	t := &model.Trade{
		Address:       address,
		Game:          f["game"],
		TradeID:       kvUint(f, "tradeId"),
		Proposer:      kvStrDefault(f, "proposer", "UNKNOWN"),
		Receiver:      kvStrDefault(f, "receiver", "UNKNOWN"),
		TradeType:     f["tradeType"],
		ProposerMoney: kvInt64(f, "proposerMoney"),
		ReceiverMoney: kvInt64(f, "receiverMoney"),
		Status:        model.TradeStatus(kvStrDefault(f, "status", string(model.TradePending))),
		CreatedAt:     kvInt64(f, "createdAt"),
		ExpiresAt:     kvInt64(f, "expiresAt"),
	}
	if v, ok := f["proposerProperty"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			t.ProposerProperty = &n
		}
	}
	if v, ok := f["receiverProperty"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			t.ReceiverProperty = &n
		}
	}
	return t
}

func buildPlatform(address string, f map[string]string) *model.PlatformConfig {
	return &model.PlatformConfig{
		Address:        address,
		Authority:      kvStrDefault(f, "authority", "UNKNOWN"),
		FeeBasisPoints: kvInt(f, "feeBasisPoints"),
		FeeVault:       f["feeVault"],
		TotalGames:     kvUint(f, "totalGames"),
		Paused:         kvBool(f, "paused"),
	}
}

// buildTradeUpdates picks up a status transition carried on a game line.
func buildTradeUpdates(f map[string]string, tx model.TransactionMeta) []model.TradeStatusUpdate {
	v, ok := f["tradeId"]
	status := f["tradeStatus"]
	if !ok || status == "" {
		return nil
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return nil
	}
	return []model.TradeStatusUpdate{{
		TradeID:   id,
		Status:    model.TradeStatus(status),
		Signature: tx.Signature,
		Slot:      tx.Slot,
	}}
}

// applyBoardDefaults fills economic fields from the board reference table
// when the log did not carry them. New-property initialization typically
// logs only the position.
func applyBoardDefaults(p *model.Property) {
	sq := board.Lookup(p.Position)
	if p.Price == 0 {
		p.Price = sq.Price
	}
	if p.ColorGroup == "" {
		p.ColorGroup = sq.ColorGroup
	}
	if p.PropertyType == "" {
		p.PropertyType = string(sq.Type)
	}
	if p.RentBase == 0 {
		p.RentBase = sq.RentBase
	}
	if p.RentWithColorGroup == 0 {
		p.RentWithColorGroup = sq.RentWithColorGroup
	}
	if len(p.RentWithHouses) == 0 {
		p.RentWithHouses = append([]int64(nil), sq.RentWithHouses...)
	}
	if p.RentWithHotel == 0 {
		p.RentWithHotel = sq.RentWithHotel
	}
	if p.HouseCost == 0 {
		p.HouseCost = sq.HouseCost
	}
	if p.MortgageValue == 0 {
		p.MortgageValue = sq.MortgageValue
	}
	// Rent tiers are always exactly four entries.
	for len(p.RentWithHouses) < 4 {
		p.RentWithHouses = append(p.RentWithHouses, 0)
	}
	p.RentWithHouses = p.RentWithHouses[:4]
}

// parseKV tokenizes a structured line into key/value pairs. Tokens without
// '=' are ignored.
func parseKV(rest string) map[string]string {
	fields := make(map[string]string)
	for _, tok := range strings.Fields(rest) {
		k, v, ok := strings.Cut(tok, "=")
		if !ok || k == "" {
			continue
		}
		fields[k] = v
	}
	return fields
}

func kvStrDefault(f map[string]string, key, def string) string {
	if v := f[key]; v != "" {
		return v
	}
	return def
}

func kvInt(f map[string]string, key string) int {
	n, err := strconv.Atoi(f[key])
	if err != nil {
		return 0
	}
	return n
}

func kvInt64(f map[string]string, key string) int64 {
	n, err := strconv.ParseInt(f[key], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func kvUint(f map[string]string, key string) uint64 {
	n, err := strconv.ParseUint(f[key], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// kvBool derives booleans from the literal substring "true".
func kvBool(f map[string]string, key string) bool {
	return strings.Contains(f[key], "true")
}

// kvStrList parses an embedded serialized list like [A,B,C]. Parse failure
// yields an empty list.
func kvStrList(f map[string]string, key string) []string {
	return parseStrList(f[key])
}

func parseStrList(v string) []string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "[") || !strings.HasSuffix(v, "]") {
		return nil
	}
	inner := strings.Trim(v, "[]")
	if inner == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(inner, ",") {
		item = strings.Trim(item, " \"'")
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func kvIntList(f map[string]string, key string) []int {
	var out []int
	for _, item := range parseStrList(f[key]) {
		n, err := strconv.Atoi(item)
		if err != nil {
			return nil
		}
		out = append(out, n)
	}
	return out
}

func kvInt64List(f map[string]string, key string) []int64 {
	var out []int64
	for _, item := range parseStrList(f[key]) {
		n, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			return nil
		}
		out = append(out, n)
	}
	return out
}
