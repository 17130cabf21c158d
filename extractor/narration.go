package extractor

import (
	"strconv"
	"strings"

	"github.com/WeShipHQ/panda-monopoly-indexer/model"
)

// Free-text program narration spreads one event's fields across several
// lines: the phrase line opens the event and a bounded lookahead window
// supplies the correlated fields, e.g.
//
//	Program log: Init property 23 for game CziCwe...
//	Program log: property: 7xKXtg2CW87d97TXJSDpbD5jBkheTqA8...
//
// If the window closes without all mandatory fields the event is dropped.

func (e *Extractor) matchNarration(line string, rest []string, tx model.TransactionMeta) ([]model.ChangeRecord, bool) {
	lower := strings.ToLower(line)

	switch {
	case strings.Contains(line, "Initialize Game"):
		return e.narrateInitGame(line, rest, tx)
	case strings.Contains(lower, "join game"):
		return e.narrateJoinGame(line, rest, tx)
	case strings.Contains(line, "Init property "):
		return e.narrateInitProperty(line, rest, tx)
	case strings.Contains(line, "Trade created by "):
		return e.narrateTradeCreated(line, rest, tx)
	case tradeStatusFromLine(line) != "":
		return e.narrateTradeStatus(line, rest, tx)
	case strings.Contains(line, "Initialize Platform"):
		return e.narrateInitPlatform(line, rest, tx)
	}
	return nil, false
}

func (e *Extractor) narrateInitGame(line string, rest []string, tx model.TransactionMeta) ([]model.ChangeRecord, bool) {
	fields := harvest(window(rest))
	gameAddr := fields["game"]
	if gameAddr == "" {
		e.drop("init_game_missing_address", line)
		return nil, false
	}

	g := &model.Game{
		Address:         gameAddr,
		Authority:       valueOr(fields, "authority", "UNKNOWN"),
		MaxPlayers:      atoi(fields["maxPlayers"]),
		Status:          model.GameWaitingForPlayers,
		EntryFee:        atoi64(fields["entryFee"]),
		HousesRemaining: 32,
		HotelsRemaining: 12,
		TokenMint:       fields["mint"],
		TokenVault:      fields["vault"],
	}
	return []model.ChangeRecord{{
		Kind:      model.KindGame,
		Address:   gameAddr,
		Signature: tx.Signature,
		Slot:      tx.Slot,
		Game:      g,
	}}, true
}

func (e *Extractor) narrateJoinGame(line string, rest []string, tx model.TransactionMeta) ([]model.ChangeRecord, bool) {
	fields := harvest(window(rest))
	gameAddr := fields["game"]
	wallet := fields["player"]
	if wallet == "" {
		wallet = fields["wallet"]
	}
	if gameAddr == "" || wallet == "" {
		e.drop("join_game_missing_fields", line)
		return nil, false
	}

	records := []model.ChangeRecord{{
		Kind:      model.KindGame,
		Address:   gameAddr,
		Signature: tx.Signature,
		Slot:      tx.Slot,
		Game: &model.Game{
			Address: gameAddr,
			Players: []string{wallet},
		},
	}}

	// A roster change also touches the joining player's sub-entity when the
	// program logged its address.
	if playerAddr := fields["account"]; playerAddr != "" {
		records = append(records, model.ChangeRecord{
			Kind:      model.KindPlayer,
			Address:   playerAddr,
			Signature: tx.Signature,
			Slot:      tx.Slot,
			Player: &model.Player{
				Address: playerAddr,
				Wallet:  wallet,
				Game:    gameAddr,
			},
		})
	}
	return records, true
}

func (e *Extractor) narrateInitProperty(line string, rest []string, tx model.TransactionMeta) ([]model.ChangeRecord, bool) {
	// Trigger shape: "Init property <position> for game <address>"
	position, posOK := tokenAfter(line, "property")
	gameAddr, _ := tokenAfterString(line, "game")
	if !posOK {
		e.drop("init_property_missing_position", line)
		return nil, false
	}

	fields := harvest(window(rest))
	propAddr := fields["property"]
	if propAddr == "" {
		e.drop("init_property_missing_address", line)
		return nil, false
	}

	p := &model.Property{
		Address:  propAddr,
		Game:     gameAddr,
		Position: position,
	}
	applyBoardDefaults(p)

	return []model.ChangeRecord{{
		Kind:      model.KindProperty,
		Address:   propAddr,
		Signature: tx.Signature,
		Slot:      tx.Slot,
		Property:  p,
	}}, true
}

func (e *Extractor) narrateTradeCreated(line string, rest []string, tx model.TransactionMeta) ([]model.ChangeRecord, bool) {
	// Trigger shape: "Trade created by <proposer> for player <receiver>"
	proposer, _ := tokenAfterString(line, "by")
	receiver, _ := tokenAfterString(line, "player")

	fields := harvest(window(rest))
	tradeAddr := fields["trade"]
	gameAddr := fields["game"]
	if tradeAddr == "" || gameAddr == "" {
		e.drop("trade_created_missing_fields", line)
		return nil, false
	}

	t := &model.Trade{
		Address:   tradeAddr,
		Game:      gameAddr,
		TradeID:   uatoi(fields["tradeId"]),
		Proposer:  orUnknown(proposer),
		Receiver:  orUnknown(receiver),
		TradeType: fields["tradeType"],
		Status:    model.TradePending,
		CreatedAt: atoi64(fields["timestamp"]),
		ExpiresAt: atoi64(fields["expiresAt"]),
	}
	return []model.ChangeRecord{{
		Kind:      model.KindTrade,
		Address:   tradeAddr,
		Signature: tx.Signature,
		Slot:      tx.Slot,
		Trade:     t,
	}}, true
}

func (e *Extractor) narrateTradeStatus(line string, rest []string, tx model.TransactionMeta) ([]model.ChangeRecord, bool) {
	// Trigger shape: "Trade <id> accepted" (or rejected/cancelled/expired)
	status := tradeStatusFromLine(line)
	id, idOK := tokenAfter(line, "Trade")
	if !idOK {
		e.drop("trade_status_missing_id", line)
		return nil, false
	}

	fields := harvest(window(rest))
	gameAddr := fields["game"]
	if gameAddr == "" {
		e.drop("trade_status_missing_game", line)
		return nil, false
	}

	return []model.ChangeRecord{{
		Kind:      model.KindGame,
		Address:   gameAddr,
		Signature: tx.Signature,
		Slot:      tx.Slot,
		Game:      &model.Game{Address: gameAddr},
		TradeUpdates: []model.TradeStatusUpdate{{
			TradeID:   uint64(id),
			Status:    status,
			Signature: tx.Signature,
			Slot:      tx.Slot,
		}},
	}}, true
}

func (e *Extractor) narrateInitPlatform(line string, rest []string, tx model.TransactionMeta) ([]model.ChangeRecord, bool) {
	fields := harvest(window(rest))
	addr := fields["config"]
	if addr == "" {
		e.drop("init_platform_missing_address", line)
		return nil, false
	}

	return []model.ChangeRecord{{
		Kind:      model.KindPlatformConfig,
		Address:   addr,
		Signature: tx.Signature,
		Slot:      tx.Slot,
		PlatformConfig: &model.PlatformConfig{
			Address:   addr,
			Authority: valueOr(fields, "authority", "UNKNOWN"),
			FeeVault:  fields["feeVault"],
		},
	}}, true
}

func tradeStatusFromLine(line string) model.TradeStatus {
	if !strings.HasPrefix(strings.TrimPrefix(line, "Program log: "), "Trade ") {
		return ""
	}
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "accepted"):
		return model.TradeAccepted
	case strings.Contains(lower, "rejected"):
		return model.TradeRejected
	case strings.Contains(lower, "cancelled"):
		return model.TradeCancelled
	case strings.Contains(lower, "expired"):
		return model.TradeExpired
	}
	return ""
}

// harvest scans window lines for "<label>: <value>" tokens and collects the
// first value seen per label.
func harvest(lines []string) map[string]string {
	fields := make(map[string]string)
	for _, line := range lines {
		tokens := strings.Fields(line)
		for i := 0; i+1 < len(tokens); i++ {
			label, ok := strings.CutSuffix(tokens[i], ":")
			if !ok || label == "" {
				continue
			}
			if _, seen := fields[label]; seen {
				continue
			}
			fields[label] = strings.TrimRight(tokens[i+1], ".,")
		}
	}
	return fields
}

// tokenAfter returns the integer token immediately following the given word.
func tokenAfter(line, word string) (int, bool) {
	v, ok := tokenAfterString(line, word)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// tokenAfterString returns the token immediately following the given word.
func tokenAfterString(line, word string) (string, bool) {
	tokens := strings.Fields(line)
	for i := 0; i+1 < len(tokens); i++ {
		if tokens[i] == word {
			return strings.TrimRight(tokens[i+1], ".,"), true
		}
	}
	return "", false
}

func valueOr(fields map[string]string, key, def string) string {
	if v := fields[key]; v != "" {
		return v
	}
	return def
}

func orUnknown(v string) string {
	if v == "" {
		return "UNKNOWN"
	}
	return v
}

func atoi(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func atoi64(v string) int64 {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func uatoi(v string) uint64 {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
