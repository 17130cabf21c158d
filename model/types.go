package model

import (
	"fmt"
	"time"
)

// RecordKind identifies which entity a change-record describes.
type RecordKind string

const (
	KindGame           RecordKind = "game"
	KindPlayer         RecordKind = "player"
	KindProperty       RecordKind = "property"
	KindTrade          RecordKind = "trade"
	KindPlatformConfig RecordKind = "platformConfig"
)

// GameStatus mirrors the on-chain game lifecycle enum.
type GameStatus string

const (
	GameWaitingForPlayers GameStatus = "WaitingForPlayers"
	GameInProgress        GameStatus = "InProgress"
	GameFinished          GameStatus = "Finished"
)

// TradeStatus mirrors the on-chain trade lifecycle enum.
type TradeStatus string

const (
	TradePending   TradeStatus = "Pending"
	TradeAccepted  TradeStatus = "Accepted"
	TradeRejected  TradeStatus = "Rejected"
	TradeCancelled TradeStatus = "Cancelled"
	TradeExpired   TradeStatus = "Expired"
)

// Game is the persisted aggregate for one game account.
type Game struct {
	Address         string     `json:"address"`
	GameID          uint64     `json:"gameId"`
	Authority       string     `json:"authority"`
	MaxPlayers      int        `json:"maxPlayers"`
	CurrentPlayers  int        `json:"currentPlayers"`
	CurrentTurn     int        `json:"currentTurn"`
	Players         []string   `json:"players"`
	Status          GameStatus `json:"status"`
	BankBalance     int64      `json:"bankBalance"`
	FreeParkingPool int64      `json:"freeParkingPool"`
	HousesRemaining int        `json:"housesRemaining"`
	HotelsRemaining int        `json:"hotelsRemaining"`
	Winner          *string    `json:"winner,omitempty"`
	EntryFee        int64      `json:"entryFee"`
	TotalPrizePool  int64      `json:"totalPrizePool"`
	TokenMint       string     `json:"tokenMint"`
	TokenVault      string     `json:"tokenVault"`
	PrizeClaimed    bool       `json:"prizeClaimed"`
	Trades          TradeList  `json:"trades"`
	ActiveTrades    TradeList  `json:"activeTrades"`

	CreatedSlot      uint64    `json:"createdSlot"`
	UpdatedSlot      uint64    `json:"updatedSlot"`
	LastSignature    string    `json:"lastSignature"`
	AccountCreatedAt time.Time `json:"accountCreatedAt"`
	AccountUpdatedAt time.Time `json:"accountUpdatedAt"`
}

// Player is the persisted per-player state for one game.
type Player struct {
	Address       string `json:"address"`
	Wallet        string `json:"wallet"`
	Game          string `json:"game"`
	CashBalance   int64  `json:"cashBalance"`
	NetWorth      int64  `json:"netWorth"`
	Position      int    `json:"position"`
	InJail        bool   `json:"inJail"`
	JailTurns     int    `json:"jailTurns"`
	DoublesCount  int    `json:"doublesCount"`
	IsBankrupt    bool   `json:"isBankrupt"`
	PropertiesOwned   []int  `json:"propertiesOwned"`
	GetOutOfJailCards int    `json:"getOutOfJailCards"`

	NeedsPropertyAction         bool       `json:"needsPropertyAction"`
	PendingPropertyPosition     *int       `json:"pendingPropertyPosition,omitempty"`
	NeedsChanceCard             bool       `json:"needsChanceCard"`
	NeedsCommunityChestCard     bool       `json:"needsCommunityChestCard"`
	NeedsBankruptcyCheck        bool       `json:"needsBankruptcyCheck"`
	NeedsSpecialSpaceAction     bool       `json:"needsSpecialSpaceAction"`
	PendingSpecialSpacePosition *int       `json:"pendingSpecialSpacePosition,omitempty"`
	HasRolledDice               bool       `json:"hasRolledDice"`
	LastDiceRoll                [2]int     `json:"lastDiceRoll"`
	CardDrawnAt                 *time.Time `json:"cardDrawnAt,omitempty"`

	CreatedSlot      uint64    `json:"createdSlot"`
	UpdatedSlot      uint64    `json:"updatedSlot"`
	LastSignature    string    `json:"lastSignature"`
	AccountCreatedAt time.Time `json:"accountCreatedAt"`
	AccountUpdatedAt time.Time `json:"accountUpdatedAt"`
}

// Property is the persisted state of one board position within a game.
type Property struct {
	Address            string  `json:"address"`
	Game               string  `json:"game"`
	Position           int     `json:"position"`
	Owner              *string `json:"owner,omitempty"`
	Price              int64   `json:"price"`
	ColorGroup         string  `json:"colorGroup"`
	PropertyType       string  `json:"propertyType"`
	Houses             int     `json:"houses"`
	HasHotel           bool    `json:"hasHotel"`
	IsMortgaged        bool    `json:"isMortgaged"`
	RentBase           int64   `json:"rentBase"`
	RentWithColorGroup int64   `json:"rentWithColorGroup"`
	RentWithHouses     []int64 `json:"rentWithHouses"`
	RentWithHotel      int64   `json:"rentWithHotel"`
	HouseCost          int64   `json:"houseCost"`
	MortgageValue      int64   `json:"mortgageValue"`
	LastRentPaid       uint64  `json:"lastRentPaid"`

	CreatedSlot      uint64    `json:"createdSlot"`
	UpdatedSlot      uint64    `json:"updatedSlot"`
	LastSignature    string    `json:"lastSignature"`
	AccountCreatedAt time.Time `json:"accountCreatedAt"`
	AccountUpdatedAt time.Time `json:"accountUpdatedAt"`
}

// Trade is embedded in Game.Trades and also independently addressable.
type Trade struct {
	Address          string      `json:"address"`
	Game             string      `json:"game"`
	TradeID          uint64      `json:"tradeId"`
	Proposer         string      `json:"proposer"`
	Receiver         string      `json:"receiver"`
	TradeType        string      `json:"tradeType"`
	ProposerMoney    int64       `json:"proposerMoney"`
	ReceiverMoney    int64       `json:"receiverMoney"`
	ProposerProperty *int        `json:"proposerProperty,omitempty"`
	ReceiverProperty *int        `json:"receiverProperty,omitempty"`
	Status           TradeStatus `json:"status"`
	CreatedAt        int64       `json:"createdAt"`
	ExpiresAt        int64       `json:"expiresAt"`

	CreatedSlot      uint64    `json:"createdSlot"`
	UpdatedSlot      uint64    `json:"updatedSlot"`
	LastSignature    string    `json:"lastSignature"`
	AccountCreatedAt time.Time `json:"accountCreatedAt"`
	AccountUpdatedAt time.Time `json:"accountUpdatedAt"`
}

// PlatformConfig is the persisted program-level configuration account.
type PlatformConfig struct {
	Address      string `json:"address"`
	Authority    string `json:"authority"`
	FeeBasisPoints int  `json:"feeBasisPoints"`
	FeeVault     string `json:"feeVault"`
	TotalGames   uint64 `json:"totalGames"`
	Paused       bool   `json:"paused"`

	CreatedSlot      uint64    `json:"createdSlot"`
	UpdatedSlot      uint64    `json:"updatedSlot"`
	LastSignature    string    `json:"lastSignature"`
	AccountCreatedAt time.Time `json:"accountCreatedAt"`
	AccountUpdatedAt time.Time `json:"accountUpdatedAt"`
}

// TradeStatusUpdate is a status transition observed in the logs, applied to an
// already-merged trade entry. It never creates a trade by itself.
type TradeStatusUpdate struct {
	TradeID   uint64      `json:"tradeId"`
	Status    TradeStatus `json:"status"`
	Signature string      `json:"signature,omitempty"`
	Slot      uint64      `json:"slot,omitempty"`
}

// ChangeRecord is one typed, minimally-populated observed event produced by
// the extractor. Exactly one of the payload fields matching Kind is set.
type ChangeRecord struct {
	Kind      RecordKind `json:"kind"`
	Address   string     `json:"address"`
	Signature string     `json:"signature"`
	Slot      uint64     `json:"slot"`

	Game           *Game           `json:"game,omitempty"`
	Player         *Player         `json:"player,omitempty"`
	Property       *Property       `json:"property,omitempty"`
	Trade          *Trade          `json:"trade,omitempty"`
	PlatformConfig *PlatformConfig `json:"platformConfig,omitempty"`

	// TradeUpdates piggybacks status transitions on a game record so the
	// merge step can close them in the same cycle.
	TradeUpdates []TradeStatusUpdate `json:"tradeUpdates,omitempty"`
}

// TransactionMeta is the confirmed-transaction input to the extractor:
// ordered log lines plus the metadata needed to stamp records.
type TransactionMeta struct {
	Signature   string    `json:"signature"`
	Slot        uint64    `json:"slot"`
	BlockTime   time.Time `json:"blockTime"`
	AccountKeys []string  `json:"accountKeys"`
	LogMessages []string  `json:"logMessages"`
}

// TradeKey derives the stable identifier used for trades embedded in a game.
func TradeKey(gameAddress string, tradeID uint64) string {
	return fmt.Sprintf("%s-trade-%d", gameAddress, tradeID)
}
