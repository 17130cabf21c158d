package model

import "time"

// Snapshots are canonical account states fetched from the ledger reader.
// Fields that older program versions may omit are pointers; defaulting is
// centralized in the writer's merge functions rather than at call sites.

// GameSnapshot is the aggregated canonical view of one game account.
type GameSnapshot struct {
	Address         string
	Slot            uint64
	GameID          *uint64
	Authority       *string
	MaxPlayers      *int
	CurrentPlayers  *int
	CurrentTurn     *int
	Players         []string
	Status          *GameStatus
	BankBalance     *int64
	FreeParkingPool *int64
	HousesRemaining *int
	HotelsRemaining *int
	Winner          *string
	EntryFee        *int64
	TotalPrizePool  *int64
	TokenMint       *string
	TokenVault      *string
	PrizeClaimed    *bool
	ActiveTrades    TradeList
	CreatedAt       *time.Time

	// Embedded summaries used by the fan-out step. Never persisted on the
	// game row itself.
	PlayerSnapshots   []PlayerSnapshot
	PropertySnapshots []PropertySnapshot
}

// PlayerSnapshot is the canonical view of one player account.
type PlayerSnapshot struct {
	Address         string
	Slot            uint64
	Wallet          *string
	Game            *string
	CashBalance     *int64
	NetWorth        *int64
	Position        *int
	InJail          *bool
	JailTurns       *int
	DoublesCount    *int
	IsBankrupt      *bool
	PropertiesOwned []int
	GetOutOfJailCards *int

	NeedsPropertyAction         *bool
	PendingPropertyPosition     *int
	NeedsChanceCard             *bool
	NeedsCommunityChestCard     *bool
	NeedsBankruptcyCheck        *bool
	NeedsSpecialSpaceAction     *bool
	PendingSpecialSpacePosition *int
	HasRolledDice               *bool
	LastDiceRoll                *[2]int
	CardDrawnAt                 *time.Time
}

// PropertySnapshot is the canonical view of one property account.
type PropertySnapshot struct {
	Address            string
	Slot               uint64
	Game               *string
	Position           *int
	Owner              *string
	Price              *int64
	ColorGroup         *string
	PropertyType       *string
	Houses             *int
	HasHotel           *bool
	IsMortgaged        *bool
	RentBase           *int64
	RentWithColorGroup *int64
	RentWithHouses     []int64
	RentWithHotel      *int64
	HouseCost          *int64
	MortgageValue      *int64
	LastRentPaid       *uint64
}

// PlatformSnapshot is the canonical view of the platform config account.
type PlatformSnapshot struct {
	Address        string
	Slot           uint64
	Authority      *string
	FeeBasisPoints *int
	FeeVault       *string
	TotalGames     *uint64
	Paused         *bool
}

// EnrichmentContext carries transient snapshots fetched during one job so the
// fan-out step can reuse them. It lives for the duration of a single job and
// is never attached to a persisted entity.
type EnrichmentContext struct {
	Game       *GameSnapshot
	Players    map[string]*PlayerSnapshot   // keyed by wallet
	Properties map[int]*PropertySnapshot    // keyed by board position
}

// NewEnrichmentContext returns an empty context ready for one job.
func NewEnrichmentContext() *EnrichmentContext {
	return &EnrichmentContext{
		Players:    make(map[string]*PlayerSnapshot),
		Properties: make(map[int]*PropertySnapshot),
	}
}
