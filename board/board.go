// Package board holds the static reference table mapping board positions to
// their default economic attributes. The ledger narration for new-property
// initialization does not carry prices or rent tiers, so the extractor fills
// them from here.
package board

// SquareType classifies what occupies a board position.
type SquareType string

const (
	TypeProperty SquareType = "Property"
	TypeRailroad SquareType = "Railroad"
	TypeUtility  SquareType = "Utility"
	TypeSpecial  SquareType = "Special" // Go, Jail, Chance, taxes, etc.
)

// Square is the default economic profile of one board position.
type Square struct {
	Position       int
	Name           string
	Type           SquareType
	ColorGroup     string
	Price          int64
	RentBase       int64
	RentWithColorGroup int64
	RentWithHouses []int64 // exactly 4 tiers
	RentWithHotel  int64
	HouseCost      int64
	MortgageValue  int64
}

// Lookup returns the default square profile for a position. Positions outside
// 0-39 return a zero-valued special square.
func Lookup(position int) Square {
	if position < 0 || position >= len(squares) {
		return Square{Position: position, Type: TypeSpecial}
	}
	return squares[position]
}

// Purchasable reports whether the position can be owned at all.
func Purchasable(position int) bool {
	sq := Lookup(position)
	return sq.Type == TypeProperty || sq.Type == TypeRailroad || sq.Type == TypeUtility
}

func prop(pos int, name, color string, price, rent, rentColor int64, houses [4]int64, hotel, houseCost int64) Square {
	return Square{
		Position:           pos,
		Name:               name,
		Type:               TypeProperty,
		ColorGroup:         color,
		Price:              price,
		RentBase:           rent,
		RentWithColorGroup: rentColor,
		RentWithHouses:     houses[:],
		RentWithHotel:      hotel,
		HouseCost:          houseCost,
		MortgageValue:      price / 2,
	}
}

func rail(pos int, name string) Square {
	return Square{
		Position:      pos,
		Name:          name,
		Type:          TypeRailroad,
		ColorGroup:    "Railroad",
		Price:         200,
		RentBase:      25,
		RentWithHouses: []int64{50, 100, 200, 200},
		MortgageValue: 100,
	}
}

func util(pos int, name string) Square {
	return Square{
		Position:      pos,
		Name:          name,
		Type:          TypeUtility,
		ColorGroup:    "Utility",
		Price:         150,
		RentBase:      4, // dice multiplier
		RentWithHouses: []int64{10, 10, 10, 10},
		MortgageValue: 75,
	}
}

func special(pos int, name string) Square {
	return Square{Position: pos, Name: name, Type: TypeSpecial}
}

var squares = [40]Square{
	special(0, "GO"),
	prop(1, "Mediterranean Avenue", "Brown", 60, 2, 4, [4]int64{10, 30, 90, 160}, 250, 50),
	special(2, "Community Chest"),
	prop(3, "Baltic Avenue", "Brown", 60, 4, 8, [4]int64{20, 60, 180, 320}, 450, 50),
	special(4, "Income Tax"),
	rail(5, "Reading Railroad"),
	prop(6, "Oriental Avenue", "LightBlue", 100, 6, 12, [4]int64{30, 90, 270, 400}, 550, 50),
	special(7, "Chance"),
	prop(8, "Vermont Avenue", "LightBlue", 100, 6, 12, [4]int64{30, 90, 270, 400}, 550, 50),
	prop(9, "Connecticut Avenue", "LightBlue", 120, 8, 16, [4]int64{40, 100, 300, 450}, 600, 50),
	special(10, "Jail"),
	prop(11, "St. Charles Place", "Pink", 140, 10, 20, [4]int64{50, 150, 450, 625}, 750, 100),
	util(12, "Electric Company"),
	prop(13, "States Avenue", "Pink", 140, 10, 20, [4]int64{50, 150, 450, 625}, 750, 100),
	prop(14, "Virginia Avenue", "Pink", 160, 12, 24, [4]int64{60, 180, 500, 700}, 900, 100),
	rail(15, "Pennsylvania Railroad"),
	prop(16, "St. James Place", "Orange", 180, 14, 28, [4]int64{70, 200, 550, 750}, 950, 100),
	special(17, "Community Chest"),
	prop(18, "Tennessee Avenue", "Orange", 180, 14, 28, [4]int64{70, 200, 550, 750}, 950, 100),
	prop(19, "New York Avenue", "Orange", 200, 16, 32, [4]int64{80, 220, 600, 800}, 1000, 100),
	special(20, "Free Parking"),
	prop(21, "Kentucky Avenue", "Red", 220, 18, 36, [4]int64{90, 250, 700, 875}, 1050, 150),
	special(22, "Chance"),
	prop(23, "Indiana Avenue", "Red", 220, 18, 36, [4]int64{90, 250, 700, 875}, 1050, 150),
	prop(24, "Illinois Avenue", "Red", 240, 20, 40, [4]int64{100, 300, 750, 925}, 1100, 150),
	rail(25, "B. & O. Railroad"),
	prop(26, "Atlantic Avenue", "Yellow", 260, 22, 44, [4]int64{110, 330, 800, 975}, 1150, 150),
	prop(27, "Ventnor Avenue", "Yellow", 260, 22, 44, [4]int64{110, 330, 800, 975}, 1150, 150),
	util(28, "Water Works"),
	prop(29, "Marvin Gardens", "Yellow", 280, 24, 48, [4]int64{120, 360, 850, 1025}, 1200, 150),
	special(30, "Go To Jail"),
	prop(31, "Pacific Avenue", "Green", 300, 26, 52, [4]int64{130, 390, 900, 1100}, 1275, 200),
	prop(32, "North Carolina Avenue", "Green", 300, 26, 52, [4]int64{130, 390, 900, 1100}, 1275, 200),
	special(33, "Community Chest"),
	prop(34, "Pennsylvania Avenue", "Green", 320, 28, 56, [4]int64{150, 450, 1000, 1200}, 1400, 200),
	rail(35, "Short Line"),
	special(36, "Chance"),
	prop(37, "Park Place", "DarkBlue", 350, 35, 70, [4]int64{175, 500, 1100, 1300}, 1500, 200),
	special(38, "Luxury Tax"),
	prop(39, "Boardwalk", "DarkBlue", 400, 50, 100, [4]int64{200, 600, 1400, 1700}, 2000, 200),
}
