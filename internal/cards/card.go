package cards

// Card represents a playing card with rank and suit. Immutable once created.
type Card struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

// String returns a human-readable card representation like "♦2" or "♠A".
func (c Card) String() string {
	return c.Suit + c.Rank
}

// Suits in display order: ♦, ♥, ♠, ♣
var cardSuits = []string{"♦", "♥", "♠", "♣"}

// Ranks in order: 2-10, J, Q, K, A
var cardRanks = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

// NewDeck returns the full 52-card deck in rank-major order: ♦2, ♥2, ♠2, ♣2, ♦3, ...
func NewDeck() []Card {
	deck := make([]Card, 0, 52)
	for _, rank := range cardRanks {
		for _, suit := range cardSuits {
			deck = append(deck, Card{Rank: rank, Suit: suit})
		}
	}
	return deck
}

// rankValue returns the blackjack point value of a card rank.
// 2-10: face value, J/Q/K: 10, A: 11 (soft; HandValue downgrades as needed).
func rankValue(rank string) int {
	switch rank {
	case "A":
		return 11
	case "J", "Q", "K":
		return 10
	case "2":
		return 2
	case "3":
		return 3
	case "4":
		return 4
	case "5":
		return 5
	case "6":
		return 6
	case "7":
		return 7
	case "8":
		return 8
	case "9":
		return 9
	case "10":
		return 10
	default:
		return 0
	}
}

// HandValue calculates the best blackjack hand value. Each ace counts as 11
// and is downgraded to 1, one at a time, while the total exceeds 21.
func HandValue(hand []Card) int {
	total := 0
	aces := 0
	for _, c := range hand {
		total += rankValue(c.Rank)
		if c.Rank == "A" {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}
