package cards

import (
	"math/rand"
	"time"
)

// Shoe is the depleting card source for one table: a single 52-card deck,
// uniformly shuffled at construction. When the shoe runs out it is
// regenerated and reshuffled, so Deal never fails. No card-counting
// guarantee is made across the regeneration boundary.
type Shoe struct {
	rng   *rand.Rand
	cards []Card
}

// NewShoe returns a freshly shuffled shoe.
func NewShoe() *Shoe {
	return NewShoeFrom(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewShoeFrom returns a shuffled shoe driven by the given source,
// for reproducible deals.
func NewShoeFrom(rng *rand.Rand) *Shoe {
	s := &Shoe{rng: rng}
	s.refill()
	return s
}

func (s *Shoe) refill() {
	s.cards = NewDeck()
	s.rng.Shuffle(len(s.cards), func(i, j int) {
		s.cards[i], s.cards[j] = s.cards[j], s.cards[i]
	})
}

// Deal removes and returns the top card, refilling the shoe first if it
// is empty.
func (s *Shoe) Deal() Card {
	if len(s.cards) == 0 {
		s.refill()
	}
	c := s.cards[len(s.cards)-1]
	s.cards = s.cards[:len(s.cards)-1]
	return c
}

// Remaining reports how many cards are left before the next reshuffle.
func (s *Shoe) Remaining() int {
	return len(s.cards)
}
