package games

import (
	"strings"
	"time"

	"mastermind/models"
)

// Market is a priced proposition produced at round-open time. The scheduler
// persists it; nothing in this package touches storage.
type Market struct {
	Type       string
	Selections []models.Selection
	Odds       map[string]float64
}

// Game is one virtual product. Pricing and result generation are pure
// functions of the round seed, so a round can be replayed for audit.
type Game interface {
	Kind() string
	Cycle() time.Duration
	LockOffset() time.Duration
	// MinUpcoming is the look-ahead depth the scheduler keeps per stream.
	MinUpcoming() int
	// Leagues lists the independent streams of this game, or nil when the
	// game runs a single stream.
	Leagues() []string

	BuildMarkets(r *models.Round) []Market
	GenerateResult(r *models.Round) (any, error)
	Evaluate(marketType, selectionID string, result []byte) (bool, error)
}

// FixtureSource is implemented by games whose rounds come in scheduled
// batches of paired fixtures rather than one at a time.
type FixtureSource interface {
	// Fixtures returns the pairings for one rotation step. Within a full
	// rotation cycle no pairing repeats.
	Fixtures(league string, rotation int) [][2]Team
	// Rotations is the length of a full rotation cycle for a league.
	Rotations(league string) int
}

type Team struct {
	Name string `json:"name"`
	Abbr string `json:"abbr"`
}

var (
	registry = map[string]Game{}
	kinds    []string
)

func Register(g Game) {
	key := strings.ToLower(g.Kind())
	if _, dup := registry[key]; !dup {
		kinds = append(kinds, key)
	}
	registry[key] = g
}

func Get(kind string) Game {
	return registry[strings.ToLower(kind)]
}

// Kinds returns registered game kinds in registration order.
func Kinds() []string {
	return append([]string(nil), kinds...)
}

// Seed offsets keep the pricing stream, the simulation stream and the
// result stream independent of each other for one round seed.
const (
	seedOffsetSim    = 0x55aa
	seedOffsetResult = 0x123456
)
