package games

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mastermind/models"
)

type RaceResult struct {
	// Positions holds runner ids in finishing order, winner first.
	Positions []string `json:"positions"`
}

// racing covers both the dog (6 runners) and horse (8 runners) products.
type racing struct {
	kind    string
	runners int
}

func init() {
	Register(racing{kind: "dog", runners: 6})
	Register(racing{kind: "horse", runners: 8})
}

func (g racing) Kind() string              { return g.kind }
func (racing) Cycle() time.Duration        { return 120 * time.Second }
func (racing) LockOffset() time.Duration   { return 10 * time.Second }
func (racing) MinUpcoming() int            { return 1 }
func (racing) Leagues() []string           { return nil }

// winProbs draws a rating per runner from the round seed and converts the
// ratings into win probabilities. Everything else in the race derives from
// this one vector.
func (g racing) winProbs(seed uint32) []float64 {
	rnd := NewRNG(seed)
	ratings := make([]float64, g.runners)
	for i := range ratings {
		ratings[i] = 0.5 + (rnd.Float64()-0.5)*0.6
	}
	return softmax(ratings)
}

func runnerID(n int) string { return fmt.Sprintf("R%d", n) }

func (g racing) BuildMarkets(r *models.Round) []Market {
	probs := g.winProbs(r.Seed)

	winSels := make([]models.Selection, g.runners)
	winOdds := make(map[string]float64, g.runners)
	for i := 0; i < g.runners; i++ {
		id := runnerID(i + 1)
		winSels[i] = models.Selection{ID: id, Name: fmt.Sprintf("%s #%d", strings.ToUpper(g.kind), i+1)}
		winOdds[id] = priceOf(probs[i], 0.08)
	}

	forecast := map[string]float64{}
	for a := 0; a < g.runners; a++ {
		for b := 0; b < g.runners; b++ {
			if a == b {
				continue
			}
			p := probs[a] * (probs[b] / (1 - probs[a] + 1e-9))
			forecast[runnerID(a+1)+">"+runnerID(b+1)] = priceOf(p, 0.12)
		}
	}

	quinella := map[string]float64{}
	for a := 0; a < g.runners; a++ {
		for b := a + 1; b < g.runners; b++ {
			p := probs[a] * probs[b] * 2
			quinella[runnerID(a+1)+"&"+runnerID(b+1)] = priceOf(p, 0.10)
		}
	}

	tricast := map[string]float64{}
	limit := 60
	if g.kind == "horse" {
		limit = 80
	}
	count := 0
outer:
	for a := 0; a < g.runners; a++ {
		for b := 0; b < g.runners; b++ {
			for c := 0; c < g.runners; c++ {
				if a == b || b == c || a == c {
					continue
				}
				p := probs[a] *
					(probs[b] / (1 - probs[a] + 1e-9)) *
					(probs[c] / (1 - probs[a] - probs[b] + 1e-9))
				tricast[runnerID(a+1)+">"+runnerID(b+1)+">"+runnerID(c+1)] = priceOf(p, 0.18)
				count++
				if count >= limit {
					break outer
				}
			}
		}
	}

	return []Market{
		{Type: "MAIN_WIN", Selections: winSels, Odds: winOdds},
		pairMarket("FORECAST", forecast, ">", " → "),
		pairMarket("QUINELLA", quinella, "&", " + "),
		pairMarket("TRICAST", tricast, ">", " → "),
	}
}

func pairMarket(mtype string, odds map[string]float64, sep, pretty string) Market {
	sels := make([]models.Selection, 0, len(odds))
	for id := range odds {
		sels = append(sels, models.Selection{ID: id, Name: strings.ReplaceAll(id, sep, pretty)})
	}
	return Market{Type: mtype, Selections: sels, Odds: odds}
}

// GenerateResult produces the full finishing order by weighted sampling
// without replacement: draw a winner from the remaining runners'
// renormalized probabilities, remove it, repeat.
func (g racing) GenerateResult(r *models.Round) (any, error) {
	probs := g.winProbs(r.Seed)
	rnd := NewRNG(r.Seed ^ seedOffsetResult)

	type runner struct {
		id string
		w  float64
	}
	pool := make([]runner, g.runners)
	for i := range pool {
		pool[i] = runner{id: runnerID(i + 1), w: probs[i]}
	}

	order := make([]string, 0, g.runners)
	for len(pool) > 0 {
		sum := 0.0
		for _, rn := range pool {
			sum += rn.w
		}
		rem := make([]float64, len(pool))
		for i, rn := range pool {
			rem[i] = rn.w / sum
		}
		ix := rnd.SampleIndex(rem)
		order = append(order, pool[ix].id)
		pool = append(pool[:ix], pool[ix+1:]...)
	}
	return RaceResult{Positions: order}, nil
}

func (racing) Evaluate(marketType, selectionID string, result []byte) (bool, error) {
	var res RaceResult
	if err := json.Unmarshal(result, &res); err != nil {
		return false, err
	}
	pos := res.Positions

	switch marketType {
	case "MAIN_WIN":
		return len(pos) > 0 && pos[0] == selectionID, nil
	case "FORECAST":
		parts := strings.Split(selectionID, ">")
		if len(parts) != 2 || len(pos) < 2 {
			return false, nil
		}
		return pos[0] == parts[0] && pos[1] == parts[1], nil
	case "QUINELLA":
		parts := strings.Split(selectionID, "&")
		if len(parts) != 2 || len(pos) < 2 {
			return false, nil
		}
		top2 := map[string]bool{pos[0]: true, pos[1]: true}
		return top2[parts[0]] && top2[parts[1]], nil
	case "TRICAST":
		parts := strings.Split(selectionID, ">")
		if len(parts) != 3 || len(pos) < 3 {
			return false, nil
		}
		return pos[0] == parts[0] && pos[1] == parts[1] && pos[2] == parts[2], nil
	}
	return false, fmt.Errorf("racing: unknown market type %q", marketType)
}
