package services

import (
	"encoding/binary"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"mastermind/games"
	"mastermind/models"
	"mastermind/store"
)

// Scheduler advances every round stream. Advance is a pure function of the
// passed clock; production calls it from a 1s ticker, tests call it with
// synthetic timestamps.
type Scheduler struct {
	Store  store.Store
	Settle *Settlement

	// rotation step per fixture stream, so batch games walk their full
	// round-robin cycle before any pairing repeats
	rotations map[string]int
	// next run slot per stream, keeps consecutive rounds one cycle apart
	nextRun map[string]time.Time
}

func NewScheduler(st store.Store) *Scheduler {
	return &Scheduler{
		Store:     st,
		Settle:    NewSettlement(st),
		rotations: map[string]int{},
		nextRun:   map[string]time.Time{},
	}
}

func streamKey(game, league string) string {
	if league == "" {
		return game
	}
	return game + "/" + league
}

// Advance is one scheduler pass: top up look-ahead queues, then apply every
// due status transition. Round status only ever moves forward; the store's
// conditional transitions make a double pass harmless.
func (s *Scheduler) Advance(now time.Time) {
	s.ensureLookahead(now)

	rounds, err := s.Store.Rounds.Unsettled()
	if err != nil {
		log.Printf("scheduler: list rounds: %v", err)
		return
	}
	for i := range rounds {
		r := &rounds[i]
		if r.Status == models.RoundOpen && !now.Before(r.LocksAt) && now.Before(r.RunsAt) {
			if _, err := s.Store.Rounds.Lock(r.ID); err != nil {
				log.Printf("scheduler: lock %s: %v", r.ID, err)
			}
			continue
		}
		if (r.Status == models.RoundOpen || r.Status == models.RoundLocked) && !now.Before(r.RunsAt) {
			did, err := s.Store.Rounds.BeginRun(r.ID)
			if err != nil {
				log.Printf("scheduler: run %s: %v", r.ID, err)
				continue
			}
			if did {
				s.runRound(r)
			}
		}
	}
}

// runRound generates the result and settles. A generation or encoding
// failure voids the round so no stake is left pending.
func (s *Scheduler) runRound(r *models.Round) {
	g := games.Get(r.Game)
	if g == nil {
		log.Printf("scheduler: round %s has unknown game %q, voiding", r.ID, r.Game)
		s.void(r)
		return
	}
	res, err := g.GenerateResult(r)
	if err != nil {
		log.Printf("scheduler: generate %s/%s: %v, voiding", r.Game, r.ID, err)
		s.void(r)
		return
	}
	payload, err := json.Marshal(res)
	if err != nil {
		log.Printf("scheduler: encode result %s/%s: %v, voiding", r.Game, r.ID, err)
		s.void(r)
		return
	}
	if err := s.Settle.SettleRound(r, payload); err != nil {
		log.Printf("scheduler: settle %s/%s: %v", r.Game, r.ID, err)
	}
}

func (s *Scheduler) void(r *models.Round) {
	if err := s.Settle.VoidRound(r); err != nil {
		log.Printf("scheduler: void %s: %v", r.ID, err)
	}
}

// ensureLookahead keeps every (game, league) stream stocked with upcoming
// rounds: one for single-stream games, a full fixture batch for batch games.
func (s *Scheduler) ensureLookahead(now time.Time) {
	for _, kind := range games.Kinds() {
		g := games.Get(kind)
		leagues := g.Leagues()
		if len(leagues) == 0 {
			leagues = []string{""}
		}
		for _, lg := range leagues {
			n, err := s.Store.Rounds.CountUpcoming(kind, lg)
			if err != nil {
				log.Printf("scheduler: count %s: %v", streamKey(kind, lg), err)
				continue
			}
			for n < g.MinUpcoming() {
				created := s.seedStream(now, g, lg)
				if created == 0 {
					break
				}
				n += created
			}
		}
	}
}

// seedStream creates the next round (or fixture batch) for one stream and
// returns how many rounds it created.
func (s *Scheduler) seedStream(now time.Time, g games.Game, league string) int {
	key := streamKey(g.Kind(), league)
	runs := s.nextRun[key]
	if !runs.After(now) {
		runs = now.Add(g.Cycle())
	}

	if fx, ok := g.(games.FixtureSource); ok {
		rot := s.rotations[key]
		pairs := fx.Fixtures(league, rot)
		if len(pairs) == 0 {
			return 0
		}
		s.rotations[key] = (rot + 1) % fx.Rotations(league)
		for _, p := range pairs {
			s.createRound(g, league, p[0].Abbr, p[1].Abbr, now, runs)
		}
		s.nextRun[key] = runs.Add(g.Cycle())
		return len(pairs)
	}

	s.createRound(g, league, "", "", now, runs)
	s.nextRun[key] = runs.Add(g.Cycle())
	return 1
}

func (s *Scheduler) createRound(g games.Game, league, home, away string, now, runs time.Time) {
	id := uuid.New()
	r := &models.Round{
		ID:      id.String(),
		Game:    g.Kind(),
		League:  league,
		Home:    home,
		Away:    away,
		Seed:    binary.BigEndian.Uint32(id[:4]),
		Status:  models.RoundOpen,
		OpensAt: now,
		LocksAt: runs.Add(-g.LockOffset()),
		RunsAt:  runs,
	}

	var markets []models.Market
	for _, m := range g.BuildMarkets(r) {
		sels, err := json.Marshal(m.Selections)
		if err != nil {
			log.Printf("scheduler: encode selections %s/%s: %v", r.Game, m.Type, err)
			continue
		}
		odds, err := json.Marshal(m.Odds)
		if err != nil {
			log.Printf("scheduler: encode odds %s/%s: %v", r.Game, m.Type, err)
			continue
		}
		markets = append(markets, models.Market{
			ID:         uuid.NewString(),
			RoundID:    r.ID,
			Type:       m.Type,
			Status:     models.MarketOpen,
			Selections: sels,
			Odds:       odds,
		})
	}

	if err := s.Store.Rounds.Create(r, markets); err != nil {
		log.Printf("scheduler: create round %s/%s: %v", r.Game, r.ID, err)
	}
}
