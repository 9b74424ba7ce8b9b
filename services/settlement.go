package services

import (
	"fmt"
	"log"
	"time"

	"mastermind/games"
	"mastermind/models"
	"mastermind/store"
)

type Settlement struct {
	Store store.Store
}

func NewSettlement(st store.Store) *Settlement {
	return &Settlement{Store: st}
}

// SettleRound resolves every PENDING bet of the round against the result,
// credits winners, moves the round to SETTLED and publishes the result to
// the feed. Safe to re-run: bets already out of PENDING are skipped by the
// store's conditional transition.
func (s *Settlement) SettleRound(r *models.Round, result []byte) error {
	g := games.Get(r.Game)
	if g == nil {
		return fmt.Errorf("settle %s: unknown game %q", r.ID, r.Game)
	}

	markets, err := s.Store.Rounds.Markets(r.ID)
	if err != nil {
		return err
	}
	byID := make(map[string]*models.Market, len(markets))
	for i := range markets {
		byID[markets[i].ID] = &markets[i]
	}

	bets, err := s.Store.Bets.PendingByRound(r.ID)
	if err != nil {
		return err
	}
	now := time.Now()
	for i := range bets {
		b := &bets[i]
		mk, ok := byID[b.MarketID]
		if !ok {
			s.refund(b, now, "orphan market")
			continue
		}
		won, err := g.Evaluate(mk.Type, b.SelectionID, result)
		if err != nil {
			// A bet the game cannot evaluate is voided, not left pending.
			log.Printf("settle %s: evaluate bet %s: %v", r.ID, b.ID, err)
			s.refund(b, now, "unevaluable bet")
			continue
		}
		status, payout, memo := models.BetLost, int64(0), ""
		if won {
			status, payout, memo = models.BetWon, PayoutFor(b.Stake, b.Odds), "win "+b.Ref
		}
		// transition and credit are one store operation; a failed credit
		// leaves the bet PENDING for the next settlement pass
		if _, err := s.Store.Bets.SettleFromPending(b.ID, status, payout, memo, now); err != nil {
			return err
		}
	}

	if err := s.Store.Rounds.Settle(r.ID, result); err != nil {
		return err
	}
	if err := s.Store.Results.Push(r.Game, result); err != nil {
		log.Printf("settle %s: push result: %v", r.ID, err)
	}
	return nil
}

// VoidRound cancels and refunds every PENDING bet, then settles the round
// with no result. Used when outcome generation fails outright.
func (s *Settlement) VoidRound(r *models.Round) error {
	bets, err := s.Store.Bets.PendingByRound(r.ID)
	if err != nil {
		return err
	}
	now := time.Now()
	for i := range bets {
		s.refund(&bets[i], now, "round voided")
	}
	return s.Store.Rounds.Settle(r.ID, nil)
}

func (s *Settlement) refund(b *models.Bet, now time.Time, why string) {
	memo := "refund " + b.Ref + " (" + why + ")"
	if _, err := s.Store.Bets.SettleFromPending(b.ID, models.BetCancelled, b.Stake, memo, now); err != nil {
		log.Printf("refund bet %s: %v", b.ID, err)
	}
}
