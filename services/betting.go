package services

import (
	"log"
	"time"

	"github.com/google/uuid"

	"mastermind/models"
	"mastermind/store"
)

type Betting struct {
	Store store.Store
}

func NewBetting(st store.Store) *Betting {
	return &Betting{Store: st}
}

type PlaceBetInput struct {
	RoundID     string
	MarketID    string
	SelectionID string
	Stake       int64
	CashierID   string
}

// Place validates, debits and records one bet. Round and market status are
// read here, at request time, so a round locking mid-request declines the
// bet instead of admitting it into a closed book.
func (s *Betting) Place(in PlaceBetInput) (*models.Bet, error) {
	if err := CheckStake(in.Stake); err != nil {
		return nil, err
	}

	r, err := s.Store.Rounds.Get(in.RoundID)
	if err != nil {
		return nil, err
	}
	if r.Status != models.RoundOpen {
		return nil, store.ErrRoundNotOpen
	}

	mk, err := s.Store.Rounds.GetMarket(in.MarketID)
	if err != nil {
		return nil, err
	}
	if mk.RoundID != r.ID || mk.Status != models.MarketOpen {
		return nil, store.ErrMarketClosed
	}
	odds := mk.Price(in.SelectionID)
	if odds <= 0 {
		return nil, store.ErrBadSelection
	}

	w, err := s.Store.Wallets.GetOrCreate(models.OwnerCashier, in.CashierID)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	bet := &models.Bet{
		ID:              id,
		Ref:             NewBetRef(id),
		RoundID:         r.ID,
		MarketID:        mk.ID,
		SelectionID:     in.SelectionID,
		Stake:           in.Stake,
		Odds:            odds,
		PotentialPayout: PayoutFor(in.Stake, odds),
		WalletID:        w.ID,
		Status:          models.BetPending,
		PlacedAt:        time.Now(),
	}

	if _, err := s.Store.Wallets.Debit(w.ID, in.Stake, store.Ref{Type: "bet", ID: id}, "stake "+bet.Ref); err != nil {
		return nil, err
	}
	if err := s.Store.Bets.Create(bet); err != nil {
		// the debit already landed; put the stake back before reporting
		if _, cerr := s.Store.Wallets.Credit(w.ID, in.Stake, store.Ref{Type: "bet", ID: id}, "refund "+bet.Ref+" (bet not recorded)"); cerr != nil {
			log.Printf("place bet %s: refund after create failure: %v", id, cerr)
		}
		return nil, err
	}
	return bet, nil
}
