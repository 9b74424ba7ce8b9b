package services

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"mastermind/games"
	"mastermind/models"
	"mastermind/store"
	"mastermind/store/memstore"
)

// seedColorsRound creates an OPEN colors round whose winning color is priced
// at the given odds. Returns the round and the winning selection id.
func seedColorsRound(t *testing.T, st store.Store, seed uint32, winOdds float64) (*models.Round, string) {
	t.Helper()
	now := time.Now()
	r := &models.Round{
		ID: "round-" + time.Now().Format("150405.000000000"), Game: "colors", Seed: seed,
		Status: models.RoundOpen, OpensAt: now, LocksAt: now.Add(50 * time.Second), RunsAt: now.Add(60 * time.Second),
	}
	res, err := games.Get("colors").GenerateResult(r)
	if err != nil {
		t.Fatal(err)
	}
	winning := res.(games.ColorResult).Color

	sels := []models.Selection{}
	odds := map[string]float64{}
	for _, c := range []string{"RED", "BLUE", "GREEN", "YELLOW", "PURPLE", "BLACK"} {
		sels = append(sels, models.Selection{ID: c, Name: c})
		odds[c] = 5.28
	}
	odds[winning] = winOdds
	selsJSON, _ := json.Marshal(sels)
	oddsJSON, _ := json.Marshal(odds)
	mk := models.Market{ID: r.ID + "-m", RoundID: r.ID, Type: "MAIN_COLOR", Status: models.MarketOpen, Selections: selsJSON, Odds: oddsJSON}
	if err := st.Rounds.Create(r, []models.Market{mk}); err != nil {
		t.Fatal(err)
	}
	return r, winning
}

func cashierWallet(t *testing.T, st store.Store, id string, balance int64) *models.Wallet {
	t.Helper()
	w, err := st.Wallets.GetOrCreate(models.OwnerCashier, id)
	if err != nil {
		t.Fatal(err)
	}
	if balance > 0 {
		if _, err := st.Wallets.Credit(w.ID, balance, store.Ref{Type: "topup", ID: "seed"}, "seed"); err != nil {
			t.Fatal(err)
		}
	}
	return w
}

func TestBetLifecycleScenario(t *testing.T) {
	st := memstore.New()
	betting := NewBetting(st)
	settle := NewSettlement(st)

	w := cashierWallet(t, st, "cash-1", 10000)
	r, winning := seedColorsRound(t, st, 42, 2.0)

	bet, err := betting.Place(PlaceBetInput{
		RoundID: r.ID, MarketID: r.ID + "-m", SelectionID: winning, Stake: 2000, CashierID: "cash-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if bet.Status != models.BetPending || bet.Odds != 2.0 || bet.PotentialPayout != 4000 {
		t.Fatalf("bet %+v", bet)
	}
	got, _ := st.Wallets.Get(w.ID)
	if got.Balance != 8000 {
		t.Fatalf("balance after stake %d, want 8000", got.Balance)
	}

	res, _ := games.Get("colors").GenerateResult(r)
	payload, _ := json.Marshal(res)
	if _, err := st.Rounds.BeginRun(r.ID); err != nil {
		t.Fatal(err)
	}
	if err := settle.SettleRound(r, payload); err != nil {
		t.Fatal(err)
	}

	got, _ = st.Wallets.Get(w.ID)
	if got.Balance != 12000 {
		t.Fatalf("balance after win %d, want 12000", got.Balance)
	}
	settled, _ := st.Bets.Get(bet.ID)
	if settled.Status != models.BetWon || settled.Payout != 4000 {
		t.Fatalf("bet settled as %s payout %d", settled.Status, settled.Payout)
	}
	round, _ := st.Rounds.Get(r.ID)
	if round.Status != models.RoundSettled || round.Result == nil {
		t.Fatalf("round %s result %v", round.Status, round.Result)
	}

	// re-running settlement is a no-op
	if err := settle.SettleRound(r, payload); err != nil {
		t.Fatal(err)
	}
	got, _ = st.Wallets.Get(w.ID)
	if got.Balance != 12000 {
		t.Fatalf("re-settlement moved balance to %d", got.Balance)
	}
}

func TestLosingBetPaysNothing(t *testing.T) {
	st := memstore.New()
	betting := NewBetting(st)
	settle := NewSettlement(st)

	w := cashierWallet(t, st, "cash-1", 10000)
	r, winning := seedColorsRound(t, st, 7, 2.0)

	losing := "RED"
	if winning == "RED" {
		losing = "BLUE"
	}
	bet, err := betting.Place(PlaceBetInput{
		RoundID: r.ID, MarketID: r.ID + "-m", SelectionID: losing, Stake: 2000, CashierID: "cash-1",
	})
	if err != nil {
		t.Fatal(err)
	}

	res, _ := games.Get("colors").GenerateResult(r)
	payload, _ := json.Marshal(res)
	st.Rounds.BeginRun(r.ID)
	if err := settle.SettleRound(r, payload); err != nil {
		t.Fatal(err)
	}

	settled, _ := st.Bets.Get(bet.ID)
	if settled.Status != models.BetLost || settled.Payout != 0 {
		t.Fatalf("bet settled as %s payout %d", settled.Status, settled.Payout)
	}
	got, _ := st.Wallets.Get(w.ID)
	if got.Balance != 8000 {
		t.Fatalf("loser refunded: balance %d", got.Balance)
	}
}

func TestPayoutCappedAtSettlement(t *testing.T) {
	st := memstore.New()
	betting := NewBetting(st)
	settle := NewSettlement(st)

	cashierWallet(t, st, "cash-1", 200000)
	r, winning := seedColorsRound(t, st, 13, 999.0)

	bet, err := betting.Place(PlaceBetInput{
		RoundID: r.ID, MarketID: r.ID + "-m", SelectionID: winning, Stake: 100000, CashierID: "cash-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if bet.PotentialPayout != MaxPayout {
		t.Fatalf("potential %d, want cap %d", bet.PotentialPayout, MaxPayout)
	}

	res, _ := games.Get("colors").GenerateResult(r)
	payload, _ := json.Marshal(res)
	st.Rounds.BeginRun(r.ID)
	if err := settle.SettleRound(r, payload); err != nil {
		t.Fatal(err)
	}
	settled, _ := st.Bets.Get(bet.ID)
	if settled.Payout != MaxPayout {
		t.Fatalf("payout %d, want cap %d", settled.Payout, MaxPayout)
	}
}

func TestPlaceBetRejections(t *testing.T) {
	st := memstore.New()
	betting := NewBetting(st)

	cashierWallet(t, st, "cash-1", 1000)
	r, winning := seedColorsRound(t, st, 21, 2.0)

	_, err := betting.Place(PlaceBetInput{RoundID: r.ID, MarketID: r.ID + "-m", SelectionID: winning, Stake: 500, CashierID: "cash-1"})
	if !errors.Is(err, store.ErrStakeTooSmall) {
		t.Fatalf("got %v", err)
	}
	_, err = betting.Place(PlaceBetInput{RoundID: r.ID, MarketID: r.ID + "-m", SelectionID: winning, Stake: MaxStake + 1, CashierID: "cash-1"})
	if !errors.Is(err, store.ErrStakeTooLarge) {
		t.Fatalf("got %v", err)
	}
	_, err = betting.Place(PlaceBetInput{RoundID: r.ID, MarketID: r.ID + "-m", SelectionID: "MAGENTA", Stake: 2000, CashierID: "cash-1"})
	if !errors.Is(err, store.ErrBadSelection) {
		t.Fatalf("got %v", err)
	}
	// balance 1000 cannot cover the minimum stake
	_, err = betting.Place(PlaceBetInput{RoundID: r.ID, MarketID: r.ID + "-m", SelectionID: winning, Stake: 2000, CashierID: "cash-1"})
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("got %v", err)
	}

	// locked round declines at request time
	if _, err := st.Rounds.Lock(r.ID); err != nil {
		t.Fatal(err)
	}
	cashierWallet(t, st, "cash-2", 10000)
	_, err = betting.Place(PlaceBetInput{RoundID: r.ID, MarketID: r.ID + "-m", SelectionID: winning, Stake: 2000, CashierID: "cash-2"})
	if !errors.Is(err, store.ErrRoundNotOpen) {
		t.Fatalf("got %v", err)
	}
}

type rejectingBets struct{ store.BetStore }

func (rejectingBets) Create(*models.Bet) error { return errors.New("duplicate ref") }

func TestStakeReturnedWhenBetNotRecorded(t *testing.T) {
	st := memstore.New()
	st.Bets = rejectingBets{st.Bets}
	betting := NewBetting(st)

	w := cashierWallet(t, st, "cash-1", 10000)
	r, winning := seedColorsRound(t, st, 55, 2.0)

	_, err := betting.Place(PlaceBetInput{RoundID: r.ID, MarketID: r.ID + "-m", SelectionID: winning, Stake: 2000, CashierID: "cash-1"})
	if err == nil {
		t.Fatal("create failure not reported")
	}
	got, _ := st.Wallets.Get(w.ID)
	if got.Balance != 10000 {
		t.Fatalf("balance %d after failed placement, want 10000", got.Balance)
	}
}

type flakySettleBets struct {
	store.BetStore
	failures int
}

func (f *flakySettleBets) SettleFromPending(id string, status models.BetStatus, payout int64, memo string, at time.Time) (bool, error) {
	if f.failures > 0 && payout > 0 {
		f.failures--
		return false, errors.New("credit write failed")
	}
	return f.BetStore.SettleFromPending(id, status, payout, memo, at)
}

func TestWinnerStaysPendingWhenPayoutFails(t *testing.T) {
	st := memstore.New()
	st.Bets = &flakySettleBets{BetStore: st.Bets, failures: 1}
	betting := NewBetting(st)
	settle := NewSettlement(st)

	w := cashierWallet(t, st, "cash-1", 10000)
	r, winning := seedColorsRound(t, st, 61, 2.0)
	bet, err := betting.Place(PlaceBetInput{RoundID: r.ID, MarketID: r.ID + "-m", SelectionID: winning, Stake: 2000, CashierID: "cash-1"})
	if err != nil {
		t.Fatal(err)
	}

	res, _ := games.Get("colors").GenerateResult(r)
	payload, _ := json.Marshal(res)
	st.Rounds.BeginRun(r.ID)
	if err := settle.SettleRound(r, payload); err == nil {
		t.Fatal("settlement error swallowed")
	}
	pending, _ := st.Bets.Get(bet.ID)
	if pending.Status != models.BetPending {
		t.Fatalf("bet %s after failed payout, want PENDING", pending.Status)
	}
	got, _ := st.Wallets.Get(w.ID)
	if got.Balance != 8000 {
		t.Fatalf("balance %d moved by a failed payout", got.Balance)
	}

	// the retry pays the winner exactly once
	if err := settle.SettleRound(r, payload); err != nil {
		t.Fatal(err)
	}
	won, _ := st.Bets.Get(bet.ID)
	if won.Status != models.BetWon || won.Payout != 4000 {
		t.Fatalf("bet %s payout %d after retry", won.Status, won.Payout)
	}
	got, _ = st.Wallets.Get(w.ID)
	if got.Balance != 12000 {
		t.Fatalf("balance %d after retry, want 12000", got.Balance)
	}
}

func TestVoidRoundRefundsPending(t *testing.T) {
	st := memstore.New()
	betting := NewBetting(st)
	settle := NewSettlement(st)

	w := cashierWallet(t, st, "cash-1", 10000)
	r, winning := seedColorsRound(t, st, 33, 2.0)

	bet, err := betting.Place(PlaceBetInput{RoundID: r.ID, MarketID: r.ID + "-m", SelectionID: winning, Stake: 2000, CashierID: "cash-1"})
	if err != nil {
		t.Fatal(err)
	}

	st.Rounds.BeginRun(r.ID)
	if err := settle.VoidRound(r); err != nil {
		t.Fatal(err)
	}

	got, _ := st.Wallets.Get(w.ID)
	if got.Balance != 10000 {
		t.Fatalf("balance after void %d, want full refund", got.Balance)
	}
	cancelled, _ := st.Bets.Get(bet.ID)
	if cancelled.Status != models.BetCancelled {
		t.Fatalf("bet status %s after void", cancelled.Status)
	}
	round, _ := st.Rounds.Get(r.ID)
	if round.Status != models.RoundSettled || round.Result != nil {
		t.Fatalf("voided round: %s result %v", round.Status, round.Result)
	}
}
