package memstore

import (
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/datatypes"

	"mastermind/models"
	"mastermind/store"
)

func TestBalanceEqualsLedgerSum(t *testing.T) {
	st := New()
	w, err := st.Wallets.GetOrCreate(models.OwnerCashier, "c1")
	if err != nil {
		t.Fatal(err)
	}

	ops := []struct {
		credit bool
		amount int64
	}{
		{true, 10000}, {false, 2500}, {true, 400}, {false, 1}, {true, 99}, {false, 7000},
	}
	for i, op := range ops {
		ref := store.Ref{Type: "test", ID: "op"}
		if op.credit {
			if _, err := st.Wallets.Credit(w.ID, op.amount, ref, "c"); err != nil {
				t.Fatalf("op %d: %v", i, err)
			}
		} else {
			if _, err := st.Wallets.Debit(w.ID, op.amount, ref, "d"); err != nil {
				t.Fatalf("op %d: %v", i, err)
			}
		}
	}

	got, err := st.Wallets.Get(w.ID)
	if err != nil {
		t.Fatal(err)
	}
	entries, err := st.Wallets.Entries(w.ID, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	var sum int64
	for _, e := range entries {
		if e.Direction == models.EntryCredit {
			sum += e.Amount
		} else {
			sum -= e.Amount
		}
	}
	if got.Balance != sum {
		t.Fatalf("balance %d != ledger sum %d", got.Balance, sum)
	}
	// newest entry carries the final balance
	if entries[0].BalanceAfter != got.Balance {
		t.Fatalf("latest BalanceAfter %d != balance %d", entries[0].BalanceAfter, got.Balance)
	}
}

func TestDebitInsufficientHasNoSideEffect(t *testing.T) {
	st := New()
	w, _ := st.Wallets.GetOrCreate(models.OwnerPlayer, "p1")
	st.Wallets.Credit(w.ID, 1000, store.Ref{Type: "test", ID: "t"}, "seed")

	if _, err := st.Wallets.Debit(w.ID, 1001, store.Ref{Type: "test", ID: "t"}, "over"); !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}
	got, _ := st.Wallets.Get(w.ID)
	if got.Balance != 1000 {
		t.Fatalf("balance changed to %d", got.Balance)
	}
	entries, _ := st.Wallets.Entries(w.ID, 0, 0)
	if len(entries) != 1 {
		t.Fatalf("failed debit appended an entry: %d entries", len(entries))
	}
}

func TestConcurrentDebitsExactlyOneWins(t *testing.T) {
	st := New()
	w, _ := st.Wallets.GetOrCreate(models.OwnerCashier, "c1")
	st.Wallets.Credit(w.ID, 2000, store.Ref{Type: "test", ID: "t"}, "seed")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = st.Wallets.Debit(w.ID, 2000, store.Ref{Type: "test", ID: "t"}, "stake")
		}(i)
	}
	wg.Wait()

	okCount, fundCount := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			okCount++
		case errors.Is(err, store.ErrInsufficientFunds):
			fundCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if okCount != 1 || fundCount != 1 {
		t.Fatalf("got %d successes and %d fund errors, want exactly 1 each", okCount, fundCount)
	}
	got, _ := st.Wallets.Get(w.ID)
	if got.Balance != 0 {
		t.Fatalf("balance %d after double spend race", got.Balance)
	}
}

func TestTransferAllOrNothing(t *testing.T) {
	st := New()
	a, _ := st.Wallets.GetOrCreate(models.OwnerAgent, "a1")
	b, _ := st.Wallets.GetOrCreate(models.OwnerCashier, "c1")
	st.Wallets.Credit(a.ID, 5000, store.Ref{Type: "test", ID: "t"}, "seed")

	if err := st.Wallets.Transfer(a.ID, b.ID, 6000, store.Ref{Type: "test", ID: "t"}, "too much"); !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}
	ga, _ := st.Wallets.Get(a.ID)
	gb, _ := st.Wallets.Get(b.ID)
	if ga.Balance != 5000 || gb.Balance != 0 {
		t.Fatalf("partial transfer observed: %d / %d", ga.Balance, gb.Balance)
	}

	if err := st.Wallets.Transfer(a.ID, b.ID, 3000, store.Ref{Type: "test", ID: "t"}, "ok"); err != nil {
		t.Fatal(err)
	}
	ga, _ = st.Wallets.Get(a.ID)
	gb, _ = st.Wallets.Get(b.ID)
	if ga.Balance != 2000 || gb.Balance != 3000 {
		t.Fatalf("transfer landed at %d / %d", ga.Balance, gb.Balance)
	}
}

func TestGetOrCreateIdempotent(t *testing.T) {
	st := New()
	a, _ := st.Wallets.GetOrCreate(models.OwnerPlayer, "p9")
	b, _ := st.Wallets.GetOrCreate(models.OwnerPlayer, "p9")
	if a.ID != b.ID {
		t.Fatalf("two wallets for one owner: %d vs %d", a.ID, b.ID)
	}
}

func newRound(id string, status models.RoundStatus) *models.Round {
	now := time.Now()
	return &models.Round{
		ID: id, Game: "colors", Seed: 1, Status: status,
		OpensAt: now, LocksAt: now.Add(50 * time.Second), RunsAt: now.Add(60 * time.Second),
	}
}

func TestRoundTransitionsAreConditional(t *testing.T) {
	st := New()
	r := newRound("r1", models.RoundOpen)
	if err := st.Rounds.Create(r, nil); err != nil {
		t.Fatal(err)
	}

	did, err := st.Rounds.Lock("r1")
	if err != nil || !did {
		t.Fatalf("first lock: %v %v", did, err)
	}
	if did, _ := st.Rounds.Lock("r1"); did {
		t.Fatal("second lock reported as done")
	}

	did, err = st.Rounds.BeginRun("r1")
	if err != nil || !did {
		t.Fatalf("first run: %v %v", did, err)
	}
	if did, _ := st.Rounds.BeginRun("r1"); did {
		t.Fatal("double run reported as done")
	}

	if err := st.Rounds.Settle("r1", datatypes.JSON(`{"ball":1}`)); err != nil {
		t.Fatal(err)
	}
	got, _ := st.Rounds.Get("r1")
	if got.Status != models.RoundSettled {
		t.Fatalf("status %s after settle", got.Status)
	}
	// settled rounds never regress
	if did, _ := st.Rounds.Lock("r1"); did {
		t.Fatal("settled round locked")
	}
	if did, _ := st.Rounds.BeginRun("r1"); did {
		t.Fatal("settled round ran")
	}
}

func TestSettleFromPendingIsExactlyOnce(t *testing.T) {
	st := New()
	w, err := st.Wallets.GetOrCreate(models.OwnerCashier, "c1")
	if err != nil {
		t.Fatal(err)
	}
	b := &models.Bet{ID: "b1", Ref: "T-1", RoundID: "r1", WalletID: w.ID, Stake: 2000, Status: models.BetPending, PlacedAt: time.Now()}
	if err := st.Bets.Create(b); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	did, err := st.Bets.SettleFromPending("b1", models.BetWon, 4000, "win T-1", now)
	if err != nil || !did {
		t.Fatalf("first settle: %v %v", did, err)
	}
	did, err = st.Bets.SettleFromPending("b1", models.BetLost, 0, "", now)
	if err != nil || did {
		t.Fatalf("second settle: %v %v", did, err)
	}

	got, _ := st.Bets.Get("b1")
	if got.Status != models.BetWon || got.Payout != 4000 {
		t.Fatalf("bet mutated twice: %s payout %d", got.Status, got.Payout)
	}

	// the payout credit is part of the settle step and lands exactly once
	wallet, _ := st.Wallets.Get(w.ID)
	if wallet.Balance != 4000 {
		t.Fatalf("balance %d after settle, want 4000", wallet.Balance)
	}
	entries, _ := st.Wallets.Entries(w.ID, 0, 0)
	if len(entries) != 1 || entries[0].Memo != "win T-1" || entries[0].Amount != 4000 {
		t.Fatalf("ledger after settle: %+v", entries)
	}
}

func TestResultsFeedKeepsNewestFirst(t *testing.T) {
	st := New()
	for i := 0; i < 25; i++ {
		if err := st.Results.Push("colors", datatypes.JSON(`{"n":1}`)); err != nil {
			t.Fatal(err)
		}
	}
	got, err := st.Results.Recent("colors", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 20 {
		t.Fatalf("feed holds %d entries, want 20", len(got))
	}
}
