package services

import (
	"testing"
	"time"

	"mastermind/models"
	"mastermind/store/memstore"
)

func TestSchedulerKeepsLookahead(t *testing.T) {
	st := memstore.New()
	s := NewScheduler(st)
	now := time.Unix(1700000000, 0)

	s.Advance(now)

	for _, kind := range []string{"dog", "horse", "colors", "lotto49"} {
		n, err := st.Rounds.CountUpcoming(kind, "")
		if err != nil {
			t.Fatal(err)
		}
		if n < 1 {
			t.Fatalf("%s: %d upcoming rounds", kind, n)
		}
	}
	for _, lg := range []string{"EPL", "LALIGA", "UCL"} {
		n, err := st.Rounds.CountUpcoming("football", lg)
		if err != nil {
			t.Fatal(err)
		}
		if n < 10 {
			t.Fatalf("football/%s: %d upcoming rounds, want >= 10", lg, n)
		}
	}
}

func TestSchedulerFootballBatchHasFixtures(t *testing.T) {
	st := memstore.New()
	s := NewScheduler(st)
	s.Advance(time.Unix(1700000000, 0))

	rounds, err := st.Rounds.Open("football", "EPL", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rounds) == 0 {
		t.Fatal("no EPL rounds seeded")
	}
	for _, r := range rounds {
		if r.Home == "" || r.Away == "" || r.Home == r.Away {
			t.Fatalf("bad fixture %q vs %q", r.Home, r.Away)
		}
		if !r.LocksAt.Before(r.RunsAt) {
			t.Fatalf("locksAt %v not before runsAt %v", r.LocksAt, r.RunsAt)
		}
	}
	markets, err := st.Rounds.Markets(rounds[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(markets) == 0 {
		t.Fatal("round seeded without markets")
	}
}

func TestSchedulerRunsRoundThroughLifecycle(t *testing.T) {
	st := memstore.New()
	s := NewScheduler(st)
	now := time.Unix(1700000000, 0)

	s.Advance(now)
	rounds, err := st.Rounds.Open("colors", "", 1)
	if err != nil || len(rounds) == 0 {
		t.Fatalf("no colors round: %v", err)
	}
	r := rounds[0]

	s.Advance(r.LocksAt)
	got, _ := st.Rounds.Get(r.ID)
	if got.Status != models.RoundLocked {
		t.Fatalf("status %s at lock time", got.Status)
	}

	s.Advance(r.RunsAt)
	got, _ = st.Rounds.Get(r.ID)
	if got.Status != models.RoundSettled {
		t.Fatalf("status %s at run time", got.Status)
	}
	if got.Result == nil {
		t.Fatal("settled round has no result")
	}

	results, err := st.Results.Recent("colors", 1)
	if err != nil || len(results) == 0 {
		t.Fatalf("result not pushed to feed: %v", err)
	}

	// the next pass tops the stream back up
	s.Advance(r.RunsAt.Add(time.Second))
	n, _ := st.Rounds.CountUpcoming("colors", "")
	if n < 1 {
		t.Fatalf("no replacement round seeded: %d", n)
	}
}

func TestSchedulerDoublePassIsHarmless(t *testing.T) {
	st := memstore.New()
	s := NewScheduler(st)
	now := time.Unix(1700000000, 0)

	s.Advance(now)
	rounds, _ := st.Rounds.Open("lotto49", "", 1)
	if len(rounds) == 0 {
		t.Fatal("no lotto49 round")
	}
	r := rounds[0]

	s.Advance(r.RunsAt)
	first, _ := st.Rounds.Get(r.ID)
	s.Advance(r.RunsAt)
	second, _ := st.Rounds.Get(r.ID)

	if first.Status != models.RoundSettled || second.Status != models.RoundSettled {
		t.Fatalf("statuses %s / %s", first.Status, second.Status)
	}
	if string(first.Result) != string(second.Result) {
		t.Fatal("result rewritten on second pass")
	}
}
