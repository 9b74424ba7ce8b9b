package services

import (
	"strings"
	"testing"

	"mastermind/store"
)

func TestPayoutForCapsAtMaxPayout(t *testing.T) {
	if got := PayoutFor(2000, 2.0); got != 4000 {
		t.Fatalf("PayoutFor(2000, 2.0) = %d", got)
	}
	// floor, never round up
	if got := PayoutFor(2000, 1.97); got != 3940 {
		t.Fatalf("PayoutFor(2000, 1.97) = %d", got)
	}
	if got := PayoutFor(999, 1.115); got != 1113 {
		t.Fatalf("PayoutFor(999, 1.115) = %d", got)
	}
	if got := PayoutFor(MaxStake, 1000); got != MaxPayout {
		t.Fatalf("cap not applied: %d", got)
	}
}

func TestCheckStakeBounds(t *testing.T) {
	if err := CheckStake(DefaultMinStake - 1); err != store.ErrStakeTooSmall {
		t.Fatalf("got %v", err)
	}
	if err := CheckStake(MaxStake + 1); err != store.ErrStakeTooLarge {
		t.Fatalf("got %v", err)
	}
	if err := CheckStake(DefaultMinStake); err != nil {
		t.Fatalf("minimum stake rejected: %v", err)
	}
	if err := CheckStake(MaxStake); err != nil {
		t.Fatalf("maximum stake rejected: %v", err)
	}
}

func TestRefFormats(t *testing.T) {
	bet := NewBetRef("abcdef00-0000-0000-0000-000000000000")
	if !strings.HasPrefix(bet, "T-") || len(strings.Split(bet, "-")) != 3 {
		t.Fatalf("bad bet ref %q", bet)
	}
	if !strings.HasSuffix(bet, "ABCD") {
		t.Fatalf("bet ref missing id fragment: %q", bet)
	}
	crash := NewCrashRef("abcdef00-0000-0000-0000-000000000000")
	if !strings.HasPrefix(crash, "A-") {
		t.Fatalf("bad crash ref %q", crash)
	}
}
