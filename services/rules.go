package services

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"mastermind/store"
)

// Stake and payout bounds, in minor currency units.
const (
	DefaultMinStake int64 = 2000
	MaxStake        int64 = 100000
	MaxPayout       int64 = 2000000
)

// MinStake reads MIN_STAKE_CENTS so an operator can raise the floor without
// a rebuild. Falls back to the default on absent or bad values.
func MinStake() int64 {
	if v := os.Getenv("MIN_STAKE_CENTS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return DefaultMinStake
}

func CheckStake(stake int64) error {
	if stake < MinStake() {
		return store.ErrStakeTooSmall
	}
	if stake > MaxStake {
		return store.ErrStakeTooLarge
	}
	return nil
}

// PayoutFor is stake times multiplier, floored to a whole cent and capped at
// MaxPayout. decimal keeps the product exact before the floor.
func PayoutFor(stake int64, odds float64) int64 {
	p := decimal.NewFromInt(stake).Mul(decimal.NewFromFloat(odds)).Floor().IntPart()
	if p > MaxPayout {
		return MaxPayout
	}
	return p
}

// NewBetRef builds the human-facing ticket reference printed on slips:
// T-<last 7 digits of the ms clock>-<first 4 of the bet id>.
func NewBetRef(betID string) string {
	return "T-" + tsDigits(7) + "-" + strings.ToUpper(betID[:4])
}

// NewCrashRef is the crash-ticket variant of NewBetRef.
func NewCrashRef(ticketID string) string {
	return "A-" + tsDigits(6) + "-" + strings.ToUpper(ticketID[:3])
}

func tsDigits(n int) string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if len(ts) > n {
		ts = ts[len(ts)-n:]
	}
	return ts
}
