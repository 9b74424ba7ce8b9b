package models

import "time"

type BetStatus string

const (
	BetPending   BetStatus = "PENDING"
	BetWon       BetStatus = "WON"
	BetLost      BetStatus = "LOST"
	BetCancelled BetStatus = "CANCELLED"
)

// Bet is created at placement (which debits the stake) and mutated exactly
// once afterwards, when it leaves PENDING at settlement.
type Bet struct {
	ID  string `gorm:"primaryKey;size:36" json:"id"`
	Ref string `gorm:"uniqueIndex;size:24" json:"ref"`

	RoundID     string `gorm:"size:36;index" json:"round_id"`
	MarketID    string `gorm:"size:36;index" json:"market_id"`
	SelectionID string `gorm:"size:24" json:"selection_id"`

	Stake           int64   `json:"stake"`
	Odds            float64 `json:"odds"`
	PotentialPayout int64   `json:"potential_payout"`

	WalletID uint `gorm:"index" json:"wallet_id"`

	Status    BetStatus  `gorm:"size:12;index" json:"status"`
	Payout    int64      `json:"payout"`
	PlacedAt  time.Time  `json:"placed_at"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
}
