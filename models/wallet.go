package models

import "gorm.io/gorm"

type OwnerType string

const (
	OwnerHouse   OwnerType = "house"
	OwnerAgent   OwnerType = "agent"
	OwnerCashier OwnerType = "cashier"
	OwnerPlayer  OwnerType = "player"
)

type EntryDirection string

const (
	EntryCredit EntryDirection = "credit"
	EntryDebit  EntryDirection = "debit"
)

// Wallet balances are stored in minor currency units (cents). The balance
// column is derived state: it must always equal the signed sum of the
// wallet's ledger entries.
type Wallet struct {
	gorm.Model

	OwnerType OwnerType `gorm:"size:16;index:uk_wallet_owner,unique" json:"owner_type"`
	OwnerID   string    `gorm:"size:64;index:uk_wallet_owner,unique" json:"owner_id"`
	Currency  string    `gorm:"size:8;default:KES" json:"currency"`
	Balance   int64     `json:"balance"`
}

// LedgerEntry rows are append-only. Never updated, never deleted.
type LedgerEntry struct {
	gorm.Model

	WalletID     uint           `gorm:"index" json:"wallet_id"`
	Direction    EntryDirection `gorm:"size:8" json:"direction"`
	Amount       int64          `gorm:"check:amount > 0" json:"amount"`
	BalanceAfter int64          `json:"balance_after"`
	RefType      string         `gorm:"size:32;index:idx_ledger_ref"`
	RefID        string         `gorm:"size:64;index:idx_ledger_ref"`
	Memo         string         `gorm:"size:255"`
}
