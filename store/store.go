package store

import (
	"errors"
	"time"

	"gorm.io/datatypes"

	"mastermind/models"
)

// Rejection taxonomy. Controllers map these onto response envelopes;
// everything else is an internal error.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrRoundNotOpen      = errors.New("round not open")
	ErrMarketClosed      = errors.New("market closed")
	ErrBadSelection      = errors.New("unknown selection")
	ErrStakeTooSmall     = errors.New("stake below minimum")
	ErrStakeTooLarge     = errors.New("stake above maximum")
	ErrNotFlying         = errors.New("round not flying")
	ErrNoLiveBet         = errors.New("no live bet")
	ErrAlreadySettled    = errors.New("already settled")
	ErrTicketOpen        = errors.New("ticket already open")
	ErrBadTarget         = errors.New("auto cash-out target below 1.01")
)

// Ref ties a ledger entry back to the record that caused it.
type Ref struct {
	Type string
	ID   string
}

// WalletStore serializes all mutations per wallet: the balance check and
// the write happen under one exclusive hold, and every mutation appends a
// ledger row. Mutations on different wallets must not block each other.
type WalletStore interface {
	// GetOrCreate is idempotent and safe under concurrent first access.
	GetOrCreate(ownerType models.OwnerType, ownerID string) (*models.Wallet, error)
	Get(id uint) (*models.Wallet, error)

	// Debit fails with ErrInsufficientFunds and no side effect when the
	// balance cannot cover the amount. Returns the balance after.
	Debit(walletID uint, amount int64, ref Ref, memo string) (int64, error)
	Credit(walletID uint, amount int64, ref Ref, memo string) (int64, error)
	// Transfer applies debit+credit with all-or-nothing effect.
	Transfer(fromID, toID uint, amount int64, ref Ref, memo string) error

	Entries(walletID uint, limit, offset int) ([]models.LedgerEntry, error)
}

// RoundStore owns rounds and their markets. Status transitions are
// conditional so a round can never move backwards or be run twice.
type RoundStore interface {
	Create(r *models.Round, markets []models.Market) error
	Get(id string) (*models.Round, error)
	Markets(roundID string) ([]models.Market, error)
	GetMarket(id string) (*models.Market, error)

	// Open lists OPEN rounds for a stream, soonest run first.
	Open(game, league string, limit int) ([]models.Round, error)
	// Unsettled returns every round not yet SETTLED (the scheduler's scan set).
	Unsettled() ([]models.Round, error)
	// CountUpcoming counts OPEN/LOCKED rounds for a stream.
	CountUpcoming(game, league string) (int, error)

	// Lock moves OPEN -> LOCKED. Reports whether this call did it.
	Lock(id string) (bool, error)
	// BeginRun moves OPEN/LOCKED -> RUNNING. Reports whether this call did
	// it; a false return means another pass got there first.
	BeginRun(id string) (bool, error)
	// Settle moves RUNNING -> SETTLED, stores the result (nil for a voided
	// round) and closes the round's markets.
	Settle(id string, result datatypes.JSON) error
}

type BetStore interface {
	Create(b *models.Bet) error
	Get(id string) (*models.Bet, error)
	ByWallet(walletID uint, limit int) ([]models.Bet, error)
	PendingByRound(roundID string) ([]models.Bet, error)

	// SettleFromPending transitions PENDING -> status exactly once; when
	// payout > 0 the bet's wallet is credited in the same atomic step, with
	// memo on the ledger entry. A failed credit leaves the bet PENDING.
	// Reports false when the bet already left PENDING.
	SettleFromPending(id string, status models.BetStatus, payout int64, memo string, settledAt time.Time) (bool, error)
}

type ResultStore interface {
	Push(game string, payload datatypes.JSON) error
	Recent(game string, limit int) ([]models.GameResult, error)
}

// Store bundles the repositories one deployment runs on.
type Store struct {
	Wallets WalletStore
	Rounds  RoundStore
	Bets    BetStore
	Results ResultStore
}
