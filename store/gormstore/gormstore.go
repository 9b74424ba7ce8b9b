// Package gormstore is the postgres-backed store implementation.
package gormstore

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mastermind/models"
	"mastermind/store"
)

func New(db *gorm.DB) store.Store {
	return store.Store{
		Wallets: walletStore{db},
		Rounds:  roundStore{db},
		Bets:    betStore{db},
		Results: resultStore{db},
	}
}

// ---- wallets ----

type walletStore struct{ db *gorm.DB }

func (s walletStore) GetOrCreate(ownerType models.OwnerType, ownerID string) (*models.Wallet, error) {
	var w models.Wallet
	err := s.db.Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).First(&w).Error
	if err == nil {
		return &w, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	w = models.Wallet{OwnerType: ownerType, OwnerID: ownerID, Currency: "KES"}
	if err := s.db.Create(&w).Error; err != nil {
		// Concurrent first access races on the unique owner index; the loser
		// re-reads the row the winner inserted.
		var again models.Wallet
		if err2 := s.db.Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).First(&again).Error; err2 == nil {
			return &again, nil
		}
		return nil, err
	}
	return &w, nil
}

func (s walletStore) Get(id uint) (*models.Wallet, error) {
	var w models.Wallet
	if err := s.db.First(&w, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

// mutate locks the wallet row FOR UPDATE, applies fn to the balance and
// appends the matching ledger entry, all inside one transaction.
func (s walletStore) mutate(tx *gorm.DB, walletID uint, dir models.EntryDirection, amount int64, ref store.Ref, memo string) (int64, error) {
	var w models.Wallet
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&w, walletID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, store.ErrNotFound
		}
		return 0, err
	}
	if dir == models.EntryDebit {
		if w.Balance < amount {
			return w.Balance, store.ErrInsufficientFunds
		}
		w.Balance -= amount
	} else {
		w.Balance += amount
	}
	if err := tx.Model(&w).Update("balance", w.Balance).Error; err != nil {
		return 0, err
	}
	entry := models.LedgerEntry{
		WalletID:     w.ID,
		Direction:    dir,
		Amount:       amount,
		BalanceAfter: w.Balance,
		RefType:      ref.Type,
		RefID:        ref.ID,
		Memo:         memo,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return 0, err
	}
	return w.Balance, nil
}

func (s walletStore) Debit(walletID uint, amount int64, ref store.Ref, memo string) (int64, error) {
	var after int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		after, err = s.mutate(tx, walletID, models.EntryDebit, amount, ref, memo)
		return err
	})
	return after, err
}

func (s walletStore) Credit(walletID uint, amount int64, ref store.Ref, memo string) (int64, error) {
	var after int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		after, err = s.mutate(tx, walletID, models.EntryCredit, amount, ref, memo)
		return err
	})
	return after, err
}

// Transfer applies the debit and the credit inside one transaction,
// locking the lower wallet id first so opposing transfers cannot deadlock.
func (s walletStore) Transfer(fromID, toID uint, amount int64, ref store.Ref, memo string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if toID < fromID {
			if _, err := s.mutate(tx, toID, models.EntryCredit, amount, ref, memo); err != nil {
				return err
			}
			_, err := s.mutate(tx, fromID, models.EntryDebit, amount, ref, memo)
			return err
		}
		if _, err := s.mutate(tx, fromID, models.EntryDebit, amount, ref, memo); err != nil {
			return err
		}
		_, err := s.mutate(tx, toID, models.EntryCredit, amount, ref, memo)
		return err
	})
}

func (s walletStore) Entries(walletID uint, limit, offset int) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	q := s.db.Where("wallet_id = ?", walletID).Order("id DESC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ---- rounds & markets ----

type roundStore struct{ db *gorm.DB }

func (s roundStore) Create(r *models.Round, markets []models.Market) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(r).Error; err != nil {
			return err
		}
		if len(markets) == 0 {
			return nil
		}
		return tx.Create(&markets).Error
	})
}

func (s roundStore) Get(id string) (*models.Round, error) {
	var r models.Round
	if err := s.db.Where("id = ?", id).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s roundStore) Markets(roundID string) ([]models.Market, error) {
	var out []models.Market
	if err := s.db.Where("round_id = ?", roundID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s roundStore) GetMarket(id string) (*models.Market, error) {
	var mk models.Market
	if err := s.db.Where("id = ?", id).First(&mk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &mk, nil
}

func (s roundStore) Open(game, league string, limit int) ([]models.Round, error) {
	q := s.db.Where("status = ? AND game = ?", models.RoundOpen, game)
	if league != "" {
		q = q.Where("league = ?", league)
	}
	q = q.Order("runs_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.Round
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s roundStore) Unsettled() ([]models.Round, error) {
	var out []models.Round
	err := s.db.Where("status <> ?", models.RoundSettled).Order("runs_at ASC").Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s roundStore) CountUpcoming(game, league string) (int, error) {
	q := s.db.Model(&models.Round{}).
		Where("game = ? AND status IN ?", game, []models.RoundStatus{models.RoundOpen, models.RoundLocked})
	if league != "" {
		q = q.Where("league = ?", league)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s roundStore) Lock(id string) (bool, error) {
	res := s.db.Model(&models.Round{}).
		Where("id = ? AND status = ?", id, models.RoundOpen).
		Update("status", models.RoundLocked)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s roundStore) BeginRun(id string) (bool, error) {
	res := s.db.Model(&models.Round{}).
		Where("id = ? AND status IN ?", id, []models.RoundStatus{models.RoundOpen, models.RoundLocked}).
		Update("status", models.RoundRunning)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s roundStore) Settle(id string, result datatypes.JSON) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Round{}).Where("id = ?", id).
			Updates(map[string]any{"status": models.RoundSettled, "result": result}).Error
		if err != nil {
			return err
		}
		return tx.Model(&models.Market{}).Where("round_id = ?", id).
			Update("status", models.MarketSettled).Error
	})
}

// ---- bets ----

type betStore struct{ db *gorm.DB }

func (s betStore) Create(b *models.Bet) error {
	return s.db.Create(b).Error
}

func (s betStore) Get(id string) (*models.Bet, error) {
	var b models.Bet
	if err := s.db.Where("id = ?", id).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s betStore) ByWallet(walletID uint, limit int) ([]models.Bet, error) {
	q := s.db.Where("wallet_id = ?", walletID).Order("placed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.Bet
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s betStore) PendingByRound(roundID string) ([]models.Bet, error) {
	var out []models.Bet
	err := s.db.Where("round_id = ? AND status = ?", roundID, models.BetPending).Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s betStore) SettleFromPending(id string, status models.BetStatus, payout int64, memo string, settledAt time.Time) (bool, error) {
	var did bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var b models.Bet
		if err := tx.Select("wallet_id").Where("id = ?", id).First(&b).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrNotFound
			}
			return err
		}
		res := tx.Model(&models.Bet{}).
			Where("id = ? AND status = ?", id, models.BetPending).
			Updates(map[string]any{"status": status, "payout": payout, "settled_at": settledAt})
		if res.Error != nil {
			return res.Error
		}
		did = res.RowsAffected > 0
		if did && payout > 0 {
			// rolls the transition back if the credit cannot land
			_, err := walletStore{s.db}.mutate(tx, b.WalletID, models.EntryCredit, payout, store.Ref{Type: "bet", ID: id}, memo)
			return err
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return did, nil
}

// ---- results ----

type resultStore struct{ db *gorm.DB }

func (s resultStore) Push(game string, payload datatypes.JSON) error {
	return s.db.Create(&models.GameResult{Game: game, Payload: payload}).Error
}

func (s resultStore) Recent(game string, limit int) ([]models.GameResult, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []models.GameResult
	err := s.db.Where("game = ?", game).Order("id DESC").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
