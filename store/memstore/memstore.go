// Package memstore is the in-memory store implementation. It backs the
// engine tests and DB-less development; postgres deployments use gormstore.
package memstore

import (
	"sort"
	"sync"
	"time"

	"gorm.io/datatypes"

	"mastermind/models"
	"mastermind/store"
)

// resultKeep matches the depth of the public results feed.
const resultKeep = 20

type walletRec struct {
	mu sync.Mutex
	w  models.Wallet
}

type mem struct {
	mu sync.RWMutex

	nextWalletID uint
	wallets      map[uint]*walletRec
	walletOwners map[string]uint

	nextEntryID uint
	entries     []models.LedgerEntry

	rounds         map[string]*models.Round
	markets        map[string]*models.Market
	marketsByRound map[string][]string

	bets map[string]*models.Bet

	results map[string][]models.GameResult
}

func New() store.Store {
	m := &mem{
		wallets:        map[uint]*walletRec{},
		walletOwners:   map[string]uint{},
		rounds:         map[string]*models.Round{},
		markets:        map[string]*models.Market{},
		marketsByRound: map[string][]string{},
		bets:           map[string]*models.Bet{},
		results:        map[string][]models.GameResult{},
	}
	return store.Store{
		Wallets: walletStore{m},
		Rounds:  roundStore{m},
		Bets:    betStore{m},
		Results: resultStore{m},
	}
}

// ---- wallets ----

type walletStore struct{ *mem }

func ownerKey(ownerType models.OwnerType, ownerID string) string {
	return string(ownerType) + "/" + ownerID
}

func (s walletStore) GetOrCreate(ownerType models.OwnerType, ownerID string) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.walletOwners[ownerKey(ownerType, ownerID)]; ok {
		w := s.wallets[id].w
		return &w, nil
	}
	s.nextWalletID++
	rec := &walletRec{w: models.Wallet{
		OwnerType: ownerType,
		OwnerID:   ownerID,
		Currency:  "KES",
	}}
	rec.w.ID = s.nextWalletID
	s.wallets[rec.w.ID] = rec
	s.walletOwners[ownerKey(ownerType, ownerID)] = rec.w.ID
	w := rec.w
	return &w, nil
}

func (s walletStore) Get(id uint) (*models.Wallet, error) {
	rec, err := s.rec(id)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	w := rec.w
	rec.mu.Unlock()
	return &w, nil
}

func (m *mem) rec(id uint) (*walletRec, error) {
	m.mu.RLock()
	rec, ok := m.wallets[id]
	m.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec, nil
}

// appendEntry assumes the wallet's own mutex is held by the caller.
func (m *mem) appendEntry(w *models.Wallet, dir models.EntryDirection, amount int64, ref store.Ref, memo string) {
	m.mu.Lock()
	m.nextEntryID++
	e := models.LedgerEntry{
		WalletID:     w.ID,
		Direction:    dir,
		Amount:       amount,
		BalanceAfter: w.Balance,
		RefType:      ref.Type,
		RefID:        ref.ID,
		Memo:         memo,
	}
	e.ID = m.nextEntryID
	e.CreatedAt = time.Now()
	m.entries = append(m.entries, e)
	m.mu.Unlock()
}

func (s walletStore) Debit(walletID uint, amount int64, ref store.Ref, memo string) (int64, error) {
	rec, err := s.rec(walletID)
	if err != nil {
		return 0, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.w.Balance < amount {
		return rec.w.Balance, store.ErrInsufficientFunds
	}
	rec.w.Balance -= amount
	s.appendEntry(&rec.w, models.EntryDebit, amount, ref, memo)
	return rec.w.Balance, nil
}

func (s walletStore) Credit(walletID uint, amount int64, ref store.Ref, memo string) (int64, error) {
	rec, err := s.rec(walletID)
	if err != nil {
		return 0, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.w.Balance += amount
	s.appendEntry(&rec.w, models.EntryCredit, amount, ref, memo)
	return rec.w.Balance, nil
}

func (s walletStore) Transfer(fromID, toID uint, amount int64, ref store.Ref, memo string) error {
	from, err := s.rec(fromID)
	if err != nil {
		return err
	}
	to, err := s.rec(toID)
	if err != nil {
		return err
	}
	// Fixed lock order by wallet id so two opposing transfers cannot deadlock.
	first, second := from, to
	if toID < fromID {
		first, second = to, from
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	if first != second {
		second.mu.Lock()
		defer second.mu.Unlock()
	}
	if from.w.Balance < amount {
		return store.ErrInsufficientFunds
	}
	from.w.Balance -= amount
	s.appendEntry(&from.w, models.EntryDebit, amount, ref, memo)
	to.w.Balance += amount
	s.appendEntry(&to.w, models.EntryCredit, amount, ref, memo)
	return nil
}

func (s walletStore) Entries(walletID uint, limit, offset int) ([]models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.LedgerEntry
	// Newest first; the history endpoint pages backwards in time.
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].WalletID != walletID {
			continue
		}
		if offset > 0 {
			offset--
			continue
		}
		out = append(out, s.entries[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ---- rounds & markets ----

type roundStore struct{ *mem }

func (s roundStore) Create(r *models.Round, markets []models.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.rounds[r.ID] = &cp
	for i := range markets {
		mk := markets[i]
		s.markets[mk.ID] = &mk
		s.marketsByRound[r.ID] = append(s.marketsByRound[r.ID], mk.ID)
	}
	return nil
}

func (s roundStore) Get(id string) (*models.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rounds[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s roundStore) Markets(roundID string) ([]models.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.marketsByRound[roundID]
	out := make([]models.Market, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.markets[id])
	}
	return out, nil
}

func (s roundStore) GetMarket(id string) (*models.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mk, ok := s.markets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *mk
	return &cp, nil
}

func (s roundStore) Open(game, league string, limit int) ([]models.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Round
	for _, r := range s.rounds {
		if r.Status == models.RoundOpen && r.Game == game && (league == "" || r.League == league) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunsAt.Before(out[j].RunsAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s roundStore) Unsettled() ([]models.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Round
	for _, r := range s.rounds {
		if r.Status != models.RoundSettled {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunsAt.Before(out[j].RunsAt) })
	return out, nil
}

func (s roundStore) CountUpcoming(game, league string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.rounds {
		if r.Game != game || (league != "" && r.League != league) {
			continue
		}
		if r.Status == models.RoundOpen || r.Status == models.RoundLocked {
			n++
		}
	}
	return n, nil
}

func (s roundStore) Lock(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rounds[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if r.Status != models.RoundOpen {
		return false, nil
	}
	r.Status = models.RoundLocked
	return true, nil
}

func (s roundStore) BeginRun(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rounds[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if r.Status != models.RoundOpen && r.Status != models.RoundLocked {
		return false, nil
	}
	r.Status = models.RoundRunning
	return true, nil
}

func (s roundStore) Settle(id string, result datatypes.JSON) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rounds[id]
	if !ok {
		return store.ErrNotFound
	}
	r.Status = models.RoundSettled
	r.Result = result
	for _, mid := range s.marketsByRound[id] {
		s.markets[mid].Status = models.MarketSettled
	}
	return nil
}

// ---- bets ----

type betStore struct{ *mem }

func (s betStore) Create(b *models.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	s.bets[b.ID] = &cp
	return nil
}

func (s betStore) Get(id string) (*models.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s betStore) ByWallet(walletID uint, limit int) ([]models.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Bet
	for _, b := range s.bets {
		if b.WalletID == walletID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlacedAt.After(out[j].PlacedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s betStore) PendingByRound(roundID string) ([]models.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Bet
	for _, b := range s.bets {
		if b.RoundID == roundID && b.Status == models.BetPending {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s betStore) SettleFromPending(id string, status models.BetStatus, payout int64, memo string, settledAt time.Time) (bool, error) {
	s.mu.Lock()
	b, ok := s.bets[id]
	if !ok {
		s.mu.Unlock()
		return false, store.ErrNotFound
	}
	if b.Status != models.BetPending {
		s.mu.Unlock()
		return false, nil
	}
	b.Status = status
	b.Payout = payout
	b.SettledAt = &settledAt
	walletID := b.WalletID
	s.mu.Unlock()

	if payout > 0 {
		// the wallet behind a placed bet always exists in-process, so the
		// credit cannot fail after the transition committed
		if _, err := (walletStore{s.mem}).Credit(walletID, payout, store.Ref{Type: "bet", ID: id}, memo); err != nil {
			return true, err
		}
	}
	return true, nil
}

// ---- results ----

type resultStore struct{ *mem }

func (s resultStore) Push(game string, payload datatypes.JSON) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append([]models.GameResult{{Game: game, Payload: payload, CreatedAt: time.Now()}}, s.results[game]...)
	if len(list) > resultKeep {
		list = list[:resultKeep]
	}
	s.results[game] = list
	return nil
}

func (s resultStore) Recent(game string, limit int) ([]models.GameResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.results[game]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return append([]models.GameResult(nil), list...), nil
}
