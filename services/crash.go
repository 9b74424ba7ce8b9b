package services

import (
	"encoding/binary"
	"encoding/json"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mastermind/games"
	"mastermind/models"
	"mastermind/store"
)

type CrashPhase string

const (
	CrashBetting CrashPhase = "BETTING"
	CrashFlying  CrashPhase = "FLYING"
	CrashBusted  CrashPhase = "BUSTED"
)

const (
	crashBetWindow  = 4500 * time.Millisecond
	crashBustedHold = 1200 * time.Millisecond
	crashHistoryMax = 20

	// bust draw stream offset, kept stable for audit replay
	crashSeedOffset = 0x777

	// exposure-modulated soft cap on the bust draw
	crashCapBase   = 10.0
	crashCapGrowth = 0.00002 // per cent staked

	// with no live stakes, odds of amplifying the tail draw
	crashAmpChance = 0.02
)

type CrashTicketStatus string

const (
	TicketLive   CrashTicketStatus = "LIVE"
	TicketCashed CrashTicketStatus = "CASHED"
	TicketLost   CrashTicketStatus = "LOST"
)

type CrashTicket struct {
	ID       string `json:"id"`
	Ref      string `json:"ref"`
	RoundID  string `json:"round_id"`
	PlayerID string `json:"player_id"`
	WalletID uint   `json:"wallet_id"`
	Stake    int64  `json:"stake"`
	// AutoTarget is the auto cash-out multiplier; 0 means manual.
	AutoTarget float64           `json:"auto_target,omitempty"`
	Status     CrashTicketStatus `json:"status"`
	CashedAt   float64           `json:"cashed_at,omitempty"`
	Payout     int64             `json:"payout"`
	PlacedAt   time.Time         `json:"placed_at"`
}

type CrashState struct {
	RoundID    string     `json:"round_id"`
	Phase      CrashPhase `json:"phase"`
	Multiplier float64    `json:"multiplier"`
	Cashable   float64    `json:"cashable,omitempty"`
	Bust       float64    `json:"bust,omitempty"`
	ElapsedMs  int64      `json:"elapsed_ms"`
}

type CrashHistoryItem struct {
	Bust float64   `json:"bust"`
	At   time.Time `json:"at"`
}

// Crash runs the continuous multiplier game: BETTING -> FLYING -> BUSTED,
// repeating forever. All phase transitions happen inside Advance; placement
// and cash-out re-check the phase under the engine mutex at request time.
type Crash struct {
	Store store.Store

	// clock hook, swapped for a synthetic clock in tests
	Now func() time.Time

	mu      sync.Mutex
	roundID string
	seed    uint32
	phase   CrashPhase
	phaseAt time.Time
	bust    float64
	tickets map[uint]*CrashTicket
	history []CrashHistoryItem
}

func NewCrash(st store.Store) *Crash {
	c := &Crash{Store: st, Now: time.Now}
	c.beginRound(c.Now())
	return c
}

// beginRound resets per-round state. Caller holds c.mu (or owns c).
func (c *Crash) beginRound(now time.Time) {
	id := uuid.New()
	c.roundID = id.String()
	c.seed = binary.BigEndian.Uint32(id[:4])
	c.phase = CrashBetting
	c.phaseAt = now
	c.bust = 0
	c.tickets = map[uint]*CrashTicket{}
}

// trueMultiplier is the uncapped flight curve at t seconds.
func trueMultiplier(t float64) float64 {
	return 1 + 0.85*t + 0.05*math.Pow(t, 1.4)
}

// minFlight keeps tiny busts near-instant and big busts visibly airborne.
func minFlight(bust float64) time.Duration {
	s := 0.25 + 0.35*math.Log1p(bust-1)
	if s > 6 {
		s = 6
	}
	return time.Duration(s * float64(time.Second))
}

func floor2(x float64) float64 { return math.Floor(x*100) / 100 }
func round2(x float64) float64 { return math.Round(x*100) / 100 }

// drawBust samples the hidden ceiling from an inverse-power-law tail, then
// shapes it by current exposure: an empty book occasionally amplifies the
// tail, a loaded book squashes everything above a soft cap that grows with
// the total staked.
func (c *Crash) drawBust() float64 {
	rnd := games.NewRNG(c.seed ^ crashSeedOffset)
	u := rnd.Float64()
	if u < 1e-9 {
		u = 1e-9
	}
	bust := 0.99 / u
	if bust < 1 {
		bust = 1
	}

	var exposure int64
	for _, tk := range c.tickets {
		if tk.Status == TicketLive {
			exposure += tk.Stake
		}
	}
	if exposure == 0 {
		if rnd.Float64() < crashAmpChance {
			bust *= 1 + 9*rnd.Float64()
		}
	} else {
		softCap := crashCapBase + crashCapGrowth*float64(exposure)
		if bust > softCap {
			bust = softCap * (1 + math.Log(bust/softCap))
		}
	}
	if bust < 1 {
		bust = 1
	}
	return round2(bust)
}

// liveCashable is what a manual cash-out pays right now: the true value
// floored to cents and held strictly below bust by one cent, never below
// 1.00. A bust on the 1.00 floor leaves no room between those bounds;
// that returns 0, meaning nothing is cashable. Caller holds c.mu and
// phase is FLYING.
func (c *Crash) liveCashable(t float64) float64 {
	ceiling := round2(c.bust - 0.01)
	if ceiling < 1 {
		return 0
	}
	v := floor2(trueMultiplier(t))
	if v > ceiling {
		v = ceiling
	}
	if v < 1 {
		v = 1
	}
	return v
}

// Advance applies every due phase transition at the given instant. The jobs
// layer calls it every 120ms. Wallet and feed writes happen after the
// engine lock drops.
func (c *Crash) Advance(now time.Time) {
	var cashed []CrashTicket
	bustedAt := 0.0

	c.mu.Lock()
	switch c.phase {
	case CrashBetting:
		if now.Sub(c.phaseAt) >= crashBetWindow {
			c.bust = c.drawBust()
			c.phase = CrashFlying
			c.phaseAt = now
			// a draw on the 1.00 floor has no flight to show
			if c.bust <= 1 {
				c.bustOut(now)
				bustedAt = c.bust
			}
		}

	case CrashFlying:
		elapsed := now.Sub(c.phaseAt)
		t := elapsed.Seconds()
		truev := trueMultiplier(t)
		displayed := math.Min(truev, c.bust)

		// Auto targets pay at exactly the target, not the live value.
		for _, tk := range c.tickets {
			if tk.Status == TicketLive && tk.AutoTarget > 0 && displayed >= tk.AutoTarget {
				tk.Status = TicketCashed
				tk.CashedAt = tk.AutoTarget
				tk.Payout = PayoutFor(tk.Stake, tk.AutoTarget)
				cashed = append(cashed, *tk)
			}
		}

		if truev >= c.bust && elapsed >= minFlight(c.bust) {
			c.bustOut(now)
			bustedAt = c.bust
		}

	case CrashBusted:
		if now.Sub(c.phaseAt) >= crashBustedHold {
			c.beginRound(now)
		}
	}
	c.mu.Unlock()

	for i := range cashed {
		c.payTicket(&cashed[i])
	}
	if bustedAt > 0 {
		c.pushBust(bustedAt)
	}
}

// payTicket credits a cashed ticket's payout.
func (c *Crash) payTicket(tk *CrashTicket) {
	if _, err := c.Store.Wallets.Credit(tk.WalletID, tk.Payout, store.Ref{Type: "crash_ticket", ID: tk.ID}, "crash win "+tk.Ref); err != nil {
		log.Printf("crash: credit ticket %s: %v", tk.ID, err)
	}
}

func (c *Crash) pushBust(bust float64) {
	if payload, err := json.Marshal(map[string]float64{"bust": bust}); err == nil {
		if err := c.Store.Results.Push("crash", payload); err != nil {
			log.Printf("crash: push result: %v", err)
		}
	}
}

// bustOut ends the flight: live tickets lose at zero and the bust value
// goes to history. Caller holds c.mu and pushes the feed entry afterwards.
func (c *Crash) bustOut(now time.Time) {
	for _, tk := range c.tickets {
		if tk.Status == TicketLive {
			tk.Status = TicketLost
			tk.Payout = 0
		}
	}

	c.history = append([]CrashHistoryItem{{Bust: c.bust, At: now}}, c.history...)
	if len(c.history) > crashHistoryMax {
		c.history = c.history[:crashHistoryMax]
	}

	c.phase = CrashBusted
	c.phaseAt = now
}

// Place opens one ticket for the player during the betting window. The
// stake is debited before the ticket goes live; the debit runs outside
// the engine lock, so the window is re-checked before admission and the
// stake refunded when it closed mid-debit.
func (c *Crash) Place(playerID string, stake int64, autoTarget float64) (*CrashTicket, error) {
	if err := CheckStake(stake); err != nil {
		return nil, err
	}
	if autoTarget != 0 && autoTarget < 1.01 {
		return nil, store.ErrBadTarget
	}

	w, err := c.Store.Wallets.GetOrCreate(models.OwnerPlayer, playerID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.phase != CrashBetting {
		c.mu.Unlock()
		return nil, store.ErrRoundNotOpen
	}
	if _, open := c.tickets[w.ID]; open {
		c.mu.Unlock()
		return nil, store.ErrTicketOpen
	}
	c.mu.Unlock()

	id := uuid.NewString()
	tk := &CrashTicket{
		ID:         id,
		Ref:        NewCrashRef(id),
		PlayerID:   playerID,
		WalletID:   w.ID,
		Stake:      stake,
		AutoTarget: autoTarget,
		Status:     TicketLive,
		PlacedAt:   c.Now(),
	}
	if _, err := c.Store.Wallets.Debit(w.ID, stake, store.Ref{Type: "crash_ticket", ID: id}, "crash stake "+tk.Ref); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.phase != CrashBetting {
		c.mu.Unlock()
		c.refundStake(tk)
		return nil, store.ErrRoundNotOpen
	}
	if _, open := c.tickets[w.ID]; open {
		c.mu.Unlock()
		c.refundStake(tk)
		return nil, store.ErrTicketOpen
	}
	tk.RoundID = c.roundID
	c.tickets[w.ID] = tk
	cp := *tk
	c.mu.Unlock()
	return &cp, nil
}

// refundStake returns a debited stake whose ticket was never admitted.
func (c *Crash) refundStake(tk *CrashTicket) {
	if _, err := c.Store.Wallets.Credit(tk.WalletID, tk.Stake, store.Ref{Type: "crash_ticket", ID: tk.ID}, "crash refund "+tk.Ref); err != nil {
		log.Printf("crash: refund ticket %s: %v", tk.ID, err)
	}
}

// CashOut settles the player's live ticket at the current cashable
// multiplier. Declined outside FLYING, for players with no live ticket,
// and on flights with no cashable value. The ticket is marked under the
// engine lock; the credit lands after it drops.
func (c *Crash) CashOut(playerID string) (*CrashTicket, error) {
	w, err := c.Store.Wallets.GetOrCreate(models.OwnerPlayer, playerID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.phase != CrashFlying {
		c.mu.Unlock()
		return nil, store.ErrNotFlying
	}
	tk, ok := c.tickets[w.ID]
	if !ok {
		c.mu.Unlock()
		return nil, store.ErrNoLiveBet
	}
	if tk.Status != TicketLive {
		c.mu.Unlock()
		return nil, store.ErrAlreadySettled
	}

	t := c.Now().Sub(c.phaseAt).Seconds()
	v := c.liveCashable(t)
	if v == 0 {
		c.mu.Unlock()
		return nil, store.ErrNotFlying
	}
	tk.Status = TicketCashed
	tk.CashedAt = v
	tk.Payout = PayoutFor(tk.Stake, v)
	cp := *tk
	c.mu.Unlock()

	c.payTicket(&cp)
	return &cp, nil
}

// State is a snapshot for the live display. The bust value stays hidden
// until the round has busted.
func (c *Crash) State() CrashState {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.Now()
	st := CrashState{
		RoundID:    c.roundID,
		Phase:      c.phase,
		Multiplier: 1,
		ElapsedMs:  now.Sub(c.phaseAt).Milliseconds(),
	}
	if c.phase == CrashFlying {
		t := now.Sub(c.phaseAt).Seconds()
		st.Multiplier = round2(math.Min(trueMultiplier(t), c.bust))
		st.Cashable = c.liveCashable(t)
	}
	if c.phase == CrashBusted {
		st.Multiplier = c.bust
		st.Bust = c.bust
	}
	return st
}

// Tickets lists the current round's tickets, newest first, optionally
// filtered to one player.
func (c *Crash) Tickets(playerID string) []CrashTicket {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]CrashTicket, 0, len(c.tickets))
	for _, tk := range c.tickets {
		if playerID == "" || tk.PlayerID == playerID {
			out = append(out, *tk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlacedAt.After(out[j].PlacedAt) })
	return out
}

// History returns recent bust values, newest first.
func (c *Crash) History() []CrashHistoryItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CrashHistoryItem(nil), c.history...)
}
