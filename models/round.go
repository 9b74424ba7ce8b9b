package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type RoundStatus string

const (
	RoundOpen    RoundStatus = "OPEN"
	RoundLocked  RoundStatus = "LOCKED"
	RoundRunning RoundStatus = "RUNNING"
	RoundSettled RoundStatus = "SETTLED"
)

type MarketStatus string

const (
	MarketOpen    MarketStatus = "OPEN"
	MarketSettled MarketStatus = "SETTLED"
)

// Round is one timed game cycle. Status only ever moves forward:
// OPEN -> LOCKED -> RUNNING -> SETTLED.
type Round struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	Game   string `gorm:"size:16;index:idx_round_stream" json:"game"`
	League string `gorm:"size:16;index:idx_round_stream" json:"league,omitempty"`
	Home   string `gorm:"size:16" json:"home,omitempty"`
	Away   string `gorm:"size:16" json:"away,omitempty"`
	Seed   uint32 `json:"seed"`

	Status  RoundStatus `gorm:"size:12;index" json:"status"`
	OpensAt time.Time   `json:"opens_at"`
	LocksAt time.Time   `json:"locks_at"`
	RunsAt  time.Time   `gorm:"index" json:"runs_at"`

	Result datatypes.JSON `gorm:"type:jsonb" json:"result,omitempty"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

type Selection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Market struct {
	ID      string       `gorm:"primaryKey;size:36" json:"id"`
	RoundID string       `gorm:"size:36;index" json:"round_id"`
	Type    string       `gorm:"size:48" json:"type"`
	Status  MarketStatus `gorm:"size:12" json:"status"`

	Selections datatypes.JSON `gorm:"type:jsonb" json:"selections"`
	Odds       datatypes.JSON `gorm:"type:jsonb" json:"odds"`

	CreatedAt time.Time `json:"-"`
}

func (m *Market) SelectionList() ([]Selection, error) {
	var sels []Selection
	if err := json.Unmarshal(m.Selections, &sels); err != nil {
		return nil, err
	}
	return sels, nil
}

func (m *Market) OddsMap() (map[string]float64, error) {
	odds := map[string]float64{}
	if err := json.Unmarshal(m.Odds, &odds); err != nil {
		return nil, err
	}
	return odds, nil
}

// Price returns the posted price for one selection, or 0 when the selection
// does not exist in this market.
func (m *Market) Price(selectionID string) float64 {
	odds, err := m.OddsMap()
	if err != nil {
		return 0
	}
	return odds[selectionID]
}

// GameResult is the public results feed, kept independent of settlement.
type GameResult struct {
	ID        uint           `gorm:"primarykey" json:"-"`
	Game      string         `gorm:"size:16;index" json:"game"`
	Payload   datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	CreatedAt time.Time      `json:"ts"`
}
