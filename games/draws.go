package games

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"mastermind/models"
)

var (
	drawColors = []string{"RED", "BLUE", "GREEN", "YELLOW", "PURPLE", "BLACK"}
	colorProbs = []float64{0.18, 0.18, 0.18, 0.16, 0.15, 0.15}
)

type ColorResult struct {
	Ball  int    `json:"ball"`
	Color string `json:"color"`
}

type LottoResult struct {
	Ball int `json:"ball"`
}

type colorDraw struct{}

func init() { Register(colorDraw{}) }

func (colorDraw) Kind() string              { return "colors" }
func (colorDraw) Cycle() time.Duration      { return 60 * time.Second }
func (colorDraw) LockOffset() time.Duration { return 10 * time.Second }
func (colorDraw) MinUpcoming() int          { return 1 }
func (colorDraw) Leagues() []string         { return nil }

func (colorDraw) BuildMarkets(r *models.Round) []Market {
	prices := pricesOf(colorProbs, 0.05)
	sels := make([]models.Selection, len(drawColors))
	odds := make(map[string]float64, len(drawColors))
	for i, c := range drawColors {
		sels[i] = models.Selection{ID: c, Name: c}
		odds[c] = prices[i]
	}
	return []Market{{Type: "MAIN_COLOR", Selections: sels, Odds: odds}}
}

func (colorDraw) GenerateResult(r *models.Round) (any, error) {
	rnd := NewRNG(r.Seed ^ seedOffsetResult)
	ball := 1 + rnd.Intn(49)
	return ColorResult{Ball: ball, Color: drawColors[(ball-1)%len(drawColors)]}, nil
}

func (colorDraw) Evaluate(marketType, selectionID string, result []byte) (bool, error) {
	if marketType != "MAIN_COLOR" {
		return false, fmt.Errorf("colors: unknown market type %q", marketType)
	}
	var res ColorResult
	if err := json.Unmarshal(result, &res); err != nil {
		return false, err
	}
	return selectionID == res.Color, nil
}

type lotto49 struct{}

func init() { Register(lotto49{}) }

func (lotto49) Kind() string              { return "lotto49" }
func (lotto49) Cycle() time.Duration      { return 60 * time.Second }
func (lotto49) LockOffset() time.Duration { return 10 * time.Second }
func (lotto49) MinUpcoming() int          { return 1 }
func (lotto49) Leagues() []string         { return nil }

func (lotto49) BuildMarkets(r *models.Round) []Market {
	price := priceOf(1.0/49, 0.08)
	sels := make([]models.Selection, 49)
	odds := make(map[string]float64, 49)
	for i := 1; i <= 49; i++ {
		id := strconv.Itoa(i)
		sels[i-1] = models.Selection{ID: id, Name: id}
		odds[id] = price
	}
	return []Market{{Type: "PICK1", Selections: sels, Odds: odds}}
}

func (lotto49) GenerateResult(r *models.Round) (any, error) {
	rnd := NewRNG(r.Seed ^ seedOffsetResult)
	return LottoResult{Ball: 1 + rnd.Intn(49)}, nil
}

func (lotto49) Evaluate(marketType, selectionID string, result []byte) (bool, error) {
	if marketType != "PICK1" {
		return false, fmt.Errorf("lotto49: unknown market type %q", marketType)
	}
	var res LottoResult
	if err := json.Unmarshal(result, &res); err != nil {
		return false, err
	}
	return selectionID == strconv.Itoa(res.Ball), nil
}
