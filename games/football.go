package games

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mastermind/models"
)

const mcTrials = 3000

var footballLeagues = map[string][]Team{
	"EPL": teamList("MUN", "TOT", "EVE", "CHE", "NEW", "WOL", "LIV", "ARS", "NOT", "SOU",
		"BOU", "CRY", "LEI", "ASV", "WHU", "BRN", "BRI", "LEE", "FUL", "MCI"),
	"LALIGA": teamList("CAD", "RVA", "VIL", "SEV", "ATM", "GRO", "ESP", "ELC", "MAL", "FCB",
		"RMA", "GET", "ATH", "OSA", "CEL", "BET", "VAL", "RSO", "LEV", "ALM"),
	"UCL": teamList("PSG", "MCI", "RMA", "FCB", "MUN", "BAR", "ROM", "JUV",
		"PSV", "AEK", "NAP", "ZEN", "BVB", "CEL", "LIV", "CHE"),
}

func teamList(abbrs ...string) []Team {
	teams := make([]Team, len(abbrs))
	for i, a := range abbrs {
		teams[i] = Team{Name: a, Abbr: a}
	}
	return teams
}

type FootballResult struct {
	League    string `json:"league"`
	Home      string `json:"home"`
	Away      string `json:"away"`
	HomeGoals int    `json:"home_goals"`
	AwayGoals int    `json:"away_goals"`
	Score     string `json:"score"`
}

type football struct{}

func init() { Register(football{}) }

func (football) Kind() string              { return "football" }
func (football) Cycle() time.Duration      { return 180 * time.Second }
func (football) LockOffset() time.Duration { return 10 * time.Second }
func (football) MinUpcoming() int          { return 10 }

func (football) Leagues() []string { return []string{"EPL", "LALIGA", "UCL"} }

// Fixtures pairs teams with the circle method: team 0 stays put, everyone
// else rotates one slot per step, so a full cycle visits every pairing once.
func (football) Fixtures(league string, rotation int) [][2]Team {
	teams := footballLeagues[league]
	n := len(teams)
	if n < 2 {
		return nil
	}
	m := n - 1
	rotation = ((rotation % m) + m) % m
	row := make([]int, n)
	for i := 1; i < n; i++ {
		row[i] = 1 + (rotation+i-1)%m
	}
	pairs := make([][2]Team, 0, n/2)
	for i := 0; i < n/2; i++ {
		a, b := teams[row[i]], teams[row[n-1-i]]
		if (rotation+i)%2 == 1 {
			a, b = b, a
		}
		pairs = append(pairs, [2]Team{a, b})
	}
	return pairs
}

func (football) Rotations(league string) int {
	return len(footballLeagues[league]) - 1
}

// goalRates derives the expected scoring rates for both sides from the
// round seed. Pricing and the final result both consume these same rates.
func goalRates(seed uint32) (lamH, lamA float64) {
	rnd := NewRNG(seed)
	homeAtk := 1.1 + rnd.Float64()*0.6
	homeDef := 1.0 + rnd.Float64()*0.5
	awayAtk := 1.0 + rnd.Float64()*0.6
	awayDef := 1.1 + rnd.Float64()*0.5
	lamH = 1.35 * homeAtk / awayDef
	lamA = 1.10 * awayAtk / homeDef
	return
}

func (f football) BuildMarkets(r *models.Round) []Market {
	lamH, lamA := goalRates(r.Seed)

	sim := NewRNG(r.Seed ^ seedOffsetSim)
	var nH, nD, nA, nBTTS, nH15, nA15 int
	for t := 0; t < mcTrials; t++ {
		gh := sim.Poisson(lamH)
		ga := sim.Poisson(lamA)
		switch {
		case gh > ga:
			nH++
		case gh < ga:
			nA++
		default:
			nD++
		}
		if gh > 0 && ga > 0 {
			nBTTS++
		}
		if gh >= 2 {
			nH15++
		}
		if ga >= 2 {
			nA15++
		}
	}
	trials := float64(mcTrials)
	pH, pD, pA := float64(nH)/trials, float64(nD)/trials, float64(nA)/trials
	pBTTS := float64(nBTTS)/trials

	lamT := lamH + lamA
	pOver15 := 1 - poissonCDF(1, lamT)
	pOver25 := 1 - poissonCDF(2, lamT)

	odds1x2 := pricesOf([]float64{pH, pD, pA}, 0.07)
	oddsOU15 := pricesOf([]float64{pOver15, 1 - pOver15}, 0.05)
	oddsOU25 := pricesOf([]float64{pOver25, 1 - pOver25}, 0.05)
	oddsBTTS := pricesOf([]float64{pBTTS, 1 - pBTTS}, 0.05)
	oddsHomeOU := pricesOf([]float64{float64(nH15) / trials, 1 - float64(nH15)/trials}, 0.06)
	oddsAwayOU := pricesOf([]float64{float64(nA15) / trials, 1 - float64(nA15)/trials}, 0.06)

	combo := func(p1x2, pLine float64) float64 {
		return priceOf(p1x2*pLine, 0.10)
	}
	combo15 := map[string]float64{
		"H&OV15": combo(pH, pOver15), "D&OV15": combo(pD, pOver15), "A&OV15": combo(pA, pOver15),
		"H&UN15": combo(pH, 1-pOver15), "D&UN15": combo(pD, 1-pOver15), "A&UN15": combo(pA, 1-pOver15),
	}
	combo25 := map[string]float64{
		"H&OV25": combo(pH, pOver25), "D&OV25": combo(pD, pOver25), "A&OV25": combo(pA, pOver25),
		"H&UN25": combo(pH, 1-pOver25), "D&UN25": combo(pD, 1-pOver25), "A&UN25": combo(pA, 1-pOver25),
	}

	lg := r.League
	return []Market{
		{
			Type: "MAIN_1X2_" + lg,
			Selections: []models.Selection{
				{ID: "H", Name: fmt.Sprintf("%s (1)", r.Home)},
				{ID: "D", Name: "Draw (X)"},
				{ID: "A", Name: fmt.Sprintf("%s (2)", r.Away)},
			},
			Odds: map[string]float64{"H": odds1x2[0], "D": odds1x2[1], "A": odds1x2[2]},
		},
		overUnderMarket("OU_1_5_"+lg, "Over 1.5", "Under 1.5", oddsOU15),
		overUnderMarket("OU_2_5_"+lg, "Over 2.5", "Under 2.5", oddsOU25),
		{
			Type: "BTTS_" + lg,
			Selections: []models.Selection{
				{ID: "YES", Name: "BTTS Yes"}, {ID: "NO", Name: "BTTS No"},
			},
			Odds: map[string]float64{"YES": oddsBTTS[0], "NO": oddsBTTS[1]},
		},
		{
			Type: "HOME_OU_1_5_" + lg,
			Selections: []models.Selection{
				{ID: "H_OVER", Name: r.Home + " Over 1.5"}, {ID: "H_UNDER", Name: r.Home + " Under 1.5"},
			},
			Odds: map[string]float64{"H_OVER": oddsHomeOU[0], "H_UNDER": oddsHomeOU[1]},
		},
		{
			Type: "AWAY_OU_1_5_" + lg,
			Selections: []models.Selection{
				{ID: "A_OVER", Name: r.Away + " Over 1.5"}, {ID: "A_UNDER", Name: r.Away + " Under 1.5"},
			},
			Odds: map[string]float64{"A_OVER": oddsAwayOU[0], "A_UNDER": oddsAwayOU[1]},
		},
		comboMarket("COMBO_1X2_OU_1_5_"+lg, combo15),
		comboMarket("COMBO_1X2_OU_2_5_"+lg, combo25),
	}
}

func overUnderMarket(mtype, overName, underName string, odds []float64) Market {
	return Market{
		Type: mtype,
		Selections: []models.Selection{
			{ID: "OVER", Name: overName}, {ID: "UNDER", Name: underName},
		},
		Odds: map[string]float64{"OVER": odds[0], "UNDER": odds[1]},
	}
}

func comboMarket(mtype string, odds map[string]float64) Market {
	sels := make([]models.Selection, 0, len(odds))
	for id := range odds {
		sels = append(sels, models.Selection{ID: id, Name: id})
	}
	return Market{Type: mtype, Selections: sels, Odds: odds}
}

func (football) GenerateResult(r *models.Round) (any, error) {
	lamH, lamA := goalRates(r.Seed)
	rnd := NewRNG(r.Seed ^ seedOffsetResult)
	gh := rnd.Poisson(lamH)
	ga := rnd.Poisson(lamA)
	return FootballResult{
		League:    r.League,
		Home:      r.Home,
		Away:      r.Away,
		HomeGoals: gh,
		AwayGoals: ga,
		Score:     fmt.Sprintf("%s %d-%d %s", r.Home, gh, ga, r.Away),
	}, nil
}

func (football) Evaluate(marketType, selectionID string, result []byte) (bool, error) {
	var res FootballResult
	if err := json.Unmarshal(result, &res); err != nil {
		return false, err
	}
	total := res.HomeGoals + res.AwayGoals
	outcome := "D"
	if res.HomeGoals > res.AwayGoals {
		outcome = "H"
	} else if res.HomeGoals < res.AwayGoals {
		outcome = "A"
	}

	switch {
	case strings.HasPrefix(marketType, "MAIN_1X2"):
		return selectionID == outcome, nil
	case strings.HasPrefix(marketType, "OU_1_5"):
		return overUnder(selectionID, "OVER", total > 1), nil
	case strings.HasPrefix(marketType, "OU_2_5"):
		return overUnder(selectionID, "OVER", total > 2), nil
	case strings.HasPrefix(marketType, "BTTS"):
		yes := res.HomeGoals > 0 && res.AwayGoals > 0
		return overUnder(selectionID, "YES", yes), nil
	case strings.HasPrefix(marketType, "HOME_OU_1_5"):
		return overUnder(selectionID, "H_OVER", res.HomeGoals >= 2), nil
	case strings.HasPrefix(marketType, "AWAY_OU_1_5"):
		return overUnder(selectionID, "A_OVER", res.AwayGoals >= 2), nil
	case strings.HasPrefix(marketType, "COMBO_1X2_OU_1_5"):
		return comboWins(selectionID, outcome, total > 1), nil
	case strings.HasPrefix(marketType, "COMBO_1X2_OU_2_5"):
		return comboWins(selectionID, outcome, total > 2), nil
	}
	return false, fmt.Errorf("football: unknown market type %q", marketType)
}

// overUnder resolves any two-way market: the bet wins when it sits on the
// side that came true.
func overUnder(selectionID, positiveID string, positive bool) bool {
	if selectionID == positiveID {
		return positive
	}
	return !positive
}

// comboWins checks "H&OV15"-style selections: 1X2 leg + totals leg.
func comboWins(selectionID, outcome string, over bool) bool {
	if len(selectionID) < 6 || selectionID[:1] != outcome {
		return false
	}
	if selectionID[2:4] == "OV" {
		return over
	}
	return !over
}
