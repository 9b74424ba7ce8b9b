package controllers

import (
	"github.com/gofiber/fiber/v2"

	"mastermind/helpers"
	"mastermind/models"
	"mastermind/services"
)

type placeBetRequest struct {
	RoundID     string `json:"round_id"`
	MarketID    string `json:"market_id"`
	SelectionID string `json:"selection_id"`
	Stake       int64  `json:"stake"`
	CashierID   string `json:"cashier_id"`
}

func PlaceBet(c *fiber.Ctx) error {
	var req placeBetRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "invalid request body")
	}
	if req.RoundID == "" || req.MarketID == "" || req.SelectionID == "" || req.CashierID == "" {
		return helpers.JSONError(c, "round_id, market_id, selection_id and cashier_id are required")
	}

	bet, err := Betting.Place(services.PlaceBetInput{
		RoundID:     req.RoundID,
		MarketID:    req.MarketID,
		SelectionID: req.SelectionID,
		Stake:       req.Stake,
		CashierID:   req.CashierID,
	})
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "bet placed", fiber.Map{
		"bet_id":           bet.ID,
		"ref":              bet.Ref,
		"odds":             bet.Odds,
		"potential_payout": bet.PotentialPayout,
	})
}

func ListBets(c *fiber.Ctx) error {
	cashierID := c.Query("cashier_id")
	if cashierID == "" {
		return helpers.JSONError(c, "cashier_id is required")
	}
	w, err := Store.Wallets.GetOrCreate(models.OwnerCashier, cashierID)
	if err != nil {
		return fail(c, err)
	}
	limit := c.QueryInt("limit", 200)
	bets, err := Store.Bets.ByWallet(w.ID, limit)
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "bets", bets)
}
