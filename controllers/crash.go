package controllers

import (
	"github.com/gofiber/fiber/v2"

	"mastermind/helpers"
	"mastermind/models"
)

func CrashState(c *fiber.Ctx) error {
	return helpers.JSONSuccess(c, "state", CrashGame.State())
}

func CrashHistory(c *fiber.Ctx) error {
	return helpers.JSONSuccess(c, "history", CrashGame.History())
}

type crashPlaceRequest struct {
	PlayerID   string  `json:"player_id"`
	Stake      int64   `json:"stake"`
	AutoTarget float64 `json:"auto_target"`
}

func CrashPlace(c *fiber.Ctx) error {
	var req crashPlaceRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "invalid request body")
	}
	if req.PlayerID == "" {
		return helpers.JSONError(c, "player_id is required")
	}
	tk, err := CrashGame.Place(req.PlayerID, req.Stake, req.AutoTarget)
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "ticket placed", tk)
}

type crashCashoutRequest struct {
	PlayerID string `json:"player_id"`
}

func CrashCashout(c *fiber.Ctx) error {
	var req crashCashoutRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "invalid request body")
	}
	if req.PlayerID == "" {
		return helpers.JSONError(c, "player_id is required")
	}
	tk, err := CrashGame.CashOut(req.PlayerID)
	if err != nil {
		return fail(c, err)
	}
	w, err := Store.Wallets.GetOrCreate(models.OwnerPlayer, req.PlayerID)
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "cashed out", fiber.Map{
		"multiplier":  tk.CashedAt,
		"payout":      tk.Payout,
		"new_balance": w.Balance,
		"ticket":      tk,
	})
}

func CrashTickets(c *fiber.Ctx) error {
	return helpers.JSONSuccess(c, "tickets", CrashGame.Tickets(c.Query("player_id")))
}
