package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"mastermind/helpers"
	"mastermind/models"
	"mastermind/store"
)

func parseOwner(ownerType, ownerID string) (models.OwnerType, string, bool) {
	switch models.OwnerType(ownerType) {
	case models.OwnerHouse, models.OwnerAgent, models.OwnerCashier, models.OwnerPlayer:
	default:
		return "", "", false
	}
	if ownerID == "" {
		return "", "", false
	}
	return models.OwnerType(ownerType), ownerID, true
}

func WalletBalance(c *fiber.Ctx) error {
	ot, oid, ok := parseOwner(c.Query("owner_type"), c.Query("owner_id"))
	if !ok {
		return helpers.JSONError(c, "owner_type and owner_id are required")
	}
	w, err := Store.Wallets.GetOrCreate(ot, oid)
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "balance", fiber.Map{
		"wallet_id":   w.ID,
		"balance":     w.Balance,
		"balance_kes": helpers.Shillings(w.Balance),
		"currency":    w.Currency,
	})
}

func WalletHistory(c *fiber.Ctx) error {
	ot, oid, ok := parseOwner(c.Query("owner_type"), c.Query("owner_id"))
	if !ok {
		return helpers.JSONError(c, "owner_type and owner_id are required")
	}
	w, err := Store.Wallets.GetOrCreate(ot, oid)
	if err != nil {
		return fail(c, err)
	}
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	entries, err := Store.Wallets.Entries(w.ID, limit, offset)
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "history", fiber.Map{
		"wallet_id":   w.ID,
		"balance":     w.Balance,
		"balance_kes": helpers.Shillings(w.Balance),
		"entries":     entries,
	})
}

type topupRequest struct {
	OwnerType string `json:"owner_type"`
	OwnerID   string `json:"owner_id"`
	Amount    int64  `json:"amount"`
	Memo      string `json:"memo"`
}

func WalletTopup(c *fiber.Ctx) error {
	var req topupRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "invalid request body")
	}
	ot, oid, ok := parseOwner(req.OwnerType, req.OwnerID)
	if !ok {
		return helpers.JSONError(c, "owner_type and owner_id are required")
	}
	if req.Amount <= 0 {
		return helpers.JSONError(c, "amount must be positive")
	}
	w, err := Store.Wallets.GetOrCreate(ot, oid)
	if err != nil {
		return fail(c, err)
	}
	memo := req.Memo
	if memo == "" {
		memo = "topup"
	}
	balance, err := Store.Wallets.Credit(w.ID, req.Amount, store.Ref{Type: "topup", ID: uuid.NewString()}, memo)
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "topup applied", fiber.Map{
		"wallet_id":   w.ID,
		"balance":     balance,
		"balance_kes": helpers.Shillings(balance),
	})
}
