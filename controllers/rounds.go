package controllers

import (
	"github.com/gofiber/fiber/v2"

	"mastermind/games"
	"mastermind/helpers"
)

func ListRounds(c *fiber.Ctx) error {
	game := c.Query("game")
	if game == "" {
		return helpers.JSONError(c, "game is required")
	}
	if games.Get(game) == nil {
		return helpers.JSONError(c, "unknown game")
	}
	limit := c.QueryInt("limit", 20)
	rounds, err := Store.Rounds.Open(game, c.Query("league"), limit)
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "rounds", rounds)
}

func GetRound(c *fiber.Ctx) error {
	r, err := Store.Rounds.Get(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "round", r)
}

func RoundMarkets(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := Store.Rounds.Get(id); err != nil {
		return fail(c, err)
	}
	markets, err := Store.Rounds.Markets(id)
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "markets", markets)
}

func RecentResults(c *fiber.Ctx) error {
	game := c.Query("game")
	if game == "" {
		return helpers.JSONError(c, "game is required")
	}
	limit := c.QueryInt("limit", 20)
	results, err := Store.Results.Recent(game, limit)
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "results", results)
}

func Health(c *fiber.Ctx) error {
	return helpers.JSONSuccess(c, "ok", fiber.Map{"games": games.Kinds()})
}
