// Package controllers holds the fiber handlers. They parse, call services,
// and wrap results in the JSON envelope; no game or money logic lives here.
package controllers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"mastermind/helpers"
	"mastermind/services"
	"mastermind/store"
)

var (
	Store     store.Store
	Betting   *services.Betting
	CrashGame *services.Crash
)

func Init(st store.Store, crash *services.Crash) {
	Store = st
	Betting = services.NewBetting(st)
	CrashGame = crash
}

// fail maps store sentinels onto envelope responses. Unknown errors are
// logged and hidden behind a 500.
func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return helpers.JSONErrorStatus(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInsufficientFunds),
		errors.Is(err, store.ErrRoundNotOpen),
		errors.Is(err, store.ErrMarketClosed),
		errors.Is(err, store.ErrBadSelection),
		errors.Is(err, store.ErrStakeTooSmall),
		errors.Is(err, store.ErrStakeTooLarge),
		errors.Is(err, store.ErrNotFlying),
		errors.Is(err, store.ErrNoLiveBet),
		errors.Is(err, store.ErrAlreadySettled),
		errors.Is(err, store.ErrTicketOpen),
		errors.Is(err, store.ErrBadTarget):
		return helpers.JSONError(c, err.Error())
	}
	log.Printf("controller: %v", err)
	return helpers.JSONErrorStatus(c, fiber.StatusInternalServerError, "internal error")
}
