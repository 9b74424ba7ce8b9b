package routes

import (
	"github.com/gofiber/fiber/v2"

	"mastermind/controllers"
	"mastermind/middlewares"
)

func Setup(app *fiber.App) {
	app.Get("/health", controllers.Health)

	app.Get("/rounds", controllers.ListRounds)
	app.Get("/rounds/:id", controllers.GetRound)
	app.Get("/rounds/:id/markets", controllers.RoundMarkets)
	app.Get("/results", controllers.RecentResults)

	betroutes := app.Group("/bets", middlewares.CashierAuth())
	betroutes.Post("/", controllers.PlaceBet)
	betroutes.Get("/", controllers.ListBets)

	walletroutes := app.Group("/wallets")
	walletroutes.Get("/balance", controllers.WalletBalance)
	walletroutes.Get("/history", controllers.WalletHistory)
	walletroutes.Post("/topup", middlewares.AgentAuth(), controllers.WalletTopup)

	crashroutes := app.Group("/crash")
	crashroutes.Get("/state", controllers.CrashState)
	crashroutes.Get("/history", controllers.CrashHistory)
	crashroutes.Get("/tickets", controllers.CrashTickets)
	crashroutes.Post("/place", middlewares.CashierAuth(), controllers.CrashPlace)
	crashroutes.Post("/cashout", middlewares.CashierAuth(), controllers.CrashCashout)
}
