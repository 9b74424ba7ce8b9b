package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"mastermind/controllers"
	"mastermind/database"
	"mastermind/jobs"
	"mastermind/routes"
	"mastermind/services"
	"mastermind/store"
	"mastermind/store/gormstore"
	"mastermind/store/memstore"
	tasks "mastermind/task"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file, using environment as-is")
	}

	var st store.Store
	usingDB := os.Getenv("DB_HOST") != ""
	if usingDB {
		database.Connect()
		st = gormstore.New(database.DB)
	} else {
		log.Println("DB_HOST not set, running on the in-memory store")
		st = memstore.New()
	}

	scheduler := services.NewScheduler(st)
	crash := services.NewCrash(st)
	controllers.Init(st, crash)

	host := os.Getenv("HOST")
	port := os.Getenv("PORT")

	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "3000"
	}

	app := fiber.New()
	routes.Setup(app)

	jobs.StartRoundScheduler(scheduler)
	jobs.StartCrashTicker(crash)
	if usingDB {
		tasks.StartPruner()
	}

	addr := fmt.Sprintf("%s:%s", host, port)
	log.Println("Server running at", addr)

	go func() {
		if err := app.Listen(addr); err != nil {
			log.Panicf("Failed to start server: %v", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Gracefully shutting down...")
	if err := app.Shutdown(); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited cleanly")
}
