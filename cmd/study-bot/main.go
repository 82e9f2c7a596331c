package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/glebk/study-bot/internal/config"
	"github.com/glebk/study-bot/internal/discord"
	"github.com/glebk/study-bot/internal/health"
	"github.com/glebk/study-bot/internal/repository/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	store := sqlite.NewStudyRepository(db)

	bot, err := discord.New(cfg.DiscordBotToken, store)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	probe := health.New(cfg.Port)
	probe.Start()

	if err := bot.Start(); err != nil {
		log.Fatalf("Failed to start bot: %v", err)
	}

	log.Println("Bot is running. Press Ctrl+C to exit.")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down gracefully...")

	if err := bot.Close(); err != nil {
		log.Printf("Error closing bot: %v", err)
	}
	if err := probe.Close(); err != nil {
		log.Printf("Error closing health server: %v", err)
	}
}
