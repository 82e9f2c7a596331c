package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	DiscordBotToken string
	DatabasePath    string
	Port            string
}

// Load reads configuration from environment variables, loading a .env
// file first when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	token := os.Getenv("DISCORD_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("DISCORD_BOT_TOKEN is required")
	}

	return &Config{
		DiscordBotToken: token,
		DatabasePath:    getEnv("DATABASE_PATH", "./studybot.db"),
		Port:            getEnv("PORT", "10000"),
	}, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
