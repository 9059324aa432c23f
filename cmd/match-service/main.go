package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/skillloop/skillloop-server/matchservice"
)

func main() {
	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	if err := matchservice.Run(); err != nil {
		os.Exit(1)
	}
}
