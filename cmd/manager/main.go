package main

import (
	"os"

	"github.com/joho/godotenv"

	"viralops/manager-go/internal/cli"
)

func main() {
	// Missing .env is fine; the config file and environment still apply.
	_ = godotenv.Load()
	os.Exit(cli.Run(os.Args))
}
