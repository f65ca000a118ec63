package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"tron-bridge/cmd"
)

func main() {
	// .env is optional; configuration also comes from the environment
	// and the config file
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
