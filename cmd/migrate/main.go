package main

import (
	"fmt"
	"os"

	"github.com/Rrens/workspace-sync/internal/config"
	"github.com/Rrens/workspace-sync/internal/repository/sqlite"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	path := cfg.Storage.Path()
	fmt.Printf("Migrating local store at %s...\n", path)

	if err := sqlite.RunMigrations(path); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Local store is up to date")
}
