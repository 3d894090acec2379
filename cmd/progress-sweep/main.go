package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/ad/go-concours-candidature/internal/config"
	"github.com/ad/go-concours-candidature/internal/db"
	"github.com/ad/go-concours-candidature/internal/services"
	_ "github.com/joho/godotenv/autoload"
	_ "modernc.org/sqlite"
)

func main() {
	dbPath, ttl, err := config.LoadStore(os.Getenv)
	if err != nil {
		log.Fatal(err)
	}

	database, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if err := db.InitSchema(database); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	queue := db.NewDBQueue(database)
	defer queue.Close()

	ledger := services.NewProgressLedger(db.NewProgressStore(queue))

	log.Printf("Evicting progression records idle for more than %s...", ttl)
	removed, err := ledger.EvictStale(context.Background(), ttl)
	if err != nil {
		log.Fatalf("Failed to evict stale records: %v", err)
	}

	log.Printf("Removed %d stale progression records", removed)
}
