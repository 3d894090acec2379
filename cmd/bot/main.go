package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ad/go-concours-candidature/internal/config"
	"github.com/ad/go-concours-candidature/internal/db"
	"github.com/ad/go-concours-candidature/internal/handlers"
	"github.com/ad/go-concours-candidature/internal/services"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	_ "github.com/joho/godotenv/autoload"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"
)

func main() {
	cfg, err := config.Load(os.Getenv)
	if err != nil {
		log.Fatal(err)
	}

	sqlDB, err := openDatabase(cfg.DBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer sqlDB.Close()

	dbQueue := db.NewDBQueue(sqlDB)
	defer dbQueue.Close()

	ledger := services.NewProgressLedger(db.NewProgressStore(dbQueue))
	resolver := services.NewRouteResolver(ledger)
	drafts := services.NewDraftManager(ledger)
	sweeper := services.NewProgressSweeper(ledger, drafts, cfg.ProgressTTL, cfg.SweepInterval)
	chatLinkRepo := db.NewChatLinkRepository(dbQueue)
	settingsRepo := db.NewSettingsRepository(dbQueue)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	b, err := bot.New(cfg.BotToken, bot.WithHTTPClient(15*time.Second, httpClient))
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	// Retry getMe with shorter timeout
	for i := 0; i < 3; i++ {
		log.Printf("Attempting to connect to Telegram API (attempt %d/3)...", i+1)
		getMeCtx, getMeCancel := context.WithTimeout(ctx, 10*time.Second)
		_, err = b.GetMe(getMeCtx)
		getMeCancel()
		if err == nil {
			log.Printf("Successfully connected to Telegram API")
			break
		}
		log.Printf("Failed to get bot info (attempt %d/3): %v", i+1, err)
		if i < 2 {
			log.Printf("Retrying in 2 seconds...")
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatalf("Failed to get bot info after 3 attempts: %v", err)
	}

	errorManager := services.NewErrorManager(b, cfg.AdminID)
	msgManager := services.NewMessageManager(b, errorManager)

	handler := handlers.NewBotHandler(
		cfg.AdminID,
		cfg.BaseURL,
		errorManager,
		msgManager,
		ledger,
		resolver,
		drafts,
		sweeper,
		chatLinkRepo,
		settingsRepo,
	)

	b.RegisterHandlerMatchFunc(func(update *tgmodels.Update) bool {
		return true
	}, handler.HandleUpdate, logMiddleware)

	log.Printf("Bot started. Admin ID: %d, DB: %s, TTL: %s", cfg.AdminID, cfg.DBPath, cfg.ProgressTTL)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b.Start(gctx)
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	if err := g.Wait(); err != nil {
		log.Printf("Shutdown with error: %v", err)
	}
	log.Printf("Bot stopped")
}

func openDatabase(path string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.InitSchema(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return sqlDB, nil
}

func formatUser(u tgmodels.User) string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if u.Username != "" {
		name += " @" + u.Username
	}
	return fmt.Sprintf("%s [%d]", name, u.ID)
}

func logMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
		if update.Message != nil && update.Message.From != nil {
			log.Printf("[MSG] from=%s text=%q", formatUser(*update.Message.From), update.Message.Text)
		}
		next(ctx, b, update)
	}
}
