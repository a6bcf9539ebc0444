package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"spawnpk-tradepost/internal/api"
	"spawnpk-tradepost/internal/config"
	"spawnpk-tradepost/internal/db"
	"spawnpk-tradepost/internal/engine"
	"spawnpk-tradepost/internal/logger"
	"spawnpk-tradepost/internal/tradepost"
)

var version = "dev"

func main() {
	settingsPath := flag.String("settings", "settings.yaml", "Path to settings file")
	port := flag.Int("port", 0, "HTTP server port (overrides settings)")
	flag.Parse()

	// Optional .env for local overrides; missing file is fine.
	godotenv.Load()

	logger.Banner(version)

	settings, err := config.Load(*settingsPath)
	if err != nil {
		logger.Error("CONFIG", fmt.Sprintf("Failed to load settings: %v", err))
		os.Exit(1)
	}
	if *port != 0 {
		settings.Port = *port
	}

	shops, err := config.LoadShops(settings.ShopFiles)
	if err != nil {
		logger.Error("CONFIG", fmt.Sprintf("Failed to load shop catalogs: %v", err))
		os.Exit(1)
	}
	items := 0
	for _, shop := range shops {
		items += len(shop.Items)
	}
	logger.Section("Shop catalogs")
	logger.Stats("Shops", len(shops))
	logger.Stats("Items", items)
	logger.Stats("Raw commodities", len(settings.RawCommodities))

	database, err := db.Open(settings.DatabasePath)
	if err != nil {
		logger.Error("DB", fmt.Sprintf("Failed to open database: %v", err))
		os.Exit(1)
	}
	defer database.Close()

	client := tradepost.NewClient(settings.APIBaseURL, settings.MinRequestInterval())
	session := engine.NewSession(client, shops, settings.RawCommodities, settings.MaxPagesPerItem)

	// Restore the persisted snapshot; refresh in the background when it
	// is stale or absent.
	if snapshot, err := database.LoadSnapshot(); err != nil {
		logger.Warn("DB", fmt.Sprintf("Snapshot load failed: %v", err))
	} else if snapshot != nil {
		session.Restore(snapshot)
		logger.Success("DB", fmt.Sprintf("Restored snapshot: %d trades from %s",
			len(snapshot.Trades), snapshot.CapturedAt.Format(time.RFC3339)))
	}
	if !session.Current().Fresh(settings.CacheExpiry(), time.Now()) {
		go func() {
			if _, err := session.Refresh(context.Background()); err != nil {
				logger.Error("SESSION", fmt.Sprintf("Initial refresh failed: %v", err))
				return
			}
			if ds := session.Current(); ds != nil {
				if err := database.SaveSnapshot(ds); err != nil {
					logger.Warn("DB", fmt.Sprintf("Snapshot save failed: %v", err))
				}
			}
		}()
	}

	srv := api.NewServer(settings, shops, session, database)

	addr := fmt.Sprintf("127.0.0.1:%d", settings.Port)
	logger.Server(addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		logger.Error("Server", fmt.Sprintf("Failed: %v", err))
		os.Exit(1)
	}
}
