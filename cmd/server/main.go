package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"minionwar/internal/api"
	"minionwar/internal/config"
	"minionwar/internal/game"
	"minionwar/internal/oracle"
	"minionwar/internal/transport"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load("../.env"); err != nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  MINION WAR - GAME ENGINE")
	log.Println("🎮 ================================")

	appConfig := config.Load()
	log.Printf("🌍 World: %.0fx%.0f, fleet cap %d, %d ticks/sec",
		appConfig.World.Width, appConfig.World.Height, appConfig.Fleet.MaxFleetSize, appConfig.Fleet.TickRate)

	cache := oracle.NewCache(appConfig.Oracle.CachePath)
	client := oracle.NewClient(appConfig.Oracle.Endpoint, appConfig.Oracle.ModerationEndpoint, appConfig.Oracle.APIKey, appConfig.Oracle.RequestTimeout)
	if !client.Enabled() {
		log.Println("⚠️ ORACLE_API_KEY not set - adjudication falls back to random, moderation bypassed")
	}
	queue := oracle.NewQueue(oracle.QueueConfig{MaxInFlight: appConfig.Oracle.MaxInFlight, Workers: 8})
	queue.Start()
	resolver := oracle.NewResolver(cache, client, queue)

	world := game.NewWorld(appConfig.World, appConfig.Fleet)
	hub := transport.NewHub()

	engine := game.NewEngine(world, resolver, appConfig.Fleet, appConfig.Fleet.TickRate, nil)
	adapter := transport.NewAdapter(hub, engine)
	engine.SetCallbacks(adapter)

	hub.OnSessionCountChanged(api.UpdateWSConnections)
	hub.OnRejected(api.RecordConnectionRejected)

	debugCfg := api.DefaultObservabilityConfig()
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	engine.Start()
	log.Println("✅ Game engine started")

	go periodicStatsLoop(engine, cache)

	router := api.NewRouter(api.RouterConfig{
		StateProvider:  engine,
		WSHandler:      http.HandlerFunc(hub.ServeWS),
		StaticFilesDir: appConfig.Server.StaticDir,
	})

	addr := ":" + strconv.Itoa(appConfig.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		log.Printf("🌐 server listening on http://localhost%s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	queue.Stop()
	engine.Stop()
	log.Println("👋 Goodbye!")
}

// periodicStatsLoop mirrors the teacher's verbose operational logging habit,
// printing a human-readable load summary every 30 seconds.
func periodicStatsLoop(engine *game.Engine, cache *oracle.Cache) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		api.LogPeriodicStats(engine.PlayerCount(), engine.MinionCount(), cache.Len())
	}
}
